package main

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/messages"
	"github.com/wardenbot/warden/pkg/ticketing"
)

func respondError(a IApp, i *discordgo.InteractionCreate) error {
	return respondEphemeral(a, i, messages.ErrUserErrorProcessing)
}

func respondEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondChannelMessage(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func respondEmbed(a IApp, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// interactionActor resolves the acting member of an interaction into the
// engine's actor shape.
func interactionActor(i *discordgo.InteractionCreate) ticketing.Actor {
	actor := ticketing.Actor{}
	if i.Member != nil {
		actor.Roles = i.Member.Roles
		actor.Admin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
		if i.Member.User != nil {
			actor.ID = i.Member.User.ID
			actor.Username = i.Member.User.Username
		}
	} else if i.User != nil {
		actor.ID = i.User.ID
		actor.Username = i.User.Username
	}
	return actor
}

// userFacing maps an engine error to its reply template. It returns "" for
// external failures, which get the generic error reply instead.
func userFacing(err error) string {
	var alreadyOpen *ticketing.AlreadyOpenError
	var alreadyClaimed *ticketing.AlreadyClaimedError

	switch {
	case errors.As(err, &alreadyOpen):
		return messages.Render(messages.TicketAlreadyOpen, map[string]string{
			"channel": "<#" + alreadyOpen.ChannelID + ">",
		})
	case errors.As(err, &alreadyClaimed):
		return messages.Render(messages.TicketAlreadyClaimed, map[string]string{
			"claimer": alreadyClaimed.ClaimedBy,
		})
	case errors.Is(err, ticketing.ErrNotATicketChannel):
		return messages.TicketNotTicketChan
	case errors.Is(err, ticketing.ErrAuthorizationDenied):
		return messages.TicketNoPermission
	case errors.Is(err, ticketing.ErrInvalidStatus):
		return messages.TicketStatusInvalid
	case errors.Is(err, ticketing.ErrInvalidPriority):
		return messages.TicketPriorityInvalid
	case errors.Is(err, ticketing.ErrNotClaimed):
		return messages.TicketNotClaimed
	case errors.Is(err, ticketing.ErrConfigurationIncomplete):
		return messages.TicketNotConfigured
	case errors.Is(err, ticketing.ErrUnknownTicketType):
		return messages.TicketUnknownType
	case errors.Is(err, ticketing.ErrConfirmationPending):
		return messages.TicketClosePending
	case errors.Is(err, ticketing.ErrStaleConfirmation):
		return messages.TicketCloseStale
	}
	return ""
}

// respondOutcome replies to the interaction with the engine's outcome: a
// templated reply for recognised errors, the generic error otherwise.
func respondOutcome(a IApp, i *discordgo.InteractionCreate, res *ticketing.Result, err error) error {
	if err != nil {
		if msg := userFacing(err); msg != "" {
			return respondEphemeral(a, i, msg)
		}
		return err
	}
	if res.Embed != nil {
		return respondEmbed(a, i, res.Embed)
	}
	return respondChannelMessage(a, i, res.Message)
}
