package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/messages"
	"github.com/wardenbot/warden/pkg/ticketing"
)

const (
	// TicketCmdName is the command for operating on the current ticket.
	TicketCmdName = "ticket"

	// AdminTicketCmdName is the command for administering the ticket system.
	AdminTicketCmdName = "ticket-admin"

	// CloseCmdName is the sub command for closing a ticket.
	CloseCmdName = "close"

	// AddCmdName is the sub command for adding a member to a ticket.
	AddCmdName = "add"

	// RemoveCmdName is the sub command for removing a member from a ticket.
	RemoveCmdName = "remove"

	// PriorityCmdName is the sub command for setting a ticket's priority.
	PriorityCmdName = "priority"

	// StatusCmdName is the sub command for setting a ticket's status.
	StatusCmdName = "status"

	// ClaimCmdName is the sub command for claiming a ticket.
	ClaimCmdName = "claim"

	// UnclaimCmdName is the sub command for unclaiming a ticket.
	UnclaimCmdName = "unclaim"

	// InfoCmdName is the sub command for showing a ticket's details.
	InfoCmdName = "info"

	// SetupPanelCmdName is the sub command for setting up the ticket panel.
	SetupPanelCmdName = "setup-panel"
)

var (
	// ticketCmd is the command for operating on the ticket of the channel the
	// command is executed in.
	ticketCmd = &discordgo.ApplicationCommand{
		Name:        TicketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for controlling tickets.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        CloseCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This closes the ticket for the channel that the command was executed in.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "reason",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The reason for closing the ticket.",
						Required:    false,
					},
				},
			},
			{
				Name:        AddCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This adds a user to the ticket.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "user",
						Type:        discordgo.ApplicationCommandOptionUser,
						Description: "The user to add to the ticket.",
						Required:    true,
					},
				},
			},
			{
				Name:        RemoveCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This removes a user from the ticket.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "user",
						Type:        discordgo.ApplicationCommandOptionUser,
						Description: "The user to remove from the ticket.",
						Required:    true,
					},
				},
			},
			{
				Name:        PriorityCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This sets the priority of the ticket.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "priority",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The priority to set.",
						Required:    true,
						Choices:     priorityChoices(),
					},
				},
			},
			{
				Name:        StatusCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This sets the status of the ticket.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "status",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The status to set.",
						Required:    true,
					},
				},
			},
			{
				Name:        ClaimCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This claims the ticket for the channel that the command was executed in.",
			},
			{
				Name:        UnclaimCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This unclaims the ticket for the channel that the command was executed in.",
			},
			{
				Name:        InfoCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This shows the details of the ticket.",
			},
		},
	}

	// adminCmd is the command for administering the ticket system.
	adminCmd = &discordgo.ApplicationCommand{
		Name:        AdminTicketCmdName,
		Type:        discordgo.ChatApplicationCommand,
		Description: "This is the command for administering the ticket system.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        SetupPanelCmdName,
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "This sets up the ticket panel for the server.",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:         "panel_channel",
						Type:         discordgo.ApplicationCommandOptionChannel,
						Description:  "The channel to post the ticket panel in.",
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
					{
						Name:         "category",
						Type:         discordgo.ApplicationCommandOptionChannel,
						Description:  "The category to create ticket channels under.",
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
					},
					{
						Name:         "transcripts_channel",
						Type:         discordgo.ApplicationCommandOptionChannel,
						Description:  "The channel to deliver ticket transcripts to.",
						Required:     false,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					},
				},
			},
		},
	}
)

func priorityChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(entities.Priorities))
	for _, p := range entities.Priorities {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(p),
			Value: string(p),
		})
	}
	return choices
}

func ticketCmdController(_ IApp, cmd string) (slashProcessor, error) {
	switch cmd {
	case CloseCmdName:
		return ticketCloseHandler, nil
	case AddCmdName:
		return ticketAddHandler, nil
	case RemoveCmdName:
		return ticketRemoveHandler, nil
	case PriorityCmdName:
		return ticketPriorityHandler, nil
	case StatusCmdName:
		return ticketStatusHandler, nil
	case ClaimCmdName:
		return ticketClaimHandler, nil
	case UnclaimCmdName:
		return ticketUnclaimHandler, nil
	case InfoCmdName:
		return ticketInfoHandler, nil
	default:
		return nil, fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func adminCmdController(_ IApp, cmd string) (slashProcessor, error) {
	switch cmd {
	case SetupPanelCmdName:
		return setupPanelHandler, nil
	default:
		return nil, fmt.Errorf("unknown subcommand %q", cmd)
	}
}

// subOptions returns the options of the invoked subcommand.
func subOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return nil
	}
	return opts[0].Options
}

func optString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optUserID(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.UserValue(nil).ID
		}
	}
	return ""
}

func optChannelID(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.ChannelValue(nil).ID
		}
	}
	return ""
}

// requireStaff gates staff-only subcommands: support or management.
func requireStaff(a IApp, i *discordgo.InteractionCreate, actor ticketing.Actor) bool {
	ctx := context.Background()
	return a.Engine().IsSupport(ctx, i.GuildID, actor) || a.Engine().IsManagement(ctx, i.GuildID, actor)
}

func ticketCloseHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	reason := optString(subOptions(i), "reason")
	if reason == "" {
		reason = "No reason given"
	}

	res, err := a.Engine().RequestClose(context.Background(), i.GuildID, i.ChannelID, actor, reason)
	if err != nil {
		return respondOutcome(a, i, nil, err)
	}

	if res.Pending {
		return respondEphemeral(a, i, res.Message)
	}

	// The channel is gone once the close succeeds, so the interaction can no
	// longer be answered there. Best effort.
	if err := respondEphemeral(a, i, res.Message); err != nil {
		a.Log().Debug("Could not respond to close interaction",
			slog.String(logging.KeyChannelID, i.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return nil
}

func ticketAddHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !requireStaff(a, i, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	userID := optUserID(subOptions(i), "user")
	res, err := a.Engine().AddMember(context.Background(), i.GuildID, i.ChannelID, userID, actor)
	if err != nil {
		if msg := memberErrReply(err, userID); msg != "" {
			return respondEphemeral(a, i, msg)
		}
		return respondOutcome(a, i, nil, err)
	}
	return respondChannelMessage(a, i, res.Message)
}

func ticketRemoveHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !requireStaff(a, i, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	userID := optUserID(subOptions(i), "user")
	res, err := a.Engine().RemoveMember(context.Background(), i.GuildID, i.ChannelID, userID, actor)
	if err != nil {
		if msg := memberErrReply(err, userID); msg != "" {
			return respondEphemeral(a, i, msg)
		}
		return respondOutcome(a, i, nil, err)
	}
	return respondChannelMessage(a, i, res.Message)
}

// memberErrReply renders the member-specific replies, which need the target
// user interpolated.
func memberErrReply(err error, userID string) string {
	vars := map[string]string{"user": "<@" + userID + ">"}
	switch {
	case errors.Is(err, ticketing.ErrAlreadyMember):
		return messages.Render(messages.TicketAlreadyMember, vars)
	case errors.Is(err, ticketing.ErrNotMember):
		return messages.Render(messages.TicketNotMember, vars)
	}
	return ""
}

func ticketPriorityHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !requireStaff(a, i, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	priority := entities.Priority(optString(subOptions(i), "priority"))
	res, err := a.Engine().SetPriority(context.Background(), i.GuildID, i.ChannelID, priority, actor)
	return respondOutcome(a, i, res, err)
}

func ticketStatusHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !requireStaff(a, i, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	status := optString(subOptions(i), "status")
	res, err := a.Engine().SetStatus(context.Background(), i.GuildID, i.ChannelID, status, actor)
	return respondOutcome(a, i, res, err)
}

func ticketClaimHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !requireStaff(a, i, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	res, err := a.Engine().Claim(context.Background(), i.GuildID, i.ChannelID, actor)
	return respondOutcome(a, i, res, err)
}

func ticketUnclaimHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !requireStaff(a, i, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	res, err := a.Engine().Unclaim(context.Background(), i.GuildID, i.ChannelID, actor)
	return respondOutcome(a, i, res, err)
}

func ticketInfoHandler(a IApp, i *discordgo.InteractionCreate) error {
	res, err := a.Engine().TicketInfo(context.Background(), i.GuildID, i.ChannelID)
	return respondOutcome(a, i, res, err)
}

func setupPanelHandler(a IApp, i *discordgo.InteractionCreate) error {
	actor := interactionActor(i)
	if !a.Engine().IsManagement(context.Background(), i.GuildID, actor) {
		return respondEphemeral(a, i, messages.TicketNoPermission)
	}

	opts := subOptions(i)
	res, err := a.Engine().SetupPanel(context.Background(),
		i.GuildID,
		optChannelID(opts, "panel_channel"),
		optChannelID(opts, "category"),
		optChannelID(opts, "transcripts_channel"),
	)
	if err != nil {
		return respondOutcome(a, i, nil, err)
	}
	return respondEphemeral(a, i, res.Message)
}

// openTicketButtonHandler runs the panel button press: rate limit, cheap
// precondition checks, then either the intake modal or a direct creation for
// types with no form.
func openTicketButtonHandler(a IApp, i *discordgo.InteractionCreate, typeID string) error {
	actor := interactionActor(i)

	if !a.OpenTicketLimiter(actor.ID).Allow() {
		RateLimitedInteractions.Inc()
		return respondEphemeral(a, i, messages.TicketRateLimited)
	}

	// Check the preconditions before showing the modal, so the user is not
	// asked to fill a form for a ticket that cannot be opened.
	if err := a.Engine().CanOpen(context.Background(), i.GuildID, actor, typeID); err != nil {
		return respondOutcome(a, i, nil, err)
	}

	typ := a.Engine().Config().TypeByID(typeID)
	if len(typ.FormFields) == 0 {
		res, err := a.Engine().Create(context.Background(), i.GuildID, actor, typeID, nil)
		if err != nil {
			return respondOutcome(a, i, nil, err)
		}
		return respondEphemeral(a, i, res.Message)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   ticketing.TicketModalID(typeID),
			Title:      typ.Name,
			Components: modalComponents(typ),
		},
	})
}

func modalComponents(typ *entities.TicketType) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(typ.FormFields))
	for _, f := range typ.FormFields {
		style := discordgo.TextInputShort
		if f.Style == "Paragraph" {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:  f.ID,
					Label:     f.Label,
					Style:     style,
					Required:  f.Required,
					MinLength: f.MinLength,
					MaxLength: f.MaxLength,
				},
			},
		})
	}
	return rows
}

// ticketModalHandler runs the intake modal submission: collect the answers
// and open the ticket.
func ticketModalHandler(a IApp, i *discordgo.InteractionCreate, typeID string) error {
	actor := interactionActor(i)

	typ := a.Engine().Config().TypeByID(typeID)
	if typ == nil {
		return respondEphemeral(a, i, messages.TicketUnknownType)
	}

	answers := collectAnswers(typ, i.ModalSubmitData().Components)
	res, err := a.Engine().Create(context.Background(), i.GuildID, actor, typeID, answers)
	if err != nil {
		return respondOutcome(a, i, nil, err)
	}
	return respondEphemeral(a, i, res.Message)
}

func collectAnswers(typ *entities.TicketType, components []discordgo.MessageComponent) []entities.FormAnswer {
	var answers []entities.FormAnswer
	for _, row := range components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			input, ok := comp.(*discordgo.TextInput)
			if !ok {
				continue
			}
			answers = append(answers, entities.FormAnswer{
				FieldID: input.CustomID,
				Label:   fieldLabel(typ, input.CustomID),
				Value:   input.Value,
			})
		}
	}
	return answers
}

func fieldLabel(typ *entities.TicketType, fieldID string) string {
	for _, f := range typ.FormFields {
		if f.ID == fieldID {
			return f.Label
		}
	}
	return fieldID
}

// closeConfirmButtonHandler runs an activation of the close-confirmation
// button. The engine checks the prompt's identity and the actor's authority.
func closeConfirmButtonHandler(a IApp, i *discordgo.InteractionCreate, channelID string) error {
	if channelID != i.ChannelID {
		return respondEphemeral(a, i, messages.TicketCloseStale)
	}

	actor := interactionActor(i)
	res, err := a.Engine().ConfirmClose(context.Background(), i.GuildID, i.ChannelID, i.Message.ID, actor)
	if err != nil {
		return respondOutcome(a, i, nil, err)
	}

	// The close deleted the channel, so the interaction usually cannot be
	// answered any more. Best effort.
	if err := respondEphemeral(a, i, res.Message); err != nil {
		a.Log().Debug("Could not respond to close confirmation",
			slog.String(logging.KeyChannelID, i.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return nil
}
