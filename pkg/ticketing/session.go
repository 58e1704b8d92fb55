package ticketing

import (
	"github.com/bwmarrin/discordgo"
)

// Session is the slice of the Discord session the engine needs. It is
// satisfied by *discordgo.Session and faked in tests so the engine can be
// exercised without a gateway connection.
type Session interface {
	// Channel gets a channel by ID.
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)

	// GuildChannelCreateComplex creates a channel in a guild.
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)

	// ChannelEditComplex edits a channel.
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)

	// ChannelDelete deletes a channel.
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)

	// ChannelMessage gets a single message.
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// ChannelMessages gets messages from a channel.
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)

	// ChannelMessageSendComplex sends a message.
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// ChannelMessageEditComplex edits a message.
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)

	// ChannelPermissionSet grants or updates a permission overwrite.
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error

	// ChannelPermissionDelete removes a permission overwrite.
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
}

// Actor identifies the user performing an engine operation, resolved by the
// interaction adapter before the call.
type Actor struct {
	// ID is the user's ID.
	ID string

	// Username is the user's name, used for naming templates and replies.
	Username string

	// Roles are the IDs of the member's roles in the guild.
	Roles []string

	// Admin marks guild administrators; they count as management everywhere.
	Admin bool
}

// HasAnyRole reports whether the actor holds at least one of the given roles.
func (a Actor) HasAnyRole(roleIDs []string) bool {
	for _, have := range a.Roles {
		for _, want := range roleIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}
