package entities

// GuildTicketConfig is the per-guild ticketing configuration row. It is
// written by the panel setup workflow and read by the engine on every ticket
// creation and close.
type GuildTicketConfig struct {
	// GuildID is the ID of the guild, and the row key.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// PanelChannelID is the channel holding the ticket panel message.
	PanelChannelID string `json:"panel_channel_id" bson:"panel_channel_id"`

	// PanelMessageID is the panel message, recorded so re-running setup edits
	// it in place instead of posting a duplicate.
	PanelMessageID string `json:"panel_message_id" bson:"panel_message_id"`

	// TicketCategoryID is the category new ticket channels are created under.
	TicketCategoryID string `json:"ticket_category_id" bson:"ticket_category_id"`

	// SupportRoleIDs are the roles granted access to every ticket channel.
	SupportRoleIDs []string `json:"support_role_ids" bson:"support_role_ids"`

	// ManagementRoleIDs are the roles allowed to open restricted ticket types
	// and to close tickets without confirmation.
	ManagementRoleIDs []string `json:"management_role_ids" bson:"management_role_ids"`

	// TranscriptsChannelID is where transcripts are delivered on close.
	// Optional; no transcript is produced when empty.
	TranscriptsChannelID string `json:"transcripts_channel_id" bson:"transcripts_channel_id"`

	// ChannelNamingTemplate is the template for ticket channel names.
	ChannelNamingTemplate string `json:"channel_naming_template" bson:"channel_naming_template"`
}

// Configured reports whether the guild has the minimum configuration needed
// to open tickets.
func (c *GuildTicketConfig) Configured() bool {
	return c != nil && c.TicketCategoryID != ""
}
