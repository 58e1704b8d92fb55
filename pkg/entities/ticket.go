package entities

import (
	"github.com/wardenbot/warden/pkg/custom"
)

// Ticket is a tracked support request backed by a dedicated channel. A creator
// may have at most one non-closed ticket per guild at a time.
type Ticket struct {
	// ID is the store-assigned monotonic ticket number, unique per guild.
	ID int `json:"ticket_id" bson:"ticket_id"`

	// GuildID is the ID of the guild that the ticket belongs to.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// ChannelID is the ID of the ticket's channel. At most one non-closed
	// ticket exists per channel.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// CreatorID is the ID of the user that opened the ticket.
	CreatorID string `json:"creator_id" bson:"creator_id"`

	// CreatorName is the creator's username at open time, kept for the
	// channel-naming template.
	CreatorName string `json:"creator_name" bson:"creator_name"`

	// OpenedAt is when the ticket was opened.
	OpenedAt custom.Datetime `json:"opened_at" bson:"opened_at"`

	// Status is the current status name. StatusClosed is terminal and is only
	// ever set by the close workflow.
	Status string `json:"status" bson:"status"`

	// ClosedAt is when the ticket was closed. It is set if and only if the
	// status is StatusClosed.
	ClosedAt custom.Datetime `json:"closed_at" bson:"closed_at"`

	// Priority is the current ticket priority.
	Priority Priority `json:"priority" bson:"priority"`

	// TypeID is the ID of the ticket type this ticket was opened as.
	TypeID string `json:"ticket_type_id" bson:"ticket_type_id"`

	// FormAnswers are the intake-form answers in submission order.
	FormAnswers []FormAnswer `json:"form_answers" bson:"form_answers"`

	// ClaimedBy is the ID of the staff member handling the ticket, empty when
	// unclaimed. It is cleared whenever the ticket closes.
	ClaimedBy string `json:"claimed_by" bson:"claimed_by"`
}

// FormAnswer is a single intake-form answer.
type FormAnswer struct {
	// FieldID is the form field's ID.
	FieldID string `json:"field_id" bson:"field_id"`

	// Label is the field label shown to the user.
	Label string `json:"label" bson:"label"`

	// Value is what the user submitted.
	Value string `json:"value" bson:"value"`
}

// IsOpen reports whether the ticket has not reached the terminal status.
func (t *Ticket) IsOpen() bool {
	return t.Status != StatusClosed
}

// Clone returns a copy of the ticket, with its own answers slice.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.FormAnswers != nil {
		c.FormAnswers = make([]FormAnswer, len(t.FormAnswers))
		copy(c.FormAnswers, t.FormAnswers)
	}
	return &c
}
