package entities

import (
	"fmt"
)

// StatusClosed is the reserved terminal ticket status. It is never settable
// via the generic status operation, only by the close workflow.
const StatusClosed = "Closed"

// DefaultNamingTemplate is the channel-naming template used when a guild has
// not configured one.
const DefaultNamingTemplate = "{emoji}-{type_id}-{username}-{user_id}"

// DefaultCloseConfirmationSeconds is the default close-confirmation window.
const DefaultCloseConfirmationSeconds = 60

// Priority is a ticket priority level.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every valid priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Valid reports whether the priority is one of the allowed levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// TicketStatus is a configured, named ticket state.
type TicketStatus struct {
	// Name is the status name, e.g. "Open" or "AwaitingResponse".
	Name string `json:"name"`

	// Emoji decorates the channel name while the ticket is in this status.
	Emoji string `json:"emoji"`

	// Color is the embed colour associated with this status.
	Color int `json:"color"`
}

// FormField is a single field of a ticket type's intake form.
type FormField struct {
	// ID identifies the field within the form.
	ID string `json:"id"`

	// Label is shown to the user above the input.
	Label string `json:"label"`

	// Style is the input style, "Short" or "Paragraph".
	Style string `json:"style"`

	// Required marks the field as mandatory.
	Required bool `json:"required"`

	// MinLength and MaxLength bound the answer length. A zero MaxLength
	// means the platform maximum.
	MinLength int `json:"min_length"`
	MaxLength int `json:"max_length"`
}

// TicketType is a configured category of ticket with its own intake form and
// defaults. It is read-only to the engine.
type TicketType struct {
	// ID is the short unique code, used in component IDs and channel names.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Emoji decorates the panel button.
	Emoji string `json:"emoji"`

	// ButtonStyle is the panel button style: "Primary", "Secondary",
	// "Success" or "Danger".
	ButtonStyle string `json:"button_style"`

	// Restricted requires a management role to open this type.
	Restricted bool `json:"is_restricted"`

	// DefaultPriority is the priority assigned to new tickets of this type.
	DefaultPriority Priority `json:"default_priority"`

	// FormFields is the ordered intake form.
	FormFields []FormField `json:"form_fields"`
}

// TicketsConfig is the deployment-level ticketing configuration, loaded from
// the JSON file pointed at by TICKETS_CONFIG_PATH. Guild setup snapshots the
// role sets and template into the per-guild config row.
type TicketsConfig struct {
	// Enabled toggles the whole tickets module.
	Enabled bool `json:"enabled"`

	// Types are the configured ticket types, in panel order.
	Types []TicketType `json:"ticket_types"`

	// Statuses are the configured non-terminal statuses, the first being the
	// initial status of new tickets. StatusClosed must not appear here.
	Statuses []TicketStatus `json:"ticket_statuses"`

	// SupportRoleIDs and ManagementRoleIDs are snapshotted into each guild's
	// config row at panel setup.
	SupportRoleIDs    []string `json:"support_role_ids"`
	ManagementRoleIDs []string `json:"management_role_ids"`

	// ChannelNamingTemplate overrides DefaultNamingTemplate when set.
	ChannelNamingTemplate string `json:"channel_naming_template"`

	// CloseConfirmationSeconds is the close-confirmation window in seconds.
	CloseConfirmationSeconds int `json:"close_confirmation_timeout_seconds"`
}

// TypeByID returns the ticket type with the given ID, or nil.
func (c *TicketsConfig) TypeByID(id string) *TicketType {
	for i := range c.Types {
		if c.Types[i].ID == id {
			return &c.Types[i]
		}
	}
	return nil
}

// StatusByName returns the configured status with the given name, or nil.
// The reserved terminal status is not part of the configured set.
func (c *TicketsConfig) StatusByName(name string) *TicketStatus {
	for i := range c.Statuses {
		if c.Statuses[i].Name == name {
			return &c.Statuses[i]
		}
	}
	return nil
}

// InitialStatus returns the status assigned to newly opened tickets.
func (c *TicketsConfig) InitialStatus() TicketStatus {
	if len(c.Statuses) == 0 {
		return TicketStatus{Name: "Open", Emoji: "\U0001F3AB"}
	}
	return c.Statuses[0]
}

// NamingTemplate returns the configured naming template or the default.
func (c *TicketsConfig) NamingTemplate() string {
	if c.ChannelNamingTemplate == "" {
		return DefaultNamingTemplate
	}
	return c.ChannelNamingTemplate
}

// Validate checks the configuration for contradictions that would otherwise
// only surface mid-operation.
func (c *TicketsConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Types))
	for _, typ := range c.Types {
		if typ.ID == "" {
			return fmt.Errorf("ticket type %q has no id", typ.Name)
		}
		if _, ok := seen[typ.ID]; ok {
			return fmt.Errorf("duplicate ticket type id %q", typ.ID)
		}
		seen[typ.ID] = struct{}{}

		if typ.DefaultPriority != "" && !typ.DefaultPriority.Valid() {
			return fmt.Errorf("ticket type %q has invalid default priority %q", typ.ID, typ.DefaultPriority)
		}
	}

	for _, s := range c.Statuses {
		if s.Name == StatusClosed {
			return fmt.Errorf("status %q is reserved for the close workflow", StatusClosed)
		}
	}

	if c.CloseConfirmationSeconds < 0 {
		return fmt.Errorf("close confirmation timeout must not be negative")
	}
	return nil
}
