package ticketing

import "strings"

// Component custom-ID prefixes. The interaction adapter routes component and
// modal activations to the engine by these prefixes; the suffix carries the
// routing argument.
const (
	openTicketButtonPrefix   = "open_ticket_button_"
	ticketModalPrefix        = "ticket_modal_"
	closeConfirmButtonPrefix = "close_ticket_confirm_"
)

// OpenTicketButtonID is the custom ID of a panel button for the ticket type.
func OpenTicketButtonID(typeID string) string {
	return openTicketButtonPrefix + typeID
}

// ParseOpenTicketButtonID extracts the type ID from a panel button custom ID.
func ParseOpenTicketButtonID(customID string) (string, bool) {
	return parseSuffix(customID, openTicketButtonPrefix)
}

// TicketModalID is the custom ID of the intake modal for the ticket type.
func TicketModalID(typeID string) string {
	return ticketModalPrefix + typeID
}

// ParseTicketModalID extracts the type ID from an intake modal custom ID.
func ParseTicketModalID(customID string) (string, bool) {
	return parseSuffix(customID, ticketModalPrefix)
}

// CloseConfirmButtonID is the custom ID of a close-confirmation button. The
// channel ID in the suffix lets the handler detect a prompt that was somehow
// re-posted into another channel.
func CloseConfirmButtonID(channelID string) string {
	return closeConfirmButtonPrefix + channelID
}

// ParseCloseConfirmButtonID extracts the channel ID from a close-confirmation
// button custom ID.
func ParseCloseConfirmButtonID(customID string) (string, bool) {
	return parseSuffix(customID, closeConfirmButtonPrefix)
}

func parseSuffix(customID, prefix string) (string, bool) {
	if !strings.HasPrefix(customID, prefix) {
		return "", false
	}
	suffix := strings.TrimPrefix(customID, prefix)
	if suffix == "" {
		return "", false
	}
	return suffix, true
}
