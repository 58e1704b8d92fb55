package messages

import "strings"

// ErrUserErrorProcessing is the generic reply for failures that must not leak
// internal detail to the user.
const ErrUserErrorProcessing = "An error occurred while processing your request. Please try again later."

// User-facing ticket message templates. Placeholders are substituted with
// Render; every template is bounded, a failed operation still produces one.
const (
	TicketOpened          = "Your ticket has been opened: {channel}."
	TicketAlreadyOpen     = "You already have an open ticket: {channel}."
	TicketNoPermission    = "You do not have permission to do that."
	TicketNotTicketChan   = "This is not an open ticket channel."
	TicketNotConfigured   = "The ticket system has not been fully configured for this server. Please contact an administrator."
	TicketUnknownType     = "That ticket type no longer exists. Please contact an administrator."
	TicketRateLimited     = "You are opening tickets too quickly. Please wait a moment and try again."
	TicketInitialMessage  = "{support_pings} {creator_ping} a **{type_name}** ticket (priority **{priority}**) has been opened."
	TicketStatusSet       = "Ticket status set to **{status}** by {actor}."
	TicketStatusInvalid   = "That is not a valid ticket status."
	TicketPrioritySet     = "Ticket priority set to **{priority}** by {actor}."
	TicketPriorityInvalid = "Priority must be one of Low, Medium, High or Critical."
	TicketClaimed         = "Ticket claimed by {actor}."
	TicketAlreadyClaimed  = "This ticket is already claimed by <@{claimer}>."
	TicketUnclaimed       = "Ticket unclaimed by {actor}."
	TicketNotClaimed      = "This ticket is not claimed."
	TicketMemberAdded     = "{user} has been added to the ticket by {actor}."
	TicketMemberRemoved   = "{user} has been removed from the ticket by {actor}."
	TicketAlreadyMember   = "{user} can already see this ticket."
	TicketNotMember       = "{user} cannot see this ticket."
	TicketClosed          = "Ticket #{ticket_id} closed by {closer}. A transcript has been saved to {transcript_channel}."
	TicketClosedNoScript  = "Ticket #{ticket_id} closed by {closer}."
	TicketClosePrompt     = "{closer_ping} wants to close this ticket ({reason}). {creator_ping} or a member of the management team must confirm."
	TicketCloseRequested  = "A close confirmation has been posted. The ticket creator or a member of the management team must confirm it."
	TicketClosePending    = "A close confirmation is already pending for this ticket."
	TicketCloseTimedOut   = "The close request timed out without confirmation."
	TicketCloseStale      = "This close request is no longer valid or has timed out."
	PanelUpdated          = "Ticket panel has been set up in {channel}."
	PanelTitle            = "Support Tickets"
	PanelDescription      = "Need help? Pick the ticket type that fits and press its button below."
)

// Render substitutes {key} placeholders in tmpl with the supplied values.
// Unknown placeholders are left untouched, so a template never fails.
func Render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
