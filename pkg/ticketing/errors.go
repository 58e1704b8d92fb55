package ticketing

import (
	"errors"
	"fmt"
)

// Sentinel errors for the outcomes every public engine operation can resolve
// locally into a user-facing reply. External (store/platform) failures are
// wrapped in ExternalError instead and never shown verbatim to users.
var (
	// ErrNotATicketChannel means no live ticket is indexed for the channel.
	ErrNotATicketChannel = errors.New("no open ticket for this channel")

	// ErrAuthorizationDenied means a role or ownership check failed.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrInvalidStatus means the status is outside the configured set, or is
	// the reserved terminal status.
	ErrInvalidStatus = errors.New("invalid ticket status")

	// ErrInvalidPriority means the priority is outside the allowed set.
	ErrInvalidPriority = errors.New("invalid ticket priority")

	// ErrNotClaimed means the ticket has no claimer to remove.
	ErrNotClaimed = errors.New("ticket is not claimed")

	// ErrAlreadyMember means the user can already see the ticket channel.
	ErrAlreadyMember = errors.New("user is already a ticket member")

	// ErrNotMember means the user cannot see the ticket channel.
	ErrNotMember = errors.New("user is not a ticket member")

	// ErrConfigurationIncomplete means the guild has no panel/category
	// configured yet.
	ErrConfigurationIncomplete = errors.New("ticket system not configured")

	// ErrUnknownTicketType means the submitted ticket type does not exist.
	ErrUnknownTicketType = errors.New("unknown ticket type")

	// ErrConfirmationPending means a close confirmation is already pending
	// for the channel.
	ErrConfirmationPending = errors.New("close confirmation already pending")

	// ErrStaleConfirmation means a confirmation control was activated for a
	// prompt that is no longer the channel's live confirmation.
	ErrStaleConfirmation = errors.New("close confirmation no longer valid")
)

// AlreadyOpenError is returned when a creator already has a non-closed ticket
// in the guild. It carries the existing ticket's channel for the reply.
type AlreadyOpenError struct {
	ChannelID string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("creator already has an open ticket in channel %s", e.ChannelID)
}

// AlreadyClaimedError is returned when claiming a ticket that already has a
// claimer. It carries the current claimer for the reply.
type AlreadyClaimedError struct {
	ClaimedBy string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("ticket already claimed by %s", e.ClaimedBy)
}

// ExternalError wraps a store or platform failure, tagged with the engine
// operation it interrupted.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: external operation failed: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// external wraps err as an ExternalError for operation op.
func external(op string, err error) error {
	return &ExternalError{Op: op, Err: err}
}
