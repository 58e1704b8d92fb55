package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketsOpened is the total number of tickets opened.
	TicketsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_opened_total",
			Help: "Total number of tickets opened",
		},
		[]string{"guild_id", "type"},
	)

	// TicketsClosed is the total number of tickets closed.
	TicketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_closed_total",
			Help: "Total number of tickets closed",
		},
		[]string{"guild_id"},
	)

	// CloseConfirmations counts close-confirmation outcomes.
	CloseConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_close_confirmations_total",
			Help: "Close confirmation outcomes",
		},
		[]string{"outcome"},
	)
)

// Close-confirmation outcome label values.
const (
	OutcomePending    = "pending"
	OutcomeConfirmed  = "confirmed"
	OutcomeTimedOut   = "timed_out"
	OutcomeSuperseded = "superseded"
)
