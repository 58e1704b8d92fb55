package ticketing

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/messages"
	"github.com/wardenbot/warden/pkg/ticketing/monitoring"
)

// PendingClose is an in-flight close confirmation for a channel. Entries are
// in-memory only: an in-flight confirmation is simply re-initiable after a
// restart.
type PendingClose struct {
	// ChannelID is the ticket channel awaiting confirmation.
	ChannelID string

	// PromptMessageID identifies the prompt message; confirmations arriving
	// from any other message are stale and rejected.
	PromptMessageID string

	// CloserID is the user that initiated the close. The eventual close runs
	// on their behalf even though someone else confirms it.
	CloserID string

	// CloserName is the initiator's username, kept for the transcript.
	CloserName string

	// Reason is the free-text close reason given by the initiator.
	Reason string

	timer *time.Timer
}

// Coordinator manages time-bounded close confirmations, one at most per
// channel. The platform offers no transactional guarantee across the
// check-then-act of "is a confirmation already pending", so all state
// transitions happen under the coordinator's own lock.
type Coordinator struct {
	mu      sync.Mutex
	l       *slog.Logger
	s       Session
	window  time.Duration
	entries map[string]*PendingClose
}

// NewCoordinator creates a coordinator with the given confirmation window.
func NewCoordinator(l *slog.Logger, s Session, window time.Duration) *Coordinator {
	return &Coordinator{
		l:       l,
		s:       s,
		window:  window,
		entries: make(map[string]*PendingClose),
	}
}

// Begin records a pending confirmation for the channel, anchored to the
// prompt message, and arms its timeout. A second request for a channel
// already pending is rejected with ErrConfirmationPending and leaves the
// existing entry untouched.
func (c *Coordinator) Begin(channelID string, prompt *discordgo.Message, closer Actor, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[channelID]; ok {
		monitoring.CloseConfirmations.WithLabelValues(monitoring.OutcomeSuperseded).Inc()
		return ErrConfirmationPending
	}

	entry := &PendingClose{
		ChannelID:       channelID,
		PromptMessageID: prompt.ID,
		CloserID:        closer.ID,
		CloserName:      closer.Username,
		Reason:          reason,
	}
	entry.timer = time.AfterFunc(c.window, func() {
		c.expire(channelID, entry)
	})
	c.entries[channelID] = entry
	monitoring.CloseConfirmations.WithLabelValues(monitoring.OutcomePending).Inc()
	return nil
}

// Resolve consumes the channel's pending confirmation if promptMessageID
// matches its prompt. The message-identity check prevents acting on a stale
// or duplicate prompt.
func (c *Coordinator) Resolve(channelID, promptMessageID string) (*PendingClose, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[channelID]
	if !ok || entry.PromptMessageID != promptMessageID {
		return nil, ErrStaleConfirmation
	}

	entry.timer.Stop()
	delete(c.entries, channelID)
	monitoring.CloseConfirmations.WithLabelValues(monitoring.OutcomeConfirmed).Inc()
	return entry, nil
}

// Peek returns a copy of the channel's pending confirmation without
// consuming it, or nil. Authorization checks happen on the copy so an
// unauthorized activation leaves the entry armed.
func (c *Coordinator) Peek(channelID string) *PendingClose {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[channelID]
	if !ok {
		return nil
	}
	cp := *entry
	cp.timer = nil
	return &cp
}

// Pending reports whether the channel has a live confirmation.
func (c *Coordinator) Pending(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[channelID]
	return ok
}

// expire is the timer path. The timer firing is authoritative for state
// cleanup: the entry is removed even if the prompt edit fails.
func (c *Coordinator) expire(channelID string, entry *PendingClose) {
	c.mu.Lock()
	if c.entries[channelID] != entry {
		// Resolved or superseded between the timer firing and us acquiring
		// the lock.
		c.mu.Unlock()
		return
	}
	delete(c.entries, channelID)
	c.mu.Unlock()

	monitoring.CloseConfirmations.WithLabelValues(monitoring.OutcomeTimedOut).Inc()

	content := messages.TicketCloseTimedOut
	components := make([]discordgo.MessageComponent, 0)
	if _, err := c.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         entry.PromptMessageID,
		Content:    &content,
		Components: &components,
	}); err != nil {
		c.l.Warn("Could not edit expired close confirmation prompt",
			slog.String(logging.KeyChannelID, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// Shutdown cancels every pending confirmation and stops its timer, so no
// timer acts on an entry after the module has stopped.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for channelID, entry := range c.entries {
		entry.timer.Stop()
		delete(c.entries, channelID)
	}
}
