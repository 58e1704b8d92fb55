package ticketing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/messages"
	"github.com/wardenbot/warden/pkg/ticketing/monitoring"
)

// maxButtonsPerRow is the platform cap on buttons per action row.
const maxButtonsPerRow = 5

// Result is the outcome of a public engine operation: a bounded user-facing
// message, plus an optional renderable payload.
type Result struct {
	// Message is the templated reply for the user.
	Message string

	// Embed is a renderable info payload, set by TicketInfo.
	Embed *discordgo.MessageEmbed

	// ChannelID references the relevant channel (e.g. the created ticket).
	ChannelID string

	// Pending is set when a close request was parked behind a confirmation
	// prompt rather than executed.
	Pending bool

	// Transcript reports whether a close produced a transcript.
	Transcript bool
}

// Engine is the ticket lifecycle engine. It exclusively owns mutation of
// ticket rows and the in-memory index; the store remains the authority for
// every commit decision.
type Engine struct {
	l       *slog.Logger
	s       Session
	cfg     *entities.TicketsConfig
	configs dataaccess.ConfigDal
	tickets dataaccess.TicketDal

	idx           *Index
	confirmations *Coordinator

	// locks serialises mutating operations by key: one key per ticket
	// channel, plus one per guild+creator so the duplicate check and the
	// insert in Create cannot interleave. The platform gives no
	// transactional guarantee across check-then-act sequences, so the
	// engine provides its own keyed mutual exclusion.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine creates a ticket engine. All collaborators are injected so the
// engine is testable and multiple independent instances can coexist.
func NewEngine(l *slog.Logger, s Session, cfg *entities.TicketsConfig, configs dataaccess.ConfigDal, tickets dataaccess.TicketDal) *Engine {
	window := time.Duration(cfg.CloseConfirmationSeconds) * time.Second
	if window <= 0 {
		window = entities.DefaultCloseConfirmationSeconds * time.Second
	}

	return &Engine{
		l:             l,
		s:             s,
		cfg:           cfg,
		configs:       configs,
		tickets:       tickets,
		idx:           NewIndex(),
		confirmations: NewCoordinator(l, s, window),
		locks:         make(map[string]*sync.Mutex),
	}
}

// Index returns the engine's in-memory ticket index. Readers must treat
// returned tickets as point-in-time snapshots.
func (e *Engine) Index() *Index {
	return e.idx
}

// Config returns the deployment-level tickets configuration.
func (e *Engine) Config() *entities.TicketsConfig {
	return e.cfg
}

// GuildConfig returns the guild's ticket configuration row, or nil when the
// guild has none yet.
func (e *Engine) GuildConfig(ctx context.Context, guildID string) (*entities.GuildTicketConfig, error) {
	return e.configs.GetGuildConfig(ctx, guildID)
}

// IsManagement reports whether the actor may perform management-only actions
// in the guild. Administrators always qualify.
func (e *Engine) IsManagement(ctx context.Context, guildID string, actor Actor) bool {
	if actor.Admin {
		return true
	}
	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil || gcfg == nil {
		return actor.HasAnyRole(e.cfg.ManagementRoleIDs)
	}
	return actor.HasAnyRole(gcfg.ManagementRoleIDs)
}

// IsSupport reports whether the actor holds a support role in the guild.
func (e *Engine) IsSupport(ctx context.Context, guildID string, actor Actor) bool {
	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil || gcfg == nil {
		return actor.HasAnyRole(e.cfg.SupportRoleIDs)
	}
	return actor.HasAnyRole(gcfg.SupportRoleIDs)
}

// lock acquires the mutex for the given key and returns its release func.
func (e *Engine) lock(key string) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[key]
	if !ok {
		mu = new(sync.Mutex)
		e.locks[key] = mu
	}
	e.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// lockChannel serialises operations on a ticket channel.
func (e *Engine) lockChannel(channelID string) func() {
	return e.lock("channel:" + channelID)
}

// lockCreator serialises ticket creation per guild and creator, keeping the
// one-live-ticket-per-creator check and the insert in one critical section.
func (e *Engine) lockCreator(guildID, creatorID string) func() {
	return e.lock("creator:" + guildID + ":" + creatorID)
}

// CanOpen checks the preconditions for opening a ticket of the given type:
// the type exists, restricted types require management, the guild is
// configured, and the creator has no other live ticket. Orphaned records
// (channel gone) are healed here as a side effect.
func (e *Engine) CanOpen(ctx context.Context, guildID string, actor Actor, typeID string) error {
	unlock := e.lockCreator(guildID, actor.ID)
	defer unlock()

	return e.canOpen(ctx, guildID, actor, typeID)
}

// canOpen is CanOpen without the creator lock; Create calls it with the lock
// already held so the duplicate check and the insert stay atomic.
func (e *Engine) canOpen(ctx context.Context, guildID string, actor Actor, typeID string) error {
	typ := e.cfg.TypeByID(typeID)
	if typ == nil {
		return ErrUnknownTicketType
	}

	if typ.Restricted && !e.IsManagement(ctx, guildID, actor) {
		return ErrAuthorizationDenied
	}

	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		return external("can_open", err)
	}
	if !gcfg.Configured() {
		return ErrConfigurationIncomplete
	}

	return e.checkExistingTicket(ctx, guildID, actor.ID)
}

// checkExistingTicket enforces the one-live-ticket-per-creator invariant.
// The store is consulted, not just the index, because the index is only a
// cache.
func (e *Engine) checkExistingTicket(ctx context.Context, guildID, creatorID string) error {
	existing, err := e.tickets.GetOpenTicketByCreator(ctx, guildID, creatorID)
	if err != nil {
		return external("check_existing_ticket", err)
	}
	if existing == nil {
		return nil
	}

	if _, err := e.s.Channel(existing.ChannelID); err == nil {
		return &AlreadyOpenError{ChannelID: existing.ChannelID}
	}

	// The channel is gone but the row is still open: heal the stale record
	// silently and let the creation proceed.
	e.closeStale(ctx, guildID, existing)
	return nil
}

// closeStale marks an orphaned ticket row closed and evicts it from the
// index. Idempotent against a concurrent explicit close.
func (e *Engine) closeStale(ctx context.Context, guildID string, t *entities.Ticket) {
	matched, err := e.tickets.CloseTicket(ctx, guildID, t.ChannelID, time.Now().UTC())
	if err != nil {
		e.l.Error("Error closing stale ticket record",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyChannelID, t.ChannelID),
			slog.Int(logging.KeyTicketID, t.ID),
			slog.String(logging.KeyError, err.Error()),
		)
		return
	}
	e.idx.Remove(t.ChannelID)
	if matched {
		e.l.Info("Healed orphaned ticket record",
			slog.String(logging.KeyGuildID, guildID),
			slog.String(logging.KeyChannelID, t.ChannelID),
			slog.Int(logging.KeyTicketID, t.ID),
		)
	}
}

// Create opens a ticket: provisions the private channel, inserts the store
// row, registers the index entry and posts the intake summary. The row is
// only inserted once the channel exists, so a provisioning failure leaves no
// record behind.
func (e *Engine) Create(ctx context.Context, guildID string, actor Actor, typeID string, answers []entities.FormAnswer) (*Result, error) {
	unlock := e.lockCreator(guildID, actor.ID)
	defer unlock()

	if err := e.canOpen(ctx, guildID, actor, typeID); err != nil {
		return nil, err
	}
	typ := e.cfg.TypeByID(typeID)

	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, external("create_ticket", err)
	}

	initial := e.cfg.InitialStatus()
	name := RenderChannelName(e.namingTemplate(gcfg),
		channelNameVars(initial.Emoji, typ.ID, actor.Username, actor.ID))

	channel, err := e.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Ticket opened by %s", actor.Username),
		ParentID:             gcfg.TicketCategoryID,
		PermissionOverwrites: ticketOverwrites(guildID, actor.ID, gcfg.SupportRoleIDs),
	})
	if err != nil {
		return nil, external("create_ticket_channel", err)
	}

	priority := typ.DefaultPriority
	if !priority.Valid() {
		priority = entities.PriorityMedium
	}

	id, err := e.tickets.NextTicketID(ctx, guildID)
	if err != nil {
		return nil, external("next_ticket_id", err)
	}

	ticket := &entities.Ticket{
		ID:          id,
		GuildID:     guildID,
		ChannelID:   channel.ID,
		CreatorID:   actor.ID,
		CreatorName: actor.Username,
		OpenedAt:    custom.NewDatetime(time.Now()),
		Status:      initial.Name,
		Priority:    priority,
		TypeID:      typ.ID,
		FormAnswers: answers,
	}
	if err := e.tickets.InsertTicket(ctx, ticket); err != nil {
		return nil, external("insert_ticket", err)
	}
	e.idx.Put(ticket)

	if _, err := e.s.ChannelMessageSendComplex(channel.ID, intakeSummary(ticket, typ, gcfg, initial)); err != nil {
		// The ticket exists either way; the summary is best effort.
		e.l.Warn("Error sending intake summary",
			slog.String(logging.KeyChannelID, channel.ID),
			slog.Int(logging.KeyTicketID, ticket.ID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	monitoring.TicketsOpened.WithLabelValues(guildID, typ.ID).Inc()
	e.l.Info("Ticket opened",
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyChannelID, channel.ID),
		slog.Int(logging.KeyTicketID, ticket.ID),
		slog.String("type", typ.ID),
	)

	return &Result{
		Message:   messages.Render(messages.TicketOpened, map[string]string{"channel": channelMention(channel.ID)}),
		ChannelID: channel.ID,
	}, nil
}

// SetStatus transitions the channel's ticket to a configured, non-terminal
// status and renames the channel to carry the new status emoji. The rename is
// skipped when the computed name is unchanged.
func (e *Engine) SetStatus(ctx context.Context, guildID, channelID, newStatus string, actor Actor) (*Result, error) {
	status := e.cfg.StatusByName(newStatus)
	if status == nil || newStatus == entities.StatusClosed {
		return nil, ErrInvalidStatus
	}

	unlock := e.lockChannel(channelID)
	defer unlock()

	ticket := e.idx.Get(channelID)
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}

	matched, err := e.tickets.SetStatus(ctx, guildID, channelID, status.Name)
	if err != nil {
		return nil, external("set_status", err)
	}
	if !matched {
		return nil, ErrNotATicketChannel
	}
	e.idx.Update(channelID, func(t *entities.Ticket) { t.Status = status.Name })

	e.renameForStatus(ctx, guildID, ticket, status)

	return &Result{
		Message: messages.Render(messages.TicketStatusSet, map[string]string{
			"status": status.Name,
			"actor":  userMention(actor.ID),
		}),
	}, nil
}

// renameForStatus re-derives the channel name from the naming template with
// the new status emoji. Rename failures are logged, not surfaced: the status
// transition has already committed.
func (e *Engine) renameForStatus(ctx context.Context, guildID string, ticket *entities.Ticket, status *entities.TicketStatus) {
	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		e.l.Warn("Error getting guild config for rename", slog.String(logging.KeyError, err.Error()))
		return
	}

	name := RenderChannelName(e.namingTemplate(gcfg),
		channelNameVars(status.Emoji, ticket.TypeID, ticket.CreatorName, ticket.CreatorID))

	channel, err := e.s.Channel(ticket.ChannelID)
	if err != nil {
		e.l.Warn("Error getting channel for rename",
			slog.String(logging.KeyChannelID, ticket.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
		return
	}
	if channel.Name == name {
		return
	}

	if _, err := e.s.ChannelEditComplex(ticket.ChannelID, &discordgo.ChannelEdit{Name: name}); err != nil {
		e.l.Warn("Error renaming ticket channel",
			slog.String(logging.KeyChannelID, ticket.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// SetPriority updates the channel's ticket priority. Store and index only;
// no channel rename.
func (e *Engine) SetPriority(ctx context.Context, guildID, channelID string, priority entities.Priority, actor Actor) (*Result, error) {
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	unlock := e.lockChannel(channelID)
	defer unlock()

	matched, err := e.tickets.SetPriority(ctx, guildID, channelID, priority)
	if err != nil {
		return nil, external("set_priority", err)
	}
	if !matched {
		return nil, ErrNotATicketChannel
	}
	e.idx.Update(channelID, func(t *entities.Ticket) { t.Priority = priority })

	return &Result{
		Message: messages.Render(messages.TicketPrioritySet, map[string]string{
			"priority": string(priority),
			"actor":    userMention(actor.ID),
		}),
	}, nil
}

// Claim marks the actor as handling the ticket. The claim is a marker, not
// an exclusivity lock, but a claimed ticket cannot be claimed again.
func (e *Engine) Claim(ctx context.Context, guildID, channelID string, actor Actor) (*Result, error) {
	unlock := e.lockChannel(channelID)
	defer unlock()

	ticket := e.idx.Get(channelID)
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}
	if ticket.ClaimedBy != "" {
		return nil, &AlreadyClaimedError{ClaimedBy: ticket.ClaimedBy}
	}

	matched, err := e.tickets.SetClaimedBy(ctx, guildID, channelID, actor.ID)
	if err != nil {
		return nil, external("claim", err)
	}
	if !matched {
		return nil, ErrNotATicketChannel
	}
	e.idx.Update(channelID, func(t *entities.Ticket) { t.ClaimedBy = actor.ID })

	return &Result{
		Message: messages.Render(messages.TicketClaimed, map[string]string{"actor": userMention(actor.ID)}),
	}, nil
}

// Unclaim clears the ticket's claimer.
func (e *Engine) Unclaim(ctx context.Context, guildID, channelID string, actor Actor) (*Result, error) {
	unlock := e.lockChannel(channelID)
	defer unlock()

	ticket := e.idx.Get(channelID)
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}
	if ticket.ClaimedBy == "" {
		return nil, ErrNotClaimed
	}

	matched, err := e.tickets.SetClaimedBy(ctx, guildID, channelID, "")
	if err != nil {
		return nil, external("unclaim", err)
	}
	if !matched {
		return nil, ErrNotATicketChannel
	}
	e.idx.Update(channelID, func(t *entities.Ticket) { t.ClaimedBy = "" })

	return &Result{
		Message: messages.Render(messages.TicketUnclaimed, map[string]string{"actor": userMention(actor.ID)}),
	}, nil
}

// RequestClose starts the close workflow. The ticket creator and management
// close immediately; everyone else gets a confirmation prompt that the
// creator or management must activate within the confirmation window.
func (e *Engine) RequestClose(ctx context.Context, guildID, channelID string, actor Actor, reason string) (*Result, error) {
	unlock := e.lockChannel(channelID)
	defer unlock()

	ticket := e.idx.Get(channelID)
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}

	if actor.ID == ticket.CreatorID || e.IsManagement(ctx, guildID, actor) {
		return e.close(ctx, guildID, channelID, actor.ID, actor.Username, reason)
	}

	if e.confirmations.Pending(channelID) {
		return nil, ErrConfirmationPending
	}

	prompt, err := e.s.ChannelMessageSendComplex(channelID, closePrompt(channelID, actor, ticket, reason))
	if err != nil {
		return nil, external("send_close_prompt", err)
	}

	if err := e.confirmations.Begin(channelID, prompt, actor, reason); err != nil {
		return nil, err
	}

	return &Result{Message: messages.TicketCloseRequested, Pending: true}, nil
}

// ConfirmClose handles an activation of a close-confirmation control. Only
// the ticket creator or management may confirm, and only on the live prompt
// message.
func (e *Engine) ConfirmClose(ctx context.Context, guildID, channelID, promptMessageID string, actor Actor) (*Result, error) {
	unlock := e.lockChannel(channelID)
	defer unlock()

	entry := e.confirmations.Peek(channelID)
	if entry == nil || entry.PromptMessageID != promptMessageID {
		return nil, ErrStaleConfirmation
	}

	ticket := e.idx.Get(channelID)
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}

	if actor.ID != ticket.CreatorID && !e.IsManagement(ctx, guildID, actor) {
		return nil, ErrAuthorizationDenied
	}

	entry, err := e.confirmations.Resolve(channelID, promptMessageID)
	if err != nil {
		return nil, err
	}

	return e.close(ctx, guildID, channelID, entry.CloserID, entry.CloserName, entry.Reason)
}

// close executes the destructive close: transcript, durable close, index
// eviction, channel deletion - in that order, so a crash mid-way leaves a
// recoverable (already closed) ticket rather than a lost one.
func (e *Engine) close(ctx context.Context, guildID, channelID, closerID, closerName, reason string) (*Result, error) {
	ticket, err := e.tickets.GetOpenTicketByChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, external("close_ticket", err)
	}
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}

	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, external("close_ticket", err)
	}

	closedAt := time.Now().UTC()
	transcriptSent := false
	if gcfg != nil && gcfg.TranscriptsChannelID != "" {
		if err := e.deliverTranscript(gcfg.TranscriptsChannelID, ticket, closerName, reason, closedAt); err != nil {
			return nil, external("deliver_transcript", err)
		}
		transcriptSent = true
	}

	matched, err := e.tickets.CloseTicket(ctx, guildID, channelID, closedAt)
	if err != nil {
		return nil, external("close_ticket", err)
	}
	if !matched {
		// A concurrent close (or orphan healing) won the race.
		return nil, ErrNotATicketChannel
	}
	e.idx.Remove(channelID)

	if _, err := e.s.ChannelDelete(channelID); err != nil {
		// The row is durably closed; the channel may already be gone.
		e.l.Warn("Error deleting ticket channel",
			slog.String(logging.KeyChannelID, channelID),
			slog.Int(logging.KeyTicketID, ticket.ID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	monitoring.TicketsClosed.WithLabelValues(guildID).Inc()
	e.l.Info("Ticket closed",
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyChannelID, channelID),
		slog.Int(logging.KeyTicketID, ticket.ID),
		slog.String("closer_id", closerID),
	)

	tmpl := messages.TicketClosedNoScript
	vars := map[string]string{
		"ticket_id": fmt.Sprintf("%d", ticket.ID),
		"closer":    userMention(closerID),
	}
	if transcriptSent {
		tmpl = messages.TicketClosed
		vars["transcript_channel"] = channelMention(gcfg.TranscriptsChannelID)
	}
	return &Result{Message: messages.Render(tmpl, vars), Transcript: transcriptSent}, nil
}

// deliverTranscript synthesises the conversation transcript and posts it to
// the transcripts channel as an attachment.
func (e *Engine) deliverTranscript(transcriptsChannelID string, ticket *entities.Ticket, closerName, reason string, closedAt time.Time) error {
	msgs, err := e.s.ChannelMessages(ticket.ChannelID, transcriptMessageLimit, "", "", "")
	if err != nil {
		return fmt.Errorf("error fetching ticket history: %w", err)
	}

	typeName := "Unknown"
	if typ := e.cfg.TypeByID(ticket.TypeID); typ != nil {
		typeName = typ.Name
	}

	content := renderTranscript(ticket, typeName, ticket.CreatorName, closerName, msgs, closedAt)

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Ticket #%d Closed (%s)", ticket.ID, typeName),
		Description: fmt.Sprintf("Created by %s | Closed by %s | Reason: %s", userMention(ticket.CreatorID), closerName, reason),
		Color:       0x57F287,
	}
	if ticket.ClaimedBy != "" {
		embed.Description += " | Claimed by " + userMention(ticket.ClaimedBy)
	}

	if _, err := e.s.ChannelMessageSendComplex(transcriptsChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{{
			Name:        transcriptFileName(ticket.ID),
			ContentType: "text/plain",
			Reader:      strings.NewReader(content),
		}},
	}); err != nil {
		return fmt.Errorf("error delivering transcript: %w", err)
	}
	return nil
}

// AddMember grants a user visibility of the ticket channel. The ticket row
// itself is untouched.
func (e *Engine) AddMember(ctx context.Context, guildID, channelID, userID string, actor Actor) (*Result, error) {
	if e.idx.Get(channelID) == nil {
		return nil, ErrNotATicketChannel
	}

	member, err := e.isChannelMember(channelID, userID)
	if err != nil {
		return nil, external("add_member", err)
	}
	if member {
		return nil, ErrAlreadyMember
	}

	allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)
	if err := e.s.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allow, 0); err != nil {
		return nil, external("add_member", err)
	}

	return &Result{
		Message: messages.Render(messages.TicketMemberAdded, map[string]string{
			"user":  userMention(userID),
			"actor": userMention(actor.ID),
		}),
	}, nil
}

// RemoveMember revokes a user's visibility of the ticket channel.
func (e *Engine) RemoveMember(ctx context.Context, guildID, channelID, userID string, actor Actor) (*Result, error) {
	if e.idx.Get(channelID) == nil {
		return nil, ErrNotATicketChannel
	}

	member, err := e.isChannelMember(channelID, userID)
	if err != nil {
		return nil, external("remove_member", err)
	}
	if !member {
		return nil, ErrNotMember
	}

	if err := e.s.ChannelPermissionDelete(channelID, userID); err != nil {
		return nil, external("remove_member", err)
	}

	return &Result{
		Message: messages.Render(messages.TicketMemberRemoved, map[string]string{
			"user":  userMention(userID),
			"actor": userMention(actor.ID),
		}),
	}, nil
}

// isChannelMember reports whether the user has an explicit view overwrite on
// the channel.
func (e *Engine) isChannelMember(channelID, userID string) (bool, error) {
	channel, err := e.s.Channel(channelID)
	if err != nil {
		return false, fmt.Errorf("error getting channel: %w", err)
	}

	for _, ow := range channel.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember && ow.ID == userID &&
			ow.Allow&discordgo.PermissionViewChannel != 0 {
			return true, nil
		}
	}
	return false, nil
}

// TicketInfo returns a renderable summary of the channel's ticket.
func (e *Engine) TicketInfo(ctx context.Context, guildID, channelID string) (*Result, error) {
	ticket, err := e.tickets.GetOpenTicketByChannel(ctx, guildID, channelID)
	if err != nil {
		return nil, external("ticket_info", err)
	}
	if ticket == nil {
		return nil, ErrNotATicketChannel
	}

	typeName := "Unknown"
	if typ := e.cfg.TypeByID(ticket.TypeID); typ != nil {
		typeName = typ.Name
	}

	color := 0x5865F2
	if status := e.cfg.StatusByName(ticket.Status); status != nil && status.Color != 0 {
		color = status.Color
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Ticket #%d", ticket.ID),
		Description: fmt.Sprintf("Created by %s\nType: %s\nStatus: %s\nPriority: %s\nOpened: %s",
			userMention(ticket.CreatorID), typeName, ticket.Status, ticket.Priority,
			ticket.OpenedAt.Time().Format(time.RFC1123)),
		Color: color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Ticket ID: %d | Type: %s", ticket.ID, typeName),
		},
	}
	if ticket.ClaimedBy != "" {
		embed.Description += "\nClaimed by " + userMention(ticket.ClaimedBy)
	}
	if len(ticket.FormAnswers) > 0 {
		var b strings.Builder
		for _, ans := range ticket.FormAnswers {
			fmt.Fprintf(&b, "**%s:**\n%s\n", ans.Label, ans.Value)
		}
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:  "Submission Details",
			Value: b.String(),
		}}
	}

	return &Result{Embed: embed}, nil
}

// SetupPanel validates the given channels, upserts the guild config (with
// role sets and naming template snapshotted from the deployment config) and
// renders the ticket panel. Re-running setup edits the existing panel message
// in place, so setup is idempotent.
func (e *Engine) SetupPanel(ctx context.Context, guildID, panelChannelID, categoryID, transcriptsChannelID string) (*Result, error) {
	if err := e.expectChannelType(panelChannelID, discordgo.ChannelTypeGuildText); err != nil {
		return nil, err
	}
	if err := e.expectChannelType(categoryID, discordgo.ChannelTypeGuildCategory); err != nil {
		return nil, err
	}
	if transcriptsChannelID != "" {
		if err := e.expectChannelType(transcriptsChannelID, discordgo.ChannelTypeGuildText); err != nil {
			return nil, err
		}
	}

	gcfg, err := e.configs.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, external("setup_panel", err)
	}
	if gcfg == nil {
		gcfg = &entities.GuildTicketConfig{GuildID: guildID}
	}
	gcfg.PanelChannelID = panelChannelID
	gcfg.TicketCategoryID = categoryID
	gcfg.TranscriptsChannelID = transcriptsChannelID
	gcfg.SupportRoleIDs = e.cfg.SupportRoleIDs
	gcfg.ManagementRoleIDs = e.cfg.ManagementRoleIDs
	gcfg.ChannelNamingTemplate = e.cfg.NamingTemplate()

	msg := e.editExistingPanel(gcfg)
	if msg == nil {
		msg, err = e.s.ChannelMessageSendComplex(panelChannelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{panelEmbed()},
			Components: panelComponents(e.cfg.Types),
		})
		if err != nil {
			return nil, external("send_panel", err)
		}
	}
	gcfg.PanelMessageID = msg.ID

	if err := e.configs.SaveGuildConfig(ctx, gcfg); err != nil {
		return nil, external("save_guild_config", err)
	}

	e.l.Info("Ticket panel set up",
		slog.String(logging.KeyGuildID, guildID),
		slog.String(logging.KeyChannelID, panelChannelID),
	)

	return &Result{
		Message: messages.Render(messages.PanelUpdated, map[string]string{"channel": channelMention(panelChannelID)}),
	}, nil
}

// editExistingPanel tries to edit the previously recorded panel message in
// place. It returns nil when there is none or it no longer exists, in which
// case the caller sends a fresh one.
func (e *Engine) editExistingPanel(gcfg *entities.GuildTicketConfig) *discordgo.Message {
	if gcfg.PanelMessageID == "" || gcfg.PanelChannelID == "" {
		return nil
	}

	msg, err := e.s.ChannelMessage(gcfg.PanelChannelID, gcfg.PanelMessageID)
	if err != nil || msg == nil {
		e.l.Warn("Existing panel message not found, sending a new one",
			slog.String(logging.KeyChannelID, gcfg.PanelChannelID),
		)
		return nil
	}

	embeds := []*discordgo.MessageEmbed{panelEmbed()}
	components := panelComponents(e.cfg.Types)
	edited, err := e.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    gcfg.PanelChannelID,
		ID:         gcfg.PanelMessageID,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		e.l.Warn("Error editing panel message, sending a new one",
			slog.String(logging.KeyChannelID, gcfg.PanelChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
		return nil
	}
	return edited
}

func (e *Engine) expectChannelType(channelID string, want discordgo.ChannelType) error {
	channel, err := e.s.Channel(channelID)
	if err != nil {
		return external("validate_channel", err)
	}
	if channel.Type != want {
		return ErrConfigurationIncomplete
	}
	return nil
}

// ReconcileGuild rebuilds the guild's slice of the in-memory index from the
// store. This is the sole mechanism that repopulates the index; it runs for
// every guild at startup.
func (e *Engine) ReconcileGuild(ctx context.Context, guildID string) error {
	tickets, err := e.tickets.ListOpenTickets(ctx, guildID)
	if err != nil {
		return external("reconcile_guild", err)
	}

	for _, t := range tickets {
		e.idx.Put(t)
	}

	e.l.Info("Reconciled active tickets",
		slog.String(logging.KeyGuildID, guildID),
		slog.Int("count", len(tickets)),
	)
	return nil
}

// HandleChannelDelete reacts to a ticket channel removed out-of-band: the
// row is marked closed and the index entry evicted, the same self-healing
// path Create uses for orphans.
func (e *Engine) HandleChannelDelete(ctx context.Context, guildID, channelID string) {
	unlock := e.lockChannel(channelID)
	defer unlock()

	ticket := e.idx.Get(channelID)
	if ticket == nil {
		return
	}
	e.closeStale(ctx, guildID, ticket)
}

// Shutdown releases the engine's timed resources. In-flight confirmations
// are dropped; they become re-initiable after a restart.
func (e *Engine) Shutdown() {
	e.confirmations.Shutdown()
}

func (e *Engine) namingTemplate(gcfg *entities.GuildTicketConfig) string {
	if gcfg != nil && gcfg.ChannelNamingTemplate != "" {
		return gcfg.ChannelNamingTemplate
	}
	return e.cfg.NamingTemplate()
}

// ticketOverwrites builds the permission overwrites for a new ticket channel:
// hidden from everyone, visible to the creator and the support roles.
func ticketOverwrites(guildID, creatorID string, supportRoleIDs []string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    creatorID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}
	for _, roleID := range supportRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
		})
	}
	return overwrites
}

// intakeSummary is the first message of a new ticket channel: support pings
// plus an embed of the intake answers.
func intakeSummary(ticket *entities.Ticket, typ *entities.TicketType, gcfg *entities.GuildTicketConfig, initial entities.TicketStatus) *discordgo.MessageSend {
	pings := make([]string, 0, len(gcfg.SupportRoleIDs))
	for _, roleID := range gcfg.SupportRoleIDs {
		pings = append(pings, roleMention(roleID))
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Ticket %d - %s", ticket.ID, typ.Name),
		Description: fmt.Sprintf("Hello %s, a staff member will be with you shortly.", userMention(ticket.CreatorID)),
		Color:       initial.Color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Ticket ID: %d | Type: %s", ticket.ID, typ.Name),
		},
	}
	for _, ans := range ticket.FormAnswers {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  ans.Label,
			Value: ans.Value,
		})
	}

	return &discordgo.MessageSend{
		Content: messages.Render(messages.TicketInitialMessage, map[string]string{
			"support_pings": strings.Join(pings, " "),
			"creator_ping":  userMention(ticket.CreatorID),
			"type_name":     typ.Name,
			"priority":      string(ticket.Priority),
		}),
		Embeds: []*discordgo.MessageEmbed{embed},
	}
}

// closePrompt is the interactive confirmation message posted into the ticket
// channel when a non-privileged closer requests a close.
func closePrompt(channelID string, closer Actor, ticket *entities.Ticket, reason string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: messages.Render(messages.TicketClosePrompt, map[string]string{
			"closer_ping":  userMention(closer.ID),
			"creator_ping": userMention(ticket.CreatorID),
			"reason":       reason,
		}),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Confirm Close",
						Style:    discordgo.DangerButton,
						CustomID: CloseConfirmButtonID(channelID),
					},
				},
			},
		},
	}
}

// panelEmbed is the standing panel message's embed.
func panelEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       messages.PanelTitle,
		Description: messages.PanelDescription,
		Color:       0x57F287,
	}
}

// panelComponents renders one button per ticket type, grouped into rows of
// at most five (the platform's per-row cap).
func panelComponents(types []entities.TicketType) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var current []discordgo.MessageComponent

	for _, typ := range types {
		label := typ.Name
		if typ.Emoji != "" {
			label = typ.Emoji + " " + typ.Name
		}
		button := discordgo.Button{
			Label:    label,
			Style:    buttonStyle(typ.ButtonStyle),
			CustomID: OpenTicketButtonID(typ.ID),
		}
		if len(current) == maxButtonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: current})
			current = nil
		}
		current = append(current, button)
	}
	if len(current) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: current})
	}
	return rows
}

func buttonStyle(name string) discordgo.ButtonStyle {
	switch name {
	case "Secondary":
		return discordgo.SecondaryButton
	case "Success":
		return discordgo.SuccessButton
	case "Danger":
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func userMention(userID string) string {
	return "<@" + userID + ">"
}

func roleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

func channelMention(channelID string) string {
	return "<#" + channelID + ">"
}
