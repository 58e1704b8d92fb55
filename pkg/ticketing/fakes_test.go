package ticketing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/entities"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	ID        string
	ChannelID string
	Data      *discordgo.MessageSend
}

// fakeSession is an in-memory Session. Channels and messages live in maps so
// tests can assert on exactly what the engine asked the platform to do.
type fakeSession struct {
	mu sync.Mutex

	channels map[string]*discordgo.Channel
	history  map[string][]*discordgo.Message

	sent    []sentMessage
	edits   []*discordgo.MessageEdit
	deleted []string

	nextChannel int
	nextMessage int

	createErr error
	sendErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		channels: make(map[string]*discordgo.Channel),
		history:  make(map[string][]*discordgo.Message),
	}
}

func (f *fakeSession) addChannel(id string, typ discordgo.ChannelType) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &discordgo.Channel{ID: id, Type: typ}
	f.channels[id] = ch
	return ch
}

func (f *fakeSession) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSession) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	return ch, nil
}

func (f *fakeSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextChannel++
	ch := &discordgo.Channel{
		ID:                   fmt.Sprintf("chan-%d", f.nextChannel),
		GuildID:              guildID,
		Name:                 data.Name,
		Type:                 data.Type,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *fakeSession) ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	if data.Name != "" {
		ch.Name = data.Name
	}
	return ch, nil
}

func (f *fakeSession) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	delete(f.channels, channelID)
	f.deleted = append(f.deleted, channelID)
	return ch, nil
}

func (f *fakeSession) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if m.ChannelID == channelID && m.ID == messageID {
			return &discordgo.Message{ID: m.ID, ChannelID: m.ChannelID}, nil
		}
	}
	return nil, fmt.Errorf("unknown message %s", messageID)
}

func (f *fakeSession) ChannelMessages(channelID string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.history[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextMessage++
	id := fmt.Sprintf("msg-%d", f.nextMessage)
	f.sent = append(f.sent, sentMessage{ID: id, ChannelID: channelID, Data: data})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return fmt.Errorf("unknown channel %s", channelID)
	}
	for _, ow := range ch.PermissionOverwrites {
		if ow.ID == targetID && ow.Type == targetType {
			ow.Allow = allow
			ow.Deny = deny
			return nil
		}
	}
	ch.PermissionOverwrites = append(ch.PermissionOverwrites, &discordgo.PermissionOverwrite{
		ID: targetID, Type: targetType, Allow: allow, Deny: deny,
	})
	return nil
}

func (f *fakeSession) ChannelPermissionDelete(channelID, targetID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return fmt.Errorf("unknown channel %s", channelID)
	}
	for i, ow := range ch.PermissionOverwrites {
		if ow.ID == targetID {
			ch.PermissionOverwrites = append(ch.PermissionOverwrites[:i], ch.PermissionOverwrites[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no overwrite for %s", targetID)
}

// fakeTicketDal is an in-memory TicketDal with the real matched semantics:
// updates only touch non-closed rows.
type fakeTicketDal struct {
	mu      sync.Mutex
	tickets []*entities.Ticket
	nextID  int

	insertErr error
}

func newFakeTicketDal() *fakeTicketDal {
	return &fakeTicketDal{}
}

func (d *fakeTicketDal) NextTicketID(_ context.Context, _ string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID, nil
}

func (d *fakeTicketDal) InsertTicket(_ context.Context, ticket *entities.Ticket) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.insertErr != nil {
		return d.insertErr
	}
	d.tickets = append(d.tickets, ticket.Clone())
	return nil
}

func (d *fakeTicketDal) GetOpenTicketByChannel(_ context.Context, guildID, channelID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.ChannelID == channelID && t.IsOpen() {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

func (d *fakeTicketDal) GetOpenTicketByCreator(_ context.Context, guildID, creatorID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.CreatorID == creatorID && t.IsOpen() {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

func (d *fakeTicketDal) ListOpenTickets(_ context.Context, guildID string) ([]*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*entities.Ticket
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.IsOpen() {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (d *fakeTicketDal) SetStatus(_ context.Context, guildID, channelID, status string) (bool, error) {
	return d.updateOpen(guildID, channelID, func(t *entities.Ticket) { t.Status = status }), nil
}

func (d *fakeTicketDal) SetPriority(_ context.Context, guildID, channelID string, priority entities.Priority) (bool, error) {
	return d.updateOpen(guildID, channelID, func(t *entities.Ticket) { t.Priority = priority }), nil
}

func (d *fakeTicketDal) SetClaimedBy(_ context.Context, guildID, channelID, claimedBy string) (bool, error) {
	return d.updateOpen(guildID, channelID, func(t *entities.Ticket) { t.ClaimedBy = claimedBy }), nil
}

func (d *fakeTicketDal) CloseTicket(_ context.Context, guildID, channelID string, closedAt time.Time) (bool, error) {
	return d.updateOpen(guildID, channelID, func(t *entities.Ticket) {
		t.Status = entities.StatusClosed
		t.ClosedAt = custom.NewDatetime(closedAt)
		t.ClaimedBy = ""
	}), nil
}

func (d *fakeTicketDal) updateOpen(guildID, channelID string, apply func(*entities.Ticket)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.GuildID == guildID && t.ChannelID == channelID && t.IsOpen() {
			apply(t)
			return true
		}
	}
	return false
}

func (d *fakeTicketDal) byChannel(channelID string) *entities.Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.ChannelID == channelID {
			return t.Clone()
		}
	}
	return nil
}

// fakeConfigDal is an in-memory ConfigDal.
type fakeConfigDal struct {
	mu      sync.Mutex
	configs map[string]*entities.GuildTicketConfig
}

func newFakeConfigDal() *fakeConfigDal {
	return &fakeConfigDal{configs: make(map[string]*entities.GuildTicketConfig)}
}

func (d *fakeConfigDal) GetGuildConfig(_ context.Context, guildID string) (*entities.GuildTicketConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg, ok := d.configs[guildID]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (d *fakeConfigDal) SaveGuildConfig(_ context.Context, cfg *entities.GuildTicketConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *cfg
	d.configs[cfg.GuildID] = &cp
	return nil
}
