package ticketing

import (
	"sync"

	"github.com/wardenbot/warden/pkg/entities"
)

// Index is the in-memory cache of active tickets, keyed by channel ID. It is
// rebuilt from the store at startup and must never be the sole source of
// truth for a commit decision: every mutation here is paired with a store
// write by the engine, which is the only writer.
type Index struct {
	mu        sync.RWMutex
	byChannel map[string]*entities.Ticket
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		byChannel: make(map[string]*entities.Ticket),
	}
}

// Get returns a snapshot of the active ticket for a channel, or nil.
func (x *Index) Get(channelID string) *entities.Ticket {
	x.mu.RLock()
	defer x.mu.RUnlock()

	t, ok := x.byChannel[channelID]
	if !ok {
		return nil
	}
	return t.Clone()
}

// ByCreator returns a snapshot of the creator's active ticket in the guild,
// or nil.
func (x *Index) ByCreator(guildID, creatorID string) *entities.Ticket {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, t := range x.byChannel {
		if t.GuildID == guildID && t.CreatorID == creatorID {
			return t.Clone()
		}
	}
	return nil
}

// Put stores a snapshot of the ticket under its channel ID.
func (x *Index) Put(t *entities.Ticket) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byChannel[t.ChannelID] = t.Clone()
}

// Remove evicts the channel's entry, reporting whether one existed.
func (x *Index) Remove(channelID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, ok := x.byChannel[channelID]
	delete(x.byChannel, channelID)
	return ok
}

// Update applies fn to the channel's entry, if present.
func (x *Index) Update(channelID string, fn func(t *entities.Ticket)) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if t, ok := x.byChannel[channelID]; ok {
		fn(t)
	}
}

// Len returns the number of indexed tickets.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byChannel)
}
