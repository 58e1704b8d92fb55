package ticketing

import (
	"testing"

	"github.com/wardenbot/warden/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestIndexPutGetRemove(t *testing.T) {
	x := NewIndex()
	require.Nil(t, x.Get("c1"))

	x.Put(&entities.Ticket{ID: 1, GuildID: "g1", ChannelID: "c1", CreatorID: "u1", Status: "Open"})
	require.Equal(t, 1, x.Len())

	got := x.Get("c1")
	require.NotNil(t, got)
	require.Equal(t, 1, got.ID)

	require.True(t, x.Remove("c1"))
	require.False(t, x.Remove("c1"))
	require.Nil(t, x.Get("c1"))
}

func TestIndexByCreator(t *testing.T) {
	x := NewIndex()
	x.Put(&entities.Ticket{ID: 1, GuildID: "g1", ChannelID: "c1", CreatorID: "u1"})
	x.Put(&entities.Ticket{ID: 2, GuildID: "g2", ChannelID: "c2", CreatorID: "u1"})

	got := x.ByCreator("g2", "u1")
	require.NotNil(t, got)
	require.Equal(t, 2, got.ID)

	require.Nil(t, x.ByCreator("g1", "u2"))
}

func TestIndexReturnsSnapshots(t *testing.T) {
	x := NewIndex()
	x.Put(&entities.Ticket{ID: 1, ChannelID: "c1", Status: "Open"})

	// Mutating a returned snapshot must not affect the indexed entry.
	got := x.Get("c1")
	got.Status = "Escalated"
	require.Equal(t, "Open", x.Get("c1").Status)

	// Updates go through Update, the engine's pairing point with the store.
	x.Update("c1", func(tk *entities.Ticket) { tk.Status = "Escalated" })
	require.Equal(t, "Escalated", x.Get("c1").Status)
}
