package ticketing

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestRenderTranscript(t *testing.T) {
	opened := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	closed := opened.Add(2 * time.Hour)

	ticket := &entities.Ticket{
		ID:        7,
		Priority:  entities.PriorityHigh,
		ClaimedBy: "staff1",
		OpenedAt:  custom.NewDatetime(opened),
	}

	// Fetch order is newest-first; the transcript must read oldest-first.
	msgs := []*discordgo.Message{
		{Author: &discordgo.User{Username: "staff"}, Content: "On it.", Timestamp: opened.Add(time.Minute)},
		{Author: &discordgo.User{Username: "alice"}, Content: "It crashes on login.", Timestamp: opened},
	}

	got := renderTranscript(ticket, "Bug Report", "alice", "staff", msgs, closed)

	require.Contains(t, got, "Transcript of ticket #7 (Bug Report)")
	require.Contains(t, got, "Created by: alice")
	require.Contains(t, got, "Closed by: staff")
	require.Contains(t, got, "Claimed by: staff1")
	require.Contains(t, got, "Priority: High")

	first := "[alice - " + opened.Format(time.RFC1123) + "]: It crashes on login."
	second := "[staff - " + opened.Add(time.Minute).Format(time.RFC1123) + "]: On it."
	require.Less(t, strings.Index(got, first), strings.Index(got, second), "messages must be oldest-first")
}

func TestTranscriptFileName(t *testing.T) {
	require.Equal(t, "ticket-42-transcript.txt", transcriptFileName(42))
}
