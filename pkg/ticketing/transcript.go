package ticketing

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/entities"
)

// transcriptMessageLimit bounds a transcript to the most recent N messages of
// the ticket channel.
const transcriptMessageLimit = 100

// renderTranscript produces the plain-text export of a ticket's conversation.
// Messages are expected newest-first (the fetch order) and are written
// oldest-first.
func renderTranscript(t *entities.Ticket, typeName, creatorName, closerName string, msgs []*discordgo.Message, closedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Transcript of ticket #%d (%s)\n", t.ID, typeName)
	fmt.Fprintf(&b, "Created by: %s\n", creatorName)
	fmt.Fprintf(&b, "Closed by: %s\n", closerName)
	if t.ClaimedBy != "" {
		fmt.Fprintf(&b, "Claimed by: %s\n", t.ClaimedBy)
	}
	fmt.Fprintf(&b, "Priority: %s\n", t.Priority)
	fmt.Fprintf(&b, "Opened: %s\n", t.OpenedAt.Time().Format(time.RFC1123))
	fmt.Fprintf(&b, "Closed: %s\n\n", closedAt.UTC().Format(time.RFC1123))

	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		author := "unknown"
		if msg.Author != nil {
			author = msg.Author.Username
		}
		fmt.Fprintf(&b, "[%s - %s]: %s\n", author, msg.Timestamp.UTC().Format(time.RFC1123), msg.Content)
	}

	return b.String()
}

// transcriptFileName is the attachment name for a ticket's transcript.
func transcriptFileName(ticketID int) string {
	return fmt.Sprintf("ticket-%d-transcript.txt", ticketID)
}
