package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wardenbot/warden/pkg/custom"
	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

// ticketCollection returns the per-guild active-tickets collection name.
func ticketCollection(guildID string) string {
	return "tickets_active_" + guildID
}

// counterCollection holds one sequence document per guild, used to assign
// monotonic ticket IDs.
const counterCollection = "tickets_counters"

// TicketDal is the data access layer for ticket rows. The store is the
// authority for every commit decision; the in-memory index is only a cache
// over it.
type TicketDal interface {
	// NextTicketID reserves and returns the next monotonic ticket ID for the
	// guild.
	NextTicketID(ctx context.Context, guildID string) (int, error)

	// InsertTicket inserts a new ticket row.
	InsertTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetOpenTicketByChannel gets the non-closed ticket for a channel.
	// It returns (nil, nil) when there is none.
	GetOpenTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error)

	// GetOpenTicketByCreator gets a creator's non-closed ticket in the guild.
	// It returns (nil, nil) when there is none.
	GetOpenTicketByCreator(ctx context.Context, guildID, creatorID string) (*entities.Ticket, error)

	// ListOpenTickets lists every non-closed ticket in the guild.
	ListOpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error)

	// SetStatus updates a non-closed ticket's status. It reports whether a
	// row matched.
	SetStatus(ctx context.Context, guildID, channelID, status string) (bool, error)

	// SetPriority updates a non-closed ticket's priority. It reports whether
	// a row matched.
	SetPriority(ctx context.Context, guildID, channelID string, priority entities.Priority) (bool, error)

	// SetClaimedBy updates a non-closed ticket's claimer (empty to unclaim).
	// It reports whether a row matched.
	SetClaimedBy(ctx context.Context, guildID, channelID, claimedBy string) (bool, error)

	// CloseTicket marks the channel's ticket closed, setting closed-at and
	// clearing the claimer. It reports whether a non-closed row matched, so
	// racing closers resolve to one winner and clean no-ops.
	CloseTicket(ctx context.Context, guildID, channelID string, closedAt time.Time) (bool, error)
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(logger *slog.Logger) TicketDal {
	l := logger.With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:      l,
		client: MongoDB,
	}
}

// openFilter matches the channel's non-closed row. At most one exists per
// channel.
func openFilter(channelID string) bson.M {
	return bson.M{
		"channel_id": channelID,
		"status":     bson.M{"$ne": entities.StatusClosed},
	}
}

func (d *ticketDal) NextTicketID(ctx context.Context, guildID string) (int, error) {
	collection := d.client.Database(mongoDatabase).Collection(counterCollection)

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "next_ticket_id", mongoDatabase, counterCollection).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "next_ticket_id", mongoDatabase, counterCollection))
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		GuildID string `bson:"guild_id"`
		Seq     int    `bson:"seq"`
	}
	err := collection.FindOneAndUpdate(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("error reserving ticket id: %w", err)
	}
	return counter.Seq, nil
}

func (d *ticketDal) InsertTicket(ctx context.Context, ticket *entities.Ticket) error {
	collection := d.client.Database(mongoDatabase).Collection(ticketCollection(ticket.GuildID))

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "insert_ticket", mongoDatabase, "tickets_active").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "insert_ticket", mongoDatabase, "tickets_active"))
	defer t.ObserveDuration()

	if _, err := collection.InsertOne(ctx, ticket); err != nil {
		return fmt.Errorf("error inserting ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) GetOpenTicketByChannel(ctx context.Context, guildID, channelID string) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(ticketCollection(guildID))

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_open_by_channel", mongoDatabase, "tickets_active").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_open_by_channel", mongoDatabase, "tickets_active"))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, openFilter(channelID)).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) GetOpenTicketByCreator(ctx context.Context, guildID, creatorID string) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(ticketCollection(guildID))

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_open_by_creator", mongoDatabase, "tickets_active").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_open_by_creator", mongoDatabase, "tickets_active"))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{
		"creator_id": creatorID,
		"status":     bson.M{"$ne": entities.StatusClosed},
	}).Decode(ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) ListOpenTickets(ctx context.Context, guildID string) ([]*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(ticketCollection(guildID))

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "list_open_tickets", mongoDatabase, "tickets_active").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "list_open_tickets", mongoDatabase, "tickets_active"))
	defer t.ObserveDuration()

	cur, err := collection.Find(ctx, bson.M{"status": bson.M{"$ne": entities.StatusClosed}})
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}

	var tickets []*entities.Ticket
	if err := cur.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}

func (d *ticketDal) SetStatus(ctx context.Context, guildID, channelID, status string) (bool, error) {
	return d.updateOpen(ctx, guildID, channelID, "set_status", bson.M{"status": status})
}

func (d *ticketDal) SetPriority(ctx context.Context, guildID, channelID string, priority entities.Priority) (bool, error) {
	return d.updateOpen(ctx, guildID, channelID, "set_priority", bson.M{"priority": priority})
}

func (d *ticketDal) SetClaimedBy(ctx context.Context, guildID, channelID, claimedBy string) (bool, error) {
	return d.updateOpen(ctx, guildID, channelID, "set_claimed_by", bson.M{"claimed_by": claimedBy})
}

func (d *ticketDal) CloseTicket(ctx context.Context, guildID, channelID string, closedAt time.Time) (bool, error) {
	return d.updateOpen(ctx, guildID, channelID, "close_ticket", bson.M{
		"status":     entities.StatusClosed,
		"closed_at":  custom.NewDatetime(closedAt),
		"claimed_by": "",
	})
}

// updateOpen applies a $set to the channel's non-closed row. A zero matched
// count means the channel has no live ticket (or another closer won a race).
func (d *ticketDal) updateOpen(ctx context.Context, guildID, channelID, query string, set bson.M) (bool, error) {
	collection := d.client.Database(mongoDatabase).Collection(ticketCollection(guildID))

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, query, mongoDatabase, "tickets_active").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, query, mongoDatabase, "tickets_active"))
	defer t.ObserveDuration()

	res, err := collection.UpdateOne(ctx, openFilter(channelID), bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("error updating ticket: %w", err)
	}
	return res.MatchedCount > 0, nil
}
