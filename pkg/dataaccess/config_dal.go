package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wardenbot/warden/pkg/dataaccess/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const configDalName = "ticket_config_dal"

// configCollection returns the per-guild config collection name. The store
// offers no guild-scoping primitive, so guild namespacing is our own
// convention: one collection per guild, holding a single row.
func configCollection(guildID string) string {
	return "tickets_config_" + guildID
}

// ConfigDal is the data access layer for per-guild ticket configuration.
type ConfigDal interface {
	// GetGuildConfig gets a guild's ticket configuration. It returns
	// (nil, nil) when the guild has no configuration yet.
	GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildTicketConfig, error)

	// SaveGuildConfig upserts a guild's ticket configuration.
	SaveGuildConfig(ctx context.Context, cfg *entities.GuildTicketConfig) error
}

type configDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewConfigDal creates a new guild ticket configuration data access layer.
func NewConfigDal(logger *slog.Logger) ConfigDal {
	l := logger.With(slog.String(logging.KeyDal, configDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &configDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *configDal) GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildTicketConfig, error) {
	collection := d.client.Database(mongoDatabase).Collection(configCollection(guildID))

	monitoring.MongoTotalRequests.WithLabelValues(configDalName, "get_guild_config", mongoDatabase, "tickets_config").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(configDalName, "get_guild_config", mongoDatabase, "tickets_config"))
	defer t.ObserveDuration()

	cfg := new(entities.GuildTicketConfig)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild config: %w", err)
	}
	return cfg, nil
}

func (d *configDal) SaveGuildConfig(ctx context.Context, cfg *entities.GuildTicketConfig) error {
	collection := d.client.Database(mongoDatabase).Collection(configCollection(cfg.GuildID))

	monitoring.MongoTotalRequests.WithLabelValues(configDalName, "save_guild_config", mongoDatabase, "tickets_config").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(configDalName, "save_guild_config", mongoDatabase, "tickets_config"))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"guild_id": cfg.GuildID}, bson.M{"$set": cfg}, opts)
	if err != nil {
		return fmt.Errorf("error saving guild config: %w", err)
	}
	return nil
}
