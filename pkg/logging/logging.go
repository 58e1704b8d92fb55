package logging

import (
	"io"
	"log/slog"
	"os"
)

const (
	// KeyError is the structured log key for error messages.
	KeyError = "err"

	// KeyDal is the structured log key for the data access layer name.
	KeyDal = "dal"

	// KeyGuildID is the structured log key for guild identifiers.
	KeyGuildID = "guild_id"

	// KeyChannelID is the structured log key for channel identifiers.
	KeyChannelID = "channel_id"

	// KeyTicketID is the structured log key for ticket identifiers.
	KeyTicketID = "ticket_id"

	// KeyOperation is the structured log key for the engine operation name.
	KeyOperation = "operation"

	// KeySignal is the structured log key for OS signals.
	KeySignal = "signal"
)

// Name is the application name attached to every log line.
type Name string

// Config is the logger configuration.
type Config struct {
	name  Name
	level slog.Level
	w     io.Writer
}

// NewConfig creates a logger configuration with the default level and output.
func NewConfig(name Name) *Config {
	return &Config{
		name:  name,
		level: slog.LevelDebug,
		w:     os.Stdout,
	}
}

// CommonLogger creates the standard application logger from the given config.
func CommonLogger(c *Config) (*slog.Logger, error) {
	h := slog.NewJSONHandler(c.w, &slog.HandlerOptions{
		Level: c.level,
	})
	return slog.New(h).With(slog.String("app", string(c.name))), nil
}
