package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/dataaccess/connection"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/joho/godotenv"
)

const (
	// AppName is the name of the application.
	AppName = "warden"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvTicketsConfigPath is the environment variable for the path to the
	// tickets configuration file.
	EnvTicketsConfigPath = `TICKETS_CONFIG_PATH`
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// MongoUri is the URI for the MongoDB database.
	MongoUri string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string

	// TicketsConfigPath is the path to the tickets configuration file.
	TicketsConfigPath string

	// TicketsConfig is the loaded tickets configuration.
	TicketsConfig *entities.TicketsConfig
)

func parseConfig(l *slog.Logger) {
	// A local .env file is optional; real deployments set the environment
	// directly.
	if err := godotenv.Load(); err == nil {
		l.Debug("Loaded environment from .env file")
	}

	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		l.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		l.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envMongoUri := os.Getenv(EnvMongoUri); envMongoUri != "" {
		l.Debug("Found MongoDB URI in environment", slog.String("key", EnvMongoUri))
		MongoUri = envMongoUri
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		l.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"
		l.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if envCfgPath := os.Getenv(EnvTicketsConfigPath); envCfgPath != "" {
		l.Debug("Found tickets config path in environment", slog.String("key", EnvTicketsConfigPath))
		TicketsConfigPath = envCfgPath
	}

	if BotToken == "" ||
		ApplicationId == "" ||
		MongoUri == "" ||
		TicketsConfigPath == "" {

		l.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
		os.Exit(1)
	}

	l.Debug("All required environment variables have been provided")
	loadTicketsConfig(l)
	connectMongo(l)
}

func loadTicketsConfig(l *slog.Logger) {
	f, err := os.Open(TicketsConfigPath)
	if err != nil {
		l.Error("Error opening tickets config file", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	cfg := new(entities.TicketsConfig)
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		l.Error("Error decoding tickets config file", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		l.Error("Invalid tickets configuration", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
	if !cfg.Enabled {
		l.Error("Tickets are disabled in the configuration", slog.String(logging.KeyError, "tickets disabled"))
		os.Exit(1)
	}

	TicketsConfig = cfg
	l.Debug("Loaded tickets configuration",
		slog.Int("types", len(cfg.Types)),
		slog.Int("statuses", len(cfg.Statuses)),
	)
}

func connectMongo(l *slog.Logger) {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = MongoUri

	db, err := mongoConn.Connect()
	if err != nil {
		l.Error("Error connecting to mongo", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	} else if db == nil {
		l.Error("MongoDB came back nil", slog.String(logging.KeyError, "MongoDB came back nil"))
		os.Exit(1)
	}

	dataaccess.MongoDB = db
	l.Debug("Connected to MongoDB", slog.String("key", EnvMongoUri))
}
