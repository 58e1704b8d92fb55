package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/request"
	"github.com/wardenbot/warden/pkg/ticketing"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for health check.
	PathHealth = "/health"
)

// IApp is the interface for the application.
type IApp interface {
	// Session returns the discord session.
	Session() *discordgo.Session

	// Log returns the logger.
	Log() *slog.Logger

	// Engine returns the ticket lifecycle engine.
	Engine() *ticketing.Engine

	// OpenTicketLimiter returns the user's ticket-open rate limiter.
	OpenTicketLimiter(userID string) *rate.Limiter
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// engine is the ticket lifecycle engine.
	engine *ticketing.Engine

	// limiters are the per-user ticket-open rate limiters.
	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger:   l,
		r:        r,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String(logging.KeySignal, sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	// Drop in-flight close confirmations; they are re-initiable after a
	// restart.
	a.engine.Shutdown()

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsAllWithoutPrivileged

	a.s = dg

	// The engine needs the session and the store, so it is built here rather
	// than wired at process start.
	a.engine = ticketing.NewEngine(
		a.Logger,
		a.s,
		TicketsConfig,
		dataaccess.NewConfigDal(a.Logger),
		dataaccess.NewTicketDal(a.Logger),
	)
	return nil
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "", false)
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild. Also fires once per guild on startup, which is what
	// drives index reconciliation.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Ticket channels removed out-of-band.
	a.s.AddHandler(channelDeleteHandler(a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash controllers
		map[string]slashCommandController{
			TicketCmdName:      ticketCmdController,
			AdminTicketCmdName: adminCmdController,
		}))
	return nil
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		// Register the ticket command.
		if _, err := a.Session().ApplicationCommandCreate(ApplicationId, g.ID, ticketCmd); err != nil {
			return fmt.Errorf("error creating ticket command for guild %s: %w", g.ID, err)
		}

		// Register the admin command.
		if _, err := a.Session().ApplicationCommandCreate(ApplicationId, g.ID, adminCmd); err != nil {
			return fmt.Errorf("error creating admin command for guild %s: %w", g.ID, err)
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Delete slash commands for each guild.
	for _, guild := range guilds {
		cmds, err := a.s.ApplicationCommands(ApplicationId, guild.ID)
		if err != nil {
			return fmt.Errorf("error listing commands for guild %s: %w", guild.ID, err)
		}
		for _, cmd := range cmds {
			if cmd.Name != TicketCmdName && cmd.Name != AdminTicketCmdName {
				continue
			}
			if err := a.s.ApplicationCommandDelete(ApplicationId, guild.ID, cmd.ID); err != nil {
				return fmt.Errorf("error deleting command %s for guild %s: %w", cmd.Name, guild.ID, err)
			}
		}
	}
	return nil
}

// OpenTicketLimiter returns the user's ticket-open rate limiter, creating it
// on first use. Burst of two, then one open per 30 seconds.
func (a *App) OpenTicketLimiter(userID string) *rate.Limiter {
	a.limitersMu.Lock()
	defer a.limitersMu.Unlock()

	lim, ok := a.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(30*time.Second), 2)
		a.limiters[userID] = lim
	}
	return lim
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Engine() *ticketing.Engine {
	return a.engine
}
