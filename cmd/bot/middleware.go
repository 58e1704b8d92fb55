package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/request"
	"github.com/wardenbot/warden/pkg/ticketing"
	"github.com/gorilla/mux"
)

// slashCommandController resolves a slash command's subcommand to its
// processor.
type slashCommandController func(a IApp, cmd string) (slashProcessor, error)

// slashProcessor is the processor for slash commands.
type slashProcessor func(a IApp, i *discordgo.InteractionCreate) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, a IApp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrInternalServer.Error())); err != nil {
					a.Log().Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler routes interactions: slash commands by name through the
// controllers, components and modals by their custom-ID prefix.
func interactionHandler(a IApp, controllers map[string]slashCommandController) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleSlashCommand(a, i, controllers)
		case discordgo.InteractionMessageComponent:
			handleComponent(a, i)
		case discordgo.InteractionModalSubmit:
			handleModalSubmit(a, i)
		}
	}
}

func handleSlashCommand(a IApp, i *discordgo.InteractionCreate, controllers map[string]slashCommandController) {
	name := i.ApplicationCommandData().Name
	a.Log().Debug("Handling interaction " + name)

	now := time.Now().UTC()
	defer func() {
		DiscordCommandDuration.WithLabelValues(name).Observe(time.Since(now).Seconds())
	}()

	controller, ok := controllers[name]
	if !ok {
		a.Log().Error("No controller found for command "+name, slog.String("command", name))
		if err := respondError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	sub := ""
	if opts := i.ApplicationCommandData().Options; len(opts) > 0 {
		sub = opts[0].Name
	}

	processor, err := controller(a, sub)
	if err != nil {
		a.Log().Error(fmt.Sprintf("Error getting processor for command %s", name),
			slog.String(logging.KeyError, err.Error()))
		if err := respondError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing command %s", name),
			slog.String(logging.KeyError, err.Error()))
		if err := respondError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func handleComponent(a IApp, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	var err error
	switch {
	case matchPrefix(customID, ticketing.ParseOpenTicketButtonID) != "":
		err = openTicketButtonHandler(a, i, matchPrefix(customID, ticketing.ParseOpenTicketButtonID))
	case matchPrefix(customID, ticketing.ParseCloseConfirmButtonID) != "":
		err = closeConfirmButtonHandler(a, i, matchPrefix(customID, ticketing.ParseCloseConfirmButtonID))
	default:
		a.Log().Debug("Unhandled component interaction", slog.String("custom_id", customID))
		return
	}

	if err != nil {
		a.Log().Error("Error processing component interaction",
			slog.String("custom_id", customID),
			slog.String(logging.KeyError, err.Error()))
		if err := respondError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func handleModalSubmit(a IApp, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID

	typeID, ok := ticketing.ParseTicketModalID(customID)
	if !ok {
		a.Log().Debug("Unhandled modal interaction", slog.String("custom_id", customID))
		return
	}

	if err := ticketModalHandler(a, i, typeID); err != nil {
		a.Log().Error("Error processing ticket modal",
			slog.String("custom_id", customID),
			slog.String(logging.KeyError, err.Error()))
		if err := respondError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func matchPrefix(customID string, parse func(string) (string, bool)) string {
	arg, ok := parse(customID)
	if !ok {
		return ""
	}
	return arg
}
