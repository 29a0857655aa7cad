package telegram

import (
	"strings"
	"time"

	"clickbot/internal/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// ModeRouter dispatches free text for users that are mid-conversation.
type ModeRouter interface {
	// InProgress reports whether the user's next message has a special meaning.
	InProgress(c tele.Context) bool
	// HandleModeInput consumes the message according to the active mode.
	HandleModeInput(c tele.Context) error
}

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *Registry, opts CommandRouteOptions) []Route {
	if reg == nil {
		return nil
	}

	adminOpts := AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		h = RecoverMiddleware(h)
		h = LoggerMiddleware(h)
		if def.AdminOnly {
			h = AdminOnlyMiddleware(adminOpts)(h)
		}
		routes = append(routes, Route{Endpoint: cmd, Handler: h})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}

// CallbackRoute returns a handler that routes callbacks through the registry.
//
// The callback is acknowledged before any business logic runs so the client
// never shows a stuck spinner. When acknowledgment itself fails the button
// has expired and the press is dropped silently.
func CallbackRoute(reg *Registry) Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		if err := c.Respond(); err != nil {
			logHandlerSummary(c, name, start, "stale", "drop", nil, extras...)
			return nil
		}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return Route{
		Endpoint: tele.OnCallback,
		Handler:  RecoverMiddleware(LoggerMiddleware(handler)),
	}
}

// TextRoute builds the handler for free-text updates. Slash commands never
// reach an active conversation mode: a known command runs as a command (its
// handler resets the mode itself), an unknown one falls to the text fallback.
// Everything else goes to the mode router, then the fallback.
func TextRoute(modes ModeRouter, reg *Registry) Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if strings.HasPrefix(text, "/") {
			if reg != nil {
				if key, cmd, ok := reg.LookupCommand(strings.Fields(text)[0]); ok && cmd.Handler != nil {
					return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
						return cmd.Handler(c)
					})
				}
				if fb := reg.TextFallback(); fb != nil {
					return handleWithSummary(c, "unknown_command", start, func() error {
						return fb(c)
					})
				}
			}
			logHandlerSummary(c, "unknown_command", start, "skip", "ok", nil)
			return nil
		}

		if modes != nil && modes.InProgress(c) {
			return handleWithSummary(c, "mode_input", start, func() error {
				return modes.HandleModeInput(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return Route{
		Endpoint: tele.OnText,
		Handler:  RecoverMiddleware(LoggerMiddleware(handler)),
	}
}

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error, extras ...slog.Attr) error {
	WithHandler(c, handlerName)
	err := fn()
	status := "ok"
	if err != nil {
		status = "fail"
	}
	logHandlerSummary(c, handlerName, start, status, status, err, extras...)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, status, outcome string, err error, extras ...slog.Attr) {
	ctx := WithHandler(c, handlerName)

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
