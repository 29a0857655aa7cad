// Command clickbot runs the Telegram bot that drives ClickUp task management.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clickbot/internal/app"
	"clickbot/internal/bot"
	"clickbot/internal/buildinfo"
	"clickbot/internal/clickup"
	"clickbot/internal/config"
	"clickbot/internal/logger"
	"clickbot/internal/scheduler"
	tg "clickbot/internal/telegram"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// Logger is not up yet; write to stderr and die.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fatal(err)
	}
	_ = logger.Shutdown()
}

func fatal(err error) {
	if logger.L != nil {
		logger.L.Error("fatal",
			slog.String("component", "app"),
			slog.String("event", "fatal"),
			slog.String("err", err.Error()),
		)
		_ = logger.Shutdown()
	} else {
		os.Stderr.WriteString(err.Error() + "\n")
	}
	os.Exit(1)
}

func run(cfg *config.Config) error {
	res, err := app.Bootstrap(app.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer res.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.L.Info("starting",
		slog.String("component", "app"),
		slog.String("event", "start"),
		slog.String("version", buildinfo.Version),
	)

	api := clickup.New(cfg.ClickUp, nil)
	engine := bot.New(cfg, res.Store, api)

	reg := tg.NewRegistry()
	engine.Register(reg)

	routes := tg.CommandRoutes(reg, tg.CommandRouteOptions{
		AdminID: cfg.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return c.Send("This command is not available.")
		},
	})
	routes = append(routes, tg.CallbackRoute(reg), tg.TextRoute(engine, reg))

	var middlewares []tg.Middleware
	if cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = struct{}{}
		}
		middlewares = append(middlewares, tg.Middleware{
			Name: "rate_limit",
			Use: tg.RateLimitMiddleware(tg.RateLimitOptions{
				Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:  exclude,
			}),
		})
	}

	schedDone := make(chan struct{})

	return tg.Run(ctx, tg.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: middlewares,
		Routes:      routes,
		OnStart: func(ctx context.Context, b *tele.Bot) error {
			sched := scheduler.New(cfg.Scheduler, res.Store, api, botSender{bot: b})
			go func() {
				defer close(schedDone)
				sched.Run(ctx)
			}()
			return nil
		},
		OnStop: func(_ context.Context, _ *tele.Bot) error {
			select {
			case <-schedDone:
			case <-time.After(5 * time.Second):
			}
			return nil
		},
	})
}

// botSender adapts the Telebot instance to the scheduler's delivery contract.
type botSender struct {
	bot *tele.Bot
}

func (s botSender) SendTo(userID int64, text string) error {
	_, err := s.bot.Send(&tele.User{ID: userID}, text)
	return err
}
