// Package scheduler delivers periodic task reminders: a daily digest at a
// configured hour for every opted-in user and an hourly ping for users who
// enabled it explicitly.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clickbot/internal/clickup"
	"clickbot/internal/config"
	"clickbot/internal/logger"
	"clickbot/internal/session"
	"log/slog"
)

// maxReminderTasks caps how many task lines one reminder message carries.
const maxReminderTasks = 20

// Sender delivers a plain-text message to a Telegram user.
type Sender interface {
	SendTo(userID int64, text string) error
}

// TaskFetcher is the slice of the ClickUp client the scheduler needs.
type TaskFetcher interface {
	TasksFiltered(ctx context.Context, token, listID string, statuses []string, assignee int64) ([]clickup.Task, error)
}

// Scheduler walks all sessions on each tick and reminds eligible users.
type Scheduler struct {
	cfg   config.SchedulerConfig
	store session.Store
	api   TaskFetcher
	send  Sender
}

// New builds a Scheduler. It does nothing until Run is called.
func New(cfg config.SchedulerConfig, store session.Store, api TaskFetcher, send Sender) *Scheduler {
	return &Scheduler{cfg: cfg, store: store, api: api, send: send}
}

// Run blocks until ctx is done, firing the hourly pass at the top of every
// hour and the daily pass when the hour matches the configured daily hour.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		logger.SCHED.Info("scheduler disabled", slog.String("event", "sched.disabled"))
		return
	}

	logger.SCHED.Info("scheduler started",
		slog.String("event", "sched.start"),
		slog.Int("daily_hour", s.cfg.DailyHour),
	)

	for {
		now := time.Now()
		next := now.Truncate(time.Hour).Add(time.Hour)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.SCHED.Info("scheduler stopped", slog.String("event", "sched.stop"))
			return
		case tick := <-timer.C:
			s.Tick(ctx, tick)
		}
	}
}

// Tick runs the passes due at the given wall-clock moment. Exposed so the
// firing logic can be driven without waiting for real hours to pass.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if now.Hour() == s.cfg.DailyHour {
		s.RunDaily(ctx)
	}
	s.RunHourly(ctx)
}

// RunDaily sends the daily digest to every user with daily reminders on.
func (s *Scheduler) RunDaily(ctx context.Context) {
	s.remind(ctx, "daily", "📅 Tasks for today:\n\n", func(sess *session.Session) bool {
		return sess.Reminders.Daily
	})
}

// RunHourly sends the hourly ping to users who opted in via /reminder.
func (s *Scheduler) RunHourly(ctx context.Context) {
	s.remind(ctx, "hourly", "⏰ Reminder:\n\n", func(sess *session.Session) bool {
		return sess.Reminders.Hourly
	})
}

// remind fetches tracked tasks per eligible user and delivers the digest.
// One user's failure never blocks the rest; users with zero matching tasks
// get no message at all.
func (s *Scheduler) remind(ctx context.Context, kind, header string, optedIn func(*session.Session) bool) {
	start := time.Now()

	sessions, err := s.store.All(ctx)
	if err != nil {
		logger.SCHED.Error("session scan failed",
			slog.String("event", "sched."+kind),
			slog.String("err", err.Error()),
		)
		return
	}

	sent := 0
	for _, sess := range sessions {
		if !optedIn(sess) || !sess.HasToken() || !sess.HasList() {
			continue
		}

		tasks, err := s.api.TasksFiltered(ctx, sess.APIToken, sess.LastListID, sess.TrackedStatuses, sess.ClickUpUserID)
		if err != nil {
			logger.SCHED.Warn("task fetch failed",
				slog.String("event", "sched."+kind),
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		if err := s.send.SendTo(sess.UserID, header+formatTasks(tasks)); err != nil {
			logger.SCHED.Warn("reminder delivery failed",
				slog.String("event", "sched."+kind),
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}

	logger.SCHED.Info("reminder pass done",
		slog.String("event", "sched."+kind),
		slog.Int("sessions", len(sessions)),
		slog.Int("sent", sent),
		slog.Duration("duration", logger.Took(start)),
	)
}

func formatTasks(tasks []clickup.Task) string {
	n := len(tasks)
	if n > maxReminderTasks {
		n = maxReminderTasks
	}
	lines := make([]string, 0, n+1)
	for _, t := range tasks[:n] {
		lines = append(lines, "• "+t.Name)
	}
	if len(tasks) > maxReminderTasks {
		lines = append(lines, fmt.Sprintf("… and %d more", len(tasks)-maxReminderTasks))
	}
	return strings.Join(lines, "\n")
}
