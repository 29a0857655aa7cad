// Package bot implements the conversation and navigation engine: it maps
// Telegram commands, button presses, and free-text replies onto per-user
// session state and ClickUp API calls.
package bot

import (
	"context"
	"fmt"

	"clickbot/internal/clickup"
	"clickbot/internal/config"
	"clickbot/internal/logger"
	"clickbot/internal/session"
	tg "clickbot/internal/telegram"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Callback keys. The key is the variant tag of the pressed button; ids
// travel in the payload, never concatenated into the key.
const (
	cbSetAPIToken  = "set_api_token"
	cbTokenReset   = "token_reset"
	cbFetchTeams   = "fetch_teams"
	cbTeam         = "team"
	cbSpace        = "space"
	cbFolder       = "folder"
	cbList         = "list"
	cbShowTasks    = "show_tasks"
	cbMyTasks      = "my_tasks"
	cbTask         = "task"
	cbChangeStatus = "change_status"
	cbSetStatus    = "set_status"
	cbPickStatus   = "pick_status"
	cbToggleStatus = "toggle_status"
	cbSaveStatuses = "save_statuses"
	cbCreateTask   = "create_task"
	cbCurrentList  = "current_list"
	cbGetMe        = "get_me"
	cbClearData    = "clear_data"
	cbConfirmClear = "confirm_clear"
	cbCancelClear  = "cancel_clear"
	cbHelp         = "help"
	cbGoMenu       = "go_menu"
)

// Bot wires the session store and the ClickUp client into Telegram handlers.
type Bot struct {
	cfg   *config.Config
	store session.Store
	api   *clickup.Client
}

// New constructs the engine.
func New(cfg *config.Config, store session.Store, api *clickup.Client) *Bot {
	return &Bot{cfg: cfg, store: store, api: api}
}

// Register wires all commands and callbacks into the registry.
func (b *Bot) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", tg.Command{Handler: b.handleStart, Description: "Welcome and main menu"})
	reg.RegisterCommand("/menu", tg.Command{Handler: b.handleMenu, Description: "Show the main menu"})
	reg.RegisterCommand("/help", tg.Command{Handler: b.handleHelp, Description: "How to use the bot"})
	reg.RegisterCommand("/reminder", tg.Command{Handler: b.handleReminderToggle, Description: "Toggle hourly reminders"})
	reg.RegisterCommand("/token_reset", tg.Command{Handler: b.handleTokenResetCommand, Description: "Forget the stored ClickUp token"})
	reg.RegisterCommand("/stats", tg.Command{Handler: b.handleStats, Description: "Bot usage stats", AdminOnly: true, Hidden: true})

	callbacks := map[string]tele.HandlerFunc{
		cbSetAPIToken:  b.guard(b.cbRequestToken),
		cbTokenReset:   b.guard(b.cbTokenReset),
		cbFetchTeams:   b.guard(b.cbFetchTeams),
		cbTeam:         b.guard(b.cbSelectTeam),
		cbSpace:        b.guard(b.cbSelectSpace),
		cbFolder:       b.guard(b.cbSelectFolder),
		cbList:         b.guard(b.cbSelectList),
		cbShowTasks:    b.guard(b.cbShowTasks),
		cbMyTasks:      b.guard(b.cbMyTasks),
		cbTask:         b.guard(b.cbSelectTask),
		cbChangeStatus: b.guard(b.cbChangeStatus),
		cbSetStatus:    b.guard(b.cbSetStatus),
		cbPickStatus:   b.guard(b.cbOpenStatusPicker),
		cbToggleStatus: b.guard(b.cbToggleStatus),
		cbSaveStatuses: b.guard(b.cbSaveStatuses),
		cbCreateTask:   b.guard(b.cbCreateTask),
		cbCurrentList:  b.guard(b.cbCurrentList),
		cbGetMe:        b.guard(b.cbSyncIdentity),
		cbClearData:    b.guard(b.cbClearData),
		cbConfirmClear: b.guard(b.cbConfirmClear),
		cbCancelClear:  b.guard(b.cbCancelClear),
		cbHelp:         b.guard(b.cbHelp),
		cbGoMenu:       b.guard(b.cbGoMenu),
	}
	for key, handler := range callbacks {
		if err := reg.RegisterCallback(key, handler); err != nil {
			logger.TWire.Warn("callback registration failed",
				slog.String("event", "register.callback"),
				slog.String("key", key),
				slog.String("err", err.Error()),
			)
		}
	}

	reg.SetTextFallback(func(c tele.Context) error {
		return c.Send("I can only process text commands here. Use /menu.")
	})
}

// handlerFunc is a guarded handler receiving the caller's session.
type handlerFunc func(c tele.Context, sess *session.Session) error

// guard loads the session, runs the handler, and applies the error policy:
// a 401 from ClickUp resets auth with a reconnect prompt, anything else is
// logged and reported generically. The process never dies on one event.
func (b *Bot) guard(h handlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tg.BuildContext(c)
		sess, err := b.store.Get(ctx, c.Sender().ID)
		if err != nil {
			return b.reportError(c, err)
		}
		if err := h(c, sess); err != nil {
			return b.reportError(c, err)
		}
		return nil
	}
}

// reportError is the single funnel for handler failures.
func (b *Bot) reportError(c tele.Context, err error) error {
	ctx := tg.BuildContext(c)
	uid := c.Sender().ID

	if clickup.IsUnauthorized(err) {
		if resetErr := b.store.ResetAuth(ctx, uid); resetErr != nil {
			logger.Error(ctx, "bot", "auth.reset_failed",
				slog.Int64("user_id", uid),
				slog.String("err", resetErr.Error()),
			)
		}
		logger.Warn(ctx, "bot", "auth.rejected",
			slog.Int64("user_id", uid),
		)
		return c.Send("❌ ClickUp token invalid/expired. Please set it again via /menu.")
	}

	logger.Error(ctx, "bot", "handler.error",
		slog.Int64("user_id", uid),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return c.Send(fmt.Sprintf("An error occurred: %s", err.Error()))
}

// resetMode drops any pending conversation mode. Every slash command calls
// this first so stale text capture cannot swallow unrelated input.
func (b *Bot) resetMode(ctx context.Context, userID int64) {
	_, err := b.store.Update(ctx, userID, func(sess *session.Session) error {
		sess.Mode = session.ModeNone
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "bot", "mode.reset_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// InProgress reports whether the user's next message has a special meaning.
// Part of the telegram.ModeRouter contract.
func (b *Bot) InProgress(c tele.Context) bool {
	ctx := tg.BuildContext(c)
	sess, err := b.store.Get(ctx, c.Sender().ID)
	if err != nil {
		return false
	}
	return sess.Mode != session.ModeNone
}

// HandleModeInput consumes a free-text message according to the active mode.
func (b *Bot) HandleModeInput(c tele.Context) error {
	ctx := tg.BuildContext(c)
	sess, err := b.store.Get(ctx, c.Sender().ID)
	if err != nil {
		return b.reportError(c, err)
	}

	switch sess.Mode {
	case session.ModeAwaitingToken:
		if err := b.handleTokenInput(c, sess); err != nil {
			return b.reportError(c, err)
		}
		return nil
	case session.ModeAwaitingTask:
		if err := b.handleTaskInput(c, sess); err != nil {
			return b.reportError(c, err)
		}
		return nil
	}
	return nil
}

var _ tg.ModeRouter = (*Bot)(nil)
