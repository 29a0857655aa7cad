package bot

import (
	"fmt"
	"strings"

	"clickbot/internal/clickup"
	"clickbot/internal/logger"
	"clickbot/internal/session"
	tg "clickbot/internal/telegram"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) cbRequestToken(c tele.Context, _ *session.Session) error {
	ctx := tg.BuildContext(c)
	_, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.Mode = session.ModeAwaitingToken
		return nil
	})
	if err != nil {
		return err
	}
	return c.Send("Please send me your ClickUp API token.\n\nYou can find it in ClickUp under Settings → Apps → API Token.")
}

// handleTokenInput validates the submitted token against the API before
// storing anything. A rejected token is discarded and the capture mode is
// cleared; retrying means going through the menu again.
func (b *Bot) handleTokenInput(c tele.Context, _ *session.Session) error {
	ctx := tg.BuildContext(c)
	uid := c.Sender().ID
	token := strings.TrimSpace(c.Text())

	if token == "" {
		return c.Send("That doesn't look like a token. Please send your ClickUp API token.")
	}

	user, err := b.api.AuthorizedUser(ctx, token)
	if err != nil {
		if !clickup.IsUnauthorized(err) {
			return err
		}
		logger.Warn(ctx, "bot", "token.rejected",
			slog.Int64("user_id", uid),
		)
		b.resetMode(ctx, uid)
		markup := tg.InlineButtons([]tg.InlineBtn{{Text: "Set ClickUp API Token 🛠️", Unique: cbSetAPIToken}})
		return c.Send("❌ That token was rejected by ClickUp. Check it and try again.", markup)
	}

	_, err = b.store.Update(ctx, uid, func(sess *session.Session) error {
		sess.APIToken = token
		sess.ClickUpUserID = user.ID
		sess.Mode = session.ModeNone
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "bot", "token.accepted",
		slog.Int64("user_id", uid),
		slog.Int64("clickup_user_id", user.ID),
	)

	if err := c.Send(fmt.Sprintf("✅ Token saved. Connected as %s.", user.Username)); err != nil {
		return err
	}
	return b.sendMenu(c)
}

func (b *Bot) cbTokenReset(c tele.Context, _ *session.Session) error {
	return b.resetToken(c)
}

func (b *Bot) handleTokenResetCommand(c tele.Context) error {
	ctx := tg.BuildContext(c)
	b.resetMode(ctx, c.Sender().ID)
	if err := b.resetToken(c); err != nil {
		return b.reportError(c, err)
	}
	return nil
}

func (b *Bot) resetToken(c tele.Context) error {
	ctx := tg.BuildContext(c)
	if err := b.store.ResetAuth(ctx, c.Sender().ID); err != nil {
		return err
	}
	if err := c.Send("Your ClickUp token has been removed."); err != nil {
		return err
	}
	return b.sendMenu(c)
}

// cbSyncIdentity re-resolves the ClickUp account behind the stored token so
// "My Tasks" and assignee filters work for sessions created before identity
// resolution existed.
func (b *Bot) cbSyncIdentity(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return c.Send("No token stored yet. Set your ClickUp API token first.")
	}

	user, err := b.api.AuthorizedUser(ctx, sess.APIToken)
	if err != nil {
		return err
	}

	_, err = b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.ClickUpUserID = user.ID
		return nil
	})
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("👤 You are %s (ID %d).", user.Username, user.ID))
}
