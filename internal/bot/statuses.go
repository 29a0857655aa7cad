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

// cbOpenStatusPicker starts the multi-select checklist over the list's
// statuses. The scratch selection is seeded from the committed tracked set so
// cancelling (never saving) changes nothing.
func (b *Bot) cbOpenStatusPicker(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	if !sess.HasList() {
		return c.Send("No list selected. Use Fetch Teams → select list first.")
	}

	statuses, err := b.api.ListStatuses(ctx, sess.APIToken, sess.LastListID)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		return c.Send("This list has no statuses.")
	}
	clickup.SortStatuses(statuses)

	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.Status)
	}

	updated, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.BeginStatusPicker(names)
		return nil
	})
	if err != nil {
		return err
	}
	return c.Send("Select statuses to track:", statusPickerMarkup(updated))
}

func (b *Bot) cbToggleStatus(c tele.Context, _ *session.Session) error {
	ctx := tg.BuildContext(c)
	name := tg.CallbackPayload(c)
	if name == "" {
		return nil
	}

	updated, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.ToggleTempStatus(name)
		return nil
	})
	if err != nil {
		return err
	}
	if len(updated.AvailableStatuses) == 0 {
		return c.Send("The status picker has expired. Open it again.")
	}
	return tg.EditOrSendMD(c, "Select statuses to track:", statusPickerMarkup(updated))
}

// cbSaveStatuses commits the scratch selection. An empty selection falls
// back to the list's default status so task views never silently show
// everything.
func (b *Bot) cbSaveStatuses(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)

	updated, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.ApplyStatusSelection()
		return nil
	})
	if err != nil {
		return err
	}

	if len(updated.TrackedStatuses) == 0 && sess.HasToken() && sess.HasList() {
		statuses, err := b.api.ListStatuses(ctx, sess.APIToken, sess.LastListID)
		if err != nil {
			return err
		}
		if def, ok := clickup.DefaultStatus(statuses); ok {
			updated, err = b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
				sess.TrackedStatuses = []string{def.Status}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}

	trackedSummary, _ := logger.SummarizeStrings(updated.TrackedStatuses, 10)
	logger.Info(ctx, "bot", "statuses.saved",
		slog.Int64("user_id", c.Sender().ID),
		slog.String("tracked", trackedSummary),
	)
	if len(updated.TrackedStatuses) == 0 {
		return c.Send("Tracking no statuses; task views will show everything.")
	}
	return c.Send(fmt.Sprintf("✅ Tracking statuses: %s", strings.Join(updated.TrackedStatuses, ", ")))
}

func statusPickerMarkup(sess *session.Session) *tele.ReplyMarkup {
	buttons := make([]tg.InlineBtn, 0, len(sess.AvailableStatuses)+1)
	for _, name := range sess.AvailableStatuses {
		mark := "⬜"
		if sess.TempStatusSelected(name) {
			mark = "✅"
		}
		buttons = append(buttons, tg.InlineBtn{
			Text:   fmt.Sprintf("%s %s", mark, name),
			Unique: cbToggleStatus,
			Data:   name,
		})
	}
	markup := tg.InlineButtonsNPerRow(buttons, 2)
	markup.InlineKeyboard = append(markup.InlineKeyboard,
		tg.InlineButtonsRows([]tg.InlineBtn{{Text: "Save 💾", Unique: cbSaveStatuses}}).InlineKeyboard...)
	return markup
}
