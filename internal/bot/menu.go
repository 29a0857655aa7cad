package bot

import (
	"fmt"

	"clickbot/internal/session"
	tg "clickbot/internal/telegram"

	tele "gopkg.in/telebot.v4"
)

const welcomeText = `👋 Welcome to ClickUp Task Manager Bot!

This bot allows you to:
• Connect your ClickUp account
• Browse Teams / Spaces / Lists
• Create tasks directly from Telegram

Use /menu to begin.`

func (b *Bot) handleStart(c tele.Context) error {
	ctx := tg.BuildContext(c)
	b.resetMode(ctx, c.Sender().ID)
	if err := c.Send(welcomeText); err != nil {
		return err
	}
	return b.sendMenu(c)
}

func (b *Bot) handleMenu(c tele.Context) error {
	ctx := tg.BuildContext(c)
	b.resetMode(ctx, c.Sender().ID)
	return b.sendMenu(c)
}

// sendMenu renders the smart root menu: the token row changes once a token
// is stored, list actions appear only after a list is selected.
func (b *Bot) sendMenu(c tele.Context) error {
	ctx := tg.BuildContext(c)
	sess, err := b.store.Get(ctx, c.Sender().ID)
	if err != nil {
		return b.reportError(c, err)
	}

	var rows [][]tg.InlineBtn

	if !sess.HasToken() {
		rows = append(rows, []tg.InlineBtn{{Text: "Set ClickUp API Token 🛠️", Unique: cbSetAPIToken}})
	} else {
		rows = append(rows, []tg.InlineBtn{
			{Text: "Update Token 🛠️", Unique: cbSetAPIToken},
			{Text: "Reset Token ♻️", Unique: cbTokenReset},
		})
	}

	rows = append(rows, []tg.InlineBtn{{Text: "Fetch Teams 📋", Unique: cbFetchTeams}})

	if sess.HasList() {
		rows = append(rows, []tg.InlineBtn{
			{Text: "Show Tasks 📋", Unique: cbShowTasks},
			{Text: "My Tasks 👤", Unique: cbMyTasks},
		})
		rows = append(rows, []tg.InlineBtn{
			{Text: "Filter by Status 🎯", Unique: cbPickStatus},
			{Text: "Current List 📄", Unique: cbCurrentList},
		})
	} else {
		rows = append(rows, []tg.InlineBtn{{Text: "Current List 📄", Unique: cbCurrentList}})
	}

	rows = append(rows, []tg.InlineBtn{{Text: "Create Task ✏️", Unique: cbCreateTask}})

	if sess.HasToken() {
		rows = append(rows, []tg.InlineBtn{{Text: "Sync My ClickUp ID 👤", Unique: cbGetMe}})
	}

	rows = append(rows, []tg.InlineBtn{
		{Text: "Clear Data 🗑️", Unique: cbClearData},
		{Text: "Help ❓", Unique: cbHelp},
	})

	return c.Send("What do you want to do?", tg.InlineButtonsRows(rows...))
}

func (b *Bot) cbGoMenu(c tele.Context, _ *session.Session) error {
	return b.sendMenu(c)
}

func (b *Bot) cbCurrentList(c tele.Context, sess *session.Session) error {
	if !sess.HasList() {
		return c.Send("No list selected yet. Use Fetch Teams → select list.")
	}
	name := sess.LastListName
	if name == "" {
		name = sess.LastListID
	}
	return c.Send(fmt.Sprintf("Current list: %s", name))
}

func (b *Bot) handleReminderToggle(c tele.Context) error {
	ctx := tg.BuildContext(c)
	uid := c.Sender().ID

	sess, err := b.store.Update(ctx, uid, func(sess *session.Session) error {
		sess.Mode = session.ModeNone
		sess.Reminders.Hourly = !sess.Reminders.Hourly
		return nil
	})
	if err != nil {
		return b.reportError(c, err)
	}

	state := "disabled"
	if sess.Reminders.Hourly {
		state = "enabled"
	}
	return c.Send(fmt.Sprintf("Hourly reminder %s", state))
}

func (b *Bot) cbClearData(c tele.Context, _ *session.Session) error {
	markup := tg.InlineButtonsRows([]tg.InlineBtn{
		{Text: "Yes", Unique: cbConfirmClear},
		{Text: "No", Unique: cbCancelClear},
	})
	return c.Send("Are you sure you want to clear your data?", markup)
}

func (b *Bot) cbConfirmClear(c tele.Context, _ *session.Session) error {
	ctx := tg.BuildContext(c)
	if err := b.store.Delete(ctx, c.Sender().ID); err != nil {
		return err
	}
	return c.Send("All your data has been cleared. Use /menu to start fresh.")
}

func (b *Bot) cbCancelClear(c tele.Context, _ *session.Session) error {
	return c.Send("Your data was not cleared. Use /menu to continue.")
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx := tg.BuildContext(c)
	sessions, err := b.store.All(ctx)
	if err != nil {
		return b.reportError(c, err)
	}
	connected := 0
	for _, sess := range sessions {
		if sess.HasToken() {
			connected++
		}
	}
	return c.Send(fmt.Sprintf("Sessions: %d (connected: %d)", len(sessions), connected))
}
