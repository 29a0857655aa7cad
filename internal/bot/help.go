package bot

import (
	"clickbot/internal/session"
	tg "clickbot/internal/telegram"

	tele "gopkg.in/telebot.v4"
)

const helpText = `❓ How to use this bot

1. Set your ClickUp API token (Settings → Apps → API Token in ClickUp).
2. Fetch Teams and drill down: team → space → folder → list.
3. With a list selected you can show tasks, see your own tasks,
   change task statuses, and create tasks.

Creating a task:
Send the task as plain text after pressing Create Task.
The first line is the title, the second line the description. Extra
lines can carry metadata:

tags: bug, urgent
pr: urgent|high|normal|low
sp: 3
tc: front, back, product, devops, design, wordpress

Reminders:
Daily reminders of tracked tasks are on by default.
/reminder toggles an extra hourly reminder.

Commands:
/start - welcome and main menu
/menu - show the main menu
/reminder - toggle hourly reminders
/token_reset - forget the stored ClickUp token
/help - this message`

func (b *Bot) handleHelp(c tele.Context) error {
	ctx := tg.BuildContext(c)
	b.resetMode(ctx, c.Sender().ID)
	return b.sendHelp(c)
}

func (b *Bot) cbHelp(c tele.Context, _ *session.Session) error {
	return b.sendHelp(c)
}

func (b *Bot) sendHelp(c tele.Context) error {
	markup := tg.InlineButtons([]tg.InlineBtn{{Text: "Main Menu 🏠", Unique: cbGoMenu}})
	return c.Send(helpText, markup)
}
