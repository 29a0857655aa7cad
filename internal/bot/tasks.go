package bot

import (
	"fmt"
	"math"
	"strings"

	"clickbot/internal/clickup"
	"clickbot/internal/logger"
	"clickbot/internal/session"
	"clickbot/internal/taskinput"
	tg "clickbot/internal/telegram"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

const taskInputHint = `Send me the task in this format:

Task title
Task description (optional)
tags: tag1, tag2
pr: urgent|high|normal|low
sp: 3
tc: front, back

Only the title line is required.`

func (b *Bot) cbShowTasks(c tele.Context, sess *session.Session) error {
	return b.showTasks(c, sess, false)
}

func (b *Bot) cbMyTasks(c tele.Context, sess *session.Session) error {
	if sess.ClickUpUserID == 0 {
		markup := tg.InlineButtons([]tg.InlineBtn{{Text: "Sync My ClickUp ID 👤", Unique: cbGetMe}})
		return c.Send("I don't know your ClickUp user yet. Sync it first.", markup)
	}
	return b.showTasks(c, sess, true)
}

// showTasks fetches the working list's tasks narrowed by the tracked status
// set, caches them for task buttons, and renders one button per task.
func (b *Bot) showTasks(c tele.Context, sess *session.Session, mineOnly bool) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	if !sess.HasList() {
		return c.Send("No list selected. Use Fetch Teams → select list first.")
	}

	var assignee int64
	if mineOnly {
		assignee = sess.ClickUpUserID
	}

	tasks, err := b.api.TasksFiltered(ctx, sess.APIToken, sess.LastListID, sess.TrackedStatuses, assignee)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return c.Send("No tasks found.")
	}

	refs := make([]session.TaskRef, 0, len(tasks))
	buttons := make([]tg.InlineBtn, 0, len(tasks))
	for _, t := range tasks {
		refs = append(refs, session.TaskRef{ID: t.ID, Name: t.Name, Status: t.Status.Status})
		buttons = append(buttons, tg.InlineBtn{
			Text:   fmt.Sprintf("%s (%s)", t.Name, t.Status.Status),
			Unique: cbTask,
			Data:   t.ID,
		})
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.Tasks = refs
		return nil
	}); err != nil {
		return err
	}

	header := fmt.Sprintf("Tasks in %s:", sess.LastListName)
	if mineOnly {
		header = fmt.Sprintf("Your tasks in %s:", sess.LastListName)
	}
	return c.Send(header, tg.InlineButtons(buttons))
}

func (b *Bot) cbSelectTask(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	taskID := tg.CallbackPayload(c)

	var selected session.TaskRef
	found := false
	for _, t := range sess.Tasks {
		if t.ID == taskID {
			selected = t
			found = true
			break
		}
	}
	if !found {
		return c.Send("That task is no longer cached. Show tasks again.")
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.SelectedTaskID = taskID
		return nil
	}); err != nil {
		return err
	}

	markup := tg.InlineButtons([]tg.InlineBtn{
		{Text: "Change Status 🔄", Unique: cbChangeStatus, Data: taskID},
	})
	text := fmt.Sprintf("%s\nStatus: %s\n%s", selected.Name, selected.Status, clickup.TaskURL(taskID))
	return c.Send(text, markup)
}

// cbChangeStatus offers the list's statuses in board order for the selected task.
func (b *Bot) cbChangeStatus(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	taskID := tg.CallbackPayload(c)
	if taskID == "" {
		taskID = sess.SelectedTaskID
	}
	if taskID == "" {
		return c.Send("No task selected. Show tasks and pick one first.")
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

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.SelectedTaskID = taskID
		return nil
	}); err != nil {
		return err
	}

	buttons := make([]tg.InlineBtn, 0, len(statuses))
	for _, s := range statuses {
		buttons = append(buttons, tg.InlineBtn{Text: s.Status, Unique: cbSetStatus, Data: s.Status})
	}
	return c.Send("Select a new status:", tg.InlineButtonsNPerRow(buttons, 2))
}

func (b *Bot) cbSetStatus(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	status := tg.CallbackPayload(c)
	taskID := sess.SelectedTaskID
	if taskID == "" || status == "" {
		return c.Send("No task selected. Show tasks and pick one first.")
	}

	if err := b.api.SetTaskStatus(ctx, sess.APIToken, taskID, status); err != nil {
		return err
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		for i := range sess.Tasks {
			if sess.Tasks[i].ID == taskID {
				sess.Tasks[i].Status = status
			}
		}
		return nil
	}); err != nil {
		return err
	}

	logger.Info(ctx, "bot", "task.status_changed",
		slog.Int64("user_id", c.Sender().ID),
		slog.String("task_id", taskID),
		slog.String("status", status),
	)
	return c.Send(fmt.Sprintf("✅ Status changed to %s", status))
}

func (b *Bot) cbCreateTask(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	if !sess.HasList() {
		return c.Send("No list selected. Use Fetch Teams → select list first.")
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.Mode = session.ModeAwaitingTask
		return nil
	}); err != nil {
		return err
	}
	return c.Send(taskInputHint)
}

// handleTaskInput parses the captured message and creates the task. Invalid
// input reports what was wrong and keeps the capture mode active; the mode
// is cleared only after a successful creation.
func (b *Bot) handleTaskInput(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	uid := c.Sender().ID

	if !sess.HasList() {
		b.resetMode(ctx, uid)
		return c.Send("No list selected anymore. Use /menu to pick one.")
	}

	parsed := taskinput.Parse(c.Text())
	if !parsed.Valid() {
		if len(parsed.InvalidCategories) > 0 {
			return c.Send(fmt.Sprintf(
				"Unknown categories: %s\nValid ones are: front, back, product, devops, design, wordpress.",
				strings.Join(parsed.InvalidCategories, ", "),
			))
		}
		return c.Send("I couldn't find a task title. " + taskInputHint)
	}
	if parsed.Points != nil && math.IsNaN(*parsed.Points) {
		return c.Send("Story points (sp:) must be a number. Please send the task again.")
	}

	priority := clickup.PriorityLevel(parsed.Priority)
	req := clickup.CreateTaskRequest{
		Name:        parsed.Title,
		Description: parsed.Description,
		Tags:        parsed.Tags,
		Priority:    &priority,
		Points:      parsed.Points,
	}
	if len(parsed.Categories) > 0 {
		options := make([]string, 0, len(parsed.Categories))
		for _, label := range parsed.Categories {
			if id, ok := clickup.TechCategoryOption(label); ok {
				options = append(options, id)
			}
		}
		req.CustomFields = []clickup.CustomFieldValue{
			{ID: clickup.TechCategoryFieldID, Value: options},
		}
	}

	task, err := b.api.CreateTask(ctx, sess.APIToken, sess.LastListID, req)
	if err != nil {
		return err
	}

	if _, err := b.store.Update(ctx, uid, func(sess *session.Session) error {
		sess.Mode = session.ModeNone
		return nil
	}); err != nil {
		return err
	}

	logger.Info(ctx, "bot", "task.created",
		slog.Int64("user_id", uid),
		slog.String("task_id", task.ID),
		slog.String("list_id", sess.LastListID),
	)
	return c.Send(fmt.Sprintf("✅ Task created: %s\n%s", task.Name, clickup.TaskURL(task.ID)))
}
