package bot

import (
	"fmt"

	"clickbot/internal/clickup"
	"clickbot/internal/logger"
	"clickbot/internal/session"
	tg "clickbot/internal/telegram"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) cbFetchTeams(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}

	teams, err := b.api.Teams(ctx, sess.APIToken)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		return c.Send("No teams found for this account.")
	}

	buttons := make([]tg.InlineBtn, 0, len(teams))
	for _, t := range teams {
		buttons = append(buttons, tg.InlineBtn{Text: t.Name, Unique: cbTeam, Data: t.ID})
	}
	return c.Send("Select a team:", tg.InlineButtonsNPerRow(buttons, 2))
}

func (b *Bot) cbSelectTeam(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	teamID := tg.CallbackPayload(c)
	if teamID == "" {
		return c.Send("That button has expired. Use Fetch Teams again.")
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.SelectTeam(teamID)
		return nil
	}); err != nil {
		return err
	}

	spaces, err := b.api.Spaces(ctx, sess.APIToken, teamID)
	if err != nil {
		return err
	}
	if len(spaces) == 0 {
		return c.Send("This team has no spaces.")
	}

	buttons := make([]tg.InlineBtn, 0, len(spaces))
	for _, s := range spaces {
		buttons = append(buttons, tg.InlineBtn{Text: s.Name, Unique: cbSpace, Data: s.ID})
	}
	return c.Send("Select a space:", tg.InlineButtonsNPerRow(buttons, 2))
}

// cbSelectSpace drills into a space. Spaces without folders keep their lists
// at the space level, so an empty folder set falls through to folderless
// lists instead of a dead end.
func (b *Bot) cbSelectSpace(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	spaceID := tg.CallbackPayload(c)
	// A stale space button pressed after the cursor was reset must not
	// leave a space selected under no team.
	if spaceID == "" || sess.LastTeamID == "" {
		return c.Send("That button has expired. Use Fetch Teams again.")
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.SelectSpace(spaceID)
		return nil
	}); err != nil {
		return err
	}

	folders, err := b.api.Folders(ctx, sess.APIToken, spaceID)
	if err != nil {
		return err
	}

	if len(folders) == 0 {
		lists, err := b.api.ListsInSpace(ctx, sess.APIToken, spaceID)
		if err != nil {
			return err
		}
		if len(lists) == 0 {
			return c.Send("This space has no folders or lists.")
		}
		return b.offerLists(c, lists)
	}

	buttons := make([]tg.InlineBtn, 0, len(folders))
	for _, f := range folders {
		buttons = append(buttons, tg.InlineBtn{Text: f.Name, Unique: cbFolder, Data: f.ID})
	}
	return c.Send("Select a folder:", tg.InlineButtonsNPerRow(buttons, 2))
}

func (b *Bot) cbSelectFolder(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	folderID := tg.CallbackPayload(c)
	// Same staleness rule as spaces: a folder always hangs off a space.
	if folderID == "" || sess.LastSpaceID == "" {
		return c.Send("That button has expired. Use Fetch Teams again.")
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.SelectFolder(folderID)
		return nil
	}); err != nil {
		return err
	}

	lists, err := b.api.Lists(ctx, sess.APIToken, folderID)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		return c.Send("This folder has no lists.")
	}
	return b.offerLists(c, lists)
}

// offerLists caches the candidates in the session so the list button press
// can be resolved back to a name, then renders the keyboard.
func (b *Bot) offerLists(c tele.Context, lists []clickup.List) error {
	ctx := tg.BuildContext(c)

	refs := make([]session.ListRef, 0, len(lists))
	buttons := make([]tg.InlineBtn, 0, len(lists))
	for _, l := range lists {
		refs = append(refs, session.ListRef{ID: l.ID, Name: l.Name})
		buttons = append(buttons, tg.InlineBtn{Text: l.Name, Unique: cbList, Data: l.ID})
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.Lists = refs
		return nil
	}); err != nil {
		return err
	}
	return c.Send("Select a list:", tg.InlineButtonsNPerRow(buttons, 2))
}

// cbSelectList pins the working list. The press is only honoured when the
// list is still in the cached candidate set; otherwise the user is told to
// fetch lists again. Tracked statuses reset per list and are seeded with the
// list's default status.
func (b *Bot) cbSelectList(c tele.Context, sess *session.Session) error {
	ctx := tg.BuildContext(c)
	if !sess.HasToken() {
		return b.promptForToken(c)
	}
	listID := tg.CallbackPayload(c)

	ref, ok := sess.ListByID(listID)
	if !ok {
		return c.Send("Error: fetch lists again.")
	}

	statuses, err := b.api.ListStatuses(ctx, sess.APIToken, listID)
	if err != nil {
		return err
	}

	var tracked []string
	if def, ok := clickup.DefaultStatus(statuses); ok {
		tracked = []string{def.Status}
	}

	if _, err := b.store.Update(ctx, c.Sender().ID, func(sess *session.Session) error {
		sess.SelectList(ref.ID, ref.Name)
		sess.TrackedStatuses = tracked
		return nil
	}); err != nil {
		return err
	}

	trackedSummary, _ := logger.SummarizeStrings(tracked, 5)
	logger.Info(ctx, "bot", "list.selected",
		slog.Int64("user_id", c.Sender().ID),
		slog.String("list_id", ref.ID),
		slog.String("tracked", trackedSummary),
	)

	markup := tg.InlineButtonsRows(
		[]tg.InlineBtn{
			{Text: "Show Tasks 📋", Unique: cbShowTasks},
			{Text: "My Tasks 👤", Unique: cbMyTasks},
		},
		[]tg.InlineBtn{
			{Text: "Create Task ✏️", Unique: cbCreateTask},
			{Text: "Filter by Status 🎯", Unique: cbPickStatus},
		},
		[]tg.InlineBtn{
			{Text: "Current List 📄", Unique: cbCurrentList},
			{Text: "Change List 📋", Unique: cbFetchTeams},
		},
		[]tg.InlineBtn{{Text: "Main Menu 🏠", Unique: cbGoMenu}},
	)
	return tg.SendMD(c, fmt.Sprintf("List selected: *%s*", ref.Name), markup)
}

func (b *Bot) promptForToken(c tele.Context) error {
	markup := tg.InlineButtons([]tg.InlineBtn{{Text: "Set ClickUp API Token 🛠️", Unique: cbSetAPIToken}})
	return c.Send("You need a ClickUp API token first.", markup)
}
