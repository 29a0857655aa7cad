package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"clickbot/internal/clickup"
	"clickbot/internal/config"
	"clickbot/internal/logger"
	"clickbot/internal/session"
	tg "clickbot/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestMain(m *testing.M) {
	if err := logger.Init(nil); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeContext stubs the slice of tele.Context the handlers touch. Calls to
// anything else hit the nil embedded interface and panic, which is exactly
// what a test should do for an unexpected interaction.
type fakeContext struct {
	tele.Context

	userID int64
	text   string
	cb     *tele.Callback

	kv       map[string]any
	sent     []string
	sentOpts []*tele.SendOptions
	markups  []*tele.ReplyMarkup
	edits    []string
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{userID: userID, kv: make(map[string]any)}
}

func (f *fakeContext) Sender() *tele.User { return &tele.User{ID: f.userID} }

func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.userID} }

func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1, Callback: f.cb} }

func (f *fakeContext) Callback() *tele.Callback { return f.cb }

func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Get(key string) any { return f.kv[key] }

func (f *fakeContext) Set(key string, val any) { f.kv[key] = val }

func (f *fakeContext) Send(what any, opts ...any) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	var so *tele.SendOptions
	var rm *tele.ReplyMarkup
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			so = v
			if v.ReplyMarkup != nil {
				rm = v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			rm = v
		}
	}
	f.sentOpts = append(f.sentOpts, so)
	f.markups = append(f.markups, rm)
	return nil
}

func (f *fakeContext) Edit(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.edits = append(f.edits, s)
	}
	return nil
}

func (f *fakeContext) EditOrSend(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.edits = append(f.edits, s)
	}
	return nil
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeContext) lastOpts() *tele.SendOptions {
	if len(f.sentOpts) == 0 {
		return nil
	}
	return f.sentOpts[len(f.sentOpts)-1]
}

// lastButtonTexts flattens the most recent keyboard into its button labels.
func (f *fakeContext) lastButtonTexts() []string {
	if len(f.markups) == 0 || f.markups[len(f.markups)-1] == nil {
		return nil
	}
	var texts []string
	for _, row := range f.markups[len(f.markups)-1].InlineKeyboard {
		for _, btn := range row {
			texts = append(texts, btn.Text)
		}
	}
	return texts
}

// newTestBot wires the engine against an in-memory store and a stub ClickUp
// server.
func newTestBot(t *testing.T, handler http.HandlerFunc) (*Bot, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	api := clickup.New(config.ClickUpConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, srv.Client())
	return New(&config.Config{}, store, api), store
}

func seedSession(t *testing.T, store session.Store, userID int64, mutate func(*session.Session)) {
	t.Helper()
	_, err := store.Update(context.Background(), userID, func(sess *session.Session) error {
		mutate(sess)
		return nil
	})
	require.NoError(t, err)
}

func getSession(t *testing.T, store session.Store, userID int64) *session.Session {
	t.Helper()
	sess, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	return sess
}

func TestTokenFlowValidatesBeforeStoring(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user", r.URL.Path)
		require.Equal(t, "pk_good", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": 77, "username": "dev"},
		})
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbRequestToken)(c))
	assert.Equal(t, session.ModeAwaitingToken, getSession(t, store, 1).Mode)

	c = newFakeContext(1)
	c.text = "pk_good"
	require.True(t, b.InProgress(c))
	require.NoError(t, b.HandleModeInput(c))

	sess := getSession(t, store, 1)
	assert.Equal(t, "pk_good", sess.APIToken)
	assert.Equal(t, int64(77), sess.ClickUpUserID)
	assert.Equal(t, session.ModeNone, sess.Mode)
	assert.Contains(t, c.sent[0], "Token saved")
	assert.Contains(t, c.sent[0], "dev")
}

func TestTokenFlowRejectedTokenNotStored(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"err":"Token invalid"}`))
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.Mode = session.ModeAwaitingToken
	})

	c := newFakeContext(1)
	c.text = "pk_bad"
	require.NoError(t, b.HandleModeInput(c))

	sess := getSession(t, store, 1)
	assert.Empty(t, sess.APIToken, "rejected tokens must never be persisted")
	assert.Equal(t, session.ModeNone, sess.Mode, "a rejected token clears the capture mode")
	assert.Contains(t, c.lastSent(), "rejected")
}

func TestUnauthorizedResetsAuthAndPrompts(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_expired"
		s.LastTeamID = "t1"
		s.LastListID = "l1"
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbFetchTeams)(c))

	sess := getSession(t, store, 1)
	assert.False(t, sess.HasToken())
	assert.False(t, sess.HasList())
	assert.Contains(t, c.lastSent(), "token invalid/expired")
}

func TestGenericErrorReported(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"err":"Server blew up"}`))
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbFetchTeams)(c))

	sess := getSession(t, store, 1)
	assert.True(t, sess.HasToken(), "non-auth failures keep the token")
	assert.Contains(t, c.lastSent(), "An error occurred:")
	assert.Contains(t, c.lastSent(), "Server blew up")
}

func TestSelectListSeedsDefaultStatus(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/list/l1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "l1",
			"statuses": []map[string]any{
				{"status": "done", "type": "closed", "orderindex": 2},
				{"status": "Open", "type": "open", "orderindex": 0},
			},
		})
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.Lists = []session.ListRef{{ID: "l1", Name: "Sprint"}}
	})

	c := newFakeContext(1)
	c.cb = &tele.Callback{Unique: cbList, Data: "l1"}
	require.NoError(t, b.guard(b.cbSelectList)(c))

	sess := getSession(t, store, 1)
	assert.Equal(t, "l1", sess.LastListID)
	assert.Equal(t, "Sprint", sess.LastListName)
	assert.Equal(t, []string{"Open"}, sess.TrackedStatuses)
	assert.Contains(t, c.lastSent(), "List selected: *Sprint*")
	require.NotNil(t, c.lastOpts())
	assert.Equal(t, tele.ModeMarkdown, c.lastOpts().ParseMode)

	buttons := c.lastButtonTexts()
	assert.Contains(t, buttons, "Show Tasks 📋")
	assert.Contains(t, buttons, "My Tasks 👤")
	assert.Contains(t, buttons, "Filter by Status 🎯")
	assert.Contains(t, buttons, "Current List 📄")
	assert.Contains(t, buttons, "Change List 📋")
	assert.Contains(t, buttons, "Main Menu 🏠")
}

func TestStaleHierarchyButtonsAfterReset(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected for a stale button, got %s", r.URL.Path)
	})

	// Token re-entered after a reset: the cursor is empty again, but old
	// space/folder buttons may still be visible in the chat history.
	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_new"
	})

	c := newFakeContext(1)
	c.cb = &tele.Callback{Unique: cbFolder, Data: "f1"}
	require.NoError(t, b.guard(b.cbSelectFolder)(c))
	assert.Contains(t, c.lastSent(), "expired")

	c = newFakeContext(1)
	c.cb = &tele.Callback{Unique: cbSpace, Data: "s1"}
	require.NoError(t, b.guard(b.cbSelectSpace)(c))
	assert.Contains(t, c.lastSent(), "expired")

	sess := getSession(t, store, 1)
	assert.Empty(t, sess.LastTeamID)
	assert.Empty(t, sess.LastSpaceID)
	assert.Empty(t, sess.LastFolderID)
}

func TestSelectListRequiresCachedCandidate(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected for an uncached list id")
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.Lists = []session.ListRef{{ID: "l1", Name: "Sprint"}}
	})

	c := newFakeContext(1)
	c.cb = &tele.Callback{Unique: cbList, Data: "unknown"}
	require.NoError(t, b.guard(b.cbSelectList)(c))

	assert.Contains(t, c.lastSent(), "fetch lists again")
	assert.False(t, getSession(t, store, 1).HasList())
}

func TestShowTasksFiltersByTrackedStatuses(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/list/l1/task", r.URL.Path)
		assert.Equal(t, []string{"Open"}, r.URL.Query()["statuses[]"])
		assert.Empty(t, r.URL.Query()["assignees[]"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tasks": []map[string]any{
				{"id": "t1", "name": "Fix bug", "status": map[string]string{"status": "Open"}},
			},
		})
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
		s.LastListName = "Sprint"
		s.TrackedStatuses = []string{"Open"}
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbShowTasks)(c))

	sess := getSession(t, store, 1)
	require.Len(t, sess.Tasks, 1)
	assert.Equal(t, "t1", sess.Tasks[0].ID)
	assert.Contains(t, c.lastSent(), "Tasks in Sprint:")
}

func TestMyTasksRequiresResolvedIdentity(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected without a resolved identity")
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbMyTasks)(c))
	assert.Contains(t, c.lastSent(), "Sync it first")
}

func TestSetStatusUpdatesCachedTask(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/task/t1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "done", body["status"])
		_, _ = w.Write([]byte(`{}`))
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
		s.SelectedTaskID = "t1"
		s.Tasks = []session.TaskRef{{ID: "t1", Name: "Fix bug", Status: "Open"}}
	})

	c := newFakeContext(1)
	c.cb = &tele.Callback{Unique: cbSetStatus, Data: "done"}
	require.NoError(t, b.guard(b.cbSetStatus)(c))

	sess := getSession(t, store, 1)
	assert.Equal(t, "done", sess.Tasks[0].Status)
	assert.Contains(t, c.lastSent(), "Status changed to done")
}

func TestCreateTaskFlow(t *testing.T) {
	var created clickup.CreateTaskRequest
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/list/l1/task", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "task42", "name": created.Name})
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
		s.Mode = session.ModeAwaitingTask
	})

	c := newFakeContext(1)
	c.text = "Fix login bug\nUsers cannot log in\ntags: bug\npr: urgent\nsp: 3\ntc: front"
	require.NoError(t, b.HandleModeInput(c))

	assert.Equal(t, "Fix login bug", created.Name)
	assert.Equal(t, "Users cannot log in", created.Description)
	assert.Equal(t, []string{"bug"}, created.Tags)
	require.NotNil(t, created.Priority)
	assert.Equal(t, 1, *created.Priority)
	require.NotNil(t, created.Points)
	assert.Equal(t, 3.0, *created.Points)
	require.Len(t, created.CustomFields, 1)
	assert.Equal(t, clickup.TechCategoryFieldID, created.CustomFields[0].ID)

	sess := getSession(t, store, 1)
	assert.Equal(t, session.ModeNone, sess.Mode)
	assert.Contains(t, c.lastSent(), "https://app.clickup.com/t/task42")
}

func TestCreateTaskInvalidCategoriesKeepsMode(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid input must never reach the API")
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
		s.Mode = session.ModeAwaitingTask
	})

	c := newFakeContext(1)
	c.text = "Some task\ntc: mobile"
	require.NoError(t, b.HandleModeInput(c))

	assert.Contains(t, c.lastSent(), "Unknown categories: mobile")
	assert.Equal(t, session.ModeAwaitingTask, getSession(t, store, 1).Mode)
}

func TestSaveStatusesFallsBackToDefault(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "l1",
			"statuses": []map[string]any{
				{"status": "Open", "type": "open", "orderindex": 0},
			},
		})
	})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
		s.AvailableStatuses = []string{"Open", "done"}
		s.TempStatusSelection = nil
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbSaveStatuses)(c))

	sess := getSession(t, store, 1)
	assert.Equal(t, []string{"Open"}, sess.TrackedStatuses, "an empty selection re-seeds the default status")
}

func TestStatusPickerToggleRerenders(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
		s.LastListID = "l1"
		s.AvailableStatuses = []string{"Open", "done"}
		s.TrackedStatuses = []string{"Open"}
		s.TempStatusSelection = []string{"Open"}
	})

	c := newFakeContext(1)
	c.cb = &tele.Callback{Unique: cbToggleStatus, Data: "done"}
	require.NoError(t, b.guard(b.cbToggleStatus)(c))

	require.Len(t, c.edits, 1, "toggle edits the picker in place")
	sess := getSession(t, store, 1)
	assert.ElementsMatch(t, []string{"Open", "done"}, sess.TempStatusSelection)
}

func TestReminderToggle(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {})

	c := newFakeContext(1)
	require.NoError(t, b.handleReminderToggle(c))
	assert.Contains(t, c.lastSent(), "Hourly reminder enabled")
	assert.True(t, getSession(t, store, 1).Reminders.Hourly)

	c = newFakeContext(1)
	require.NoError(t, b.handleReminderToggle(c))
	assert.Contains(t, c.lastSent(), "Hourly reminder disabled")
	assert.False(t, getSession(t, store, 1).Reminders.Hourly)
}

func TestClearDataConfirmFlow(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {})

	seedSession(t, store, 1, func(s *session.Session) {
		s.APIToken = "pk_ok"
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbConfirmClear)(c))
	assert.Contains(t, c.lastSent(), "cleared")

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSlashCommandResetsPendingMode(t *testing.T) {
	b, store := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {})

	seedSession(t, store, 1, func(s *session.Session) {
		s.Mode = session.ModeAwaitingTask
	})

	c := newFakeContext(1)
	require.NoError(t, b.handleMenu(c))
	assert.Equal(t, session.ModeNone, getSession(t, store, 1).Mode)
	assert.False(t, b.InProgress(newFakeContext(1)))
}

func TestRegisterWiresEverything(t *testing.T) {
	b, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {})

	reg := tg.NewRegistry()
	b.Register(reg)

	assert.Len(t, reg.Commands(), 6)
	for _, key := range []string{
		cbSetAPIToken, cbTokenReset, cbFetchTeams, cbTeam, cbSpace, cbFolder,
		cbList, cbShowTasks, cbMyTasks, cbTask, cbChangeStatus, cbSetStatus,
		cbPickStatus, cbToggleStatus, cbSaveStatuses, cbCreateTask,
		cbCurrentList, cbGetMe, cbClearData, cbConfirmClear, cbCancelClear,
		cbHelp, cbGoMenu,
	} {
		_, ok := reg.GetCallback(key)
		assert.True(t, ok, "callback %s not registered", key)
	}
	assert.NotNil(t, reg.TextFallback())
}

func TestFetchTeamsWithoutToken(t *testing.T) {
	b, _ := newTestBot(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected without a token")
	})

	c := newFakeContext(1)
	require.NoError(t, b.guard(b.cbFetchTeams)(c))
	assert.Contains(t, c.lastSent(), "API token first")
}
