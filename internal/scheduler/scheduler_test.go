package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"clickbot/internal/clickup"
	"clickbot/internal/config"
	"clickbot/internal/logger"
	"clickbot/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init(nil); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type fetchCall struct {
	token    string
	listID   string
	statuses []string
	assignee int64
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	tasks map[int64][]clickup.Task
	err   error
}

func (f *fakeFetcher) TasksFiltered(_ context.Context, token, listID string, statuses []string, assignee int64) ([]clickup.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{token: token, listID: listID, statuses: statuses, assignee: assignee})
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks[assignee], nil
}

type fakeSender struct {
	mu       sync.Mutex
	messages map[int64][]string
	err      error
}

func newFakeSender() *fakeSender {
	return &fakeSender{messages: make(map[int64][]string)}
}

func (s *fakeSender) SendTo(userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages[userID] = append(s.messages[userID], text)
	return nil
}

func seedUser(t *testing.T, store session.Store, id int64, mutate func(*session.Session)) {
	t.Helper()
	_, err := store.Update(context.Background(), id, func(sess *session.Session) error {
		sess.APIToken = fmt.Sprintf("pk_%d", id)
		sess.LastListID = "l1"
		sess.ClickUpUserID = id
		sess.TrackedStatuses = []string{"Open"}
		if mutate != nil {
			mutate(sess)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDailySkipsOptedOutUsers(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{tasks: map[int64][]clickup.Task{
		1: {{Name: "task one"}},
		2: {{Name: "task two"}},
	}}
	sender := newFakeSender()

	seedUser(t, store, 1, nil)
	seedUser(t, store, 2, func(s *session.Session) { s.Reminders.Daily = false })

	s := New(config.SchedulerConfig{Enabled: true, DailyHour: 10}, store, fetcher, sender)
	s.RunDaily(context.Background())

	assert.Len(t, fetcher.calls, 1, "opted-out users are never contacted")
	assert.Contains(t, sender.messages[1][0], "📅 Tasks for today:")
	assert.Contains(t, sender.messages[1][0], "• task one")
	assert.Empty(t, sender.messages[2])
}

func TestDailySkipsUsersWithoutTokenOrList(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{tasks: map[int64][]clickup.Task{}}
	sender := newFakeSender()

	seedUser(t, store, 1, func(s *session.Session) { s.APIToken = "" })
	seedUser(t, store, 2, func(s *session.Session) { s.LastListID = "" })

	s := New(config.SchedulerConfig{Enabled: true}, store, fetcher, sender)
	s.RunDaily(context.Background())

	assert.Empty(t, fetcher.calls)
}

func TestZeroTasksSendNothing(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{tasks: map[int64][]clickup.Task{}}
	sender := newFakeSender()

	seedUser(t, store, 1, nil)

	s := New(config.SchedulerConfig{Enabled: true}, store, fetcher, sender)
	s.RunDaily(context.Background())

	require.Len(t, fetcher.calls, 1)
	assert.Empty(t, sender.messages)
}

func TestHourlyRequiresOptIn(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{tasks: map[int64][]clickup.Task{
		1: {{Name: "a"}},
		2: {{Name: "b"}},
	}}
	sender := newFakeSender()

	seedUser(t, store, 1, nil)
	seedUser(t, store, 2, func(s *session.Session) { s.Reminders.Hourly = true })

	s := New(config.SchedulerConfig{Enabled: true}, store, fetcher, sender)
	s.RunHourly(context.Background())

	require.Len(t, fetcher.calls, 1)
	assert.Empty(t, sender.messages[1], "hourly is opt-in")
	require.Len(t, sender.messages[2], 1)
	assert.Contains(t, sender.messages[2][0], "⏰ Reminder:")
}

func TestFetchUsesTrackedStatusesAndAssignee(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{tasks: map[int64][]clickup.Task{}}
	sender := newFakeSender()

	seedUser(t, store, 7, func(s *session.Session) {
		s.TrackedStatuses = []string{"Open", "review"}
	})

	s := New(config.SchedulerConfig{Enabled: true}, store, fetcher, sender)
	s.RunDaily(context.Background())

	require.Len(t, fetcher.calls, 1)
	call := fetcher.calls[0]
	assert.Equal(t, "pk_7", call.token)
	assert.Equal(t, "l1", call.listID)
	assert.Equal(t, []string{"Open", "review"}, call.statuses)
	assert.Equal(t, int64(7), call.assignee)
}

func TestOneUserFailureDoesNotBlockOthers(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{
		tasks: map[int64][]clickup.Task{2: {{Name: "b"}}},
	}
	sender := newFakeSender()

	seedUser(t, store, 1, nil)
	seedUser(t, store, 2, nil)

	fetcher.err = errors.New("boom")
	s := New(config.SchedulerConfig{Enabled: true}, store, fetcher, sender)

	s.RunDaily(context.Background())
	assert.Len(t, fetcher.calls, 2, "a fetch failure never aborts the pass")
	assert.Empty(t, sender.messages)
}

func TestTickFiresDailyOnlyAtConfiguredHour(t *testing.T) {
	store := session.NewMemoryStore()
	fetcher := &fakeFetcher{tasks: map[int64][]clickup.Task{1: {{Name: "a"}}}}
	sender := newFakeSender()

	seedUser(t, store, 1, func(s *session.Session) { s.Reminders.Hourly = false })

	s := New(config.SchedulerConfig{Enabled: true, DailyHour: 9}, store, fetcher, sender)

	at := func(hour int) time.Time {
		return time.Date(2026, 8, 28, hour, 0, 0, 0, time.UTC)
	}

	s.Tick(context.Background(), at(8))
	assert.Empty(t, sender.messages[1])

	s.Tick(context.Background(), at(9))
	require.Len(t, sender.messages[1], 1)
	assert.Contains(t, sender.messages[1][0], "📅 Tasks for today:")
}

func TestFormatTasksCap(t *testing.T) {
	tasks := make([]clickup.Task, 25)
	for i := range tasks {
		tasks[i] = clickup.Task{Name: fmt.Sprintf("task %d", i)}
	}
	out := formatTasks(tasks)
	assert.Contains(t, out, "• task 0")
	assert.Contains(t, out, "• task 19")
	assert.NotContains(t, out, "• task 20")
	assert.Contains(t, out, "and 5 more")
}
