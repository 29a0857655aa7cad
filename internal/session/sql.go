package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"clickbot/internal/logger"
	"log/slog"
)

// SQLStore persists sessions in a single table via sqlx. It works against
// postgres and sqlite; collection fields are JSON-encoded TEXT columns.
type SQLStore struct {
	db *sqlx.DB

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:    db,
		locks: make(map[int64]*sync.Mutex),
	}
}

type sessionRow struct {
	UserID        int64      `db:"user_id"`
	APIToken      string     `db:"api_token"`
	ClickUpUserID int64      `db:"clickup_user_id"`
	LastTeamID    string     `db:"last_team_id"`
	LastSpaceID   string     `db:"last_space_id"`
	LastFolderID  string     `db:"last_folder_id"`
	LastListID    string     `db:"last_list_id"`
	LastListName  string     `db:"last_list_name"`
	Lists         ListRefs   `db:"lists"`
	Tasks         TaskRefs   `db:"tasks"`
	SelectedTask  string     `db:"selected_task_id"`
	Tracked       StringList `db:"tracked_statuses"`
	Available     StringList `db:"available_statuses"`
	TempSelection StringList `db:"temp_statuses"`
	Mode          string     `db:"mode"`
	RemindDaily   bool       `db:"remind_daily"`
	RemindHourly  bool       `db:"remind_hourly"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func toRow(s *Session) sessionRow {
	return sessionRow{
		UserID:        s.UserID,
		APIToken:      s.APIToken,
		ClickUpUserID: s.ClickUpUserID,
		LastTeamID:    s.LastTeamID,
		LastSpaceID:   s.LastSpaceID,
		LastFolderID:  s.LastFolderID,
		LastListID:    s.LastListID,
		LastListName:  s.LastListName,
		Lists:         ListRefs(s.Lists),
		Tasks:         TaskRefs(s.Tasks),
		SelectedTask:  s.SelectedTaskID,
		Tracked:       StringList(s.TrackedStatuses),
		Available:     StringList(s.AvailableStatuses),
		TempSelection: StringList(s.TempStatusSelection),
		Mode:          string(s.Mode),
		RemindDaily:   s.Reminders.Daily,
		RemindHourly:  s.Reminders.Hourly,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r sessionRow) toSession() *Session {
	mode := Mode(r.Mode)
	if !mode.Valid() {
		mode = ModeNone
	}
	return &Session{
		UserID:              r.UserID,
		APIToken:            r.APIToken,
		ClickUpUserID:       r.ClickUpUserID,
		LastTeamID:          r.LastTeamID,
		LastSpaceID:         r.LastSpaceID,
		LastFolderID:        r.LastFolderID,
		LastListID:          r.LastListID,
		LastListName:        r.LastListName,
		Lists:               []ListRef(r.Lists),
		Tasks:               []TaskRef(r.Tasks),
		SelectedTaskID:      r.SelectedTask,
		TrackedStatuses:     []string(r.Tracked),
		AvailableStatuses:   []string(r.Available),
		TempStatusSelection: []string(r.TempSelection),
		Mode:                mode,
		Reminders:           Reminders{Daily: r.RemindDaily, Hourly: r.RemindHourly},
		UpdatedAt:           r.UpdatedAt,
	}
}

const selectSession = `SELECT user_id, api_token, clickup_user_id,
	last_team_id, last_space_id, last_folder_id, last_list_id, last_list_name,
	lists, tasks, selected_task_id,
	tracked_statuses, available_statuses, temp_statuses,
	mode, remind_daily, remind_hourly, updated_at
FROM sessions`

const upsertSession = `INSERT INTO sessions (
	user_id, api_token, clickup_user_id,
	last_team_id, last_space_id, last_folder_id, last_list_id, last_list_name,
	lists, tasks, selected_task_id,
	tracked_statuses, available_statuses, temp_statuses,
	mode, remind_daily, remind_hourly, updated_at
) VALUES (
	:user_id, :api_token, :clickup_user_id,
	:last_team_id, :last_space_id, :last_folder_id, :last_list_id, :last_list_name,
	:lists, :tasks, :selected_task_id,
	:tracked_statuses, :available_statuses, :temp_statuses,
	:mode, :remind_daily, :remind_hourly, :updated_at
) ON CONFLICT (user_id) DO UPDATE SET
	api_token = excluded.api_token,
	clickup_user_id = excluded.clickup_user_id,
	last_team_id = excluded.last_team_id,
	last_space_id = excluded.last_space_id,
	last_folder_id = excluded.last_folder_id,
	last_list_id = excluded.last_list_id,
	last_list_name = excluded.last_list_name,
	lists = excluded.lists,
	tasks = excluded.tasks,
	selected_task_id = excluded.selected_task_id,
	tracked_statuses = excluded.tracked_statuses,
	available_statuses = excluded.available_statuses,
	temp_statuses = excluded.temp_statuses,
	mode = excluded.mode,
	remind_daily = excluded.remind_daily,
	remind_hourly = excluded.remind_hourly,
	updated_at = excluded.updated_at`

func (s *SQLStore) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *SQLStore) load(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectSession+" WHERE user_id = ?"), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	return row.toSession(), nil
}

// Get returns the stored session or a default one for first contact.
func (s *SQLStore) Get(ctx context.Context, userID int64) (*Session, error) {
	return s.load(ctx, userID)
}

// Update applies fn under the per-user lock and persists the result.
func (s *SQLStore) Update(ctx context.Context, userID int64, fn func(*Session) error) (*Session, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()

	row := toRow(sess)
	if _, err := s.db.NamedExecContext(ctx, upsertSession, row); err != nil {
		logger.DB.Error("session upsert failed",
			slog.String("event", "session.update"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("session update: %w", err)
	}
	return sess, nil
}

// ResetAuth clears auth, cursor, and tracked statuses for the user.
func (s *SQLStore) ResetAuth(ctx context.Context, userID int64) error {
	_, err := s.Update(ctx, userID, func(sess *Session) error {
		sess.ResetAuth()
		return nil
	})
	return err
}

// Delete removes the record entirely.
func (s *SQLStore) Delete(ctx context.Context, userID int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE user_id = ?"), userID); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// All enumerates every stored session.
func (s *SQLStore) All(ctx context.Context) ([]*Session, error) {
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, selectSession+" ORDER BY user_id"); err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toSession())
	}
	return sessions, nil
}

var _ Store = (*SQLStore)(nil)
