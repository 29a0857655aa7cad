package session

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Mode tells how the next free-text message from a user is interpreted.
type Mode string

const (
	// ModeNone means free text has no special meaning.
	ModeNone Mode = "none"
	// ModeAwaitingToken captures the next message as a ClickUp API token.
	ModeAwaitingToken Mode = "awaiting_api_token"
	// ModeAwaitingTask captures the next message as task creation input.
	ModeAwaitingTask Mode = "awaiting_task_input"
)

// Valid reports whether m is a known conversation mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeAwaitingToken, ModeAwaitingTask:
		return true
	}
	return false
}

// ListRef caches one candidate list so a button press can be resolved back
// to a name; callback payloads carry only the id.
type ListRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TaskRef caches one fetched task for display.
type TaskRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Reminders holds per-cadence opt-in flags.
type Reminders struct {
	Daily  bool `json:"daily"`
	Hourly bool `json:"hourly"`
}

// Session is the durable per-user record: auth, navigation cursor,
// working set, and conversation mode.
type Session struct {
	UserID        int64
	APIToken      string
	ClickUpUserID int64

	LastTeamID   string
	LastSpaceID  string
	LastFolderID string
	LastListID   string
	LastListName string

	Lists          []ListRef
	Tasks          []TaskRef
	SelectedTaskID string

	TrackedStatuses     []string
	AvailableStatuses   []string
	TempStatusSelection []string

	Mode      Mode
	Reminders Reminders
	UpdatedAt time.Time
}

// New returns a session with default values for a first-contact user.
// Daily reminders are on by default; hourly are opt-in.
func New(userID int64) *Session {
	return &Session{
		UserID:    userID,
		Mode:      ModeNone,
		Reminders: Reminders{Daily: true},
	}
}

// HasToken reports whether an API token is stored.
func (s *Session) HasToken() bool { return s.APIToken != "" }

// HasList reports whether a list has been selected.
func (s *Session) HasList() bool { return s.LastListID != "" }

// SelectTeam moves the cursor to a team and clears every deeper field.
func (s *Session) SelectTeam(teamID string) {
	s.LastTeamID = teamID
	s.LastSpaceID = ""
	s.clearBelowSpace()
}

// SelectSpace moves the cursor to a space and clears every deeper field.
func (s *Session) SelectSpace(spaceID string) {
	s.LastSpaceID = spaceID
	s.clearBelowSpace()
}

// SelectFolder moves the cursor to a folder and clears the list cursor.
func (s *Session) SelectFolder(folderID string) {
	s.LastFolderID = folderID
	s.clearList()
}

// SelectList pins the working list. Tracked statuses reset per list; the
// caller re-seeds a default afterwards.
func (s *Session) SelectList(listID, name string) {
	s.LastListID = listID
	s.LastListName = name
	s.TrackedStatuses = nil
	s.Tasks = nil
	s.SelectedTaskID = ""
}

func (s *Session) clearBelowSpace() {
	s.LastFolderID = ""
	s.clearList()
	s.Lists = nil
}

func (s *Session) clearList() {
	s.LastListID = ""
	s.LastListName = ""
	s.Tasks = nil
	s.SelectedTaskID = ""
}

// ListByID resolves a cached candidate list by id.
func (s *Session) ListByID(id string) (ListRef, bool) {
	for _, l := range s.Lists {
		if l.ID == id {
			return l, true
		}
	}
	return ListRef{}, false
}

// BeginStatusPicker seeds the scratch selection from the committed set.
func (s *Session) BeginStatusPicker(available []string) {
	s.AvailableStatuses = append([]string(nil), available...)
	s.TempStatusSelection = append([]string(nil), s.TrackedStatuses...)
}

// ToggleTempStatus flips membership of name in the scratch selection.
// Toggling twice restores the original set.
func (s *Session) ToggleTempStatus(name string) {
	for i, v := range s.TempStatusSelection {
		if v == name {
			s.TempStatusSelection = append(s.TempStatusSelection[:i], s.TempStatusSelection[i+1:]...)
			return
		}
	}
	s.TempStatusSelection = append(s.TempStatusSelection, name)
}

// TempStatusSelected reports scratch membership for picker rendering.
func (s *Session) TempStatusSelected(name string) bool {
	for _, v := range s.TempStatusSelection {
		if v == name {
			return true
		}
	}
	return false
}

// ApplyStatusSelection commits the scratch selection and clears it.
func (s *Session) ApplyStatusSelection() {
	s.TrackedStatuses = s.TempStatusSelection
	s.TempStatusSelection = nil
	s.AvailableStatuses = nil
}

// ResetAuth clears the token, resolved identity, navigation cursor, and
// tracked statuses, returning the session to its unauthenticated shape.
func (s *Session) ResetAuth() {
	s.APIToken = ""
	s.ClickUpUserID = 0
	s.LastTeamID = ""
	s.LastSpaceID = ""
	s.clearBelowSpace()
	s.TrackedStatuses = nil
	s.AvailableStatuses = nil
	s.TempStatusSelection = nil
	s.Mode = ModeNone
}

// StringList is a JSON-encoded TEXT column holding a list of strings.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) { return jsonValue(l) }

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error { return jsonScan(src, l) }

// ListRefs is a JSON-encoded TEXT column holding cached lists.
type ListRefs []ListRef

// Value implements driver.Valuer.
func (l ListRefs) Value() (driver.Value, error) { return jsonValue(l) }

// Scan implements sql.Scanner.
func (l *ListRefs) Scan(src any) error { return jsonScan(src, l) }

// TaskRefs is a JSON-encoded TEXT column holding cached tasks.
type TaskRefs []TaskRef

// Value implements driver.Valuer.
func (l TaskRefs) Value() (driver.Value, error) { return jsonValue(l) }

// Scan implements sql.Scanner.
func (l *TaskRefs) Scan(src any) error { return jsonScan(src, l) }

func jsonValue(v any) (driver.Value, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func jsonScan(src, dst any) error {
	switch raw := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, dst)
	case string:
		if raw == "" {
			return nil
		}
		return json.Unmarshal([]byte(raw), dst)
	}
	return fmt.Errorf("session: cannot scan %T into JSON column", src)
}
