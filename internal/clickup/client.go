package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"clickbot/internal/config"
	"clickbot/internal/logger"
	"log/slog"
)

// Client issues authenticated calls against the ClickUp v2 API.
// Mutating calls are never retried here; retry policy belongs to callers.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New builds a Client from configuration. The HTTP client may be nil,
// in which case a default client with the configured timeout is used.
func New(cfg config.ClickUpConfig, httpClient *http.Client) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		timeout: timeout,
		http:    httpClient,
	}
}

// call performs one API request and decodes the JSON response into out.
// Non-2xx responses are mapped to *APIError with a status-derived kind.
func (c *Client) call(ctx context.Context, token, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("clickup: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("clickup: build request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.API.Warn("request failed",
			slog.String("event", "api.call"),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("clickup: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("clickup: read response: %w", err)
	}

	logger.API.Debug("api call",
		slog.String("event", "api.call"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Kind:       kindForStatus(resp.StatusCode),
		}
		var payload struct {
			Err string `json:"err"`
		}
		if jsonErr := json.Unmarshal(raw, &payload); jsonErr == nil && payload.Err != "" {
			apiErr.Message = payload.Err
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Kind:       KindMalformed,
			Message:    "unexpected response shape",
		}
	}
	return nil
}

// Teams fetches the workspaces visible to the token.
func (c *Client) Teams(ctx context.Context, token string) ([]Team, error) {
	var resp teamsResponse
	if err := c.call(ctx, token, http.MethodGet, "/team", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams, nil
}

// Spaces fetches the spaces of a team.
func (c *Client) Spaces(ctx context.Context, token, teamID string) ([]Space, error) {
	var resp spacesResponse
	if err := c.call(ctx, token, http.MethodGet, "/team/"+url.PathEscape(teamID)+"/space", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// Folders fetches the folders of a space. An empty result means the space
// keeps its lists at the space level.
func (c *Client) Folders(ctx context.Context, token, spaceID string) ([]Folder, error) {
	var resp foldersResponse
	if err := c.call(ctx, token, http.MethodGet, "/space/"+url.PathEscape(spaceID)+"/folder", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

// Lists fetches the lists of a folder.
func (c *Client) Lists(ctx context.Context, token, folderID string) ([]List, error) {
	var resp listsResponse
	if err := c.call(ctx, token, http.MethodGet, "/folder/"+url.PathEscape(folderID)+"/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// ListsInSpace fetches folderless lists stored directly under a space.
func (c *Client) ListsInSpace(ctx context.Context, token, spaceID string) ([]List, error) {
	var resp listsResponse
	if err := c.call(ctx, token, http.MethodGet, "/space/"+url.PathEscape(spaceID)+"/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// Tasks fetches all tasks of a list.
func (c *Client) Tasks(ctx context.Context, token, listID string) ([]Task, error) {
	return c.TasksFiltered(ctx, token, listID, nil, 0)
}

// MyTasks fetches the tasks of a list assigned to the given ClickUp user.
func (c *Client) MyTasks(ctx context.Context, token, listID string, userID int64) ([]Task, error) {
	return c.TasksFiltered(ctx, token, listID, nil, userID)
}

// TasksFiltered fetches tasks of a list narrowed by status names and/or assignee.
func (c *Client) TasksFiltered(ctx context.Context, token, listID string, statuses []string, assignee int64) ([]Task, error) {
	query := url.Values{}
	for _, s := range statuses {
		query.Add("statuses[]", s)
	}
	if assignee != 0 {
		query.Add("assignees[]", strconv.FormatInt(assignee, 10))
	}
	path := "/list/" + url.PathEscape(listID) + "/task"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp tasksResponse
	if err := c.call(ctx, token, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// ListStatuses fetches the status set defined on a list.
func (c *Client) ListStatuses(ctx context.Context, token, listID string) ([]Status, error) {
	var resp listResponse
	if err := c.call(ctx, token, http.MethodGet, "/list/"+url.PathEscape(listID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Statuses, nil
}

// AuthorizedUser resolves the account behind the token (whoami).
func (c *Client) AuthorizedUser(ctx context.Context, token string) (*User, error) {
	var resp userResponse
	if err := c.call(ctx, token, http.MethodGet, "/user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// CreateTask creates a task under a list and returns the created task.
func (c *Client) CreateTask(ctx context.Context, token, listID string, req CreateTaskRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, token, http.MethodPost, "/list/"+url.PathEscape(listID)+"/task", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskStatus updates the status of a task.
func (c *Client) SetTaskStatus(ctx context.Context, token, taskID, status string) error {
	body := map[string]string{"status": status}
	return c.call(ctx, token, http.MethodPut, "/task/"+url.PathEscape(taskID), body, nil)
}
