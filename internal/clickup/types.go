package clickup

// Team is a top-level ClickUp workspace container.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Space nests under a team.
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Folder nests under a space. Folderless spaces keep lists directly.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List holds tasks; the leaf container of the hierarchy.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status describes one entry of a list's status set.
type Status struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Type       string  `json:"type"`
	OrderIndex float64 `json:"orderindex"`
}

// TaskStatus is the status object embedded in a task.
type TaskStatus struct {
	Status string `json:"status"`
}

// Task is a single ClickUp task.
type Task struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Status TaskStatus `json:"status"`
	URL    string     `json:"url"`
}

// User identifies the ClickUp account behind a token.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// CustomFieldValue sets one custom field on task creation.
type CustomFieldValue struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// CreateTaskRequest is the payload for creating a task under a list.
type CreateTaskRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
	Priority     *int               `json:"priority,omitempty"`
	Points       *float64           `json:"points,omitempty"`
	CustomFields []CustomFieldValue `json:"custom_fields,omitempty"`
}

type teamsResponse struct {
	Teams []Team `json:"teams"`
}

type spacesResponse struct {
	Spaces []Space `json:"spaces"`
}

type foldersResponse struct {
	Folders []Folder `json:"folders"`
}

type listsResponse struct {
	Lists []List `json:"lists"`
}

type tasksResponse struct {
	Tasks []Task `json:"tasks"`
}

type listResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Statuses []Status `json:"statuses"`
}

type userResponse struct {
	User User `json:"user"`
}
