package clickup

import "sort"

// Priority levels accepted by the API (1 is the most urgent).
var priorityLevels = map[string]int{
	"urgent": 1,
	"high":   2,
	"normal": 3,
	"low":    4,
}

// TechCategoryFieldID is the custom field holding technical categories.
const TechCategoryFieldID = "189f5936-c11c-49b7-a8ea-1e1adb970365"

// techCategoryOptions maps category labels to dropdown option IDs.
var techCategoryOptions = map[string]string{
	"front":     "bfa1e5b4-66fc-43d5-b6b3-a29936b4f7d1",
	"back":      "adfaeb52-e244-49a1-8244-a909c3f92236",
	"product":   "3971d9c3-581a-4ac1-a2a9-2e67f47739b0",
	"devops":    "6bfdb348-5a03-4009-ba97-0314a54a9f74",
	"design":    "a1b67c8a-1d58-433f-85a5-445161eb9f4a",
	"wordpress": "24cf18c1-9984-4be3-b507-4d7eb0523cb5",
}

// PriorityLevel maps a free-form priority label to its numeric API level.
// Unknown labels fall back to normal.
func PriorityLevel(label string) int {
	if level, ok := priorityLevels[label]; ok {
		return level
	}
	return priorityLevels["normal"]
}

// TechCategoryOption resolves a category label to its option ID.
func TechCategoryOption(label string) (string, bool) {
	id, ok := techCategoryOptions[label]
	return id, ok
}

// TaskURL builds the deep link shown to users after task creation.
func TaskURL(taskID string) string {
	return "https://app.clickup.com/t/" + taskID
}

// SortStatuses orders statuses ascending by their order index.
func SortStatuses(statuses []Status) {
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].OrderIndex < statuses[j].OrderIndex
	})
}

// DefaultStatus picks the status tracked by default for a freshly selected
// list: an "open"-typed status wins, then any "custom"-typed one, then the
// first available. Returns false when the list has no statuses.
func DefaultStatus(statuses []Status) (Status, bool) {
	if len(statuses) == 0 {
		return Status{}, false
	}
	for _, s := range statuses {
		if s.Type == "open" {
			return s, true
		}
	}
	for _, s := range statuses {
		if s.Type == "custom" {
			return s, true
		}
	}
	return statuses[0], true
}
