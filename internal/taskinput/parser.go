// Package taskinput turns free-text Telegram messages into structured
// task creation requests.
package taskinput

import (
	"math"
	"strconv"
	"strings"
)

// Recognized line prefixes. Lines carrying them are extracted wherever they
// appear and never count toward title or description.
const (
	prefixTags       = "tags:"
	prefixPriority   = "pr:"
	prefixPoints     = "sp:"
	prefixCategories = "tc:"
)

// validCategories is the fixed set of technical-category labels.
var validCategories = map[string]struct{}{
	"front":     {},
	"back":      {},
	"product":   {},
	"devops":    {},
	"design":    {},
	"wordpress": {},
}

// Task is the parsed form of a task creation message.
type Task struct {
	Title       string
	Description string
	Tags        []string
	// Priority is kept free-form; mapping to API levels is the caller's concern.
	Priority string
	// Points is nil when absent and NaN when present but non-numeric;
	// callers must guard with math.IsNaN before use.
	Points            *float64
	Categories        []string
	InvalidCategories []string
}

// Valid reports whether the input had at least a title and no unknown
// category labels.
func (t Task) Valid() bool {
	return t.Title != "" && len(t.InvalidCategories) == 0
}

// Parse extracts a Task from multi-line free text. The first plain line is
// the title; the second plain line is the description, falling back to the
// title when absent.
func Parse(text string) Task {
	task := Task{Priority: "normal"}

	var plain []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, prefixTags):
			task.Tags = splitCSV(strings.TrimPrefix(line, prefixTags))
		case strings.HasPrefix(line, prefixPriority):
			task.Priority = strings.TrimSpace(strings.TrimPrefix(line, prefixPriority))
		case strings.HasPrefix(line, prefixPoints):
			task.Points = parsePoints(strings.TrimSpace(strings.TrimPrefix(line, prefixPoints)))
		case strings.HasPrefix(line, prefixCategories):
			task.Categories, task.InvalidCategories = splitCategories(strings.TrimPrefix(line, prefixCategories))
		default:
			plain = append(plain, line)
		}
	}

	if len(plain) > 0 {
		task.Title = plain[0]
	}
	if len(plain) > 1 {
		task.Description = plain[1]
	} else {
		task.Description = task.Title
	}
	return task
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitCategories(raw string) (valid, invalid []string) {
	for _, label := range splitCSV(raw) {
		if _, ok := validCategories[label]; ok {
			valid = append(valid, label)
		} else {
			invalid = append(invalid, label)
		}
	}
	return valid, invalid
}

func parsePoints(raw string) *float64 {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		value = math.NaN()
	}
	return &value
}
