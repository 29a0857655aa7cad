package taskinput

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullMessage(t *testing.T) {
	task := Parse("Fix login bug\nHandles OAuth edge case\ntags: auth, urgent\npr: high\nsp: 3\ntc: front, back")

	assert.Equal(t, "Fix login bug", task.Title)
	assert.Equal(t, "Handles OAuth edge case", task.Description)
	assert.Equal(t, []string{"auth", "urgent"}, task.Tags)
	assert.Equal(t, "high", task.Priority)
	require.NotNil(t, task.Points)
	assert.Equal(t, 3.0, *task.Points)
	assert.Equal(t, []string{"front", "back"}, task.Categories)
	assert.Empty(t, task.InvalidCategories)
	assert.True(t, task.Valid())
}

func TestParseInvalidCategoryAmongValid(t *testing.T) {
	task := Parse("Quick task\ntc: front, bogus")

	assert.Equal(t, []string{"front"}, task.Categories)
	assert.Equal(t, []string{"bogus"}, task.InvalidCategories)
}

func TestParseTitleOnly(t *testing.T) {
	task := Parse("Ship the release")

	assert.Equal(t, "Ship the release", task.Title)
	assert.Equal(t, "Ship the release", task.Description, "description falls back to the title")
	assert.Equal(t, "normal", task.Priority)
	assert.Nil(t, task.Points)
	assert.True(t, task.Valid())
}

func TestParsePrefixLinesAnywhere(t *testing.T) {
	task := Parse(`pr: high
The actual title
tags: infra
The actual description`)

	assert.Equal(t, "The actual title", task.Title)
	assert.Equal(t, "The actual description", task.Description)
	assert.Equal(t, "high", task.Priority)
	assert.Equal(t, []string{"infra"}, task.Tags)
}

func TestParseBlankAndPaddedLines(t *testing.T) {
	task := Parse("\n  Title with padding  \n\n\n tags:  a ,  , b \n")

	assert.Equal(t, "Title with padding", task.Title)
	assert.Equal(t, []string{"a", "b"}, task.Tags)
}

func TestParseNonNumericPoints(t *testing.T) {
	task := Parse("Some task\nsp: many")

	require.NotNil(t, task.Points)
	assert.True(t, math.IsNaN(*task.Points))
}

func TestParseUnknownCategories(t *testing.T) {
	task := Parse("Some task\ntc: front, mobile, qa")

	assert.Equal(t, []string{"front"}, task.Categories)
	assert.Equal(t, []string{"mobile", "qa"}, task.InvalidCategories)
	assert.False(t, task.Valid())
}

func TestParseEmptyInput(t *testing.T) {
	task := Parse("")

	assert.Empty(t, task.Title)
	assert.False(t, task.Valid())
}

func TestParseOnlyMetadata(t *testing.T) {
	task := Parse("tags: a\npr: low")

	assert.Empty(t, task.Title)
	assert.False(t, task.Valid(), "metadata without a title is not a task")
}
