package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackDataUniqueSet(t *testing.T) {
	key, payload := ParseCallbackData(&tele.Callback{Unique: "team", Data: "t1"})
	assert.Equal(t, "team", key)
	assert.Equal(t, "t1", payload)
}

func TestParseCallbackDataRawEncoding(t *testing.T) {
	key, payload := ParseCallbackData(&tele.Callback{Data: "\\flist|abc123"})
	assert.Equal(t, "list", key)
	assert.Equal(t, "abc123", payload)
}

func TestParseCallbackDataNoPayload(t *testing.T) {
	key, payload := ParseCallbackData(&tele.Callback{Data: "\\fmenu"})
	assert.Equal(t, "menu", key)
	assert.Empty(t, payload)
}

func TestParseCallbackDataNil(t *testing.T) {
	key, payload := ParseCallbackData(nil)
	assert.Empty(t, key)
	assert.Empty(t, payload)
}

func TestInlineButtonsNPerRow(t *testing.T) {
	buttons := []InlineBtn{
		{Text: "a", Unique: "u"},
		{Text: "b", Unique: "u"},
		{Text: "c", Unique: "u"},
	}

	markup := InlineButtonsNPerRow(buttons, 2)
	assert.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 1)

	markup = InlineButtonsNPerRow(buttons, 1)
	assert.Len(t, markup.InlineKeyboard, 3)
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "start", normalizeHandlerName("/start"))
	assert.Equal(t, "my_handler", normalizeHandlerName("My Handler"))
	assert.Equal(t, "unknown", normalizeHandlerName("  "))
}
