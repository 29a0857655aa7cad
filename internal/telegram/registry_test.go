package telegram

import (
	"os"
	"testing"

	"clickbot/internal/logger"

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

func noopHandler(tele.Context) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()

	reg.RegisterCommand("/menu", Command{Handler: noopHandler, Description: "menu"})
	reg.RegisterCommand("menu", Command{Handler: noopHandler, Description: "no slash"})
	reg.RegisterCommand("/nodesc", Command{Handler: noopHandler})
	reg.RegisterCommand("/menu", Command{Handler: noopHandler, Description: "duplicate"})

	assert.Len(t, reg.Commands(), 1)
}

func TestListCommandsHidesAdminAndHidden(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/menu", Command{Handler: noopHandler, Description: "menu"})
	reg.RegisterCommand("/stats", Command{Handler: noopHandler, Description: "stats", AdminOnly: true, Hidden: true})

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/menu", visible[0].Text)

	assert.Len(t, reg.ListCommands(false), 2)
}

func TestLookupCommandAliases(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/menu", Command{Handler: noopHandler, Description: "menu", Aliases: []string{"m"}})

	key, _, ok := reg.LookupCommand("/menu")
	require.True(t, ok)
	assert.Equal(t, "/menu", key)

	key, _, ok = reg.LookupCommand("/m")
	require.True(t, ok)
	assert.Equal(t, "/menu", key)

	_, _, ok = reg.LookupCommand("/nope")
	assert.False(t, ok)
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.RegisterCallback("team", noopHandler))
	assert.Error(t, reg.RegisterCallback("team", noopHandler), "duplicate keys are rejected")
	assert.Error(t, reg.RegisterCallback("", noopHandler))

	_, ok := reg.GetCallback("team")
	assert.True(t, ok)
	_, ok = reg.GetCallback("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"team"}, reg.ListCallbacks())
}
