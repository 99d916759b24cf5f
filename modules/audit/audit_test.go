package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
)

func TestLogModule_RetainsRecent(t *testing.T) {
	m := NewLogModule(Config{Retain: 2}, logger.NopLogger{})
	m.Publish(Event{Type: EventSignup, UserID: "1"})
	m.Publish(Event{Type: EventLogin, UserID: "1"})
	m.Publish(Event{Type: EventLogout, UserID: "1"})
	require.NoError(t, m.Close())

	recent := m.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, EventLogin, recent[0].Type)
	assert.Equal(t, EventLogout, recent[1].Type)
	assert.False(t, recent[0].Time.IsZero())
}

func TestLogModule_CloseTwice(t *testing.T) {
	m := NewLogModule(Config{}, logger.NopLogger{})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	m.Publish(Event{Type: EventLogin})
	assert.Empty(t, m.Recent())
}

func TestNewLog(t *testing.T) {
	mod, err := NewLog(module.NewDependencies(nil), map[string]any{"retain": "5"})
	require.NoError(t, err)
	lm, ok := mod.(*LogModule)
	require.True(t, ok)
	assert.Equal(t, 5, lm.retain)
	require.NoError(t, lm.Close())

	_, err = NewLog(module.NewDependencies(nil), map[string]any{"retain": "many"})
	assert.Error(t, err)
}
