package usersettings

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/modai/core/module"
)

// testStoreContract runs the behaviour every Store implementation must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty user", func(t *testing.T) {
		s := newStore(t)
		all, err := s.Settings(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, all)
		one, err := s.ModuleSettings(ctx, "u1", "theme")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, one)
		has, err := s.HasSettings(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("update merges module names", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateSettings(ctx, "u1", Settings{
			"theme": {"mode": "dark"},
			"chat":  {"model": "gpt-4o", "temperature": 0.5},
		})
		require.NoError(t, err)

		all, err := s.UpdateSettings(ctx, "u1", Settings{"theme": {"mode": "light"}})
		require.NoError(t, err)
		assert.Equal(t, Settings{
			"theme": {"mode": "light"},
			"chat":  {"model": "gpt-4o", "temperature": 0.5},
		}, all)

		has, err := s.HasSettings(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("module update replaces the object", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateModuleSettings(ctx, "u1", "chat", map[string]any{"model": "a", "stream": true})
		require.NoError(t, err)
		got, err := s.UpdateModuleSettings(ctx, "u1", "chat", map[string]any{"model": "b"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"model": "b"}, got)

		read, err := s.ModuleSettings(ctx, "u1", "chat")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"model": "b"}, read)

		nested, err := s.UpdateModuleSettings(ctx, "u1", "ui", map[string]any{"panels": []any{"left", map[string]any{"w": 2.0}}})
		require.NoError(t, err)
		assert.Equal(t, []any{"left", map[string]any{"w": 2.0}}, nested["panels"])
	})

	t.Run("users are isolated", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateModuleSettings(ctx, "u1", "theme", map[string]any{"mode": "dark"})
		require.NoError(t, err)
		other, err := s.Settings(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("returned maps are copies", func(t *testing.T) {
		s := newStore(t)
		in := map[string]any{"mode": "dark"}
		out, err := s.UpdateModuleSettings(ctx, "u1", "theme", in)
		require.NoError(t, err)
		in["mode"] = "changed"
		out["mode"] = "changed"
		read, err := s.ModuleSettings(ctx, "u1", "theme")
		require.NoError(t, err)
		assert.Equal(t, "dark", read["mode"])
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateSettings(ctx, "u1", Settings{"a": {"x": 1.0}, "b": {"y": 2.0}})
		require.NoError(t, err)

		require.NoError(t, s.DeleteModuleSettings(ctx, "u1", "a"))
		all, err := s.Settings(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, Settings{"b": {"y": 2.0}}, all)

		require.NoError(t, s.DeleteSettings(ctx, "u1"))
		has, err := s.HasSettings(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, has)

		assert.NoError(t, s.DeleteSettings(ctx, "nobody"))
		assert.NoError(t, s.DeleteModuleSettings(ctx, "nobody", "a"))
	})

	t.Run("invalid keys", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Settings(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidUserID)
		_, err = s.ModuleSettings(ctx, "u1", "")
		assert.ErrorIs(t, err, ErrInvalidModuleName)
		_, err = s.UpdateSettings(ctx, "u1", Settings{" ": {}})
		assert.ErrorIs(t, err, ErrInvalidModuleName)
		_, err = s.UpdateModuleSettings(ctx, "", "theme", nil)
		assert.ErrorIs(t, err, ErrInvalidUserID)
		assert.ErrorIs(t, s.DeleteSettings(ctx, ""), ErrInvalidUserID)
		_, err = s.HasSettings(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})
}

func TestInMemoryStore(t *testing.T) {
	testStoreContract(t, func(*testing.T) Store { return NewInMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.UpdateModuleSettings(ctx, "u1", "theme", map[string]any{"mode": "dark"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.ModuleSettings(ctx, "u1", "theme")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mode": "dark"}, got)
}

func TestStoreConstructors(t *testing.T) {
	m, err := NewInMemory(module.NewDependencies(nil), map[string]any{})
	require.NoError(t, err)
	_, ok := m.(Store)
	assert.True(t, ok)

	m, err = NewSQLite(module.NewDependencies(nil), map[string]any{"path": ":memory:"})
	require.NoError(t, err)
	_, ok = m.(Store)
	assert.True(t, ok)
	closer, ok := m.(io.Closer)
	require.True(t, ok)
	assert.NoError(t, closer.Close())
}
