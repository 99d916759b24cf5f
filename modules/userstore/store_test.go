package userstore

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

	t.Run("create and fetch", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, "admin@example.com", "Administrator")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.False(t, u.CreatedAt.IsZero())

		byID, err := s.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", byID.Email)
		assert.Equal(t, "Administrator", byID.FullName)

		byEmail, err := s.UserByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("duplicate and invalid email", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CreateUser(ctx, "user@example.com", "")
		require.NoError(t, err)
		_, err = s.CreateUser(ctx, "user@example.com", "Other")
		assert.ErrorIs(t, err, ErrEmailTaken)
		_, err = s.CreateUser(ctx, "not-an-email", "")
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UserByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UserByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateUser(ctx, "missing", UserUpdate{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, "missing"), ErrNotFound)
		assert.ErrorIs(t, s.SetPassword(ctx, "missing", "hash"), ErrNotFound)
		_, err = s.Credentials(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list with pagination", func(t *testing.T) {
		s := newStore(t)
		for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			_, err := s.CreateUser(ctx, e, "")
			require.NoError(t, err)
		}
		all, err := s.ListUsers(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "a@example.com", all[0].Email)

		page, err := s.ListUsers(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "b@example.com", page[0].Email)

		empty, err := s.ListUsers(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("update", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, "old@example.com", "Old")
		require.NoError(t, err)
		_, err = s.CreateUser(ctx, "taken@example.com", "")
		require.NoError(t, err)

		name := "New"
		email := "new@example.com"
		updated, err := s.UpdateUser(ctx, u.ID, UserUpdate{Email: &email, FullName: &name})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", updated.Email)
		assert.Equal(t, "New", updated.FullName)

		_, err = s.UserByEmail(ctx, "old@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		taken := "taken@example.com"
		_, err = s.UpdateUser(ctx, u.ID, UserUpdate{Email: &taken})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("credentials", func(t *testing.T) {
		s := newStore(t)
		u, err := s.CreateUser(ctx, "pw@example.com", "")
		require.NoError(t, err)
		require.NoError(t, s.SetPassword(ctx, u.ID, "hash-1"))
		require.NoError(t, s.SetPassword(ctx, u.ID, "hash-2"))

		c, err := s.Credentials(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, c.UserID)
		assert.Equal(t, "hash-2", c.PasswordHash)

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		_, err = s.Credentials(ctx, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UserByID(ctx, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInMemoryStore(t *testing.T) {
	testStoreContract(t, func(*testing.T) Store { return NewInMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	u, err := s.CreateUser(ctx, "keep@example.com", "Keep")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.FullName)
}

func TestModuleConstructors(t *testing.T) {
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

	_, err = NewSQLite(module.NewDependencies(nil), map[string]any{"path": []int{1}})
	assert.Error(t, err)
}
