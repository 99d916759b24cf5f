package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/modules/session"
	"github.com/kilianp07/modai/modules/userstore"
)

func setup(t *testing.T) (chi.Router, *session.JWTManager, *userstore.InMemoryStore) {
	t.Helper()
	sessions, err := session.NewJWTManager(session.Config{JWTSecret: "secret"})
	require.NoError(t, err)
	users := userstore.NewInMemoryStore()
	m, err := New(module.NewDependencies(map[string]module.Module{
		"session":    sessions,
		"user_store": users,
	}), nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	m.(module.WebModule).RegisterRoutes(r)
	return r, sessions, users
}

func authed(t *testing.T, sessions *session.JWTManager, userID string) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Start(rec, userID, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCurrentUser(t *testing.T) {
	r, sessions, users := setup(t)
	u, err := users.CreateUser(context.Background(), "admin@example.com", "Admin")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authed(t, sessions, u.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var got userstore.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "admin@example.com", got.Email)
}

func TestCurrentUser_Errors(t *testing.T) {
	r, sessions, _ := setup(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authed(t, sessions, "deleted"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(module.NewDependencies(nil), nil)
	assert.ErrorIs(t, err, module.ErrMissingDependency)
}
