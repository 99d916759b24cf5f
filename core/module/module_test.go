package module

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestDependencies_Snapshot(t *testing.T) {
	src := map[string]Module{"foo": english{}}
	deps := NewDependencies(src)
	src["bar"] = english{}

	assert.Equal(t, 1, deps.Len())
	_, ok := deps.Get("bar")
	assert.False(t, ok, "snapshot must not observe later writes to the source map")
	assert.Equal(t, []string{"foo"}, deps.Aliases())
}

func TestRequire(t *testing.T) {
	deps := NewDependencies(map[string]Module{"greeter": english{}, "number": 42})

	g, err := Require[greeter](deps, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())

	_, err = Require[greeter](deps, "session")
	assert.True(t, errors.Is(err, ErrMissingDependency))

	_, err = Require[greeter](deps, "number")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingDependency))
	assert.Contains(t, err.Error(), "number")
}

func TestDecode(t *testing.T) {
	var c struct {
		Path string `json:"path"`
	}
	require.NoError(t, Decode(map[string]any{"path": "modai.db"}, &c))
	assert.Equal(t, "modai.db", c.Path)

	var bad struct {
		Count int `json:"count"`
	}
	assert.Error(t, Decode(map[string]any{"count": []string{"x"}}, &bad))
}
