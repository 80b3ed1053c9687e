package flowengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetVar_RoundTrip(t *testing.T) {
	vars := map[string]any{}

	vars, err := SetVar(vars, "user.profile.name", "ada")
	require.NoError(t, err)

	v, err := GetVar(vars, "user.profile.name")
	require.NoError(t, err)
	assert.Equal(t, "ada", v)
}

func TestGetVar_MissingPath(t *testing.T) {
	v, err := GetVar(map[string]any{"a": 1}, "b.c")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSetVar_Nested(t *testing.T) {
	vars := map[string]any{"counters": map[string]any{"visits": float64(1)}}
	vars, err := SetVar(vars, "counters.visits", float64(2))
	require.NoError(t, err)

	v, err := GetVar(vars, "counters.visits")
	require.NoError(t, err)
	assert.Equal(t, float64(2), v)
}
