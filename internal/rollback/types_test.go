/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPointIDFormat(t *testing.T) {
	idPattern := regexp.MustCompile(`^rb-[0-9a-f]{12}$`)

	for i := 0; i < 50; i++ {
		id, err := NewPointID()
		require.NoError(t, err)
		assert.Regexp(t, idPattern, id)
	}
}

func TestNewPointIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewPointID()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestServiceStateTerminal(t *testing.T) {
	assert.True(t, StateHealthy.Terminal())
	assert.True(t, StateUnhealthy.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateStarted.Terminal())
	assert.False(t, StateHealthChecking.Terminal())
}

func TestWrapErrorCarriesContext(t *testing.T) {
	err := WrapError(ErrNotFound, "repository", "lookup failed", "web")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "repository", GetErrorComponent(err))
	assert.Equal(t, "web", GetErrorService(err))
	assert.Contains(t, err.Error(), "repository")
	assert.Contains(t, err.Error(), "web")
}
