package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, "scheduled", StatusScheduled.String())
	assert.Equal(t, "locked", StatusLocked.String())
	assert.Equal(t, "delivered", StatusDelivered.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "dead", StatusDead.String())
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusLocked.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.True(t, StatusDead.Terminal())
}

func TestValidTransition(t *testing.T) {
	assert.True(t, ValidTransition(StatusScheduled, StatusLocked))
	assert.True(t, ValidTransition(StatusLocked, StatusDelivered))
	assert.True(t, ValidTransition(StatusLocked, StatusError))
	assert.True(t, ValidTransition(StatusLocked, StatusDead))
	assert.True(t, ValidTransition(StatusLocked, StatusScheduled))

	// Terminal states have no outgoing edges.
	assert.False(t, ValidTransition(StatusDelivered, StatusScheduled))
	assert.False(t, ValidTransition(StatusError, StatusLocked))
	assert.False(t, ValidTransition(StatusDead, StatusScheduled))

	// Scheduled never jumps straight to a terminal state.
	assert.False(t, ValidTransition(StatusScheduled, StatusDelivered))
	assert.False(t, ValidTransition(StatusScheduled, StatusDead))
}
