package oncall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayer_CurrentResponder_WeeklyRotation(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // a Monday
	l := layer{
		Position:      0,
		Responders:    []string{"alice", "bob", "carol"},
		RotationType:  "weekly",
		RotationStart: start,
	}

	responder, ok := l.currentResponder(start)
	require.True(t, ok)
	assert.Equal(t, "alice", responder)

	responder, ok = l.currentResponder(start.Add(8 * 24 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "bob", responder)

	responder, ok = l.currentResponder(start.Add(15 * 24 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "carol", responder)

	// wraps back around after three full periods
	responder, ok = l.currentResponder(start.Add(22 * 24 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "alice", responder)
}

func TestLayer_CurrentResponder_BeforeRotationStart(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	l := layer{
		Responders:    []string{"alice", "bob"},
		RotationType:  "daily",
		RotationStart: start,
	}

	responder, ok := l.currentResponder(start.Add(-25 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, "alice", responder)
}

func TestLayer_CurrentResponder_NoResponders(t *testing.T) {
	l := layer{RotationType: "weekly", RotationStart: time.Now()}
	_, ok := l.currentResponder(time.Now())
	assert.False(t, ok)
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(2), floorDiv(7, 3))
	assert.Equal(t, int64(-3), floorDiv(-7, 3))
	assert.Equal(t, int64(-1), floorDiv(-1, 3))
	assert.Equal(t, int64(0), floorDiv(0, 3))
}
