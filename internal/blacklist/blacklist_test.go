package blacklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mine-and-die/agent/internal/env"
)

func TestListExpiresEntries(t *testing.T) {
	clock := env.NewManualClock(0)
	list := New(clock)

	list.Add(7, 10*time.Second)
	assert.True(t, list.Contains(7))
	assert.False(t, list.Contains(8))

	clock.Advance(9 * time.Second)
	assert.True(t, list.Contains(7))

	clock.Advance(time.Second)
	assert.False(t, list.Contains(7))
	assert.Equal(t, 0, list.Len())
}

func TestListAddOnlyExtends(t *testing.T) {
	clock := env.NewManualClock(0)
	list := New(clock)

	list.Add(1, 30*time.Second)
	list.Add(1, 5*time.Second)
	clock.Advance(10 * time.Second)
	assert.True(t, list.Contains(1))
}

func TestListPrune(t *testing.T) {
	clock := env.NewManualClock(0)
	list := New(clock)
	list.Add(1, time.Second)
	list.Add(2, time.Minute)
	list.Add(3, 0)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, list.Prune())

	list.Remove(2)
	assert.False(t, list.Contains(2))
}
