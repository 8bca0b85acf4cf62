package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockIsMonotonic(t *testing.T) {
	clock := NewManualClock(time.Second)
	assert.Equal(t, time.Second, clock.Now())
	clock.Advance(500 * time.Millisecond)
	clock.Advance(-time.Hour)
	assert.Equal(t, 1500*time.Millisecond, clock.Now())
}

func TestReactionClassification(t *testing.T) {
	assert.True(t, ReactionHostile.Hostile())
	assert.False(t, ReactionNeutral.Hostile())
	assert.False(t, ReactionNeutral.Friendly())
	assert.True(t, Reaction(7).Friendly())
	assert.False(t, Reaction(0).Hostile())
}

func TestResourceFlagsHas(t *testing.T) {
	flags := ResourceHerb | ResourceTreasure
	assert.True(t, flags.Has(ResourceHerb))
	assert.False(t, flags.Has(ResourceOre))
	assert.False(t, flags.Has(0))
}
