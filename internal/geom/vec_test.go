package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Vec3{}, Vec3{X: 3, Y: 4}), 1e-9)
	assert.InDelta(t, 5.0, Distance2D(Vec3{Z: 10}, Vec3{X: 3, Y: 4}), 1e-9)
	assert.True(t, Within(Vec3{}, Vec3{X: 3, Y: 4}, 5))
	assert.False(t, Within(Vec3{}, Vec3{X: 3, Y: 4}, 4.9))
}

func TestMoveTowardsStopsAtTarget(t *testing.T) {
	target := Vec3{X: 10}
	got := MoveTowards(Vec3{}, target, 4)
	assert.InDelta(t, 4.0, got.X, 1e-9)
	assert.Equal(t, target, MoveTowards(got, target, 100))
}

func TestSegmentIntersectsBox(t *testing.T) {
	min := Vec3{X: 4, Y: -1, Z: -1}
	max := Vec3{X: 6, Y: 1, Z: 1}
	assert.True(t, SegmentIntersectsBox(Vec3{}, Vec3{X: 10}, min, max))
	assert.False(t, SegmentIntersectsBox(Vec3{}, Vec3{X: 3}, min, max))
	assert.False(t, SegmentIntersectsBox(Vec3{Y: 5}, Vec3{X: 10, Y: 5}, min, max))
}
