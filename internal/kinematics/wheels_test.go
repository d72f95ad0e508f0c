package kinematics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reinhardtvbm/marv-harness/internal/config"
)

func geo() *config.Geometry {
	return &config.Geometry{AxleDist: 100}
}

// TestStraightLineWorkedExample pins spec.md §8 scenario 5's first leg:
// axle=100mm, left=right=100mm/s, after 1s total_distance≈100mm and
// rotation≈0.
func TestStraightLineWorkedExample(t *testing.T) {
	w := NewWheels(geo())
	w.lastTick = time.Now().Add(-1 * time.Second)
	w.SetLeftWheelSpeed(100)
	w.SetRightWheelSpeed(100)

	w.UpdateDistance()

	assert.InDelta(t, 100.0, w.totalDistance, 2.0)
	assert.InDelta(t, 0.0, w.rotation, 0.01)
	assert.Equal(t, uint16(100), w.GetDistance())
}

// TestPivotWorkedExample pins a pivot: axle=100mm, left=-50, right=50, so
// the rotation rate (right-left)/axle is 1 rad/s; after 1s rotation≈1 rad
// and GetRotation()==57 degrees.
func TestPivotWorkedExample(t *testing.T) {
	w := NewWheels(geo())
	w.lastTick = time.Now().Add(-1 * time.Second)
	w.SetLeftWheelSpeed(-50)
	w.SetRightWheelSpeed(50)

	w.UpdateDistance()

	assert.InDelta(t, 1.0, w.rotation, 0.02)
	assert.Equal(t, uint16(57), w.GetRotation())
}

func TestZeroSpeedResetsAllAccumulators(t *testing.T) {
	w := NewWheels(geo())
	w.lastTick = time.Now().Add(-1 * time.Second)
	w.SetLeftWheelSpeed(50)
	w.SetRightWheelSpeed(50)
	w.UpdateDistance()
	assert.NotZero(t, w.totalDistance)

	w.SetLeftWheelSpeed(0)
	w.SetRightWheelSpeed(0)
	w.UpdateDistance()

	assert.Zero(t, w.leftDistance)
	assert.Zero(t, w.rightDistance)
	assert.Zero(t, w.totalDistance)
	assert.Zero(t, w.rotation)
}

func TestGoingForwardAndLeftRotation(t *testing.T) {
	w := NewWheels(geo())
	w.SetLeftWheelSpeed(80)
	w.SetRightWheelSpeed(80)
	assert.True(t, w.GoingForward())
	assert.True(t, w.LeftRotation())

	w.SetLeftWheelSpeed(80)
	w.SetRightWheelSpeed(-80)
	assert.False(t, w.GoingForward())
	assert.False(t, w.LeftRotation())
}

func TestGetLeftRightWheelSpeedMagnitude(t *testing.T) {
	w := NewWheels(geo())
	w.SetLeftWheelSpeed(-42)
	w.SetRightWheelSpeed(42)
	assert.Equal(t, uint8(42), w.GetLeftWheelSpeed())
	assert.Equal(t, uint8(42), w.GetRightWheelSpeed())
}
