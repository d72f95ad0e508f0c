package kinematics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/reinhardtvbm/marv-harness/internal/config"
)

// Wheels models the differential-drive kinematics of MARV's motor driver:
// two signed wheel speeds (mm/s) and the odometer/rotation accumulators
// they integrate into over time.
type Wheels struct {
	leftSpeed  int16
	rightSpeed int16

	leftDistance  float64
	rightDistance float64
	totalDistance float64
	rotation      float64

	axleDist float64
	lastTick time.Time
}

// NewWheels returns a zeroed Wheels for the given axle length (mm).
func NewWheels(geo *config.Geometry) *Wheels {
	return &Wheels{axleDist: geo.AxleDist, lastTick: time.Now()}
}

func (w *Wheels) SetLeftWheelSpeed(speed int16)  { w.leftSpeed = speed }
func (w *Wheels) SetRightWheelSpeed(speed int16) { w.rightSpeed = speed }

func (w *Wheels) LeftSpeed() int16  { return w.leftSpeed }
func (w *Wheels) RightSpeed() int16 { return w.rightSpeed }

// GetLeftWheelSpeed and GetRightWheelSpeed return the unsigned magnitude of
// each wheel's current speed, as placed on the wire in a MazeSpeeds packet.
func (w *Wheels) GetLeftWheelSpeed() uint8  { return absUint8(w.leftSpeed) }
func (w *Wheels) GetRightWheelSpeed() uint8 { return absUint8(w.rightSpeed) }

func absUint8(v int16) uint8 {
	if v < 0 {
		v = -v
	}
	return uint8(v)
}

// GoingForward reports whether the average of the two wheel speeds is
// positive.
func (w *Wheels) GoingForward() bool {
	return (int(w.leftSpeed)+int(w.rightSpeed))/2 > 0
}

// LeftRotation reports whether the right wheel is driving forward, which is
// counted as a left rotation (a turn driven purely by the right wheel pivots
// left). It is also true for straight-ahead motion.
func (w *Wheels) LeftRotation() bool {
	return w.rightSpeed > 0
}

// GetDistance returns the magnitude of total distance travelled, in mm.
func (w *Wheels) GetDistance() uint16 {
	return uint16(math.Abs(w.totalDistance))
}

// GetRotation returns the magnitude of accumulated rotation, in whole
// degrees, rounded down.
func (w *Wheels) GetRotation() uint16 {
	return uint16(math.Floor(math.Abs(w.rotation) * (180.0 / math.Pi)))
}

// UpdateDistance integrates wheel speeds over the time elapsed since the
// last call by the rectangle rule. If both wheel speeds are zero this
// models a brake-stop: every accumulator resets to zero instead of
// integrating.
func (w *Wheels) UpdateDistance() {
	now := time.Now()
	dt := now.Sub(w.lastTick).Seconds()
	w.lastTick = now

	if w.leftSpeed == 0 && w.rightSpeed == 0 {
		w.leftDistance = 0
		w.rightDistance = 0
		w.totalDistance = 0
		w.rotation = 0
		return
	}

	left := float64(w.leftSpeed)
	right := float64(w.rightSpeed)

	linear := floats.Sum([]float64{left, right}) / 2.0
	angular := (right - left) / w.axleDist

	w.leftDistance += dt * left
	w.rightDistance += dt * right
	w.totalDistance += dt * linear
	w.rotation += dt * angular
}
