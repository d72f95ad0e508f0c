package kinematics

import (
	"math"
	"time"

	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
)

// RobotPose is MARV's estimated position and heading in metres/radians,
// owned exclusively by the pose computer (C5). SNC, MDPS and SS never
// touch it directly — they only see the SensorPositions it derives.
type RobotPose struct {
	X, Y    float64
	Heading float64

	prevAngularVelocity float64
}

// NewRobotPose seeds a pose at the test's starting coordinate and heading.
func NewRobotPose(x, y, heading float64) *RobotPose {
	return &RobotPose{X: x, Y: y, Heading: heading}
}

// sensorRad is one (radius, angle-offset) pair describing where a colour
// probe sits relative to the robot's centre of rotation.
type sensorRad struct {
	radius      float64
	angleOffset float64
}

// SensorGeometry is the five fixed (radius, angle-offset) pairs computed
// once from the chassis geometry: sensor 2 is central, sensors 1/3 are the
// small-ISD inner pair, sensors 0/4 are the big-ISD outer pair.
type SensorGeometry struct {
	rads [5]sensorRad
}

// NewSensorGeometry derives the five sensor placements from the axle
// length and inter-sensor distances, all in mm, converting to metres for
// the trig.
func NewSensorGeometry(geo *config.Geometry) *SensorGeometry {
	axle := geo.AxleDist / 1000.0
	sISD := geo.SISD / 1000.0
	bISD := geo.BISD / 1000.0

	insideRad := math.Sqrt(axle*axle + sISD*sISD)
	outsideRad := math.Sqrt(axle*axle + (sISD+bISD)*(sISD+bISD))

	insideAngle := math.Asin(sISD / insideRad)
	outsideAngle := math.Asin((sISD + bISD) / outsideRad)

	return &SensorGeometry{rads: [5]sensorRad{
		{outsideRad, -outsideAngle},
		{insideRad, -insideAngle},
		{axle, 0},
		{insideRad, insideAngle},
		{outsideRad, outsideAngle},
	}}
}

// SensorPositions is the world-pixel coordinates of the five colour
// probes, in sensor-index order.
type SensorPositions [5][2]float64

// PoseComputer owns the RobotPose and derives SensorPositions from it on
// every wheel-speed sample it receives (C5). It is the only writer of
// RobotPose.
type PoseComputer struct {
	pose     *RobotPose
	geometry *SensorGeometry
	colWidth float64
	lastTick time.Time
}

// NewPoseComputer seeds the pose computer at the test's start pose.
func NewPoseComputer(geo *config.Geometry, startX, startY, startHeading float64) *PoseComputer {
	return &PoseComputer{
		pose:     NewRobotPose(startX, startY, startHeading),
		geometry: NewSensorGeometry(geo),
		colWidth: geo.MazeColWidth,
		lastTick: time.Now(),
	}
}

// Speeds is one wheel-speed sample reported by MDPS, mm/s.
type Speeds struct {
	Left, Right int16
}

// Advance integrates one Speeds sample into the pose (trapezoidal rule on
// angular velocity, rectangle rule on linear position using the updated
// heading) and returns the five sensor world positions derived from the
// new pose. Units: AxleDist is in mm, speeds are mm/s, so both are
// converted to metres before integrating; the emitted positions are
// scaled back up into maze pixels by colWidth/0.2.
func (pc *PoseComputer) Advance(geo *config.Geometry, s Speeds) SensorPositions {
	now := time.Now()
	dt := now.Sub(pc.lastTick).Seconds()
	pc.lastTick = now

	axle := geo.AxleDist / 1000.0
	left := float64(s.Left) / 1000.0
	right := float64(s.Right) / 1000.0

	angularVelocity := (right - left) / axle
	linearVelocity := (right + left) / 2.0

	pc.pose.Heading += dt * ((pc.pose.prevAngularVelocity + angularVelocity) / 2.0)
	pc.pose.X += dt * linearVelocity * math.Cos(pc.pose.Heading)
	pc.pose.Y += dt * linearVelocity * math.Sin(pc.pose.Heading)
	pc.pose.prevAngularVelocity = angularVelocity

	var positions SensorPositions
	scale := pc.colWidth / 0.2
	for i, r := range pc.geometry.rads {
		positions[i][0] = (pc.pose.X + r.radius*math.Cos(pc.pose.Heading+r.angleOffset)) * scale
		positions[i][1] = (pc.pose.Y + r.radius*math.Sin(pc.pose.Heading+r.angleOffset)) * scale
	}

	return positions
}

// Pose returns the current pose estimate (read-only snapshot).
func (pc *PoseComputer) Pose() RobotPose {
	return *pc.pose
}

// Run drives the pose computer's scheduling loop: receive one Speeds
// sample, advance the pose, emit the derived positions to every fanout
// target (SS and the GUI). It returns when speeds is closed, per
// spec.md §4.5's cancellation rule.
func (pc *PoseComputer) Run(geo *config.Geometry, speeds *fabric.Port[Speeds], positions *fabric.Fanout[SensorPositions]) {
	for {
		s, ok := speeds.Receive()
		if !ok {
			return
		}
		positions.Send(pc.Advance(geo, s))
	}
}
