// Package mdps implements the Motor-Driver & Power Subsystem state machine
// (C8): it consumes NAVCON's navigation instructions, drives the Wheels
// kinematics integrator, and reports motion telemetry back to SNC.
package mdps

import (
	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
	"github.com/reinhardtvbm/marv-harness/internal/kinematics"
	"github.com/reinhardtvbm/marv-harness/internal/packet"
)

// SystemState mirrors snc.SystemState; MDPS keeps its own copy rather than
// importing snc to avoid a cross-subsystem dependency the real hardware
// doesn't have either.
type SystemState int

const (
	Idle SystemState = iota
	Calibrate
	Maze
	Sos
)

// MDPS owns the Wheels integrator and the channel endpoints that connect it
// to SNC (packets) and the pose computer (speed samples).
type MDPS struct {
	inbox  *fabric.Port[packet.Packet]
	out    *fabric.Fanout[packet.Packet]
	speeds *fabric.Port[kinematics.Speeds]

	geo    *config.Geometry
	wheels *kinematics.Wheels

	operationalVelocity uint8
	state               SystemState
}

// New creates an MDPS wired to its inbox, a fanout reaching SNC and SS, and
// the speeds port the pose computer reads.
func New(geo *config.Geometry, inbox *fabric.Port[packet.Packet], out *fabric.Fanout[packet.Packet], speeds *fabric.Port[kinematics.Speeds]) *MDPS {
	return &MDPS{
		inbox:  inbox,
		out:    out,
		speeds: speeds,
		geo:    geo,
		wheels: kinematics.NewWheels(geo),
		state:  Idle,
	}
}

func (m *MDPS) waitFor(tag packet.ControlByte) (packet.Packet, bool) {
	for {
		p, ok := m.inbox.Receive()
		if !ok {
			return packet.Packet{}, false
		}
		if p.Control == tag {
			return p, true
		}
	}
}

// Run drives the MDPS lifecycle to completion, returning on channel
// closure or MazeEndOfMaze.
func (m *MDPS) Run() {
	m.state = Idle
	for {
		switch m.state {
		case Idle:
			p, ok := m.waitFor(packet.IdleButton)
			if !ok {
				return
			}
			if p.D1 != 1 {
				continue
			}
			m.operationalVelocity = p.D0
			m.state = Calibrate

		case Calibrate:
			if !m.runCalibrate() {
				return
			}
			m.state = Maze

		case Maze:
			done, ok := m.mazeStep()
			if !ok {
				return
			}
			if done {
				return
			}

		case Sos:
			if !m.runSos() {
				return
			}
			m.state = Maze
		}
	}
}

// runCalibrate is the Calibrate state's wait/emit loop (spec.md §4.8):
// announce readiness, then keep re-announcing battery level on every
// CalibrateColours until CalibrateButton(d1=1) ends the loop.
func (m *MDPS) runCalibrate() bool {
	if _, ok := m.waitFor(packet.Calibrated); !ok {
		return false
	}
	v := m.operationalVelocity
	m.out.Send(packet.New(packet.CalibrateOperationalVelocity, v, v, 0))
	m.out.Send(packet.New(packet.CalibrateBatteryLevel, 0, 0, 0))

	for {
		p, ok := m.inbox.Receive()
		if !ok {
			return false
		}
		switch p.Control {
		case packet.CalibrateColours:
			m.out.Send(packet.New(packet.CalibrateBatteryLevel, 0, 0, 0))
		case packet.CalibrateButton:
			if p.D1 == 1 {
				return true
			}
		}
	}
}

// mazeStep reads and dispatches one Maze-state packet. ok is false only on
// channel closure; done is true once MazeEndOfMaze ends the run.
func (m *MDPS) mazeStep() (done bool, ok bool) {
	p, ok := m.inbox.Receive()
	if !ok {
		return false, false
	}

	switch p.Control {
	case packet.MazeClapSnap:
		if p.D1 == 1 {
			m.state = Sos
		}
		return false, true
	case packet.MazeButton:
		if p.D1 == 1 {
			m.state = Idle
		}
		return false, true
	case packet.MazeEndOfMaze:
		return true, true
	case packet.MazeNavInstructions:
		m.handleNavInstruction(p)
		return false, true
	default:
		return false, true
	}
}

// handleNavInstruction applies one MazeNavInstructions packet: sets wheel
// speeds per subcode, integrates kinematics, completes any in-progress
// rotation, then emits the four fixed-order telemetry packets (spec.md §4.8).
func (m *MDPS) handleNavInstruction(p packet.Packet) {
	v := int16(m.operationalVelocity)
	rotating := false

	switch p.Dec {
	case 0:
		m.wheels.SetLeftWheelSpeed(int16(p.D1))
		m.wheels.SetRightWheelSpeed(int16(p.D0))
	case 1:
		m.wheels.SetLeftWheelSpeed(-int16(p.D1))
		m.wheels.SetRightWheelSpeed(-int16(p.D0))
	case 2:
		m.wheels.SetLeftWheelSpeed(v)
		m.wheels.SetRightWheelSpeed(-v)
		rotating = true
	case 3:
		m.wheels.SetLeftWheelSpeed(-v)
		m.wheels.SetRightWheelSpeed(v)
		rotating = true
	}

	m.wheels.UpdateDistance()

	if rotating {
		target := uint16(p.D1)<<8 | uint16(p.D0)
		for m.wheels.GetRotation() < target {
			m.wheels.UpdateDistance()
			m.emitSpeedSample()
		}
	}

	m.emitSpeedSample()
	m.emitTelemetry()
}

func (m *MDPS) emitSpeedSample() {
	m.speeds.Send(kinematics.Speeds{Left: m.wheels.LeftSpeed(), Right: m.wheels.RightSpeed()})
}

// emitTelemetry emits the four fixed-order telemetry packets (battery
// level, rotation, speeds, distance). MazeRotation is
// the one packet that deviates from the rest of the protocol's (msb, lsb)
// byte order: spec.md §4.8/§6 pin it to (lsb, msb, dir).
func (m *MDPS) emitTelemetry() {
	m.out.Send(packet.New(packet.MazeBatteryLevel, 0, 0, 0))

	rotMsb, rotLsb := packet.WordBytes(m.wheels.GetRotation())
	dir := uint8(3)
	if m.wheels.LeftRotation() {
		dir = 2
	}
	m.out.Send(packet.New(packet.MazeRotation, rotLsb, rotMsb, dir))

	dirCode := uint8(1)
	if m.wheels.GoingForward() {
		dirCode = 0
	}
	m.out.Send(packet.New(packet.MazeSpeeds, m.wheels.GetLeftWheelSpeed(), m.wheels.GetRightWheelSpeed(), dirCode))

	distMsb, distLsb := packet.WordBytes(m.wheels.GetDistance())
	m.out.Send(packet.New(packet.MazeDistance, distMsb, distLsb, 0))
}

// runSos zeroes the wheels, announces SOS speed, and waits for
// SosClapSnap(d1=1) to return to Maze.
func (m *MDPS) runSos() bool {
	m.wheels.SetLeftWheelSpeed(0)
	m.wheels.SetRightWheelSpeed(0)
	m.out.Send(packet.New(packet.SosSpeed, 0, 0, 0))

	for {
		p, ok := m.waitFor(packet.SosClapSnap)
		if !ok {
			return false
		}
		if p.D1 == 1 {
			return true
		}
	}
}

// State reports MDPS's current lifecycle state, for tests.
func (m *MDPS) State() SystemState { return m.state }
