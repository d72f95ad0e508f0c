// Package ss implements the Sensor Subsystem state machine (C9): it samples
// the maze's line colours under MARV's five probes, infers the incidence
// angle of whatever line it crosses, and reports both back to SNC.
package ss

import (
	"math"

	"github.com/reinhardtvbm/marv-harness/internal/colour"
	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
	"github.com/reinhardtvbm/marv-harness/internal/kinematics"
	"github.com/reinhardtvbm/marv-harness/internal/maze"
	"github.com/reinhardtvbm/marv-harness/internal/packet"
)

// SystemState mirrors snc.SystemState; kept local for the same reason MDPS
// keeps its own copy.
type SystemState int

const (
	Idle SystemState = iota
	Calibrate
	Maze
	Sos
)

// SS holds the latest sensor positions, the reference distance NAVCON's
// incidence inference depends on, and a read-only handle to the maze.
type SS struct {
	inbox     *fabric.Port[packet.Packet]
	out       *fabric.Fanout[packet.Packet]
	positions *fabric.Port[kinematics.SensorPositions]

	geo *config.Geometry
	m   *maze.LineMap
	cur kinematics.SensorPositions

	referenceDistance float64
	endOfMaze         bool
	state             SystemState
}

// New creates an SS seeded with the test's starting sensor positions.
func New(geo *config.Geometry, m *maze.LineMap, inbox *fabric.Port[packet.Packet], out *fabric.Fanout[packet.Packet], positions *fabric.Port[kinematics.SensorPositions], start kinematics.SensorPositions) *SS {
	return &SS{
		inbox:     inbox,
		out:       out,
		positions: positions,
		geo:       geo,
		m:         m,
		cur:       start,
		state:     Idle,
	}
}

func (s *SS) waitFor(tag packet.ControlByte) (packet.Packet, bool) {
	for {
		p, ok := s.inbox.Receive()
		if !ok {
			return packet.Packet{}, false
		}
		if p.Control == tag {
			return p, true
		}
	}
}

// Run drives the SS lifecycle to completion.
func (s *SS) Run() {
	s.state = Idle
	for {
		switch s.state {
		case Idle:
			p, ok := s.waitFor(packet.IdleButton)
			if !ok {
				return
			}
			if p.D1 != 1 {
				continue
			}
			s.state = Calibrate

		case Calibrate:
			if !s.runCalibrate() {
				return
			}
			s.state = Maze

		case Maze:
			done, ok := s.mazeTick()
			if !ok {
				return
			}
			if done {
				return
			}

		case Sos:
			// SS has no SOS duties of its own beyond the shared lifecycle;
			// it waits for MazeButton(d1=1) and then returns to Idle.
			p, ok := s.waitFor(packet.MazeButton)
			if !ok {
				return
			}
			if p.D1 == 1 {
				s.state = Idle
			}
		}
	}
}

// runCalibrate announces readiness and loops until CalibrateButton(d1=1),
// per spec.md §4.9.
func (s *SS) runCalibrate() bool {
	s.out.Send(packet.New(packet.Calibrated, 0, 0, 0))
	if _, ok := s.waitFor(packet.CalibrateBatteryLevel); !ok {
		return false
	}
	s.out.Send(packet.New(packet.CalibrateColours, 0, 0, 0))

	for {
		p, ok := s.waitFor(packet.CalibrateButton)
		if !ok {
			return false
		}
		if p.D1 == 1 {
			return true
		}
		if _, ok := s.waitFor(packet.CalibrateBatteryLevel); !ok {
			return false
		}
		s.out.Send(packet.New(packet.CalibrateColours, 0, 0, 0))
	}
}

// mazeTick runs one Maze-state iteration (spec.md §4.9): sample the maze
// under the latest known sensor positions, then step the shared
// clap-snap/button/distance handshake.
func (s *SS) mazeTick() (done bool, ok bool) {
	if pos, err := s.positions.TryReceive(); err == nil {
		s.cur = pos
	}

	cols := s.sample()
	if allRed(cols) {
		s.endOfMaze = true
	}

	p, ok := s.waitFor(packet.MazeClapSnap)
	if !ok {
		return false, false
	}
	if p.D1 == 1 {
		s.state = Sos
		return false, true
	}

	p, ok = s.waitFor(packet.MazeButton)
	if !ok {
		return false, false
	}
	if p.D1 == 1 {
		s.state = Idle
		return false, true
	}

	p, ok = s.waitFor(packet.MazeDistance)
	if !ok {
		return false, false
	}
	dist := float64(p.Word())

	if s.endOfMaze {
		s.out.Send(packet.New(packet.MazeEndOfMaze, 0, 0, 0))
		return true, true
	}

	incidence := s.incidenceFor(cols, dist)

	s.out.Send(packet.New(packet.MazeColours, byteMSB(cols.Pack()), byteLSB(cols.Pack()), 0))
	s.out.Send(packet.New(packet.MazeIncidence, uint8(incidence), 0, 0))
	return false, true
}

// sample reads the maze colour under each of the five current sensor
// positions.
func (s *SS) sample() colour.Colours {
	var cols colour.Colours
	for i, p := range s.cur {
		cols[i] = s.m.ColourAt(p[0], p[1])
	}
	return cols
}

func allRed(cols colour.Colours) bool {
	for _, c := range cols {
		if c != colour.Red {
			return false
		}
	}
	return true
}

// incidenceFor infers the incidence angle per spec.md §4.9: an outer
// sensor touching colour resets the reference distance and reports zero
// incidence; an inner sensor touching colour while the outers are white
// infers incidence from the odometer distance travelled since the outer
// sensor's contact; otherwise incidence is zero.
func (s *SS) incidenceFor(cols colour.Colours, dist float64) float64 {
	if cols[0] != colour.White || cols[4] != colour.White {
		s.referenceDistance = dist
		return 0
	}
	if cols[1] != colour.White || cols[3] != colour.White {
		travelled := dist - s.referenceDistance
		if travelled < 0 {
			travelled = 0
		}
		return math.Atan(travelled/s.geo.BISD) * (180.0 / math.Pi)
	}
	return 0
}

func byteMSB(word uint16) uint8 { msb, _ := packet.WordBytes(word); return msb }
func byteLSB(word uint16) uint8 { _, lsb := packet.WordBytes(word); return lsb }

// State reports SS's current lifecycle state, for tests.
func (s *SS) State() SystemState { return s.state }
