package snc

import (
	"github.com/reinhardtvbm/marv-harness/internal/colour"
	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
	"github.com/reinhardtvbm/marv-harness/internal/packet"
)

// SystemState is the four-state lifecycle shared by all three subsystems
// (spec.md §3), though each gives it its own transition rules.
type SystemState int

const (
	Idle SystemState = iota
	Calibrate
	Maze
	Sos
)

// SNC is the top-level test-run controller (C7): it drives the shared
// Idle/Calibrate/Maze/Sos lifecycle and, while in Maze, runs NAVCON over
// the latest telemetry batch to decide MARV's next move.
type SNC struct {
	inbox *fabric.Port[packet.Packet]
	out   *fabric.Fanout[packet.Packet]
	nav   *Navcon
	geo   *config.Geometry

	state SystemState
}

// New creates an SNC wired to its own inbox and a fanout reaching MDPS and
// SS, in the shape C11 assembles for every run.
func New(geo *config.Geometry, inbox *fabric.Port[packet.Packet], out *fabric.Fanout[packet.Packet]) *SNC {
	return &SNC{inbox: inbox, out: out, nav: NewNavcon(geo), geo: geo, state: Idle}
}

// waitFor drains the inbox, discarding any packet whose tag doesn't match,
// until one with the wanted tag arrives or the inbox closes. This is the
// tag-driven rendezvous spec.md §5 and §9 call out as the system's central
// concurrency contract: off-sequence packets are dropped intentionally, not
// accumulated.
func (s *SNC) waitFor(tag packet.ControlByte) (packet.Packet, bool) {
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

// Run drives the SNC lifecycle to completion, returning when the maze run
// ends (MazeEndOfMaze) or the inbox closes. It is the thread C11 joins to
// know the run is over.
func (s *SNC) Run(operationalSpeed uint8) {
	s.state = Idle
	for {
		switch s.state {
		case Idle:
			s.out.Send(packet.New(packet.IdleButton, 1, operationalSpeed, 0))
			s.state = Calibrate

		case Calibrate:
			if _, ok := s.waitFor(packet.CalibrateColours); !ok {
				return
			}
			s.out.Send(packet.New(packet.CalibrateButton, 1, 0, 0))
			s.state = Maze

		case Maze:
			done := s.mazeTick()
			if done {
				return
			}

		case Sos:
			if _, ok := s.waitFor(packet.SosSpeed); !ok {
				return
			}
			s.out.Send(packet.New(packet.SosClapSnap, 1, 0, 0))
			s.state = Idle
		}
	}
}

// mazeTick runs one Maze-state iteration: emit the clap-snap/button
// heartbeat and a NAVCON-derived nav instruction, then read the five
// telemetry packets the tick produced. It reports whether the run is over.
func (s *SNC) mazeTick() (done bool) {
	s.out.Send(packet.New(packet.MazeClapSnap, 0, 0, 0))
	s.out.Send(packet.New(packet.MazeButton, 0, 0, 0))

	s.out.Send(s.navInstruction())

	if _, ok := s.waitFor(packet.MazeBatteryLevel); !ok {
		return true
	}

	var tel Telemetry
	seen := map[packet.ControlByte]bool{}
	for len(seen) < 5 {
		p, ok := s.inbox.Receive()
		if !ok {
			return true
		}
		switch p.Control {
		case packet.MazeEndOfMaze:
			return true
		case packet.MazeRotation:
			seen[p.Control] = true
		case packet.MazeSpeeds:
			seen[p.Control] = true
		case packet.MazeDistance:
			tel.DistanceMM = float64(p.Word())
			seen[p.Control] = true
		case packet.MazeColours:
			tel.Colours = colour.FromWord(p.Word())
			seen[p.Control] = true
		case packet.MazeIncidence:
			tel.IncidenceDeg = float64(p.D1)
			seen[p.Control] = true
		}
	}

	s.nav.Step(tel)
	return false
}

// navInstruction renders NAVCON's current decision into the wire packet
// MDPS expects, subcode per spec.md §4.7/§6.
func (s *SNC) navInstruction() packet.Packet {
	switch s.nav.Current() {
	case Forward:
		v := uint8(100)
		return packet.New(packet.MazeNavInstructions, v, v, 0)
	case Reverse:
		v := uint8(100)
		return packet.New(packet.MazeNavInstructions, v, v, 1)
	case RotateLeft:
		msb, lsb := packet.WordBytes(uint16(s.nav.OutputRotation()))
		return packet.New(packet.MazeNavInstructions, msb, lsb, 2)
	case RotateRight:
		msb, lsb := packet.WordBytes(uint16(s.nav.OutputRotation()))
		return packet.New(packet.MazeNavInstructions, msb, lsb, 3)
	default:
		return packet.New(packet.MazeNavInstructions, 0, 0, 0)
	}
}

// State reports the SNC's current lifecycle state, for tests and logging.
func (s *SNC) State() SystemState { return s.state }

// Navcon exposes the navigation core for tests that want to pin its
// decisions directly (spec.md §8 scenarios 2-4) without driving a full
// packet exchange.
func (s *SNC) Navcon() *Navcon { return s.nav }
