// Package snc implements the State & Navigation Control subsystem (C7): the
// top-level test-run controller and, inside it, the NAVCON navigation
// decision core.
package snc

import (
	"math"

	"github.com/reinhardtvbm/marv-harness/internal/colour"
	"github.com/reinhardtvbm/marv-harness/internal/config"
)

// MotionState is NAVCON's own notion of what MARV is currently doing,
// distinct from the subsystem-wide SystemState in state.go.
type MotionState int

const (
	Forward MotionState = iota
	Reverse
	Stop
	RotateLeft
	RotateRight
)

// Side identifies which inner sensor reported a line, for handleLine.
type Side int

const (
	Left Side = iota
	Right
)

// Telemetry is the parsed content of one navigation tick's five telemetry
// packets, the input NAVCON reasons over.
type Telemetry struct {
	Colours      colour.Colours
	IncidenceDeg float64
	DistanceMM   float64
}

// Navcon holds the persistent decision state carried from tick to tick.
// It is owned exclusively by the SNC state machine's Maze state.
type Navcon struct {
	geo *config.Geometry

	current  MotionState
	previous MotionState
	next     MotionState

	previouslyEncounteredColour colour.Colour
	outputRotation              float64
	referenceDistance           float64
}

// NewNavcon starts NAVCON in Forward with a neutral history.
func NewNavcon(geo *config.Geometry) *Navcon {
	return &Navcon{
		geo:                         geo,
		current:                     Forward,
		previous:                    Forward,
		next:                        Forward,
		previouslyEncounteredColour: colour.White,
	}
}

func (n *Navcon) Current() MotionState     { return n.current }
func (n *Navcon) Previous() MotionState    { return n.previous }
func (n *Navcon) Next() MotionState        { return n.next }
func (n *Navcon) OutputRotation() float64  { return n.outputRotation }
func (n *Navcon) PreviouslyEncounteredColour() colour.Colour {
	return n.previouslyEncounteredColour
}

// Step feeds one telemetry sample through the decision core, advancing
// current/previous/next and outputRotation in place (spec.md §4.7 NAVCON).
func (n *Navcon) Step(t Telemetry) {
	switch n.current {
	case Forward:
		n.stepForward(t)
	case Reverse:
		n.stepReverse(t)
	case Stop:
		n.stepStop()
	case RotateLeft, RotateRight:
		n.current = Forward
	}
}

func (n *Navcon) stepForward(t Telemetry) {
	if t.Colours.AllWhite() {
		return
	}

	for i, c := range t.Colours {
		if c == colour.White {
			continue
		}
		switch i {
		case 0, 4:
			n.referenceDistance = t.DistanceMM
		case 1:
			n.handleLine(t.IncidenceDeg, t.DistanceMM, c, Left)
		case 3:
			n.handleLine(t.IncidenceDeg, t.DistanceMM, c, Right)
		}
	}
}

func (n *Navcon) stepReverse(t Telemetry) {
	if t.DistanceMM < 30 {
		return
	}
	n.previous = Reverse
	n.current = Stop
}

func (n *Navcon) stepStop() {
	if n.previous == Forward {
		n.current = Reverse
		return
	}
	n.current = n.next
}

// handleLine is NAVCON's per-line reaction, grounded on navcon.rs's
// handle_incidence_with_line.
func (n *Navcon) handleLine(incidenceDeg, distanceMM float64, c colour.Colour, side Side) {
	if distanceMM-n.referenceDistance > n.geo.BISD {
		n.outputRotation = 5
		return
	}

	switch c {
	case colour.Red, colour.Green:
		if incidenceDeg <= 5 {
			return
		}
		switch {
		case incidenceDeg >= 45:
			n.outputRotation = math.Min(incidenceDeg, 5)
		default:
			n.outputRotation = incidenceDeg
		}
		n.previous = Forward
		n.current = Stop
		if side == Left {
			n.next = RotateLeft
		} else {
			n.next = RotateRight
		}
		n.previouslyEncounteredColour = colour.Green

	case colour.Black, colour.Blue:
		n.previous = Forward
		n.current = Stop
		n.next = RotateRight
		if side == Left {
			n.outputRotation = 90 - incidenceDeg
		} else {
			n.outputRotation = 90 + incidenceDeg
		}
		if n.previouslyEncounteredColour == colour.Blue {
			n.outputRotation += 90
		}
		n.previouslyEncounteredColour = colour.Blue
	}
}
