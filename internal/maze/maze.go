// Package maze implements the rectangular grid of coloured line segments
// MARV navigates, and the point-to-colour query the sensor subsystem uses
// to sample it.
package maze

import (
	"errors"
	"fmt"

	"github.com/reinhardtvbm/marv-harness/internal/colour"
	"github.com/reinhardtvbm/marv-harness/internal/config"
)

// Errors returned by LineMap construction, per spec.md §7 error taxonomy
// entry 5: reported to the caller before the run starts, never panicked.
var (
	ErrInvalidLength = errors.New("maze: column or row has the wrong length")
	ErrColumnsFull   = errors.New("maze: all columns already added")
	ErrRowsFull      = errors.New("maze: all rows already added")
)

// LineMap is a W x H grid of cells whose boundaries are coloured lines. It
// is built once, column strip by column strip and row strip by row strip,
// then read-only for the remainder of a test run.
type LineMap struct {
	geo     *config.Geometry
	columns [][]colour.Colour // W columns, each H+1 long
	rows    [][]colour.Colour // H rows, each W+1 long
	height  int
	width   int
}

// NewLineMap creates an empty height x width LineMap. geo supplies the
// maze pixel measurements used by ColourAt; pass config.DefaultGeometry()
// for the standard MARV chassis.
func NewLineMap(height, width int, geo *config.Geometry) *LineMap {
	return &LineMap{
		geo:     geo,
		columns: make([][]colour.Colour, 0, width),
		rows:    make([][]colour.Colour, 0, height),
		height:  height,
		width:   width,
	}
}

// AddColumn appends one column strip of horizontal-line colours. colours
// must have height+1 entries (one boundary per row, plus the maze's
// bottom edge).
func (m *LineMap) AddColumn(colours []colour.Colour) error {
	if len(colours) != m.height+1 {
		return fmt.Errorf("%w: column has %d entries, want %d", ErrInvalidLength, len(colours), m.height+1)
	}
	if len(m.columns) == m.width {
		return ErrColumnsFull
	}
	cp := make([]colour.Colour, len(colours))
	copy(cp, colours)
	m.columns = append(m.columns, cp)
	return nil
}

// AddRow appends one row strip of vertical-line colours. colours must have
// width+1 entries.
func (m *LineMap) AddRow(colours []colour.Colour) error {
	if len(colours) != m.width+1 {
		return fmt.Errorf("%w: row has %d entries, want %d", ErrInvalidLength, len(colours), m.width+1)
	}
	if len(m.rows) == m.height {
		return ErrRowsFull
	}
	cp := make([]colour.Colour, len(colours))
	copy(cp, colours)
	m.rows = append(m.rows, cp)
	return nil
}

// ColourAt queries the colour painted at maze-pixel coordinate (x, y).
// Points outside the declared grid, and the blank interior of a cell,
// return White. At a cell corner the horizontal strip wins over the
// vertical one.
func (m *LineMap) ColourAt(x, y float64) colour.Colour {
	cell := m.geo.MazeLineLength + m.geo.MazeLineWidth

	if x < 0 || y < 0 {
		return colour.White
	}

	colIndex := int(x) / int(cell)
	rowIndex := int(y) / int(cell)

	if colIndex < 0 || rowIndex < 0 || colIndex >= len(m.columns) || rowIndex >= len(m.rows) {
		return colour.White
	}

	xInBlock := x - cell*float64(colIndex)
	yInBlock := y - cell*float64(rowIndex)

	switch {
	case yInBlock <= m.geo.MazeLineWidth:
		// horizontal strip wins at the corner.
		return m.columns[colIndex][rowIndex]
	case xInBlock <= m.geo.MazeLineWidth:
		return m.rows[rowIndex][colIndex]
	default:
		return colour.White
	}
}

// Height and Width report the grid's declared dimensions.
func (m *LineMap) Height() int { return m.height }
func (m *LineMap) Width() int  { return m.width }
