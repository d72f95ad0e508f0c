package maze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reinhardtvbm/marv-harness/internal/colour"
	"github.com/reinhardtvbm/marv-harness/internal/config"
)

// build1x4 constructs a 3-row, 1-column maze whose single column strip is
// [Black, Green, Red, Black] (spec.md §8 scenario 1's "1x4 maze").
func build1x4(t *testing.T) *LineMap {
	t.Helper()
	m := NewLineMap(3, 1, config.DefaultGeometry())
	require.NoError(t, m.AddColumn([]colour.Colour{colour.Black, colour.Green, colour.Red, colour.Black}))
	for i := 0; i < 3; i++ {
		require.NoError(t, m.AddRow([]colour.Colour{colour.White, colour.White}))
	}
	return m
}

func TestAddColumnWrongLength(t *testing.T) {
	m := NewLineMap(1, 4, config.DefaultGeometry())
	err := m.AddColumn([]colour.Colour{colour.White})
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestAddColumnFull(t *testing.T) {
	m := NewLineMap(1, 1, config.DefaultGeometry())
	require.NoError(t, m.AddColumn([]colour.Colour{colour.White, colour.White}))
	err := m.AddColumn([]colour.Colour{colour.White, colour.White})
	assert.ErrorIs(t, err, ErrColumnsFull)
}

func TestOutOfBoundsIsWhite(t *testing.T) {
	m := build1x4(t)
	assert.Equal(t, colour.White, m.ColourAt(-1, -1))
	assert.Equal(t, colour.White, m.ColourAt(10000, 10000))
}

func TestHorizontalLineWinsAtCorner(t *testing.T) {
	m := build1x4(t)
	// cell (0,0)'s top-left corner: y <= width takes the column's line colour.
	g := config.DefaultGeometry()
	c := m.ColourAt(0, g.MazeLineWidth-1)
	assert.Equal(t, colour.Black, c)
}

func TestInteriorIsWhite(t *testing.T) {
	m := build1x4(t)
	g := config.DefaultGeometry()
	mid := g.MazeLineWidth + (g.MazeLineLength / 2)
	assert.Equal(t, colour.White, m.ColourAt(mid, mid))
}
