// Package config holds the tuning knobs that would otherwise be baked-in
// constants, so that tests (and alternative MARV chassis geometries) can
// vary them without touching the subsystems that consume them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Geometry carries every measurement the harness needs to convert between
// wheel speeds, robot pose and maze pixels. Every subsystem that previously
// would have referenced a compile-time constant takes a *Geometry instead.
type Geometry struct {
	// BISD is the big inter-sensor distance (outer-to-inner sensor spacing), mm.
	BISD float64 `json:"b_isd"`
	// SISD is the small inter-sensor distance (inner-to-centre sensor spacing), mm.
	SISD float64 `json:"s_isd"`
	// AxleDist is the distance between the two drive wheels, mm.
	AxleDist float64 `json:"axle_dist"`
	// MazeLineLength is the length of a maze grid cell side between lines, in maze pixels.
	MazeLineLength float64 `json:"maze_line_length"`
	// MazeLineWidth is the width of a painted maze line, in maze pixels.
	MazeLineWidth float64 `json:"maze_line_width"`
	// MazeColWidth converts metres of real-world robot travel into maze pixels.
	MazeColWidth float64 `json:"maze_col_width"`
	// MazeRowHeight is the on-screen row pitch; kept alongside MazeColWidth for
	// callers that lay maze artwork out on a non-square grid.
	MazeRowHeight float64 `json:"maze_row_height"`
	// MazeLeftJustification and MazeTopJustification offset the maze's top-left
	// corner inside its drawing surface.
	MazeLeftJustification float64 `json:"maze_left_justification"`
	MazeTopJustification  float64 `json:"maze_top_justification"`
}

// DefaultGeometry returns the geometry described in spec.md §6.
func DefaultGeometry() *Geometry {
	return &Geometry{
		BISD:                  65,
		SISD:                  15,
		AxleDist:              100,
		MazeLineLength:        80,
		MazeLineWidth:         5,
		MazeColWidth:          85,
		MazeRowHeight:         85,
		MazeLeftJustification: 0,
		MazeTopJustification:  0,
	}
}

// LoadGeometry reads a Geometry from a JSON file at path, falling back to
// DefaultGeometry for any field the file omits.
func LoadGeometry(path string) (*Geometry, error) {
	g := DefaultGeometry()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geometry config %q: %w", path, err)
	}

	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("parse geometry config %q: %w", path, err)
	}

	return g, nil
}
