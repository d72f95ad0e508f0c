// Command marvharness runs one complete MARV test: it wires the three
// subsystems (each either emulated or bridged to a physical serial port),
// a maze, and a starting pose, then waits for the run to finish.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/reinhardtvbm/marv-harness/internal/colour"
	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
	"github.com/reinhardtvbm/marv-harness/internal/harness"
	"github.com/reinhardtvbm/marv-harness/internal/kinematics"
	"github.com/reinhardtvbm/marv-harness/internal/maze"
	"github.com/reinhardtvbm/marv-harness/internal/runid"
	"github.com/reinhardtvbm/marv-harness/internal/tracedata"
)

var (
	sncMode  = flag.String("snc-mode", "emulate", "emulate|physical")
	mdpsMode = flag.String("mdps-mode", "emulate", "emulate|physical")
	ssMode   = flag.String("ss-mode", "emulate", "emulate|physical")

	comSNC  = flag.String("com-snc", "COM1", "serial port name for a physical SNC")
	comMDPS = flag.String("com-mdps", "COM2", "serial port name for a physical MDPS")
	comSS   = flag.String("com-ss", "COM3", "serial port name for a physical SS")

	geometryPath = flag.String("geometry", "", "path to a JSON geometry override (optional)")

	startX     = flag.Float64("start-x", 0.1, "starting x coordinate, metres")
	startY     = flag.Float64("start-y", 0.05, "starting y coordinate, metres")
	startAngle = flag.Float64("start-angle", 1.5707963, "starting heading, radians")
	opSpeed    = flag.Int("op-speed", 100, "operational speed announced at Idle, mm/s")

	tracePath = flag.String("trace", "", "optional path to record the pose trail for tracereport (disabled if empty)")
)

func parseMode(s string) harness.Mode {
	if s == "physical" {
		return harness.Physical
	}
	return harness.Emulate
}

func main() {
	flag.Parse()

	geo := config.DefaultGeometry()
	if *geometryPath != "" {
		loaded, err := config.LoadGeometry(*geometryPath)
		if err != nil {
			log.Fatalf("marvharness: loading geometry: %v", err)
		}
		geo = loaded
	}

	// A 1x4 maze whose single column is [Black, Green, Red, Black], the
	// worked example spec.md §8 scenario 1 uses for a happy-path startup.
	m := maze.NewLineMap(3, 1, geo)
	if err := m.AddColumn([]colour.Colour{colour.Black, colour.Green, colour.Red, colour.Black}); err != nil {
		log.Fatalf("marvharness: building maze: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.AddRow([]colour.Colour{colour.White, colour.White}); err != nil {
			log.Fatalf("marvharness: building maze: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := harness.Config{
		SNCMode:          parseMode(*sncMode),
		MDPSMode:         parseMode(*mdpsMode),
		SSMode:           parseMode(*ssMode),
		ComSNC:           *comSNC,
		ComMDPS:          *comMDPS,
		ComSS:            *comSS,
		Maze:             m,
		StartX:           *startX,
		StartY:           *startY,
		StartAngle:       *startAngle,
		Geometry:         geo,
		OperationalSpeed: uint8(*opSpeed),
		RunID:            runid.New(),
	}

	if *tracePath != "" {
		rec, err := tracedata.NewRecorder(*tracePath)
		if err != nil {
			log.Fatalf("marvharness: opening trace file: %v", err)
		}
		defer rec.Close()

		trace := fabric.NewPort[kinematics.SensorPositions](fabric.Finite(1))
		cfg.GUIPositions = trace
		go recordTrace(trace, rec)
	}

	log.Printf("marvharness: starting run %s", cfg.RunID)
	if err := harness.RunSystem(ctx, cfg); err != nil {
		log.Fatalf("marvharness: run %s aborted: %v", cfg.RunID, err)
	}
	log.Printf("marvharness: run %s complete", cfg.RunID)
}

// recordTrace drains the centre sensor's world position off the GUI
// fanout target into the trace file, one sample per pose update, so a
// finished run can be handed straight to cmd/tools/tracereport.
func recordTrace(trace *fabric.Port[kinematics.SensorPositions], rec *tracedata.Recorder) {
	for {
		positions, ok := trace.Receive()
		if !ok {
			return
		}
		if err := rec.Record(positions[2][0], positions[2][1]); err != nil {
			log.Printf("marvharness: recording trace sample: %v", err)
			return
		}
	}
}
