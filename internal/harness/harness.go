// Package harness implements the system orchestrator (C11): it wires the
// message fabric, chooses an emulator or a serial relay per subsystem, and
// runs a complete MARV test to completion.
package harness

import (
	"context"
	"fmt"
	"sync"

	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
	"github.com/reinhardtvbm/marv-harness/internal/kinematics"
	"github.com/reinhardtvbm/marv-harness/internal/maze"
	"github.com/reinhardtvbm/marv-harness/internal/mdps"
	"github.com/reinhardtvbm/marv-harness/internal/packet"
	"github.com/reinhardtvbm/marv-harness/internal/serialrelay"
	"github.com/reinhardtvbm/marv-harness/internal/snc"
	"github.com/reinhardtvbm/marv-harness/internal/ss"
	"github.com/reinhardtvbm/marv-harness/internal/tracelog"
)

// Mode selects whether a subsystem runs as a pure software emulation or as
// a transparent relay to a physical serial device.
type Mode int

const (
	Emulate Mode = iota
	Physical
)

// Config is RunSystem's full input: three modes, three COM port names, the
// maze, the start pose, and the externally-supplied GUI endpoint that
// shares the positions feed alongside SS (spec.md §6's run_system surface).
type Config struct {
	SNCMode, MDPSMode, SSMode Mode
	ComSNC, ComSS, ComMDPS    string

	Maze *maze.LineMap

	StartX, StartY, StartAngle float64

	Geometry *config.Geometry

	// OperationalSpeed is the speed SNC announces on IdleButton; spec.md
	// §4.7/§8 use 100 for every worked example.
	OperationalSpeed uint8

	// GUIPositions is the externally-supplied second fanout target for the
	// positions feed, alongside SS's own positions port. It may be nil, in which case the GUI simply isn't
	// wired for this run.
	GUIPositions *fabric.Port[kinematics.SensorPositions]

	RunID string
}

// RunSystem wires the fabric, spawns every thread a run needs, and blocks
// until SNC exits — either on MazeEndOfMaze, channel closure, or a fatal
// setup abort — per spec.md §4.11 and §6's run_system surface. A non-nil
// error means a physical subsystem's serial port could not be opened
// (spec.md §7 item 1): the run was aborted rather than left deadlocked,
// and the caller is expected to report the diagnostic and abort the
// process, the way cmd/marvharness does for every other setup error.
func RunSystem(ctx context.Context, cfg Config) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	geo := cfg.Geometry
	if geo == nil {
		geo = config.DefaultGeometry()
	}

	sncInbox := fabric.NewPort[packet.Packet](fabric.Infinite())
	mdpsInbox := fabric.NewPort[packet.Packet](fabric.Infinite())
	ssInbox := fabric.NewPort[packet.Packet](fabric.Infinite())

	sncOut := fabric.NewFanout(mdpsInbox, ssInbox)
	mdpsOut := fabric.NewFanout(sncInbox, ssInbox)
	ssOut := fabric.NewFanout(sncInbox, mdpsInbox)

	speeds := fabric.NewPort[kinematics.Speeds](fabric.Infinite())

	ssPositions := fabric.NewPort[kinematics.SensorPositions](fabric.Finite(1))
	fanoutTargets := []*fabric.Port[kinematics.SensorPositions]{ssPositions}
	if cfg.GUIPositions != nil {
		fanoutTargets = append(fanoutTargets, cfg.GUIPositions)
	}
	positionsOut := fabric.NewFanout(fanoutTargets...)

	log := tracelog.New(cfg.RunID, "harness")
	log.Println("starting run")

	pose := kinematics.NewPoseComputer(geo, cfg.StartX, cfg.StartY, cfg.StartAngle)
	startPositions := pose.Advance(geo, kinematics.Speeds{})

	go pose.Run(geo, speeds, positionsOut)

	// abort is called by any subsystem that hits a fatal setup error. It
	// cancels runCtx (unblocking a physical relay's select loop) and closes
	// every packet/speeds port so a sibling blocked in a tag-driven
	// waitFor wakes with ok=false instead of deadlocking forever, per
	// spec.md §7 item 1.
	var abortOnce sync.Once
	var fatalErr error
	abort := func(err error) {
		abortOnce.Do(func() {
			fatalErr = err
			log.Printf("fatal: %v", err)
			cancel()
			sncInbox.Close()
			mdpsInbox.Close()
			ssInbox.Close()
			speeds.Close()
		})
	}

	mdpsDone := make(chan struct{})
	go func() {
		defer close(mdpsDone)
		if err := spawnSubsystem(runCtx, cfg.MDPSMode, cfg.ComMDPS, mdpsInbox, mdpsOut, func() {
			mdps.New(geo, mdpsInbox, mdpsOut, speeds).Run()
		}, log); err != nil {
			abort(fmt.Errorf("mdps: %w", err))
		}
	}()

	ssDone := make(chan struct{})
	go func() {
		defer close(ssDone)
		if err := spawnSubsystem(runCtx, cfg.SSMode, cfg.ComSS, ssInbox, ssOut, func() {
			ss.New(geo, cfg.Maze, ssInbox, ssOut, ssPositions, startPositions).Run()
		}, log); err != nil {
			abort(fmt.Errorf("ss: %w", err))
		}
	}()

	if err := runSNCBlocking(runCtx, geo, sncInbox, sncOut, cfg, log); err != nil {
		abort(fmt.Errorf("snc: %w", err))
	}

	// SNC exiting ends the run; cancel so any physical relay still
	// bridging MDPS or SS unblocks instead of running forever.
	cancel()

	<-mdpsDone
	<-ssDone

	if fatalErr != nil {
		log.Println("run aborted")
		return fatalErr
	}
	log.Println("run complete")
	return nil
}

// runSNCBlocking runs SNC on the caller's own goroutine — SNC is the
// thread C11 joins to know the run is over, per spec.md §4.11. A non-nil
// error means the physical relay standing in for SNC never opened.
func runSNCBlocking(ctx context.Context, geo *config.Geometry, inbox *fabric.Port[packet.Packet], out *fabric.Fanout[packet.Packet], cfg Config, log *tracelog.Logger) error {
	if cfg.SNCMode == Physical {
		return relayUntilDone(ctx, cfg.ComSNC, inbox, out, log)
	}
	snc.New(geo, inbox, out).Run(cfg.OperationalSpeed)
	return nil
}

// spawnSubsystem runs one subsystem's emulator function directly (mode
// Emulate) or bridges its channel to a serial relay (mode Physical). A
// non-nil error means the physical relay's serial port never opened.
func spawnSubsystem(ctx context.Context, mode Mode, com string, inbox *fabric.Port[packet.Packet], out *fabric.Fanout[packet.Packet], emulate func(), log *tracelog.Logger) error {
	if mode == Physical {
		return relayUntilDone(ctx, com, inbox, out, log)
	}
	emulate()
	return nil
}

// relayUntilDone bridges a subsystem's channel endpoints to a physical
// serial port until ctx is cancelled. A failure to open the port is the
// one fatal-setup error spec.md §7 calls out, so it is returned rather
// than merely logged: the caller aborts the whole run instead of leaving
// this subsystem's siblings blocked on packets that will never arrive. A
// relay that opens fine but later errors mid-run is channel-closure
// territory (spec.md §7 item 4) and is only logged.
func relayUntilDone(ctx context.Context, com string, inbox *fabric.Port[packet.Packet], out *fabric.Fanout[packet.Packet], log *tracelog.Logger) error {
	port, err := serialrelay.Open(com)
	if err != nil {
		return fmt.Errorf("cannot open serial port %s: %w", com, err)
	}
	defer port.Close()

	relay := serialrelay.New(port, inbox, out)
	if err := relay.Run(ctx); err != nil {
		log.Printf("serial relay on %s exited: %v", com, err)
	}
	return nil
}
