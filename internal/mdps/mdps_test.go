package mdps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reinhardtvbm/marv-harness/internal/config"
	"github.com/reinhardtvbm/marv-harness/internal/fabric"
	"github.com/reinhardtvbm/marv-harness/internal/kinematics"
	"github.com/reinhardtvbm/marv-harness/internal/packet"
)

func newHarness() (*MDPS, *fabric.Port[packet.Packet], *fabric.Port[packet.Packet], *fabric.Port[kinematics.Speeds]) {
	inbox := fabric.NewPort[packet.Packet](fabric.Infinite())
	sibling := fabric.NewPort[packet.Packet](fabric.Infinite())
	speeds := fabric.NewPort[kinematics.Speeds](fabric.Infinite())
	out := fabric.NewFanout(sibling)
	m := New(config.DefaultGeometry(), inbox, out, speeds)
	return m, inbox, sibling, speeds
}

func TestIdleToCalibrateStoresOperationalVelocity(t *testing.T) {
	m, inbox, sibling, _ := newHarness()

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	inbox.Send(packet.New(packet.IdleButton, 1, 77, 0))
	inbox.Send(packet.New(packet.Calibrated, 0, 0, 0))

	p, ok := sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.CalibrateOperationalVelocity, p.Control)
	assert.Equal(t, uint8(77), p.D1)
	assert.Equal(t, uint8(77), p.D0)

	p, ok = sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.CalibrateBatteryLevel, p.Control)

	inbox.Send(packet.New(packet.CalibrateButton, 1, 0, 0))

	time.Sleep(10 * time.Millisecond)
	inbox.Close()
	<-done
}

func TestCalibrateLoopsUntilButtonTouched(t *testing.T) {
	m, inbox, sibling, _ := newHarness()

	go m.Run()

	inbox.Send(packet.New(packet.IdleButton, 1, 50, 0))
	inbox.Send(packet.New(packet.Calibrated, 0, 0, 0))
	_, _ = sibling.Receive()
	_, _ = sibling.Receive()

	inbox.Send(packet.New(packet.CalibrateButton, 0, 0, 0))
	inbox.Send(packet.New(packet.CalibrateColours, 0, 0, 0))

	p, ok := sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.CalibrateBatteryLevel, p.Control)

	inbox.Send(packet.New(packet.CalibrateButton, 1, 0, 0))
	time.Sleep(10 * time.Millisecond)
}

func TestForwardNavInstructionEmitsFourTelemetryPackets(t *testing.T) {
	m, _, sibling, speeds := newHarness()
	m.state = Maze
	m.operationalVelocity = 100

	go func() {
		m.handleNavInstruction(packet.New(packet.MazeNavInstructions, 80, 80, 0))
	}()

	_, ok := speeds.Receive()
	require.True(t, ok)

	p, ok := sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.MazeBatteryLevel, p.Control)

	p, ok = sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.MazeRotation, p.Control)
	assert.Equal(t, uint8(2), p.Dec) // right wheel speed > 0 -> left_rotation() true -> dir 2

	p, ok = sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.MazeSpeeds, p.Control)
	assert.Equal(t, uint8(80), p.D1)
	assert.Equal(t, uint8(80), p.D0)
	assert.Equal(t, uint8(0), p.Dec) // forward

	p, ok = sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.MazeDistance, p.Control)
}

func TestEndOfMazeTerminatesRun(t *testing.T) {
	m, inbox, _, _ := newHarness()
	m.state = Maze

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	inbox.Send(packet.New(packet.MazeEndOfMaze, 0, 0, 0))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("MDPS.Run did not terminate on MazeEndOfMaze")
	}
}

func TestSosZeroesWheelsAndReturnsToMaze(t *testing.T) {
	m, inbox, sibling, _ := newHarness()
	m.state = Sos
	m.wheels.SetLeftWheelSpeed(50)
	m.wheels.SetRightWheelSpeed(50)

	go m.Run()

	p, ok := sibling.Receive()
	require.True(t, ok)
	assert.Equal(t, packet.SosSpeed, p.Control)
	assert.Equal(t, int16(0), m.wheels.LeftSpeed())

	inbox.Send(packet.New(packet.SosClapSnap, 1, 0, 0))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, Maze, m.State())
}
