package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSnapshotAtHome(t *testing.T) {
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	v := New(WithClock(fixedClock(start)))

	s := v.Snapshot()
	assert.InDelta(t, DefaultHome.Latitude, frames.Rad2Deg(s.GPSFused.Latitude), 1e-9)
	assert.InDelta(t, DefaultHome.Longitude, frames.Rad2Deg(s.GPSFused.Longitude), 1e-9)
	assert.Equal(t, osdk.FlightStatusStopped, s.StatusFlight)
	assert.Equal(t, uint32(20261017), s.GPSDate)
	assert.Equal(t, uint32(120000), s.GPSTime)
	assert.Equal(t, uint8(1), s.HardSync.TS.Flag, "tick 0 carries the trigger flag")
	assert.Equal(t, uint8(100), s.BatteryInfo.Percentage)
}

func TestTakeoffAndLand(t *testing.T) {
	v := New()
	fc := v.FlightController()
	ctx := context.Background()

	require.NoError(t, fc.StartTakeoff(ctx))
	assert.Equal(t, osdk.FlightStatusInAir, v.Snapshot().StatusFlight)
	assert.InDelta(t, takeoffHeight, v.Snapshot().HeightFusion, 1e-6)
	assert.Error(t, fc.StartTakeoff(ctx))
	assert.Error(t, fc.TurnOffMotors(ctx))

	require.NoError(t, fc.MoveByPositionOffset(ctx, osdk.JoystickCommand{X: 10, Y: 5, Z: 2}, 0.5, 1))
	s := v.Snapshot()
	assert.InDelta(t, takeoffHeight+2, s.HeightFusion, 1e-5)
	assert.InDelta(t, 10, s.PositionVO.X, 1e-5)
	assert.InDelta(t, 5, s.PositionVO.Y, 1e-5)

	require.NoError(t, fc.StartLanding(ctx))
	assert.False(t, v.State().InAir)
	assert.Error(t, fc.StartLanding(ctx))

	assert.Equal(t, []string{
		"StartTakeoff", "StartTakeoff", "TurnOffMotors",
		"MoveByPositionOffset(10.00,5.00,2.00,0.00)",
		"StartLanding", "StartLanding",
	}, v.Calls())
}

func TestFailNext(t *testing.T) {
	v := New()
	boom := errors.New("boom")
	v.FailNext("TurnOnMotors", boom)

	err := v.FlightController().TurnOnMotors(context.Background())
	assert.ErrorIs(t, err, boom)

	v.FailNext("TurnOnMotors", nil)
	assert.NoError(t, v.FlightController().TurnOnMotors(context.Background()))
	assert.True(t, v.State().MotorsOn)
}

func TestGimbalRotation(t *testing.T) {
	v := New()
	g := v.Gimbal()
	ctx := context.Background()

	require.NoError(t, g.RotateGimbal(ctx, 0, osdk.GimbalRotation{Mode: osdk.GimbalRotationAbsolute, Pitch: -30, Yaw: 10}))
	require.NoError(t, g.RotateGimbal(ctx, 0, osdk.GimbalRotation{Mode: osdk.GimbalRotationIncremental, Pitch: -5}))
	assert.Equal(t, frames.Pose{Pitch: -35, Yaw: 10}, v.State().Gimbal)
	assert.InDelta(t, -35, v.Snapshot().GimbalAngles.X, 1e-6)

	require.NoError(t, g.ResetGimbal(ctx, 0))
	assert.Equal(t, frames.Pose{}, v.State().Gimbal)
}

func TestMFIO(t *testing.T) {
	v := New()
	m := v.MFIO()
	ctx := context.Background()

	_, err := m.GetValue(ctx, 3)
	assert.Error(t, err)

	require.NoError(t, m.Config(ctx, osdk.MFIOGPIOIn, 3, 0, 0))
	v.SetMFIOInput(3, 1)
	got, err := m.GetValue(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got)
}

func TestRecordVideo(t *testing.T) {
	v := New()
	c := v.Camera()
	ctx := context.Background()

	assert.Error(t, c.StopRecordVideo(ctx, 0))
	require.NoError(t, c.StartRecordVideo(ctx, 0))
	assert.True(t, v.State().Recording)
	require.NoError(t, c.StopRecordVideo(ctx, 0))
	assert.False(t, v.State().Recording)
}

func TestPackagesArePushed(t *testing.T) {
	v := New()
	defer v.Close()

	var n atomic.Int32
	pkg := osdk.Package{Index: 1, FreqHz: 200, Topics: []osdk.Topic{osdk.TopicQuaternion}}
	require.NoError(t, v.SubscribePackage(context.Background(), pkg, func(*osdk.Snapshot) { n.Add(1) }))
	assert.ErrorIs(t, v.SubscribePackage(context.Background(), pkg, func(*osdk.Snapshot) {}), osdk.ErrPackageInUse)

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, v.RemovePackage(context.Background(), 1))
	assert.False(t, v.Subscribed(1))
	assert.False(t, v.Emit(1))
}

func TestRemovePackageWaitsForPush(t *testing.T) {
	v := New()
	defer v.Close()

	var n atomic.Int32
	pkg := osdk.Package{Index: 2, FreqHz: 400, Topics: []osdk.Topic{osdk.TopicHardSync}}
	require.NoError(t, v.SubscribePackage(context.Background(), pkg, func(*osdk.Snapshot) {
		time.Sleep(5 * time.Millisecond)
		n.Add(1)
	}))
	assert.Eventually(t, func() bool { return n.Load() >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, v.RemovePackage(context.Background(), 2))
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, n.Load(), "push after RemovePackage returned")
}

func TestEmitTimeSync(t *testing.T) {
	start := time.Date(2026, 10, 17, 8, 30, 15, 0, time.UTC)
	v := New(WithClock(fixedClock(start)))

	var nmea, utc string
	var fc osdk.FCTimeInUTC
	var pps osdk.PPSSource
	require.NoError(t, v.SubscribeTimeSync(context.Background(), osdk.TimeSyncHandlers{
		NMEA:        func(s string, _ time.Time) { nmea = s },
		GPSUTCTime:  func(s string, _ uint32) { utc = s },
		FCTimeInUTC: func(t osdk.FCTimeInUTC) { fc = t },
		PPSSource:   func(s osdk.PPSSource) { pps = s },
	}))
	defer v.Close()

	v.EmitTimeSync()
	assert.Contains(t, nmea, "$GPRMC,083015.00,A,")
	assert.Equal(t, "2026-10-17T08:30:15.000Z", utc)
	assert.Equal(t, uint32(83015), fc.UTCHHMMSS)
	assert.Equal(t, uint32(261017), fc.UTCYYMMDD)
	assert.Equal(t, osdk.PPSInternalGPS, pps)
}

func TestClosedVehicleRejectsCalls(t *testing.T) {
	v := New()
	require.NoError(t, v.Close())
	assert.ErrorIs(t, v.FlightController().StartTakeoff(context.Background()), osdk.ErrClosed)
	assert.ErrorIs(t, v.SubscribePackage(context.Background(), osdk.Package{Index: 0, FreqHz: 5}, nil), osdk.ErrClosed)
	assert.NoError(t, v.Close())
}
