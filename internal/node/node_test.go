package node

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bluenviron/goroslib/v2/pkg/msgs/geometry_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/sensor_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/std_msgs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/msgs"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/osdk/sim"
	"github.com/relabs-tech/osdk_bridge/internal/srvs"
	"github.com/relabs-tech/osdk_bridge/internal/timealign"
)

var epoch = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

type fixture struct {
	node    *Node
	vehicle *sim.Vehicle
	bus     *bus.Memory
	cfg     *config.Config
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MQTTBroker = "tcp://localhost:1883"
	return cfg
}

// newFixture builds a node with its topics and services registered but no telemetry
// subscribed, so handlers can be driven directly.
func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	v := sim.New(sim.WithClock(func() time.Time { return epoch }))
	t.Cleanup(func() { v.Close() })
	mem := bus.NewMemory()

	n, err := New(cfg, v, mem, WithClock(func() time.Time { return epoch }))
	require.NoError(t, err)
	require.NoError(t, n.initTopic())
	require.NoError(t, n.initService())
	return &fixture{node: n, vehicle: v, bus: mem, cfg: cfg}
}

func last[T any](t *testing.T, f *fixture, topic string) *T {
	t.Helper()
	msg, ok := f.bus.Last(topic)
	require.True(t, ok, "nothing published on %s", topic)
	out, ok := msg.(*T)
	require.True(t, ok, "%s carries %T", topic, msg)
	return out
}

func call[Res any](t *testing.T, f *fixture, service string, req any) *Res {
	t.Helper()
	out, ok, err := f.bus.Call(service, req)
	require.NoError(t, err)
	require.True(t, ok)
	res, isRes := out.(*Res)
	require.True(t, isRes, "%s answered %T", service, out)
	return res
}

func TestInitAndClose(t *testing.T) {
	cfg := testConfig()
	v := sim.New()
	defer v.Close()
	mem := bus.NewMemory()
	n, err := New(cfg, v, mem)
	require.NoError(t, err)

	require.NoError(t, n.Init(context.Background()))
	assert.ElementsMatch(t, Topics(), mem.Topics())
	for idx := Package5Hz; idx <= Package400Hz; idx++ {
		assert.True(t, v.Subscribed(idx), "package %d", idx)
	}
	assert.True(t, v.GimbalSubscribed())
	assert.Len(t, n.Services(), 20)

	require.True(t, v.Emit(Package100Hz))
	_, ok := mem.Last(TopicAttitude)
	assert.True(t, ok)

	require.NoError(t, n.Close(context.Background()))
	for idx := Package5Hz; idx <= Package400Hz; idx++ {
		assert.False(t, v.Subscribed(idx), "package %d", idx)
	}
	assert.False(t, v.GimbalSubscribed())
}

func TestPackagesLayout(t *testing.T) {
	pkgs := Packages(false)
	require.Len(t, pkgs, 4)
	assert.Equal(t, []int{5, 50, 100, 400}, []int{pkgs[0].FreqHz, pkgs[1].FreqHz, pkgs[2].FreqHz, pkgs[3].FreqHz})
	assert.NotContains(t, pkgs[0].Topics, osdk.TopicRTKPosition)
	assert.Contains(t, Packages(true)[0].Topics, osdk.TopicRTKPosition)
	assert.Equal(t, []osdk.Topic{osdk.TopicHardSync}, pkgs[3].Topics)
}

// rtkless rejects any package that carries RTK topics.
type rtkless struct {
	*sim.Vehicle
}

func (r rtkless) SubscribePackage(ctx context.Context, pkg osdk.Package, cb osdk.PackageCallback) error {
	for _, topic := range pkg.Topics {
		if topic == osdk.TopicRTKPosition {
			return osdk.ErrNotSupported
		}
	}
	return r.Vehicle.SubscribePackage(ctx, pkg, cb)
}

func TestRTKFallback(t *testing.T) {
	cfg := testConfig()
	cfg.RTKSupport = true
	v := sim.New()
	defer v.Close()

	n, err := New(cfg, rtkless{v}, bus.NewMemory())
	require.NoError(t, err)
	require.NoError(t, n.Init(context.Background()))
	assert.False(t, n.RTKSupport())
	assert.True(t, v.Subscribed(Package5Hz))
	require.NoError(t, n.Close(context.Background()))
}

func TestAttitudeAndRatesInROSFrames(t *testing.T) {
	f := newFixture(t)
	f.node.on100Hz(&osdk.Snapshot{
		Quaternion:          osdk.Quaternion{Q0: 1},
		AngularRateFusioned: osdk.Vector3f{X: 1, Y: 2, Z: 3},
		AccelerationGround:  osdk.Vector3f{X: 1, Y: 2, Z: 3},
		Received:            epoch,
	})

	att := last[geometry_msgs.QuaternionStamped](t, f, TopicAttitude)
	assert.Equal(t, FrameBodyFLU, att.Header.FrameId)
	assert.Equal(t, epoch, att.Header.Stamp)
	assert.InDelta(t, math.Sqrt2/2, att.Quaternion.W, 1e-9)
	assert.InDelta(t, 0, att.Quaternion.X, 1e-9)
	assert.InDelta(t, 0, att.Quaternion.Y, 1e-9)
	assert.InDelta(t, math.Sqrt2/2, att.Quaternion.Z, 1e-9)

	w := last[geometry_msgs.Vector3Stamped](t, f, TopicAngularVelocity)
	assert.Equal(t, geometry_msgs.Vector3{X: 1, Y: -2, Z: -3}, w.Vector)

	a := last[geometry_msgs.Vector3Stamped](t, f, TopicAccelerationGround)
	assert.Equal(t, FrameGroundENU, a.Header.FrameId)
	assert.Equal(t, geometry_msgs.Vector3{X: 2, Y: 1, Z: 3}, a.Vector)
}

func TestBatteryUnits(t *testing.T) {
	f := newFixture(t)
	f.node.on5Hz(&osdk.Snapshot{
		BatteryInfo: osdk.BatteryInfo{Capacity: 4280, Voltage: 22800, Current: -1500, Percentage: 87},
	})
	b := last[sensor_msgs.BatteryState](t, f, TopicBatteryState)
	assert.InDelta(t, 22.8, b.Voltage, 1e-5)
	assert.InDelta(t, -1.5, b.Current, 1e-6)
	assert.InDelta(t, 4.28, b.Capacity, 1e-6)
	assert.InDelta(t, 0.87, b.Percentage, 1e-6)
	assert.True(t, b.Present)

	f.node.on5Hz(&osdk.Snapshot{})
	assert.False(t, last[sensor_msgs.BatteryState](t, f, TopicBatteryState).Present)
	_, ok := f.bus.Last(TopicRTKPosition)
	assert.False(t, ok, "RTK topics stay silent without RTK support")
}

func TestRTKTopics(t *testing.T) {
	f := newFixture(t)
	f.node.rtkSupport = true
	f.node.on5Hz(&osdk.Snapshot{
		RTKPosition:      osdk.RTKPosition{Latitude: 47.1, Longitude: 8.5, HFSL: 500},
		RTKVelocity:      osdk.Vector3f{X: 1, Y: 2, Z: 3},
		RTKYaw:           -90,
		RTKPositionInfo:  50,
		RTKYawInfo:       16,
		RTKConnectStatus: 1,
	})
	pos := last[sensor_msgs.NavSatFix](t, f, TopicRTKPosition)
	assert.Equal(t, 47.1, pos.Latitude)
	assert.Equal(t, 500.0, pos.Altitude)
	assert.Equal(t, geometry_msgs.Vector3{X: 2, Y: 1, Z: 3}, last[geometry_msgs.Vector3Stamped](t, f, TopicRTKVelocity).Vector)
	assert.Equal(t, int16(-90), last[std_msgs.Int16](t, f, TopicRTKYaw).Data)
	assert.Equal(t, uint8(50), last[std_msgs.UInt8](t, f, TopicRTKInfoPosition).Data)
	assert.Equal(t, uint8(16), last[std_msgs.UInt8](t, f, TopicRTKInfoYaw).Data)
	assert.Equal(t, uint8(1), last[std_msgs.UInt8](t, f, TopicRTKConnectionStatus).Data)
}

func snapshot50(lat, lon float64, alt float32, health uint8) *osdk.Snapshot {
	return &osdk.Snapshot{
		GPSFused: osdk.GPSFused{
			Latitude:  frames.Deg2Rad(lat),
			Longitude: frames.Deg2Rad(lon),
			Altitude:  alt,
		},
		GPSSignalLevel:    health,
		HeightFusion:      12.5,
		StatusFlight:      osdk.FlightStatusInAir,
		StatusDisplayMode: 6,
		Velocity:          osdk.Velocity{Data: osdk.Vector3f{X: 3, Y: 4, Z: 1}},
		GimbalAngles:      osdk.Vector3f{X: -30, Y: 2, Z: 45},
		RCWithFlagData: osdk.RCWithFlag{
			Roll: 0.1, Pitch: -0.2, Yaw: 0.3, Throttle: 0.4, Mode: 8000, Gear: -10000,
			Flag: osdk.RCFlag{LogicConnected: true, GroundConnected: true},
		},
		PositionVO:    osdk.PositionVO{X: 1, Y: 2, Z: -3, XHealth: 1, YHealth: 1},
		FlightAnomaly: 0x40,
		Received:      epoch,
	}
}

func TestFiftyHertzTopics(t *testing.T) {
	f := newFixture(t)
	f.node.on50Hz(snapshot50(47.3977, 8.5456, 510, 5))

	gps := last[sensor_msgs.NavSatFix](t, f, TopicGPSPosition)
	assert.InDelta(t, 47.3977, gps.Latitude, 1e-9)
	assert.InDelta(t, 8.5456, gps.Longitude, 1e-9)
	assert.Equal(t, 510.0, gps.Altitude)

	assert.Equal(t, uint8(5), last[std_msgs.UInt8](t, f, TopicGPSHealth).Data)
	assert.Equal(t, float32(12.5), last[std_msgs.Float32](t, f, TopicHeightAboveTakeoff).Data)
	assert.Equal(t, osdk.FlightStatusInAir, last[std_msgs.UInt8](t, f, TopicFlightStatus).Data)
	assert.Equal(t, uint8(6), last[std_msgs.UInt8](t, f, TopicDisplayMode).Data)
	assert.Equal(t, geometry_msgs.Vector3{X: 4, Y: 3, Z: 1}, last[geometry_msgs.Vector3Stamped](t, f, TopicVelocity).Vector)
	assert.Equal(t, geometry_msgs.Vector3{X: 2, Y: -30, Z: 45}, last[geometry_msgs.Vector3Stamped](t, f, TopicGimbalAngle).Vector)

	rc := last[sensor_msgs.Joy](t, f, TopicRC)
	assert.Equal(t, []float32{0.1, -0.2, 0.3, 0.4, 8000, -10000}, rc.Axes)
	assert.Equal(t, uint8(0b101), last[std_msgs.UInt8](t, f, TopicRCConnectionStatus).Data)

	vo := last[msgs.VOPosition](t, f, TopicVOPosition)
	assert.Equal(t, float32(-3), vo.Z)
	assert.Equal(t, uint8(0), vo.ZHealth)
	assert.Equal(t, uint32(0x40), last[msgs.FlightAnomaly](t, f, TopicFlightAnomaly).Data)

	_, ok := f.bus.Last(TopicLocalPosition)
	assert.False(t, ok, "no local position before a reference is set")
}

func TestLocalPositionReference(t *testing.T) {
	f := newFixture(t)

	f.node.on50Hz(snapshot50(47.0, 8.0, 500, osdk.GPSHealthThreshold))
	res := call[srvs.SetLocalPosRefRes](t, f, ServiceSetLocalPosReference, &srvs.SetLocalPosRefReq{})
	assert.False(t, res.Result, "health equal to the threshold is not enough")
	_, set := f.node.LocalPositionReference()
	assert.False(t, set)

	f.node.on50Hz(snapshot50(47.0, 8.0, 500, 4))
	res = call[srvs.SetLocalPosRefRes](t, f, ServiceSetLocalPosReference, &srvs.SetLocalPosRefReq{})
	require.True(t, res.Result)

	ref := last[sensor_msgs.NavSatFix](t, f, TopicLocalFrameRef)
	assert.InDelta(t, 47.0, ref.Latitude, 1e-9)
	assert.InDelta(t, 8.0, ref.Longitude, 1e-9)

	f.node.on50Hz(snapshot50(47.001, 8.002, 512, 5))
	local := last[geometry_msgs.PointStamped](t, f, TopicLocalPosition)
	wantX, wantY := frames.GPSToENU(8.002, 47.001, 8.0, 47.0)
	assert.InDelta(t, wantX, local.Point.X, 1e-6)
	assert.InDelta(t, wantY, local.Point.Y, 1e-6)
	assert.InDelta(t, 12, local.Point.Z, 1e-6)
	assert.Equal(t, FrameLocal, local.Header.FrameId)
}

func TestImuAndTriggerTime(t *testing.T) {
	f := newFixture(t)
	hs := osdk.HardSync{
		TS: osdk.SyncTimestamp{Time2p5ms: 100, Flag: 0},
		Q:  osdk.Quaternion{Q0: 1},
		A:  osdk.Vector3f{Z: -1},
		W:  osdk.Vector3f{X: 0.1, Y: 0.2, Z: 0.3},
	}
	f.node.on400Hz(&osdk.Snapshot{HardSync: hs, Received: epoch})

	imu := last[sensor_msgs.Imu](t, f, TopicImu)
	assert.Equal(t, FrameBodyFLU, imu.Header.FrameId)
	assert.InDelta(t, f.cfg.GravityConst, imu.LinearAcceleration.Z, 1e-6)
	assert.InDelta(t, -0.2, imu.AngularVelocity.Y, 1e-6)
	assert.InDelta(t, math.Sqrt2/2, imu.Orientation.Z, 1e-6)
	_, ok := f.bus.Last(TopicTriggerTime)
	assert.False(t, ok)

	hs.TS.Flag = 1
	f.node.on400Hz(&osdk.Snapshot{HardSync: hs, Received: epoch})
	trig := last[sensor_msgs.TimeReference](t, f, TopicTriggerTime)
	assert.Equal(t, "FC", trig.Source)
	assert.Equal(t, epoch, trig.TimeRef)
}

func TestImuStampFollowsAlignedClock(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AlignTimeWithFC = true })

	base := epoch
	var tick uint32
	for i := 0; i <= timealign.StableSamples+1; i++ {
		tick = uint32(1000 + i)
		now := base.Add(time.Duration(tick) * timealign.TickPeriod)
		// host jitter within tolerance
		if i%2 == 0 {
			now = now.Add(time.Millisecond)
		}
		f.node.on400Hz(&osdk.Snapshot{HardSync: osdk.HardSync{TS: osdk.SyncTimestamp{Time2p5ms: tick}}, Received: now})
	}
	require.Equal(t, timealign.Aligned, f.node.Alignment().Status())

	late := base.Add(time.Duration(tick+1)*timealign.TickPeriod + 3*time.Millisecond)
	f.node.on400Hz(&osdk.Snapshot{HardSync: osdk.HardSync{TS: osdk.SyncTimestamp{Time2p5ms: tick + 1}}, Received: late})
	imu := last[sensor_msgs.Imu](t, f, TopicImu)
	assert.Equal(t, f.node.Alignment().Base().Add(time.Duration(tick+1)*timealign.TickPeriod), imu.Header.Stamp)
}

func TestImuStampIsHostTimeWhenAlignmentDisabled(t *testing.T) {
	f := newFixture(t)
	at := epoch.Add(time.Second)
	f.node.on400Hz(&osdk.Snapshot{HardSync: osdk.HardSync{TS: osdk.SyncTimestamp{Time2p5ms: 7}}, Received: at})
	assert.Equal(t, at, last[sensor_msgs.Imu](t, f, TopicImu).Header.Stamp)
	assert.Equal(t, timealign.Unaligned, f.node.Alignment().Status())
}

func TestFlightTasks(t *testing.T) {
	f := newFixture(t)
	task := func(code uint8) bool {
		return call[srvs.FlightTaskControlRes](t, f, ServiceFlightTaskControl, &srvs.FlightTaskControlReq{Task: code}).Result
	}

	assert.True(t, task(srvs.TaskTakeoff))
	assert.True(t, f.vehicle.State().InAir)

	res := call[srvs.FlightTaskControlRes](t, f, ServiceFlightTaskControl, &srvs.FlightTaskControlReq{
		Task:              srvs.TaskPositionAndYawControl,
		JoystickCommand:   msgs.JoystickParams{X: 5, Y: 0, Z: 1, Yaw: 90},
		PosThresholdInM:   0.5,
		YawThresholdInDeg: 1,
	})
	assert.True(t, res.Result)

	res = call[srvs.FlightTaskControlRes](t, f, ServiceFlightTaskControl, &srvs.FlightTaskControlReq{
		Task:                  srvs.TaskVelocityAndYawRateControl,
		JoystickCommand:       msgs.JoystickParams{X: 1},
		VelocityControlTimeMs: 2000,
	})
	assert.True(t, res.Result)

	assert.True(t, task(srvs.TaskGoHome))
	assert.True(t, f.vehicle.State().GoingHome)
	assert.True(t, task(srvs.TaskExitGoHome))
	assert.True(t, task(srvs.TaskLand))
	assert.False(t, task(srvs.TaskLand), "landing on the ground fails")
	assert.False(t, task(99), "unknown task")

	assert.Contains(t, f.vehicle.Calls(), "MoveByPositionOffset(5.00,0.00,1.00,90.00)")
	assert.Contains(t, f.vehicle.Calls(), "VelocityAndYawRateCtrl(1.00,0.00,0.00,0.00,2s)")
}

func TestFlightTaskSDKFailureIsResultFalse(t *testing.T) {
	f := newFixture(t)
	f.vehicle.FailNext("TurnOnMotors", osdk.ErrNotSupported)
	res := call[srvs.FlightTaskControlRes](t, f, ServiceFlightTaskControl, &srvs.FlightTaskControlReq{Task: srvs.TaskStartMotor})
	assert.False(t, res.Result)
}

func TestGoHomeAltitudeLimits(t *testing.T) {
	f := newFixture(t)
	for _, alt := range []uint16{0, 19, 501} {
		res := call[srvs.SetGoHomeAltitudeRes](t, f, ServiceSetGoHomeAltitude, &srvs.SetGoHomeAltitudeReq{Altitude: alt})
		assert.False(t, res.Result, "altitude %d", alt)
	}
	assert.Empty(t, f.vehicle.Calls(), "out of range altitudes never reach the vehicle")

	for _, alt := range []uint16{20, 500} {
		res := call[srvs.SetGoHomeAltitudeRes](t, f, ServiceSetGoHomeAltitude, &srvs.SetGoHomeAltitudeReq{Altitude: alt})
		assert.True(t, res.Result, "altitude %d", alt)
	}
	assert.Equal(t, uint16(500), f.vehicle.State().GoHomeAlt)
}

func TestHomeAndAvoid(t *testing.T) {
	f := newFixture(t)
	assert.True(t, call[srvs.SetNewHomePointRes](t, f, ServiceSetCurrentPointAsHome, &srvs.SetNewHomePointReq{}).Result)
	assert.True(t, call[srvs.AvoidEnableRes](t, f, ServiceSetAvoidEnable, &srvs.AvoidEnableReq{Enable: false}).Result)
	assert.False(t, f.vehicle.State().Avoid)
}

func TestGimbalService(t *testing.T) {
	f := newFixture(t)
	res := call[srvs.GimbalActionRes](t, f, ServiceGimbalTaskControl, &srvs.GimbalActionReq{
		Pitch: -45, Yaw: 30, RotationMode: uint8(osdk.GimbalRotationAbsolute), Time: 1,
	})
	require.True(t, res.Result)
	assert.Equal(t, frames.Pose{Pitch: -45, Yaw: 30}, f.vehicle.State().Gimbal)

	res = call[srvs.GimbalActionRes](t, f, ServiceGimbalTaskControl, &srvs.GimbalActionReq{IsReset: true})
	require.True(t, res.Result)
	assert.Equal(t, frames.Pose{}, f.vehicle.State().Gimbal)
}

func TestCameraServices(t *testing.T) {
	f := newFixture(t)

	assert.True(t, call[srvs.CameraEVRes](t, f, ServiceCameraExposureModeSetting, &srvs.CameraEVReq{PayloadIndex: 1, ExposureMode: 1, ExposureCompensation: 16}).Result)
	assert.True(t, call[srvs.CameraShutterSpeedRes](t, f, ServiceCameraShutterSpeedSetting, &srvs.CameraShutterSpeedReq{ShutterSpeed: 20}).Result)
	assert.True(t, call[srvs.CameraApertureRes](t, f, ServiceCameraApertureSetting, &srvs.CameraApertureReq{Aperture: 280}).Result)
	assert.True(t, call[srvs.CameraISORes](t, f, ServiceCameraISOSetting, &srvs.CameraISOReq{ISOData: 3}).Result)
	assert.True(t, call[srvs.CameraFocusPointRes](t, f, ServiceCameraFocusPointSetting, &srvs.CameraFocusPointReq{X: 0.5, Y: 0.5}).Result)
	assert.False(t, call[srvs.CameraFocusPointRes](t, f, ServiceCameraFocusPointSetting, &srvs.CameraFocusPointReq{X: 1.5}).Result)
	assert.True(t, call[srvs.CameraTapZoomPointRes](t, f, ServiceCameraTapZoomPointSetting, &srvs.CameraTapZoomPointReq{Multiplier: 2, X: 0.2, Y: 0.8}).Result)
	assert.True(t, call[srvs.CameraZoomCtrlRes](t, f, ServiceCameraZoomCtrl, &srvs.CameraZoomCtrlReq{StartStop: srvs.ZoomStart, Direction: uint8(osdk.ZoomIn), Speed: 3}).Result)
	assert.True(t, call[srvs.CameraZoomCtrlRes](t, f, ServiceCameraZoomCtrl, &srvs.CameraZoomCtrlReq{StartStop: srvs.ZoomStop}).Result)
	assert.True(t, call[srvs.CameraStartShootSinglePhotoRes](t, f, ServiceCameraStartShootSinglePhoto, &srvs.CameraStartShootSinglePhotoReq{}).Result)
	assert.True(t, call[srvs.CameraStartShootAEBPhotoRes](t, f, ServiceCameraStartShootAEBPhoto, &srvs.CameraStartShootAEBPhotoReq{PhotoAEBCount: 3}).Result)
	assert.True(t, call[srvs.CameraStartShootBurstPhotoRes](t, f, ServiceCameraStartShootBurstPhoto, &srvs.CameraStartShootBurstPhotoReq{PhotoBurstCount: 5}).Result)
	assert.True(t, call[srvs.CameraStartShootIntervalPhotoRes](t, f, ServiceCameraStartShootIntervalPhoto, &srvs.CameraStartShootIntervalPhotoReq{PhotoNumConticap: 10, TimeInterval: 3}).Result)
	assert.True(t, call[srvs.CameraStopShootPhotoRes](t, f, ServiceCameraStopShootPhoto, &srvs.CameraStopShootPhotoReq{}).Result)

	assert.False(t, call[srvs.CameraRecordVideoActionRes](t, f, ServiceCameraRecordVideoAction, &srvs.CameraRecordVideoActionReq{StartStop: srvs.RecordStop}).Result)
	assert.True(t, call[srvs.CameraRecordVideoActionRes](t, f, ServiceCameraRecordVideoAction, &srvs.CameraRecordVideoActionReq{StartStop: srvs.RecordStart}).Result)
	assert.True(t, f.vehicle.State().Recording)

	calls := f.vehicle.Calls()
	assert.Contains(t, calls, "SetEV(1,1,16)")
	assert.Contains(t, calls, "StartZoom(0,1,3)")
	assert.Contains(t, calls, "StopZoom(0)")
	assert.Contains(t, calls, "StartShootIntervalPhoto(0,10,3s)")
}

func TestMFIOService(t *testing.T) {
	f := newFixture(t)

	res := call[srvs.MFIORes](t, f, ServiceMFIOControl, &srvs.MFIOReq{
		Mode: srvs.MFIOModePWMOut, Channel: 0, InitOnTimeUs: 1500, PWMFreq: 50,
	})
	assert.Equal(t, uint32(0), res.ReadValue)

	f.vehicle.SetMFIOInput(3, 1)
	res = call[srvs.MFIORes](t, f, ServiceMFIOControl, &srvs.MFIOReq{Mode: srvs.MFIOModeGPIOIn, Channel: 3})
	assert.Equal(t, uint32(1), res.ReadValue)

	call[srvs.MFIORes](t, f, ServiceMFIOControl, &srvs.MFIOReq{Mode: srvs.MFIOModeGPIOOut, Channel: 2, GPIOValue: 1})

	calls := f.vehicle.Calls()
	assert.Contains(t, calls, "MFIOConfig(0,0,1500,50)")
	assert.Contains(t, calls, "MFIOSetValue(0,1500)")
	assert.Contains(t, calls, "MFIOGetValue(3)")
	assert.Contains(t, calls, "MFIOSetValue(2,1)")
}

func TestTimeSyncAndRawData(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.vehicle.SubscribeTimeSync(context.Background(), f.node.timeSyncHandlers()))
	f.vehicle.SetMobileDataHandler(f.node.onMobileData)
	f.vehicle.SetPayloadDataHandler(f.node.onPayloadData)

	f.vehicle.EmitTimeSync()
	nmea := last[msgs.Sentence](t, f, TopicTimeSyncNMEA)
	assert.Contains(t, nmea.Sentence, "$GPRMC,090000.00,A,")
	assert.Equal(t, FrameNMEA, nmea.Header.FrameId)
	assert.Equal(t, "2026-10-17T09:00:00.000Z", last[msgs.GPSUTC](t, f, TopicTimeSyncGPSUTC).Timestamp)
	assert.Equal(t, uint32(90000), last[msgs.FCTimeInUTC](t, f, TopicTimeSyncFCTimeUTC).FCUTCHHMMSS)
	assert.Equal(t, string(osdk.PPSInternalGPS), last[std_msgs.String](t, f, TopicTimeSyncPPSSource).Data)

	f.vehicle.SendFromMobile([]byte{1, 2, 3})
	f.vehicle.SendFromPayload([]byte{9})
	assert.Equal(t, []uint8{1, 2, 3}, last[msgs.MobileData](t, f, TopicFromMobileData).Data)
	assert.Equal(t, []uint8{9}, last[msgs.PayloadData](t, f, TopicFromPayloadData).Data)
}
