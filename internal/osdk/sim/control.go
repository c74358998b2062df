package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

const takeoffHeight = 1.2

type flightController Vehicle

func (f *flightController) v() *Vehicle { return (*Vehicle)(f) }

func (f *flightController) StartTakeoff(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("StartTakeoff", ""); err != nil {
		return err
	}
	if v.inAir {
		return fmt.Errorf("sim: already in air")
	}
	v.motorsOn = true
	v.inAir = true
	v.offset.Z = takeoffHeight
	return nil
}

func (f *flightController) land(op string) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call(op, ""); err != nil {
		return err
	}
	if !v.inAir {
		return fmt.Errorf("sim: %s: not in air", op)
	}
	v.inAir = false
	v.goingHome = false
	v.motorsOn = false
	v.offset.Z = 0
	return nil
}

func (f *flightController) StartLanding(ctx context.Context) error {
	return f.land("StartLanding")
}

func (f *flightController) StartConfirmLanding(ctx context.Context) error {
	return f.land("StartConfirmLanding")
}

func (f *flightController) StartForceLanding(ctx context.Context) error {
	return f.land("StartForceLanding")
}

func (f *flightController) StartForceLandingAvoidGround(ctx context.Context) error {
	return f.land("StartForceLandingAvoidGround")
}

func (f *flightController) StartGoHome(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("StartGoHome", ""); err != nil {
		return err
	}
	if !v.inAir {
		return fmt.Errorf("sim: go home: not in air")
	}
	v.goingHome = true
	v.offset = frames.Vector3{Z: float64(v.goHomeAlt)}
	return nil
}

func (f *flightController) CancelGoHome(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("CancelGoHome", ""); err != nil {
		return err
	}
	v.goingHome = false
	return nil
}

func (f *flightController) CancelLanding(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.call("CancelLanding", "")
}

func (f *flightController) TurnOnMotors(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("TurnOnMotors", ""); err != nil {
		return err
	}
	v.motorsOn = true
	return nil
}

func (f *flightController) TurnOffMotors(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("TurnOffMotors", ""); err != nil {
		return err
	}
	if v.inAir {
		return fmt.Errorf("sim: refusing to stop motors in air")
	}
	v.motorsOn = false
	return nil
}

func (f *flightController) MoveByPositionOffset(ctx context.Context, cmd osdk.JoystickCommand, posThresholdM, yawThresholdDeg float32) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("MoveByPositionOffset", "(%.2f,%.2f,%.2f,%.2f)", cmd.X, cmd.Y, cmd.Z, cmd.Yaw); err != nil {
		return err
	}
	if !v.inAir {
		return fmt.Errorf("sim: move: not in air")
	}
	// offsets are NED-style x=north, y=east on the flight controller
	v.offset.Y += float64(cmd.X)
	v.offset.X += float64(cmd.Y)
	v.offset.Z += float64(cmd.Z)
	return nil
}

func (f *flightController) VelocityAndYawRateCtrl(ctx context.Context, cmd osdk.JoystickCommand, duration time.Duration) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("VelocityAndYawRateCtrl", "(%.2f,%.2f,%.2f,%.2f,%s)", cmd.X, cmd.Y, cmd.Z, cmd.Yaw, duration); err != nil {
		return err
	}
	if !v.inAir {
		return fmt.Errorf("sim: velocity control: not in air")
	}
	s := duration.Seconds()
	v.offset.Y += float64(cmd.X) * s
	v.offset.X += float64(cmd.Y) * s
	v.offset.Z += float64(cmd.Z) * s
	return nil
}

func (f *flightController) SetGoHomeAltitude(ctx context.Context, metres uint16) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("SetGoHomeAltitude", "(%d)", metres); err != nil {
		return err
	}
	v.goHomeAlt = metres
	return nil
}

func (f *flightController) SetHomeLocationUsingCurrentAircraftLocation(ctx context.Context) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("SetHomeLocationUsingCurrentAircraftLocation", ""); err != nil {
		return err
	}
	s := v.snapshotLocked()
	v.home = Home{
		Latitude:  frames.Rad2Deg(s.GPSFused.Latitude),
		Longitude: frames.Rad2Deg(s.GPSFused.Longitude),
		Altitude:  v.home.Altitude,
	}
	v.offset.X, v.offset.Y = 0, 0
	return nil
}

func (f *flightController) SetCollisionAvoidanceEnabled(ctx context.Context, enable bool) error {
	v := f.v()
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("SetCollisionAvoidanceEnabled", "(%t)", enable); err != nil {
		return err
	}
	v.avoid = enable
	return nil
}

type gimbal Vehicle

func (g *gimbal) ResetGimbal(ctx context.Context, payload int) error {
	v := (*Vehicle)(g)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("ResetGimbal", "(%d)", payload); err != nil {
		return err
	}
	v.gimbal[payload] = frames.Pose{}
	return nil
}

func (g *gimbal) RotateGimbal(ctx context.Context, payload int, r osdk.GimbalRotation) error {
	v := (*Vehicle)(g)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("RotateGimbal", "(%d,%d,%.1f,%.1f,%.1f,%.1f)", payload, r.Mode, r.Pitch, r.Roll, r.Yaw, r.Time); err != nil {
		return err
	}
	p := frames.Pose{Roll: float64(r.Roll), Pitch: float64(r.Pitch), Yaw: float64(r.Yaw)}
	if r.Mode == osdk.GimbalRotationIncremental {
		cur := v.gimbal[payload]
		p = frames.Pose{Roll: cur.Roll + p.Roll, Pitch: cur.Pitch + p.Pitch, Yaw: cur.Yaw + p.Yaw}
	}
	v.gimbal[payload] = p
	return nil
}

type camera Vehicle

func (c *camera) record(op, format string, args ...any) error {
	v := (*Vehicle)(c)
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.call(op, format, args...)
}

func (c *camera) SetEV(ctx context.Context, payload int, exposureMode uint8, ev uint8) error {
	return c.record("SetEV", "(%d,%d,%d)", payload, exposureMode, ev)
}

func (c *camera) SetShutterSpeed(ctx context.Context, payload int, exposureMode uint8, shutter uint8) error {
	return c.record("SetShutterSpeed", "(%d,%d,%d)", payload, exposureMode, shutter)
}

func (c *camera) SetAperture(ctx context.Context, payload int, exposureMode uint8, aperture uint16) error {
	return c.record("SetAperture", "(%d,%d,%d)", payload, exposureMode, aperture)
}

func (c *camera) SetISO(ctx context.Context, payload int, exposureMode uint8, iso uint8) error {
	return c.record("SetISO", "(%d,%d,%d)", payload, exposureMode, iso)
}

func (c *camera) SetFocusPoint(ctx context.Context, payload int, x, y float32) error {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("sim: focus point (%.2f,%.2f) out of range", x, y)
	}
	return c.record("SetFocusPoint", "(%d,%.2f,%.2f)", payload, x, y)
}

func (c *camera) SetTapZoomPoint(ctx context.Context, payload int, multiplier uint8, x, y float32) error {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("sim: tap zoom point (%.2f,%.2f) out of range", x, y)
	}
	return c.record("SetTapZoomPoint", "(%d,%d,%.2f,%.2f)", payload, multiplier, x, y)
}

func (c *camera) StartZoom(ctx context.Context, payload int, dir osdk.ZoomDirection, speed uint8) error {
	return c.record("StartZoom", "(%d,%d,%d)", payload, dir, speed)
}

func (c *camera) StopZoom(ctx context.Context, payload int) error {
	return c.record("StopZoom", "(%d)", payload)
}

func (c *camera) StartShootSinglePhoto(ctx context.Context, payload int) error {
	return c.record("StartShootSinglePhoto", "(%d)", payload)
}

func (c *camera) StartShootBurstPhoto(ctx context.Context, payload int, count uint8) error {
	return c.record("StartShootBurstPhoto", "(%d,%d)", payload, count)
}

func (c *camera) StartShootAEBPhoto(ctx context.Context, payload int, count uint8) error {
	return c.record("StartShootAEBPhoto", "(%d,%d)", payload, count)
}

func (c *camera) StartShootIntervalPhoto(ctx context.Context, payload int, count uint8, interval time.Duration) error {
	return c.record("StartShootIntervalPhoto", "(%d,%d,%s)", payload, count, interval)
}

func (c *camera) StopShootPhoto(ctx context.Context, payload int) error {
	return c.record("StopShootPhoto", "(%d)", payload)
}

func (c *camera) StartRecordVideo(ctx context.Context, payload int) error {
	v := (*Vehicle)(c)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("StartRecordVideo", "(%d)", payload); err != nil {
		return err
	}
	v.recording[payload] = true
	return nil
}

func (c *camera) StopRecordVideo(ctx context.Context, payload int) error {
	v := (*Vehicle)(c)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("StopRecordVideo", "(%d)", payload); err != nil {
		return err
	}
	if !v.recording[payload] {
		return fmt.Errorf("sim: payload %d is not recording", payload)
	}
	v.recording[payload] = false
	return nil
}

type mfio Vehicle

func (m *mfio) Config(ctx context.Context, mode osdk.MFIOMode, channel uint8, initOnTimeUs uint32, pwmFreq uint16) error {
	v := (*Vehicle)(m)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("MFIOConfig", "(%d,%d,%d,%d)", mode, channel, initOnTimeUs, pwmFreq); err != nil {
		return err
	}
	value := initOnTimeUs
	if ch, ok := v.mfio[channel]; ok && isInput(mode) {
		value = ch.value
	}
	v.mfio[channel] = &mfioChannel{mode: mode, value: value}
	return nil
}

func isInput(mode osdk.MFIOMode) bool {
	return mode == osdk.MFIOPWMIn || mode == osdk.MFIOGPIOIn || mode == osdk.MFIOADC
}

func (m *mfio) SetValue(ctx context.Context, channel uint8, value uint32) error {
	v := (*Vehicle)(m)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("MFIOSetValue", "(%d,%d)", channel, value); err != nil {
		return err
	}
	ch, ok := v.mfio[channel]
	if !ok {
		return fmt.Errorf("sim: mfio channel %d not configured", channel)
	}
	ch.value = value
	return nil
}

func (m *mfio) GetValue(ctx context.Context, channel uint8) (uint32, error) {
	v := (*Vehicle)(m)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("MFIOGetValue", "(%d)", channel); err != nil {
		return 0, err
	}
	ch, ok := v.mfio[channel]
	if !ok {
		return 0, fmt.Errorf("sim: mfio channel %d not configured", channel)
	}
	return ch.value, nil
}

// SetMFIOInput sets what an input channel reads back.
func (v *Vehicle) SetMFIOInput(channel uint8, value uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ch, ok := v.mfio[channel]; ok {
		ch.value = value
		return
	}
	v.mfio[channel] = &mfioChannel{mode: osdk.MFIOGPIOIn, value: value}
}

// State is a read-only view of the simulated aircraft used by tests and the console.
type State struct {
	MotorsOn  bool
	InAir     bool
	GoingHome bool
	GoHomeAlt uint16
	Avoid     bool
	Home      Home
	Gimbal    frames.Pose
	Recording bool
}

// State returns the simulated aircraft state.
func (v *Vehicle) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return State{
		MotorsOn:  v.motorsOn,
		InAir:     v.inAir,
		GoingHome: v.goingHome,
		GoHomeAlt: v.goHomeAlt,
		Avoid:     v.avoid,
		Home:      v.home,
		Gimbal:    v.gimbal[0],
		Recording: v.recording[0],
	}
}
