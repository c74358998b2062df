// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mavlink

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

const (
	takeoffAltitude = 1.2 // metres, as the auto takeoff of the flight controller
	// ArduPilot parameters behind the go-home altitude and obstacle avoidance.
	paramRTLAltitude = "RTL_ALT"
	paramAvoidEnable = "AVOID_ENABLE"
	avoidAll         = 7

	zoomTypeContinuous  = 1
	focusTypeAutoSingle = 5

	// setpoints must be refreshed faster than the autopilot's offboard timeout
	setpointPeriod      = 100 * time.Millisecond
	defaultPosThreshold = 0.2
)

type flightController Vehicle

func (f *flightController) v() *Vehicle { return (*Vehicle)(f) }

func (f *flightController) arm(ctx context.Context, on bool) error {
	var p params
	if on {
		p[0] = 1
	}
	return f.v().command(ctx, common.MAV_CMD_COMPONENT_ARM_DISARM, p)
}

func (f *flightController) StartTakeoff(ctx context.Context) error {
	if err := f.arm(ctx, true); err != nil {
		return fmt.Errorf("arm: %w", err)
	}
	return f.v().command(ctx, common.MAV_CMD_NAV_TAKEOFF, params{6: takeoffAltitude})
}

func (f *flightController) land(ctx context.Context) error {
	// NaN keeps the current position and yaw
	nan := float32(math.NaN())
	return f.v().command(ctx, common.MAV_CMD_NAV_LAND, params{3: nan, 4: nan, 5: nan})
}

func (f *flightController) StartLanding(ctx context.Context) error {
	return f.land(ctx)
}

// StartConfirmLanding lands; autopilots do not stop above the ground to ask.
func (f *flightController) StartConfirmLanding(ctx context.Context) error {
	return f.land(ctx)
}

func (f *flightController) StartForceLanding(ctx context.Context) error {
	return f.land(ctx)
}

func (f *flightController) StartForceLandingAvoidGround(ctx context.Context) error {
	return f.land(ctx)
}

func (f *flightController) StartGoHome(ctx context.Context) error {
	return f.v().command(ctx, common.MAV_CMD_NAV_RETURN_TO_LAUNCH, params{})
}

// CancelGoHome and CancelLanding pause the current mission item and hold position.
func (f *flightController) CancelGoHome(ctx context.Context) error {
	return f.v().command(ctx, common.MAV_CMD_DO_PAUSE_CONTINUE, params{})
}

func (f *flightController) CancelLanding(ctx context.Context) error {
	return f.v().command(ctx, common.MAV_CMD_DO_PAUSE_CONTINUE, params{})
}

func (f *flightController) TurnOnMotors(ctx context.Context) error {
	return f.arm(ctx, true)
}

func (f *flightController) TurnOffMotors(ctx context.Context) error {
	return f.arm(ctx, false)
}

// MoveByPositionOffset sends a local position target cmd.X north, cmd.Y east and
// cmd.Z up from the current position and waits until it is reached.
func (f *flightController) MoveByPositionOffset(ctx context.Context, cmd osdk.JoystickCommand, posThresholdM, yawThresholdDeg float32) error {
	v := f.v()
	start := v.Snapshot().PositionVO
	target := frames.Vector3{
		X: float64(start.X + cmd.X),
		Y: float64(start.Y + cmd.Y),
		Z: float64(start.Z - cmd.Z),
	}
	threshold := float64(posThresholdM)
	if threshold <= 0 {
		threshold = defaultPosThreshold
	}

	ticker := time.NewTicker(setpointPeriod)
	defer ticker.Stop()
	for {
		err := v.positionTarget(common.MAV_FRAME_LOCAL_NED, positionAndYaw, common.MessageSetPositionTargetLocalNed{
			X:   float32(target.X),
			Y:   float32(target.Y),
			Z:   float32(target.Z),
			Yaw: float32(frames.Deg2Rad(float64(cmd.Yaw))),
		})
		if err != nil {
			return fmt.Errorf("position target: %w", err)
		}

		p := v.Snapshot().PositionVO
		d := math.Sqrt(math.Pow(float64(p.X)-target.X, 2) + math.Pow(float64(p.Y)-target.Y, 2) + math.Pow(float64(p.Z)-target.Z, 2))
		if d <= threshold {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("move by offset: %.2f m from target: %w", d, ctx.Err())
		case <-ticker.C:
		}
	}
}

// VelocityAndYawRateCtrl streams a velocity setpoint (north, east, up m/s and yaw
// deg/s) for duration.
func (f *flightController) VelocityAndYawRateCtrl(ctx context.Context, cmd osdk.JoystickCommand, duration time.Duration) error {
	v := f.v()
	setpoint := common.MessageSetPositionTargetLocalNed{
		Vx:      cmd.X,
		Vy:      cmd.Y,
		Vz:      -cmd.Z,
		YawRate: float32(frames.Deg2Rad(float64(cmd.Yaw))),
	}

	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	ticker := time.NewTicker(setpointPeriod)
	defer ticker.Stop()
	for {
		if err := v.positionTarget(common.MAV_FRAME_LOCAL_NED, velocityAndYawRate, setpoint); err != nil {
			return fmt.Errorf("velocity target: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
		}
	}
}

func (f *flightController) SetGoHomeAltitude(ctx context.Context, metres uint16) error {
	return f.v().setParam(ctx, paramRTLAltitude, float32(metres)*100)
}

func (f *flightController) SetHomeLocationUsingCurrentAircraftLocation(ctx context.Context) error {
	return f.v().command(ctx, common.MAV_CMD_DO_SET_HOME, params{0: 1})
}

func (f *flightController) SetCollisionAvoidanceEnabled(ctx context.Context, enable bool) error {
	var value float32
	if enable {
		value = avoidAll
	}
	return f.v().setParam(ctx, paramAvoidEnable, value)
}

type gimbal Vehicle

func (g *gimbal) ResetGimbal(ctx context.Context, payload int) error {
	return g.pitchYaw(ctx, payload, 0, 0, 0)
}

// RotateGimbal goes through the gimbal manager, which has no roll axis. A non-zero
// Time turns the move into a rate so it takes about that long.
func (g *gimbal) RotateGimbal(ctx context.Context, payload int, r osdk.GimbalRotation) error {
	v := (*Vehicle)(g)
	cur := v.Snapshot().GimbalAngles
	pitch, yaw := r.Pitch, r.Yaw
	if r.Mode == osdk.GimbalRotationIncremental {
		pitch += cur.X
		yaw += cur.Z
	}
	return g.pitchYaw(ctx, payload, pitch, yaw, r.Time)
}

func (g *gimbal) pitchYaw(ctx context.Context, payload int, pitch, yaw float32, seconds float64) error {
	if payload < 0 || payload >= math.MaxUint8 {
		return fmt.Errorf("%w: %d", ErrPayloadIndex, payload)
	}
	v := (*Vehicle)(g)
	nan := float32(math.NaN())
	pitchRate, yawRate := nan, nan
	if seconds > 0 {
		cur := v.Snapshot().GimbalAngles
		pitchRate = float32(math.Abs(float64(pitch-cur.X)) / seconds)
		yawRate = float32(math.Abs(float64(yaw-cur.Z)) / seconds)
	}
	// gimbal device ids start at 1; 0 addresses all of them
	return v.command(ctx, common.MAV_CMD_DO_GIMBAL_MANAGER_PITCHYAW, params{
		0: pitch, 1: yaw, 2: pitchRate, 3: yawRate, 6: float32(payload + 1),
	})
}

type camera Vehicle

func (c *camera) command(ctx context.Context, payload int, cmd common.MAV_CMD, p params) error {
	comp, err := cameraTarget(payload)
	if err != nil {
		return err
	}
	return (*Vehicle)(c).commandTo(ctx, comp, cmd, p)
}

// Exposure settings have no portable MAVLink command.
func (c *camera) SetEV(ctx context.Context, payload int, exposureMode uint8, ev uint8) error {
	return osdk.ErrNotSupported
}

func (c *camera) SetShutterSpeed(ctx context.Context, payload int, exposureMode uint8, shutter uint8) error {
	return osdk.ErrNotSupported
}

func (c *camera) SetAperture(ctx context.Context, payload int, exposureMode uint8, aperture uint16) error {
	return osdk.ErrNotSupported
}

func (c *camera) SetISO(ctx context.Context, payload int, exposureMode uint8, iso uint8) error {
	return osdk.ErrNotSupported
}

// SetFocusPoint triggers a single autofocus; MAVLink cameras pick their own point.
func (c *camera) SetFocusPoint(ctx context.Context, payload int, x, y float32) error {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("focus point (%.2f,%.2f) outside [0,1]", x, y)
	}
	return c.command(ctx, payload, common.MAV_CMD_SET_CAMERA_FOCUS, params{0: focusTypeAutoSingle})
}

func (c *camera) SetTapZoomPoint(ctx context.Context, payload int, multiplier uint8, x, y float32) error {
	return osdk.ErrNotSupported
}

func (c *camera) StartZoom(ctx context.Context, payload int, dir osdk.ZoomDirection, speed uint8) error {
	step := float32(-1)
	if dir == osdk.ZoomIn {
		step = 1
	}
	return c.command(ctx, payload, common.MAV_CMD_SET_CAMERA_ZOOM, params{0: zoomTypeContinuous, 1: step})
}

func (c *camera) StopZoom(ctx context.Context, payload int) error {
	return c.command(ctx, payload, common.MAV_CMD_SET_CAMERA_ZOOM, params{0: zoomTypeContinuous, 1: 0})
}

func (c *camera) capture(ctx context.Context, payload int, interval time.Duration, count uint8) error {
	return c.command(ctx, payload, common.MAV_CMD_IMAGE_START_CAPTURE, params{
		1: float32(interval.Seconds()), 2: float32(count),
	})
}

func (c *camera) StartShootSinglePhoto(ctx context.Context, payload int) error {
	return c.capture(ctx, payload, 0, 1)
}

func (c *camera) StartShootBurstPhoto(ctx context.Context, payload int, count uint8) error {
	return c.capture(ctx, payload, 0, count)
}

// StartShootAEBPhoto has no exposure bracketing counterpart.
func (c *camera) StartShootAEBPhoto(ctx context.Context, payload int, count uint8) error {
	return osdk.ErrNotSupported
}

func (c *camera) StartShootIntervalPhoto(ctx context.Context, payload int, count uint8, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval photo: interval must be positive")
	}
	return c.capture(ctx, payload, interval, count)
}

func (c *camera) StopShootPhoto(ctx context.Context, payload int) error {
	return c.command(ctx, payload, common.MAV_CMD_IMAGE_STOP_CAPTURE, params{})
}

func (c *camera) StartRecordVideo(ctx context.Context, payload int) error {
	return c.command(ctx, payload, common.MAV_CMD_VIDEO_START_CAPTURE, params{})
}

func (c *camera) StopRecordVideo(ctx context.Context, payload int) error {
	return c.command(ctx, payload, common.MAV_CMD_VIDEO_STOP_CAPTURE, params{})
}

// mfio maps PWM outputs onto servo outputs and GPIO outputs onto relays. The
// autopilot does not report inputs.
type mfio Vehicle

func (m *mfio) Config(ctx context.Context, mode osdk.MFIOMode, channel uint8, initOnTimeUs uint32, pwmFreq uint16) error {
	if mode != osdk.MFIOPWMOut && mode != osdk.MFIOGPIOOut {
		return fmt.Errorf("mfio mode %d: %w", mode, osdk.ErrNotSupported)
	}
	v := (*Vehicle)(m)
	v.mu.Lock()
	v.mfio[channel] = &mfioChannel{mode: mode}
	v.mu.Unlock()
	return nil
}

func (m *mfio) SetValue(ctx context.Context, channel uint8, value uint32) error {
	v := (*Vehicle)(m)
	v.mu.Lock()
	ch, ok := v.mfio[channel]
	v.mu.Unlock()
	if !ok {
		return fmt.Errorf("mfio channel %d not configured", channel)
	}

	var err error
	switch ch.mode {
	case osdk.MFIOPWMOut:
		// servo outputs are numbered from 1
		err = v.command(ctx, common.MAV_CMD_DO_SET_SERVO, params{0: float32(channel) + 1, 1: float32(value)})
	default:
		state := float32(0)
		if value != 0 {
			state = 1
		}
		err = v.command(ctx, common.MAV_CMD_DO_SET_RELAY, params{0: float32(channel), 1: state})
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	ch.value = value
	v.mu.Unlock()
	return nil
}

// GetValue returns the last value written to an output channel.
func (m *mfio) GetValue(ctx context.Context, channel uint8) (uint32, error) {
	v := (*Vehicle)(m)
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.mfio[channel]
	if !ok {
		return 0, fmt.Errorf("mfio channel %d: %w", channel, osdk.ErrNotSupported)
	}
	return ch.value, nil
}
