// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package osdk is the boundary to the flight-controller SDK: telemetry packages pushed
// at fixed rates, time-sync callbacks and the flight/gimbal/camera/MFIO control calls.
package osdk

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotSupported is returned by backends for calls the vehicle cannot perform.
	ErrNotSupported = errors.New("osdk: operation not supported by this vehicle")
	// ErrPackageInUse is returned when subscribing an index that is already active.
	ErrPackageInUse = errors.New("osdk: package index already subscribed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("osdk: vehicle closed")
)

// Vehicle is a connected aircraft.
type Vehicle interface {
	Telemetry
	TimeSync
	FlightController() FlightController
	Gimbal() Gimbal
	Camera() Camera
	MFIO() MFIO
	Close() error
}

// Telemetry manages rate-based telemetry packages.
type Telemetry interface {
	// SubscribePackage starts pushing pkg at pkg.FreqHz. cb runs on an SDK goroutine.
	SubscribePackage(ctx context.Context, pkg Package, cb PackageCallback) error
	// RemovePackage stops package index. Removing an inactive index is not an error.
	RemovePackage(ctx context.Context, index int) error
	// SubscribeGimbalData enables gimbal angle reporting.
	SubscribeGimbalData(ctx context.Context) error
	UnsubscribeGimbalData(ctx context.Context) error
}

// PPSSource is where the flight controller takes its pulse-per-second from.
type PPSSource string

const (
	PPSInternalGPS PPSSource = "INTERNAL_GPS"
	PPSExternalGPS PPSSource = "EXTERNAL_GPS"
	PPSRTK         PPSSource = "RTK"
)

// FCTimeInUTC pairs the flight controller's clock with UTC at the last PPS edge.
type FCTimeInUTC struct {
	FCTimestampUs uint32
	// UTCHHMMSS is hh*10000+mm*100+ss, UTCYYMMDD is yy*10000+mm*100+dd.
	UTCHHMMSS uint32
	UTCYYMMDD uint32
}

// TimeSyncHandlers receive the time-synchronization stream. Nil members are skipped.
type TimeSyncHandlers struct {
	NMEA        func(sentence string, received time.Time)
	GPSUTCTime  func(utc string, fcTimestamp uint32)
	FCTimeInUTC func(t FCTimeInUTC)
	PPSSource   func(src PPSSource)
}

// TimeSync wires the time-sync and raw data channels.
type TimeSync interface {
	SubscribeTimeSync(ctx context.Context, h TimeSyncHandlers) error
	SetMobileDataHandler(h func(data []byte))
	SetPayloadDataHandler(h func(data []byte))
}

// JoystickCommand is an offset or a rate depending on the call it is passed to.
type JoystickCommand struct {
	X   float32 `json:"x"`
	Y   float32 `json:"y"`
	Z   float32 `json:"z"`
	Yaw float32 `json:"yaw"`
}

// FlightController holds the flight task calls.
type FlightController interface {
	StartTakeoff(ctx context.Context) error
	StartLanding(ctx context.Context) error
	StartConfirmLanding(ctx context.Context) error
	StartGoHome(ctx context.Context) error
	CancelGoHome(ctx context.Context) error
	CancelLanding(ctx context.Context) error
	StartForceLanding(ctx context.Context) error
	StartForceLandingAvoidGround(ctx context.Context) error
	TurnOnMotors(ctx context.Context) error
	TurnOffMotors(ctx context.Context) error
	// MoveByPositionOffset moves by cmd (metres, degrees) in the ground frame and
	// returns once within the thresholds.
	MoveByPositionOffset(ctx context.Context, cmd JoystickCommand, posThresholdM, yawThresholdDeg float32) error
	// VelocityAndYawRateCtrl holds cmd (m/s, deg/s) for duration.
	VelocityAndYawRateCtrl(ctx context.Context, cmd JoystickCommand, duration time.Duration) error
	SetGoHomeAltitude(ctx context.Context, metres uint16) error
	SetHomeLocationUsingCurrentAircraftLocation(ctx context.Context) error
	SetCollisionAvoidanceEnabled(ctx context.Context, enable bool) error
}

// GimbalRotationMode selects how the gimbal angles are interpreted.
type GimbalRotationMode uint8

const (
	GimbalRotationIncremental GimbalRotationMode = 0
	GimbalRotationAbsolute    GimbalRotationMode = 1
)

// GimbalRotation is a target in degrees reached within Time seconds.
type GimbalRotation struct {
	Mode  GimbalRotationMode
	Pitch float32
	Roll  float32
	Yaw   float32
	Time  float64
}

// Gimbal is indexed by payload mount position.
type Gimbal interface {
	ResetGimbal(ctx context.Context, payload int) error
	RotateGimbal(ctx context.Context, payload int, r GimbalRotation) error
}

// ZoomDirection is the direction of a continuous zoom.
type ZoomDirection uint8

const (
	ZoomOut ZoomDirection = 0
	ZoomIn  ZoomDirection = 1
)

// Camera is indexed by payload mount position.
type Camera interface {
	SetEV(ctx context.Context, payload int, exposureMode uint8, ev uint8) error
	SetShutterSpeed(ctx context.Context, payload int, exposureMode uint8, shutter uint8) error
	SetAperture(ctx context.Context, payload int, exposureMode uint8, aperture uint16) error
	SetISO(ctx context.Context, payload int, exposureMode uint8, iso uint8) error
	// SetFocusPoint and SetTapZoomPoint take normalized image coordinates in [0,1].
	SetFocusPoint(ctx context.Context, payload int, x, y float32) error
	SetTapZoomPoint(ctx context.Context, payload int, multiplier uint8, x, y float32) error
	StartZoom(ctx context.Context, payload int, dir ZoomDirection, speed uint8) error
	StopZoom(ctx context.Context, payload int) error
	StartShootSinglePhoto(ctx context.Context, payload int) error
	StartShootBurstPhoto(ctx context.Context, payload int, count uint8) error
	StartShootAEBPhoto(ctx context.Context, payload int, count uint8) error
	StartShootIntervalPhoto(ctx context.Context, payload int, count uint8, interval time.Duration) error
	StopShootPhoto(ctx context.Context, payload int) error
	StartRecordVideo(ctx context.Context, payload int) error
	StopRecordVideo(ctx context.Context, payload int) error
}

// MFIOMode is the function of a multi-function IO channel.
type MFIOMode uint8

const (
	MFIOPWMOut  MFIOMode = 0
	MFIOPWMIn   MFIOMode = 1
	MFIOGPIOOut MFIOMode = 2
	MFIOGPIOIn  MFIOMode = 3
	MFIOADC     MFIOMode = 4
)

// MFIO drives the flight controller's multi-function IO channels.
type MFIO interface {
	Config(ctx context.Context, mode MFIOMode, channel uint8, initOnTimeUs uint32, pwmFreq uint16) error
	SetValue(ctx context.Context, channel uint8, value uint32) error
	GetValue(ctx context.Context, channel uint8) (uint32, error)
}
