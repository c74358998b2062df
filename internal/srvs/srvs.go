// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package srvs defines the request/response pairs of the vehicle node services.
// Each service is a goroslib service definition: the Req and Res structs are embedded
// in a third struct that carries the ROS package.
package srvs

import (
	"github.com/bluenviron/goroslib/v2/pkg/msg"

	"github.com/relabs-tech/osdk_bridge/internal/msgs"
)

// Flight task codes.
const (
	TaskPositionAndYawControl     uint8 = 1
	TaskGoHome                    uint8 = 2
	TaskGoHomeAndConfirmLanding   uint8 = 3
	TaskTakeoff                   uint8 = 4
	TaskVelocityAndYawRateControl uint8 = 5
	TaskLand                      uint8 = 6
	TaskStartMotor                uint8 = 7
	TaskStopMotor                 uint8 = 8
	TaskExitGoHome                uint8 = 12
	TaskExitLanding               uint8 = 14
	TaskForceLandingAvoidGround   uint8 = 30
	TaskForceLanding              uint8 = 31
)

type FlightTaskControlReq struct {
	Task                  uint8               `json:"task"`
	JoystickCommand       msgs.JoystickParams `rosname:"joystickCommand" json:"joystick_command"`
	VelocityControlTimeMs uint32              `rosname:"velocityControlTimeMs" json:"velocity_control_time_ms"`
	PosThresholdInM       float32             `rosname:"posThresholdInM" json:"pos_threshold_in_m"`
	YawThresholdInDeg     float32             `rosname:"yawThresholdInDeg" json:"yaw_threshold_in_deg"`
}

type FlightTaskControlRes struct {
	Result bool `json:"result"`
}

type FlightTaskControl struct {
	msg.Package `ros:"dji_osdk_ros"`
	FlightTaskControlReq
	FlightTaskControlRes
}

type GimbalActionReq struct {
	PayloadIndex uint8   `json:"payload_index"`
	IsReset      bool    `json:"is_reset"`
	Pitch        float32 `json:"pitch"`
	Roll         float32 `json:"roll"`
	Yaw          float32 `json:"yaw"`
	RotationMode uint8   `rosname:"rotationMode" json:"rotation_mode"`
	Time         float64 `json:"time"`
}

type GimbalActionRes struct {
	Result bool `json:"result"`
}

type GimbalAction struct {
	msg.Package `ros:"dji_osdk_ros"`
	GimbalActionReq
	GimbalActionRes
}

type CameraEVReq struct {
	PayloadIndex         uint8 `json:"payload_index"`
	ExposureMode         uint8 `json:"exposure_mode"`
	ExposureCompensation uint8 `json:"exposure_compensation"`
}

type CameraEVRes struct {
	Result bool `json:"result"`
}

type CameraEV struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraEVReq
	CameraEVRes
}

type CameraShutterSpeedReq struct {
	PayloadIndex uint8 `json:"payload_index"`
	ExposureMode uint8 `json:"exposure_mode"`
	ShutterSpeed uint8 `json:"shutter_speed"`
}

type CameraShutterSpeedRes struct {
	Result bool `json:"result"`
}

type CameraShutterSpeed struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraShutterSpeedReq
	CameraShutterSpeedRes
}

type CameraApertureReq struct {
	PayloadIndex uint8  `json:"payload_index"`
	ExposureMode uint8  `json:"exposure_mode"`
	Aperture     uint16 `json:"aperture"`
}

type CameraApertureRes struct {
	Result bool `json:"result"`
}

type CameraAperture struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraApertureReq
	CameraApertureRes
}

type CameraISOReq struct {
	PayloadIndex uint8 `json:"payload_index"`
	ExposureMode uint8 `json:"exposure_mode"`
	ISOData      uint8 `rosname:"iso_data" json:"iso_data"`
}

type CameraISORes struct {
	Result bool `json:"result"`
}

type CameraISO struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraISOReq
	CameraISORes
}

type CameraFocusPointReq struct {
	PayloadIndex uint8   `json:"payload_index"`
	X            float32 `json:"x"`
	Y            float32 `json:"y"`
}

type CameraFocusPointRes struct {
	Result bool `json:"result"`
}

type CameraFocusPoint struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraFocusPointReq
	CameraFocusPointRes
}

type CameraTapZoomPointReq struct {
	PayloadIndex uint8   `json:"payload_index"`
	Multiplier   uint8   `json:"multiplier"`
	X            float32 `json:"x"`
	Y            float32 `json:"y"`
}

type CameraTapZoomPointRes struct {
	Result bool `json:"result"`
}

type CameraTapZoomPoint struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraTapZoomPointReq
	CameraTapZoomPointRes
}

// Zoom control start_stop values.
const (
	ZoomStop  uint8 = 0
	ZoomStart uint8 = 1
)

type CameraZoomCtrlReq struct {
	PayloadIndex uint8 `json:"payload_index"`
	StartStop    uint8 `json:"start_stop"`
	Direction    uint8 `json:"direction"`
	Speed        uint8 `json:"speed"`
}

type CameraZoomCtrlRes struct {
	Result bool `json:"result"`
}

type CameraZoomCtrl struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraZoomCtrlReq
	CameraZoomCtrlRes
}

type CameraStartShootSinglePhotoReq struct {
	PayloadIndex uint8 `json:"payload_index"`
}

type CameraStartShootSinglePhotoRes struct {
	Result bool `json:"result"`
}

type CameraStartShootSinglePhoto struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraStartShootSinglePhotoReq
	CameraStartShootSinglePhotoRes
}

type CameraStartShootAEBPhotoReq struct {
	PayloadIndex  uint8 `json:"payload_index"`
	PhotoAEBCount uint8 `rosname:"photo_aeb_count" json:"photo_aeb_count"`
}

type CameraStartShootAEBPhotoRes struct {
	Result bool `json:"result"`
}

type CameraStartShootAEBPhoto struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraStartShootAEBPhotoReq
	CameraStartShootAEBPhotoRes
}

type CameraStartShootBurstPhotoReq struct {
	PayloadIndex    uint8 `json:"payload_index"`
	PhotoBurstCount uint8 `json:"photo_burst_count"`
}

type CameraStartShootBurstPhotoRes struct {
	Result bool `json:"result"`
}

type CameraStartShootBurstPhoto struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraStartShootBurstPhotoReq
	CameraStartShootBurstPhotoRes
}

type CameraStartShootIntervalPhotoReq struct {
	PayloadIndex     uint8 `json:"payload_index"`
	PhotoNumConticap uint8 `json:"photo_num_conticap"`
	// TimeInterval is in seconds.
	TimeInterval uint16 `json:"time_interval"`
}

type CameraStartShootIntervalPhotoRes struct {
	Result bool `json:"result"`
}

type CameraStartShootIntervalPhoto struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraStartShootIntervalPhotoReq
	CameraStartShootIntervalPhotoRes
}

type CameraStopShootPhotoReq struct {
	PayloadIndex uint8 `json:"payload_index"`
}

type CameraStopShootPhotoRes struct {
	Result bool `json:"result"`
}

type CameraStopShootPhoto struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraStopShootPhotoReq
	CameraStopShootPhotoRes
}

// Record video start_stop values.
const (
	RecordStop  uint8 = 0
	RecordStart uint8 = 1
)

type CameraRecordVideoActionReq struct {
	PayloadIndex uint8 `json:"payload_index"`
	StartStop    uint8 `json:"start_stop"`
}

type CameraRecordVideoActionRes struct {
	Result bool `json:"result"`
}

type CameraRecordVideoAction struct {
	msg.Package `ros:"dji_osdk_ros"`
	CameraRecordVideoActionReq
	CameraRecordVideoActionRes
}

// MFIO modes, matching osdk.MFIOMode.
const (
	MFIOModePWMOut  uint8 = 0
	MFIOModePWMIn   uint8 = 1
	MFIOModeGPIOOut uint8 = 2
	MFIOModeGPIOIn  uint8 = 3
	MFIOModeADC     uint8 = 4
)

type MFIOReq struct {
	Mode         uint8  `json:"mode"`
	Channel      uint8  `json:"channel"`
	InitOnTimeUs uint32 `json:"init_on_time_us"`
	PWMFreq      uint16 `rosname:"pwm_freq" json:"pwm_freq"`
	GPIOValue    uint8  `rosname:"gpio_value" json:"gpio_value"`
}

type MFIORes struct {
	ReadValue uint32 `json:"read_value"`
}

type MFIO struct {
	msg.Package `ros:"dji_osdk_ros"`
	MFIOReq
	MFIORes
}

type SetGoHomeAltitudeReq struct {
	Altitude uint16 `json:"altitude"`
}

type SetGoHomeAltitudeRes struct {
	Result bool `json:"result"`
}

type SetGoHomeAltitude struct {
	msg.Package `ros:"dji_osdk_ros"`
	SetGoHomeAltitudeReq
	SetGoHomeAltitudeRes
}

type SetNewHomePointReq struct{}

type SetNewHomePointRes struct {
	Result bool `json:"result"`
}

type SetNewHomePoint struct {
	msg.Package `ros:"dji_osdk_ros"`
	SetNewHomePointReq
	SetNewHomePointRes
}

type SetLocalPosRefReq struct{}

type SetLocalPosRefRes struct {
	Result bool `json:"result"`
}

type SetLocalPosRef struct {
	msg.Package `ros:"dji_osdk_ros"`
	SetLocalPosRefReq
	SetLocalPosRefRes
}

type AvoidEnableReq struct {
	Enable bool `json:"enable"`
}

type AvoidEnableRes struct {
	Result bool `json:"result"`
}

type AvoidEnable struct {
	msg.Package `ros:"dji_osdk_ros"`
	AvoidEnableReq
	AvoidEnableRes
}
