// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package osdk

import "time"

// Topic identifies one telemetry item the flight controller can push.
type Topic int

const (
	TopicQuaternion Topic = iota
	TopicAccelerationGround
	TopicAngularRateFusioned
	TopicVelocity
	TopicGPSFused
	TopicGPSSignalLevel
	TopicGPSDate
	TopicGPSTime
	TopicGPSPosition
	TopicGPSVelocity
	TopicGPSDetails
	TopicHeightFusion
	TopicStatusFlight
	TopicStatusDisplayMode
	TopicGimbalAngles
	TopicRCWithFlagData
	TopicPositionVO
	TopicFlightAnomaly
	TopicBatteryInfo
	TopicHardSync
	TopicRTKPosition
	TopicRTKVelocity
	TopicRTKYaw
	TopicRTKPositionInfo
	TopicRTKYawInfo
	TopicRTKConnectStatus
)

var topicNames = map[Topic]string{
	TopicQuaternion:          "quaternion",
	TopicAccelerationGround:  "acceleration_ground",
	TopicAngularRateFusioned: "angular_rate_fusioned",
	TopicVelocity:            "velocity",
	TopicGPSFused:            "gps_fused",
	TopicGPSSignalLevel:      "gps_signal_level",
	TopicGPSDate:             "gps_date",
	TopicGPSTime:             "gps_time",
	TopicGPSPosition:         "gps_position",
	TopicGPSVelocity:         "gps_velocity",
	TopicGPSDetails:          "gps_details",
	TopicHeightFusion:        "height_fusion",
	TopicStatusFlight:        "status_flight",
	TopicStatusDisplayMode:   "status_displaymode",
	TopicGimbalAngles:        "gimbal_angles",
	TopicRCWithFlagData:      "rc_with_flag_data",
	TopicPositionVO:          "position_vo",
	TopicFlightAnomaly:       "flight_anomaly",
	TopicBatteryInfo:         "battery_info",
	TopicHardSync:            "hard_sync",
	TopicRTKPosition:         "rtk_position",
	TopicRTKVelocity:         "rtk_velocity",
	TopicRTKYaw:              "rtk_yaw",
	TopicRTKPositionInfo:     "rtk_position_info",
	TopicRTKYawInfo:          "rtk_yaw_info",
	TopicRTKConnectStatus:    "rtk_connect_status",
}

func (t Topic) String() string {
	if n, ok := topicNames[t]; ok {
		return n
	}
	return "unknown"
}

// Package is one subscription the flight controller pushes at a fixed rate.
type Package struct {
	Index  int
	FreqHz int
	Topics []Topic
}

// PackageCallback receives the latest values each time a package is pushed.
// It runs on the SDK's goroutine and must not block.
type PackageCallback func(s *Snapshot)

// Quaternion is the attitude of body FRD relative to ground NED, scalar first.
type Quaternion struct {
	Q0 float32 `json:"q0"`
	Q1 float32 `json:"q1"`
	Q2 float32 `json:"q2"`
	Q3 float32 `json:"q3"`
}

// Vector3f is a float triple in the frame documented on the topic.
type Vector3f struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vector3d is a double triple.
type Vector3d struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Velocity is ground velocity in NEU, m/s.
type Velocity struct {
	Data   Vector3f `json:"data"`
	Health uint8    `json:"health"`
}

// GPSFused is the fused position. Latitude and longitude are in radians.
type GPSFused struct {
	Longitude              float64 `json:"longitude"`
	Latitude               float64 `json:"latitude"`
	Altitude               float32 `json:"altitude"`
	VisibleSatelliteNumber uint16  `json:"visible_satellite_number"`
}

// GPSDetails is the raw receiver quality block.
type GPSDetails struct {
	HDOP               float32 `json:"hdop"`
	PDOP               float32 `json:"pdop"`
	FixState           float32 `json:"fix_state"`
	VAcc               float32 `json:"vacc"`
	HAcc               float32 `json:"hacc"`
	SAcc               float32 `json:"sacc"`
	GPSSatelliteCount  uint32  `json:"gps_satellite_count"`
	GLNSatelliteCount  uint32  `json:"gln_satellite_count"`
	UsedSatelliteCount uint16  `json:"used_satellite_count"`
	GPSState           uint16  `json:"gps_state"`
}

// RCWithFlag is the remote-controller stick state plus link flags.
type RCWithFlag struct {
	Pitch    float32 `json:"pitch"`
	Roll     float32 `json:"roll"`
	Yaw      float32 `json:"yaw"`
	Throttle float32 `json:"throttle"`
	Mode     int16   `json:"mode"`
	Gear     int16   `json:"gear"`
	Flag     RCFlag  `json:"flag"`
}

// RCFlag reports which radio links are up.
type RCFlag struct {
	LogicConnected  bool `json:"logic_connected"`
	SkyConnected    bool `json:"sky_connected"`
	GroundConnected bool `json:"ground_connected"`
	AppConnected    bool `json:"app_connected"`
}

// ConnectionStatus packs the RC flags the way the flight controller reports them.
func (f RCFlag) ConnectionStatus() uint8 {
	var s uint8
	if f.LogicConnected {
		s |= 1 << 0
	}
	if f.SkyConnected {
		s |= 1 << 1
	}
	if f.GroundConnected {
		s |= 1 << 2
	}
	if f.AppConnected {
		s |= 1 << 3
	}
	return s
}

// PositionVO is the visual-odometry position, NED metres, with per-axis health.
type PositionVO struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Z       float32 `json:"z"`
	XHealth uint8   `json:"x_health"`
	YHealth uint8   `json:"y_health"`
	ZHealth uint8   `json:"z_health"`
}

// BatteryInfo uses the flight controller units: mAh, mV, mA, percent.
type BatteryInfo struct {
	Capacity   uint32 `json:"capacity"`
	Voltage    int32  `json:"voltage"`
	Current    int32  `json:"current"`
	Percentage uint8  `json:"percentage"`
}

// SyncTimestamp is the hardware-sync time block.
type SyncTimestamp struct {
	Time2p5ms uint32 `json:"time2p5ms"`
	Time1ns   uint32 `json:"time1ns"`
	// Flag is 1 on the sample that coincides with a hardware trigger pulse.
	Flag uint8 `json:"flag"`
}

// HardSync is the 400 Hz IMU block. W is rad/s in FRD, A is g in FRD.
type HardSync struct {
	TS SyncTimestamp `json:"ts"`
	Q  Quaternion    `json:"q"`
	A  Vector3f      `json:"a"`
	W  Vector3f      `json:"w"`
}

// RTKPosition is the RTK fix in degrees, height above sea level in metres.
type RTKPosition struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	HFSL      float32 `json:"hfsl"`
}

// Snapshot holds the latest value of every telemetry topic.
type Snapshot struct {
	Quaternion          Quaternion  `json:"quaternion"`
	AccelerationGround  Vector3f    `json:"acceleration_ground"`
	AngularRateFusioned Vector3f    `json:"angular_rate_fusioned"`
	Velocity            Velocity    `json:"velocity"`
	GPSFused            GPSFused    `json:"gps_fused"`
	GPSSignalLevel      uint8       `json:"gps_signal_level"`
	GPSDate             uint32      `json:"gps_date"`
	GPSTime             uint32      `json:"gps_time"`
	GPSPosition         Vector3d    `json:"gps_position"`
	GPSVelocity         Vector3f    `json:"gps_velocity"`
	GPSDetails          GPSDetails  `json:"gps_details"`
	HeightFusion        float32     `json:"height_fusion"`
	StatusFlight        uint8       `json:"status_flight"`
	StatusDisplayMode   uint8       `json:"status_displaymode"`
	GimbalAngles        Vector3f    `json:"gimbal_angles"`
	RCWithFlagData      RCWithFlag  `json:"rc_with_flag_data"`
	PositionVO          PositionVO  `json:"position_vo"`
	FlightAnomaly       uint32      `json:"flight_anomaly"`
	BatteryInfo         BatteryInfo `json:"battery_info"`
	HardSync            HardSync    `json:"hard_sync"`
	RTKPosition         RTKPosition `json:"rtk_position"`
	RTKVelocity         Vector3f    `json:"rtk_velocity"`
	RTKYaw              int16       `json:"rtk_yaw"`
	RTKPositionInfo     uint8       `json:"rtk_position_info"`
	RTKYawInfo          uint8       `json:"rtk_yaw_info"`
	RTKConnectStatus    uint8       `json:"rtk_connect_status"`
	// Received is the host time the package was delivered.
	Received time.Time `json:"received"`
}

// Flight status values reported on TopicStatusFlight.
const (
	FlightStatusStopped  uint8 = 0
	FlightStatusOnGround uint8 = 1
	FlightStatusInAir    uint8 = 2
)

// GPS signal level above which a fix is good enough to anchor a local frame.
const GPSHealthThreshold uint8 = 3
