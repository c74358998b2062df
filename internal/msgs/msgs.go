// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package msgs holds the vendor messages published next to the standard ROS ones.
// Standard messages come straight from goroslib's std_msgs, geometry_msgs and sensor_msgs.
package msgs

import (
	"time"

	"github.com/bluenviron/goroslib/v2/pkg/msg"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/std_msgs"
)

// Package is the ROS package the vendor messages and services live in.
const Package = "dji_osdk_ros"

type FlightAnomaly struct {
	msg.Package `ros:"dji_osdk_ros"`
	Data        uint32 `json:"data"`
}

type VOPosition struct {
	msg.Package `ros:"dji_osdk_ros"`
	Header      std_msgs.Header `json:"header"`
	X           float32         `json:"x"`
	Y           float32         `json:"y"`
	Z           float32         `json:"z"`
	XHealth     uint8           `rosname:"xHealth" json:"x_health"`
	YHealth     uint8           `rosname:"yHealth" json:"y_health"`
	ZHealth     uint8           `rosname:"zHealth" json:"z_health"`
}

type MobileData struct {
	msg.Package `ros:"dji_osdk_ros"`
	Data        []uint8 `json:"data"`
}

type PayloadData struct {
	msg.Package `ros:"dji_osdk_ros"`
	Data        []uint8 `json:"data"`
}

// FCTimeInUTC pairs the flight controller clock with UTC at the last PPS edge.
type FCTimeInUTC struct {
	msg.Package   `ros:"dji_osdk_ros"`
	FCTimestampUs uint32 `rosname:"fc_timestamp_us" json:"fc_timestamp_us"`
	FCUTCHHMMSS   uint32 `rosname:"fc_utc_hhmmss" json:"fc_utc_hhmmss"`
	FCUTCYYMMDD   uint32 `rosname:"fc_utc_yymmdd" json:"fc_utc_yymmdd"`
}

type GPSUTC struct {
	msg.Package `ros:"dji_osdk_ros"`
	Stamp       time.Time `json:"stamp"`
	Timestamp   string    `json:"timestamp"`
}

// JoystickParams is embedded in the flight task request.
type JoystickParams struct {
	msg.Package `ros:"dji_osdk_ros"`
	X           float32 `json:"x"`
	Y           float32 `json:"y"`
	Z           float32 `json:"z"`
	Yaw         float32 `json:"yaw"`
}

// Sentence mirrors nmea_msgs/Sentence.
type Sentence struct {
	msg.Package `ros:"nmea_msgs"`
	Header      std_msgs.Header `json:"header"`
	Sentence    string          `json:"sentence"`
}
