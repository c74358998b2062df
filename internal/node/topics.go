package node

import (
	"github.com/bluenviron/goroslib/v2/pkg/msgs/geometry_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/sensor_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/std_msgs"

	"github.com/relabs-tech/osdk_bridge/internal/msgs"
)

// Published topics. Buses prepend their namespace.
const (
	TopicAttitude            = "attitude"
	TopicAngularVelocity     = "angular_velocity_fused"
	TopicAccelerationGround  = "acceleration_ground_fused"
	TopicBatteryState        = "battery_state"
	TopicTriggerTime         = "trigger_time"
	TopicImu                 = "imu"
	TopicFlightStatus        = "flight_status"
	TopicGPSHealth           = "gps_health"
	TopicGPSPosition         = "gps_position"
	TopicVOPosition          = "vo_position"
	TopicHeightAboveTakeoff  = "height_above_takeoff"
	TopicVelocity            = "velocity"
	TopicFromMobileData      = "from_mobile_data"
	TopicFromPayloadData     = "from_payload_data"
	TopicGimbalAngle         = "gimbal_angle"
	TopicDisplayMode         = "display_mode"
	TopicRC                  = "rc"
	TopicRCConnectionStatus  = "rc_connection_status"
	TopicRTKPosition         = "rtk_position"
	TopicRTKVelocity         = "rtk_velocity"
	TopicRTKYaw              = "rtk_yaw"
	TopicRTKInfoPosition     = "rtk_info_position"
	TopicRTKInfoYaw          = "rtk_info_yaw"
	TopicRTKConnectionStatus = "rtk_connection_status"
	TopicFlightAnomaly       = "flight_anomaly"
	TopicLocalPosition       = "local_position"
	TopicLocalFrameRef       = "local_frame_ref"
	TopicTimeSyncNMEA        = "time_sync_nmea_msg"
	TopicTimeSyncGPSUTC      = "time_sync_gps_utc"
	TopicTimeSyncFCTimeUTC   = "time_sync_fc_time_utc"
	TopicTimeSyncPPSSource   = "time_sync_pps_source"
)

// Frame ids stamped on the headers.
const (
	FrameBodyFLU   = "body_FLU"
	FrameGroundENU = "ground_ENU"
	FrameGPS       = "gps"
	FrameRTK       = "rtk"
	FrameRC        = "rc"
	FrameLocal     = "local"
	FrameNMEA      = "NMEA"
)

type topicDef struct {
	name  string
	proto any
	latch bool
}

var topicDefs = []topicDef{
	{TopicAttitude, &geometry_msgs.QuaternionStamped{}, false},
	{TopicAngularVelocity, &geometry_msgs.Vector3Stamped{}, false},
	{TopicAccelerationGround, &geometry_msgs.Vector3Stamped{}, false},
	{TopicBatteryState, &sensor_msgs.BatteryState{}, false},
	{TopicTriggerTime, &sensor_msgs.TimeReference{}, false},
	{TopicImu, &sensor_msgs.Imu{}, false},
	{TopicFlightStatus, &std_msgs.UInt8{}, false},
	{TopicGPSHealth, &std_msgs.UInt8{}, false},
	{TopicGPSPosition, &sensor_msgs.NavSatFix{}, false},
	{TopicVOPosition, &msgs.VOPosition{}, false},
	{TopicHeightAboveTakeoff, &std_msgs.Float32{}, false},
	{TopicVelocity, &geometry_msgs.Vector3Stamped{}, false},
	{TopicFromMobileData, &msgs.MobileData{}, false},
	{TopicFromPayloadData, &msgs.PayloadData{}, false},
	{TopicGimbalAngle, &geometry_msgs.Vector3Stamped{}, false},
	{TopicDisplayMode, &std_msgs.UInt8{}, false},
	{TopicRC, &sensor_msgs.Joy{}, false},
	{TopicRCConnectionStatus, &std_msgs.UInt8{}, false},
	{TopicRTKPosition, &sensor_msgs.NavSatFix{}, false},
	{TopicRTKVelocity, &geometry_msgs.Vector3Stamped{}, false},
	{TopicRTKYaw, &std_msgs.Int16{}, false},
	{TopicRTKInfoPosition, &std_msgs.UInt8{}, false},
	{TopicRTKInfoYaw, &std_msgs.UInt8{}, false},
	{TopicRTKConnectionStatus, &std_msgs.UInt8{}, false},
	{TopicFlightAnomaly, &msgs.FlightAnomaly{}, false},
	{TopicLocalPosition, &geometry_msgs.PointStamped{}, false},
	{TopicLocalFrameRef, &sensor_msgs.NavSatFix{}, true},
	{TopicTimeSyncNMEA, &msgs.Sentence{}, false},
	{TopicTimeSyncGPSUTC, &msgs.GPSUTC{}, false},
	{TopicTimeSyncFCTimeUTC, &msgs.FCTimeInUTC{}, false},
	{TopicTimeSyncPPSSource, &std_msgs.String{}, false},
}

// Topics lists every topic the node advertises.
func Topics() []string {
	out := make([]string, len(topicDefs))
	for i, d := range topicDefs {
		out[i] = d.name
	}
	return out
}
