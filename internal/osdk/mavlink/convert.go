// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mavlink

import (
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/timealign"
)

// standardGravity converts m/s² from the autopilot into the g units of the hard-sync block.
const standardGravity = 9.80665

// topicMessages lists the MAVLink messages that feed each telemetry topic.
var topicMessages = map[osdk.Topic][]message.Message{
	osdk.TopicQuaternion:          {&common.MessageAttitudeQuaternion{}},
	osdk.TopicAngularRateFusioned: {&common.MessageAttitudeQuaternion{}},
	osdk.TopicAccelerationGround:  {&common.MessageHighresImu{}, &common.MessageAttitudeQuaternion{}},
	osdk.TopicVelocity:            {&common.MessageGlobalPositionInt{}},
	osdk.TopicGPSFused:            {&common.MessageGlobalPositionInt{}},
	osdk.TopicHeightFusion:        {&common.MessageGlobalPositionInt{}},
	osdk.TopicGPSSignalLevel:      {&common.MessageGpsRawInt{}},
	osdk.TopicGPSPosition:         {&common.MessageGpsRawInt{}},
	osdk.TopicGPSVelocity:         {&common.MessageGpsRawInt{}},
	osdk.TopicGPSDetails:          {&common.MessageGpsRawInt{}},
	osdk.TopicGPSDate:             {&common.MessageSystemTime{}},
	osdk.TopicGPSTime:             {&common.MessageSystemTime{}},
	osdk.TopicStatusFlight:        {&common.MessageHeartbeat{}, &common.MessageExtendedSysState{}},
	osdk.TopicStatusDisplayMode:   {&common.MessageHeartbeat{}},
	osdk.TopicRCWithFlagData:      {&common.MessageRcChannels{}},
	osdk.TopicPositionVO:          {&common.MessageLocalPositionNed{}},
	osdk.TopicBatteryInfo:         {&common.MessageSysStatus{}},
	osdk.TopicFlightAnomaly:       {&common.MessageSysStatus{}},
	osdk.TopicGimbalAngles:        {&common.MessageGimbalDeviceAttitudeStatus{}},
	osdk.TopicHardSync:            {&common.MessageHighresImu{}, &common.MessageAttitudeQuaternion{}},
}

// streamsFor returns the message ids a package needs, without duplicates.
func streamsFor(pkg osdk.Package) []uint32 {
	seen := make(map[uint32]bool)
	var ids []uint32
	for _, topic := range pkg.Topics {
		for _, m := range topicMessages[topic] {
			id := m.GetID()
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func degE7ToRad(v int32) float64 {
	return frames.Deg2Rad(float64(v) / 1e7)
}

// gpsSignalLevel maps fix type and satellite count onto the 0..5 scale of the flight
// controller, where anything above 3 is good enough for a local frame.
func gpsSignalLevel(fix common.GPS_FIX_TYPE, sats uint8) uint8 {
	if fix < common.GPS_FIX_TYPE_3D_FIX {
		return 0
	}
	level := sats / 3
	switch {
	case level < 1:
		level = 1
	case level > 5:
		level = 5
	}
	if fix >= common.GPS_FIX_TYPE_RTK_FLOAT && level < 5 {
		level = 5
	}
	return level
}

// stickAxis maps a 1000..2000 µs channel onto -1..1.
func stickAxis(pwm uint16) float32 {
	if pwm == 0 || pwm == math.MaxUint16 {
		return 0
	}
	v := (float32(pwm) - 1500) / 500
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}

// switchValue maps a 1000..2000 µs channel onto the ±10000 range used for mode and gear.
func switchValue(pwm uint16) int16 {
	return int16(stickAxis(pwm) * 10000)
}

// groundAcceleration rotates the body specific force into NED, removes gravity and
// returns it in NEU m/s².
func groundAcceleration(q osdk.Quaternion, x, y, z float32) osdk.Vector3f {
	r := frames.Quaternion{W: float64(q.Q0), X: float64(q.Q1), Y: float64(q.Q2), Z: float64(q.Q3)}
	ned := r.Matrix().Apply(frames.Vector3{X: float64(x), Y: float64(y), Z: float64(z)})
	return osdk.Vector3f{X: float32(ned.X), Y: float32(ned.Y), Z: float32(-(ned.Z + standardGravity))}
}

func flightStatus(armed bool, landed common.MAV_LANDED_STATE) uint8 {
	switch {
	case !armed:
		return osdk.FlightStatusStopped
	case landed == common.MAV_LANDED_STATE_ON_GROUND:
		return osdk.FlightStatusOnGround
	}
	// without EXTENDED_SYS_STATE, armed is the best we know
	return osdk.FlightStatusInAir
}

// apply folds one incoming message into s. It reports whether the message carried
// telemetry.
func (v *Vehicle) apply(s *osdk.Snapshot, msg message.Message) bool {
	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		v.armed = m.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0
		s.StatusFlight = flightStatus(v.armed, v.landed)
		s.StatusDisplayMode = uint8(m.CustomMode)

	case *common.MessageExtendedSysState:
		v.landed = m.LandedState
		s.StatusFlight = flightStatus(v.armed, v.landed)

	case *common.MessageAttitudeQuaternion:
		// MAVLink attitude is body FRD to local NED, scalar first, like the hard-sync block
		q := osdk.Quaternion{Q0: m.Q1, Q1: m.Q2, Q2: m.Q3, Q3: m.Q4}
		s.Quaternion = q
		s.HardSync.Q = q
		s.AngularRateFusioned = osdk.Vector3f{X: m.Rollspeed, Y: m.Pitchspeed, Z: m.Yawspeed}

	case *common.MessageHighresImu:
		s.HardSync.A = osdk.Vector3f{
			X: float32(float64(m.Xacc) / standardGravity),
			Y: float32(float64(m.Yacc) / standardGravity),
			Z: float32(float64(m.Zacc) / standardGravity),
		}
		s.HardSync.W = osdk.Vector3f{X: m.Xgyro, Y: m.Ygyro, Z: m.Zgyro}
		s.AccelerationGround = groundAcceleration(s.Quaternion, m.Xacc, m.Yacc, m.Zacc)
		elapsed := time.Duration(m.TimeUsec) * time.Microsecond
		s.HardSync.TS = osdk.SyncTimestamp{
			Time2p5ms: uint32(elapsed / timealign.TickPeriod),
			Time1ns:   uint32(elapsed % timealign.TickPeriod),
		}

	case *common.MessageScaledImu:
		s.HardSync.A = osdk.Vector3f{
			X: float32(m.Xacc) / 1000,
			Y: float32(m.Yacc) / 1000,
			Z: float32(m.Zacc) / 1000,
		}
		s.HardSync.W = osdk.Vector3f{
			X: float32(m.Xgyro) / 1000,
			Y: float32(m.Ygyro) / 1000,
			Z: float32(m.Zgyro) / 1000,
		}

	case *common.MessageGlobalPositionInt:
		s.GPSFused.Latitude = degE7ToRad(m.Lat)
		s.GPSFused.Longitude = degE7ToRad(m.Lon)
		s.GPSFused.Altitude = float32(m.Alt) / 1000
		s.HeightFusion = float32(m.RelativeAlt) / 1000
		// NED cm/s to NEU m/s
		s.Velocity = osdk.Velocity{
			Data:   osdk.Vector3f{X: float32(m.Vx) / 100, Y: float32(m.Vy) / 100, Z: -float32(m.Vz) / 100},
			Health: 1,
		}

	case *common.MessageGpsRawInt:
		s.GPSSignalLevel = gpsSignalLevel(m.FixType, m.SatellitesVisible)
		s.GPSFused.VisibleSatelliteNumber = uint16(m.SatellitesVisible)
		s.GPSPosition = osdk.Vector3d{X: float64(m.Lon), Y: float64(m.Lat), Z: float64(m.Alt)}
		cog := frames.Deg2Rad(float64(m.Cog) / 100)
		vel := float64(m.Vel) / 100
		s.GPSVelocity = osdk.Vector3f{X: float32(vel * math.Cos(cog)), Y: float32(vel * math.Sin(cog))}
		s.GPSDetails.HDOP = float32(m.Eph) / 100
		s.GPSDetails.PDOP = float32(m.Epv) / 100
		s.GPSDetails.FixState = float32(m.FixType)
		s.GPSDetails.UsedSatelliteCount = uint16(m.SatellitesVisible)
		s.GPSDetails.HAcc = float32(m.HAcc)
		s.GPSDetails.VAcc = float32(m.VAcc)
		s.GPSDetails.SAcc = float32(m.VelAcc)

	case *common.MessageSysStatus:
		b := osdk.BatteryInfo{Capacity: s.BatteryInfo.Capacity}
		if m.VoltageBattery != math.MaxUint16 {
			b.Voltage = int32(m.VoltageBattery)
		}
		if m.CurrentBattery >= 0 {
			b.Current = int32(m.CurrentBattery) * 10
		}
		if m.BatteryRemaining >= 0 {
			b.Percentage = uint8(m.BatteryRemaining)
		}
		s.BatteryInfo = b
		// sensors that are enabled but unhealthy
		s.FlightAnomaly = uint32(m.OnboardControlSensorsPresent&m.OnboardControlSensorsEnabled) &^
			uint32(m.OnboardControlSensorsHealth)

	case *common.MessageRcChannels:
		linked := m.Chancount > 0
		s.RCWithFlagData = osdk.RCWithFlag{
			Roll:     stickAxis(m.Chan1Raw),
			Pitch:    stickAxis(m.Chan2Raw),
			Throttle: stickAxis(m.Chan3Raw),
			Yaw:      stickAxis(m.Chan4Raw),
			Mode:     switchValue(m.Chan5Raw),
			Gear:     switchValue(m.Chan6Raw),
			Flag: osdk.RCFlag{
				LogicConnected:  linked,
				SkyConnected:    linked && m.Rssi > 0,
				GroundConnected: linked && m.Rssi > 0,
			},
		}

	case *common.MessageLocalPositionNed:
		s.PositionVO = osdk.PositionVO{X: m.X, Y: m.Y, Z: m.Z, XHealth: 1, YHealth: 1, ZHealth: 1}

	case *common.MessageSystemTime:
		if m.TimeUnixUsec == 0 {
			return false
		}
		utc := time.UnixMicro(int64(m.TimeUnixUsec)).UTC()
		s.GPSDate = uint32(utc.Year()*10000 + int(utc.Month())*100 + utc.Day())
		s.GPSTime = uint32(utc.Hour()*10000 + utc.Minute()*100 + utc.Second())

	case *common.MessageGimbalDeviceAttitudeStatus:
		p := frames.EulerFromQuaternion(frames.Quaternion{
			W: float64(m.Q[0]), X: float64(m.Q[1]), Y: float64(m.Q[2]), Z: float64(m.Q[3]),
		})
		s.GimbalAngles = osdk.Vector3f{X: float32(p.Pitch), Y: float32(p.Roll), Z: float32(p.Yaw)}

	default:
		return false
	}
	return true
}

// fcTimeInUTC pairs the autopilot boot clock with the UTC it reports.
func fcTimeInUTC(m *common.MessageSystemTime) (osdk.FCTimeInUTC, time.Time) {
	utc := time.UnixMicro(int64(m.TimeUnixUsec)).UTC()
	return osdk.FCTimeInUTC{
		FCTimestampUs: m.TimeBootMs * 1000,
		UTCHHMMSS:     uint32(utc.Hour()*10000 + utc.Minute()*100 + utc.Second()),
		UTCYYMMDD:     uint32((utc.Year()%100)*10000 + int(utc.Month())*100 + utc.Day()),
	}, utc
}
