package node

import (
	"time"

	"github.com/bluenviron/goroslib/v2/pkg/msgs/geometry_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/sensor_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/std_msgs"

	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/msgs"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

func toQuat(q osdk.Quaternion) frames.Quaternion {
	return frames.Quaternion{W: float64(q.Q0), X: float64(q.Q1), Y: float64(q.Q2), Z: float64(q.Q3)}
}

func toVec(v osdk.Vector3f) frames.Vector3 {
	return frames.Vector3{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

func rosQuat(q frames.Quaternion) geometry_msgs.Quaternion {
	return geometry_msgs.Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

func rosVec(v frames.Vector3) geometry_msgs.Vector3 {
	return geometry_msgs.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

func header(stamp time.Time, frame string) std_msgs.Header {
	return std_msgs.Header{Stamp: stamp, FrameId: frame}
}

func (n *Node) stamp(s *osdk.Snapshot) time.Time {
	if !s.Received.IsZero() {
		return s.Received
	}
	return n.now()
}

// on5Hz publishes the battery and, when supported, the RTK set.
func (n *Node) on5Hz(s *osdk.Snapshot) {
	n.metrics.Package("5")
	t := n.stamp(s)

	b := s.BatteryInfo
	n.publish(TopicBatteryState, &sensor_msgs.BatteryState{
		Header:     header(t, ""),
		Voltage:    float32(b.Voltage) / 1000,
		Current:    float32(b.Current) / 1000,
		Capacity:   float32(b.Capacity) / 1000,
		Percentage: float32(b.Percentage) / 100,
		Present:    b.Voltage != 0,
	})

	n.mu.Lock()
	rtk := n.rtkSupport
	n.mu.Unlock()
	if !rtk {
		return
	}

	n.publish(TopicRTKPosition, &sensor_msgs.NavSatFix{
		Header:    header(t, FrameRTK),
		Latitude:  s.RTKPosition.Latitude,
		Longitude: s.RTKPosition.Longitude,
		Altitude:  float64(s.RTKPosition.HFSL),
	})
	n.publish(TopicRTKVelocity, &geometry_msgs.Vector3Stamped{
		Header: header(t, FrameGroundENU),
		Vector: rosVec(frames.NEUToENU(toVec(s.RTKVelocity))),
	})
	n.publish(TopicRTKYaw, &std_msgs.Int16{Data: s.RTKYaw})
	n.publish(TopicRTKInfoPosition, &std_msgs.UInt8{Data: s.RTKPositionInfo})
	n.publish(TopicRTKInfoYaw, &std_msgs.UInt8{Data: s.RTKYawInfo})
	n.publish(TopicRTKConnectionStatus, &std_msgs.UInt8{Data: s.RTKConnectStatus})
}

// on50Hz publishes position, status, velocity, gimbal, RC, VO and anomaly topics.
func (n *Node) on50Hz(s *osdk.Snapshot) {
	n.metrics.Package("50")
	t := n.stamp(s)

	gps := GPSPoint{
		Latitude:  frames.Rad2Deg(s.GPSFused.Latitude),
		Longitude: frames.Rad2Deg(s.GPSFused.Longitude),
		Altitude:  float64(s.GPSFused.Altitude),
	}
	n.publish(TopicGPSPosition, &sensor_msgs.NavSatFix{
		Header:    header(t, FrameGPS),
		Latitude:  gps.Latitude,
		Longitude: gps.Longitude,
		Altitude:  gps.Altitude,
	})

	n.mu.Lock()
	n.currentGPS = gps
	n.gpsHealth = s.GPSSignalLevel
	ref, refSet := n.localRef, n.localRefSet
	n.mu.Unlock()

	if refSet {
		x, y := frames.GPSToENU(gps.Longitude, gps.Latitude, ref.Longitude, ref.Latitude)
		n.publish(TopicLocalPosition, &geometry_msgs.PointStamped{
			Header: header(t, FrameLocal),
			Point:  geometry_msgs.Point{X: x, Y: y, Z: gps.Altitude - ref.Altitude},
		})
	}

	n.publish(TopicGPSHealth, &std_msgs.UInt8{Data: s.GPSSignalLevel})
	n.publish(TopicHeightAboveTakeoff, &std_msgs.Float32{Data: s.HeightFusion})
	n.publish(TopicFlightStatus, &std_msgs.UInt8{Data: s.StatusFlight})
	n.publish(TopicDisplayMode, &std_msgs.UInt8{Data: s.StatusDisplayMode})

	n.publish(TopicVelocity, &geometry_msgs.Vector3Stamped{
		Header: header(t, FrameGroundENU),
		Vector: rosVec(frames.NEUToENU(toVec(s.Velocity.Data))),
	})

	// the flight controller reports x=pitch, y=roll, z=yaw
	g := s.GimbalAngles
	n.publish(TopicGimbalAngle, &geometry_msgs.Vector3Stamped{
		Header: header(t, FrameGroundENU),
		Vector: geometry_msgs.Vector3{X: float64(g.Y), Y: float64(g.X), Z: float64(g.Z)},
	})

	rc := s.RCWithFlagData
	n.publish(TopicRC, &sensor_msgs.Joy{
		Header: header(t, FrameRC),
		Axes:   []float32{rc.Roll, rc.Pitch, rc.Yaw, rc.Throttle, float32(rc.Mode), float32(rc.Gear)},
	})
	n.publish(TopicRCConnectionStatus, &std_msgs.UInt8{Data: rc.Flag.ConnectionStatus()})

	vo := s.PositionVO
	n.publish(TopicVOPosition, &msgs.VOPosition{
		Header:  header(t, ""),
		X:       vo.X,
		Y:       vo.Y,
		Z:       vo.Z,
		XHealth: vo.XHealth,
		YHealth: vo.YHealth,
		ZHealth: vo.ZHealth,
	})
	n.publish(TopicFlightAnomaly, &msgs.FlightAnomaly{Data: s.FlightAnomaly})
}

// on100Hz publishes attitude, angular rate and ground acceleration in ROS frames.
func (n *Node) on100Hz(s *osdk.Snapshot) {
	n.metrics.Package("100")
	t := n.stamp(s)

	n.publish(TopicAttitude, &geometry_msgs.QuaternionStamped{
		Header:     header(t, FrameBodyFLU),
		Quaternion: rosQuat(frames.AttitudeFLU2ENU(toQuat(s.Quaternion))),
	})
	n.publish(TopicAngularVelocity, &geometry_msgs.Vector3Stamped{
		Header: header(t, FrameBodyFLU),
		Vector: rosVec(frames.FRDToFLU(toVec(s.AngularRateFusioned))),
	})
	n.publish(TopicAccelerationGround, &geometry_msgs.Vector3Stamped{
		Header: header(t, FrameGroundENU),
		Vector: rosVec(frames.NEUToENU(toVec(s.AccelerationGround))),
	})
}

// on400Hz publishes the hardware-synchronized IMU sample and the trigger time.
func (n *Node) on400Hz(s *osdk.Snapshot) {
	n.metrics.Package("400")
	now := n.stamp(s)
	hs := s.HardSync

	stamp := now
	if n.cfg.AlignTimeWithFC {
		n.aligner.Update(now, hs.TS.Time2p5ms)
		stamp = n.aligner.Stamp(now, hs.TS.Time2p5ms)
		n.metrics.Alignment(int(n.aligner.Status()), n.aligner.Retries())
	}

	acc := frames.FRDToFLU(toVec(hs.A))
	g := n.cfg.GravityConst
	n.publish(TopicImu, &sensor_msgs.Imu{
		Header:             header(stamp, FrameBodyFLU),
		Orientation:        rosQuat(frames.AttitudeFLU2ENU(toQuat(hs.Q))),
		AngularVelocity:    rosVec(frames.FRDToFLU(toVec(hs.W))),
		LinearAcceleration: geometry_msgs.Vector3{X: acc.X * g, Y: acc.Y * g, Z: acc.Z * g},
	})

	if hs.TS.Flag == 1 {
		n.publish(TopicTriggerTime, &sensor_msgs.TimeReference{
			Header:  header(stamp, ""),
			TimeRef: now,
			Source:  "FC",
		})
	}
}
