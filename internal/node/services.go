package node

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bluenviron/goroslib/v2/pkg/msgs/sensor_msgs"

	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/srvs"
)

// Service names.
const (
	ServiceFlightTaskControl             = "flight_task_control"
	ServiceGimbalTaskControl             = "gimbal_task_control"
	ServiceCameraExposureModeSetting     = "camera_exposure_mode_setting"
	ServiceCameraShutterSpeedSetting     = "camera_shutter_speed_setting"
	ServiceCameraApertureSetting         = "camera_aperture_setting"
	ServiceCameraISOSetting              = "camera_iso_setting"
	ServiceCameraFocusPointSetting       = "camera_focus_point_setting"
	ServiceCameraTapZoomPointSetting     = "camera_tap_zoom_point_setting"
	ServiceCameraZoomCtrl                = "camera_zoom_ctrl"
	ServiceCameraStartShootSinglePhoto   = "camera_start_shoot_single_photo"
	ServiceCameraStartShootAEBPhoto      = "camera_start_shoot_aeb_photo"
	ServiceCameraStartShootBurstPhoto    = "camera_start_shoot_burst_photo"
	ServiceCameraStartShootIntervalPhoto = "camera_start_shoot_interval_photo"
	ServiceCameraStopShootPhoto          = "camera_stop_shoot_photo"
	ServiceCameraRecordVideoAction       = "camera_record_video_action"
	ServiceMFIOControl                   = "mfio_control"
	ServiceSetGoHomeAltitude             = "set_go_home_altitude"
	ServiceSetCurrentPointAsHome         = "set_current_point_as_home"
	ServiceSetLocalPosReference          = "set_local_pos_reference"
	ServiceSetAvoidEnable                = "set_avoid_enable"
)

type serviceDef struct {
	name     string
	srv      any
	callback any
}

func (n *Node) serviceDefs() []serviceDef {
	return []serviceDef{
		{ServiceFlightTaskControl, &srvs.FlightTaskControl{}, n.taskCtrlCallback},
		{ServiceGimbalTaskControl, &srvs.GimbalAction{}, n.gimbalCtrlCallback},
		{ServiceCameraExposureModeSetting, &srvs.CameraEV{}, n.cameraSetEVCallback},
		{ServiceCameraShutterSpeedSetting, &srvs.CameraShutterSpeed{}, n.cameraSetShutterSpeedCallback},
		{ServiceCameraApertureSetting, &srvs.CameraAperture{}, n.cameraSetApertureCallback},
		{ServiceCameraISOSetting, &srvs.CameraISO{}, n.cameraSetISOCallback},
		{ServiceCameraFocusPointSetting, &srvs.CameraFocusPoint{}, n.cameraSetFocusPointCallback},
		{ServiceCameraTapZoomPointSetting, &srvs.CameraTapZoomPoint{}, n.cameraSetTapZoomPointCallback},
		{ServiceCameraZoomCtrl, &srvs.CameraZoomCtrl{}, n.cameraZoomCtrlCallback},
		{ServiceCameraStartShootSinglePhoto, &srvs.CameraStartShootSinglePhoto{}, n.cameraStartShootSinglePhotoCallback},
		{ServiceCameraStartShootAEBPhoto, &srvs.CameraStartShootAEBPhoto{}, n.cameraStartShootAEBPhotoCallback},
		{ServiceCameraStartShootBurstPhoto, &srvs.CameraStartShootBurstPhoto{}, n.cameraStartShootBurstPhotoCallback},
		{ServiceCameraStartShootIntervalPhoto, &srvs.CameraStartShootIntervalPhoto{}, n.cameraStartShootIntervalPhotoCallback},
		{ServiceCameraStopShootPhoto, &srvs.CameraStopShootPhoto{}, n.cameraStopShootPhotoCallback},
		{ServiceCameraRecordVideoAction, &srvs.CameraRecordVideoAction{}, n.cameraRecordVideoActionCallback},
		{ServiceMFIOControl, &srvs.MFIO{}, n.mfioCtrlCallback},
		{ServiceSetGoHomeAltitude, &srvs.SetGoHomeAltitude{}, n.setGoHomeAltitudeCallback},
		{ServiceSetCurrentPointAsHome, &srvs.SetNewHomePoint{}, n.setHomeCallback},
		{ServiceSetLocalPosReference, &srvs.SetLocalPosRef{}, n.setLocalPosRefCallback},
		{ServiceSetAvoidEnable, &srvs.AvoidEnable{}, n.setAvoidCallback},
	}
}

// ServiceNames lists every service a node provides.
func ServiceNames() []string {
	return (&Node{}).Services()
}

// Services lists every service the node provides.
func (n *Node) Services() []string {
	defs := n.serviceDefs()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.name
	}
	return out
}

func (n *Node) initService() error {
	defs := n.serviceDefs()
	for _, d := range defs {
		if err := n.bus.Provide(d.name, d.srv, d.callback); err != nil {
			return err
		}
	}
	log.Printf("node: providing %d services", len(defs))
	return nil
}

// result logs a failed SDK call and counts the outcome.
func (n *Node) result(service string, err error) bool {
	ok := err == nil
	if !ok {
		log.Printf("node: %s: %v", service, err)
	}
	n.metrics.ServiceCall(service, ok)
	return ok
}

// call runs fn with a bounded context and reports the outcome for service.
func (n *Node) call(service string, fn func(ctx context.Context) error) bool {
	return n.callFor(service, 0, fn)
}

func (n *Node) callFor(service string, extra time.Duration, fn func(ctx context.Context) error) bool {
	ctx, cancel := n.callContext(extra)
	defer cancel()
	return n.result(service, fn(ctx))
}

func (n *Node) taskCtrlCallback(req *srvs.FlightTaskControlReq) (*srvs.FlightTaskControlRes, bool) {
	fc := n.vehicle.FlightController()
	jc := req.JoystickCommand
	cmd := osdk.JoystickCommand{X: jc.X, Y: jc.Y, Z: jc.Z, Yaw: jc.Yaw}

	var (
		extra time.Duration
		fn    func(ctx context.Context) error
	)
	switch req.Task {
	case srvs.TaskGoHome:
		fn = fc.StartGoHome
	case srvs.TaskPositionAndYawControl:
		fn = func(ctx context.Context) error {
			return fc.MoveByPositionOffset(ctx, cmd, req.PosThresholdInM, req.YawThresholdInDeg)
		}
	case srvs.TaskGoHomeAndConfirmLanding:
		fn = func(ctx context.Context) error {
			if err := fc.StartGoHome(ctx); err != nil {
				return fmt.Errorf("go home: %w", err)
			}
			return fc.StartConfirmLanding(ctx)
		}
	case srvs.TaskTakeoff:
		fn = fc.StartTakeoff
	case srvs.TaskVelocityAndYawRateControl:
		d := time.Duration(req.VelocityControlTimeMs) * time.Millisecond
		extra = d
		fn = func(ctx context.Context) error {
			return fc.VelocityAndYawRateCtrl(ctx, cmd, d)
		}
	case srvs.TaskLand:
		fn = fc.StartLanding
	case srvs.TaskStartMotor:
		fn = fc.TurnOnMotors
	case srvs.TaskStopMotor:
		fn = fc.TurnOffMotors
	case srvs.TaskExitGoHome:
		fn = fc.CancelGoHome
	case srvs.TaskExitLanding:
		fn = fc.CancelLanding
	case srvs.TaskForceLandingAvoidGround:
		fn = fc.StartForceLandingAvoidGround
	case srvs.TaskForceLanding:
		fn = fc.StartForceLanding
	default:
		return &srvs.FlightTaskControlRes{Result: n.result(ServiceFlightTaskControl, fmt.Errorf("unknown task %d", req.Task))}, true
	}

	log.Printf("node: flight task %d", req.Task)
	return &srvs.FlightTaskControlRes{Result: n.callFor(ServiceFlightTaskControl, extra, fn)}, true
}

func (n *Node) gimbalCtrlCallback(req *srvs.GimbalActionReq) (*srvs.GimbalActionRes, bool) {
	g := n.vehicle.Gimbal()
	payload := int(req.PayloadIndex)
	ok := n.call(ServiceGimbalTaskControl, func(ctx context.Context) error {
		if req.IsReset {
			return g.ResetGimbal(ctx, payload)
		}
		return g.RotateGimbal(ctx, payload, osdk.GimbalRotation{
			Mode:  osdk.GimbalRotationMode(req.RotationMode),
			Pitch: req.Pitch,
			Roll:  req.Roll,
			Yaw:   req.Yaw,
			Time:  req.Time,
		})
	})
	return &srvs.GimbalActionRes{Result: ok}, true
}

func (n *Node) cameraSetEVCallback(req *srvs.CameraEVReq) (*srvs.CameraEVRes, bool) {
	ok := n.call(ServiceCameraExposureModeSetting, func(ctx context.Context) error {
		return n.vehicle.Camera().SetEV(ctx, int(req.PayloadIndex), req.ExposureMode, req.ExposureCompensation)
	})
	return &srvs.CameraEVRes{Result: ok}, true
}

func (n *Node) cameraSetShutterSpeedCallback(req *srvs.CameraShutterSpeedReq) (*srvs.CameraShutterSpeedRes, bool) {
	ok := n.call(ServiceCameraShutterSpeedSetting, func(ctx context.Context) error {
		return n.vehicle.Camera().SetShutterSpeed(ctx, int(req.PayloadIndex), req.ExposureMode, req.ShutterSpeed)
	})
	return &srvs.CameraShutterSpeedRes{Result: ok}, true
}

func (n *Node) cameraSetApertureCallback(req *srvs.CameraApertureReq) (*srvs.CameraApertureRes, bool) {
	ok := n.call(ServiceCameraApertureSetting, func(ctx context.Context) error {
		return n.vehicle.Camera().SetAperture(ctx, int(req.PayloadIndex), req.ExposureMode, req.Aperture)
	})
	return &srvs.CameraApertureRes{Result: ok}, true
}

func (n *Node) cameraSetISOCallback(req *srvs.CameraISOReq) (*srvs.CameraISORes, bool) {
	ok := n.call(ServiceCameraISOSetting, func(ctx context.Context) error {
		return n.vehicle.Camera().SetISO(ctx, int(req.PayloadIndex), req.ExposureMode, req.ISOData)
	})
	return &srvs.CameraISORes{Result: ok}, true
}

func (n *Node) cameraSetFocusPointCallback(req *srvs.CameraFocusPointReq) (*srvs.CameraFocusPointRes, bool) {
	ok := n.call(ServiceCameraFocusPointSetting, func(ctx context.Context) error {
		return n.vehicle.Camera().SetFocusPoint(ctx, int(req.PayloadIndex), req.X, req.Y)
	})
	return &srvs.CameraFocusPointRes{Result: ok}, true
}

func (n *Node) cameraSetTapZoomPointCallback(req *srvs.CameraTapZoomPointReq) (*srvs.CameraTapZoomPointRes, bool) {
	ok := n.call(ServiceCameraTapZoomPointSetting, func(ctx context.Context) error {
		return n.vehicle.Camera().SetTapZoomPoint(ctx, int(req.PayloadIndex), req.Multiplier, req.X, req.Y)
	})
	return &srvs.CameraTapZoomPointRes{Result: ok}, true
}

func (n *Node) cameraZoomCtrlCallback(req *srvs.CameraZoomCtrlReq) (*srvs.CameraZoomCtrlRes, bool) {
	cam := n.vehicle.Camera()
	payload := int(req.PayloadIndex)
	ok := n.call(ServiceCameraZoomCtrl, func(ctx context.Context) error {
		if req.StartStop == srvs.ZoomStart {
			return cam.StartZoom(ctx, payload, osdk.ZoomDirection(req.Direction), req.Speed)
		}
		return cam.StopZoom(ctx, payload)
	})
	return &srvs.CameraZoomCtrlRes{Result: ok}, true
}

func (n *Node) cameraStartShootSinglePhotoCallback(req *srvs.CameraStartShootSinglePhotoReq) (*srvs.CameraStartShootSinglePhotoRes, bool) {
	ok := n.call(ServiceCameraStartShootSinglePhoto, func(ctx context.Context) error {
		return n.vehicle.Camera().StartShootSinglePhoto(ctx, int(req.PayloadIndex))
	})
	return &srvs.CameraStartShootSinglePhotoRes{Result: ok}, true
}

func (n *Node) cameraStartShootAEBPhotoCallback(req *srvs.CameraStartShootAEBPhotoReq) (*srvs.CameraStartShootAEBPhotoRes, bool) {
	ok := n.call(ServiceCameraStartShootAEBPhoto, func(ctx context.Context) error {
		return n.vehicle.Camera().StartShootAEBPhoto(ctx, int(req.PayloadIndex), req.PhotoAEBCount)
	})
	return &srvs.CameraStartShootAEBPhotoRes{Result: ok}, true
}

func (n *Node) cameraStartShootBurstPhotoCallback(req *srvs.CameraStartShootBurstPhotoReq) (*srvs.CameraStartShootBurstPhotoRes, bool) {
	ok := n.call(ServiceCameraStartShootBurstPhoto, func(ctx context.Context) error {
		return n.vehicle.Camera().StartShootBurstPhoto(ctx, int(req.PayloadIndex), req.PhotoBurstCount)
	})
	return &srvs.CameraStartShootBurstPhotoRes{Result: ok}, true
}

func (n *Node) cameraStartShootIntervalPhotoCallback(req *srvs.CameraStartShootIntervalPhotoReq) (*srvs.CameraStartShootIntervalPhotoRes, bool) {
	interval := time.Duration(req.TimeInterval) * time.Second
	ok := n.call(ServiceCameraStartShootIntervalPhoto, func(ctx context.Context) error {
		return n.vehicle.Camera().StartShootIntervalPhoto(ctx, int(req.PayloadIndex), req.PhotoNumConticap, interval)
	})
	return &srvs.CameraStartShootIntervalPhotoRes{Result: ok}, true
}

func (n *Node) cameraStopShootPhotoCallback(req *srvs.CameraStopShootPhotoReq) (*srvs.CameraStopShootPhotoRes, bool) {
	ok := n.call(ServiceCameraStopShootPhoto, func(ctx context.Context) error {
		return n.vehicle.Camera().StopShootPhoto(ctx, int(req.PayloadIndex))
	})
	return &srvs.CameraStopShootPhotoRes{Result: ok}, true
}

func (n *Node) cameraRecordVideoActionCallback(req *srvs.CameraRecordVideoActionReq) (*srvs.CameraRecordVideoActionRes, bool) {
	cam := n.vehicle.Camera()
	payload := int(req.PayloadIndex)
	ok := n.call(ServiceCameraRecordVideoAction, func(ctx context.Context) error {
		if req.StartStop == srvs.RecordStart {
			return cam.StartRecordVideo(ctx, payload)
		}
		return cam.StopRecordVideo(ctx, payload)
	})
	return &srvs.CameraRecordVideoActionRes{Result: ok}, true
}

// mfioCtrlCallback configures the channel and then writes or reads it depending on mode.
func (n *Node) mfioCtrlCallback(req *srvs.MFIOReq) (*srvs.MFIORes, bool) {
	m := n.vehicle.MFIO()
	mode := osdk.MFIOMode(req.Mode)
	res := &srvs.MFIORes{}

	n.call(ServiceMFIOControl, func(ctx context.Context) error {
		switch mode {
		case osdk.MFIOPWMOut:
			if err := m.Config(ctx, mode, req.Channel, req.InitOnTimeUs, req.PWMFreq); err != nil {
				return err
			}
			return m.SetValue(ctx, req.Channel, req.InitOnTimeUs)
		case osdk.MFIOGPIOOut:
			if err := m.Config(ctx, mode, req.Channel, 0, 0); err != nil {
				return err
			}
			return m.SetValue(ctx, req.Channel, uint32(req.GPIOValue))
		case osdk.MFIOGPIOIn, osdk.MFIOADC, osdk.MFIOPWMIn:
			if err := m.Config(ctx, mode, req.Channel, 0, req.PWMFreq); err != nil {
				return err
			}
			v, err := m.GetValue(ctx, req.Channel)
			if err != nil {
				return err
			}
			res.ReadValue = v
			return nil
		default:
			return fmt.Errorf("unknown mfio mode %d", req.Mode)
		}
	})
	return res, true
}

func (n *Node) setGoHomeAltitudeCallback(req *srvs.SetGoHomeAltitudeReq) (*srvs.SetGoHomeAltitudeRes, bool) {
	if req.Altitude < MinGoHomeAltitude || req.Altitude > MaxGoHomeAltitude {
		err := fmt.Errorf("altitude %d m outside [%d, %d]", req.Altitude, MinGoHomeAltitude, MaxGoHomeAltitude)
		return &srvs.SetGoHomeAltitudeRes{Result: n.result(ServiceSetGoHomeAltitude, err)}, true
	}
	ok := n.call(ServiceSetGoHomeAltitude, func(ctx context.Context) error {
		return n.vehicle.FlightController().SetGoHomeAltitude(ctx, req.Altitude)
	})
	return &srvs.SetGoHomeAltitudeRes{Result: ok}, true
}

func (n *Node) setHomeCallback(req *srvs.SetNewHomePointReq) (*srvs.SetNewHomePointRes, bool) {
	ok := n.call(ServiceSetCurrentPointAsHome, n.vehicle.FlightController().SetHomeLocationUsingCurrentAircraftLocation)
	return &srvs.SetNewHomePointRes{Result: ok}, true
}

// setLocalPosRefCallback anchors local_position at the current fused GPS fix.
func (n *Node) setLocalPosRefCallback(req *srvs.SetLocalPosRefReq) (*srvs.SetLocalPosRefRes, bool) {
	n.mu.Lock()
	if n.gpsHealth <= osdk.GPSHealthThreshold {
		health := n.gpsHealth
		n.mu.Unlock()
		err := fmt.Errorf("%w (health %d)", ErrNoGPSReference, health)
		return &srvs.SetLocalPosRefRes{Result: n.result(ServiceSetLocalPosReference, err)}, true
	}
	ref := n.currentGPS
	n.localRef = ref
	n.localRefSet = true
	n.mu.Unlock()

	log.Printf("node: local position reference set to lat=%.7f lon=%.7f alt=%.2f", ref.Latitude, ref.Longitude, ref.Altitude)
	n.publish(TopicLocalFrameRef, &sensor_msgs.NavSatFix{
		Header:    header(n.now(), FrameLocal),
		Latitude:  ref.Latitude,
		Longitude: ref.Longitude,
		Altitude:  ref.Altitude,
	})
	return &srvs.SetLocalPosRefRes{Result: n.result(ServiceSetLocalPosReference, nil)}, true
}

func (n *Node) setAvoidCallback(req *srvs.AvoidEnableReq) (*srvs.AvoidEnableRes, bool) {
	ok := n.call(ServiceSetAvoidEnable, func(ctx context.Context) error {
		return n.vehicle.FlightController().SetCollisionAvoidanceEnabled(ctx, req.Enable)
	})
	return &srvs.AvoidEnableRes{Result: ok}, true
}
