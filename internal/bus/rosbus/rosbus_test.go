package rosbus

import (
	"testing"

	"github.com/bluenviron/goroslib/v2/pkg/msgproc"
	srvproc "github.com/bluenviron/goroslib/v2/pkg/serviceproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/osdk_bridge/internal/msgs"
	"github.com/relabs-tech/osdk_bridge/internal/srvs"
)

func TestTopicName(t *testing.T) {
	assert.Equal(t, "dji_osdk_ros/attitude", TopicName("dji_osdk_ros", "attitude"))
	assert.Equal(t, "attitude", TopicName("", "attitude"))
}

func TestMessageDefinitions(t *testing.T) {
	cases := []struct {
		name string
		msg  any
		md5  string
	}{
		{"FlightAnomaly", &msgs.FlightAnomaly{}, "304a39449588c7f8ce2df6e8001c5fce"},
		{"VOPosition", &msgs.VOPosition{}, ""},
		{"MobileData", &msgs.MobileData{}, "f43a8e1b362b75baa741461b46adc7e0"},
		{"PayloadData", &msgs.PayloadData{}, "f43a8e1b362b75baa741461b46adc7e0"},
		{"FCTimeInUTC", &msgs.FCTimeInUTC{}, "f2d68a4097b0b05d47a2b395a13a0463"},
		{"GPSUTC", &msgs.GPSUTC{}, "1791a1a8857b72e01b1dd8a7471440c9"},
		{"JoystickParams", &msgs.JoystickParams{}, ""},
		{"Sentence", &msgs.Sentence{}, "9f221efc5f4b3bac7ce4af102b32308b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := msgproc.Text(tc.msg)
			require.NoError(t, err)
			assert.NotEmpty(t, text)

			sum, err := msgproc.MD5(tc.msg)
			require.NoError(t, err)
			assert.Len(t, sum, 32)
			if tc.md5 != "" {
				assert.Equal(t, tc.md5, sum)
			}
		})
	}
}

func TestVOPositionFieldNames(t *testing.T) {
	text, err := msgproc.Text(&msgs.VOPosition{})
	require.NoError(t, err)
	assert.Contains(t, text, "uint8 xHealth")
	assert.Contains(t, text, "float32 z")
}

func TestServiceDefinitions(t *testing.T) {
	cases := []struct {
		name string
		srv  any
		md5  string
	}{
		{"FlightTaskControl", &srvs.FlightTaskControl{}, ""},
		{"GimbalAction", &srvs.GimbalAction{}, ""},
		{"CameraEV", &srvs.CameraEV{}, ""},
		{"CameraShutterSpeed", &srvs.CameraShutterSpeed{}, ""},
		{"CameraAperture", &srvs.CameraAperture{}, ""},
		{"CameraISO", &srvs.CameraISO{}, ""},
		{"CameraFocusPoint", &srvs.CameraFocusPoint{}, ""},
		{"CameraTapZoomPoint", &srvs.CameraTapZoomPoint{}, ""},
		{"CameraZoomCtrl", &srvs.CameraZoomCtrl{}, ""},
		{"CameraStartShootSinglePhoto", &srvs.CameraStartShootSinglePhoto{}, ""},
		{"CameraStartShootAEBPhoto", &srvs.CameraStartShootAEBPhoto{}, ""},
		{"CameraStartShootBurstPhoto", &srvs.CameraStartShootBurstPhoto{}, ""},
		{"CameraStartShootIntervalPhoto", &srvs.CameraStartShootIntervalPhoto{}, ""},
		{"CameraStopShootPhoto", &srvs.CameraStopShootPhoto{}, ""},
		{"CameraRecordVideoAction", &srvs.CameraRecordVideoAction{}, ""},
		{"MFIO", &srvs.MFIO{}, ""},
		{"SetGoHomeAltitude", &srvs.SetGoHomeAltitude{}, "7721aec53d0b312409b16d98d1d8d77a"},
		{"SetNewHomePoint", &srvs.SetNewHomePoint{}, "eb13ac1f1354ccecb7941ee8fa2192e8"},
		{"SetLocalPosRef", &srvs.SetLocalPosRef{}, "eb13ac1f1354ccecb7941ee8fa2192e8"},
		{"AvoidEnable", &srvs.AvoidEnable{}, "29d58f387352c15c4e4f5763022ae875"},
	}
	seen := make(map[string]string)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sum, err := srvproc.MD5(tc.srv)
			require.NoError(t, err)
			assert.Len(t, sum, 32)
			if tc.md5 != "" {
				assert.Equal(t, tc.md5, sum)
			}
			seen[tc.name] = sum
		})
	}
	// requests that differ must not collide
	assert.NotEqual(t, seen["CameraStartShootSinglePhoto"], seen["CameraStartShootAEBPhoto"])
	assert.NotEqual(t, seen["CameraEV"], seen["CameraISO"])
}
