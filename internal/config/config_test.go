package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vehicle_node.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
# broker
MQTT_BROKER=tcp://localhost:1883
ALIGN_TIME_WITH_FC=true
RTK_SUPPORT=1
GRAVITY_CONST=9.81
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.True(t, cfg.AlignTimeWithFC)
	assert.True(t, cfg.RTKSupport)
	assert.InDelta(t, 9.81, cfg.GravityConst, 1e-12)
	assert.Equal(t, BackendSim, cfg.VehicleBackend)
	assert.Equal(t, "dji_osdk_ros", cfg.TopicPrefix)
	assert.Equal(t, 5000, cfg.ServiceTimeoutMs)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "MQTT_BROKER=tcp://file:1883\nWEB_SERVER_PORT=8080\n")
	t.Setenv("MQTT_BROKER", "tcp://env:1883")
	t.Setenv("WEB_SERVER_PORT", "9090")
	t.Setenv("ROS_ENABLED", "true")
	t.Setenv("ROS_MASTER", "127.0.0.1:11311")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.MQTTBroker)
	assert.Equal(t, 9090, cfg.WebServerPort)
	assert.True(t, cfg.ROSEnabled)
	assert.Equal(t, "127.0.0.1:11311", cfg.ROSMaster)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "MQTT_BROKER=x\nFOO=1\n",
		"not key value":     "MQTT_BROKER=x\njust text\n",
		"bad int":           "MQTT_BROKER=x\nBAUD_RATE=fast\n",
		"bad bool":          "MQTT_BROKER=x\nRTK_SUPPORT=maybe\n",
		"missing broker":    "RTK_SUPPORT=true\n",
		"bad backend":       "MQTT_BROKER=x\nVEHICLE_BACKEND=dji\n",
		"mavlink no device": "MQTT_BROKER=x\nVEHICLE_BACKEND=mavlink\n",
		"ros no master":     "MQTT_BROKER=x\nROS_ENABLED=true\n",
		"bad display":       "MQTT_BROKER=x\nDISPLAY_CONTENT=video\n",
		"zero gravity":      "MQTT_BROKER=x\nGRAVITY_CONST=0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestMAVLinkBackend(t *testing.T) {
	cfg, err := Load(writeConfig(t, "MQTT_BROKER=x\nVEHICLE_BACKEND=mavlink\nDEVICE=/dev/ttyACM0\nBAUD_RATE=57600\n"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, 57600, cfg.BaudRate)
	assert.Equal(t, 255, cfg.MAVLinkSysID)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	assert.Error(t, err)
}

func TestDisplayAddressAcceptsHex(t *testing.T) {
	path := writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\nDISPLAY_I2C_ADDR=0x3D\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3D), cfg.DisplayI2CAddr)

	_, err = Load(writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\nDISPLAY_I2C_ADDR=display\n"))
	assert.ErrorContains(t, err, "DISPLAY_I2C_ADDR")
}

func TestDisplayAddressFromEnvironment(t *testing.T) {
	path := writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\nDISPLAY_I2C_ADDR=0x3D\n")
	t.Setenv("DISPLAY_I2C_ADDR", "0x3C")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)

	t.Setenv("DISPLAY_I2C_ADDR", "61")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(61), cfg.DisplayI2CAddr)

	t.Setenv("DISPLAY_I2C_ADDR", "0x1FFFF")
	_, err = Load(path)
	assert.ErrorContains(t, err, "DisplayI2CAddr")
}
