package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// Vehicle backends.
const (
	BackendSim     = "sim"
	BackendMAVLink = "mavlink"
)

// Display pages.
const (
	DisplayStatus   = "status"
	DisplayAttitude = "attitude"
	DisplayGPS      = "gps"
)

// Config holds all application configuration values.
// Every key can also be set through an environment variable of the same name,
// which wins over the file.
type Config struct {
	// Vehicle link
	AppID          int    `env:"APP_ID"`
	AppVersion     int    `env:"APP_VERSION"`
	EncKey         string `env:"ENC_KEY"`
	Device         string `env:"DEVICE"`
	DeviceACM      string `env:"DEVICE_ACM"`
	BaudRate       int    `env:"BAUD_RATE"`
	DroneVersion   string `env:"DRONE_VERSION"`
	VehicleBackend string `env:"VEHICLE_BACKEND"`
	MAVLinkSysID   int    `env:"MAVLINK_SYSTEM_ID"`

	// Node behaviour
	GravityConst    float64 `env:"GRAVITY_CONST"`
	AlignTimeWithFC bool    `env:"ALIGN_TIME_WITH_FC"`
	UseBroadcast    bool    `env:"USE_BROADCAST"`
	RTKSupport      bool    `env:"RTK_SUPPORT"`

	// MQTT
	MQTTBroker          string `env:"MQTT_BROKER"`
	MQTTClientIDNode    string `env:"MQTT_CLIENT_ID_NODE"`
	MQTTClientIDConsole string `env:"MQTT_CLIENT_ID_CONSOLE"`
	MQTTClientIDWeb     string `env:"MQTT_CLIENT_ID_WEB"`
	MQTTClientIDDisplay string `env:"MQTT_CLIENT_ID_DISPLAY"`
	TopicPrefix         string `env:"TOPIC_PREFIX"`

	// ROS
	ROSEnabled  bool   `env:"ROS_ENABLED"`
	ROSMaster   string `env:"ROS_MASTER"`
	ROSNodeName string `env:"ROS_NODE_NAME"`

	// Time sync from an external NMEA receiver (MAVLink backend)
	NMEASerialPort string `env:"NMEA_SERIAL_PORT"`
	NMEABaudRate   int    `env:"NMEA_BAUD_RATE"`

	// Metrics and web
	MetricsAddr      string `env:"METRICS_ADDR"`
	WebServerPort    int    `env:"WEB_SERVER_PORT"`
	ServiceTimeoutMs int    `env:"SERVICE_TIMEOUT_MS"`

	// Display
	DisplayI2CBus         string `env:"DISPLAY_I2C_BUS"`
	DisplayI2CAddr        uint16 `env:"DISPLAY_I2C_ADDR"`
	DisplayUpdateInterval int    `env:"DISPLAY_UPDATE_INTERVAL"` // milliseconds
	DisplayContent        string `env:"DISPLAY_CONTENT"`         // "status", "attitude" or "gps"
}

// envOptions lets environment overrides use the same number syntax as the file, so
// DISPLAY_I2C_ADDR=0x3C works in both.
var envOptions = env.Options{
	FuncMap: map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(uint16(0)): func(v string) (interface{}, error) {
			n, err := strconv.ParseUint(v, 0, 16)
			return uint16(n), err
		},
	},
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values used for keys the file and environment leave unset.
func Default() *Config {
	return &Config{
		BaudRate:              921600,
		DroneVersion:          "M300",
		VehicleBackend:        BackendSim,
		MAVLinkSysID:          255,
		GravityConst:          9.801,
		MQTTClientIDNode:      "osdk-vehicle-node",
		MQTTClientIDConsole:   "osdk-console-subscriber",
		MQTTClientIDWeb:       "osdk-web-subscriber",
		MQTTClientIDDisplay:   "osdk-display-subscriber",
		TopicPrefix:           "dji_osdk_ros",
		ROSNodeName:           "vehicle_node",
		NMEABaudRate:          9600,
		WebServerPort:         8080,
		ServiceTimeoutMs:      5000,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
		DisplayContent:        DisplayStatus,
	}
}

// Load reads the configuration file, applies environment overrides and validates.
// An empty path skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.readFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, envOptions); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(configPath string) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Vehicle link
	case "APP_ID":
		c.AppID, err = parseInt(key, value)
	case "APP_VERSION":
		c.AppVersion, err = parseInt(key, value)
	case "ENC_KEY":
		c.EncKey = value
	case "DEVICE":
		c.Device = value
	case "DEVICE_ACM":
		c.DeviceACM = value
	case "BAUD_RATE":
		c.BaudRate, err = parseInt(key, value)
	case "DRONE_VERSION":
		c.DroneVersion = value
	case "VEHICLE_BACKEND":
		c.VehicleBackend = value
	case "MAVLINK_SYSTEM_ID":
		c.MAVLinkSysID, err = parseInt(key, value)

	// Node behaviour
	case "GRAVITY_CONST":
		c.GravityConst, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GRAVITY_CONST %q: %w", value, err)
		}
	case "ALIGN_TIME_WITH_FC":
		c.AlignTimeWithFC, err = parseBool(key, value)
	case "USE_BROADCAST":
		c.UseBroadcast, err = parseBool(key, value)
	case "RTK_SUPPORT":
		c.RTKSupport, err = parseBool(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_NODE":
		c.MQTTClientIDNode = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "TOPIC_PREFIX":
		c.TopicPrefix = value

	// ROS
	case "ROS_ENABLED":
		c.ROSEnabled, err = parseBool(key, value)
	case "ROS_MASTER":
		c.ROSMaster = value
	case "ROS_NODE_NAME":
		c.ROSNodeName = value

	// Time sync
	case "NMEA_SERIAL_PORT":
		c.NMEASerialPort = value
	case "NMEA_BAUD_RATE":
		c.NMEABaudRate, err = parseInt(key, value)

	// Metrics and web
	case "METRICS_ADDR":
		c.MetricsAddr = value
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "SERVICE_TIMEOUT_MS":
		c.ServiceTimeoutMs, err = parseInt(key, value)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)
	case "DISPLAY_CONTENT":
		c.DisplayContent = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.VehicleBackend {
	case BackendSim:
	case BackendMAVLink:
		if c.Device == "" {
			return fmt.Errorf("DEVICE is required for the %s backend", BackendMAVLink)
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("BAUD_RATE must be positive, got %d", c.BaudRate)
		}
		if c.MAVLinkSysID < 1 || c.MAVLinkSysID > 255 {
			return fmt.Errorf("MAVLINK_SYSTEM_ID must be 1-255, got %d", c.MAVLinkSysID)
		}
	default:
		return fmt.Errorf("VEHICLE_BACKEND must be %q or %q, got %q", BackendSim, BackendMAVLink, c.VehicleBackend)
	}
	if c.GravityConst <= 0 {
		return fmt.Errorf("GRAVITY_CONST must be positive, got %g", c.GravityConst)
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("TOPIC_PREFIX is required")
	}
	if c.ROSEnabled && c.ROSMaster == "" {
		return fmt.Errorf("ROS_MASTER is required when ROS_ENABLED is set")
	}
	if c.NMEASerialPort != "" && c.NMEABaudRate <= 0 {
		return fmt.Errorf("NMEA_BAUD_RATE must be positive, got %d", c.NMEABaudRate)
	}
	if c.ServiceTimeoutMs <= 0 {
		return fmt.Errorf("SERVICE_TIMEOUT_MS must be positive, got %d", c.ServiceTimeoutMs)
	}
	switch c.DisplayContent {
	case DisplayStatus, DisplayAttitude, DisplayGPS:
	default:
		return fmt.Errorf("DISPLAY_CONTENT must be one of status, attitude, gps, got %q", c.DisplayContent)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
