// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bluenviron/goroslib/v2/pkg/msgs/geometry_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/sensor_msgs"
	"github.com/bluenviron/goroslib/v2/pkg/msgs/std_msgs"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/osdk_bridge/internal/bus"
	"github.com/relabs-tech/osdk_bridge/internal/bus/mqttbus"
	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/node"
)

// Position is a GPS fix in degrees and metres.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Battery is the aircraft battery with percentage in 0..1.
type Battery struct {
	Voltage    float32 `json:"voltage"`
	Current    float32 `json:"current"`
	Percentage float32 `json:"percentage"`
}

// View is the latest value of every topic the monitors show. Fields stay nil until
// their topic has been received once.
type View struct {
	Attitude           *frames.Pose    `json:"attitude,omitempty"`
	Position           *Position       `json:"position,omitempty"`
	Velocity           *frames.Vector3 `json:"velocity,omitempty"`
	HeightAboveTakeoff *float32        `json:"height_above_takeoff,omitempty"`
	FlightStatus       *uint8          `json:"flight_status,omitempty"`
	DisplayMode        *uint8          `json:"display_mode,omitempty"`
	GPSHealth          *uint8          `json:"gps_health,omitempty"`
	Battery            *Battery        `json:"battery,omitempty"`
	Gimbal             *frames.Pose    `json:"gimbal,omitempty"`
	Updated            time.Time       `json:"updated"`
}

// Telemetry keeps the latest vehicle node messages received over MQTT.
type Telemetry struct {
	mu   sync.RWMutex
	view View
	now  func() time.Time

	listenersMu sync.Mutex
	listeners   map[int]func(topic string)
	nextID      int
}

func NewTelemetry() *Telemetry {
	return &Telemetry{now: time.Now, listeners: make(map[int]func(string))}
}

// MonitoredTopics are the node topics Telemetry decodes.
var MonitoredTopics = []string{
	node.TopicAttitude,
	node.TopicGPSPosition,
	node.TopicVelocity,
	node.TopicHeightAboveTakeoff,
	node.TopicFlightStatus,
	node.TopicDisplayMode,
	node.TopicGPSHealth,
	node.TopicBatteryState,
	node.TopicGimbalAngle,
}

// Subscribe feeds t from the node topics under prefix.
func (t *Telemetry) Subscribe(client mqtt.Client, prefix string) error {
	for _, topic := range MonitoredTopics {
		name := mqttbus.TopicName(prefix, topic)
		token := client.Subscribe(name, 0, func(_ mqtt.Client, m mqtt.Message) {
			if err := t.Update(topic, m.Payload()); err != nil {
				log.Printf("telemetry: %s: %v", topic, err)
			}
		})
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
	}
	log.Printf("telemetry: subscribed to %d topics under %s", len(MonitoredTopics), prefix)
	return nil
}

// Update decodes one payload of topic into the view.
func (t *Telemetry) Update(topic string, payload []byte) error {
	var apply func(v *View)

	switch topic {
	case node.TopicAttitude:
		var m geometry_msgs.QuaternionStamped
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		q := m.Quaternion
		pose := frames.EulerFromQuaternion(frames.Quaternion{W: q.W, X: q.X, Y: q.Y, Z: q.Z})
		apply = func(v *View) { v.Attitude = &pose }

	case node.TopicGPSPosition:
		var m sensor_msgs.NavSatFix
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		p := Position{Latitude: m.Latitude, Longitude: m.Longitude, Altitude: m.Altitude}
		apply = func(v *View) { v.Position = &p }

	case node.TopicVelocity:
		var m geometry_msgs.Vector3Stamped
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		vel := frames.Vector3{X: m.Vector.X, Y: m.Vector.Y, Z: m.Vector.Z}
		apply = func(v *View) { v.Velocity = &vel }

	case node.TopicHeightAboveTakeoff:
		var m std_msgs.Float32
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		apply = func(v *View) { v.HeightAboveTakeoff = &m.Data }

	case node.TopicFlightStatus, node.TopicDisplayMode, node.TopicGPSHealth:
		var m std_msgs.UInt8
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		apply = func(v *View) {
			switch topic {
			case node.TopicFlightStatus:
				v.FlightStatus = &m.Data
			case node.TopicDisplayMode:
				v.DisplayMode = &m.Data
			default:
				v.GPSHealth = &m.Data
			}
		}

	case node.TopicBatteryState:
		var m sensor_msgs.BatteryState
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		b := Battery{Voltage: m.Voltage, Current: m.Current, Percentage: m.Percentage}
		apply = func(v *View) { v.Battery = &b }

	case node.TopicGimbalAngle:
		var m geometry_msgs.Vector3Stamped
		if err := bus.Unmarshal(payload, &m); err != nil {
			return err
		}
		g := frames.Pose{Roll: m.Vector.X, Pitch: m.Vector.Y, Yaw: m.Vector.Z}
		apply = func(v *View) { v.Gimbal = &g }

	default:
		return fmt.Errorf("topic %s is not monitored", topic)
	}

	t.mu.Lock()
	apply(&t.view)
	t.view.Updated = t.now()
	t.mu.Unlock()

	t.notify(topic)
	return nil
}

// Snapshot returns a copy of the current view.
func (t *Telemetry) Snapshot() View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view
}

// Listen calls fn after every update until the returned cancel is called.
func (t *Telemetry) Listen(fn func(topic string)) (cancel func()) {
	t.listenersMu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.listenersMu.Unlock()

	return func() {
		t.listenersMu.Lock()
		delete(t.listeners, id)
		t.listenersMu.Unlock()
	}
}

func (t *Telemetry) notify(topic string) {
	t.listenersMu.Lock()
	fns := make([]func(string), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.listenersMu.Unlock()

	for _, fn := range fns {
		fn(topic)
	}
}

// FeedFromMemory feeds t from an in-process bus the node has already advertised on.
func (t *Telemetry) FeedFromMemory(m *bus.Memory) error {
	for _, topic := range MonitoredTopics {
		err := m.Subscribe(topic, func(msg any) {
			payload, err := bus.Marshal(msg)
			if err == nil {
				err = t.Update(topic, payload)
			}
			if err != nil {
				log.Printf("telemetry: %s: %v", topic, err)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
