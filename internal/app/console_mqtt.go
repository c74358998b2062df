package app

import (
	"context"
	"fmt"
	"log"

	"github.com/relabs-tech/osdk_bridge/internal/bus/mqttbus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/node"
)

// RunConsoleMQTT prints the vehicle node telemetry until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	client, err := mqttbus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	t := NewTelemetry()
	stop := t.Listen(func(topic string) {
		if line := FormatTopic(topic, t.Snapshot()); line != "" {
			fmt.Println(line)
		}
	})
	defer stop()

	if err := t.Subscribe(client, cfg.TopicPrefix); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// FormatTopic renders the part of v that topic updates as one console line.
func FormatTopic(topic string, v View) string {
	switch topic {
	case node.TopicAttitude:
		if p := v.Attitude; p != nil {
			return fmt.Sprintf("[ATT ]  ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f", p.Roll, p.Pitch, p.Yaw)
		}
	case node.TopicGPSPosition:
		if p := v.Position; p != nil {
			return fmt.Sprintf("[GPS ]  lat=%.7f lon=%.7f alt=%.1fm", p.Latitude, p.Longitude, p.Altitude)
		}
	case node.TopicVelocity:
		if p := v.Velocity; p != nil {
			return fmt.Sprintf("[VEL ]  E=%6.2f N=%6.2f U=%6.2f m/s", p.X, p.Y, p.Z)
		}
	case node.TopicHeightAboveTakeoff:
		if h := v.HeightAboveTakeoff; h != nil {
			return fmt.Sprintf("[HGT ]  %.2fm above takeoff", *h)
		}
	case node.TopicFlightStatus:
		if s := v.FlightStatus; s != nil {
			return fmt.Sprintf("[STAT]  flight status %d", *s)
		}
	case node.TopicDisplayMode:
		if m := v.DisplayMode; m != nil {
			return fmt.Sprintf("[MODE]  display mode %d", *m)
		}
	case node.TopicGPSHealth:
		if h := v.GPSHealth; h != nil {
			return fmt.Sprintf("[GPSH]  health %d", *h)
		}
	case node.TopicBatteryState:
		if b := v.Battery; b != nil {
			return fmt.Sprintf("[BATT]  %.2fV %.0f%%", b.Voltage, b.Percentage*100)
		}
	case node.TopicGimbalAngle:
		if g := v.Gimbal; g != nil {
			return fmt.Sprintf("[GMBL]  ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f", g.Roll, g.Pitch, g.Yaw)
		}
	}
	return ""
}
