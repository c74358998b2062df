package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/osdk_bridge/internal/bus/mqttbus"
	"github.com/relabs-tech/osdk_bridge/internal/config"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// flightStatusNames names the flight_status values.
var flightStatusNames = map[uint8]string{
	osdk.FlightStatusStopped:  "STOPPED",
	osdk.FlightStatusOnGround: "ON GROUND",
	osdk.FlightStatusInAir:    "IN AIR",
}

func RunDisplay(ctx context.Context, cfg *config.Config) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)
	defer dev.Halt()

	if err := dev.Draw(dev.Bounds(), renderLines("OSDK bridge", cfg.TopicPrefix, "Waiting..."), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := mqttbus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	t := NewTelemetry()
	if err := t.Subscribe(client, cfg.TopicPrefix); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			img := RenderPage(cfg.DisplayContent, t.Snapshot())
			if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

// RenderPage draws one page of content for a 128x64 panel.
func RenderPage(content string, v View) *image1bit.VerticalLSB {
	return renderLines(PageLines(content, v)...)
}

// PageLines is the text of a page, one entry per display line.
func PageLines(content string, v View) []string {
	switch content {
	case config.DisplayAttitude:
		p := v.Attitude
		if p == nil {
			return []string{"Attitude", "Waiting..."}
		}
		return []string{
			fmt.Sprintf("R: %6.1f", p.Roll),
			fmt.Sprintf("P: %6.1f", p.Pitch),
			fmt.Sprintf("Y: %6.1f", p.Yaw),
		}

	case config.DisplayGPS:
		p := v.Position
		if p == nil {
			return []string{"GPS Position", "Waiting..."}
		}
		latDir, lat := "N", p.Latitude
		if lat < 0 {
			latDir, lat = "S", -lat
		}
		lonDir, lon := "E", p.Longitude
		if lon < 0 {
			lonDir, lon = "W", -lon
		}
		lines := []string{
			fmt.Sprintf("%.5f%s", lat, latDir),
			fmt.Sprintf("%.5f%s", lon, lonDir),
			fmt.Sprintf("Alt: %.0fm", p.Altitude),
		}
		if v.GPSHealth != nil {
			lines = append(lines, fmt.Sprintf("Health: %d", *v.GPSHealth))
		}
		return lines

	default:
		if v.Updated.IsZero() {
			return []string{"Vehicle", "Waiting..."}
		}
		status := "?"
		if v.FlightStatus != nil {
			if name, ok := flightStatusNames[*v.FlightStatus]; ok {
				status = name
			} else {
				status = fmt.Sprintf("%d", *v.FlightStatus)
			}
		}
		lines := []string{status}
		if v.DisplayMode != nil {
			lines = append(lines, fmt.Sprintf("Mode: %d", *v.DisplayMode))
		}
		if v.Battery != nil {
			lines = append(lines, fmt.Sprintf("Bat: %.1fV %.0f%%", v.Battery.Voltage, v.Battery.Percentage*100))
		}
		if v.HeightAboveTakeoff != nil {
			lines = append(lines, fmt.Sprintf("Hgt: %.1fm", *v.HeightAboveTakeoff))
		}
		return lines
	}
}

func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := lineHeight * (i + 1)
		if y > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}
