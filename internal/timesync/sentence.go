package timesync

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Checksum is the NMEA XOR checksum of everything between '$' and '*'.
func Checksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}

// withChecksum wraps an NMEA body as "$body*CS".
func withChecksum(body string) string {
	return fmt.Sprintf("$%s*%02X", body, Checksum(body))
}

// degMin formats decimal degrees as NMEA (d)ddmm.mmmm plus hemisphere.
func degMin(v float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := math.Floor(v)
	mins := (v - deg) * 60
	return fmt.Sprintf("%0*d%07.4f", degDigits, int(deg), mins), hemi
}

// FormatRMC builds a valid GPRMC sentence for the given UTC time and position.
func FormatRMC(t time.Time, lat, lon, speedKnots, courseDeg float64) string {
	t = t.UTC()
	latStr, latHemi := degMin(lat, 2, "N", "S")
	lonStr, lonHemi := degMin(lon, 3, "E", "W")
	body := strings.Join([]string{
		"GPRMC",
		fmt.Sprintf("%02d%02d%02d.%02d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/10_000_000),
		"A",
		latStr, latHemi,
		lonStr, lonHemi,
		fmt.Sprintf("%.1f", speedKnots),
		fmt.Sprintf("%.1f", courseDeg),
		fmt.Sprintf("%02d%02d%02d", t.Day(), int(t.Month()), t.Year()%100),
		"", "",
		"A",
	}, ",")
	return withChecksum(body)
}

// FormatZDA builds a GPZDA time-and-date sentence.
func FormatZDA(t time.Time) string {
	t = t.UTC()
	body := fmt.Sprintf("GPZDA,%02d%02d%02d.%02d,%02d,%02d,%04d,00,00",
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/10_000_000,
		t.Day(), int(t.Month()), t.Year())
	return withChecksum(body)
}

// FormatUTC renders t the way the GPS UTC time topic carries it.
func FormatUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
