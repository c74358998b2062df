package timesync

import (
	"context"
	"strings"
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

func TestChecksumKnownSentence(t *testing.T) {
	// from the NMEA 0183 reference
	body := "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	assert.Equal(t, byte(0x47), Checksum(body))
}

func TestFormatRMCParses(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 250_000_000, time.UTC)
	line := FormatRMC(ts, 47.397742, -8.545594, 1.5, 270)

	s, err := nmea.Parse(line)
	require.NoError(t, err)
	require.Equal(t, nmea.TypeRMC, s.DataType())

	m := s.(nmea.RMC)
	assert.InDelta(t, 47.397742, m.Latitude, 1e-5)
	assert.InDelta(t, -8.545594, m.Longitude, 1e-5)
	assert.InDelta(t, 1.5, m.Speed, 1e-9)

	utc, ok := SentenceUTC(s)
	require.True(t, ok)
	assert.Equal(t, ts, utc)
}

func TestFormatZDAParses(t *testing.T) {
	ts := time.Date(2026, 10, 17, 23, 59, 1, 0, time.UTC)
	s, err := nmea.Parse(FormatZDA(ts))
	require.NoError(t, err)

	utc, ok := SentenceUTC(s)
	require.True(t, ok)
	assert.Equal(t, ts, utc)
}

func TestSentenceUTCIgnoresVoidFix(t *testing.T) {
	s, err := nmea.Parse(withChecksum("GPRMC,092653.00,V,4700.0000,N,00800.0000,E,0.0,0.0,140326,,,N"))
	require.NoError(t, err)
	_, ok := SentenceUTC(s)
	assert.False(t, ok)
}

func TestRunForwardsSentences(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	input := strings.Join([]string{
		"garbage before the first dollar",
		"$GPRMC,0926", // truncated
		FormatRMC(ts, 47.0, 8.0, 0, 0),
		withChecksum("GPGGA,092653.00,4700.0000,N,00800.0000,E,1,08,0.9,545.4,M,46.9,M,,"),
		"",
	}, "\r\n")

	var sentences, utcs []string
	err := Run(context.Background(), strings.NewReader(input), osdk.TimeSyncHandlers{
		NMEA: func(s string, _ time.Time) { sentences = append(sentences, s) },
		GPSUTCTime: func(utc string, fc uint32) {
			assert.Zero(t, fc)
			utcs = append(utcs, utc)
		},
	})
	require.NoError(t, err)

	assert.Len(t, sentences, 2)
	assert.Equal(t, []string{"2026-03-14T09:26:53.000Z"}, utcs)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Run(ctx, strings.NewReader(FormatZDA(time.Now())+"\n"), osdk.TimeSyncHandlers{
		NMEA: func(string, time.Time) { called = true },
	})
	assert.NoError(t, err)
	assert.False(t, called)
}
