// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package timesync feeds the time-synchronization topics from an NMEA stream,
// typically a GPS receiver on a serial port next to the flight controller.
package timesync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

// OpenSerial opens an 8N1 serial port.
func OpenSerial(portName string, baudRate int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	log.Printf("timesync: serial port opened on %s at %d baud", portName, baudRate)
	return port, nil
}

// SentenceUTC extracts the UTC time carried by RMC and ZDA sentences.
func SentenceUTC(s nmea.Sentence) (time.Time, bool) {
	switch s.DataType() {
	case nmea.TypeRMC:
		m := s.(nmea.RMC)
		if m.Validity != "A" || !m.Time.Valid || !m.Date.Valid {
			return time.Time{}, false
		}
		return time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond),
			time.UTC), true

	case nmea.TypeZDA:
		m := s.(nmea.ZDA)
		if !m.Time.Valid || m.Year == 0 {
			return time.Time{}, false
		}
		return time.Date(int(m.Year), time.Month(m.Month), int(m.Day),
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond),
			time.UTC), true
	}
	return time.Time{}, false
}

// Run reads NMEA lines from r until ctx is done or r fails. Every sentence that
// parses is forwarded to h.NMEA; RMC and ZDA sentences also drive h.GPSUTCTime.
func Run(ctx context.Context, r io.Reader, h osdk.TimeSyncHandlers) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("nmea read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// partial sentences are common right after the port opens
			continue
		}

		if h.NMEA != nil {
			h.NMEA(line, time.Now())
		}
		if utc, ok := SentenceUTC(sentence); ok && h.GPSUTCTime != nil {
			h.GPSUTCTime(FormatUTC(utc), 0)
		}
	}
}
