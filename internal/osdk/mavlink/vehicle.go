// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mavlink drives a MAVLink autopilot over a serial link and exposes it as an
// osdk.Vehicle: incoming streams fill a telemetry snapshot that is pushed at the
// package rates, and control calls become COMMAND_LONG, PARAM_SET and position
// target messages.
package mavlink

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/timesync"
)

// Config selects the serial link and the identity used on it.
type Config struct {
	Device   string
	Baud     int
	SystemID int
	// NMEAPort, when set, is a GPS receiver whose sentences feed the NMEA time-sync topic.
	NMEAPort string
	NMEABaud int
}

// link is the part of gomavlib.Node the vehicle writes through.
type link interface {
	WriteMessageAll(m message.Message) error
}

type subscription struct {
	pkg    osdk.Package
	cb     osdk.PackageCallback
	cancel context.CancelFunc
	done   chan struct{}
}

type mfioChannel struct {
	mode  osdk.MFIOMode
	value uint32
}

// Vehicle implements osdk.Vehicle over MAVLink.
type Vehicle struct {
	link    link
	closeFn func()
	now     func() time.Time
	wg      sync.WaitGroup

	mu           sync.Mutex
	snap         osdk.Snapshot
	armed        bool
	landed       common.MAV_LANDED_STATE
	targetSystem uint8
	targetComp   uint8
	acks         map[common.MAV_CMD]chan common.MAV_RESULT
	params       map[string]chan float32
	subs         map[int]*subscription
	gimbalOn     bool
	mfio         map[uint8]*mfioChannel
	timeSync     osdk.TimeSyncHandlers
	nmeaOpen     func() (io.ReadCloser, error)
	nmeaCancel   context.CancelFunc
	mobile       func(data []byte)
	payload      func(data []byte)
	closed       bool
}

var _ osdk.Vehicle = (*Vehicle)(nil)

func newVehicle(l link) *Vehicle {
	return &Vehicle{
		link:   l,
		now:    time.Now,
		acks:   make(map[common.MAV_CMD]chan common.MAV_RESULT),
		params: make(map[string]chan float32),
		subs:   make(map[int]*subscription),
		mfio:   make(map[uint8]*mfioChannel),
	}
}

// Open connects to the autopilot on cfg.Device and starts reading its streams.
func Open(cfg Config) (*Vehicle, error) {
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointSerial{Device: cfg.Device, Baud: cfg.Baud},
		},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: byte(cfg.SystemID),
	})
	if err != nil {
		return nil, fmt.Errorf("mavlink: open %s: %w", cfg.Device, err)
	}
	log.Printf("mavlink: link open on %s at %d baud as system %d", cfg.Device, cfg.Baud, cfg.SystemID)

	v := newVehicle(node)
	v.closeFn = node.Close
	if cfg.NMEAPort != "" {
		port, baud := cfg.NMEAPort, cfg.NMEABaud
		v.nmeaOpen = func() (io.ReadCloser, error) {
			return timesync.OpenSerial(port, baud)
		}
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.listen(node.Events())
	}()
	return v, nil
}

func (v *Vehicle) listen(events <-chan gomavlib.Event) {
	for evt := range events {
		switch e := evt.(type) {
		case *gomavlib.EventChannelOpen:
			log.Printf("mavlink: channel open: %v", e.Channel)
		case *gomavlib.EventChannelClose:
			log.Printf("mavlink: channel closed: %v", e.Channel)
		case *gomavlib.EventParseError:
			log.Printf("mavlink: parse error: %v", e.Error)
		case *gomavlib.EventFrame:
			v.handle(e.SystemID(), e.ComponentID(), e.Message())
		}
	}
}

// handle processes one incoming message from (sys, comp).
func (v *Vehicle) handle(sys, comp uint8, msg message.Message) {
	v.mu.Lock()

	switch m := msg.(type) {
	case *common.MessageHeartbeat:
		if m.Autopilot == common.MAV_AUTOPILOT_INVALID {
			// gimbals, cameras and ground stations
			v.mu.Unlock()
			return
		}
		if v.targetSystem == 0 {
			v.targetSystem, v.targetComp = sys, comp
			log.Printf("mavlink: autopilot found (system %d, component %d)", sys, comp)
		}

	case *common.MessageCommandAck:
		if ch, ok := v.acks[m.Command]; ok {
			select {
			case ch <- m.Result:
			default:
			}
		}
		v.mu.Unlock()
		return

	case *common.MessageParamValue:
		if ch, ok := v.params[m.ParamId]; ok {
			select {
			case ch <- m.ParamValue:
			default:
			}
		}
		v.mu.Unlock()
		return

	case *common.MessageTunnel:
		// tunnels from the autopilot's own system come from payloads, the rest from
		// ground software
		h := v.mobile
		if sys == v.targetSystem {
			h = v.payload
		}
		v.mu.Unlock()
		if h != nil {
			n := int(m.PayloadLength)
			if n > len(m.Payload) {
				n = len(m.Payload)
			}
			h(append([]byte(nil), m.Payload[:n]...))
		}
		return

	case *common.MessageGimbalDeviceAttitudeStatus:
		// sent by the gimbal device, a sibling component of the autopilot
		if !v.gimbalOn || sys != v.targetSystem {
			v.mu.Unlock()
			return
		}
		v.apply(&v.snap, msg)
		v.mu.Unlock()
		return

	case *common.MessageSystemTime:
		if m.TimeUnixUsec != 0 && v.fromAutopilot(sys, comp) {
			h := v.timeSync
			fromNMEA := v.nmeaOpen != nil
			fc, utc := fcTimeInUTC(m)
			v.apply(&v.snap, msg)
			v.mu.Unlock()
			if h.FCTimeInUTC != nil {
				h.FCTimeInUTC(fc)
			}
			if h.GPSUTCTime != nil && !fromNMEA {
				h.GPSUTCTime(timesync.FormatUTC(utc), fc.FCTimestampUs)
			}
			return
		}
	}

	if v.fromAutopilot(sys, comp) {
		v.apply(&v.snap, msg)
	}
	v.mu.Unlock()
}

// fromAutopilot reports whether (sys, comp) is the selected autopilot. v.mu must be held.
func (v *Vehicle) fromAutopilot(sys, comp uint8) bool {
	return v.targetSystem != 0 && sys == v.targetSystem && comp == v.targetComp
}

// Snapshot returns a copy of the current telemetry stamped with the host time.
func (v *Vehicle) Snapshot() *osdk.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.snap
	s.Received = v.now()
	return &s
}

// SubscribePackage implements osdk.Telemetry. The autopilot is asked to stream the
// messages behind pkg.Topics at pkg.FreqHz; the package is pushed from the snapshot.
func (v *Vehicle) SubscribePackage(ctx context.Context, pkg osdk.Package, cb osdk.PackageCallback) error {
	if pkg.FreqHz <= 0 {
		return fmt.Errorf("mavlink: package %d: invalid frequency %d", pkg.Index, pkg.FreqHz)
	}
	for _, topic := range pkg.Topics {
		if _, ok := topicMessages[topic]; !ok {
			return fmt.Errorf("mavlink: topic %s: %w", topic, osdk.ErrNotSupported)
		}
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return osdk.ErrClosed
	}
	if _, ok := v.subs[pkg.Index]; ok {
		v.mu.Unlock()
		return osdk.ErrPackageInUse
	}
	runCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{pkg: pkg, cb: cb, cancel: cancel, done: make(chan struct{})}
	v.subs[pkg.Index] = sub
	v.mu.Unlock()

	for _, id := range streamsFor(pkg) {
		v.requestInterval(id, pkg.FreqHz)
	}

	v.wg.Add(1)
	go v.pushLoop(runCtx, sub)
	log.Printf("mavlink: package %d subscribed at %d Hz (%d topics)", pkg.Index, pkg.FreqHz, len(pkg.Topics))
	return nil
}

func (v *Vehicle) pushLoop(ctx context.Context, sub *subscription) {
	defer v.wg.Done()
	defer close(sub.done)
	ticker := time.NewTicker(time.Second / time.Duration(sub.pkg.FreqHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sub.cb(v.Snapshot())
		}
	}
}

// RemovePackage implements osdk.Telemetry. Once it returns, the package callback is
// not running and will not run again.
func (v *Vehicle) RemovePackage(ctx context.Context, index int) error {
	v.mu.Lock()
	sub, ok := v.subs[index]
	delete(v.subs, index)
	v.mu.Unlock()
	if !ok {
		return nil
	}
	sub.cancel()
	select {
	case <-sub.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Printf("mavlink: package %d removed", index)
	return nil
}

// SubscribeGimbalData implements osdk.Telemetry.
func (v *Vehicle) SubscribeGimbalData(ctx context.Context) error {
	v.mu.Lock()
	v.gimbalOn = true
	v.mu.Unlock()
	v.requestInterval((&common.MessageGimbalDeviceAttitudeStatus{}).GetID(), 10)
	return nil
}

// UnsubscribeGimbalData implements osdk.Telemetry.
func (v *Vehicle) UnsubscribeGimbalData(ctx context.Context) error {
	v.mu.Lock()
	v.gimbalOn = false
	v.mu.Unlock()
	v.requestInterval((&common.MessageGimbalDeviceAttitudeStatus{}).GetID(), 0)
	return nil
}

// SubscribeTimeSync implements osdk.TimeSync. SYSTEM_TIME drives the FC and GPS UTC
// callbacks; the NMEA topic needs a receiver on NMEAPort.
func (v *Vehicle) SubscribeTimeSync(ctx context.Context, h osdk.TimeSyncHandlers) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return osdk.ErrClosed
	}
	v.timeSync = h
	open := v.nmeaOpen
	if v.nmeaCancel != nil {
		v.nmeaCancel()
		v.nmeaCancel = nil
	}
	v.mu.Unlock()

	v.requestInterval((&common.MessageSystemTime{}).GetID(), 1)

	pps := osdk.PPSInternalGPS
	if open != nil {
		port, err := open()
		if err != nil {
			return fmt.Errorf("mavlink: nmea: %w", err)
		}
		runCtx, cancel := context.WithCancel(context.Background())
		v.mu.Lock()
		v.nmeaCancel = func() {
			cancel()
			port.Close()
		}
		v.mu.Unlock()

		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			if err := timesync.Run(runCtx, port, h); err != nil {
				log.Printf("mavlink: nmea reader stopped: %v", err)
			}
		}()
		pps = osdk.PPSExternalGPS
	}
	if h.PPSSource != nil {
		h.PPSSource(pps)
	}
	return nil
}

// SetMobileDataHandler implements osdk.TimeSync. Data arrives as TUNNEL messages from
// ground software.
func (v *Vehicle) SetMobileDataHandler(h func(data []byte)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mobile = h
}

// SetPayloadDataHandler implements osdk.TimeSync. Data arrives as TUNNEL messages from
// components of the autopilot's system.
func (v *Vehicle) SetPayloadDataHandler(h func(data []byte)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.payload = h
}

// FlightController implements osdk.Vehicle.
func (v *Vehicle) FlightController() osdk.FlightController { return (*flightController)(v) }

// Gimbal implements osdk.Vehicle.
func (v *Vehicle) Gimbal() osdk.Gimbal { return (*gimbal)(v) }

// Camera implements osdk.Vehicle.
func (v *Vehicle) Camera() osdk.Camera { return (*camera)(v) }

// MFIO implements osdk.Vehicle.
func (v *Vehicle) MFIO() osdk.MFIO { return (*mfio)(v) }

// Close stops all packages and the NMEA reader and closes the link.
func (v *Vehicle) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	for idx, sub := range v.subs {
		sub.cancel()
		delete(v.subs, idx)
	}
	if v.nmeaCancel != nil {
		v.nmeaCancel()
		v.nmeaCancel = nil
	}
	v.mu.Unlock()

	// closing the node ends the event channel and with it the listener
	if v.closeFn != nil {
		v.closeFn()
	}
	v.wg.Wait()
	return nil
}
