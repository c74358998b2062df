// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim is a simulated vehicle: it pushes smoothly changing telemetry at the
// requested package rates and keeps enough state for the control calls to be visible.
package sim

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/osdk_bridge/internal/frames"
	"github.com/relabs-tech/osdk_bridge/internal/osdk"
	"github.com/relabs-tech/osdk_bridge/internal/timealign"
	"github.com/relabs-tech/osdk_bridge/internal/timesync"
)

// Home is where the simulated aircraft sits, in degrees and metres above sea level.
type Home struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// DefaultHome is Zürich airfield.
var DefaultHome = Home{Latitude: 47.397742, Longitude: 8.545594, Altitude: 488}

type mfioChannel struct {
	mode  osdk.MFIOMode
	value uint32
}

type subscription struct {
	pkg    osdk.Package
	cb     osdk.PackageCallback
	cancel context.CancelFunc
	done   chan struct{}
}

// Vehicle implements osdk.Vehicle.
type Vehicle struct {
	mu    sync.Mutex
	start time.Time
	now   func() time.Time
	wg    sync.WaitGroup

	home   Home
	offset frames.Vector3 // ENU metres from home

	motorsOn  bool
	inAir     bool
	goingHome bool
	goHomeAlt uint16
	avoid     bool

	gimbal           map[int]frames.Pose
	gimbalSubscribed bool
	mfio             map[uint8]*mfioChannel
	recording        map[int]bool

	subs     map[int]*subscription
	override func(s *osdk.Snapshot)
	failures map[string]error
	calls    []string

	timeSync   osdk.TimeSyncHandlers
	syncCancel context.CancelFunc
	mobile     func([]byte)
	payload    func([]byte)

	closed bool
}

var _ osdk.Vehicle = (*Vehicle)(nil)

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithHome places the aircraft.
func WithHome(h Home) Option {
	return func(v *Vehicle) { v.home = h }
}

// WithClock replaces time.Now, used by tests for deterministic snapshots.
func WithClock(now func() time.Time) Option {
	return func(v *Vehicle) { v.now = now }
}

// New returns a simulated vehicle on the ground with motors off.
func New(opts ...Option) *Vehicle {
	v := &Vehicle{
		now:       time.Now,
		home:      DefaultHome,
		goHomeAlt: 60,
		avoid:     true,
		gimbal:    make(map[int]frames.Pose),
		mfio:      make(map[uint8]*mfioChannel),
		recording: make(map[int]bool),
		subs:      make(map[int]*subscription),
		failures:  make(map[string]error),
	}
	for _, o := range opts {
		o(v)
	}
	v.start = v.now()
	return v
}

// FailNext makes every call named op return err until cleared with a nil err.
func (v *Vehicle) FailNext(op string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err == nil {
		delete(v.failures, op)
		return
	}
	v.failures[op] = err
}

// Override is applied to every snapshot after the simulated values are filled in.
func (v *Vehicle) Override(fn func(s *osdk.Snapshot)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.override = fn
}

// Calls returns the control calls received so far.
func (v *Vehicle) Calls() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.calls))
	copy(out, v.calls)
	return out
}

// call records op and returns the injected failure, if any. Caller holds mu.
func (v *Vehicle) call(op string, format string, args ...any) error {
	if v.closed {
		return osdk.ErrClosed
	}
	v.calls = append(v.calls, op+fmt.Sprintf(format, args...))
	if err, ok := v.failures[op]; ok {
		return err
	}
	return nil
}

// Snapshot builds the current simulated telemetry.
func (v *Vehicle) Snapshot() *osdk.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *Vehicle) snapshotLocked() *osdk.Snapshot {
	now := v.now()
	elapsed := now.Sub(v.start)
	t := elapsed.Seconds()

	pose := frames.Pose{
		Roll:  5 * math.Sin(t),
		Pitch: 3 * math.Cos(t*0.7),
		Yaw:   math.Mod(t*10, 360),
	}
	q := frames.QuaternionFromEuler(pose)
	quat := osdk.Quaternion{Q0: float32(q.W), Q1: float32(q.X), Q2: float32(q.Y), Q3: float32(q.Z)}

	// angular rates are the time derivatives of the poses above
	w := osdk.Vector3f{
		X: float32(frames.Deg2Rad(5 * math.Cos(t))),
		Y: float32(frames.Deg2Rad(-3 * 0.7 * math.Sin(t*0.7))),
		Z: float32(frames.Deg2Rad(10)),
	}

	height := v.offset.Z
	lat := v.home.Latitude + frames.Rad2Deg(v.offset.Y/frames.EarthRadius)
	lon := v.home.Longitude + frames.Rad2Deg(v.offset.X/(frames.EarthRadius*math.Cos(frames.Deg2Rad(v.home.Latitude))))
	alt := v.home.Altitude + height

	status := osdk.FlightStatusStopped
	switch {
	case v.inAir:
		status = osdk.FlightStatusInAir
	case v.motorsOn:
		status = osdk.FlightStatusOnGround
	}

	tick := uint32(elapsed / timealign.TickPeriod)
	var flag uint8
	if tick%400 == 0 {
		flag = 1
	}

	percentage := 100 - int(t/36)
	if percentage < 0 {
		percentage = 0
	}

	utc := now.UTC()
	g := v.gimbal[0]

	s := &osdk.Snapshot{
		Quaternion:          quat,
		AccelerationGround:  osdk.Vector3f{X: 0, Y: 0, Z: 0},
		AngularRateFusioned: w,
		Velocity:            osdk.Velocity{Health: 1},
		GPSFused: osdk.GPSFused{
			Latitude:               frames.Deg2Rad(lat),
			Longitude:              frames.Deg2Rad(lon),
			Altitude:               float32(alt),
			VisibleSatelliteNumber: 18,
		},
		GPSSignalLevel: 5,
		GPSDate:        uint32(utc.Year()*10000 + int(utc.Month())*100 + utc.Day()),
		GPSTime:        uint32(utc.Hour()*10000 + utc.Minute()*100 + utc.Second()),
		GPSPosition:    osdk.Vector3d{X: lon * 1e7, Y: lat * 1e7, Z: alt * 1000},
		GPSDetails: osdk.GPSDetails{
			HDOP: 0.7, PDOP: 1.2, FixState: 3,
			HAcc: 800, VAcc: 1200, SAcc: 40,
			GPSSatelliteCount: 11, GLNSatelliteCount: 7, UsedSatelliteCount: 18,
			GPSState: 1,
		},
		HeightFusion:      float32(height),
		StatusFlight:      status,
		StatusDisplayMode: 6,
		GimbalAngles:      osdk.Vector3f{X: float32(g.Pitch), Y: float32(g.Roll), Z: float32(g.Yaw)},
		RCWithFlagData: osdk.RCWithFlag{
			Mode: 8000,
			Gear: -10000,
			Flag: osdk.RCFlag{LogicConnected: true, SkyConnected: true, GroundConnected: true},
		},
		PositionVO: osdk.PositionVO{
			X: float32(v.offset.Y), Y: float32(v.offset.X), Z: float32(-height),
			XHealth: 1, YHealth: 1, ZHealth: 1,
		},
		BatteryInfo: osdk.BatteryInfo{
			Capacity:   4280,
			Voltage:    22800,
			Current:    1500,
			Percentage: uint8(percentage),
		},
		HardSync: osdk.HardSync{
			TS: osdk.SyncTimestamp{
				Time2p5ms: tick,
				Time1ns:   uint32(elapsed % timealign.TickPeriod),
				Flag:      flag,
			},
			Q: quat,
			A: osdk.Vector3f{X: 0, Y: 0, Z: -1},
			W: w,
		},
		RTKPosition:      osdk.RTKPosition{Latitude: lat, Longitude: lon, HFSL: float32(alt)},
		RTKYaw:           int16(pose.Yaw),
		RTKPositionInfo:  50,
		RTKYawInfo:       50,
		RTKConnectStatus: 1,
		Received:         now,
	}
	if v.override != nil {
		v.override(s)
	}
	return s
}

// SubscribePackage implements osdk.Telemetry.
func (v *Vehicle) SubscribePackage(ctx context.Context, pkg osdk.Package, cb osdk.PackageCallback) error {
	if pkg.FreqHz <= 0 {
		return fmt.Errorf("sim: package %d: invalid frequency %d", pkg.Index, pkg.FreqHz)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return osdk.ErrClosed
	}
	if _, ok := v.subs[pkg.Index]; ok {
		return osdk.ErrPackageInUse
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{pkg: pkg, cb: cb, cancel: cancel, done: make(chan struct{})}
	v.subs[pkg.Index] = sub

	v.wg.Add(1)
	go v.pushLoop(runCtx, sub)
	log.Printf("sim: package %d subscribed at %d Hz (%d topics)", pkg.Index, pkg.FreqHz, len(pkg.Topics))
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

// Emit pushes package index once, synchronously, regardless of its ticker.
func (v *Vehicle) Emit(index int) bool {
	v.mu.Lock()
	sub, ok := v.subs[index]
	var s *osdk.Snapshot
	if ok {
		s = v.snapshotLocked()
	}
	v.mu.Unlock()
	if !ok {
		return false
	}
	sub.cb(s)
	return true
}

// RemovePackage implements osdk.Telemetry. It returns once the push loop has stopped.
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
	log.Printf("sim: package %d removed", index)
	return nil
}

// Subscribed reports whether package index is active.
func (v *Vehicle) Subscribed(index int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.subs[index]
	return ok
}

// SubscribeGimbalData implements osdk.Telemetry.
func (v *Vehicle) SubscribeGimbalData(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("SubscribeGimbalData", ""); err != nil {
		return err
	}
	v.gimbalSubscribed = true
	return nil
}

// UnsubscribeGimbalData implements osdk.Telemetry.
func (v *Vehicle) UnsubscribeGimbalData(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.call("UnsubscribeGimbalData", ""); err != nil {
		return err
	}
	v.gimbalSubscribed = false
	return nil
}

// GimbalSubscribed reports whether gimbal data is enabled.
func (v *Vehicle) GimbalSubscribed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gimbalSubscribed
}

// SubscribeTimeSync implements osdk.TimeSync. The simulated receiver ticks at 1 Hz.
func (v *Vehicle) SubscribeTimeSync(ctx context.Context, h osdk.TimeSyncHandlers) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return osdk.ErrClosed
	}
	if v.syncCancel != nil {
		v.syncCancel()
	}
	v.timeSync = h
	runCtx, cancel := context.WithCancel(context.Background())
	v.syncCancel = cancel

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				v.EmitTimeSync()
			}
		}
	}()
	return nil
}

// EmitTimeSync pushes one round of time-sync callbacks, synchronously.
func (v *Vehicle) EmitTimeSync() {
	v.mu.Lock()
	h := v.timeSync
	s := v.snapshotLocked()
	v.mu.Unlock()

	now := s.Received
	fcUs := s.HardSync.TS.Time2p5ms * 2500
	lat := frames.Rad2Deg(s.GPSFused.Latitude)
	lon := frames.Rad2Deg(s.GPSFused.Longitude)

	if h.NMEA != nil {
		h.NMEA(timesync.FormatRMC(now, lat, lon, 0, 0), now)
	}
	if h.GPSUTCTime != nil {
		h.GPSUTCTime(timesync.FormatUTC(now), fcUs)
	}
	if h.FCTimeInUTC != nil {
		h.FCTimeInUTC(osdk.FCTimeInUTC{
			FCTimestampUs: fcUs,
			UTCHHMMSS:     s.GPSTime,
			UTCYYMMDD:     s.GPSDate % 1000000,
		})
	}
	if h.PPSSource != nil {
		h.PPSSource(osdk.PPSInternalGPS)
	}
}

// SetMobileDataHandler implements osdk.TimeSync.
func (v *Vehicle) SetMobileDataHandler(h func(data []byte)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mobile = h
}

// SetPayloadDataHandler implements osdk.TimeSync.
func (v *Vehicle) SetPayloadDataHandler(h func(data []byte)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.payload = h
}

// SendFromMobile delivers data as if the mobile SDK had sent it.
func (v *Vehicle) SendFromMobile(data []byte) {
	v.mu.Lock()
	h := v.mobile
	v.mu.Unlock()
	if h != nil {
		h(data)
	}
}

// SendFromPayload delivers data as if a payload had sent it.
func (v *Vehicle) SendFromPayload(data []byte) {
	v.mu.Lock()
	h := v.payload
	v.mu.Unlock()
	if h != nil {
		h(data)
	}
}

// FlightController implements osdk.Vehicle.
func (v *Vehicle) FlightController() osdk.FlightController { return (*flightController)(v) }

// Gimbal implements osdk.Vehicle.
func (v *Vehicle) Gimbal() osdk.Gimbal { return (*gimbal)(v) }

// Camera implements osdk.Vehicle.
func (v *Vehicle) Camera() osdk.Camera { return (*camera)(v) }

// MFIO implements osdk.Vehicle.
func (v *Vehicle) MFIO() osdk.MFIO { return (*mfio)(v) }

// Close stops every package and the time-sync stream.
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
	if v.syncCancel != nil {
		v.syncCancel()
	}
	v.mu.Unlock()

	v.wg.Wait()
	log.Println("sim: vehicle closed")
	return nil
}
