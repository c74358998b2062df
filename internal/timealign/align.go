// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package timealign maps the flight controller's 400 Hz hardware-sync tick counter
// onto the host clock.
package timealign

import (
	"log"
	"sync"
	"time"
)

const (
	// TickPeriod is the duration of one hardware-sync tick.
	TickPeriod = 2500 * time.Microsecond
	// MaxDrift is the largest |host - predicted| accepted as a stable sample.
	MaxDrift = 8 * time.Millisecond
	// StableSamples is how many consecutive stable samples complete the alignment.
	StableSamples = 400
)

// Status is the alignment state.
type Status int

const (
	Unaligned Status = iota
	Aligning
	Aligned
)

func (s Status) String() string {
	switch s {
	case Unaligned:
		return "unaligned"
	case Aligning:
		return "aligning"
	case Aligned:
		return "aligned"
	default:
		return "unknown"
	}
}

// Aligner estimates the host time of tick zero. Safe for concurrent use.
type Aligner struct {
	mu      sync.Mutex
	status  Status
	base    time.Time
	stable  int
	retries int
}

// New returns an unaligned Aligner.
func New() *Aligner {
	return &Aligner{}
}

func tickOffset(tick uint32) time.Duration {
	return time.Duration(tick) * TickPeriod
}

// Update feeds one (host time, tick) observation.
func (a *Aligner) Update(now time.Time, tick uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.status {
	case Unaligned:
		a.base = now.Add(-tickOffset(tick))
		a.status = Aligning
		a.stable = 0
		log.Println("timealign: starting time alignment")

	case Aligning:
		dt := now.Sub(a.base.Add(tickOffset(tick)))
		if dt < 0 {
			dt = -dt
		}
		if dt < MaxDrift {
			a.stable++
		} else {
			log.Printf("timealign: drift %v out of bound after %d samples, retry %d", dt, a.stable, a.retries)
			a.stable = 0
			a.base = now.Add(-tickOffset(tick))
			a.retries++
		}
		if a.stable > StableSamples {
			a.status = Aligned
			log.Printf("timealign: aligned (base=%s, retries=%d)", a.base.Format(time.RFC3339Nano), a.retries)
		}
	}
}

// Stamp returns the host time for tick once aligned, and now otherwise.
func (a *Aligner) Stamp(now time.Time, tick uint32) time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != Aligned {
		return now
	}
	return a.base.Add(tickOffset(tick))
}

// Status returns the current state.
func (a *Aligner) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Base returns the estimated host time of tick zero. Zero until alignment starts.
func (a *Aligner) Base() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.base
}

// Retries returns how many times the base was re-estimated.
func (a *Aligner) Retries() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retries
}
