// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frames

import "math"

const (
	// EarthRadius is the equatorial radius used for the flat-earth local frame, in metres.
	EarthRadius = 6378137.0
	// Pi is kept at the precision the flight controller uses.
	Pi = 3.141592653589793
)

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * (Pi / 180.0)
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / Pi
}

// GPSToENU returns the east/north offset in metres of the target point from the
// reference point. All coordinates are in decimal degrees.
//
// Uses a flat-earth approximation around the target latitude:
//
//	y = Δlat · R
//	x = Δlon · R · cos(lat_t)
//
// Good for the few kilometres a local frame is used over.
func GPSToENU(targetLon, targetLat, refLon, refLat float64) (x, y float64) {
	dLon := targetLon - refLon
	dLat := targetLat - refLat
	y = Deg2Rad(dLat) * EarthRadius
	x = Deg2Rad(dLon) * EarthRadius * math.Cos(Deg2Rad(targetLat))
	return x, y
}
