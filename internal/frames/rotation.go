// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frames

import "math"

// Vector3 is a plain 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a unit rotation quaternion, scalar first.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Matrix3 is a row-major 3x3 rotation matrix.
type Matrix3 [3][3]float64

var (
	// RFLU2FRD rotates body Forward-Left-Up into body Forward-Right-Down.
	RFLU2FRD = Matrix3{
		{1, 0, 0},
		{0, -1, 0},
		{0, 0, -1},
	}
	// RENU2NED rotates ground East-North-Up into ground North-East-Down.
	RENU2NED = Matrix3{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, -1},
	}
)

// Identity returns the identity matrix.
func Identity() Matrix3 {
	return Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m·o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j] + m[i][2]*o[2][j]
		}
	}
	return r
}

// Transpose returns mᵀ, which is also the inverse of a rotation matrix.
func (m Matrix3) Transpose() Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Apply returns m·v.
func (m Matrix3) Apply(v Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Matrix returns the rotation matrix for q. q is normalized first.
func (q Quaternion) Matrix() Matrix3 {
	q = q.Normalize()
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Matrix3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// Normalize returns q scaled to unit length. The zero quaternion maps to identity.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Quaternion extracts the rotation of m as a quaternion with W >= 0.
func (m Matrix3) Quaternion() Quaternion {
	var q Quaternion
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1.0) * 2
		q = Quaternion{
			W: 0.25 * s,
			X: (m[2][1] - m[1][2]) / s,
			Y: (m[0][2] - m[2][0]) / s,
			Z: (m[1][0] - m[0][1]) / s,
		}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := math.Sqrt(1.0+m[0][0]-m[1][1]-m[2][2]) * 2
		q = Quaternion{
			W: (m[2][1] - m[1][2]) / s,
			X: 0.25 * s,
			Y: (m[0][1] + m[1][0]) / s,
			Z: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] > m[2][2]:
		s := math.Sqrt(1.0+m[1][1]-m[0][0]-m[2][2]) * 2
		q = Quaternion{
			W: (m[0][2] - m[2][0]) / s,
			X: (m[0][1] + m[1][0]) / s,
			Y: 0.25 * s,
			Z: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := math.Sqrt(1.0+m[2][2]-m[0][0]-m[1][1]) * 2
		q = Quaternion{
			W: (m[1][0] - m[0][1]) / s,
			X: (m[0][2] + m[2][0]) / s,
			Y: (m[1][2] + m[2][1]) / s,
			Z: 0.25 * s,
		}
	}
	if q.W < 0 {
		q = Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	return q.Normalize()
}

// AttitudeFLU2ENU converts the flight controller attitude (body FRD relative to
// ground NED) into body FLU relative to ground ENU:
//
//	R_FLU2ENU = R_ENU2NEDᵀ · R_FRD2NED · R_FLU2FRD
func AttitudeFLU2ENU(qFRD2NED Quaternion) Quaternion {
	r := RENU2NED.Transpose().Mul(qFRD2NED.Matrix()).Mul(RFLU2FRD)
	return r.Quaternion()
}

// FRDToFLU flips the body Y and Z axes.
func FRDToFLU(v Vector3) Vector3 {
	return Vector3{X: v.X, Y: -v.Y, Z: -v.Z}
}

// NEUToENU swaps the horizontal ground axes.
func NEUToENU(v Vector3) Vector3 {
	return Vector3{X: v.Y, Y: v.X, Z: v.Z}
}
