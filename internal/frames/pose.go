package frames

import "math"

// Pose is the roll/pitch/yaw view of an attitude, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// EulerFromQuaternion decomposes q with the Z-Y-X convention:
//
//	roll  = atan2(2(wx + yz), 1 - 2(x² + y²))
//	pitch = asin(2(wy - zx))
//	yaw   = atan2(2(wz + xy), 1 - 2(y² + z²))
func EulerFromQuaternion(q Quaternion) Pose {
	q = q.Normalize()
	w, x, y, z := q.W, q.X, q.Y, q.Z

	rollRad := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	// clamp: rounding can push |sinp| slightly past 1 near ±90°
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitchRad := math.Asin(sinp)

	yawRad := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Pose{
		Roll:  Rad2Deg(rollRad),
		Pitch: Rad2Deg(pitchRad),
		Yaw:   Rad2Deg(yawRad),
	}
}

// QuaternionFromEuler builds a quaternion from roll/pitch/yaw in degrees (Z-Y-X).
func QuaternionFromEuler(p Pose) Quaternion {
	cr, sr := math.Cos(Deg2Rad(p.Roll)/2), math.Sin(Deg2Rad(p.Roll)/2)
	cp, sp := math.Cos(Deg2Rad(p.Pitch)/2), math.Sin(Deg2Rad(p.Pitch)/2)
	cy, sy := math.Cos(Deg2Rad(p.Yaw)/2), math.Sin(Deg2Rad(p.Yaw)/2)
	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}
