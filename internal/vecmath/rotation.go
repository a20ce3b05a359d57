package vecmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// axisEpsilon is the length below which an axis is treated as degenerate.
const axisEpsilon = 1e-12

var (
	Zero  = mgl64.Vec3{}
	UnitX = mgl64.Vec3{1, 0, 0}
	UnitZ = mgl64.Vec3{0, 0, 1}
)

// Normalize returns v/|v| and true, or v unchanged and false when v is
// degenerate.
func Normalize(v mgl64.Vec3) (mgl64.Vec3, bool) {
	l := v.Len()
	if l <= axisEpsilon || math.IsNaN(l) {
		return v, false
	}
	return v.Mul(1 / l), true
}

// AxisAngle builds the rotation of angle radians about axis (Rodrigues).
// The axis need not be unit length. A degenerate axis yields the identity.
func AxisAngle(axis mgl64.Vec3, angle float64) mgl64.Mat3 {
	k, ok := Normalize(axis)
	if !ok || angle == 0 {
		return mgl64.Ident3()
	}
	x, y, z := k[0], k[1], k[2]
	s, c := math.Sincos(angle)
	t := 1 - c

	return mgl64.Mat3FromRows(
		mgl64.Vec3{c + x*x*t, x*y*t - z*s, x*z*t + y*s},
		mgl64.Vec3{y*x*t + z*s, c + y*y*t, y*z*t - x*s},
		mgl64.Vec3{z*x*t - y*s, z*y*t + x*s, c + z*z*t},
	)
}

// ToAxisAngle decomposes a rotation matrix. The angle is in [0, π]; for the
// identity the axis is +X.
func ToAxisAngle(m mgl64.Mat3) (mgl64.Vec3, float64) {
	v := mgl64.Vec3{
		m.At(2, 1) - m.At(1, 2),
		m.At(0, 2) - m.At(2, 0),
		m.At(1, 0) - m.At(0, 1),
	}
	s := v.Len() // 2 sin(angle)
	c := clamp((m.Trace()-1)/2, -1, 1)
	angle := math.Atan2(s/2, c)

	if s <= 1e-9 && c > 0 {
		return UnitX, 0
	}

	// Near π the antisymmetric part vanishes; recover the axis from the
	// symmetric part (1-c)·k·kᵀ instead.
	if c < -0.9 {
		axis := symmetricAxis(m, c)
		if axis.Dot(v) < 0 {
			axis = axis.Mul(-1)
		}
		return axis, angle
	}

	return v.Mul(1 / s), angle
}

func symmetricAxis(m mgl64.Mat3, c float64) mgl64.Vec3 {
	best, bestDiag := 0, math.Inf(-1)
	for i := 0; i < 3; i++ {
		if d := m.At(i, i) - c; d > bestDiag {
			best, bestDiag = i, d
		}
	}

	var col mgl64.Vec3
	for r := 0; r < 3; r++ {
		sym := 0.5 * (m.At(r, best) + m.At(best, r))
		if r == best {
			sym -= c
		}
		col[r] = sym
	}
	if k, ok := Normalize(col); ok {
		return k
	}
	return UnitX
}

// Orthonormalize re-projects m onto the nearest right-handed orthonormal
// basis (Gram-Schmidt on columns). It keeps long compositions of incremental
// rotations from drifting off SO(3).
func Orthonormalize(m mgl64.Mat3) mgl64.Mat3 {
	c0 := m.Col(0)
	c1 := m.Col(1)

	c0, ok := Normalize(c0)
	if !ok {
		return mgl64.Ident3()
	}
	c1 = c1.Sub(c0.Mul(c0.Dot(c1)))
	c1, ok = Normalize(c1)
	if !ok {
		return mgl64.Ident3()
	}
	return mgl64.Mat3FromCols(c0, c1, c0.Cross(c1))
}

// IsRotation reports whether m is orthonormal with determinant +1. Every
// entry of mᵀm must lie within tol of the identity; the comparison is
// absolute, so NaN entries fail.
func IsRotation(m mgl64.Mat3, tol float64) bool {
	p := m.Transpose().Mul3(m)
	id := mgl64.Ident3()
	for i := range p {
		if !(math.Abs(p[i]-id[i]) <= tol) {
			return false
		}
	}
	return math.Abs(m.Det()-1) <= tol
}

// ClampLength scales v down so its length does not exceed max.
func ClampLength(v mgl64.Vec3, max float64) mgl64.Vec3 {
	if max <= 0 {
		return v
	}
	if l := v.Len(); l > max {
		return v.Mul(max / l)
	}
	return v
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
