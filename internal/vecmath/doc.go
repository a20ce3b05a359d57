// Package vecmath provides the rotation helpers shared by the control loop.
//
// Vectors and matrices are [mgl64.Vec3] and [mgl64.Mat3]. Conventions:
//
//   - right-handed frames, angles in radians
//   - matrices act on column vectors (R·v)
//   - [ToAxisAngle] returns an angle in [0, π] and a unit axis
//
// A degenerate axis (zero length) is never normalised; callers decide what
// to do with it, see [Normalize].
package vecmath
