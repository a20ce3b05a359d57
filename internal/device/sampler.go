package device

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Sampler reads one Pose per cycle and maps the handle position into the
// world workspace.
type Sampler struct {
	// WorkspaceScale multiplies device-frame positions to get world
	// positions.
	WorkspaceScale float64
}

// NewSampler scales the device workspace so its radius maps to
// worldRadius.
func NewSampler(specs Specs, worldRadius float64) *Sampler {
	scale := 1.0
	if specs.WorkspaceRadius > 0 && worldRadius > 0 {
		scale = worldRadius / specs.WorkspaceRadius
	}
	return &Sampler{WorkspaceScale: scale}
}

// Sample reads the device. On error the returned Pose is zero and must not
// be used; the error wraps ErrUnavailable.
func (s *Sampler) Sample(dev Device) (Pose, error) {
	if p, ok := dev.(Poller); ok {
		if err := p.Poll(); err != nil {
			return Pose{}, wrap("poll", err)
		}
	}

	rot, err := dev.Rotation()
	if err != nil {
		return Pose{}, wrap("rotation", err)
	}
	vel, err := dev.AngularVelocity()
	if err != nil {
		return Pose{}, wrap("angular velocity", err)
	}
	pos, err := dev.Position()
	if err != nil {
		return Pose{}, wrap("position", err)
	}

	return Pose{
		Rotation:        rot,
		AngularVelocity: vel,
		Position:        pos,
		Proxy:           s.ToWorld(pos),
	}, nil
}

// ToWorld maps a device-frame position into the world workspace.
func (s *Sampler) ToWorld(p mgl64.Vec3) mgl64.Vec3 {
	return p.Mul(s.WorkspaceScale)
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
