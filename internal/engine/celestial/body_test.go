package celestial

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/quadsphere/pkg/math"
)

func TestLocalToAbsoluteRoundTrip(t *testing.T) {
	b := NewBody("test", 6_371_000, math.Vec3d{X: 1.496e11, Y: -3e9, Z: 42})
	b.Tilt = math.QuatFromAxisAngle(math.Vec3d{Z: 1}, 23.4*gomath.Pi/180)
	b.Rotate(1.1)

	local := math.Vec3d{X: 6_371_000, Y: 12.5, Z: -3}
	back := b.AbsoluteToLocal(b.LocalToAbsolute(local))
	// Absolute coordinates are ~1.5e11, so a few tens of micrometres of
	// error are expected from float64.
	if back.Distance(local) > 1e-3 {
		t.Errorf("round trip: got %v, want %v", back, local)
	}
}

func TestSurfacePointAltitude(t *testing.T) {
	b := NewBody("test", 1000, math.Vec3d{X: 10, Y: 20, Z: 30})
	p := b.SurfacePoint(math.Vec3d{X: 1, Y: 1}, 50)
	if d := p.Distance(b.Position); gomath.Abs(d-1050) > 1e-9 {
		t.Errorf("distance from center = %v, want 1050", d)
	}
}

func TestRotateWraps(t *testing.T) {
	b := NewBody("test", 1, math.Vec3d{})
	b.Rotate(3 * gomath.Pi)
	if gomath.Abs(b.Spin-gomath.Pi) > 1e-12 {
		t.Errorf("Spin = %v, want pi", b.Spin)
	}
}
