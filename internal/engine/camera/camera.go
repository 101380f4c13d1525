// Package camera provides the tracked viewpoints that drive terrain detail.
package camera

import (
	gomath "math"

	"github.com/Faultbox/quadsphere/pkg/math"
)

// Body is the part of a celestial body a camera needs.
type Body interface {
	Radius() float64
	SurfacePoint(dir math.Vec3d, altitude float64) math.Vec3d
}

// OrbitCamera orbits a body at a given altitude above its surface.
type OrbitCamera struct {
	body Body

	// Spherical coordinates in the body frame
	Latitude  float64 // radians, positive towards +Y
	Longitude float64 // radians, measured from +Z towards +X
	Altitude  float64 // above the surface

	// Constraints
	MinAltitude float64
	MaxAltitude float64

	// Sensitivity
	DragSensitivity float64
}

// NewOrbitCamera creates an orbit camera with default settings.
func NewOrbitCamera(body Body) *OrbitCamera {
	r := body.Radius()
	return &OrbitCamera{
		body:            body,
		Altitude:        r,
		MinAltitude:     1,
		MaxAltitude:     r * 10,
		DragSensitivity: 0.005,
	}
}

// Direction returns the body-local unit direction of the camera.
func (c *OrbitCamera) Direction() math.Vec3d {
	cosLat := gomath.Cos(c.Latitude)
	return math.Vec3d{
		X: cosLat * gomath.Sin(c.Longitude),
		Y: gomath.Sin(c.Latitude),
		Z: cosLat * gomath.Cos(c.Longitude),
	}
}

// Position returns the camera position in the absolute frame.
func (c *OrbitCamera) Position() math.Vec3d {
	return c.body.SurfacePoint(c.Direction(), c.Altitude)
}

// HandleDrag moves the camera across the surface.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float64) {
	c.Longitude = gomath.Mod(c.Longitude+deltaX*c.DragSensitivity, 2*gomath.Pi)
	c.Latitude += deltaY * c.DragSensitivity

	// Clamp short of the poles
	const limit = gomath.Pi/2 - 1e-6
	if c.Latitude < -limit {
		c.Latitude = -limit
	}
	if c.Latitude > limit {
		c.Latitude = limit
	}
}

// SetAltitude sets the altitude, respecting the constraints.
func (c *OrbitCamera) SetAltitude(alt float64) {
	c.Altitude = alt
	c.clampAltitude()
}

func (c *OrbitCamera) clampAltitude() {
	if c.Altitude < c.MinAltitude {
		c.Altitude = c.MinAltitude
	}
	if c.Altitude > c.MaxAltitude {
		c.Altitude = c.MaxAltitude
	}
}

// DescentPath flies an orbit camera from a start altitude down to an end
// altitude over a fixed number of ticks, advancing longitude as it goes.
type DescentPath struct {
	Camera *OrbitCamera

	StartAltitude float64
	EndAltitude   float64
	Ticks         int
	OrbitSpeed    float64 // radians of longitude per tick

	tick int
}

// NewDescentPath creates a descent for cam. The camera is placed at the start altitude.
func NewDescentPath(cam *OrbitCamera, start, end float64, ticks int, orbitSpeed float64) *DescentPath {
	p := &DescentPath{
		Camera:        cam,
		StartAltitude: start,
		EndAltitude:   end,
		Ticks:         ticks,
		OrbitSpeed:    orbitSpeed,
	}
	cam.SetAltitude(start)
	return p
}

// Tick returns how many steps have been taken.
func (p *DescentPath) Tick() int {
	return p.tick
}

// Done reports whether the end altitude has been reached.
func (p *DescentPath) Done() bool {
	return p.tick >= p.Ticks
}

// Step advances the path by one tick and returns the new camera position.
// Altitude is interpolated geometrically so the approach slows near the surface.
func (p *DescentPath) Step() math.Vec3d {
	if p.tick < p.Ticks {
		p.tick++
	}

	t := 1.0
	if p.Ticks > 0 {
		t = float64(p.tick) / float64(p.Ticks)
	}

	var alt float64
	if p.StartAltitude > 0 && p.EndAltitude > 0 {
		alt = p.StartAltitude * gomath.Pow(p.EndAltitude/p.StartAltitude, t)
	} else {
		alt = p.StartAltitude + t*(p.EndAltitude-p.StartAltitude)
	}

	p.Camera.SetAltitude(alt)
	p.Camera.HandleDrag(p.OrbitSpeed/p.Camera.DragSensitivity, 0)
	return p.Camera.Position()
}
