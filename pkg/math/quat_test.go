package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quatd{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)
	if math.Abs(length-1.0) > 1e-12 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Y axis
	q := QuatFromAxisAngle(Vec3d{X: 0, Y: 1, Z: 0}, math.Pi/2)

	expectedW := math.Cos(math.Pi / 4)
	expectedY := math.Sin(math.Pi / 4)

	if math.Abs(q.W-expectedW) > 1e-9 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math.Abs(q.Y-expectedY) > 1e-9 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatRotate(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3d
		angle float64
		in    Vec3d
		want  Vec3d
	}{
		{"identity", Vec3d{0, 1, 0}, 0, Vec3d{1, 2, 3}, Vec3d{1, 2, 3}},
		{"90 about Z", Vec3d{0, 0, 1}, math.Pi / 2, Vec3d{1, 0, 0}, Vec3d{0, 1, 0}},
		{"90 about Y", Vec3d{0, 1, 0}, math.Pi / 2, Vec3d{1, 0, 0}, Vec3d{0, 0, -1}},
		{"180 about X", Vec3d{1, 0, 0}, math.Pi, Vec3d{0, 1, 0}, Vec3d{0, -1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuatFromAxisAngle(tt.axis, tt.angle).Rotate(tt.in)
			if got.Distance(tt.want) > 1e-9 {
				t.Errorf("Rotate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuatConjugateUndoesRotation(t *testing.T) {
	q := QuatFromAxisAngle(Vec3d{1, 1, 0}.Normalize(), 1.234)
	v := Vec3d{6_371_000, -42, 17}

	back := q.Conjugate().Rotate(q.Rotate(v))
	if back.Distance(v) > 1e-6 {
		t.Errorf("conjugate rotation: got %v, want %v", back, v)
	}
}

func TestQuatMulComposes(t *testing.T) {
	a := QuatFromAxisAngle(Vec3d{0, 0, 1}, math.Pi/4)
	b := QuatFromAxisAngle(Vec3d{0, 0, 1}, math.Pi/4)
	v := Vec3d{1, 0, 0}

	got := a.Mul(b).Rotate(v)
	want := QuatFromAxisAngle(Vec3d{0, 0, 1}, math.Pi/2).Rotate(v)
	if got.Distance(want) > 1e-9 {
		t.Errorf("Mul: got %v, want %v", got, want)
	}
}
