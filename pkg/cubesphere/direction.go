package cubesphere

import "github.com/Faultbox/quadsphere/pkg/math"

// Direction is one of the four cardinal directions within a cube face.
type Direction int

// Cardinal directions in face-local coordinates.
const (
	East  Direction = iota // +X
	West                   // -X
	North                  // +Y
	South                  // -Y
)

// Directions lists every direction in index order.
var Directions = [4]Direction{East, West, North, South}

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case West:
		return "west"
	case North:
		return "north"
	case South:
		return "south"
	}
	return "invalid"
}

// Vector returns the unit vector pointing in direction d.
func (d Direction) Vector() math.Vec2d {
	switch d {
	case East:
		return math.Vec2d{X: 1}
	case West:
		return math.Vec2d{X: -1}
	case North:
		return math.Vec2d{Y: 1}
	default:
		return math.Vec2d{Y: -1}
	}
}

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	switch d {
	case East:
		return West
	case West:
		return East
	case North:
		return South
	default:
		return North
	}
}
