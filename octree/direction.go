package octree

import (
	"strings"

	"github.com/golang/geo/r3"
)

// Direction is a step toward one of the 26 cells surrounding a cell: a face (one non-zero
// component), an edge (two) or a vertex (three). North is +Z, East is +X and Up is +Y.
type Direction struct {
	X, Y, Z int8
}

// The cardinal directions.
var (
	North = Direction{Z: 1}
	South = Direction{Z: -1}
	East  = Direction{X: 1}
	West  = Direction{X: -1}
	Up    = Direction{Y: 1}
	Down  = Direction{Y: -1}
)

var (
	// Cardinals are the six face directions.
	Cardinals = []Direction{North, East, South, West, Up, Down}
	// Edges are the twelve edge directions.
	Edges = []Direction{
		North.Add(Up), East.Add(Up), South.Add(Up), West.Add(Up),
		North.Add(Down), East.Add(Down), South.Add(Down), West.Add(Down),
		North.Add(East), North.Add(West), South.Add(East), South.Add(West),
	}
	// Vertices are the eight vertex directions, in octant order.
	Vertices = []Direction{
		North.Add(East).Add(Up), North.Add(West).Add(Up), South.Add(East).Add(Up), South.Add(West).Add(Up),
		North.Add(East).Add(Down), North.Add(West).Add(Down), South.Add(East).Add(Down), South.Add(West).Add(Down),
	}
)

// AllDirections returns the 26 neighbor directions: cardinals, then edges, then vertices.
func AllDirections() []Direction {
	all := make([]Direction, 0, len(Cardinals)+len(Edges)+len(Vertices))
	all = append(all, Cardinals...)
	all = append(all, Edges...)
	return append(all, Vertices...)
}

// Add combines two directions component-wise.
func (d Direction) Add(other Direction) Direction {
	return Direction{X: d.X + other.X, Y: d.Y + other.Y, Z: d.Z + other.Z}
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return Direction{X: -d.X, Y: -d.Y, Z: -d.Z}
}

// Valid reports whether the direction is non-zero with every component in {-1, 0, 1}.
func (d Direction) Valid() bool {
	for _, s := range d.components() {
		if s < -1 || s > 1 {
			return false
		}
	}
	return d != Direction{}
}

func (d Direction) isCardinal() bool {
	var axes int
	for _, s := range d.components() {
		if s != 0 {
			axes++
		}
	}
	return axes == 1
}

// Vector returns the direction as a vector.
func (d Direction) Vector() r3.Vector {
	return r3.Vector{X: float64(d.X), Y: float64(d.Y), Z: float64(d.Z)}
}

func (d Direction) components() [3]int8 {
	return [3]int8{axisX: d.X, axisY: d.Y, axisZ: d.Z}
}

func (d Direction) String() string {
	var sb strings.Builder
	switch d.Z {
	case 1:
		sb.WriteByte('N')
	case -1:
		sb.WriteByte('S')
	}
	switch d.X {
	case 1:
		sb.WriteByte('E')
	case -1:
		sb.WriteByte('W')
	}
	switch d.Y {
	case 1:
		sb.WriteByte('U')
	case -1:
		sb.WriteByte('D')
	}
	if sb.Len() == 0 {
		return "none"
	}
	return sb.String()
}
