package octree

import "github.com/golang/geo/r3"

// Octant names one of the eight children of a cell by the signs of its offset from the parent's
// center, with North along +Z, East along +X and Up along +Y. A child's index in its parent is its
// octant.
type Octant uint8

// The octants, in child order.
const (
	NEU Octant = iota
	NWU
	SEU
	SWU
	NED
	NWD
	SED
	SWD
)

// mergeOctant is the child that evaluates whether its siblings should merge.
const mergeOctant = NEU

const (
	axisX = iota
	axisY
	axisZ
)

// bit of the octant carrying the negative sign of each axis.
var axisBits = [3]Octant{axisX: 1, axisY: 4, axisZ: 2}

var octantNames = [8]string{"NEU", "NWU", "SEU", "SWU", "NED", "NWD", "SED", "SWD"}

// Offset returns the unit offset of the octant, each component being -1 or 1.
func (o Octant) Offset() r3.Vector {
	return r3.Vector{X: float64(o.sign(axisX)), Y: float64(o.sign(axisY)), Z: float64(o.sign(axisZ))}
}

func (o Octant) sign(axis int) int8 {
	if o&axisBits[axis] != 0 {
		return -1
	}
	return 1
}

func (o Octant) withSign(axis int, s int8) Octant {
	if s < 0 {
		return o | axisBits[axis]
	}
	return o &^ axisBits[axis]
}

func (o Octant) String() string {
	if int(o) < len(octantNames) {
		return octantNames[o]
	}
	return "invalid"
}
