package octree

import (
	"github.com/golang/geo/r3"

	"github.com/gravityexperiment/gravsim/particle"
)

var noChildren = [8]CellID{NoCell, NoCell, NoCell, NoCell, NoCell, NoCell, NoCell, NoCell}

// cell is a cube in the arena. Only leaves hold points once the tree has settled; an interior
// cell keeps the points it could not hand to a child until a later tick succeeds.
type cell struct {
	center r3.Vector
	radius float64
	depth  int

	parent      CellID
	octant      Octant
	children    [8]CellID
	hasChildren bool

	points []particle.ID
	active bool
}

// reset clears the cell for reuse, keeping the capacity of its point list.
func (c *cell) reset() {
	*c = cell{
		points:   c.points[:0],
		parent:   NoCell,
		children: noChildren,
	}
}

func (c *cell) removePoint(id particle.ID) bool {
	for i, held := range c.points {
		if held == id {
			last := len(c.points) - 1
			c.points[i] = c.points[last]
			c.points = c.points[:last]
			return true
		}
	}
	return false
}

// pool is the cell arena. Slot 0 is the root and is never handed out or returned. Freed slots
// are kept on a free list and reinitialized when handed out again.
type pool struct {
	cells []cell
	free  []CellID
}

func newPool() pool {
	p := pool{cells: make([]cell, 1)}
	p.cells[rootID].reset()
	p.cells[rootID].active = true
	return p
}

// get hands out an initialized cell. It may grow the arena, so pointers into it must not be held
// across a call.
func (p *pool) get(parent CellID, oct Octant, center r3.Vector, radius float64, depth int) CellID {
	var id CellID
	if n := len(p.free); n > 0 {
		id = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		id = CellID(len(p.cells))
		p.cells = append(p.cells, cell{})
	}
	c := &p.cells[id]
	c.reset()
	c.active = true
	c.parent = parent
	c.octant = oct
	c.center = center
	c.radius = radius
	c.depth = depth
	return id
}

// put returns a cell to the free list. The root is only cleared.
func (p *pool) put(id CellID) {
	c := &p.cells[id]
	if id == rootID {
		center, radius := c.center, c.radius
		c.reset()
		c.active = true
		c.center, c.radius = center, radius
		return
	}
	c.reset()
	p.free = append(p.free, id)
}

// allocated is the number of cells currently in use.
func (p *pool) allocated() int {
	return len(p.cells) - len(p.free)
}
