package octree

import (
	"github.com/golang/geo/r3"

	"github.com/gravityexperiment/gravsim/particle"
)

// inBounds reports whether pos lies in the closed cube of the cell.
func (o *Octree) inBounds(id CellID, pos r3.Vector) bool {
	c := &o.pool.cells[id]
	return pos.X >= c.center.X-c.radius && pos.X <= c.center.X+c.radius &&
		pos.Y >= c.center.Y-c.radius && pos.Y <= c.center.Y+c.radius &&
		pos.Z >= c.center.Z-c.radius && pos.Z <= c.center.Z+c.radius
}

// childContaining returns the first child, in octant order, containing pos.
func (o *Octree) childContaining(id CellID, pos r3.Vector) CellID {
	for _, child := range o.pool.cells[id].children {
		if o.inBounds(child, pos) {
			return child
		}
	}
	return NoCell
}

// redistribute moves a point held by cell from to the leaf containing its current position. The
// search climbs to the nearest ancestor containing the point, or the root, and descends from there.
// If some level has no child containing the point the move is abandoned, the point stays in from
// and false is returned.
func (o *Octree) redistribute(from CellID, id particle.ID) bool {
	pos := o.points[id].Position()
	if !o.pool.cells[from].hasChildren && o.inBounds(from, pos) {
		return true
	}

	target := from
	for o.pool.cells[target].parent != NoCell && !o.inBounds(target, pos) {
		target = o.pool.cells[target].parent
	}
	for o.pool.cells[target].hasChildren {
		next := o.childContaining(target, pos)
		if next == NoCell {
			o.failures++
			o.totalFailures++
			o.logger.Warnw("could not redistribute point",
				"point", id,
				"cell", target,
				"depth", o.pool.cells[target].depth,
				"position", pos,
			)
			return false
		}
		target = next
	}
	if target == from {
		return true
	}

	o.pool.cells[from].removePoint(id)
	o.pool.cells[target].points = append(o.pool.cells[target].points, id)
	o.index[id] = target
	return true
}

func (o *Octree) shouldSubdivide(id CellID) bool {
	c := &o.pool.cells[id]
	return !c.hasChildren && len(c.points) > o.cfg.MaxParticlesPerCell && c.depth+1 < o.cfg.MaxDepth
}

// subdivide gives the leaf eight children, hands its points down and subdivides any child that is
// still over capacity. Points no child accepts stay with the cell.
func (o *Octree) subdivide(id CellID) {
	center, radius, depth := o.pool.cells[id].center, o.pool.cells[id].radius, o.pool.cells[id].depth
	half := radius / 2

	var children [8]CellID
	for i := range children {
		oct := Octant(i)
		children[i] = o.pool.get(id, oct, center.Add(oct.Offset().Mul(half)), half, depth+1)
	}
	c := &o.pool.cells[id]
	c.children = children
	c.hasChildren = true
	o.version++

	for i := len(o.pool.cells[id].points) - 1; i >= 0; i-- {
		o.redistribute(id, o.pool.cells[id].points[i])
	}
	for _, child := range children {
		if o.shouldSubdivide(child) {
			o.subdivide(child)
		}
	}
}

// shouldMergeChildren reports whether the cell's children are all leaves holding, together with
// any points the cell could not hand down, no more points than a single cell may.
func (o *Octree) shouldMergeChildren(id CellID) bool {
	c := &o.pool.cells[id]
	if !c.active || !c.hasChildren {
		return false
	}
	total := len(c.points)
	for _, child := range c.children {
		cc := &o.pool.cells[child]
		if cc.hasChildren {
			return false
		}
		total += len(cc.points)
	}
	return total <= o.cfg.MaxParticlesPerCell
}

// mergeChildren absorbs the points of the cell's children and returns them to the pool.
func (o *Octree) mergeChildren(id CellID) {
	for _, child := range o.pool.cells[id].children {
		for _, pid := range o.pool.cells[child].points {
			o.pool.cells[id].points = append(o.pool.cells[id].points, pid)
			o.index[pid] = id
		}
		o.deallocate(child)
	}
	c := &o.pool.cells[id]
	c.children = noChildren
	c.hasChildren = false
	o.version++

	if o.cfg.CascadeMerge && c.parent != NoCell && o.shouldMergeChildren(c.parent) {
		o.mergeChildren(c.parent)
	}
}

// deallocate returns the subtree rooted at id to the pool, children first. Deallocating the root
// clears it in place.
func (o *Octree) deallocate(id CellID) {
	var order []CellID
	stack := []CellID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, cur)
		if c := &o.pool.cells[cur]; c.hasChildren {
			stack = append(stack, c.children[:]...)
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		o.pool.put(order[i])
	}
	o.version++
}

// valid reports whether id names a live cell.
func (o *Octree) valid(id CellID) bool {
	return id >= 0 && int(id) < len(o.pool.cells) && o.pool.cells[id].active
}
