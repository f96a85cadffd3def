package octree

import "github.com/golang/geo/r3"

// CellInfo is a read-only view of a cell.
type CellInfo struct {
	ID         CellID
	Parent     CellID
	Octant     Octant
	Center     r3.Vector
	Radius     float64
	Depth      int
	Leaf       bool
	PointCount int
}

// Box is an axis aligned cube to draw for a cell.
type Box struct {
	Center     r3.Vector
	HalfWidth  float64
	Depth      int
	PointCount int
}

// Cell returns a view of the cell, or false if id is not a live cell.
func (o *Octree) Cell(id CellID) (CellInfo, bool) {
	if !o.valid(id) {
		return CellInfo{}, false
	}
	return o.info(id), true
}

// Children returns the children of the cell in octant order, or false for a leaf.
func (o *Octree) Children(id CellID) ([8]CellID, bool) {
	if !o.valid(id) || !o.pool.cells[id].hasChildren {
		return noChildren, false
	}
	return o.pool.cells[id].children, true
}

func (o *Octree) info(id CellID) CellInfo {
	c := &o.pool.cells[id]
	return CellInfo{
		ID:         id,
		Parent:     c.parent,
		Octant:     c.octant,
		Center:     c.center,
		Radius:     c.radius,
		Depth:      c.depth,
		Leaf:       !c.hasChildren,
		PointCount: len(c.points),
	}
}

// Walk visits every cell in preorder, children in octant order, until fn returns false. fn must
// not modify the tree.
func (o *Octree) Walk(fn func(CellInfo) bool) {
	stack := []CellID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(o.info(id)) {
			return
		}
		if c := &o.pool.cells[id]; c.hasChildren {
			for i := len(c.children) - 1; i >= 0; i-- {
				stack = append(stack, c.children[i])
			}
		}
	}
}

func (o *Octree) walkIDs(fn func(CellID)) {
	o.Walk(func(info CellInfo) bool {
		fn(info.ID)
		return true
	})
}

// Cells returns every cell in preorder.
func (o *Octree) Cells() []CellInfo {
	cells := make([]CellInfo, 0, o.pool.allocated())
	o.Walk(func(info CellInfo) bool {
		cells = append(cells, info)
		return true
	})
	return cells
}

// Leaves returns every leaf in preorder.
func (o *Octree) Leaves() []CellInfo {
	var leaves []CellInfo
	o.Walk(func(info CellInfo) bool {
		if info.Leaf {
			leaves = append(leaves, info)
		}
		return true
	})
	return leaves
}

// Boxes returns the cells holding at least VisibilityThreshold points, or every cell when
// ForceShowAllCells is set.
func (o *Octree) Boxes() []Box {
	var boxes []Box
	o.Walk(func(info CellInfo) bool {
		if o.cfg.ForceShowAllCells || info.PointCount >= o.cfg.VisibilityThreshold {
			boxes = append(boxes, Box{
				Center:     info.Center,
				HalfWidth:  info.Radius,
				Depth:      info.Depth,
				PointCount: info.PointCount,
			})
		}
		return true
	})
	return boxes
}
