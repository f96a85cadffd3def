// Package octree implements an adaptive octree over moving particles. Dense regions are subdivided
// and sparse ones merged as the particles move, so neighborhood and density queries stay cheap.
//
// Cells live in an arena owned by the Octree and are addressed by CellID handles. A leaf holds the
// IDs of the particles inside it; the Octree keeps the reverse index from particle to leaf. The
// tree is driven one Tick at a time: bounds are recomputed around the particle cloud, particles
// that left their cell are redistributed, and a single resize pass subdivides overloaded leaves
// and merges sparse sibling groups.
//
// An Octree is not safe for concurrent use, with the exception of Stats.
package octree

import (
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gravityexperiment/gravsim/particle"
)

// CellID is a handle to a cell in an Octree's arena. Handles of deallocated cells may be reused.
type CellID int32

// NoCell is the CellID used when there is no cell, e.g. the parent of the root.
const NoCell = CellID(-1)

const rootID = CellID(0)

// boundsEpsilon pads the bounding radius so that the farthest point stays inside the root cube
// under floating point rounding.
const boundsEpsilon = 1e-9

// Octree is an adaptive octree over externally owned points.
type Octree struct {
	logger golog.Logger
	cfg    Config

	pool   pool
	points map[particle.ID]particle.Point
	order  []particle.Point
	index  map[particle.ID]CellID

	center r3.Vector
	radius float64

	// version changes whenever the tree structure does.
	version   uint64
	neighbors neighborCache

	failures      int
	totalFailures int

	statsMu sync.RWMutex
	stats   Stats
}

// New returns an empty octree. An invalid config is logged and replaced by DefaultConfig.
func New(cfg Config, logger golog.Logger) *Octree {
	if err := cfg.Validate("octree"); err != nil {
		logger.Warnw("invalid octree config, falling back to defaults", "error", err)
		cfg = DefaultConfig()
	}
	o := &Octree{
		logger: logger,
		cfg:    cfg,
		pool:   newPool(),
		points: map[particle.ID]particle.Point{},
		index:  map[particle.ID]CellID{},
	}
	o.gatherStats()
	return o
}

// Reseed rebuilds the tree for a new set of points. It is meant to be called whenever membership
// of the point set changes; motion alone is handled by Tick. Every point starts in the root and the
// next resize pass rebuilds the structure. Duplicate IDs are rejected and leave the tree untouched.
func (o *Octree) Reseed(points []particle.Point) error {
	byID := make(map[particle.ID]particle.Point, len(points))
	for _, p := range points {
		if _, ok := byID[p.ID()]; ok {
			return errors.Errorf("duplicate point id %d", p.ID())
		}
		byID[p.ID()] = p
	}

	o.deallocate(rootID)
	o.points = byID
	o.order = append([]particle.Point(nil), points...)
	o.index = make(map[particle.ID]CellID, len(points))
	root := &o.pool.cells[rootID]
	for _, p := range points {
		root.points = append(root.points, p.ID())
		o.index[p.ID()] = rootID
	}
	o.version++
	o.logger.Debugw("reseeded octree", "points", len(points), "pooled", len(o.pool.free))
	return nil
}

// Tick runs one full pass: recompute the bounds around the points, propagate them to every cell,
// redistribute points that moved out of their cell, run one resize pass and refresh Stats.
func (o *Octree) Tick() {
	o.failures = 0
	o.updateBounds()
	o.recalculateBounds()
	o.redistributeAll()
	o.Resize()
	o.gatherStats()
}

// Resize runs a single subdivide-or-merge evaluation over the whole tree. Subdivisions cascade
// down immediately; a merge re-checks the grandparent when Config.CascadeMerge is set.
func (o *Octree) Resize() {
	o.resize(rootID)
}

func (o *Octree) resize(id CellID) {
	if o.pool.cells[id].hasChildren {
		for i := 0; i < 8; i++ {
			// an earlier child may have merged this cell away
			c := &o.pool.cells[id]
			if !c.active || !c.hasChildren {
				return
			}
			o.resize(c.children[i])
		}
		return
	}

	if o.shouldSubdivide(id) {
		o.subdivide(id)
		return
	}
	c := &o.pool.cells[id]
	if c.parent != NoCell && c.octant == mergeOctant && o.shouldMergeChildren(c.parent) {
		o.mergeChildren(c.parent)
	}
}

// updateBounds centers the root on the centroid of the points with a radius reaching the
// farthest one. With no points the previous bounds are kept.
func (o *Octree) updateBounds() {
	if len(o.order) == 0 {
		return
	}
	var sum r3.Vector
	for _, p := range o.order {
		sum = sum.Add(p.Position())
	}
	center := sum.Mul(1 / float64(len(o.order)))

	var radius float64
	for _, p := range o.order {
		radius = math.Max(radius, p.Position().Sub(center).Norm())
	}
	o.center = center
	o.radius = radius*(1+boundsEpsilon) + boundsEpsilon
}

// recalculateBounds pushes the root bounds down the tree, keeping every octant at half its
// parent's radius.
func (o *Octree) recalculateBounds() {
	root := &o.pool.cells[rootID]
	root.center = o.center
	root.radius = o.radius

	stack := []CellID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := &o.pool.cells[id]
		if !c.hasChildren {
			continue
		}
		half := c.radius / 2
		for oct, child := range c.children {
			cc := &o.pool.cells[child]
			cc.center = c.center.Add(Octant(oct).Offset().Mul(half))
			cc.radius = half
			stack = append(stack, child)
		}
	}
}

// redistributeAll relocates every point that is no longer inside its cell. Points that land in a
// cell visited later are re-checked there, which is a no-op.
func (o *Octree) redistributeAll() {
	var holders []CellID
	o.walkIDs(func(id CellID) {
		if len(o.pool.cells[id].points) > 0 {
			holders = append(holders, id)
		}
	})
	for _, id := range holders {
		for i := len(o.pool.cells[id].points) - 1; i >= 0; i-- {
			o.redistribute(id, o.pool.cells[id].points[i])
		}
	}
	if o.failures > 0 {
		o.logger.Debugw("redistribution incomplete, retrying next tick", "failures", o.failures)
	}
}

// Bounds returns the center and half-width of the root cell.
func (o *Octree) Bounds() (r3.Vector, float64) {
	return o.center, o.radius
}

// Root returns the root cell.
func (o *Octree) Root() CellID {
	return rootID
}

// Len returns the number of points indexed by the tree.
func (o *Octree) Len() int {
	return len(o.order)
}

// Version changes every time the structure of the tree changes.
func (o *Octree) Version() uint64 {
	return o.version
}

// Point returns the point with the given ID.
func (o *Octree) Point(id particle.ID) (particle.Point, bool) {
	p, ok := o.points[id]
	return p, ok
}

// Lookup returns the cell currently holding the point. It is authoritative right after Tick.
func (o *Octree) Lookup(id particle.ID) (CellID, bool) {
	cell, ok := o.index[id]
	return cell, ok
}

// PointsIn returns a copy of the IDs held directly by the cell.
func (o *Octree) PointsIn(id CellID) []particle.ID {
	if !o.valid(id) {
		return nil
	}
	return append([]particle.ID(nil), o.pool.cells[id].points...)
}

// LeafAt returns the leaf whose bounds contain pos, resolving shared faces by octant order.
func (o *Octree) LeafAt(pos r3.Vector) (CellID, bool) {
	if !o.inBounds(rootID, pos) {
		return NoCell, false
	}
	id := rootID
	for o.pool.cells[id].hasChildren {
		next := o.childContaining(id, pos)
		if next == NoCell {
			return NoCell, false
		}
		id = next
	}
	return id, true
}
