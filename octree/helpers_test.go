package octree

import (
	"math/rand"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gravityexperiment/gravsim/particle"
)

type testPoint struct {
	id  particle.ID
	pos r3.Vector
}

func (p *testPoint) ID() particle.ID {
	return p.id
}

func (p *testPoint) Position() r3.Vector {
	return p.pos
}

func makePoints(positions ...r3.Vector) []*testPoint {
	pts := make([]*testPoint, 0, len(positions))
	for i, pos := range positions {
		pts = append(pts, &testPoint{id: particle.ID(i + 1), pos: pos})
	}
	return pts
}

func randomPoints(rng *rand.Rand, n int, spread float64) []*testPoint {
	positions := make([]r3.Vector, 0, n)
	for i := 0; i < n; i++ {
		positions = append(positions, r3.Vector{
			X: (rng.Float64()*2 - 1) * spread,
			Y: (rng.Float64()*2 - 1) * spread,
			Z: (rng.Float64()*2 - 1) * spread,
		})
	}
	return makePoints(positions...)
}

func asPoints(pts []*testPoint) []particle.Point {
	out := make([]particle.Point, 0, len(pts))
	for _, p := range pts {
		out = append(out, p)
	}
	return out
}

func seededTree(t *testing.T, cfg Config, pts []*testPoint) *Octree {
	t.Helper()
	o := New(cfg, golog.NewTestLogger(t))
	test.That(t, o.Reseed(asPoints(pts)), test.ShouldBeNil)
	o.Tick()
	return o
}

// validateOctree checks the structure of the tree and that every point is indexed by exactly one
// leaf whose bounds contain it.
func validateOctree(t *testing.T, o *Octree, pts []*testPoint) {
	t.Helper()
	held := map[particle.ID]CellID{}
	o.Walk(func(info CellInfo) bool {
		c := &o.pool.cells[info.ID]
		test.That(t, c.active, test.ShouldBeTrue)
		if info.ID == rootID {
			test.That(t, info.Parent, test.ShouldEqual, NoCell)
			test.That(t, info.Depth, test.ShouldEqual, 0)
		} else {
			parent := &o.pool.cells[info.Parent]
			test.That(t, parent.children[info.Octant], test.ShouldEqual, info.ID)
			test.That(t, info.Depth, test.ShouldEqual, parent.depth+1)
			test.That(t, info.Radius, test.ShouldAlmostEqual, parent.radius/2)
			expected := parent.center.Add(info.Octant.Offset().Mul(parent.radius / 2))
			test.That(t, info.Center.Sub(expected).Norm(), test.ShouldBeLessThan, 1e-9)
		}
		if !info.Leaf {
			test.That(t, info.PointCount, test.ShouldEqual, 0)
		}
		for _, id := range c.points {
			_, dup := held[id]
			test.That(t, dup, test.ShouldBeFalse)
			held[id] = info.ID
			cell, ok := o.Lookup(id)
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, cell, test.ShouldEqual, info.ID)
		}
		return true
	})
	test.That(t, len(held), test.ShouldEqual, len(pts))
	for _, p := range pts {
		cell, ok := held[p.id]
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, o.inBounds(cell, p.pos), test.ShouldBeTrue)
	}
}
