package gravity

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gravityexperiment/gravsim/octree"
	"github.com/gravityexperiment/gravsim/particle"
	"github.com/gravityexperiment/gravsim/utils"
)

const numCharges = 3

func chargeIndex(c particle.Charge) int {
	return int(c) + 1
}

func chargeAt(idx int) particle.Charge {
	return particle.Charge(idx - 1)
}

// aggregate is the total mass and mass weighted position of a group of bodies.
type aggregate struct {
	mass     float64
	weighted r3.Vector
}

func (a *aggregate) add(mass float64, weighted r3.Vector) {
	a.mass += mass
	a.weighted = a.weighted.Add(weighted)
}

func (a aggregate) centerOfMass() r3.Vector {
	return a.weighted.Mul(1 / a.mass)
}

type treeNode struct {
	center   r3.Vector
	radius   float64
	children []int
	bodies   []int

	classes [numCharges]aggregate
	total   aggregate
}

func (n *treeNode) contains(pos r3.Vector) bool {
	return pos.X >= n.center.X-n.radius && pos.X <= n.center.X+n.radius &&
		pos.Y >= n.center.Y-n.radius && pos.Y <= n.center.Y+n.radius &&
		pos.Z >= n.center.Z-n.radius && pos.Z <= n.center.Z+n.radius
}

// TreeBackend approximates the force of distant cells of an octree by the mass of each charge
// class in the cell, placed at that class's center of mass. A cell of width w at distance d from
// a body is approximated when w/d < Theta; leaves and cells containing the body are always summed
// exactly, so a Theta of zero reproduces DirectSum.
//
// The octree must index exactly the bodies passed to Forces, keyed by Body.ID.
type TreeBackend struct {
	tree      *octree.Octree
	G         float64
	Softening float64
	Theta     float64
}

// NewTreeBackend returns a backend reading cell membership from tree.
func NewTreeBackend(tree *octree.Octree, g, softening, theta float64) *TreeBackend {
	return &TreeBackend{tree: tree, G: g, Softening: softening, Theta: theta}
}

// Forces implements Backend.
func (tb *TreeBackend) Forces(ctx context.Context, bodies []Body, out []r3.Vector) error {
	if err := checkLengths(bodies, out); err != nil {
		return err
	}
	nodes, err := tb.snapshot(bodies)
	if err != nil {
		return err
	}
	return utils.GroupWorkParallel(
		ctx,
		len(bodies),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			stack := make([]int, 0, 64)
			return func(memberNum, workNum int) {
				out[workNum] = tb.force(nodes, bodies, workNum, &stack)
			}, nil
		},
	)
}

// snapshot copies the tree into nodes in preorder and aggregates their masses bottom up, so that
// force evaluation can run concurrently without touching the octree.
func (tb *TreeBackend) snapshot(bodies []Body) ([]treeNode, error) {
	byID := make(map[particle.ID]int, len(bodies))
	for i, b := range bodies {
		byID[b.ID] = i
	}

	cells := tb.tree.Cells()
	index := make(map[octree.CellID]int, len(cells))
	nodes := make([]treeNode, len(cells))
	var held int
	for i, info := range cells {
		index[info.ID] = i
		nodes[i].center = info.Center
		nodes[i].radius = info.Radius
		if info.Parent != octree.NoCell {
			parent := index[info.Parent]
			nodes[parent].children = append(nodes[parent].children, i)
		}
		for _, id := range tb.tree.PointsIn(info.ID) {
			bodyIdx, ok := byID[id]
			if !ok {
				return nil, errors.Errorf("octree holds point %d which is not a body", id)
			}
			nodes[i].bodies = append(nodes[i].bodies, bodyIdx)
			held++
		}
	}
	if held != len(bodies) {
		return nil, errors.Errorf("octree indexes %d of %d bodies, it must be reseeded after membership changes", held, len(bodies))
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		for _, bodyIdx := range n.bodies {
			b := bodies[bodyIdx]
			n.classes[chargeIndex(b.Charge)].add(b.Mass, b.Pos.Mul(b.Mass))
		}
		for _, child := range n.children {
			for k, agg := range nodes[child].classes {
				n.classes[k].add(agg.mass, agg.weighted)
			}
		}
		for _, agg := range n.classes {
			n.total.add(agg.mass, agg.weighted)
		}
	}
	return nodes, nil
}

// opens reports whether a node must be summed body by body rather than approximated.
func (tb *TreeBackend) opens(n *treeNode, pos r3.Vector) bool {
	if len(n.children) == 0 || n.contains(pos) {
		return true
	}
	d := pos.Distance(n.total.centerOfMass())
	if d == 0 {
		return true
	}
	return 2*n.radius/d >= tb.Theta
}

func (tb *TreeBackend) force(nodes []treeNode, bodies []Body, idx int, stack *[]int) r3.Vector {
	b := bodies[idx]
	var force r3.Vector
	*stack = append((*stack)[:0], 0)
	for len(*stack) > 0 {
		top := len(*stack) - 1
		n := &nodes[(*stack)[top]]
		*stack = (*stack)[:top]
		if n.total.mass == 0 {
			continue
		}
		if !tb.opens(n, b.Pos) {
			for k, agg := range n.classes {
				if agg.mass == 0 {
					continue
				}
				force = force.Add(pairForce(tb.G, tb.Softening, b, agg.centerOfMass(), agg.mass, chargeAt(k)))
			}
			continue
		}
		for _, other := range n.bodies {
			if other == idx {
				continue
			}
			o := bodies[other]
			force = force.Add(pairForce(tb.G, tb.Softening, b, o.Pos, o.Mass, o.Charge))
		}
		*stack = append(*stack, n.children...)
	}
	return force
}
