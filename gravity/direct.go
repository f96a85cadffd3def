package gravity

import (
	"context"

	"github.com/golang/geo/r3"

	"github.com/gravityexperiment/gravsim/utils"
)

// DirectSum sums the force of every pair of bodies.
type DirectSum struct {
	G         float64
	Softening float64
}

// Forces implements Backend.
func (ds *DirectSum) Forces(ctx context.Context, bodies []Body, out []r3.Vector) error {
	if err := checkLengths(bodies, out); err != nil {
		return err
	}
	return utils.GroupWorkParallel(
		ctx,
		len(bodies),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				b := bodies[workNum]
				var force r3.Vector
				for j, other := range bodies {
					if j == workNum {
						continue
					}
					force = force.Add(pairForce(ds.G, ds.Softening, b, other.Pos, other.Mass, other.Charge))
				}
				out[workNum] = force
			}, nil
		},
	)
}
