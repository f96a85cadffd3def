package octree

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
)

// Stats summarizes the tree after a tick.
type Stats struct {
	CellCount         int
	CellCountAtDepth  []int
	PointCount        int
	PointCountAtDepth []int
	LeafCount         int
	// Depth is the depth of the deepest cell.
	Depth int
	// OverfullLeaves counts leaves over capacity that cannot subdivide because of MaxDepth.
	OverfullLeaves int

	RedistributionFailures      int
	TotalRedistributionFailures int

	PooledCells    int
	AllocatedCells int

	MeanLeafOccupancy   float64
	LeafOccupancyStdDev float64
}

// Stats returns the statistics gathered by the last tick. It is safe to call concurrently with
// the tree being modified.
func (o *Octree) Stats() Stats {
	o.statsMu.RLock()
	defer o.statsMu.RUnlock()
	s := o.stats
	s.CellCountAtDepth = append([]int(nil), s.CellCountAtDepth...)
	s.PointCountAtDepth = append([]int(nil), s.PointCountAtDepth...)
	return s
}

func (o *Octree) gatherStats() {
	var (
		s         Stats
		occupancy stats.Float64Data
	)
	o.Walk(func(info CellInfo) bool {
		for len(s.CellCountAtDepth) <= info.Depth {
			s.CellCountAtDepth = append(s.CellCountAtDepth, 0)
			s.PointCountAtDepth = append(s.PointCountAtDepth, 0)
		}
		s.CellCount++
		s.CellCountAtDepth[info.Depth]++
		s.PointCount += info.PointCount
		s.PointCountAtDepth[info.Depth] += info.PointCount
		if info.Depth > s.Depth {
			s.Depth = info.Depth
		}
		if info.Leaf {
			s.LeafCount++
			occupancy = append(occupancy, float64(info.PointCount))
			if info.PointCount > o.cfg.MaxParticlesPerCell {
				s.OverfullLeaves++
			}
		}
		return true
	})
	s.RedistributionFailures = o.failures
	s.TotalRedistributionFailures = o.totalFailures
	s.PooledCells = len(o.pool.free)
	s.AllocatedCells = o.pool.allocated()

	var err error
	if s.MeanLeafOccupancy, err = occupancy.Mean(); err != nil {
		o.logger.Debugw("cannot compute leaf occupancy", "error", err)
	}
	if s.LeafOccupancyStdDev, err = occupancy.StandardDeviation(); err != nil {
		o.logger.Debugw("cannot compute leaf occupancy deviation", "error", err)
	}
	if s.OverfullLeaves > 0 {
		o.logger.Debugw("leaves over capacity at max depth", "leaves", s.OverfullLeaves, "max_depth", o.cfg.MaxDepth)
	}

	o.statsMu.Lock()
	o.stats = s
	o.statsMu.Unlock()
}

// Table renders the per-depth cell and point counts.
func (s Stats) Table() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Depth", "Cells", "Points"})
	for depth, cells := range s.CellCountAtDepth {
		t.AppendRow(table.Row{depth, cells, s.PointCountAtDepth[depth]})
	}
	t.AppendFooter(table.Row{"Total", s.CellCount, s.PointCount})
	return t.Render()
}
