// Package sim drives a simulation: it keeps the octree in step with the particle set, computes
// forces, integrates motion and ticks the octree once per step.
package sim

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gravityexperiment/gravsim/config"
	"github.com/gravityexperiment/gravsim/gravity"
	"github.com/gravityexperiment/gravsim/metrics"
	"github.com/gravityexperiment/gravsim/octree"
	"github.com/gravityexperiment/gravsim/particle"
)

// Simulation advances a particle set through time.
type Simulation struct {
	logger  golog.Logger
	cfg     config.Simulation
	set     *particle.Set
	tree    *octree.Octree
	backend gravity.Backend
	metrics *metrics.Registry

	steps  int
	forces []r3.Vector
}

// New returns a simulation over set. The octree is built on the first step.
func New(cfg config.Config, set *particle.Set, logger golog.Logger) (*Simulation, error) {
	if err := cfg.Ensure(); err != nil {
		return nil, err
	}
	tree := octree.New(cfg.Octree, logger.Named("octree"))
	backend, err := gravity.NewBackend(cfg.Physics, tree, logger)
	if err != nil {
		return nil, err
	}
	return &Simulation{
		logger:  logger,
		cfg:     cfg.Simulation,
		set:     set,
		tree:    tree,
		backend: backend,
		metrics: metrics.NewRegistry(tree),
	}, nil
}

// Step advances the simulation by one time step.
func (s *Simulation) Step(ctx context.Context) error {
	start := time.Now()
	if s.set.Flush() {
		if err := s.tree.Reseed(s.set.Points()); err != nil {
			return errors.Wrap(err, "failed to reseed octree")
		}
		s.metrics.ObserveReseed()
	}

	particles := s.set.Particles()
	bodies := gravity.BodiesFrom(particles)
	if cap(s.forces) < len(bodies) {
		s.forces = make([]r3.Vector, len(bodies))
	}
	forces := s.forces[:len(bodies)]
	forcesStart := time.Now()
	if err := s.backend.Forces(ctx, bodies, forces); err != nil {
		return errors.Wrapf(err, "failed to compute forces at step %d", s.steps)
	}
	forcesTime := time.Since(forcesStart)

	dt := s.cfg.TimeStep
	for i, p := range particles {
		if p.Mass > 0 {
			p.Vel = p.Vel.Add(forces[i].Mul(dt / p.Mass))
		}
		p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	}
	s.tree.Tick()
	s.steps++
	s.metrics.ObserveStep(time.Since(start), forcesTime)

	if s.cfg.StatsInterval > 0 && s.steps%s.cfg.StatsInterval == 0 {
		stats := s.tree.Stats()
		s.logger.Infow("octree stats",
			"step", s.steps,
			"cells", stats.CellCount,
			"leaves", stats.LeafCount,
			"depth", stats.Depth,
			"overfull", stats.OverfullLeaves,
			"failures", stats.RedistributionFailures,
		)
	}
	return nil
}

// Run takes the given number of steps, stopping early if ctx is done.
func (s *Simulation) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Steps returns the number of completed steps.
func (s *Simulation) Steps() int {
	return s.steps
}

// Tree returns the octree indexing the particles.
func (s *Simulation) Tree() *octree.Octree {
	return s.tree
}

// Set returns the simulated particles.
func (s *Simulation) Set() *particle.Set {
	return s.set
}

// Metrics returns the registry the simulation reports to.
func (s *Simulation) Metrics() *metrics.Registry {
	return s.metrics
}
