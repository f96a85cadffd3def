// Package gravity computes the forces particles exert on each other.
//
// Every pair of bodies interacts with magnitude G*m1*m2/(r²+softening²). Whether the force pulls
// the bodies together or pushes them apart depends on their charges: neutral bodies attract
// everything, opposite charges attract and like charges repel.
package gravity

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/gravityexperiment/gravsim/octree"
	"github.com/gravityexperiment/gravsim/particle"
)

// Body is a particle as seen by a force backend.
type Body struct {
	ID     particle.ID
	Pos    r3.Vector
	Mass   float64
	Charge particle.Charge
}

// BodiesFrom snapshots the particles.
func BodiesFrom(particles []*particle.Particle) []Body {
	bodies := make([]Body, 0, len(particles))
	for _, p := range particles {
		bodies = append(bodies, Body{ID: p.ID(), Pos: p.Pos, Mass: p.Mass, Charge: p.Charge})
	}
	return bodies
}

// A Backend computes the net force on every body. out must have the same length as bodies.
type Backend interface {
	Forces(ctx context.Context, bodies []Body, out []r3.Vector) error
}

// Backend names.
const (
	DirectBackend   = "direct"
	TreeBackendName = "tree"
)

// Config selects and tunes a force backend.
type Config struct {
	Backend   string  `json:"backend"`
	G         float64 `json:"g"`
	Softening float64 `json:"softening"`
	// Theta is the opening angle of the tree backend. Zero sums every pair exactly.
	Theta float64 `json:"theta"`
}

// DefaultConfig returns the default force config.
func DefaultConfig() Config {
	return Config{
		Backend:   DirectBackend,
		G:         1,
		Softening: 0.1,
		Theta:     0.5,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	switch cfg.Backend {
	case DirectBackend, TreeBackendName:
	case "":
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "backend"))
	default:
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("unknown backend %q, expected %q or %q", cfg.Backend, DirectBackend, TreeBackendName)))
	}
	if cfg.G < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("g cannot be negative")))
	}
	if cfg.Softening < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("softening cannot be negative")))
	}
	if cfg.Theta < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.New("theta cannot be negative")))
	}
	return err
}

// NewBackend returns the backend named by cfg. The tree backend reads cell membership from tree.
func NewBackend(cfg Config, tree *octree.Octree, logger golog.Logger) (Backend, error) {
	switch cfg.Backend {
	case DirectBackend:
		logger.Debugw("using direct sum forces", "g", cfg.G, "softening", cfg.Softening)
		return &DirectSum{G: cfg.G, Softening: cfg.Softening}, nil
	case TreeBackendName:
		if tree == nil {
			return nil, errors.New("tree backend requires an octree")
		}
		logger.Debugw("using octree forces", "g", cfg.G, "softening", cfg.Softening, "theta", cfg.Theta)
		return NewTreeBackend(tree, cfg.G, cfg.Softening, cfg.Theta), nil
	default:
		return nil, errors.Errorf("unknown force backend %q", cfg.Backend)
	}
}

// pairForce returns the force a mass at pos with the given charge exerts on b.
func pairForce(g, softening float64, b Body, pos r3.Vector, mass float64, charge particle.Charge) r3.Vector {
	delta := pos.Sub(b.Pos)
	r2 := delta.Norm2()
	if r2 == 0 {
		return r3.Vector{}
	}
	magnitude := g * b.Mass * mass / (r2 + softening*softening)
	dir := delta.Mul(1 / delta.Norm())
	switch {
	case b.Charge.Attracts(charge):
		return dir.Mul(magnitude)
	case b.Charge.Repels(charge):
		return dir.Mul(-magnitude)
	default:
		return r3.Vector{}
	}
}

func checkLengths(bodies []Body, out []r3.Vector) error {
	if len(out) != len(bodies) {
		return errors.Errorf("force buffer holds %d forces for %d bodies", len(out), len(bodies))
	}
	return nil
}
