// Package particle defines the particles moved by the simulation and the set that owns them.
//
// Spatial indexes only ever see a particle through the Point interface: a stable identity and
// a readable position. Everything else (mass, charge, velocity) is consumed by force backends
// and integrators.
package particle

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// ID is the stable identity of a particle. IDs are never reused within a Set.
type ID uint64

// Point is a particle as seen by a spatial index.
type Point interface {
	// ID returns the stable identity of the point.
	ID() ID

	// Position returns the current position of the point.
	Position() r3.Vector
}

// Charge is the sign of a particle's charge.
type Charge int8

// The possible charges of a particle.
const (
	Negative = Charge(-1)
	Neutral  = Charge(0)
	Positive = Charge(1)
)

// String returns a human readable name for the charge.
func (c Charge) String() string {
	switch c {
	case Negative:
		return "negative"
	case Neutral:
		return "neutral"
	case Positive:
		return "positive"
	}
	return fmt.Sprintf("charge(%d)", int8(c))
}

// Attracts reports whether a particle with charge c is pulled toward a particle with charge other.
// Neutral particles attract everything and opposite charges attract.
func (c Charge) Attracts(other Charge) bool {
	switch c {
	case Neutral:
		return true
	case Negative:
		return other != Negative
	case Positive:
		return other != Positive
	}
	return false
}

// Repels reports whether a particle with charge c is pushed away from a particle with charge other.
func (c Charge) Repels(other Charge) bool {
	if c == Neutral {
		return false
	}
	return c == other
}

// Particle is a point mass with a charge and a velocity.
type Particle struct {
	id ID

	Pos    r3.Vector
	Vel    r3.Vector
	Mass   float64
	Charge Charge
}

// New returns a particle that has not yet been added to a Set. Its ID is assigned by Set.Add.
func New(pos r3.Vector, mass float64, charge Charge) *Particle {
	return &Particle{Pos: pos, Mass: mass, Charge: charge}
}

// ID returns the identity assigned to the particle by its Set.
func (p *Particle) ID() ID {
	return p.id
}

// Position returns the particle's current position.
func (p *Particle) Position() r3.Vector {
	return p.Pos
}

// String returns a short description of the particle.
func (p *Particle) String() string {
	return fmt.Sprintf("particle %d at (%.3f, %.3f, %.3f) mass %.3f %v", p.id, p.Pos.X, p.Pos.Y, p.Pos.Z, p.Mass, p.Charge)
}
