package particle

import (
	"github.com/edaniels/golog"
	"github.com/samber/lo"
)

// Set owns the particles of a simulation. Adding or removing particles marks the set as changed;
// listeners registered with OnChange are notified on the next Flush so that a whole batch of
// membership changes results in a single notification.
type Set struct {
	logger    golog.Logger
	particles []*Particle
	byID      map[ID]int
	nextID    ID
	dirty     bool
	listeners []func()
}

// NewSet returns an empty set.
func NewSet(logger golog.Logger) *Set {
	return &Set{
		logger: logger,
		byID:   map[ID]int{},
	}
}

// Add assigns the next free ID to p and takes ownership of it.
func (s *Set) Add(p *Particle) ID {
	p.id = s.nextID
	s.nextID++
	s.byID[p.id] = len(s.particles)
	s.particles = append(s.particles, p)
	s.dirty = true
	return p.id
}

// Remove drops the particle with the given ID. It returns false if no such particle exists.
func (s *Set) Remove(id ID) bool {
	idx, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	s.particles = append(s.particles[:idx], s.particles[idx+1:]...)
	for i := idx; i < len(s.particles); i++ {
		s.byID[s.particles[i].id] = i
	}
	s.dirty = true
	return true
}

// Clear removes every particle.
func (s *Set) Clear() {
	if len(s.particles) == 0 {
		return
	}
	s.particles = nil
	s.byID = map[ID]int{}
	s.dirty = true
}

// Get returns the particle with the given ID.
func (s *Set) Get(id ID) (*Particle, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.particles[idx], true
}

// Len returns the number of particles in the set.
func (s *Set) Len() int {
	return len(s.particles)
}

// Particles returns the particles in insertion order. The slice is a copy but the particles are not.
func (s *Set) Particles() []*Particle {
	return append([]*Particle(nil), s.particles...)
}

// Points returns the particles as points in insertion order.
func (s *Set) Points() []Point {
	return lo.Map(s.particles, func(p *Particle, _ int) Point {
		return p
	})
}

// OnChange registers fn to be called whenever Flush observes membership changes.
func (s *Set) OnChange(fn func()) {
	s.listeners = append(s.listeners, fn)
}

// Dirty reports whether membership changed since the last Flush.
func (s *Set) Dirty() bool {
	return s.dirty
}

// Flush notifies listeners if membership changed since the last call and reports whether it did.
func (s *Set) Flush() bool {
	if !s.dirty {
		return false
	}
	s.dirty = false
	s.logger.Debugw("particle set changed", "size", len(s.particles), "listeners", len(s.listeners))
	for _, fn := range s.listeners {
		fn()
	}
	return true
}
