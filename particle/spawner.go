package particle

import (
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// SpawnConfig describes how particles are scattered at the start of a run. Particles are spawned in
// Groups clusters whose centers lie within Radius of the origin; each cluster holds GroupParticles
// particles scattered within GroupRadius of its center.
type SpawnConfig struct {
	Groups         int     `json:"groups"`
	GroupParticles int     `json:"group_particles"`
	Radius         float64 `json:"radius"`
	GroupRadius    float64 `json:"group_radius"`
	Speed          float64 `json:"speed"`
	Mass           float64 `json:"mass"`
	NegativeRatio  float64 `json:"negative_ratio"`
	NeutralRatio   float64 `json:"neutral_ratio"`
	PositiveRatio  float64 `json:"positive_ratio"`
	Seed           int64   `json:"seed"`
}

// DefaultSpawnConfig returns the spawn settings of a single neutral-heavy cluster.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Groups:         1,
		GroupParticles: 100,
		Radius:         1,
		GroupRadius:    100,
		Mass:           100,
		NegativeRatio:  1,
		NeutralRatio:   1,
		PositiveRatio:  1,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *SpawnConfig) Validate(path string) error {
	var errs error
	if cfg.Groups < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("groups cannot be negative")))
	}
	if cfg.GroupParticles < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("group_particles cannot be negative")))
	}
	if cfg.Radius < 0 || cfg.GroupRadius < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("spawn radii cannot be negative")))
	}
	if cfg.Mass <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.Errorf("mass must be positive, got %v", cfg.Mass)))
	}
	if cfg.NegativeRatio < 0 || cfg.NeutralRatio < 0 || cfg.PositiveRatio < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("charge ratios cannot be negative")))
	} else if cfg.NegativeRatio+cfg.NeutralRatio+cfg.PositiveRatio == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path, errors.New("at least one charge ratio must be positive")))
	}
	return errs
}

// Spawner scatters particles into a Set according to a SpawnConfig.
type Spawner struct {
	cfg SpawnConfig
	rng *rand.Rand
}

// NewSpawner returns a spawner seeded from cfg.Seed so runs are reproducible.
func NewSpawner(cfg SpawnConfig) *Spawner {
	return &Spawner{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))} //nolint:gosec
}

// Spawn adds Groups*GroupParticles particles to the set and returns them.
func (sp *Spawner) Spawn(set *Set) []*Particle {
	spawned := make([]*Particle, 0, sp.cfg.Groups*sp.cfg.GroupParticles)
	for g := 0; g < sp.cfg.Groups; g++ {
		var groupCenter r3.Vector
		if sp.cfg.Groups > 1 {
			groupCenter = sp.insideUnitSphere().Mul(sp.cfg.Radius)
		}
		for i := 0; i < sp.cfg.GroupParticles; i++ {
			p := New(groupCenter.Add(sp.insideUnitSphere().Mul(sp.cfg.GroupRadius)), sp.cfg.Mass, sp.randomCharge())
			if sp.cfg.Speed > 0 {
				p.Vel = sp.randomDirection().Mul(sp.cfg.Speed)
			}
			set.Add(p)
			spawned = append(spawned, p)
		}
	}
	return spawned
}

func (sp *Spawner) randomCharge() Charge {
	total := sp.cfg.NegativeRatio + sp.cfg.NeutralRatio + sp.cfg.PositiveRatio
	negativeNeutral := sp.cfg.NegativeRatio / total
	neutralPositive := negativeNeutral + sp.cfg.NeutralRatio/total
	r := sp.rng.Float64()
	switch {
	case r < negativeNeutral:
		return Negative
	case r < neutralPositive:
		return Neutral
	default:
		return Positive
	}
}

// insideUnitSphere samples uniformly from the unit ball by rejection.
func (sp *Spawner) insideUnitSphere() r3.Vector {
	for {
		v := r3.Vector{
			X: 2*sp.rng.Float64() - 1,
			Y: 2*sp.rng.Float64() - 1,
			Z: 2*sp.rng.Float64() - 1,
		}
		if v.Norm2() <= 1 {
			return v
		}
	}
}

func (sp *Spawner) randomDirection() r3.Vector {
	for {
		v := sp.insideUnitSphere()
		if n := v.Norm(); n > 1e-9 {
			return v.Mul(1 / n)
		}
	}
}
