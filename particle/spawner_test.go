package particle

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestSpawnConfigValidate(t *testing.T) {
	cfg := DefaultSpawnConfig()
	test.That(t, cfg.Validate("spawn"), test.ShouldBeNil)

	cfg.Mass = 0
	cfg.Groups = -1
	err := cfg.Validate("spawn")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "mass must be positive")
	test.That(t, err.Error(), test.ShouldContainSubstring, "groups cannot be negative")

	cfg = DefaultSpawnConfig()
	cfg.NegativeRatio, cfg.NeutralRatio, cfg.PositiveRatio = 0, 0, 0
	err = cfg.Validate("spawn")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one charge ratio")
}

func TestSpawner(t *testing.T) {
	cfg := DefaultSpawnConfig()
	cfg.Groups = 3
	cfg.GroupParticles = 50
	cfg.Radius = 1000
	cfg.GroupRadius = 10
	cfg.Speed = 2
	cfg.Seed = 42

	set := NewSet(golog.NewTestLogger(t))
	spawned := NewSpawner(cfg).Spawn(set)
	test.That(t, spawned, test.ShouldHaveLength, 150)
	test.That(t, set.Len(), test.ShouldEqual, 150)

	charges := map[Charge]int{}
	for i, p := range spawned {
		test.That(t, p.ID(), test.ShouldEqual, ID(i))
		test.That(t, p.Mass, test.ShouldEqual, cfg.Mass)
		test.That(t, p.Vel.Norm(), test.ShouldAlmostEqual, cfg.Speed)
		test.That(t, p.Pos.Norm(), test.ShouldBeLessThanOrEqualTo, cfg.Radius+cfg.GroupRadius)
		charges[p.Charge]++
	}
	test.That(t, charges[Negative], test.ShouldBeGreaterThan, 0)
	test.That(t, charges[Neutral], test.ShouldBeGreaterThan, 0)
	test.That(t, charges[Positive], test.ShouldBeGreaterThan, 0)

	// particles of a group stay within GroupRadius of each other's center
	for g := 0; g < cfg.Groups; g++ {
		group := spawned[g*cfg.GroupParticles : (g+1)*cfg.GroupParticles]
		for _, p := range group[1:] {
			test.That(t, p.Pos.Distance(group[0].Pos), test.ShouldBeLessThanOrEqualTo, 2*cfg.GroupRadius)
		}
	}

	t.Run("same seed same particles", func(t *testing.T) {
		again := NewSpawner(cfg).Spawn(NewSet(golog.NewTestLogger(t)))
		for i := range again {
			test.That(t, again[i].Pos, test.ShouldResemble, spawned[i].Pos)
			test.That(t, again[i].Charge, test.ShouldEqual, spawned[i].Charge)
		}
	})

	t.Run("only neutral", func(t *testing.T) {
		cfg := DefaultSpawnConfig()
		cfg.NegativeRatio, cfg.PositiveRatio = 0, 0
		for _, p := range NewSpawner(cfg).Spawn(NewSet(golog.NewTestLogger(t))) {
			test.That(t, p.Charge, test.ShouldEqual, Neutral)
			test.That(t, p.Vel.Norm(), test.ShouldEqual, 0.0)
		}
	})
}
