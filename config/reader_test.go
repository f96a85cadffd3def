package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/gravityexperiment/gravsim/gravity"
	"github.com/gravityexperiment/gravsim/octree"
)

func TestFromReader(t *testing.T) {
	logger := golog.NewTestLogger(t)

	t.Run("empty config is the default", func(t *testing.T) {
		cfg, err := FromReader("", strings.NewReader("{}"), logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, *cfg, test.ShouldResemble, Default())
	})

	t.Run("partial sections keep defaults", func(t *testing.T) {
		cfg, err := FromReader("partial.json", strings.NewReader(`{
			"octree": {"max_particles_per_cell": 8, "cascade_merge": false},
			"physics": {"backend": "tree", "theta": 0.7},
			"simulation": {"ticks": 12}
		}`), logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "partial.json")
		test.That(t, cfg.Octree.MaxParticlesPerCell, test.ShouldEqual, 8)
		test.That(t, cfg.Octree.CascadeMerge, test.ShouldBeFalse)
		test.That(t, cfg.Octree.MaxDepth, test.ShouldEqual, octree.DefaultConfig().MaxDepth)
		test.That(t, cfg.Physics.Backend, test.ShouldEqual, gravity.TreeBackendName)
		test.That(t, cfg.Physics.Theta, test.ShouldEqual, 0.7)
		test.That(t, cfg.Physics.G, test.ShouldEqual, gravity.DefaultConfig().G)
		test.That(t, cfg.Simulation.Ticks, test.ShouldEqual, 12)
		test.That(t, cfg.Simulation.TimeStep, test.ShouldEqual, Default().Simulation.TimeStep)
	})

	t.Run("every invalid section is reported", func(t *testing.T) {
		_, err := FromReader("", strings.NewReader(`{
			"octree": {"max_particles_per_cell": 0},
			"spawn": {"mass": -1},
			"physics": {"backend": "gpu"},
			"simulation": {"time_step": 0}
		}`), logger)
		test.That(t, err, test.ShouldNotBeNil)
		for _, path := range []string{`"octree"`, `"spawn"`, `"physics"`, `"simulation"`} {
			test.That(t, err.Error(), test.ShouldContainSubstring, path)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := FromReader("", strings.NewReader(`{"octree": [}`), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode Config from json")
	})
}

func TestRead(t *testing.T) {
	logger := golog.NewTestLogger(t)
	t.Setenv("GRAVSIM_TEST_BACKEND", "tree")
	t.Setenv("GRAVSIM_TEST_PARTICLES", "250")

	path := filepath.Join(t.TempDir(), "sim.json")
	contents := `{
		"spawn": {"group_particles": ${GRAVSIM_TEST_PARTICLES}, "seed": 3},
		"physics": {"backend": "${GRAVSIM_TEST_BACKEND}"}
	}`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Spawn.GroupParticles, test.ShouldEqual, 250)
	test.That(t, cfg.Spawn.Seed, test.ShouldEqual, int64(3))
	test.That(t, cfg.Physics.Backend, test.ShouldEqual, gravity.TreeBackendName)

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
