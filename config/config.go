// Package config defines the configuration of a simulation run.
package config

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/gravityexperiment/gravsim/gravity"
	"github.com/gravityexperiment/gravsim/octree"
	"github.com/gravityexperiment/gravsim/particle"
)

// A Config describes the configuration of a simulation run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Octree     octree.Config        `json:"octree"`
	Spawn      particle.SpawnConfig `json:"spawn"`
	Physics    gravity.Config       `json:"physics"`
	Simulation Simulation           `json:"simulation"`
}

// Simulation controls how the simulation is stepped and what it produces.
type Simulation struct {
	// TimeStep is the simulated time covered by one step.
	TimeStep float64 `json:"time_step"`
	Ticks    int     `json:"ticks"`
	// StatsInterval logs the octree statistics every that many ticks; zero disables it.
	StatsInterval  int    `json:"stats_interval"`
	MetricsAddress string `json:"metrics_address"`
	SnapshotPath   string `json:"snapshot_path"`
}

// Validate ensures all parts of the config are valid.
func (s *Simulation) Validate(path string) error {
	var err error
	if s.TimeStep <= 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("time_step must be positive, got %v", s.TimeStep)))
	}
	if s.Ticks < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("ticks cannot be negative")))
	}
	if s.StatsInterval < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("stats_interval cannot be negative")))
	}
	return err
}

// Default returns the config used for anything a config file leaves out.
func Default() Config {
	return Config{
		Octree:  octree.DefaultConfig(),
		Spawn:   particle.DefaultSpawnConfig(),
		Physics: gravity.DefaultConfig(),
		Simulation: Simulation{
			TimeStep: 0.02,
			Ticks:    100,
		},
	}
}

// Ensure validates every section of the config, reporting all problems at once.
func (c *Config) Ensure() error {
	return multierr.Combine(
		c.Octree.Validate("octree"),
		c.Spawn.Validate("spawn"),
		c.Physics.Validate("physics"),
		c.Simulation.Validate("simulation"),
	)
}
