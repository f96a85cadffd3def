package octree

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Config tunes how the octree adapts.
type Config struct {
	// MaxParticlesPerCell is the number of points a leaf may hold before it subdivides.
	MaxParticlesPerCell int `json:"max_particles_per_cell"`
	// MaxDepth bounds the depth of the tree; cells at depth MaxDepth-1 never subdivide.
	MaxDepth int `json:"max_depth"`
	// VisibilityThreshold is the point count at which a cell is drawn.
	VisibilityThreshold int  `json:"visibility_threshold"`
	ForceShowAllCells   bool `json:"force_show_all_cells"`
	// CascadeMerge makes a merge re-check the grandparent in the same pass.
	CascadeMerge bool `json:"cascade_merge"`
}

// DefaultConfig returns the default octree config.
func DefaultConfig() Config {
	return Config{
		MaxParticlesPerCell: 20,
		MaxDepth:            10,
		VisibilityThreshold: 1,
		CascadeMerge:        true,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if cfg.MaxParticlesPerCell < 1 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("max_particles_per_cell must be at least 1, got %d", cfg.MaxParticlesPerCell)))
	}
	if cfg.MaxDepth < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("max_depth cannot be negative, got %d", cfg.MaxDepth)))
	}
	if cfg.VisibilityThreshold < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("visibility_threshold cannot be negative, got %d", cfg.VisibilityThreshold)))
	}
	return err
}

// Config returns the config in use.
func (o *Octree) Config() Config {
	return o.cfg
}

// SetConfig replaces the config. It takes effect on the next resize pass; existing cells are not
// rebuilt. An invalid config is rejected and the current one kept.
func (o *Octree) SetConfig(cfg Config) error {
	if err := cfg.Validate("octree"); err != nil {
		o.logger.Warnw("rejected octree config", "error", err)
		return err
	}
	o.cfg = cfg
	o.logger.Debugw("octree config updated", "config", cfg)
	return nil
}

// Reconfigure applies a partial config given as attributes keyed by their json names.
func (o *Octree) Reconfigure(attrs map[string]interface{}) error {
	cfg := o.cfg
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "error creating decoder for octree config")
	}
	if err := decoder.Decode(attrs); err != nil {
		return errors.Wrap(err, "error decoding octree config")
	}
	return o.SetConfig(cfg)
}
