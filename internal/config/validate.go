package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var pipelineNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._]*$`)

var xia2Pipelines = map[string]struct{}{
	"dials": {},
	"2d":    {},
	"3d":    {},
	"3dii":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRaw(); err != nil {
		return err
	}
	if err := c.validateReduction(); err != nil {
		return err
	}
	if err := c.validateRefinement(); err != nil {
		return err
	}
	if err := c.validateCatalogue(); err != nil {
		return err
	}
	if c.Preflight.MinFreeGiB < 0 {
		return errors.New("preflight.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Name == "" {
		return errors.New("pipeline.name must be set")
	}
	if !pipelineNamePattern.MatchString(c.Pipeline.Name) {
		return fmt.Errorf("pipeline.name %q may only contain letters, digits, '.' and '_'", c.Pipeline.Name)
	}
	if c.Pipeline.Project == "" {
		return errors.New("pipeline.project must be set")
	}
	if c.Pipeline.ResultsRoot == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("pipeline.results_root is required. Set X2P_RESULTS_ROOT env var or edit %s (create with 'x2p config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateRaw() error {
	if c.Raw.MinImages < 0 {
		return errors.New("raw.min_images must be >= 0")
	}
	if !strings.Contains(c.Raw.ImagePattern, "{sample}") {
		return errors.New("raw.image_pattern must contain {sample}")
	}
	return nil
}

func (c *Config) validateReduction() error {
	if c.Reduction.Method == "" {
		return errors.New("reduction.method must be set")
	}
	if _, ok := xia2Pipelines[c.Reduction.Xia2Pipeline]; !ok {
		return fmt.Errorf("reduction.xia2_pipeline %q not valid (dials, 2d, 3d, 3dii)", c.Reduction.Xia2Pipeline)
	}
	switch c.Reduction.StatisticsSelection {
	case SelectionFirst, SelectionCrystal:
	default:
		return fmt.Errorf("reduction.statistics_selection %q not valid (first, crystal)", c.Reduction.StatisticsSelection)
	}
	return nil
}

func (c *Config) validateRefinement() error {
	if c.Refinement.Method == "" {
		return errors.New("refinement.method must be set")
	}
	if c.Refinement.Method == c.Reduction.Method && c.Catalogue.RefinementTable == c.Catalogue.ReductionTable {
		return errors.New("refinement.method must differ from reduction.method when both stages share a table")
	}
	if c.Refinement.ResolutionCutoff < 0 {
		return errors.New("refinement.resolution_cutoff must be >= 0")
	}
	if len(c.Refinement.Trials) == 0 {
		return errors.New("refinement.trials must include at least one trial")
	}
	seen := make(map[int]struct{}, len(c.Refinement.Trials))
	for _, trial := range c.Refinement.Trials {
		if trial <= 0 {
			return fmt.Errorf("refinement.trials: trial %d must be positive", trial)
		}
		if _, dup := seen[trial]; dup {
			return fmt.Errorf("refinement.trials: trial %d listed twice", trial)
		}
		seen[trial] = struct{}{}
	}
	return nil
}

func (c *Config) validateCatalogue() error {
	switch c.Catalogue.Driver {
	case DriverSQLite:
		if c.Catalogue.Namespace != "" {
			return errors.New("catalogue.namespace is only supported with the postgres driver")
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("catalogue.driver %q not valid (sqlite, postgres)", c.Catalogue.Driver)
	}
	if c.Catalogue.DSN == "" {
		return errors.New("catalogue.dsn must be set (or X2P_CATALOGUE_DSN)")
	}
	for key, value := range map[string]string{
		"catalogue.namespace":         c.Catalogue.Namespace,
		"catalogue.diffraction_table": c.Catalogue.DiffractionTable,
		"catalogue.reduction_table":   c.Catalogue.ReductionTable,
		"catalogue.refinement_table":  c.Catalogue.RefinementTable,
	} {
		if value != "" && !identifierPattern.MatchString(value) {
			return fmt.Errorf("%s %q is not a valid SQL identifier", key, value)
		}
	}
	return nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
