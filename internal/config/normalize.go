package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	if err := c.normalizeRaw(); err != nil {
		return err
	}
	if err := c.normalizeScheduler(); err != nil {
		return err
	}
	c.normalizeReduction()
	if err := c.normalizeRefinement(); err != nil {
		return err
	}
	if err := c.normalizeCatalogue(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.SubmitLimit < 0 {
		c.Workflow.SubmitLimit = 0
	}
	return nil
}

func (c *Config) normalizePipeline() error {
	c.Pipeline.Name = strings.TrimSpace(c.Pipeline.Name)
	c.Pipeline.Project = strings.TrimSpace(c.Pipeline.Project)
	if c.Pipeline.ResultsRoot == "" {
		if value, ok := os.LookupEnv("X2P_RESULTS_ROOT"); ok {
			c.Pipeline.ResultsRoot = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Pipeline.ResultsRoot, err = expandPath(strings.TrimSpace(c.Pipeline.ResultsRoot)); err != nil {
		return fmt.Errorf("pipeline.results_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeRaw() error {
	roots := make([]string, 0, len(c.Raw.Roots))
	for _, root := range c.Raw.Roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		expanded, err := expandPath(root)
		if err != nil {
			return fmt.Errorf("raw.roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Raw.Roots = roots
	c.Raw.ImagePattern = strings.TrimSpace(c.Raw.ImagePattern)
	if c.Raw.ImagePattern == "" {
		c.Raw.ImagePattern = defaultRawImagePattern
	}
	return nil
}

func (c *Config) normalizeScheduler() error {
	c.Scheduler.Partition = strings.TrimSpace(c.Scheduler.Partition)
	if c.Scheduler.Partition == "" {
		c.Scheduler.Partition = defaultPartition
	}
	c.Scheduler.Reservation = strings.TrimSpace(c.Scheduler.Reservation)
	c.Scheduler.SubmitCommand = strings.TrimSpace(c.Scheduler.SubmitCommand)
	if c.Scheduler.SubmitCommand == "" {
		c.Scheduler.SubmitCommand = defaultSubmitCommand
	}
	c.Scheduler.AccountingCommand = strings.TrimSpace(c.Scheduler.AccountingCommand)
	if c.Scheduler.AccountingCommand == "" {
		c.Scheduler.AccountingCommand = defaultAccountingCommand
	}
	if strings.TrimSpace(c.Scheduler.ScriptDir) == "" {
		c.Scheduler.ScriptDir = defaultScriptDir
	}
	var err error
	if c.Scheduler.ScriptDir, err = expandPath(c.Scheduler.ScriptDir); err != nil {
		return fmt.Errorf("scheduler.script_dir: %w", err)
	}
	if c.Scheduler.CPUsPerTask <= 0 {
		c.Scheduler.CPUsPerTask = defaultCPUsPerTask
	}
	setup := make([]string, 0, len(c.Scheduler.Setup))
	for _, line := range c.Scheduler.Setup {
		if line = strings.TrimSpace(line); line != "" {
			setup = append(setup, line)
		}
	}
	c.Scheduler.Setup = setup
	c.Scheduler.TimeLimit = strings.TrimSpace(c.Scheduler.TimeLimit)
	if c.Scheduler.TimeLimit == "" {
		c.Scheduler.TimeLimit = defaultTimeLimit
	}
	return nil
}

func (c *Config) normalizeReduction() {
	c.Reduction.Method = strings.TrimSpace(c.Reduction.Method)
	c.Reduction.Xia2Pipeline = strings.ToLower(strings.TrimSpace(c.Reduction.Xia2Pipeline))
	if c.Reduction.Xia2Pipeline == "" {
		c.Reduction.Xia2Pipeline = defaultXia2Pipeline
	}
	c.Reduction.SpaceGroup = strings.TrimSpace(c.Reduction.SpaceGroup)
	c.Reduction.UnitCell = strings.TrimSpace(c.Reduction.UnitCell)
	if c.Reduction.NProc <= 0 {
		c.Reduction.NProc = defaultReductionNProc
	}
	c.Reduction.StatisticsSelection = strings.ToLower(strings.TrimSpace(c.Reduction.StatisticsSelection))
	if c.Reduction.StatisticsSelection == "" {
		c.Reduction.StatisticsSelection = defaultStatisticsSelection
	}
	c.Reduction.Template = strings.TrimSpace(c.Reduction.Template)
}

func (c *Config) normalizeRefinement() error {
	c.Refinement.Method = strings.TrimSpace(c.Refinement.Method)
	c.Refinement.ReferencePDB = strings.TrimSpace(c.Refinement.ReferencePDB)
	candidates := make([]string, 0, len(c.Refinement.ReferenceCandidates))
	for _, candidate := range c.Refinement.ReferenceCandidates {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			candidates = append(candidates, candidate)
		}
	}
	c.Refinement.ReferenceCandidates = candidates
	c.Refinement.FreeFlagMTZ = strings.TrimSpace(c.Refinement.FreeFlagMTZ)
	c.Refinement.Script = strings.TrimSpace(c.Refinement.Script)
	if c.Refinement.Script == "" {
		c.Refinement.Script = defaultRefinementScript
	}
	c.Refinement.Template = strings.TrimSpace(c.Refinement.Template)
	if len(c.Refinement.Trials) > 0 {
		trials := append([]int(nil), c.Refinement.Trials...)
		sort.Ints(trials)
		c.Refinement.Trials = trials
	}
	return nil
}

func (c *Config) normalizeCatalogue() error {
	c.Catalogue.Driver = strings.ToLower(strings.TrimSpace(c.Catalogue.Driver))
	switch c.Catalogue.Driver {
	case "", "sqlite3":
		c.Catalogue.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Catalogue.Driver = DriverPostgres
	}
	if value, ok := os.LookupEnv("X2P_CATALOGUE_DSN"); ok && strings.TrimSpace(value) != "" {
		c.Catalogue.DSN = strings.TrimSpace(value)
	}
	c.Catalogue.DSN = strings.TrimSpace(c.Catalogue.DSN)
	if c.Catalogue.Driver == DriverSQLite && c.Catalogue.DSN != "" && c.Catalogue.DSN != ":memory:" {
		var err error
		if c.Catalogue.DSN, err = expandPath(c.Catalogue.DSN); err != nil {
			return fmt.Errorf("catalogue.dsn: %w", err)
		}
	}
	c.Catalogue.Namespace = strings.TrimSpace(c.Catalogue.Namespace)
	if c.Catalogue.DiffractionTable = strings.TrimSpace(c.Catalogue.DiffractionTable); c.Catalogue.DiffractionTable == "" {
		c.Catalogue.DiffractionTable = defaultDiffractionTable
	}
	if c.Catalogue.ReductionTable = strings.TrimSpace(c.Catalogue.ReductionTable); c.Catalogue.ReductionTable == "" {
		c.Catalogue.ReductionTable = defaultReductionTable
	}
	if c.Catalogue.RefinementTable = strings.TrimSpace(c.Catalogue.RefinementTable); c.Catalogue.RefinementTable == "" {
		c.Catalogue.RefinementTable = defaultRefinementTable
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	var err error
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
