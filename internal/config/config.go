package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline identifies the pipeline run and where its results live.
type Pipeline struct {
	Name        string `toml:"name" yaml:"name"`
	Project     string `toml:"project" yaml:"project"`
	ResultsRoot string `toml:"results_root" yaml:"results_root"`
}

// Raw describes where raw detector images are searched for.
type Raw struct {
	Roots        []string `toml:"roots" yaml:"roots"`
	ImagePattern string   `toml:"image_pattern" yaml:"image_pattern"`
	MinImages    int      `toml:"min_images" yaml:"min_images"`
}

// Scheduler contains SLURM submission and accounting settings.
type Scheduler struct {
	Partition         string `toml:"partition" yaml:"partition"`
	Reservation       string `toml:"reservation" yaml:"reservation"`
	SubmitCommand     string `toml:"submit_command" yaml:"submit_command"`
	AccountingCommand string `toml:"accounting_command" yaml:"accounting_command"`
	ScriptDir         string `toml:"script_dir" yaml:"script_dir"`
	CPUsPerTask       int    `toml:"cpus_per_task" yaml:"cpus_per_task"`
	TimeLimit         string `toml:"time_limit" yaml:"time_limit"`
	// Setup lines are emitted verbatim before the tool invocation.
	Setup []string `toml:"setup" yaml:"setup"`
}

// Reduction configures the xia2 data-reduction stage.
type Reduction struct {
	Method              string `toml:"method" yaml:"method"`
	Xia2Pipeline        string `toml:"xia2_pipeline" yaml:"xia2_pipeline"`
	SpaceGroup          string `toml:"space_group" yaml:"space_group"`
	UnitCell            string `toml:"unit_cell" yaml:"unit_cell"`
	NProc               int    `toml:"nproc" yaml:"nproc"`
	StatisticsSelection string `toml:"statistics_selection" yaml:"statistics_selection"`
	Template            string `toml:"template" yaml:"template"`
}

// Refinement configures the dimple/phenix refinement stage.
type Refinement struct {
	Method              string   `toml:"method" yaml:"method"`
	ReferencePDB        string   `toml:"reference_pdb" yaml:"reference_pdb"`
	ReferenceCandidates []string `toml:"reference_candidates" yaml:"reference_candidates"`
	ResolutionCutoff    float64  `toml:"resolution_cutoff" yaml:"resolution_cutoff"`
	FreeFlagMTZ         string   `toml:"free_flag_mtz" yaml:"free_flag_mtz"`
	PlaceWaters         bool     `toml:"place_waters" yaml:"place_waters"`
	Trials              []int    `toml:"trials" yaml:"trials"`
	Script              string   `toml:"script" yaml:"script"`
	Template            string   `toml:"template" yaml:"template"`
}

// Catalogue contains relational store connection settings.
type Catalogue struct {
	Driver           string `toml:"driver" yaml:"driver"`
	DSN              string `toml:"dsn" yaml:"dsn"`
	Namespace        string `toml:"namespace" yaml:"namespace"`
	DiffractionTable string `toml:"diffraction_table" yaml:"diffraction_table"`
	ReductionTable   string `toml:"reduction_table" yaml:"reduction_table"`
	RefinementTable  string `toml:"refinement_table" yaml:"refinement_table"`
}

// StageLayout overrides the conventional file names of one stage. Empty
// fields keep the built-in convention.
type StageLayout struct {
	Primary      string   `toml:"primary" yaml:"primary"`
	ErrorMarkers []string `toml:"error_markers" yaml:"error_markers"`
	JobToken     string   `toml:"job_token" yaml:"job_token"`
	Metadata     string   `toml:"metadata" yaml:"metadata"`
	AimlessXML   string   `toml:"aimless_xml" yaml:"aimless_xml"`
	TrialLog     string   `toml:"trial_log" yaml:"trial_log"`
	TrialPDB     string   `toml:"trial_pdb" yaml:"trial_pdb"`
	TrialMTZ     string   `toml:"trial_mtz" yaml:"trial_mtz"`
	FinalMTZ     string   `toml:"final_mtz" yaml:"final_mtz"`
	HandoffLog   string   `toml:"handoff_log" yaml:"handoff_log"`
	AnchorToken  string   `toml:"anchor_token" yaml:"anchor_token"`
}

// Layout holds per-stage file-name overrides.
type Layout struct {
	Reduction  StageLayout `toml:"reduction" yaml:"reduction"`
	Refinement StageLayout `toml:"refinement" yaml:"refinement"`
}

// Workflow contains watch-loop timing and toggles.
type Workflow struct {
	PollInterval int  `toml:"poll_interval" yaml:"poll_interval"`
	SubmitLimit  int  `toml:"submit_limit" yaml:"submit_limit"`
	Reduce       bool `toml:"reduce" yaml:"reduce"`
	Refine       bool `toml:"refine" yaml:"refine"`
	Sync         bool `toml:"sync" yaml:"sync"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
	Dir    string `toml:"dir" yaml:"dir"`
}

// Preflight contains thresholds for environment checks.
type Preflight struct {
	MinFreeGiB int `toml:"min_free_gib" yaml:"min_free_gib"`
}

// Config encapsulates all configuration values for xia2pipe.
//
// Configuration sections by subsystem:
//   - Pipeline: pipeline name, project prefix, results root
//   - Raw: raw image search roots and the minimum image count
//   - Scheduler: SLURM partition/reservation and command names
//   - Reduction / Refinement: stage methods and tool parameters
//   - Catalogue: relational store driver, DSN, namespace, table names
//   - Layout: per-stage file-name overrides
//   - Workflow: watch-loop interval, batch limit, pass toggles
//   - Logging: log format, level, directory
//   - Preflight: environment check thresholds
type Config struct {
	Pipeline   Pipeline   `toml:"pipeline" yaml:"pipeline"`
	Raw        Raw        `toml:"raw" yaml:"raw"`
	Scheduler  Scheduler  `toml:"scheduler" yaml:"scheduler"`
	Reduction  Reduction  `toml:"reduction" yaml:"reduction"`
	Refinement Refinement `toml:"refinement" yaml:"refinement"`
	Catalogue  Catalogue  `toml:"catalogue" yaml:"catalogue"`
	Layout     Layout     `toml:"layout" yaml:"layout"`
	Workflow   Workflow   `toml:"workflow" yaml:"workflow"`
	Logging    Logging    `toml:"logging" yaml:"logging"`
	Preflight  Preflight  `toml:"preflight" yaml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Files ending in .yaml or .yml are decoded as
// YAML; everything else is TOML.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("x2p.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the passes write into. The results
// root is created on a best-effort basis so read-only passes still run when the
// shared filesystem is mounted read-only.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Logging.Dir, c.Scheduler.ScriptDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	_ = os.MkdirAll(c.PipelineDir(), 0o755)
	return nil
}

// PipelineDir returns <results_root>/<pipeline name>.
func (c *Config) PipelineDir() string {
	return filepath.Join(c.Pipeline.ResultsRoot, c.Pipeline.Name)
}

// ReferenceCandidates returns the configured reference structures, falling back
// to the single reference PDB when no explicit candidate list is set.
func (c *Config) ReferenceCandidates() []string {
	if len(c.Refinement.ReferenceCandidates) > 0 {
		return append([]string(nil), c.Refinement.ReferenceCandidates...)
	}
	if ref := strings.TrimSpace(c.Refinement.ReferencePDB); ref != "" {
		return []string{ref}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
