package config

const (
	defaultConfigPath          = "~/.config/xia2pipe/config.toml"
	defaultPipelineName        = "DIALS"
	defaultProject             = "SARSCOV2"
	defaultRawImagePattern     = "{sample}/{crystal}/*.cbf"
	defaultRawMinImages        = 20
	defaultPartition           = "all"
	defaultSubmitCommand       = "sbatch"
	defaultAccountingCommand   = "sacct"
	defaultScriptDir           = "~/.local/share/xia2pipe/scripts"
	defaultCPUsPerTask         = 5
	defaultTimeLimit           = "8:00:00"
	defaultXia2Pipeline        = "dials"
	defaultReductionNProc      = 32
	defaultStatisticsSelection = SelectionFirst
	defaultRefinementScript    = "dmpl.sh"
	defaultCatalogueDriver     = DriverSQLite
	defaultCatalogueDSN        = "~/.local/share/xia2pipe/catalogue.db"
	defaultDiffractionTable    = "Diffractions"
	defaultReductionTable      = "Data_Reduction"
	defaultRefinementTable     = "Refinement"
	defaultPollInterval        = 180
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogDir              = "~/.local/share/xia2pipe/logs"
	defaultMinFreeGiB          = 50
)

// Statistics selection modes for xia2.json sub-structures.
const (
	SelectionFirst   = "first"
	SelectionCrystal = "crystal"
)

// Catalogue drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			Name:    defaultPipelineName,
			Project: defaultProject,
		},
		Raw: Raw{
			ImagePattern: defaultRawImagePattern,
			MinImages:    defaultRawMinImages,
		},
		Scheduler: Scheduler{
			Partition:         defaultPartition,
			SubmitCommand:     defaultSubmitCommand,
			AccountingCommand: defaultAccountingCommand,
			ScriptDir:         defaultScriptDir,
			CPUsPerTask:       defaultCPUsPerTask,
			TimeLimit:         defaultTimeLimit,
		},
		Reduction: Reduction{
			Method:              defaultPipelineName,
			Xia2Pipeline:        defaultXia2Pipeline,
			NProc:               defaultReductionNProc,
			StatisticsSelection: defaultStatisticsSelection,
		},
		Refinement: Refinement{
			Method:      defaultPipelineName + "-dmpl",
			PlaceWaters: true,
			Trials:      []int{1, 2, 3},
			Script:      defaultRefinementScript,
		},
		Catalogue: Catalogue{
			Driver:           defaultCatalogueDriver,
			DSN:              defaultCatalogueDSN,
			DiffractionTable: defaultDiffractionTable,
			ReductionTable:   defaultReductionTable,
			RefinementTable:  defaultRefinementTable,
		},
		Workflow: Workflow{
			PollInterval: defaultPollInterval,
			Reduce:       true,
			Refine:       true,
			Sync:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
		Preflight: Preflight{
			MinFreeGiB: defaultMinFreeGiB,
		},
	}
}
