package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"xia2pipe/internal/config"
)

// Requirement defines an external program xia2pipe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the programs the configuration refers to. The
// scheduler tools must exist where x2p runs; the crystallography tools only
// need to exist on compute nodes, so they are optional here.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "sbatch", Command: firstField(cfg.Scheduler.SubmitCommand), Description: "Submits batch jobs"},
		{Name: "sacct", Command: firstField(cfg.Scheduler.AccountingCommand), Description: "Lists queued and running jobs"},
		{Name: "xia2", Command: "xia2", Description: "Data reduction (compute nodes)", Optional: true},
		{Name: "dimple", Command: "dimple", Description: "Molecular replacement (compute nodes)", Optional: true},
		{Name: "refinement script", Command: cfg.Refinement.Script, Description: "Dimple/phenix wrapper", Optional: true},
	}
}

func firstField(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
