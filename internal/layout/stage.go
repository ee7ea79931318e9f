package layout

import (
	"fmt"
	"strings"
)

// Stage is one of the two fixed pipeline stages.
type Stage string

const (
	Reduction  Stage = "reduction"
	Refinement Stage = "refinement"
)

// Stages lists the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{Reduction, Refinement}
}

func (s Stage) String() string { return string(s) }

// Prerequisite returns the stage that must succeed before s is eligible.
func (s Stage) Prerequisite() (Stage, bool) {
	if s == Refinement {
		return Reduction, true
	}
	return "", false
}

// ParseStage resolves a stage name or one of its tool aliases.
func ParseStage(value string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "reduction", "reduce", "xia2":
		return Reduction, nil
	case "refinement", "refine", "dmpl", "dimple":
		return Refinement, nil
	default:
		return "", fmt.Errorf("unknown stage %q (want reduction or refinement)", value)
	}
}
