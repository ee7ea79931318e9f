package testsupport

import (
	"fmt"
	"strings"
	"testing"

	"xia2pipe/internal/layout"
)

// Xia2JSON renders a minimal xia2.json for crystal. highRes is written as a
// raw JSON token so callers can pass NaN the way xia2 does.
func Xia2JSON(crystal, highRes string) string {
	return fmt.Sprintf(`{
  "_crystals": {
    %[1]q: {
      "_scaler": {
        "_scalr_statistics": {
          "[\"AUTOMATIC\", \"%[1]s\", \"NATIVE\"]": {
            "High resolution limit": [%[2]s, 5.12, %[2]s],
            "Low resolution limit": [54.3, 54.3, 1.9],
            "Completeness": [99.1, 99.8, 97.2],
            "Multiplicity": [6.8, 7.1, 6.2],
            "I/sigma": [12.4, 40.2, 1.1],
            "CC half": [0.998, 0.999, 0.51],
            "Rmerge(I)": [0.071, 0.032, 1.21]
          }
        },
        "_scalr_cell": [112.1, 52.8, 44.6, 90.0, 102.9, 90.0],
        "_scalr_likely_spacegroups": ["C 1 2 1", "P 1"]
      }
    }
  }
}`, crystal, highRes)
}

// WriteReductionOutputs lays down a finished xia2 run for item.
func WriteReductionOutputs(t testing.TB, l *layout.Layout, item layout.WorkItem, highRes string) {
	t.Helper()

	spec := l.Spec(layout.Reduction)
	WriteFile(t, l.Path(item, spec.Metadata), Xia2JSON(item.Crystal(), highRes))
	WriteFile(t, l.PrimaryPath(item, layout.Reduction), "mtz")
}

// RefinementLog renders a phenix.refine log whose final summary line carries
// rFree. An empty rFree produces a log without summary lines.
func RefinementLog(rFree string) string {
	var b strings.Builder
	b.WriteString("phenix.refine log\n")
	if rFree == "" {
		b.WriteString("Sorry: refinement aborted\n")
		return b.String()
	}
	b.WriteString(" start: 0.2511 0.2873 0.012 1.512 8.2 98.1 31.0 0 0.000\n")
	b.WriteString("   end: 0.2400 0.2700 0.010 1.300 8.0 97.0 30.5 0 0.000\n")
	fmt.Fprintf(&b, "   end: 0.1900 %s 0.008 0.950 7.9 96.4 30.1 0 0.000\n", rFree)
	return b.String()
}

// WriteRefinementOutputs lays down a finished refinement of item. logs maps
// trial ordinals to log bodies; handoff is the dimple.log body.
func WriteRefinementOutputs(t testing.TB, l *layout.Layout, item layout.WorkItem, logs map[int]string, handoff string) {
	t.Helper()

	spec := l.Spec(layout.Refinement)
	for trial, body := range logs {
		WriteFile(t, l.TrialPath(item, spec.TrialLog, trial), body)
	}
	WriteFile(t, l.PrimaryPath(item, layout.Refinement), "pdb")
	WriteFile(t, l.Path(item, spec.FinalMTZ), "mtz")
	if handoff != "" {
		WriteFile(t, l.Path(item, spec.HandoffLog), handoff)
	}
}
