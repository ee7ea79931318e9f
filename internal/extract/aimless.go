package extract

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type aimlessReport struct {
	Results []aimlessResult `xml:"Result"`
}

type aimlessResult struct {
	Datasets []aimlessDataset `xml:"Dataset"`
}

type aimlessDataset struct {
	ResolutionHigh []aimlessResolution `xml:"ResolutionHigh"`
}

type aimlessResolution struct {
	Overall []string `xml:"Overall"`
}

// parseAimlessResolution reads the I/sigma-based high resolution limit from an
// aimless XML report. The document must carry exactly one
// Result/Dataset/ResolutionHigh/Overall element.
func parseAimlessResolution(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return 0, fmt.Errorf("read aimless xml: %w", err)
	}
	var report aimlessReport
	if err := xml.Unmarshal(data, &report); err != nil {
		return 0, fmt.Errorf("%w: aimless xml: %v", ErrParseFailure, err)
	}

	var values []string
	for _, result := range report.Results {
		for _, dataset := range result.Datasets {
			for _, high := range dataset.ResolutionHigh {
				values = append(values, high.Overall...)
			}
		}
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("%w: expected one Result/Dataset/ResolutionHigh/Overall entry, found %d", ErrParseFailure, len(values))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: aimless resolution %q", ErrParseFailure, values[0])
	}
	return v, nil
}
