package extract

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// RefinementStats is the ordered statistics tuple of a phenix.refine log
// summary line.
type RefinementStats struct {
	RWork     float64
	RFree     float64
	RMSBonds  float64
	RMSAngles float64
	BMin      float64
	BMax      float64
	BMean     float64
}

const refinementStatCount = 7

// unparsedFreeR is the score given to a trial whose log cannot be parsed.
const unparsedFreeR = 1.0

// ParseRefinementLog reads the last line of path whose first field equals
// anchor and returns its first seven numeric fields.
func ParseRefinementLog(path, anchor string) (RefinementStats, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RefinementStats{}, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return RefinementStats{}, fmt.Errorf("open refinement log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var last []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == anchor {
			last = fields[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return RefinementStats{}, fmt.Errorf("read refinement log %s: %w", path, err)
	}
	if last == nil {
		return RefinementStats{}, fmt.Errorf("%w: %s has no %q line", ErrParseFailure, path, anchor)
	}

	values := make([]float64, 0, refinementStatCount)
	for _, field := range last {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
		if len(values) == refinementStatCount {
			break
		}
	}
	if len(values) < refinementStatCount {
		return RefinementStats{}, fmt.Errorf("%w: %s %q line has %d numbers, want %d",
			ErrParseFailure, path, anchor, len(values), refinementStatCount)
	}
	stats := RefinementStats{
		RWork:     values[0],
		RFree:     values[1],
		RMSBonds:  values[2],
		RMSAngles: values[3],
		BMin:      values[4],
		BMax:      values[5],
		BMean:     values[6],
	}
	if !finite(stats.RFree) {
		return RefinementStats{}, fmt.Errorf("%w: %s free R is %v", ErrParseFailure, path, stats.RFree)
	}
	return stats, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TrialOutcome is the parse result of one refinement trial.
type TrialOutcome struct {
	Trial int
	Stats RefinementStats
	Err   error
}

// Score is the free R-factor, or 1.0 when the log could not be parsed or the
// free R is not a finite number.
func (o TrialOutcome) Score() float64 {
	if o.Err != nil || !finite(o.Stats.RFree) {
		return unparsedFreeR
	}
	return o.Stats.RFree
}

// SelectTrial picks the outcome with the lowest score. Ties keep the earliest
// outcome. When no outcome parsed, ErrNoValidTrial is returned.
func SelectTrial(outcomes []TrialOutcome) (TrialOutcome, error) {
	parsed := 0
	best := -1
	for i, o := range outcomes {
		if o.Err == nil && finite(o.Stats.RFree) {
			parsed++
		}
		if best < 0 || o.Score() < outcomes[best].Score() {
			best = i
		}
	}
	if parsed == 0 {
		return TrialOutcome{}, ErrNoValidTrial
	}
	return outcomes[best], nil
}
