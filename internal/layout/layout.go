package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"xia2pipe/internal/config"
)

// Layout resolves conventional paths for one configured pipeline.
type Layout struct {
	resultsRoot  string
	pipeline     string
	project      string
	rawRoots     []string
	imagePattern string
	minImages    int
	specs        map[Stage]StageSpec
	jobPattern   *regexp.Regexp
}

// New builds a Layout from configuration, applying any [layout.*] overrides.
func New(cfg *config.Config) *Layout {
	specs := DefaultStageSpecs()
	specs[Reduction] = specs[Reduction].apply(overrideFrom(cfg.Layout.Reduction))
	specs[Refinement] = specs[Refinement].apply(overrideFrom(cfg.Layout.Refinement))

	l := &Layout{
		resultsRoot:  cfg.Pipeline.ResultsRoot,
		pipeline:     cfg.Pipeline.Name,
		project:      cfg.Pipeline.Project,
		rawRoots:     append([]string(nil), cfg.Raw.Roots...),
		imagePattern: cfg.Raw.ImagePattern,
		minImages:    cfg.Raw.MinImages,
		specs:        specs,
	}
	l.jobPattern = regexp.MustCompile(fmt.Sprintf(`^%s-(%s|%s)_(.+)-(\d+)$`,
		regexp.QuoteMeta(l.pipeline),
		regexp.QuoteMeta(specs[Reduction].JobToken),
		regexp.QuoteMeta(specs[Refinement].JobToken),
	))
	return l
}

func overrideFrom(s config.StageLayout) Override {
	return Override{
		Primary:      s.Primary,
		ErrorMarkers: s.ErrorMarkers,
		JobToken:     s.JobToken,
		Metadata:     s.Metadata,
		AimlessXML:   s.AimlessXML,
		TrialLog:     s.TrialLog,
		TrialPDB:     s.TrialPDB,
		TrialMTZ:     s.TrialMTZ,
		FinalMTZ:     s.FinalMTZ,
		HandoffLog:   s.HandoffLog,
		AnchorToken:  s.AnchorToken,
	}
}

// Pipeline returns the configured pipeline name.
func (l *Layout) Pipeline() string { return l.pipeline }

// Project returns the configured project prefix.
func (l *Layout) Project() string { return l.project }

// Spec returns the file-name table for stage.
func (l *Layout) Spec(stage Stage) StageSpec {
	return l.specs[stage]
}

// PipelineDir returns <results_root>/<pipeline>.
func (l *Layout) PipelineDir() string {
	return filepath.Join(l.resultsRoot, l.pipeline)
}

// OutputDir returns <results_root>/<pipeline>/<sample>/<sample>_<run:03>.
func (l *Layout) OutputDir(item WorkItem) string {
	return filepath.Join(l.resultsRoot, l.pipeline, item.Sample, item.Crystal())
}

// Expand substitutes placeholders in template for item. Trial values below
// one leave {trial} untouched.
func (l *Layout) Expand(template string, item WorkItem, trial int) string {
	pairs := []string{
		"{project}", l.project,
		"{pipeline}", l.pipeline,
		"{sample}", item.Sample,
		"{run}", fmt.Sprintf("%03d", item.Run),
		"{crystal}", item.Crystal(),
	}
	if trial > 0 {
		pairs = append(pairs, "{trial}", fmt.Sprintf("%03d", trial))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Path resolves template inside the item's output directory.
func (l *Layout) Path(item WorkItem, template string) string {
	return filepath.Join(l.OutputDir(item), l.Expand(template, item, 0))
}

// TrialPath resolves a per-trial template inside the item's output directory.
func (l *Layout) TrialPath(item WorkItem, template string, trial int) string {
	return filepath.Join(l.OutputDir(item), l.Expand(template, item, trial))
}

// PrimaryPath returns the artifact whose existence marks stage completion.
func (l *Layout) PrimaryPath(item WorkItem, stage Stage) string {
	return l.Path(item, l.specs[stage].Primary)
}

// ErrorMarkerGlobs returns the absolute glob patterns signalling stage failure.
// Only the configured marker patterns act as globs; meta characters in the
// results root and in sample names are matched literally.
func (l *Layout) ErrorMarkerGlobs(item WorkItem, stage Stage) []string {
	markers := l.specs[stage].ErrorMarkers
	dir := escapeGlob(l.OutputDir(item))
	globs := make([]string, 0, len(markers))
	for _, marker := range markers {
		globs = append(globs, filepath.Join(dir, l.Expand(marker, escapedItem(item), 0)))
	}
	return globs
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// escapedItem lets marker templates expand {sample} without injecting
// pattern syntax.
func escapedItem(item WorkItem) WorkItem {
	item.Sample = escapeGlob(item.Sample)
	return item
}

// JobName renders <pipeline>-<token>_<sample>-<run>.
func (l *Layout) JobName(item WorkItem, stage Stage) string {
	return fmt.Sprintf("%s-%s_%s-%d", l.pipeline, l.specs[stage].JobToken, item.Sample, item.Run)
}

// ParseJobName matches a scheduler job name against this pipeline's naming
// convention.
func (l *Layout) ParseJobName(name string) (WorkItem, Stage, bool) {
	match := l.jobPattern.FindStringSubmatch(strings.TrimSpace(name))
	if match == nil {
		return WorkItem{}, "", false
	}
	run, err := strconv.Atoi(match[3])
	if err != nil {
		return WorkItem{}, "", false
	}
	stage := Reduction
	if match[1] == l.specs[Refinement].JobToken {
		stage = Refinement
	}
	return WorkItem{Sample: match[2], Run: run}, stage, true
}

// RawImages returns the raw images found for item under the first raw root
// holding any, in root order.
func (l *Layout) RawImages(item WorkItem) ([]string, error) {
	for _, root := range l.rawRoots {
		matches, err := filepath.Glob(filepath.Join(root, l.Expand(l.imagePattern, item, 0)))
		if err != nil {
			return nil, fmt.Errorf("raw image pattern: %w", err)
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, nil
}

// RawDataExists reports whether more than raw.min_images images exist.
func (l *Layout) RawDataExists(item WorkItem) bool {
	images, err := l.RawImages(item)
	return err == nil && len(images) > l.minImages
}

// RawImageDir returns the directory holding item's raw images. When several
// roots hold enough images the most recently modified directory wins; ties go
// to the earlier root.
func (l *Layout) RawImageDir(item WorkItem) (string, bool) {
	var (
		best    string
		bestMod int64
	)
	for _, root := range l.rawRoots {
		matches, err := filepath.Glob(filepath.Join(root, l.Expand(l.imagePattern, item, 0)))
		if err != nil || len(matches) <= l.minImages {
			continue
		}
		dir := filepath.Dir(matches[0])
		info, err := os.Stat(dir)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = dir, mod
		}
	}
	return best, best != ""
}
