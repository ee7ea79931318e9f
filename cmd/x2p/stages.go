package main

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"xia2pipe/internal/layout"
)

var titleCaser = cases.Title(language.English)

// stageTitle renders a stage for headings and table cells.
func stageTitle(stage layout.Stage) string {
	return titleCaser.String(string(stage))
}

// parseStages resolves stage arguments; no arguments means every stage.
func parseStages(args []string) ([]layout.Stage, error) {
	if len(args) == 0 {
		return layout.Stages(), nil
	}
	stages := make([]layout.Stage, 0, len(args))
	seen := make(map[layout.Stage]bool, len(args))
	for _, arg := range args {
		stage, err := layout.ParseStage(arg)
		if err != nil {
			return nil, err
		}
		if seen[stage] {
			continue
		}
		seen[stage] = true
		stages = append(stages, stage)
	}
	return stages, nil
}

func parseItems(args []string) ([]layout.WorkItem, error) {
	items := make([]layout.WorkItem, 0, len(args))
	for _, arg := range args {
		item, err := layout.ParseWorkItem(arg)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
