package submit

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/services"
)

//go:embed templates/*.sh.tmpl
var templateFS embed.FS

// ReductionParams fills the xia2 batch script.
type ReductionParams struct {
	JobName      string
	OutputDir    string
	Partition    string
	Reservation  string
	Setup        []string
	ImageDir     string
	Xia2Pipeline string
	Project      string
	Crystal      string
	NProc        int
	SpaceGroup   string
	UnitCell     string
}

// RefinementParams fills the dimple/phenix batch script.
type RefinementParams struct {
	JobName      string
	OutputDir    string
	Partition    string
	Reservation  string
	CPUs         int
	TimeLimit    string
	Setup        []string
	Script       string
	Crystal      string
	Resolution   string
	ReferencePDB string
	InputMTZ     string
	FreeMTZ      string
	PlaceWaters  bool
}

// loadTemplate parses the batch-script template of stage: the file at
// override when set, the built-in one otherwise.
func loadTemplate(stage layout.Stage, override string) (*template.Template, error) {
	var (
		body []byte
		err  error
	)
	if override != "" {
		path, expandErr := config.ExpandPath(override)
		if expandErr != nil {
			return nil, services.Wrap(services.ErrConfiguration, string(stage), "template", "expand path", expandErr)
		}
		body, err = os.ReadFile(path)
	} else {
		body, err = templateFS.ReadFile("templates/" + string(stage) + ".sh.tmpl")
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(stage), "template", "read", err)
	}
	tmpl, err := template.New(string(stage)).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(body))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(stage), "template", "parse", err)
	}
	return tmpl, nil
}

func render(tmpl *template.Template, params any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render %s script: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
