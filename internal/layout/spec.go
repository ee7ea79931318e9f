package layout

// StageSpec holds the file-name templates of one stage. Templates are relative
// to the work item's output directory and may use the placeholders {project},
// {pipeline}, {sample}, {run}, {crystal} and {trial}. Error markers are globs.
type StageSpec struct {
	Stage        Stage
	JobToken     string
	Primary      string
	ErrorMarkers []string

	// Reduction
	Metadata   string
	AimlessXML string

	// Refinement
	TrialLog    string
	TrialPDB    string
	TrialMTZ    string
	FinalMTZ    string
	HandoffLog  string
	AnchorToken string
}

// DefaultStageSpecs returns the conventions used by xia2 and the dimple/phenix
// refinement script.
func DefaultStageSpecs() map[Stage]StageSpec {
	return map[Stage]StageSpec{
		Reduction: {
			Stage:        Reduction,
			JobToken:     "xia2",
			Primary:      "DataFiles/{project}_{crystal}_free.mtz",
			ErrorMarkers: []string{"xia2-error.txt", "*xia2*.err"},
			Metadata:     "xia2.json",
			AimlessXML:   "LogFiles/{project}_{crystal}_aimless_xml.xml",
		},
		Refinement: {
			Stage:        Refinement,
			JobToken:     "dmpl",
			Primary:      "{crystal}_postphenix_out.pdb",
			ErrorMarkers: []string{"*dmpl*.err"},
			TrialLog:     "{crystal}_{trial}.log",
			TrialPDB:     "{crystal}_{trial}.pdb",
			TrialMTZ:     "{crystal}_{trial}.mtz",
			FinalMTZ:     "{crystal}_postphenix_out.mtz",
			HandoffLog:   "dimple.log",
			AnchorToken:  "end:",
		},
	}
}

// Override carries the configurable subset of a StageSpec. Empty fields keep
// the existing value.
type Override struct {
	Primary      string
	ErrorMarkers []string
	JobToken     string
	Metadata     string
	AimlessXML   string
	TrialLog     string
	TrialPDB     string
	TrialMTZ     string
	FinalMTZ     string
	HandoffLog   string
	AnchorToken  string
}

func (s StageSpec) apply(o Override) StageSpec {
	if o.Primary != "" {
		s.Primary = o.Primary
	}
	if len(o.ErrorMarkers) > 0 {
		s.ErrorMarkers = append([]string(nil), o.ErrorMarkers...)
	}
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&s.JobToken, o.JobToken},
		{&s.Metadata, o.Metadata},
		{&s.AimlessXML, o.AimlessXML},
		{&s.TrialLog, o.TrialLog},
		{&s.TrialPDB, o.TrialPDB},
		{&s.TrialMTZ, o.TrialMTZ},
		{&s.FinalMTZ, o.FinalMTZ},
		{&s.HandoffLog, o.HandoffLog},
		{&s.AnchorToken, o.AnchorToken},
	} {
		if f.val != "" {
			*f.dst = f.val
		}
	}
	return s
}
