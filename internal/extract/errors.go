package extract

import (
	"fmt"

	"xia2pipe/internal/services"
)

var (
	// ErrMissingArtifact marks an expected output file that does not exist.
	ErrMissingArtifact = fmt.Errorf("missing artifact: %w", services.ErrLookup)
	// ErrParseFailure marks malformed tool output.
	ErrParseFailure = services.ErrParseFailure
	// ErrNoValidTrial is returned when no refinement trial log could be parsed.
	ErrNoValidTrial = fmt.Errorf("no valid trial: %w", services.ErrParseFailure)
)
