package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"xia2pipe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrScheduler, "refinement", "sbatch", "submit failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrScheduler) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"refinement", "sbatch", "submit failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetailOrMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindAndFatal(t *testing.T) {
	cases := []struct {
		err   error
		kind  string
		fatal bool
	}{
		{nil, "", false},
		{services.Wrap(services.ErrConfiguration, "refinement", "params", "reference pdb missing", nil), "configuration", true},
		{services.Wrap(services.ErrLookup, "refinement", "resolution", "absent", nil), "lookup", false},
		{fmt.Errorf("%w: %w", services.ErrLookup, services.ErrAmbiguous), "ambiguous", false},
		{services.Wrap(services.ErrParseFailure, "reduction", "xia2.json", "bad", nil), "parse", false},
		{services.Wrap(services.ErrScheduler, "reduction", "sbatch", "exit 1", nil), "scheduler", false},
		{errors.New("other"), "external", false},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.IsFatal(tc.err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}
