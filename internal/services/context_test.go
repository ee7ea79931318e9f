package services_test

import (
	"context"
	"testing"

	"xia2pipe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithWorkItem(ctx, "l8p23", 3)
	ctx = services.WithStage(ctx, "refinement")
	ctx = services.WithRequestID(ctx, "sweep-123")

	if sample, run, ok := services.WorkItemFromContext(ctx); !ok || sample != "l8p23" || run != 3 {
		t.Fatalf("unexpected work item: %v %v %v", sample, run, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "refinement" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "sweep-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithWorkItem(ctx, "", 1)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, _, ok := services.WorkItemFromContext(ctx); ok {
		t.Fatal("expected no work item value")
	}
}
