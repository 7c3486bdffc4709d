package services_test

import (
	"context"
	"testing"

	"snapvault/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCaptureID(ctx, "cap-42")
	ctx = services.WithStage(ctx, "publish")

	if id, ok := services.CaptureIDFromContext(ctx); !ok || id != "cap-42" {
		t.Fatalf("unexpected capture id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "publish" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithCaptureID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.CaptureIDFromContext(ctx); ok {
		t.Fatal("expected no capture id value")
	}
}
