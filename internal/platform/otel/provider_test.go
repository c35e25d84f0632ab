package otel

import (
	"context"
	"testing"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("RACEHUB_OTEL_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), "racehub")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	t.Setenv("RACEHUB_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("RACEHUB_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "racehub")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}
