package racehub

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("racehub", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":8090" {
		t.Fatalf("expected default addr :8090, got %q", cfg.Addr)
	}
	if cfg.Prefix != "!" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}
	if cfg.DBPath != "data/racehub.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("RACEHUB_TOKEN", "env-token")
	t.Setenv("RACEHUB_PREFIX", "?")
	t.Setenv("RACEHUB_FORFEIT_PENALTY", "2h")

	fs := flag.NewFlagSet("racehub", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", ":9000", "-prefix", "$"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Token != "env-token" {
		t.Fatalf("expected token from environment, got %q", cfg.Token)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("expected addr from flag, got %q", cfg.Addr)
	}
	if cfg.Prefix != "$" {
		t.Fatalf("expected flag to override environment prefix, got %q", cfg.Prefix)
	}
	if cfg.ForfeitPenalty != 2*time.Hour {
		t.Fatalf("expected 2h forfeit penalty, got %v", cfg.ForfeitPenalty)
	}
}

func TestRunRequiresToken(t *testing.T) {
	err := Run(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "token is required") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}
