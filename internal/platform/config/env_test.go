package config

import "testing"

type testEnvConfig struct {
	Token   string `env:"RACEHUB_TEST_TOKEN"`
	Prefix  string `env:"RACEHUB_TEST_PREFIX" envDefault:"!"`
	Retries int    `env:"RACEHUB_TEST_RETRIES" envDefault:"3"`
}

func TestParseEnvReadsValuesAndDefaults(t *testing.T) {
	t.Setenv("RACEHUB_TEST_TOKEN", "abc")

	var cfg testEnvConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Token != "abc" {
		t.Fatalf("expected token from env, got %q", cfg.Token)
	}
	if cfg.Prefix != "!" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}
	if cfg.Retries != 3 {
		t.Fatalf("expected default retries, got %d", cfg.Retries)
	}
}

func TestParseEnvRejectsBadValue(t *testing.T) {
	t.Setenv("RACEHUB_TEST_RETRIES", "not-a-number")

	var cfg testEnvConfig
	if err := ParseEnv(&cfg); err == nil {
		t.Fatalf("expected error for invalid integer value")
	}
}
