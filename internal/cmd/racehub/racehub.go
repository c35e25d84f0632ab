// Package racehub parses racehub command flags and starts the bot runtime.
package racehub

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/PikalaxALT/dumbsparce/internal/app/racehub"
	entrypoint "github.com/PikalaxALT/dumbsparce/internal/platform/cmd"
)

// Config holds racehub command configuration.
type Config struct {
	Token          string        `env:"RACEHUB_TOKEN"`
	Addr           string        `env:"RACEHUB_ADDR" envDefault:":8090"`
	Prefix         string        `env:"RACEHUB_PREFIX" envDefault:"!"`
	DBPath         string        `env:"RACEHUB_DB_PATH" envDefault:"data/racehub.db"`
	ForfeitPenalty time.Duration `env:"RACEHUB_FORFEIT_PENALTY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Token, "token", cfg.Token, "The Discord bot token")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The health endpoint listen address")
	fs.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "The command prefix")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.DurationVar(&cfg.ForfeitPenalty, "forfeit-penalty", cfg.ForfeitPenalty, "The recorded duration for a forfeit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the racehub bot service.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Token) == "" {
		return fmt.Errorf("discord token is required (set RACEHUB_TOKEN or -token)")
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRacehub, func(context.Context) error {
		return racehub.Run(ctx, racehub.Config{
			Addr:           cfg.Addr,
			Token:          cfg.Token,
			Prefix:         cfg.Prefix,
			DBPath:         cfg.DBPath,
			ForfeitPenalty: cfg.ForfeitPenalty,
		})
	})
}
