package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
)

// GetGuildConfig returns the race category configuration for a guild.
func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (domain.GuildConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.GuildConfig{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.GuildConfig{}, fmt.Errorf("storage is not configured")
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return domain.GuildConfig{}, fmt.Errorf("guild id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT guild, category, archive FROM config WHERE guild = ?`,
		guildID,
	)

	var cfg domain.GuildConfig
	err := row.Scan(&cfg.GuildID, &cfg.ActiveCategoryRef, &cfg.ArchiveCategoryRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GuildConfig{}, storage.ErrNotFound
		}
		return domain.GuildConfig{}, mapTransient(fmt.Errorf("get guild config: %w", err))
	}
	return cfg, nil
}

// InsertGuildConfig records the one-time guild setup.
func (s *Store) InsertGuildConfig(ctx context.Context, cfg domain.GuildConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	guildID := strings.TrimSpace(cfg.GuildID)
	if guildID == "" {
		return fmt.Errorf("guild id is required")
	}
	if strings.TrimSpace(cfg.ActiveCategoryRef) == "" {
		return fmt.Errorf("active category ref is required")
	}
	if strings.TrimSpace(cfg.ArchiveCategoryRef) == "" {
		return fmt.Errorf("archive category ref is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO config (guild, category, archive) VALUES (?, ?, ?)`,
		guildID,
		cfg.ActiveCategoryRef,
		cfg.ArchiveCategoryRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return mapTransient(fmt.Errorf("insert guild config: %w", err))
	}
	return nil
}
