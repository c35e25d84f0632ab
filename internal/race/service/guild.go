package service

import (
	"context"
	"errors"

	apperrors "github.com/PikalaxALT/dumbsparce/internal/platform/errors"
	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EnsureGuildReady returns the guild's race configuration. It is the
// precondition guard for every race-creating or race-joining operation.
func (c *Coordinator) EnsureGuildReady(ctx context.Context, guildID string) (domain.GuildConfig, error) {
	var cfg domain.GuildConfig
	err := c.withStoreRetry(ctx, "get guild config", func() error {
		var err error
		cfg, err = c.stores.GuildConfig.GetGuildConfig(ctx, guildID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.GuildConfig{}, domain.ErrNoGuildConfig
		}
		return domain.GuildConfig{}, err
	}
	return cfg, nil
}

// SetupGuild performs the one-time guild setup: it provisions the active and
// archive categories and records them. Fails with GUILD_CONFIG_EXISTS when
// the guild is already configured.
func (c *Coordinator) SetupGuild(ctx context.Context, guildID string) (domain.GuildConfig, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.SetupGuild",
		trace.WithAttributes(attribute.String("guild.id", guildID)))
	defer span.End()

	_, err := c.EnsureGuildReady(ctx, guildID)
	if err == nil {
		return domain.GuildConfig{}, domain.ErrGuildConfigExists
	}
	if !errors.Is(err, domain.ErrNoGuildConfig) {
		return domain.GuildConfig{}, err
	}

	activeRef, archiveRef, err := c.provisioner.CreateGuildCategories(ctx, guildID)
	if err != nil {
		return domain.GuildConfig{}, apperrors.Wrap(apperrors.CodeResourceProvisioningFailed, "create guild categories", err)
	}

	cfg := domain.GuildConfig{
		GuildID:            guildID,
		ActiveCategoryRef:  activeRef,
		ArchiveCategoryRef: archiveRef,
	}
	err = c.withStoreRetry(ctx, "insert guild config", func() error {
		return c.stores.GuildConfig.InsertGuildConfig(ctx, cfg)
	})
	if err != nil {
		// No config row may exist without its categories and vice versa:
		// unwind the categories before surfacing the failure.
		logTeardownError("delete active category", guildID, c.provisioner.DeleteChannel(ctx, activeRef))
		logTeardownError("delete archive category", guildID, c.provisioner.DeleteChannel(ctx, archiveRef))
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.GuildConfig{}, domain.ErrGuildConfigExists
		}
		return domain.GuildConfig{}, err
	}
	return cfg, nil
}
