// Package storage defines persistence contracts for race coordination state.
//
// The coordinator is the sole writer of race and racer records; no in-memory
// cache is authoritative. Implementations must make every multi-row effect
// within one operation atomic.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrCodeCollision indicates a race insert lost the code primary key.
	ErrCodeCollision = errors.New("race code collision")
	// ErrUnavailable indicates a transient store failure worth retrying.
	ErrUnavailable = errors.New("store unavailable")
)

// GuildConfigStore persists one configuration record per guild.
type GuildConfigStore interface {
	// GetGuildConfig returns the guild's config or ErrNotFound.
	GetGuildConfig(ctx context.Context, guildID string) (domain.GuildConfig, error)
	// InsertGuildConfig records the one-time guild setup or ErrAlreadyExists.
	InsertGuildConfig(ctx context.Context, cfg domain.GuildConfig) error
}

// RaceStore persists race records.
type RaceStore interface {
	// InsertRace atomically records a race and its host racer.
	// Returns ErrCodeCollision when the code is already taken.
	InsertRace(ctx context.Context, race domain.Race, host domain.Racer) error
	// GetRace returns a race by code or ErrNotFound.
	GetRace(ctx context.Context, code string) (domain.Race, error)
	// GetRaceByChannel returns the race bound to a channel or ErrNotFound.
	GetRaceByChannel(ctx context.Context, channelRef string) (domain.Race, error)
	// FenceRaceStart sets the start fence if and only if the race is still
	// open. It reports whether this call won the fence.
	FenceRaceStart(ctx context.Context, code string, at time.Time) (bool, error)
	// UpdateRaceStarted records the authoritative start instant for a fenced
	// race that has not been archived. It reports whether the instant was
	// recorded; false means the race was never fenced, already started, or
	// was archived before the countdown completed.
	UpdateRaceStarted(ctx context.Context, code string, at time.Time) (bool, error)
	// ArchiveRace marks the race archived and deletes its roster in one
	// atomic unit. It reports whether this call performed the archival;
	// false means the race was already archived and nothing changed.
	ArchiveRace(ctx context.Context, code string, at time.Time) (bool, error)
}

// RacerStore persists racer roster records.
type RacerStore interface {
	// InsertRacer adds a racer to a roster or returns ErrAlreadyExists.
	InsertRacer(ctx context.Context, racer domain.Racer) error
	// GetRacer returns one roster record or ErrNotFound.
	GetRacer(ctx context.Context, code, participantID string) (domain.Racer, error)
	// ListRacers returns the full roster for a race.
	ListRacers(ctx context.Context, code string) ([]domain.Racer, error)
	// UpdateRacerReady sets a racer's ready flag.
	UpdateRacerReady(ctx context.Context, code, participantID string, ready bool) error
	// UpdateRacerFinished records a finish instant if and only if the racer
	// has not already finished. It reports whether this call recorded it.
	UpdateRacerFinished(ctx context.Context, code, participantID string, at time.Time) (bool, error)
}
