package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
)

const raceColumns = `code, guild, host, starting, started, archived, channel, role, voicechan`

// InsertRace atomically records a race and its host racer.
func (s *Store) InsertRace(ctx context.Context, race domain.Race, host domain.Racer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	code := strings.TrimSpace(race.Code)
	if code == "" {
		return fmt.Errorf("race code is required")
	}
	if strings.TrimSpace(race.GuildID) == "" {
		return fmt.Errorf("guild id is required")
	}
	if strings.TrimSpace(race.HostID) == "" {
		return fmt.Errorf("host id is required")
	}
	if host.ParticipantID != race.HostID || !host.IsHost {
		return fmt.Errorf("host racer must match the race host")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return mapTransient(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO races (`+raceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code,
		race.GuildID,
		race.HostID,
		toNullMillis(race.StartingAt),
		toNullMillis(race.StartedAt),
		toNullMillis(race.ArchivedAt),
		race.Resources.ChannelRef,
		race.Resources.RoleRef,
		toNullString(race.Resources.VoiceRef),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrCodeCollision
		}
		return mapTransient(fmt.Errorf("insert race: %w", err))
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO racers (code, id, ishost, ready, finished) VALUES (?, ?, 1, ?, ?)`,
		code,
		host.ParticipantID,
		host.Ready,
		toNullMillis(host.FinishedAt),
	)
	if err != nil {
		return mapTransient(fmt.Errorf("insert host racer: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return mapTransient(fmt.Errorf("commit insert race: %w", err))
	}
	return nil
}

// GetRace returns a race by code.
func (s *Store) GetRace(ctx context.Context, code string) (domain.Race, error) {
	if err := ctx.Err(); err != nil {
		return domain.Race{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Race{}, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Race{}, fmt.Errorf("race code is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+raceColumns+` FROM races WHERE code = ?`,
		code,
	)
	return scanRace(row)
}

// GetRaceByChannel returns the race bound to a channel.
func (s *Store) GetRaceByChannel(ctx context.Context, channelRef string) (domain.Race, error) {
	if err := ctx.Err(); err != nil {
		return domain.Race{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Race{}, fmt.Errorf("storage is not configured")
	}
	channelRef = strings.TrimSpace(channelRef)
	if channelRef == "" {
		return domain.Race{}, fmt.Errorf("channel ref is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+raceColumns+` FROM races WHERE channel = ?`,
		channelRef,
	)
	return scanRace(row)
}

// FenceRaceStart sets the start fence for a race that is still open.
func (s *Store) FenceRaceStart(ctx context.Context, code string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false, fmt.Errorf("race code is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE races SET starting = ?
		  WHERE code = ? AND starting IS NULL AND started IS NULL AND archived IS NULL`,
		toMillis(at),
		code,
	)
	if err != nil {
		return false, mapTransient(fmt.Errorf("fence race start: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fence race start: %w", err)
	}
	return affected == 1, nil
}

// UpdateRaceStarted records the authoritative start instant after the
// countdown completes. The fence must already be set and the race must not
// have been archived in the meantime.
func (s *Store) UpdateRaceStarted(ctx context.Context, code string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false, fmt.Errorf("race code is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE races SET started = ?
		  WHERE code = ? AND starting IS NOT NULL AND started IS NULL AND archived IS NULL`,
		toMillis(at),
		code,
	)
	if err != nil {
		return false, mapTransient(fmt.Errorf("update race started: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update race started: %w", err)
	}
	return affected == 1, nil
}

// ArchiveRace marks the race archived and deletes its roster in one
// transaction. A second call is a no-op.
func (s *Store) ArchiveRace(ctx context.Context, code string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false, fmt.Errorf("race code is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, mapTransient(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE races SET archived = ? WHERE code = ? AND archived IS NULL`,
		toMillis(at),
		code,
	)
	if err != nil {
		return false, mapTransient(fmt.Errorf("archive race: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archive race: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM racers WHERE code = ?`, code); err != nil {
		return false, mapTransient(fmt.Errorf("delete racers: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return false, mapTransient(fmt.Errorf("commit archive race: %w", err))
	}
	return true, nil
}

func scanRace(row *sql.Row) (domain.Race, error) {
	var race domain.Race
	var starting, started, archived sql.NullInt64
	var voice sql.NullString
	err := row.Scan(
		&race.Code,
		&race.GuildID,
		&race.HostID,
		&starting,
		&started,
		&archived,
		&race.Resources.ChannelRef,
		&race.Resources.RoleRef,
		&voice,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Race{}, storage.ErrNotFound
		}
		return domain.Race{}, mapTransient(fmt.Errorf("get race: %w", err))
	}
	race.StartingAt = fromNullMillis(starting)
	race.StartedAt = fromNullMillis(started)
	race.ArchivedAt = fromNullMillis(archived)
	race.Resources.VoiceRef = fromNullString(voice)
	return race, nil
}
