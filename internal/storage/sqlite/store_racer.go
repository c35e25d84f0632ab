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

// InsertRacer adds a racer to a race roster.
func (s *Store) InsertRacer(ctx context.Context, racer domain.Racer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	code := strings.TrimSpace(racer.Code)
	if code == "" {
		return fmt.Errorf("race code is required")
	}
	participantID := strings.TrimSpace(racer.ParticipantID)
	if participantID == "" {
		return fmt.Errorf("participant id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO racers (code, id, ishost, ready, finished) VALUES (?, ?, ?, ?, ?)`,
		code,
		participantID,
		racer.IsHost,
		racer.Ready,
		toNullMillis(racer.FinishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return mapTransient(fmt.Errorf("insert racer: %w", err))
	}
	return nil
}

// GetRacer returns one roster record.
func (s *Store) GetRacer(ctx context.Context, code, participantID string) (domain.Racer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Racer{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Racer{}, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	participantID = strings.TrimSpace(participantID)
	if code == "" || participantID == "" {
		return domain.Racer{}, fmt.Errorf("race code and participant id are required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT code, id, ishost, ready, finished FROM racers WHERE code = ? AND id = ?`,
		code,
		participantID,
	)

	var racer domain.Racer
	var finished sql.NullInt64
	err := row.Scan(&racer.Code, &racer.ParticipantID, &racer.IsHost, &racer.Ready, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Racer{}, storage.ErrNotFound
		}
		return domain.Racer{}, mapTransient(fmt.Errorf("get racer: %w", err))
	}
	racer.FinishedAt = fromNullMillis(finished)
	return racer, nil
}

// ListRacers returns the full roster for a race ordered by participant id.
func (s *Store) ListRacers(ctx context.Context, code string) ([]domain.Racer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("race code is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT code, id, ishost, ready, finished FROM racers WHERE code = ? ORDER BY id ASC`,
		code,
	)
	if err != nil {
		return nil, mapTransient(fmt.Errorf("list racers: %w", err))
	}
	defer rows.Close()

	var racers []domain.Racer
	for rows.Next() {
		var racer domain.Racer
		var finished sql.NullInt64
		if err := rows.Scan(&racer.Code, &racer.ParticipantID, &racer.IsHost, &racer.Ready, &finished); err != nil {
			return nil, fmt.Errorf("list racers: %w", err)
		}
		racer.FinishedAt = fromNullMillis(finished)
		racers = append(racers, racer)
	}
	if err := rows.Err(); err != nil {
		return nil, mapTransient(fmt.Errorf("list racers: %w", err))
	}
	return racers, nil
}

// UpdateRacerReady sets a racer's ready flag.
func (s *Store) UpdateRacerReady(ctx context.Context, code, participantID string, ready bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	participantID = strings.TrimSpace(participantID)
	if code == "" || participantID == "" {
		return fmt.Errorf("race code and participant id are required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE racers SET ready = ? WHERE code = ? AND id = ?`,
		ready,
		code,
		participantID,
	)
	if err != nil {
		return mapTransient(fmt.Errorf("update racer ready: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update racer ready: %w", err)
	}
	if affected != 1 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateRacerFinished records a finish instant for a racer that has not
// already finished.
func (s *Store) UpdateRacerFinished(ctx context.Context, code, participantID string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	participantID = strings.TrimSpace(participantID)
	if code == "" || participantID == "" {
		return false, fmt.Errorf("race code and participant id are required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE racers SET finished = ? WHERE code = ? AND id = ? AND finished IS NULL`,
		toMillis(at),
		code,
		participantID,
	)
	if err != nil {
		return false, mapTransient(fmt.Errorf("update racer finished: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update racer finished: %w", err)
	}
	return affected == 1, nil
}
