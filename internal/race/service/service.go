// Package service implements the race session coordinator.
//
// The coordinator owns every race and racer state transition. Each mutating
// operation runs as an atomic check-and-set unit scoped to a single race: a
// per-code critical section around reads and guard checks, paired with
// transactional or compare-and-set writes in the store. The coordinator holds
// no cross-call in-memory authority; every decision is made against durable
// state fetched within the operation.
package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	apperrors "github.com/PikalaxALT/dumbsparce/internal/platform/errors"
	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrStoreUnavailable indicates the store stayed unavailable through the
	// bounded retry budget.
	ErrStoreUnavailable = apperrors.New(apperrors.CodeStoreUnavailable, "store unavailable, try again")
	// ErrProvisioningFailed indicates platform resources could not be
	// provisioned; any paired durable insert has been unwound.
	ErrProvisioningFailed = apperrors.New(apperrors.CodeResourceProvisioningFailed, "platform resource provisioning failed")
	// ErrCodeExhausted indicates repeated race code collisions exhausted the
	// bounded retry budget.
	ErrCodeExhausted = apperrors.New(apperrors.CodeCodeCollision, "could not generate a unique race code")
)

// Stores groups the storage interfaces the coordinator depends on.
type Stores struct {
	GuildConfig storage.GuildConfigStore
	Race        storage.RaceStore
	Racer       storage.RacerStore
}

// Provisioner manages platform resources for races. Implementations are thin
// I/O wrappers; all sequencing and rollback decisions stay in the coordinator.
type Provisioner interface {
	// CreateGuildCategories provisions the active and archive categories for
	// one-time guild setup.
	CreateGuildCategories(ctx context.Context, guildID string) (activeRef, archiveRef string, err error)
	// CreateRaceChannel provisions the role and channels for one race.
	// Teamless races get no voice channel.
	CreateRaceChannel(ctx context.Context, cfg domain.GuildConfig, code string, teamless bool) (domain.Resources, error)
	// AssignRole grants a participant the race role.
	AssignRole(ctx context.Context, guildID, participantID, roleRef string) error
	// ArchiveChannel moves a channel under the archive category and clears
	// its permission overwrites.
	ArchiveChannel(ctx context.Context, channelRef, archiveCategoryRef string) error
	// DeleteChannel removes a provisioned channel.
	DeleteChannel(ctx context.Context, channelRef string) error
	// ReleaseRole deletes the race role.
	ReleaseRole(ctx context.Context, guildID, roleRef string) error
}

// Notifier delivers human-readable race events. Delivery is fire-and-forget:
// failures must never roll back a committed state transition, so the
// interface surfaces no error.
type Notifier interface {
	Notify(ctx context.Context, channelRef, message string)
}

// Config tunes coordinator behavior. Zero values select the defaults.
type Config struct {
	// ForfeitPenalty is the recorded duration for a forfeiting participant:
	// their finish instant is startedAt + ForfeitPenalty.
	ForfeitPenalty time.Duration
	// CountdownFrom is the first countdown tick value.
	CountdownFrom int
	// TickInterval is the pause between countdown ticks.
	TickInterval time.Duration
	// CodeAttempts bounds race code collision retries.
	CodeAttempts int
	// StoreAttempts bounds transient store failure retries.
	StoreAttempts int
	// RetryBackoff is the initial backoff between store retries; it doubles
	// on each attempt.
	RetryBackoff time.Duration
	// Mention formats a participant ID for display in notifications.
	Mention func(participantID string) string
}

const (
	defaultCountdownFrom = 5
	defaultTickInterval  = time.Second
	defaultCodeAttempts  = 3
	defaultStoreAttempts = 3
	defaultRetryBackoff  = 100 * time.Millisecond
)

// Coordinator drives race lifecycles against durable storage.
type Coordinator struct {
	stores      Stores
	provisioner Provisioner
	notifier    Notifier
	cfg         Config
	clock       func() time.Time
	sleep       func(context.Context, time.Duration) error
	newCode     func(time.Time) string
	tracer      trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator creates a race coordinator with default dependencies.
func NewCoordinator(stores Stores, provisioner Provisioner, notifier Notifier, cfg Config) *Coordinator {
	if cfg.ForfeitPenalty <= 0 {
		cfg.ForfeitPenalty = domain.DefaultForfeitPenalty
	}
	if cfg.CountdownFrom <= 0 {
		cfg.CountdownFrom = defaultCountdownFrom
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = defaultCodeAttempts
	}
	if cfg.StoreAttempts <= 0 {
		cfg.StoreAttempts = defaultStoreAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Mention == nil {
		cfg.Mention = func(participantID string) string { return participantID }
	}
	return &Coordinator{
		stores:      stores,
		provisioner: provisioner,
		notifier:    notifier,
		cfg:         cfg,
		clock:       time.Now,
		sleep:       sleepContext,
		newCode:     defaultNewCode,
		tracer:      otel.Tracer("racehub/coordinator"),
		locks:       map[string]*sync.Mutex{},
	}
}

// sleepContext pauses for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lockRace enters the per-race critical section. Races are independent of
// each other, so no global lock is ever taken around store access.
func (c *Coordinator) lockRace(code string) func() {
	c.mu.Lock()
	l, ok := c.locks[code]
	if !ok {
		l = &sync.Mutex{}
		c.locks[code] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// withStoreRetry runs fn, retrying transient store failures with doubling
// backoff before surfacing a user-visible "try again" error.
func (c *Coordinator) withStoreRetry(ctx context.Context, op string, fn func() error) error {
	backoff := c.cfg.RetryBackoff
	var err error
	for attempt := 0; attempt < c.cfg.StoreAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, storage.ErrUnavailable) {
			return err
		}
		if sleepErr := c.sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
	}
	return apperrors.Wrap(apperrors.CodeStoreUnavailable, op+": store unavailable", err)
}

// notify delivers a race event, if a sink is configured.
func (c *Coordinator) notify(ctx context.Context, channelRef, message string) {
	if c.notifier == nil || channelRef == "" {
		return
	}
	c.notifier.Notify(ctx, channelRef, message)
}

// raceByCode loads current race state or reports that no race matches.
func (c *Coordinator) raceByCode(ctx context.Context, code string) (domain.Race, error) {
	var race domain.Race
	err := c.withStoreRetry(ctx, "get race", func() error {
		var err error
		race, err = c.stores.Race.GetRace(ctx, code)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Race{}, domain.ErrRaceDoesNotExist
		}
		return domain.Race{}, err
	}
	return race, nil
}

// logTeardownError records a failed resource release. Teardown runs after the
// terminal transition commits, so failures are operational noise, never a
// reason to unwind state.
func logTeardownError(op, code string, err error) {
	if err != nil {
		log.Printf("race %s: %s: %v", code, op, err)
	}
}
