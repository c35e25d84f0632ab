package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartRace begins the race on behalf of its host. The host guard, quorum
// check and the durable start fence all commit inside the per-race critical
// section; from the instant the fence is written no further joins are
// accepted. The countdown then runs outside the lock and the official start
// instant is recorded exactly once when it completes.
func (c *Coordinator) StartRace(ctx context.Context, code, participantID string) error {
	ctx, span := c.tracer.Start(ctx, "Coordinator.StartRace",
		trace.WithAttributes(
			attribute.String("race.code", code),
			attribute.String("race.participant", participantID),
		))
	defer span.End()

	race, err := c.fenceStart(ctx, code, participantID)
	if err != nil {
		return err
	}

	c.notify(ctx, race.Resources.ChannelRef, "Countdown started!")
	for tick := c.cfg.CountdownFrom; tick >= 1; tick-- {
		if err := c.sleep(ctx, c.cfg.TickInterval); err != nil {
			break
		}
		c.notify(ctx, race.Resources.ChannelRef, fmt.Sprintf("%d...", tick))
	}

	// The fence is durable: once it committed the race is starting, even if
	// the caller's context died mid-countdown. Record the official start
	// against a context that cannot be canceled.
	recordCtx := context.WithoutCancel(ctx)
	startedAt := c.clock()
	var recorded bool
	err = c.withStoreRetry(recordCtx, "record race start", func() error {
		var err error
		recorded, err = c.stores.Race.UpdateRaceStarted(recordCtx, code, startedAt)
		return err
	})
	if err != nil {
		return err
	}
	if !recorded {
		// The race was canceled and archived during the countdown. Archival
		// is terminal: no start instant, no announcement.
		return nil
	}
	c.notify(recordCtx, race.Resources.ChannelRef, "GO!!!")
	return nil
}

// fenceStart validates the start request and commits the durable fence,
// all under the per-race lock.
func (c *Coordinator) fenceStart(ctx context.Context, code, participantID string) (domain.Race, error) {
	unlock := c.lockRace(code)
	defer unlock()

	race, err := c.raceByCode(ctx, code)
	if err != nil {
		return domain.Race{}, err
	}

	var caller domain.Racer
	err = c.withStoreRetry(ctx, "get racer", func() error {
		var err error
		caller, err = c.stores.Racer.GetRacer(ctx, code, participantID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Race{}, domain.ErrNotHost
		}
		return domain.Race{}, err
	}
	if err := domain.EnsureHost(caller); err != nil {
		return domain.Race{}, err
	}
	if err := domain.EnsureNotStarted(race); err != nil {
		return domain.Race{}, err
	}

	racers, err := c.Roster(ctx, code)
	if err != nil {
		return domain.Race{}, err
	}
	if err := domain.EnsureQuorum(racers); err != nil {
		return domain.Race{}, err
	}

	var fenced bool
	at := c.clock()
	err = c.withStoreRetry(ctx, "fence race start", func() error {
		var err error
		fenced, err = c.stores.Race.FenceRaceStart(ctx, code, at)
		return err
	})
	if err != nil {
		return domain.Race{}, err
	}
	if !fenced {
		return domain.Race{}, domain.ErrRaceAlreadyStarted
	}
	return race, nil
}
