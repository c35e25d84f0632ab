package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReportFinish records a participant's result for a running race. A genuine
// finish is stamped with the current instant; a forfeit is stamped with the
// race start plus the configured penalty. Each participant's result records
// exactly once. When the last open result lands, the race tears down.
func (c *Coordinator) ReportFinish(ctx context.Context, code, participantID string, outcome domain.Outcome) (time.Duration, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.ReportFinish",
		trace.WithAttributes(
			attribute.String("race.code", code),
			attribute.String("race.participant", participantID),
			attribute.String("race.outcome", outcome.String()),
		))
	defer span.End()

	unlock := c.lockRace(code)
	race, err := c.raceByCode(ctx, code)
	if err != nil {
		unlock()
		return 0, err
	}
	if err := domain.EnsureStarted(race); err != nil {
		unlock()
		return 0, err
	}

	finishedAt := c.clock()
	if outcome == domain.OutcomeForfeited {
		finishedAt = race.StartedAt.Add(c.cfg.ForfeitPenalty)
	}

	var recorded bool
	err = c.withStoreRetry(ctx, "record finish", func() error {
		var err error
		recorded, err = c.stores.Racer.UpdateRacerFinished(ctx, code, participantID, finishedAt)
		return err
	})
	unlock()
	if err != nil {
		return 0, err
	}
	if !recorded {
		return 0, domain.ErrNotRacing
	}

	elapsed := finishedAt.Sub(*race.StartedAt)
	if outcome == domain.OutcomeForfeited {
		c.notify(ctx, race.Resources.ChannelRef, fmt.Sprintf("%s has forfeited from the race.", c.cfg.Mention(participantID)))
	} else {
		c.notify(ctx, race.Resources.ChannelRef, fmt.Sprintf(
			"%s has finished the race with an official time of %s", c.cfg.Mention(participantID), elapsed))
	}

	if err := c.CheckCompletion(ctx, code); err != nil {
		return elapsed, err
	}
	return elapsed, nil
}

// CheckCompletion archives the race if every participant has a recorded
// result. Safe to call at any time; incomplete races are left untouched.
func (c *Coordinator) CheckCompletion(ctx context.Context, code string) error {
	racers, err := c.Roster(ctx, code)
	if err != nil {
		return err
	}
	if len(racers) == 0 {
		return nil
	}
	for _, racer := range racers {
		if !racer.Finished() {
			return nil
		}
	}

	_, err = c.endRace(ctx, code, "The race has finished. The channel will now be archived.")
	return err
}

// CancelRace aborts a race on behalf of its host and tears it down. Works
// at any point before archival; canceling an already-archived race is a
// silent no-op.
func (c *Coordinator) CancelRace(ctx context.Context, code, participantID string) error {
	ctx, span := c.tracer.Start(ctx, "Coordinator.CancelRace",
		trace.WithAttributes(
			attribute.String("race.code", code),
			attribute.String("race.participant", participantID),
		))
	defer span.End()

	race, err := c.raceByCode(ctx, code)
	if err != nil {
		return err
	}
	if domain.StatusOf(race) == domain.StatusArchived {
		return nil
	}
	var caller domain.Racer
	err = c.withStoreRetry(ctx, "get racer", func() error {
		var err error
		caller, err = c.stores.Racer.GetRacer(ctx, code, participantID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrNotHost
		}
		return err
	}
	if err := domain.EnsureHost(caller); err != nil {
		return err
	}

	_, err = c.endRace(ctx, code, "The race has been canceled. The channel will now be archived.")
	return err
}

// EndRace archives a race: the durable archival marker and the roster
// delete commit first, then the platform resources tear down. The archival
// write is compare-and-set, so concurrent or repeated calls perform the
// teardown at most once.
func (c *Coordinator) EndRace(ctx context.Context, code string) error {
	_, err := c.endRace(ctx, code, "")
	return err
}

// endRace performs the archival CAS and teardown, reporting whether this
// call won the archival. The farewell, if any, is announced only by the
// winner, so losers of the CAS never re-announce a teardown.
func (c *Coordinator) endRace(ctx context.Context, code, farewell string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.EndRace",
		trace.WithAttributes(attribute.String("race.code", code)))
	defer span.End()

	unlock := c.lockRace(code)
	race, err := c.raceByCode(ctx, code)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrRaceDoesNotExist) {
			return false, nil
		}
		return false, err
	}

	var archived bool
	at := c.clock()
	err = c.withStoreRetry(ctx, "archive race", func() error {
		var err error
		archived, err = c.stores.Race.ArchiveRace(ctx, code, at)
		return err
	})
	unlock()
	if err != nil {
		return false, err
	}
	if !archived {
		return false, nil
	}
	if farewell != "" {
		c.notify(ctx, race.Resources.ChannelRef, farewell)
	}

	// Archival committed; teardown failures leave stray platform resources
	// but never resurrect the race.
	cfg, err := c.EnsureGuildReady(ctx, race.GuildID)
	if err != nil {
		logTeardownError("load guild config", code, err)
		return true, nil
	}
	logTeardownError("archive race channel", code,
		c.provisioner.ArchiveChannel(ctx, race.Resources.ChannelRef, cfg.ArchiveCategoryRef))
	if race.Resources.VoiceRef != "" {
		logTeardownError("archive voice channel", code,
			c.provisioner.ArchiveChannel(ctx, race.Resources.VoiceRef, cfg.ArchiveCategoryRef))
	}
	logTeardownError("release role", code,
		c.provisioner.ReleaseRole(ctx, race.GuildID, race.Resources.RoleRef))
	return true, nil
}
