package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/PikalaxALT/dumbsparce/internal/platform/errors"
	"github.com/PikalaxALT/dumbsparce/internal/platform/id"
	"github.com/PikalaxALT/dumbsparce/internal/race/domain"
	"github.com/PikalaxALT/dumbsparce/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func defaultNewCode(seed time.Time) string {
	return id.NewRaceCode(seed)
}

// CreateRace opens a new race hosted by hostID. It provisions the race
// channel and role, then atomically records the race and its host racer.
// Provisioning and the durable insert are all-or-nothing: a failed insert
// releases the provisioned resources, and a failed provisioning leaves
// nothing durable behind. Code collisions are retried a bounded number of
// times with fresh codes.
func (c *Coordinator) CreateRace(ctx context.Context, guildID, hostID string, teamless bool) (domain.Race, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.CreateRace",
		trace.WithAttributes(
			attribute.String("guild.id", guildID),
			attribute.Bool("race.teamless", teamless),
		))
	defer span.End()

	cfg, err := c.EnsureGuildReady(ctx, guildID)
	if err != nil {
		return domain.Race{}, err
	}

	var insertErr error
	for attempt := 0; attempt < c.cfg.CodeAttempts; attempt++ {
		code := c.newCode(c.clock())
		resources, err := c.provisioner.CreateRaceChannel(ctx, cfg, code, teamless)
		if err != nil {
			return domain.Race{}, apperrors.Wrap(apperrors.CodeResourceProvisioningFailed, "create race channel", err)
		}

		race := domain.Race{
			Code:      code,
			GuildID:   guildID,
			HostID:    hostID,
			Resources: resources,
		}
		host := domain.Racer{Code: code, ParticipantID: hostID, IsHost: true}
		insertErr = c.withStoreRetry(ctx, "insert race", func() error {
			return c.stores.Race.InsertRace(ctx, race, host)
		})
		if insertErr == nil {
			if err := c.provisioner.AssignRole(ctx, guildID, hostID, resources.RoleRef); err != nil {
				logTeardownError("assign host role", code, err)
			}
			c.notify(ctx, resources.ChannelRef, fmt.Sprintf(
				"%s: You are the host of this race. When everyone has joined in and is ready, start the race. Race code: %s",
				c.cfg.Mention(hostID), code))
			return race, nil
		}

		// The insert did not commit; the provisioned resources must not
		// outlive it.
		c.releaseResources(ctx, guildID, code, resources)
		if !errors.Is(insertErr, storage.ErrCodeCollision) {
			return domain.Race{}, insertErr
		}
	}
	return domain.Race{}, apperrors.Wrap(apperrors.CodeCodeCollision, "create race: code collisions exhausted retries", insertErr)
}

// releaseResources tears down provisioned race resources after a failed
// insert. Failures are logged; there is no durable record to unwind.
func (c *Coordinator) releaseResources(ctx context.Context, guildID, code string, resources domain.Resources) {
	logTeardownError("delete race channel", code, c.provisioner.DeleteChannel(ctx, resources.ChannelRef))
	if resources.VoiceRef != "" {
		logTeardownError("delete voice channel", code, c.provisioner.DeleteChannel(ctx, resources.VoiceRef))
	}
	logTeardownError("release role", code, c.provisioner.ReleaseRole(ctx, guildID, resources.RoleRef))
}

// JoinRace adds a participant to an open race. Joining a race whose start
// fence is set fails with RACE_ALREADY_STARTED; joining twice fails with
// ALREADY_JOINED (a deterministic error, not a silent no-op).
func (c *Coordinator) JoinRace(ctx context.Context, code, participantID string) (domain.Race, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.JoinRace",
		trace.WithAttributes(
			attribute.String("race.code", code),
			attribute.String("race.participant", participantID),
		))
	defer span.End()

	unlock := c.lockRace(code)
	race, err := c.raceByCode(ctx, code)
	if err != nil {
		unlock()
		return domain.Race{}, err
	}
	if err := domain.EnsureJoinable(race); err != nil {
		unlock()
		return domain.Race{}, err
	}
	err = c.withStoreRetry(ctx, "insert racer", func() error {
		return c.stores.Racer.InsertRacer(ctx, domain.Racer{Code: code, ParticipantID: participantID})
	})
	unlock()
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Race{}, domain.ErrAlreadyJoined
		}
		return domain.Race{}, err
	}

	if err := c.provisioner.AssignRole(ctx, race.GuildID, participantID, race.Resources.RoleRef); err != nil {
		logTeardownError("assign racer role", code, err)
	}
	c.notify(ctx, race.Resources.ChannelRef, fmt.Sprintf("Player %s has joined the race!", c.cfg.Mention(participantID)))
	return race, nil
}

// ToggleReady flips a racer's ready flag before the race starts and returns
// the new state.
func (c *Coordinator) ToggleReady(ctx context.Context, code, participantID string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.ToggleReady",
		trace.WithAttributes(
			attribute.String("race.code", code),
			attribute.String("race.participant", participantID),
		))
	defer span.End()

	unlock := c.lockRace(code)
	defer unlock()

	race, err := c.raceByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if err := domain.EnsureNotStarted(race); err != nil {
		return false, err
	}

	var racer domain.Racer
	err = c.withStoreRetry(ctx, "get racer", func() error {
		var err error
		racer, err = c.stores.Racer.GetRacer(ctx, code, participantID)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, domain.ErrNotRacing
		}
		return false, err
	}

	ready := !racer.Ready
	err = c.withStoreRetry(ctx, "update racer ready", func() error {
		return c.stores.Racer.UpdateRacerReady(ctx, code, participantID, ready)
	})
	if err != nil {
		return false, err
	}

	if ready {
		c.notify(ctx, race.Resources.ChannelRef, fmt.Sprintf("%s is ready to start!", c.cfg.Mention(participantID)))
	} else {
		c.notify(ctx, race.Resources.ChannelRef, fmt.Sprintf("%s is no longer ready to start.", c.cfg.Mention(participantID)))
	}
	return ready, nil
}

// Race returns current durable state for a race.
func (c *Coordinator) Race(ctx context.Context, code string) (domain.Race, error) {
	return c.raceByCode(ctx, code)
}

// RaceByChannel resolves the race bound to a channel, for commands issued
// inside a race channel without an explicit code.
func (c *Coordinator) RaceByChannel(ctx context.Context, channelRef string) (domain.Race, error) {
	var race domain.Race
	err := c.withStoreRetry(ctx, "get race by channel", func() error {
		var err error
		race, err = c.stores.Race.GetRaceByChannel(ctx, channelRef)
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

// Roster returns the current racer roster for a race.
func (c *Coordinator) Roster(ctx context.Context, code string) ([]domain.Racer, error) {
	var racers []domain.Racer
	err := c.withStoreRetry(ctx, "list racers", func() error {
		var err error
		racers, err = c.stores.Racer.ListRacers(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return racers, nil
}
