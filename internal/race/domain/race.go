package domain

import (
	"time"

	apperrors "github.com/PikalaxALT/dumbsparce/internal/platform/errors"
)

var (
	// ErrNoGuildConfig indicates the guild has not run the one-time setup.
	ErrNoGuildConfig = apperrors.New(apperrors.CodeNoGuildConfig, "guild is not configured for races")
	// ErrGuildConfigExists indicates the guild already has a race category.
	ErrGuildConfigExists = apperrors.New(apperrors.CodeGuildConfigExists, "guild already has a race category")
	// ErrRaceDoesNotExist indicates no race matches the given code or channel.
	ErrRaceDoesNotExist = apperrors.New(apperrors.CodeRaceDoesNotExist, "race does not exist")
	// ErrRaceNotStarted indicates an operation that requires a running race.
	ErrRaceNotStarted = apperrors.New(apperrors.CodeRaceNotStarted, "race has not started")
	// ErrRaceAlreadyStarted indicates the race start fence is already set.
	ErrRaceAlreadyStarted = apperrors.New(apperrors.CodeRaceAlreadyStarted, "race has already started")
	// ErrNotHost indicates a host-only operation issued by a non-host.
	ErrNotHost = apperrors.New(apperrors.CodeNotHost, "only the race host may do this")
	// ErrNotRacing indicates the participant is not an active racer.
	ErrNotRacing = apperrors.New(apperrors.CodeNotRacing, "participant is not racing")
	// ErrAlreadyJoined indicates a duplicate join for the same race.
	ErrAlreadyJoined = apperrors.New(apperrors.CodeAlreadyJoined, "participant already joined this race")
	// ErrNotEnoughRacers indicates a start attempt below quorum.
	ErrNotEnoughRacers = apperrors.New(apperrors.CodeNotEnoughRacers, "need at least two racers to start")
	// ErrNotReady indicates a start attempt with unready racers.
	ErrNotReady = apperrors.New(apperrors.CodeNotReady, "all racers must be ready to start")
)

// MinRacers is the quorum required to start a race.
const MinRacers = 2

// DefaultForfeitPenalty is the recorded duration for a forfeiting participant
// when no penalty is configured.
const DefaultForfeitPenalty = 5 * time.Hour

// GuildConfig holds the per-guild category handles for race channels.
// It is created once by guild setup and never mutated.
type GuildConfig struct {
	GuildID            string
	ActiveCategoryRef  string
	ArchiveCategoryRef string
}

// Resources holds the opaque platform handles provisioned for one race.
// VoiceRef is empty for teamless races.
type Resources struct {
	ChannelRef string
	RoleRef    string
	VoiceRef   string
}

// Race is one timed competitive session.
type Race struct {
	Code       string
	GuildID    string
	HostID     string
	StartingAt *time.Time // start fence; set when the countdown begins
	StartedAt  *time.Time // authoritative start instant; set exactly once
	ArchivedAt *time.Time // terminal marker; set by EndRace
	Resources  Resources
}

// Racer is a participant's membership record within one race.
type Racer struct {
	Code          string
	ParticipantID string
	IsHost        bool
	Ready         bool
	FinishedAt    *time.Time
}

// Finished reports whether the racer has recorded a finish or forfeit.
func (r Racer) Finished() bool {
	return r.FinishedAt != nil
}

// Status describes where a race is in its lifecycle.
type Status int

const (
	// StatusOpen means the race accepts joins and ready toggles.
	StatusOpen Status = iota
	// StatusStarting means the start fence is set and the countdown is running.
	StatusStarting
	// StatusRunning means the race has started and racers are finishing.
	StatusRunning
	// StatusArchived is terminal: roster deleted, resources released.
	StatusArchived
)

// String returns the label for a race status.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusStarting:
		return "STARTING"
	case StatusRunning:
		return "RUNNING"
	case StatusArchived:
		return "ARCHIVED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusOf derives the lifecycle status from a race's durable fields.
func StatusOf(r Race) Status {
	switch {
	case r.ArchivedAt != nil:
		return StatusArchived
	case r.StartedAt != nil:
		return StatusRunning
	case r.StartingAt != nil:
		return StatusStarting
	default:
		return StatusOpen
	}
}

// Outcome describes how a participant ended their race.
type Outcome int

const (
	// OutcomeFinished records the participant's actual finish instant.
	OutcomeFinished Outcome = iota
	// OutcomeForfeited records the start instant plus the forfeit penalty.
	OutcomeForfeited
)

// String returns the label for an outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "FINISHED"
	case OutcomeForfeited:
		return "FORFEITED"
	default:
		return "UNSPECIFIED"
	}
}
