package domain

// Guard predicates are pure checks over state fetched within the same logical
// operation. Callers must hold the operation's per-race critical section so a
// passed guard stays true until the paired mutation commits.

// EnsureJoinable verifies a race still accepts new racers.
func EnsureJoinable(r Race) error {
	if StatusOf(r) != StatusOpen {
		return ErrRaceAlreadyStarted
	}
	return nil
}

// EnsureNotStarted verifies the start fence has not been set.
func EnsureNotStarted(r Race) error {
	if StatusOf(r) != StatusOpen {
		return ErrRaceAlreadyStarted
	}
	return nil
}

// EnsureStarted verifies the race is running with an authoritative start time.
func EnsureStarted(r Race) error {
	if StatusOf(r) != StatusRunning {
		return ErrRaceNotStarted
	}
	return nil
}

// EnsureHost verifies the racer hosts the race.
func EnsureHost(r Racer) error {
	if !r.IsHost {
		return ErrNotHost
	}
	return nil
}

// EnsureRacing verifies the racer has not yet finished or forfeited.
func EnsureRacing(r Racer) error {
	if r.Finished() {
		return ErrNotRacing
	}
	return nil
}

// EnsureQuorum verifies the readiness condition that gates a start: at least
// MinRacers racers, every one of them ready. Partial readiness never permits
// a start.
func EnsureQuorum(racers []Racer) error {
	if len(racers) < MinRacers {
		return ErrNotEnoughRacers
	}
	for _, racer := range racers {
		if !racer.Ready {
			return ErrNotReady
		}
	}
	return nil
}
