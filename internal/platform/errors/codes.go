// Package errors provides structured error handling for race coordination.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Guild configuration errors
	CodeNoGuildConfig     Code = "NO_GUILD_CONFIG"
	CodeGuildConfigExists Code = "GUILD_CONFIG_EXISTS"

	// Race lifecycle errors
	CodeRaceDoesNotExist   Code = "RACE_DOES_NOT_EXIST"
	CodeCodeCollision      Code = "CODE_COLLISION"
	CodeRaceNotStarted     Code = "RACE_NOT_STARTED"
	CodeRaceAlreadyStarted Code = "RACE_ALREADY_STARTED"
	CodeNotEnoughRacers    Code = "NOT_ENOUGH_RACERS"
	CodeNotReady           Code = "NOT_READY"

	// Racer errors
	CodeNotHost       Code = "NOT_HOST"
	CodeNotRacing     Code = "NOT_RACING"
	CodeAlreadyJoined Code = "ALREADY_JOINED"

	// Infrastructure errors
	CodeStoreUnavailable           Code = "STORE_UNAVAILABLE"
	CodeResourceProvisioningFailed Code = "RESOURCE_PROVISIONING_FAILED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// NotFound - resource doesn't exist
	case CodeNoGuildConfig,
		CodeRaceDoesNotExist:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeGuildConfigExists,
		CodeAlreadyJoined:
		return codes.AlreadyExists

	// FailedPrecondition - state doesn't allow operation
	case CodeRaceNotStarted,
		CodeRaceAlreadyStarted,
		CodeNotEnoughRacers,
		CodeNotReady,
		CodeNotRacing:
		return codes.FailedPrecondition

	// PermissionDenied - host-only operation
	case CodeNotHost:
		return codes.PermissionDenied

	// Aborted - retryable conflicts
	case CodeCodeCollision:
		return codes.Aborted

	// Unavailable - transient store failures
	case CodeStoreUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// Retryable reports whether an operation failing with this code may be retried
// as-is by the caller.
func (c Code) Retryable() bool {
	switch c {
	case CodeCodeCollision, CodeStoreUnavailable:
		return true
	default:
		return false
	}
}
