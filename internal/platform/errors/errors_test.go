package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeRaceAlreadyStarted, "race already started")
	target := New(CodeRaceAlreadyStarted, "different message")
	if !stderrors.Is(err, target) {
		t.Fatalf("expected errors with equal codes to match")
	}
	other := New(CodeNotHost, "not host")
	if stderrors.Is(err, other) {
		t.Fatalf("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(CodeStoreUnavailable, "store unavailable", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be discoverable")
	}
	if err.Error() != "store unavailable" {
		t.Fatalf("expected internal message, got %q", err.Error())
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeNoGuildConfig, codes.NotFound},
		{CodeRaceDoesNotExist, codes.NotFound},
		{CodeGuildConfigExists, codes.AlreadyExists},
		{CodeAlreadyJoined, codes.AlreadyExists},
		{CodeRaceNotStarted, codes.FailedPrecondition},
		{CodeRaceAlreadyStarted, codes.FailedPrecondition},
		{CodeNotEnoughRacers, codes.FailedPrecondition},
		{CodeNotReady, codes.FailedPrecondition},
		{CodeNotRacing, codes.FailedPrecondition},
		{CodeNotHost, codes.PermissionDenied},
		{CodeCodeCollision, codes.Aborted},
		{CodeStoreUnavailable, codes.Unavailable},
		{CodeResourceProvisioningFailed, codes.Internal},
		{CodeUnknown, codes.Internal},
	}
	for _, tc := range cases {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Fatalf("code %s: expected %v, got %v", tc.code, tc.want, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !CodeCodeCollision.Retryable() {
		t.Fatalf("expected code collision to be retryable")
	}
	if !CodeStoreUnavailable.Retryable() {
		t.Fatalf("expected store unavailable to be retryable")
	}
	if CodeNotHost.Retryable() {
		t.Fatalf("expected not host to be fatal")
	}
}

func TestToGRPCStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeNotRacing, "participant is not racing", map[string]string{
		"race_code":   "ABC123",
		"participant": "42",
	})

	grpcErr := err.ToGRPCStatus("en-US", "You are not a participant in this race.")
	st, ok := status.FromError(grpcErr)
	if !ok {
		t.Fatalf("expected a gRPC status error")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", st.Code())
	}
	if st.Message() != "participant is not racing" {
		t.Fatalf("expected internal message, got %q", st.Message())
	}
	if len(st.Details()) != 2 {
		t.Fatalf("expected 2 details, got %d", len(st.Details()))
	}
}
