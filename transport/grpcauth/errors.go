package grpcauth

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dnalock.io/dnalock/challenge"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return challenge.ErrNotFound
	case codes.DeadlineExceeded:
		// Server uses DeadlineExceeded for challenges past their TTL.
		return challenge.ErrExpired
	case codes.FailedPrecondition:
		// Server uses FailedPrecondition for consumed challenges.
		return challenge.ErrAlreadyUsed
	default:
		// Best-effort: if the server sent a known challenge error message, preserve it.
		switch st.Message() {
		case challenge.ErrNotFound.Error():
			return challenge.ErrNotFound
		case challenge.ErrExpired.Error():
			return challenge.ErrExpired
		case challenge.ErrAlreadyUsed.Error():
			return challenge.ErrAlreadyUsed
		default:
			return err
		}
	}
}
