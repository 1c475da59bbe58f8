// Package grpcauth exposes the challenge protocol over gRPC.
//
// The server side holds geometric commitments registered out-of-band (for
// example at credential issuance); the client side never sends the full
// commitment over the wire, only openings for the indices it was challenged
// on.
package grpcauth

import (
	"context"
	"log/slog"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"dnalock.io/dnalock/challenge"
	"dnalock.io/dnalock/geometry"
	"dnalock.io/dnalock/wire"
)

// VerifyRequest is the CBOR payload of a VerifyResponse RPC.
type VerifyRequest struct {
	ChallengeID string              `cbor:"challengeId"`
	Response    *challenge.Response `cbor:"response"`
}

// Server exposes a challenge.Protocol over the Auth gRPC service.
type Server struct {
	UnimplementedAuthServer
	Protocol *challenge.Protocol

	mu          sync.RWMutex
	commitments map[string]*geometry.GeometricCommitment
}

// NewServer wraps a protocol instance.
func NewServer(p *challenge.Protocol) *Server {
	return &Server{
		Protocol:    p,
		commitments: make(map[string]*geometry.GeometricCommitment),
	}
}

// RegisterCommitment makes a credential's commitment challengeable. Later
// registrations for the same credential replace the earlier one.
func (s *Server) RegisterCommitment(m *geometry.GeometricCommitment) {
	s.mu.Lock()
	s.commitments[m.CredentialID] = m
	s.mu.Unlock()
}

func (s *Server) commitment(credentialID string) (*geometry.GeometricCommitment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.commitments[credentialID]
	return m, ok
}

func (s *Server) IssueChallenge(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Protocol == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing protocol")
	}
	credentialID := in.GetValue()
	m, ok := s.commitment(credentialID)
	if !ok {
		return nil, status.Error(codes.NotFound, "no commitment registered for credential")
	}

	ch, err := s.Protocol.IssueChallenge(m)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue challenge",
			"operation", "issue_challenge",
			"credential_id", credentialID,
			"error", err,
		)
		return nil, status.Error(codes.Internal, "challenge issuance failed")
	}

	b, err := wire.Marshal(ch)
	if err != nil {
		return nil, status.Error(codes.Internal, "challenge encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) VerifyResponse(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Protocol == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing protocol")
	}
	var req VerifyRequest
	if err := wire.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed verify request")
	}
	if req.ChallengeID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing challenge id")
	}

	res, err := s.Protocol.VerifyResponse(req.ChallengeID, req.Response)
	if err != nil {
		return nil, mapErr(err)
	}
	if !res.Verified {
		slog.InfoContext(ctx, "challenge response rejected",
			"operation", "verify_response",
			"challenge_id", req.ChallengeID,
			"reason", res.Reason,
		)
	}

	b, err := wire.Marshal(res)
	if err != nil {
		return nil, status.Error(codes.Internal, "result encoding failed")
	}
	return wrapperspb.Bytes(b), nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case challenge.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case challenge.IsExpired(err):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case challenge.IsAlreadyUsed(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
