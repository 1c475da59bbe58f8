package grpcauth

import (
	"context"
	"crypto/rand"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"dnalock.io/dnalock/challenge"
	"dnalock.io/dnalock/credential"
	"dnalock.io/dnalock/geometry"
	"dnalock.io/dnalock/keys"
)

func mustCommitment(t *testing.T) *geometry.GeometricCommitment {
	t.Helper()
	signer, err := keys.GenerateEd25519Signer(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateEd25519Signer: %v", err)
	}
	g := credential.NewGenerator(signer, "dnalock-test-org")
	cred, err := g.Generate("user@example.com", credential.LevelStandard, credential.PolicyBinding{PolicyID: "policy-default", Version: 1}, 365)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	m, err := geometry.Build(cred, geometry.DoubleHelix, geometry.DefaultMaxPoints)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func startServer(t *testing.T, srv *Server) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterAuthServer(gs, srv)

	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewAuthClient(cc), Timeout: 2 * time.Second}
}

func TestGRPCAuth_RoundTrip(t *testing.T) {
	m := mustCommitment(t)
	srv := NewServer(challenge.NewProtocol())
	srv.RegisterCommitment(m)
	client := startServer(t, srv)

	ch, err := client.IssueChallenge(m.CredentialID)
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	if ch.CredentialID != m.CredentialID {
		t.Fatalf("challenge credential id %q, want %q", ch.CredentialID, m.CredentialID)
	}

	res, err := client.VerifyResponse(ch.ChallengeID, challenge.BuildResponse(m, ch))
	if err != nil {
		t.Fatalf("VerifyResponse: %v", err)
	}
	if !res.Verified {
		t.Fatalf("honest response rejected over transport: %s", res.Reason)
	}

	// Replay over transport surfaces the consumed-challenge sentinel.
	if _, err := client.VerifyResponse(ch.ChallengeID, challenge.BuildResponse(m, ch)); !challenge.IsAlreadyUsed(err) {
		t.Fatalf("replay err = %v, want ErrAlreadyUsed", err)
	}
}

func TestGRPCAuth_UnknownCredential(t *testing.T) {
	srv := NewServer(challenge.NewProtocol())
	client := startServer(t, srv)

	if _, err := client.IssueChallenge("dna-unregistered"); !challenge.IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGRPCAuth_TamperedResponseRejected(t *testing.T) {
	m := mustCommitment(t)
	srv := NewServer(challenge.NewProtocol())
	srv.RegisterCommitment(m)
	client := startServer(t, srv)

	ch, err := client.IssueChallenge(m.CredentialID)
	if err != nil {
		t.Fatalf("IssueChallenge: %v", err)
	}
	resp := challenge.BuildResponse(m, ch)
	resp.Points[0].X += 1.0

	res, err := client.VerifyResponse(ch.ChallengeID, resp)
	if err != nil {
		t.Fatalf("VerifyResponse: %v", err)
	}
	if res.Verified {
		t.Fatalf("drifted coordinate verified over transport")
	}
	if res.Reason != "coordinate mismatch" {
		t.Fatalf("reason %q, want %q", res.Reason, "coordinate mismatch")
	}
}

func TestGRPCAuth_UnknownChallengeID(t *testing.T) {
	m := mustCommitment(t)
	srv := NewServer(challenge.NewProtocol())
	srv.RegisterCommitment(m)
	client := startServer(t, srv)

	if _, err := client.VerifyResponse("no-such-challenge", &challenge.Response{}); !challenge.IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
