package grpcauth

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"dnalock.io/dnalock/challenge"
	"dnalock.io/dnalock/wire"
)

// Client drives the challenge protocol against a remote Auth service.
type Client struct {
	cc     *grpc.ClientConn
	client AuthClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewAuthClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// IssueChallenge requests a fresh challenge for a credential.
func (c *Client) IssueChallenge(credentialID string) (*challenge.Challenge, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.IssueChallenge(ctx, wrapperspb.String(credentialID))
	if err != nil {
		return nil, mapRPC(err)
	}
	var ch challenge.Challenge
	if err := wire.Unmarshal(reply.GetValue(), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// VerifyResponse submits the holder's openings for a pending challenge.
func (c *Client) VerifyResponse(challengeID string, resp *challenge.Response) (*challenge.Result, error) {
	b, err := wire.Marshal(&VerifyRequest{ChallengeID: challengeID, Response: resp})
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.VerifyResponse(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return nil, mapRPC(err)
	}
	var res challenge.Result
	if err := wire.Unmarshal(reply.GetValue(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
