package grpcauth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AuthServer is the server API for the Auth gRPC service.
//
// We intentionally use protobuf well-known wrapper types so this package does
// not require a protoc/codegen toolchain: requests and replies carry canonical
// CBOR payloads inside BytesValue.
//
// Proto definition: auth.proto.
type AuthServer interface {
	IssueChallenge(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	VerifyResponse(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedAuthServer can be embedded to have forward compatible implementations.
type UnimplementedAuthServer struct{}

func (UnimplementedAuthServer) IssueChallenge(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method IssueChallenge not implemented")
}
func (UnimplementedAuthServer) VerifyResponse(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyResponse not implemented")
}

// RegisterAuthServer registers the Auth service on a gRPC server.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&Auth_ServiceDesc, srv)
}

// AuthClient is the client API for the Auth gRPC service.
type AuthClient interface {
	IssueChallenge(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	VerifyResponse(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type authClient struct{ cc grpc.ClientConnInterface }

func NewAuthClient(cc grpc.ClientConnInterface) AuthClient { return &authClient{cc: cc} }

func (c *authClient) IssueChallenge(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/dnalock.auth.v1.Auth/IssueChallenge", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authClient) VerifyResponse(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/dnalock.auth.v1.Auth/VerifyResponse", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func _Auth_IssueChallenge_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).IssueChallenge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dnalock.auth.v1.Auth/IssueChallenge"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).IssueChallenge(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Auth_VerifyResponse_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).VerifyResponse(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dnalock.auth.v1.Auth/VerifyResponse"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).VerifyResponse(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Auth_ServiceDesc is the grpc.ServiceDesc for the Auth service.
var Auth_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "dnalock.auth.v1.Auth",
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IssueChallenge", Handler: _Auth_IssueChallenge_Handler},
		{MethodName: "VerifyResponse", Handler: _Auth_VerifyResponse_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auth.proto",
}
