package refereerpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ardamas/internal/domain/checkers"
	"ardamas/internal/domain/message"
)

const (
	ServiceName      = "ardamas.Referee"
	VerifyFullMethod   = "/" + ServiceName + "/Verify"
)

type VerifyRequest struct {
	Moves []message.Move `json:"moves"`
}

type VerifyResponse struct {
	Checksum      string           `json:"checksum"`
	Winner        *checkers.Player `json:"winner,omitempty"`
	CurrentPlayer checkers.Player  `json:"currentPlayer"`
	Applied       int              `json:"applied"`
	IllegalAt     int              `json:"illegalAt"`
	Reason        string           `json:"reason,omitempty"`
}

type RefereeServer interface {
	Verify(context.Context, *VerifyRequest) (*VerifyResponse, error)
}

// UnimplementedRefereeServer can be embedded to keep a server compiling when
// methods are added.
type UnimplementedRefereeServer struct{}

func (UnimplementedRefereeServer) Verify(context.Context, *VerifyRequest) (*VerifyResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Verify not implemented")
}

func RegisterRefereeServer(s grpc.ServiceRegistrar, srv RefereeServer) {
	s.RegisterService(&Referee_ServiceDesc, srv)
}

func _Referee_Verify_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(VerifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RefereeServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: VerifyFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RefereeServer).Verify(ctx, req.(*VerifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var Referee_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RefereeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Verify",
			Handler:    _Referee_Verify_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "referee",
}

type RefereeClient interface {
	Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error)
}

type refereeClient struct {
	cc grpc.ClientConnInterface
}

func NewRefereeClient(cc grpc.ClientConnInterface) RefereeClient {
	return &refereeClient{cc}
}

func (c *refereeClient) Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*VerifyResponse, error) {
	out := new(VerifyResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, VerifyFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
