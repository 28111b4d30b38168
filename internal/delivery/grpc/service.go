package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "payout.v1.PayoutService"

	GetPayoutMethod    = "/" + ServiceName + "/GetPayout"
	SubmitPayoutMethod = "/" + ServiceName + "/SubmitPayout"
)

// PayoutServiceServer is served over well-known message types so that no
// generated code is needed on either side.
type PayoutServiceServer interface {
	GetPayout(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	SubmitPayout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PayoutServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPayout", Handler: getPayoutHandler},
		{MethodName: "SubmitPayout", Handler: submitPayoutHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payout/v1/payout.proto",
}

func RegisterPayoutServiceServer(s grpc.ServiceRegistrar, srv PayoutServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getPayoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PayoutServiceServer).GetPayout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetPayoutMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PayoutServiceServer).GetPayout(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func submitPayoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PayoutServiceServer).SubmitPayout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitPayoutMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PayoutServiceServer).SubmitPayout(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type PayoutServiceClient interface {
	GetPayout(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	SubmitPayout(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type payoutServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPayoutServiceClient(cc grpc.ClientConnInterface) PayoutServiceClient {
	return &payoutServiceClient{cc: cc}
}

func (c *payoutServiceClient) GetPayout(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetPayoutMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *payoutServiceClient) SubmitPayout(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SubmitPayoutMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
