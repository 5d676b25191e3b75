// Package proto declares the sealvault.v1.RecordService gRPC service. Its
// messages are protobuf well-known types, so no generated code is needed;
// messages.go maps them to typed views.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "sealvault.v1.RecordService"

const (
	RecordService_OpenSession_FullMethodName  = "/" + ServiceName + "/OpenSession"
	RecordService_Submit_FullMethodName       = "/" + ServiceName + "/Submit"
	RecordService_ListRecords_FullMethodName  = "/" + ServiceName + "/ListRecords"
	RecordService_Verify_FullMethodName       = "/" + ServiceName + "/Verify"
	RecordService_SetCandidate_FullMethodName = "/" + ServiceName + "/SetCandidate"
	RecordService_Reveal_FullMethodName       = "/" + ServiceName + "/Reveal"
	RecordService_PublicKey_FullMethodName    = "/" + ServiceName + "/PublicKey"
)

// RecordServiceClient is the client API for RecordService.
type RecordServiceClient interface {
	OpenSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListRecords(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.ListValue, error)
	Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	SetCandidate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Reveal(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	PublicKey(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type recordServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordServiceClient(cc grpc.ClientConnInterface) RecordServiceClient {
	return &recordServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) OpenSession(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, RecordService_OpenSession_FullMethodName, in, opts)
}

func (c *recordServiceClient) Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, RecordService_Submit_FullMethodName, in, opts)
}

func (c *recordServiceClient) ListRecords(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, RecordService_ListRecords_FullMethodName, in, opts)
}

func (c *recordServiceClient) Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, RecordService_Verify_FullMethodName, in, opts)
}

func (c *recordServiceClient) SetCandidate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, RecordService_SetCandidate_FullMethodName, in, opts)
}

func (c *recordServiceClient) Reveal(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return invoke[wrapperspb.BytesValue](ctx, c.cc, RecordService_Reveal_FullMethodName, in, opts)
}

func (c *recordServiceClient) PublicKey(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, RecordService_PublicKey_FullMethodName, in, opts)
}

// RecordServiceServer is the server API for RecordService.
// Implementations must embed UnimplementedRecordServiceServer.
type RecordServiceServer interface {
	OpenSession(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Submit(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	// ListRecords returns one page of the ledger starting at the given
	// offset. An empty page means the offset is past the end.
	ListRecords(context.Context, *wrapperspb.UInt64Value) (*structpb.ListValue, error)
	Verify(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	SetCandidate(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Reveal(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	PublicKey(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	mustEmbedUnimplementedRecordServiceServer()
}

// UnimplementedRecordServiceServer answers every method with codes.Unimplemented.
type UnimplementedRecordServiceServer struct{}

func (UnimplementedRecordServiceServer) OpenSession(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method OpenSession not implemented")
}
func (UnimplementedRecordServiceServer) Submit(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}
func (UnimplementedRecordServiceServer) ListRecords(context.Context, *wrapperspb.UInt64Value) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRecords not implemented")
}
func (UnimplementedRecordServiceServer) Verify(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}
func (UnimplementedRecordServiceServer) SetCandidate(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SetCandidate not implemented")
}
func (UnimplementedRecordServiceServer) Reveal(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Reveal not implemented")
}
func (UnimplementedRecordServiceServer) PublicKey(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method PublicKey not implemented")
}
func (UnimplementedRecordServiceServer) mustEmbedUnimplementedRecordServiceServer() {}

// unary builds a grpc.MethodHandler that decodes Req and dispatches through
// the server's interceptor chain.
func unary[Req any, Resp any](method string, call func(RecordServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RecordService_ServiceDesc is the grpc.ServiceDesc for RecordService.
var RecordService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenSession", Handler: unary(RecordService_OpenSession_FullMethodName, RecordServiceServer.OpenSession)},
		{MethodName: "Submit", Handler: unary(RecordService_Submit_FullMethodName, RecordServiceServer.Submit)},
		{MethodName: "ListRecords", Handler: unary(RecordService_ListRecords_FullMethodName, RecordServiceServer.ListRecords)},
		{MethodName: "Verify", Handler: unary(RecordService_Verify_FullMethodName, RecordServiceServer.Verify)},
		{MethodName: "SetCandidate", Handler: unary(RecordService_SetCandidate_FullMethodName, RecordServiceServer.SetCandidate)},
		{MethodName: "Reveal", Handler: unary(RecordService_Reveal_FullMethodName, RecordServiceServer.Reveal)},
		{MethodName: "PublicKey", Handler: unary(RecordService_PublicKey_FullMethodName, RecordServiceServer.PublicKey)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sealvault/v1/record_service.proto",
}

func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&RecordService_ServiceDesc, srv)
}
