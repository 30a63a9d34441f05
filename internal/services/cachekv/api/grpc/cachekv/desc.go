// Package cachekv exposes the cache key/value store over gRPC.
//
// The service is described by hand over protobuf well-known types so no
// generated code is needed:
//
//	Get(StringValue key)            -> StringValue value (NotFound on miss)
//	Set(Struct{key,value,ttl_seconds}) -> Empty
//	Delete(StringValue key)         -> BoolValue removed
//	ScanKeys(StringValue prefix)    -> ListValue of string keys
package cachekv

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified service name, also used for health.
const ServiceName = "cachekv.v1.CacheService"

const (
	getMethod      = "/" + ServiceName + "/Get"
	setMethod      = "/" + ServiceName + "/Set"
	deleteMethod   = "/" + ServiceName + "/Delete"
	scanKeysMethod = "/" + ServiceName + "/ScanKeys"
)

// Set request field names.
const (
	fieldKey        = "key"
	fieldValue      = "value"
	fieldTTLSeconds = "ttl_seconds"
)

// CacheServiceServer is the server API for the cache service.
type CacheServiceServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Set(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Delete(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	ScanKeys(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// RegisterCacheServiceServer registers srv on s.
func RegisterCacheServiceServer(s grpc.ServiceRegistrar, srv CacheServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for the cache service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CacheServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Set", Handler: setHandler},
		{MethodName: "Delete", Handler: deleteHandler},
		{MethodName: "ScanKeys", Handler: scanKeysHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cachekv/v1/cache.proto",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CacheServiceServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CacheServiceServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func setHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CacheServiceServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: setMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CacheServiceServer).Set(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CacheServiceServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deleteMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CacheServiceServer).Delete(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func scanKeysHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CacheServiceServer).ScanKeys(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scanKeysMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CacheServiceServer).ScanKeys(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
