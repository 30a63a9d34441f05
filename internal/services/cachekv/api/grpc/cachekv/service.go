package cachekv

import (
	"context"
	"errors"
	"math"
	"time"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
	"github.com/louisbranch/cartstore/internal/services/cachekv/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service exposes cachekv.v1 gRPC operations.
type Service struct {
	store storage.Store
}

// NewService creates a cache service backed by store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Get returns the live value for a key.
func (s *Service) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get request is required")
	}
	if s == nil || s.store == nil {
		return nil, status.Error(codes.Internal, "cache store is not configured")
	}
	value, err := s.store.Get(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(value), nil
}

// Set stores a value with a TTL.
func (s *Service) Set(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "set request is required")
	}
	if s == nil || s.store == nil {
		return nil, status.Error(codes.Internal, "cache store is not configured")
	}
	fields := in.GetFields()
	key := fields[fieldKey].GetStringValue()
	value := fields[fieldValue].GetStringValue()
	ttl, err := ttlFromSeconds(fields[fieldTTLSeconds].GetNumberValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Delete removes a key and reports whether a live entry existed.
func (s *Service) Delete(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "delete request is required")
	}
	if s == nil || s.store == nil {
		return nil, status.Error(codes.Internal, "cache store is not configured")
	}
	removed, err := s.store.Delete(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(removed), nil
}

// ScanKeys lists live keys under a prefix.
func (s *Service) ScanKeys(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "scan request is required")
	}
	if s == nil || s.store == nil {
		return nil, status.Error(codes.Internal, "cache store is not configured")
	}
	keys, err := s.store.ScanKeys(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	values := make([]*structpb.Value, 0, len(keys))
	for _, key := range keys {
		values = append(values, structpb.NewStringValue(key))
	}
	return &structpb.ListValue{Values: values}, nil
}

func ttlFromSeconds(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds <= 0 || seconds > math.MaxInt64/float64(time.Second) {
		return 0, apperrors.New(apperrors.CodeCacheTTLInvalid, "ttl_seconds must be a positive number")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func toStatus(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return status.Error(codes.NotFound, "key not found")
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.ToGRPCStatus()
	}
	return status.Error(codes.Internal, err.Error())
}

var _ CacheServiceServer = (*Service)(nil)
