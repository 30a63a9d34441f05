package cachekv

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/cartstore/internal/platform/timeouts"
	cartstorage "github.com/louisbranch/cartstore/internal/services/cart/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the cart primary tier backed by a remote cache service.
type Client struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

// NewClient wraps conn. Each call is bounded by timeouts.CacheRequest.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn, timeout: timeouts.CacheRequest}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("cache client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.conn.Invoke(ctx, method, in, out)
}

// Get returns the value for key, or storage.ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, getMethod, wrapperspb.String(key), out); err != nil {
		if status.Code(err) == codes.NotFound {
			return "", cartstorage.ErrNotFound
		}
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return out.GetValue(), nil
}

// Set stores value under key for ttl.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldKey:        structpb.NewStringValue(key),
		fieldValue:      structpb.NewStringValue(value),
		fieldTTLSeconds: structpb.NewNumberValue(ttl.Seconds()),
	}}
	if err := c.invoke(ctx, setMethod, in, new(emptypb.Empty)); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes key and reports whether a live entry existed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.invoke(ctx, deleteMethod, wrapperspb.String(key), out); err != nil {
		return false, fmt.Errorf("cache delete %s: %w", key, err)
	}
	return out.GetValue(), nil
}

// ScanKeys lists live keys starting with prefix.
func (c *Client) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, scanKeysMethod, wrapperspb.String(prefix), out); err != nil {
		return nil, fmt.Errorf("cache scan %s: %w", prefix, err)
	}
	keys := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		keys = append(keys, v.GetStringValue())
	}
	return keys, nil
}

var _ cartstorage.PrimaryTier = (*Client)(nil)
