// Package store orchestrates the primary and fallback tiers for carts.
//
// Every public operation probes the primary tier once and routes from that
// answer. Saves go to both tiers and succeed when either persisted; reads
// prefer the primary tier and repair the fallback from it. Tier failures
// never escape as Go errors: they are collected in Result.Errors.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
	"github.com/louisbranch/cartstore/internal/services/cart/codec"
	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"github.com/louisbranch/cartstore/internal/services/cart/storage"
	"github.com/louisbranch/cartstore/internal/services/cart/storage/memory"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cartstore"

// Result reports the outcome of a store operation.
type Result struct {
	// Success is true when the operation took effect on at least one tier.
	Success bool
	// Found is true when the targeted cart (or item) existed.
	Found bool
	// Errors lists every tier, decode and probe failure encountered.
	Errors []error
}

// Err joins Errors into one error, or nil.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Degraded reports whether any tier failed during the operation.
func (r Result) Degraded() bool {
	return len(r.Errors) > 0
}

// EventPublisher receives notifications after carts are persisted or removed.
type EventPublisher interface {
	CartSaved(ctx context.Context, cart domain.Cart) error
	CartDeleted(ctx context.Context, id string) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides cart id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLogger sets the logger for degraded paths.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPublisher enables cart event publication.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// WithFallback replaces the fallback tier created from Config.
func WithFallback(fallback *memory.Store) Option {
	return func(s *Store) {
		if fallback != nil {
			s.fallback = fallback
		}
	}
}

// Store is the dual-tier cart store.
type Store struct {
	cfg       Config
	primary   storage.PrimaryTier
	fallback  *memory.Store
	probe     *Probe
	codec     codec.Codec
	locks     *cartLocks
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger
	publisher EventPublisher
	tracer    trace.Tracer
}

// New builds a store over primary. A nil primary runs the store on the
// fallback tier alone.
func New(cfg Config, primary storage.PrimaryTier, opts ...Option) (*Store, error) {
	cfg = cfg.normalized()
	s := &Store{
		cfg:     cfg,
		primary: primary,
		locks:   newCartLocks(),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  zerolog.Nop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		fallback, err := memory.Open(cfg.FallbackCapacity)
		if err != nil {
			return nil, fmt.Errorf("open fallback tier: %w", err)
		}
		s.fallback = fallback
	}
	s.probe = NewProbe(primary, cfg.ProbeTimeout)
	s.codec = codec.Codec{Now: s.clock, NewID: s.newID}
	return s, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.cfg
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

func (s *Store) key(id string) string {
	return s.cfg.KeyPrefix + id
}

// op is the per-operation state shared by the public methods.
type op struct {
	ctx       context.Context
	span      trace.Span
	available bool
	errs      []error
}

// begin opens a span and runs the single availability probe for the call.
func (s *Store) begin(ctx context.Context, name, id string) *op {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, "cartstore."+name,
		trace.WithAttributes(attribute.String("cart.id", id)))
	o := &op{ctx: ctx, span: span}
	available, err := s.probe.Available(ctx)
	o.available = available
	if err != nil {
		s.logger.Warn().Err(err).Str("op", name).Str("cart_id", id).Msg("primary tier unavailable")
		o.errs = append(o.errs, err)
	}
	span.SetAttributes(attribute.Bool("cart.tier1_available", available))
	return o
}

func (o *op) end() {
	for _, err := range o.errs {
		o.span.RecordError(err)
	}
	o.span.End()
}

func (o *op) fail(err error) {
	o.errs = append(o.errs, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}

func missingIDError() error {
	return apperrors.New(apperrors.CodeValidation, "cart id is required")
}

// Get returns the cart stored under id.
func (s *Store) Get(ctx context.Context, id string) (domain.Cart, Result) {
	id = normalizeID(id)
	if id == "" {
		return domain.Cart{}, Result{Errors: []error{missingIDError()}}
	}
	unlock := s.locks.lock(id)
	defer unlock()

	o := s.begin(ctx, "Get", id)
	defer o.end()

	cart, found := s.load(o, id)
	return cart, Result{Success: found, Found: found, Errors: o.errs}
}

// GetOrCreate returns the cart stored under id, creating and persisting an
// empty one when absent. A blank id gets a fresh one. It always returns a
// usable cart; when nothing could be persisted the cart lives only in the
// caller's hands and Result.Success is false.
func (s *Store) GetOrCreate(ctx context.Context, id string) (domain.Cart, Result) {
	id = normalizeID(id)
	if id == "" {
		id = s.newID()
	}
	unlock := s.locks.lock(id)
	defer unlock()

	o := s.begin(ctx, "GetOrCreate", id)
	defer o.end()

	if cart, found := s.load(o, id); found {
		return cart, Result{Success: true, Found: true, Errors: o.errs}
	}

	cart := domain.New(id, s.clock())
	success := s.persist(o, &cart)
	if !success {
		s.logger.Error().Str("cart_id", id).Msg("no tier persisted new cart, returning emergency cart")
	}
	return cart, Result{Success: success, Errors: o.errs}
}

// Save persists cart to both tiers. UpdatedAt is always stamped, CreatedAt
// when zero, and a blank id is replaced with a fresh one. The only error
// returned is CART_VALIDATION for a nil cart or an invalid item set.
func (s *Store) Save(ctx context.Context, cart *domain.Cart) (Result, error) {
	if cart == nil {
		return Result{}, apperrors.New(apperrors.CodeValidation, "cart is nil")
	}
	cart.ID = normalizeID(cart.ID)
	if cart.ID == "" {
		cart.ID = s.newID()
	}
	if err := cart.Validate(); err != nil {
		return Result{}, err
	}
	unlock := s.locks.lock(cart.ID)
	defer unlock()

	o := s.begin(ctx, "Save", cart.ID)
	defer o.end()

	success := s.persist(o, cart)
	return Result{Success: success, Found: true, Errors: o.errs}, nil
}

// Delete removes id from both tiers. Success is true once the fallback tier
// has processed the delete, even if nothing was there; Found reports whether
// either tier held the cart. Primary tier failures land in Errors.
func (s *Store) Delete(ctx context.Context, id string) Result {
	id = normalizeID(id)
	if id == "" {
		return Result{Errors: []error{missingIDError()}}
	}
	unlock := s.locks.lock(id)
	defer unlock()

	o := s.begin(ctx, "Delete", id)
	defer o.end()

	found := s.fallback.Delete(id)
	if o.available {
		removed, err := s.primary.Delete(o.ctx, s.key(id))
		if err != nil {
			s.tierError(o, id, "delete from primary tier", err)
		} else {
			found = found || removed
		}
	}
	if found {
		s.publishDeleted(o.ctx, id)
	}
	return Result{Success: true, Found: found, Errors: o.errs}
}

// load applies the read policy: primary first with fallback repair, then the
// fallback tier.
func (s *Store) load(o *op, id string) (domain.Cart, bool) {
	if o.available {
		payload, err := s.primary.Get(o.ctx, s.key(id))
		switch {
		case err == nil:
			cart, decodeErr := s.codec.Decode(payload)
			if decodeErr == nil {
				cart.ID = id
				cart.UpdatedAt = s.clock()
				s.putFallback(o, cart)
				return cart, true
			}
			s.logger.Warn().Err(decodeErr).Str("cart_id", id).Msg("discarding undecodable primary entry")
			o.fail(apperrors.WrapWithMetadata(apperrors.CodeDecode, "decode primary entry",
				map[string]string{"cart_id": id}, decodeErr))
		case isNotFound(err):
		default:
			s.tierError(o, id, "read from primary tier", err)
		}
	}
	return s.fallback.Get(id)
}

// persist stamps timestamps and writes both tiers. It reports whether either
// tier accepted the cart.
func (s *Store) persist(o *op, cart *domain.Cart) bool {
	now := s.clock()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if cart.Items == nil {
		cart.Items = []domain.Item{}
	}

	fallbackOK := s.fallback != nil
	s.putFallback(o, *cart)

	primaryOK := false
	if o.available {
		payload, err := s.codec.Encode(*cart)
		if err != nil {
			o.fail(err)
		} else if err := s.primary.Set(o.ctx, s.key(cart.ID), payload, s.cfg.PrimaryTTL); err != nil {
			s.tierError(o, cart.ID, "write to primary tier", err)
		} else {
			primaryOK = true
		}
	}

	persisted := fallbackOK || primaryOK
	if persisted {
		s.publishSaved(o.ctx, *cart)
	}
	return persisted
}

// putFallback writes cart to the fallback tier and reports every cart a capped
// tier dropped to make room for it.
func (s *Store) putFallback(o *op, cart domain.Cart) {
	for _, id := range s.fallback.Put(cart) {
		s.logger.Error().Str("cart_id", id).Str("stored_cart_id", cart.ID).
			Bool("primary_available", o.available).Msg("fallback tier full, evicted cart")
		o.fail(apperrors.WithMetadata(apperrors.CodeFallbackEvicted, "fallback tier full, evicted cart "+id,
			map[string]string{"cart_id": id}))
	}
}

func (s *Store) tierError(o *op, id, action string, err error) {
	s.logger.Warn().Err(err).Str("cart_id", id).Msg(action + " failed")
	o.fail(apperrors.WrapWithMetadata(apperrors.CodeTierIO, action,
		map[string]string{"cart_id": id}, err))
}

func (s *Store) publishSaved(ctx context.Context, cart domain.Cart) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.CartSaved(ctx, cart); err != nil {
		s.logger.Warn().Err(err).Str("cart_id", cart.ID).Msg("publish cart saved")
	}
}

func (s *Store) publishDeleted(ctx context.Context, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.CartDeleted(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("cart_id", id).Msg("publish cart deleted")
	}
}
