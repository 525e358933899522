package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/checkout/internal/core/domain"
	"github.com/rl1809/checkout/internal/port"
)

// DefaultMaxAttempts bounds how often a purchase is retried after losing
// the optimistic write race. Contention windows are sub-millisecond, so
// there is no backoff between attempts.
const DefaultMaxAttempts = 3

var (
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrContentionExhausted = errors.New("contention attempts exhausted")
)

// InsufficientStockError carries every cart line that cannot be fulfilled,
// not just the first one found.
type InsufficientStockError struct {
	Items []domain.InsufficientItem
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Items))
}

// Receipt is the result of a fulfilled purchase: the reservation id and the
// post-decrement product records.
type Receipt struct {
	ReservationID string
	Products      []domain.Product
}

type CheckoutService struct {
	inventory   port.InventoryRepository
	cache       port.CacheRepository // optional, nil disables idempotency
	metrics     port.MetricsRecorder
	maxAttempts int
	logger      zerolog.Logger
}

func NewCheckoutService(inventory port.InventoryRepository, cache port.CacheRepository, metrics port.MetricsRecorder, maxAttempts int, logger zerolog.Logger) *CheckoutService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if metrics == nil {
		metrics = port.NopMetrics()
	}
	return &CheckoutService{
		inventory:   inventory,
		cache:       cache,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Purchase runs one cart through snapshot read, validation and conditional
// reservation. All decrements land atomically or not at all. A lost
// optimistic race is retried against a fresh snapshot up to the attempt
// bound; any other store error is terminal and never retried, since
// retrying a failed transactional write risks double-application.
func (s *CheckoutService) Purchase(ctx context.Context, requestID string, cart domain.Cart) (receipt *Receipt, err error) {
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	if s.cache != nil && requestID != "" {
		key := "purchase:" + requestID
		ok, err := s.cache.SetIdempotency(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
		// A claim is only kept for fulfilled purchases; anything else frees
		// the key so the client may replay the same request id.
		defer func() {
			if receipt != nil {
				return
			}
			if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.Warn().Err(relErr).Str("request_id", requestID).Msg("failed to release idempotency key")
			}
		}()
	}

	ids := cart.ProductIDs()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		snapshot, err := s.inventory.GetStockSnapshot(ctx, ids)
		if err != nil {
			s.metrics.PurchaseOutcome("error")
			return nil, fmt.Errorf("read stock snapshot: %w", err)
		}

		updates, insufficient := PlanReservation(cart, snapshot)
		if len(insufficient) > 0 {
			s.metrics.PurchaseOutcome("rejected")
			return nil, &InsufficientStockError{Items: insufficient}
		}

		res := domain.Reservation{
			ID:        uuid.New().String(),
			Lines:     cart.Merged(),
			CreatedAt: time.Now(),
		}

		// The write runs to completion even if the caller disconnects: an
		// aborted mid-flight write would leave the extent of the commit
		// unknown. A discarded result is cheaper than an undefined store.
		err = s.inventory.Reserve(context.WithoutCancel(ctx), res, updates)
		if errors.Is(err, port.ErrStockConflict) {
			s.metrics.StockConflict()
			s.logger.Debug().
				Int("attempt", attempt).
				Str("reservation_id", res.ID).
				Msg("stock conflict, retrying with fresh snapshot")
			continue
		}
		if err != nil {
			s.metrics.PurchaseOutcome("error")
			return nil, fmt.Errorf("reserve stock: %w", err)
		}

		s.metrics.PurchaseOutcome("fulfilled")
		return &Receipt{ReservationID: res.ID, Products: updatedProducts(snapshot, updates)}, nil
	}

	s.metrics.PurchaseOutcome("contention")
	return nil, ErrContentionExhausted
}

// updatedProducts builds the post-decrement records from the snapshot the
// committed write was conditioned on.
func updatedProducts(snapshot map[int64]domain.Product, updates []domain.StockUpdate) []domain.Product {
	products := make([]domain.Product, 0, len(updates))
	for _, u := range updates {
		p := snapshot[u.ProductID]
		p.Stock = u.NewStock
		products = append(products, p)
	}
	return products
}
