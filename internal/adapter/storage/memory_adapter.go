package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/checkout/internal/core/domain"
	"github.com/rl1809/checkout/internal/port"
)

// MemoryAdapter is an in-process InventoryRepository with the same
// conditional-update semantics as the MySQL implementation. It backs the
// handler tests and lets the server run without external infrastructure.
type MemoryAdapter struct {
	mu           sync.Mutex
	products     map[int64]domain.Product
	reservations map[string]domain.Reservation
	nextID       int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		products:     make(map[int64]domain.Product),
		reservations: make(map[string]domain.Reservation),
	}
}

func (m *MemoryAdapter) GetStockSnapshot(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			snapshot[id] = p
		}
	}
	return snapshot, nil
}

func (m *MemoryAdapter) Reserve(ctx context.Context, res domain.Reservation, updates []domain.StockUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Verify every baseline before touching anything, so a conflict on any
	// line leaves the whole set untouched.
	for _, u := range updates {
		p, ok := m.products[u.ProductID]
		if !ok || p.Stock != u.ExpectedStock {
			return port.ErrStockConflict
		}
	}

	now := time.Now()
	for _, u := range updates {
		p := m.products[u.ProductID]
		p.Stock = u.NewStock
		p.UpdatedAt = now
		m.products[u.ProductID] = p
	}
	m.reservations[res.ID] = res

	return nil
}

func (m *MemoryAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	products := make([]domain.Product, 0, len(m.products))
	for id := int64(1); id <= m.nextID; id++ {
		if p, ok := m.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, port.ErrProductNotFound
	}
	return &p, nil
}

func (m *MemoryAdapter) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p

	return &p, nil
}

// GetReservation exposes stored reservations for assertions in tests.
func (m *MemoryAdapter) GetReservation(id string) (domain.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[id]
	return res, ok
}
