package port

import (
	"context"
	"errors"

	"github.com/rl1809/checkout/internal/core/domain"
)

var (
	// ErrStockConflict signals that a conditional stock update did not match:
	// another writer changed the observed baseline between read and write.
	ErrStockConflict = errors.New("stock conflict")

	ErrProductNotFound = errors.New("product not found")
)

type InventoryRepository interface {
	// GetStockSnapshot bulk-reads the products for the given ids. Unknown ids
	// are simply absent from the returned map, never an error.
	GetStockSnapshot(ctx context.Context, ids []int64) (map[int64]domain.Product, error)

	// Reserve applies every conditional update and persists the reservation
	// as a single atomic unit. If any update's expected stock no longer
	// holds, nothing is applied and ErrStockConflict is returned.
	Reserve(ctx context.Context, res domain.Reservation, updates []domain.StockUpdate) error

	// ListProducts returns the full catalog.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// GetProduct retrieves one product, or ErrProductNotFound.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// CreateProduct inserts a new product and returns it with its assigned id.
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
}
