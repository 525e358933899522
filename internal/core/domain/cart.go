package domain

import (
	"errors"
	"math"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrQuantityTooLarge    = errors.New("quantity exceeds the allowed maximum")
)

// MaxQuantity bounds a single line and the merged total per product. Keeping
// quantities far below the int range means summing duplicate lines cannot
// overflow into a value that would slip past the stock comparison.
const MaxQuantity = math.MaxInt32

type CartLine struct {
	ProductID int64
	Quantity  int
}

// Cart is the ordered list of lines from one purchase request. Duplicate
// product ids are allowed on the wire and summed by Merged.
type Cart []CartLine

// Validate screens malformed input before any store access. A zero or
// negative quantity is rejected rather than ignored, and both individual
// lines and merged per-product totals must stay within MaxQuantity.
func (c Cart) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCart
	}
	for _, line := range c {
		if line.Quantity <= 0 {
			return ErrNonPositiveQuantity
		}
		if line.Quantity > MaxQuantity {
			return ErrQuantityTooLarge
		}
	}
	for _, line := range c.Merged() {
		if line.Quantity > MaxQuantity {
			return ErrQuantityTooLarge
		}
	}
	return nil
}

// Merged sums duplicate product ids so each product is checked and
// decremented exactly once per request. First-seen order is preserved.
func (c Cart) Merged() Cart {
	merged := make(Cart, 0, len(c))
	index := make(map[int64]int, len(c))

	for _, line := range c {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// ProductIDs returns the distinct product ids in first-seen order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	seen := make(map[int64]struct{}, len(c))

	for _, line := range c {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
