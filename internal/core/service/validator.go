package service

import "github.com/rl1809/checkout/internal/core/domain"

// PlanReservation decides whether a cart is fulfillable against a stock
// snapshot and, if so, computes the conditional updates to apply. Duplicate
// cart lines are merged first so each product appears exactly once in the
// plan. Products missing from the snapshot count as insufficient with
// available 0. Every violation is collected, not just the first, so the
// caller can report the whole cart in one round trip.
//
// Pure function: no I/O, deterministic over its inputs.
func PlanReservation(cart domain.Cart, snapshot map[int64]domain.Product) ([]domain.StockUpdate, []domain.InsufficientItem) {
	merged := cart.Merged()

	var insufficient []domain.InsufficientItem
	updates := make([]domain.StockUpdate, 0, len(merged))

	for _, line := range merged {
		p, ok := snapshot[line.ProductID]
		if !ok {
			insufficient = append(insufficient, domain.InsufficientItem{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: 0,
			})
			continue
		}
		if p.Stock < line.Quantity {
			insufficient = append(insufficient, domain.InsufficientItem{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.Stock,
			})
			continue
		}
		updates = append(updates, domain.StockUpdate{
			ProductID:     line.ProductID,
			ExpectedStock: p.Stock,
			NewStock:      p.Stock - line.Quantity,
		})
	}

	if len(insufficient) > 0 {
		return nil, insufficient
	}
	return updates, nil
}
