package domain

import "time"

// StockUpdate is one conditional decrement: set stock to NewStock only if
// the row still holds ExpectedStock (the value observed at validation time).
type StockUpdate struct {
	ProductID     int64
	ExpectedStock int
	NewStock      int
}

// InsufficientItem reports one cart line that cannot be fulfilled. Unknown
// products are reported with Available = 0.
type InsufficientItem struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// Reservation records a fulfilled purchase. It is persisted in the same
// transaction as the stock decrements.
type Reservation struct {
	ID        string
	Lines     Cart
	CreatedAt time.Time
}
