package port

type MetricsRecorder interface {
	// PurchaseOutcome counts a finished purchase request by outcome
	// ("fulfilled", "rejected", "contention", "error").
	PurchaseOutcome(outcome string)

	// StockConflict counts one lost optimistic write, including the ones
	// recovered by retry.
	StockConflict()
}

type nopMetrics struct{}

func (nopMetrics) PurchaseOutcome(string) {}
func (nopMetrics) StockConflict()         {}

// NopMetrics returns a recorder that discards everything. Useful as a safe fallback.
func NopMetrics() MetricsRecorder { return nopMetrics{} }
