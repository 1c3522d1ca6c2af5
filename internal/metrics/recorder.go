package metrics

import (
	"context"
	"log"
)

// Recorder records usage against a Store. A nil Recorder, or one without a
// store, is a no-op so callers never need to branch on tracking being off.
type Recorder struct {
	store  *Store
	logger *log.Logger
}

// NewRecorder wraps store. logger may be nil.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record increments today's count for endpoint. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, endpoint Endpoint) {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Increment(context.WithoutCancel(ctx), endpoint); err != nil {
		r.logger.Printf("failed to record usage for %s: %v", endpoint, err)
	}
}

// Totals returns cumulative counts, or nil when tracking is disabled.
func (r *Recorder) Totals(ctx context.Context) map[Endpoint]int64 {
	if r == nil || r.store == nil {
		return nil
	}
	totals, err := r.store.GetAllTotals(ctx)
	if err != nil {
		r.logger.Printf("failed to read usage totals: %v", err)
		return nil
	}
	return totals
}

// Store returns the backing store, which may be nil.
func (r *Recorder) Store() *Store {
	if r == nil {
		return nil
	}
	return r.store
}
