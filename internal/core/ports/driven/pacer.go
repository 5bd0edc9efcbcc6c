package driven

import "context"

// Pacer applies backpressure between ingestion batches.
// Wait blocks until the next batch may start or ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}
