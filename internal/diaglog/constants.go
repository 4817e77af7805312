package diaglog

import "time"

// Batching defaults
const (
	DefaultMaxBatch   = 32
	DefaultFlushDelay = 500 * time.Millisecond

	// Batches waiting for the writer; further batches are dropped.
	pendingBatches = 16

	timestampLayout = "15:04:05"
)
