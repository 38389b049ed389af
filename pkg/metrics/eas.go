package metrics

import (
	"time"
)

// EASMetrics provides observability for the ActiveSync endpoint.
//
// Implementations collect per-command request metrics, sync batch sizes,
// and the suspended Ping population. The interface is optional - pass
// nil to disable collection with zero overhead.
type EASMetrics interface {
	// RecordRequest records a completed command with its duration and
	// HTTP status.
	//
	// Parameters:
	//   - cmd: ActiveSync command name (e.g., "Sync", "Ping")
	//   - duration: Time taken to process the request
	//   - httpStatus: Final HTTP status code (200, 401, 449, 500)
	RecordRequest(cmd string, duration time.Duration, httpStatus int)

	// RecordRequestStart increments the in-flight request counter.
	RecordRequestStart(cmd string)

	// RecordRequestEnd decrements the in-flight request counter.
	RecordRequestEnd(cmd string)

	// RecordSyncBatch records the item count of one delivered Sync batch.
	RecordSyncBatch(items int)

	// RecordPayloadBytes records a response payload size.
	RecordPayloadBytes(cmd string, bytes int)
}
