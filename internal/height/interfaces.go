package height

import "context"

// HeightProvider defines the interface for querying the latest block height
// of one endpoint.
//
// Implementations must be safe for concurrent use since the quorum reader
// queries every reference endpoint in parallel.
type HeightProvider interface {
	// GetHeight returns the latest block height known to the endpoint.
	// It returns an error on network failure, non-2xx status or a malformed body.
	GetHeight(ctx context.Context) (int64, error)

	// Endpoint identifies the endpoint in logs and metrics.
	Endpoint() string
}

// FailureObserver is told about every failed reference fetch
type FailureObserver interface {
	ObserveFetchFailure(endpoint string)
}
