package height

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wemix/lagwatch/pkg/logger"
)

var (
	// ErrNoQuorum is returned when no reference endpoint answered
	ErrNoQuorum = errors.New("no reference endpoint reachable")

	// ErrNodeUnreachable is returned when the target node could not be read
	ErrNodeUnreachable = errors.New("node unreachable")
)

// EndpointResult is the outcome of one reference fetch
type EndpointResult struct {
	Endpoint string        `json:"endpoint"`
	Height   int64         `json:"height,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency"`
}

// OK reports whether the fetch succeeded
func (r EndpointResult) OK() bool {
	return r.Err == nil
}

// QuorumResult holds every reference fetch of one read, in endpoint order
type QuorumResult struct {
	Results []EndpointResult `json:"results"`
}

// Reachable returns the number of successful fetches
func (q QuorumResult) Reachable() int {
	n := 0
	for _, r := range q.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Max returns the highest successfully fetched height or ErrNoQuorum
func (q QuorumResult) Max() (int64, error) {
	found := false
	var highest int64
	for _, r := range q.Results {
		if !r.OK() {
			continue
		}
		if !found || r.Height > highest {
			highest = r.Height
			found = true
		}
	}
	if !found {
		return 0, ErrNoQuorum
	}
	return highest, nil
}

// QuorumReader queries all reference endpoints concurrently and keeps the
// most advanced height.
type QuorumReader struct {
	providers []HeightProvider
	timeout   time.Duration
	observer  FailureObserver
	logger    *logger.Logger
}

// NewQuorumReader creates a reader over a non-empty set of providers.
// Each fetch is bounded by timeout (DefaultFetchTimeout when zero).
func NewQuorumReader(providers []HeightProvider, timeout time.Duration, observer FailureObserver, log *logger.Logger) (*QuorumReader, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one reference endpoint is required")
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &QuorumReader{
		providers: providers,
		timeout:   timeout,
		observer:  observer,
		logger:    log,
	}, nil
}

// Endpoints returns the reference endpoints in configuration order
func (q *QuorumReader) Endpoints() []string {
	endpoints := make([]string, len(q.providers))
	for i, p := range q.providers {
		endpoints[i] = p.Endpoint()
	}
	return endpoints
}

// Read fetches every endpoint in parallel and waits for all of them.
// Failures are logged and recorded in the result, never returned.
func (q *QuorumReader) Read(ctx context.Context) QuorumResult {
	results := make([]EndpointResult, len(q.providers))

	var wg sync.WaitGroup
	for i, provider := range q.providers {
		wg.Add(1)
		go func(i int, provider HeightProvider) {
			defer wg.Done()
			results[i] = q.fetch(ctx, provider)
		}(i, provider)
	}
	wg.Wait()

	for _, r := range results {
		if r.OK() {
			continue
		}
		q.logger.Error("failed to get status from endpoint",
			zap.String("endpoint", r.Endpoint),
			zap.Duration("latency", r.Latency),
			zap.Error(r.Err))
		if q.observer != nil {
			q.observer.ObserveFetchFailure(r.Endpoint)
		}
	}

	return QuorumResult{Results: results}
}

// MaxHeight returns the highest height among the reachable endpoints or
// ErrNoQuorum when none answered.
func (q *QuorumReader) MaxHeight(ctx context.Context) (int64, error) {
	return q.Read(ctx).Max()
}

// fetch runs a single provider call under its own timeout
func (q *QuorumReader) fetch(ctx context.Context, provider HeightProvider) EndpointResult {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	start := time.Now()
	h, err := provider.GetHeight(ctx)
	result := EndpointResult{
		Endpoint: provider.Endpoint(),
		Height:   h,
		Err:      err,
		Latency:  time.Since(start),
	}
	if err != nil {
		result.Height = 0
		result.Error = err.Error()
	}
	return result
}
