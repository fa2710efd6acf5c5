// Package monitor drives the periodic lag check: read the quorum, read the
// node, classify the gap and report level transitions.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/height"
	"github.com/wemix/lagwatch/internal/metrics"
	"github.com/wemix/lagwatch/internal/state"
	"github.com/wemix/lagwatch/pkg/logger"
)

// DefaultInterval is the pause between two cycles
const DefaultInterval = 15 * time.Second

// Notifier delivers a message to the operators and returns the number of
// channels that accepted it. It bounds each delivery itself.
type Notifier interface {
	Notify(ctx context.Context, text string) int
}

// Options holds the collaborators of a Monitor
type Options struct {
	Quorum     *height.QuorumReader
	Node       height.HeightProvider
	Thresholds alerting.Thresholds
	Store      state.Store
	Notifier   Notifier
	// Metrics may be nil
	Metrics *metrics.Collector

	Interval     time.Duration
	FetchTimeout time.Duration
}

// Monitor runs check cycles one at a time
type Monitor struct {
	quorum     *height.QuorumReader
	node       height.HeightProvider
	thresholds alerting.Thresholds
	store      state.Store
	notifier   Notifier
	metrics    *metrics.Collector
	logger     *logger.Logger

	interval     time.Duration
	fetchTimeout time.Duration

	lastResult  *CycleResult
	resultMutex sync.RWMutex
}

// New creates a new monitor
func New(opts Options, log *logger.Logger) (*Monitor, error) {
	if opts.Quorum == nil {
		return nil, fmt.Errorf("quorum reader is required")
	}
	if opts.Node == nil {
		return nil, fmt.Errorf("node provider is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	m := &Monitor{
		quorum:       opts.Quorum,
		node:         opts.Node,
		thresholds:   opts.Thresholds,
		store:        opts.Store,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		logger:       log,
		interval:     opts.Interval,
		fetchTimeout: opts.FetchTimeout,
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.fetchTimeout <= 0 {
		m.fetchTimeout = height.DefaultFetchTimeout
	}

	if !m.thresholds.Ascending() {
		log.Warn("alert thresholds are not strictly ascending",
			zap.Int64s("thresholds", m.thresholds[:]))
	}

	return m, nil
}

// Interval returns the pause between two cycles
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Thresholds returns the threshold table in use
func (m *Monitor) Thresholds() alerting.Thresholds {
	return m.thresholds
}

// Run executes a cycle immediately, then sleeps for the interval after each
// cycle returns, until ctx is cancelled.
//
// Cancellation is only observed between cycles. A running cycle finishes on
// a detached context, bounded by the fetch and delivery timeouts, so a
// shutdown never turns into a false alert or a lost one.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("starting lag monitor",
		zap.Strings("rpcs", m.quorum.Endpoints()),
		zap.String("node", m.node.Endpoint()),
		zap.Duration("interval", m.interval))

	cycleCtx := context.WithoutCancel(ctx)

	for {
		m.runLogged(cycleCtx)

		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("lag monitor stopped")
			return nil
		case <-timer.C:
		}
	}
}

// runLogged runs one cycle and logs a failure instead of returning it
func (m *Monitor) runLogged(ctx context.Context) {
	if _, err := m.RunCycle(ctx); err != nil {
		m.logger.Error("check cycle failed", zap.Error(err))
	}
}

// RunCycle performs one check. Reachability failures are handled inside the
// cycle and reported through the result outcome. The returned error covers
// state store failures and recovered panics.
func (m *Monitor) RunCycle(ctx context.Context) (result *CycleResult, err error) {
	start := time.Now()
	result = &CycleResult{Timestamp: start}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check cycle panicked: %v", r)
		}
		if err != nil {
			result.Outcome = OutcomeError
			result.Error = err.Error()
		}
		result.Duration = time.Since(start)
		m.metrics.ObserveCycle(string(result.Outcome), result.Duration)
		m.setLastResult(result)
	}()

	quorum := m.quorum.Read(ctx)
	result.Endpoints = quorum.Results
	quorumMax, quorumErr := quorum.Max()
	m.metrics.ObserveQuorum(quorum.Reachable(), quorumMax, quorumErr == nil)

	var nodeHeight int64
	var nodeErr error
	if quorumErr == nil {
		nodeHeight, nodeErr = m.fetchNode(ctx)
	}

	gap, err := height.ComputeGap(quorumMax, quorumErr, nodeHeight, nodeErr)
	switch {
	case errors.Is(err, height.ErrNoQuorum):
		m.logger.Error("none of the reference endpoints can be reached",
			zap.Strings("rpcs", m.quorum.Endpoints()))
		m.metrics.ObserveNoGap(false)
		m.reportFailure(ctx, result, OutcomeNoQuorum, alerting.MessageNoQuorum)
		return result, nil
	case errors.Is(err, height.ErrNodeUnreachable):
		m.logger.Error("node is down or cannot be reached",
			zap.String("node", m.node.Endpoint()),
			zap.Error(nodeErr))
		m.metrics.ObserveNoGap(true)
		m.reportFailure(ctx, result, OutcomeNodeUnreachable, alerting.MessageNodeDown)
		return result, nil
	case err != nil:
		return result, err
	}
	result.Gap = &gap

	current, err := m.store.Load()
	if err != nil {
		return result, fmt.Errorf("failed to load alert state: %w", err)
	}
	result.State = current

	decision := alerting.Evaluate(current, gap.Diff, m.thresholds)
	result.Level = decision.Level
	result.Transition = decision.Transition.String()
	m.metrics.ObserveGap(gap.NodeHeight, gap.Diff, int(decision.Level))

	m.logger.Info("height check",
		zap.Int64("quorum_height", gap.QuorumHeight),
		zap.Int64("node_height", gap.NodeHeight),
		zap.Int64("diff", gap.Diff),
		zap.Stringer("level", decision.Level),
		zap.Stringer("transition", decision.Transition))

	if decision.Notify() {
		result.Message = decision.Message
		result.Notified = m.notify(ctx, decision.Message)
	}

	if decision.Persist {
		if err := m.store.Save(decision.Next); err != nil {
			return result, fmt.Errorf("failed to save alert state: %w", err)
		}
		result.State = decision.Next
		result.Persisted = true
		m.logger.Debug("alert state saved", zap.Stringer("state", decision.Next))
	}

	result.Outcome = OutcomeOK
	return result, nil
}

// LastResult returns the result of the most recent cycle or nil
func (m *Monitor) LastResult() *CycleResult {
	m.resultMutex.RLock()
	defer m.resultMutex.RUnlock()
	return m.lastResult
}

// LoadState reads the stored alert state
func (m *Monitor) LoadState() (alerting.State, error) {
	return m.store.Load()
}

func (m *Monitor) setLastResult(result *CycleResult) {
	m.resultMutex.Lock()
	m.lastResult = result
	m.resultMutex.Unlock()
}

// fetchNode reads the target node under the fetch timeout
func (m *Monitor) fetchNode(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()
	return m.node.GetHeight(ctx)
}

// reportFailure sends a fixed message. The stored state is not touched.
func (m *Monitor) reportFailure(ctx context.Context, result *CycleResult, outcome Outcome, message string) {
	result.Outcome = outcome
	result.Message = message
	result.Notified = m.notify(ctx, message)
}

func (m *Monitor) notify(ctx context.Context, message string) int {
	return m.notifier.Notify(ctx, message)
}
