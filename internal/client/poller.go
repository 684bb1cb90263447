package client

import (
	"context"
	"time"
)

// Phase is the client-side view of an order's progress. It tracks the
// server statuses plus two client-only states: SUBMITTED before the
// first fetch lands, and FETCH_ERROR when a status fetch fails.
type Phase string

const (
	PhaseSubmitted  Phase = "SUBMITTED"
	PhasePending    Phase = "PENDING"
	PhaseProcessing Phase = "PROCESSING"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
	PhaseFetchError Phase = "FETCH_ERROR"
)

// IsTerminal reports whether the poller stops at this phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseFetchError
}

// Snapshot is one observed state of the watched order.
type Snapshot struct {
	Phase   Phase
	Order   *Order
	Err     error
	Elapsed time.Duration
}

// OrderFetcher is the piece of the API client the poller depends on.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// Poller follows one order until it reaches a terminal phase. Fetches
// never overlap: the next fetch is scheduled only after the previous one
// settles. There is no overall deadline; callers bound the wait through
// the context.
type Poller struct {
	fetcher  OrderFetcher
	interval time.Duration
	tick     time.Duration
	onUpdate func(Snapshot)
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the delay between settled fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithTick overrides the cadence of elapsed-time updates.
func WithTick(d time.Duration) Option {
	return func(p *Poller) { p.tick = d }
}

// WithOnUpdate registers a callback for every snapshot. Callbacks run on
// the polling goroutine and never fire after Run returns.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

func NewPoller(fetcher OrderFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: 3 * time.Second,
		tick:     time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls the order until it reaches a terminal phase or the context
// is canceled, and returns the last snapshot. The first fetch happens
// immediately. A fetch result that arrives after cancellation is
// discarded without a callback.
func (p *Poller) Run(ctx context.Context, orderID string) Snapshot {
	start := time.Now()

	last := Snapshot{Phase: PhaseSubmitted}
	p.emit(last)

	fetchTimer := time.NewTimer(0)
	defer fetchTimer.Stop()
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	type fetchResult struct {
		order *Order
		err   error
	}
	// Buffered so a fetch finishing after cancellation never leaks its
	// goroutine; the result is simply never read.
	results := make(chan fetchResult, 1)

	for {
		select {
		case <-ctx.Done():
			return last

		case <-ticker.C:
			last.Elapsed = time.Since(start)
			p.emit(last)

		case <-fetchTimer.C:
			go func() {
				order, err := p.fetcher.GetOrder(ctx, orderID)
				results <- fetchResult{order: order, err: err}
			}()

		case res := <-results:
			if res.err != nil {
				last = Snapshot{
					Phase:   PhaseFetchError,
					Order:   last.Order,
					Err:     res.err,
					Elapsed: time.Since(start),
				}
				p.emit(last)
				return last
			}

			last = Snapshot{
				Phase:   phaseForStatus(res.order.Status),
				Order:   res.order,
				Elapsed: time.Since(start),
			}
			p.emit(last)
			if last.Phase.IsTerminal() {
				return last
			}
			fetchTimer.Reset(p.interval)
		}
	}
}

func (p *Poller) emit(s Snapshot) {
	if p.onUpdate != nil {
		p.onUpdate(s)
	}
}

func phaseForStatus(status string) Phase {
	switch status {
	case "PENDING":
		return PhasePending
	case "PROCESSING":
		return PhaseProcessing
	case "COMPLETED":
		return PhaseCompleted
	case "FAILED":
		return PhaseFailed
	default:
		// Unknown statuses are treated as still queued.
		return PhasePending
	}
}
