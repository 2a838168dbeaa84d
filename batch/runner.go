// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/siemens/mailsift/types"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Defaults and limits for batch runs.
const (
	DefaultWorkers     = 50
	MaxWorkers         = 500
	DefaultUnitTimeout = 30 * time.Second
)

// Verifier returns the verdict for a single address.
type Verifier interface {
	Verify(ctx context.Context, address string) types.Verdict
}

// Runner verifies lists of addresses using a limited number of concurrent
// workers.
type Runner struct {
	verifier    Verifier
	workers     int
	unitTimeout time.Duration
	observer    func(types.Verdict)
	log         logrus.FieldLogger
}

// Option can be passed to New when creating new [Runner] objects.
type Option func(*Runner)

// New returns a new [Runner] verifying addresses with the specified verifier,
// using [DefaultWorkers] workers and a per-address timeout of
// [DefaultUnitTimeout], unless configured otherwise using options:
//   - [WithWorkers]
//   - [WithUnitTimeout]
//   - [WithObserver]
//   - [WithLogger]
func New(verifier Verifier, options ...Option) *Runner {
	r := &Runner{
		verifier:    verifier,
		workers:     DefaultWorkers,
		unitTimeout: DefaultUnitTimeout,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// WithWorkers sets the maximum number of concurrent workers, which must be
// between 1 and [MaxWorkers].
func WithWorkers(workers uint) Option {
	if workers < 1 || workers > MaxWorkers {
		panic(fmt.Errorf("Runner: workers must be between 1 <= workers <= %d, got: %d",
			MaxWorkers, workers))
	}
	return func(r *Runner) {
		r.workers = int(workers)
	}
}

// WithUnitTimeout sets the maximum time to wait for the verdict of a single
// address. Addresses not verified in time are dropped.
func WithUnitTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.unitTimeout = timeout
	}
}

// WithObserver sets a function to be called with each verdict as soon as it
// has been reached. The observer gets called concurrently from multiple
// workers.
func WithObserver(observer func(types.Verdict)) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

// WithLogger sets the logger for reporting dropped addresses and batch
// failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// Run verifies the specified addresses and returns their verdicts together
// with the run statistics. Run returns only after all dispatched
// verifications have either finished or timed out.
//
// Every address ends up either in exactly one bucket of the returned result
// set, or in the list of dropped addresses. Addresses get dropped when their
// verification times out or panics, or when the context gets cancelled before
// their verification finished.
func (r *Runner) Run(ctx context.Context, addrs []string) (rs *ResultSet, stats Stats) {
	stats = Stats{
		ID:      uuid.New(),
		Started: time.Now(),
		Total:   len(addrs),
	}
	rs = NewResultSet()
	log := r.log.WithField("batch", stats.ID.String())
	log.Infof("verifying %d addresses using %d workers", len(addrs), r.workers)

	var droppedmu sync.Mutex
	var dropped []string
	drop := func(addr string) {
		droppedmu.Lock()
		defer droppedmu.Unlock()
		dropped = append(dropped, addr)
	}

	workers := workerpool.New(r.workers)
	dispatched := 0
	defer func() {
		if p := recover(); p != nil {
			log.WithField("severity", "critical").
				Errorf("batch run aborted, returning partial results: %v", p)
		}
		workers.StopWait()
		for _, addr := range addrs[dispatched:] {
			drop(addr)
		}
		stats.Elapsed = time.Since(stats.Started)
		stats.Counts = rs.Counts()
		stats.Dropped = len(dropped)
		stats.DroppedAddresses = dropped
		log.WithFields(logrus.Fields{
			"elapsed": stats.Elapsed.String(),
			"dropped": stats.Dropped,
		}).Infof("verified %d addresses", rs.Total())
	}()

dispatch:
	for _, addr := range addrs {
		addr := addr
		select {
		case <-ctx.Done():
			log.Warnf("batch cancelled, dropping %d undispatched addresses", len(addrs)-dispatched)
			break dispatch
		default:
		}
		workers.Submit(func() {
			verdict, ok := r.unit(ctx, log, addr)
			if !ok {
				drop(addr)
				return
			}
			rs.Add(verdict)
			r.observe(log, verdict)
		})
		dispatched++
	}
	return
}

// observe passes the verdict to the observer, if any. The verdict has
// already been recorded, so a panicking observer only gets logged.
func (r *Runner) observe(log logrus.FieldLogger, verdict types.Verdict) {
	if r.observer == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.WithField("address", verdict.Address).Errorf("observer panicked: %v", p)
		}
	}()
	r.observer(verdict)
}

// unit verifies a single address, waiting at most for the unit timeout. It
// returns false if the address needs to be dropped instead.
func (r *Runner) unit(ctx context.Context, log logrus.FieldLogger, addr string) (types.Verdict, bool) {
	log = log.WithField("address", addr)
	if err := ctx.Err(); err != nil {
		log.Warnf("dropping address, reason: %s", err)
		return types.Verdict{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, r.unitTimeout)
	defer cancel()
	// The verdict channel is buffered so that a late verification doesn't
	// block forever after we've stopped waiting for it.
	verdicts := make(chan types.Verdict, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Errorf("verification panicked, dropping address: %v", p)
				close(verdicts)
			}
		}()
		verdicts <- r.verifier.Verify(ctx, addr)
	}()
	select {
	case verdict, ok := <-verdicts:
		return verdict, ok
	case <-ctx.Done():
		log.Errorf("dropping address, reason: %s", ctx.Err())
		return types.Verdict{}, false
	}
}
