package catalogd

import (
	"context"
	"time"

	"github.com/agentstation/catalogd/internal/metrics"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// Initialize performs the initial full load and schedules periodic
// reconciliation. Every catalog is attempted; if the source cannot be read or
// any connector fails to be created, a *errors.FatalLoadError is returned and
// the engine moves to StateFailed.
//
// Only the first call does any work. Calls made while another call is in
// progress, or after the engine reached any later state, return nil.
func (e *Engine) Initialize(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return nil
	}

	e.logger.Info().
		Dur("initial_delay", e.options.initialDelay).
		Dur("poll_interval", e.options.pollInterval).
		Msg("Loading catalogs")

	result, err := e.cycle(ctx)
	if err == nil {
		err = result.Err()
	}
	if err != nil {
		e.state.CompareAndSwap(int32(StateInitializing), int32(StateFailed))
		e.logger.Error().Err(err).Msg("Initial catalog load failed")
		return errors.WrapFatalLoad(err)
	}

	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()

	// Shutdown may have run while the initial load was in flight.
	if !e.state.CompareAndSwap(int32(StateInitializing), int32(StateReady)) {
		return nil
	}
	e.startWorker()
	e.ready.Store(true)
	metrics.SetReady(true)

	e.logger.Info().
		Int("catalogs", len(result.Added)).
		Int("skipped", len(result.Skipped)).
		Dur("duration", result.Duration).
		Msg("Catalogs ready")
	return nil
}

// Trigger requests a cycle ahead of schedule. Requests made while a cycle is
// pending are coalesced. It is a no-op unless the engine is Ready.
func (e *Engine) Trigger() {
	if e.State() != StateReady {
		return
	}
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Shutdown stops scheduling further cycles and waits for an in-flight cycle
// to complete, or for ctx to be done. It is safe to call more than once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.lifecycleMu.Lock()
	stopped := false
	for _, from := range []State{StateReady, StateInitializing, StateUninitialized} {
		if e.state.CompareAndSwap(int32(from), int32(StateStopped)) {
			stopped = true
			break
		}
	}
	done := e.done
	if stopped && e.stopCh != nil {
		close(e.stopCh)
		e.stopCh = nil
	}
	e.lifecycleMu.Unlock()

	if !stopped || done == nil {
		return nil
	}

	e.logger.Info().Msg("Stopping catalog reconciliation")
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startWorker must be called with lifecycleMu held.
func (e *Engine) startWorker() {
	e.stopCh = make(chan struct{})
	e.done = make(chan struct{})
	go e.run(e.stopCh, e.done)
}

// run is the single worker goroutine and the only writer of the applied set
// once the engine is Ready. Scheduling is fixed-delay: the next cycle starts
// pollInterval after the previous one ended.
func (e *Engine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(e.options.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			e.scheduledCycle()
		case <-e.trigger:
			timer.Stop()
			e.scheduledCycle()
		case req := <-e.requests:
			timer.Stop()
			result, err := e.cycle(req.ctx)
			req.reply <- cycleReply{result: result, err: err}
		}

		select {
		case <-stop:
			return
		default:
		}
		timer.Reset(e.options.pollInterval)
	}
}

// scheduledCycle runs one cycle and logs its outcome. Cycles use a context
// that is not canceled by Shutdown, so an in-flight cycle always completes.
func (e *Engine) scheduledCycle() {
	ctx := logging.WithLogger(context.Background(), e.logger)

	result, err := e.cycle(ctx)
	logger := e.logger.With().Str("cycle_id", result.ID).Logger()

	switch {
	case err != nil:
		logger.Error().Err(err).Msg("Catalog reconcile failed")
	case len(result.Failed) > 0:
		logger.Warn().Err(result.Err()).
			Int("failed", len(result.Failed)).
			Int("added", len(result.Added)).
			Int("removed", len(result.Removed)).
			Msg("Catalog reconcile completed with errors")
	case result.Changed():
		logger.Info().
			Int("added", len(result.Added)).
			Int("removed", len(result.Removed)).
			Int("unchanged", result.Unchanged).
			Dur("duration", result.Duration).
			Msg("Catalog reconcile completed")
	default:
		logger.Debug().Dur("duration", result.Duration).Msg("Catalogs unchanged")
	}
}
