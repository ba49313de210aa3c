package catalogd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/catalogd/internal/metrics"
	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// CycleResult describes what one reconcile cycle changed.
type CycleResult struct {
	// ID identifies the cycle in logs.
	ID string
	// Added are catalogs whose connector was created and announced.
	Added []catalogs.Record
	// Removed are catalogs whose connector was dropped and retracted.
	Removed []catalogs.Record
	// Skipped are disabled catalog names the source defined.
	Skipped []string
	// Failed holds one *errors.ConnectorCreationError per catalog that could
	// not be created. Those catalogs are retried on the next cycle.
	Failed []error
	// Unchanged counts catalogs present in both the applied and loaded sets.
	Unchanged int
	// Duration is the wall time of the cycle.
	Duration time.Duration
}

// Changed reports whether the cycle added or removed anything.
func (r CycleResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Err joins the per-catalog failures, or returns nil.
func (r CycleResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return errors.Join(r.Failed...)
}

// MarshalJSON encodes failures as their messages.
func (r CycleResult) MarshalJSON() ([]byte, error) {
	failed := make([]string, 0, len(r.Failed))
	for _, err := range r.Failed {
		failed = append(failed, err.Error())
	}
	return json.Marshal(struct {
		ID         string             `json:"id"`
		Added      []catalogs.Summary `json:"added"`
		Removed    []catalogs.Summary `json:"removed"`
		Skipped    []string           `json:"skipped,omitempty"`
		Failed     []string           `json:"failed,omitempty"`
		Unchanged  int                `json:"unchanged"`
		DurationMS int64              `json:"duration_ms"`
	}{
		ID:         r.ID,
		Added:      catalogs.Summaries(r.Added),
		Removed:    catalogs.Summaries(r.Removed),
		Skipped:    r.Skipped,
		Failed:     failed,
		Unchanged:  r.Unchanged,
		DurationMS: r.Duration.Milliseconds(),
	})
}

type cycleRequest struct {
	ctx   context.Context
	reply chan cycleReply
}

type cycleReply struct {
	result CycleResult
	err    error
}

// Reconcile asks the worker to run a cycle ahead of schedule and waits for
// its result. A cycle already in flight finishes first. The engine must be
// Ready; ErrNotReady is also returned if Shutdown stops the worker before the
// request is picked up.
func (e *Engine) Reconcile(ctx context.Context) (CycleResult, error) {
	if e.State() != StateReady {
		return CycleResult{}, errors.ErrNotReady
	}

	e.lifecycleMu.Lock()
	done := e.done
	e.lifecycleMu.Unlock()
	if done == nil {
		return CycleResult{}, errors.ErrNotReady
	}

	req := cycleRequest{ctx: ctx, reply: make(chan cycleReply, 1)}
	select {
	case e.requests <- req:
	case <-done:
		return CycleResult{}, errors.ErrNotReady
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}

	select {
	case rep := <-req.reply:
		return rep.result, rep.err
	case <-ctx.Done():
		return CycleResult{}, ctx.Err()
	}
}

// cycle loads the source and applies the difference to the registry and
// announcer. A load failure leaves the applied set untouched. Only one
// goroutine runs cycles at a time: Initialize, then the worker.
func (e *Engine) cycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	result := CycleResult{ID: uuid.NewString()}

	ctx = logging.WithLogger(ctx, e.logger)
	ctx = logging.WithCycle(ctx, result.ID)
	logger := logging.FromContext(ctx)

	current, err := e.source.LoadAll(ctx)
	if err != nil {
		metrics.RecordSourceError(sourceErrorKind(err))
		return e.finish(result, start, err)
	}

	diff := catalogs.Compare(e.applied, current)
	result.Unchanged = diff.Unchanged

	logger.Debug().
		Int("loaded", current.Len()).
		Int("to_add", len(diff.Added)).
		Int("to_remove", len(diff.Removed)).
		Int("unchanged", diff.Unchanged).
		Msg("Compared catalog sets")

	// Removals first so an edited catalog is dropped before its
	// replacement is created under the same name.
	for _, r := range diff.Removed {
		e.remove(ctx, r)
		result.Removed = append(result.Removed, r)
	}

	for _, r := range diff.Added {
		if e.options.isDisabled(r.Name()) {
			logger.Debug().Str("catalog", r.Name()).Msg("Skipping disabled catalog")
			result.Skipped = append(result.Skipped, r.Name())
			continue
		}
		if err := e.add(ctx, r); err != nil {
			result.Failed = append(result.Failed, err)
			continue
		}
		result.Added = append(result.Added, r)
	}

	return e.finish(result, start, nil)
}

func (e *Engine) finish(result CycleResult, start time.Time, err error) (CycleResult, error) {
	e.publishSnapshot()
	result.Duration = time.Since(start)

	outcome := metrics.ResultSuccess
	if err != nil || len(result.Failed) > 0 {
		outcome = metrics.ResultError
	}
	metrics.RecordCycle(outcome, result.Duration.Seconds())
	metrics.SetApplied(e.applied.Len())

	e.recordStats(result, err)
	e.cycleFinished(result, err)
	return result, err
}

// remove drops the connector before retracting the announcement, so peers
// never see a catalog this node can no longer serve for longer than needed.
func (e *Engine) remove(ctx context.Context, r catalogs.Record) {
	logger := logging.FromContext(ctx)

	e.registry.DropConnector(ctx, r.Name())
	metrics.RecordConnectorOperation(metrics.OperationDrop, metrics.ResultSuccess)

	e.announcer.Retract(r.Name())
	metrics.RecordConnectorOperation(metrics.OperationRetract, metrics.ResultSuccess)

	e.applied.Remove(r.Fingerprint())

	logger.Info().
		Str("catalog", r.Name()).
		Str("connector", r.ConnectorName()).
		Str("fingerprint", r.Fingerprint().Short()).
		Msg("Removed catalog")
	e.catalogRemoved(r)
}

func (e *Engine) add(ctx context.Context, r catalogs.Record) error {
	logger := logging.FromContext(ctx)

	if _, err := e.registry.CreateConnector(ctx, r.Name(), r.ConnectorName(), r.Properties()); err != nil {
		metrics.RecordConnectorOperation(metrics.OperationCreate, metrics.ResultError)
		logger.Warn().Err(err).
			Str("catalog", r.Name()).
			Str("connector", r.ConnectorName()).
			Msg("Failed to create connector")
		return errors.WrapConnectorCreation(r.Name(), r.ConnectorName(), err)
	}
	metrics.RecordConnectorOperation(metrics.OperationCreate, metrics.ResultSuccess)

	e.announcer.Publish(r.Name())
	metrics.RecordConnectorOperation(metrics.OperationPublish, metrics.ResultSuccess)

	e.applied.Add(r)

	logger.Info().
		Str("catalog", r.Name()).
		Str("connector", r.ConnectorName()).
		Str("fingerprint", r.Fingerprint().Short()).
		Msg("Added catalog")
	e.catalogAdded(r)
	return nil
}

func sourceErrorKind(err error) string {
	switch {
	case errors.IsSourceUnavailable(err):
		return "unavailable"
	case errors.IsMalformedRecord(err):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
