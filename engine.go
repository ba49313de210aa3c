// Package catalogd keeps the live connector set of a query engine node in
// step with an external catalog source.
//
// An Engine loads every catalog definition once at startup, then polls the
// source on a fixed delay. Each cycle compares the loaded records with the
// applied ones by fingerprint: catalogs that disappeared are dropped and
// retracted, new ones are created and announced. Catalogs present in both are
// never touched.
//
//	src, _ := sources.New(cfg)
//	engine, _ := catalogd.New(src, registry, announcer, catalogd.WithConfig(cfg))
//	if err := engine.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Shutdown(context.Background())
package catalogd

import (
	"sync"
	"sync/atomic"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/connectors"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
	"github.com/agentstation/catalogd/pkg/sources"
)

// Engine reconciles the applied catalog set against a Source.
type Engine struct {
	*hooks

	source    sources.Source
	registry  connectors.Registry
	announcer connectors.Announcer
	options   *options
	logger    *zerolog.Logger

	state atomic.Int32
	ready atomic.Bool

	// applied is owned by whoever runs cycles: Initialize before the worker
	// starts, then the worker goroutine alone.
	applied catalogs.Set

	// snapshot is the sorted applied set published after every cycle.
	snapshot atomic.Pointer[[]catalogs.Record]

	// lifecycleMu guards worker start and stop.
	lifecycleMu sync.Mutex
	trigger     chan struct{}
	requests    chan cycleRequest
	stopCh      chan struct{}
	done        chan struct{}

	statsMu sync.RWMutex
	stats   stats
}

type stats struct {
	cycles       uint64
	failedCycles uint64
	lastCycle    *utc.Time
	lastSuccess  *utc.Time
	lastFailure  *utc.Time
	lastError    string
	lastResult   *CycleResult
}

// Status is a point-in-time view of the engine.
type Status struct {
	State        State        `json:"state"`
	Ready        bool         `json:"ready"`
	Applied      int          `json:"applied"`
	Cycles       uint64       `json:"cycles"`
	FailedCycles uint64       `json:"failed_cycles"`
	LastCycle    *utc.Time    `json:"last_cycle,omitempty"`
	LastSuccess  *utc.Time    `json:"last_success,omitempty"`
	LastFailure  *utc.Time    `json:"last_failure,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
	LastResult   *CycleResult `json:"last_result,omitempty"`
}

// New creates an engine. Nothing is loaded until Initialize is called.
func New(src sources.Source, reg connectors.Registry, ann connectors.Announcer, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, errors.NewValidationError("source", nil, "catalog source is required")
	}
	if reg == nil {
		return nil, errors.NewValidationError("registry", nil, "connector registry is required")
	}
	if ann == nil {
		return nil, errors.NewValidationError("announcer", nil, "announcer is required")
	}

	o := defaultOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		l := logging.Default().With().Str("component", "catalogd").Logger()
		logger = &l
	}

	e := &Engine{
		hooks:     newHooks(),
		source:    src,
		registry:  reg,
		announcer: ann,
		options:   o,
		logger:    logger,
		applied:   catalogs.NewSet(),
		trigger:   make(chan struct{}, 1),
		requests:  make(chan cycleRequest),
	}
	empty := []catalogs.Record{}
	e.snapshot.Store(&empty)
	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// AreCatalogsReady reports whether the initial load completed and periodic
// reconciliation was scheduled. It stays true after Shutdown.
func (e *Engine) AreCatalogsReady() bool {
	return e.ready.Load()
}

// Applied returns the applied catalogs sorted by name.
func (e *Engine) Applied() []catalogs.Record {
	records := *e.snapshot.Load()
	out := make([]catalogs.Record, len(records))
	copy(out, records)
	return out
}

// Status returns counters and timestamps for the engine.
func (e *Engine) Status() Status {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()

	return Status{
		State:        e.State(),
		Ready:        e.AreCatalogsReady(),
		Applied:      len(*e.snapshot.Load()),
		Cycles:       e.stats.cycles,
		FailedCycles: e.stats.failedCycles,
		LastCycle:    e.stats.lastCycle,
		LastSuccess:  e.stats.lastSuccess,
		LastFailure:  e.stats.lastFailure,
		LastError:    e.stats.lastError,
		LastResult:   e.stats.lastResult,
	}
}

// publishSnapshot must be called by the goroutine running cycles.
func (e *Engine) publishSnapshot() {
	records := e.applied.Records()
	e.snapshot.Store(&records)
}

func (e *Engine) recordStats(result CycleResult, err error) {
	now := utc.Now()

	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	e.stats.cycles++
	e.stats.lastCycle = &now
	e.stats.lastResult = &result
	if err != nil || len(result.Failed) > 0 {
		e.stats.failedCycles++
		e.stats.lastFailure = &now
		if err == nil {
			err = errors.Join(result.Failed...)
		}
		e.stats.lastError = err.Error()
		return
	}
	e.stats.lastSuccess = &now
	e.stats.lastError = ""
}
