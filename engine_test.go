package catalogd_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogd"
	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/sources"
	"github.com/agentstation/catalogd/pkg/sources/files"
)

type harness struct {
	log    *opLog
	src    *fakeSource
	reg    *fakeRegistry
	ann    *fakeAnnouncer
	engine *catalogd.Engine
}

// newHarness builds an engine whose schedule never fires on its own unless
// opts override it.
func newHarness(t *testing.T, opts ...catalogd.Option) *harness {
	t.Helper()
	log := &opLog{}
	h := &harness{
		log: log,
		src: &fakeSource{},
		reg: newFakeRegistry(log),
		ann: newFakeAnnouncer(log),
	}
	base := []catalogd.Option{
		catalogd.WithLogger(zerolog.Nop()),
		catalogd.WithInitialDelay(time.Hour),
		catalogd.WithPollInterval(time.Hour),
	}
	engine, err := catalogd.New(h.src, h.reg, h.ann, append(base, opts...)...)
	require.NoError(t, err)
	h.engine = engine
	t.Cleanup(func() {
		_ = engine.Shutdown(context.Background())
	})
	return h
}

func names(records []catalogs.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name())
	}
	return out
}

func TestNewValidation(t *testing.T) {
	log := &opLog{}
	src := &fakeSource{}

	_, err := catalogd.New(nil, newFakeRegistry(log), newFakeAnnouncer(log))
	assert.True(t, errors.IsValidationError(err))

	_, err = catalogd.New(src, nil, newFakeAnnouncer(log))
	assert.True(t, errors.IsValidationError(err))

	_, err = catalogd.New(src, newFakeRegistry(log), nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = catalogd.New(src, newFakeRegistry(log), newFakeAnnouncer(log), catalogd.WithPollInterval(0))
	assert.True(t, errors.IsValidationError(err))

	_, err = catalogd.New(src, newFakeRegistry(log), newFakeAnnouncer(log), catalogd.WithInitialDelay(-time.Second))
	assert.True(t, errors.IsValidationError(err))
}

func TestInitializeAppliesAllCatalogs(t *testing.T) {
	h := newHarness(t)
	h.src.set(
		record(t, "tpch", "tpch"),
		record(t, "hive", "hive", "hive.metastore.uri", "thrift://m:9083"),
	)

	assert.Equal(t, catalogd.StateUninitialized, h.engine.State())
	assert.False(t, h.engine.AreCatalogsReady())

	require.NoError(t, h.engine.Initialize(context.Background()))

	assert.Equal(t, catalogd.StateReady, h.engine.State())
	assert.True(t, h.engine.AreCatalogsReady())
	assert.Equal(t, []string{"hive", "tpch"}, names(h.engine.Applied()))
	assert.Equal(t, map[string]string{"hive": "hive", "tpch": "tpch"}, h.reg.liveNames())
	assert.True(t, h.ann.has("hive"))
	assert.True(t, h.ann.has("tpch"))
	assert.Equal(t, []string{"create:hive", "publish:hive", "create:tpch", "publish:tpch"}, h.log.all())
}

func TestInitializeEmptySource(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.engine.Initialize(context.Background()))
	assert.True(t, h.engine.AreCatalogsReady())
	assert.Empty(t, h.engine.Applied())
	assert.Empty(t, h.log.all())
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"), record(t, "b", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	h.log.reset()

	for range 3 {
		result, err := h.engine.Reconcile(context.Background())
		require.NoError(t, err)
		assert.False(t, result.Changed())
		assert.Equal(t, 2, result.Unchanged)
	}
	assert.Empty(t, h.log.all(), "unchanged catalogs must not be touched")
}

func TestReconcileRequiresReady(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Reconcile(context.Background())
	assert.ErrorIs(t, err, errors.ErrNotReady)
}

func TestReconcileWaitsForInFlightCycle(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Initialize(context.Background()))

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h.src.mu.Lock()
	h.src.block = release
	h.src.started = started
	h.src.records = []catalogs.Record{record(t, "a", "memory")}
	h.src.mu.Unlock()

	h.engine.Trigger()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.engine.Reconcile(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	type outcome struct {
		result catalogd.CycleResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := h.engine.Reconcile(context.Background())
		done <- outcome{result, err}
	}()

	select {
	case <-done:
		t.Fatal("Reconcile returned while a cycle was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Empty(t, got.result.Added, "the triggered cycle already applied a")
		assert.Equal(t, 1, got.result.Unchanged)
	case <-time.After(2 * time.Second):
		t.Fatal("Reconcile did not return")
	}
	assert.Equal(t, 1, h.src.maxConcurrentLoads())
}

func TestConcurrentReconcileNeverOverlaps(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.engine.Trigger()
			_, err := h.engine.Reconcile(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.src.maxConcurrentLoads())
	assert.Equal(t, []string{"a"}, names(h.engine.Applied()))
	assert.Equal(t, []string{"create:a", "publish:a"}, h.log.all(), "later cycles change nothing")
}

func TestDisabledCatalogsAreNeverApplied(t *testing.T) {
	h := newHarness(t, catalogd.WithDisabledCatalogs("blackhole", ""))
	h.src.set(record(t, "tpch", "tpch"), record(t, "blackhole", "blackhole"))

	require.NoError(t, h.engine.Initialize(context.Background()))
	assert.Equal(t, []string{"tpch"}, names(h.engine.Applied()))
	assert.NotContains(t, h.reg.liveNames(), "blackhole")
	assert.False(t, h.ann.has("blackhole"))

	result, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"blackhole"}, result.Skipped)
	assert.Empty(t, result.Added)
	assert.NotContains(t, h.log.all(), "create:blackhole")
}

func TestConnectorFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.reg.setFail("bad", true)
	h.src.set(record(t, "a", "memory"), record(t, "bad", "broken"), record(t, "c", "memory"))

	result, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(result.Added))
	require.Len(t, result.Failed, 1)
	assert.True(t, errors.IsConnectorCreation(result.Failed[0]))
	assert.ErrorIs(t, result.Err(), errors.ErrConnectorCreation)

	var ce *errors.ConnectorCreationError
	require.ErrorAs(t, result.Failed[0], &ce)
	assert.Equal(t, "bad", ce.Catalog)
	assert.Equal(t, "broken", ce.Connector)

	assert.Equal(t, []string{"a", "c"}, names(h.engine.Applied()))
	assert.False(t, h.ann.has("bad"))

	// Failed catalogs are not recorded, so the next cycle retries them.
	h.reg.setFail("bad", false)
	result, err = h.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, names(result.Added))
	assert.Equal(t, []string{"a", "bad", "c"}, names(h.engine.Applied()))
}

func TestInitialConnectorFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.reg.setFail("a", true)
	h.src.set(record(t, "a", "memory"), record(t, "b", "memory"))

	err := h.engine.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatalLoad(err))
	assert.True(t, errors.IsConnectorCreation(err))

	// Every record is attempted before failing.
	assert.Contains(t, h.log.all(), "create:b")
	assert.Equal(t, catalogd.StateFailed, h.engine.State())
	assert.False(t, h.engine.AreCatalogsReady())

	// Failed is terminal.
	assert.NoError(t, h.engine.Initialize(context.Background()))
	assert.Equal(t, catalogd.StateFailed, h.engine.State())
	assert.Equal(t, 1, h.src.loadCount())
}

func TestInitialSourceFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.src.fail(errors.NewSourceUnavailableError("file", "read", "/etc/catalog", os.ErrPermission))

	err := h.engine.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatalLoad(err))
	assert.True(t, errors.IsSourceUnavailable(err))

	var fatal *errors.FatalLoadError
	assert.ErrorAs(t, err, &fatal)
	assert.Equal(t, catalogd.StateFailed, h.engine.State())
	assert.Empty(t, h.log.all())
}

func TestRemovalDropsBeforeRetract(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"), record(t, "b", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	h.log.reset()

	h.src.set(record(t, "b", "memory"))
	result, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, names(result.Removed))
	assert.Equal(t, []string{"drop:a", "retract:a"}, h.log.all())
	assert.Equal(t, []string{"b"}, names(h.engine.Applied()))
}

func TestEditedCatalogIsReplaced(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "pg", "postgresql", "connection-url", "jdbc:postgresql://old/db"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	h.log.reset()

	h.src.set(record(t, "pg", "postgresql", "connection-url", "jdbc:postgresql://new/db"))
	result, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"pg"}, names(result.Removed))
	assert.Equal(t, []string{"pg"}, names(result.Added))
	assert.Equal(t, []string{"drop:pg", "retract:pg", "create:pg", "publish:pg"}, h.log.all())

	applied := h.engine.Applied()
	require.Len(t, applied, 1)
	url, _ := applied[0].Property("connection-url")
	assert.Equal(t, "jdbc:postgresql://new/db", url)
}

func TestRenameIsRemoveAndAdd(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "sales", "memory", "k", "v"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	h.log.reset()

	h.src.set(record(t, "revenue", "memory", "k", "v"))
	result, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"sales"}, names(result.Removed))
	assert.Equal(t, []string{"revenue"}, names(result.Added))
	assert.Equal(t, []string{"drop:sales", "retract:sales", "create:revenue", "publish:revenue"}, h.log.all())
}

func TestTransientSourceOutageKeepsApplied(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"), record(t, "b", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	h.log.reset()

	h.src.fail(errors.NewSourceUnavailableError("database", "open", "", context.DeadlineExceeded))
	_, err := h.engine.Reconcile(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.False(t, errors.IsFatalLoad(err))

	assert.Equal(t, []string{"a", "b"}, names(h.engine.Applied()))
	assert.Empty(t, h.log.all())
	assert.Equal(t, catalogd.StateReady, h.engine.State())

	status := h.engine.Status()
	assert.NotEmpty(t, status.LastError)
	assert.NotNil(t, status.LastFailure)

	// The source comes back unchanged: nothing happens.
	h.src.set(record(t, "a", "memory"), record(t, "b", "memory"))
	result, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Empty(t, h.log.all())
	assert.Empty(t, h.engine.Status().LastError)
}

func TestConcurrentInitializeLoadsOnce(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.engine.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.src.loadCount())
	assert.Equal(t, []string{"create:a", "publish:a"}, h.log.all())
}

func TestPeriodicCyclesAndShutdown(t *testing.T) {
	h := newHarness(t,
		catalogd.WithInitialDelay(5*time.Millisecond),
		catalogd.WithPollInterval(5*time.Millisecond),
	)
	h.src.set(record(t, "a", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.src.set(record(t, "a", "memory"), record(t, "b", "memory"))
	assert.Eventually(t, func() bool {
		return len(h.engine.Applied()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return h.src.loadCount() >= 4
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.engine.Shutdown(context.Background()))
	assert.Equal(t, catalogd.StateStopped, h.engine.State())
	assert.True(t, h.engine.AreCatalogsReady(), "ready flag survives shutdown")

	loads := h.src.loadCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, loads, h.src.loadCount(), "no cycles after shutdown")

	_, err := h.engine.Reconcile(context.Background())
	assert.ErrorIs(t, err, errors.ErrNotReady)
	assert.NoError(t, h.engine.Shutdown(context.Background()))
}

func TestPeriodicFailureKeepsWorkerRunning(t *testing.T) {
	h := newHarness(t,
		catalogd.WithInitialDelay(time.Millisecond),
		catalogd.WithPollInterval(time.Millisecond),
	)
	h.src.set(record(t, "a", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.src.fail(errors.NewSourceUnavailableError("file", "read", "", os.ErrNotExist))
	assert.Eventually(t, func() bool {
		return h.engine.Status().FailedCycles >= 2
	}, 2*time.Second, 5*time.Millisecond)

	h.src.set(record(t, "b", "memory"))
	assert.Eventually(t, func() bool {
		applied := h.engine.Applied()
		return len(applied) == 1 && applied[0].Name() == "b"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTriggerRunsEarlyCycle(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.src.set(record(t, "late", "memory"))
	h.engine.Trigger()
	h.engine.Trigger()

	assert.Eventually(t, func() bool {
		return len(h.engine.Applied()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTriggerBeforeInitializeIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.engine.Trigger()
	assert.Equal(t, 0, h.src.loadCount())
}

func TestShutdownWaitsForInFlightCycle(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Initialize(context.Background()))

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h.src.mu.Lock()
	h.src.block = release
	h.src.started = started
	h.src.records = []catalogs.Record{record(t, "a", "memory")}
	h.src.mu.Unlock()

	h.engine.Trigger()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.engine.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	// The in-flight cycle completes even though shutdown began.
	assert.Eventually(t, func() bool {
		return len(h.engine.Applied()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestShutdownBeforeInitialize(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Shutdown(context.Background()))
	assert.Equal(t, catalogd.StateStopped, h.engine.State())

	require.NoError(t, h.engine.Initialize(context.Background()))
	assert.Equal(t, 0, h.src.loadCount())
	assert.False(t, h.engine.AreCatalogsReady())
}

func TestHooks(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	var added, removed []string
	var cycles int
	h.engine.OnCatalogAdded(func(r catalogs.Record) {
		mu.Lock()
		defer mu.Unlock()
		added = append(added, r.Name())
	})
	h.engine.OnCatalogRemoved(func(r catalogs.Record) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, r.Name())
	})
	h.engine.OnCycle(func(_ catalogd.CycleResult, _ error) {
		mu.Lock()
		defer mu.Unlock()
		cycles++
	})

	h.src.set(record(t, "a", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	h.src.set(record(t, "b", "memory"))
	_, err := h.engine.Reconcile(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, added)
	assert.Equal(t, []string{"a"}, removed)
	assert.Equal(t, 2, cycles)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.src.set(record(t, "a", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))

	status := h.engine.Status()
	assert.Equal(t, catalogd.StateReady, status.State)
	assert.True(t, status.Ready)
	assert.Equal(t, 1, status.Applied)
	assert.Equal(t, uint64(1), status.Cycles)
	assert.Equal(t, uint64(0), status.FailedCycles)
	assert.NotNil(t, status.LastSuccess)
	require.NotNil(t, status.LastResult)
	assert.NotEmpty(t, status.LastResult.ID)

	data, err := json.Marshal(status)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"ready"`)
	assert.Contains(t, string(data), `"added":[{"name":"a"`)
}

func TestWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DisabledCatalogs = []string{"off"}
	cfg.InitialDelay = time.Hour

	h := newHarness(t, catalogd.WithConfig(cfg))
	h.src.set(record(t, "on", "memory"), record(t, "off", "memory"))
	require.NoError(t, h.engine.Initialize(context.Background()))
	assert.Equal(t, []string{"on"}, names(h.engine.Applied()))

	cfg.PollInterval = 0
	_, err := catalogd.New(h.src, h.reg, h.ann, catalogd.WithConfig(cfg))
	assert.True(t, errors.IsValidationError(err))
}

// The file source end to end: a property file is added, edited and deleted.
func TestFileSourceLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hive.properties")
	require.NoError(t, os.WriteFile(path, []byte("connector.name=hive\nhive.metastore.uri=thrift://a:9083\n"), 0o644))

	log := &opLog{}
	reg := newFakeRegistry(log)
	ann := newFakeAnnouncer(log)
	engine, err := catalogd.New(files.New(dir), reg, ann,
		catalogd.WithLogger(zerolog.Nop()),
		catalogd.WithInitialDelay(time.Hour),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Shutdown(context.Background()) })

	require.NoError(t, engine.Initialize(context.Background()))
	assert.Equal(t, []string{"hive"}, names(engine.Applied()))
	before := engine.Applied()[0].Fingerprint()

	require.NoError(t, os.WriteFile(path, []byte("connector.name=hive\nhive.metastore.uri=thrift://b:9083\n"), 0o644))
	result, err := engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hive"}, names(result.Removed))
	assert.Equal(t, []string{"hive"}, names(result.Added))
	assert.NotEqual(t, before, engine.Applied()[0].Fingerprint())

	require.NoError(t, os.Remove(path))
	result, err = engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hive"}, names(result.Removed))
	assert.Empty(t, engine.Applied())
	assert.Empty(t, reg.liveNames())
	assert.False(t, ann.has("hive"))
}

func TestMalformedFileAbortsCycle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.properties"), []byte("connector.name=memory\n"), 0o644))

	log := &opLog{}
	engine, err := catalogd.New(files.New(dir), newFakeRegistry(log), newFakeAnnouncer(log),
		catalogd.WithLogger(zerolog.Nop()),
		catalogd.WithInitialDelay(time.Hour),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Shutdown(context.Background()) })
	require.NoError(t, engine.Initialize(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.properties"), []byte("foo=bar\n"), 0o644))
	_, err = engine.Reconcile(context.Background())
	assert.True(t, errors.IsMalformedRecord(err))
	assert.Equal(t, []string{"a"}, names(engine.Applied()))
}

func TestStaticSource(t *testing.T) {
	log := &opLog{}
	engine, err := catalogd.New(sources.Static(record(t, "s", "memory")), newFakeRegistry(log), newFakeAnnouncer(log),
		catalogd.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Shutdown(context.Background()) })

	require.NoError(t, engine.Initialize(context.Background()))
	assert.Equal(t, []string{"s"}, names(engine.Applied()))
}
