package catalogd_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/connectors"
	"github.com/agentstation/catalogd/pkg/errors"
)

// opLog records registry and announcer calls in order.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op+":"+name)
}

func (l *opLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

func (l *opLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = nil
}

type fakeRegistry struct {
	log  *opLog
	mu   sync.Mutex
	live map[string]string
	fail map[string]bool
}

func newFakeRegistry(log *opLog) *fakeRegistry {
	return &fakeRegistry{log: log, live: map[string]string{}, fail: map[string]bool{}}
}

func (r *fakeRegistry) CreateConnector(_ context.Context, name, connectorName string, _ map[string]string) (connectors.Handle, error) {
	r.log.add("create", name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[name] {
		return connectors.Handle{}, fmt.Errorf("connector %s refused", connectorName)
	}
	if _, ok := r.live[name]; ok {
		return connectors.Handle{}, errors.ErrAlreadyExists
	}
	r.live[name] = connectorName
	return connectors.Handle{Catalog: name, Connector: connectorName, CreatedAt: time.Now()}, nil
}

func (r *fakeRegistry) DropConnector(_ context.Context, name string) {
	r.log.add("drop", name)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, name)
}

func (r *fakeRegistry) setFail(name string, fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[name] = fail
}

func (r *fakeRegistry) liveNames() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.live))
	for k, v := range r.live {
		out[k] = v
	}
	return out
}

type fakeAnnouncer struct {
	log       *opLog
	mu        sync.Mutex
	published map[string]bool
}

func newFakeAnnouncer(log *opLog) *fakeAnnouncer {
	return &fakeAnnouncer{log: log, published: map[string]bool{}}
}

func (a *fakeAnnouncer) Publish(name string) {
	a.log.add("publish", name)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.published[name] = true
}

func (a *fakeAnnouncer) Retract(name string) {
	a.log.add("retract", name)
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.published, name)
}

func (a *fakeAnnouncer) has(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.published[name]
}

// fakeSource serves a mutable record set.
type fakeSource struct {
	mu      sync.Mutex
	records []catalogs.Record
	err     error
	loads   int
	block   chan struct{}
	started chan struct{}

	inflight    int
	maxInflight int
}

func (s *fakeSource) LoadAll(ctx context.Context) (catalogs.Set, error) {
	s.mu.Lock()
	s.loads++
	s.inflight++
	s.maxInflight = max(s.maxInflight, s.inflight)
	block, started := s.block, s.started
	records, err := s.records, s.err
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return catalogs.NewSet(records...), ctx.Err()
}

func (s *fakeSource) set(records ...catalogs.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.err = nil
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) maxConcurrentLoads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInflight
}

func (s *fakeSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func record(t *testing.T, name, connector string, kv ...string) catalogs.Record {
	t.Helper()
	props := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		props[kv[i]] = kv[i+1]
	}
	r, err := catalogs.NewRecord(name, connector, props)
	if err != nil {
		t.Fatalf("record %s: %v", name, err)
	}
	return r
}
