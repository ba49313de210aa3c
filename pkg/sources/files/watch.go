package files

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// Watcher calls a function shortly after catalog files in a directory
// change. Bursts of events within the debounce interval produce one call.
type Watcher struct {
	dir        string
	extensions []string
	debounce   time.Duration
	onChange   func()

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	stopCh  chan struct{}
	done    chan struct{}
	stopped bool
}

// Watch starts watching the directory read by s. The directory must exist.
func Watch(ctx context.Context, s *Source, debounce time.Duration, onChange func()) (*Watcher, error) {
	if debounce <= 0 {
		debounce = constants.DefaultWatchDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapIO("watch", s.dir, err)
	}
	if err := fw.Add(s.dir); err != nil {
		_ = fw.Close()
		return nil, errors.WrapIO("watch", s.dir, err)
	}

	w := &Watcher{
		dir:        s.dir,
		extensions: s.Extensions(),
		debounce:   debounce,
		onChange:   onChange,
		watcher:    fw,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	go w.run(ctx)

	logging.FromContext(ctx).Info().Str("dir", s.dir).Msg("Watching catalog directory for changes")
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	logger := logging.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Catalog file changed")
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Str("dir", w.dir).Msg("Catalog directory watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(w.extensions, filepath.Ext(event.Name))
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	stopped := w.stopped
	w.timer = nil
	w.mu.Unlock()

	if !stopped {
		w.onChange()
	}
}

// Close stops the watcher and waits for its goroutine to exit. Pending
// debounced calls are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.stopCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}
