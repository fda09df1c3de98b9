package server

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watchDebounce = 200 * time.Millisecond

// TasksWatcher watches the tasks file and invokes onChange after writes,
// debounced so editors that write in bursts trigger a single rebuild.
type TasksWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)

	wg   sync.WaitGroup
	done chan struct{}

	mu      sync.Mutex
	pending *time.Timer
}

func NewTasksWatcher(path string, onChange func(path string)) (*TasksWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &TasksWatcher{
		watcher:  fsWatcher,
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	if err := fsWatcher.Add(path); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching until ctx is canceled or Stop is called.
func (w *TasksWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Stop stops the watcher and waits for the loop to exit.
func (w *TasksWatcher) Stop() error {
	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *TasksWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// schedule coalesces bursts of events into a single callback.
func (w *TasksWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(watchDebounce, func() {
		w.onChange(path)
	})
}
