package pedal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/pedal-ide/pedal-go/internal/logging"
)

// Store is the option storage shared with the rest of the front-end: a YAML
// file loaded into memory, saved on every update, and optionally watched so
// edits made by the external settings dialog are picked up.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	options Options
}

// OpenStore loads the options file at path, creating it with defaults when
// missing.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	store := &Store{
		path:    path,
		logger:  logger.With("component", "options"),
		options: DefaultOptions(),
	}

	if err := store.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := store.save(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Get returns a snapshot of the current options.
func (store *Store) Get() Options {
	store.mu.Lock()
	defer store.mu.Unlock()
	options := store.options
	options.UsedInterpreters = append([]string(nil), options.UsedInterpreters...)
	return options
}

// Update applies change to the options under the lock and saves the result.
func (store *Store) Update(change func(options *Options)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	change(&store.options)
	return store.save()
}

// Reload re-reads the options file, keeping the in-memory copy on failure.
func (store *Store) Reload() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.load()
}

// Watch reloads the store when the options file changes on disk, with a
// short debounce to ride out editors that write in several steps. onChange,
// when non-nil, runs after each successful reload. Watch returns once the
// watcher is installed and stops when ctx is cancelled.
func (store *Store) Watch(ctx context.Context, onChange func(Options)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(store.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	target := filepath.Base(store.path)
	var timer *time.Timer
	debounce := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(200*time.Millisecond, func() {
			if err := store.Reload(); err != nil {
				store.logger.Warn("reload after change failed", "error", err)
				return
			}
			if onChange != nil {
				onChange(store.Get())
			}
		})
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				store.logger.Warn("watch error", "error", err)
			}
		}
	}()
	return nil
}

func (store *Store) load() error {
	data, err := os.ReadFile(store.path)
	if err != nil {
		return err
	}
	options := DefaultOptions()
	if err := yaml.Unmarshal(data, &options); err != nil {
		return fmt.Errorf("options file %s: %w", store.path, err)
	}
	store.options = options
	return nil
}

func (store *Store) save() error {
	data, err := yaml.Marshal(store.options)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(store.path, data, 0o644)
}
