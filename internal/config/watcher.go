package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is how often a [Watcher] polls its file.
const DefaultWatchInterval = 5 * time.Second

// Watcher hot-reloads the config file. It polls the file, re-parses it when
// its content changes and hands the previous and the new config to the
// callback, but only when [Diff] reports a change. Edits that fail to parse
// or validate are logged and the last good config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)
	logger   *slog.Logger

	mu      sync.Mutex
	current *Config
	state   fileState

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// fileState identifies one revision of the config file. The modification
// time and size are checked before the file is read; the digest decides.
type fileState struct {
	modTime time.Time
	size    int64
	digest  [sha256.Size]byte
}

func (s fileState) sameStat(info os.FileInfo) bool {
	return s.modTime.Equal(info.ModTime()) && s.size == info.Size()
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Default: [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger. Default: [slog.Default].
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher loads the config at path and starts polling it. onChange may be
// nil, in which case the watcher only keeps [Watcher.Current] up to date.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onChange: onChange,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("path", path)

	cfg, state, err := readRevision(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	w.current, w.state = cfg, state

	go w.run()
	return w, nil
}

// Current returns the last config that loaded cleanly.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling and waits for an in-progress reload to finish. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.stopped
}

func (w *Watcher) run() {
	defer close(w.stopped)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config watcher: stat failed", "err", err)
		return
	}
	w.mu.Lock()
	unchanged := w.state.sameStat(info)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, state, err := readRevision(w.path)
	if err != nil {
		w.logger.Warn("config watcher: keeping previous config", "err", err)
		// Remember the broken revision so it is reported once.
		w.mu.Lock()
		w.state.modTime, w.state.size = info.ModTime(), info.Size()
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	if state.digest == w.state.digest {
		w.state = state
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current, w.state = cfg, state
	w.mu.Unlock()

	if !Diff(old, cfg).Changed() {
		w.logger.Debug("config watcher: file changed without effect")
		return
	}
	w.logger.Info("config watcher: configuration reloaded")
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// readRevision parses the file at path and returns it with its revision.
func readRevision(path string) (*Config, fileState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileState{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fileState{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileState{}, err
	}
	return cfg, fileState{
		modTime: info.ModTime(),
		size:    info.Size(),
		digest:  sha256.Sum256(data),
	}, nil
}
