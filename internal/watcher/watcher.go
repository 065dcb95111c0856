package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vmsite/collector/internal/bulletin"
	"github.com/vmsite/collector/internal/metrics"
)

// DefaultInterval is the wait between two polls.
const DefaultInterval = 10 * time.Second

// settleDelay batches bursts of filesystem notifications into one poll.
const settleDelay = 500 * time.Millisecond

// Converter turns one source document into a written bulletin record.
type Converter interface {
	Convert(ctx context.Context, path string, mtime time.Time) (*bulletin.Record, error)
}

// PassResult describes one poll.
type PassResult struct {
	// Changed is false when the snapshot matched the previous one.
	Changed bool
	// Slugs lists the records written, in document order.
	Slugs []string
	// Failed maps documents that could not be converted to their error.
	Failed map[string]error
	// Rebuilt is true when the rebuild step ran successfully.
	Rebuilt bool
}

// Watcher polls a source directory for bulletin documents.
type Watcher struct {
	sourceDir string
	interval  time.Duration
	conv      Converter
	rebuild   Rebuilder
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu    sync.Mutex // serializes passes
	prev  Snapshot
	dirs  []string
	state atomic.Int32
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// New creates a watcher over sourceDir. A nil rebuilder is replaced with
// NopRebuilder.
func New(sourceDir string, conv Converter, rb Rebuilder, opts ...Option) *Watcher {
	if rb == nil {
		rb = NopRebuilder{}
	}
	w := &Watcher{
		sourceDir: sourceDir,
		interval:  DefaultInterval,
		conv:      conv,
		rebuild:   rb,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		prev:      Snapshot{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher")
	return w
}

// State returns the current activity.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
}

// Snapshot returns a copy of the last committed snapshot.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(Snapshot, len(w.prev))
	for p, mt := range w.prev {
		out[p] = mt
	}
	return out
}

// Poll runs one pass. It returns an error when the pass was abandoned, in
// which case the stored snapshot is unchanged. Per-document failures are
// not errors; they are reported in PassResult.Failed.
func (w *Watcher) Poll(ctx context.Context) (res PassResult, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.setState(Idle)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watcher pass panicked: %v", r)
			w.logger.Error("pass panicked", "panic", r, "stack", string(debug.Stack()))
		}
		if err != nil {
			w.metrics.WatcherPass(metrics.PassFailed)
		}
	}()

	w.setState(Scanning)
	cur, dirs, err := scan(w.sourceDir)
	if err != nil {
		return PassResult{}, err
	}
	w.dirs = dirs

	if cur.Equal(w.prev) {
		w.metrics.WatcherPass(metrics.PassUnchanged)
		return PassResult{}, nil
	}

	res = PassResult{Changed: true, Failed: map[string]error{}}

	w.setState(Converting)
	for _, path := range cur.Paths() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := w.conv.Convert(ctx, path, cur[path])
		if err != nil {
			res.Failed[path] = err
			w.metrics.DocumentFailed()
			w.logger.Warn("document conversion failed", "doc", path, "error", err)
			continue
		}
		res.Slugs = append(res.Slugs, rec.Slug)
	}

	w.setState(Rebuilding)
	if err := w.rebuild.Rebuild(ctx); err != nil {
		return res, fmt.Errorf("rebuild: %w", err)
	}
	res.Rebuilt = true

	w.prev = cur.without(res.Failed)
	w.metrics.WatcherPass(metrics.PassConverted)
	w.logger.Info("bulletins regenerated", "records", len(res.Slugs), "failed", len(res.Failed))
	return res, nil
}

// Run polls until ctx is cancelled. Pass errors are logged, never returned.
// It returns nil once ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.sourceDir, 0o755); err != nil {
		w.logger.Warn("cannot create source directory", "dir", w.sourceDir, "error", err)
	}

	notify := w.startNotify(ctx)

	w.logger.Info("watching", "dir", w.sourceDir, "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.pollAndLog(ctx)
		if notify != nil {
			notify.sync(w.watchedDirs())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-notify.wake():
			ticker.Reset(w.interval)
		}
	}
}

func (w *Watcher) pollAndLog(ctx context.Context) {
	res, err := w.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("pass abandoned", "error", err, "failed_docs", len(res.Failed))
	}
}

func (w *Watcher) watchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

// notifier turns fsnotify events under the source tree into wake-ups.
type notifier struct {
	fsw    *fsnotify.Watcher
	wakeCh chan struct{}
	logger *slog.Logger
}

// startNotify returns nil when fsnotify is unavailable; polling continues.
func (w *Watcher) startNotify(ctx context.Context) *notifier {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Debug("fsnotify unavailable, polling only", "error", err)
		return nil
	}
	n := &notifier{
		fsw:    fsw,
		wakeCh: make(chan struct{}, 1),
		logger: w.logger,
	}
	go n.loop(ctx)
	return n
}

// wake is nil-safe: a nil notifier yields a channel that never fires.
func (n *notifier) wake() <-chan struct{} {
	if n == nil {
		return nil
	}
	return n.wakeCh
}

// sync adds watches for directories seen by the last scan. Watches on
// removed directories are dropped by fsnotify itself.
func (n *notifier) sync(dirs []string) {
	watched := make(map[string]bool)
	for _, d := range n.fsw.WatchList() {
		watched[d] = true
	}
	for _, d := range dirs {
		if watched[d] {
			continue
		}
		if err := n.fsw.Add(d); err != nil {
			n.logger.Debug("fsnotify add failed", "dir", d, "error", err)
		}
	}
}

func (n *notifier) loop(ctx context.Context) {
	defer n.fsw.Close()

	var settle *time.Timer
	var settled <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			return
		case _, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			if settle == nil {
				settle = time.NewTimer(settleDelay)
			} else {
				settle.Reset(settleDelay)
			}
			settled = settle.C
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			n.logger.Debug("fsnotify error", "error", err)
		case <-settled:
			settled = nil
			select {
			case n.wakeCh <- struct{}{}:
			default:
			}
		}
	}
}
