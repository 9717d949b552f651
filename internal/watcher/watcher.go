// Package watcher re-indexes the evidence corpus when files on disk
// change. Editor save patterns produce bursts of filesystem events, so
// changes are debounced before triggering a run.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/beaconlabs-io/muse-evidence/internal/indexer"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// DefaultDebounce is the quiet period required after the last change
// before re-indexing starts.
const DefaultDebounce = 2 * time.Second

// Watcher triggers indexing runs when evidence files change.
type Watcher struct {
	dir      string
	debounce time.Duration
	indexer  *indexer.Service
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

// New creates a watcher over the evidence directory.
func New(dir string, debounce time.Duration, idx *indexer.Service, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		indexer:  idx,
		watcher:  fsw,
		logger:   logger,
	}, nil
}

// Run processes filesystem events until ctx is cancelled. Blocks.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("evidence change detected",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			timer = nil
			w.reindex(ctx)
		}
	}
}

func (w *Watcher) reindex(ctx context.Context) {
	w.logger.Info("evidence changed, re-indexing")
	result, err := w.indexer.IndexAll(ctx, indexer.Options{}, nil)
	if err != nil {
		w.logger.Error("automatic re-index failed", zap.Error(err))
		return
	}
	w.logger.Info("automatic re-index complete",
		zap.Int("embedded", result.TotalEmbedded),
		zap.Int("failed", len(result.Errors)))
}

// relevant filters to evidence file writes; editors also produce temp and
// swap files we must ignore.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := strings.ToLower(event.Name)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".txt")
}
