// Package watch keeps a project's generated artifacts current while its
// assets are edited. Filesystem events are coalesced per path and flushed
// once they have been quiet for the configured delay.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/features"
	"github.com/platinummonkey/cog/pkg/observability"
	"github.com/platinummonkey/cog/pkg/observer"
	"github.com/platinummonkey/cog/pkg/pipeline"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// resyncWorkers bounds the products resynced at once by the schedule
const resyncWorkers = 4

// Options configures a Watcher
type Options struct {
	// Root is the project-relative directory to watch, "Assets" by default
	Root string

	// Delay is how long a path must stay quiet before it is processed
	Delay time.Duration

	// Schedule triggers a full resync of every product; nil disables it
	Schedule cron.Schedule

	Metrics *observability.Metrics
	Logger  *logrus.Logger
}

// change is a pending, coalesced filesystem event
type change struct {
	op        fsnotify.Op
	timestamp time.Time
}

// Watcher turns asset edits into resync, sync and cleanup runs
type Watcher struct {
	pipeline *pipeline.Pipeline
	registry *observer.Registry
	store    *assets.Store
	root     string
	delay    time.Duration
	schedule cron.Schedule
	metrics  *observability.Metrics
	log      *logrus.Logger

	mu        sync.Mutex
	pending   map[string]*change
	processed map[string]time.Time
	products  []features.Product
	dirty     map[string]bool

	// resyncs carries scheduled resync requests to the run loop so they
	// never overlap a flush
	resyncs chan struct{}
}

// New creates a watcher over the pipeline's project
func New(p *pipeline.Pipeline, opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Root == "" {
		opts.Root = "Assets"
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	store := p.Features().Assets()
	return &Watcher{
		pipeline:  p,
		registry:  observer.NewRegistry(store, p.ProductsRoot(), opts.Logger),
		store:     store,
		root:      opts.Root,
		delay:     opts.Delay,
		schedule:  opts.Schedule,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		pending:   make(map[string]*change),
		processed: make(map[string]time.Time),
		dirty:     make(map[string]bool),
		resyncs:   make(chan struct{}, 1),
	}
}

// Registry returns the callback registry the watcher notifies
func (w *Watcher) Registry() *observer.Registry {
	return w.registry
}

// Run watches the project until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	root := w.store.Abs(w.root)
	if err := addRecursive(fsw, root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	if err := w.register(ctx); err != nil {
		return err
	}

	if w.schedule != nil {
		c := cron.New()
		c.Schedule(w.schedule, cron.FuncJob(w.requestResync))
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	ticker := time.NewTicker(tickInterval(w.delay))
	defer ticker.Stop()

	w.log.Infof("Watching %s for asset changes", root)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("Watcher error: %v", err)

		case <-ticker.C:
			w.flushSafely(ctx)

		case <-w.resyncs:
			w.resyncSafely(ctx)
		}
	}
}

func (w *Watcher) flushSafely(ctx context.Context) {
	defer observability.RecoverPanic(w.log, "asset flush")
	w.flush(ctx)
}

func (w *Watcher) resyncSafely(ctx context.Context) {
	defer observability.RecoverPanic(w.log, "scheduled resync")
	w.resyncAll(ctx)
}

// requestResync asks the run loop for a full resync. Requests made while
// one is already queued are dropped.
func (w *Watcher) requestResync() {
	select {
	case w.resyncs <- struct{}{}:
	default:
		w.log.Debugf("Scheduled resync already queued")
	}
}

// register installs the resync and sync callbacks of every product
func (w *Watcher) register(ctx context.Context) error {
	products, err := w.pipeline.Features().FindProducts(ctx)
	if err != nil {
		return err
	}

	for _, prod := range products {
		w.registry.RegisterPlatformConfiguration(prod, func(p features.Product) {
			if err := w.pipeline.Resync(ctx, p); err != nil {
				w.log.Errorf("Resync of %s failed: %v", p.CodeName(), err)
			}
		})
		w.registry.RegisterFeatureSettings(prod, func(p features.Product, _ *product.FeatureSettings) {
			w.dirty[p.CodeName()] = true
		})
	}

	w.mu.Lock()
	w.products = products
	w.mu.Unlock()
	return nil
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	w.metrics.WatchEvent(opLabel(event.Op))

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.log.Debugf("New directory: %s", event.Name)
			if err := addRecursive(fsw, event.Name); err != nil {
				w.log.Warnf("Error watching new directory: %v", err)
			}
			return
		}
	}

	rel, err := w.store.Rel(event.Name)
	if err != nil {
		w.log.Debugf("Ignoring event outside the project: %s", event.Name)
		return
	}
	w.queue(rel, event.Op)
}

// queue records an event on a project-relative path. Writes to assets are
// only interesting for records; removals and renames matter for any path
// since whole feature folders can disappear.
func (w *Watcher) queue(rel string, op fsnotify.Op) {
	removal := op&(fsnotify.Remove|fsnotify.Rename) != 0
	if !removal && (op&(fsnotify.Create|fsnotify.Write) == 0 || !strings.HasSuffix(rel, assets.Extension)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.processed[rel]; ok && !removal && now.Sub(last) < w.suppression() {
		w.log.Debugf("Skipping recently processed asset: %s", rel)
		return
	}

	if existing, ok := w.pending[rel]; ok {
		existing.op |= op
		existing.timestamp = now
		return
	}
	w.pending[rel] = &change{op: op, timestamp: now}
}

// Pending returns the number of paths waiting to be processed
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// flush processes every pending path that has been quiet for the delay
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	ops := make(map[string]fsnotify.Op)
	for rel, c := range w.pending {
		if now.Sub(c.timestamp) >= w.delay {
			ready = append(ready, rel)
			ops[rel] = c.op
			delete(w.pending, rel)
		}
	}
	for rel, last := range w.processed {
		if now.Sub(last) >= w.suppression() {
			delete(w.processed, rel)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	sort.Strings(ready)

	var imported, deleted, movedFrom []string
	for _, rel := range ready {
		switch {
		case w.store.Exists(rel):
			imported = append(imported, rel)
		case ops[rel]&fsnotify.Rename != 0:
			movedFrom = append(movedFrom, rel)
		default:
			deleted = append(deleted, rel)
		}
	}

	if len(deleted) > 0 || len(movedFrom) > 0 {
		w.cleanup(ctx, deleted, movedFrom)
	}
	if len(imported) == 0 {
		return
	}

	if err := w.register(ctx); err != nil {
		w.log.Errorf("Failed to refresh products: %v", err)
		return
	}
	w.notifySettings(ctx, imported)
	if n := w.registry.NotifyAssetsChanged(imported, nil); n > 0 {
		w.log.Debugf("Resynced %d products", n)
	}
}

func (w *Watcher) cleanup(ctx context.Context, deleted, movedFrom []string) {
	results, err := observer.CleanupMissingFeatures(ctx, w.pipeline.Features(), w.pipeline.ProductsRoot(), deleted, movedFrom)
	if err != nil {
		w.log.Errorf("Feature cleanup failed: %v", err)
		return
	}
	for _, r := range results {
		w.log.Infof("Removed features %v from %s", r.Result.Removed, r.ProductRoot)
	}
}

// notifySettings runs a sync for every product whose settings asset was
// among the imported paths
func (w *Watcher) notifySettings(ctx context.Context, imported []string) {
	changed := make(map[string]bool, len(imported))
	for _, rel := range imported {
		changed[rel] = true
	}

	w.mu.Lock()
	products := w.products
	w.mu.Unlock()

	for _, prod := range products {
		if !changed[prod.SettingsPath()] {
			continue
		}
		settings, err := w.pipeline.Features().TryLoadProductSettings(ctx, prod)
		if err != nil || settings == nil {
			continue
		}
		for _, f := range features.GetFeatureSettings(settings) {
			f := f
			w.registry.NotifyFeatureChanged(prod, &f)
		}
	}

	codes := make([]string, 0, len(w.dirty))
	for code := range w.dirty {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	w.dirty = make(map[string]bool)

	for _, code := range codes {
		report, err := w.pipeline.Sync(ctx, code)
		if err != nil {
			w.log.Errorf("Sync of %s failed: %v", code, err)
			continue
		}
		w.markProcessed(report.Product)
	}
}

// markProcessed suppresses the events caused by our own settings write
func (w *Watcher) markProcessed(code string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, prod := range w.products {
		if prod.CodeName() == code {
			w.processed[prod.SettingsPath()] = time.Now()
		}
	}
}

func (w *Watcher) resyncAll(ctx context.Context) {
	products, err := w.pipeline.Features().FindProducts(ctx)
	if err != nil {
		w.log.Errorf("Scheduled resync failed: %v", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncWorkers)
	for _, prod := range products {
		prod := prod
		g.Go(func() error {
			defer observability.RecoverPanic(w.log, "scheduled resync of "+prod.CodeName())
			if err := w.pipeline.Resync(gctx, prod); err != nil {
				w.log.Errorf("Scheduled resync of %s failed: %v", prod.CodeName(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// addRecursive adds dir and every directory below it
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

// suppression is how long our own writes to a path are ignored
func (w *Watcher) suppression() time.Duration {
	return 2*w.delay + time.Second
}

func tickInterval(delay time.Duration) time.Duration {
	tick := delay / 2
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}
	if tick > time.Second {
		tick = time.Second
	}
	return tick
}

func opLabel(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	default:
		return "chmod"
	}
}
