package navigation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/metrics"
)

// TableSource hands out the route table currently in effect.
type TableSource interface {
	Table() *Table
}

// Reloader owns the active route table. Without a file it serves the
// built-in table; with one it can re-read the file on demand or on change.
// A table that fails to load or to satisfy the guard targets is rejected
// and the previous table stays active.
type Reloader struct {
	path    string
	targets Targets
	bus     *eventbus.Bus
	logger  zerolog.Logger
	current atomic.Pointer[Table]
}

func NewReloader(path string, targets Targets, bus *eventbus.Bus, logger zerolog.Logger) (*Reloader, error) {
	r := &Reloader{
		path:    path,
		targets: targets,
		bus:     bus,
		logger:  logger.With().Str("component", "routes").Logger(),
	}

	table, err := r.load()
	if err != nil {
		return nil, err
	}
	r.current.Store(table)
	metrics.RouteTableSize.Set(float64(table.Len()))
	return r, nil
}

func (r *Reloader) Table() *Table {
	return r.current.Load()
}

func (r *Reloader) Path() string {
	return r.path
}

func (r *Reloader) load() (*Table, error) {
	var (
		table *Table
		err   error
	)
	if r.path == "" {
		table = DefaultTable()
	} else if table, err = LoadTableFile(r.path); err != nil {
		return nil, err
	}
	if err := r.targets.Validate(table); err != nil {
		return nil, fmt.Errorf("route table %s: %w", r.describe(), err)
	}
	return table, nil
}

func (r *Reloader) describe() string {
	if r.path == "" {
		return "(built-in)"
	}
	return r.path
}

// Reload re-reads the route file and swaps the active table on success.
func (r *Reloader) Reload(ctx context.Context) error {
	table, err := r.load()
	if err != nil {
		metrics.RouteReloadsTotal.WithLabelValues("error").Inc()
		r.logger.Error().Err(err).Str("file", r.describe()).Msg("route table reload failed; keeping previous table")
		r.emit(ctx, EventRoutesReloadFailed, ReloadEvent{Path: r.path, Routes: r.Table().Len(), Err: err})
		return err
	}

	r.current.Store(table)
	metrics.RouteReloadsTotal.WithLabelValues("success").Inc()
	metrics.RouteTableSize.Set(float64(table.Len()))
	r.logger.Info().Str("file", r.describe()).Int("routes", table.Len()).Msg("route table reloaded")
	r.emit(ctx, EventRoutesReloaded, ReloadEvent{Path: r.path, Routes: table.Len()})
	return nil
}

func (r *Reloader) emit(ctx context.Context, event string, ev ReloadEvent) {
	if r.bus != nil {
		_ = r.bus.Emit(ctx, event, ev)
	}
}

// Watch reloads the table whenever the route file changes and blocks until
// ctx is done. The parent directory is watched so that editors replacing
// the file through a rename are picked up.
func (r *Reloader) Watch(ctx context.Context) error {
	if r.path == "" {
		return fmt.Errorf("route table watch: no route file configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("route table watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("route table watch: %w", err)
	}
	target := filepath.Clean(r.path)
	r.logger.Info().Str("file", target).Msg("watching route table")

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			_ = r.Reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(err).Msg("route table watcher error")
		}
	}
}
