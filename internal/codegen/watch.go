package codegen

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchDebounce collapses bursts of file events from a single save.
var WatchDebounce = 200 * time.Millisecond

// InputFiles returns the absolute paths of every local document and override
// read by cfg. URLs are skipped.
func InputFiles(cfg Config) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) error {
		if u, err := url.Parse(p); err == nil && u.Scheme != "" && u.Host != "" {
			return nil
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
		return nil
	}
	for _, src := range cfg.Sources {
		if err := add(src.Path); err != nil {
			return nil, err
		}
		for _, ov := range src.Overrides {
			if err := add(ov); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Watch runs generation once and again whenever an input file changes, until
// ctx is done. Each run is reported through onRun; a failed run does not stop
// the watch.
func Watch(ctx context.Context, cfg Config, log zerolog.Logger, onRun func(*Result, error)) error {
	files, err := InputFiles(cfg)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("codegen: watch needs at least one local input file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories; editors often save by replacing the file.
	watched := make(map[string]bool)
	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f] = true
		dir := filepath.Dir(f)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
		watched[dir] = true
	}
	log.Info().Strs("files", files).Msg("watching inputs for changes")

	onRun(Run(ctx, cfg, log))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !names[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("event", event.Op.String()).Str("file", abs).Msg("input changed")
			pending = time.After(WatchDebounce)
		case <-pending:
			pending = nil
			onRun(Run(ctx, cfg, log))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("file watcher error")
		}
	}
}
