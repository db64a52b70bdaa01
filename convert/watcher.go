package convert

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
)

// RunCallback is invoked after a debounced change to the configuration
// file or any watched rule directory.
type RunCallback func() error

// Watcher re-runs conversions when rule files or the configuration
// change. Glob patterns cannot be watched directly, so each input
// pattern's static directory prefix is watched recursively instead and
// events are filtered back through the patterns.
type Watcher struct {
	configPath     string
	root           string
	watcher        *fsnotify.Watcher
	callback       RunCallback
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
}

// NewWatcher watches the config file and every input pattern's static
// directory prefix under root.
func NewWatcher(configPath, root string, cfg *config.Config, callback RunCallback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		configPath:     configPath,
		root:           root,
		watcher:        fsw,
		callback:       callback,
		debouncePeriod: 500 * time.Millisecond, // Debounce rapid file changes
	}

	if err := fsw.Add(configPath); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch config file %s", configPath)
	}
	for _, dir := range watchDirs(root, cfg) {
		if err := w.addRecursive(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	logger.Infow("Watching for changes",
		logger.FieldPath, w.configPath,
		"root", w.root)
	go w.watchLoop()
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// New directories need to be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logger.Warnw("Failed to watch new directory",
							logger.FieldPath, event.Name,
							logger.FieldError, err)
					}
				}
			}

			logger.Infow("Watcher detected change",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			w.scheduleRun()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Watcher error",
				logger.FieldError, err)
		}
	}
}

// scheduleRun debounces rapid file changes and triggers the callback.
func (w *Watcher) scheduleRun() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.callback(); err != nil {
			logger.Errorw("Watched run failed",
				logger.FieldError, err)
		}
	})
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch directory %s", path)
		}
		return nil
	})
}

// watchDirs collects the static directory prefix of every input pattern
// across all conversions, deduplicated.
func watchDirs(root string, cfg *config.Config) []string {
	seen := make(map[string]struct{})
	for _, conv := range cfg.Conversions {
		for _, pattern := range conv.Input {
			dir := filepath.Join(root, staticPrefix(pattern))
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				continue
			}
			seen[dir] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	return dirs
}

// staticPrefix returns the leading path segments of a glob pattern that
// contain no metacharacters.
func staticPrefix(pattern string) string {
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	var static []string
	for _, seg := range segments {
		if strings.ContainsAny(seg, "*?[{") {
			break
		}
		static = append(static, seg)
	}
	// A bare glob like "*.yml" watches the root itself.
	if len(static) == len(segments) && len(static) > 0 {
		static = static[:len(static)-1]
	}
	return filepath.Join(static...)
}
