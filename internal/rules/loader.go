package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/AdityaK05/AMLGuard/internal/logging"
)

// reloadDebounce coalesces the burst of fsnotify events an editor save
// produces into a single reload.
const reloadDebounce = 250 * time.Millisecond

// ruleFile is the on-disk YAML document shape.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Loader reads rule files from a directory and keeps an Engine in sync
// with them.
type Loader struct {
	dir    string
	engine *Engine

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewLoader(dir string, engine *Engine) *Loader {
	return &Loader{dir: dir, engine: engine, done: make(chan struct{})}
}

// Load parses every .yaml/.yml file in the directory and installs the
// result. On any parse or validation error the engine keeps its current
// set and the error is returned.
func (l *Loader) Load(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("read rules dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return 0, ErrNoRules
	}
	sort.Strings(names)

	seen := make(map[string]string)
	var all []Rule
	for _, name := range names {
		path := filepath.Join(l.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", name, err)
		}
		var doc ruleFile
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return 0, fmt.Errorf("parse %s: %w", name, err)
		}
		for i := range doc.Rules {
			r := doc.Rules[i]
			if err := r.Validate(); err != nil {
				return 0, fmt.Errorf("%s: %w", name, err)
			}
			if prev, dup := seen[r.ID]; dup {
				return 0, fmt.Errorf("rules: id %q defined in both %s and %s", r.ID, prev, name)
			}
			seen[r.ID] = name
			all = append(all, r)
		}
	}

	l.engine.Replace(all)
	logging.L(ctx).Info("rules loaded", "files", len(names), "rules", len(all))
	return len(all), nil
}

// Watch starts the directory watcher. Changes trigger a debounced
// reload; a bad edit logs an error and leaves the previous set active.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start rules watcher: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch rules dir: %w", err)
	}
	l.watcher = w

	go l.run(ctx)
	return nil
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			ext := strings.ToLower(filepath.Ext(ev.Name))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			if _, err := l.Load(ctx); err != nil {
				logging.L(ctx).Error("rules reload failed, keeping previous set", "error", err)
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logging.L(ctx).Error("rules watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for the reload goroutine to exit.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	return err
}
