package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// field is one configuration key as seen by reloads.
type field struct {
	key  string
	live bool // applied by OnChange listeners without a restart
	get  func(*Config) string
}

var fields = []field{
	{"logging.level", true, func(c *Config) string { return c.Logging.Level }},
	{"logging.format", false, func(c *Config) string { return c.Logging.Format }},
	{"schemas.dir", false, func(c *Config) string { return c.Schemas.Dir }},
	{"schemas.watch", false, func(c *Config) string { return strconv.FormatBool(c.Schemas.Watch) }},
	{"schemas.debounce", false, func(c *Config) string { return c.Schemas.Debounce.String() }},
	{"engine.max_depth", false, func(c *Config) string { return strconv.Itoa(c.Engine.MaxDepth) }},
	{"engine.id_format", false, func(c *Config) string { return c.Engine.IDFormat }},
	{"metrics.enabled", false, func(c *Config) string { return strconv.FormatBool(c.Metrics.Enabled) }},
}

// ReloadableFields lists the keys a reload applies immediately.
func ReloadableFields() []string { return fieldKeys(true) }

// NonReloadableFields lists the keys that only take effect on restart.
func NonReloadableFields() []string { return fieldKeys(false) }

func fieldKeys(live bool) []string {
	var keys []string
	for _, f := range fields {
		if f.live == live {
			keys = append(keys, f.key)
		}
	}
	return keys
}

// Holder keeps the current Config for a file and swaps it on reload.
// Get is safe from any goroutine.
type Holder struct {
	mu        sync.RWMutex
	current   *Config
	listeners []func(*Config)

	reloadMu sync.Mutex
	path     string
	logger   zerolog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewHolder loads path and returns a Holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg, err := Load(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &Holder{
		current: cfg,
		path:    abs,
		logger:  logger.With().Str("config", abs).Logger(),
		done:    make(chan struct{}),
	}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Path returns the absolute path of the config file.
func (h *Holder) Path() string { return h.path }

// OnChange adds fn to the listeners called after each successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Reload reads the file again. Reloads are serialized; a file that fails to
// load leaves the current configuration in place.
func (h *Holder) Reload() error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := Load(h.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	listeners := append(([]func(*Config))(nil), h.listeners...)
	h.mu.Unlock()

	h.logDiff(prev, next)
	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// WatchFile reloads whenever the file is written or replaced. The parent
// directory is watched so editors that save by rename are seen.
func (h *Holder) WatchFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}
	h.watcher = w

	go h.followFile(w)
	h.logger.Info().Msg("watching config file")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop.
func (h *Holder) WatchSignals() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-sig:
				h.reloadFrom("SIGHUP")
			case <-h.done:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. Later calls do nothing.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) followFile(w *fsnotify.Watcher) {
	name := filepath.Base(h.path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.reloadFrom(ev.Op.String())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher")
		case <-h.done:
			return
		}
	}
}

func (h *Holder) reloadFrom(trigger string) {
	if err := h.Reload(); err != nil {
		h.logger.Error().Err(err).Str("trigger", trigger).Msg("config reload failed, keeping previous")
		return
	}
	h.logger.Info().Str("trigger", trigger).Msg("config reloaded")
}

func (h *Holder) logDiff(prev, next *Config) {
	for _, f := range fields {
		before, after := f.get(prev), f.get(next)
		if before == after {
			continue
		}
		ev := h.logger.Info()
		if !f.live {
			ev = h.logger.Warn()
		}
		ev.Str("field", f.key).
			Str("old", before).
			Str("new", after).
			Bool("restart", !f.live).
			Msg("config changed")
	}
}
