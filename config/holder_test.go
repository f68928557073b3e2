package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/modeltype/config"
)

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Schemas.Dir != "./models" {
		t.Errorf("Schemas.Dir = %s, want ./models", got.Schemas.Dir)
	}
	if !filepath.IsAbs(h.Path()) {
		t.Errorf("Path() = %s, want an absolute path", h.Path())
	}
}

func TestNewHolder_Invalid(t *testing.T) {
	if _, err := config.NewHolder(writeConfig(t, "logging:\n  level: loud\n"), zerolog.Nop()); err == nil {
		t.Error("NewHolder(invalid) error = nil")
	}
}

func TestHolder_ReloadAndOnChange(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var received *config.Config
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		received = cfg
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte("schemas:\n  dir: ./v2\nlogging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get().Schemas.Dir; got != "./v2" {
		t.Errorf("reloaded Schemas.Dir = %s, want ./v2", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("OnChange callback was not called")
	}
	if received.Logging.Level != "debug" {
		t.Errorf("callback Logging.Level = %s, want debug", received.Logging.Level)
	}
}

func TestHolder_LogsChangedFields(t *testing.T) {
	path := writeConfig(t, validConfig())

	var buf bytes.Buffer
	h, err := config.NewHolder(path, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("schemas:\n  dir: ./v2\nlogging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	logged := buf.String()
	for _, want := range []string{
		`"field":"schemas.dir","old":"./models","new":"./v2","restart":true`,
		`"field":"logging.level","old":"info","new":"debug","restart":false`,
	} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %s\ngot: %s", want, logged)
		}
	}
	if strings.Contains(logged, "engine.max_depth") {
		t.Errorf("unchanged engine.max_depth logged: %s", logged)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("engine:\n  id_format: snowflake\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if got := h.Get().Schemas.Dir; got != "./models" {
		t.Errorf("should keep old config, got Schemas.Dir = %s", got)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan struct{}, 10)
	h.OnChange(func(*config.Config) { changed <- struct{}{} })

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("schemas:\n  dir: ./watched\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher did not trigger reload")
	}

	// a write may be seen as several events; wait for the final content
	deadline := time.Now().Add(2 * time.Second)
	for h.Get().Schemas.Dir != "./watched" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.Get().Schemas.Dir; got != "./watched" {
		t.Errorf("after file watch, Schemas.Dir = %s, want ./watched", got)
	}
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	restart := config.NonReloadableFields()

	if len(reloadable) == 0 || len(restart) == 0 {
		t.Fatal("field lists must not be empty")
	}

	seen := make(map[string]bool)
	for _, f := range reloadable {
		seen[f] = true
	}
	for _, f := range restart {
		if seen[f] {
			t.Errorf("%s is both reloadable and non-reloadable", f)
		}
	}
	if !seen["logging.level"] {
		t.Error("logging.level not in ReloadableFields")
	}
}

func TestDirWatcher(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	fired := make(chan struct{}, 10)

	isYAML := func(name string) bool { return filepath.Ext(name) == ".yaml" }
	w := config.NewDirWatcher(dir, isYAML, 100*time.Millisecond, zerolog.Nop(), func() {
		calls.Add(1)
		fired <- struct{}{}
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	// a burst of writes is coalesced
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("model: a\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire")
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times, want 1", n)
	}

	// unmatched files are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times after an unmatched write, want 1", n)
	}

	w.Stop()
	w.Stop()
}

func TestDirWatcher_MissingDir(t *testing.T) {
	w := config.NewDirWatcher(filepath.Join(t.TempDir(), "missing"), nil, time.Millisecond, zerolog.Nop(), func() {})
	if err := w.Start(); err == nil {
		t.Error("Start(missing) error = nil")
	}
	w.Stop()
}

// Helpers

func validConfig() string {
	return `
schemas:
  dir: ./models
`
}
