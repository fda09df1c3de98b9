package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/watzon/virtualdate/internal/config"
)

func testConfig(t *testing.T, tasksYAML string) *config.Config {
	t.Helper()

	tmpDir := t.TempDir()
	tasksPath := filepath.Join(tmpDir, "tasks.yaml")
	if err := os.WriteFile(tasksPath, []byte(tasksYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Schedule.TasksFile = tasksPath
	return cfg
}

func TestHandleCalendar_NoBuild(t *testing.T) {
	srv := New(config.Default())

	rec := httptest.NewRecorder()
	srv.handleCalendar(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleCalendar_ServesFeed(t *testing.T) {
	srv := New(config.Default())
	srv.feed = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	srv.builtAt = time.Now()

	rec := httptest.NewRecorder()
	srv.handleCalendar(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.String() != srv.feed {
		t.Error("body does not match the cached feed")
	}
}

func TestHandleHealthz(t *testing.T) {
	srv := New(config.Default())

	rec := httptest.NewRecorder()
	srv.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	srv.lastErr = os.ErrNotExist
	rec = httptest.NewRecorder()
	srv.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d", rec.Code)
	}
}

func TestRebuild(t *testing.T) {
	cfg := testConfig(t, `
schema_version: 2
tasks:
  - id: always-on
    duration: 60
`)
	srv := New(cfg)

	if err := srv.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild error: %v", err)
	}

	srv.mu.RLock()
	feed := srv.feed
	srv.mu.RUnlock()

	if !strings.Contains(feed, "SUMMARY:always-on") {
		t.Errorf("feed missing event:\n%s", feed)
	}
}

func TestRebuild_KeepsFeedOnError(t *testing.T) {
	cfg := testConfig(t, `
schema_version: 2
tasks:
  - id: ok
    duration: 60
`)
	srv := New(cfg)
	if err := srv.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(cfg.Schedule.TasksFile, []byte("schema_version: 99\ntasks: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := srv.Rebuild(context.Background()); err == nil {
		t.Fatal("expected rebuild to fail")
	}

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	if !strings.Contains(srv.feed, "SUMMARY:ok") {
		t.Error("failed rebuild should keep the previous feed")
	}
	if srv.lastErr == nil {
		t.Error("expected lastErr to be set")
	}
}

func TestTasksWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tasks.yaml")
	if err := os.WriteFile(path, []byte("schema_version: 2\ntasks: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 1)
	w, err := NewTasksWatcher(path, func(p string) {
		select {
		case changed <- p:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer func() { _ = w.Stop() }()

	if err := os.WriteFile(path, []byte("schema_version: 2\ntasks:\n  - id: a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
