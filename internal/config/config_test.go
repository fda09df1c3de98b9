package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}

	if cfg.Database.Path != DefaultDBPath {
		t.Errorf("expected db path %s, got %s", DefaultDBPath, cfg.Database.Path)
	}

	if cfg.Schedule.Window != DefaultWindow {
		t.Errorf("expected window %v, got %v", DefaultWindow, cfg.Schedule.Window)
	}

	if cfg.Schedule.CalendarName != DefaultCalendarName {
		t.Errorf("expected calendar name %s, got %s", DefaultCalendarName, cfg.Schedule.CalendarName)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid port")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	found := false
	for _, e := range errs {
		if e.Field == "server.port" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected error for server.port field")
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Database.Path = ""
	cfg.Logging.Level = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) < 3 {
		t.Errorf("expected at least 3 accumulated errors, got %d", len(errs))
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "virtualdate.yaml")

	content := `
server:
  port: 9999
schedule:
  tasks_file: my-tasks.yaml
  window: 48h
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Schedule.TasksFile != "my-tasks.yaml" {
		t.Errorf("tasks_file = %s", cfg.Schedule.TasksFile)
	}
	if cfg.Schedule.Window != 48*time.Hour {
		t.Errorf("window = %v, want 48h", cfg.Schedule.Window)
	}

	// Untouched keys keep their defaults.
	if cfg.Server.Host != DefaultHost {
		t.Errorf("host = %s, want default", cfg.Server.Host)
	}
}
