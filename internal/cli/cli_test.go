package cli

import (
	"testing"
	"time"

	"github.com/watzon/virtualdate/internal/config"
)

func TestResolveWindow_Explicit(t *testing.T) {
	cfg := config.Default()

	from, to, err := resolveWindow(cfg, "2026-01-01T00:00:00Z", "2026-01-08T00:00:00Z")
	if err != nil {
		t.Fatalf("resolveWindow error: %v", err)
	}

	wantFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	if !from.Equal(wantFrom) || !to.Equal(wantTo) {
		t.Errorf("window = [%v, %v)", from, to)
	}
}

func TestResolveWindow_DefaultTo(t *testing.T) {
	cfg := config.Default()

	from, to, err := resolveWindow(cfg, "2026-01-01T00:00:00Z", "")
	if err != nil {
		t.Fatalf("resolveWindow error: %v", err)
	}
	if got := to.Sub(from); got != cfg.Schedule.Window {
		t.Errorf("window length = %v, want %v", got, cfg.Schedule.Window)
	}
}

func TestResolveWindow_Invalid(t *testing.T) {
	cfg := config.Default()

	if _, _, err := resolveWindow(cfg, "not-a-time", ""); err == nil {
		t.Error("expected error for bad --from")
	}
	if _, _, err := resolveWindow(cfg, "2026-01-02T00:00:00Z", "2026-01-01T00:00:00Z"); err == nil {
		t.Error("expected error for inverted window")
	}
}
