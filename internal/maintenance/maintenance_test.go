package maintenance

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebfried/menubarmaid/internal/database"
	"github.com/sebfried/menubarmaid/internal/settings"
)

func setupService(t *testing.T) (*Service, *settings.Service) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck

	store := settings.NewService(db)
	return NewService(db, dbPath, store, slog.Default()), store
}

func TestStatus(t *testing.T) {
	svc, _ := setupService(t)

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.PageSize <= 0 {
		t.Error("expected positive page size")
	}
	if st.PageCount <= 0 {
		t.Error("expected positive page count")
	}
	if st.LastOptimizeAt != "" {
		t.Error("expected empty last optimize time initially")
	}
	if !st.ScheduleEnabled {
		t.Error("expected schedule enabled by default")
	}
	if st.ScheduleInterval != DefaultIntervalHours {
		t.Errorf("interval = %d, want %d", st.ScheduleInterval, DefaultIntervalHours)
	}
}

func TestOptimize(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Optimize(ctx); err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.LastOptimizeAt != "2024-03-04T05:06:07Z" {
		t.Errorf("last optimize = %q", st.LastOptimizeAt)
	}
	if st.DBFileSize <= 0 {
		t.Error("expected positive DB file size after checkpoint")
	}
}

func TestVacuum(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if err := store.Set(ctx, settings.KeyWindowBounds, "{}"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
	if got, _ := store.Get(ctx, settings.KeyWindowBounds); got != "{}" {
		t.Errorf("settings lost after vacuum: %q", got)
	}
}

func TestSchedule(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if err := svc.SaveSchedule(ctx, ScheduleConfig{Enabled: false, IntervalHours: 6}); err != nil {
		t.Fatalf("SaveSchedule: %v", err)
	}
	got := svc.Schedule(ctx)
	if got.Enabled || got.IntervalHours != 6 {
		t.Errorf("Schedule = %+v", got)
	}

	if err := svc.SaveSchedule(ctx, ScheduleConfig{Enabled: true}); err == nil {
		t.Error("expected error for zero interval")
	}

	if err := store.SetMany(ctx, map[string]string{
		settings.KeyMaintenanceEnabled:  "maybe",
		settings.KeyMaintenanceInterval: "-3",
	}); err != nil {
		t.Fatal(err)
	}
	got = svc.Schedule(ctx)
	if got.Enabled != DefaultEnabled || got.IntervalHours != DefaultIntervalHours {
		t.Errorf("invalid values should fall back to defaults, got %+v", got)
	}
}

func TestStartScheduler_StopsOnCancel(t *testing.T) {
	svc, _ := setupService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartScheduler(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
