package history

import (
	"context"
	"testing"
	"time"

	"stratum-hq/strata/pkg/config"
)

func TestPrunerDeletesOldRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Save(ctx, testRecord("run-old", now.AddDate(0, 0, -10))); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Save(ctx, testRecord("run-recent", now)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	pruner := NewPruner(store, config.HistoryConfig{RetentionDays: 7})
	pruned, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned record, got %d", pruned)
	}
	if store.Size() != 1 {
		t.Errorf("Expected 1 remaining record, got %d", store.Size())
	}
}

func TestPrunerZeroRetentionKeepsEverything(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, testRecord("run-ancient", time.Now().AddDate(-1, 0, 0))); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	pruner := NewPruner(store, config.HistoryConfig{RetentionDays: 0})
	pruned, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if pruned != 0 {
		t.Errorf("Expected no pruning with zero retention, got %d", pruned)
	}
	if store.Size() != 1 {
		t.Errorf("Expected record to survive, got %d remaining", store.Size())
	}
}

func TestPrunerStartDisabledWithoutSchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), config.HistoryConfig{RetentionDays: 7})

	if err := pruner.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if pruner.IsRunning() {
		t.Error("Expected scheduler to stay disabled without a schedule")
	}
}

func TestPrunerRejectsInvalidSchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), config.HistoryConfig{
		RetentionDays: 7,
		PruneSchedule: "not a cron expression",
	})

	if err := pruner.Start(context.Background()); err == nil {
		t.Fatal("Expected error for invalid schedule")
	}
	if pruner.IsRunning() {
		t.Error("Scheduler should not be running after a failed start")
	}
}

func TestPrunerStartStop(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), config.HistoryConfig{
		RetentionDays: 7,
		PruneSchedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !pruner.IsRunning() {
		t.Fatal("Expected scheduler to be running")
	}

	pruner.Stop()
	if pruner.IsRunning() {
		t.Error("Expected scheduler to stop")
	}
}
