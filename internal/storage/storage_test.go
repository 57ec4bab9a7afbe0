package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

var (
	_ Storage = (*FileStore)(nil)
	_ Storage = (*SQLiteStore)(nil)
)

// testBackends builds one instance of each backend rooted in a temp dir.
func testBackends(t *testing.T) map[string]Storage {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "devman.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Storage{
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func sampleTask(title string) *models.Task {
	now := time.Now()
	return &models.Task{
		ID:          models.NewTaskID(),
		Title:       title,
		Description: "description of " + title,
		Intent: models.Intent{
			Description:     "implement " + title,
			SuccessCriteria: []string{"tests pass"},
		},
		Status:    models.StatusQueued,
		State:     models.NewCreatedState("ai"),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskRoundTrip(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := sampleTask("add login endpoint")

			if err := store.SaveTask(ctx, task); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := store.LoadTask(ctx, task.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != task.ID {
				t.Fatalf("expected id %s, got %s", task.ID, got.ID)
			}
			if got.Title != task.Title {
				t.Fatalf("expected title %q, got %q", task.Title, got.Title)
			}
			if got.State.Kind != models.StateCreated {
				t.Fatalf("expected state %s, got %s", models.StateCreated, got.State.Kind)
			}
		})
	}
}

func TestLoadTask_NotFound(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.LoadTask(context.Background(), models.NewTaskID())
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDeleteTask(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := sampleTask("temporary")

			if err := store.SaveTask(ctx, task); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := store.DeleteTask(ctx, task.ID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := store.LoadTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestVersionBumpsOnEverySave(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			task := sampleTask("versioned")

			v, err := store.Version(ctx, KindTask, task.ID.String())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != 0 {
				t.Fatalf("expected version 0 before first save, got %d", v)
			}

			for want := 1; want <= 3; want++ {
				task.Title = "versioned " + string(rune('0'+want))
				if err := store.SaveTask(ctx, task); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				v, err := store.Version(ctx, KindTask, task.ID.String())
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v != want {
					t.Fatalf("expected version %d, got %d", want, v)
				}
			}
		})
	}
}

func TestPendingClearedByCommitAndRollback(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if store.Pending() {
				t.Fatal("expected no pending writes on a fresh store")
			}

			if err := store.SaveTask(ctx, sampleTask("pending")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !store.Pending() {
				t.Fatal("expected pending writes after save")
			}
			if err := store.Commit(ctx, "checkpoint"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.Pending() {
				t.Fatal("expected no pending writes after commit")
			}

			task := sampleTask("rolled back")
			if err := store.SaveTask(ctx, task); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := store.Rollback(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.Pending() {
				t.Fatal("expected no pending writes after rollback")
			}
			// Rollback is advisory: the write stays visible.
			if _, err := store.LoadTask(ctx, task.ID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestListTasksFilter(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			phase := models.NewPhaseID()

			queued := sampleTask("queued one")
			queued.PhaseID = phase

			active := sampleTask("active one")
			active.Status = models.StatusActive
			active.PhaseID = phase

			other := sampleTask("other phase")
			other.Status = models.StatusActive

			for _, task := range []*models.Task{queued, active, other} {
				if err := store.SaveTask(ctx, task); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			all, err := store.ListTasks(ctx, models.TaskFilter{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 tasks, got %d", len(all))
			}

			got, err := store.ListTasks(ctx, models.TaskFilter{
				Statuses: []models.TaskStatus{models.StatusActive},
				PhaseID:  phase,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 1 || got[0].ID != active.ID {
				t.Fatalf("expected only %s, got %d tasks", active.ID, len(got))
			}
		})
	}
}

func TestListWorkRecordsByTask(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			taskID := models.NewTaskID()
			otherID := models.NewTaskID()

			for i, owner := range []models.TaskID{taskID, taskID, otherID} {
				record := &models.WorkRecord{
					ID:        models.NewWorkRecordID(),
					TaskID:    owner,
					Executor:  models.Executor{Kind: models.ExecutorAI, Model: "test"},
					StartedAt: time.Now().Add(time.Duration(i) * time.Minute),
				}
				if err := store.SaveWorkRecord(ctx, record); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			got, err := store.ListWorkRecords(ctx, taskID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 records for %s, got %d", taskID, len(got))
			}
			for _, r := range got {
				if r.TaskID != taskID {
					t.Fatalf("expected task %s, got %s", taskID, r.TaskID)
				}
			}
		})
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			embedding := &models.KnowledgeEmbedding{
				KnowledgeID: models.NewKnowledgeID(),
				Embedding:   []float32{0.25, -1.5, 3.125, 0},
				Model:       "bge-m3",
				Dimension:   4,
				CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
			}

			if err := store.SaveEmbedding(ctx, embedding); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := store.LoadEmbedding(ctx, embedding.KnowledgeID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got.Embedding) != len(embedding.Embedding) {
				t.Fatalf("expected %d components, got %d", len(embedding.Embedding), len(got.Embedding))
			}
			for i, f := range embedding.Embedding {
				if got.Embedding[i] != f {
					t.Fatalf("component %d: expected %v, got %v", i, f, got.Embedding[i])
				}
			}
			if got.Model != embedding.Model || got.Dimension != embedding.Dimension {
				t.Fatalf("expected %s/%d, got %s/%d",
					embedding.Model, embedding.Dimension, got.Model, got.Dimension)
			}

			if err := store.DeleteEmbedding(ctx, embedding.KnowledgeID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := store.LoadEmbedding(ctx, embedding.KnowledgeID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestGoalAndPhaseRoundTrip(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			goal := &models.Goal{
				ID:          models.NewGoalID(),
				Title:       "ship auth",
				Description: "users can sign in",
				CreatedAt:   time.Now(),
			}
			if err := store.SaveGoal(ctx, goal); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotGoal, err := store.LoadGoal(ctx, goal.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotGoal.Title != goal.Title {
				t.Fatalf("expected title %q, got %q", goal.Title, gotGoal.Title)
			}

			phase := &models.Phase{
				ID:   models.NewPhaseID(),
				Name: "backend",
			}
			if err := store.SavePhase(ctx, phase); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotPhase, err := store.LoadPhase(ctx, phase.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotPhase.Name != phase.Name {
				t.Fatalf("expected name %q, got %q", phase.Name, gotPhase.Name)
			}
		})
	}
}
