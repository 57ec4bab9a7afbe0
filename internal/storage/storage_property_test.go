package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/devman-ai/devman/pkg/models"
)

func genAlphaString(t *rapid.T, label string, minLen, maxLen int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	n := rapid.IntRange(minLen, maxLen).Draw(t, label+"Len")
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rapid.IntRange(0, len(letters)-1).Draw(t, label+"Char")]
	}
	return string(b)
}

func genStatus(t *rapid.T) models.TaskStatus {
	statuses := []models.TaskStatus{
		models.StatusIdea, models.StatusQueued, models.StatusActive,
		models.StatusBlocked, models.StatusReview, models.StatusDone,
		models.StatusAbandoned,
	}
	return statuses[rapid.IntRange(0, len(statuses)-1).Draw(t, "statusIdx")]
}

func genTask(t *rapid.T) *models.Task {
	task := &models.Task{
		ID:          models.NewTaskID(),
		Title:       genAlphaString(t, "title", 1, 40),
		Description: genAlphaString(t, "desc", 0, 80),
		Status:      genStatus(t),
		State:       models.NewCreatedState("ai"),
	}
	nDeps := rapid.IntRange(0, 3).Draw(t, "nDeps")
	for i := 0; i < nDeps; i++ {
		task.DependsOn = append(task.DependsOn, models.NewTaskID())
	}
	nCriteria := rapid.IntRange(0, 3).Draw(t, "nCriteria")
	for i := 0; i < nCriteria; i++ {
		task.Intent.SuccessCriteria = append(task.Intent.SuccessCriteria,
			genAlphaString(t, fmt.Sprintf("criterion%d", i), 1, 30))
	}
	return task
}

// Property: a saved task loads back with identical content on every backend.
func TestProperty_TaskRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		for name, store := range testBackends(t) {
			ctx := context.Background()
			task := genTask(rt)

			if err := store.SaveTask(ctx, task); err != nil {
				rt.Fatalf("%s: unexpected error: %v", name, err)
			}
			got, err := store.LoadTask(ctx, task.ID)
			if err != nil {
				rt.Fatalf("%s: unexpected error: %v", name, err)
			}
			if got.ID != task.ID || got.Title != task.Title || got.Status != task.Status {
				rt.Fatalf("%s: round-trip mismatch: %+v vs %+v", name, got, task)
			}
			if len(got.DependsOn) != len(task.DependsOn) {
				rt.Fatalf("%s: expected %d deps, got %d", name, len(task.DependsOn), len(got.DependsOn))
			}
			for i, dep := range task.DependsOn {
				if got.DependsOn[i] != dep {
					rt.Fatalf("%s: dep %d: expected %s, got %s", name, i, dep, got.DependsOn[i])
				}
			}
		}
	})
}

// Property: every save bumps the id's version by exactly one.
func TestProperty_VersionMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		for name, store := range testBackends(t) {
			ctx := context.Background()
			task := genTask(rt)
			saves := rapid.IntRange(1, 5).Draw(rt, "saves")

			for i := 0; i < saves; i++ {
				before, err := store.Version(ctx, KindTask, task.ID.String())
				if err != nil {
					rt.Fatalf("%s: unexpected error: %v", name, err)
				}
				if err := store.SaveTask(ctx, task); err != nil {
					rt.Fatalf("%s: unexpected error: %v", name, err)
				}
				after, err := store.Version(ctx, KindTask, task.ID.String())
				if err != nil {
					rt.Fatalf("%s: unexpected error: %v", name, err)
				}
				if after != before+1 {
					rt.Fatalf("%s: expected version %d after save, got %d", name, before+1, after)
				}
			}
		}
	})
}

// Property: embedding vectors survive the float32 codec on every backend.
func TestProperty_EmbeddingRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dim := rapid.IntRange(1, 64).Draw(rt, "dim")
		vector := make([]float32, dim)
		for i := range vector {
			vector[i] = float32(rapid.Float64Range(-100, 100).Draw(rt, fmt.Sprintf("v%d", i)))
		}

		for name, store := range testBackends(t) {
			ctx := context.Background()
			embedding := &models.KnowledgeEmbedding{
				KnowledgeID: models.NewKnowledgeID(),
				Embedding:   vector,
				Model:       "bge-m3",
				Dimension:   dim,
			}
			if err := store.SaveEmbedding(ctx, embedding); err != nil {
				rt.Fatalf("%s: unexpected error: %v", name, err)
			}
			got, err := store.LoadEmbedding(ctx, embedding.KnowledgeID)
			if err != nil {
				rt.Fatalf("%s: unexpected error: %v", name, err)
			}
			if len(got.Embedding) != dim {
				rt.Fatalf("%s: expected %d components, got %d", name, dim, len(got.Embedding))
			}
			for i, f := range vector {
				if got.Embedding[i] != f {
					rt.Fatalf("%s: component %d: expected %v, got %v", name, i, f, got.Embedding[i])
				}
			}
		}
	})
}

// Property: the binary vector codec is lossless on its own.
func TestProperty_VectorCodec(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 128).Draw(rt, "n")
		v := make([]float32, n)
		for i := range v {
			v[i] = float32(rapid.Float64Range(-1e6, 1e6).Draw(rt, fmt.Sprintf("f%d", i)))
		}
		decoded, err := decodeVector(encodeVector(v))
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if len(decoded) != n {
			rt.Fatalf("expected %d components, got %d", n, len(decoded))
		}
		for i := range v {
			if decoded[i] != v[i] {
				rt.Fatalf("component %d: expected %v, got %v", i, v[i], decoded[i])
			}
		}
	})
}

// The file backend must survive reopening the same root.
func TestFileStoreReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task := sampleTask("persisted")
	if err := first.SaveTask(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := second.LoadTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != task.Title {
		t.Fatalf("expected title %q, got %q", task.Title, got.Title)
	}
	v, err := second.Version(ctx, KindTask, task.ID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected version 1 after reopen, got %d", v)
	}
}

// The sqlite backend must survive reopening the same database file.
func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "devman.db")

	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task := sampleTask("persisted")
	if err := first.SaveTask(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer second.Close()
	got, err := second.LoadTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != task.Title {
		t.Fatalf("expected title %q, got %q", task.Title, got.Title)
	}
}
