package knowledge

import (
	"math"
	"testing"

	"github.com/devman-ai/devman/pkg/models"
)

func TestRRF_SingleList(t *testing.T) {
	rrf := NewRRF(0)
	fused := rrf.Fuse([][]string{{"doc1", "doc2", "doc3"}})

	if len(fused) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(fused))
	}
	if fused[0].ID != "doc1" {
		t.Fatalf("expected doc1 first, got %s", fused[0].ID)
	}
	want := 1.0 / 61.0
	if math.Abs(fused[0].Score-want) > 1e-12 {
		t.Fatalf("expected score %v, got %v", want, fused[0].Score)
	}
	if !(fused[0].Score > fused[1].Score && fused[1].Score > fused[2].Score) {
		t.Fatal("expected strictly decreasing scores")
	}
}

func TestRRF_MultipleLists(t *testing.T) {
	rrf := NewRRF(0)
	fused := rrf.Fuse([][]string{
		{"doc1", "doc2", "doc3"},
		{"doc2", "doc1", "doc3"},
	})

	if len(fused) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(fused))
	}
	// doc3 sits at rank 3 in both lists and must come last.
	if fused[2].ID != "doc3" {
		t.Fatalf("expected doc3 last, got %s", fused[2].ID)
	}
	// doc1 and doc2 are symmetric and must tie exactly.
	if fused[0].Score != fused[1].Score {
		t.Fatalf("expected a tie, got %v and %v", fused[0].Score, fused[1].Score)
	}
}

func TestRRF_AbsentFromOneList(t *testing.T) {
	rrf := NewRRF(0)
	fused := rrf.Fuse([][]string{
		{"doc1"},
		{"doc2"},
	})

	want := 1.0 / 61.0
	for _, doc := range fused {
		if math.Abs(doc.Score-want) > 1e-12 {
			t.Fatalf("expected %s to score %v, got %v", doc.ID, want, doc.Score)
		}
	}
}

func TestRRF_Empty(t *testing.T) {
	rrf := NewRRF(0)
	if fused := rrf.Fuse(nil); len(fused) != 0 {
		t.Fatalf("expected empty fusion, got %d docs", len(fused))
	}
	if fused := rrf.Fuse([][]string{}); len(fused) != 0 {
		t.Fatalf("expected empty fusion, got %d docs", len(fused))
	}
}

func TestWeightedScore(t *testing.T) {
	got := WeightedScore(0.8, 0.6, 0.7, 0.3)
	want := 0.8*0.7 + 0.6*0.3
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := CosineSimilarity(a, []float32{1, 0, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 0, 0}); got != 0 {
		t.Fatalf("expected 0 for zero vector, got %v", got)
	}
	if got := CosineSimilarity(nil, a); got != 0 {
		t.Fatalf("expected 0 for empty vector, got %v", got)
	}
	got := CosineSimilarity(a, []float32{0.5, 0.5, 0})
	if !(got > 0.7 && got < 0.71) {
		t.Fatalf("expected ~0.707, got %v", got)
	}
}

func TestVectorIndex_SearchThresholdAndOrder(t *testing.T) {
	idx := NewVectorIndex(3)

	nearID := models.NewKnowledgeID()
	farID := models.NewKnowledgeID()
	idx.Add(&models.KnowledgeEmbedding{KnowledgeID: nearID, Embedding: []float32{1, 0, 0}})
	idx.Add(&models.KnowledgeEmbedding{KnowledgeID: farID, Embedding: []float32{0, 1, 0}})

	hits := idx.Search([]float32{1, 0, 0}, 10, 0.5)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].KnowledgeID != nearID {
		t.Fatalf("expected %s, got %s", nearID, hits[0].KnowledgeID)
	}
	if math.Abs(hits[0].Score-1) > 1e-9 {
		t.Fatalf("expected score ~1, got %v", hits[0].Score)
	}
}

func TestVectorIndex_AddReplacesAndRemove(t *testing.T) {
	idx := NewVectorIndex(2)
	id := models.NewKnowledgeID()

	idx.Add(&models.KnowledgeEmbedding{KnowledgeID: id, Embedding: []float32{1, 0}})
	idx.Add(&models.KnowledgeEmbedding{KnowledgeID: id, Embedding: []float32{0, 1}})
	if idx.Len() != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", idx.Len())
	}

	hits := idx.Search([]float32{0, 1}, 10, 0.9)
	if len(hits) != 1 {
		t.Fatalf("expected the replaced vector to match, got %d hits", len(hits))
	}

	idx.Remove(id)
	if idx.Len() != 0 {
		t.Fatalf("expected empty index after remove, got %d", idx.Len())
	}
}
