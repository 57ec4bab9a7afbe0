package knowledge

import (
	"fmt"
	"math"
	"strings"
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

func genKnowledgeType(t *rapid.T) models.KnowledgeType {
	types := []models.KnowledgeType{
		models.KnowledgeLessonLearned, models.KnowledgeBestPractice,
		models.KnowledgeCodePattern, models.KnowledgeSolution,
		models.KnowledgeTemplate, models.KnowledgeDecision,
	}
	return types[rapid.IntRange(0, len(types)-1).Draw(t, "typeIdx")]
}

// Property: keyword scores are never negative, and any item whose
// summary contains the query scores at least 10.
func TestProperty_KeywordScoreBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		query := genAlphaString(rt, "query", 1, 8)
		k := &models.Knowledge{
			ID:    models.NewKnowledgeID(),
			Title: genAlphaString(rt, "title", 1, 20),
			Type:  genKnowledgeType(rt),
			Content: models.KnowledgeContent{
				Summary: genAlphaString(rt, "summary", 0, 60),
				Detail:  genAlphaString(rt, "detail", 0, 120),
			},
		}
		nTags := rapid.IntRange(0, 4).Draw(rt, "nTags")
		for i := 0; i < nTags; i++ {
			k.Tags = append(k.Tags, genAlphaString(rt, fmt.Sprintf("tag%d", i), 1, 10))
		}

		score := keywordScore(k, query)
		if score < 0 {
			rt.Fatalf("negative score %v", score)
		}
		if strings.Contains(strings.ToLower(k.Content.Summary), query) && score < 10 {
			rt.Fatalf("summary contains %q but score is %v", query, score)
		}
	})
}

// Property: cosine similarity stays in [-1, 1] and zero vectors map to 0.
func TestProperty_CosineSimilarityRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(rt, "dim")
		a := make([]float32, n)
		b := make([]float32, n)
		for i := 0; i < n; i++ {
			a[i] = float32(rapid.Float64Range(-10, 10).Draw(rt, fmt.Sprintf("a%d", i)))
			b[i] = float32(rapid.Float64Range(-10, 10).Draw(rt, fmt.Sprintf("b%d", i)))
		}

		got := CosineSimilarity(a, b)
		if got < -1-1e-9 || got > 1+1e-9 {
			rt.Fatalf("similarity %v out of [-1, 1]", got)
		}
		if CosineSimilarity(make([]float32, n), b) != 0 {
			rt.Fatal("zero vector must yield 0")
		}
	})
}

// Property: a doc at rank 1 in exactly one list scores 1/(k+1), and a
// doc ranked first in every list outscores docs ranked second or worse
// in every list.
func TestProperty_RRFScores(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.IntRange(1, 100).Draw(rt, "k")
		rrf := NewRRF(k)

		fused := rrf.Fuse([][]string{
			{"only"},
			{"other1", "other2"},
		})
		for _, doc := range fused {
			if doc.ID == "only" {
				want := 1.0 / float64(k+1)
				if math.Abs(doc.Score-want) > 1e-12 {
					rt.Fatalf("expected %v for rank-1 single-list doc, got %v", want, doc.Score)
				}
			}
		}

		nLists := rapid.IntRange(1, 4).Draw(rt, "nLists")
		nDocs := rapid.IntRange(2, 6).Draw(rt, "nDocs")
		docs := make([]string, nDocs)
		for i := range docs {
			docs[i] = fmt.Sprintf("doc%d", i)
		}
		lists := make([][]string, nLists)
		for i := range lists {
			lists[i] = docs // doc0 is rank 1 everywhere
		}
		fused = rrf.Fuse(lists)
		if fused[0].ID != "doc0" {
			rt.Fatalf("expected doc0 to win, got %s", fused[0].ID)
		}
	})
}

// Property: fusing no lists yields nothing; an empty query matches
// nothing even against a populated store.
func TestProperty_EmptyInputs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.IntRange(1, 100).Draw(rt, "k")
		if fused := NewRRF(k).Fuse(nil); len(fused) != 0 {
			rt.Fatalf("expected empty fusion, got %d", len(fused))
		}
		if score := keywordScore(&models.Knowledge{
			Content: models.KnowledgeContent{Summary: genAlphaString(rt, "summary", 1, 40)},
		}, ""); score != 0 {
			rt.Fatalf("expected score 0 for empty query, got %v", score)
		}
	})
}
