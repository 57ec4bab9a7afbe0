package models

import "time"

// KnowledgeType categorizes a knowledge item.
type KnowledgeType string

const (
	KnowledgeLessonLearned KnowledgeType = "lesson_learned"
	KnowledgeBestPractice  KnowledgeType = "best_practice"
	KnowledgeCodePattern   KnowledgeType = "code_pattern"
	KnowledgeSolution      KnowledgeType = "solution"
	KnowledgeTemplate      KnowledgeType = "template"
	KnowledgeDecision      KnowledgeType = "decision"
)

// Knowledge is a reusable, categorized textual artifact: a lesson, best
// practice, code pattern, solution, template, or decision.
type Knowledge struct {
	ID          KnowledgeID       `json:"id"`
	Title       string            `json:"title"`
	Type        KnowledgeType     `json:"knowledge_type"`
	Content     KnowledgeContent  `json:"content"`
	Metadata    KnowledgeMetadata `json:"metadata"`
	Tags        []string          `json:"tags"`
	RelatedTo   []KnowledgeID     `json:"related_to"`
	DerivedFrom []KnowledgeID     `json:"derived_from"`
	UsageStats  UsageStats        `json:"usage_stats"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// KnowledgeContent is the body of a knowledge item.
type KnowledgeContent struct {
	Summary    string        `json:"summary"`
	Detail     string        `json:"detail"`
	Examples   []CodeExample `json:"examples,omitempty"`
	References []string      `json:"references,omitempty"`
}

// CodeExample is one illustrative snippet.
type CodeExample struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// KnowledgeMetadata carries classification facets used by search.
type KnowledgeMetadata struct {
	Domains      []string `json:"domains"`
	TechStack    []string `json:"tech_stack"`
	Scenarios    []string `json:"scenarios"`
	QualityScore float64  `json:"quality_score"`
	Verified     bool     `json:"verified"`
}

// UsageStats tracks how often a knowledge item helped.
type UsageStats struct {
	TimesUsed   int        `json:"times_used"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
	SuccessRate float64    `json:"success_rate"`
	Feedback    []Feedback `json:"feedback,omitempty"`
}

// Feedback is one rating left by a consumer of the knowledge.
type Feedback struct {
	Rating  int       `json:"rating"` // 1-5
	Comment string    `json:"comment,omitempty"`
	At      time.Time `json:"at"`
	From    string    `json:"from"`
}

// KnowledgeEmbedding caches the vector for one knowledge item under one
// embedding model. At most one embedding exists per (knowledge, model) pair.
type KnowledgeEmbedding struct {
	KnowledgeID KnowledgeID `json:"knowledge_id"`
	Embedding   []float32   `json:"embedding"`
	Model       string      `json:"model"`
	Dimension   int         `json:"dimension"`
	CreatedAt   time.Time   `json:"created_at"`
}
