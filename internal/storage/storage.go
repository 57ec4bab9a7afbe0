// Package storage provides the uniform persistence contract over devman
// entities, with two interchangeable backends: a file tree of JSON
// documents and a SQLite database.
package storage

import (
	"context"
	"errors"

	"github.com/devman-ai/devman/pkg/models"
)

// ErrNotFound is returned by Load* when the id resolves to nothing.
var ErrNotFound = errors.New("not found")

// Kind names an entity collection. Kinds double as directory names in
// the file backend and entity_type values in the SQLite backend.
type Kind string

const (
	KindGoal       Kind = "goals"
	KindProject    Kind = "projects"
	KindPhase      Kind = "phases"
	KindTask       Kind = "tasks"
	KindEvent      Kind = "events"
	KindKnowledge  Kind = "knowledge"
	KindEmbedding  Kind = "embeddings"
	KindQuality    Kind = "quality"
	KindWorkRecord Kind = "work_records"
)

// Kinds lists every collection a backend must provision.
var Kinds = []Kind{
	KindGoal, KindProject, KindPhase, KindTask, KindEvent,
	KindKnowledge, KindEmbedding, KindQuality, KindWorkRecord,
}

// Storage is the persistence facade. Every Save upserts by id, bumps the
// per-id version counter by exactly 1, and stamps updated_at where the
// entity carries one. Commit and Rollback are advisory: they clear the
// pending flag without any transactional promise.
type Storage interface {
	SaveGoal(ctx context.Context, goal *models.Goal) error
	LoadGoal(ctx context.Context, id models.GoalID) (*models.Goal, error)
	ListGoals(ctx context.Context) ([]*models.Goal, error)

	SaveProject(ctx context.Context, project *models.Project) error
	LoadProject(ctx context.Context, id models.ProjectID) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)

	SavePhase(ctx context.Context, phase *models.Phase) error
	LoadPhase(ctx context.Context, id models.PhaseID) (*models.Phase, error)
	ListPhases(ctx context.Context) ([]*models.Phase, error)

	SaveTask(ctx context.Context, task *models.Task) error
	LoadTask(ctx context.Context, id models.TaskID) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
	DeleteTask(ctx context.Context, id models.TaskID) error

	SaveEvent(ctx context.Context, event *models.Event) error
	LoadEvent(ctx context.Context, id models.EventID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)

	SaveKnowledge(ctx context.Context, knowledge *models.Knowledge) error
	LoadKnowledge(ctx context.Context, id models.KnowledgeID) (*models.Knowledge, error)
	ListKnowledge(ctx context.Context) ([]*models.Knowledge, error)

	SaveEmbedding(ctx context.Context, embedding *models.KnowledgeEmbedding) error
	LoadEmbedding(ctx context.Context, knowledgeID models.KnowledgeID) (*models.KnowledgeEmbedding, error)
	ListEmbeddings(ctx context.Context) ([]*models.KnowledgeEmbedding, error)
	DeleteEmbedding(ctx context.Context, knowledgeID models.KnowledgeID) error

	SaveQualityCheck(ctx context.Context, check *models.QualityCheck) error
	LoadQualityCheck(ctx context.Context, id models.QualityCheckID) (*models.QualityCheck, error)
	ListQualityChecks(ctx context.Context) ([]*models.QualityCheck, error)

	SaveWorkRecord(ctx context.Context, record *models.WorkRecord) error
	LoadWorkRecord(ctx context.Context, id models.WorkRecordID) (*models.WorkRecord, error)
	ListWorkRecords(ctx context.Context, taskID models.TaskID) ([]*models.WorkRecord, error)

	// Version reports the per-id version counter; 0 if never saved.
	Version(ctx context.Context, kind Kind, id string) (int, error)

	Commit(ctx context.Context, message string) error
	Rollback(ctx context.Context) error
	Pending() bool
}
