package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devman-ai/devman/pkg/models"
)

// fileMeta is the sidecar document carrying the per-id version counter.
type fileMeta struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore persists entities as one JSON document per id under a
// per-kind directory, with a mirror meta/<kind>/<id>.meta.json sidecar.
// Writes go to a temp file first and are renamed into place, so a
// cancelled write never publishes a partial document.
type FileStore struct {
	root string

	mu      sync.Mutex
	pending bool
}

// NewFileStore creates the per-kind directory tree under root and
// returns the store.
func NewFileStore(root string) (*FileStore, error) {
	for _, kind := range Kinds {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o750); err != nil {
			return nil, fmt.Errorf("creating %s dir: %w", kind, err)
		}
		if err := os.MkdirAll(filepath.Join(root, "meta", string(kind)), 0o750); err != nil {
			return nil, fmt.Errorf("creating meta/%s dir: %w", kind, err)
		}
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) entityPath(kind Kind, id string) string {
	return filepath.Join(s.root, string(kind), id+".json")
}

func (s *FileStore) metaPath(kind Kind, id string) string {
	return filepath.Join(s.root, "meta", string(kind), id+".meta.json")
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting temp file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// save marshals the entity, writes it atomically, and bumps the version.
// A root-level flock serializes writers across processes; the mutex
// serializes them within this one.
func (s *FileStore) save(kind Kind, id string, entity any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(filepath.Join(s.root, ".lock"))
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s %s: %w", kind, id, err)
	}
	if err := writeFileAtomic(s.entityPath(kind, id), data); err != nil {
		return fmt.Errorf("saving %s %s: %w", kind, id, err)
	}
	if err := s.bumpVersion(kind, id); err != nil {
		return err
	}
	s.pending = true
	return nil
}

func (s *FileStore) bumpVersion(kind Kind, id string) error {
	meta := fileMeta{}
	raw, err := os.ReadFile(s.metaPath(kind, id))
	if err == nil {
		// A corrupt meta file resets the counter rather than blocking writes.
		_ = json.Unmarshal(raw, &meta)
	}
	meta.Version++
	meta.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta for %s %s: %w", kind, id, err)
	}
	if err := writeFileAtomic(s.metaPath(kind, id), data); err != nil {
		return fmt.Errorf("bumping version for %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *FileStore) load(kind Kind, id string, out any) error {
	raw, err := os.ReadFile(s.entityPath(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("loading %s %s: %w", kind, id, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, id, err)
	}
	return nil
}

// listIDs enumerates the ids present in a kind directory, sorted.
func (s *FileStore) listIDs(kind Kind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(kind)))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) delete(kind Kind, id string) error {
	if err := os.Remove(s.entityPath(kind, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	// The meta sidecar goes with it; a missing sidecar is not an error.
	_ = os.Remove(s.metaPath(kind, id))
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	return nil
}

func (s *FileStore) SaveGoal(_ context.Context, goal *models.Goal) error {
	goal.UpdatedAt = time.Now()
	return s.save(KindGoal, goal.ID.String(), goal)
}

func (s *FileStore) LoadGoal(_ context.Context, id models.GoalID) (*models.Goal, error) {
	var goal models.Goal
	if err := s.load(KindGoal, id.String(), &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *FileStore) ListGoals(ctx context.Context) ([]*models.Goal, error) {
	return listAll(ctx, s, KindGoal, s.LoadGoal, models.ParseGoalID)
}

func (s *FileStore) SaveProject(_ context.Context, project *models.Project) error {
	return s.save(KindProject, project.ID.String(), project)
}

func (s *FileStore) LoadProject(_ context.Context, id models.ProjectID) (*models.Project, error) {
	var project models.Project
	if err := s.load(KindProject, id.String(), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *FileStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return listAll(ctx, s, KindProject, s.LoadProject, models.ParseProjectID)
}

func (s *FileStore) SavePhase(_ context.Context, phase *models.Phase) error {
	return s.save(KindPhase, phase.ID.String(), phase)
}

func (s *FileStore) LoadPhase(_ context.Context, id models.PhaseID) (*models.Phase, error) {
	var phase models.Phase
	if err := s.load(KindPhase, id.String(), &phase); err != nil {
		return nil, err
	}
	return &phase, nil
}

func (s *FileStore) ListPhases(ctx context.Context) ([]*models.Phase, error) {
	return listAll(ctx, s, KindPhase, s.LoadPhase, models.ParsePhaseID)
}

func (s *FileStore) SaveTask(_ context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	return s.save(KindTask, task.ID.String(), task)
}

func (s *FileStore) LoadTask(_ context.Context, id models.TaskID) (*models.Task, error) {
	var task models.Task
	if err := s.load(KindTask, id.String(), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *FileStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	all, err := listAll(ctx, s, KindTask, s.LoadTask, models.ParseTaskID)
	if err != nil {
		return nil, err
	}
	var tasks []*models.Task
	for _, t := range all {
		if filter.Matches(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (s *FileStore) DeleteTask(_ context.Context, id models.TaskID) error {
	return s.delete(KindTask, id.String())
}

func (s *FileStore) SaveEvent(_ context.Context, event *models.Event) error {
	return s.save(KindEvent, event.ID.String(), event)
}

func (s *FileStore) LoadEvent(_ context.Context, id models.EventID) (*models.Event, error) {
	var event models.Event
	if err := s.load(KindEvent, id.String(), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *FileStore) ListEvents(ctx context.Context) ([]*models.Event, error) {
	return listAll(ctx, s, KindEvent, s.LoadEvent, models.ParseEventID)
}

func (s *FileStore) SaveKnowledge(_ context.Context, knowledge *models.Knowledge) error {
	knowledge.UpdatedAt = time.Now()
	return s.save(KindKnowledge, knowledge.ID.String(), knowledge)
}

func (s *FileStore) LoadKnowledge(_ context.Context, id models.KnowledgeID) (*models.Knowledge, error) {
	var knowledge models.Knowledge
	if err := s.load(KindKnowledge, id.String(), &knowledge); err != nil {
		return nil, err
	}
	return &knowledge, nil
}

func (s *FileStore) ListKnowledge(ctx context.Context) ([]*models.Knowledge, error) {
	return listAll(ctx, s, KindKnowledge, s.LoadKnowledge, models.ParseKnowledgeID)
}

func (s *FileStore) SaveEmbedding(_ context.Context, embedding *models.KnowledgeEmbedding) error {
	return s.save(KindEmbedding, embedding.KnowledgeID.String(), embedding)
}

func (s *FileStore) LoadEmbedding(_ context.Context, knowledgeID models.KnowledgeID) (*models.KnowledgeEmbedding, error) {
	var embedding models.KnowledgeEmbedding
	if err := s.load(KindEmbedding, knowledgeID.String(), &embedding); err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *FileStore) ListEmbeddings(ctx context.Context) ([]*models.KnowledgeEmbedding, error) {
	return listAll(ctx, s, KindEmbedding, s.LoadEmbedding, models.ParseKnowledgeID)
}

func (s *FileStore) DeleteEmbedding(_ context.Context, knowledgeID models.KnowledgeID) error {
	return s.delete(KindEmbedding, knowledgeID.String())
}

func (s *FileStore) SaveQualityCheck(_ context.Context, check *models.QualityCheck) error {
	return s.save(KindQuality, check.ID.String(), check)
}

func (s *FileStore) LoadQualityCheck(_ context.Context, id models.QualityCheckID) (*models.QualityCheck, error) {
	var check models.QualityCheck
	if err := s.load(KindQuality, id.String(), &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (s *FileStore) ListQualityChecks(ctx context.Context) ([]*models.QualityCheck, error) {
	return listAll(ctx, s, KindQuality, s.LoadQualityCheck, models.ParseQualityCheckID)
}

func (s *FileStore) SaveWorkRecord(_ context.Context, record *models.WorkRecord) error {
	return s.save(KindWorkRecord, record.ID.String(), record)
}

func (s *FileStore) LoadWorkRecord(_ context.Context, id models.WorkRecordID) (*models.WorkRecord, error) {
	var record models.WorkRecord
	if err := s.load(KindWorkRecord, id.String(), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *FileStore) ListWorkRecords(ctx context.Context, taskID models.TaskID) ([]*models.WorkRecord, error) {
	all, err := listAll(ctx, s, KindWorkRecord, s.LoadWorkRecord, models.ParseWorkRecordID)
	if err != nil {
		return nil, err
	}
	var records []*models.WorkRecord
	for _, r := range all {
		if r.TaskID == taskID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (s *FileStore) Version(_ context.Context, kind Kind, id string) (int, error) {
	raw, err := os.ReadFile(s.metaPath(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading meta for %s %s: %w", kind, id, err)
	}
	var meta fileMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, fmt.Errorf("decoding meta for %s %s: %w", kind, id, err)
	}
	return meta.Version, nil
}

// Commit is an advisory checkpoint: it clears the pending flag.
func (s *FileStore) Commit(_ context.Context, _ string) error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	return nil
}

// Rollback is advisory like Commit; written files stay on disk.
func (s *FileStore) Rollback(_ context.Context) error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	return nil
}

// Pending reports whether writes happened since the last Commit/Rollback.
func (s *FileStore) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// listAll loads every entity of a kind via the typed loader.
func listAll[T any, ID any](ctx context.Context, s *FileStore, kind Kind,
	load func(context.Context, ID) (*T, error), parse func(string) (ID, error)) ([]*T, error) {
	ids, err := s.listIDs(kind)
	if err != nil {
		return nil, err
	}
	var out []*T
	for _, raw := range ids {
		id, err := parse(raw)
		if err != nil {
			continue // stray file, not ours
		}
		entity, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
