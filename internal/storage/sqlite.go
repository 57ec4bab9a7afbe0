package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devman-ai/devman/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	data        TEXT NOT NULL,
	version     INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);

CREATE TABLE IF NOT EXISTS embeddings (
	knowledge_id TEXT PRIMARY KEY,
	embedding    BLOB NOT NULL,
	model        TEXT NOT NULL,
	dimension    INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
`

// SQLiteStore keeps every entity as a JSON document in a single
// entities table, plus a dedicated embeddings table holding raw
// float32 vectors. It uses the pure-Go modernc.org/sqlite driver, so
// no cgo is involved.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	pending bool
}

// OpenSQLite opens (creating if needed) the database at path and
// applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", path, err)
	}
	// The driver serializes access; a single connection avoids
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable and intact.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check(1)").Scan(&result); err != nil {
		return fmt.Errorf("checking database: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check failed: %s", result)
	}
	return nil
}

func (s *SQLiteStore) save(ctx context.Context, kind Kind, id string, entity any) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling %s %s: %w", kind, id, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, entity_type, data, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			version = entities.version + 1,
			updated_at = excluded.updated_at`,
		id, string(kind), string(data), now, now)
	if err != nil {
		return fmt.Errorf("saving %s %s: %w", kind, id, err)
	}
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, kind Kind, id string, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM entities WHERE id = ? AND entity_type = ?",
		id, string(kind)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading %s %s: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *SQLiteStore) delete(ctx context.Context, kind Kind, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM entities WHERE id = ? AND entity_type = ?", id, string(kind))
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	return nil
}

// loadAllSQLite scans every document of a kind ordered by id, which for
// ULID-based ids is creation order.
func loadAllSQLite[T any](ctx context.Context, s *SQLiteStore, kind Kind) ([]*T, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM entities WHERE entity_type = ? ORDER BY id", string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		entity := new(T)
		if err := json.Unmarshal([]byte(data), entity); err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", kind, err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveGoal(ctx context.Context, goal *models.Goal) error {
	goal.UpdatedAt = time.Now()
	return s.save(ctx, KindGoal, goal.ID.String(), goal)
}

func (s *SQLiteStore) LoadGoal(ctx context.Context, id models.GoalID) (*models.Goal, error) {
	var goal models.Goal
	if err := s.load(ctx, KindGoal, id.String(), &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *SQLiteStore) ListGoals(ctx context.Context) ([]*models.Goal, error) {
	return loadAllSQLite[models.Goal](ctx, s, KindGoal)
}

func (s *SQLiteStore) SaveProject(ctx context.Context, project *models.Project) error {
	return s.save(ctx, KindProject, project.ID.String(), project)
}

func (s *SQLiteStore) LoadProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	var project models.Project
	if err := s.load(ctx, KindProject, id.String(), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return loadAllSQLite[models.Project](ctx, s, KindProject)
}

func (s *SQLiteStore) SavePhase(ctx context.Context, phase *models.Phase) error {
	return s.save(ctx, KindPhase, phase.ID.String(), phase)
}

func (s *SQLiteStore) LoadPhase(ctx context.Context, id models.PhaseID) (*models.Phase, error) {
	var phase models.Phase
	if err := s.load(ctx, KindPhase, id.String(), &phase); err != nil {
		return nil, err
	}
	return &phase, nil
}

func (s *SQLiteStore) ListPhases(ctx context.Context) ([]*models.Phase, error) {
	return loadAllSQLite[models.Phase](ctx, s, KindPhase)
}

func (s *SQLiteStore) SaveTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	return s.save(ctx, KindTask, task.ID.String(), task)
}

func (s *SQLiteStore) LoadTask(ctx context.Context, id models.TaskID) (*models.Task, error) {
	var task models.Task
	if err := s.load(ctx, KindTask, id.String(), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	all, err := loadAllSQLite[models.Task](ctx, s, KindTask)
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

func (s *SQLiteStore) DeleteTask(ctx context.Context, id models.TaskID) error {
	return s.delete(ctx, KindTask, id.String())
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, event *models.Event) error {
	return s.save(ctx, KindEvent, event.ID.String(), event)
}

func (s *SQLiteStore) LoadEvent(ctx context.Context, id models.EventID) (*models.Event, error) {
	var event models.Event
	if err := s.load(ctx, KindEvent, id.String(), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context) ([]*models.Event, error) {
	return loadAllSQLite[models.Event](ctx, s, KindEvent)
}

func (s *SQLiteStore) SaveKnowledge(ctx context.Context, knowledge *models.Knowledge) error {
	knowledge.UpdatedAt = time.Now()
	return s.save(ctx, KindKnowledge, knowledge.ID.String(), knowledge)
}

func (s *SQLiteStore) LoadKnowledge(ctx context.Context, id models.KnowledgeID) (*models.Knowledge, error) {
	var knowledge models.Knowledge
	if err := s.load(ctx, KindKnowledge, id.String(), &knowledge); err != nil {
		return nil, err
	}
	return &knowledge, nil
}

func (s *SQLiteStore) ListKnowledge(ctx context.Context) ([]*models.Knowledge, error) {
	return loadAllSQLite[models.Knowledge](ctx, s, KindKnowledge)
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(v) * 4)
	for _, f := range v {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

func (s *SQLiteStore) SaveEmbedding(ctx context.Context, embedding *models.KnowledgeEmbedding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (knowledge_id, embedding, model, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(knowledge_id) DO UPDATE SET
			embedding = excluded.embedding,
			model = excluded.model,
			dimension = excluded.dimension,
			created_at = excluded.created_at`,
		embedding.KnowledgeID.String(),
		encodeVector(embedding.Embedding),
		embedding.Model,
		embedding.Dimension,
		embedding.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving embedding for %s: %w", embedding.KnowledgeID, err)
	}
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) LoadEmbedding(ctx context.Context, knowledgeID models.KnowledgeID) (*models.KnowledgeEmbedding, error) {
	var (
		blob      []byte
		model     string
		dimension int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT embedding, model, dimension, created_at
		FROM embeddings WHERE knowledge_id = ?`,
		knowledgeID.String()).Scan(&blob, &model, &dimension, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading embedding for %s: %w", knowledgeID, err)
	}
	vector, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("loading embedding for %s: %w", knowledgeID, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("loading embedding for %s: %w", knowledgeID, err)
	}
	return &models.KnowledgeEmbedding{
		KnowledgeID: knowledgeID,
		Embedding:   vector,
		Model:       model,
		Dimension:   dimension,
		CreatedAt:   ts,
	}, nil
}

func (s *SQLiteStore) ListEmbeddings(ctx context.Context) ([]*models.KnowledgeEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT knowledge_id FROM embeddings ORDER BY knowledge_id")
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	defer rows.Close()

	var ids []models.KnowledgeID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		id, err := models.ParseKnowledgeID(raw)
		if err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}

	var out []*models.KnowledgeEmbedding
	for _, id := range ids {
		embedding, err := s.LoadEmbedding(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, embedding)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteEmbedding(ctx context.Context, knowledgeID models.KnowledgeID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE knowledge_id = ?", knowledgeID.String())
	if err != nil {
		return fmt.Errorf("deleting embedding for %s: %w", knowledgeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting embedding for %s: %w", knowledgeID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) SaveQualityCheck(ctx context.Context, check *models.QualityCheck) error {
	return s.save(ctx, KindQuality, check.ID.String(), check)
}

func (s *SQLiteStore) LoadQualityCheck(ctx context.Context, id models.QualityCheckID) (*models.QualityCheck, error) {
	var check models.QualityCheck
	if err := s.load(ctx, KindQuality, id.String(), &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (s *SQLiteStore) ListQualityChecks(ctx context.Context) ([]*models.QualityCheck, error) {
	return loadAllSQLite[models.QualityCheck](ctx, s, KindQuality)
}

func (s *SQLiteStore) SaveWorkRecord(ctx context.Context, record *models.WorkRecord) error {
	return s.save(ctx, KindWorkRecord, record.ID.String(), record)
}

func (s *SQLiteStore) LoadWorkRecord(ctx context.Context, id models.WorkRecordID) (*models.WorkRecord, error) {
	var record models.WorkRecord
	if err := s.load(ctx, KindWorkRecord, id.String(), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SQLiteStore) ListWorkRecords(ctx context.Context, taskID models.TaskID) ([]*models.WorkRecord, error) {
	all, err := loadAllSQLite[models.WorkRecord](ctx, s, KindWorkRecord)
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

func (s *SQLiteStore) Version(ctx context.Context, kind Kind, id string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT version FROM entities WHERE id = ? AND entity_type = ?",
		id, string(kind)).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading version for %s %s: %w", kind, id, err)
	}
	return version, nil
}

// Commit is advisory: individual statements already commit, so this
// only clears the pending flag.
func (s *SQLiteStore) Commit(_ context.Context, _ string) error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	return nil
}

// Rollback is advisory like Commit.
func (s *SQLiteStore) Rollback(_ context.Context) error {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
	return nil
}

// Pending reports whether writes happened since the last Commit/Rollback.
func (s *SQLiteStore) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// FindBlockedTasks returns tasks whose dependencies are not yet done.
func (s *SQLiteStore) FindBlockedTasks(ctx context.Context) ([]*models.Task, error) {
	all, err := loadAllSQLite[models.Task](ctx, s, KindTask)
	if err != nil {
		return nil, err
	}
	byID := make(map[models.TaskID]*models.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	var blocked []*models.Task
	for _, t := range all {
		if t.Status == models.StatusDone || t.Status == models.StatusAbandoned {
			continue
		}
		for _, dep := range t.DependsOn {
			d, ok := byID[dep]
			if !ok || d.Status != models.StatusDone {
				blocked = append(blocked, t)
				break
			}
		}
	}
	return blocked, nil
}

// TaskStats counts tasks per status.
func (s *SQLiteStore) TaskStats(ctx context.Context) (map[models.TaskStatus]int, error) {
	all, err := loadAllSQLite[models.Task](ctx, s, KindTask)
	if err != nil {
		return nil, err
	}
	stats := make(map[models.TaskStatus]int)
	for _, t := range all {
		stats[t.Status]++
	}
	return stats, nil
}
