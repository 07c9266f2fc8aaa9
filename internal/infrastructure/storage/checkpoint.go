package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/ports"
)

const checkpointTable = "generation_checkpoint"

var (
	_ ports.CheckpointStore = (*FileCheckpointStore)(nil)
	_ ports.CheckpointStore = (*MemoryCheckpointStore)(nil)
	_ ports.CheckpointStore = (*RedisCheckpointStore)(nil)
	_ ports.CheckpointStore = (*PostgresCheckpointStore)(nil)
)

func decodeCheckpoint(raw []byte) (domain.Checkpoint, error) {
	var cp domain.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	if cp.NextIndex < 0 {
		return domain.Checkpoint{}, fmt.Errorf("decode checkpoint: negative index %d", cp.NextIndex)
	}
	return cp, nil
}

// FileCheckpointStore keeps the checkpoint as a JSON document on a volume.
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore stores the checkpoint at path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

// Load reads the checkpoint; a missing file means nothing is stored.
func (s *FileCheckpointStore) Load(context.Context) (domain.Checkpoint, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Checkpoint{}, false, nil
		}
		return domain.Checkpoint{}, false, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	cp, err := decodeCheckpoint(raw)
	if err != nil {
		return domain.Checkpoint{}, false, err
	}
	return cp, true, nil
}

// Save replaces the file atomically through a synced temp file and rename.
func (s *FileCheckpointStore) Save(_ context.Context, cp domain.Checkpoint) error {
	raw, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Clear removes the file.
func (s *FileCheckpointStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

// MemoryCheckpointStore keeps the checkpoint in process.
type MemoryCheckpointStore struct {
	mu    sync.Mutex
	cp    domain.Checkpoint
	saved bool
	saves int
}

// NewMemoryCheckpointStore returns an empty store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{}
}

// Load returns the last saved checkpoint.
func (m *MemoryCheckpointStore) Load(context.Context) (domain.Checkpoint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cp, m.saved, nil
}

// Save overwrites the checkpoint.
func (m *MemoryCheckpointStore) Save(_ context.Context, cp domain.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cp, m.saved = cp, true
	m.saves++
	return nil
}

// Clear forgets the checkpoint.
func (m *MemoryCheckpointStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cp, m.saved = domain.Checkpoint{}, false
	return nil
}

// Saves counts Save calls.
func (m *MemoryCheckpointStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// RedisCheckpointStore keeps the checkpoint as a JSON value under one key.
type RedisCheckpointStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCheckpointStore stores the checkpoint under key.
func NewRedisCheckpointStore(client redis.UniversalClient, key string) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, key: key}
}

// Load reads the key; redis.Nil means nothing is stored.
func (s *RedisCheckpointStore) Load(ctx context.Context) (domain.Checkpoint, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Checkpoint{}, false, nil
		}
		return domain.Checkpoint{}, false, fmt.Errorf("get checkpoint %s: %w", s.key, err)
	}
	cp, err := decodeCheckpoint(raw)
	if err != nil {
		return domain.Checkpoint{}, false, err
	}
	return cp, true, nil
}

// Save overwrites the key with a single SET.
func (s *RedisCheckpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set checkpoint %s: %w", s.key, err)
	}
	return nil
}

// Clear deletes the key.
func (s *RedisCheckpointStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", s.key, err)
	}
	return nil
}

// PostgresCheckpointStore keeps the checkpoint as a single JSONB row.
type PostgresCheckpointStore struct {
	db   *sqlx.DB
	name string
	now  func() time.Time
}

// NewPostgresCheckpointStore stores the checkpoint in the row identified by name.
func NewPostgresCheckpointStore(db *sqlx.DB, name string) *PostgresCheckpointStore {
	return &PostgresCheckpointStore{db: db, name: name, now: time.Now}
}

// Load reads the row; sql.ErrNoRows means nothing is stored.
func (s *PostgresCheckpointStore) Load(ctx context.Context) (domain.Checkpoint, bool, error) {
	query, args, err := psql.Select("state").From(checkpointTable).Where(sq.Eq{"name": s.name}).ToSql()
	if err != nil {
		return domain.Checkpoint{}, false, fmt.Errorf("build checkpoint select: %w", err)
	}

	var raw []byte
	if err := s.db.GetContext(ctx, &raw, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Checkpoint{}, false, nil
		}
		return domain.Checkpoint{}, false, fmt.Errorf("get checkpoint: %w", err)
	}
	cp, err := decodeCheckpoint(raw)
	if err != nil {
		return domain.Checkpoint{}, false, err
	}
	return cp, true, nil
}

// Save upserts the row in one statement.
func (s *PostgresCheckpointStore) Save(ctx context.Context, cp domain.Checkpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	query, args, err := psql.Insert(checkpointTable).
		Columns("name", "state", "updated_at").
		Values(s.name, raw, s.now().UTC()).
		Suffix("ON CONFLICT (name) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build checkpoint upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update checkpoint: %w", err)
	}
	return nil
}

// Clear deletes the row.
func (s *PostgresCheckpointStore) Clear(ctx context.Context) error {
	query, args, err := psql.Delete(checkpointTable).Where(sq.Eq{"name": s.name}).ToSql()
	if err != nil {
		return fmt.Errorf("build checkpoint delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}
