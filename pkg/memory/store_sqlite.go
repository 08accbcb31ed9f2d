package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the default durable backing for signed-in users.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the companion database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process store. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			mem_type TEXT NOT NULL,
			mem_key TEXT NOT NULL,
			value TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			importance INTEGER NOT NULL DEFAULT 3,
			created_at_ms INTEGER NOT NULL,
			reference_count INTEGER NOT NULL DEFAULT 0,
			last_referenced_at_ms INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS memories_user_key_idx ON memories(user_id, mem_key);`,
		`CREATE INDEX IF NOT EXISTS memories_rank_idx ON memories(user_id, importance DESC, last_referenced_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS conversation_states (
			user_id TEXT PRIMARY KEY,
			onboarding_completed INTEGER NOT NULL DEFAULT 0,
			current_stage TEXT NOT NULL,
			last_question_asked TEXT NOT NULL DEFAULT '',
			pending_memory_key TEXT NOT NULL DEFAULT '',
			conversation_depth INTEGER NOT NULL DEFAULT 0,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS preferences (
			user_id TEXT PRIMARY KEY,
			personality TEXT NOT NULL,
			response_length TEXT NOT NULL,
			conversation_style TEXT NOT NULL,
			name_usage_frequency TEXT NOT NULL,
			religious_spiritual INTEGER NOT NULL DEFAULT 0,
			veteran INTEGER NOT NULL DEFAULT 0,
			lgbtq INTEGER NOT NULL DEFAULT 0,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			turn_id TEXT NOT NULL DEFAULT '',
			user_message TEXT NOT NULL,
			response_text TEXT NOT NULL,
			sentiment TEXT NOT NULL DEFAULT '',
			topics_json TEXT NOT NULL DEFAULT '[]',
			provider_id TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS exchanges_user_idx ON exchanges(user_id, created_at_ms DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(sql string) string {
	line := strings.TrimSpace(sql)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func nowMS() int64 { return time.Now().UnixMilli() }

func (s *SQLiteStore) ListMemories(ctx context.Context, userID string) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, mem_type, mem_key, value, context, importance, created_at_ms, reference_count, last_referenced_at_ms
FROM memories
WHERE user_id = ?
ORDER BY importance DESC, last_referenced_at_ms DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var memType string
		var createdMS, referencedMS int64
		if err := rows.Scan(&m.ID, &memType, &m.Key, &m.Value, &m.Context, &m.Importance, &createdMS, &m.ReferenceCount, &referencedMS); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Type = MemoryType(memType)
		m.CreatedAt = time.UnixMilli(createdMS).UTC()
		m.LastReferencedAt = time.UnixMilli(referencedMS).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertMemory(ctx context.Context, userID string, c Candidate) (Memory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Memory{}, fmt.Errorf("upsert memory begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMS()
	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM memories WHERE user_id = ? AND mem_key = ?`, userID, c.Key).Scan(&id)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `
UPDATE memories
SET value = ?, context = ?, importance = ?, reference_count = reference_count + 1, last_referenced_at_ms = ?
WHERE id = ?`, c.Value, c.Context, c.Importance, now, id); err != nil {
			return Memory{}, fmt.Errorf("update memory: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO memories (id, user_id, mem_type, mem_key, value, context, importance, created_at_ms, reference_count, last_referenced_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			id, userID, string(c.Type), c.Key, c.Value, c.Context, c.Importance, now, now); err != nil {
			return Memory{}, fmt.Errorf("insert memory: %w", err)
		}
	default:
		return Memory{}, fmt.Errorf("find memory by key: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
SELECT id, mem_type, mem_key, value, context, importance, created_at_ms, reference_count, last_referenced_at_ms
FROM memories WHERE id = ?`, id)

	var out Memory
	var memType string
	var createdMS, referencedMS int64
	if err := row.Scan(&out.ID, &memType, &out.Key, &out.Value, &out.Context, &out.Importance, &createdMS, &out.ReferenceCount, &referencedMS); err != nil {
		return Memory{}, fmt.Errorf("read upserted memory: %w", err)
	}
	out.Type = MemoryType(memType)
	out.CreatedAt = time.UnixMilli(createdMS).UTC()
	out.LastReferencedAt = time.UnixMilli(referencedMS).UTC()

	if err := tx.Commit(); err != nil {
		return Memory{}, fmt.Errorf("upsert memory commit: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteMemory(ctx context.Context, userID, memoryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE user_id = ? AND id = ?`, userID, memoryID)
	if err != nil {
		return false, fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete memory rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetConversationState(ctx context.Context, userID string) (ConversationState, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT onboarding_completed, current_stage, last_question_asked, pending_memory_key, conversation_depth
FROM conversation_states WHERE user_id = ?`, userID)

	var st ConversationState
	var completed int
	var stage string
	err := row.Scan(&completed, &stage, &st.LastQuestionAsked, &st.PendingMemoryKey, &st.ConversationDepth)
	if errors.Is(err, sql.ErrNoRows) {
		return ConversationState{}, false, nil
	}
	if err != nil {
		return ConversationState{}, false, fmt.Errorf("get conversation state: %w", err)
	}
	st.OnboardingCompleted = completed != 0
	st.CurrentStage = Stage(stage)
	return st, true, nil
}

func (s *SQLiteStore) PutConversationState(ctx context.Context, userID string, st ConversationState) error {
	completed := 0
	if st.OnboardingCompleted {
		completed = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO conversation_states (user_id, onboarding_completed, current_stage, last_question_asked, pending_memory_key, conversation_depth, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	onboarding_completed = excluded.onboarding_completed,
	current_stage = excluded.current_stage,
	last_question_asked = excluded.last_question_asked,
	pending_memory_key = excluded.pending_memory_key,
	conversation_depth = excluded.conversation_depth,
	updated_at_ms = excluded.updated_at_ms`,
		userID, completed, string(st.CurrentStage), st.LastQuestionAsked, st.PendingMemoryKey, st.ConversationDepth, nowMS())
	if err != nil {
		return fmt.Errorf("put conversation state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT personality, response_length, conversation_style, name_usage_frequency, religious_spiritual, veteran, lgbtq
FROM preferences WHERE user_id = ?`, userID)

	var p Preferences
	var religious, veteran, lgbtq int
	err := row.Scan(&p.Personality, &p.ResponseLength, &p.ConversationStyle, &p.NameUsageFrequency, &religious, &veteran, &lgbtq)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, false, nil
	}
	if err != nil {
		return Preferences{}, false, fmt.Errorf("get preferences: %w", err)
	}
	p.ReligiousSpiritual = religious != 0
	p.Veteran = veteran != 0
	p.LGBTQ = lgbtq != 0
	return p, true, nil
}

func (s *SQLiteStore) PutPreferences(ctx context.Context, userID string, p Preferences) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO preferences (user_id, personality, response_length, conversation_style, name_usage_frequency, religious_spiritual, veteran, lgbtq, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	personality = excluded.personality,
	response_length = excluded.response_length,
	conversation_style = excluded.conversation_style,
	name_usage_frequency = excluded.name_usage_frequency,
	religious_spiritual = excluded.religious_spiritual,
	veteran = excluded.veteran,
	lgbtq = excluded.lgbtq,
	updated_at_ms = excluded.updated_at_ms`,
		userID, p.Personality, p.ResponseLength, p.ConversationStyle, p.NameUsageFrequency,
		boolToInt(p.ReligiousSpiritual), boolToInt(p.Veteran), boolToInt(p.LGBTQ), nowMS())
	if err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LogExchange(ctx context.Context, userID string, ex Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	topics, err := json.Marshal(ex.Topics)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO exchanges (id, user_id, turn_id, user_message, response_text, sentiment, topics_json, provider_id, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, userID, ex.TurnID, ex.UserMessage, ex.ResponseText, ex.Sentiment, string(topics), ex.ProviderID, ex.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("log exchange: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListExchanges(ctx context.Context, userID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, turn_id, user_message, response_text, sentiment, topics_json, provider_id, created_at_ms
FROM exchanges
WHERE user_id = ?
ORDER BY created_at_ms DESC, rowid DESC
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var topicsRaw string
		var createdMS int64
		if err := rows.Scan(&ex.ID, &ex.TurnID, &ex.UserMessage, &ex.ResponseText, &ex.Sentiment, &topicsRaw, &ex.ProviderID, &createdMS); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		if err := json.Unmarshal([]byte(topicsRaw), &ex.Topics); err != nil {
			ex.Topics = nil
		}
		ex.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, ex)
	}

	// Oldest first, matching the in-memory backing.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
