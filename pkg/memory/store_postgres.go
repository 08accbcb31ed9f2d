package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresStore is the shared-database backing for deployments where the
// companion runs behind an API rather than on a single machine.
type PostgresStore struct {
	db *gorm.DB
}

type memoryRow struct {
	ID                 string `gorm:"primaryKey"`
	UserID             string `gorm:"index:idx_memories_user_key,unique;index:idx_memories_rank"`
	MemType            string
	MemKey             string `gorm:"index:idx_memories_user_key,unique"`
	Value              string
	Context            string
	Importance         int   `gorm:"index:idx_memories_rank,sort:desc"`
	CreatedAtMS        int64
	ReferenceCount     int
	LastReferencedAtMS int64
}

func (memoryRow) TableName() string { return "memories" }

type conversationStateRow struct {
	UserID              string `gorm:"primaryKey"`
	OnboardingCompleted bool
	CurrentStage        string
	LastQuestionAsked   string
	PendingMemoryKey    string
	ConversationDepth   int
	UpdatedAtMS         int64
}

func (conversationStateRow) TableName() string { return "conversation_states" }

type preferencesRow struct {
	UserID             string `gorm:"primaryKey"`
	Personality        string
	ResponseLength     string
	ConversationStyle  string
	NameUsageFrequency string
	ReligiousSpiritual bool
	Veteran            bool
	LGBTQ              bool
	UpdatedAtMS        int64
}

func (preferencesRow) TableName() string { return "preferences" }

type exchangeRow struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index:idx_exchanges_user"`
	TurnID       string
	UserMessage  string
	ResponseText string
	Sentiment    string
	TopicsJSON   string
	ProviderID   string
	CreatedAtMS  int64 `gorm:"index:idx_exchanges_user,sort:desc"`
}

func (exchangeRow) TableName() string { return "exchanges" }

// NewPostgresStore connects with the given DSN and migrates the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(&memoryRow{}, &conversationStateRow{}, &preferencesRow{}, &exchangeRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) ListMemories(ctx context.Context, userID string) ([]Memory, error) {
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("importance DESC, last_referenced_at_ms DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	out := make([]Memory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toMemory())
	}
	return out, nil
}

func (s *PostgresStore) UpsertMemory(ctx context.Context, userID string, c Candidate) (Memory, error) {
	now := time.Now().UnixMilli()
	var result memoryRow

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing memoryRow
		err := tx.Where("user_id = ? AND mem_key = ?", userID, c.Key).First(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"value":                 c.Value,
				"context":               c.Context,
				"importance":            c.Importance,
				"reference_count":       gorm.Expr("reference_count + 1"),
				"last_referenced_at_ms": now,
			}
			if err := tx.Model(&memoryRow{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update memory: %w", err)
			}
			return tx.Where("id = ?", existing.ID).First(&result).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = memoryRow{
				ID:                 uuid.NewString(),
				UserID:             userID,
				MemType:            string(c.Type),
				MemKey:             c.Key,
				Value:              c.Value,
				Context:            c.Context,
				Importance:         c.Importance,
				CreatedAtMS:        now,
				ReferenceCount:     0,
				LastReferencedAtMS: now,
			}
			return tx.Create(&result).Error
		default:
			return fmt.Errorf("find memory by key: %w", err)
		}
	})
	if err != nil {
		return Memory{}, fmt.Errorf("upsert memory: %w", err)
	}
	return result.toMemory(), nil
}

func (s *PostgresStore) DeleteMemory(ctx context.Context, userID, memoryID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, memoryID).
		Delete(&memoryRow{})
	if res.Error != nil {
		return false, fmt.Errorf("delete memory: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *PostgresStore) GetConversationState(ctx context.Context, userID string) (ConversationState, bool, error) {
	var row conversationStateRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ConversationState{}, false, nil
	}
	if err != nil {
		return ConversationState{}, false, fmt.Errorf("get conversation state: %w", err)
	}
	return ConversationState{
		OnboardingCompleted: row.OnboardingCompleted,
		CurrentStage:        Stage(row.CurrentStage),
		LastQuestionAsked:   row.LastQuestionAsked,
		PendingMemoryKey:    row.PendingMemoryKey,
		ConversationDepth:   row.ConversationDepth,
	}, true, nil
}

func (s *PostgresStore) PutConversationState(ctx context.Context, userID string, st ConversationState) error {
	row := conversationStateRow{
		UserID:              userID,
		OnboardingCompleted: st.OnboardingCompleted,
		CurrentStage:        string(st.CurrentStage),
		LastQuestionAsked:   st.LastQuestionAsked,
		PendingMemoryKey:    st.PendingMemoryKey,
		ConversationDepth:   st.ConversationDepth,
		UpdatedAtMS:         time.Now().UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("put conversation state: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	var row preferencesRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Preferences{}, false, nil
	}
	if err != nil {
		return Preferences{}, false, fmt.Errorf("get preferences: %w", err)
	}
	return Preferences{
		Personality:        row.Personality,
		ResponseLength:     row.ResponseLength,
		ConversationStyle:  row.ConversationStyle,
		NameUsageFrequency: row.NameUsageFrequency,
		ReligiousSpiritual: row.ReligiousSpiritual,
		Veteran:            row.Veteran,
		LGBTQ:              row.LGBTQ,
	}, true, nil
}

func (s *PostgresStore) PutPreferences(ctx context.Context, userID string, p Preferences) error {
	row := preferencesRow{
		UserID:             userID,
		Personality:        p.Personality,
		ResponseLength:     p.ResponseLength,
		ConversationStyle:  p.ConversationStyle,
		NameUsageFrequency: p.NameUsageFrequency,
		ReligiousSpiritual: p.ReligiousSpiritual,
		Veteran:            p.Veteran,
		LGBTQ:              p.LGBTQ,
		UpdatedAtMS:        time.Now().UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}

func (s *PostgresStore) LogExchange(ctx context.Context, userID string, ex Exchange) error {
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
	row := exchangeRow{
		ID:           ex.ID,
		UserID:       userID,
		TurnID:       ex.TurnID,
		UserMessage:  ex.UserMessage,
		ResponseText: ex.ResponseText,
		Sentiment:    ex.Sentiment,
		TopicsJSON:   string(topics),
		ProviderID:   ex.ProviderID,
		CreatedAtMS:  ex.CreatedAt.UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("log exchange: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListExchanges(ctx context.Context, userID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []exchangeRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at_ms DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}

	out := make([]Exchange, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		ex := Exchange{
			ID:           r.ID,
			TurnID:       r.TurnID,
			UserMessage:  r.UserMessage,
			ResponseText: r.ResponseText,
			Sentiment:    r.Sentiment,
			ProviderID:   r.ProviderID,
			CreatedAt:    time.UnixMilli(r.CreatedAtMS).UTC(),
		}
		if err := json.Unmarshal([]byte(r.TopicsJSON), &ex.Topics); err != nil {
			ex.Topics = nil
		}
		out = append(out, ex)
	}
	return out, nil
}

func (r memoryRow) toMemory() Memory {
	return Memory{
		ID:               r.ID,
		Type:             MemoryType(r.MemType),
		Key:              r.MemKey,
		Value:            r.Value,
		Context:          r.Context,
		Importance:       r.Importance,
		CreatedAt:        time.UnixMilli(r.CreatedAtMS).UTC(),
		ReferenceCount:   r.ReferenceCount,
		LastReferencedAt: time.UnixMilli(r.LastReferencedAtMS).UTC(),
	}
}
