package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

// sessionRecord is the sessions table row. The profile is stored as JSON so
// schema changes to the profile shape need no migration.
type sessionRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	Profile   string
}

func (sessionRecord) TableName() string { return "sessions" }

type messageRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index"`
	Role      string
	Content   string
	Timestamp time.Time
}

func (messageRecord) TableName() string { return "messages" }

// SQLiteStore persists sessions in a SQLite database via GORM.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to open session database", err)
	}
	if err := db.AutoMigrate(&sessionRecord{}, &messageRecord{}); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to migrate session schema", err)
	}
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, profile map[string]string) (*Session, error) {
	merged := defaultProfile(profile)
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to encode profile", err)
	}

	rec := sessionRecord{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		Profile:   string(encoded),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to create session", err)
	}

	return &Session{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Profile:   merged,
		Messages:  []Message{},
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var rec sessionRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to load session", err)
	}

	profile := map[string]string{}
	if rec.Profile != "" {
		if err := json.Unmarshal([]byte(rec.Profile), &profile); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to decode profile", err)
		}
	}

	messages, err := s.History(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		Profile:   profile,
		Messages:  messages,
	}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&sessionRecord{}, "id = ?", id)
		if res.Error != nil {
			return apperrors.New(apperrors.ErrCodeStorage, "failed to delete session", res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound(id)
		}
		if err := tx.Delete(&messageRecord{}, "session_id = ?", id).Error; err != nil {
			return apperrors.New(apperrors.ErrCodeStorage, "failed to delete session messages", err)
		}
		return nil
	})
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	rec := messageRecord{
		SessionID: id,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return apperrors.New(apperrors.ErrCodeStorage, "failed to append message", err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, id string) ([]Message, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}

	var recs []messageRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("id asc").
		Find(&recs).Error; err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStorage, "failed to load history", err)
	}

	out := make([]Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Message{
			Role:      rec.Role,
			Content:   rec.Content,
			Timestamp: rec.Timestamp,
		})
	}
	return out, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, id string, profile map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec sessionRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(id)
			}
			return apperrors.New(apperrors.ErrCodeStorage, "failed to load session", err)
		}

		merged := map[string]string{}
		if rec.Profile != "" {
			if err := json.Unmarshal([]byte(rec.Profile), &merged); err != nil {
				return apperrors.New(apperrors.ErrCodeStorage, "failed to decode profile", err)
			}
		}
		for k, v := range profile {
			merged[k] = v
		}
		encoded, err := json.Marshal(merged)
		if err != nil {
			return apperrors.New(apperrors.ErrCodeStorage, "failed to encode profile", err)
		}

		if err := tx.Model(&sessionRecord{}).
			Where("id = ?", id).
			Update("profile", string(encoded)).Error; err != nil {
			return apperrors.New(apperrors.ErrCodeStorage, "failed to update profile", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var sessions, messages int64
	if err := s.db.WithContext(ctx).Model(&sessionRecord{}).Count(&sessions).Error; err != nil {
		return Stats{}, apperrors.New(apperrors.ErrCodeStorage, "failed to count sessions", err)
	}
	if err := s.db.WithContext(ctx).Model(&messageRecord{}).Count(&messages).Error; err != nil {
		return Stats{}, apperrors.New(apperrors.ErrCodeStorage, "failed to count messages", err)
	}
	return Stats{ActiveSessions: int(sessions), TotalMessages: int(messages)}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) exists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&sessionRecord{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return apperrors.New(apperrors.ErrCodeStorage, "failed to query session", err)
	}
	if count == 0 {
		return notFound(id)
	}
	return nil
}
