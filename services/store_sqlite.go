package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// kvRecord mirrors the storefront_kv Postgres table for the SQLite backend.
type kvRecord struct {
	TgUserID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (kvRecord) TableName() string { return "storefront_kv" }

// MigrateSQLiteStore creates the storefront_kv table if needed.
func MigrateSQLiteStore(db *gorm.DB) error {
	return db.AutoMigrate(&kvRecord{})
}

// SQLiteStore is a file-backed Store for single-host deployments.
type SQLiteStore struct {
	db       *gorm.DB
	tgUserID int64
}

func NewSQLiteStore(db *gorm.DB, tgUserID int64) *SQLiteStore {
	return &SQLiteStore{db: db, tgUserID: tgUserID}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var rec kvRecord
	err := s.db.WithContext(ctx).
		Where("tg_user_id = ? AND key = ?", s.tgUserID, key).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	rec := kvRecord{TgUserID: s.tgUserID, Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tg_user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).
		Where("tg_user_id = ? AND key = ?", s.tgUserID, key).
		Delete(&kvRecord{}).Error
}
