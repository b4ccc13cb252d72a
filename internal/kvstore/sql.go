package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/orderdesk/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kvEntry struct {
	Key       string         `gorm:"column:entry_key;primaryKey;size:191"`
	Value     datatypes.JSON `gorm:"column:value;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (kvEntry) TableName() string { return "kv_entries" }

// AutoMigrate creates the entry table on dialects without SQL migrations.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(&kvEntry{})
}

type sqlStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore stores entries in the kv_entries table.
func NewSQLStore(conn *gorm.DB) Store {
	return &sqlStore{db: conn, now: func() time.Time { return time.Now().UTC() }}
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var row kvEntry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return []byte(row.Value), nil
}

func (s *sqlStore) Create(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	row := kvEntry{Key: key, Value: datatypes.JSON(value), UpdatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return ErrConflict
		}
		return fmt.Errorf("kv create %s: %w", key, err)
	}
	return nil
}

func (s *sqlStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	row := kvEntry{Key: key, Value: datatypes.JSON(value), UpdatedAt: s.now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&kvEntry{})
	if res.Error != nil {
		return fmt.Errorf("kv delete %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	var rows []kvEntry
	err := s.db.WithContext(ctx).
		Where("entry_key LIKE ? ESCAPE '!'", likePrefix(prefix)).
		Order("entry_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("kv list %s: %w", prefix, err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{Key: row.Key, Value: []byte(row.Value), UpdatedAt: row.UpdatedAt})
	}
	return entries, nil
}

func (s *sqlStore) ReplacePrefix(ctx context.Context, prefix string, entries []Entry) error {
	if err := validateEntries(prefix, entries); err != nil {
		return err
	}
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_key LIKE ? ESCAPE '!'", likePrefix(prefix)).Delete(&kvEntry{}).Error; err != nil {
			return fmt.Errorf("kv clear %s: %w", prefix, err)
		}
		if len(entries) == 0 {
			return nil
		}
		rows := make([]kvEntry, 0, len(entries))
		for _, e := range entries {
			updated := e.UpdatedAt
			if updated.IsZero() {
				updated = now
			}
			rows = append(rows, kvEntry{Key: e.Key, Value: datatypes.JSON(e.Value), UpdatedAt: updated})
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return ErrConflict
			}
			return fmt.Errorf("kv fill %s: %w", prefix, err)
		}
		return nil
	})
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
