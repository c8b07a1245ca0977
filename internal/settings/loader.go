package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidValue indicates a setting value that is not valid JSON.
var ErrInvalidValue = errors.New("settings: value must be valid json")

// RefreshDBConfigSnapshot reloads all settings rows into the in-memory snapshot.
// Call it at startup; SaveSetting refreshes after every write.
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	maxUpdatedKey := ""
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		rowUpdatedAt := row.UpdatedAt.UTC()
		if rowUpdatedAt.After(maxUpdatedAt) || (rowUpdatedAt.Equal(maxUpdatedAt) && key > maxUpdatedKey) {
			maxUpdatedAt = rowUpdatedAt
			maxUpdatedKey = key
		}
	}

	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// SaveSetting upserts one setting and refreshes the snapshot.
func SaveSetting(ctx context.Context, db *gorm.DB, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	if !json.Valid(value) {
		return ErrInvalidValue
	}
	row := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	errSave := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if errSave != nil {
		return fmt.Errorf("settings: save %s: %w", key, errSave)
	}
	return RefreshDBConfigSnapshot(ctx, db)
}
