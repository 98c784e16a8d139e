package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Setting keys
const (
	KeyTrackingEnabled = "tracking_enabled"
	KeyClientKey       = "client_key"
)

var settingsCache *cache.Cache[string, string]

// SetupDefaultSettings initializes default settings in the database
func SetupDefaultSettings(dbConn *gorm.DB) error {
	settings := []Setting{
		{Key: KeyTrackingEnabled, Value: "true"},
		{Key: KeyClientKey, Value: ""},
	}
	err := sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		for _, setting := range settings {
			// Use raw SQL for upsert
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				slog.Default().Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	// Initialize the cache
	loadCache(dbConn, slog.Default())

	return err
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	result := dbConn.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// UpdateSetting updates a setting in the database using a transaction
func UpdateSetting(dbConn *gorm.DB, key string, value string) error {
	tx := dbConn.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update setting: %w", result.Error)
	}

	// If no rows were affected, the setting might not exist - try to create it
	if result.RowsAffected == 0 {
		setting := Setting{
			Key:   key,
			Value: value,
		}
		if err := tx.Create(&setting).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create setting: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Clear and reload the cache after successful update
	if settingsCache != nil {
		settingsCache.Clear()
	}
	loadCache(dbConn, slog.Default())

	return nil
}

// CreateOrUpdateSetting creates a new setting or updates an existing one
func CreateOrUpdateSetting(dbConn *gorm.DB, key string, value string) error {
	var count int64
	if err := dbConn.Model(&Setting{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check if setting exists: %w", err)
	}

	if count > 0 {
		return UpdateSetting(dbConn, key, value)
	}

	setting := Setting{
		Key:   key,
		Value: value,
	}
	if err := dbConn.Create(&setting).Error; err != nil {
		return fmt.Errorf("failed to create setting: %w", err)
	}
	return nil
}

func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) (string, error) {
		var value string
		err := dbConn.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
		if err != nil {
			return "", err
		}
		return value, nil
	}
	settingsCache = cache.NewCache[string, string](logger, 5*time.Minute, fetchFunc)
}

// IsTrackingEnabled reports whether event forwarding is switched on.
// Falls back to the database when the cache isn't initialized yet.
func IsTrackingEnabled(dbConn *gorm.DB) bool {
	value, err := cachedSetting(dbConn, KeyTrackingEnabled)
	if err != nil {
		return false
	}
	return value == "true" || value == "1"
}

// GetClientKey returns the ingestion API client key, or an empty string
// when none has been configured.
func GetClientKey(dbConn *gorm.DB) string {
	value, err := cachedSetting(dbConn, KeyClientKey)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// SetTrackingEnabled persists the tracking switch.
func SetTrackingEnabled(dbConn *gorm.DB, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	return CreateOrUpdateSetting(dbConn, KeyTrackingEnabled, value)
}

// SetClientKey persists the ingestion API client key.
func SetClientKey(dbConn *gorm.DB, key string) error {
	return CreateOrUpdateSetting(dbConn, KeyClientKey, strings.TrimSpace(key))
}

func cachedSetting(dbConn *gorm.DB, key string) (string, error) {
	if settingsCache != nil {
		return settingsCache.Get(key)
	}
	return GetSetting(dbConn, key)
}

// SettingResponse represents a setting key-value pair for API responses
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetAllSettingsForDisplay retrieves all settings with sensitive values
// masked for display
func GetAllSettingsForDisplay(db *gorm.DB) ([]SettingResponse, error) {
	var allSettings []Setting
	if err := db.Find(&allSettings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	var result []SettingResponse
	for _, setting := range allSettings {
		value := setting.Value
		if setting.Key == KeyClientKey && value != "" {
			value = strings.Repeat("*", len(value))
		}
		result = append(result, SettingResponse{
			Key:   setting.Key,
			Value: value,
		})
	}
	return result, nil
}
