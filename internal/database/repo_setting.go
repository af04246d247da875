package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepo struct {
	db *gorm.DB
}

func NewSettingRepo() *SettingRepo {
	return &SettingRepo{db: DB}
}

func (r *SettingRepo) Get(key string) (string, error) {
	var setting Setting
	if err := r.db.Where(&Setting{Key: key}).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

// Set upserts a single key.
func (r *SettingRepo) Set(key, value string) error {
	return upsertSetting(r.db, key, value)
}

func (r *SettingRepo) GetAll() (map[string]string, error) {
	var settings []Setting
	if err := r.db.Find(&settings).Error; err != nil {
		return nil, err
	}
	result := make(map[string]string, len(settings))
	for _, s := range settings {
		result[s.Key] = s.Value
	}
	return result, nil
}

func (r *SettingRepo) SetBatch(items map[string]string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range items {
			if err := upsertSetting(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SettingRepo) Delete(key string) error {
	return r.db.Where(&Setting{Key: key}).Delete(&Setting{}).Error
}

func upsertSetting(db *gorm.DB, key, value string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}
