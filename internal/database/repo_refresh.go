package database

import (
	"gorm.io/gorm"
)

type RefreshRunRepo struct {
	db *gorm.DB
}

func NewRefreshRunRepo() *RefreshRunRepo {
	return &RefreshRunRepo{db: DB}
}

func (r *RefreshRunRepo) Create(run *RefreshRun) error {
	return r.db.Create(run).Error
}

// Recent returns the latest runs, newest first.
func (r *RefreshRunRepo) Recent(limit int) ([]RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []RefreshRun
	err := r.db.Order("created_at desc, id desc").Limit(limit).Find(&runs).Error
	return runs, err
}

func (r *RefreshRunRepo) Latest() (*RefreshRun, error) {
	var run RefreshRun
	if err := r.db.Order("created_at desc, id desc").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune keeps the newest n runs.
func (r *RefreshRunRepo) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var cutoff RefreshRun
	err := r.db.Order("created_at desc, id desc").Offset(keep - 1).Limit(1).Find(&cutoff).Error
	if err != nil || cutoff.ID == 0 {
		return 0, err
	}
	res := r.db.Where("id < ?", cutoff.ID).Delete(&RefreshRun{})
	return res.RowsAffected, res.Error
}
