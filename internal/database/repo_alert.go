package database

import (
	"gorm.io/gorm"
)

type BadgeAlertRepo struct {
	db *gorm.DB
}

func NewBadgeAlertRepo() *BadgeAlertRepo {
	return &BadgeAlertRepo{db: DB}
}

func (r *BadgeAlertRepo) Create(alert *BadgeAlert) error {
	return r.db.Create(alert).Error
}

func (r *BadgeAlertRepo) List(filter AlertFilter) ([]BadgeAlert, int64, error) {
	var alerts []BadgeAlert
	var total int64

	q := r.db.Model(&BadgeAlert{})
	if filter.Badge != "" {
		q = q.Where("badge = ?", filter.Badge)
	}
	if filter.UnackedOnly {
		q = q.Where("acked = ?", false)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	off := filter.Offset()
	err := q.Order(orderClause(filter.SortBy, filter.SortOrder, alertSortable)).
		Offset(off).
		Limit(filter.PageSize).
		Find(&alerts).Error
	return alerts, total, err
}

func (r *BadgeAlertRepo) MarkNotified(id uint) error {
	return r.db.Model(&BadgeAlert{}).Where("id = ?", id).Update("notified", true).Error
}

func (r *BadgeAlertRepo) AckAll() error {
	return r.db.Model(&BadgeAlert{}).Where("acked = ?", false).Update("acked", true).Error
}

func (r *BadgeAlertRepo) CountUnacked() (int64, error) {
	var count int64
	err := r.db.Model(&BadgeAlert{}).Where("acked = ?", false).Count(&count).Error
	return count, err
}

type AlertFilter struct {
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
	Badge       string
	UnackedOnly bool
}

func (f *AlertFilter) Offset() int {
	return offset(&f.Page, &f.PageSize)
}

var alertSortable = map[string]bool{"created_at": true, "badge": true, "id": true}
