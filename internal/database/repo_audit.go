package database

import (
	"hubdeck/internal/logger"

	"gorm.io/gorm"
)

type AuditLogRepo struct {
	db *gorm.DB
}

func NewAuditLogRepo() *AuditLogRepo {
	return &AuditLogRepo{db: DB}
}

func (r *AuditLogRepo) Create(log *AuditLog) error {
	if err := r.db.Create(log).Error; err != nil {
		logger.Audit.Error().Err(err).Str("action", log.Action).Msg("failed to write audit log")
		return err
	}
	return nil
}

func (r *AuditLogRepo) List(filter AuditFilter) ([]AuditLog, int64, error) {
	var logs []AuditLog
	var total int64

	q := r.db.Model(&AuditLog{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.UserID > 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.StartTime != "" {
		q = q.Where("created_at >= ?", filter.StartTime)
	}
	if filter.EndTime != "" {
		q = q.Where("created_at <= ?", filter.EndTime)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	off := filter.Offset()
	err := q.Order(orderClause(filter.SortBy, filter.SortOrder, auditSortable)).
		Offset(off).
		Limit(filter.PageSize).
		Find(&logs).Error
	return logs, total, err
}

type AuditFilter struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Action    string
	UserID    uint
	StartTime string
	EndTime   string
}

func (f *AuditFilter) Offset() int {
	return offset(&f.Page, &f.PageSize)
}

var auditSortable = map[string]bool{"created_at": true, "action": true, "username": true, "id": true}

// orderClause only lets whitelisted columns reach ORDER BY.
func orderClause(sortBy, sortOrder string, allowed map[string]bool) string {
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return sortBy + " " + sortOrder
}

func offset(page, pageSize *int) int {
	if *page <= 0 {
		*page = 1
	}
	if *pageSize <= 0 {
		*pageSize = 20
	}
	if *pageSize > 200 {
		*pageSize = 200
	}
	return (*page - 1) * *pageSize
}
