package database

import (
	"time"
)

// User is a back-office admin account, not a marketplace buyer.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash   string     `gorm:"not null" json:"-"`
	Role           string     `gorm:"not null;default:admin" json:"role"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
	FailedAttempts int        `gorm:"default:0" json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `gorm:"index" json:"action"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	Result    string    `json:"result"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshRun is one badge refresh cycle and the counters it produced.
type RefreshRun struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	RunID               string    `gorm:"uniqueIndex;size:36" json:"run_id"`
	Trigger             string    `gorm:"index" json:"trigger"` // mount / poll
	Users               int       `json:"users"`
	Sellers             int       `json:"sellers"`
	Products            int       `json:"products"`
	PendingProducts     int       `json:"pending_products"`
	Orders              int       `json:"orders"`
	Payments            int       `json:"payments"`
	UnreadConversations int       `json:"unread_conversations"`
	Marked              int       `json:"marked"`
	MarkFailed          int       `json:"mark_failed"`
	Errors              string    `gorm:"type:text" json:"errors,omitempty"` // JSON object: {"users":"..."}
	DurationMs          int64     `json:"duration_ms"`
	CreatedAt           time.Time `gorm:"index" json:"created_at"`
}

// BadgeAlert records a badge counter that grew between two refreshes.
type BadgeAlert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Badge     string    `gorm:"index" json:"badge"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Message   string    `json:"message"`
	Notified  bool      `gorm:"default:false" json:"notified"`
	Acked     bool      `gorm:"default:false;index" json:"acked"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Models lists every table migrated at startup.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&AuditLog{},
		&Setting{},
		&RefreshRun{},
		&BadgeAlert{},
	}
}
