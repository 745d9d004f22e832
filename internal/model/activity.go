package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity log action constants
const (
	ActivityLogin  = "login"
	ActivityLogout = "logout"
	ActivityCreate = "create"
	ActivityUpdate = "update"
	ActivityDelete = "delete"
	ActivitySubmit = "submit"
	ActivityView   = "view"
)

// ActivityLog tracks Who, What, and When for user-facing actions.
// Writes to it are fire-and-forget: a failed log never fails the parent operation.
type ActivityLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Summary   string     `gorm:"type:varchar(255);not null" json:"summary"`
	Detail    string     `gorm:"type:text" json:"detail"`
	IPAddress string     `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string     `gorm:"type:varchar(255)" json:"user_agent"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
