package ledger

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SyncRecord is one reconciliation outcome.
type SyncRecord struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	PlanID     string       `gorm:"type:varchar(255);not null;index" json:"plan_id"`
	Identifier string       `gorm:"type:varchar(255);not null" json:"identifier"`
	Status     string       `gorm:"type:varchar(32);not null;index" json:"status"`
	RemoteID   string       `gorm:"type:varchar(255)" json:"remote_id,omitempty"`
	Error      string       `gorm:"type:text" json:"error,omitempty"`
	APIVersion string       `gorm:"type:varchar(64)" json:"api_version,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (SyncRecord) TableName() string { return "plan_sync_records" }
