package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UsageEvent is the local audit row for a metering event. The actual billing
// ingest is fire-and-forget over HTTP; this table is what we reconcile
// against when the collaborator drops events.
type UsageEvent struct {
	gorm.Model
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	EventName string         `gorm:"column:event_name;not null" json:"event_name"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	SentAt    *time.Time     `gorm:"column:sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (UsageEvent) TableName() string {
	return "usage_event"
}
