package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Importance tiers. A chunk with Importance == nil is unranked; many chunks
// may share a tier.
const (
	ImportanceTier1         = "1"
	ImportanceTier2         = "2"
	ImportanceTier3         = "3"
	ImportanceDeprioritized = "deprioritized"
)

func IsValidImportance(v string) bool {
	switch v {
	case ImportanceTier1, ImportanceTier2, ImportanceTier3, ImportanceDeprioritized:
		return true
	default:
		return false
	}
}

// Emotional intensity is captured once from classification-time context and
// never mutated afterward.
const (
	IntensityLow    = "low"
	IntensityMedium = "medium"
	IntensityHigh   = "high"
)

func IsValidIntensity(v string) bool {
	switch v {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	default:
		return false
	}
}

// Chunk is one categorized fragment of user-submitted text. At most one chunk
// per owner may have Pinned set; the repo enforces that inside SetPinned.
type Chunk struct {
	gorm.Model
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID            uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner              *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"-"`
	Content            string    `gorm:"column:content;not null" json:"content"`
	Category           string    `gorm:"column:category;not null;index" json:"category"`
	EmotionalIntensity *string   `gorm:"column:emotional_intensity" json:"emotional_intensity,omitempty"`
	Importance         *string   `gorm:"column:importance" json:"importance,omitempty"`
	Pinned             bool      `gorm:"column:pinned;not null;default:false" json:"pinned"`
	Starred            bool      `gorm:"column:starred;not null;default:false" json:"starred"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (Chunk) TableName() string {
	return "chunk"
}
