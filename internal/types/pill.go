package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pill is a registered medication: display name plus the feature vector the
// extractor produced from its registration photo(s). Immutable after creation
// except for metadata; removal is an explicit admin action.
type Pill struct {
	gorm.Model
	ID                     uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name                   string         `gorm:"not null;index;column:name" json:"name"`
	OwnerID                uuid.UUID      `gorm:"type:uuid;not null;index;column:owner_id" json:"owner_id"`
	Owner                  *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	Embedding              datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"embedding"`
	FeatureCount           int            `gorm:"column:feature_count" json:"feature_count"`
	RegistrationConfidence float64        `gorm:"column:registration_confidence" json:"registration_confidence"`
	ImagePath              string         `gorm:"column:image_path" json:"image_path"`
	CreatedAt              time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Pill) TableName() string {
	return "pill"
}

func (p *Pill) Vector() ([]float64, error) {
	if len(p.Embedding) == 0 {
		return nil, fmt.Errorf("pill %s has no embedding", p.ID)
	}
	var v []float64
	if err := json.Unmarshal(p.Embedding, &v); err != nil {
		return nil, fmt.Errorf("decode pill embedding: %w", err)
	}
	return v, nil
}

func (p *Pill) SetVector(v []float64) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode pill embedding: %w", err)
	}
	p.Embedding = datatypes.JSON(raw)
	p.FeatureCount = len(v)
	return nil
}
