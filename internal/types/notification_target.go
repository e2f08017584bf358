package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationTarget is one push-capable device for a user. A user can hold
// many; (user_id, push_token) is unique so re-registration from a flaky mobile
// network updates metadata in place instead of duplicating rows.
type NotificationTarget struct {
	gorm.Model
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_target_user_token;column:user_id" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	PushToken  string         `gorm:"not null;uniqueIndex:idx_target_user_token;column:push_token" json:"push_token"`
	DeviceInfo datatypes.JSON `gorm:"type:jsonb;column:device_info" json:"device_info,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (NotificationTarget) TableName() string {
	return "notification_target"
}
