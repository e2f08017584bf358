package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Schedule is one recurring dose: a wall-clock time of day plus an optional
// weekday restriction. Disabled via Active=false rather than deleted so the
// dose history stays intact.
type Schedule struct {
	gorm.Model
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatientID      uuid.UUID      `gorm:"type:uuid;not null;index;column:patient_id" json:"patient_id"`
	Patient        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatientID;references:ID" json:"patient,omitempty"`
	PillID         *uuid.UUID     `gorm:"type:uuid;column:pill_id" json:"pill_id,omitempty"`
	MedicationName string         `gorm:"not null;column:medication_name" json:"medication_name"`
	TimeOfDay      string         `gorm:"not null;column:time_of_day" json:"time_of_day"`
	DaysOfWeek     datatypes.JSON `gorm:"type:jsonb;column:days_of_week" json:"days_of_week"`
	Active         bool           `gorm:"not null;default:true;column:active" json:"active"`
	// LastFiredMinute holds the calendar minute ("2006-01-02T15:04") of the
	// most recent reminder so overlapping ticks cannot double-send.
	LastFiredMinute *string   `gorm:"column:last_fired_minute" json:"last_fired_minute,omitempty"`
	CreatedBy       uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Schedule) TableName() string {
	return "schedule"
}

// Weekdays decodes DaysOfWeek; empty means every day.
func (s *Schedule) Weekdays() []int {
	if len(s.DaysOfWeek) == 0 {
		return nil
	}
	var days []int
	if err := json.Unmarshal(s.DaysOfWeek, &days); err != nil {
		return nil
	}
	return days
}

func (s *Schedule) SetWeekdays(days []int) error {
	if len(days) == 0 {
		s.DaysOfWeek = nil
		return nil
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return err
	}
	s.DaysOfWeek = datatypes.JSON(raw)
	return nil
}

// MinuteKey formats t at minute precision in the schedule's governing zone,
// matching the LastFiredMinute marker format.
func MinuteKey(t time.Time) string {
	return t.Format("2006-01-02T15:04")
}
