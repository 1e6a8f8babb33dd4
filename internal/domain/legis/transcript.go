package legis

import (
	"time"

	"github.com/google/uuid"
)

// Transcript is a floor session or hearing transcript, keyed by the
// source filename or feed entry id.
type Transcript struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExtID       string     `gorm:"column:ext_id;not null;uniqueIndex" json:"ext_id"`
	SessionType string     `gorm:"column:session_type;index" json:"session_type,omitempty"`
	DateTime    *time.Time `gorm:"column:date_time;index" json:"date_time,omitempty"`
	Location    string     `gorm:"column:location" json:"location,omitempty"`
	Text        string     `gorm:"column:text;type:text" json:"text,omitempty"`
	SourceURL   string     `gorm:"column:source_url" json:"source_url,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Transcript) TableName() string { return "transcript" }
