package legis

import (
	"time"

	"github.com/google/uuid"
)

// Member is a state legislator, keyed by the source's stable person id.
type Member struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExtID    string    `gorm:"column:ext_id;not null;uniqueIndex" json:"ext_id"`
	FullName string    `gorm:"column:full_name" json:"full_name,omitempty"`
	Chamber  string    `gorm:"column:chamber;index" json:"chamber,omitempty"`
	State    string    `gorm:"column:state" json:"state,omitempty"`
	Party    string    `gorm:"column:party" json:"party,omitempty"`
	Session  int       `gorm:"column:session;index" json:"session,omitempty"`
	Active   bool      `gorm:"column:active;not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Member) TableName() string { return "member" }

// FederalMember is a congress member, keyed by bioguide id.
// Re-ingestion updates attributes in place, never creates a second row.
type FederalMember struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BioguideID    string    `gorm:"column:bioguide_id;not null;uniqueIndex" json:"bioguide_id"`
	FullName      string    `gorm:"column:full_name" json:"full_name,omitempty"`
	Chamber       string    `gorm:"column:chamber;index" json:"chamber,omitempty"`
	State         string    `gorm:"column:state" json:"state,omitempty"`
	Party         string    `gorm:"column:party" json:"party,omitempty"`
	CurrentMember bool      `gorm:"column:current_member;not null;default:false" json:"current_member"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (FederalMember) TableName() string { return "federal_member" }
