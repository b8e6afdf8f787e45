package contact

import (
	"time"

	"gorm.io/datatypes"
)

type LinkAction string

const (
	LinkActionCreatedPrimary   LinkAction = "created_primary"
	LinkActionCreatedSecondary LinkAction = "created_secondary"
	LinkActionDemoted          LinkAction = "demoted"
	LinkActionRelinked         LinkAction = "relinked"
)

// ContactLinkEvent is the audit row written alongside every reconciliation write.
type ContactLinkEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ContactID int64          `gorm:"column:contact_id;not null;index" json:"contact_id"`
	PrimaryID int64          `gorm:"column:primary_id;not null;index" json:"primary_id"`
	Action    LinkAction     `gorm:"column:action;type:varchar(32);not null" json:"action"`
	RequestID string         `gorm:"column:request_id" json:"request_id,omitempty"`
	Details   datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (ContactLinkEvent) TableName() string { return "contact_link_event" }
