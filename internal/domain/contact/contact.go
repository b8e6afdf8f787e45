package contact

import (
	"time"

	"gorm.io/gorm"
)

type LinkPrecedence string

const (
	LinkPrecedencePrimary   LinkPrecedence = "primary"
	LinkPrecedenceSecondary LinkPrecedence = "secondary"
)

func (p LinkPrecedence) Valid() bool {
	return p == LinkPrecedencePrimary || p == LinkPrecedenceSecondary
}

// Contact is one observed email/phone pair. Secondaries always link to a primary.
type Contact struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PhoneNumber    *string        `gorm:"column:phone_number;index" json:"phone_number,omitempty"`
	Email          *string        `gorm:"column:email;index" json:"email,omitempty"`
	LinkedID       *int64         `gorm:"column:linked_id;index" json:"linked_id,omitempty"`
	LinkPrecedence LinkPrecedence `gorm:"column:link_precedence;type:varchar(16);not null" json:"link_precedence"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Contact) TableName() string { return "contact" }

func (c *Contact) IsPrimary() bool {
	return c != nil && c.LinkPrecedence == LinkPrecedencePrimary
}

// EmailValue returns the email or "" when unset.
func (c *Contact) EmailValue() string {
	if c == nil || c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone number or "" when unset.
func (c *Contact) PhoneValue() string {
	if c == nil || c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}

// PrimaryID returns the id of the cluster primary this contact belongs to.
func (c *Contact) PrimaryID() int64 {
	if c == nil {
		return 0
	}
	if c.IsPrimary() || c.LinkedID == nil {
		return c.ID
	}
	return *c.LinkedID
}
