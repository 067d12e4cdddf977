package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/oneboxhq/onebox/internal/enum"
)

// Email is the canonical normalized record for one inbound message. It is
// created exactly once by the normalizer, gets its category assigned exactly
// once by the classification stage and is immutable afterwards as far as this
// service is concerned.
type Email struct {
	// ID is derived deterministically from account + protocol message id so
	// reprocessing the same raw message always yields the same key.
	ID        string `gorm:"column:id;type:varchar(255);primaryKey"`
	AccountID string `gorm:"column:account_id;type:varchar(50);index;not null"`
	Folder    string `gorm:"column:folder;type:varchar(100);index;not null"`
	ImapUID   uint32 `gorm:"column:imap_uid;index"`
	MessageID string `gorm:"column:message_id;type:varchar(255);index;not null"`

	// Core email metadata
	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName     string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]"`

	SentAt *time.Time `gorm:"column:sent_at;type:timestamp;index"`

	// Content
	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	IsRead bool `gorm:"column:is_read;default:false"`

	// Raw data
	RawHeaders JSONMap `gorm:"column:raw_headers;type:jsonb"`

	// Classification. Category is empty until the classification stage ran;
	// CategorySource records whether the category came from the model or from
	// the conservative fallback.
	Category       enum.IntentCategory       `gorm:"column:category;type:varchar(50);index"`
	CategorySource enum.ClassificationSource `gorm:"column:category_source;type:varchar(50)"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
