package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is an uploaded summary. Its chunks live in the vector store under
// record IDs derived from ID, and the raw file in object storage at FilePath.
type Book struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"not null;size:255" json:"title"`
	Author    string    `gorm:"not null;size:255" json:"author"`
	FilePath  string    `gorm:"not null;size:512" json:"file_path"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
