// Package repository persists the emulator's accounts, sessions, documents
// and files.
package repository

import (
	"strings"
	"time"
)

// Account is a registered user.
type Account struct {
	ID           string `gorm:"primaryKey;size:64"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"size:128"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is an issued login. Deleting the row revokes its token.
type Session struct {
	ID        string `gorm:"primaryKey;size:64"`
	AccountID string `gorm:"index;size:64;not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Document is a schemaless record of a collection. Data holds the JSON
// attributes without the $-prefixed system fields.
type Document struct {
	DatabaseID   string `gorm:"primaryKey;size:64"`
	CollectionID string `gorm:"primaryKey;size:64"`
	ID           string `gorm:"primaryKey;size:64"`
	Data         string `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoredFile is the metadata of an uploaded file. Content lives on disk at Path.
type StoredFile struct {
	BucketID  string `gorm:"primaryKey;size:64"`
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255"`
	MimeType  string `gorm:"size:128"`
	Size      int64
	Path      string
	CreatedAt time.Time
}

// Models returns every schema-managed record type.
func Models() []interface{} {
	return []interface{}{
		&Account{},
		&Session{},
		&Document{},
		&StoredFile{},
	}
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
