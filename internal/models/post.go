// Package models contains data structures for the feed's domain records.
package models

import (
	"time"
	"unicode/utf8"
)

// MaxPostLength is the maximum number of characters in a post body.
const MaxPostLength = 280

// Post represents a feed post document.
type Post struct {
	ID         string    `json:"$id"`
	OwnerID    string    `json:"userId"`
	AuthorName string    `json:"createdBy"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	ImageURL   *string   `json:"imageUrl"`
	// Editable marks the post being edited inline. It is never persisted.
	Editable bool `json:"-"`
}

// HasImage reports whether the post carries an attached image.
func (p Post) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

// ContentLength counts characters, not bytes.
func ContentLength(content string) int {
	return utf8.RuneCountInString(content)
}
