package models

import "time"

// User is the account behind the current session.
type User struct {
	ID           string    `json:"$id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Registration time.Time `json:"registration,omitempty"`
}

// Session is a remote-issued proof of authentication. The client treats it as opaque
// beyond presence and its secret.
type Session struct {
	ID       string    `json:"$id"`
	UserID   string    `json:"userId"`
	Secret   string    `json:"secret"`
	Expire   time.Time `json:"expire"`
	Provider string    `json:"provider,omitempty"`
}

// File is a stored binary object in a bucket.
type File struct {
	ID       string `json:"$id"`
	BucketID string `json:"bucketId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"sizeOriginal"`
}
