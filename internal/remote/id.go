package remote

import "github.com/google/uuid"

// UniqueID returns a fresh client-generated identifier for accounts, documents and files.
func UniqueID() string {
	return uuid.NewString()
}
