package models

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID        string    `json:"$id"`
	PostID    string    `json:"postId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
