package model

import "time"

// Message is a chat line exchanged between a project's client and its
// assigned freelancer.
type Message struct {
	ID         uint64    `json:"id"`
	ProjectID  uint64    `json:"project_id"`
	SenderID   uint64    `json:"sender_id"`
	SenderName string    `json:"sender,omitempty"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"timestamp"`
}
