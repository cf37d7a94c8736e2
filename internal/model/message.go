package model

import "time"

const ChatInfoClaimTask = "claim_task"

// ChatMessage is a message posted to a group's chat.
type ChatMessage struct {
	ID        string `gorm:"primaryKey"`
	GroupID   string `gorm:"index"`
	UserID    string
	Text      string
	InfoType  string
	InfoUser  string
	InfoTask  string
	CreatedAt time.Time
}
