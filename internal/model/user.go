package model

import "time"

// User is a group member. Notifications are kept in insertion order.
type User struct {
	ID            string `gorm:"primaryKey"`
	TelegramID    *int64 `gorm:"uniqueIndex"`
	Name          string
	Username      string
	Language      string         `gorm:"default:en"`
	Notifications []Notification `gorm:"serializer:json;type:text"`
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
