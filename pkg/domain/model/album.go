package model

import "time"

// Album 相册，(OwnerID, Title) 唯一
type Album struct {
	ID          uint
	OwnerID     uint
	Title       string
	Description string
	IsPublic    bool
	ImageCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
