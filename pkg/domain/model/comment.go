package model

import "time"

// Comment 评论，ParentID 为空表示顶层评论，回复只允许挂在顶层评论下
type Comment struct {
	ID        uint
	AuthorID  uint
	AlbumID   *uint
	ImageID   *uint
	ParentID  *uint
	Body      string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// 以下字段只在列表接口填充
	AuthorName string
	Replies    []*Comment
	ReplyCount int
	LikeCount  int
	Liked      bool
}

// IsRoot 是否为顶层评论
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
