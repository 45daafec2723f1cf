package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/domain/model"
)

// CreateCommentParams 封装了创建评论时需要持久化的所有数据。
type CreateCommentParams struct {
	AuthorID uint
	AlbumID  *uint
	ImageID  *uint
	ParentID *uint
	Body     string
}

// CommentListParams 顶层评论的查询条件，AlbumID 和 ImageID 二选一。
// 只返回 ViewerID 可见对象下的评论，0 表示匿名用户。
type CommentListParams struct {
	PageQuery
	AlbumID  *uint
	ImageID  *uint
	ViewerID uint
}

// CommentRepository 定义了评论数据的持久化操作接口。
type CommentRepository interface {
	Create(ctx context.Context, params *CreateCommentParams) (*model.Comment, error)

	// 根据数据库ID查找单条评论，已软删除的也会返回
	FindByID(ctx context.Context, id uint) (*model.Comment, error)

	Exists(ctx context.Context, id uint) (bool, error)

	// 未删除的顶层评论，按时间倒序
	ListRoots(ctx context.Context, params CommentListParams) ([]*model.Comment, int64, error)

	// 未删除的回复，按时间正序，limit <= 0 表示不限
	ListReplies(ctx context.Context, parentID uint, limit int) ([]*model.Comment, error)

	// 批量统计未删除的回复数
	CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error)

	// 软删除
	SoftDelete(ctx context.Context, id uint) error

	// 物理删除某张图片下的全部评论，返回被删除评论的 id
	DeleteByImage(ctx context.Context, imageID uint) ([]uint, error)
	DeleteByAlbum(ctx context.Context, albumID uint) ([]uint, error)
}
