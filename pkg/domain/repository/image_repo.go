package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
)

// CreateImageParams 入库流水线持久化一张图片所需的数据
type CreateImageParams struct {
	OwnerID   uint
	URL       string
	ObjectKey string
	Title     string
	Category  constant.Category
	Colors    []string
	AITagIDs  []uint
	IsPublic  bool
}

// ImageOrder 列表排序方式
type ImageOrder int

const (
	OrderByCreated ImageOrder = iota // created_at 倒序
	OrderByLikes                     // 点赞数倒序，再按 created_at 倒序
)

// ImageListParams 通用图片列表的过滤条件，nil 表示不过滤
type ImageListParams struct {
	PageQuery
	OwnerID    *uint
	IsPublic   *bool
	Category   *constant.Category
	Categories []constant.Category
	TagNames   []string // 命中任一 AI 标签名或用户标签即可
	AITagIDs   []uint   // 命中任一 AI 标签即可
	ExcludeID  *uint
	ExcludeOwn uint // 非零时排除该用户的图片
	OrderBy    ImageOrder
}

// ImageRepository 图片的持久化接口
type ImageRepository interface {
	// 创建图片，同时写入 AI 标签关联
	Create(ctx context.Context, params *CreateImageParams) (*model.Image, error)

	// 根据ID查找，带 AI 标签
	FindByID(ctx context.Context, id uint) (*model.Image, error)

	// 同 FindByID，但在事务中锁定该行直到提交
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Image, error)

	Exists(ctx context.Context, id uint) (bool, error)

	// 更新标题和可见性，nil 字段不修改
	UpdateMeta(ctx context.Context, id uint, title *string, isPublic *bool) (*model.Image, error)

	// 整体替换用户标签
	SetUserTags(ctx context.Context, id uint, tags []string) error

	// 保存视觉模型生成的描述
	SetAIDescription(ctx context.Context, id uint, description string) error

	// 删除图片行及其 AI 标签关联
	Delete(ctx context.Context, id uint) error

	// 通用列表
	List(ctx context.Context, params ImageListParams) ([]*model.Image, int64, error)

	// 返回全部匹配图片的 id，按 id 升序，不分页；PageQuery 和 OrderBy 被忽略
	ListIDs(ctx context.Context, params ImageListParams) ([]uint, error)

	// 时间线：自己的图片，或已关注用户的公开图片
	ListFeed(ctx context.Context, viewerID uint, page PageQuery) ([]*model.Image, int64, error)

	// 按ID批量查找，不保证顺序
	FindByIDs(ctx context.Context, ids []uint) ([]*model.Image, error)
}
