package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/domain/model"
)

// TagRepository 全局标签注册表
type TagRepository interface {
	// 按 id 升序返回全部标签
	FindAll(ctx context.Context) ([]*model.Tag, error)

	FindByIDs(ctx context.Context, ids []uint) ([]*model.Tag, error)

	FindByName(ctx context.Context, name string) (*model.Tag, error)

	// 以 max(id)+1 创建新标签，名称重复时返回 ErrDuplicate
	Create(ctx context.Context, name string) (*model.Tag, error)

	// 按 id 插入或更新名称
	Upsert(ctx context.Context, tag *model.Tag) (created bool, err error)

	// 返回一批图片的 AI 标签 id，按 image_id 分组
	FindImageTagIDs(ctx context.Context, imageIDs []uint) (map[uint][]uint, error)
}
