package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/domain/model"
)

// FavoriteRepository 收藏，(user, image) 唯一
type FavoriteRepository interface {
	Find(ctx context.Context, userID, imageID uint) (*model.Favorite, error)

	// 插入收藏，重复时返回 ErrDuplicate
	Create(ctx context.Context, userID, imageID uint) (*model.Favorite, error)

	Delete(ctx context.Context, userID, imageID uint) (bool, error)

	DeleteByImage(ctx context.Context, imageID uint) error

	// 用户收藏列表，按收藏时间倒序
	ListByUser(ctx context.Context, userID uint, page PageQuery) ([]*model.Favorite, int64, error)

	// 用户收藏过的全部图片 id
	ListImageIDsByUser(ctx context.Context, userID uint) ([]uint, error)
}
