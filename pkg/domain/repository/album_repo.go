package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/domain/model"
)

type CreateAlbumParams struct {
	OwnerID     uint
	Title       string
	Description string
	IsPublic    bool
}

type UpdateAlbumParams struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

// AlbumRepository 相册的持久化接口
type AlbumRepository interface {
	// 创建相册，(owner, title) 重复时返回 ErrDuplicate
	Create(ctx context.Context, params *CreateAlbumParams) (*model.Album, error)

	// 原子地查找或创建 (owner, title) 相册，并发调用只会创建一个
	GetOrCreate(ctx context.Context, params *CreateAlbumParams) (album *model.Album, created bool, err error)

	FindByID(ctx context.Context, id uint) (*model.Album, error)

	Exists(ctx context.Context, id uint) (bool, error)

	// 列出用户的相册，onlyPublic 为 true 时只返回公开相册
	ListByOwner(ctx context.Context, ownerID uint, onlyPublic bool, page PageQuery) ([]*model.Album, int64, error)

	Update(ctx context.Context, id uint, params *UpdateAlbumParams) (*model.Album, error)

	// 删除相册及其图片关联，图片本身保留
	Delete(ctx context.Context, id uint) error

	// 添加图片，已存在时不报错
	AddImage(ctx context.Context, albumID, imageID uint) error

	RemoveImage(ctx context.Context, albumID, imageID uint) error

	// 移除某张图片在所有相册中的关联
	RemoveImageFromAll(ctx context.Context, imageID uint) error

	ListImageIDs(ctx context.Context, albumID uint) ([]uint, error)
}
