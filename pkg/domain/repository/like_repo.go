package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
)

// LikeRepository 点赞关系，(user, like_type, object_id) 唯一
type LikeRepository interface {
	Find(ctx context.Context, userID uint, target model.LikeTarget) (*model.Like, error)

	// 插入点赞，重复时返回 ErrDuplicate
	Create(ctx context.Context, userID uint, target model.LikeTarget) (*model.Like, error)

	// 删除点赞，返回是否删除了记录
	Delete(ctx context.Context, userID uint, target model.LikeTarget) (bool, error)

	Count(ctx context.Context, target model.LikeTarget) (int, error)

	// 删除某个目标上的全部点赞
	DeleteByTarget(ctx context.Context, likeType constant.LikeType, objectIDs []uint) error

	// 用户点赞过的对象 id，按时间倒序
	ListObjectIDsByUser(ctx context.Context, userID uint, likeType constant.LikeType) ([]uint, error)
}
