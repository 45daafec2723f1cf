package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/domain/model"
)

// FollowRepository 关注关系，(follower, followee) 唯一
type FollowRepository interface {
	Find(ctx context.Context, followerID, followeeID uint) (*model.Follow, error)

	// 插入关注，重复时返回 ErrDuplicate
	Create(ctx context.Context, followerID, followeeID uint) (*model.Follow, error)

	Delete(ctx context.Context, followerID, followeeID uint) (bool, error)

	CountFollowers(ctx context.Context, userID uint) (int, error)

	// 关注了 userID 的用户
	ListFollowers(ctx context.Context, userID uint, page PageQuery) ([]*model.Follow, int64, error)

	// userID 关注的用户
	ListFollowing(ctx context.Context, userID uint, page PageQuery) ([]*model.Follow, int64, error)
}
