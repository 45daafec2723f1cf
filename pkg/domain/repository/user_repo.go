package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/domain/model"
)

// UserRepository 只保存外部认证系统中用户的最小镜像
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)

	FindByIDs(ctx context.Context, ids []uint) ([]*model.User, error)

	// 按 token 中的信息补齐或更新用户名
	Ensure(ctx context.Context, id uint, username string) error
}
