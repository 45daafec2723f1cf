package model

import (
	"time"

	"github.com/photox-team/photox-app/pkg/constant"
)

// LikeTarget 点赞的多态目标
type LikeTarget struct {
	Type     constant.LikeType
	ObjectID uint
}

type Like struct {
	ID        uint
	UserID    uint
	Target    LikeTarget
	CreatedAt time.Time
}

// Follow FollowerID 关注了 FolloweeID
type Follow struct {
	ID         uint
	FollowerID uint
	FolloweeID uint
	CreatedAt  time.Time
}

type Favorite struct {
	ID        uint
	UserID    uint
	ImageID   uint
	CreatedAt time.Time
}

// ToggleResult 开关类操作（点赞、关注）的结果
type ToggleResult struct {
	State constant.ToggleState
	Count int
}

// Active 当前是否处于开启状态
func (r ToggleResult) Active() bool {
	return r.State == constant.ToggleActive
}
