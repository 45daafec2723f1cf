package repository

import "context"

// Repositories 事务内可用的仓库集合，全部绑定到同一个事务
type Repositories struct {
	Image        ImageRepository
	Tag          TagRepository
	Album        AlbumRepository
	Like         LikeRepository
	Follow       FollowRepository
	Comment      CommentRepository
	Notification NotificationRepository
	Favorite     FavoriteRepository
	User         UserRepository
}

// TransactionManager 在一个数据库事务中执行 fn，fn 返回错误时回滚
type TransactionManager interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}
