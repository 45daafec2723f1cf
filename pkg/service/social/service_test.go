package social

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/internal/infra/persistence/dbtest"
	"github.com/photox-team/photox-app/internal/infra/persistence/ent"
	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/service/notification"
	"github.com/photox-team/photox-app/pkg/service/utility"
)

type fixture struct {
	repos    repository.Repositories
	notifier notification.NotificationService
	svc      SocialService
}

func setup(t *testing.T, wrap func(repository.TransactionManager) repository.TransactionManager) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t)
	repos := ent.NewRepositories(db, dbtest.DBType)
	var tm repository.TransactionManager = ent.NewTransactionManager(db, dbtest.DBType)
	if wrap != nil {
		tm = wrap(tm)
	}
	notifier := notification.NewNotificationService(repos.Notification, utility.NewCacheService(nil))

	require.NoError(t, repos.User.Ensure(ctx, 1, "alice"))
	require.NoError(t, repos.User.Ensure(ctx, 2, "bob"))
	require.NoError(t, repos.User.Ensure(ctx, 3, "carol"))

	return &fixture{
		repos:    repos,
		notifier: notifier,
		svc:      NewSocialService(repos, tm, notifier),
	}
}

func (f *fixture) image(t *testing.T, owner uint, public bool) *model.Image {
	t.Helper()
	img, err := f.repos.Image.Create(context.Background(), &repository.CreateImageParams{
		OwnerID:   owner,
		URL:       "https://cdn.example.com/images/1_x.jpg",
		ObjectKey: "images/1_x.jpg",
		Title:     "x.jpg",
		Category:  constant.CategoryBuilding,
		AITagIDs:  []uint{constant.SentinelTagID},
		IsPublic:  public,
	})
	require.NoError(t, err)
	return img
}

func (f *fixture) unread(t *testing.T, userID uint) int {
	t.Helper()
	n, err := f.notifier.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func TestToggleLike_TwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	img := f.image(t, 1, true)
	target := model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: img.ID}

	before, err := f.svc.CheckLike(ctx, 2, target)
	require.NoError(t, err)
	assert.False(t, before.Active())
	assert.Equal(t, 0, before.Count)

	res, err := f.svc.ToggleLike(ctx, 2, target)
	require.NoError(t, err)
	assert.True(t, res.Active())
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, f.unread(t, 1))

	res, err = f.svc.ToggleLike(ctx, 2, target)
	require.NoError(t, err)
	assert.Equal(t, constant.ToggleInactive, res.State)
	assert.Equal(t, 0, res.Count)

	after, err := f.svc.CheckLike(ctx, 2, target)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// 取消点赞不删除通知
	assert.Equal(t, 1, f.unread(t, 1))
}

func TestToggleLike_SelfDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	img := f.image(t, 1, true)

	res, err := f.svc.ToggleLike(ctx, 1, model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: img.ID})
	require.NoError(t, err)
	assert.True(t, res.Active())
	assert.Equal(t, 0, f.unread(t, 1))
}

func TestToggleLike_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	private := f.image(t, 1, false)

	tests := []struct {
		name   string
		target model.LikeTarget
		want   error
	}{
		{"未知类型", model.LikeTarget{Type: "article", ObjectID: 1}, apperror.ErrValidation},
		{"缺少对象", model.LikeTarget{Type: constant.LikeTypeImage}, apperror.ErrValidation},
		{"图片不存在", model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: 999}, apperror.ErrNotFound},
		{"相册不存在", model.LikeTarget{Type: constant.LikeTypeAlbum, ObjectID: 999}, apperror.ErrNotFound},
		{"评论不存在", model.LikeTarget{Type: constant.LikeTypeComment, ObjectID: 999}, apperror.ErrNotFound},
		{"私有图片", model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: private.ID}, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ToggleLike(ctx, 2, tt.target)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	count, err := f.repos.Like.Count(ctx, model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: private.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestToggleLike_UnlikeAfterImageMadePrivate(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	img := f.image(t, 1, true)
	target := model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: img.ID}

	res, err := f.svc.ToggleLike(ctx, 2, target)
	require.NoError(t, err)
	require.True(t, res.Active())

	private := false
	_, err = f.repos.Image.UpdateMeta(ctx, img.ID, nil, &private)
	require.NoError(t, err)

	res, err = f.svc.ToggleLike(ctx, 2, target)
	require.NoError(t, err)
	assert.False(t, res.Active())
	assert.Equal(t, 0, res.Count)

	// 取消之后不能再点赞
	_, err = f.svc.ToggleLike(ctx, 2, target)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestToggleLike_CommentAndAlbum(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	img := f.image(t, 1, true)

	comment, err := f.repos.Comment.Create(ctx, &repository.CreateCommentParams{AuthorID: 3, ImageID: &img.ID, Body: "好看"})
	require.NoError(t, err)
	album, err := f.repos.Album.Create(ctx, &repository.CreateAlbumParams{OwnerID: 1, Title: "旅行", IsPublic: true})
	require.NoError(t, err)

	res, err := f.svc.ToggleLike(ctx, 2, model.LikeTarget{Type: constant.LikeTypeComment, ObjectID: comment.ID})
	require.NoError(t, err)
	assert.True(t, res.Active())

	res, err = f.svc.ToggleLike(ctx, 2, model.LikeTarget{Type: constant.LikeTypeAlbum, ObjectID: album.ID})
	require.NoError(t, err)
	assert.True(t, res.Active())

	page, err := f.notifier.List(ctx, 3, false, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob 赞了你的评论", page.Items[0].Content)

	page, err = f.notifier.List(ctx, 1, false, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob 赞了你的相册", page.Items[0].Content)
}

// conflictOnce 第一次执行时模拟唯一索引冲突
type conflictOnce struct {
	repository.TransactionManager
	calls int
}

func (c *conflictOnce) Do(ctx context.Context, fn func(repos repository.Repositories) error) error {
	c.calls++
	if c.calls == 1 {
		return fmt.Errorf("插入点赞: %w", repository.ErrDuplicate)
	}
	return c.TransactionManager.Do(ctx, fn)
}

func TestToggleLike_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	var tm *conflictOnce
	f := setup(t, func(inner repository.TransactionManager) repository.TransactionManager {
		tm = &conflictOnce{TransactionManager: inner}
		return tm
	})
	img := f.image(t, 1, true)

	res, err := f.svc.ToggleLike(ctx, 2, model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: img.ID})
	require.NoError(t, err)
	assert.True(t, res.Active())
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 2, tm.calls)
}

func TestToggleFollow(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	res, err := f.svc.ToggleFollow(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Active())
	assert.Equal(t, 1, res.Count)

	page, err := f.notifier.List(ctx, 1, true, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob 关注了你", page.Items[0].Content)
	assert.Equal(t, constant.NotificationFollow, page.Items[0].Kind)

	res, err = f.svc.ToggleFollow(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, res.Active())
	assert.Equal(t, 0, res.Count)

	// 取消关注后通知仍然保留且未读
	assert.Equal(t, 1, f.unread(t, 1))
}

func TestToggleFollow_Self(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	_, err := f.svc.ToggleFollow(ctx, 1, 1)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	n, err := f.repos.Follow.CountFollowers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.unread(t, 1))

	_, err = f.svc.ToggleFollow(ctx, 1, 404)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFollowLists(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)

	_, err := f.svc.ToggleFollow(ctx, 2, 1)
	require.NoError(t, err)
	_, err = f.svc.ToggleFollow(ctx, 3, 1)
	require.NoError(t, err)
	_, err = f.svc.ToggleFollow(ctx, 1, 3)
	require.NoError(t, err)

	followers, err := f.svc.ListFollowers(ctx, 1, repository.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers.Total)
	names := []string{followers.Items[0].Username, followers.Items[1].Username}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	following, err := f.svc.ListFollowing(ctx, 1, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, following.Items, 1)
	assert.Equal(t, uint(3), following.Items[0].ID)

	_, err = f.svc.ListFollowers(ctx, 404, repository.PageQuery{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	f := setup(t, nil)
	a := f.image(t, 1, true)
	b := f.image(t, 1, true)
	private := f.image(t, 1, false)

	created, err := f.svc.AddFavorite(ctx, 2, a.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.AddFavorite(ctx, 2, a.ID)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.svc.AddFavorite(ctx, 2, b.ID)
	require.NoError(t, err)

	_, err = f.svc.AddFavorite(ctx, 2, private.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	ok, err := f.svc.IsFavorited(ctx, 2, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := f.svc.ListFavorites(ctx, 2, repository.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	require.Len(t, list.Items, 2)
	assert.Equal(t, b.ID, list.Items[0].ID)

	require.NoError(t, f.svc.RemoveFavorite(ctx, 2, a.ID))
	err = f.svc.RemoveFavorite(ctx, 2, a.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	ok, err = f.svc.IsFavorited(ctx, 2, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
