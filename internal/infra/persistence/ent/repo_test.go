package ent

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/internal/infra/persistence/dbtest"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

func setupRepos(t *testing.T) (*sql.DB, repository.Repositories) {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.SeedTags(t, db, map[uint]string{1: "风景", 2: "人物", 3: "夜景"})
	return db, NewRepositories(db, dbtest.DBType)
}

func createImage(t *testing.T, repos repository.Repositories, owner uint, public bool, cat constant.Category, tags ...uint) *model.Image {
	t.Helper()
	img, err := repos.Image.Create(context.Background(), &repository.CreateImageParams{
		OwnerID:   owner,
		URL:       "https://cdn.example.com/images/a.jpg",
		ObjectKey: "images/a.jpg",
		Title:     "a.jpg",
		Category:  cat,
		Colors:    []string{"#112233"},
		AITagIDs:  tags,
		IsPublic:  public,
	})
	require.NoError(t, err)
	return img
}

func TestImageRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	img := createImage(t, repos, 1, true, constant.Category(2), 1, 2, 1)
	assert.Equal(t, []uint{1, 2}, img.AITagIDs)

	found, err := repos.Image.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), found.OwnerID)
	assert.Equal(t, constant.Category(2), found.Category)
	assert.Equal(t, []string{"#112233"}, found.Colors)
	assert.Equal(t, []string{}, found.UserTags)
	assert.ElementsMatch(t, []uint{1, 2}, found.AITagIDs)
	assert.True(t, found.IsPublic)
	assert.Equal(t, 0, found.LikeCount)

	_, err = repos.Image.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestImageRepo_UserTagsAndDelete(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)
	img := createImage(t, repos, 1, true, 0, 1)

	require.NoError(t, repos.Image.SetUserTags(ctx, img.ID, []string{"旅行", "海边"}))
	found, err := repos.Image.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"旅行", "海边"}, found.UserTags)

	title := "新标题"
	private := false
	updated, err := repos.Image.UpdateMeta(ctx, img.ID, &title, &private)
	require.NoError(t, err)
	assert.Equal(t, "新标题", updated.Title)
	assert.False(t, updated.IsPublic)

	require.NoError(t, repos.Image.Delete(ctx, img.ID))
	exists, err := repos.Image.Exists(ctx, img.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	tagIDs, err := repos.Tag.FindImageTagIDs(ctx, []uint{img.ID})
	require.NoError(t, err)
	assert.Empty(t, tagIDs)
}

func TestImageRepo_ListFilters(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	a := createImage(t, repos, 1, true, 1, 1)
	b := createImage(t, repos, 1, false, 2, 2)
	c := createImage(t, repos, 2, true, 1, 3)
	require.NoError(t, repos.Image.SetUserTags(ctx, c.ID, []string{"猫"}))

	owner := uint(1)
	images, total, err := repos.Image.List(ctx, repository.ImageListParams{OwnerID: &owner})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, b.ID, images[0].ID, "新图片在前")

	public := true
	images, _, err = repos.Image.List(ctx, repository.ImageListParams{OwnerID: &owner, IsPublic: &public})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, a.ID, images[0].ID)

	cat := constant.Category(1)
	images, _, err = repos.Image.List(ctx, repository.ImageListParams{Category: &cat, ExcludeID: &a.ID})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, c.ID, images[0].ID)

	images, _, err = repos.Image.List(ctx, repository.ImageListParams{TagNames: []string{"人物", "猫"}})
	require.NoError(t, err)
	ids := []uint{}
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, ids)

	images, _, err = repos.Image.List(ctx, repository.ImageListParams{AITagIDs: []uint{3}, ExcludeOwn: 1})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, c.ID, images[0].ID)
}

func TestImageRepo_OrderByLikes(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	a := createImage(t, repos, 1, true, 0)
	b := createImage(t, repos, 1, true, 0)
	for _, user := range []uint{2, 3} {
		_, err := repos.Like.Create(ctx, user, model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: a.ID})
		require.NoError(t, err)
	}

	images, _, err := repos.Image.List(ctx, repository.ImageListParams{OrderBy: repository.OrderByLikes})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, a.ID, images[0].ID)
	assert.Equal(t, 2, images[0].LikeCount)
	assert.Equal(t, b.ID, images[1].ID)
}

func TestImageRepo_ListFeed(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	own := createImage(t, repos, 1, false, 0)
	followedPublic := createImage(t, repos, 2, true, 0)
	createImage(t, repos, 2, false, 0)
	createImage(t, repos, 3, true, 0)

	_, err := repos.Follow.Create(ctx, 1, 2)
	require.NoError(t, err)

	images, total, err := repos.Image.ListFeed(ctx, 1, repository.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	ids := []uint{images[0].ID, images[1].ID}
	assert.Equal(t, []uint{followedPublic.ID, own.ID}, ids)
}

func TestTagRepo(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	tag, err := repos.Tag.Create(ctx, "建筑")
	require.NoError(t, err)
	assert.Equal(t, uint(4), tag.ID)

	_, err = repos.Tag.Create(ctx, "建筑")
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	created, err := repos.Tag.Upsert(ctx, &model.Tag{ID: 10, Name: "美食"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repos.Tag.Upsert(ctx, &model.Tag{ID: 10, Name: "甜点"})
	require.NoError(t, err)
	assert.False(t, created)

	all, err := repos.Tag.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, constant.SentinelTagName, all[0].Name)
	assert.Equal(t, "甜点", all[5].Name)

	found, err := repos.Tag.FindByName(ctx, "夜景")
	require.NoError(t, err)
	assert.Equal(t, uint(3), found.ID)
}

func TestAlbumRepo_GetOrCreateAndMembership(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	params := &repository.CreateAlbumParams{OwnerID: 1, Title: "风景相册", Description: "自动创建的风景分类相册"}
	album, created, err := repos.Album.GetOrCreate(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repos.Album.GetOrCreate(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, album.ID, again.ID)

	img := createImage(t, repos, 1, true, 1)
	require.NoError(t, repos.Album.AddImage(ctx, album.ID, img.ID))
	require.NoError(t, repos.Album.AddImage(ctx, album.ID, img.ID))

	found, err := repos.Album.FindByID(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.ImageCount)

	ids, err := repos.Album.ListImageIDs(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{img.ID}, ids)

	require.NoError(t, repos.Album.RemoveImageFromAll(ctx, img.ID))
	assert.ErrorIs(t, repos.Album.RemoveImage(ctx, album.ID, img.ID), repository.ErrNotFound)

	_, err = repos.Album.Create(ctx, params)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

// racingExec 在第一次写入前让另一个连接抢先执行 race，模拟并发的创建请求
type racingExec struct {
	*sql.DB
	race func()
}

func (r *racingExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if r.race != nil {
		race := r.race
		r.race = nil
		race()
	}
	return r.DB.ExecContext(ctx, query, args...)
}

func TestAlbumRepo_GetOrCreateLosesRace(t *testing.T) {
	ctx := context.Background()
	db, repos := setupRepos(t)
	params := &repository.CreateAlbumParams{OwnerID: 3, Title: "夜景相册"}

	var winner *model.Album
	racer := &racingExec{DB: db, race: func() {
		var err error
		winner, err = repos.Album.Create(ctx, params)
		require.NoError(t, err)
	}}

	album, created, err := NewAlbumRepo(racer, dbtest.DBType).GetOrCreate(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, album.ID)

	_, total, err := repos.Album.ListByOwner(ctx, 3, false, repository.PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAlbumRepo_GetOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)
	params := &repository.CreateAlbumParams{OwnerID: 4, Title: "人物相册"}

	const n = 6
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		ids     = make([]uint, n)
		errs    = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			album, isNew, err := repos.Album.GetOrCreate(ctx, params)
			errs[i] = err
			if err == nil {
				ids[i] = album.ID
				if isNew {
					created.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, int32(1), created.Load())
}

func TestImageRepo_FindByIDForUpdate(t *testing.T) {
	ctx := context.Background()
	db, repos := setupRepos(t)
	img := createImage(t, repos, 1, true, 1, 2)

	err := NewTransactionManager(db, dbtest.DBType).Do(ctx, func(tx repository.Repositories) error {
		locked, err := tx.Image.FindByIDForUpdate(ctx, img.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, img.ID, locked.ID)
		assert.ElementsMatch(t, []uint{1, 2}, locked.AITagIDs)
		_, err = tx.Image.FindByIDForUpdate(ctx, 999)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestLikeAndFollowRepo(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)
	target := model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: 7}

	_, err := repos.Like.Create(ctx, 1, target)
	require.NoError(t, err)
	_, err = repos.Like.Create(ctx, 1, target)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := repos.Like.Count(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := repos.Like.Delete(ctx, 1, target)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repos.Like.Delete(ctx, 1, target)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repos.Follow.Create(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repos.Follow.Create(ctx, 3, 2)
	require.NoError(t, err)
	count, err := repos.Follow.CountFollowers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	followers, total, err := repos.Follow.ListFollowers(ctx, 2, repository.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, followers, 2)

	following, _, err := repos.Follow.ListFollowing(ctx, 1, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, uint(2), following[0].FolloweeID)
}

func TestCommentRepo(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)
	imageID := createImage(t, repos, 1, true, constant.Category(1)).ID

	root, err := repos.Comment.Create(ctx, &repository.CreateCommentParams{AuthorID: 1, ImageID: &imageID, Body: "好看"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := repos.Comment.Create(ctx, &repository.CreateCommentParams{AuthorID: 2, ImageID: &imageID, ParentID: &root.ID, Body: "同意"})
		require.NoError(t, err)
	}

	roots, total, err := repos.Comment.ListRoots(ctx, repository.CommentListParams{ImageID: &imageID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, roots, 1)
	assert.True(t, roots[0].IsRoot())

	replies, err := repos.Comment.ListReplies(ctx, root.ID, 3)
	require.NoError(t, err)
	assert.Len(t, replies, 3)

	counts, err := repos.Comment.CountReplies(ctx, []uint{root.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, counts[root.ID])

	require.NoError(t, repos.Comment.SoftDelete(ctx, replies[0].ID))
	counts, err = repos.Comment.CountReplies(ctx, []uint{root.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[root.ID])

	deletedComment, err := repos.Comment.FindByID(ctx, replies[0].ID)
	require.NoError(t, err)
	assert.True(t, deletedComment.IsDeleted)

	ids, err := repos.Comment.DeleteByImage(ctx, imageID)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func TestCommentRepo_ListRootsHidesPrivateTargets(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)
	private := createImage(t, repos, 1, false, constant.Category(1)).ID
	public := createImage(t, repos, 1, true, constant.Category(1)).ID

	for _, id := range []uint{private, public} {
		imageID := id
		_, err := repos.Comment.Create(ctx, &repository.CreateCommentParams{AuthorID: 1, ImageID: &imageID, Body: "自己看"})
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		viewer uint
		want   int64
	}{
		{"匿名只看到公开图片的评论", 0, 1},
		{"其他用户只看到公开图片的评论", 2, 1},
		{"所有者看到全部", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := repos.Comment.ListRoots(ctx, repository.CommentListParams{ViewerID: tt.viewer})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}

	_, total, err := repos.Comment.ListRoots(ctx, repository.CommentListParams{ImageID: &private, ViewerID: 2})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNotificationRepo(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)
	sender := uint(2)

	for i := 0; i < 3; i++ {
		_, err := repos.Notification.Create(ctx, &repository.CreateNotificationParams{
			RecipientID: 1, SenderID: &sender, Kind: constant.NotificationFollow, Content: "bob 关注了你",
		})
		require.NoError(t, err)
	}

	unread, err := repos.Notification.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	list, total, err := repos.Notification.ListByRecipient(ctx, 1, true, repository.PageQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.NoError(t, repos.Notification.MarkRead(ctx, list[0].ID))

	n, err := repos.Notification.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repos.Notification.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	found, err := repos.Notification.FindByID(ctx, list[0].ID)
	require.NoError(t, err)
	assert.True(t, found.IsRead)
	require.NotNil(t, found.SenderID)
	assert.Equal(t, sender, *found.SenderID)
}

func TestUserRepo_Ensure(t *testing.T) {
	ctx := context.Background()
	_, repos := setupRepos(t)

	require.NoError(t, repos.User.Ensure(ctx, 42, "alice"))
	require.NoError(t, repos.User.Ensure(ctx, 42, "alice"))
	require.NoError(t, repos.User.Ensure(ctx, 42, "alice2"))

	u, err := repos.User.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
}

func TestTransactionManager_Rollback(t *testing.T) {
	ctx := context.Background()
	db, repos := setupRepos(t)
	tm := NewTransactionManager(db, dbtest.DBType)

	err := tm.Do(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Follow.Create(ctx, 1, 2); err != nil {
			return err
		}
		return repository.ErrNotFound
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.Follow.Find(ctx, 1, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, tm.Do(ctx, func(tx repository.Repositories) error {
		_, err := tx.Follow.Create(ctx, 1, 2)
		return err
	}))
	_, err = repos.Follow.Find(ctx, 1, 2)
	assert.NoError(t, err)
}
