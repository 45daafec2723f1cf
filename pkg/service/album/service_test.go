package album

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/internal/infra/persistence/dbtest"
	"github.com/photox-team/photox-app/internal/infra/persistence/ent"
	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

func setup(t *testing.T) (repository.Repositories, AlbumService) {
	t.Helper()
	db := dbtest.Open(t)
	repos := ent.NewRepositories(db, dbtest.DBType)
	return repos, NewAlbumService(repos.Album, repos.Image, ent.NewTransactionManager(db, dbtest.DBType))
}

func newImage(t *testing.T, repos repository.Repositories, owner uint, cat constant.Category, public bool) *model.Image {
	t.Helper()
	img, err := repos.Image.Create(context.Background(), &repository.CreateImageParams{
		OwnerID:  owner,
		URL:      "https://cdn.example.com/images/1_b.jpg",
		Category: cat,
		IsPublic: public,
	})
	require.NoError(t, err)
	return img
}

func TestPlaceInCategoryAlbum_CreatedOnce(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	first := newImage(t, repos, 1, constant.CategoryBuilding, true)
	second := newImage(t, repos, 1, constant.CategoryBuilding, true)

	a1, err := svc.PlaceInCategoryAlbum(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "建筑相册", a1.Title)
	assert.Equal(t, "自动创建的建筑分类相册", a1.Description)
	assert.False(t, a1.IsPublic)

	a2, err := svc.PlaceInCategoryAlbum(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)

	// 重复放入同一张图片不报错
	_, err = svc.PlaceInCategoryAlbum(ctx, second)
	require.NoError(t, err)

	detail, err := svc.GetAlbum(ctx, 1, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Album.ImageCount)
	assert.Len(t, detail.Images, 2)

	list, err := svc.ListAlbums(ctx, 1, 0, repository.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	// 其他用户有自己的分类相册
	other := newImage(t, repos, 2, constant.CategoryBuilding, true)
	a3, err := svc.PlaceInCategoryAlbum(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, a1.ID, a3.ID)
}

func TestAlbumCRUD(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	album, err := svc.CreateAlbum(ctx, 1, CreateAlbumParams{Title: "  旅行 ", Description: "2025", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, "旅行", album.Title)

	_, err = svc.CreateAlbum(ctx, 1, CreateAlbumParams{Title: "旅行"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.CreateAlbum(ctx, 1, CreateAlbumParams{Title: ""})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	private, err := svc.CreateAlbum(ctx, 1, CreateAlbumParams{Title: "私密"})
	require.NoError(t, err)

	// 他人只能看到公开相册
	list, err := svc.ListAlbums(ctx, 2, 1, repository.PageQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, album.ID, list.Items[0].ID)

	_, err = svc.GetAlbum(ctx, 2, private.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	title := "远方"
	_, err = svc.UpdateAlbum(ctx, 2, album.ID, UpdateAlbumParams{Title: &title})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.UpdateAlbum(ctx, 2, 999, UpdateAlbumParams{Title: &title})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	updated, err := svc.UpdateAlbum(ctx, 1, album.ID, UpdateAlbumParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "远方", updated.Title)
	assert.True(t, updated.IsPublic)

	dup := "私密"
	_, err = svc.UpdateAlbum(ctx, 1, album.ID, UpdateAlbumParams{Title: &dup})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	assert.ErrorIs(t, svc.DeleteAlbum(ctx, 2, album.ID), apperror.ErrForbidden)
	require.NoError(t, svc.DeleteAlbum(ctx, 1, album.ID))
	_, err = svc.GetAlbum(ctx, 1, album.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAlbumMembership(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	album, err := svc.CreateAlbum(ctx, 1, CreateAlbumParams{Title: "精选", IsPublic: true})
	require.NoError(t, err)
	mine := newImage(t, repos, 1, constant.CategoryFood, true)
	hidden := newImage(t, repos, 1, constant.CategoryFood, false)
	theirs := newImage(t, repos, 2, constant.CategoryFood, true)

	require.NoError(t, svc.AddImage(ctx, 1, album.ID, mine.ID))
	require.NoError(t, svc.AddImage(ctx, 1, album.ID, mine.ID))
	require.NoError(t, svc.AddImage(ctx, 1, album.ID, hidden.ID))

	assert.ErrorIs(t, svc.AddImage(ctx, 1, album.ID, theirs.ID), apperror.ErrForbidden)
	assert.ErrorIs(t, svc.AddImage(ctx, 1, album.ID, 999), apperror.ErrNotFound)
	assert.ErrorIs(t, svc.AddImage(ctx, 2, album.ID, theirs.ID), apperror.ErrForbidden)

	// 私有图片对他人隐藏
	detail, err := svc.GetAlbum(ctx, 2, album.ID)
	require.NoError(t, err)
	require.Len(t, detail.Images, 1)
	assert.Equal(t, mine.ID, detail.Images[0].ID)

	require.NoError(t, svc.RemoveImage(ctx, 1, album.ID, mine.ID))
	assert.ErrorIs(t, svc.RemoveImage(ctx, 1, album.ID, mine.ID), apperror.ErrNotFound)
}

func TestDeleteAlbum_RemovesComments(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	album, err := svc.CreateAlbum(ctx, 1, CreateAlbumParams{Title: "街拍", IsPublic: true})
	require.NoError(t, err)
	c, err := repos.Comment.Create(ctx, &repository.CreateCommentParams{AuthorID: 2, AlbumID: &album.ID, Body: "好看"})
	require.NoError(t, err)
	_, err = repos.Like.Create(ctx, 1, model.LikeTarget{Type: constant.LikeTypeComment, ObjectID: c.ID})
	require.NoError(t, err)
	_, err = repos.Like.Create(ctx, 2, model.LikeTarget{Type: constant.LikeTypeAlbum, ObjectID: album.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAlbum(ctx, 1, album.ID))

	_, err = repos.Comment.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	n, err := repos.Like.Count(ctx, model.LikeTarget{Type: constant.LikeTypeComment, ObjectID: c.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repos.Like.Count(ctx, model.LikeTarget{Type: constant.LikeTypeAlbum, ObjectID: album.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}
