package feed

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

// 不打乱顺序，便于断言
func noShuffle(int, func(i, j int)) {}

func setup(t *testing.T) (repository.Repositories, FeedService) {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.SeedTags(t, db, map[uint]string{1: "风景", 2: "天空", 3: "夜景"})
	repos := ent.NewRepositories(db, dbtest.DBType)
	return repos, NewFeedService(repos, noShuffle)
}

type imageOpt struct {
	owner  uint
	public bool
	cat    constant.Category
	tags   []uint
	title  string
}

func newImage(t *testing.T, repos repository.Repositories, o imageOpt) *model.Image {
	t.Helper()
	img, err := repos.Image.Create(context.Background(), &repository.CreateImageParams{
		OwnerID:  o.owner,
		URL:      "https://cdn.example.com/images/" + o.title,
		Title:    o.title,
		Category: o.cat,
		AITagIDs: o.tags,
		IsPublic: o.public,
	})
	require.NoError(t, err)
	return img
}

func like(t *testing.T, repos repository.Repositories, user uint, img *model.Image) {
	t.Helper()
	_, err := repos.Like.Create(context.Background(), user, model.LikeTarget{Type: constant.LikeTypeImage, ObjectID: img.ID})
	require.NoError(t, err)
}

func ids(images []*model.Image) []uint {
	out := make([]uint, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestList_Visibility(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	alicePublic := newImage(t, repos, imageOpt{owner: 1, public: true, title: "a1"})
	alicePrivate := newImage(t, repos, imageOpt{owner: 1, public: false, title: "a2"})
	bobPublic := newImage(t, repos, imageOpt{owner: 2, public: true, title: "b1"})
	bobPrivate := newImage(t, repos, imageOpt{owner: 2, public: false, title: "b2"})

	tests := []struct {
		name   string
		viewer uint
		params ListParams
		want   []uint
	}{
		{"他人的图片只含公开", 1, ListParams{UserID: ptr(uint(2))}, []uint{bobPublic.ID}},
		{"他人的私有图片不可见", 1, ListParams{UserID: ptr(uint(2)), IsPublic: ptr(false)}, []uint{}},
		{"自己的全部图片", 2, ListParams{UserID: ptr(uint(2))}, []uint{bobPrivate.ID, bobPublic.ID}},
		{"自己的私有图片", 2, ListParams{UserID: ptr(uint(2)), IsPublic: ptr(false)}, []uint{bobPrivate.ID}},
		{"全站公开", 0, ListParams{IsPublic: ptr(true)}, []uint{bobPublic.ID, alicePublic.ID}},
		{"未指定时返回自己的图片", 1, ListParams{}, []uint{alicePrivate.ID, alicePublic.ID}},
		{"排除指定图片", 0, ListParams{IsPublic: ptr(true), ExcludeID: &bobPublic.ID}, []uint{alicePublic.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, tt.viewer, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
			assert.Equal(t, int64(len(tt.want)), page.Total)
		})
	}

	_, err := svc.List(ctx, 0, ListParams{})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	sky := newImage(t, repos, imageOpt{owner: 1, public: true, cat: constant.CategoryLandscape, tags: []uint{2}, title: "sky"})
	night := newImage(t, repos, imageOpt{owner: 1, public: true, cat: constant.CategoryBuilding, tags: []uint{3}, title: "night"})
	newImage(t, repos, imageOpt{owner: 1, public: true, cat: constant.CategoryFood, title: "food"})

	page, err := svc.List(ctx, 0, ListParams{IsPublic: ptr(true), CategoryID: ptr(constant.CategoryLandscape)})
	require.NoError(t, err)
	assert.Equal(t, []uint{sky.ID}, ids(page.Items))

	page, err = svc.List(ctx, 0, ListParams{IsPublic: ptr(true), Tags: []string{"夜景", "天空"}})
	require.NoError(t, err)
	assert.Equal(t, []uint{night.ID, sky.ID}, ids(page.Items))

	page, err = svc.List(ctx, 0, ListParams{IsPublic: ptr(true), Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)

	_, err = svc.List(ctx, 0, ListParams{IsPublic: ptr(true), CategoryID: ptr(constant.Category(15))})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.List(ctx, 0, ListParams{IsPublic: ptr(true), Limit: -1})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestList_OrderByLikes(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	x := newImage(t, repos, imageOpt{owner: 1, public: true, title: "x"})
	y := newImage(t, repos, imageOpt{owner: 1, public: true, title: "y"})
	z := newImage(t, repos, imageOpt{owner: 1, public: true, title: "z"})

	like(t, repos, 2, x)
	like(t, repos, 2, y)
	like(t, repos, 3, y)
	like(t, repos, 2, z)
	like(t, repos, 3, z)
	like(t, repos, 4, z)

	page, err := svc.List(ctx, 0, ListParams{IsPublic: ptr(true), OrderBy: repository.OrderByLikes})
	require.NoError(t, err)
	assert.Equal(t, []uint{z.ID, y.ID, x.ID}, ids(page.Items))
	assert.Equal(t, 3, page.Items[0].LikeCount)
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	mine := newImage(t, repos, imageOpt{owner: 1, public: false, title: "mine"})
	followedPublic := newImage(t, repos, imageOpt{owner: 2, public: true, title: "f1"})
	newImage(t, repos, imageOpt{owner: 2, public: false, title: "f2"})
	newImage(t, repos, imageOpt{owner: 3, public: true, title: "stranger"})

	_, err := repos.Follow.Create(ctx, 1, 2)
	require.NoError(t, err)

	page, err := svc.Feed(ctx, 1, repository.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint{followedPublic.ID, mine.ID}, ids(page.Items))
	assert.Equal(t, constant.FeedPageSize, page.PageSize)
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	// 用户 1 的偏好：点赞了风景，收藏了带"夜景"标签的图片
	likedLandscape := newImage(t, repos, imageOpt{owner: 2, public: true, cat: constant.CategoryLandscape, title: "l1"})
	likedOther := newImage(t, repos, imageOpt{owner: 2, public: true, cat: constant.CategoryOther, title: "o1"})
	favNight := newImage(t, repos, imageOpt{owner: 2, public: true, cat: constant.CategoryBuilding, tags: []uint{3, constant.SentinelTagID}, title: "n1"})
	like(t, repos, 1, likedLandscape)
	like(t, repos, 1, likedOther)
	_, err := repos.Favorite.Create(ctx, 1, favNight.ID)
	require.NoError(t, err)

	match := newImage(t, repos, imageOpt{owner: 3, public: true, cat: constant.CategoryLandscape, tags: []uint{3}, title: "match"})
	newImage(t, repos, imageOpt{owner: 3, public: false, cat: constant.CategoryLandscape, tags: []uint{3}, title: "private"})
	newImage(t, repos, imageOpt{owner: 1, public: true, cat: constant.CategoryLandscape, tags: []uint{3}, title: "own"})

	rec, err := svc.Recommend(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []constant.Category{constant.CategoryLandscape}, rec.BasedOn.Categories)
	assert.Equal(t, []string{"夜景"}, rec.BasedOn.Tags)
	assert.Equal(t, []uint{match.ID}, ids(rec.Images))
}

func TestRecommend_TagFallback(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	fav := newImage(t, repos, imageOpt{owner: 2, public: true, cat: constant.CategoryFood, tags: []uint{1}, title: "fav"})
	_, err := repos.Favorite.Create(ctx, 1, fav.ID)
	require.NoError(t, err)
	liked := newImage(t, repos, imageOpt{owner: 2, public: true, cat: constant.CategoryAnimal, title: "liked"})
	like(t, repos, 1, liked)

	// 动物分类下没有带"风景"标签的图片，退回到只按分类过滤
	rec, err := svc.Recommend(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{liked.ID}, ids(rec.Images))
	assert.Equal(t, []string{"风景"}, rec.BasedOn.Tags)
}

func TestRecommend_DrawsFromAllCandidates(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	// 候选数超过单页上限，最早和最新的图片都必须能被抽到
	var first, last *model.Image
	for i := 0; i < constant.MaxPageSize+10; i++ {
		last = newImage(t, repos, imageOpt{owner: 2, public: true, cat: constant.CategoryPlant, title: "p"})
		if first == nil {
			first = last
		}
	}

	rec, err := svc.Recommend(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rec.Images, constant.RecommendationSize)
	assert.Equal(t, first.ID, rec.Images[0].ID)

	reverse := func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	rec, err = NewFeedService(repos, reverse).Recommend(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rec.Images, constant.RecommendationSize)
	assert.Equal(t, last.ID, rec.Images[0].ID)
	assert.NotContains(t, ids(rec.Images), first.ID)
}

func TestRecommend_NoHistory(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)

	a := newImage(t, repos, imageOpt{owner: 2, public: true, title: "a"})
	b := newImage(t, repos, imageOpt{owner: 3, public: true, title: "b"})

	rec, err := svc.Recommend(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rec.BasedOn.Categories)
	assert.Empty(t, rec.BasedOn.Tags)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, ids(rec.Images))
}

func TestTopN(t *testing.T) {
	got := topN(map[uint]int{5: 2, 3: 2, 9: 4, 1: 1}, 3)
	assert.Equal(t, []uint{9, 3, 5}, got)
	assert.Empty(t, topN(map[uint]int{}, 3))
}
