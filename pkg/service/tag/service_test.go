package tag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/photox-team/photox-app/internal/infra/persistence/dbtest"
	"github.com/photox-team/photox-app/internal/infra/persistence/ent"
	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/service/utility"
)

func setup(t *testing.T) (repository.Repositories, TagService) {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.SeedTags(t, db, map[uint]string{1: "风景", 2: "天空", 3: "夜景"})
	repos := ent.NewRepositories(db, dbtest.DBType)
	return repos, NewTagService(repos.Tag, repos.Image, utility.NewCacheService(nil), ent.NewTransactionManager(db, dbtest.DBType))
}

func newImage(t *testing.T, repos repository.Repositories, owner uint, public bool, tagIDs ...uint) *model.Image {
	t.Helper()
	img, err := repos.Image.Create(context.Background(), &repository.CreateImageParams{
		OwnerID:   owner,
		URL:       "https://cdn.example.com/images/1_a.jpg",
		ObjectKey: "images/1_a.jpg",
		Title:     "a.jpg",
		Category:  constant.CategoryLandscape,
		AITagIDs:  tagIDs,
		IsPublic:  public,
	})
	require.NoError(t, err)
	return img
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"空输入", nil, []string{}},
		{"去空白", []string{" a ", "", "  "}, []string{"a"}},
		{"保持首次出现顺序", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestMerge(t *testing.T) {
	view := Merge([]string{"风景", "天空"}, []string{"天空", "旅行"})
	assert.Equal(t, []string{"风景", "天空"}, view.AITags)
	assert.Equal(t, []string{"天空", "旅行"}, view.UserTags)
	assert.Equal(t, []string{"风景", "天空", "旅行"}, view.AllTags)

	empty := Merge(nil, nil)
	assert.Equal(t, []string{}, empty.AllTags)
}

func TestAddUserTags_IsSetUnion(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)
	img := newImage(t, repos, 1, true, 1)

	tags, err := svc.AddUserTags(ctx, 1, img.ID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	tags, err = svc.AddUserTags(ctx, 1, img.ID, []string{"b", " c ", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tags)

	view, err := svc.GetImageTags(ctx, 2, img.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"风景"}, view.AITags)
	assert.Equal(t, []string{"a", "b", "c"}, view.UserTags)
	assert.Equal(t, []string{"风景", "a", "b", "c"}, view.AllTags)

	tags, err = svc.RemoveUserTags(ctx, 1, img.ID, []string{"b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, tags)
}

func TestAddUserTags_Concurrent(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)
	img := newImage(t, repos, 1, true)

	const n = 8
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := svc.AddUserTags(ctx, 1, img.ID, []string{fmt.Sprintf("t%d", i)})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// 每次编辑都基于上一次提交的结果，没有标签丢失
	saved, err := repos.Image.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Len(t, saved.UserTags, n)
	for i := 0; i < n; i++ {
		assert.Contains(t, saved.UserTags, fmt.Sprintf("t%d", i))
	}

	var rm errgroup.Group
	for i := 0; i < n; i += 2 {
		rm.Go(func() error {
			_, err := svc.RemoveUserTags(ctx, 1, img.ID, []string{fmt.Sprintf("t%d", i)})
			return err
		})
	}
	require.NoError(t, rm.Wait())
	saved, err = repos.Image.FindByID(ctx, img.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t3", "t5", "t7"}, saved.UserTags)
}

func TestUserTags_Permissions(t *testing.T) {
	ctx := context.Background()
	repos, svc := setup(t)
	img := newImage(t, repos, 1, false, 2)

	_, err := svc.AddUserTags(ctx, 2, 999, []string{"x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.AddUserTags(ctx, 2, img.ID, []string{"x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.RemoveUserTags(ctx, 2, img.ID, []string{"x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	public := newImage(t, repos, 1, true)
	_, err = svc.AddUserTags(ctx, 2, public.ID, []string{"x"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = svc.RemoveUserTags(ctx, 2, public.ID, []string{"x"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// 私有图片对其他人不可见
	_, err = svc.GetImageTags(ctx, 2, img.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	view, err := svc.GetImageTags(ctx, 1, img.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"天空"}, view.AITags)
}

func TestCreateTag(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	tag, err := svc.CreateTag(ctx, "  街拍 ")
	require.NoError(t, err)
	assert.Equal(t, uint(4), tag.ID)
	assert.Equal(t, "街拍", tag.Name)

	_, err = svc.CreateTag(ctx, "街拍")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.CreateTag(ctx, " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 5)
	assert.Equal(t, constant.SentinelTagName, tags[0].Name)
}

func TestImportTags(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	input := strings.Join([]string{
		"1:山川",
		"10: 城市 ",
		"",
		"bad line",
		"x:名字",
		"11:",
		"12:夜景",
	}, "\n")
	result, err := svc.ImportTags(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 7, result.TotalLines)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	// 三行无法解析，"夜景" 与 id 3 重名
	assert.Equal(t, 4, result.Skipped)

	names, err := svc.Names(ctx, []uint{10, 1, 99, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"山川", "城市"}, names)
}
