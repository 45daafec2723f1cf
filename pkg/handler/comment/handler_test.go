package comment

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/handler/handlertest"
	"github.com/photox-team/photox-app/pkg/service/comment"
	"github.com/photox-team/photox-app/pkg/service/notification"
)

func setup(t *testing.T) (*gin.Engine, *model.Image) {
	t.Helper()
	env := handlertest.NewEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.Repos.User.Ensure(ctx, 1, "alice"))
	require.NoError(t, env.Repos.User.Ensure(ctx, 2, "bob"))
	img, err := env.Repos.Image.Create(ctx, &repository.CreateImageParams{
		OwnerID:  2,
		URL:      "https://cdn.example.com/images/a.jpg",
		Title:    "a",
		Category: constant.CategoryFood,
		IsPublic: true,
	})
	require.NoError(t, err)

	notifier := notification.NewNotificationService(env.Repos.Notification, env.Cache)
	h := NewHandler(comment.NewService(env.Repos, env.TxManager, notifier))

	engine := handlertest.NewEngine()
	engine.GET("/api/comments", h.List)
	engine.GET("/api/comments/:id/replies", h.Replies)
	private := engine.Group("/api/comments", handlertest.RequireUser())
	private.POST("", h.Create)
	private.DELETE("/:id", h.Delete)
	return engine, img
}

func post(t *testing.T, engine *gin.Engine, user uint, body map[string]any) model.CommentResponse {
	t.Helper()
	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/comments", User: user, Body: body})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return handlertest.Decode[model.CommentResponse](t, w).Data
}

func TestCreateAndList(t *testing.T) {
	engine, img := setup(t)

	root := post(t, engine, 1, map[string]any{"image_id": img.ID, "content": "<b>好看</b>"})
	assert.Equal(t, "好看", root.Content)
	require.NotNil(t, root.ImageID)
	assert.Equal(t, img.ID, *root.ImageID)
	assert.Nil(t, root.ParentID)

	reply := post(t, engine, 2, map[string]any{"parent_id": strconv.FormatUint(uint64(root.ID), 10), "content": "谢谢"})
	require.NotNil(t, reply.ImageID)
	assert.Equal(t, img.ID, *reply.ImageID)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/comments?image_id=" + strconv.FormatUint(uint64(img.ID), 10)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := handlertest.Decode[model.PageResponse[model.CommentResponse]](t, w).Data
	require.Len(t, page.List, 1)
	assert.Equal(t, 1, page.List[0].ReplyCount)
	require.Len(t, page.List[0].Replies, 1)
	assert.Equal(t, "谢谢", page.List[0].Replies[0].Content)
	assert.Equal(t, "bob", page.List[0].Replies[0].AuthorName)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/comments/" + strconv.FormatUint(uint64(root.ID), 10) + "/replies"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, handlertest.Decode[[]model.CommentResponse](t, w).Data, 1)

	// 不能回复一条回复
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/comments", User: 1, Body: map[string]any{"parent_id": reply.ID, "content": "嵌套"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate_Validation(t *testing.T) {
	engine, img := setup(t)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"empty content", map[string]any{"image_id": img.ID, "content": "  "}, http.StatusBadRequest},
		{"script only", map[string]any{"image_id": img.ID, "content": "<script>x</script>"}, http.StatusBadRequest},
		{"both targets", map[string]any{"image_id": img.ID, "album_id": 1, "content": "x"}, http.StatusBadRequest},
		{"bad id", map[string]any{"image_id": "!!", "content": "x"}, http.StatusBadRequest},
		{"missing image", map[string]any{"image_id": 999, "content": "x"}, http.StatusNotFound},
		{"missing parent", map[string]any{"parent_id": 999, "content": "x"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/comments", User: 1, Body: tc.body})
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestDelete(t *testing.T) {
	engine, img := setup(t)
	root := post(t, engine, 1, map[string]any{"image_id": img.ID, "content": "第一"})
	post(t, engine, 2, map[string]any{"parent_id": root.ID, "content": "回复"})
	path := "/api/comments/" + strconv.FormatUint(uint64(root.ID), 10)

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodDelete, Path: path, User: 2})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodDelete, Path: path, User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodDelete, Path: path, User: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 父评论删除后回复仍可查看
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: path + "/replies"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, handlertest.Decode[[]model.CommentResponse](t, w).Data, 1)
}
