package album_handler

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
	"github.com/photox-team/photox-app/pkg/service/album"
	"github.com/photox-team/photox-app/pkg/service/tag"
)

func setup(t *testing.T) (*gin.Engine, *handlertest.Env) {
	t.Helper()
	env := handlertest.NewEnv(t, map[uint]string{1: "风景"})
	h := NewAlbumHandler(
		album.NewAlbumService(env.Repos.Album, env.Repos.Image, env.TxManager),
		tag.NewTagService(env.Repos.Tag, env.Repos.Image, env.Cache, env.TxManager),
	)

	engine := handlertest.NewEngine()
	engine.GET("/api/albums", h.GetAlbums)
	engine.GET("/api/albums/:id", h.GetAlbum)
	private := engine.Group("/api/albums", handlertest.RequireUser())
	private.POST("", h.CreateAlbum)
	private.PUT("/:id", h.UpdateAlbum)
	private.DELETE("/:id", h.DeleteAlbum)
	private.POST("/:id/images/:imageId", h.AddImage)
	private.DELETE("/:id/images/:imageId", h.RemoveImage)
	return engine, env
}

func createAlbum(t *testing.T, engine *gin.Engine, user uint, title string, public bool) model.AlbumResponse {
	t.Helper()
	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/albums", User: user, Body: model.CreateAlbumRequest{Title: title, IsPublic: public}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return handlertest.Decode[model.AlbumResponse](t, w).Data
}

func createImage(t *testing.T, env *handlertest.Env, owner uint, public bool) *model.Image {
	t.Helper()
	img, err := env.Repos.Image.Create(context.Background(), &repository.CreateImageParams{
		OwnerID:  owner,
		URL:      "https://cdn.example.com/images/p.jpg",
		Title:    "p",
		Category: constant.CategoryLandscape,
		AITagIDs: []uint{1},
		IsPublic: public,
	})
	require.NoError(t, err)
	return img
}

func path(parts ...uint) string {
	p := "/api/albums/" + strconv.FormatUint(uint64(parts[0]), 10)
	if len(parts) > 1 {
		p += "/images/" + strconv.FormatUint(uint64(parts[1]), 10)
	}
	return p
}

func TestCreateAndList(t *testing.T) {
	engine, _ := setup(t)

	createAlbum(t, engine, 1, "旅行", true)
	createAlbum(t, engine, 1, "私藏", false)

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/albums", User: 1, Body: model.CreateAlbumRequest{Title: "旅行"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/albums", User: 1, Body: map[string]any{"description": "无标题"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/albums", User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, handlertest.Decode[model.PageResponse[model.AlbumResponse]](t, w).Data.List, 2)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/albums?user_id=1", User: 2})
	require.Equal(t, http.StatusOK, w.Code)
	list := handlertest.Decode[model.PageResponse[model.AlbumResponse]](t, w).Data.List
	require.Len(t, list, 1)
	assert.Equal(t, "旅行", list[0].Title)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/albums"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImages(t *testing.T) {
	engine, env := setup(t)
	a := createAlbum(t, engine, 1, "旅行", true)
	public := createImage(t, env, 1, true)
	private := createImage(t, env, 1, false)
	others := createImage(t, env, 2, true)

	for _, img := range []*model.Image{public, private} {
		w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: path(a.ID, img.ID), User: 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: path(a.ID, others.ID), User: 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: path(a.ID, public.ID), User: 2})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 他人只能看到公开的图片
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: path(a.ID), User: 2})
	require.Equal(t, http.StatusOK, w.Code)
	detail := handlertest.Decode[model.AlbumDetailResponse](t, w).Data
	assert.Equal(t, "旅行", detail.Title)
	require.Len(t, detail.Images, 1)
	assert.Equal(t, public.ID, detail.Images[0].ID)
	assert.Equal(t, []string{"风景"}, detail.Images[0].AITags)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: path(a.ID), User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, handlertest.Decode[model.AlbumDetailResponse](t, w).Data.Images, 2)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodDelete, Path: path(a.ID, private.ID), User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodDelete, Path: path(a.ID, private.ID), User: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	engine, env := setup(t)
	a := createAlbum(t, engine, 1, "旅行", false)
	img := createImage(t, env, 1, true)
	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: path(a.ID, img.ID), User: 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: path(a.ID), User: 2})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPut, Path: path(a.ID), User: 2, Body: map[string]any{"is_public": true}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPut, Path: path(a.ID), User: 1, Body: map[string]any{"title": "远方", "is_public": true}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := handlertest.Decode[model.AlbumResponse](t, w).Data
	assert.Equal(t, "远方", updated.Title)
	assert.True(t, updated.IsPublic)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodDelete, Path: path(a.ID), User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: path(a.ID), User: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 图片本身不受影响
	_, err := env.Repos.Image.FindByID(context.Background(), img.ID)
	assert.NoError(t, err)
}
