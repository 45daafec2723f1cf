package tag

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/handler/handlertest"
	"github.com/photox-team/photox-app/pkg/service/tag"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	env := handlertest.NewEnv(t, map[uint]string{1: "风景"})
	h := NewHandler(tag.NewTagService(env.Repos.Tag, env.Repos.Image, env.Cache, env.TxManager))

	engine := handlertest.NewEngine()
	engine.GET("/api/tags", h.List)
	admin := engine.Group("/api/tags", handlertest.RequireUser())
	admin.POST("", h.Create)
	admin.POST("/import", h.Import)
	return engine
}

func listNames(t *testing.T, engine *gin.Engine) []string {
	t.Helper()
	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/tags"})
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	for _, tg := range handlertest.Decode[[]model.Tag](t, w).Data {
		names = append(names, tg.Name)
	}
	return names
}

func TestCreate(t *testing.T) {
	engine := setup(t)

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/tags", User: 1, Admin: true, Body: model.CreateTagRequest{Name: "夜景"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "夜景", handlertest.Decode[model.Tag](t, w).Data.Name)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/tags", User: 1, Admin: true, Body: model.CreateTagRequest{Name: "风景"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/tags", User: 1, Admin: true, Body: map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.ElementsMatch(t, []string{"未分类", "风景", "夜景"}, listNames(t, engine))
}

func TestImport(t *testing.T) {
	engine := setup(t)

	w := handlertest.Do(t, engine, handlertest.Request{
		Method:      http.MethodPost,
		Path:        "/api/tags/import",
		User:        1,
		Admin:       true,
		Body:        strings.NewReader("1:山川\n2:天空\nbroken\n\n3: 海洋 \n"),
		ContentType: "text/plain",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := handlertest.Decode[tag.ImportResult](t, w).Data
	assert.Equal(t, tag.ImportResult{TotalLines: 5, Created: 2, Updated: 1, Skipped: 1}, result)
	assert.ElementsMatch(t, []string{"未分类", "山川", "天空", "海洋"}, listNames(t, engine))

	body, ct := handlertest.Multipart(t, nil, handlertest.File{Field: "file", Name: "tags.txt", Content: []byte("4:花卉\n")})
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/tags/import", User: 1, Admin: true, Body: body, ContentType: ct})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, handlertest.Decode[tag.ImportResult](t, w).Data.Created)

	body, ct = handlertest.Multipart(t, map[string]string{"x": "y"})
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/tags/import", User: 1, Admin: true, Body: body, ContentType: ct})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
