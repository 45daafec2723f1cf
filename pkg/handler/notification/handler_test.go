package notification

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
	"github.com/photox-team/photox-app/pkg/service/notification"
)

func setup(t *testing.T) (*gin.Engine, []*model.Notification) {
	t.Helper()
	env := handlertest.NewEnv(t, nil)
	ctx := context.Background()

	sender := uint(2)
	var created []*model.Notification
	for _, kind := range []constant.NotificationKind{constant.NotificationFollow, constant.NotificationLike} {
		n, err := env.Repos.Notification.Create(ctx, &repository.CreateNotificationParams{
			RecipientID: 1,
			SenderID:    &sender,
			Kind:        kind,
			Content:     "bob " + string(kind),
		})
		require.NoError(t, err)
		created = append(created, n)
	}

	h := NewHandler(notification.NewNotificationService(env.Repos.Notification, env.Cache))
	engine := handlertest.NewEngine()
	g := engine.Group("/api/notifications", handlertest.RequireUser())
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.POST("/:id/read", h.MarkRead)
	g.POST("/read-all", h.MarkAllRead)
	return engine, created
}

func unread(t *testing.T, engine *gin.Engine, user uint) int {
	t.Helper()
	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/notifications/unread-count", User: user})
	require.Equal(t, http.StatusOK, w.Code)
	return handlertest.Decode[model.UnreadCountResponse](t, w).Data.UnreadCount
}

func TestNotifications(t *testing.T) {
	engine, created := setup(t)
	assert.Equal(t, 2, unread(t, engine, 1))
	assert.Equal(t, 0, unread(t, engine, 2))

	w := handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/notifications", User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	page := handlertest.Decode[model.PageResponse[model.NotificationResponse]](t, w).Data
	require.Len(t, page.List, 2)
	assert.Equal(t, created[1].ID, page.List[0].ID)
	require.NotNil(t, page.List[0].SenderID)
	assert.Equal(t, uint(2), *page.List[0].SenderID)

	readPath := "/api/notifications/" + strconv.FormatUint(uint64(created[0].ID), 10) + "/read"
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: readPath, User: 2})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/notifications/999/read", User: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: readPath, User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, unread(t, engine, 1))

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodGet, Path: "/api/notifications?unread_only=true", User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	page = handlertest.Decode[model.PageResponse[model.NotificationResponse]](t, w).Data
	require.Len(t, page.List, 1)
	assert.Equal(t, created[1].ID, page.List[0].ID)

	w = handlertest.Do(t, engine, handlertest.Request{Method: http.MethodPost, Path: "/api/notifications/read-all", User: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, handlertest.Decode[model.MarkAllReadResponse](t, w).Data.Updated)
	assert.Equal(t, 0, unread(t, engine, 1))
}
