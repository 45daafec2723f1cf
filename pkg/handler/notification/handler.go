package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/handler/common"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/notification"
)

// Handler 站内通知处理器，所有接口只操作当前用户自己的通知
type Handler struct {
	svc notification.NotificationService
}

func NewHandler(svc notification.NotificationService) *Handler {
	return &Handler{svc: svc}
}

// List
// @Summary      通知列表
// @Description  按时间倒序返回当前用户收到的通知
// @Tags         Notification
// @Security     BearerAuth
// @Produce      json
// @Param        unread_only query bool false "只看未读"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=model.PageResponse[model.NotificationResponse]} "成功响应"
// @Router       /notifications [get]
func (h *Handler) List(c *gin.Context) {
	unreadOnly := c.Query("unread_only") == "true" || c.Query("unread_only") == "1"
	page, err := h.svc.List(c.Request.Context(), common.CurrentUserID(c), unreadOnly, common.ParsePage(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToPage(page, common.ToNotificationResponse), "获取成功")
}

// UnreadCount
// @Summary      未读通知数
// @Tags         Notification
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} response.Response{data=model.UnreadCountResponse} "成功响应"
// @Router       /notifications/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), common.CurrentUserID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, &model.UnreadCountResponse{UnreadCount: n}, "获取成功")
}

// MarkRead
// @Summary      标记已读
// @Tags         Notification
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "通知ID"
// @Success      200 {object} response.Response "操作成功"
// @Failure      403 {object} response.Response "不是自己的通知"
// @Failure      404 {object} response.Response "通知不存在"
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeNotification)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), common.CurrentUserID(c), id); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "操作成功")
}

// MarkAllRead
// @Summary      全部标记已读
// @Tags         Notification
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} response.Response{data=model.MarkAllReadResponse} "操作成功"
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), common.CurrentUserID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, &model.MarkAllReadResponse{Updated: n}, "操作成功")
}
