/*
 * @Description: 点赞、关注、收藏接口
 * @Author: photox
 * @Date: 2025-10-12 15:20:11
 * @LastEditTime: 2025-10-21 16:02:47
 * @LastEditors: photox
 */
package social

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/handler/common"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/social"
	"github.com/photox-team/photox-app/pkg/service/tag"
)

// Handler 社交关系的 HTTP 处理器
type Handler struct {
	socialSvc social.SocialService
	tagSvc    tag.TagService
}

func NewHandler(socialSvc social.SocialService, tagSvc tag.TagService) *Handler {
	return &Handler{
		socialSvc: socialSvc,
		tagSvc:    tagSvc,
	}
}

var likeEntityTypes = map[constant.LikeType]uint64{
	constant.LikeTypeImage:   idgen.EntityTypeImage,
	constant.LikeTypeAlbum:   idgen.EntityTypeAlbum,
	constant.LikeTypeComment: idgen.EntityTypeComment,
}

// parseTarget 按点赞类型解析对象 ID，对象 ID 可以是数字或对应类型的公共 ID
func parseTarget(likeType, objectID string) (model.LikeTarget, error) {
	lt := constant.LikeType(likeType)
	entityType, ok := likeEntityTypes[lt]
	if !ok {
		return model.LikeTarget{}, apperror.Validation("无效的点赞类型").
			WithDetails(map[string]string{"like_type": "必须是 image、album 或 comment"})
	}
	if objectID == "" {
		return model.LikeTarget{}, apperror.Validation("缺少点赞对象").
			WithDetails(map[string]string{"object_id": "不能为空"})
	}
	id, err := idgen.ParseID(objectID, entityType)
	if err != nil {
		return model.LikeTarget{}, apperror.Validation("无效的点赞对象").
			WithDetails(map[string]string{"object_id": objectID})
	}
	return model.LikeTarget{Type: lt, ObjectID: id}, nil
}

func toLikeResponse(r *model.ToggleResult) *model.LikeResponse {
	return &model.LikeResponse{
		State:     string(r.State),
		Liked:     r.Active(),
		LikeCount: r.Count,
	}
}

// ToggleLike
// @Summary      点赞/取消点赞
// @Description  对图片、相册或评论切换点赞状态，返回切换后的状态和点赞数
// @Tags         Social
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body model.ToggleLikeRequest true "点赞对象"
// @Success      200 {object} response.Response{data=model.LikeResponse} "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      404 {object} response.Response "对象不存在"
// @Router       /likes/toggle [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	var req model.ToggleLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}
	target, err := parseTarget(req.LikeType, string(req.ObjectID))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	result, err := h.socialSvc.ToggleLike(c.Request.Context(), common.CurrentUserID(c), target)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, toLikeResponse(result), "操作成功")
}

// CheckLike
// @Summary      查询点赞状态
// @Description  未登录时 liked 始终为 false
// @Tags         Social
// @Produce      json
// @Param        like_type query string true "image、album 或 comment"
// @Param        object_id query string true "对象ID"
// @Success      200 {object} response.Response{data=model.LikeResponse} "成功响应"
// @Router       /likes/check [get]
func (h *Handler) CheckLike(c *gin.Context) {
	target, err := parseTarget(c.Query("like_type"), c.Query("object_id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	result, err := h.socialSvc.CheckLike(c.Request.Context(), common.CurrentUserID(c), target)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, toLikeResponse(result), "获取成功")
}

// ToggleFollow
// @Summary      关注/取消关注
// @Tags         Social
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "被关注的用户ID"
// @Success      200 {object} response.Response{data=model.FollowResponse} "成功响应"
// @Failure      400 {object} response.Response "不能关注自己"
// @Failure      404 {object} response.Response "用户不存在"
// @Router       /follows/{id}/toggle [post]
func (h *Handler) ToggleFollow(c *gin.Context) {
	followeeID, ok := common.PathID(c, "id", idgen.EntityTypeUser)
	if !ok {
		return
	}

	result, err := h.socialSvc.ToggleFollow(c.Request.Context(), common.CurrentUserID(c), followeeID)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, &model.FollowResponse{
		State:         string(result.State),
		Following:     result.Active(),
		FollowerCount: result.Count,
	}, "操作成功")
}

// Followers
// @Summary      粉丝列表
// @Tags         Social
// @Produce      json
// @Param        id path string true "用户ID"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=model.PageResponse[model.UserSummary]} "成功响应"
// @Router       /follows/{id}/followers [get]
func (h *Handler) Followers(c *gin.Context) {
	userID, ok := common.PathID(c, "id", idgen.EntityTypeUser)
	if !ok {
		return
	}
	page, err := h.socialSvc.ListFollowers(c.Request.Context(), userID, common.ParsePage(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToPage(page, identity[*model.UserSummary]), "获取成功")
}

// Following
// @Summary      关注列表
// @Tags         Social
// @Produce      json
// @Param        id path string true "用户ID"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=model.PageResponse[model.UserSummary]} "成功响应"
// @Router       /follows/{id}/following [get]
func (h *Handler) Following(c *gin.Context) {
	userID, ok := common.PathID(c, "id", idgen.EntityTypeUser)
	if !ok {
		return
	}
	page, err := h.socialSvc.ListFollowing(c.Request.Context(), userID, common.ParsePage(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToPage(page, identity[*model.UserSummary]), "获取成功")
}

func identity[T any](v T) T { return v }

// CheckFavorite
// @Summary      查询收藏状态
// @Tags         Favorite
// @Security     BearerAuth
// @Produce      json
// @Param        imageId path string true "图片ID"
// @Success      200 {object} response.Response{data=model.FavoriteResponse} "成功响应"
// @Router       /favorites/{imageId} [get]
func (h *Handler) CheckFavorite(c *gin.Context) {
	imageID, ok := common.PathID(c, "imageId", idgen.EntityTypeImage)
	if !ok {
		return
	}
	favorited, err := h.socialSvc.IsFavorited(c.Request.Context(), common.CurrentUserID(c), imageID)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, &model.FavoriteResponse{Favorited: favorited}, "获取成功")
}

// AddFavorite
// @Summary      收藏图片
// @Description  重复收藏返回 200，首次收藏返回 201
// @Tags         Favorite
// @Security     BearerAuth
// @Produce      json
// @Param        imageId path string true "图片ID"
// @Success      201 {object} response.Response{data=model.FavoriteResponse} "收藏成功"
// @Success      200 {object} response.Response{data=model.FavoriteResponse} "已收藏"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /favorites/{imageId} [post]
func (h *Handler) AddFavorite(c *gin.Context) {
	imageID, ok := common.PathID(c, "imageId", idgen.EntityTypeImage)
	if !ok {
		return
	}
	created, err := h.socialSvc.AddFavorite(c.Request.Context(), common.CurrentUserID(c), imageID)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	if created {
		response.SuccessWithStatus(c, http.StatusCreated, &model.FavoriteResponse{Favorited: true}, "收藏成功")
		return
	}
	response.Success(c, &model.FavoriteResponse{Favorited: true}, "已收藏")
}

// RemoveFavorite
// @Summary      取消收藏
// @Tags         Favorite
// @Security     BearerAuth
// @Produce      json
// @Param        imageId path string true "图片ID"
// @Success      200 {object} response.Response{data=model.FavoriteResponse} "已取消收藏"
// @Failure      404 {object} response.Response "未收藏此图片"
// @Router       /favorites/{imageId} [delete]
func (h *Handler) RemoveFavorite(c *gin.Context) {
	imageID, ok := common.PathID(c, "imageId", idgen.EntityTypeImage)
	if !ok {
		return
	}
	if err := h.socialSvc.RemoveFavorite(c.Request.Context(), common.CurrentUserID(c), imageID); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, &model.FavoriteResponse{Favorited: false}, "已取消收藏")
}

// ListFavorites
// @Summary      我的收藏
// @Description  按收藏时间倒序
// @Tags         Favorite
// @Security     BearerAuth
// @Produce      json
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=model.PageResponse[model.ImageResponse]} "成功响应"
// @Router       /favorites [get]
func (h *Handler) ListFavorites(c *gin.Context) {
	page, err := h.socialSvc.ListFavorites(c.Request.Context(), common.CurrentUserID(c), common.ParsePage(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	names := common.TagNames(c.Request.Context(), h.tagSvc)
	response.Success(c, common.ToPage(page, func(img *model.Image) *model.ImageResponse {
		return common.ToImageResponse(img, names)
	}), "获取成功")
}
