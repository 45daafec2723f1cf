package album_handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/handler/common"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/album"
)

// AlbumHandler 封装了相册相关的控制器方法
type AlbumHandler struct {
	albumSvc album.AlbumService
	tagSvc   common.TagLister
}

// NewAlbumHandler 是 AlbumHandler 的构造函数
func NewAlbumHandler(albumSvc album.AlbumService, tagSvc common.TagLister) *AlbumHandler {
	return &AlbumHandler{
		albumSvc: albumSvc,
		tagSvc:   tagSvc,
	}
}

// GetAlbums 处理获取相册列表的请求
// @Summary      相册列表
// @Description  未指定 user_id 时返回自己的相册，查看他人只返回公开相册
// @Tags         Album
// @Produce      json
// @Param        user_id query string false "用户ID"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=model.PageResponse[model.AlbumResponse]} "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Router       /albums [get]
func (h *AlbumHandler) GetAlbums(c *gin.Context) {
	// 1. 解析参数，兼容 owner 参数名
	raw := c.Query("user_id")
	if raw == "" {
		raw = c.Query("owner")
	}
	ownerID, err := common.OptionalID(raw, idgen.EntityTypeUser)
	if err != nil {
		response.FailWithError(c, apperror.Validation("无效的用户ID").WithDetails(map[string]string{"user_id": raw}))
		return
	}
	var owner uint
	if ownerID != nil {
		owner = *ownerID
	}

	// 2. 调用 Service
	page, err := h.albumSvc.ListAlbums(c.Request.Context(), common.CurrentUserID(c), owner, common.ParsePage(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	// 3. 返回响应
	response.Success(c, common.ToPage(page, common.ToAlbumResponse), "获取相册列表成功")
}

// CreateAlbum 处理创建相册的请求
// @Summary      新建相册
// @Tags         Album
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body model.CreateAlbumRequest true "相册信息"
// @Success      201 {object} response.Response{data=model.AlbumResponse} "创建成功"
// @Failure      409 {object} response.Response "已存在同名相册"
// @Router       /albums [post]
func (h *AlbumHandler) CreateAlbum(c *gin.Context) {
	var req model.CreateAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	created, err := h.albumSvc.CreateAlbum(c.Request.Context(), common.CurrentUserID(c), album.CreateAlbumParams{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, common.ToAlbumResponse(created), "创建成功")
}

// GetAlbum 相册详情
// @Summary      相册详情
// @Description  返回相册信息和对当前用户可见的图片
// @Tags         Album
// @Produce      json
// @Param        id path string true "相册ID"
// @Success      200 {object} response.Response{data=model.AlbumDetailResponse} "成功响应"
// @Failure      404 {object} response.Response "相册不存在"
// @Router       /albums/{id} [get]
func (h *AlbumHandler) GetAlbum(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeAlbum)
	if !ok {
		return
	}
	detail, err := h.albumSvc.GetAlbum(c.Request.Context(), common.CurrentUserID(c), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	names := common.TagNames(c.Request.Context(), h.tagSvc)
	response.Success(c, &model.AlbumDetailResponse{
		AlbumResponse: *common.ToAlbumResponse(detail.Album),
		Images:        common.ToImageList(detail.Images, names),
	}, "获取成功")
}

// UpdateAlbum 处理更新相册的请求
// @Summary      编辑相册
// @Tags         Album
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "相册ID"
// @Param        body body model.UpdateAlbumRequest true "要修改的字段"
// @Success      200 {object} response.Response{data=model.AlbumResponse} "更新成功"
// @Failure      403 {object} response.Response "无权限"
// @Router       /albums/{id} [put]
func (h *AlbumHandler) UpdateAlbum(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeAlbum)
	if !ok {
		return
	}
	var req model.UpdateAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	updated, err := h.albumSvc.UpdateAlbum(c.Request.Context(), common.CurrentUserID(c), id, album.UpdateAlbumParams{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToAlbumResponse(updated), "更新成功")
}

// DeleteAlbum 处理删除相册的请求
// @Summary      删除相册
// @Description  相册中的图片不会被删除
// @Tags         Album
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "相册ID"
// @Success      200 {object} response.Response "删除成功"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "相册不存在"
// @Router       /albums/{id} [delete]
func (h *AlbumHandler) DeleteAlbum(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeAlbum)
	if !ok {
		return
	}
	if err := h.albumSvc.DeleteAlbum(c.Request.Context(), common.CurrentUserID(c), id); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "删除成功")
}

// AddImage 把自己的图片加入相册
// @Summary      添加图片到相册
// @Tags         Album
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "相册ID"
// @Param        imageId path string true "图片ID"
// @Success      200 {object} response.Response "添加成功"
// @Failure      403 {object} response.Response "无权限"
// @Router       /albums/{id}/images/{imageId} [post]
func (h *AlbumHandler) AddImage(c *gin.Context) {
	albumID, ok := common.PathID(c, "id", idgen.EntityTypeAlbum)
	if !ok {
		return
	}
	imageID, ok := common.PathID(c, "imageId", idgen.EntityTypeImage)
	if !ok {
		return
	}
	if err := h.albumSvc.AddImage(c.Request.Context(), common.CurrentUserID(c), albumID, imageID); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "添加成功")
}

// RemoveImage 把图片移出相册
// @Summary      从相册移除图片
// @Tags         Album
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "相册ID"
// @Param        imageId path string true "图片ID"
// @Success      200 {object} response.Response "移除成功"
// @Failure      404 {object} response.Response "图片不在此相册中"
// @Router       /albums/{id}/images/{imageId} [delete]
func (h *AlbumHandler) RemoveImage(c *gin.Context) {
	albumID, ok := common.PathID(c, "id", idgen.EntityTypeAlbum)
	if !ok {
		return
	}
	imageID, ok := common.PathID(c, "imageId", idgen.EntityTypeImage)
	if !ok {
		return
	}
	if err := h.albumSvc.RemoveImage(c.Request.Context(), common.CurrentUserID(c), albumID, imageID); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "移除成功")
}
