/*
 * @Description: 图片上传、列表、推荐、详情与标签接口
 * @Author: photox
 * @Date: 2025-10-11 09:47:05
 * @LastEditTime: 2025-10-21 19:12:40
 * @LastEditors: photox
 */
package image

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/handler/common"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/feed"
	image_service "github.com/photox-team/photox-app/pkg/service/image"
	"github.com/photox-team/photox-app/pkg/service/ingest"
	"github.com/photox-team/photox-app/pkg/service/tag"
)

type Handler struct {
	ingestSvc ingest.IngestService
	imageSvc  image_service.ImageService
	feedSvc   feed.FeedService
	tagSvc    tag.TagService
}

func NewHandler(ingestSvc ingest.IngestService, imageSvc image_service.ImageService, feedSvc feed.FeedService, tagSvc tag.TagService) *Handler {
	return &Handler{
		ingestSvc: ingestSvc,
		imageSvc:  imageSvc,
		feedSvc:   feedSvc,
		tagSvc:    tagSvc,
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, apperror.Validationf("无效的布尔值: %s", raw)
}

// Upload
// @Summary      上传图片
// @Description  上传单张图片，自动完成主色提取、AI 分类、上传存储和分类相册归档
// @Tags         Image
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "图片文件"
// @Param        title formData string false "标题，默认使用文件名"
// @Param        is_public formData bool false "是否公开" default(false)
// @Success      201 {object} response.Response{data=model.ImageResponse} "上传成功"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      502 {object} response.Response "对象存储不可用"
// @Router       /images/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	isPublic := false
	if raw := c.PostForm("is_public"); raw != "" {
		if isPublic, err = parseBool(raw); err != nil {
			response.FailWithError(c, err)
			return
		}
	}

	fileContent, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "无法读取上传的文件")
		return
	}
	defer fileContent.Close()

	img, err := h.ingestSvc.Ingest(c.Request.Context(), ingest.Params{
		OwnerID:  common.CurrentUserID(c),
		Filename: fileHeader.Filename,
		Title:    c.PostForm("title"),
		IsPublic: isPublic,
	}, fileContent)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	names := common.TagNames(c.Request.Context(), h.tagSvc)
	response.SuccessWithStatus(c, http.StatusCreated, common.ToImageResponse(img, names), "上传成功")
}

// BatchUpload
// @Summary      批量上传图片
// @Description  逐个处理上传的图片，单个文件失败不影响其余文件。全部成功返回 201，部分失败返回 207
// @Tags         Image
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        images formData file true "图片文件，可多个"
// @Param        is_public formData bool false "是否公开" default(false)
// @Success      201 {object} response.Response{data=model.BatchUploadResponse} "全部成功"
// @Success      207 {object} response.Response{data=model.BatchUploadResponse} "部分失败"
// @Failure      400 {object} response.Response "请求参数错误"
// @Router       /images/batch-upload [post]
func (h *Handler) BatchUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "无效的表单数据")
		return
	}
	headers := slices.Concat(form.File["images"], form.File["images[]"])

	isPublic := false
	if raw := c.PostForm("is_public"); raw != "" {
		if isPublic, err = parseBool(raw); err != nil {
			response.FailWithError(c, err)
			return
		}
	}

	files := make([]ingest.BatchFile, len(headers))
	for i, fh := range headers {
		files[i] = ingest.BatchFile{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		}
	}

	report, err := h.ingestSvc.IngestBatch(c.Request.Context(), common.CurrentUserID(c), isPublic, files)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	names := common.TagNames(c.Request.Context(), h.tagSvc)
	resp := &model.BatchUploadResponse{
		SuccessCount: report.SuccessCount,
		ErrorCount:   report.ErrorCount,
		Results:      common.ToImageList(report.Images, names),
		Errors:       make([]model.BatchUploadError, len(report.Errors)),
	}
	for i, e := range report.Errors {
		resp.Errors[i] = model.BatchUploadError{File: e.File, Error: e.Error}
	}

	if report.ErrorCount > 0 {
		response.SuccessWithStatus(c, http.StatusMultiStatus, resp, "部分图片上传失败")
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, resp, "上传成功")
}

// parseListParams 解析 GET /images 的查询参数
func parseListParams(c *gin.Context) (feed.ListParams, error) {
	params := feed.ListParams{PageQuery: common.ParsePage(c)}

	if raw := c.Query("user_id"); raw != "" {
		id, err := idgen.ParseID(raw, idgen.EntityTypeUser)
		if err != nil {
			return params, apperror.Validation("无效的用户ID").WithDetails(map[string]string{"user_id": raw})
		}
		params.UserID = &id
	}
	if raw := c.Query("is_public"); raw != "" {
		v, err := parseBool(raw)
		if err != nil {
			return params, err
		}
		params.IsPublic = &v
	}
	if raw := c.Query("category_id"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperror.Validation("无效的分类").WithDetails(map[string]string{"category_id": raw})
		}
		cat := constant.Category(n)
		params.CategoryID = &cat
	}
	if raw := c.Query("exclude_id"); raw != "" {
		id, err := idgen.ParseID(raw, idgen.EntityTypeImage)
		if err != nil {
			return params, apperror.Validation("无效的图片ID").WithDetails(map[string]string{"exclude_id": raw})
		}
		params.ExcludeID = &id
	}
	if raw := c.Query("tags"); raw != "" {
		params.Tags = tag.Normalize(strings.Split(raw, ","))
	}
	switch c.Query("order_by") {
	case "", "created_at", "-created_at":
		params.OrderBy = repository.OrderByCreated
	case "like_count", "-like_count":
		params.OrderBy = repository.OrderByLikes
	default:
		return params, apperror.Validation("不支持的排序方式").WithDetails(map[string]string{"order_by": "仅支持 created_at 或 like_count"})
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperror.Validation("无效的 limit").WithDetails(map[string]string{"limit": raw})
		}
		params.Limit = n
	}
	return params, nil
}

// List
// @Summary      图片列表
// @Description  未指定 user_id 时，is_public=true 返回全站公开图片，否则返回自己的图片；查看他人只返回公开图片
// @Tags         Image
// @Produce      json
// @Param        user_id query string false "用户ID"
// @Param        is_public query bool false "是否公开"
// @Param        category_id query int false "分类ID (0-14)"
// @Param        tags query string false "逗号分隔的标签名，命中任一即可"
// @Param        exclude_id query string false "排除的图片ID"
// @Param        order_by query string false "created_at 或 like_count"
// @Param        limit query int false "最多返回的数量"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=model.PageResponse[model.ImageResponse]} "成功响应"
// @Failure      400 {object} response.Response "请求参数错误"
// @Router       /images [get]
func (h *Handler) List(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	page, err := h.feedSvc.List(c.Request.Context(), common.CurrentUserID(c), params)
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	names := common.TagNames(c.Request.Context(), h.tagSvc)
	response.Success(c, common.ToPage(page, func(img *model.Image) *model.ImageResponse {
		return common.ToImageResponse(img, names)
	}), "获取成功")
}

// Feed
// @Summary      时间线
// @Description  自己的全部图片和已关注用户的公开图片，按时间倒序
// @Tags         Image
// @Security     BearerAuth
// @Produce      json
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=model.PageResponse[model.ImageResponse]} "成功响应"
// @Router       /images/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	page, err := h.feedSvc.Feed(c.Request.Context(), common.CurrentUserID(c), common.ParsePage(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	names := common.TagNames(c.Request.Context(), h.tagSvc)
	response.Success(c, common.ToPage(page, func(img *model.Image) *model.ImageResponse {
		return common.ToImageResponse(img, names)
	}), "获取成功")
}

// Recommendations
// @Summary      个性化推荐
// @Description  根据点赞图片的分类和收藏图片的标签推荐他人的公开图片，结果随机排列
// @Tags         Image
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} response.Response{data=model.RecommendationResponse} "成功响应"
// @Router       /images/recommendations [get]
func (h *Handler) Recommendations(c *gin.Context) {
	rec, err := h.feedSvc.Recommend(c.Request.Context(), common.CurrentUserID(c))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	names := common.TagNames(c.Request.Context(), h.tagSvc)
	response.Success(c, &model.RecommendationResponse{
		Recommendations: common.ToImageList(rec.Images, names),
		BasedOn: model.BasedOnResponse{
			Categories: common.CategoryRefs(rec.BasedOn.Categories),
			Tags:       rec.BasedOn.Tags,
		},
	}, "获取成功")
}

// Get
// @Summary      图片详情
// @Tags         Image
// @Produce      json
// @Param        id path string true "图片ID"
// @Success      200 {object} response.Response{data=model.ImageResponse} "成功响应"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	img, err := h.imageSvc.Get(c.Request.Context(), common.CurrentUserID(c), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToImageResponse(img, common.TagNames(c.Request.Context(), h.tagSvc)), "获取成功")
}

// Update
// @Summary      编辑图片
// @Description  修改标题或可见性，只有所有者可以操作
// @Tags         Image
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "图片ID"
// @Param        body body model.UpdateImageRequest true "要修改的字段"
// @Success      200 {object} response.Response{data=model.ImageResponse} "成功响应"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	var req model.UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	img, err := h.imageSvc.Update(c.Request.Context(), common.CurrentUserID(c), id, image_service.UpdateParams{
		Title:    req.Title,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToImageResponse(img, common.TagNames(c.Request.Context(), h.tagSvc)), "更新成功")
}

// Delete
// @Summary      删除图片
// @Description  删除图片及其相册关系、点赞、评论和收藏，只有所有者可以操作
// @Tags         Image
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "图片ID"
// @Success      200 {object} response.Response "删除成功"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	if err := h.imageSvc.Delete(c.Request.Context(), common.CurrentUserID(c), id); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "删除成功")
}

// GetTags
// @Summary      图片标签
// @Description  返回 AI 标签、用户标签和合并去重后的全部标签
// @Tags         Image
// @Produce      json
// @Param        id path string true "图片ID"
// @Success      200 {object} response.Response{data=model.TagView} "成功响应"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id}/tags [get]
func (h *Handler) GetTags(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	view, err := h.tagSvc.GetImageTags(c.Request.Context(), common.CurrentUserID(c), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, view, "获取成功")
}

// AddTags
// @Summary      添加用户标签
// @Tags         Image
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "图片ID"
// @Param        body body model.TagsRequest true "要添加的标签"
// @Success      200 {object} response.Response{data=model.TagView} "成功响应"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id}/tags [post]
func (h *Handler) AddTags(c *gin.Context) {
	h.mutateTags(c, h.tagSvc.AddUserTags, "标签已添加")
}

// RemoveTags
// @Summary      删除用户标签
// @Tags         Image
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "图片ID"
// @Param        body body model.TagsRequest true "要删除的标签"
// @Success      200 {object} response.Response{data=model.TagView} "成功响应"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id}/tags [delete]
func (h *Handler) RemoveTags(c *gin.Context) {
	h.mutateTags(c, h.tagSvc.RemoveUserTags, "标签已删除")
}

// mutateTags 增删用户标签后返回合并后的标签视图
func (h *Handler) mutateTags(c *gin.Context, mutate func(context.Context, uint, uint, []string) ([]string, error), message string) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	var req model.TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	userID := common.CurrentUserID(c)
	if _, err := mutate(c.Request.Context(), userID, id, req.Tags); err != nil {
		response.FailWithError(c, err)
		return
	}
	view, err := h.tagSvc.GetImageTags(c.Request.Context(), userID, id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, view, message)
}
