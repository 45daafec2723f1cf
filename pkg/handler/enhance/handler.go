/*
 * @Description: 图片 AI 描述与修图接口
 * @Author: photox
 * @Date: 2025-10-14 16:02:51
 * @LastEditTime: 2025-10-22 10:55:30
 * @LastEditors: photox
 */
package enhance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/handler/common"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/enhance"
)

type Handler struct {
	svc enhance.EnhanceService
}

func NewHandler(svc enhance.EnhanceService) *Handler {
	return &Handler{svc: svc}
}

func toOptions(req model.ProcessImageRequest) enhance.Options {
	a := req.Adjustments
	opts := enhance.Options{Adjustments: enhance.Adjustments{
		Brightness: a.Brightness,
		Contrast:   a.Contrast,
		Saturation: a.Saturation,
		Hue:        a.Hue,
		Sharpness:  a.Sharpness,
		Blur:       a.Blur,
	}}
	for _, e := range req.Enhancements {
		opts.Enhancements = append(opts.Enhancements, enhance.Enhancement(e))
	}
	return opts
}

func toProcessedResponse(res *enhance.Result) *model.ProcessedImageResponse {
	return &model.ProcessedImageResponse{ProcessedImageURL: res.URL, FileName: res.FileName}
}

// Describe
// @Summary      图片 AI 描述
// @Description  首次请求时调用视觉模型生成描述并保存，之后直接返回保存的结果
// @Tags         Image
// @Produce      json
// @Param        id path string true "图片ID"
// @Success      200 {object} response.Response{data=model.DescriptionResponse} "成功响应"
// @Failure      404 {object} response.Response "图片不存在"
// @Failure      502 {object} response.Response "视觉模型不可用"
// @Router       /images/{id}/ai-description [post]
func (h *Handler) Describe(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	description, err := h.svc.Describe(c.Request.Context(), common.CurrentUserID(c), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, &model.DescriptionResponse{ImageID: id, Description: description}, "AI分析成功")
}

// Process
// @Summary      修图
// @Description  对可见的图片做亮度、对比度、饱和度、色相、锐度、模糊调节和智能增强，结果写入 processed/ 下
// @Tags         Image
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "图片ID"
// @Param        body body model.ProcessImageRequest true "处理参数"
// @Success      200 {object} response.Response{data=model.ProcessedImageResponse} "处理成功"
// @Failure      400 {object} response.Response "参数无效"
// @Failure      404 {object} response.Response "图片不存在"
// @Router       /images/{id}/ai-process [post]
func (h *Handler) Process(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeImage)
	if !ok {
		return
	}

	var req model.ProcessImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}

	res, err := h.svc.Process(c.Request.Context(), common.CurrentUserID(c), id, toOptions(req))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, toProcessedResponse(res), "处理成功")
}

// ProcessLocal
// @Summary      修图（未入库图片）
// @Description  处理随请求上传的图片，params 为 JSON 字符串，格式与 ai-process 的请求体相同
// @Tags         Image
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "图片文件"
// @Param        params formData string false "处理参数 JSON"
// @Success      200 {object} response.Response{data=model.ProcessedImageResponse} "处理成功"
// @Failure      400 {object} response.Response "参数无效"
// @Router       /images/ai-process-local [post]
func (h *Handler) ProcessLocal(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "请上传图片文件")
		return
	}

	var req model.ProcessImageRequest
	if raw := c.PostForm("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			response.Fail(c, http.StatusBadRequest, "参数格式错误")
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "无法读取上传的文件")
		return
	}
	defer file.Close()

	res, err := h.svc.ProcessUpload(c.Request.Context(), common.CurrentUserID(c), file, toOptions(req))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, toProcessedResponse(res), "处理成功")
}

// DeleteProcessed
// @Summary      删除修图结果
// @Description  只能删除自己生成的处理结果
// @Tags         Image
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body model.DeleteProcessedRequest true "文件名"
// @Success      200 {object} response.Response "删除成功"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "文件不存在"
// @Router       /images/delete-processed [delete]
func (h *Handler) DeleteProcessed(c *gin.Context) {
	var req model.DeleteProcessedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "缺少文件名")
		return
	}
	if err := h.svc.DeleteProcessed(c.Request.Context(), common.CurrentUserID(c), req.FileName); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "删除成功")
}
