package tag

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/tag"
)

// maxImportSize 标签导入文件的大小上限
const maxImportSize = 1 << 20

// Handler 标签注册表的 HTTP 处理器
type Handler struct {
	tagSvc tag.TagService
}

func NewHandler(tagSvc tag.TagService) *Handler {
	return &Handler{tagSvc: tagSvc}
}

// List
// @Summary      标签注册表
// @Description  返回全部可用于 AI 分类的标签
// @Tags         Tag
// @Produce      json
// @Success      200 {object} response.Response{data=[]model.Tag} "成功响应"
// @Router       /tags [get]
func (h *Handler) List(c *gin.Context) {
	tags, err := h.tagSvc.ListTags(c.Request.Context())
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	if tags == nil {
		tags = []*model.Tag{}
	}
	response.Success(c, tags, "获取成功")
}

// Create
// @Summary      新建标签
// @Tags         Tag
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body model.CreateTagRequest true "标签名称"
// @Success      201 {object} response.Response{data=model.Tag} "创建成功"
// @Failure      409 {object} response.Response "标签名称已存在"
// @Router       /tags [post]
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}
	created, err := h.tagSvc.CreateTag(c.Request.Context(), req.Name)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, created, "创建成功")
}

// Import
// @Summary      导入标签
// @Description  每行一个 "id:name"，按 id 新增或更新。可以上传 file 表单字段，也可以直接以文本作为请求体
// @Tags         Tag
// @Security     BearerAuth
// @Accept       multipart/form-data,text/plain
// @Produce      json
// @Param        file formData file false "标签文件"
// @Success      200 {object} response.Response{data=tag.ImportResult} "导入结果"
// @Router       /tags/import [post]
func (h *Handler) Import(c *gin.Context) {
	var src io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "未找到上传的标签文件")
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "无法读取上传的文件")
			return
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request.Body
	}

	result, err := h.tagSvc.ImportTags(c.Request.Context(), io.LimitReader(src, maxImportSize))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, result, "导入完成")
}
