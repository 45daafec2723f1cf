// pkg/handler/comment/handler.go
package comment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/handler/common"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
	"github.com/photox-team/photox-app/pkg/service/comment"
)

type Handler struct {
	svc *comment.Service
}

func NewHandler(svc *comment.Service) *Handler {
	return &Handler{svc: svc}
}

// targetIDs 解析 album_id / image_id / parent_id，任一无效即返回校验错误
func targetIDs(albumRaw, imageRaw, parentRaw string) (album, image, parent *uint, err error) {
	if album, err = common.OptionalID(albumRaw, idgen.EntityTypeAlbum); err != nil {
		return nil, nil, nil, apperror.Validation("无效的相册ID").WithDetails(map[string]string{"album_id": albumRaw})
	}
	if image, err = common.OptionalID(imageRaw, idgen.EntityTypeImage); err != nil {
		return nil, nil, nil, apperror.Validation("无效的图片ID").WithDetails(map[string]string{"image_id": imageRaw})
	}
	if parent, err = common.OptionalID(parentRaw, idgen.EntityTypeComment); err != nil {
		return nil, nil, nil, apperror.Validation("无效的父评论ID").WithDetails(map[string]string{"parent_id": parentRaw})
	}
	return album, image, parent, nil
}

// List
// @Summary      评论列表
// @Description  顶层评论按时间倒序分页，每条附带最早的 3 条回复和回复总数
// @Tags         Comment
// @Produce      json
// @Param        image_id query string false "图片ID"
// @Param        album_id query string false "相册ID"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=model.PageResponse[model.CommentResponse]} "成功响应"
// @Failure      404 {object} response.Response "对象不存在"
// @Router       /comments [get]
func (h *Handler) List(c *gin.Context) {
	albumID, imageID, _, err := targetIDs(c.Query("album_id"), c.Query("image_id"), "")
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	page, err := h.svc.ListRoots(c.Request.Context(), common.CurrentUserID(c), repository.CommentListParams{
		PageQuery: common.ParsePage(c),
		AlbumID:   albumID,
		ImageID:   imageID,
	})
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, common.ToPage(page, common.ToCommentResponse), "获取成功")
}

// Create
// @Summary      发表评论
// @Description  parent_id 指向顶层评论时为回复，回复继承父评论所属的图片或相册
// @Tags         Comment
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body model.CreateCommentRequest true "评论内容"
// @Success      201 {object} response.Response{data=model.CommentResponse} "发表成功"
// @Failure      400 {object} response.Response "请求参数错误"
// @Failure      404 {object} response.Response "对象不存在"
// @Router       /comments [post]
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "请求参数无效: "+err.Error())
		return
	}
	albumID, imageID, parentID, err := targetIDs(string(req.AlbumID), string(req.ImageID), string(req.ParentID))
	if err != nil {
		response.FailWithError(c, err)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), common.CurrentUserID(c), comment.CreateParams{
		AlbumID:  albumID,
		ImageID:  imageID,
		ParentID: parentID,
		Body:     req.Content,
	})
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, common.ToCommentResponse(created), "发表成功")
}

// Delete
// @Summary      删除评论
// @Description  只有作者可以删除，删除后回复仍然保留
// @Tags         Comment
// @Security     BearerAuth
// @Produce      json
// @Param        id path string true "评论ID"
// @Success      200 {object} response.Response "删除成功"
// @Failure      403 {object} response.Response "无权限"
// @Failure      404 {object} response.Response "评论不存在"
// @Router       /comments/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeComment)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), common.CurrentUserID(c), id); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "删除成功")
}

// Replies
// @Summary      全部回复
// @Description  按时间正序返回一条顶层评论的全部回复
// @Tags         Comment
// @Produce      json
// @Param        id path string true "父评论ID"
// @Success      200 {object} response.Response{data=[]model.CommentResponse} "成功响应"
// @Failure      404 {object} response.Response "评论不存在"
// @Router       /comments/{id}/replies [get]
func (h *Handler) Replies(c *gin.Context) {
	id, ok := common.PathID(c, "id", idgen.EntityTypeComment)
	if !ok {
		return
	}
	replies, err := h.svc.ListReplies(c.Request.Context(), common.CurrentUserID(c), id)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	list := make([]*model.CommentResponse, len(replies))
	for i, r := range replies {
		list[i] = common.ToCommentResponse(r)
	}
	response.Success(c, list, "获取成功")
}
