// Package common 汇总各处理器共用的请求解析和响应转换
package common

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/internal/pkg/auth"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/response"
)

// CurrentUserID 当前登录用户，匿名请求为 0
func CurrentUserID(c *gin.Context) uint {
	return auth.UserID(c)
}

// ParsePage 读取 page 和 page_size（兼容 pageSize），越界值交给服务层收敛
func ParsePage(c *gin.Context) repository.PageQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	sizeRaw := c.Query("page_size")
	if sizeRaw == "" {
		sizeRaw = c.Query("pageSize")
	}
	pageSize, _ := strconv.Atoi(sizeRaw)
	return repository.PageQuery{Page: page, PageSize: pageSize}
}

// PathID 解析路径参数中的数字 ID 或公共 ID，失败时直接写回 400
func PathID(c *gin.Context, param string, entityType uint64) (uint, bool) {
	id, err := idgen.ParseID(c.Param(param), entityType)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, "无效的ID: "+c.Param(param))
		return 0, false
	}
	return id, true
}

// OptionalID 解析可选的 ID，空值返回 nil
func OptionalID(raw string, entityType uint64) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := idgen.ParseID(raw, entityType)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// TagLister 提供标签注册表，用于把 AI 标签 ID 转换为名称
type TagLister interface {
	ListTags(ctx context.Context) ([]*model.Tag, error)
}

// TagNames 返回 id -> name 映射，读取失败时返回空映射
func TagNames(ctx context.Context, tags TagLister) map[uint]string {
	list, err := tags.ListTags(ctx)
	if err != nil {
		log.Printf("[接口] ⚠️ 读取标签注册表失败: %v", err)
		return map[uint]string{}
	}
	names := make(map[uint]string, len(list))
	for _, t := range list {
		names[t.ID] = t.Name
	}
	return names
}

func publicID(id uint, entityType uint64) string {
	// 编码器未初始化时不返回公共 ID
	pid, err := idgen.GeneratePublicID(id, entityType)
	if err != nil {
		return ""
	}
	return pid
}

// ToImageResponse 把图片转换为 API 响应，names 用于解析 AI 标签名
func ToImageResponse(img *model.Image, names map[uint]string) *model.ImageResponse {
	aiTags := make([]string, 0, len(img.AITagIDs))
	for _, id := range img.AITagIDs {
		if name, ok := names[id]; ok {
			aiTags = append(aiTags, name)
		}
	}
	colors := img.Colors
	if colors == nil {
		colors = []string{}
	}
	userTags := img.UserTags
	if userTags == nil {
		userTags = []string{}
	}
	return &model.ImageResponse{
		ID:            img.ID,
		PublicID:      publicID(img.ID, idgen.EntityTypeImage),
		OwnerID:       img.OwnerID,
		URL:           img.URL,
		Title:         img.Title,
		CategoryID:    int(img.Category),
		CategoryName:  img.Category.Name(),
		Colors:        colors,
		AITags:        aiTags,
		UserTags:      userTags,
		IsPublic:      img.IsPublic,
		LikeCount:     img.LikeCount,
		AIDescription: img.AIDescription,
		CreatedAt:     img.CreatedAt,
		UpdatedAt:     img.UpdatedAt,
	}
}

func ToImageList(images []*model.Image, names map[uint]string) []*model.ImageResponse {
	list := make([]*model.ImageResponse, len(images))
	for i, img := range images {
		list[i] = ToImageResponse(img, names)
	}
	return list
}

func ToAlbumResponse(a *model.Album) *model.AlbumResponse {
	return &model.AlbumResponse{
		ID:          a.ID,
		PublicID:    publicID(a.ID, idgen.EntityTypeAlbum),
		OwnerID:     a.OwnerID,
		Title:       a.Title,
		Description: a.Description,
		IsPublic:    a.IsPublic,
		ImageCount:  a.ImageCount,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func ToCommentResponse(cm *model.Comment) *model.CommentResponse {
	resp := &model.CommentResponse{
		ID:         cm.ID,
		AuthorID:   cm.AuthorID,
		AuthorName: cm.AuthorName,
		AlbumID:    cm.AlbumID,
		ImageID:    cm.ImageID,
		ParentID:   cm.ParentID,
		Content:    cm.Body,
		LikeCount:  cm.LikeCount,
		Liked:      cm.Liked,
		ReplyCount: cm.ReplyCount,
		CreatedAt:  cm.CreatedAt,
		UpdatedAt:  cm.UpdatedAt,
	}
	if cm.IsRoot() {
		resp.Replies = make([]*model.CommentResponse, 0, len(cm.Replies))
		for _, r := range cm.Replies {
			resp.Replies = append(resp.Replies, ToCommentResponse(r))
		}
	}
	return resp
}

func ToNotificationResponse(n *model.Notification) *model.NotificationResponse {
	return &model.NotificationResponse{
		ID:        n.ID,
		SenderID:  n.SenderID,
		Kind:      string(n.Kind),
		Content:   n.Content,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// ToPage 把分页结果中的每一项转换为响应结构
func ToPage[T, R any](page *repository.PageResult[T], conv func(T) R) *model.PageResponse[R] {
	list := make([]R, len(page.Items))
	for i, item := range page.Items {
		list[i] = conv(item)
	}
	return &model.PageResponse[R]{
		List:     list,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}

// CategoryRefs 把分类枚举转换为 {id, name}
func CategoryRefs(categories []constant.Category) []model.CategoryRef {
	refs := make([]model.CategoryRef, len(categories))
	for i, c := range categories {
		refs[i] = model.CategoryRef{ID: int(c), Name: c.Name()}
	}
	return refs
}
