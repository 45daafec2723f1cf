// pkg/service/comment/service.go
package comment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/service/notification"
)

// MaxBodyLength 评论正文的最大字符数
const MaxBodyLength = 1000

// CreateParams 创建评论的参数，AlbumID 和 ImageID 不能同时设置
type CreateParams struct {
	AlbumID  *uint
	ImageID  *uint
	ParentID *uint
	Body     string
}

// Service 评论服务的核心业务逻辑。
type Service struct {
	repos           repository.Repositories
	txManager       repository.TransactionManager
	notificationSvc notification.NotificationService
	policy          *bluemonday.Policy
}

// NewService 创建一个新的评论服务实例。
func NewService(
	repos repository.Repositories,
	txManager repository.TransactionManager,
	notificationSvc notification.NotificationService,
) *Service {
	return &Service{
		repos:           repos,
		txManager:       txManager,
		notificationSvc: notificationSvc,
		policy:          bluemonday.StrictPolicy(),
	}
}

func (s *Service) sanitize(body string) (string, error) {
	clean := strings.TrimSpace(s.policy.Sanitize(body))
	if clean == "" {
		return "", apperror.Validation("评论内容不能为空").WithDetails(map[string]string{"content": "不能为空"})
	}
	if utf8.RuneCountInString(clean) > MaxBodyLength {
		return "", apperror.Validationf("评论内容不能超过 %d 个字符", MaxBodyLength).
			WithDetails(map[string]string{"content": "过长"})
	}
	return clean, nil
}

func sameTarget(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Create 回复只能挂在未删除的顶层评论下，并继承父评论的对象
func (s *Service) Create(ctx context.Context, authorID uint, params CreateParams) (*model.Comment, error) {
	if params.AlbumID != nil && params.ImageID != nil {
		return nil, apperror.Validation("评论不能同时关联到相册和图片")
	}
	body, err := s.sanitize(params.Body)
	if err != nil {
		return nil, err
	}

	var (
		created  *model.Comment
		notified uint
	)
	err = s.txManager.Do(ctx, func(repos repository.Repositories) error {
		notified = 0
		var ev notification.Event

		if params.ParentID != nil {
			parent, err := repos.Comment.FindByID(ctx, *params.ParentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.NotFound("回复的父评论不存在")
				}
				return err
			}
			if parent.IsDeleted {
				return apperror.NotFound("回复的父评论不存在")
			}
			if !parent.IsRoot() {
				return apperror.Validation("只能回复顶层评论")
			}
			if params.AlbumID == nil && params.ImageID == nil {
				params.AlbumID, params.ImageID = parent.AlbumID, parent.ImageID
			} else if !sameTarget(params.AlbumID, parent.AlbumID) || !sameTarget(params.ImageID, parent.ImageID) {
				return apperror.Validation("回复的评论与当前对象不匹配")
			}
			ev = notification.Event{RecipientID: parent.AuthorID, Kind: constant.NotificationReply, Template: notification.TemplateReply}
		}

		switch {
		case params.ImageID != nil:
			img, err := repos.Image.FindByID(ctx, *params.ImageID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.NotFound("图片不存在")
				}
				return err
			}
			if !img.VisibleTo(authorID) {
				return apperror.NotFound("图片不存在")
			}
			if params.ParentID == nil {
				ev = notification.Event{RecipientID: img.OwnerID, Kind: constant.NotificationComment, Template: notification.TemplateCommentImage}
			}
		case params.AlbumID != nil:
			album, err := repos.Album.FindByID(ctx, *params.AlbumID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.NotFound("相册不存在")
				}
				return err
			}
			if !album.IsPublic && album.OwnerID != authorID {
				return apperror.NotFound("相册不存在")
			}
			if params.ParentID == nil {
				ev = notification.Event{RecipientID: album.OwnerID, Kind: constant.NotificationComment, Template: notification.TemplateCommentAlbum}
			}
		}

		c, err := repos.Comment.Create(ctx, &repository.CreateCommentParams{
			AuthorID: authorID,
			AlbumID:  params.AlbumID,
			ImageID:  params.ImageID,
			ParentID: params.ParentID,
			Body:     body,
		})
		if err != nil {
			return err
		}
		created = c

		if ev.RecipientID != 0 {
			ev.SenderID = authorID
			ok, err := notification.Emit(ctx, repos, ev)
			if err != nil {
				return err
			}
			if ok {
				notified = ev.RecipientID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notified != 0 {
		s.notificationSvc.Delivered(ctx, notified)
	}
	return created, nil
}

// ListRoots 顶层评论按时间倒序，每条附带前 3 条回复
func (s *Service) ListRoots(ctx context.Context, viewerID uint, params repository.CommentListParams) (*repository.PageResult[*model.Comment], error) {
	// 同时传入时以相册为准
	if params.AlbumID != nil {
		params.ImageID = nil
	}
	params.PageQuery = params.PageQuery.Normalize(constant.FeedPageSize)

	if err := s.checkTarget(ctx, viewerID, params.AlbumID, params.ImageID); err != nil {
		return nil, err
	}
	// 未指定对象时由仓库层过滤掉不可见对象下的评论
	params.ViewerID = viewerID

	roots, total, err := s.repos.Comment.ListRoots(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("查询评论列表失败: %w", err)
	}

	ids := make([]uint, 0, len(roots))
	for _, c := range roots {
		ids = append(ids, c.ID)
	}
	counts, err := s.repos.Comment.CountReplies(ctx, ids)
	if err != nil {
		return nil, err
	}

	all := make([]*model.Comment, 0, len(roots))
	for _, c := range roots {
		c.ReplyCount = counts[c.ID]
		if c.ReplyCount > 0 {
			replies, err := s.repos.Comment.ListReplies(ctx, c.ID, constant.ReplyPreviewSize)
			if err != nil {
				return nil, err
			}
			c.Replies = replies
		}
		if c.Replies == nil {
			c.Replies = []*model.Comment{}
		}
		all = append(all, c)
		all = append(all, c.Replies...)
	}
	if err := s.decorate(ctx, viewerID, all); err != nil {
		return nil, err
	}

	return &repository.PageResult[*model.Comment]{
		Items:    roots,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}, nil
}

// ListReplies 父评论被软删除后，其未删除的回复仍可查看
func (s *Service) ListReplies(ctx context.Context, viewerID, parentID uint) ([]*model.Comment, error) {
	parent, err := s.repos.Comment.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("评论不存在")
		}
		return nil, err
	}
	if err := s.checkTarget(ctx, viewerID, parent.AlbumID, parent.ImageID); err != nil {
		if apperror.CodeOf(err) == apperror.CodeNotFound {
			return nil, apperror.NotFound("评论不存在")
		}
		return nil, err
	}
	replies, err := s.repos.Comment.ListReplies(ctx, parentID, 0)
	if err != nil {
		return nil, fmt.Errorf("查询回复失败: %w", err)
	}
	if err := s.decorate(ctx, viewerID, replies); err != nil {
		return nil, err
	}
	return replies, nil
}

// checkTarget 评论所属的相册或图片必须对 viewer 可见，不可见时按不存在处理
func (s *Service) checkTarget(ctx context.Context, viewerID uint, albumID, imageID *uint) error {
	switch {
	case albumID != nil:
		album, err := s.repos.Album.FindByID(ctx, *albumID)
		if err != nil || (!album.IsPublic && album.OwnerID != viewerID) {
			if err == nil || errors.Is(err, repository.ErrNotFound) {
				return apperror.NotFound("相册不存在")
			}
			return err
		}
	case imageID != nil:
		img, err := s.repos.Image.FindByID(ctx, *imageID)
		if err != nil || !img.VisibleTo(viewerID) {
			if err == nil || errors.Is(err, repository.ErrNotFound) {
				return apperror.NotFound("图片不存在")
			}
			return err
		}
	}
	return nil
}

// Delete 只有作者可以删除，删除为软删除
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	c, err := s.repos.Comment.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("评论不存在")
		}
		return err
	}
	if c.IsDeleted {
		return apperror.NotFound("评论不存在")
	}
	if c.AuthorID != userID {
		return apperror.Forbidden("只能删除自己的评论")
	}
	if err := s.repos.Comment.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("删除评论失败: %w", err)
	}
	log.Printf("[评论] 用户 %d 删除了评论 %d", userID, id)
	return nil
}

// decorate 填充作者名、点赞数和当前用户的点赞状态
func (s *Service) decorate(ctx context.Context, viewerID uint, comments []*model.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	authorIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	users, err := s.repos.User.FindByIDs(ctx, authorIDs)
	if err != nil {
		return fmt.Errorf("查询评论作者失败: %w", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	for _, c := range comments {
		c.AuthorName = names[c.AuthorID]
		if c.AuthorName == "" {
			c.AuthorName = fmt.Sprintf("用户%d", c.AuthorID)
		}
		target := model.LikeTarget{Type: constant.LikeTypeComment, ObjectID: c.ID}
		if c.LikeCount, err = s.repos.Like.Count(ctx, target); err != nil {
			return fmt.Errorf("统计评论点赞失败: %w", err)
		}
		if viewerID == 0 || c.LikeCount == 0 {
			continue
		}
		if _, err := s.repos.Like.Find(ctx, viewerID, target); err == nil {
			c.Liked = true
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	return nil
}
