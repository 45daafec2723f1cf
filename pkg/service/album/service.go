package album

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

// MaxTitleLength 相册标题的最大字符数
const MaxTitleLength = 100

// CreateAlbumParams 定义了创建相册时需要的参数
type CreateAlbumParams struct {
	Title       string
	Description string
	IsPublic    bool
}

// UpdateAlbumParams 定义了更新相册时需要的参数，nil 表示不修改
type UpdateAlbumParams struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

// AlbumDetail 相册详情，Images 只包含当前用户可见的图片
type AlbumDetail struct {
	Album  *model.Album
	Images []*model.Image
}

// AlbumService 定义了相册相关的业务逻辑接口
type AlbumService interface {
	CreateAlbum(ctx context.Context, ownerID uint, params CreateAlbumParams) (*model.Album, error)
	GetAlbum(ctx context.Context, viewerID, id uint) (*AlbumDetail, error)
	ListAlbums(ctx context.Context, viewerID, ownerID uint, page repository.PageQuery) (*repository.PageResult[*model.Album], error)
	UpdateAlbum(ctx context.Context, userID, id uint, params UpdateAlbumParams) (*model.Album, error)
	DeleteAlbum(ctx context.Context, userID, id uint) error
	AddImage(ctx context.Context, userID, albumID, imageID uint) error
	RemoveImage(ctx context.Context, userID, albumID, imageID uint) error

	// PlaceInCategoryAlbum 把图片放进所有者的分类相册，相册不存在时创建
	PlaceInCategoryAlbum(ctx context.Context, img *model.Image) (*model.Album, error)
}

// albumService 是 AlbumService 接口的实现
type albumService struct {
	albumRepo repository.AlbumRepository
	imageRepo repository.ImageRepository
	txManager repository.TransactionManager
}

// NewAlbumService 是 albumService 的构造函数
func NewAlbumService(albumRepo repository.AlbumRepository, imageRepo repository.ImageRepository, txManager repository.TransactionManager) AlbumService {
	return &albumService{
		albumRepo: albumRepo,
		imageRepo: imageRepo,
		txManager: txManager,
	}
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.Validation("相册标题不能为空").WithDetails(map[string]string{"title": "不能为空"})
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.Validationf("相册标题不能超过 %d 个字符", MaxTitleLength).
			WithDetails(map[string]string{"title": "过长"})
	}
	return title, nil
}

// CreateAlbum 实现了创建相册的业务逻辑
func (s *albumService) CreateAlbum(ctx context.Context, ownerID uint, params CreateAlbumParams) (*model.Album, error) {
	title, err := normalizeTitle(params.Title)
	if err != nil {
		return nil, err
	}
	album, err := s.albumRepo.Create(ctx, &repository.CreateAlbumParams{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		IsPublic:    params.IsPublic,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("已存在同名相册")
		}
		return nil, err
	}
	return album, nil
}

func (s *albumService) find(ctx context.Context, id uint) (*model.Album, error) {
	album, err := s.albumRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("相册不存在")
		}
		return nil, fmt.Errorf("查询相册失败: %w", err)
	}
	return album, nil
}

// owned 先判断存在，再判断所有权
func (s *albumService) owned(ctx context.Context, userID, id uint) (*model.Album, error) {
	album, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if album.OwnerID != userID {
		return nil, apperror.Forbidden("无权操作此相册")
	}
	return album, nil
}

func (s *albumService) GetAlbum(ctx context.Context, viewerID, id uint) (*AlbumDetail, error) {
	album, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !album.IsPublic && album.OwnerID != viewerID {
		return nil, apperror.NotFound("相册不存在")
	}

	ids, err := s.albumRepo.ListImageIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询相册图片失败: %w", err)
	}
	images, err := s.imageRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询相册图片失败: %w", err)
	}
	byID := make(map[uint]*model.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	visible := make([]*model.Image, 0, len(ids))
	for _, imageID := range ids {
		if img, ok := byID[imageID]; ok && img.VisibleTo(viewerID) {
			visible = append(visible, img)
		}
	}
	return &AlbumDetail{Album: album, Images: visible}, nil
}

// ListAlbums 查看他人相册时只返回公开相册，ownerID 为 0 时查看自己的
func (s *albumService) ListAlbums(ctx context.Context, viewerID, ownerID uint, page repository.PageQuery) (*repository.PageResult[*model.Album], error) {
	if ownerID == 0 {
		ownerID = viewerID
	}
	if ownerID == 0 {
		return nil, apperror.Validation("缺少用户ID").WithDetails(map[string]string{"user_id": "不能为空"})
	}
	page = page.Normalize(constant.DefaultPageSize)
	albums, total, err := s.albumRepo.ListByOwner(ctx, ownerID, ownerID != viewerID, page)
	if err != nil {
		return nil, fmt.Errorf("查询相册列表失败: %w", err)
	}
	return &repository.PageResult[*model.Album]{
		Items:    albums,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// UpdateAlbum 实现了更新相册的业务逻辑
func (s *albumService) UpdateAlbum(ctx context.Context, userID, id uint, params UpdateAlbumParams) (*model.Album, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	update := &repository.UpdateAlbumParams{IsPublic: params.IsPublic}
	if params.Title != nil {
		title, err := normalizeTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if params.Description != nil {
		desc := strings.TrimSpace(*params.Description)
		update.Description = &desc
	}
	album, err := s.albumRepo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("已存在同名相册")
		}
		return nil, err
	}
	return album, nil
}

// DeleteAlbum 删除相册和它收到的点赞，图片本身保留
func (s *albumService) DeleteAlbum(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	err := s.txManager.Do(ctx, func(repos repository.Repositories) error {
		if err := repos.Like.DeleteByTarget(ctx, constant.LikeTypeAlbum, []uint{id}); err != nil {
			return err
		}
		commentIDs, err := repos.Comment.DeleteByAlbum(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Like.DeleteByTarget(ctx, constant.LikeTypeComment, commentIDs); err != nil {
			return err
		}
		return repos.Album.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("删除相册失败: %w", err)
	}
	log.Printf("[相册] 用户 %d 删除了相册 %d", userID, id)
	return nil
}

// AddImage 只能把自己的图片放进自己的相册，重复添加不报错
func (s *albumService) AddImage(ctx context.Context, userID, albumID, imageID uint) error {
	if _, err := s.owned(ctx, userID, albumID); err != nil {
		return err
	}
	img, err := s.imageRepo.FindByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("图片不存在")
		}
		return fmt.Errorf("查询图片失败: %w", err)
	}
	if img.OwnerID != userID {
		return apperror.Forbidden("只能添加自己的图片")
	}
	return s.albumRepo.AddImage(ctx, albumID, imageID)
}

func (s *albumService) RemoveImage(ctx context.Context, userID, albumID, imageID uint) error {
	if _, err := s.owned(ctx, userID, albumID); err != nil {
		return err
	}
	if err := s.albumRepo.RemoveImage(ctx, albumID, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("图片不在此相册中")
		}
		return err
	}
	return nil
}

func (s *albumService) PlaceInCategoryAlbum(ctx context.Context, img *model.Image) (*model.Album, error) {
	title := constant.AutoAlbumTitle(img.Category)
	album, created, err := s.albumRepo.GetOrCreate(ctx, &repository.CreateAlbumParams{
		OwnerID:     img.OwnerID,
		Title:       title,
		Description: fmt.Sprintf("自动创建的%s分类相册", img.Category.Name()),
		IsPublic:    false,
	})
	if err != nil {
		return nil, fmt.Errorf("获取分类相册失败: %w", err)
	}
	if created {
		log.Printf("[相册] 为用户 %d 创建分类相册: %s", img.OwnerID, title)
	}
	if err := s.albumRepo.AddImage(ctx, album.ID, img.ID); err != nil {
		return nil, err
	}
	return album, nil
}
