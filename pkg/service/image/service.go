/*
 * @Description: 图片详情、编辑与删除
 * @Author: photox
 * @Date: 2025-10-10 11:05:43
 * @LastEditTime: 2025-10-21 14:52:19
 * @LastEditors: photox
 */
package image

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/photox-team/photox-app/internal/infra/storage"
	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/metrics"
)

// MaxTitleLength 图片标题的最大字符数
const MaxTitleLength = 200

// UpdateParams 可编辑的图片信息，nil 表示不修改
type UpdateParams struct {
	Title    *string
	IsPublic *bool
}

// ImageService 定义了单张图片的业务逻辑接口
type ImageService interface {
	Get(ctx context.Context, viewerID, id uint) (*model.Image, error)
	Update(ctx context.Context, userID, id uint, params UpdateParams) (*model.Image, error)
	Delete(ctx context.Context, userID, id uint) error
}

type imageService struct {
	imageRepo repository.ImageRepository
	txManager repository.TransactionManager
	store     storage.ObjectStore
}

func NewImageService(imageRepo repository.ImageRepository, txManager repository.TransactionManager, store storage.ObjectStore) ImageService {
	return &imageService{
		imageRepo: imageRepo,
		txManager: txManager,
		store:     store,
	}
}

func (s *imageService) find(ctx context.Context, id uint) (*model.Image, error) {
	img, err := s.imageRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("图片不存在")
		}
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}
	return img, nil
}

// Get 私有图片对非所有者表现为不存在
func (s *imageService) Get(ctx context.Context, viewerID, id uint) (*model.Image, error) {
	img, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !img.VisibleTo(viewerID) {
		return nil, apperror.NotFound("图片不存在")
	}
	return img, nil
}

// Update 别人的私有图片同样表现为不存在，只有公开图片才会返回无权限
func (s *imageService) Update(ctx context.Context, userID, id uint, params UpdateParams) (*model.Image, error) {
	img, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if img.OwnerID != userID {
		return nil, apperror.Forbidden("无权限编辑此图片")
	}

	var title *string
	if params.Title != nil {
		// 空标题表示不修改
		if t := strings.TrimSpace(*params.Title); t != "" {
			if utf8.RuneCountInString(t) > MaxTitleLength {
				return nil, apperror.Validationf("标题不能超过 %d 个字符", MaxTitleLength).
					WithDetails(map[string]string{"title": "过长"})
			}
			title = &t
		}
	}
	if title == nil && params.IsPublic == nil {
		return img, nil
	}
	updated, err := s.imageRepo.UpdateMeta(ctx, id, title, params.IsPublic)
	if err != nil {
		return nil, fmt.Errorf("更新图片失败: %w", err)
	}
	return updated, nil
}

// Delete 在一个事务里显式级联删除图片的所有关联数据，提交后再尽力删除存储对象
func (s *imageService) Delete(ctx context.Context, userID, id uint) error {
	img, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if img.OwnerID != userID {
		return apperror.Forbidden("无权限删除此图片")
	}

	err = s.txManager.Do(ctx, func(repos repository.Repositories) error {
		if err := repos.Album.RemoveImageFromAll(ctx, id); err != nil {
			return err
		}
		if err := repos.Like.DeleteByTarget(ctx, constant.LikeTypeImage, []uint{id}); err != nil {
			return err
		}
		commentIDs, err := repos.Comment.DeleteByImage(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Like.DeleteByTarget(ctx, constant.LikeTypeComment, commentIDs); err != nil {
			return err
		}
		if err := repos.Favorite.DeleteByImage(ctx, id); err != nil {
			return err
		}
		return repos.Image.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("删除图片失败: %w", err)
	}

	if img.URL != "" {
		deleted, err := s.store.Delete(ctx, img.URL)
		metrics.RecordStorage("delete", err)
		switch {
		case err != nil:
			log.Printf("[图片] ⚠️ 删除存储对象失败 (图片 %d): %v", id, err)
		case !deleted:
			log.Printf("[图片] ⚠️ 存储对象已不存在 (图片 %d): %s", id, img.URL)
		}
	}
	log.Printf("[图片] 用户 %d 删除了图片 %d", userID, id)
	return nil
}
