/*
 * @Description: 标签注册表与图片标签合并
 * @Author: photox
 * @Date: 2025-10-09 14:26:51
 * @LastEditTime: 2025-10-21 09:12:40
 * @LastEditors: photox
 */
package tag

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strconv"
	"strings"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/service/utility"
)

// ImportResult 批量导入标签的统计
type ImportResult struct {
	TotalLines int `json:"total_lines"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
}

// TagService 定义了标签相关的业务逻辑接口
type TagService interface {
	// 注册表
	ListTags(ctx context.Context) ([]*model.Tag, error)
	CreateTag(ctx context.Context, name string) (*model.Tag, error)
	ImportTags(ctx context.Context, r io.Reader) (*ImportResult, error)

	// 图片标签
	GetImageTags(ctx context.Context, viewerID, imageID uint) (*model.TagView, error)
	AddUserTags(ctx context.Context, userID, imageID uint, tags []string) ([]string, error)
	RemoveUserTags(ctx context.Context, userID, imageID uint, tags []string) ([]string, error)

	// 按 id 解析标签名，未知 id 被忽略
	Names(ctx context.Context, ids []uint) ([]string, error)
}

type tagService struct {
	tagRepo   repository.TagRepository
	imageRepo repository.ImageRepository
	cache     utility.CacheService
	txManager repository.TransactionManager
}

func NewTagService(tagRepo repository.TagRepository, imageRepo repository.ImageRepository, cache utility.CacheService, txManager repository.TransactionManager) TagService {
	return &tagService{
		tagRepo:   tagRepo,
		imageRepo: imageRepo,
		cache:     cache,
		txManager: txManager,
	}
}

func (s *tagService) ListTags(ctx context.Context) ([]*model.Tag, error) {
	if tags, ok := s.cache.GetTags(ctx); ok {
		return tags, nil
	}
	tags, err := s.tagRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取标签注册表失败: %w", err)
	}
	s.cache.SetTags(ctx, tags)
	return tags, nil
}

func (s *tagService) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("标签名称不能为空").WithDetails(map[string]string{"name": "不能为空"})
	}
	tag, err := s.tagRepo.Create(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("标签名称已存在")
		}
		return nil, err
	}
	s.cache.InvalidateTags(ctx)
	log.Printf("[标签] 新建标签 %d: %s", tag.ID, tag.Name)
	return tag, nil
}

// ImportTags 逐行解析 "id:name"，按 id 插入或更新，无法解析的行跳过
func (s *tagService) ImportTags(ctx context.Context, r io.Reader) (*ImportResult, error) {
	result := &ImportResult{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		result.TotalLines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tag, ok := parseTagLine(line)
		if !ok {
			log.Printf("[标签] ⚠️ 跳过无法解析的行: %q", line)
			result.Skipped++
			continue
		}
		created, err := s.tagRepo.Upsert(ctx, tag)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				log.Printf("[标签] ⚠️ 跳过重名标签 %d: %s", tag.ID, tag.Name)
				result.Skipped++
				continue
			}
			return nil, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperror.Validation("读取标签文件失败").WithCause(err)
	}

	s.cache.InvalidateTags(ctx)
	log.Printf("[标签] ✅ 导入完成: 共 %d 行, 新增 %d, 更新 %d, 跳过 %d",
		result.TotalLines, result.Created, result.Updated, result.Skipped)
	return result, nil
}

func parseTagLine(line string) (*model.Tag, bool) {
	idPart, name, found := strings.Cut(line, ":")
	if !found {
		return nil, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idPart), 10, 32)
	if err != nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	return &model.Tag{ID: uint(id), Name: name}, true
}

func (s *tagService) Names(ctx context.Context, ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	tags, err := s.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]string, len(tags))
	for _, t := range tags {
		byID[t.ID] = t.Name
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	names := make([]string, 0, len(sorted))
	for _, id := range slices.Compact(sorted) {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *tagService) GetImageTags(ctx context.Context, viewerID, imageID uint) (*model.TagView, error) {
	img, err := s.findImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if !img.VisibleTo(viewerID) {
		return nil, apperror.NotFound("图片不存在")
	}
	aiTags, err := s.Names(ctx, img.AITagIDs)
	if err != nil {
		return nil, err
	}
	return Merge(aiTags, img.UserTags), nil
}

func (s *tagService) AddUserTags(ctx context.Context, userID, imageID uint, tags []string) ([]string, error) {
	return s.editUserTags(ctx, userID, imageID, func(current []string) []string {
		return Normalize(append(slices.Clone(current), tags...))
	})
}

func (s *tagService) RemoveUserTags(ctx context.Context, userID, imageID uint, tags []string) ([]string, error) {
	drop := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		drop[strings.TrimSpace(t)] = struct{}{}
	}
	return s.editUserTags(ctx, userID, imageID, func(current []string) []string {
		kept := make([]string, 0, len(current))
		for _, t := range current {
			if _, ok := drop[t]; !ok {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// editUserTags 在一个事务里锁定图片、读取并写回用户标签，并发编辑不会互相覆盖
func (s *tagService) editUserTags(ctx context.Context, userID, imageID uint, edit func(current []string) []string) ([]string, error) {
	var updated []string
	err := s.txManager.Do(ctx, func(repos repository.Repositories) error {
		img, err := repos.Image.FindByIDForUpdate(ctx, imageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.NotFound("图片不存在")
			}
			return fmt.Errorf("查询图片失败: %w", err)
		}
		// 别人的私有图片表现为不存在
		if !img.VisibleTo(userID) {
			return apperror.NotFound("图片不存在")
		}
		if img.OwnerID != userID {
			return apperror.Forbidden("无权限编辑此图片")
		}
		updated = edit(img.UserTags)
		if err := repos.Image.SetUserTags(ctx, imageID, updated); err != nil {
			return fmt.Errorf("保存用户标签失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *tagService) findImage(ctx context.Context, imageID uint) (*model.Image, error) {
	img, err := s.imageRepo.FindByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("图片不存在")
		}
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}
	return img, nil
}

// Normalize 去掉首尾空白和空串，按首次出现的顺序去重
func Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Merge 合并 AI 标签和用户标签，AllTags 先 AI 后用户，去重
func Merge(aiTags, userTags []string) *model.TagView {
	if aiTags == nil {
		aiTags = []string{}
	}
	if userTags == nil {
		userTags = []string{}
	}
	return &model.TagView{
		AITags:   aiTags,
		UserTags: userTags,
		AllTags:  Normalize(append(slices.Clone(aiTags), userTags...)),
	}
}
