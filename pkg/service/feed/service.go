/*
 * @Description: 图片列表、时间线、热门与偏好推荐
 * @Author: photox
 * @Date: 2025-10-12 16:40:27
 * @LastEditTime: 2025-10-21 17:26:03
 * @LastEditors: photox
 */
package feed

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

// ListParams 通用图片列表的查询参数，指针为 nil 表示未传
type ListParams struct {
	repository.PageQuery
	UserID     *uint
	IsPublic   *bool
	CategoryID *constant.Category
	Tags       []string
	ExcludeID  *uint
	OrderBy    repository.ImageOrder
	Limit      int
}

// BasedOn 推荐依据
type BasedOn struct {
	Categories []constant.Category `json:"categories"`
	Tags       []string            `json:"tags"`
}

// Recommendation 推荐结果
type Recommendation struct {
	Images  []*model.Image
	BasedOn BasedOn
}

// ShuffleFunc 与 rand.Shuffle 签名一致，测试中可替换为确定性的实现
type ShuffleFunc func(n int, swap func(i, j int))

// FeedService 定义了图片排序与推荐的业务逻辑接口
type FeedService interface {
	List(ctx context.Context, viewerID uint, params ListParams) (*repository.PageResult[*model.Image], error)
	Feed(ctx context.Context, viewerID uint, page repository.PageQuery) (*repository.PageResult[*model.Image], error)
	Recommend(ctx context.Context, userID uint) (*Recommendation, error)
}

type feedService struct {
	repos   repository.Repositories
	shuffle ShuffleFunc
}

// NewFeedService shuffle 为 nil 时使用 math/rand/v2 的全局随机源
func NewFeedService(repos repository.Repositories, shuffle ShuffleFunc) FeedService {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &feedService{repos: repos, shuffle: shuffle}
}

func emptyPage(page repository.PageQuery) *repository.PageResult[*model.Image] {
	return &repository.PageResult[*model.Image]{Items: []*model.Image{}, Page: page.Page, PageSize: page.PageSize}
}

// List 的可见性规则：
//   - 指定了他人：只返回其公开图片
//   - 指定了自己：is_public 过滤自己的公开或私有图片
//   - 未指定用户：is_public=true 为全站公开图片，其余情况只返回自己的图片
func (s *feedService) List(ctx context.Context, viewerID uint, params ListParams) (*repository.PageResult[*model.Image], error) {
	page := params.PageQuery.Normalize(constant.DefaultPageSize)
	if params.Limit < 0 {
		return nil, apperror.Validation("limit 不能为负数").WithDetails(map[string]string{"limit": "必须大于等于 0"})
	}
	if params.Limit > 0 && params.Limit < page.PageSize {
		page.PageSize = params.Limit
	}

	q := repository.ImageListParams{
		PageQuery: page,
		Category:  params.CategoryID,
		TagNames:  params.Tags,
		ExcludeID: params.ExcludeID,
		OrderBy:   params.OrderBy,
	}
	if q.Category != nil && !q.Category.IsValid() {
		return nil, apperror.Validation("无效的分类").WithDetails(map[string]string{"category_id": "取值范围 0-14"})
	}

	publicOnly := true
	switch {
	case params.UserID != nil && *params.UserID != viewerID:
		if params.IsPublic != nil && !*params.IsPublic {
			return emptyPage(page), nil
		}
		q.OwnerID = params.UserID
		q.IsPublic = &publicOnly
	case params.UserID != nil:
		q.OwnerID = params.UserID
		q.IsPublic = params.IsPublic
	case params.IsPublic != nil && *params.IsPublic:
		q.IsPublic = &publicOnly
	default:
		if viewerID == 0 {
			return nil, apperror.Unauthorized("请先登录")
		}
		q.OwnerID = &viewerID
		q.IsPublic = params.IsPublic
	}

	images, total, err := s.repos.Image.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("查询图片列表失败: %w", err)
	}
	if params.Limit > 0 && total > int64(params.Limit) {
		total = int64(params.Limit)
	}
	return &repository.PageResult[*model.Image]{
		Items:    images,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

// Feed 自己的全部图片，加上已关注用户的公开图片
func (s *feedService) Feed(ctx context.Context, viewerID uint, page repository.PageQuery) (*repository.PageResult[*model.Image], error) {
	page = page.Normalize(constant.FeedPageSize)
	images, total, err := s.repos.Image.ListFeed(ctx, viewerID, page)
	if err != nil {
		return nil, fmt.Errorf("查询时间线失败: %w", err)
	}
	return &repository.PageResult[*model.Image]{
		Items:    images,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

type counted[K cmp.Ordered] struct {
	key K
	n   int
}

// topN 按出现次数降序取前 n 个，次数相同时按键升序
func topN[K cmp.Ordered](counts map[K]int, n int) []K {
	list := make([]counted[K], 0, len(counts))
	for k, c := range counts {
		list = append(list, counted[K]{k, c})
	}
	slices.SortFunc(list, func(a, b counted[K]) int {
		if a.n != b.n {
			return cmp.Compare(b.n, a.n)
		}
		return cmp.Compare(a.key, b.key)
	})
	if len(list) > n {
		list = list[:n]
	}
	keys := make([]K, len(list))
	for i, c := range list {
		keys[i] = c.key
	}
	return keys
}

// Recommend 根据点赞过的图片分类和收藏过的图片标签推荐他人的公开图片。
// "其他" 分类和哨兵标签不构成偏好。
func (s *feedService) Recommend(ctx context.Context, userID uint) (*Recommendation, error) {
	likedIDs, err := s.repos.Like.ListObjectIDsByUser(ctx, userID, constant.LikeTypeImage)
	if err != nil {
		return nil, fmt.Errorf("查询点赞记录失败: %w", err)
	}
	liked, err := s.repos.Image.FindByIDs(ctx, likedIDs)
	if err != nil {
		return nil, fmt.Errorf("查询点赞图片失败: %w", err)
	}
	categoryCounts := make(map[constant.Category]int)
	for _, img := range liked {
		if img.Category != constant.CategoryOther {
			categoryCounts[img.Category]++
		}
	}

	favIDs, err := s.repos.Favorite.ListImageIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询收藏记录失败: %w", err)
	}
	favorited, err := s.repos.Image.FindByIDs(ctx, favIDs)
	if err != nil {
		return nil, fmt.Errorf("查询收藏图片失败: %w", err)
	}
	tagCounts := make(map[uint]int)
	for _, img := range favorited {
		for _, id := range img.AITagIDs {
			if id != constant.SentinelTagID {
				tagCounts[id]++
			}
		}
	}

	topCategories := topN(categoryCounts, constant.RecommendTopCategories)
	topTagIDs := topN(tagCounts, constant.RecommendTopTags)

	candidates, err := s.recommendCandidates(ctx, userID, topCategories, topTagIDs)
	if err != nil {
		return nil, err
	}

	tags, err := s.repos.Tag.FindByIDs(ctx, topTagIDs)
	if err != nil {
		return nil, fmt.Errorf("查询标签失败: %w", err)
	}
	names := make(map[uint]string, len(tags))
	for _, t := range tags {
		names[t.ID] = t.Name
	}
	basedOn := BasedOn{Categories: topCategories, Tags: make([]string, 0, len(topTagIDs))}
	for _, id := range topTagIDs {
		if name, ok := names[id]; ok {
			basedOn.Tags = append(basedOn.Tags, name)
		}
	}

	return &Recommendation{Images: candidates, BasedOn: basedOn}, nil
}

// recommendCandidates 在全部候选中随机抽取，不受分页上限影响
func (s *feedService) recommendCandidates(ctx context.Context, userID uint, categories []constant.Category, tagIDs []uint) ([]*model.Image, error) {
	public := true
	q := repository.ImageListParams{
		IsPublic:   &public,
		ExcludeOwn: userID,
		Categories: categories,
	}

	var (
		ids []uint
		err error
	)
	if len(tagIDs) > 0 {
		narrowed := q
		narrowed.AITagIDs = tagIDs
		if ids, err = s.repos.Image.ListIDs(ctx, narrowed); err != nil {
			return nil, fmt.Errorf("查询推荐候选失败: %w", err)
		}
	}
	// 标签过滤后没有候选时退回到只按分类过滤
	if len(ids) == 0 {
		if ids, err = s.repos.Image.ListIDs(ctx, q); err != nil {
			return nil, fmt.Errorf("查询推荐候选失败: %w", err)
		}
	}

	s.shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	if len(ids) > constant.RecommendationSize {
		ids = ids[:constant.RecommendationSize]
	}

	images, err := s.repos.Image.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询推荐图片失败: %w", err)
	}
	byID := make(map[uint]*model.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	// 保持抽取后的顺序
	ordered := make([]*model.Image, 0, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			ordered = append(ordered, img)
		}
	}
	return ordered, nil
}
