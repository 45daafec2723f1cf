// internal/infra/persistence/ent/image_repo.go
package ent

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/goccy/go-json"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const (
	tableImages    = "images"
	tableImageTags = "image_tags"
)

var imageColumns = []string{
	"id", "owner_id", "url", "object_key", "title", "category_id",
	"colors", "user_tags", "is_public", "created_at", "updated_at", "ai_description",
}

type imageRepo struct {
	base
}

// NewImageRepo 创建图片仓库，db 可以是连接池或事务
func NewImageRepo(db execQuerier, dbType string) repository.ImageRepository {
	return &imageRepo{base: newBase(db, dbType)}
}

func (r *imageRepo) Create(ctx context.Context, params *repository.CreateImageParams) (*model.Image, error) {
	colors, err := encodeStrings(params.Colors)
	if err != nil {
		return nil, err
	}
	userTags, _ := encodeStrings(nil)
	ts := now()

	ib := r.builder().Insert(tableImages).
		Columns("owner_id", "url", "object_key", "title", "category_id", "colors", "user_tags", "is_public", "created_at", "updated_at").
		Values(params.OwnerID, params.URL, params.ObjectKey, params.Title, int(params.Category), colors, userTags, params.IsPublic, ts, ts)
	id, err := r.insert(ctx, ib)
	if err != nil {
		return nil, fmt.Errorf("创建图片失败: %w", err)
	}

	tagIDs := dedupeIDs(params.AITagIDs)
	if len(tagIDs) > 0 {
		tb := r.builder().Insert(tableImageTags).Columns("image_id", "tag_id")
		for _, tagID := range tagIDs {
			tb.Values(id, tagID)
		}
		if _, err := r.exec(ctx, tb); err != nil {
			return nil, fmt.Errorf("写入图片标签失败: %w", err)
		}
	}

	return &model.Image{
		ID:        id,
		OwnerID:   params.OwnerID,
		URL:       params.URL,
		ObjectKey: params.ObjectKey,
		Title:     params.Title,
		Category:  params.Category,
		Colors:    append([]string{}, params.Colors...),
		AITagIDs:  tagIDs,
		UserTags:  []string{},
		IsPublic:  params.IsPublic,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

func (r *imageRepo) FindByID(ctx context.Context, id uint) (*model.Image, error) {
	t := r.builder().Table(tableImages)
	sel := r.selectImages(t).Where(entsql.EQ(t.C("id"), id))
	images, err := r.scanList(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, repository.ErrNotFound
	}
	return images[0], nil
}

// FindByIDForUpdate 在事务中读取并锁定图片行。SQLite 的事务以 IMMEDIATE 开启，已持有写锁
func (r *imageRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Image, error) {
	t := r.builder().Table(tableImages)
	sel := r.selectImages(t).Where(entsql.EQ(t.C("id"), id))
	if r.dialect != dialect.SQLite {
		sel.ForUpdate(entsql.WithLockTables(tableImages))
	}
	images, err := r.scanList(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, repository.ErrNotFound
	}
	return images[0], nil
}

func (r *imageRepo) FindByIDs(ctx context.Context, ids []uint) ([]*model.Image, error) {
	if len(ids) == 0 {
		return []*model.Image{}, nil
	}
	t := r.builder().Table(tableImages)
	return r.scanList(ctx, r.selectImages(t).Where(entsql.In(t.C("id"), toAny(ids)...)))
}

func (r *imageRepo) Exists(ctx context.Context, id uint) (bool, error) {
	t := r.builder().Table(tableImages)
	n, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(entsql.EQ(t.C("id"), id)))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *imageRepo) UpdateMeta(ctx context.Context, id uint, title *string, isPublic *bool) (*model.Image, error) {
	ub := r.builder().Update(tableImages).Set("updated_at", now())
	if title != nil {
		ub.Set("title", *title)
	}
	if isPublic != nil {
		ub.Set("is_public", *isPublic)
	}
	n, err := r.execAffected(ctx, ub.Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("更新图片失败: %w", err)
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *imageRepo) SetUserTags(ctx context.Context, id uint, tags []string) error {
	raw, err := encodeStrings(tags)
	if err != nil {
		return err
	}
	n, err := r.execAffected(ctx, r.builder().Update(tableImages).
		Set("user_tags", raw).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("更新用户标签失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *imageRepo) SetAIDescription(ctx context.Context, id uint, description string) error {
	n, err := r.execAffected(ctx, r.builder().Update(tableImages).
		Set("ai_description", description).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("保存图片描述失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *imageRepo) Delete(ctx context.Context, id uint) error {
	if _, err := r.exec(ctx, r.builder().Delete(tableImageTags).Where(entsql.EQ("image_id", id))); err != nil {
		return fmt.Errorf("删除图片标签失败: %w", err)
	}
	n, err := r.execAffected(ctx, r.builder().Delete(tableImages).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("删除图片失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *imageRepo) List(ctx context.Context, params repository.ImageListParams) ([]*model.Image, int64, error) {
	page := params.PageQuery.Normalize(constant.DefaultPageSize)

	ct := r.builder().Table(tableImages)
	countSel := r.builder().Select(entsql.Count("*")).From(ct)
	if p := r.listPredicate(ct, params); p != nil {
		countSel.Where(p)
	}
	total, err := r.count(ctx, countSel)
	if err != nil {
		return nil, 0, fmt.Errorf("统计图片数量失败: %w", err)
	}

	t := r.builder().Table(tableImages)
	sel := r.selectImages(t)
	if p := r.listPredicate(t, params); p != nil {
		sel.Where(p)
	}
	if params.OrderBy == repository.OrderByLikes {
		sel.OrderExpr(entsql.Expr("like_count DESC"))
	}
	sel.OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset())

	images, err := r.scanList(ctx, sel)
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

func (r *imageRepo) ListIDs(ctx context.Context, params repository.ImageListParams) ([]uint, error) {
	t := r.builder().Table(tableImages)
	sel := r.builder().Select(t.C("id")).From(t)
	if p := r.listPredicate(t, params); p != nil {
		sel.Where(p)
	}
	ids, err := r.queryIDs(ctx, sel.OrderBy(entsql.Asc(t.C("id"))))
	if err != nil {
		return nil, fmt.Errorf("查询图片ID失败: %w", err)
	}
	return ids, nil
}

func (r *imageRepo) ListFeed(ctx context.Context, viewerID uint, page repository.PageQuery) ([]*model.Image, int64, error) {
	page = page.Normalize(constant.FeedPageSize)

	feedPredicate := func(t *entsql.SelectTable) *entsql.Predicate {
		f := r.builder().Table(tableFollows)
		followees := r.builder().Select(f.C("followee_id")).From(f).Where(entsql.EQ(f.C("follower_id"), viewerID))
		return entsql.Or(
			entsql.EQ(t.C("owner_id"), viewerID),
			entsql.And(
				entsql.EQ(t.C("is_public"), true),
				entsql.In(t.C("owner_id"), followees),
			),
		)
	}

	ct := r.builder().Table(tableImages)
	total, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(ct).Where(feedPredicate(ct)))
	if err != nil {
		return nil, 0, fmt.Errorf("统计时间线失败: %w", err)
	}

	t := r.builder().Table(tableImages)
	sel := r.selectImages(t).
		Where(feedPredicate(t)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset())
	images, err := r.scanList(ctx, sel)
	if err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

// selectImages 选择图片列并附带点赞数子查询
func (r *imageRepo) selectImages(t *entsql.SelectTable) *entsql.Selector {
	l := r.builder().Table(tableLikes)
	likeCount := r.builder().Select(entsql.Count("*")).From(l).Where(entsql.And(
		entsql.EQ(l.C("like_type"), string(constant.LikeTypeImage)),
		entsql.ColumnsEQ(l.C("object_id"), t.C("id")),
	))
	return r.builder().Select(columns(t, imageColumns)...).
		AppendSelectExprAs(likeCount, "like_count").
		From(t)
}

func (r *imageRepo) listPredicate(t *entsql.SelectTable, p repository.ImageListParams) *entsql.Predicate {
	var preds []*entsql.Predicate
	if p.OwnerID != nil {
		preds = append(preds, entsql.EQ(t.C("owner_id"), *p.OwnerID))
	}
	if p.IsPublic != nil {
		preds = append(preds, entsql.EQ(t.C("is_public"), *p.IsPublic))
	}
	if p.Category != nil {
		preds = append(preds, entsql.EQ(t.C("category_id"), int(*p.Category)))
	}
	if len(p.Categories) > 0 {
		cats := make([]any, len(p.Categories))
		for i, c := range p.Categories {
			cats[i] = int(c)
		}
		preds = append(preds, entsql.In(t.C("category_id"), cats...))
	}
	if p.ExcludeID != nil {
		preds = append(preds, entsql.NEQ(t.C("id"), *p.ExcludeID))
	}
	if p.ExcludeOwn != 0 {
		preds = append(preds, entsql.NEQ(t.C("owner_id"), p.ExcludeOwn))
	}
	if len(p.AITagIDs) > 0 {
		it := r.builder().Table(tableImageTags)
		sub := r.builder().Select(it.C("image_id")).From(it).
			Where(entsql.In(it.C("tag_id"), toAny(p.AITagIDs)...))
		preds = append(preds, entsql.In(t.C("id"), sub))
	}
	if len(p.TagNames) > 0 {
		it := r.builder().Table(tableImageTags)
		tg := r.builder().Table(tableTags)
		sub := r.builder().Select(it.C("image_id")).From(it).
			Join(tg).On(it.C("tag_id"), tg.C("id")).
			Where(entsql.In(tg.C("name"), toAny(p.TagNames)...))
		anyTag := []*entsql.Predicate{entsql.In(t.C("id"), sub)}
		for _, name := range p.TagNames {
			quoted, err := json.Marshal(name)
			if err != nil {
				continue
			}
			anyTag = append(anyTag, entsql.Contains(t.C("user_tags"), string(quoted)))
		}
		preds = append(preds, entsql.Or(anyTag...))
	}
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return entsql.And(preds...)
	}
}

func (r *imageRepo) scanList(ctx context.Context, sel *entsql.Selector) ([]*model.Image, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}
	images := make([]*model.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.attachTags(ctx, images); err != nil {
		return nil, err
	}
	return images, nil
}

// attachTags 批量加载 AI 标签
func (r *imageRepo) attachTags(ctx context.Context, images []*model.Image) error {
	if len(images) == 0 {
		return nil
	}
	ids := make([]uint, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	tagIDs, err := loadImageTagIDs(ctx, r.base, ids)
	if err != nil {
		return err
	}
	for _, img := range images {
		img.AITagIDs = tagIDs[img.ID]
		if img.AITagIDs == nil {
			img.AITagIDs = []uint{}
		}
	}
	return nil
}

func loadImageTagIDs(ctx context.Context, b base, imageIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(imageIDs))
	if len(imageIDs) == 0 {
		return result, nil
	}
	it := b.builder().Table(tableImageTags)
	sel := b.builder().Select(it.C("image_id"), it.C("tag_id")).From(it).
		Where(entsql.In(it.C("image_id"), toAny(imageIDs)...)).
		OrderBy(it.C("id"))
	rows, err := b.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询图片标签失败: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var imageID, tagID int64
		if err := rows.Scan(&imageID, &tagID); err != nil {
			return nil, fmt.Errorf("扫描图片标签失败: %w", err)
		}
		result[uint(imageID)] = append(result[uint(imageID)], uint(tagID))
	}
	return result, rows.Err()
}

func scanImage(rows *sql.Rows) (*model.Image, error) {
	var (
		img                model.Image
		id, ownerID, cat   int64
		colors, userTags   string
		createdAt, updated scanTime
		description        sql.NullString
		likeCount          sql.NullInt64
	)
	if err := rows.Scan(&id, &ownerID, &img.URL, &img.ObjectKey, &img.Title, &cat,
		&colors, &userTags, &img.IsPublic, &createdAt, &updated, &description, &likeCount); err != nil {
		return nil, fmt.Errorf("扫描图片失败: %w", err)
	}
	img.ID = uint(id)
	img.OwnerID = uint(ownerID)
	img.Category = constant.Category(cat)
	img.Colors = decodeStrings(colors)
	img.UserTags = decodeStrings(userTags)
	img.CreatedAt = createdAt.Time
	img.UpdatedAt = updated.Time
	img.AIDescription = description.String
	img.LikeCount = int(likeCount.Int64)
	return &img, nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
