// internal/infra/persistence/ent/favorite_repo.go
package ent

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableFavorites = "favorites"

var favoriteColumns = []string{"id", "user_id", "image_id", "created_at"}

type favoriteRepo struct {
	base
}

func NewFavoriteRepo(db execQuerier, dbType string) repository.FavoriteRepository {
	return &favoriteRepo{base: newBase(db, dbType)}
}

func (r *favoriteRepo) Find(ctx context.Context, userID, imageID uint) (*model.Favorite, error) {
	t := r.builder().Table(tableFavorites)
	favs, err := r.scanList(ctx, r.builder().Select(columns(t, favoriteColumns)...).From(t).Where(entsql.And(
		entsql.EQ(t.C("user_id"), userID),
		entsql.EQ(t.C("image_id"), imageID),
	)))
	if err != nil {
		return nil, err
	}
	if len(favs) == 0 {
		return nil, repository.ErrNotFound
	}
	return favs[0], nil
}

func (r *favoriteRepo) Create(ctx context.Context, userID, imageID uint) (*model.Favorite, error) {
	ts := now()
	id, err := r.insert(ctx, r.builder().Insert(tableFavorites).
		Columns("user_id", "image_id", "created_at").
		Values(userID, imageID, ts))
	if err != nil {
		return nil, fmt.Errorf("收藏失败: %w", err)
	}
	return &model.Favorite{ID: id, UserID: userID, ImageID: imageID, CreatedAt: ts}, nil
}

func (r *favoriteRepo) Delete(ctx context.Context, userID, imageID uint) (bool, error) {
	n, err := r.execAffected(ctx, r.builder().Delete(tableFavorites).Where(entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("image_id", imageID),
	)))
	if err != nil {
		return false, fmt.Errorf("取消收藏失败: %w", err)
	}
	return n > 0, nil
}

func (r *favoriteRepo) DeleteByImage(ctx context.Context, imageID uint) error {
	if _, err := r.exec(ctx, r.builder().Delete(tableFavorites).Where(entsql.EQ("image_id", imageID))); err != nil {
		return fmt.Errorf("删除图片收藏记录失败: %w", err)
	}
	return nil
}

func (r *favoriteRepo) ListByUser(ctx context.Context, userID uint, page repository.PageQuery) ([]*model.Favorite, int64, error) {
	page = page.Normalize(20)
	ct := r.builder().Table(tableFavorites)
	total, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(ct).Where(entsql.EQ(ct.C("user_id"), userID)))
	if err != nil {
		return nil, 0, err
	}
	t := r.builder().Table(tableFavorites)
	favs, err := r.scanList(ctx, r.builder().Select(columns(t, favoriteColumns)...).From(t).
		Where(entsql.EQ(t.C("user_id"), userID)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	return favs, total, nil
}

func (r *favoriteRepo) ListImageIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	t := r.builder().Table(tableFavorites)
	return r.queryIDs(ctx, r.builder().Select(t.C("image_id")).From(t).
		Where(entsql.EQ(t.C("user_id"), userID)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))))
}

func (r *favoriteRepo) scanList(ctx context.Context, sel *entsql.Selector) ([]*model.Favorite, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询收藏失败: %w", err)
	}
	defer rows.Close()
	favs := make([]*model.Favorite, 0)
	for rows.Next() {
		var id, userID, imageID int64
		var created scanTime
		if err := rows.Scan(&id, &userID, &imageID, &created); err != nil {
			return nil, fmt.Errorf("扫描收藏失败: %w", err)
		}
		favs = append(favs, &model.Favorite{ID: uint(id), UserID: uint(userID), ImageID: uint(imageID), CreatedAt: created.Time})
	}
	return favs, rows.Err()
}
