// internal/infra/persistence/ent/album_repo.go
package ent

import (
	"context"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const (
	tableAlbums      = "albums"
	tableAlbumImages = "album_images"
)

var albumColumns = []string{"id", "owner_id", "title", "description", "is_public", "created_at", "updated_at"}

type albumRepo struct {
	base
}

func NewAlbumRepo(db execQuerier, dbType string) repository.AlbumRepository {
	return &albumRepo{base: newBase(db, dbType)}
}

func (r *albumRepo) Create(ctx context.Context, params *repository.CreateAlbumParams) (*model.Album, error) {
	ts := now()
	id, err := r.insert(ctx, r.builder().Insert(tableAlbums).
		Columns("owner_id", "title", "description", "is_public", "created_at", "updated_at").
		Values(params.OwnerID, params.Title, params.Description, params.IsPublic, ts, ts))
	if err != nil {
		return nil, fmt.Errorf("创建相册失败: %w", err)
	}
	return &model.Album{
		ID:          id,
		OwnerID:     params.OwnerID,
		Title:       params.Title,
		Description: params.Description,
		IsPublic:    params.IsPublic,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// GetOrCreate 先插入，撞上 (owner_id, title) 唯一索引后再查询已存在的行
func (r *albumRepo) GetOrCreate(ctx context.Context, params *repository.CreateAlbumParams) (*model.Album, bool, error) {
	if album, err := r.findByOwnerTitle(ctx, params.OwnerID, params.Title); err == nil {
		return album, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	album, err := r.Create(ctx, params)
	if err == nil {
		return album, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, false, err
	}
	// 并发请求已经创建了同名相册
	album, err = r.findByOwnerTitle(ctx, params.OwnerID, params.Title)
	if err != nil {
		return nil, false, err
	}
	return album, false, nil
}

func (r *albumRepo) findByOwnerTitle(ctx context.Context, ownerID uint, title string) (*model.Album, error) {
	t := r.builder().Table(tableAlbums)
	albums, err := r.scanList(ctx, r.selectAlbums(t).Where(entsql.And(
		entsql.EQ(t.C("owner_id"), ownerID),
		entsql.EQ(t.C("title"), title),
	)))
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, repository.ErrNotFound
	}
	return albums[0], nil
}

func (r *albumRepo) FindByID(ctx context.Context, id uint) (*model.Album, error) {
	t := r.builder().Table(tableAlbums)
	albums, err := r.scanList(ctx, r.selectAlbums(t).Where(entsql.EQ(t.C("id"), id)))
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, repository.ErrNotFound
	}
	return albums[0], nil
}

func (r *albumRepo) Exists(ctx context.Context, id uint) (bool, error) {
	t := r.builder().Table(tableAlbums)
	n, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(entsql.EQ(t.C("id"), id)))
	return n > 0, err
}

func (r *albumRepo) ListByOwner(ctx context.Context, ownerID uint, onlyPublic bool, page repository.PageQuery) ([]*model.Album, int64, error) {
	page = page.Normalize(10)
	pred := func(t *entsql.SelectTable) *entsql.Predicate {
		p := entsql.EQ(t.C("owner_id"), ownerID)
		if onlyPublic {
			p = entsql.And(p, entsql.EQ(t.C("is_public"), true))
		}
		return p
	}
	ct := r.builder().Table(tableAlbums)
	total, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(ct).Where(pred(ct)))
	if err != nil {
		return nil, 0, fmt.Errorf("统计相册数量失败: %w", err)
	}
	t := r.builder().Table(tableAlbums)
	albums, err := r.scanList(ctx, r.selectAlbums(t).Where(pred(t)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	return albums, total, nil
}

func (r *albumRepo) Update(ctx context.Context, id uint, params *repository.UpdateAlbumParams) (*model.Album, error) {
	ub := r.builder().Update(tableAlbums).Set("updated_at", now())
	if params.Title != nil {
		ub.Set("title", *params.Title)
	}
	if params.Description != nil {
		ub.Set("description", *params.Description)
	}
	if params.IsPublic != nil {
		ub.Set("is_public", *params.IsPublic)
	}
	n, err := r.execAffected(ctx, ub.Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("更新相册失败: %w", err)
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *albumRepo) Delete(ctx context.Context, id uint) error {
	if _, err := r.exec(ctx, r.builder().Delete(tableAlbumImages).Where(entsql.EQ("album_id", id))); err != nil {
		return fmt.Errorf("删除相册图片关联失败: %w", err)
	}
	n, err := r.execAffected(ctx, r.builder().Delete(tableAlbums).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("删除相册失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *albumRepo) AddImage(ctx context.Context, albumID, imageID uint) error {
	_, err := r.exec(ctx, r.builder().Insert(tableAlbumImages).
		Columns("album_id", "image_id", "created_at").
		Values(albumID, imageID, now()))
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("添加图片到相册失败: %w", err)
	}
	return nil
}

func (r *albumRepo) RemoveImage(ctx context.Context, albumID, imageID uint) error {
	n, err := r.execAffected(ctx, r.builder().Delete(tableAlbumImages).Where(entsql.And(
		entsql.EQ("album_id", albumID),
		entsql.EQ("image_id", imageID),
	)))
	if err != nil {
		return fmt.Errorf("从相册移除图片失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *albumRepo) RemoveImageFromAll(ctx context.Context, imageID uint) error {
	if _, err := r.exec(ctx, r.builder().Delete(tableAlbumImages).Where(entsql.EQ("image_id", imageID))); err != nil {
		return fmt.Errorf("移除图片的相册关联失败: %w", err)
	}
	return nil
}

func (r *albumRepo) ListImageIDs(ctx context.Context, albumID uint) ([]uint, error) {
	t := r.builder().Table(tableAlbumImages)
	return r.queryIDs(ctx, r.builder().Select(t.C("image_id")).From(t).
		Where(entsql.EQ(t.C("album_id"), albumID)).
		OrderBy(entsql.Desc(t.C("id"))))
}

// selectAlbums 选择相册列并附带图片数量
func (r *albumRepo) selectAlbums(t *entsql.SelectTable) *entsql.Selector {
	ai := r.builder().Table(tableAlbumImages)
	imageCount := r.builder().Select(entsql.Count("*")).From(ai).
		Where(entsql.ColumnsEQ(ai.C("album_id"), t.C("id")))
	return r.builder().Select(columns(t, albumColumns)...).
		AppendSelectExprAs(imageCount, "image_count").
		From(t)
}

func (r *albumRepo) scanList(ctx context.Context, sel *entsql.Selector) ([]*model.Album, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询相册失败: %w", err)
	}
	defer rows.Close()
	albums := make([]*model.Album, 0)
	for rows.Next() {
		var (
			a                  model.Album
			id, ownerID, count int64
			created, updated   scanTime
		)
		if err := rows.Scan(&id, &ownerID, &a.Title, &a.Description, &a.IsPublic, &created, &updated, &count); err != nil {
			return nil, fmt.Errorf("扫描相册失败: %w", err)
		}
		a.ID = uint(id)
		a.OwnerID = uint(ownerID)
		a.ImageCount = int(count)
		a.CreatedAt = created.Time
		a.UpdatedAt = updated.Time
		albums = append(albums, &a)
	}
	return albums, rows.Err()
}
