// internal/infra/persistence/ent/comment_repo.go
package ent

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableComments = "comments"

var commentColumns = []string{
	"id", "author_id", "album_id", "image_id", "parent_id", "body", "is_deleted", "created_at", "updated_at",
}

type commentRepo struct {
	base
}

func NewCommentRepo(db execQuerier, dbType string) repository.CommentRepository {
	return &commentRepo{base: newBase(db, dbType)}
}

func (r *commentRepo) Create(ctx context.Context, params *repository.CreateCommentParams) (*model.Comment, error) {
	ts := now()
	id, err := r.insert(ctx, r.builder().Insert(tableComments).
		Columns("author_id", "album_id", "image_id", "parent_id", "body", "is_deleted", "created_at", "updated_at").
		Values(params.AuthorID, uintOrNil(params.AlbumID), uintOrNil(params.ImageID), uintOrNil(params.ParentID), params.Body, false, ts, ts))
	if err != nil {
		return nil, fmt.Errorf("创建评论失败: %w", err)
	}
	return &model.Comment{
		ID:        id,
		AuthorID:  params.AuthorID,
		AlbumID:   params.AlbumID,
		ImageID:   params.ImageID,
		ParentID:  params.ParentID,
		Body:      params.Body,
		CreatedAt: ts,
		UpdatedAt: ts,
		Replies:   []*model.Comment{},
	}, nil
}

func (r *commentRepo) FindByID(ctx context.Context, id uint) (*model.Comment, error) {
	t := r.builder().Table(tableComments)
	comments, err := r.scanList(ctx, r.builder().Select(columns(t, commentColumns)...).From(t).Where(entsql.EQ(t.C("id"), id)))
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, repository.ErrNotFound
	}
	return comments[0], nil
}

func (r *commentRepo) Exists(ctx context.Context, id uint) (bool, error) {
	t := r.builder().Table(tableComments)
	n, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(entsql.EQ(t.C("id"), id)))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *commentRepo) rootPredicate(t *entsql.SelectTable, params repository.CommentListParams) *entsql.Predicate {
	preds := []*entsql.Predicate{
		entsql.IsNull(t.C("parent_id")),
		entsql.EQ(t.C("is_deleted"), false),
	}
	if params.AlbumID != nil {
		preds = append(preds, entsql.EQ(t.C("album_id"), *params.AlbumID))
	}
	if params.ImageID != nil {
		preds = append(preds, entsql.EQ(t.C("image_id"), *params.ImageID))
	}
	preds = append(preds, r.visiblePredicate(t, params.ViewerID)...)
	return entsql.And(preds...)
}

// visiblePredicate 所属图片和相册必须公开或属于 viewer
func (r *commentRepo) visiblePredicate(t *entsql.SelectTable, viewerID uint) []*entsql.Predicate {
	visible := func(table string) *entsql.Selector {
		v := r.builder().Table(table)
		return r.builder().Select(v.C("id")).From(v).Where(entsql.Or(
			entsql.EQ(v.C("is_public"), true),
			entsql.EQ(v.C("owner_id"), viewerID),
		))
	}
	return []*entsql.Predicate{
		entsql.Or(entsql.IsNull(t.C("image_id")), entsql.In(t.C("image_id"), visible(tableImages))),
		entsql.Or(entsql.IsNull(t.C("album_id")), entsql.In(t.C("album_id"), visible(tableAlbums))),
	}
}

func (r *commentRepo) ListRoots(ctx context.Context, params repository.CommentListParams) ([]*model.Comment, int64, error) {
	page := params.PageQuery.Normalize(20)

	ct := r.builder().Table(tableComments)
	total, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(ct).Where(r.rootPredicate(ct, params)))
	if err != nil {
		return nil, 0, fmt.Errorf("统计评论失败: %w", err)
	}

	t := r.builder().Table(tableComments)
	comments, err := r.scanList(ctx, r.builder().Select(columns(t, commentColumns)...).From(t).
		Where(r.rootPredicate(t, params)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *commentRepo) ListReplies(ctx context.Context, parentID uint, limit int) ([]*model.Comment, error) {
	t := r.builder().Table(tableComments)
	sel := r.builder().Select(columns(t, commentColumns)...).From(t).
		Where(entsql.And(entsql.EQ(t.C("parent_id"), parentID), entsql.EQ(t.C("is_deleted"), false))).
		OrderBy(t.C("created_at"), t.C("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return r.scanList(ctx, sel)
}

func (r *commentRepo) CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}
	t := r.builder().Table(tableComments)
	sel := r.builder().Select(t.C("parent_id"), entsql.Count("*")).From(t).
		Where(entsql.And(
			entsql.In(t.C("parent_id"), toAny(parentIDs)...),
			entsql.EQ(t.C("is_deleted"), false),
		)).
		GroupBy(t.C("parent_id"))
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("统计回复数失败: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var parentID, n int64
		if err := rows.Scan(&parentID, &n); err != nil {
			return nil, fmt.Errorf("扫描回复数失败: %w", err)
		}
		counts[uint(parentID)] = int(n)
	}
	return counts, rows.Err()
}

func (r *commentRepo) SoftDelete(ctx context.Context, id uint) error {
	n, err := r.execAffected(ctx, r.builder().Update(tableComments).
		Set("is_deleted", true).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("删除评论失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *commentRepo) DeleteByImage(ctx context.Context, imageID uint) ([]uint, error) {
	ids, err := r.deleteByTarget(ctx, "image_id", imageID)
	if err != nil {
		return nil, fmt.Errorf("删除图片评论失败: %w", err)
	}
	return ids, nil
}

func (r *commentRepo) DeleteByAlbum(ctx context.Context, albumID uint) ([]uint, error) {
	ids, err := r.deleteByTarget(ctx, "album_id", albumID)
	if err != nil {
		return nil, fmt.Errorf("删除相册评论失败: %w", err)
	}
	return ids, nil
}

func (r *commentRepo) deleteByTarget(ctx context.Context, column string, id uint) ([]uint, error) {
	t := r.builder().Table(tableComments)
	ids, err := r.queryIDs(ctx, r.builder().Select(t.C("id")).From(t).Where(entsql.EQ(t.C(column), id)))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if _, err := r.exec(ctx, r.builder().Delete(tableComments).Where(entsql.In("id", toAny(ids)...))); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *commentRepo) scanList(ctx context.Context, sel *entsql.Selector) ([]*model.Comment, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	defer rows.Close()
	comments := make([]*model.Comment, 0)
	for rows.Next() {
		var (
			id, authorID               int64
			albumID, imageID, parentID sql.NullInt64
			body                       string
			deleted                    bool
			created, updated           scanTime
		)
		if err := rows.Scan(&id, &authorID, &albumID, &imageID, &parentID, &body, &deleted, &created, &updated); err != nil {
			return nil, fmt.Errorf("扫描评论失败: %w", err)
		}
		comments = append(comments, &model.Comment{
			ID:        uint(id),
			AuthorID:  uint(authorID),
			AlbumID:   nullableUint(albumID),
			ImageID:   nullableUint(imageID),
			ParentID:  nullableUint(parentID),
			Body:      body,
			IsDeleted: deleted,
			CreatedAt: created.Time,
			UpdatedAt: updated.Time,
			Replies:   []*model.Comment{},
		})
	}
	return comments, rows.Err()
}
