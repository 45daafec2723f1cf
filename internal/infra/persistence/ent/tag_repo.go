// internal/infra/persistence/ent/tag_repo.go
package ent

import (
	"context"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableTags = "tags"

type tagRepo struct {
	base
}

func NewTagRepo(db execQuerier, dbType string) repository.TagRepository {
	return &tagRepo{base: newBase(db, dbType)}
}

func (r *tagRepo) FindAll(ctx context.Context) ([]*model.Tag, error) {
	t := r.builder().Table(tableTags)
	return r.scan(ctx, r.builder().Select(t.C("id"), t.C("name")).From(t).OrderBy(t.C("id")))
}

func (r *tagRepo) FindByIDs(ctx context.Context, ids []uint) ([]*model.Tag, error) {
	if len(ids) == 0 {
		return []*model.Tag{}, nil
	}
	t := r.builder().Table(tableTags)
	return r.scan(ctx, r.builder().Select(t.C("id"), t.C("name")).From(t).
		Where(entsql.In(t.C("id"), toAny(ids)...)).
		OrderBy(t.C("id")))
}

func (r *tagRepo) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	t := r.builder().Table(tableTags)
	tags, err := r.scan(ctx, r.builder().Select(t.C("id"), t.C("name")).From(t).Where(entsql.EQ(t.C("name"), name)))
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, repository.ErrNotFound
	}
	return tags[0], nil
}

// Create 取当前最大 id + 1 作为新标签的 id
func (r *tagRepo) Create(ctx context.Context, name string) (*model.Tag, error) {
	t := r.builder().Table(tableTags)
	var maxID *int64
	query, args := r.builder().Select("MAX(" + t.C("id") + ")").From(t).Query()
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("查询最大标签ID失败: %w", err)
	}
	nextID := uint(0)
	if maxID != nil {
		nextID = uint(*maxID) + 1
	}
	if _, err := r.exec(ctx, r.builder().Insert(tableTags).Columns("id", "name").Values(nextID, name)); err != nil {
		return nil, fmt.Errorf("创建标签失败: %w", err)
	}
	return &model.Tag{ID: nextID, Name: name}, nil
}

func (r *tagRepo) Upsert(ctx context.Context, tag *model.Tag) (bool, error) {
	n, err := r.execAffected(ctx, r.builder().Update(tableTags).Set("name", tag.Name).Where(entsql.EQ("id", tag.ID)))
	if err != nil {
		return false, fmt.Errorf("更新标签 %d 失败: %w", tag.ID, err)
	}
	if n > 0 {
		return false, nil
	}
	// MySQL 在值未变化时返回 0 行，需再确认是否存在
	t := r.builder().Table(tableTags)
	cnt, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(entsql.EQ(t.C("id"), tag.ID)))
	if err != nil {
		return false, err
	}
	if cnt > 0 {
		return false, nil
	}
	if _, err := r.exec(ctx, r.builder().Insert(tableTags).Columns("id", "name").Values(tag.ID, tag.Name)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, fmt.Errorf("标签名 '%s' 已被其他标签使用: %w", tag.Name, err)
		}
		return false, fmt.Errorf("创建标签 %d 失败: %w", tag.ID, err)
	}
	return true, nil
}

func (r *tagRepo) FindImageTagIDs(ctx context.Context, imageIDs []uint) (map[uint][]uint, error) {
	return loadImageTagIDs(ctx, r.base, imageIDs)
}

func (r *tagRepo) scan(ctx context.Context, sel *entsql.Selector) ([]*model.Tag, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询标签失败: %w", err)
	}
	defer rows.Close()
	tags := make([]*model.Tag, 0)
	for rows.Next() {
		var id int64
		var tag model.Tag
		if err := rows.Scan(&id, &tag.Name); err != nil {
			return nil, fmt.Errorf("扫描标签失败: %w", err)
		}
		tag.ID = uint(id)
		tags = append(tags, &tag)
	}
	return tags, rows.Err()
}
