// internal/infra/persistence/ent/like_repo.go
package ent

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableLikes = "likes"

type likeRepo struct {
	base
}

func NewLikeRepo(db execQuerier, dbType string) repository.LikeRepository {
	return &likeRepo{base: newBase(db, dbType)}
}

func targetPredicate(t *entsql.SelectTable, target model.LikeTarget) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(t.C("like_type"), string(target.Type)),
		entsql.EQ(t.C("object_id"), target.ObjectID),
	)
}

func (r *likeRepo) Find(ctx context.Context, userID uint, target model.LikeTarget) (*model.Like, error) {
	t := r.builder().Table(tableLikes)
	sel := r.builder().Select(t.C("id"), t.C("created_at")).From(t).
		Where(entsql.And(entsql.EQ(t.C("user_id"), userID), targetPredicate(t, target)))
	query, args := sel.Query()
	var id int64
	var created scanTime
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id, &created); err != nil {
		return nil, convertErr(err)
	}
	return &model.Like{ID: uint(id), UserID: userID, Target: target, CreatedAt: created.Time}, nil
}

func (r *likeRepo) Create(ctx context.Context, userID uint, target model.LikeTarget) (*model.Like, error) {
	ts := now()
	id, err := r.insert(ctx, r.builder().Insert(tableLikes).
		Columns("user_id", "like_type", "object_id", "created_at").
		Values(userID, string(target.Type), target.ObjectID, ts))
	if err != nil {
		return nil, fmt.Errorf("点赞失败: %w", err)
	}
	return &model.Like{ID: id, UserID: userID, Target: target, CreatedAt: ts}, nil
}

func (r *likeRepo) Delete(ctx context.Context, userID uint, target model.LikeTarget) (bool, error) {
	n, err := r.execAffected(ctx, r.builder().Delete(tableLikes).Where(entsql.And(
		entsql.EQ("user_id", userID),
		entsql.EQ("like_type", string(target.Type)),
		entsql.EQ("object_id", target.ObjectID),
	)))
	if err != nil {
		return false, fmt.Errorf("取消点赞失败: %w", err)
	}
	return n > 0, nil
}

func (r *likeRepo) Count(ctx context.Context, target model.LikeTarget) (int, error) {
	t := r.builder().Table(tableLikes)
	n, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(targetPredicate(t, target)))
	return int(n), err
}

func (r *likeRepo) DeleteByTarget(ctx context.Context, likeType constant.LikeType, objectIDs []uint) error {
	if len(objectIDs) == 0 {
		return nil
	}
	_, err := r.exec(ctx, r.builder().Delete(tableLikes).Where(entsql.And(
		entsql.EQ("like_type", string(likeType)),
		entsql.In("object_id", toAny(objectIDs)...),
	)))
	if err != nil {
		return fmt.Errorf("删除点赞记录失败: %w", err)
	}
	return nil
}

func (r *likeRepo) ListObjectIDsByUser(ctx context.Context, userID uint, likeType constant.LikeType) ([]uint, error) {
	t := r.builder().Table(tableLikes)
	return r.queryIDs(ctx, r.builder().Select(t.C("object_id")).From(t).
		Where(entsql.And(entsql.EQ(t.C("user_id"), userID), entsql.EQ(t.C("like_type"), string(likeType)))).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))))
}
