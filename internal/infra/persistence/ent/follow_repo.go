// internal/infra/persistence/ent/follow_repo.go
package ent

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableFollows = "follows"

var followColumns = []string{"id", "follower_id", "followee_id", "created_at"}

type followRepo struct {
	base
}

func NewFollowRepo(db execQuerier, dbType string) repository.FollowRepository {
	return &followRepo{base: newBase(db, dbType)}
}

func (r *followRepo) Find(ctx context.Context, followerID, followeeID uint) (*model.Follow, error) {
	t := r.builder().Table(tableFollows)
	follows, err := r.scanList(ctx, r.builder().Select(columns(t, followColumns)...).From(t).Where(entsql.And(
		entsql.EQ(t.C("follower_id"), followerID),
		entsql.EQ(t.C("followee_id"), followeeID),
	)))
	if err != nil {
		return nil, err
	}
	if len(follows) == 0 {
		return nil, repository.ErrNotFound
	}
	return follows[0], nil
}

func (r *followRepo) Create(ctx context.Context, followerID, followeeID uint) (*model.Follow, error) {
	ts := now()
	id, err := r.insert(ctx, r.builder().Insert(tableFollows).
		Columns("follower_id", "followee_id", "created_at").
		Values(followerID, followeeID, ts))
	if err != nil {
		return nil, fmt.Errorf("关注失败: %w", err)
	}
	return &model.Follow{ID: id, FollowerID: followerID, FolloweeID: followeeID, CreatedAt: ts}, nil
}

func (r *followRepo) Delete(ctx context.Context, followerID, followeeID uint) (bool, error) {
	n, err := r.execAffected(ctx, r.builder().Delete(tableFollows).Where(entsql.And(
		entsql.EQ("follower_id", followerID),
		entsql.EQ("followee_id", followeeID),
	)))
	if err != nil {
		return false, fmt.Errorf("取消关注失败: %w", err)
	}
	return n > 0, nil
}

func (r *followRepo) CountFollowers(ctx context.Context, userID uint) (int, error) {
	t := r.builder().Table(tableFollows)
	n, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(entsql.EQ(t.C("followee_id"), userID)))
	return int(n), err
}

func (r *followRepo) ListFollowers(ctx context.Context, userID uint, page repository.PageQuery) ([]*model.Follow, int64, error) {
	return r.list(ctx, "followee_id", userID, page)
}

func (r *followRepo) ListFollowing(ctx context.Context, userID uint, page repository.PageQuery) ([]*model.Follow, int64, error) {
	return r.list(ctx, "follower_id", userID, page)
}

func (r *followRepo) list(ctx context.Context, column string, userID uint, page repository.PageQuery) ([]*model.Follow, int64, error) {
	page = page.Normalize(20)
	ct := r.builder().Table(tableFollows)
	total, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(ct).Where(entsql.EQ(ct.C(column), userID)))
	if err != nil {
		return nil, 0, err
	}
	t := r.builder().Table(tableFollows)
	follows, err := r.scanList(ctx, r.builder().Select(columns(t, followColumns)...).From(t).
		Where(entsql.EQ(t.C(column), userID)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	return follows, total, nil
}

func (r *followRepo) scanList(ctx context.Context, sel *entsql.Selector) ([]*model.Follow, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询关注关系失败: %w", err)
	}
	defer rows.Close()
	follows := make([]*model.Follow, 0)
	for rows.Next() {
		var id, follower, followee int64
		var created scanTime
		if err := rows.Scan(&id, &follower, &followee, &created); err != nil {
			return nil, fmt.Errorf("扫描关注关系失败: %w", err)
		}
		follows = append(follows, &model.Follow{
			ID:         uint(id),
			FollowerID: uint(follower),
			FolloweeID: uint(followee),
			CreatedAt:  created.Time,
		})
	}
	return follows, rows.Err()
}
