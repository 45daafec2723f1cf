// internal/infra/persistence/ent/user_repo.go
package ent

import (
	"context"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableUsers = "users"

type userRepo struct {
	base
}

func NewUserRepo(db execQuerier, dbType string) repository.UserRepository {
	return &userRepo{base: newBase(db, dbType)}
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	users, err := r.FindByIDs(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, repository.ErrNotFound
	}
	return users[0], nil
}

func (r *userRepo) FindByIDs(ctx context.Context, ids []uint) ([]*model.User, error) {
	users := make([]*model.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	t := r.builder().Table(tableUsers)
	rows, err := r.query(ctx, r.builder().Select(t.C("id"), t.C("username"), t.C("created_at")).From(t).
		Where(entsql.In(t.C("id"), toAny(ids)...)))
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var username string
		var created scanTime
		if err := rows.Scan(&id, &username, &created); err != nil {
			return nil, fmt.Errorf("扫描用户失败: %w", err)
		}
		users = append(users, &model.User{ID: uint(id), Username: username, CreatedAt: created.Time})
	}
	return users, rows.Err()
}

// Ensure 用户不存在时插入，用户名变化时更新
func (r *userRepo) Ensure(ctx context.Context, id uint, username string) error {
	existing, err := r.FindByID(ctx, id)
	switch {
	case err == nil:
		if existing.Username == username || username == "" {
			return nil
		}
		_, err = r.exec(ctx, r.builder().Update(tableUsers).Set("username", username).Where(entsql.EQ("id", id)))
		return err
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	_, err = r.exec(ctx, r.builder().Insert(tableUsers).
		Columns("id", "username", "created_at").
		Values(id, username, now()))
	if errors.Is(err, repository.ErrDuplicate) {
		// 并发请求已经插入
		return nil
	}
	if err != nil {
		return fmt.Errorf("同步用户信息失败: %w", err)
	}
	return nil
}
