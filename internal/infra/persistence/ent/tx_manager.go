// internal/infra/persistence/ent/tx_manager.go
package ent

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/photox-team/photox-app/pkg/domain/repository"
)

// NewRepositories 构造绑定到同一个执行器的全部仓库
func NewRepositories(db execQuerier, dbType string) repository.Repositories {
	return repository.Repositories{
		Image:        NewImageRepo(db, dbType),
		Tag:          NewTagRepo(db, dbType),
		Album:        NewAlbumRepo(db, dbType),
		Like:         NewLikeRepo(db, dbType),
		Follow:       NewFollowRepo(db, dbType),
		Comment:      NewCommentRepo(db, dbType),
		Notification: NewNotificationRepo(db, dbType),
		Favorite:     NewFavoriteRepo(db, dbType),
		User:         NewUserRepo(db, dbType),
	}
}

type sqlTransactionManager struct {
	db     *sql.DB
	dbType string
}

func NewTransactionManager(db *sql.DB, dbType string) repository.TransactionManager {
	return &sqlTransactionManager{db: db, dbType: dbType}
}

// Do 在事务中执行 fn，fn 出错或 panic 时回滚
func (tm *sqlTransactionManager) Do(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err = fn(NewRepositories(tx, tm.dbType)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			log.Printf("[事务] 回滚失败: %v", rerr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
