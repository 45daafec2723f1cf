// internal/app/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"entgo.io/ent/dialect"

	"github.com/photox-team/photox-app/internal/infra/persistence/database"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

type Bootstrapper struct {
	drv     dialect.Driver
	tagRepo repository.TagRepository
}

func NewBootstrapper(drv dialect.Driver, tagRepo repository.TagRepository) *Bootstrapper {
	return &Bootstrapper{
		drv:     drv,
		tagRepo: tagRepo,
	}
}

// InitializeDatabase 同步表结构并写入哨兵标签，可重复执行
func (b *Bootstrapper) InitializeDatabase(ctx context.Context) error {
	log.Println("--- 开始执行数据库初始化引导程序 ---")

	if err := database.Migrate(ctx, b.drv); err != nil {
		return fmt.Errorf("数据库 schema 创建/更新失败: %w", err)
	}
	log.Println("--- 数据库 Schema 同步成功 ---")

	if err := b.initSentinelTag(ctx); err != nil {
		return err
	}

	log.Println("--- 数据库初始化引导程序执行完成 ---")
	return nil
}

// initSentinelTag 分类失败的图片引用 id 为 0 的标签，它必须始终存在
func (b *Bootstrapper) initSentinelTag(ctx context.Context) error {
	tags, err := b.tagRepo.FindByIDs(ctx, []uint{constant.SentinelTagID})
	if err != nil {
		return fmt.Errorf("查询哨兵标签失败: %w", err)
	}
	if len(tags) > 0 {
		return nil
	}
	if _, err := b.tagRepo.Upsert(ctx, &model.Tag{ID: constant.SentinelTagID, Name: constant.SentinelTagName}); err != nil {
		return fmt.Errorf("写入哨兵标签失败: %w", err)
	}
	log.Printf("    - ✅ 新增哨兵标签: %d:%s", constant.SentinelTagID, constant.SentinelTagName)
	return nil
}

// SeedTags 注册表中只有哨兵标签时，从 path 导入初始标签。文件不存在时跳过
func (b *Bootstrapper) SeedTags(ctx context.Context, path string, importer func(ctx context.Context, r io.Reader) error) error {
	all, err := b.tagRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("查询标签注册表失败: %w", err)
	}
	if len(all) > 1 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ 标签注册表为空，且未找到初始标签文件 %s", path)
			return nil
		}
		return fmt.Errorf("打开初始标签文件失败: %w", err)
	}
	defer f.Close()
	log.Printf("--- 从 %s 导入初始标签 ---", path)
	return importer(ctx, f)
}
