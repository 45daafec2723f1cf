/*
 * @Description: Redis 缓存，未配置 Redis 时所有操作都是空操作
 * @Author: photox
 * @Date: 2025-10-08 20:11:09
 * @LastEditTime: 2025-10-19 22:40:16
 * @LastEditors: photox
 */
package utility

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/metrics"
)

const (
	tagRegistryKey   = "photox:tags:registry"
	unreadKeyPattern = "photox:notifications:unread:%d"

	tagRegistryTTL = 10 * time.Minute
	unreadTTL      = 5 * time.Minute
)

// CacheService 标签注册表快照和未读通知数的缓存
type CacheService interface {
	GetTags(ctx context.Context) ([]*model.Tag, bool)
	SetTags(ctx context.Context, tags []*model.Tag)
	InvalidateTags(ctx context.Context)

	GetUnreadCount(ctx context.Context, userID uint) (int, bool)
	SetUnreadCount(ctx context.Context, userID uint, n int)
	InvalidateUnreadCount(ctx context.Context, userID uint)
}

type redisCacheService struct {
	rdb *redis.Client
}

// NewCacheService rdb 为 nil 时返回的实例不缓存任何内容
func NewCacheService(rdb *redis.Client) CacheService {
	return &redisCacheService{rdb: rdb}
}

func (s *redisCacheService) GetTags(ctx context.Context) ([]*model.Tag, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, tagRegistryKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[缓存] 读取标签快照失败: %v", err)
		}
		metrics.RecordCache("tags", false)
		return nil, false
	}
	var tags []*model.Tag
	if err := json.Unmarshal(raw, &tags); err != nil {
		log.Printf("[缓存] 解析标签快照失败: %v", err)
		metrics.RecordCache("tags", false)
		return nil, false
	}
	metrics.RecordCache("tags", true)
	return tags, true
}

func (s *redisCacheService) SetTags(ctx context.Context, tags []*model.Tag) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		log.Printf("[缓存] 序列化标签快照失败: %v", err)
		return
	}
	if err := s.rdb.Set(ctx, tagRegistryKey, raw, tagRegistryTTL).Err(); err != nil {
		log.Printf("[缓存] 写入标签快照失败: %v", err)
	}
}

func (s *redisCacheService) InvalidateTags(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, tagRegistryKey).Err(); err != nil {
		log.Printf("[缓存] 清除标签快照失败: %v", err)
	}
}

func unreadKey(userID uint) string {
	return fmt.Sprintf(unreadKeyPattern, userID)
}

func (s *redisCacheService) GetUnreadCount(ctx context.Context, userID uint) (int, bool) {
	if s.rdb == nil {
		return 0, false
	}
	raw, err := s.rdb.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		metrics.RecordCache("unread", false)
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		metrics.RecordCache("unread", false)
		return 0, false
	}
	metrics.RecordCache("unread", true)
	return n, true
}

func (s *redisCacheService) SetUnreadCount(ctx context.Context, userID uint, n int) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, unreadKey(userID), n, unreadTTL).Err(); err != nil {
		log.Printf("[缓存] 写入未读数失败: %v", err)
	}
}

func (s *redisCacheService) InvalidateUnreadCount(ctx context.Context, userID uint) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, unreadKey(userID)).Err(); err != nil {
		log.Printf("[缓存] 清除未读数失败: %v", err)
	}
}
