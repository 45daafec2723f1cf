/*
 * @Description:
 * @Author: photox
 * @Date: 2025-10-04 11:30:55
 * @LastEditTime: 2025-10-12 14:22:55
 * @LastEditors: photox
 */
package database

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/photox-team/photox-app/pkg/config"
)

// NewRedisClient 创建 Redis 客户端。未配置地址时返回 nil，缓存层会自动降级为直查数据库
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisAddr := cfg.GetString(config.KeyRedisAddr)
	if redisAddr == "" {
		log.Println("⚠️ 未配置 Redis.Addr，缓存功能已关闭。")
		return nil, nil
	}

	redisDB := 0
	if s := cfg.GetString(config.KeyRedisDB); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("无效的 REDIS_DB 值 '%s': %w", s, err)
		}
		redisDB = n
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.GetString(config.KeyRedisPassword),
		DB:       redisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis (%s, DB %d) 失败: %w", redisAddr, redisDB, err)
	}

	log.Printf("成功连接到 Redis (%s, DB %d)", redisAddr, redisDB)
	return rdb, nil
}
