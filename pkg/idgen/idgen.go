/*
 * @Description: ID 生成和解码服务
 * @Author: photox
 * @Date: 2025-10-03 16:02:31
 * @LastEditTime: 2025-10-20 11:27:45
 * @LastEditors: photox
 */
package idgen

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/sqids/sqids-go"
)

var (
	sqidsEncoder *sqids.Sqids
	initOnce     sync.Once
	initErr      error
)

// EntityType 定义了不同实体在生成公共 ID 时的类型标识。
const (
	EntityTypeUser         uint64 = 1 // 用户
	EntityTypeImage        uint64 = 2 // 图片
	EntityTypeAlbum        uint64 = 3 // 相册
	EntityTypeComment      uint64 = 4 // 评论
	EntityTypeNotification uint64 = 5 // 通知
)

// InitSqidsEncoder 初始化 Sqids 编码器，重复调用是安全的。
func InitSqidsEncoder() error {
	initOnce.Do(func() {
		s, err := sqids.New(sqids.Options{
			MinLength: 4,
			Alphabet:  "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
		})
		if err != nil {
			initErr = fmt.Errorf("初始化 Sqids 编码器失败: %w", err)
			return
		}
		sqidsEncoder = s
	})
	return initErr
}

// GeneratePublicID 把数据库 ID 和实体类型编码成对外展示的短 ID
func GeneratePublicID(dbID uint, entityType uint64) (string, error) {
	if sqidsEncoder == nil {
		return "", fmt.Errorf("Sqids 编码器未初始化")
	}
	id, err := sqidsEncoder.Encode([]uint64{uint64(dbID), entityType})
	if err != nil {
		return "", fmt.Errorf("编码公共ID失败: %w", err)
	}
	return id, nil
}

// DecodePublicID 解码公共 ID
func DecodePublicID(publicID string) (dbID uint, entityType uint64, err error) {
	if sqidsEncoder == nil {
		return 0, 0, fmt.Errorf("Sqids 编码器未初始化")
	}
	numbers := sqidsEncoder.Decode(publicID)
	if len(numbers) != 2 {
		return 0, 0, fmt.Errorf("无法从公共ID解码出预期数量的数字(期望2个，得到%d个)", len(numbers))
	}
	return uint(numbers[0]), numbers[1], nil
}

// ParseID 同时接受数字 ID 和公共 ID，公共 ID 的实体类型必须匹配
func ParseID(raw string, entityType uint64) (uint, error) {
	if raw == "" {
		return 0, fmt.Errorf("ID 不能为空")
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return uint(n), nil
	}
	dbID, et, err := DecodePublicID(raw)
	if err != nil {
		return 0, err
	}
	if et != entityType {
		return 0, fmt.Errorf("ID '%s' 的实体类型不匹配 (期望 %d, 得到 %d)", raw, entityType, et)
	}
	return dbID, nil
}
