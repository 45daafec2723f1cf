/*
 * @Description: 对象存储抽象，上传的图片统一放在 images/ 前缀下
 * @Author: photox
 * @Date: 2025-10-05 14:22:10
 * @LastEditTime: 2025-10-20 11:48:37
 * @LastEditors: photox
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mozillazg/go-pinyin"

	"github.com/photox-team/photox-app/pkg/config"
	"github.com/photox-team/photox-app/pkg/constant"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("对象不存在")

// ObjectStore 是所有存储提供者需要实现的接口
type ObjectStore interface {
	// Put 把本地文件上传到 key，返回公开访问地址
	Put(ctx context.Context, localPath, key string) (string, error)
	// Get 按公开地址读取对象内容，调用方负责关闭
	Get(ctx context.Context, publicURL string) (io.ReadCloser, error)
	// Delete 按公开地址删除对象，对象不存在时返回 false
	Delete(ctx context.Context, publicURL string) (bool, error)
	// URL 返回 key 对应的公开访问地址
	URL(key string) string
}

// Settings 存储提供者的连接参数
type Settings struct {
	Type      constant.StorageType
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string
	Region    string
	Domain    string // 公开访问域名，例如 https://cdn.example.com
}

// SettingsFromConfig 从配置中读取存储参数
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Type:      constant.StorageType(cfg.GetString(config.KeyStorageType)),
		AccessKey: cfg.GetString(config.KeyStorageAccessKey),
		SecretKey: cfg.GetString(config.KeyStorageSecretKey),
		Bucket:    cfg.GetString(config.KeyStorageBucket),
		Endpoint:  cfg.GetString(config.KeyStorageEndpoint),
		Region:    cfg.GetString(config.KeyStorageRegion),
		Domain:    strings.TrimSuffix(cfg.GetString(config.KeyStorageDomain), "/"),
	}
}

// New 根据存储类型创建对应的提供者
func New(ctx context.Context, s Settings) (ObjectStore, error) {
	switch s.Type {
	case constant.StorageTypeQiniu:
		return NewQiniuProvider(s)
	case constant.StorageTypeAliOSS:
		return NewAliOSSProvider(s)
	case constant.StorageTypeTencentCOS:
		return NewTencentCOSProvider(s)
	case constant.StorageTypeS3:
		return NewS3Provider(ctx, s)
	case constant.StorageTypeLocal:
		return NewLocalProvider(s)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", s.Type)
	}
}

// ImageKey 生成上传图片的对象键：images/<unix纳秒>_<清洗后的文件名>
func ImageKey(originalName string, now time.Time) string {
	return fmt.Sprintf("%s%d_%s", constant.ObjectPrefixImages, now.UnixNano(), SanitizeFilename(originalName))
}

// ProcessedKey 生成处理结果的对象键：processed/<用户ID>_<图片ID>_<unix毫秒>_<随机串>.jpg
// 本地上传的图片没有图片ID，记为 0
func ProcessedKey(userID, imageID uint, now time.Time) string {
	return fmt.Sprintf("%s%d_%d_%d_%s.jpg", constant.ObjectPrefixProcessed, userID, imageID, now.UnixMilli(), uuid.NewString()[:8])
}

var pinyinArgs = pinyin.NewArgs()

// SanitizeFilename 把文件名转换为对象存储安全的形式
// 中文转为拼音，其余非 [A-Za-z0-9._-] 字符替换为下划线
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(name))
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.'):
			b.WriteRune(r)
		case unicode.Is(unicode.Han, r):
			py := pinyin.LazyPinyin(string(r), pinyinArgs)
			if len(py) > 0 {
				b.WriteString(py[0])
				continue
			}
			b.WriteByte('_')
		default:
			b.WriteByte('_')
		}
	}

	cleanStem := strings.Trim(b.String(), "._")
	if cleanStem == "" {
		cleanStem = "image"
	}
	cleanExt := sanitizeExt(ext)
	return cleanStem + cleanExt
}

func sanitizeExt(ext string) string {
	if ext == "" || ext == "." {
		return ""
	}
	for _, r := range ext[1:] {
		if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return ext
}

// keyFromURL 从公开地址中还原对象键，兼容直接传入 key 的情况
func keyFromURL(domain, publicURL string) string {
	if domain != "" && strings.HasPrefix(publicURL, domain) {
		return strings.TrimPrefix(strings.TrimPrefix(publicURL, domain), "/")
	}
	u, err := url.Parse(publicURL)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(publicURL, "/")
	}
	return strings.TrimPrefix(path.Clean(u.Path), "/")
}

// joinURL 拼接域名和对象键
func joinURL(domain, key string) string {
	if domain == "" {
		return "/" + strings.TrimPrefix(key, "/")
	}
	return strings.TrimSuffix(domain, "/") + "/" + strings.TrimPrefix(key, "/")
}
