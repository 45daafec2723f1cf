// internal/infra/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider 把对象写入本地目录，Endpoint 为根目录，Domain 为对外访问前缀
// 主要用于开发环境和测试
type LocalProvider struct {
	root   string
	domain string
}

func NewLocalProvider(s Settings) (*LocalProvider, error) {
	root := s.Endpoint
	if root == "" {
		root = "data/objects"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}
	domain := s.Domain
	if domain == "" {
		domain = "/objects"
	}
	return &LocalProvider{root: root, domain: domain}, nil
}

// Root 返回本地存储根目录，路由层用它提供静态访问
func (p *LocalProvider) Root() string {
	return p.root
}

// MountPath 访问前缀是站内路径时返回该路径，否则返回空串
func (p *LocalProvider) MountPath() string {
	if strings.HasPrefix(p.domain, "/") {
		return p.domain
	}
	return ""
}

func (p *LocalProvider) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("非法的对象键: %q", key)
	}
	return filepath.Join(p.root, strings.TrimPrefix(clean, "/")), nil
}

func (p *LocalProvider) Put(ctx context.Context, localPath, key string) (string, error) {
	dst, err := p.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("创建对象目录失败: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("打开待上传文件失败: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("创建对象文件失败: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("写入对象文件失败: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("写入对象文件失败: %w", err)
	}
	return p.URL(key), nil
}

func (p *LocalProvider) Get(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	dst, err := p.path(keyFromURL(p.domain, publicURL))
	if err != nil {
		return nil, ErrObjectNotFound
	}
	f, err := os.Open(dst)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("打开对象文件失败: %w", err)
	}
	return f, nil
}

func (p *LocalProvider) Delete(ctx context.Context, publicURL string) (bool, error) {
	key := keyFromURL(p.domain, publicURL)
	dst, err := p.path(key)
	if err != nil {
		return false, nil
	}
	if err := os.Remove(dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("删除对象文件失败: %w", err)
	}
	return true, nil
}

func (p *LocalProvider) URL(key string) string {
	return joinURL(p.domain, key)
}
