/*
 * @Description: 阿里云OSS存储提供者
 * @Author: photox
 * @Date: 2025-10-05 16:40:02
 * @LastEditTime: 2025-10-18 09:30:55
 * @LastEditors: photox
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// AliOSSProvider 处理与阿里云OSS的交互
type AliOSSProvider struct {
	settings Settings
	bucket   *oss.Bucket
}

func NewAliOSSProvider(s Settings) (*AliOSSProvider, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("阿里云OSS缺少存储桶名称")
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return nil, fmt.Errorf("阿里云OSS缺少AccessKey配置")
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		if s.Region == "" {
			return nil, fmt.Errorf("阿里云OSS缺少 Endpoint 或 Region 配置")
		}
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", s.Region)
	}

	client, err := oss.New(endpoint, s.AccessKey, s.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("创建阿里云OSS客户端失败: %w", err)
	}
	bucket, err := client.Bucket(s.Bucket)
	if err != nil {
		return nil, fmt.Errorf("获取阿里云OSS存储桶失败: %w", err)
	}
	if s.Domain == "" {
		s.Domain = fmt.Sprintf("https://%s.%s", s.Bucket, strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://"))
	}
	return &AliOSSProvider{settings: s, bucket: bucket}, nil
}

func (p *AliOSSProvider) Put(ctx context.Context, localPath, key string) (string, error) {
	if err := p.bucket.PutObjectFromFile(key, localPath, oss.WithContext(ctx)); err != nil {
		log.Printf("[阿里云OSS] 上传失败: key=%s, err=%v", key, err)
		return "", fmt.Errorf("上传文件到阿里云OSS失败: %w", err)
	}
	return p.URL(key), nil
}

// Get 从阿里云OSS获取文件流
func (p *AliOSSProvider) Get(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	body, err := p.bucket.GetObject(keyFromURL(p.settings.Domain, publicURL), oss.WithContext(ctx))
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusNotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("从阿里云OSS获取文件失败: %w", err)
	}
	return body, nil
}

func (p *AliOSSProvider) Delete(ctx context.Context, publicURL string) (bool, error) {
	key := keyFromURL(p.settings.Domain, publicURL)
	if key == "" {
		return false, nil
	}
	exists, err := p.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("检查阿里云OSS对象失败: %w", err)
	}
	if !exists {
		return false, nil
	}
	if err := p.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return false, fmt.Errorf("删除阿里云OSS对象失败: %w", err)
	}
	return true, nil
}

func (p *AliOSSProvider) URL(key string) string {
	return joinURL(p.settings.Domain, key)
}
