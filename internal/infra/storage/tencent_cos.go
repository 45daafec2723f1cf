/*
 * @Description: 腾讯云COS存储提供者
 * @Author: photox
 * @Date: 2025-10-05 17:12:37
 * @LastEditTime: 2025-10-18 09:33:20
 * @LastEditors: photox
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// TencentCOSProvider 处理与腾讯云COS的交互，Endpoint 为存储桶访问域名
type TencentCOSProvider struct {
	settings Settings
	client   *cos.Client
}

func NewTencentCOSProvider(s Settings) (*TencentCOSProvider, error) {
	if s.AccessKey == "" || s.SecretKey == "" {
		return nil, fmt.Errorf("腾讯云COS缺少SecretID或SecretKey")
	}
	if s.Endpoint == "" {
		return nil, fmt.Errorf("腾讯云COS缺少访问域名配置")
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("解析存储桶URL失败: %w", err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: 100 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  s.AccessKey,
			SecretKey: s.SecretKey,
		},
	})
	if s.Domain == "" {
		s.Domain = s.Endpoint
	}
	return &TencentCOSProvider{settings: s, client: client}, nil
}

func (p *TencentCOSProvider) Put(ctx context.Context, localPath, key string) (string, error) {
	if _, _, err := p.client.Object.Upload(ctx, key, localPath, nil); err != nil {
		log.Printf("[腾讯云COS] 上传失败: key=%s, err=%v", key, err)
		return "", fmt.Errorf("上传文件到腾讯云COS失败: %w", err)
	}
	return p.URL(key), nil
}

// Get 从腾讯云COS获取文件流
func (p *TencentCOSProvider) Get(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	resp, err := p.client.Object.Get(ctx, keyFromURL(p.settings.Domain, publicURL), nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("从腾讯云COS获取文件失败: %w", err)
	}
	return resp.Body, nil
}

func (p *TencentCOSProvider) Delete(ctx context.Context, publicURL string) (bool, error) {
	key := keyFromURL(p.settings.Domain, publicURL)
	if key == "" {
		return false, nil
	}
	ok, err := p.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("检查腾讯云COS对象失败: %w", err)
	}
	if !ok {
		return false, nil
	}
	if _, err := p.client.Object.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("删除腾讯云COS对象失败: %w", err)
	}
	return true, nil
}

func (p *TencentCOSProvider) URL(key string) string {
	return joinURL(p.settings.Domain, key)
}
