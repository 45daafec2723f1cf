/*
 * @Description: 七牛云 Kodo 存储提供者
 * @Author: photox
 * @Date: 2025-10-05 15:01:44
 * @LastEditTime: 2025-10-18 09:26:13
 * @LastEditors: photox
 */
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	qiniustorage "github.com/qiniu/go-sdk/v7/storage"
)

const downloadURLExpiry = 10 * time.Minute

// QiniuProvider 使用表单上传写入七牛空间
type QiniuProvider struct {
	settings Settings
	mac      *qbox.Mac
	cfg      *qiniustorage.Config
}

func NewQiniuProvider(s Settings) (*QiniuProvider, error) {
	if s.AccessKey == "" || s.SecretKey == "" {
		return nil, fmt.Errorf("七牛云存储缺少 AccessKey 或 SecretKey")
	}
	if s.Bucket == "" {
		return nil, fmt.Errorf("七牛云存储缺少空间名称")
	}
	if s.Domain == "" {
		return nil, fmt.Errorf("七牛云存储缺少访问域名配置")
	}
	return &QiniuProvider{
		settings: s,
		mac:      qbox.NewMac(s.AccessKey, s.SecretKey),
		cfg:      &qiniustorage.Config{UseHTTPS: strings.HasPrefix(s.Domain, "https://")},
	}, nil
}

func (p *QiniuProvider) Put(ctx context.Context, localPath, key string) (string, error) {
	putPolicy := qiniustorage.PutPolicy{Scope: fmt.Sprintf("%s:%s", p.settings.Bucket, key)}
	upToken := putPolicy.UploadToken(p.mac)

	uploader := qiniustorage.NewFormUploader(p.cfg)
	ret := qiniustorage.PutRet{}
	if err := uploader.PutFile(ctx, &ret, upToken, key, localPath, nil); err != nil {
		log.Printf("[七牛云] 上传失败: key=%s, err=%v", key, err)
		return "", fmt.Errorf("上传文件到七牛云失败: %w", err)
	}
	log.Printf("[七牛云] 上传成功: key=%s, hash=%s", ret.Key, ret.Hash)
	return p.URL(key), nil
}

// Get 通过带签名的下载地址读取对象，公开空间同样适用
func (p *QiniuProvider) Get(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	key := keyFromURL(p.settings.Domain, publicURL)
	deadline := time.Now().Add(downloadURLExpiry).Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qiniustorage.MakePrivateURLv2(p.mac, p.settings.Domain, key, deadline), nil)
	if err != nil {
		return nil, fmt.Errorf("构建七牛云下载请求失败: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("从七牛云下载文件失败: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrObjectNotFound
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("从七牛云下载文件失败: 状态码 %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (p *QiniuProvider) Delete(ctx context.Context, publicURL string) (bool, error) {
	key := keyFromURL(p.settings.Domain, publicURL)
	if key == "" {
		return false, nil
	}
	manager := qiniustorage.NewBucketManager(p.mac, p.cfg)
	if err := manager.Delete(p.settings.Bucket, key); err != nil {
		// 612: no such file or directory
		if strings.Contains(err.Error(), "no such file") {
			return false, nil
		}
		return false, fmt.Errorf("删除七牛云对象失败: %w", err)
	}
	return true, nil
}

func (p *QiniuProvider) URL(key string) string {
	return qiniustorage.MakePublicURLv2(p.settings.Domain, key)
}
