/*
 * @Description: S3 兼容存储提供者 (AWS S3 / MinIO / R2)
 * @Author: photox
 * @Date: 2025-10-06 10:05:19
 * @LastEditTime: 2025-10-18 09:40:02
 * @LastEditors: photox
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Provider struct {
	settings Settings
	client   *s3.Client
}

func NewS3Provider(ctx context.Context, s Settings) (*S3Provider, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("S3 存储缺少存储桶名称")
	}
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("加载 S3 配置失败: %w", err)
	}

	// 自定义 Endpoint 时使用 path style，兼容 MinIO
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	if s.Domain == "" {
		if s.Endpoint != "" {
			s.Domain = joinURL(s.Endpoint, s.Bucket)
		} else {
			s.Domain = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.Bucket, region)
		}
	}
	return &S3Provider{settings: s, client: client}, nil
}

func (p *S3Provider) Put(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("打开待上传文件失败: %w", err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.settings.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		log.Printf("[S3] 上传失败: key=%s, err=%v", key, err)
		return "", fmt.Errorf("上传文件到 S3 失败: %w", err)
	}
	return p.URL(key), nil
}

func (p *S3Provider) Get(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.settings.Bucket),
		Key:    aws.String(keyFromURL(p.settings.Domain, publicURL)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("从 S3 获取对象失败: %w", err)
	}
	return out.Body, nil
}

func (p *S3Provider) Delete(ctx context.Context, publicURL string) (bool, error) {
	key := keyFromURL(p.settings.Domain, publicURL)
	if key == "" {
		return false, nil
	}
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(p.settings.Bucket), Key: aws.String(key)})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("检查 S3 对象失败: %w", err)
	}
	if _, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.settings.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		return false, fmt.Errorf("删除 S3 对象失败: %w", err)
	}
	return true, nil
}

func (p *S3Provider) URL(key string) string {
	return joinURL(p.settings.Domain, key)
}
