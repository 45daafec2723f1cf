/*
 * @Description: 图片 AI 描述与修图处理，处理结果写入对象存储的 processed/ 前缀
 * @Author: photox
 * @Date: 2025-10-14 15:20:37
 * @LastEditTime: 2025-10-22 10:41:09
 * @LastEditors: photox
 */
package enhance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/photox-team/photox-app/internal/infra/storage"
	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/metrics"
	"github.com/photox-team/photox-app/pkg/service/vision"
)

const jpegQuality = 90

// processed/ 下的文件名：<用户ID>_<图片ID>_<unix毫秒>_<随机串>.jpg
var processedName = regexp.MustCompile(`^(\d+)_\d+_\d+_[0-9a-f]{8}\.jpg$`)

// Result 处理结果在对象存储中的位置
type Result struct {
	URL      string
	FileName string
}

// EnhanceService 定义了 AI 描述和修图的业务逻辑接口
type EnhanceService interface {
	// Describe 返回图片描述，首次调用时生成并保存
	Describe(ctx context.Context, viewerID, imageID uint) (string, error)
	// Process 处理一张已入库的图片
	Process(ctx context.Context, userID, imageID uint, opts Options) (*Result, error)
	// ProcessUpload 处理一张未入库的图片
	ProcessUpload(ctx context.Context, userID uint, payload io.Reader, opts Options) (*Result, error)
	// DeleteProcessed 只能删除自己生成的处理结果
	DeleteProcessed(ctx context.Context, userID uint, fileName string) error
}

type Dependencies struct {
	Images     repository.ImageRepository
	Store      storage.ObjectStore
	Describer  vision.Describer
	ScratchDir string
}

type enhanceService struct {
	deps       Dependencies
	describing singleflight.Group
}

func NewEnhanceService(deps Dependencies) EnhanceService {
	if deps.ScratchDir == "" {
		deps.ScratchDir = filepath.Join(os.TempDir(), "photox-scratch")
	}
	return &enhanceService{deps: deps}
}

// visibleImage 私有图片对非所有者表现为不存在
func (s *enhanceService) visibleImage(ctx context.Context, viewerID, id uint) (*model.Image, error) {
	img, err := s.deps.Images.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("图片不存在")
		}
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}
	if !img.VisibleTo(viewerID) {
		return nil, apperror.NotFound("图片不存在")
	}
	return img, nil
}

func (s *enhanceService) Describe(ctx context.Context, viewerID, imageID uint) (string, error) {
	img, err := s.visibleImage(ctx, viewerID, imageID)
	if err != nil {
		return "", err
	}
	if img.AIDescription != "" {
		metrics.RecordCache("description", true)
		return img.AIDescription, nil
	}
	metrics.RecordCache("description", false)

	// 同一张图片的并发请求只调用一次模型
	v, err, _ := s.describing.Do(strconv.FormatUint(uint64(img.ID), 10), func() (any, error) {
		return s.describe(context.WithoutCancel(ctx), img)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *enhanceService) describe(ctx context.Context, img *model.Image) (string, error) {
	path, err := s.download(ctx, img.URL)
	if err != nil {
		return "", err
	}
	defer s.removeScratch(path)

	description, err := s.deps.Describer.Describe(ctx, path)
	if err != nil {
		return "", apperror.External("AI 分析暂时不可用", err)
	}
	if err := s.deps.Images.SetAIDescription(ctx, img.ID, description); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.NotFound("图片不存在")
		}
		return "", err
	}
	log.Printf("[图片增强] 已生成图片描述: image=%d", img.ID)
	return description, nil
}

func (s *enhanceService) Process(ctx context.Context, userID, imageID uint, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	img, err := s.visibleImage(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	rc, err := s.open(ctx, img.URL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return s.process(ctx, userID, img.ID, rc, opts)
}

func (s *enhanceService) ProcessUpload(ctx context.Context, userID uint, payload io.Reader, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.process(ctx, userID, 0, payload, opts)
}

func (s *enhanceService) process(ctx context.Context, userID, imageID uint, r io.Reader, opts Options) (*Result, error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperror.Validation("无法解析图片内容").WithDetails(map[string]string{"image": err.Error()})
	}

	path, err := s.scratchPath(".jpg")
	if err != nil {
		return nil, err
	}
	defer s.removeScratch(path)
	if err := imaging.Save(Apply(src, opts), path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, apperror.Internal("保存处理结果失败", err)
	}

	key := storage.ProcessedKey(userID, imageID, time.Now())
	url, err := s.deps.Store.Put(ctx, path, key)
	metrics.RecordStorage("put", err)
	if err != nil {
		log.Printf("[图片增强] 上传处理结果失败: key=%s, err=%v", key, err)
		return nil, apperror.External("上传处理结果失败", err)
	}
	return &Result{URL: url, FileName: strings.TrimPrefix(key, constant.ObjectPrefixProcessed)}, nil
}

func (s *enhanceService) DeleteProcessed(ctx context.Context, userID uint, fileName string) error {
	m := processedName.FindStringSubmatch(fileName)
	if m == nil {
		return apperror.Validation("无效的文件名").WithDetails(map[string]string{"file_name": "格式不正确"})
	}
	if m[1] != strconv.FormatUint(uint64(userID), 10) {
		return apperror.Forbidden("无权限删除此文件")
	}

	deleted, err := s.deps.Store.Delete(ctx, s.deps.Store.URL(constant.ObjectPrefixProcessed+fileName))
	metrics.RecordStorage("delete", err)
	if err != nil {
		return apperror.External("删除处理结果失败", err)
	}
	if !deleted {
		return apperror.NotFound("文件不存在")
	}
	return nil
}

func (s *enhanceService) open(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	rc, err := s.deps.Store.Get(ctx, publicURL)
	metrics.RecordStorage("get", err)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperror.NotFound("图片文件不存在")
		}
		return nil, apperror.External("读取对象存储失败", err)
	}
	return rc, nil
}

// download 把对象下载到暂存目录，调用方负责删除
func (s *enhanceService) download(ctx context.Context, publicURL string) (string, error) {
	rc, err := s.open(ctx, publicURL)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	// 解码时按文件头识别格式，暂存文件不需要扩展名
	path, err := s.scratchPath("")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", apperror.Internal("创建暂存文件失败", err)
	}
	_, copyErr := io.Copy(f, rc)
	if err := errors.Join(copyErr, f.Close()); err != nil {
		s.removeScratch(path)
		return "", apperror.Internal("写入暂存文件失败", err)
	}
	return path, nil
}

func (s *enhanceService) scratchPath(ext string) (string, error) {
	if err := os.MkdirAll(s.deps.ScratchDir, 0o755); err != nil {
		return "", apperror.Internal("创建暂存目录失败", err)
	}
	return filepath.Join(s.deps.ScratchDir, uuid.NewString()+ext), nil
}

func (s *enhanceService) removeScratch(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[图片增强] 删除暂存文件失败: path=%s, err=%v", path, err)
	}
}
