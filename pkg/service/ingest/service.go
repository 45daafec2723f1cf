/*
 * @Description: 图片入库流水线：暂存 -> 主色 -> 分类 -> 上传 -> 入库 -> 分类相册
 * @Author: photox
 * @Date: 2025-10-08 15:12:36
 * @LastEditTime: 2025-10-21 16:08:51
 * @LastEditors: photox
 */
package ingest

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/photox-team/photox-app/internal/infra/storage"
	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/metrics"
	"github.com/photox-team/photox-app/pkg/service/utility"
	"github.com/photox-team/photox-app/pkg/service/vision"
)

const (
	// UploadTimeout 单次上传对象存储的超时
	UploadTimeout = 60 * time.Second
	// MaxTitleLength 图片标题的最大字符数
	MaxTitleLength = 200

	compensateTimeout = 30 * time.Second
)

// 流水线各阶段的名称，用于耗时指标
const (
	StageScratch  = "scratch"
	StageColors   = "colors"
	StageClassify = "classify"
	StageUpload   = "upload"
	StagePersist  = "persist"
	StageAlbum    = "album"
)

var allowedExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// TagRegistry 提供分类提示词使用的标签注册表
type TagRegistry interface {
	ListTags(ctx context.Context) ([]*model.Tag, error)
}

// AlbumPlacer 把新图片放进所属分类的相册
type AlbumPlacer interface {
	PlaceInCategoryAlbum(ctx context.Context, img *model.Image) (*model.Album, error)
}

// Params 单张上传的参数
type Params struct {
	OwnerID  uint
	Filename string
	Title    string
	IsPublic bool
}

// BatchFile 批量上传中的单个文件，Open 在处理到该文件时才被调用
type BatchFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileError 批量上传中单个文件的失败原因
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BatchReport 批量上传的汇总结果
type BatchReport struct {
	SuccessCount int
	ErrorCount   int
	Images       []*model.Image
	Errors       []FileError
}

// IngestService 定义了图片入库的业务逻辑接口
type IngestService interface {
	Ingest(ctx context.Context, params Params, payload io.Reader) (*model.Image, error)
	IngestBatch(ctx context.Context, ownerID uint, isPublic bool, files []BatchFile) (*BatchReport, error)
}

// Dependencies 流水线依赖的外部协作者
type Dependencies struct {
	ScratchDir string
	Colors     utility.ColorExtractor
	Classifier vision.Classifier
	Tags       TagRegistry
	Store      storage.ObjectStore
	TxManager  repository.TransactionManager
	Albums     AlbumPlacer
}

type ingestService struct {
	deps Dependencies
	now  func() time.Time
}

func NewIngestService(deps Dependencies) IngestService {
	if deps.ScratchDir == "" {
		deps.ScratchDir = filepath.Join(os.TempDir(), "photox-scratch")
	}
	return &ingestService{deps: deps, now: time.Now}
}

// Ingest 处理一张上传图片。分类和主色提取失败只会降级，
// 上传或入库失败时不会留下对象存储文件和数据库记录。
// 流水线一旦开始就不随请求取消，各阶段只受自身超时约束。
func (s *ingestService) Ingest(ctx context.Context, params Params, payload io.Reader) (img *model.Image, err error) {
	defer func() { metrics.RecordIngest(err) }()
	ctx = context.WithoutCancel(ctx)

	title, err := validate(params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	scratch, err := s.writeScratch(payload, strings.ToLower(filepath.Ext(params.Filename)))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(scratch); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			log.Printf("[入库流水线] ⚠️ 删除暂存文件失败 %s: %v", scratch, rmErr)
		}
	}()
	metrics.ObserveStage(StageScratch, start)

	colors := s.extractColors(scratch)
	result := s.classify(ctx, scratch)

	start = time.Now()
	key := storage.ImageKey(params.Filename, s.now())
	uploadCtx, cancel := context.WithTimeout(ctx, UploadTimeout)
	url, err := s.deps.Store.Put(uploadCtx, scratch, key)
	cancel()
	metrics.RecordStorage("put", err)
	metrics.ObserveStage(StageUpload, start)
	if err != nil {
		log.Printf("[入库流水线] 上传对象存储失败 (%s): %v", key, err)
		return nil, apperror.External("上传图片失败", err)
	}

	start = time.Now()
	err = s.deps.TxManager.Do(ctx, func(repos repository.Repositories) error {
		created, err := repos.Image.Create(ctx, &repository.CreateImageParams{
			OwnerID:   params.OwnerID,
			URL:       url,
			ObjectKey: key,
			Title:     title,
			Category:  result.Category,
			Colors:    colors,
			AITagIDs:  result.TagIDs,
			IsPublic:  params.IsPublic,
		})
		img = created
		return err
	})
	metrics.ObserveStage(StagePersist, start)
	if err != nil {
		s.compensate(ctx, url)
		return nil, apperror.Internal("保存图片失败", err)
	}

	start = time.Now()
	if album, err := s.deps.Albums.PlaceInCategoryAlbum(ctx, img); err != nil {
		log.Printf("[入库流水线] ⚠️ 图片 %d 放入分类相册失败: %v", img.ID, err)
	} else {
		log.Printf("[入库流水线] 图片 %d 已放入相册 %q", img.ID, album.Title)
	}
	metrics.ObserveStage(StageAlbum, start)

	log.Printf("[入库流水线] ✅ 用户 %d 上传图片 %d 成功，分类 %s，标签 %v", params.OwnerID, img.ID, result.Category.Name(), img.AITagIDs)
	return img, nil
}

// IngestBatch 逐个处理文件，单个文件失败不影响其余文件
func (s *ingestService) IngestBatch(ctx context.Context, ownerID uint, isPublic bool, files []BatchFile) (*BatchReport, error) {
	if len(files) == 0 {
		return nil, apperror.Validation("请选择要上传的图片").WithDetails(map[string]string{"images": "不能为空"})
	}

	report := &BatchReport{Images: []*model.Image{}, Errors: []FileError{}}
	for _, f := range files {
		img, err := s.ingestOne(ctx, ownerID, isPublic, f)
		if err != nil {
			report.ErrorCount++
			report.Errors = append(report.Errors, FileError{File: f.Name, Error: errorText(err)})
			continue
		}
		report.SuccessCount++
		report.Images = append(report.Images, img)
	}
	log.Printf("[入库流水线] 批量上传完成：成功 %d，失败 %d", report.SuccessCount, report.ErrorCount)
	return report, nil
}

func (s *ingestService) ingestOne(ctx context.Context, ownerID uint, isPublic bool, f BatchFile) (*model.Image, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, apperror.Validation("读取上传文件失败").WithCause(err)
	}
	defer rc.Close()
	return s.Ingest(ctx, Params{OwnerID: ownerID, Filename: f.Name, IsPublic: isPublic}, rc)
}

// errorText 业务错误直接展示消息，其余错误不暴露内部细节
func errorText(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// validate 校验文件名和标题，返回最终使用的标题
func validate(params Params) (string, error) {
	name := strings.TrimSpace(params.Filename)
	if name == "" {
		return "", apperror.Validation("缺少文件名").WithDetails(map[string]string{"image": "必须提供文件"})
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExts[ext]; !ok {
		return "", apperror.Validationf("不支持的图片格式: %s", ext).
			WithDetails(map[string]string{"image": "仅支持 jpg、jpeg、png、gif、webp"})
	}

	// 未提供标题时使用原始文件名
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.Validationf("标题不能超过 %d 个字符", MaxTitleLength).
			WithDetails(map[string]string{"title": "过长"})
	}
	return title, nil
}

// writeScratch 把上传内容写入 <ScratchDir>/<uuid><ext>
func (s *ingestService) writeScratch(payload io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(s.deps.ScratchDir, 0o755); err != nil {
		return "", apperror.Internal("创建暂存目录失败", err)
	}
	path := filepath.Join(s.deps.ScratchDir, uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", apperror.Internal("创建暂存文件失败", err)
	}
	n, copyErr := io.Copy(f, payload)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return "", apperror.Internal("写入暂存文件失败", err)
	}
	if n == 0 {
		os.Remove(path)
		return "", apperror.Validation("上传的文件为空").WithDetails(map[string]string{"image": "文件为空"})
	}
	return path, nil
}

func (s *ingestService) extractColors(path string) []string {
	start := time.Now()
	defer metrics.ObserveStage(StageColors, start)

	colors, err := s.deps.Colors.ExtractColors(path, utility.DefaultColorCount)
	if err != nil {
		log.Printf("[入库流水线] ⚠️ 提取主色失败，使用空列表: %v", err)
		return []string{}
	}
	return colors
}

func (s *ingestService) classify(ctx context.Context, path string) vision.Result {
	start := time.Now()
	defer metrics.ObserveStage(StageClassify, start)

	tags, err := s.deps.Tags.ListTags(ctx)
	if err != nil {
		// 没有注册表时分类结果里的标签都会被丢弃，最终落到哨兵标签
		log.Printf("[入库流水线] ⚠️ 读取标签注册表失败: %v", err)
	}
	result := s.deps.Classifier.Classify(ctx, path, tags)
	if result.Degraded() {
		log.Printf("[入库流水线] ⚠️ 分类降级为默认结果，原因: %s", result.Reason)
	}
	return result
}

// compensate 入库失败后删除已上传的对象
func (s *ingestService) compensate(ctx context.Context, url string) {
	ctx, cancel := context.WithTimeout(ctx, compensateTimeout)
	defer cancel()

	metrics.IngestCompensations.Inc()
	_, err := s.deps.Store.Delete(ctx, url)
	metrics.RecordStorage("delete", err)
	if err != nil {
		log.Printf("[入库流水线] ⚠️ 补偿删除对象失败，可能遗留孤立文件 %s: %v", url, err)
		return
	}
	log.Printf("[入库流水线] 已回收未入库的对象 %s", url)
}
