package model

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// --- API 数据传输对象 (Data Transfer Objects) ---

// FlexID 请求体中的 ID，同时接受数字和公共 ID 字符串
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("无效的ID: %s", data)
	}
	*f = FlexID(strconv.FormatUint(n, 10))
	return nil
}

// UpdateImageRequest 编辑图片，字段缺省表示不修改
type UpdateImageRequest struct {
	Title    *string `json:"title"`
	IsPublic *bool   `json:"is_public"`
}

// TagsRequest 增删用户标签
type TagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// CreateTagRequest 管理员新建标签
type CreateTagRequest struct {
	Name string `json:"name" binding:"required"`
}

// AdjustmentsRequest 修图参数调节，系数 1 表示保持原图，缺省表示不调节
type AdjustmentsRequest struct {
	Brightness *float64 `json:"brightness"`
	Contrast   *float64 `json:"contrast"`
	Saturation *float64 `json:"saturation"`
	Hue        *float64 `json:"hue"`
	Sharpness  *float64 `json:"sharpness"`
	Blur       *float64 `json:"blur"`
}

// ProcessImageRequest 修图请求，enhancements 可选 denoise、upscale、color-enhance
type ProcessImageRequest struct {
	Adjustments  AdjustmentsRequest `json:"adjustments"`
	Enhancements []string           `json:"enhancements"`
}

// DeleteProcessedRequest 删除一张处理结果
type DeleteProcessedRequest struct {
	FileName string `json:"file_name" binding:"required"`
}

// ToggleLikeRequest 点赞/取消点赞
type ToggleLikeRequest struct {
	LikeType string `json:"like_type"`
	ObjectID FlexID `json:"object_id"`
}

// CreateCommentRequest 发表评论，AlbumID 和 ImageID 最多填一个
type CreateCommentRequest struct {
	AlbumID  FlexID `json:"album_id"`
	ImageID  FlexID `json:"image_id"`
	ParentID FlexID `json:"parent_id"`
	Content  string `json:"content"`
}

// CreateAlbumRequest 新建相册
type CreateAlbumRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateAlbumRequest 编辑相册，字段缺省表示不修改
type UpdateAlbumRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// ImageResponse 图片信息的标准 API 响应结构
type ImageResponse struct {
	ID            uint      `json:"id"`
	PublicID      string    `json:"public_id,omitempty"`
	OwnerID       uint      `json:"owner_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	CategoryID    int       `json:"category_id"`
	CategoryName  string    `json:"category_name"`
	Colors        []string  `json:"colors"`
	AITags        []string  `json:"ai_tags"`
	UserTags      []string  `json:"user_tags"`
	IsPublic      bool      `json:"is_public"`
	LikeCount     int       `json:"like_count"`
	AIDescription string    `json:"ai_description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DescriptionResponse 图片的 AI 描述
type DescriptionResponse struct {
	ImageID     uint   `json:"image_id"`
	Description string `json:"description"`
}

// ProcessedImageResponse 修图结果的访问地址和文件名，文件名用于之后删除
type ProcessedImageResponse struct {
	ProcessedImageURL string `json:"processed_image_url"`
	FileName          string `json:"file_name"`
}

// ServerInfoResponse 服务端构建信息和当前启用的外部服务
type ServerInfoResponse struct {
	Version       string    `json:"version"`
	Commit        string    `json:"commit,omitempty"`
	BuildTime     string    `json:"build_time,omitempty"`
	GoVersion     string    `json:"go_version"`
	Platform      string    `json:"platform"`
	StorageType   string    `json:"storage_type"`
	VisionModel   string    `json:"vision_model"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// HealthResponse 健康检查结果
type HealthResponse struct {
	Database string `json:"database"`
}

// BatchUploadError 批量上传中单个文件的错误
type BatchUploadError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BatchUploadResponse 批量上传的汇总
type BatchUploadResponse struct {
	SuccessCount int                `json:"success_count"`
	ErrorCount   int                `json:"error_count"`
	Results      []*ImageResponse   `json:"results"`
	Errors       []BatchUploadError `json:"errors"`
}

// CategoryRef 分类的 id 和名称
type CategoryRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type BasedOnResponse struct {
	Categories []CategoryRef `json:"categories"`
	Tags       []string      `json:"tags"`
}

// RecommendationResponse 推荐结果和推荐依据
type RecommendationResponse struct {
	Recommendations []*ImageResponse `json:"recommendations"`
	BasedOn         BasedOnResponse  `json:"based_on"`
}

// LikeResponse 点赞状态
type LikeResponse struct {
	State     string `json:"state"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// FollowResponse 关注状态
type FollowResponse struct {
	State         string `json:"state"`
	Following     bool   `json:"following"`
	FollowerCount int    `json:"follower_count"`
}

type FavoriteResponse struct {
	Favorited bool `json:"favorited"`
}

// CommentResponse 评论信息，Replies 只在顶层评论列表中返回
type CommentResponse struct {
	ID         uint               `json:"id"`
	AuthorID   uint               `json:"author_id"`
	AuthorName string             `json:"author_name"`
	AlbumID    *uint              `json:"album_id"`
	ImageID    *uint              `json:"image_id"`
	ParentID   *uint              `json:"parent_id"`
	Content    string             `json:"content"`
	LikeCount  int                `json:"like_count"`
	Liked      bool               `json:"liked"`
	ReplyCount int                `json:"reply_count"`
	Replies    []*CommentResponse `json:"replies,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type NotificationResponse struct {
	ID        uint      `json:"id"`
	SenderID  *uint     `json:"sender_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// AlbumResponse 相册信息的标准 API 响应结构
type AlbumResponse struct {
	ID          uint      `json:"id"`
	PublicID    string    `json:"public_id,omitempty"`
	OwnerID     uint      `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	ImageCount  int       `json:"image_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AlbumDetailResponse 相册详情，包含对当前用户可见的图片
type AlbumDetailResponse struct {
	AlbumResponse
	Images []*ImageResponse `json:"images"`
}

// PageResponse 分页列表的统一结构
type PageResponse[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}
