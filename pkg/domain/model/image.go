package model

import (
	"time"

	"github.com/photox-team/photox-app/pkg/constant"
)

// Image 是一张已入库的图片
type Image struct {
	ID        uint
	OwnerID   uint
	URL       string
	ObjectKey string
	Title     string
	Category  constant.Category
	Colors    []string // 代表色，"#rrggbb"，按显著程度排序
	AITagIDs  []uint   // 分类结果写入的标签，只追加
	UserTags  []string // 用户自由编辑的标签
	IsPublic  bool
	LikeCount int // 仅在列表查询时填充

	// AIDescription 首次请求时由视觉模型生成的一句话描述，之后直接复用
	AIDescription string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VisibleTo 图片是否对指定用户可见
func (i *Image) VisibleTo(viewerID uint) bool {
	return i.IsPublic || (viewerID != 0 && i.OwnerID == viewerID)
}
