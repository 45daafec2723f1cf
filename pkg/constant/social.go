package constant

// LikeType 点赞目标的类型
type LikeType string

const (
	LikeTypeImage   LikeType = "image"
	LikeTypeAlbum   LikeType = "album"
	LikeTypeComment LikeType = "comment"
)

func (t LikeType) IsValid() bool {
	switch t {
	case LikeTypeImage, LikeTypeAlbum, LikeTypeComment:
		return true
	}
	return false
}

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
	NotificationReply   NotificationKind = "reply"
	NotificationSystem  NotificationKind = "system"
)

// ToggleState 开关类操作之后的状态
type ToggleState string

const (
	ToggleActive   ToggleState = "active"
	ToggleInactive ToggleState = "inactive"
)

// 分页与推荐相关的默认值
const (
	DefaultPageSize        = 10
	MaxPageSize            = 50
	FeedPageSize           = 20
	RecommendationSize     = 20
	RecommendTopCategories = 3
	RecommendTopTags       = 5
	ReplyPreviewSize       = 3
)
