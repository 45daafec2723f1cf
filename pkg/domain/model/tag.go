package model

// Tag 是全局标签注册表中的一项，ID 稳定且由管理员维护
type Tag struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// TagView 是标签合并后的读视图
type TagView struct {
	AITags   []string `json:"ai_tags"`
	UserTags []string `json:"user_tags"`
	AllTags  []string `json:"all_tags"`
}
