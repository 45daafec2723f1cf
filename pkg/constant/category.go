package constant

// Category 是图片分类的固定枚举，取值 0..14
type Category int

const (
	CategoryOther       Category = 0
	CategoryLandscape   Category = 1
	CategoryPortrait    Category = 2
	CategoryAnimal      Category = 3
	CategoryFood        Category = 4
	CategoryBuilding    Category = 5
	CategoryElectronics Category = 6
	CategoryPlant       Category = 7
	CategoryFurniture   Category = 8
	CategoryClothing    Category = 9
	CategoryArt         Category = 10
	CategorySports      Category = 11
	CategoryVehicle     Category = 12
	CategoryPetSupplies Category = 13
	CategoryCosmetics   Category = 14
)

var categoryNames = [...]string{
	"其他", "风景", "人物肖像", "动物", "食品", "建筑", "电子产品", "植物花卉",
	"家具家居", "服装鞋帽", "艺术创作", "运动器材", "交通工具", "宠物用品", "美妆用品",
}

// 标签注册表中保留的哨兵标签，分类失败或无有效标签时使用
const (
	SentinelTagID   uint = 0
	SentinelTagName      = "未分类"
)

// AutoAlbumSuffix 自动归类相册的标题后缀，例如 "建筑相册"
const AutoAlbumSuffix = "相册"

// IsValid 判断分类是否在枚举范围内
func (c Category) IsValid() bool {
	return c >= 0 && int(c) < len(categoryNames)
}

// Name 返回分类的中文名，越界时返回 "其他"
func (c Category) Name() string {
	if !c.IsValid() {
		return categoryNames[CategoryOther]
	}
	return categoryNames[c]
}

// AllCategories 按 id 顺序返回全部分类
func AllCategories() []Category {
	all := make([]Category, len(categoryNames))
	for i := range categoryNames {
		all[i] = Category(i)
	}
	return all
}

// AutoAlbumTitle 返回分类对应的自动相册标题
func AutoAlbumTitle(c Category) string {
	return c.Name() + AutoAlbumSuffix
}
