// pkg/service/utility/color.go
package utility

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	_ "golang.org/x/image/webp"
)

// DefaultColorCount 每张图片最多提取的主色数量
const DefaultColorCount = 2

// ColorExtractor 从本地图片文件中提取主色调
type ColorExtractor interface {
	ExtractColors(path string, k int) ([]string, error)
}

type ColorService struct{}

func NewColorService() *ColorService {
	log.Println("[ColorService] 初始化颜色服务：使用 'prominentcolor' (K-Means算法) 来查找主色调。")
	return &ColorService{}
}

// ExtractColors 返回最多 k 个去重后的 #rrggbb 颜色，按占比从高到低
func (s *ColorService) ExtractColors(path string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultColorCount
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开图片失败: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}

	items, err := prominentcolor.KmeansWithAll(
		k,
		img,
		prominentcolor.ArgumentNoCropping,
		prominentcolor.DefaultSize,
		prominentcolor.GetDefaultMasks(),
	)
	if err != nil {
		// 纯色或被遮罩过滤光的图片，去掉遮罩再试一次
		items, err = prominentcolor.KmeansWithAll(k, img, prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, nil)
		if err != nil {
			return nil, fmt.Errorf("使用 prominentcolor (K-Means) 提取主色调失败: %w", err)
		}
	}

	colors := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		hex := strings.ToLower(fmt.Sprintf("#%02x%02x%02x", item.Color.R, item.Color.G, item.Color.B))
		if _, ok := seen[hex]; ok {
			continue
		}
		seen[hex] = struct{}{}
		colors = append(colors, hex)
		if len(colors) == k {
			break
		}
	}
	return colors, nil
}
