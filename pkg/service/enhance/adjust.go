package enhance

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/photox-team/photox-app/pkg/apperror"
)

// Adjustments 参数调节，nil 表示不调节。系数类参数 1 表示保持原图
type Adjustments struct {
	Brightness *float64 // 亮度系数 0~2
	Contrast   *float64 // 对比度系数 0~2
	Saturation *float64 // 饱和度系数 0~3，0 为黑白
	Hue        *float64 // 色相偏移 0~1，1 为转一整圈
	Sharpness  *float64 // 锐度系数 0~5，小于 1 时变模糊
	Blur       *float64 // 高斯模糊半径 0~20
}

// Enhancement 智能增强项
type Enhancement string

const (
	EnhanceDenoise Enhancement = "denoise"
	EnhanceUpscale Enhancement = "upscale"
	EnhanceColor   Enhancement = "color-enhance"
)

// Options 一次处理的全部参数，先做参数调节再按顺序执行增强
type Options struct {
	Adjustments  Adjustments
	Enhancements []Enhancement
}

const (
	maxOutputDimension = 4096
	denoiseSigma       = 0.6
	colorEnhanceFactor = 1.5
)

type bound struct {
	field    string
	value    *float64
	min, max float64
}

// Validate 超出范围的参数和未知的增强项都会被拒绝
func (o Options) Validate() error {
	a := o.Adjustments
	details := map[string]string{}
	for _, b := range []bound{
		{"brightness", a.Brightness, 0, 2},
		{"contrast", a.Contrast, 0, 2},
		{"saturation", a.Saturation, 0, 3},
		{"hue", a.Hue, 0, 1},
		{"sharpness", a.Sharpness, 0, 5},
		{"blur", a.Blur, 0, 20},
	} {
		if b.value == nil {
			continue
		}
		if v := *b.value; math.IsNaN(v) || v < b.min || v > b.max {
			details[b.field] = fmt.Sprintf("取值范围 %g~%g", b.min, b.max)
		}
	}
	for _, e := range o.Enhancements {
		switch e {
		case EnhanceDenoise, EnhanceUpscale, EnhanceColor:
		default:
			details["enhancements"] = fmt.Sprintf("不支持的增强: %s", e)
		}
	}
	if len(details) > 0 {
		return apperror.Validation("处理参数无效").WithDetails(details)
	}
	return nil
}

// factorToPercent 把以 1 为原图的系数换算成 imaging 的百分比参数
func factorToPercent(f float64) float64 {
	return (f - 1) * 100
}

// Apply 返回处理后的新图，不修改 src
func Apply(src image.Image, o Options) *image.NRGBA {
	img := imaging.Clone(src)
	a := o.Adjustments

	if a.Brightness != nil && *a.Brightness != 1 {
		img = imaging.AdjustBrightness(img, factorToPercent(*a.Brightness))
	}
	if a.Contrast != nil && *a.Contrast != 1 {
		img = imaging.AdjustContrast(img, factorToPercent(*a.Contrast))
	}
	if a.Saturation != nil && *a.Saturation != 1 {
		img = imaging.AdjustSaturation(img, factorToPercent(*a.Saturation))
	}
	if a.Hue != nil {
		if shift := math.Mod(*a.Hue, 1); shift != 0 {
			img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
				return rotateHue(c, shift)
			})
		}
	}
	if a.Sharpness != nil {
		switch s := *a.Sharpness; {
		case s > 1:
			img = imaging.Sharpen(img, s-1)
		case s < 1:
			img = imaging.Blur(img, 1-s)
		}
	}
	if a.Blur != nil && *a.Blur > 0 {
		img = imaging.Blur(img, *a.Blur)
	}

	for _, e := range o.Enhancements {
		switch e {
		case EnhanceDenoise:
			img = imaging.Blur(img, denoiseSigma)
		case EnhanceUpscale:
			img = upscale(img)
		case EnhanceColor:
			img = imaging.AdjustSaturation(img, factorToPercent(colorEnhanceFactor))
		}
	}
	return img
}

// upscale 放大两倍，最长边不超过 maxOutputDimension
func upscale(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest == 0 {
		return img
	}
	scale := math.Min(2, float64(maxOutputDimension)/float64(longest))
	if scale <= 1 {
		return img
	}
	return imaging.Resize(img, int(math.Round(float64(b.Dx())*scale)), 0, imaging.Lanczos)
}

// rotateHue 在 HSV 空间旋转色相，灰色像素保持不变
func rotateHue(c color.NRGBA, shift float64) color.NRGBA {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	v := math.Max(r, math.Max(g, b))
	delta := v - math.Min(r, math.Min(g, b))
	if delta == 0 {
		return c
	}

	var h float64
	switch v {
	case r:
		h = math.Mod((g-b)/delta, 6)
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	h = math.Mod(h/6+shift+1, 1)
	s := delta / v

	sector := math.Floor(h * 6)
	f := h*6 - sector
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var rr, gg, bb float64
	switch int(sector) % 6 {
	case 0:
		rr, gg, bb = v, t, p
	case 1:
		rr, gg, bb = q, v, p
	case 2:
		rr, gg, bb = p, v, t
	case 3:
		rr, gg, bb = p, q, v
	case 4:
		rr, gg, bb = t, p, v
	default:
		rr, gg, bb = v, p, q
	}
	return color.NRGBA{R: toByte(rr), G: toByte(gg), B: toByte(bb), A: c.A}
}

func toByte(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}
