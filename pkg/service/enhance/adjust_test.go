package enhance

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/photox-team/photox-app/pkg/apperror"
)

func TestRotateHue(t *testing.T) {
	tests := []struct {
		name  string
		in    color.NRGBA
		shift float64
		want  color.NRGBA
	}{
		{"红转绿", color.NRGBA{R: 255, A: 255}, 1.0 / 3, color.NRGBA{G: 255, A: 255}},
		{"绿转蓝", color.NRGBA{G: 255, A: 200}, 1.0 / 3, color.NRGBA{B: 255, A: 200}},
		{"蓝转红", color.NRGBA{B: 255, A: 255}, 1.0 / 3, color.NRGBA{R: 255, A: 255}},
		{"灰色不变", color.NRGBA{R: 90, G: 90, B: 90, A: 255}, 0.5, color.NRGBA{R: 90, G: 90, B: 90, A: 255}},
		{"不偏移", color.NRGBA{R: 200, G: 60, B: 40, A: 255}, 0, color.NRGBA{R: 200, G: 60, B: 40, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rotateHue(tt.in, tt.shift))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{
		Adjustments:  Adjustments{Brightness: ptr(0), Saturation: ptr(3), Hue: ptr(1), Sharpness: ptr(5), Blur: ptr(20)},
		Enhancements: []Enhancement{EnhanceDenoise, EnhanceUpscale, EnhanceColor},
	}.Validate())

	err := Options{Adjustments: Adjustments{Brightness: ptr(2.5), Hue: ptr(math.NaN())}}.Validate()
	assert.ErrorIs(t, err, apperror.ErrValidation)
	var appErr *apperror.Error
	if assert.ErrorAs(t, err, &appErr) {
		assert.Contains(t, appErr.Details, "brightness")
		assert.Contains(t, appErr.Details, "hue")
	}
}

func TestApply(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		for y := 0; y < 2; y++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}

	// 系数为 1 时保持原图
	same := Apply(src, Options{Adjustments: Adjustments{Brightness: ptr(1), Contrast: ptr(1), Saturation: ptr(1), Sharpness: ptr(1)}})
	assert.Equal(t, src.Pix, same.Pix)

	brighter := Apply(src, Options{Adjustments: Adjustments{Brightness: ptr(1.5)}})
	assert.Greater(t, brighter.NRGBAAt(0, 0).R, uint8(100))
	assert.Equal(t, uint8(100), src.NRGBAAt(0, 0).R)

	bigger := Apply(src, Options{Enhancements: []Enhancement{EnhanceUpscale}})
	assert.Equal(t, image.Rect(0, 0, 8, 4), bigger.Bounds())
}

func TestUpscale_Capped(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3000, 1000))
	out := upscale(img)
	assert.Equal(t, maxOutputDimension, out.Bounds().Dx())

	huge := image.NewNRGBA(image.Rect(0, 0, maxOutputDimension, 10))
	assert.Same(t, huge, upscale(huge))
}
