package constant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	assert.Len(t, AllCategories(), 15)
	assert.True(t, Category(0).IsValid())
	assert.True(t, Category(14).IsValid())
	assert.False(t, Category(15).IsValid())
	assert.False(t, Category(-1).IsValid())

	assert.Equal(t, "建筑", CategoryBuilding.Name())
	assert.Equal(t, "其他", Category(99).Name())
	assert.Equal(t, "建筑相册", AutoAlbumTitle(CategoryBuilding))
}

func TestLikeType(t *testing.T) {
	assert.True(t, LikeTypeImage.IsValid())
	assert.True(t, LikeTypeComment.IsValid())
	assert.False(t, LikeType("article").IsValid())
}
