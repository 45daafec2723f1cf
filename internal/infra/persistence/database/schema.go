package database

import (
	"context"
	"fmt"
	"log"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const textSize = 2147483647

func idColumn() *schema.Column {
	return &schema.Column{Name: "id", Type: field.TypeInt, Increment: true}
}

func intColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeInt}
}

func nullableIntColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeInt, Nullable: true}
}

func stringColumn(name string, size int64) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: size}
}

func textColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: textSize}
}

func boolColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeBool, Default: false}
}

func timeColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeTime}
}

func index(name string, unique bool, cols ...*schema.Column) *schema.Index {
	return &schema.Index{Name: name, Unique: unique, Columns: cols}
}

var (
	usersColumns = []*schema.Column{
		idColumn(),
		stringColumn("username", 150),
		timeColumn("created_at"),
	}
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    usersColumns,
		PrimaryKey: []*schema.Column{usersColumns[0]},
	}

	// tags 的 id 由管理员指定，不自增
	tagsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		stringColumn("name", 100),
	}
	TagsTable = &schema.Table{
		Name:       "tags",
		Columns:    tagsColumns,
		PrimaryKey: []*schema.Column{tagsColumns[0]},
		Indexes: []*schema.Index{
			index("tag_name", true, tagsColumns[1]),
		},
	}

	imagesColumns = []*schema.Column{
		idColumn(),
		intColumn("owner_id"),
		stringColumn("url", 1024),
		stringColumn("object_key", 512),
		stringColumn("title", 255),
		intColumn("category_id"),
		textColumn("colors"),
		textColumn("user_tags"),
		boolColumn("is_public"),
		timeColumn("created_at"),
		timeColumn("updated_at"),
		{Name: "ai_description", Type: field.TypeString, Size: textSize, Nullable: true},
	}
	ImagesTable = &schema.Table{
		Name:       "images",
		Columns:    imagesColumns,
		PrimaryKey: []*schema.Column{imagesColumns[0]},
		Indexes: []*schema.Index{
			index("image_owner_id", false, imagesColumns[1]),
			index("image_category_id", false, imagesColumns[5]),
			index("image_is_public_created_at", false, imagesColumns[8], imagesColumns[9]),
		},
	}

	imageTagsColumns = []*schema.Column{
		idColumn(),
		intColumn("image_id"),
		intColumn("tag_id"),
	}
	ImageTagsTable = &schema.Table{
		Name:       "image_tags",
		Columns:    imageTagsColumns,
		PrimaryKey: []*schema.Column{imageTagsColumns[0]},
		Indexes: []*schema.Index{
			index("imagetag_image_id_tag_id", true, imageTagsColumns[1], imageTagsColumns[2]),
			index("imagetag_tag_id", false, imageTagsColumns[2]),
		},
	}

	albumsColumns = []*schema.Column{
		idColumn(),
		intColumn("owner_id"),
		stringColumn("title", 255),
		textColumn("description"),
		boolColumn("is_public"),
		timeColumn("created_at"),
		timeColumn("updated_at"),
	}
	AlbumsTable = &schema.Table{
		Name:       "albums",
		Columns:    albumsColumns,
		PrimaryKey: []*schema.Column{albumsColumns[0]},
		Indexes: []*schema.Index{
			// 自动相册依赖这个唯一索引做并发安全的 get-or-create
			index("album_owner_id_title", true, albumsColumns[1], albumsColumns[2]),
		},
	}

	albumImagesColumns = []*schema.Column{
		idColumn(),
		intColumn("album_id"),
		intColumn("image_id"),
		timeColumn("created_at"),
	}
	AlbumImagesTable = &schema.Table{
		Name:       "album_images",
		Columns:    albumImagesColumns,
		PrimaryKey: []*schema.Column{albumImagesColumns[0]},
		Indexes: []*schema.Index{
			index("albumimage_album_id_image_id", true, albumImagesColumns[1], albumImagesColumns[2]),
			index("albumimage_image_id", false, albumImagesColumns[2]),
		},
	}

	likesColumns = []*schema.Column{
		idColumn(),
		intColumn("user_id"),
		stringColumn("like_type", 20),
		intColumn("object_id"),
		timeColumn("created_at"),
	}
	LikesTable = &schema.Table{
		Name:       "likes",
		Columns:    likesColumns,
		PrimaryKey: []*schema.Column{likesColumns[0]},
		Indexes: []*schema.Index{
			index("like_user_id_like_type_object_id", true, likesColumns[1], likesColumns[2], likesColumns[3]),
			index("like_like_type_object_id", false, likesColumns[2], likesColumns[3]),
		},
	}

	followsColumns = []*schema.Column{
		idColumn(),
		intColumn("follower_id"),
		intColumn("followee_id"),
		timeColumn("created_at"),
	}
	FollowsTable = &schema.Table{
		Name:       "follows",
		Columns:    followsColumns,
		PrimaryKey: []*schema.Column{followsColumns[0]},
		Indexes: []*schema.Index{
			index("follow_follower_id_followee_id", true, followsColumns[1], followsColumns[2]),
			index("follow_followee_id", false, followsColumns[2]),
		},
	}

	commentsColumns = []*schema.Column{
		idColumn(),
		intColumn("author_id"),
		nullableIntColumn("album_id"),
		nullableIntColumn("image_id"),
		nullableIntColumn("parent_id"),
		textColumn("body"),
		boolColumn("is_deleted"),
		timeColumn("created_at"),
		timeColumn("updated_at"),
	}
	CommentsTable = &schema.Table{
		Name:       "comments",
		Columns:    commentsColumns,
		PrimaryKey: []*schema.Column{commentsColumns[0]},
		Indexes: []*schema.Index{
			index("comment_album_id", false, commentsColumns[2]),
			index("comment_image_id", false, commentsColumns[3]),
			index("comment_parent_id", false, commentsColumns[4]),
		},
	}

	notificationsColumns = []*schema.Column{
		idColumn(),
		intColumn("recipient_id"),
		nullableIntColumn("sender_id"),
		stringColumn("kind", 20),
		stringColumn("content", 500),
		boolColumn("is_read"),
		timeColumn("created_at"),
	}
	NotificationsTable = &schema.Table{
		Name:       "notifications",
		Columns:    notificationsColumns,
		PrimaryKey: []*schema.Column{notificationsColumns[0]},
		Indexes: []*schema.Index{
			index("notification_recipient_id_is_read", false, notificationsColumns[1], notificationsColumns[5]),
		},
	}

	favoritesColumns = []*schema.Column{
		idColumn(),
		intColumn("user_id"),
		intColumn("image_id"),
		timeColumn("created_at"),
	}
	FavoritesTable = &schema.Table{
		Name:       "favorites",
		Columns:    favoritesColumns,
		PrimaryKey: []*schema.Column{favoritesColumns[0]},
		Indexes: []*schema.Index{
			index("favorite_user_id_image_id", true, favoritesColumns[1], favoritesColumns[2]),
			index("favorite_image_id", false, favoritesColumns[2]),
		},
	}

	// Tables 全部表，迁移时按此顺序创建
	Tables = []*schema.Table{
		UsersTable,
		TagsTable,
		ImagesTable,
		ImageTagsTable,
		AlbumsTable,
		AlbumImagesTable,
		LikesTable,
		FollowsTable,
		CommentsTable,
		NotificationsTable,
		FavoritesTable,
	}
)

// Migrate 同步表结构，只增不删
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("创建迁移器失败: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("创建/更新数据库 schema 失败: %w", err)
	}
	log.Println("✅ 数据库 schema 同步完成。")
	return nil
}
