/*
 * @Description: 路由注册
 * @Author: photox
 * @Date: 2025-10-13 11:30:55
 * @LastEditTime: 2025-10-21 18:34:24
 * @LastEditors: photox
 */
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/photox-team/photox-app/internal/app/middleware"
	album_handler "github.com/photox-team/photox-app/pkg/handler/album"
	comment_handler "github.com/photox-team/photox-app/pkg/handler/comment"
	enhance_handler "github.com/photox-team/photox-app/pkg/handler/enhance"
	image_handler "github.com/photox-team/photox-app/pkg/handler/image"
	notification_handler "github.com/photox-team/photox-app/pkg/handler/notification"
	social_handler "github.com/photox-team/photox-app/pkg/handler/social"
	tag_handler "github.com/photox-team/photox-app/pkg/handler/tag"
	version_handler "github.com/photox-team/photox-app/pkg/handler/version"
)

// StaticMount 本地存储的静态访问目录，Prefix 为空时不挂载
type StaticMount struct {
	Prefix string
	Root   string
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	imageHandler        *image_handler.Handler
	tagHandler          *tag_handler.Handler
	socialHandler       *social_handler.Handler
	commentHandler      *comment_handler.Handler
	notificationHandler *notification_handler.Handler
	albumHandler        *album_handler.AlbumHandler
	enhanceHandler      *enhance_handler.Handler
	versionHandler      *version_handler.Handler
	mw                  *middleware.Middleware
	static              StaticMount
}

// NewRouter 是 Router 的构造函数，通过依赖注入接收所有处理器。
func NewRouter(
	imageHandler *image_handler.Handler,
	tagHandler *tag_handler.Handler,
	socialHandler *social_handler.Handler,
	commentHandler *comment_handler.Handler,
	notificationHandler *notification_handler.Handler,
	albumHandler *album_handler.AlbumHandler,
	enhanceHandler *enhance_handler.Handler,
	versionHandler *version_handler.Handler,
	mw *middleware.Middleware,
	static StaticMount,
) *Router {
	return &Router{
		imageHandler:        imageHandler,
		tagHandler:          tagHandler,
		socialHandler:       socialHandler,
		commentHandler:      commentHandler,
		notificationHandler: notificationHandler,
		albumHandler:        albumHandler,
		enhanceHandler:      enhanceHandler,
		versionHandler:      versionHandler,
		mw:                  mw,
		static:              static,
	}
}

// Setup 将所有路由注册到 Gin 引擎。
func (r *Router) Setup(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if r.static.Prefix != "" {
		engine.Static(r.static.Prefix, r.static.Root)
	}

	// 创建 /api 分组
	apiGroup := engine.Group("/api")

	r.registerPublicRoutes(apiGroup)
	r.registerImageRoutes(apiGroup)
	r.registerTagRoutes(apiGroup)
	r.registerLikeRoutes(apiGroup)
	r.registerFollowRoutes(apiGroup)
	r.registerFavoriteRoutes(apiGroup)
	r.registerCommentRoutes(apiGroup)
	r.registerNotificationRoutes(apiGroup)
	r.registerAlbumRoutes(apiGroup)
}

func (r *Router) registerPublicRoutes(api *gin.RouterGroup) {
	public := api.Group("/public")
	{
		public.GET("/version", r.versionHandler.GetVersion)
		public.GET("/health", r.versionHandler.Health)
	}
}

// registerImageRoutes 注册图片相关的路由
func (r *Router) registerImageRoutes(api *gin.RouterGroup) {
	imagesPublic := api.Group("/images").Use(r.mw.JWTAuthOptional())
	{
		imagesPublic.GET("", r.imageHandler.List)
		imagesPublic.GET("/:id", r.imageHandler.Get)
		imagesPublic.GET("/:id/tags", r.imageHandler.GetTags)
		imagesPublic.POST("/:id/ai-description", r.enhanceHandler.Describe)
		imagesPublic.GET("/:id/ai-analysis", r.enhanceHandler.Describe)
	}

	images := api.Group("/images").Use(r.mw.JWTAuth())
	{
		images.POST("/upload", r.imageHandler.Upload)
		images.POST("/batch-upload", r.imageHandler.BatchUpload)
		// 注意：静态路径和 /:id 并存，gin 优先匹配静态段
		images.GET("/feed", r.imageHandler.Feed)
		images.GET("/recommendations", r.imageHandler.Recommendations)
		images.PUT("/:id", r.imageHandler.Update)
		images.DELETE("/:id", r.imageHandler.Delete)
		images.POST("/:id/tags", r.imageHandler.AddTags)
		images.DELETE("/:id/tags", r.imageHandler.RemoveTags)
		images.POST("/:id/ai-process", r.enhanceHandler.Process)
		images.POST("/ai-process-local", r.enhanceHandler.ProcessLocal)
		images.DELETE("/delete-processed", r.enhanceHandler.DeleteProcessed)
	}
}

func (r *Router) registerTagRoutes(api *gin.RouterGroup) {
	api.GET("/tags", r.tagHandler.List)

	// 标签注册表只能由管理员维护
	tagsAdmin := api.Group("/tags").Use(r.mw.JWTAuth(), r.mw.AdminAuth())
	{
		tagsAdmin.POST("", r.tagHandler.Create)
		tagsAdmin.POST("/import", r.tagHandler.Import)
	}
}

func (r *Router) registerLikeRoutes(api *gin.RouterGroup) {
	likes := api.Group("/likes")
	{
		likes.POST("/toggle", r.mw.JWTAuth(), r.socialHandler.ToggleLike)
		likes.GET("/check", r.mw.JWTAuthOptional(), r.socialHandler.CheckLike)
	}
}

func (r *Router) registerFollowRoutes(api *gin.RouterGroup) {
	follows := api.Group("/follows")
	{
		follows.POST("/:id/toggle", r.mw.JWTAuth(), r.socialHandler.ToggleFollow)
		follows.GET("/:id/followers", r.socialHandler.Followers)
		follows.GET("/:id/following", r.socialHandler.Following)
	}
}

func (r *Router) registerFavoriteRoutes(api *gin.RouterGroup) {
	favorites := api.Group("/favorites").Use(r.mw.JWTAuth())
	{
		favorites.GET("", r.socialHandler.ListFavorites)
		favorites.GET("/:imageId", r.socialHandler.CheckFavorite)
		favorites.POST("/:imageId", r.socialHandler.AddFavorite)
		favorites.DELETE("/:imageId", r.socialHandler.RemoveFavorite)
	}
}

func (r *Router) registerCommentRoutes(api *gin.RouterGroup) {
	// 公开的评论接口，登录用户额外返回自己的点赞状态
	commentsPublic := api.Group("/comments").Use(r.mw.JWTAuthOptional())
	{
		commentsPublic.GET("", r.commentHandler.List)
		commentsPublic.GET("/:id/replies", r.commentHandler.Replies)
	}

	comments := api.Group("/comments").Use(r.mw.JWTAuth())
	{
		comments.POST("", r.commentHandler.Create)
		comments.DELETE("/:id", r.commentHandler.Delete)
	}
}

func (r *Router) registerNotificationRoutes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications").Use(r.mw.JWTAuth())
	{
		notifications.GET("", r.notificationHandler.List)
		notifications.GET("/unread-count", r.notificationHandler.UnreadCount)
		notifications.POST("/read-all", r.notificationHandler.MarkAllRead)
		notifications.POST("/:id/read", r.notificationHandler.MarkRead)
	}
}

// registerAlbumRoutes 注册相册相关的路由
func (r *Router) registerAlbumRoutes(api *gin.RouterGroup) {
	albumsPublic := api.Group("/albums").Use(r.mw.JWTAuthOptional())
	{
		albumsPublic.GET("", r.albumHandler.GetAlbums)
		albumsPublic.GET("/:id", r.albumHandler.GetAlbum)
	}

	albums := api.Group("/albums").Use(r.mw.JWTAuth())
	{
		albums.POST("", r.albumHandler.CreateAlbum)
		albums.PUT("/:id", r.albumHandler.UpdateAlbum)
		albums.DELETE("/:id", r.albumHandler.DeleteAlbum)
		albums.POST("/:id/images/:imageId", r.albumHandler.AddImage)
		albums.DELETE("/:id/images/:imageId", r.albumHandler.RemoveImage)
	}
}
