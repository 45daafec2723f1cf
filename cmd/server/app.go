// photox-app/cmd/server/app.go
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/photox-team/photox-app/internal/app/bootstrap"
	"github.com/photox-team/photox-app/internal/app/middleware"
	"github.com/photox-team/photox-app/internal/app/task"
	"github.com/photox-team/photox-app/internal/infra/persistence/database"
	ent_impl "github.com/photox-team/photox-app/internal/infra/persistence/ent"
	"github.com/photox-team/photox-app/internal/infra/router"
	"github.com/photox-team/photox-app/internal/infra/storage"
	"github.com/photox-team/photox-app/internal/pkg/auth"
	"github.com/photox-team/photox-app/internal/pkg/version"
	"github.com/photox-team/photox-app/pkg/config"
	album_handler "github.com/photox-team/photox-app/pkg/handler/album"
	comment_handler "github.com/photox-team/photox-app/pkg/handler/comment"
	enhance_handler "github.com/photox-team/photox-app/pkg/handler/enhance"
	image_handler "github.com/photox-team/photox-app/pkg/handler/image"
	notification_handler "github.com/photox-team/photox-app/pkg/handler/notification"
	social_handler "github.com/photox-team/photox-app/pkg/handler/social"
	tag_handler "github.com/photox-team/photox-app/pkg/handler/tag"
	version_handler "github.com/photox-team/photox-app/pkg/handler/version"
	"github.com/photox-team/photox-app/pkg/idgen"
	"github.com/photox-team/photox-app/pkg/service/album"
	comment_service "github.com/photox-team/photox-app/pkg/service/comment"
	"github.com/photox-team/photox-app/pkg/service/enhance"
	"github.com/photox-team/photox-app/pkg/service/feed"
	image_service "github.com/photox-team/photox-app/pkg/service/image"
	"github.com/photox-team/photox-app/pkg/service/ingest"
	"github.com/photox-team/photox-app/pkg/service/notification"
	"github.com/photox-team/photox-app/pkg/service/social"
	"github.com/photox-team/photox-app/pkg/service/tag"
	"github.com/photox-team/photox-app/pkg/service/utility"
	"github.com/photox-team/photox-app/pkg/service/vision"
)

// 注册表为空时从这里导入初始标签
const seedTagsFile = "data/tags.txt"

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg        *config.Config
	engine     *gin.Engine
	taskBroker *task.Broker
	sqlDB      *sql.DB
	mw         *middleware.Middleware
}

// PrintBanner 打印应用启动 banner
func (a *App) PrintBanner() {
	banner := `

      ██████╗ ██╗  ██╗ ██████╗ ████████╗ ██████╗ ██╗  ██╗
      ██╔══██╗██║  ██║██╔═══██╗╚══██╔══╝██╔═══██╗╚██╗██╔╝
      ██████╔╝███████║██║   ██║   ██║   ██║   ██║ ╚███╔╝
      ██╔═══╝ ██╔══██║██║   ██║   ██║   ██║   ██║ ██╔██╗
      ██║     ██║  ██║╚██████╔╝   ██║   ╚██████╔╝██╔╝ ██╗
      ╚═╝     ╚═╝  ╚═╝ ╚═════╝    ╚═╝    ╚═════╝ ╚═╝  ╚═╝

`
	log.Println(banner)
	log.Println("--------------------------------------------------------")
	log.Printf(" PhotoX App - %s", version.GetVersionString())
	log.Println("--------------------------------------------------------")
}

// NewApp 是应用的构造函数，它执行所有的初始化和依赖注入工作
func NewApp() (*App, func(), error) {
	ctx := context.Background()

	// --- Phase 1: 加载外部配置 ---
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if !cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Phase 2: 初始化基础设施 ---
	sqlDB, err := database.NewSQLDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("创建数据库连接池失败: %w", err)
	}
	dbType := database.DBType(cfg)
	drv, err := database.NewDriver(sqlDB, dbType, cfg.GetBool(config.KeyDBDebug))
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	redisClient, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	cleanup := func() {
		log.Println("执行清理操作：关闭数据库和Redis连接...")
		sqlDB.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}
	if err := idgen.InitSqidsEncoder(); err != nil {
		return nil, cleanup, fmt.Errorf("初始化 ID 编码器失败: %w", err)
	}
	store, err := storage.New(ctx, storage.SettingsFromConfig(cfg))
	if err != nil {
		return nil, cleanup, fmt.Errorf("初始化对象存储失败: %w", err)
	}
	verifier, err := auth.NewTokenVerifier(cfg.GetString(config.KeyJWTSecret))
	if err != nil {
		return nil, cleanup, fmt.Errorf("初始化令牌校验失败: %w", err)
	}

	// --- Phase 3: 初始化数据仓库层 ---
	repos := ent_impl.NewRepositories(sqlDB, dbType)
	txManager := ent_impl.NewTransactionManager(sqlDB, dbType)

	// --- Phase 4: 初始化应用引导程序 ---
	bootstrapper := bootstrap.NewBootstrapper(drv, repos.Tag)
	if err := bootstrapper.InitializeDatabase(ctx); err != nil {
		return nil, cleanup, fmt.Errorf("数据库初始化失败: %w", err)
	}

	// --- Phase 5: 初始化业务逻辑层 ---
	cacheSvc := utility.NewCacheService(redisClient)
	tagSvc := tag.NewTagService(repos.Tag, repos.Image, cacheSvc, txManager)
	err = bootstrapper.SeedTags(ctx, seedTagsFile, func(ctx context.Context, r io.Reader) error {
		_, err := tagSvc.ImportTags(ctx, r)
		return err
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("导入初始标签失败: %w", err)
	}
	albumSvc := album.NewAlbumService(repos.Album, repos.Image, txManager)
	notificationSvc := notification.NewNotificationService(repos.Notification, cacheSvc)
	socialSvc := social.NewSocialService(repos, txManager, notificationSvc)
	commentSvc := comment_service.NewService(repos, txManager, notificationSvc)
	imageSvc := image_service.NewImageService(repos.Image, txManager, store)
	feedSvc := feed.NewFeedService(repos, nil)
	scratchDir := cfg.GetString(config.KeyScratchDir)
	// 分类和描述共用一个客户端，共享限流和熔断状态
	visionClient := vision.NewClient(vision.OptionsFromConfig(cfg))
	ingestSvc := ingest.NewIngestService(ingest.Dependencies{
		ScratchDir: scratchDir,
		Colors:     utility.NewColorService(),
		Classifier: visionClient,
		Tags:       tagSvc,
		Store:      store,
		TxManager:  txManager,
		Albums:     albumSvc,
	})
	enhanceSvc := enhance.NewEnhanceService(enhance.Dependencies{
		Images:     repos.Image,
		Store:      store,
		Describer:  visionClient,
		ScratchDir: scratchDir,
	})
	taskBroker := task.NewBroker(scratchDir)

	// --- Phase 6: 初始化表现层 (Handlers) ---
	mw := middleware.NewMiddleware(verifier, repos.User)
	imageHandler := image_handler.NewHandler(ingestSvc, imageSvc, feedSvc, tagSvc)
	tagHandler := tag_handler.NewHandler(tagSvc)
	socialHandler := social_handler.NewHandler(socialSvc, tagSvc)
	commentHandler := comment_handler.NewHandler(commentSvc)
	notificationHandler := notification_handler.NewHandler(notificationSvc)
	albumHandler := album_handler.NewAlbumHandler(albumSvc, tagSvc)
	enhanceHandler := enhance_handler.NewHandler(enhanceSvc)
	versionHandler := version_handler.NewHandler(version_handler.ServerInfo{
		StorageType: cfg.GetString(config.KeyStorageType),
		VisionModel: cfg.GetString(config.KeyVisionModel),
	}, sqlDB)

	// --- Phase 7: 初始化路由 ---
	var static router.StaticMount
	if local, ok := store.(*storage.LocalProvider); ok {
		static = router.StaticMount{Prefix: local.MountPath(), Root: local.Root()}
	}
	appRouter := router.NewRouter(
		imageHandler,
		tagHandler,
		socialHandler,
		commentHandler,
		notificationHandler,
		albumHandler,
		enhanceHandler,
		versionHandler,
		mw,
		static,
	)

	// --- Phase 8: 配置 Gin 引擎 ---
	engine := gin.Default()
	err = engine.SetTrustedProxies(nil)
	if err != nil {
		return nil, cleanup, fmt.Errorf("设置信任代理失败: %w", err)
	}
	engine.ForwardedByClientIP = true
	engine.Use(middleware.Cors(cfg.GetList(config.KeyCorsOrigins)), middleware.Metrics())
	appRouter.Setup(engine)

	// 将所有初始化好的组件装配到 App 实例中
	app := &App{
		cfg:        cfg,
		engine:     engine,
		taskBroker: taskBroker,
		sqlDB:      sqlDB,
		mw:         mw,
	}

	return app, cleanup, nil
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Engine() *gin.Engine {
	return a.engine
}

func (a *App) Middleware() *middleware.Middleware {
	return a.mw
}

func (a *App) DB() *sql.DB {
	return a.sqlDB
}

func (a *App) Run() error {
	a.taskBroker.RegisterCronJobs()
	a.taskBroker.Start()
	port := a.cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8091"
	}
	fmt.Printf("应用程序启动成功，正在监听端口: %s\n", port)

	return a.engine.Run(":" + port)
}

func (a *App) Stop() {
	if a.taskBroker != nil {
		a.taskBroker.Stop()
		log.Println("任务调度器已停止。")
	}
}
