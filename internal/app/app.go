package app

import (
	"context"
	"errors"
	"lesson_quest_backend/internal/config"
	"lesson_quest_backend/internal/controller"
	"lesson_quest_backend/internal/progression"
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/service"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/configwatcher"
	"lesson_quest_backend/pkg/database"
	"lesson_quest_backend/pkg/logger"
	"lesson_quest_backend/pkg/monitoring"
	"lesson_quest_backend/pkg/security"
	"lesson_quest_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	stop            chan struct{}
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	progression *repository.ProgressionRepository
	lesson      *repository.LessonRepository
	showcase    *repository.ShowcaseRepository
	comment     *repository.CommentRepository
	rating      *repository.RatingRepository
	tag         *repository.TagRepository
}

type services struct {
	progression *service.ProgressionService
	auth        *service.AuthService
	content     *service.ContentService
	storage     *service.StorageService
	lesson      *service.LessonService
	showcase    *service.ShowcaseService
	comment     *service.CommentService
	rating      *service.RatingService
	tag         *service.TagService
}

type controllers struct {
	health      *controller.HealthController
	auth        *controller.AuthController
	progression *controller.ProgressionController
	lesson      *controller.LessonController
	showcase    *controller.ShowcaseController
	feedback    *controller.FeedbackController
	media       *controller.MediaController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		progression: repository.NewProgressionRepository(db),
		lesson:      repository.NewLessonRepository(db),
		showcase:    repository.NewShowcaseRepository(db),
		comment:     repository.NewCommentRepository(db),
		rating:      repository.NewRatingRepository(db),
		tag:         repository.NewTagRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	catalog, err := progression.LoadCatalog(cfg.Progression.CatalogPath)
	if err != nil {
		return nil, err
	}
	engine := progression.NewEngine(cfg.Progression.PointsToLevel)

	// 多实例部署时账户锁必须放在 Redis
	var locker service.AccountLocker = service.NewLocalLocker()
	if rdb != nil {
		locker = service.NewRedisLocker(rdb, cfg.Progression.LockTTL)
	}

	s := &services{}
	s.progression = service.NewProgressionService(repos.progression, repos.user, catalog, engine, locker)
	s.auth = service.NewAuthService(repos.user, s.progression, cfg)
	s.content = service.NewContentService(cfg, rdb)
	s.storage = service.NewStorageService(cfg)
	s.lesson = service.NewLessonService(repos.lesson, repos.tag, s.content, s.progression)
	s.showcase = service.NewShowcaseService(repos.showcase, repos.lesson, s.content, s.progression)
	s.comment = service.NewCommentService(repos.comment, repos.lesson, s.progression)
	s.rating = service.NewRatingService(repos.rating, repos.lesson, s.progression)
	s.tag = service.NewTagService(repos.tag, repos.lesson)

	logger.Log.Info("Quest catalog loaded",
		zap.Strings("quests", catalog.Names()),
		zap.Int("pointsToLevel", engine.PointsToLevel()))
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		health:      controller.NewHealthController(a.DB, a.Redis),
		auth:        controller.NewAuthController(s.auth, s.progression),
		progression: controller.NewProgressionController(s.progression),
		lesson:      controller.NewLessonController(s.lesson),
		showcase:    controller.NewShowcaseController(s.showcase),
		feedback:    controller.NewFeedbackController(s.comment, s.rating, s.tag),
		media:       controller.NewMediaController(s.storage),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, a.stop))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// newApp 组装依赖，数据库与 Redis 由调用方提供（rdb 可为 nil）
func newApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	if err := util.RegisterValidators(); err != nil {
		return nil, err
	}
	monitoring.Init()

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		stop:   make(chan struct{}),
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services)

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 热加载只调整日志级别，其余配置需重启生效
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
		logger.Log.Info("Log level updated", zap.String("level", logger.Level().String()))
	})

	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app, err := newApp(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) watchConfig(ctx context.Context) {
	if a.Config.ConfigFile == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, a.Config.ConfigFile, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	a.watchConfig(watchCtx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 释放后台协程、追踪导出器与连接
func (a *App) Close(ctx context.Context) {
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
