package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendor_vet_backend/internal/config"
	"vendor_vet_backend/internal/controller"
	"vendor_vet_backend/internal/repository"
	"vendor_vet_backend/internal/service"
	"vendor_vet_backend/internal/util"
	"vendor_vet_backend/pkg/database"
	"vendor_vet_backend/pkg/logger"
	"vendor_vet_backend/pkg/monitoring"
	"vendor_vet_backend/pkg/security"
	"vendor_vet_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	stopBackground  context.CancelFunc
}

type repositories struct {
	user     *repository.UserRepository
	question *repository.QuestionRepository
	session  *repository.SessionRepository
	evidence *repository.EvidenceRepository
	audit    *repository.AuditRepository
	locker   *repository.RedisSessionLocker
}

type services struct {
	auth      *service.AuthService
	user      *service.UserService
	storage   *service.StorageService
	reviewer  *service.ReviewerService
	scoring   *service.ScoringService
	interview *service.InterviewService
	evidence  *service.EvidenceService
	audit     *service.AuditService
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	interview *controller.InterviewController
	evidence  *controller.EvidenceController
	audit     *controller.AuditController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// OnConfigReload 配置文件热更新入口，依次通知已注册的回调
func (a *App) OnConfigReload(cfg *config.Config) {
	a.Config = cfg
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("配置已热更新")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		question: repository.NewQuestionRepository(db),
		session:  repository.NewSessionRepository(db),
		evidence: repository.NewEvidenceRepository(db),
		audit:    repository.NewAuditRepository(db),
		locker:   repository.NewRedisSessionLocker(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	// 题库在启动时一次性装载，访谈过程中不变
	catalog, err := repos.question.ListAll()
	if err != nil {
		return nil, err
	}
	logger.Log.Info("题库装载完成", zap.Int("questions", len(catalog)))

	s := &services{}
	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, repos.session)
	s.reviewer = service.NewReviewerService(cfg.Reviewer)
	s.scoring = service.NewScoringService(cfg.Scoring)
	s.interview = service.NewInterviewService(catalog, repos.session, repos.evidence, repos.locker, s.scoring)
	s.evidence = service.NewEvidenceService(s.interview, repos.session, repos.evidence, s.storage, s.reviewer, repos.locker)
	s.audit = service.NewAuditService(repos.audit, s.interview)
	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth, s.user),
		user:      controller.NewUserController(s.user),
		interview: controller.NewInterviewController(s.interview),
		evidence:  controller.NewEvidenceController(s.evidence),
		audit:     controller.NewAuditController(s.audit),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopBackground = cancel

	// 巡检长期停留在待审阅状态的材料提交，随服务关闭一起退出
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.evidence.SweepStalePending(30 * time.Minute); err != nil {
					logger.Log.Error("stale pending sweep error", zap.Error(err))
				}
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("vendor-vet", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
		router.Static("/api/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.stopBackground != nil {
		a.stopBackground()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
