package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/teamtodo/server/cmd/server/docs" // swagger docs
	"github.com/teamtodo/server/internal/module/auth"
	"github.com/teamtodo/server/internal/module/team"
	"github.com/teamtodo/server/internal/module/todo"
	"github.com/teamtodo/server/internal/module/user"
	"github.com/teamtodo/server/internal/shared/cache"
	"github.com/teamtodo/server/internal/shared/config"
	"github.com/teamtodo/server/internal/shared/database"
	"github.com/teamtodo/server/internal/shared/logger"
	"github.com/teamtodo/server/internal/shared/metrics"
	"github.com/teamtodo/server/internal/shared/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires configuration, storage, and the HTTP modules together with
// explicit constructor calls.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	authHandler *auth.Handler
	teamHandler *team.Handler
	todoHandler *todo.Handler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("teamtodo"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&user.User{},
		&team.Team{},
		&team.Member{},
		&todo.Todo{},
		&todo.TeamLink{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	// Redis is optional; without it the login rate limiter stays off.
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, login rate limiting disabled", "error", err)
		} else {
			app.redis = redisClient
		}
	}

	app.initModules()
	app.router = app.setupRouter()

	return app, nil
}

// initModules builds repositories, services, and handlers.
func (a *App) initModules() {
	userRepo := user.NewRepository(a.db)
	teamRepo := team.NewRepository(a.db)
	todoRepo := todo.NewRepository(a.db)

	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		Secret:      a.config.Auth.JWTSecret,
		TokenExpiry: a.config.Auth.TokenExpiry,
		Issuer:      "teamtodo",
	})

	var limiter *auth.LoginLimiter
	if a.redis != nil {
		limiter = auth.NewLoginLimiter(
			a.redis,
			a.config.Auth.LoginRateLimit,
			a.config.Auth.LoginRateWindow,
			a.zapLogger,
		)
	}

	authService := auth.NewService(userRepo, jwtManager, limiter, a.zapLogger)
	teamService := team.NewService(teamRepo, userRepo, a.zapLogger)
	todoService := todo.NewService(todoRepo, teamRepo, userRepo, a.zapLogger)

	a.authHandler = auth.NewHandler(authService, a.metrics)
	a.teamHandler = team.NewHandler(teamService)
	a.todoHandler = todo.NewHandler(todoService, a.metrics)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(a.corsConfig()))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	api := r.Group("/api")
	a.authHandler.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(a.authHandler.AuthMiddleware())
	a.authHandler.RegisterProtectedRoutes(protected)
	a.teamHandler.RegisterRoutes(protected)
	a.todoHandler.RegisterRoutes(protected)

	return r
}

// corsConfig merges the configured origins and preflight cache age into
// the default policy.
func (a *App) corsConfig() middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if len(a.config.CORS.AllowOrigins) > 0 {
		cfg.AllowOrigins = a.config.CORS.AllowOrigins
	}
	if a.config.CORS.MaxAge > 0 {
		cfg.MaxAge = a.config.CORS.MaxAge
	}
	return cfg
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
	_ = a.zapLogger.Sync()
}
