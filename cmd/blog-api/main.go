package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/blog-api/api/swagger"
	"github.com/noah-isme/blog-api/internal/handler"
	internalmiddleware "github.com/noah-isme/blog-api/internal/middleware"
	"github.com/noah-isme/blog-api/internal/repository"
	"github.com/noah-isme/blog-api/internal/service"
	"github.com/noah-isme/blog-api/internal/token"
	"github.com/noah-isme/blog-api/pkg/cache"
	"github.com/noah-isme/blog-api/pkg/config"
	"github.com/noah-isme/blog-api/pkg/database"
	"github.com/noah-isme/blog-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/blog-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/blog-api/pkg/middleware/requestid"
	"github.com/noah-isme/blog-api/pkg/storage"
)

// @title Blog API
// @version 1.0.0
// @description CRUD blog backend: auth, users, categories, posts
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient := cacheClient(cfg, logr)

	uploads, err := storage.NewUploadStorage(cfg.Uploads.Dir, cfg.Uploads.AllowedExts, cfg.Uploads.MaxFileSizeBytes)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	tokens := token.New(token.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
		Issuer:        cfg.JWT.Issuer,
	})

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, tokens, validate, logr)
	userSvc := service.NewUserService(userRepo, postRepo, uploads, cacheSvc, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, postRepo, cacheSvc, validate, logr)
	postSvc := service.NewPostService(postRepo, categoryRepo, uploads, cacheSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc, uploads)
	categoryHandler := handler.NewCategoryHandler(categorySvc)
	postHandler := handler.NewPostHandler(postSvc, uploads)
	healthHandler := handler.NewHealthHandler(db, redisClient)
	uploadHandler := handler.NewUploadHandler(uploads)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.GET("/uploads/*filepath", uploadHandler.Serve)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh-token", authHandler.Refresh)

	guard := internalmiddleware.Auth(authSvc)

	users := api.Group("/users", guard)
	users.GET("", userHandler.List)
	users.GET("/profile", userHandler.Profile)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/multiple", userHandler.DeleteMany)
	users.DELETE("/:id", userHandler.Delete)
	users.POST("/upload-avatar", userHandler.UploadAvatar)

	categories := api.Group("/categories", guard)
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.POST("", categoryHandler.Create)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/multiple", categoryHandler.DeleteMany)
	categories.DELETE("/:id", categoryHandler.Delete)

	posts := api.Group("/posts", guard)
	posts.GET("", postHandler.List)
	posts.GET("/export", postHandler.Export)
	posts.GET("/:id", postHandler.Get)
	posts.POST("", postHandler.Create)
	posts.PUT("/:id", postHandler.Update)
	posts.DELETE("/multiple", postHandler.DeleteMany)
	posts.DELETE("/:id", postHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// cacheClient connects to Redis when caching is enabled. A connection failure
// downgrades to no caching instead of blocking startup.
func cacheClient(cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		return nil
	}
	return client
}
