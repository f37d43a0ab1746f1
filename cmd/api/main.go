package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/07Akashh/DriveBackend/internal/config"
	"github.com/07Akashh/DriveBackend/internal/database"
	"github.com/07Akashh/DriveBackend/internal/middleware"
	"github.com/07Akashh/DriveBackend/internal/modules/auth"
	"github.com/07Akashh/DriveBackend/internal/modules/media"
	"github.com/07Akashh/DriveBackend/internal/modules/upload"
	jwtsvc "github.com/07Akashh/DriveBackend/internal/pkg/jwt"
	"github.com/07Akashh/DriveBackend/internal/repository"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	mediaRepo := media.NewRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	authService := auth.NewService(userRepo, j)
	authHandler := auth.NewHandler(authService)

	mediaService := media.NewService(mediaRepo, store)
	mediaHandler := media.NewHandler(mediaService)

	registry := upload.NewRegistry()
	reconciler := upload.NewReconciler(mediaRepo, userRepo)
	socketHandler := upload.NewSocketHandler(registry, store, userRepo, reconciler)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(j))

		// public and shared links resolve the caller when a token is
		// present but never require one
		optional := v1.Group("/")
		optional.Use(middleware.OptionalAuth(j))

		authHandler.RegisterProtectedRoutes(protected)
		mediaHandler.RegisterRoutes(protected, optional)
	}

	socketHandler.RegisterRoutes(r)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
