package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/auth"
	"github.com/regod-app/regod-api/internal/config"
	"github.com/regod-app/regod-api/internal/database"
	"github.com/regod-app/regod-api/internal/handler"
	"github.com/regod-app/regod-api/internal/identity"
	"github.com/regod-app/regod-api/internal/middleware"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
	"github.com/regod-app/regod-api/internal/router"
	"github.com/regod-app/regod-api/internal/service"
	"github.com/regod-app/regod-api/pkg/clerk"
	cloud "github.com/regod-app/regod-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if err := rbac.Initialize(db); err != nil {
		log.Fatalf("failed to initialize roles: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, caching and rate limiting degraded")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSService != "" {
		natsConn, err = nats.Connect(cfg.NATSService)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, cross-node fanout disabled")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	clerkClient := clerk.New(clerk.Config{
		APIURL: cfg.IdentityAPIURL,
		APIKey: cfg.IdentityAPIKey,
	}, logger)

	var sessions auth.SessionVerifier
	var inviter service.TeacherInviter
	if clerkClient != nil {
		sessions = clerkClient
		inviter = clerkClient
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary unavailable, uploads disabled")
		uploader = nil
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	codeRepo := repository.NewTeacherCodeRepository(db)
	linkRepo := repository.NewTeacherLinkRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	keys := auth.NewKeyCache(cfg.JWKSURL, cfg.JWKSCacheTTL, logger)
	verifier := auth.NewVerifier(cfg.JWTSecret, keys, sessions, logger)
	resolver := identity.NewResolver(userRepo, roleRepo, logger)

	authService := service.NewAuthService(userRepo, roleRepo, tokenRepo, verifier, resolver,
		redisClient, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, validate, logger)
	profileService := service.NewProfileService(userRepo, tokenRepo, validate, logger)
	codeService := service.NewTeacherCodeService(codeRepo, linkRepo, userRepo, roleRepo, validate, logger)
	adminService := service.NewAdminService(userRepo, roleRepo, linkRepo, codeService, inviter, validate, logger)
	courseService := service.NewCourseService(courseRepo, validate, logger)
	progressService := service.NewProgressService(progressRepo, courseRepo, favoriteRepo,
		redisClient, cfg.DashboardCacheTTL, validate, logger)
	noteService := service.NewNoteService(noteRepo, favoriteRepo, courseRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, natsConn, logger)
	chatService := service.NewChatService(chatRepo, linkRepo, notificationService,
		redisClient, natsConn, validate, logger)
	seedService := service.NewSeedService(courseRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	deps := router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		AdminHandler:        handler.NewAdminHandler(adminService, logger),
		CourseHandler:       handler.NewCourseHandler(courseService, logger),
		ProgressHandler:     handler.NewProgressHandler(progressService, logger),
		UserHandler:         handler.NewUserHandler(profileService, noteService, logger),
		TeacherCodeHandler:  handler.NewTeacherCodeHandler(codeService, logger),
		ChatHandler:         handler.NewChatHandler(chatService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		Authenticate:        middleware.Authenticate(verifier, resolver, logger),
	}

	if uploader != nil {
		uploadService := service.NewUploadService(uploader, 10, logger)
		deps.UploadHandler = handler.NewUploadHandler(uploadService, logger)
	}

	consumeCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	chatService.Start(consumeCtx)
	notificationService.Start(consumeCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    25 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
