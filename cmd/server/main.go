package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"participa/internal/auth"
	"participa/internal/captcha"
	"participa/internal/config"
	"participa/internal/domain/models"
	"participa/internal/forms"
	"participa/internal/handler"
	"participa/internal/middleware"
	"participa/internal/notify"
	"participa/internal/repository/postgres"
	commentService "participa/internal/service/comment"
	documentService "participa/internal/service/document"
	exportService "participa/internal/service/export"
	supportService "participa/internal/service/support"
	tagService "participa/internal/service/tag"
	userService "participa/internal/service/user"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}
	defer verifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)
	commentRepo := postgres.NewCommentRepository(repoConfig)
	likeRepo := postgres.NewLikeRepository(repoConfig)
	tokenRepo := postgres.NewSupportTokenRepository(repoConfig)
	tagRepo := postgres.NewTagRepository(repoConfig)
	userRepo := postgres.NewUserRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Form registry
	registry, err := forms.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load form registry: %v", err)
	}
	logger.Info("form registry initialized")

	// Outbound side effects
	notifier := notify.NewHTTPNotifier(cfg.NotifierURL, logger)
	captchaProvider := captcha.NewProvider()

	// Services
	docService := documentService.NewService(docRepo, versionRepo, commentRepo, txManager, registry, notifier, logger)
	supService := supportService.NewService(docRepo, versionRepo, tokenRepo, captchaProvider, notifier, logger)
	comService := commentService.NewService(commentRepo, likeRepo, docRepo, versionRepo, docService, registry, notifier, logger)
	tgService := tagService.NewService(tagRepo, userRepo, versionRepo, logger)
	usrService := userService.NewService(userRepo, registry, logger)
	expService := exportService.NewService(docRepo, versionRepo, commentRepo, logger)

	// Handlers
	docHandler := handler.NewDocumentHandler(docService, expService, logger)
	supHandler := handler.NewSupportHandler(supService, logger)
	comHandler := handler.NewCommentHandler(comService, logger)
	tagHandler := handler.NewTagHandler(tgService, logger)
	usrHandler := handler.NewUserHandler(usrService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Document routes
	mux.HandleFunc("GET /api/documents", docHandler.ListDocuments)
	mux.HandleFunc("POST /api/documents", middleware.RequireUser(docHandler.CreateDocument))
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PUT /api/documents/{id}", middleware.RequireUser(docHandler.UpdateDocument))
	mux.HandleFunc("GET /api/documents/{id}/version/{number}", docHandler.GetDocumentVersion)
	mux.HandleFunc("GET /api/my-documents", middleware.RequireUser(docHandler.ListMyDocuments))
	mux.HandleFunc("GET /api/my-documents/export-xls", middleware.RequireUser(docHandler.ExportMyDocuments))

	// Supports
	mux.HandleFunc("POST /api/documents/{id}/apoyar", middleware.RequireUser(docHandler.SupportDocument))
	mux.HandleFunc("GET /api/captcha-data", supHandler.GetCaptcha)
	mux.HandleFunc("POST /api/documents/{id}/apoyar-anon", supHandler.RequestSupport)
	mux.HandleFunc("POST /api/apoyo-anon-validar/{token}", supHandler.ConfirmSupport)

	// Comments
	mux.HandleFunc("GET /api/documents/{id}/comments", comHandler.ListComments)
	mux.HandleFunc("POST /api/documents/{id}/comments", middleware.RequireUser(comHandler.CreateComment))
	mux.HandleFunc("DELETE /api/documents/{id}/comments/{commentID}", middleware.RequireUser(comHandler.DeleteComment))
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/resolve", middleware.RequireUser(comHandler.ResolveComment))
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/reply", middleware.RequireUser(comHandler.ReplyComment))
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/like", middleware.RequireUser(comHandler.ToggleLike))

	// Tag catalog
	mux.HandleFunc("GET /api/document-tags", tagHandler.ListTags)
	mux.HandleFunc("POST /api/document-tags", middleware.RequireRole(models.RoleAdmin, tagHandler.CreateTag))
	mux.HandleFunc("DELETE /api/document-tags/{id}", middleware.RequireRole(models.RoleAdmin, tagHandler.DeleteTag))

	// User profiles
	mux.HandleFunc("GET /api/users/me", middleware.RequireUser(usrHandler.GetMe))
	mux.HandleFunc("PUT /api/users/me", middleware.RequireUser(usrHandler.UpdateMe))
	mux.HandleFunc("GET /api/users/{id}", usrHandler.GetUser)

	// Middleware chain, applied in reverse: CORS → Recovery → Auth → routes
	var root http.Handler = mux
	root = middleware.Auth(verifier, logger)(root)
	root = middleware.Recovery(logger)(root)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
