// @title           Lex API
// @version         1.0
// @description     Case management for a small legal practice: users, expedientes, documents, agenda procesal and the LexAI assistant.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/assistant"
	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/internal/calendar"
	"github.com/jomosautsem/lex/internal/cases"
	"github.com/jomosautsem/lex/internal/documents"
	"github.com/jomosautsem/lex/internal/httpx"
	"github.com/jomosautsem/lex/internal/identity"
	"github.com/jomosautsem/lex/internal/profiles"
	"github.com/jomosautsem/lex/internal/ratelimit"
	"github.com/jomosautsem/lex/internal/storage"
	"github.com/jomosautsem/lex/internal/workspace"
	"github.com/jomosautsem/lex/pkg/config"
	"github.com/jomosautsem/lex/pkg/database"
	"github.com/jomosautsem/lex/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev, File: cfg.Log.File})
	if err != nil {
		log.Fatal("logger:", err)
	}
	defer func() { _ = zl.Sync() }()
	rep := logger.NewReporter(zl)

	db, err := database.Open(cfg.Database.URL, cfg.AppEnv == "dev")
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Collaborators
	var idp identity.Provider
	switch cfg.Identity.Provider {
	case "supabase":
		idp = identity.NewGoTrue(cfg.Identity.SupabaseURL, cfg.Identity.AnonKey)
	default:
		idp = identity.NewLocal(identity.NewGormCredentials(db), rdb, cfg.Identity.JWTSecret, cfg.Identity.SessionTTL)
	}

	var blobs storage.BlobStore
	switch cfg.Storage.Driver {
	case "minio":
		blobs, err = storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
			URLExpiry: cfg.Storage.URLExpiry,
		})
		if err != nil {
			zl.Fatal("minio", zap.Error(err))
		}
	default:
		blobs = storage.NewSupabase(storage.SupabaseOptions{
			BaseURL:    cfg.Storage.SupabaseURL,
			ServiceKey: cfg.Storage.ServiceKey,
			Bucket:     cfg.Storage.Bucket,
			Private:    cfg.Storage.Private,
			SignExpiry: cfg.Storage.URLExpiry,
		})
	}

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		zl.Fatal("snowflake", zap.Error(err))
	}

	gemini, err := assistant.NewGeminiClient(assistant.GeminiOptions{
		APIKey:      cfg.Assistant.GeminiAPIKey,
		Model:       cfg.Assistant.Model,
		Temperature: cfg.Assistant.Temperature,
	})
	if err != nil {
		zl.Fatal("gemini", zap.Error(err))
	}
	limiter, err := ratelimit.NewFixedWindow(rdb, "lex:assistant", cfg.Assistant.RateLimit, cfg.Assistant.RateWindow, rep)
	if err != nil {
		zl.Fatal("rate limiter", zap.Error(err))
	}
	loginLimiter, err := ratelimit.NewFixedWindow(rdb, "lex:login", 10, time.Minute, rep)
	if err != nil {
		zl.Fatal("rate limiter", zap.Error(err))
	}

	// Stores and services
	profileStore := profiles.NewGormStore(db)
	caseStore := cases.NewGormStore(db, rep)
	docRows := documents.NewGormStore(db)
	eventStore := calendar.NewGormStore(db)

	authSvc := auth.NewService(idp, profileStore, rep)
	profileSvc := profiles.NewService(profileStore, idp, cfg.Identity.ProfileWait, rep)
	transcripts := assistant.NewRegistry(assistant.NewAdvisor(gemini, rep))

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
	})
	app.Use(httpx.RequestID(), httpx.RequestLog(zl))

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")
	authed := auth.RequireAuth(authSvc)
	can := auth.RequireAction

	// Auth
	authH := auth.NewHandler(authSvc, transcripts.Drop)
	api.Post("/signup", authH.Signup)
	api.Post("/login", loginLimiter.Middleware(func(c *fiber.Ctx) string { return c.IP() }), authH.Login)
	api.Post("/logout", authH.Logout)
	api.Get("/session", authH.Session)
	api.Get("/me", authed, authH.Me)

	// Users: staff read the directory (client pickers), only admins change it
	userH := profiles.NewHandler(profileSvc)
	api.Get("/users", authed, can(access.CreateCase), userH.List)
	api.Post("/users", authed, can(access.ManageUsers), userH.Create)
	api.Patch("/users/:id", authed, can(access.ManageUsers), userH.Update)
	api.Post("/users/:id/toggle", authed, can(access.ManageUsers), userH.Toggle)
	api.Delete("/users/:id", authed, can(access.ManageUsers), userH.Delete)

	// Cases
	caseH := cases.NewHandler(caseStore, blobs, rep)
	api.Get("/cases", authed, can(access.ViewCases), caseH.List)
	api.Get("/cases/:id", authed, can(access.ViewCases), caseH.Get)
	api.Post("/cases", authed, can(access.CreateCase), caseH.Create)
	api.Patch("/cases/:id", authed, can(access.UpdateCase), caseH.Update)
	api.Delete("/cases/:id", authed, can(access.DeleteCase), caseH.Delete)

	// Documents
	docH := documents.NewHandler(documents.NewUploader(blobs, docRows, node, rep), docRows, caseStore, blobs, cfg.Storage.MaxFileSize, rep)
	api.Post("/cases/:id/documents", authed, can(access.UploadDocument), docH.Upload)
	api.Get("/documents/:id/viewer", authed, can(access.ViewCases), docH.Viewer)

	// Agenda
	eventH := calendar.NewHandler(eventStore)
	api.Get("/events", authed, can(access.ViewCalendar), eventH.List)
	api.Post("/events", authed, can(access.CreateEvent), eventH.Create)

	// Assistant
	aiH := assistant.NewHandler(transcripts)
	perUser := limiter.Middleware(func(c *fiber.Ctx) string { return auth.MustUser(c).ID })
	api.Get("/assistant", authed, can(access.UseAssistant), aiH.Transcript)
	api.Post("/assistant", authed, can(access.UseAssistant), perUser, aiH.Send)
	api.Delete("/assistant", authed, can(access.UseAssistant), aiH.Reset)

	// Workspace screens
	wsH := workspace.NewHandler(workspace.NewLoader(profileSvc, caseStore, eventStore, rep))
	api.Get("/workspace/:view", authed, wsH.View)

	go func() {
		<-ctx.Done()
		zl.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			zl.Error("shutdown", zap.Error(err))
		}
	}()

	zl.Info("server running", zap.String("port", cfg.Port), zap.String("identity", cfg.Identity.Provider), zap.String("storage", cfg.Storage.Driver))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Fatal("listen", zap.Error(err))
	}
}
