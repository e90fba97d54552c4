package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uzvideohub/videohub-api/internal/config"
	"github.com/uzvideohub/videohub-api/internal/domain/auth"
	"github.com/uzvideohub/videohub-api/internal/domain/bot"
	"github.com/uzvideohub/videohub-api/internal/domain/ledger"
	"github.com/uzvideohub/videohub-api/internal/domain/media"
	"github.com/uzvideohub/videohub-api/internal/domain/user"
	"github.com/uzvideohub/videohub-api/internal/domain/video"
	"github.com/uzvideohub/videohub-api/internal/middleware"
	"github.com/uzvideohub/videohub-api/internal/pkg/database"
	"github.com/uzvideohub/videohub-api/internal/pkg/jwt"
	pkgresponse "github.com/uzvideohub/videohub-api/internal/pkg/response"
	"github.com/uzvideohub/videohub-api/internal/pkg/storage"
	"github.com/uzvideohub/videohub-api/internal/pkg/telegram"
	"github.com/uzvideohub/videohub-api/internal/pkg/yadisk"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting VideoHub API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTTTL)

	tgClient, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}

	diskClient := yadisk.NewClient(yadisk.Config{Timeout: cfg.ProxyTimeout})

	var posterStorage *storage.PosterStorage
	if cfg.S3BucketName != "" {
		posterStorage, err = storage.NewPosterStorage(storage.Config{
			AccountID:       cfg.S3AccountID,
			AccessKeyID:     cfg.S3AccessKeyID,
			AccessKeySecret: cfg.S3AccessKeySecret,
			BucketName:      cfg.S3BucketName,
			PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create poster storage")
		}
	}

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	videoRepo := video.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)

	// ---------- Services ----------
	notifier := bot.NewNotifier(tgClient)
	ledgerService := ledger.NewService(ledgerRepo, userRepo, videoRepo, notifier, log.Logger)

	authService := auth.NewService(userRepo, ledgerService, jwtService, auth.Config{
		BotToken:         cfg.TelegramBotToken,
		AdminTelegramIDs: parseAdminIDs(cfg.AdminTelegramIDs),
		WelcomeBonus:     cfg.WelcomeBonus,
		RefBonusReferrer: cfg.RefBonusReferrer,
		RefBonusNewUser:  cfg.RefBonusNewUser,
	}, log.Logger)

	resolver := media.NewResolver(tgClient, diskClient)
	proxy := media.NewProxy(media.ProxyConfig{
		AllowedHosts: cfg.ProxyAllowedHosts,
		MaxRedirects: cfg.ProxyMaxRedirects,
		Timeout:      cfg.ProxyTimeout,
	})

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService, cfg.JWTTTL, cfg.IsProduction())
	userHandler := user.NewHandler(userRepo, redis)
	videoHandler := video.NewHandler(videoRepo, posterStorage)
	ledgerHandler := ledger.NewHandler(ledgerService, cfg.RefBonusReferrer, cfg.RefBonusNewUser)
	mediaHandler := media.NewHandler(resolver, proxy, videoRepo, ledgerService, log.Logger)
	botHandler := bot.NewHandler(tgClient, cfg.TelegramWebhookSecret, cfg.PublicSiteURL, log.Logger)

	authMiddleware := middleware.Auth(jwtService)
	optionalAuth := middleware.OptionalAuth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/telegram", authHandler.SignIn)
		r.Post("/auth/logout", authHandler.SignOut)

		r.Get("/videos", videoHandler.List)
		r.Get("/videos/{id}", videoHandler.Get)

		// Streaming endpoints resolve identity when present so free
		// videos stay watchable without a session.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/media-proxy", mediaHandler.ProxyMedia)
			r.Get("/videos/{id}/stream", mediaHandler.StreamVideo)
			r.Get("/videos/{id}/poster", mediaHandler.StreamPoster)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Get("/me", userHandler.Me)
			r.Get("/profile/refcode", userHandler.RefCode)
			r.Get("/referrals", userHandler.Referrals)

			r.Post("/purchase", ledgerHandler.Purchase)
			r.Get("/purchase/check", ledgerHandler.CheckPurchase)
			r.Get("/my/purchases", ledgerHandler.MyPurchases)
			r.Get("/my/coins/history", ledgerHandler.MyTransactions)
			r.Post("/referral/attach", ledgerHandler.AttachReferral)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())

		r.Get("/users", userHandler.ListUsers)

		r.Get("/videos", videoHandler.AdminList)
		r.Post("/videos", videoHandler.Create)
		r.Patch("/videos/{id}", videoHandler.Update)
		r.Delete("/videos/{id}", videoHandler.Delete)
		r.Post("/videos/{id}/poster", videoHandler.UploadPoster)

		r.Post("/coins", ledgerHandler.Adjust)
		r.Get("/coins/history", ledgerHandler.History)
	})

	r.Post("/telegram/webhook", botHandler.Webhook)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		// Streaming responses can easily outlive a fixed write window.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}

func parseAdminIDs(raw []string) map[int64]bool {
	ids := make(map[int64]bool, len(raw))
	for _, s := range raw {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}
