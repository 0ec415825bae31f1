package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/avtoline/avtoline-api/internal/config"
	"github.com/avtoline/avtoline-api/internal/domain/auth"
	"github.com/avtoline/avtoline-api/internal/domain/business"
	"github.com/avtoline/avtoline-api/internal/domain/chat"
	"github.com/avtoline/avtoline-api/internal/domain/ledger"
	"github.com/avtoline/avtoline-api/internal/domain/notification"
	"github.com/avtoline/avtoline-api/internal/domain/offer"
	"github.com/avtoline/avtoline-api/internal/domain/payment"
	"github.com/avtoline/avtoline-api/internal/domain/request"
	"github.com/avtoline/avtoline-api/internal/domain/tariff"
	"github.com/avtoline/avtoline-api/internal/domain/user"
	"github.com/avtoline/avtoline-api/internal/middleware"
	"github.com/avtoline/avtoline-api/internal/pkg/database"
	"github.com/avtoline/avtoline-api/internal/pkg/jwt"
	"github.com/avtoline/avtoline-api/internal/pkg/logger"
	"github.com/avtoline/avtoline-api/internal/pkg/paybox"
	"github.com/avtoline/avtoline-api/internal/pkg/push"
	pkgresponse "github.com/avtoline/avtoline-api/internal/pkg/response"
	"github.com/avtoline/avtoline-api/internal/pkg/scheduler"
	"github.com/avtoline/avtoline-api/internal/pkg/storage"
	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Avtoline API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	st, err := storage.NewS3Storage(storage.Config{
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
		S3Bucket:    cfg.S3Bucket,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 storage")
	}

	pushClient := push.NewFCMClient(push.FCMConfig{
		ServerKey: cfg.FCMServerKey,
		ProjectID: cfg.FCMProjectID,
	})

	payboxClient := paybox.NewClient(paybox.Config{
		MerchantID:  cfg.PayboxMerchantID,
		SecretKey:   cfg.PayboxSecretKey,
		ResultURL:   cfg.PayboxResultURL,
		Currency:    cfg.PayboxCurrency,
		Language:    cfg.PayboxLanguage,
		LifetimeSec: cfg.PayboxLifetimeSec,
		TestMode:    cfg.PayboxTestMode,
		Timeout:     cfg.PayboxTimeout,
	})

	trk := tracker.New(rdb)
	sched := scheduler.New()

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	businessRepo := business.NewRepository(db)
	tariffRepo := tariff.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	requestRepo := request.NewRepository(db)
	offerRepo := offer.NewRepository(db)
	chatRepo := chat.NewRepository(db)
	notificationRepo := notification.NewRepository(db)
	paymentRepo := payment.NewRepository(db)

	// ---------- WebSocket hub ----------
	chatHub := chat.NewHub(rdb)
	go chatHub.Run()

	// ---------- Services ----------
	authService := auth.NewService(userRepo, jwtService, auth.NewRedisTokenStore(rdb))
	ledgerService := ledger.NewService(ledgerRepo)
	notificationService := notification.NewService(notificationRepo, trk, pushClient, userRepo)
	tariffService := tariff.NewService(tariffRepo, businessRepo, ledgerService, notificationService, cfg.DefaultTariffTitle)
	businessService := business.NewService(businessRepo, tariffService, cfg.StartBalance)
	requestService := request.NewService(requestRepo, trk, businessRepo, request.Config{
		TTL:          cfg.RequestTTL,
		ViewDedupTTL: cfg.ViewDedupTTL,
	})
	offerService := offer.NewService(offerRepo, requestRepo, notificationService, trk, sched, pushClient, userRepo)
	chatService := chat.NewService(chatRepo, trk, notificationService, sched, pushClient, userRepo, chatHub, chat.Config{
		PushDebounce:   cfg.ChatPushDebounce,
		DebounceKeyTTL: cfg.ChatDebounceKeyTTL,
	})
	paymentService := payment.NewService(paymentRepo, payboxClient, ledgerService, businessService)

	if _, err := tariffService.EnsureDefault(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure default tariff")
	}

	// ---------- Background workers ----------
	requestWorker := request.NewWorker(requestService, 15*time.Minute)
	requestWorker.Start()
	tariffWorker := tariff.NewWorker(tariffService, cfg.TariffSweepInterval)
	tariffWorker.Start()

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	businessHandler := business.NewHandler(businessService)
	tariffHandler := tariff.NewHandler(tariffService, businessRepo)
	ledgerHandler := ledger.NewHandler(ledgerService, businessRepo)
	requestHandler := request.NewHandler(requestService, st)
	offerHandler := offer.NewHandler(offerService, businessRepo, st)
	chatHandler := chat.NewHandler(chatService, chatHub, businessRepo, cfg.AllowedOrigins)
	notificationHandler := notification.NewHandler(notificationService)
	paymentHandler := payment.NewHandler(paymentService, businessRepo, cfg.PayboxSecretKey)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint for clients that pass the token as a query
	// parameter (mobile websocket libraries can't always set headers)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(chatHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/businesses", businessHandler.Routes(authMiddleware))
		r.Mount("/tariffs", tariffHandler.Routes(authMiddleware))
		r.Mount("/transactions", ledgerHandler.Routes(authMiddleware))
		r.Mount("/purchase-requests", requestHandler.Routes(authMiddleware))
		r.Mount("/offers", offerHandler.Routes(authMiddleware))
		r.Mount("/chats", chatHandler.Routes(authMiddleware))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	requestWorker.Stop()
	tariffWorker.Stop()
	sched.Stop()
	chatHub.Shutdown()

	log.Info().Msg("Server exited properly")
}
