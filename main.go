package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"movment/activity"
	"movment/admin"
	"movment/analytics"
	"movment/auth"
	"movment/chats"
	"movment/config"
	"movment/db"
	"movment/events"
	"movment/filemgr"
	"movment/invoice"
	"movment/jobs"
	"movment/lifecycle"
	"movment/manager"
	"movment/metrics"
	"movment/middleware"
	"movment/newchat"
	"movment/notify"
	"movment/pay"
	"movment/profile"
	"movment/ratelim"
	"movment/rdx"
	"movment/reviews"
	"movment/routes"
	"movment/tickets"
	"movment/userdata"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Index is a simple health check handler. It also pings Mongo.
func Index(store *db.Store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
	}
}

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.JWT.DefaultSecret() {
		logger.Warn("JWT_SECRET not set; using the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := db.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, logger.Named("db"))
	cancel()
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer store.Close(context.Background())

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = store.EnsureIndexes(indexCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	// Redis is optional: without it ticks run unlocked, logout cannot revoke
	// tokens early and analytics are computed on every request.
	var (
		rdb         *redis.Client
		publisher   redis.Cmdable
		locker      jobs.Locker
		revoker     auth.Revoker
		revocations middleware.Revocations
		cache       *rdx.Cache
	)
	if cfg.Redis.Addr != "" {
		rdb, err = rdx.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		publisher = rdb
		locker = rdx.NewLocker(rdb, "movment:lock:")
		rev := rdx.NewRevocations(rdb, "movment:revoked:")
		revoker, revocations = rev, rev
		cache = rdx.NewCache(rdb, "movment:analytics:")
	}

	users := db.NewUserRepo(store)
	eventRepo := db.NewEventRepo(store)
	notifications := db.NewNotificationRepo(store)
	recorder := activity.NewRecorder(store.Activities, publisher, logger.Named("activity"))

	hub := newchat.NewHub(logger.Named("live"))
	go hub.Run()

	notifier := notify.NewService(notifications, hub, users,
		notify.NewEmailSender(cfg.Delivery, logger.Named("email")),
		notify.NewSMSSender(cfg.Delivery, logger.Named("sms")),
		logger.Named("notify"))

	svc := lifecycle.NewService(eventRepo, notifier, recorder, logger.Named("lifecycle"),
		lifecycle.WithAssignDelay(cfg.Scheduler.AutoAssignDelay))

	jobOpts := []jobs.Option{jobs.WithLogger(logger.Named("jobs"))}
	if locker != nil {
		jobOpts = append(jobOpts, jobs.WithLocker(locker))
	}
	runner := jobs.NewRunner(
		jobs.NewAutoAssigner(eventRepo, users, svc, append(jobOpts, jobs.WithInterval(cfg.Scheduler.AutoAssignInterval))...),
		jobs.NewReminder(eventRepo, notifier, cfg.Scheduler.ReminderWindow, append(jobOpts, jobs.WithInterval(cfg.Scheduler.ReminderInterval))...),
	)
	runner.Start(ctx)

	gate := middleware.NewGate([]byte(cfg.JWT.Secret), time.Duration(cfg.JWT.ExpireHours)*time.Hour, users, logger.Named("auth"))
	if revocations != nil {
		gate = gate.WithRevocations(revocations)
	}

	feedback := db.NewFeedbackRepo(store)
	payments := db.NewPaymentRepo(store)
	analyticsHandler := analytics.NewHandler(db.NewAnalyticsRepo(store), users, eventRepo, cache, logger.Named("analytics"))
	if rdb != nil {
		sub := rdb.Subscribe(ctx, activity.Channel)
		defer sub.Close()
		go analytics.NewInvalidator(cache, logger.Named("analytics")).Run(ctx, sub.Channel())
	}

	handlers := &routes.Handlers{
		Auth:      auth.NewHandler(users, gate, revoker, recorder, logger.Named("auth")),
		Events:    events.NewHandler(svc, eventRepo, logger.Named("events")),
		Profile:   profile.NewHandler(users, filemgr.NewStore(cfg.Uploads.Dir), recorder, logger.Named("profile")),
		UserData:  userdata.NewHandler(db.NewRequestRepo(store), notifications, logger.Named("userdata")),
		Tickets:   tickets.NewHandler(db.NewTicketRepo(store), notifier, recorder, logger.Named("tickets")),
		Pay:       pay.NewHandler(eventRepo, payments, db.NewRefundRepo(store), recorder, logger.Named("pay")),
		Keys:      db.NewIdempotencyRepo(store),
		Invoice:   invoice.NewHandler(eventRepo, users, payments, cfg.Invoice, logger.Named("invoice")),
		Reviews:   reviews.NewHandler(eventRepo, feedback, recorder, logger.Named("reviews")),
		Chats:     chats.NewHandler(db.NewConversationRepo(store), eventRepo, hub, recorder, logger.Named("chats")),
		Manager:   manager.NewHandler(eventRepo, svc, notifier, db.NewResourceRepo(store), logger.Named("manager")),
		Admin:     admin.NewHandler(users, db.NewRequestRepo(store), eventRepo, db.NewPromotionRepo(store), notifier, recorder, logger.Named("admin")),
		Analytics: analyticsHandler,
	}

	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	sweepStop := make(chan struct{})
	go rateLimiter.RunSweeper(sweepStop)
	defer close(sweepStop)

	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		logger.Error("handler panic", zap.String("id", utils.RequestID(r)), zap.String("path", r.URL.Path), zap.Any("panic", v), zap.Stack("stack"))
		utils.RespondWithError(w, http.StatusInternalServerError, "Server error")
	}
	router.GET("/health", Index(store))
	router.GET("/metrics", metrics.Handler())
	router.GET("/api/live", hub.ServeLive(gate, cfg.Server.CORSAllowedOrigins))
	router.ServeFiles("/uploads/*filepath", http.Dir(cfg.Uploads.Dir))
	routes.RoutesWrapper(router, rateLimiter, gate, handlers, logger.Named("routes"))

	// apply middleware: logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", pay.IdempotencyHeader},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           middleware.Logging(logger.Named("http"))(middleware.SecurityHeaders(corsHandler)),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		logger.Info("stopping live hub")
		hub.Stop()
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runner.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}
