package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
	"waitlist/config"
	"waitlist/internal/handlers"
	"waitlist/internal/hub"
	"waitlist/internal/services"
	"waitlist/monitoring"
	"waitlist/security"
	"waitlist/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	slog.SetDefault(cfg.NewLogger(os.Stdout))
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.RootCmd.SetArgs(serveArgs(os.Args[1:], cfg.Port))
	slog.Info("configuration loaded", "environment", cfg.Environment, "port", cfg.Port)
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := monitoring.NewMonitor()

	// Broadcast hub
	broadcastHub := hub.NewHub(cfg.ObserverBuffer, monitor)
	go broadcastHub.Run(ctx)

	// Initialize services
	historyService := services.NewHistoryService(redisClient, cfg.HistoryRetention)
	notificationService := newNotificationService(cfg)
	var notifier services.Notifier
	if notificationService != nil {
		notifier = notificationService
	}
	queueService := services.NewQueueService(cfg, broadcastHub, notifier, historyService, monitor)
	queryService := services.NewQueryService(queueService, historyService, location)

	broadcastHub.Prime(queueService.State())

	staffAuth, err := security.NewStaffAuth(redisClient, cfg.StaffPasswordHash, cfg.StaffPassword, cfg.StaffTokenTTL)
	if err != nil {
		return err
	}
	rateLimiter := security.NewRateLimiter(redisClient, cfg.JoinRateLimit)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(queueService, queryService, broadcastHub, staffAuth)
	staffHandler := handlers.NewStaffHandler(queueService, queryService, staffAuth)
	analyticsHandler := handlers.NewAnalyticsHandler(queryService)

	if cfg.EnableMetrics {
		go serveMetrics(ctx, cfg.MetricsPort)
	}

	go healthMonitor(ctx, queueService, broadcastHub, notificationService)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Queue endpoints
		e.Router.POST("/api/v1/queue/join", queueHandler.JoinQueue).
			BindFunc(rateLimiter.AntiBot(), rateLimiter.Limit("join"))
		e.Router.GET("/api/v1/queue/status", queueHandler.GetQueueStatus)
		e.Router.GET("/api/v1/queue/ws", queueHandler.Subscribe)
		e.Router.GET("/api/v1/queue/{id}", queueHandler.GetParty)
		e.Router.DELETE("/api/v1/queue/{id}", queueHandler.LeaveQueue)

		// Staff endpoints
		e.Router.POST("/api/v1/staff/login", staffHandler.Login).
			BindFunc(rateLimiter.Limit("login"))

		staff := e.Router.Group("/api/v1/staff")
		staff.BindFunc(staffAuth.RequireStaff())
		staff.POST("/logout", staffHandler.Logout)
		staff.GET("/next", staffHandler.GetNext)
		staff.POST("/admit-next", staffHandler.AdmitNext)
		staff.POST("/skip", staffHandler.SkipParty)
		staff.POST("/finish/{id}", staffHandler.FinishParty)
		staff.GET("/seated", staffHandler.GetSeated)
		staff.PUT("/service-time", staffHandler.SetServiceTime)
		staff.DELETE("/observers/{id}", queueHandler.DisconnectObserver)

		// Analytics endpoints
		analytics := e.Router.Group("/api/v1/analytics")
		analytics.BindFunc(staffAuth.RequireStaff())
		analytics.GET("/stats", analyticsHandler.GetStats)
		analytics.GET("/seated", analyticsHandler.GetSeated)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]any{
				"status":        "healthy",
				"waiting":       queueService.Snapshot().Count,
				"observers":     broadcastHub.ObserverCount(),
				"broadcast_seq": broadcastHub.Cached().Seq,
				"notifications": notifierState(notificationService),
			})
		})

		slog.Info("server routes registered")

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		cancel()
		queueService.Shutdown()
		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		return err
	}

	cancel()
	queueService.Shutdown()
	return nil
}

// newNotificationService returns nil when PubNub is not configured.
func newNotificationService(cfg *config.Config) *services.NotificationService {
	if cfg.PubNubPublishKey == "" || cfg.PubNubSubscribeKey == "" {
		slog.Info("pubnub keys not set, party notifications are disabled")
		return nil
	}

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)
	return services.NewNotificationService(services.NewPubNubPublisher(pn))
}

func notifierState(notificationService *services.NotificationService) string {
	if notificationService == nil {
		return "disabled"
	}
	breaker := notificationService.Breaker()
	return breaker.Name() + " " + breaker.State().String()
}

func serveMetrics(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("srv.ListenAndServe()", "error", err)
	}
}

// healthMonitor logs queue and process stats once a minute.
func healthMonitor(ctx context.Context, queueService *services.QueueService, broadcastHub *hub.Hub, notificationService *services.NotificationService) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snapshot, seated := queueService.State()
			memStats := &runtime.MemStats{}
			runtime.ReadMemStats(memStats)

			slog.Info("health stats",
				"waiting", snapshot.Count,
				"seated", len(seated),
				"observers", broadcastHub.ObserverCount(),
				"broadcast_seq", broadcastHub.Cached().Seq,
				"notifications", notifierState(notificationService),
				"goroutines", runtime.NumGoroutine(),
				"memory_mb", float64(memStats.Alloc)/1024/1024,
			)
		case <-ctx.Done():
			return
		}
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("shutdown signal received, cleaning up")
	cancel()
}
