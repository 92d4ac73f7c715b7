package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/flow"
	httpapi "github.com/nikitamakarovs05-netizen/tg-market-bot/internal/http"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/http/handlers"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/mailer"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/notify"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/repo/postgres"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/service"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/session"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/transport"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/config"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/database"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/events"
	"github.com/nikitamakarovs05-netizen/tg-market-bot/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisOpts.DB = cfg.Redis.DB
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	// Repositories
	users := postgres.NewUsersRepo(pool)
	products := postgres.NewProductsRepo(pool)
	carts := postgres.NewCartsRepo(pool)
	orders := postgres.NewOrdersRepo(pool)
	challenges := postgres.NewChallengesRepo(pool)
	content := postgres.NewContentRepo(pool)

	// Services
	mail := mailer.FromConfig(cfg)
	verifySvc := service.NewVerifyService(users, challenges, mail, bus, cfg)
	cartSvc := service.NewCartService(carts, products)
	checkoutSvc := service.NewCheckoutService(users, carts, orders, bus)
	catalogSvc := service.NewCatalogService(products, content)

	// Conversation core
	render := transport.NewNATSRenderer(bus)
	store := session.NewRedisStore(redisClient, cfg.Shop.SessionTTL)
	coordinator := session.NewCoordinator(store, render)

	flows := flow.New(users, verifySvc, cartSvc, checkoutSvc, catalogSvc, render, bus)
	flows.Register(coordinator)

	if err := transport.SubscribeInbound(bus, coordinator); err != nil {
		logger.Error("Failed to subscribe to inbound chat events", "error", err)
		os.Exit(1)
	}

	// Stale challenges are garbage, not secrets; sweep them on a slow cycle.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			deleted, err := challenges.DeleteExpired(context.Background())
			if err != nil {
				logger.Error("Failed to sweep expired challenges", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("Swept expired challenges", "deleted", deleted)
			}
		}
	}()

	notifier := notify.NewAdminNotifier(cfg.Shop.AdminIDs, render)
	if err := notifier.Subscribe(bus); err != nil {
		logger.Error("Failed to subscribe admin notifier", "error", err)
		os.Exit(1)
	}

	// Admin/ops HTTP surface
	adminHandlers := handlers.NewAdminHandlers(products, content, users, orders, cfg.Auth.JWTSecret)
	router := httpapi.NewRouter(adminHandlers)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting admin API server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("Conversation core is running",
		"nats_url", cfg.NATS.URL,
		"admins", len(cfg.Shop.AdminIDs),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
