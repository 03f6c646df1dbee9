package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"

	"taskboard/configs"
	v1 "taskboard/internal/api/v1"
	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/middleware"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
	myws "taskboard/internal/websocket"
	"taskboard/pkg/crypto"
	"taskboard/pkg/database"
	"taskboard/pkg/logger"
)

func main() {
	migrate := flag.Bool("migrate", true, "create the documents table when using postgres")
	drop := flag.Bool("drop", false, "drop the documents table before migrating (postgres only)")
	seedAdmin := flag.Bool("seed-admin", false, "create an admin account if it does not exist")
	adminUser := flag.String("admin-user", "admin", "username for -seed-admin")
	adminPass := flag.String("admin-pass", os.Getenv("ADMIN_PASSWORD"), "password for -seed-admin")
	flag.Parse()

	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi logger
	if err := logger.InitLoggers(cfg.LogDir, cfg.AppEnv); err != nil {
		log.Fatalf("init loggers: %v", err)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application",
		zap.String("time", time.Now().Format(time.RFC3339)),
		zap.String("env", cfg.AppEnv),
		zap.String("docstore", cfg.DocStoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.SecretKey = []byte(cfg.JWTSecret)
	config.UploadDir = cfg.UploadDir
	config.Mailer = notify.NewMailer(cfg.EmailEndpoint)
	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.ErrorLogger.Fatal("Invalid encryption key", zap.Error(err))
	}
	config.Cipher = cipher

	// Inisialisasi document store
	store, err := openStore(ctx, cfg, *migrate, *drop)
	if err != nil {
		logger.ErrorLogger.Fatal("Document store unavailable", zap.Error(err))
	}
	defer store.Close()

	// Redis dipakai untuk cache dan change feed antar instance. Tanpa Redis,
	// aplikasi tetap jalan dengan notifier lokal.
	var notifier docstore.Notifier = docstore.NewLocalNotifier()
	if client, err := database.ConnectRedis(ctx, cfg); err != nil {
		logger.SystemLogger.Warn("Redis unavailable, running without cache", zap.Error(err))
	} else {
		config.RedisClient = client
		defer client.Close()
		store = docstore.NewCachedStore(store, client, cfg.CacheTTL)
		notifier = docstore.NewRedisNotifier(client)
		logger.SystemLogger.Info("Redis Connected")
	}

	config.Store = docstore.NewNotifyingStore(store, notifier)
	config.Subscriptions = docstore.NewSubscriptions(config.Store, notifier)

	if *seedAdmin {
		if *adminPass == "" {
			logger.ErrorLogger.Fatal("-seed-admin needs -admin-pass or ADMIN_PASSWORD")
		}
		if err := repository.CreateAdminUser(ctx, config.Store, *adminUser, *adminPass); err != nil {
			logger.ErrorLogger.Fatal("Error seeding admin", zap.Error(err))
		}
	}

	// Live snapshots untuk websocket
	config.Hub = myws.NewHub()
	go config.Hub.Run(ctx)
	if err := config.Hub.Feed(ctx, config.Subscriptions, myws.StreamableCollections...); err != nil {
		logger.ErrorLogger.Fatal("Error subscribing websocket feed", zap.Error(err))
	}

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit,
		Expiration: 1 * time.Minute,
	}))

	// Daftarkan route API v1
	v1.RegisterRoutes(app)

	go func() {
		<-ctx.Done()
		logger.SystemLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.ErrorLogger.Error("Shutdown failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
