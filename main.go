package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"habit-battle-system/handlers"
	"habit-battle-system/middleware"
	"habit-battle-system/models"
	"habit-battle-system/services"
	"habit-battle-system/utils"
	"habit-battle-system/workers"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config carries every tunable the service reads from the environment.
// HABIT_SERVICE_TOKEN is also read separately by the gateway middleware and
// the wallet sync client.
type Config struct {
	Port        string `env:"PORT" envDefault:"5300"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	SyncServiceURL  string `env:"SYNC_SERVICE_URL,required"`
	ProfileSyncPath string `env:"PROFILE_SYNC_PATH" envDefault:"/api/v1/public/profiles"`
	AuthServiceURL  string `env:"AUTH_SERVICE_URL,required"`
	ServiceToken    string `env:"HABIT_SERVICE_TOKEN,required"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	WalletPollInterval time.Duration `env:"WALLET_POLL_INTERVAL" envDefault:"10s"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("failed to parse environment config: ", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.Monster{},
		&models.Battle{},
		&models.Adventure{},
		&models.MatchRound{},
		&models.Task{},
		&models.TaskTemplate{},
		&models.EffectivenessDiscovery{},
		&models.MatchReward{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.CoinWalletMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	badgeService := services.NewBadgeService(db)
	if err := badgeService.SeedBadgeTypes(); err != nil {
		log.Fatal("failed to seed badge types:", err)
	}

	monsterService := services.NewMonsterService(db)
	if err := monsterService.SeedCatalog(); err != nil {
		log.Fatal("failed to seed monster catalog:", err)
	}

	engine := services.NewEngine(db)
	engine.Badges = badgeService

	taskService := services.NewTaskService(db)
	battleService := services.NewBattleService(db, engine)
	adventureService := services.NewAdventureService(db, engine)
	userService := services.NewUserService(db, badgeService)
	rewardService := services.NewRewardService(db)
	authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.ServiceToken)

	app := fiber.New(fiber.Config{
		BodyLimit: 200 * 1024 * 1024, // 200MB, covers monster art packs
	})

	// Routes registered before the gateway guard stay reachable without a
	// Bearer token: health probes, the Prometheus scraper, and the SSE stream
	// (EventSource cannot set headers; it authenticates via query params).
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.SetupStreamRoutes(app, rewardService, authClient)

	// 🔐❗ GLOBAL: everything below must come through the Gateway
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupTaskRoutes(app, taskService)
	handlers.SetupBattleRoutes(app, battleService)
	handlers.SetupAdventureRoutes(app, adventureService)
	handlers.SetupUserRoutes(app, userService, rewardService)
	handlers.SetupAdminRoutes(app, monsterService, rewardService, engine, battleService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewUserSyncWorker(db, cfg.SyncServiceURL, cfg.ProfileSyncPath, cfg.ServiceToken)
	syncWorker.Start(ctx)

	walletSyncClient := workers.NewWalletSyncClient(db)
	go workers.PollWallets(ctx, walletSyncClient, cfg.WalletPollInterval)

	engine.StartProgressionSweeper(battleService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ User Sync Worker running")
	log.Printf("✅ Wallet polling running (every %s)", cfg.WalletPollInterval)
	log.Println("✅ Hourly progression sweeper running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
