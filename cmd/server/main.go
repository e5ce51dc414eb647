package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"taskmate/internal/config"
	"taskmate/internal/database"
	"taskmate/internal/handlers"
	"taskmate/internal/logging"
	"taskmate/internal/middleware"
	"taskmate/internal/preflight"
	"taskmate/internal/services"
	"taskmate/internal/tools"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting TaskMate Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Model: %s)", cfg.Port, cfg.OpenAIModel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Run preflight checks
	checker := preflight.NewChecker(db, cfg)
	if preflight.HasFailures(checker.RunAll()) {
		log.Println("\n❌ Pre-flight checks failed. Please fix the issues above before starting the server.")
		os.Exit(1)
	}
	log.Println("✅ All pre-flight checks passed")

	// Initialize services
	taskStore := services.NewTaskStore(db)

	registry := tools.NewRegistry()
	if err := tools.RegisterTaskTools(registry, taskStore); err != nil {
		log.Fatalf("❌ Failed to register task tools: %v", err)
	}
	log.Printf("🔧 Registered %d task tools", registry.Count())

	invoker := services.NewCompletionClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)

	prompts := services.NewPromptService()
	if cfg.SystemPromptFile != "" {
		if err := prompts.LoadOverride(cfg.SystemPromptFile); err != nil {
			log.Printf("⚠️  Failed to load system prompt file: %v (using built-in prompt)", err)
		} else if err := prompts.Watch(cfg.SystemPromptFile); err != nil {
			log.Printf("⚠️  Failed to watch system prompt file: %v (hot-reload disabled)", err)
		}
	}
	defer prompts.Close()

	history := services.NewConversationCache()
	chatService := services.NewChatService(invoker, registry, prompts, history, cfg.MaxToolIterations)

	connManager := services.NewConnectionManager()

	// Initialize Prometheus metrics
	services.InitMetrics(connManager)
	log.Println("✅ Prometheus metrics initialized")

	broadcaster := services.NewBroadcaster(connManager, taskStore)

	// Optional Redis pub/sub for multi-instance broadcasts
	var redisService *services.RedisService
	var pubsub *services.TaskPubSub
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Failed to connect to Redis: %v (cross-instance broadcasts disabled)", err)
		} else {
			pubsub = services.NewTaskPubSub(redisService, uuid.New().String())
			if err := broadcaster.AttachPubSub(pubsub); err != nil {
				log.Printf("⚠️  Failed to start task pub/sub: %v (cross-instance broadcasts disabled)", err)
				pubsub = nil
			}
		}
	} else {
		log.Println("⚠️  REDIS_URL not set - cross-instance broadcasts disabled")
	}

	// Periodic model provider probe, surfaced on /health
	monitor, err := services.NewProviderMonitor(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ModelHealthInterval)
	if err != nil {
		log.Printf("⚠️  Failed to create provider monitor: %v", err)
		monitor = nil
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:        "TaskMate v1.0",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		ReadBufferSize: 16384, // 16KB for request headers (privacy browsers send extra headers)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("taskmate")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig(cfg)
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.WebSocketMax,
	)

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard
	// origins. With ALLOWED_ORIGINS=* the frontend is served from the same
	// origin, so credentials aren't needed.
	allowedOrigins := cfg.AllowedOrigins
	allowCredentials := allowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	// Flood protection for the HTTP surface (metrics stays open for scrapers)
	app.Use("/health", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(connManager, monitor)
	wsHandler := handlers.NewWebSocketHandler(connManager, chatService, broadcaster, cfg.WSMessagesPerMinute)

	app.Get("/health", healthHandler.Handle)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			c.Locals("client_ip", c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Rate limiter for WebSocket connections (configurable via RATE_LIMIT_WEBSOCKET env var)
	wsConnectionLimiter := middleware.WebSocketRateLimiter(rateLimitConfig)

	// WebSocket config with allowed origins (same as CORS config)
	wsConfig := websocket.Config{
		Origins: strings.Split(allowedOrigins, ","),
	}

	app.Use("/ws/chat", wsConnectionLimiter)
	app.Get("/ws/chat", websocket.New(wsHandler.Handle, wsConfig))

	// Start the provider probe
	if monitor != nil {
		if err := monitor.Start(); err != nil {
			log.Printf("⚠️  Failed to start provider monitor: %v", err)
		}
	}

	// Start server
	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("🔗 WebSocket endpoint: ws://localhost:%s/ws/chat", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		// Stop the provider probe
		if monitor != nil {
			if err := monitor.Stop(); err != nil {
				log.Printf("⚠️  Error stopping provider monitor: %v", err)
			}
		}

		// Stop PubSub service
		if pubsub != nil {
			if err := pubsub.Stop(); err != nil {
				log.Printf("⚠️  Error stopping PubSub: %v", err)
			}
		}

		if redisService != nil {
			if err := redisService.Close(); err != nil {
				log.Printf("⚠️  Error closing Redis: %v", err)
			}
		}

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
