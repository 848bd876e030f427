package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"peanut/internal/config"
	"peanut/internal/governor"
	"peanut/internal/handlers"
	"peanut/internal/history"
	"peanut/internal/intent"
	"peanut/internal/jobs"
	"peanut/internal/logging"
	"peanut/internal/middleware"
	"peanut/internal/respcache"
	"peanut/internal/services"
	"peanut/internal/session"
	"peanut/internal/store"
	"peanut/internal/trigger"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🥜 Starting Peanut assistant server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Data: %s)", cfg.Port, cfg.DataDir)

	// Keyword tables with hot reload
	keywords, err := config.NewKeywordSource(cfg.KeywordsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load keyword tables: %v", err)
	}
	stopWatch := make(chan struct{})
	if keywords.Path() != "" {
		go config.WatchKeywords(keywords, stopWatch)
	}

	// Conversation history (SQLite)
	historyStore, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		log.Fatalf("❌ Failed to open history database: %v", err)
	}
	defer historyStore.Close()

	// Response cache for generated replies
	respCache, err := respcache.New(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("❌ Failed to initialize response cache: %v", err)
	}

	// Per-user record stores
	todos := store.NewTodoStore(cfg.DataDir + "/todos")
	notes := store.NewNoteStore(cfg.DataDir + "/notes")
	links := store.NewLinkStore(cfg.DataDir + "/links")

	metrics := services.InitMetrics()

	// Generative service behind the call governor
	gov := governor.New(cfg.LLMPerMinute, cfg.LLMPerDay)
	llm := services.NewLLMService(services.LLMConfig{
		Endpoint:   cfg.LLMEndpoint,
		APIKey:     cfg.LLMAPIKey,
		Model:      cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
	}, gov, respCache, metrics)

	// Intent classification: rule-based core, generative refinement on top
	// when an API key is configured
	rules := intent.NewRuleClassifier(keywords)
	var classifier intent.Classifier = rules
	if cfg.LLMAPIKey != "" {
		classifier = intent.NewAIClassifier(llm, rules)
		log.Println("🧠 AI intent classification enabled (rule fallback)")
	} else {
		log.Println("📏 Rule-based intent classification only (no LLM_API_KEY)")
	}

	sessions := session.NewManager(cfg.SessionIdleTimeout)
	detector := trigger.NewDetector(keywords)

	dispatcher := services.NewDispatcher(sessions, detector, classifier, keywords, todos, notes, links, historyStore, metrics)
	reply := services.NewReplyService(cfg.ReplyPushURL, cfg.ReplyToken)

	// Maintenance jobs
	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create maintenance scheduler: %v", err)
	}
	if err := scheduler.Register(jobs.NewCacheSweepJob(respCache), cfg.SweepCron); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := scheduler.Register(jobs.NewHistoryPruneJob(historyStore, cfg.HistoryRetention), "0 4 * * *"); err != nil {
		log.Fatalf("❌ %v", err)
	}
	scheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Peanut v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // chat messages are small
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("peanut")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Webhook=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.WebhookMax)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Handlers and routes
	healthHandler := handlers.NewHealthHandler(sessions)
	webhookHandler := handlers.NewWebhookHandler(dispatcher, llm, reply, historyStore)

	app.Get("/health", healthHandler.Handle)
	app.Post("/api/webhook", middleware.WebhookRateLimiter(rateLimitConfig), webhookHandler.HandleMessage)

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📨 Webhook endpoint: http://localhost:%s/api/webhook", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		close(stopWatch)

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping maintenance scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
