package main

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"mailagent/agent"
	"mailagent/config"
	"mailagent/handlers/api"
	"mailagent/llm"
	"mailagent/middleware"
	"mailagent/models"
	"mailagent/storage"
	"mailagent/utils"
)

const version = "1.0.0"

func main() {
	utils.Log.Info("Initializing mailagent...")

	cfg, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Warn("Failed to load config, using defaults: %v", err)
		cfg = config.Default()
	}

	client, err := llm.New(cfg)
	if err != nil {
		utils.Log.Error("Failed to create AI client: %v", err)
		return
	}
	utils.Log.Info("Using %s provider with model %s", cfg.AI.Provider, cfg.AI.Model)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		utils.Log.Error("Failed to open storage: %v", err)
		return
	}
	defer store.Close()

	emailAgent := agent.New(client, cfg.Cache.DigestTTL())

	if err := rehydrateThreads(store, emailAgent); err != nil {
		utils.Log.Warn("Failed to rehydrate threads: %v", err)
	}

	if cfg.Server.Demo {
		seedDemoData(store, emailAgent)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
				utils.Log.Error("Application error: %v", appErr)
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	}))
	app.Use(middleware.RateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.RateWindow()))

	// Handlers
	notifier := api.NewNotificationHandler()
	emailHandler := api.NewEmailHandler(store)
	processHandler := api.NewProcessHandler(store, emailAgent, notifier)
	threadHandler := api.NewThreadHandler(emailAgent)
	statsHandler := api.NewStatsHandler(store)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AI Email Agent API",
			"version": version,
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	apiRoutes := app.Group("/api")
	{
		// Email routes
		apiRoutes.Get("/emails", emailHandler.HandleList)
		apiRoutes.Get("/emails/:id", emailHandler.HandleGet)
		apiRoutes.Post("/emails/:id/read", emailHandler.HandleMarkRead)

		// Pipeline routes
		apiRoutes.Post("/process", processHandler.HandleProcess)
		apiRoutes.Post("/process/batch", processHandler.HandleBatch)
		apiRoutes.Post("/reply", processHandler.HandleReply)

		// Mock transport routes
		apiRoutes.Post("/reply/send", emailHandler.HandleSendReply)
		apiRoutes.Post("/send", emailHandler.HandleSend)

		// Thread routes
		apiRoutes.Get("/threads/:id", threadHandler.HandleThread)
		apiRoutes.Get("/threads/:id/summary", threadHandler.HandleSummary)

		// Stats
		apiRoutes.Get("/stats", statsHandler.HandleStats)

		// Notifications
		apiRoutes.Get("/notifications/stream", notifier.HandleSSE)
		apiRoutes.Get("/notifications/ws", websocket.New(notifier.HandleWebSocket))
	}

	// 404 handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "Not found",
		})
	})

	utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}

// rehydrateThreads rebuilds the agent's thread registry from stored
// emails so analyses keep their context across restarts.
func rehydrateThreads(store *storage.Store, emailAgent *agent.Agent) error {
	emails, err := store.ListEmails()
	if err != nil {
		return err
	}

	// Oldest first so subjects and participant order replay correctly
	for i := len(emails) - 1; i >= 0; i-- {
		email := emails[i]
		threadID := email.ThreadID
		if threadID == "" {
			threadID = email.ID
		}
		thread := emailAgent.GetOrCreateThread(threadID, email.Subject)
		thread.AddEmail(email)
	}

	if len(emails) > 0 {
		utils.Log.Info("Rehydrated %d emails into threads", len(emails))
	}
	return nil
}

// seedDemoData loads a small demo inbox on first start.
func seedDemoData(store *storage.Store, emailAgent *agent.Agent) {
	if existing, err := store.ListEmails(); err != nil || len(existing) > 0 {
		return
	}

	demo := []*models.Email{
		{
			ID:         "email-001",
			Subject:    "Project Alpha Launch - Timeline Discussion",
			Sender:     "sarah.chen@company.com",
			SenderName: "Sarah Chen",
			Recipients: []string{"you@company.com"},
			Body: "Hi team,\n\nI wanted to discuss the timeline for Project Alpha. We're currently scheduled to launch on March 15th, but I'm concerned about the testing phase.\n\n" +
				"Can we schedule a meeting this week to review the current status? I think we need at least 2 more weeks for proper QA.\n\nPlease let me know your availability.\n\nBest,\nSarah",
			ThreadID:  "thread-001",
			Timestamp: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:         "email-002",
			Subject:    "Invoice #1234 - Payment Due",
			Sender:     "billing@vendor.com",
			SenderName: "Vendor Billing",
			Recipients: []string{"you@company.com"},
			Body: "Dear Customer,\n\nThis is a reminder that Invoice #1234 for $5,000 is due on February 20th, 2026.\n\n" +
				"Please process the payment at your earliest convenience to avoid late fees.\n\nThank you for your business.\n\nRegards,\nBilling Department",
			ThreadID:  "thread-002",
			Timestamp: time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC),
			IsRead:    true,
		},
		{
			ID:         "email-003",
			Subject:    "URGENT: Critical bug in production",
			Sender:     "dev-team@company.com",
			SenderName: "Development Team",
			Recipients: []string{"you@company.com"},
			Body: "URGENT - Action Required\n\nWe've discovered a critical bug in the authentication module that is affecting user logins. This needs immediate attention.\n\n" +
				"Error: Null pointer exception in AuthHandler.java\nImpact: All users unable to login\n\nPlease prioritize this fix ASAP.\n\nThanks",
			ThreadID:  "thread-003",
			Timestamp: time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC),
		},
		{
			ID:         "email-004",
			Subject:    "Weekend plans?",
			Sender:     "john.doe@personal.com",
			SenderName: "John Doe",
			Recipients: []string{"you@company.com"},
			Body: "Hey!\n\nAre you free this weekend? A few of us are planning to go hiking on Saturday morning. Let me know if you want to join!\n\nCheers,\nJohn",
			ThreadID:  "thread-004",
			Timestamp: time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC),
			IsRead:    true,
		},
		{
			ID:         "email-005",
			Subject:    "Q1 Budget Review Meeting",
			Sender:     "finance@company.com",
			SenderName: "Finance Team",
			Recipients: []string{"you@company.com", "team@company.com"},
			Body: "Hi everyone,\n\nPlease join us for the Q1 Budget Review meeting scheduled for:\n\nDate: February 20th, 2026\nTime: 2:00 PM - 3:30 PM\nLocation: Conference Room A / Zoom\n\n" +
				"Agenda:\n- Q1 spending review\n- Budget adjustments\n- Q2 projections\n\nPlease come prepared with your department's numbers.\n\nBest,\nFinance Team",
			ThreadID:  "thread-005",
			Timestamp: time.Date(2026, 2, 15, 11, 0, 0, 0, time.UTC),
		},
	}

	for _, email := range demo {
		email.Normalize()
		if err := store.SaveEmail(email); err != nil {
			utils.Log.Error("Failed to seed email %s: %v", email.ID, err)
			continue
		}
		thread := emailAgent.GetOrCreateThread(email.ThreadID, email.Subject)
		thread.AddEmail(email)
		if err := store.SaveThread(thread); err != nil {
			utils.Log.Error("Failed to seed thread %s: %v", email.ThreadID, err)
		}
	}

	utils.Log.Info("Seeded %d demo emails", len(demo))
}
