package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/clipbrief/video-insight/internal/cleanup"
	"github.com/clipbrief/video-insight/internal/client"
	"github.com/clipbrief/video-insight/internal/config"
	"github.com/clipbrief/video-insight/internal/gemini"
	"github.com/clipbrief/video-insight/internal/handlers"
	"github.com/clipbrief/video-insight/internal/jobs"
	"github.com/clipbrief/video-insight/internal/media"
	"github.com/clipbrief/video-insight/internal/storage"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		logrus.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll("data", 0755); err != nil {
		logrus.Fatalf("Failed to create data directory: %v", err)
	}

	// Tee logs into memory so they stay inspectable over /logs.
	logBuffer := &LogBuffer{lines: make([]string, 0, 1000)}
	logrus.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	logrus.Info("Initializing components...")

	db, err := storage.Open(cfg.Storage.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	reports, err := storage.NewReportStore(db, cfg.Storage.ReportsDir)
	if err != nil {
		logrus.Fatalf("Failed to initialize report store: %v", err)
	}

	extractor := media.NewExtractor(cfg.Storage.TempDir)
	ai := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Provider.APIKey,
		Prompt:  cfg.Provider.Prompt,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.Provider.Timeout,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	summaryEndpoint := cfg.SummaryEndpoint
	if summaryEndpoint == "" {
		summaryEndpoint = fmt.Sprintf("http://127.0.0.1:%d/api/summary", cfg.Server.Port)
	}
	// The submission leg waits a bit longer than the provider call itself.
	submitter := client.NewSubmitter(summaryEndpoint, cfg.Provider.Timeout+30*time.Second)

	manager := jobs.NewManager()
	bus := jobs.NewEventBus(500)
	runner := jobs.NewRunner(manager, bus, extractor, submitter, db, reports)

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	summaryHandler := handlers.NewSummaryHandler(ai, db)
	statsHandler := handlers.NewStatsHandler(db)
	analyzeHandler := handlers.NewAnalyzeHandler(runner, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB)
	jobsHandler := handlers.NewJobsHandler(manager)
	progressHandler := handlers.NewProgressHandler(bus)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/api/summary", summaryHandler.Handle)
	app.Get("/api/stats", statsHandler.Get)
	app.Post("/api/stats", statsHandler.Increment)
	app.Post("/api/analyze", analyzeHandler.Handle)
	app.Get("/api/jobs/current", jobsHandler.Current)
	app.Post("/api/jobs/reset", jobsHandler.Reset)

	app.Get("/ws/progress", websocket.New(progressHandler.Handle))

	app.Get("/api/reports", func(c *fiber.Ctx) error {
		list, err := reports.List(50)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(list)
	})

	app.Get("/api/reports/:id/text", func(c *fiber.Ctx) error {
		text, err := reports.ReadText(c.Params("id"))
		if err != nil {
			return c.Status(404).JSON(fiber.Map{"error": "Report not found"})
		}
		return c.SendString(text)
	})

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	logrus.Infof("Server starting on %s", addr)
	logrus.Info("Endpoints:")
	logrus.Info("   POST /api/analyze      - Upload video for analysis")
	logrus.Info("   POST /api/summary      - Summarize raw audio bytes")
	logrus.Info("   GET  /api/stats        - Usage counter")
	logrus.Info("   GET  /api/jobs/current - Current job snapshot")
	logrus.Info("   GET  /ws/progress      - Progress event stream")
	logrus.Info("   GET  /api/reports      - Archived analysis reports")
	logrus.Info("   GET  /health           - Health check")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logrus.Info("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
