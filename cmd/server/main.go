package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/analysis"
	"github.com/codebuildervaibhav/conversation-insights/internal/cleanup"
	"github.com/codebuildervaibhav/conversation-insights/internal/config"
	"github.com/codebuildervaibhav/conversation-insights/internal/handlers"
	"github.com/codebuildervaibhav/conversation-insights/internal/logging"
	"github.com/codebuildervaibhav/conversation-insights/internal/middleware"
	"github.com/codebuildervaibhav/conversation-insights/internal/pipeline"
	"github.com/codebuildervaibhav/conversation-insights/internal/samples"
	"github.com/codebuildervaibhav/conversation-insights/internal/storage"
	"github.com/codebuildervaibhav/conversation-insights/internal/transcription"
	"github.com/codebuildervaibhav/conversation-insights/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	logBuffer := logging.NewLogBuffer()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, logBuffer)
	log.Info("Initializing components...")

	files, err := storage.NewTempStorage(cfg.Storage.TempDir)
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	// Processing needs the hosted API; without a key the UI still loads and
	// shows setup instructions.
	var (
		processor handlers.Processor
		generator handlers.SampleGenerator
	)
	apiKey, err := cfg.ResolveAPIKey()
	switch {
	case errors.Is(err, config.ErrMissingAPIKey):
		log.Warn(handlers.SetupInstructions)
	case err != nil:
		log.Fatalf("Failed to read API key: %v", err)
	default:
		client := aiclient.New(apiKey, cfg.OpenAI.BaseURL, time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second)
		processor = pipeline.New(
			transcription.NewOpenAITranscriber(client, cfg.OpenAI.TranscriptionModel, cfg.OpenAI.Language, log),
			newSplitter(cfg, client, log),
			analysis.NewOpenAIAnalyzer(client, cfg.OpenAI.AnalysisModel, log),
			files,
			log,
		)
		generator = samples.NewGenerator(client, cfg.OpenAI.SpeechModel, cfg.OpenAI.SpeechVoice, log)
		log.WithField("speaker_mode", cfg.Speakers.Mode).Info("Hosted API client ready")
	}

	// Google Drive export (optional)
	var drive handlers.DriveUploader
	if cfg.GoogleDrive.Enabled {
		driveClient, err := storage.NewDriveClient(context.Background(),
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.WithError(err).Warn("Google Drive not available, export will be download only")
		} else {
			drive = driveClient
			log.Info("Google Drive export enabled")
		}
	}

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		log,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	limits := transcription.UploadLimits{
		MaxBytes:       cfg.MaxFileSizeBytes(),
		AllowedFormats: cfg.Limits.AllowedFormats,
	}

	// Create Fiber app. The body limit leaves room for multipart overhead so
	// oversize files reach the handler and get a precise message.
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.MaxFileSizeBytes()) + 1024*1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	statusHandler := handlers.NewStatusHandler(handlers.StatusInfo{
		APIKeyConfigured: processor != nil,
		MaxFileSizeMB:    cfg.Limits.MaxFileSizeMB,
		AllowedFormats:   cfg.Limits.AllowedFormats,
		SpeakerMode:      cfg.Speakers.Mode,
		DriveEnabled:     drive != nil,
	}, logBuffer)
	uploadHandler := handlers.NewUploadHandler(processor, files, limits, log)
	streamHandler := handlers.NewStreamHandler(processor, files, limits, log)
	driveLinkHandler := handlers.NewDriveLinkHandler(processor, files, limits, log)
	samplesHandler := handlers.NewSamplesHandler(processor, generator, cfg.Storage.SampleDir, log)
	exportHandler := handlers.NewExportHandler(drive, log)

	// Routes
	app.Get("/health", statusHandler.Health)
	app.Get("/logs", statusHandler.Logs)

	api := app.Group("/api")
	api.Get("/status", statusHandler.Status)
	api.Post("/process", uploadHandler.Handle)
	api.Post("/process/drive-link", driveLinkHandler.Handle)
	api.Get("/samples", samplesHandler.List)
	api.Get("/samples/:id/audio", samplesHandler.Audio)
	api.Post("/samples/:id/process", samplesHandler.Process)
	api.Post("/export", exportHandler.Download)
	api.Post("/export/drive", exportHandler.Drive)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/process", websocket.New(streamHandler.Handle))

	// Browser UI
	app.Use("/", web.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Server starting on %s", addr)
	log.Info("Endpoints:")
	log.Info("   GET  /                         - Web UI")
	log.Info("   GET  /api/status               - Credential and limits status")
	log.Info("   POST /api/process              - Upload and process audio")
	log.Info("   POST /api/process/drive-link   - Process a Google Drive link")
	log.Info("   GET  /ws/process               - WebSocket upload with step progress")
	log.Info("   GET  /api/samples              - List sample conversations")
	log.Info("   POST /api/samples/:id/process  - Process a sample")
	log.Info("   POST /api/export               - Download JSON export")
	log.Info("   POST /api/export/drive         - Export to Google Drive")
	log.Info("   GET  /logs                     - View server logs")
	log.Info("   GET  /health                   - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("Shutdown did not complete cleanly")
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newSplitter picks the speaker split strategy from config
func newSplitter(cfg *config.Config, client *openai.Client, log *logrus.Logger) transcription.SpeakerSplitter {
	if cfg.Speakers.Mode == "llm" {
		return transcription.NewLLMSpeakerDetector(client, cfg.OpenAI.AnalysisModel, cfg.Speakers.MaxSpeakers, log)
	}
	return transcription.HeuristicSplitter{MaxSpeakers: cfg.Speakers.MaxSpeakers}
}
