package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	openaisdk "github.com/sashabaranov/go-openai"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/reimbursement-bot/internal/application/dispatcher"
	"github.com/garyjia/reimbursement-bot/internal/application/service"
	"github.com/garyjia/reimbursement-bot/internal/config"
	"github.com/garyjia/reimbursement-bot/internal/export"
	"github.com/garyjia/reimbursement-bot/internal/infrastructure/external/openai"
	"github.com/garyjia/reimbursement-bot/internal/infrastructure/storage"
	httpiface "github.com/garyjia/reimbursement-bot/internal/interfaces/http"
	"github.com/garyjia/reimbursement-bot/internal/interfaces/websocket"
	"github.com/garyjia/reimbursement-bot/internal/lark"
	"github.com/garyjia/reimbursement-bot/internal/notification"
	"github.com/garyjia/reimbursement-bot/internal/receipt"
	"github.com/garyjia/reimbursement-bot/internal/repository"
	"github.com/garyjia/reimbursement-bot/internal/session"
	"github.com/garyjia/reimbursement-bot/pkg/database"
	"github.com/garyjia/reimbursement-bot/pkg/utils"
)

func main() {
	// Local development credentials come from .env; missing file is fine
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting reimbursement bot",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database and completed request history
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	requestRepo := repository.NewRequestRepository(db, logger)
	if err := requestRepo.EnsureSchema(); err != nil {
		logger.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	// Lark gateways
	larkClient := lark.NewClient(lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, logger)

	messageAPI := lark.NewMessageAPI(larkClient, logger)
	downloader := lark.NewDownloader(larkClient, logger)
	attachmentStore := storage.NewAttachmentStore(cfg.Storage.AttachmentDir, logger)
	fetcher := lark.NewFetcher(downloader, attachmentStore, logger)

	// OpenAI-backed receipt extraction and conversation agent
	prompts, err := openai.LoadPrompts(cfg.OpenAI.PromptsPath)
	if err != nil {
		logger.Fatal("Failed to load prompts", zap.Error(err))
	}

	aiClient := openaisdk.NewClient(cfg.OpenAI.APIKey)
	pageReader := receipt.NewPageReader(logger)
	extractor := openai.NewExtractor(aiClient, pageReader, prompts, cfg.OpenAI.VisionModel, cfg.OpenAI.Timeout, logger)
	validator := receipt.NewValidator(extractor, logger)
	agent := openai.NewAgent(aiClient, prompts, cfg.OpenAI.Model, cfg.OpenAI.Timeout, logger)

	// Conversation sessions and notification delivery
	registry := session.NewRegistry(validator, agent, cfg.Session.IdleTimeout, logger)
	router := notification.NewRouter(messageAPI, cfg.Lark.ApprovalChatID, logger)

	// Event wiring
	eventDispatcher := dispatcher.NewDispatcher(logger)
	defer eventDispatcher.Close()

	intake := service.NewIntakeService(registry, router, eventDispatcher, logger)
	intake.Register(eventDispatcher)

	recorder := repository.NewRecorder(requestRepo, logger)
	recorder.Register(eventDispatcher)

	// Inbound message stream over the Lark long connection
	wsAdapter := websocket.NewLarkAdapter(websocket.LarkAdapterConfig{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
	}, fetcher, eventDispatcher, logger)

	// Admin HTTP surface
	handlers := httpiface.NewHandlers(registry, requestRepo, export.NewExcelExporter(logger), logger)
	httpServer := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- wsAdapter.Start(ctx)
	}()
	go func() {
		errCh <- httpServer.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Component failed", zap.Error(err))
		}
	}

	cancel()
	if err := wsAdapter.Stop(); err != nil {
		logger.Error("WebSocket adapter stop error", zap.Error(err))
	}

	logger.Info("Server exited")
}
