package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"financial-planner/handler"
	"financial-planner/internal/config"
	"financial-planner/internal/integrations/openai"
	"financial-planner/internal/integrations/paramstore"
	"financial-planner/internal/logging"
	"financial-planner/internal/repository"
	"financial-planner/internal/usecase"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	// ---- Configuration (read only here) ----
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if _, err := logging.Init(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		slog.Error("failed to initialize logging", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	var (
		history    repository.Store = repository.NewMemoryStore(0)
		openaiOpts []openai.Option
		svcOpts    = []usecase.Option{
			usecase.WithModel(cfg.OpenAIModel),
			usecase.WithHistoryLimit(cfg.MaxHistoryMessages),
			usecase.WithMaxMessageLength(cfg.MaxMessageLength),
		}
	)
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.OpenAIAPIKey != "" {
		openaiOpts = append(openaiOpts, openai.WithAPIKey(cfg.OpenAIAPIKey))
	}

	if cfg.UsesAWS() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		if cfg.ParamPrefix != "" {
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				slog.Error("failed to create SSM client", "err", err)
				os.Exit(1)
			}
			if cfg.OpenAIAPIKey == "" {
				openaiOpts = append(openaiOpts, openai.WithParamStore(ssmClient, cfg.ParamPrefix))
			}
			svcOpts = append(svcOpts, usecase.WithParamStore(ssmClient, cfg.ParamPrefix))
		}
		if cfg.StateTable != "" {
			stateClient, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
			if err != nil {
				slog.Error("failed to create state client", "err", err)
				os.Exit(1)
			}
			history = stateClient
		}
	}

	openaiClient, err := openai.NewClient(openaiOpts...)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(openaiClient, history, svcOpts...)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if config.InLambda() {
		lambda.Start(h.Handle)
		return
	}
	serve(cfg.Addr, h.Routes())
}

func serve(addr string, routes http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
}
