package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sereno-care/practice-platform/cmd/mainconfig"
	appconfig "github.com/sereno-care/practice-platform/internal/config"
	"github.com/sereno-care/practice-platform/internal/llm"
	"github.com/sereno-care/practice-platform/internal/notes"
	"github.com/sereno-care/practice-platform/internal/sessions"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting session worker", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	audio := sessions.NewAudioStore(s3.NewFromConfig(awsCfg), cfg.RecordingsBucket, logger.Logger)
	queue := sessions.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.SessionQueueURL)
	jobStore := sessions.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionJobsTable, logger)

	bedrockClient := bedrockruntime.NewFromConfig(awsCfg)
	transcriber := sessions.NewBedrockTranscriber(bedrockClient, cfg.TranscribeModelID)

	var noteClient llm.Client = llm.NewBedrockClient(bedrockClient)
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gemini.Close() }()
		noteClient = llm.NewFallbackClient(noteClient, gemini, logger.Logger)
	}

	notesRepo := notes.NewRepository(pool)
	generator := notes.NewGenerator(noteClient, cfg.NoteModelID, int32(cfg.NoteMaxTokens), logger)

	worker := sessions.NewWorker(
		audio,
		queue,
		jobStore,
		transcriber,
		generator,
		notesRepo,
		nil,
		logger,
		sessions.WithWorkerCount(cfg.WorkerCount),
	)

	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down session worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("session worker stopped")
	case <-doneCtx.Done():
		logger.Error("session worker shutdown timed out", "error", doneCtx.Err())
	}
}
