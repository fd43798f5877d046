package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/chemdoc-processor/internal/config"
	"github.com/kirillkom/chemdoc-processor/internal/core/engine"
	"github.com/kirillkom/chemdoc-processor/internal/core/model"
	"github.com/kirillkom/chemdoc-processor/internal/core/ports"
	"github.com/kirillkom/chemdoc-processor/internal/core/usecase"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/export/excel"
	textextractor "github.com/kirillkom/chemdoc-processor/internal/infrastructure/extractor"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/extractor/plaintext"
	modelstore "github.com/kirillkom/chemdoc-processor/internal/infrastructure/modelstore/localfs"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/record/alchemy"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/resilience"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/zeroshot/ollama"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository
	Store *model.Store

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	TrainUC   ports.ModelTrainer
	AdminUC   ports.ModelAdmin
	ReaderUC  ports.DocumentReader
	Records   ports.RecordCreator
	Exporter  ports.ResultExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	statePersist, err := modelstore.New(cfg.ModelStatePath)
	if err != nil {
		return nil, fmt.Errorf("init model state store: %w", err)
	}
	store := model.NewStore(statePersist, cfg.MaxPatternAlternations, logger)
	store.Load(ctx)

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var zeroShot engine.ZeroShotClassifier
	if cfg.ZeroShotEnabled {
		zeroShot = ollama.NewClassifier(ollama.New(cfg.OllamaURL, cfg.OllamaModel), executor)
	}

	classifier := engine.NewClassifier(zeroShot, cfg.EscalationThreshold, logger)
	extractor := engine.NewExtractor(store, logger)
	texts := textextractor.NewDispatcher(
		pdftext.NewExtractor(storage, logger),
		plaintext.NewExtractor(storage),
	)

	trainUC := usecase.NewTrainModelUseCase(store, logger)
	processUC := usecase.NewProcessDocumentUseCase(store, classifier, extractor, trainUC, repo, texts,
		usecase.ProcessOptions{
			COASpecialization: cfg.COAThreshold,
			Similarity:        cfg.SimilarityThreshold,
			AutoTrain:         cfg.AutoTrainThreshold,
		}, logger)
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	adminUC := usecase.NewModelAdminUseCase(store, logger)
	readerUC := usecase.NewDocumentReaderUseCase(repo)

	records := alchemy.New(alchemy.Config{
		BaseURL:        cfg.AlchemyBaseURL,
		AppURL:         cfg.AlchemyAppURL,
		Tenant:         cfg.AlchemyTenant,
		RefreshToken:   cfg.AlchemyRefreshToken,
		RecordTemplate: cfg.AlchemyRecordTemplate,
		RequestsPerSec: cfg.AlchemyRequestsPerSec,
	})
	exporter := excel.NewExporter(logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Repo:  repo,
		Store: store,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		TrainUC:   trainUC,
		AdminUC:   adminUC,
		ReaderUC:  readerUC,
		Records:   records,
		Exporter:  exporter,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
