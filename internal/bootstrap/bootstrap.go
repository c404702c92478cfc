package bootstrap

import (
	"context"
	"fmt"

	"github.com/jverhaegen/ledgerpilot/internal/config"
	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
	"github.com/jverhaegen/ledgerpilot/internal/core/usecase"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/export/excel"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/llm/ollama"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/pages"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/queue/nats"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/registry/cbe"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/repository/postgres"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/resilience"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	IntakeUC  ports.DocumentIntake
	ProcessUC ports.DocumentProcessor
	ExportUC  ports.ReviewQueueExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, observer ports.PipelineObserver) (*App, error) {
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

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, storage, executor)
	classifier := ollama.NewClassifier(ollamaClient, cfg.ClassifierModel)

	var registry ports.RegistryLookup
	if cfg.ExternalValidation {
		registry = cbe.New(cfg.RegistryURL, cfg.RegistryRPS, executor)
	}

	rules, err := usecase.LoadVATRules()
	if err != nil {
		return nil, fmt.Errorf("load vat rules: %w", err)
	}
	auditor := usecase.NewAuditor(rules, registry, cfg.ExternalValidation)

	var llmJudge ports.JudgmentModel
	if cfg.UseLLMJudge {
		llmJudge = ollama.NewJudge(ollamaClient, cfg.JudgeModel)
	}

	pipeline := usecase.NewAutonomousPipeline(
		usecase.PipelineOptions{
			EnsembleEnabled:       cfg.EnsembleEnabled,
			ParallelExtraction:    cfg.ParallelExtraction,
			SelfCorrectionEnabled: cfg.SelfCorrectionEnabled,
			UseLLMJudge:           cfg.UseLLMJudge,
			FailFastUnknown:       cfg.FailFastUnknown,
			ClassificationFloor:   cfg.ClassificationFloor,
			ConfidenceFloor:       cfg.ConfidenceFloor,
			MaxRetries:            cfg.MaxRetries,
		},
		classifier,
		buildStrategies(ollamaClient, cfg),
		auditor,
		llmJudge,
	)

	splitter := pages.NewSplitter(storage)

	intakeUC := usecase.NewIntakeDocumentUseCase(repo, storage, splitter, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, pipeline, observer)
	exportUC := usecase.NewExportReviewQueueUseCase(repo, excel.NewReviewReportWriter())

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IntakeUC:  intakeUC,
		ProcessUC: processUC,
		ExportUC:  exportUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func buildStrategies(client *ollama.Client, cfg config.Config) usecase.StrategyTable {
	bundle := func(docType domain.DocumentType) usecase.AgentBundle {
		b := usecase.AgentBundle{
			Expert:    ollama.NewExtractor(client, cfg.ExpertModel, docType),
			Corrector: ollama.NewCorrector(client, cfg.CorrectionModel, docType),
		}
		if cfg.EnsembleEnabled {
			b.Fast = ollama.NewExtractor(client, cfg.FastModel, docType)
		}
		return b
	}

	return usecase.StrategyTable{
		Invoice: bundle(domain.DocTypeInvoice),
		Bill:    bundle(domain.DocTypeBill),
		Receipt: bundle(domain.DocTypeReceipt),
		Expense: bundle(domain.DocTypeExpense),
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
