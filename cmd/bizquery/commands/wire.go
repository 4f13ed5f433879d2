package commands

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/opsledger/bizcontext/internal/config"
	"github.com/opsledger/bizcontext/internal/database"
	"github.com/opsledger/bizcontext/internal/industry"
	"github.com/opsledger/bizcontext/internal/logger"
	"github.com/opsledger/bizcontext/internal/services/ai"
	"github.com/opsledger/bizcontext/internal/services/engine"
)

// runtime bundles the wired collaborators a command needs. Close must be
// called when the command is done.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *database.DB
	assembler *engine.Assembler
	engine    *engine.Engine
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	if err := logger.Sync(rt.logger); err != nil {
		_ = err
	}
}

// newRuntime wires the engine from environment configuration. The CLI runs
// one-shot queries, so the snapshot cache is not wired.
func newRuntime(debugMode bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.NewDevelopmentLogger(debugMode || cfg.ServerDebugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var completer ai.Completer
	if cfg.OpenAIKey != "" {
		completer = ai.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	} else {
		fmt.Fprintln(os.Stderr, "Warning: OPENAI_API_KEY not set, AI features disabled")
	}

	industryLookup, err := industry.NewLookup()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to load industry reference: %w", err)
	}

	classifier := engine.NewRelationshipClassifier(engine.Thresholds{
		VIPValue:     cfg.VIPThreshold,
		RegularValue: cfg.RegularThreshold,
		AtRiskDays:   cfg.AtRiskDays,
	})

	assembler := engine.NewAssembler(engine.AssemblerParams{
		Businesses:     database.NewBusinessRepository(db),
		Customers:      database.NewCustomerRepository(db),
		Jobs:           database.NewJobRepository(db),
		Communications: database.NewCommunicationRepository(db),
		Invoices:       database.NewInvoiceRepository(db),
		Classifier:     classifier,
		Industry:       industryLookup,
		WindowDays:     cfg.WindowDays,
		WindowRecords:  cfg.WindowRecords,
		Logger:         zapLogger,
	})

	queryEngine := engine.NewDefaultEngine(assembler, completer, cfg.LLMStepTimeout, nil, zapLogger)

	return &runtime{
		cfg:       cfg,
		logger:    zapLogger,
		db:        db,
		assembler: assembler,
		engine:    queryEngine,
	}, nil
}
