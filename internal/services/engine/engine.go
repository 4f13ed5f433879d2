package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/opsledger/bizcontext/internal/models"
	"github.com/opsledger/bizcontext/internal/services/ai"
	"github.com/opsledger/bizcontext/internal/validation"
	"go.uber.org/zap"
)

// ContextAssembler builds the per-request business context snapshot
type ContextAssembler interface {
	Assemble(ctx context.Context, businessID string) (*models.BusinessContext, error)
}

// IntentClassifier classifies the query's purpose; it never fails
type IntentClassifier interface {
	Analyze(ctx context.Context, query string, bctx *models.BusinessContext) models.QueryIntent
}

// AnswerGenerator produces the primary answer; it never fails
type AnswerGenerator interface {
	Generate(ctx context.Context, query string, bctx *models.BusinessContext, intent models.QueryIntent, overrides map[string]string) string
}

// InsightSource derives insights; empty on failure
type InsightSource interface {
	Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.Insight
}

// RecommendationSource derives recommended actions; empty on failure
type RecommendationSource interface {
	Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.Recommendation
}

// AutomationSource derives automation suggestions; empty on failure
type AutomationSource interface {
	Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.AutomationSuggestion
}

// RelatedDataSource identifies related data; empty on failure
type RelatedDataSource interface {
	Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.RelatedDataItem
}

// ContextCache optionally memoizes assembled contexts per business for a
// short TTL. Both methods are best-effort.
type ContextCache interface {
	Get(ctx context.Context, businessID string) (*models.BusinessContext, bool)
	Set(ctx context.Context, businessID string, bctx *models.BusinessContext)
}

// Engine orchestrates context assembly, intent analysis and the five
// derivation branches into the public ProcessQuery operation. It is
// stateless across requests; concurrent calls are fully independent.
type Engine struct {
	assembler       ContextAssembler
	intents         IntentClassifier
	generator       AnswerGenerator
	insights        InsightSource
	recommendations RecommendationSource
	automations     AutomationSource
	related         RelatedDataSource
	cache           ContextCache
	logger          *zap.Logger
}

// EngineParams bundles the engine's collaborators
type EngineParams struct {
	Assembler       ContextAssembler
	Intents         IntentClassifier
	Generator       AnswerGenerator
	Insights        InsightSource
	Recommendations RecommendationSource
	Automations     AutomationSource
	Related         RelatedDataSource
	// Cache is optional; nil disables context memoization
	Cache  ContextCache
	Logger *zap.Logger
}

// NewEngine creates a context engine
func NewEngine(p EngineParams) *Engine {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &Engine{
		assembler:       p.Assembler,
		intents:         p.Intents,
		generator:       p.Generator,
		insights:        p.Insights,
		recommendations: p.Recommendations,
		automations:     p.Automations,
		related:         p.Related,
		cache:           p.Cache,
		logger:          p.Logger,
	}
}

// NewDefaultEngine wires the engine with the standard analyzer, generator and
// extractors on top of one completer. A nil completer is a valid degraded
// mode: every derivation runs its fallback path.
func NewDefaultEngine(assembler ContextAssembler, completer ai.Completer, stepTimeout time.Duration, cache ContextCache, logger *zap.Logger) *Engine {
	return NewEngine(EngineParams{
		Assembler:       assembler,
		Intents:         NewIntentAnalyzer(completer, stepTimeout, logger),
		Generator:       NewResponseGenerator(completer, stepTimeout, logger),
		Insights:        NewInsightExtractor(completer, stepTimeout, logger),
		Recommendations: NewRecommendationExtractor(completer, stepTimeout, logger),
		Automations:     NewAutomationExtractor(completer, stepTimeout, logger),
		Related:         NewRelatedDataExtractor(completer, stepTimeout, logger),
		Cache:           cache,
		Logger:          logger,
	})
}

// ProcessQuery runs the full pipeline: validate, assemble, analyze intent,
// then fan out answer generation and the four extractors concurrently and
// aggregate. Only validation and context-assembly failures escape; once a
// context is assembled the request always completes, degrading branch
// failures into fallback values.
func (e *Engine) ProcessQuery(ctx context.Context, req *models.AIContextRequest) (*models.AIContextResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx = ai.WithRequestID(ctx, requestID)
	ctx = ai.WithBusinessID(ctx, req.BusinessID)

	start := time.Now()
	bctx, err := e.loadContext(ctx, req.BusinessID)
	if err != nil {
		if errors.Is(err, ErrBusinessNotFound) {
			e.logger.Info("business_not_found",
				zap.String("business_id", req.BusinessID),
				zap.String("request_id", requestID),
			)
		} else {
			e.logger.Error("context_assembly_failed",
				zap.String("business_id", req.BusinessID),
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	intent := e.intents.Analyze(ctx, req.Query, bctx)

	// Fan-out: the primary answer and the four extractors share the same
	// inputs and have no data dependency on one another.
	var (
		wg          sync.WaitGroup
		answer      string
		insights    []models.Insight
		recs        []models.Recommendation
		automations []models.AutomationSuggestion
		related     []models.RelatedDataItem
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		answer = e.generator.Generate(ctx, req.Query, bctx, intent, req.Context)
	}()
	go func() {
		defer wg.Done()
		insights = e.insights.Extract(ctx, bctx, intent)
	}()
	go func() {
		defer wg.Done()
		recs = e.recommendations.Extract(ctx, bctx, intent)
	}()
	go func() {
		defer wg.Done()
		automations = e.automations.Extract(ctx, bctx, intent)
	}()
	go func() {
		defer wg.Done()
		related = e.related.Extract(ctx, bctx, intent)
	}()
	wg.Wait()

	// The response shape is never sacrificed: lists are present even when a
	// branch degraded to nothing.
	resp := &models.AIContextResponse{
		ContextualAnswer:      answer,
		BusinessInsights:      emptyIfNil(insights),
		RecommendedActions:    emptyIfNil(recs),
		AutomationSuggestions: emptyIfNil(automations),
		RelatedData:           emptyIfNil(related),
	}
	if strings.TrimSpace(resp.ContextualAnswer) == "" {
		resp.ContextualAnswer = FallbackAnswer
	}

	e.logger.Info("query_processed",
		zap.String("business_id", req.BusinessID),
		zap.String("request_id", requestID),
		zap.String("query_type", string(req.QueryType)),
		zap.String("intent", intent.Intent),
		zap.String("action_type", string(intent.ActionType)),
		zap.Int("insights", len(resp.BusinessInsights)),
		zap.Int("recommendations", len(resp.RecommendedActions)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return resp, nil
}

// loadContext assembles the business context, consulting the optional cache
// first. Cache failures are invisible to callers.
func (e *Engine) loadContext(ctx context.Context, businessID string) (*models.BusinessContext, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, businessID); ok {
			return cached, nil
		}
	}

	bctx, err := e.assembler.Assemble(ctx, businessID)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(ctx, businessID, bctx)
	}
	return bctx, nil
}

// validateRequest checks the request shape before any data-source call
func validateRequest(req *models.AIContextRequest) error {
	if req == nil {
		return &ValidationError{Field: "request", Message: "request is required"}
	}

	if err := validation.Validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Tag() == "query_type" {
				return &ValidationError{
					Field:   "query_type",
					Message: validation.ValidateQueryType(string(req.QueryType)).Error(),
				}
			}
			return &ValidationError{Field: requestFieldName(fe.Field()), Message: "is required"}
		}
		return &ValidationError{Field: "request", Message: err.Error()}
	}

	if strings.TrimSpace(req.Query) == "" {
		return &ValidationError{Field: "query", Message: "must not be blank"}
	}

	return nil
}

// requestFieldName maps struct field names to their wire names
func requestFieldName(field string) string {
	switch field {
	case "BusinessID":
		return "business_id"
	case "QueryType":
		return "query_type"
	case "Query":
		return "query"
	default:
		return strings.ToLower(field)
	}
}
