package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opsledger/bizcontext/internal/models"
	"github.com/opsledger/bizcontext/internal/services/ai"
	"go.uber.org/zap"
)

// defaultRequiredData is used when the model names no facets
var defaultRequiredData = []string{"business_profile", "financial_snapshot"}

// Keyword lists for the deterministic intent fallback
var (
	automationKeywords = []string{"automate", "automatic", "automation", "workflow", "schedule", "reminder", "recurring"}
	analysisKeywords   = []string{"analyze", "analysis", "performance", "revenue", "profit", "trend", "report", "compare", "how is", "how are", "metrics"}
)

// IntentAnalyzer classifies a query's purpose via one constrained LLM call,
// falling back to keyword heuristics so the pipeline can proceed even when
// the LLM is unreachable. Analyze never fails.
type IntentAnalyzer struct {
	completer ai.Completer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewIntentAnalyzer creates an intent analyzer. A nil completer puts the
// analyzer permanently in heuristic mode.
func NewIntentAnalyzer(completer ai.Completer, timeout time.Duration, logger *zap.Logger) *IntentAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IntentAnalyzer{
		completer: completer,
		timeout:   timeout,
		logger:    logger,
	}
}

// Analyze classifies the query against the assembled context
func (a *IntentAnalyzer) Analyze(ctx context.Context, query string, bctx *models.BusinessContext) models.QueryIntent {
	if a.completer == nil {
		return a.heuristicIntent(query)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	content, err := a.completer.Complete(callCtx, ai.CompletionRequest{
		System:    "You classify business queries. Respond with valid JSON only.",
		Prompt:    a.buildIntentPrompt(query, bctx),
		JSONMode:  true,
		Operation: "analyze_intent",
	})
	if err != nil {
		a.logger.Warn("derivation_degraded",
			zap.String("step", "analyze_intent"),
			zap.Error(err),
		)
		return a.heuristicIntent(query)
	}

	intent, err := parseIntentResponse(content)
	if err != nil {
		a.logger.Warn("derivation_degraded",
			zap.String("step", "analyze_intent"),
			zap.String("reason", "malformed_output"),
			zap.Error(err),
		)
		return a.heuristicIntent(query)
	}

	return intent
}

func (a *IntentAnalyzer) buildIntentPrompt(query string, bctx *models.BusinessContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classify the intent of the following query from the owner of %q (%s).\n\n",
		bctx.BusinessProfile.Name, bctx.BusinessProfile.BusinessType)
	fmt.Fprintf(&b, "Query: %q\n\n", query)
	b.WriteString(`Respond with a JSON object in this format:
{
  "intent": "short free-text category",
  "required_data": ["business_profile", "financial_snapshot", "customer_data", "recent_activity", "operational_metrics", "industry_context"],
  "action_type": "respond" | "analyze" | "automate",
  "urgency": "low" | "medium" | "high",
  "complexity": "simple" | "complex"
}

required_data must list only the context facets the answer should draw on.
Return only valid JSON.`)
	return b.String()
}

// parseIntentResponse parses the model output, salvaging a JSON object from
// surrounding prose when necessary and defaulting out-of-range enum values.
func parseIntentResponse(content string) (models.QueryIntent, error) {
	var parsed struct {
		Intent       string   `json:"intent"`
		RequiredData []string `json:"required_data"`
		ActionType   string   `json:"action_type"`
		Urgency      string   `json:"urgency"`
		Complexity   string   `json:"complexity"`
	}

	raw, err := salvageJSON(content)
	if err != nil {
		return models.QueryIntent{}, err
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.QueryIntent{}, fmt.Errorf("failed to parse intent response: %w", err)
	}

	intent := models.QueryIntent{
		Intent:       parsed.Intent,
		RequiredData: parsed.RequiredData,
		ActionType:   models.ActionType(parsed.ActionType),
		Urgency:      models.Urgency(parsed.Urgency),
		Complexity:   models.Complexity(parsed.Complexity),
	}

	switch intent.ActionType {
	case models.ActionRespond, models.ActionAnalyze, models.ActionAutomate:
	default:
		intent.ActionType = models.ActionRespond
	}
	switch intent.Urgency {
	case models.UrgencyLow, models.UrgencyMedium, models.UrgencyHigh:
	default:
		intent.Urgency = models.UrgencyMedium
	}
	switch intent.Complexity {
	case models.ComplexitySimple, models.ComplexityComplex:
	default:
		intent.Complexity = models.ComplexitySimple
	}
	if len(intent.RequiredData) == 0 {
		intent.RequiredData = append([]string{}, defaultRequiredData...)
	}
	if intent.Intent == "" {
		intent.Intent = "general"
	}

	return intent, nil
}

// heuristicIntent is the deterministic fallback when the LLM is unavailable
// or returns garbage
func (a *IntentAnalyzer) heuristicIntent(query string) models.QueryIntent {
	lowered := strings.ToLower(query)

	actionType := models.ActionRespond
	intentName := "general_inquiry"
	if containsAny(lowered, automationKeywords) {
		actionType = models.ActionAutomate
		intentName = "automation_request"
	} else if containsAny(lowered, analysisKeywords) {
		actionType = models.ActionAnalyze
		intentName = "business_analysis"
	}

	return models.QueryIntent{
		Intent:       intentName,
		RequiredData: append([]string{}, defaultRequiredData...),
		ActionType:   actionType,
		Urgency:      models.UrgencyMedium,
		Complexity:   models.ComplexitySimple,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// salvageJSON extracts the outermost JSON object from a string that may wrap
// it in prose or code fences
func salvageJSON(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	if trimmed[0] != '{' {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start == -1 || end == -1 || end <= start {
			return nil, fmt.Errorf("no JSON object in response")
		}
		trimmed = trimmed[start : end+1]
	}
	return []byte(trimmed), nil
}
