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

// maxDerivedItems bounds every extractor's result list
const maxDerivedItems = 5

// extractorCore is shared by the four derivation extractors. Each extractor
// independently invokes the LLM with a schema-constrained prompt and returns
// an empty list, never an error, on any failure.
type extractorCore struct {
	completer ai.Completer
	timeout   time.Duration
	logger    *zap.Logger
}

func newExtractorCore(completer ai.Completer, timeout time.Duration, logger *zap.Logger) extractorCore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return extractorCore{completer: completer, timeout: timeout, logger: logger}
}

// completeJSON runs one JSON-mode completion and salvages the object from
// the output. The bool result reports whether usable JSON came back.
func (e *extractorCore) completeJSON(ctx context.Context, operation, prompt string) ([]byte, bool) {
	if e.completer == nil {
		return nil, false
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content, err := e.completer.Complete(callCtx, ai.CompletionRequest{
		System:    "You derive structured business findings from operational data. Respond with valid JSON only.",
		Prompt:    prompt,
		JSONMode:  true,
		Operation: operation,
	})
	if err != nil {
		e.logger.Warn("derivation_degraded",
			zap.String("step", operation),
			zap.Error(err),
		)
		return nil, false
	}

	raw, err := salvageJSON(content)
	if err != nil {
		e.logger.Warn("derivation_degraded",
			zap.String("step", operation),
			zap.String("reason", "malformed_output"),
			zap.Error(err),
		)
		return nil, false
	}
	return raw, true
}

// condensedContext renders the compact context block shared by the extractor
// prompts
func condensedContext(bctx *models.BusinessContext, intent models.QueryIntent) string {
	var b strings.Builder
	p := bctx.BusinessProfile
	f := bctx.FinancialSnapshot
	m := bctx.OperationalMetrics

	fmt.Fprintf(&b, "Business: %s (%s, %s)\n", p.Name, p.BusinessType, p.Industry)
	fmt.Fprintf(&b, "Query intent: %s, action: %s, urgency: %s\n", intent.Intent, intent.ActionType, intent.Urgency)
	fmt.Fprintf(&b, "Financials: revenue %.2f/mo, margin %.1f%%, outstanding %.2f, avg job %.2f\n",
		f.MonthlyRevenue, f.ProfitMargin, f.OutstandingInvoices, f.AverageJobValue)
	fmt.Fprintf(&b, "Operations: %d jobs completed, booking rate %.2f, utilization %.2f\n",
		m.JobsCompleted, m.BookingRate, m.UtilizationRate)
	if len(bctx.RecentActivity.Trends) > 0 {
		fmt.Fprintf(&b, "Trends: %s\n", strings.Join(bctx.RecentActivity.Trends, ", "))
	}

	tiers := map[models.RelationshipTier]int{}
	for _, c := range bctx.CustomerData {
		tiers[c.Relationship]++
	}
	fmt.Fprintf(&b, "Customers: %d total (%d vip, %d regular, %d at_risk, %d new)\n",
		len(bctx.CustomerData), tiers[models.TierVIP], tiers[models.TierRegular], tiers[models.TierAtRisk], tiers[models.TierNew])

	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeImpact(v string, fallback models.ImpactLevel) models.ImpactLevel {
	switch models.ImpactLevel(v) {
	case models.ImpactLow, models.ImpactMedium, models.ImpactHigh:
		return models.ImpactLevel(v)
	default:
		return fallback
	}
}

// InsightExtractor derives business insights from the assembled context
type InsightExtractor struct {
	extractorCore
}

// NewInsightExtractor creates an insight extractor
func NewInsightExtractor(completer ai.Completer, timeout time.Duration, logger *zap.Logger) *InsightExtractor {
	return &InsightExtractor{newExtractorCore(completer, timeout, logger)}
}

// Extract returns up to maxDerivedItems insights, or an empty list on any failure
func (e *InsightExtractor) Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.Insight {
	prompt := condensedContext(bctx, intent) + `
Derive the most useful business insights from this data.

Respond with a JSON object in this format:
{
  "insights": [
    {"type": "financial|operational|customer", "insight": "text", "confidence": 0.0-1.0, "impact": "high|medium|low", "evidence": ["supporting fact"]}
  ]
}
Return at most ` + fmt.Sprint(maxDerivedItems) + ` insights. Return only valid JSON.`

	raw, ok := e.completeJSON(ctx, "extract_insights", prompt)
	if !ok {
		return []models.Insight{}
	}

	var parsed struct {
		Insights []models.Insight `json:"insights"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		e.logger.Warn("derivation_degraded",
			zap.String("step", "extract_insights"),
			zap.String("reason", "schema_mismatch"),
			zap.Error(err),
		)
		return []models.Insight{}
	}

	insights := parsed.Insights
	if len(insights) > maxDerivedItems {
		insights = insights[:maxDerivedItems]
	}
	for i := range insights {
		insights[i].Confidence = clamp01(insights[i].Confidence)
		insights[i].Impact = normalizeImpact(string(insights[i].Impact), models.ImpactMedium)
		if insights[i].Evidence == nil {
			insights[i].Evidence = []string{}
		}
	}
	if insights == nil {
		insights = []models.Insight{}
	}
	return insights
}

// RecommendationExtractor derives recommended actions from the assembled context
type RecommendationExtractor struct {
	extractorCore
}

// NewRecommendationExtractor creates a recommendation extractor
func NewRecommendationExtractor(completer ai.Completer, timeout time.Duration, logger *zap.Logger) *RecommendationExtractor {
	return &RecommendationExtractor{newExtractorCore(completer, timeout, logger)}
}

// Extract returns up to maxDerivedItems recommendations, or an empty list on any failure
func (e *RecommendationExtractor) Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.Recommendation {
	prompt := condensedContext(bctx, intent) + `
Recommend concrete next actions for this business owner.

Respond with a JSON object in this format:
{
  "recommendations": [
    {"action": "text", "priority": "high|medium|low", "effort": "high|medium|low", "expected_impact": "text", "deadline": "text", "automatable": true|false}
  ]
}
Return at most ` + fmt.Sprint(maxDerivedItems) + ` recommendations. Return only valid JSON.`

	raw, ok := e.completeJSON(ctx, "extract_recommendations", prompt)
	if !ok {
		return []models.Recommendation{}
	}

	var parsed struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		e.logger.Warn("derivation_degraded",
			zap.String("step", "extract_recommendations"),
			zap.String("reason", "schema_mismatch"),
			zap.Error(err),
		)
		return []models.Recommendation{}
	}

	recs := parsed.Recommendations
	if len(recs) > maxDerivedItems {
		recs = recs[:maxDerivedItems]
	}
	for i := range recs {
		recs[i].Priority = normalizeImpact(string(recs[i].Priority), models.ImpactMedium)
		recs[i].Effort = normalizeImpact(string(recs[i].Effort), models.ImpactMedium)
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}
	return recs
}

// AutomationExtractor derives workflow automation suggestions from the
// assembled context
type AutomationExtractor struct {
	extractorCore
}

// NewAutomationExtractor creates an automation extractor
func NewAutomationExtractor(completer ai.Completer, timeout time.Duration, logger *zap.Logger) *AutomationExtractor {
	return &AutomationExtractor{newExtractorCore(completer, timeout, logger)}
}

// Extract returns up to maxDerivedItems automation suggestions, or an empty
// list on any failure
func (e *AutomationExtractor) Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.AutomationSuggestion {
	prompt := condensedContext(bctx, intent) + `
Suggest workflows this business could automate.

Respond with a JSON object in this format:
{
  "suggestions": [
    {"workflow": "text", "trigger": "text", "actions": ["step"], "estimated_time_saved": hours_per_week, "implementation_effort": "high|medium|low"}
  ]
}
Return at most ` + fmt.Sprint(maxDerivedItems) + ` suggestions. Return only valid JSON.`

	raw, ok := e.completeJSON(ctx, "extract_automations", prompt)
	if !ok {
		return []models.AutomationSuggestion{}
	}

	var parsed struct {
		Suggestions []models.AutomationSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		e.logger.Warn("derivation_degraded",
			zap.String("step", "extract_automations"),
			zap.String("reason", "schema_mismatch"),
			zap.Error(err),
		)
		return []models.AutomationSuggestion{}
	}

	suggestions := parsed.Suggestions
	if len(suggestions) > maxDerivedItems {
		suggestions = suggestions[:maxDerivedItems]
	}
	for i := range suggestions {
		suggestions[i].ImplementationEffort = normalizeImpact(string(suggestions[i].ImplementationEffort), models.ImpactMedium)
		if suggestions[i].Actions == nil {
			suggestions[i].Actions = []string{}
		}
		if suggestions[i].EstimatedTimeSaved < 0 {
			suggestions[i].EstimatedTimeSaved = 0
		}
	}
	if suggestions == nil {
		suggestions = []models.AutomationSuggestion{}
	}
	return suggestions
}

// RelatedDataExtractor identifies data related to the query from the
// assembled context
type RelatedDataExtractor struct {
	extractorCore
}

// NewRelatedDataExtractor creates a related-data extractor
func NewRelatedDataExtractor(completer ai.Completer, timeout time.Duration, logger *zap.Logger) *RelatedDataExtractor {
	return &RelatedDataExtractor{newExtractorCore(completer, timeout, logger)}
}

// Extract returns up to maxDerivedItems related-data items, or an empty list
// on any failure
func (e *RelatedDataExtractor) Extract(ctx context.Context, bctx *models.BusinessContext, intent models.QueryIntent) []models.RelatedDataItem {
	prompt := condensedContext(bctx, intent) + `
Identify which pieces of this data are most relevant to the query intent.

Respond with a JSON object in this format:
{
  "related": [
    {"type": "customer|invoice|job|metric", "data": {"key": "value"}, "relevance": 0.0-1.0}
  ]
}
Return at most ` + fmt.Sprint(maxDerivedItems) + ` items. Return only valid JSON.`

	raw, ok := e.completeJSON(ctx, "extract_related_data", prompt)
	if !ok {
		return []models.RelatedDataItem{}
	}

	var parsed struct {
		Related []models.RelatedDataItem `json:"related"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		e.logger.Warn("derivation_degraded",
			zap.String("step", "extract_related_data"),
			zap.String("reason", "schema_mismatch"),
			zap.Error(err),
		)
		return []models.RelatedDataItem{}
	}

	related := parsed.Related
	if len(related) > maxDerivedItems {
		related = related[:maxDerivedItems]
	}
	for i := range related {
		related[i].Relevance = clamp01(related[i].Relevance)
		if related[i].Data == nil {
			related[i].Data = map[string]any{}
		}
	}
	if related == nil {
		related = []models.RelatedDataItem{}
	}
	return related
}
