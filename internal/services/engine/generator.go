package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opsledger/bizcontext/internal/models"
	"github.com/opsledger/bizcontext/internal/services/ai"
	"go.uber.org/zap"
)

// FallbackAnswer is returned when the primary answer cannot be generated.
// The primary answer must always be deliverable, so generation never fails.
const FallbackAnswer = "I'm sorry, I wasn't able to put together a detailed answer just now. Please try again in a moment, or rephrase your question."

// ResponseGenerator produces the primary natural-language answer from the
// query, a condensed context projection and the classified intent
type ResponseGenerator struct {
	completer ai.Completer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewResponseGenerator creates a response generator. A nil completer yields
// the fallback answer for every query.
func NewResponseGenerator(completer ai.Completer, timeout time.Duration, logger *zap.Logger) *ResponseGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ResponseGenerator{
		completer: completer,
		timeout:   timeout,
		logger:    logger,
	}
}

// Generate returns the LLM's completion verbatim, or FallbackAnswer on any
// failure. overrides are caller-supplied focus hints (e.g. a customer ID).
func (g *ResponseGenerator) Generate(ctx context.Context, query string, bctx *models.BusinessContext, intent models.QueryIntent, overrides map[string]string) string {
	if g.completer == nil {
		return FallbackAnswer
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	content, err := g.completer.Complete(callCtx, ai.CompletionRequest{
		System:    "You are an assistant for small-business owners. Answer using only the business data provided. Be concise and specific.",
		Prompt:    g.buildPrompt(query, bctx, intent, overrides),
		Operation: "generate_response",
	})
	if err != nil {
		g.logger.Warn("derivation_degraded",
			zap.String("step", "generate_response"),
			zap.Error(err),
		)
		return FallbackAnswer
	}
	if strings.TrimSpace(content) == "" {
		g.logger.Warn("derivation_degraded",
			zap.String("step", "generate_response"),
			zap.String("reason", "empty_completion"),
		)
		return FallbackAnswer
	}

	return content
}

// buildPrompt embeds a condensed projection of the context: only the facets
// named by the intent, or a minimal default set when it names none.
func (g *ResponseGenerator) buildPrompt(query string, bctx *models.BusinessContext, intent models.QueryIntent, overrides map[string]string) string {
	facets := intent.RequiredData
	if len(facets) == 0 {
		facets = defaultRequiredData
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query from the owner of %q: %q\n", bctx.BusinessProfile.Name, query)
	fmt.Fprintf(&b, "Query intent: %s (%s)\n\n", intent.Intent, intent.ActionType)
	b.WriteString("Business data:\n")

	for _, facet := range facets {
		writeFacet(&b, facet, bctx)
	}

	if len(overrides) > 0 {
		b.WriteString("\nAdditional focus from the caller:\n")
		keys := make([]string, 0, len(overrides))
		for k := range overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, overrides[k])
		}
	}

	b.WriteString("\nAnswer the query directly. If the data does not cover the question, say so rather than guessing.")
	return b.String()
}

func writeFacet(b *strings.Builder, facet string, bctx *models.BusinessContext) {
	switch facet {
	case "business_profile":
		p := bctx.BusinessProfile
		fmt.Fprintf(b, "- Profile: %s, a %s business (%s) in %s, services: %s\n",
			p.Name, p.BusinessType, p.Size, p.Location, strings.Join(p.Services, ", "))
	case "financial_snapshot":
		f := bctx.FinancialSnapshot
		fmt.Fprintf(b, "- Financials: monthly revenue %.2f, profit margin %.1f%%, outstanding invoices %.2f, average job value %.2f\n",
			f.MonthlyRevenue, f.ProfitMargin, f.OutstandingInvoices, f.AverageJobValue)
		for _, tc := range f.TopCustomers {
			fmt.Fprintf(b, "  - Top customer: %s (%.2f)\n", tc.Name, tc.Value)
		}
	case "customer_data":
		fmt.Fprintf(b, "- Customers (%d in window):\n", len(bctx.CustomerData))
		for _, c := range bctx.CustomerData {
			fmt.Fprintf(b, "  - %s [%s]\n", c.Name, c.Relationship)
		}
	case "recent_activity":
		a := bctx.RecentActivity
		fmt.Fprintf(b, "- Recent activity: %d jobs, %d communications, %d invoices; trends: %s\n",
			len(a.RecentJobs), len(a.RecentCommunications), len(a.RecentFinancials), strings.Join(a.Trends, ", "))
	case "operational_metrics":
		m := bctx.OperationalMetrics
		fmt.Fprintf(b, "- Operations: %d jobs completed, booking rate %.2f, utilization %.2f, efficiency %.2f, avg response %.1fh\n",
			m.JobsCompleted, m.BookingRate, m.UtilizationRate, m.Efficiency, m.ResponseTime)
	case "industry_context":
		ic := bctx.IndustryContext
		if len(ic.BestPractices) > 0 || len(ic.MarketTrends) > 0 {
			fmt.Fprintf(b, "- Industry (%s): trends: %s; best practices: %s\n",
				ic.IndustryType, strings.Join(ic.MarketTrends, "; "), strings.Join(ic.BestPractices, "; "))
		}
	}
}
