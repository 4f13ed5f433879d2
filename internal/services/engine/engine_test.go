package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opsledger/bizcontext/internal/database"
	"github.com/opsledger/bizcontext/internal/models"
)

type countingAssembler struct {
	mu    sync.Mutex
	bctx  *models.BusinessContext
	err   error
	calls int
}

func (c *countingAssembler) Assemble(ctx context.Context, businessID string) (*models.BusinessContext, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.bctx, nil
}

func (c *countingAssembler) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memoryCache struct {
	mu    sync.Mutex
	store map[string]*models.BusinessContext
	gets  int
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[string]*models.BusinessContext{}}
}

func (m *memoryCache) Get(ctx context.Context, businessID string) (*models.BusinessContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	bctx, ok := m.store[businessID]
	return bctx, ok
}

func (m *memoryCache) Set(ctx context.Context, businessID string, bctx *models.BusinessContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.store[businessID] = bctx
}

func validRequest() *models.AIContextRequest {
	return &models.AIContextRequest{
		BusinessID: "biz-1",
		QueryType:  models.QueryTypeCustomerInquiry,
		Query:      "when is Mrs. Lee's next appointment?",
	}
}

func TestProcessQueryValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*models.AIContextRequest)
		wantField string
	}{
		{
			name:      "missing business id",
			mutate:    func(r *models.AIContextRequest) { r.BusinessID = "" },
			wantField: "business_id",
		},
		{
			name:      "unknown query type",
			mutate:    func(r *models.AIContextRequest) { r.QueryType = "fortune_telling" },
			wantField: "query_type",
		},
		{
			name:      "missing query",
			mutate:    func(r *models.AIContextRequest) { r.Query = "" },
			wantField: "query",
		},
		{
			name:      "blank query",
			mutate:    func(r *models.AIContextRequest) { r.Query = "   " },
			wantField: "query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assembler := &countingAssembler{bctx: testContext()}
			eng := NewDefaultEngine(assembler, nil, time.Second, nil, nil)

			req := validRequest()
			tt.mutate(req)

			_, err := eng.ProcessQuery(context.Background(), req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, vErr.Field)
			}
			// Validation failures must not touch any data source.
			if assembler.callCount() != 0 {
				t.Errorf("expected no assembly, got %d calls", assembler.callCount())
			}
		})
	}
}

func TestProcessQueryNilRequest(t *testing.T) {
	t.Parallel()

	eng := NewDefaultEngine(&countingAssembler{bctx: testContext()}, nil, time.Second, nil, nil)
	_, err := eng.ProcessQuery(context.Background(), nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcessQueryBusinessNotFound(t *testing.T) {
	t.Parallel()

	assembler := &countingAssembler{err: ErrBusinessNotFound}
	eng := NewDefaultEngine(assembler, nil, time.Second, nil, nil)

	_, err := eng.ProcessQuery(context.Background(), validRequest())
	if !errors.Is(err, ErrBusinessNotFound) {
		t.Fatalf("expected ErrBusinessNotFound, got %v", err)
	}
}

func TestProcessQueryDataSourceError(t *testing.T) {
	t.Parallel()

	assembler := &countingAssembler{err: &DataSourceError{Source: "invoices", Err: errors.New("boom")}}
	eng := NewDefaultEngine(assembler, nil, time.Second, nil, nil)

	_, err := eng.ProcessQuery(context.Background(), validRequest())
	var dsErr *DataSourceError
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
}

func TestProcessQueryDegradedWithoutCompleter(t *testing.T) {
	t.Parallel()

	assembler := &countingAssembler{bctx: testContext()}
	eng := NewDefaultEngine(assembler, nil, time.Second, nil, nil)

	resp, err := eng.ProcessQuery(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(resp.ContextualAnswer) == "" {
		t.Error("expected a non-empty answer even without an LLM")
	}
	if resp.ContextualAnswer != FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", resp.ContextualAnswer)
	}
	if resp.BusinessInsights == nil || resp.RecommendedActions == nil ||
		resp.AutomationSuggestions == nil || resp.RelatedData == nil {
		t.Error("expected all derived lists to be non-nil")
	}
	if len(resp.BusinessInsights) != 0 || len(resp.RecommendedActions) != 0 {
		t.Error("expected empty derived lists when every branch degrades")
	}
}

func TestProcessQueryAllBranchesFail(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{err: errors.New("service unavailable")}
	eng := NewDefaultEngine(&countingAssembler{bctx: testContext()}, completer, time.Second, nil, nil)

	resp, err := eng.ProcessQuery(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected complete response despite LLM failures, got %v", err)
	}
	if resp.ContextualAnswer != FallbackAnswer {
		t.Errorf("expected fallback answer, got %q", resp.ContextualAnswer)
	}
	if len(resp.BusinessInsights) != 0 || len(resp.AutomationSuggestions) != 0 ||
		len(resp.RecommendedActions) != 0 || len(resp.RelatedData) != 0 {
		t.Error("expected empty derived lists when every branch fails")
	}
}

func TestProcessQueryFullPipeline(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{
		responses: map[string]string{
			"analyze_intent":          `{"intent":"customer_inquiry","required_data":["customer_data"],"action_type":"respond","urgency":"medium","complexity":"simple"}`,
			"generate_response":       "Mrs. Lee's next appointment is Tuesday.",
			"extract_insights":        `{"insights":[{"type":"customer","insight":"Mrs. Lee is a VIP","confidence":0.8,"impact":"medium","evidence":[]}]}`,
			"extract_recommendations": `{"recommendations":[{"action":"Confirm the appointment","priority":"medium","effort":"low","expected_impact":"retention","deadline":"today","automatable":true}]}`,
			"extract_automations":     `{"suggestions":[{"workflow":"Reminder texts","trigger":"24h before","actions":["sms"],"estimated_time_saved":1,"implementation_effort":"low"}]}`,
			"extract_related_data":    `{"related":[{"type":"customer","data":{"name":"Mrs. Lee"},"relevance":0.9}]}`,
		},
	}
	eng := NewDefaultEngine(&countingAssembler{bctx: testContext()}, completer, time.Second, nil, nil)

	resp, err := eng.ProcessQuery(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ContextualAnswer != "Mrs. Lee's next appointment is Tuesday." {
		t.Errorf("unexpected answer: %q", resp.ContextualAnswer)
	}
	if len(resp.BusinessInsights) != 1 || resp.BusinessInsights[0].Insight != "Mrs. Lee is a VIP" {
		t.Errorf("unexpected insights: %+v", resp.BusinessInsights)
	}
	if len(resp.RecommendedActions) != 1 || !resp.RecommendedActions[0].Automatable {
		t.Errorf("unexpected recommendations: %+v", resp.RecommendedActions)
	}
	if len(resp.AutomationSuggestions) != 1 || resp.AutomationSuggestions[0].Workflow != "Reminder texts" {
		t.Errorf("unexpected automation suggestions: %+v", resp.AutomationSuggestions)
	}
	if len(resp.RelatedData) != 1 || resp.RelatedData[0].Relevance != 0.9 {
		t.Errorf("unexpected related data: %+v", resp.RelatedData)
	}
	// One intent call plus five fan-out branches.
	if completer.callCount() != 6 {
		t.Errorf("expected 6 completions, got %d", completer.callCount())
	}
}

func TestProcessQueryBranchesRunConcurrently(t *testing.T) {
	t.Parallel()

	delay := 150 * time.Millisecond
	completer := &fakeCompleter{
		delay:    delay,
		response: `{"insights":[],"recommendations":[],"suggestions":[],"related":[]}`,
	}
	eng := NewDefaultEngine(&countingAssembler{bctx: testContext()}, completer, 5*time.Second, nil, nil)

	start := time.Now()
	if _, err := eng.ProcessQuery(context.Background(), validRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	// Six sequential calls would need 6*delay; intent is sequential and the
	// remaining five run in parallel, so ~2*delay plus overhead.
	if elapsed >= 5*delay {
		t.Errorf("expected concurrent fan-out, took %v", elapsed)
	}
}

func TestProcessQueryUsesCache(t *testing.T) {
	t.Parallel()

	assembler := &countingAssembler{bctx: testContext()}
	cache := newMemoryCache()
	eng := NewDefaultEngine(assembler, nil, time.Second, cache, nil)

	for i := 0; i < 3; i++ {
		if _, err := eng.ProcessQuery(context.Background(), validRequest()); err != nil {
			t.Fatalf("unexpected error on request %d: %v", i, err)
		}
	}

	if assembler.callCount() != 1 {
		t.Errorf("expected a single assembly across repeated queries, got %d", assembler.callCount())
	}
	if cache.sets != 1 {
		t.Errorf("expected one cache write, got %d", cache.sets)
	}
}

func TestProcessQueryEndToEndWithRepositories(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	p := defaultParams()
	p.Customers = &fakeCustomerReader{customers: []models.CustomerSummary{
		{ID: "c-1", Name: "Mrs. Lee", LifetimeValue: floatPtr(15000), LastContactedAt: timePtr(now.AddDate(0, 0, -3))},
	}}
	p.Invoices = &fakeInvoiceReader{invoices: []models.InvoiceSummary{
		{ID: "i-1", CustomerID: "c-1", Amount: 900, Status: models.InvoiceStatusPaid, IssuedAt: now.AddDate(0, 0, -7)},
	}}
	assembler := testAssembler(t, p, now)

	completer := &fakeCompleter{
		responses: map[string]string{
			"analyze_intent":    `{"intent":"customer_inquiry","required_data":["customer_data","financial_snapshot"],"action_type":"respond","urgency":"medium","complexity":"simple"}`,
			"generate_response": "Mrs. Lee is a VIP customer with 15000 in lifetime value.",
		},
		response: `{"insights":[],"recommendations":[],"suggestions":[],"related":[]}`,
	}
	eng := NewDefaultEngine(assembler, completer, time.Second, nil, nil)

	req := validRequest()
	req.Context = map[string]string{"customer_id": "c-1"}

	resp, err := eng.ProcessQuery(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.ContextualAnswer, "VIP") {
		t.Errorf("unexpected answer: %q", resp.ContextualAnswer)
	}

	genReq, ok := completer.requestFor("generate_response")
	if !ok {
		t.Fatal("expected a generate_response call")
	}
	if !strings.Contains(genReq.Prompt, "Mrs. Lee [vip]") {
		t.Error("expected the prompt to carry the classified customer")
	}
	if !strings.Contains(genReq.Prompt, "customer_id: c-1") {
		t.Error("expected the prompt to carry the caller override")
	}
}

func TestProcessQueryEndToEndNotFound(t *testing.T) {
	t.Parallel()

	p := defaultParams()
	p.Businesses = &fakeBusinessReader{err: database.ErrNotFound}
	assembler := testAssembler(t, p, time.Now())
	eng := NewDefaultEngine(assembler, nil, time.Second, nil, nil)

	_, err := eng.ProcessQuery(context.Background(), validRequest())
	if !errors.Is(err, ErrBusinessNotFound) {
		t.Fatalf("expected ErrBusinessNotFound, got %v", err)
	}
}

func TestProcessQueryCustomerInquiryWithoutMatchingData(t *testing.T) {
	t.Parallel()

	// The context has no opening-hours data; the response must still be
	// structurally complete.
	completer := &fakeCompleter{
		responses: map[string]string{
			"generate_response": "The business data does not include opening hours.",
		},
		response: `{"insights":[],"recommendations":[],"suggestions":[],"related":[]}`,
	}
	eng := NewDefaultEngine(&countingAssembler{bctx: testContext()}, completer, time.Second, nil, nil)

	req := &models.AIContextRequest{
		BusinessID: "b1",
		QueryType:  models.QueryTypeCustomerInquiry,
		Query:      "What are our hours?",
	}
	resp, err := eng.ProcessQuery(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(resp.ContextualAnswer) == "" {
		t.Error("expected a non-empty answer")
	}
	if resp.BusinessInsights == nil || resp.RecommendedActions == nil ||
		resp.AutomationSuggestions == nil || resp.RelatedData == nil {
		t.Error("expected all list fields to be present")
	}
}

func TestProcessQueryBusinessAnalysisInsights(t *testing.T) {
	t.Parallel()

	bctx := testContext()
	bctx.FinancialSnapshot.ProfitMargin = 30

	req := &models.AIContextRequest{
		BusinessID: "b1",
		QueryType:  models.QueryTypeBusinessAnalysis,
		Query:      "How is my business performing?",
	}

	t.Run("llm available", func(t *testing.T) {
		t.Parallel()

		completer := &fakeCompleter{
			responses: map[string]string{
				"extract_insights":  `{"insights":[{"type":"financial","insight":"Profit margin of 30% is healthy","confidence":0.85,"impact":"medium","evidence":["profit_margin"]}]}`,
				"generate_response": "Your business is performing well with a 30% margin.",
			},
			response: `{"recommendations":[],"suggestions":[],"related":[]}`,
		}
		eng := NewDefaultEngine(&countingAssembler{bctx: bctx}, completer, time.Second, nil, nil)

		resp, err := eng.ProcessQuery(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.BusinessInsights) == 0 {
			t.Error("expected at least one insight")
		}
	})

	t.Run("llm unavailable", func(t *testing.T) {
		t.Parallel()

		eng := NewDefaultEngine(&countingAssembler{bctx: bctx}, nil, time.Second, nil, nil)

		resp, err := eng.ProcessQuery(context.Background(), req)
		if err != nil {
			t.Fatalf("expected success without insights, got %v", err)
		}
		if len(resp.BusinessInsights) != 0 || resp.BusinessInsights == nil {
			t.Errorf("expected empty non-nil insights, got %#v", resp.BusinessInsights)
		}
	})
}

func TestProcessQueryConcurrentRequests(t *testing.T) {
	t.Parallel()

	delay := 100 * time.Millisecond
	completer := &fakeCompleter{
		delay:    delay,
		response: `{"insights":[],"recommendations":[],"suggestions":[],"related":[]}`,
	}
	eng := NewDefaultEngine(&countingAssembler{bctx: testContext()}, completer, 5*time.Second, nil, nil)

	const requests = 5
	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, requests)
	wg.Add(requests)
	for i := 0; i < requests; i++ {
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.BusinessID = string(rune('a'+i)) + "-biz"
			_, errs[i] = eng.ProcessQuery(context.Background(), req)
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d failed: %v", i, err)
		}
	}
	// Requests are independent; total time should stay near a single
	// request's, not grow linearly with the request count.
	single := 2 * delay
	if elapsed >= time.Duration(requests)*single {
		t.Errorf("expected concurrent requests, took %v", elapsed)
	}
}
