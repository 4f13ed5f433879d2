package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/opsledger/bizcontext/internal/models"
)

func TestGenerateReturnsCompletionVerbatim(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{response: "Mrs. Lee's next appointment is Tuesday at 10am."}
	gen := NewResponseGenerator(completer, time.Second, nil)

	answer := gen.Generate(context.Background(), "when is Mrs. Lee's appointment?", testContext(), models.QueryIntent{}, nil)
	if answer != "Mrs. Lee's next appointment is Tuesday at 10am." {
		t.Errorf("expected verbatim completion, got %q", answer)
	}
}

func TestGenerateFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		completer *fakeCompleter
	}{
		{name: "nil completer", completer: nil},
		{name: "completion error", completer: &fakeCompleter{err: errors.New("timeout")}},
		{name: "blank completion", completer: &fakeCompleter{response: "   \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := NewResponseGenerator(nil, time.Second, nil)
			if tt.completer != nil {
				gen = NewResponseGenerator(tt.completer, time.Second, nil)
			}

			answer := gen.Generate(context.Background(), "anything", testContext(), models.QueryIntent{}, nil)
			if answer != FallbackAnswer {
				t.Errorf("expected fallback answer, got %q", answer)
			}
		})
	}
}

func TestGeneratePromptProjectsRequiredFacets(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{response: "ok"}
	gen := NewResponseGenerator(completer, time.Second, nil)

	bctx := testContext()
	bctx.CustomerData = []models.CustomerSummary{{Name: "Alfa", Relationship: models.TierVIP}}
	intent := models.QueryIntent{
		Intent:       "customer_lookup",
		RequiredData: []string{"business_profile", "customer_data"},
		ActionType:   models.ActionRespond,
	}

	gen.Generate(context.Background(), "who are my customers?", bctx, intent, nil)

	req, ok := completer.requestFor("generate_response")
	if !ok {
		t.Fatal("expected one generate_response call")
	}
	if !strings.Contains(req.Prompt, "Evergreen Plumbing") {
		t.Error("expected profile facet in prompt")
	}
	if !strings.Contains(req.Prompt, "Alfa [vip]") {
		t.Error("expected customer facet in prompt")
	}
	if strings.Contains(req.Prompt, "monthly revenue") {
		t.Error("expected financial facet to be omitted when not required")
	}
	if req.JSONMode {
		t.Error("expected plain-text mode for answer generation")
	}
}

func TestGeneratePromptDefaultsFacetsAndAppendsOverrides(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{response: "ok"}
	gen := NewResponseGenerator(completer, time.Second, nil)

	overrides := map[string]string{
		"customer_id": "c-42",
		"channel":     "sms",
	}
	gen.Generate(context.Background(), "follow up please", testContext(), models.QueryIntent{}, overrides)

	req, ok := completer.requestFor("generate_response")
	if !ok {
		t.Fatal("expected one generate_response call")
	}
	if !strings.Contains(req.Prompt, "monthly revenue") {
		t.Error("expected default facets when intent names none")
	}
	if !strings.Contains(req.Prompt, "customer_id: c-42") || !strings.Contains(req.Prompt, "channel: sms") {
		t.Error("expected overrides in prompt")
	}
	// Overrides render deterministically in key order.
	if strings.Index(req.Prompt, "channel: sms") > strings.Index(req.Prompt, "customer_id: c-42") {
		t.Error("expected overrides sorted by key")
	}
}
