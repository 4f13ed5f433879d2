// Package industry provides static reference content keyed by business type
// or industry. It is optional enrichment for assembled business contexts:
// lookups never fail, they degrade to empty lists.
package industry

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/opsledger/bizcontext/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var referenceYAML []byte

type referenceEntry struct {
	SeasonalPatterns    []string `yaml:"seasonal_patterns"`
	CompetitiveAnalysis []string `yaml:"competitive_analysis"`
	MarketTrends        []string `yaml:"market_trends"`
	BestPractices       []string `yaml:"best_practices"`
}

type referenceFile struct {
	Industries map[string]referenceEntry `yaml:"industries"`
}

// Lookup resolves static industry reference content
type Lookup struct {
	entries map[string]referenceEntry
}

var (
	defaultLookup *Lookup
	loadOnce      sync.Once
	loadErr       error
)

// NewLookup parses the embedded reference table. The parse happens once per
// process.
func NewLookup() (*Lookup, error) {
	loadOnce.Do(func() {
		var file referenceFile
		if err := yaml.Unmarshal(referenceYAML, &file); err != nil {
			loadErr = fmt.Errorf("failed to parse industry reference: %w", err)
			return
		}
		entries := make(map[string]referenceEntry, len(file.Industries))
		for key, entry := range file.Industries {
			entries[normalizeKey(key)] = entry
		}
		defaultLookup = &Lookup{entries: entries}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return defaultLookup, nil
}

// Context returns industry reference content for a business. The business
// type is tried first, then the industry; an unknown key yields a context
// with empty lists.
func (l *Lookup) Context(businessType, industryType string) models.IndustryContext {
	ctx := models.IndustryContext{
		IndustryType:        industryType,
		SeasonalPatterns:    []string{},
		CompetitiveAnalysis: []string{},
		MarketTrends:        []string{},
		BestPractices:       []string{},
	}

	entry, ok := l.entries[normalizeKey(businessType)]
	if !ok {
		entry, ok = l.entries[normalizeKey(industryType)]
	}
	if !ok {
		return ctx
	}

	if entry.SeasonalPatterns != nil {
		ctx.SeasonalPatterns = entry.SeasonalPatterns
	}
	if entry.CompetitiveAnalysis != nil {
		ctx.CompetitiveAnalysis = entry.CompetitiveAnalysis
	}
	if entry.MarketTrends != nil {
		ctx.MarketTrends = entry.MarketTrends
	}
	if entry.BestPractices != nil {
		ctx.BestPractices = entry.BestPractices
	}
	return ctx
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
}
