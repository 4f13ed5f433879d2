package engine

import (
	"time"

	"github.com/opsledger/bizcontext/internal/models"
)

// Classifier thresholds. Overridable via Thresholds; these defaults mirror
// observed production behavior.
const (
	DefaultVIPThreshold     = 10000.0
	DefaultRegularThreshold = 1000.0
	DefaultAtRiskDays       = 90
)

// Thresholds parameterizes the relationship classifier
type Thresholds struct {
	VIPValue     float64
	RegularValue float64
	AtRiskDays   int
}

// DefaultThresholds returns the standard classifier thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		VIPValue:     DefaultVIPThreshold,
		RegularValue: DefaultRegularThreshold,
		AtRiskDays:   DefaultAtRiskDays,
	}
}

// RelationshipClassifier maps (lifetime value, last-contacted timestamp) to a
// relationship tier. Pure and total: nil inputs are valid and degrade to the
// "new" tier rather than failing.
type RelationshipClassifier struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewRelationshipClassifier creates a classifier with the given thresholds
func NewRelationshipClassifier(thresholds Thresholds) *RelationshipClassifier {
	if thresholds.VIPValue == 0 {
		thresholds.VIPValue = DefaultVIPThreshold
	}
	if thresholds.RegularValue == 0 {
		thresholds.RegularValue = DefaultRegularThreshold
	}
	if thresholds.AtRiskDays == 0 {
		thresholds.AtRiskDays = DefaultAtRiskDays
	}
	return &RelationshipClassifier{
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Classify assigns a relationship tier. Decision order, first match wins:
//
//  1. lifetime value at or above the VIP threshold -> vip
//  2. last contact strictly more than AtRiskDays days ago -> at_risk
//  3. lifetime value at or above the regular threshold -> regular
//  4. otherwise -> new
//
// A genuinely high lifetime value bypasses the recency check entirely;
// values exactly at a threshold qualify for that tier (>= comparison), and a
// contact exactly AtRiskDays days ago is not yet at risk (> comparison).
func (c *RelationshipClassifier) Classify(lifetimeValue *float64, lastContactedAt *time.Time) models.RelationshipTier {
	if lifetimeValue != nil && *lifetimeValue >= c.thresholds.VIPValue {
		return models.TierVIP
	}

	if lastContactedAt != nil {
		daysSince := c.now().Sub(*lastContactedAt).Hours() / 24
		if daysSince > float64(c.thresholds.AtRiskDays) {
			return models.TierAtRisk
		}
	}

	if lifetimeValue != nil && *lifetimeValue >= c.thresholds.RegularValue {
		return models.TierRegular
	}

	return models.TierNew
}
