package engine

import (
	"testing"
	"time"

	"github.com/opsledger/bizcontext/internal/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestClassify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	classifier := NewRelationshipClassifier(DefaultThresholds())
	classifier.now = func() time.Time { return now }

	daysAgo := func(d int) *time.Time {
		return timePtr(now.AddDate(0, 0, -d))
	}

	tests := []struct {
		name            string
		lifetimeValue   *float64
		lastContactedAt *time.Time
		want            models.RelationshipTier
	}{
		{
			name:          "high lifetime value is vip",
			lifetimeValue: floatPtr(15000),
			want:          models.TierVIP,
		},
		{
			name:            "vip bypasses recency check",
			lifetimeValue:   floatPtr(15000),
			lastContactedAt: daysAgo(365),
			want:            models.TierVIP,
		},
		{
			name:          "value exactly at vip threshold is vip",
			lifetimeValue: floatPtr(10000),
			want:          models.TierVIP,
		},
		{
			name:            "stale contact overrides moderate value",
			lifetimeValue:   floatPtr(5000),
			lastContactedAt: daysAgo(100),
			want:            models.TierAtRisk,
		},
		{
			name:            "stale contact with no value is at risk",
			lastContactedAt: daysAgo(91),
			want:            models.TierAtRisk,
		},
		{
			name:            "contact exactly 90 days ago is not yet at risk",
			lifetimeValue:   floatPtr(2000),
			lastContactedAt: daysAgo(90),
			want:            models.TierRegular,
		},
		{
			name:            "moderate value with recent contact is regular",
			lifetimeValue:   floatPtr(2000),
			lastContactedAt: timePtr(now),
			want:            models.TierRegular,
		},
		{
			name:          "value exactly at regular threshold is regular",
			lifetimeValue: floatPtr(1000),
			want:          models.TierRegular,
		},
		{
			name:            "low value with recent contact is new",
			lifetimeValue:   floatPtr(500),
			lastContactedAt: timePtr(now),
			want:            models.TierNew,
		},
		{
			name: "missing data degrades to new",
			want: models.TierNew,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := classifier.Classify(tt.lifetimeValue, tt.lastContactedAt)
			if got != tt.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tt.lifetimeValue, tt.lastContactedAt, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	t.Parallel()

	classifier := NewRelationshipClassifier(Thresholds{
		VIPValue:     20000,
		RegularValue: 5000,
		AtRiskDays:   30,
	})

	if got := classifier.Classify(floatPtr(15000), nil); got != models.TierRegular {
		t.Errorf("expected regular under raised vip threshold, got %q", got)
	}

	stale := time.Now().AddDate(0, 0, -45)
	if got := classifier.Classify(floatPtr(6000), &stale); got != models.TierAtRisk {
		t.Errorf("expected at_risk under lowered at-risk window, got %q", got)
	}
}

func TestClassifyZeroThresholdsUseDefaults(t *testing.T) {
	t.Parallel()

	classifier := NewRelationshipClassifier(Thresholds{})
	if got := classifier.Classify(floatPtr(10000), nil); got != models.TierVIP {
		t.Errorf("expected default vip threshold to apply, got %q", got)
	}
}
