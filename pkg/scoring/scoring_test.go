package scoring

import (
	"reflect"
	"sort"
	"testing"

	"github.com/dd0wney/cluso-riskgraph/pkg/config"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestRiskScore_Weights(t *testing.T) {
	c := NewClassifier(config.Default())

	tests := []struct {
		name string
		in   Inputs
		want int
	}{
		{"nothing", Inputs{Degree: 3, Closeness: 0.2}, 0},
		{"closeness at trigger does not count", Inputs{Closeness: 0.6}, 0},
		{"closeness above trigger", Inputs{Closeness: 0.61}, 3},
		{"degree at trigger does not count", Inputs{Degree: 50}, 0},
		{"degree above trigger", Inputs{Degree: 51}, 3},
		{"articulation", Inputs{Articulation: true}, 2},
		{"everything", Inputs{Degree: 400, Closeness: 0.9, Articulation: true}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.RiskScore(tt.in))
		})
	}
}

func TestRiskScore_ConfiguredWeights(t *testing.T) {
	cfg := config.Default()
	cfg.RiskWeights = config.RiskWeights{Closeness: 1, Degree: 10, Articulation: 100}
	c := NewClassifier(cfg)

	assert.Equal(t, 111, c.RiskScore(Inputs{Degree: 51, Closeness: 0.7, Articulation: true}))
}

func TestTier_BoundaryGoesToHigherTier(t *testing.T) {
	cfg := config.Default()
	cfg.RiskTierBands = [3]int{2, 4, 7}
	c := NewClassifier(cfg)

	tests := []struct {
		score int
		want  graph.RiskTier
	}{
		{1, graph.TierNone},
		{2, graph.TierMonitor},
		{3, graph.TierMonitor},
		{4, graph.TierReview},
		{6, graph.TierReview},
		{7, graph.TierExclude},
		{99, graph.TierExclude},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Tier(tt.score), "score %d", tt.score)
	}

	// coinciding bands resolve to the highest one
	cfg.RiskTierBands = [3]int{3, 3, 3}
	assert.Equal(t, graph.TierExclude, NewClassifier(cfg).Tier(3))
}

func TestClassify_LabelsCoexist(t *testing.T) {
	c := NewClassifier(config.Default())

	got := c.Classify(Inputs{Degree: 60, Closeness: 0.85, Articulation: true})
	assert.Equal(t, 8, got.RiskScore)
	assert.Equal(t, graph.TierExclude, got.Tier)
	assert.True(t, got.Exclude())
	assert.Equal(t, []string{
		LabelBridgeNode,
		LabelCriticalCloseness,
		LabelExcludeFromMatching,
		LabelInformationHub,
		LabelSuperConnector,
	}, got.Labels)
}

func TestClassify_DegreeBands(t *testing.T) {
	c := NewClassifier(config.Default())

	assert.Empty(t, c.Classify(Inputs{Degree: 4}).Labels)
	assert.Equal(t, []string{LabelMonitorNode}, c.Classify(Inputs{Degree: 5}).Labels)
	assert.Equal(t, []string{LabelMonitorNode}, c.Classify(Inputs{Degree: 9}).Labels)
	assert.Equal(t, []string{LabelSuperConnector}, c.Classify(Inputs{Degree: 10}).Labels)
	assert.Equal(t, []string{LabelInformationHub}, c.Classify(Inputs{Closeness: 0.6}).Labels)
}

func TestManagedLabels(t *testing.T) {
	labels := ManagedLabels()
	assert.True(t, sort.StringsAreSorted(labels))
	for _, l := range labels {
		assert.True(t, IsManaged(l))
	}
	assert.False(t, IsManaged("ManualReview"))
}

func TestClassify_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	c := NewClassifier(config.Default())
	other := NewClassifier(config.Default())

	properties.Property("identical inputs give identical results", prop.ForAll(
		func(degree int, closeness float64, articulation bool) bool {
			in := Inputs{Degree: degree, Closeness: closeness, Articulation: articulation}
			return reflect.DeepEqual(c.Classify(in), other.Classify(in)) &&
				reflect.DeepEqual(c.Classify(in), c.Classify(in))
		},
		gen.IntRange(0, 200),
		gen.Float64Range(0, 1),
		gen.Bool(),
	))

	properties.Property("labels are sorted and managed", prop.ForAll(
		func(degree int, closeness float64, articulation bool) bool {
			labels := c.Classify(Inputs{Degree: degree, Closeness: closeness, Articulation: articulation}).Labels
			if !sort.StringsAreSorted(labels) {
				return false
			}
			for _, l := range labels {
				if !IsManaged(l) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.Float64Range(0, 1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
