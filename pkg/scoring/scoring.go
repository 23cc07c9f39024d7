// Package scoring fuses degree, closeness and articulation signals into a
// risk tier and a label set.
package scoring

import (
	"sort"

	"github.com/dd0wney/cluso-riskgraph/pkg/config"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// Labels applied by the classifier.
const (
	LabelSuperConnector      = "SuperConnector"
	LabelMonitorNode         = "MonitorNode"
	LabelInformationHub      = "InformationHub"
	LabelCriticalCloseness   = "CriticalCloseness"
	LabelBridgeNode          = "BridgeNode"
	LabelExcludeFromMatching = "ExcludeFromMatching"
)

var managedLabels = []string{
	LabelBridgeNode,
	LabelCriticalCloseness,
	LabelExcludeFromMatching,
	LabelInformationHub,
	LabelMonitorNode,
	LabelSuperConnector,
}

// ManagedLabels lists, sorted, every label the classifier may apply. Labels
// outside this set belong to other writers and are never removed.
func ManagedLabels() []string {
	out := make([]string, len(managedLabels))
	copy(out, managedLabels)
	return out
}

// IsManaged reports whether a label is owned by the classifier.
func IsManaged(label string) bool {
	i := sort.SearchStrings(managedLabels, label)
	return i < len(managedLabels) && managedLabels[i] == label
}

// Inputs are the three per-node signals.
type Inputs struct {
	Degree       int
	Closeness    float64
	Articulation bool
}

// Result is the classification of one node.
type Result struct {
	RiskScore int
	Tier      graph.RiskTier
	// Labels is sorted.
	Labels []string
}

// Exclude reports whether the node should be dropped from identity matching.
func (r Result) Exclude() bool { return r.Tier == graph.TierExclude }

// Classifier applies one configuration. It holds no mutable state, so a
// single instance can be shared across goroutines.
type Classifier struct {
	degree    config.DegreeThresholds
	closeness config.ClosenessThresholds
	weights   config.RiskWeights
	triggers  config.RiskTriggers
	bands     [3]int
}

// NewClassifier captures the scoring sections of cfg.
func NewClassifier(cfg config.Config) *Classifier {
	return &Classifier{
		degree:    cfg.DegreeThresholds,
		closeness: cfg.ClosenessThresholds,
		weights:   cfg.RiskWeights,
		triggers:  cfg.RiskTriggers,
		bands:     cfg.RiskTierBands,
	}
}

// RiskScore sums the weight of every signal above its trigger.
func (c *Classifier) RiskScore(in Inputs) int {
	score := 0
	if in.Closeness > c.triggers.Closeness {
		score += c.weights.Closeness
	}
	if in.Degree > c.triggers.Degree {
		score += c.weights.Degree
	}
	if in.Articulation {
		score += c.weights.Articulation
	}
	return score
}

// Tier maps a risk score onto the configured bands. A score equal to a band
// boundary lands in the higher tier.
func (c *Classifier) Tier(score int) graph.RiskTier {
	switch {
	case score >= c.bands[2]:
		return graph.TierExclude
	case score >= c.bands[1]:
		return graph.TierReview
	case score >= c.bands[0]:
		return graph.TierMonitor
	default:
		return graph.TierNone
	}
}

// Classify computes score, tier and every label whose predicate holds.
func (c *Classifier) Classify(in Inputs) Result {
	score := c.RiskScore(in)
	tier := c.Tier(score)

	labels := make([]string, 0, 4)
	if in.Degree >= c.degree.SuperConnector {
		labels = append(labels, LabelSuperConnector)
	} else if in.Degree >= c.degree.Monitor {
		labels = append(labels, LabelMonitorNode)
	}
	if in.Closeness >= c.closeness.InformationHub {
		labels = append(labels, LabelInformationHub)
	}
	if in.Closeness >= c.closeness.Critical {
		labels = append(labels, LabelCriticalCloseness)
	}
	if in.Articulation {
		labels = append(labels, LabelBridgeNode)
	}
	if tier == graph.TierExclude {
		labels = append(labels, LabelExcludeFromMatching)
	}
	sort.Strings(labels)

	return Result{RiskScore: score, Tier: tier, Labels: labels}
}
