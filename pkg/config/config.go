// Package config holds the single configuration object consumed by the
// classifier and the maintenance controller.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/validation"
	"gopkg.in/yaml.v3"
)

// DegreeThresholds gate the degree-based labels.
type DegreeThresholds struct {
	Monitor        int `yaml:"monitor" validate:"gte=0"`
	SuperConnector int `yaml:"superConnector" validate:"gte=0"`
}

// ClosenessThresholds gate the closeness-based labels.
type ClosenessThresholds struct {
	InformationHub float64 `yaml:"informationHub" validate:"gte=0,lte=1"`
	Critical       float64 `yaml:"critical" validate:"gte=0,lte=1"`
}

// RiskWeights are the contributions of each signal to the risk score.
type RiskWeights struct {
	Closeness    int `yaml:"closeness" validate:"gte=0"`
	Degree       int `yaml:"degree" validate:"gte=0"`
	Articulation int `yaml:"articulation" validate:"gte=0"`
}

// RiskTriggers are the strict lower bounds a signal must exceed to add its
// weight to the risk score.
type RiskTriggers struct {
	Closeness float64 `yaml:"closeness" validate:"gte=0,lte=1"`
	Degree    int     `yaml:"degree" validate:"gte=0"`
}

// Maintenance controls the refresh cycle.
type Maintenance struct {
	Interval         time.Duration `yaml:"interval"`
	ApplyRetries     int           `yaml:"applyRetries" validate:"gte=0,lte=20"`
	RetryBackoff     time.Duration `yaml:"retryBackoff"`
	ClosenessWorkers int           `yaml:"closenessWorkers" validate:"gte=0"`
	WritesPerSecond  float64       `yaml:"writesPerSecond" validate:"gte=0"` // 0 = unthrottled
}

// Logging controls the structured logger.
type Logging struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Config is the complete engine configuration.
type Config struct {
	DegreeThresholds                DegreeThresholds                     `yaml:"degreeThresholds"`
	ClosenessThresholds             ClosenessThresholds                  `yaml:"closenessThresholds"`
	RiskWeights                     RiskWeights                          `yaml:"riskWeights"`
	RiskTriggers                    RiskTriggers                         `yaml:"riskTriggers"`
	RiskTierBands                   [3]int                               `yaml:"riskTierBands"`
	MaxNodesForClosenessComputation int                                  `yaml:"maxNodesForClosenessComputation" validate:"gte=0"`
	EdgeTypeFilters                 map[graph.NodeType][]graph.EdgeType `yaml:"edgeTypeFilters"`
	Maintenance                     Maintenance                          `yaml:"maintenance"`
	Logging                         Logging                              `yaml:"logging"`
	Metrics                         Metrics                              `yaml:"metrics"`
}

// Default returns the stock thresholds. They are starting points for
// tuning, not fixed behaviour.
func Default() Config {
	return Config{
		DegreeThresholds:    DegreeThresholds{Monitor: 5, SuperConnector: 10},
		ClosenessThresholds: ClosenessThresholds{InformationHub: 0.6, Critical: 0.8},
		RiskWeights:         RiskWeights{Closeness: 3, Degree: 3, Articulation: 2},
		RiskTriggers:        RiskTriggers{Closeness: 0.6, Degree: 50},
		// Monitor, Review, Exclude
		RiskTierBands:                   [3]int{2, 3, 5},
		MaxNodesForClosenessComputation: 50000,
		Maintenance: Maintenance{
			Interval:     15 * time.Minute,
			ApplyRetries: 3,
			RetryBackoff: 50 * time.Millisecond,
		},
		Logging: Logging{Level: "info"},
		Metrics: Metrics{Enabled: true, Address: ":9108"},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and the relations between fields.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cv := validation.NewConfigValidator("Config").
		LessInt("degreeThresholds", c.DegreeThresholds.Monitor, c.DegreeThresholds.SuperConnector).
		LessOrEqualFloat("closenessThresholds", c.ClosenessThresholds.InformationHub, c.ClosenessThresholds.Critical).
		NonNegative("riskTierBands[0]", c.RiskTierBands[0]).
		Ascending("riskTierBands", c.RiskTierBands[:]...).
		When(c.Maintenance.Interval != 0, func(cv *validation.ConfigValidator) {
			cv.MinDuration("maintenance.interval", c.Maintenance.Interval, time.Second)
		}).
		Custom("edgeTypeFilters", func() error {
			for nodeType, edgeTypes := range c.EdgeTypeFilters {
				if nodeType == "" {
					return fmt.Errorf("empty node type key")
				}
				for _, et := range edgeTypes {
					if et == "" {
						return fmt.Errorf("empty edge type for %s", nodeType)
					}
				}
			}
			return nil
		})

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
