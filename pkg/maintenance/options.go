package maintenance

import (
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
	"github.com/dd0wney/cluso-riskgraph/pkg/pubsub"
)

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records cycle metrics into r.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Controller) { c.metrics = r }
}

// WithBroker publishes every finished report on b.
func WithBroker(b *pubsub.Broker[*CycleReport]) Option {
	return func(c *Controller) { c.broker = b }
}
