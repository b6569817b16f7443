package cli

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/spacegraph/pkg/observability"
)

// hookSet is the observability wiring of a long-running command.
type hookSet struct {
	metrics http.Handler
	nats    *observability.NATSHooks
}

// installHooks registers Prometheus metrics when metrics is set and NATS
// events when the config names a server. Close undoes both.
func (c *CLI) installHooks(metrics bool) (*hookSet, error) {
	hs := &hookSet{}
	var pipeline observability.MultiPipelineHooks

	if metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := observability.NewPromHooks(reg)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, prom)
		observability.SetCacheHooks(prom)
		observability.SetHTTPHooks(prom)
		hs.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	if url := c.Config.Events.NATSURL; url != "" {
		nh, err := observability.ConnectNATS(url, c.Config.Events.Subject)
		if err != nil {
			observability.Reset()
			return nil, err
		}
		hs.nats = nh
		pipeline = append(pipeline, nh)
		c.Logger.Info("publishing analysis events", "url", url, "subject", c.Config.Events.Subject)
	}

	if len(pipeline) > 0 {
		observability.SetPipelineHooks(pipeline)
	}
	return hs, nil
}

// Close drains the NATS connection and restores the no-op hooks.
func (hs *hookSet) Close() error {
	observability.Reset()
	if hs.nats != nil {
		return hs.nats.Close()
	}
	return nil
}
