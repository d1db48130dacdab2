package kameleoon

import (
	"errors"
	"fmt"

	of "github.com/open-feature/go-sdk/openfeature"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the optional Prometheus collectors of a provider.
// A nil *metrics records nothing.
type metrics struct {
	evaluations *prometheus.CounterVec
	dataItems   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	evaluations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kameleoon",
		Subsystem: "provider",
		Name:      "evaluations_total",
		Help:      "Total number of flag evaluations by value type and error code.",
	}, []string{"type", "error_code"}))
	if err != nil {
		return nil, err
	}

	dataItems, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kameleoon",
		Subsystem: "provider",
		Name:      "data_items_total",
		Help:      "Total number of data items pushed to the client by kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}

	return &metrics{evaluations: evaluations, dataItems: dataItems}, nil
}

// registerCounterVec registers c, reusing an identical collector that is
// already registered so several providers can share one registry.
func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	return c, nil
}

func (m *metrics) observeEvaluation(valueType string, detail of.ProviderResolutionDetail) {
	if m == nil {
		return
	}
	code := string(detail.ResolutionDetail().ErrorCode)
	if code == "" {
		code = "none"
	}
	m.evaluations.WithLabelValues(valueType, code).Inc()
}

func (m *metrics) observeData(data []Data) {
	if m == nil {
		return
	}
	for _, d := range data {
		m.dataItems.WithLabelValues(d.dataKind()).Inc()
	}
}
