package kameleoon

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	of "github.com/open-feature/go-sdk/openfeature"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// ErrProviderFatal is returned by New when the provider cannot be built.
var ErrProviderFatal = errors.New("kameleoon provider fatal error")

// Provider is an OpenFeature provider backed by a Kameleoon client.
//
// It implements of.FeatureProvider, of.StateHandler,
// of.ContextAwareStateHandler and of.EventHandler.
type Provider struct {
	client   Client
	resolver *resolver
	logger   *slog.Logger
	metrics  *metrics

	registerer  prometheus.Registerer
	initTimeout time.Duration

	readiness   *readiness
	eventStream chan of.Event

	initOnce  sync.Once
	fired     uint32
	initGroup singleflight.Group
	shutdown  uint32
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used by the provider. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics registers evaluation and data counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Provider) {
		p.registerer = reg
	}
}

// WithInitTimeout bounds Init, which has no context of its own.
// Defaults to 15 seconds.
func WithInitTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.initTimeout = timeout
		}
	}
}

// New creates a provider over client.
//
// The provider starts NotReady. Register it with the OpenFeature SDK (or call
// Initialize directly) to wait for the client and push the initial context.
//
// Example:
//
//	provider, err := kameleoon.New(client, kameleoon.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := openfeature.SetProviderWithContextAndWait(ctx, provider); err != nil {
//	    log.Fatal(err)
//	}
func New(client Client, opts ...Option) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrProviderFatal)
	}

	p := &Provider{
		client:      client,
		logger:      slog.Default(),
		initTimeout: defaultInitTimeout,
		readiness:   newReadiness(),
		eventStream: make(chan of.Event, eventChannelBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With("provider", ProviderName)
	p.resolver = &resolver{client: client, logger: p.logger}

	if p.registerer != nil {
		m, err := newMetrics(p.registerer)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderFatal, err)
		}
		p.metrics = m
	}

	return p, nil
}

// Metadata returns the provider name.
func (p *Provider) Metadata() of.Metadata {
	return of.Metadata{
		Name: ProviderName,
	}
}

// Hooks returns the provider's hooks. This provider has none.
func (p *Provider) Hooks() []of.Hook {
	return nil
}

// Client returns the underlying client for features not covered by
// OpenFeature. The provider keeps owning its lifecycle.
func (p *Provider) Client() Client {
	return p.client
}
