// lifecycle.go contains data forwarding, event and provider lifecycle tests.
package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/open-feature/go-sdk/openfeature"
	"github.com/prometheus/client_golang/prometheus"

	kameleoon "github.com/kameleoon/openfeature-go-provider"
	"github.com/kameleoon/openfeature-go-provider/splitclient"
)

// pendingClient never reports readiness.
type pendingClient struct{}

func (pendingClient) GetVariation(featureKey string) (kameleoon.Variation, error) {
	return kameleoon.Variation{}, &kameleoon.FeatureError{FeatureKey: featureKey, Err: kameleoon.ErrFeatureNotFound}
}

func (pendingClient) AddData(...kameleoon.Data) {}

func (pendingClient) RunWhenReady(func(bool)) {}

// counterValue sums a counter family for one label value.
func counterValue(registry *prometheus.Registry, name, label, value string) float64 {
	families, err := registry.Gather()
	if err != nil {
		return -1
	}
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func testDataForwarding(provider *kameleoon.Provider, registry *prometheus.Registry) {
	const dataItems = "kameleoon_provider_data_items_total"

	// The global context carried one custom data entry at init.
	before := counterValue(registry, dataItems, "kind", kameleoon.CustomDataKey)
	results.Check("Data(initial)", before == 1, "expected 1 custom data item, got %v", before)

	provider.OnContextChanged(openfeature.EvaluationContext{}, openfeature.NewEvaluationContext(visitorCode, map[string]any{
		kameleoon.ConversionKey: kameleoon.MakeConversion(7, 49.9),
		kameleoon.CustomDataKey: []any{
			kameleoon.MakeCustomData(1, "integration"),
			kameleoon.MakeCustomData(2, "mobile", "returning"),
			map[string]any{"index": "not-a-number"},
		},
	}))

	conversions := counterValue(registry, dataItems, "kind", kameleoon.ConversionKey)
	results.Check("Data(conversion)", conversions == 1, "expected 1 conversion, got %v", conversions)

	customData := counterValue(registry, dataItems, "kind", kameleoon.CustomDataKey)
	results.Check("Data(customData)", customData == 3, "expected 3 custom data items, got %v", customData)
}

func testEvents(eventsReceived *sync.Map) {
	val, ok := eventsReceived.Load(openfeature.ProviderReady)
	results.Check("Events(ready)", ok && val.(*atomic.Int64).Load() >= 1, "no PROVIDER_READY event received")

	_, gotError := eventsReceived.Load(openfeature.ProviderError)
	results.Check("Events(no_error)", !gotError, "unexpected PROVIDER_ERROR event")
}

func testMetadataAndStatus(provider *kameleoon.Provider, client *splitclient.Client) {
	results.Check("Metadata(name)", provider.Metadata().Name == kameleoon.ProviderName,
		"got %q", provider.Metadata().Name)
	results.Check("Hooks(empty)", len(provider.Hooks()) == 0, "got %d hooks", len(provider.Hooks()))
	results.Check("Status(ready)", provider.Status() == openfeature.ReadyState, "got %q", provider.Status())
	results.Check("Client(same)", provider.Client() == kameleoon.Client(client), "provider exposes a different client")

	select {
	case state := <-provider.Observe():
		results.Check("Observe(replay)", state == openfeature.ReadyState, "got %q", state)
	case <-time.After(time.Second):
		results.Check("Observe(replay)", false, "no state replayed")
	}
}

func newSplitProvider(logger *slog.Logger) (*kameleoon.Provider, error) {
	client, err := newClient(logger)
	if err != nil {
		return nil, err
	}
	return kameleoon.New(client, kameleoon.WithLogger(logger))
}

func testInitAfterShutdown(logger *slog.Logger) {
	provider, err := newSplitProvider(logger)
	if !results.Require("InitAfterShutdown(create)", err) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	evalCtx := openfeature.NewEvaluationContext(visitorCode, nil)

	if err := provider.InitWithContext(ctx, evalCtx); !results.Require("InitAfterShutdown(init)", err) {
		provider.Shutdown()
		return
	}
	if err := provider.ShutdownWithContext(ctx); !results.Require("InitAfterShutdown(shutdown)", err) {
		return
	}

	err = provider.InitWithContext(ctx, evalCtx)
	results.Check("InitAfterShutdown",
		err != nil && strings.Contains(err.Error(), "cannot initialize provider after shutdown"),
		"expected shutdown error, got %v", err)
}

func testNamedProvider(ctx context.Context, logger *slog.Logger) {
	provider, err := newSplitProvider(logger)
	if !results.Require("NamedProvider(create)", err) {
		return
	}
	defer provider.Shutdown()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := openfeature.SetNamedProviderWithContextAndWait(initCtx, "kameleoon-named", provider); !results.Require("NamedProvider(init)", err) {
		return
	}

	namedClient := openfeature.NewClient("kameleoon-named")
	title, err := namedClient.StringValue(ctx, "checkout_redesign", "", variableContext("title"))
	results.Check("NamedProvider(evaluation)", err == nil && title == "New checkout", "got %q, err %v", title, err)
}

func testConcurrentInit(logger *slog.Logger) {
	provider, err := newSplitProvider(logger)
	if !results.Require("ConcurrentInit(create)", err) {
		return
	}
	defer provider.Shutdown()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			errs <- provider.InitWithContext(ctx, openfeature.NewEvaluationContext(visitorCode, nil))
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}
	results.Check("ConcurrentInit", succeeded == 10, "only %d/10 succeeded", succeeded)
}

func testInitTimeout(logger *slog.Logger) {
	provider, err := kameleoon.New(pendingClient{}, kameleoon.WithLogger(logger))
	if !results.Require("InitTimeout(create)", err) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = provider.InitWithContext(ctx, openfeature.EvaluationContext{})
	elapsed := time.Since(start)

	results.Check("InitTimeout",
		errors.Is(err, context.DeadlineExceeded) && elapsed < 2*time.Second,
		"got %v after %s", err, elapsed)
	results.Check("InitTimeout(status)", provider.Status() == openfeature.NotReadyState,
		"got %q", provider.Status())
}

func testDoubleShutdown(logger *slog.Logger) {
	provider, err := newSplitProvider(logger)
	if !results.Require("DoubleShutdown(create)", err) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := provider.InitWithContext(ctx, openfeature.NewEvaluationContext(visitorCode, nil)); !results.Require("DoubleShutdown(init)", err) {
		provider.Shutdown()
		return
	}

	first := provider.ShutdownWithContext(ctx)
	second := provider.ShutdownWithContext(ctx)
	results.Check("DoubleShutdown", first == nil && second == nil, "first %v, second %v", first, second)
}
