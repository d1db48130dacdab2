// Package main is the integration test suite for the Kameleoon OpenFeature
// provider running over the Split SDK in localhost mode.
//
// It validates:
//   - Provider registration and readiness through the OpenFeature SDK
//   - Event handling (PROVIDER_READY, PROVIDER_ERROR)
//   - Evaluations of every type with variable selection
//   - Error codes for missing flags, missing variables and type mismatches
//   - Conversion and custom data forwarding
//   - Lifecycle: init after shutdown, concurrent init, init timeout
//
// Run: go run .
//
// Exit codes:
//   - 0: All tests passed
//   - 1: One or more tests failed
//   - 2: Timeout or fatal error
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/open-feature/go-sdk/openfeature"
	"github.com/open-feature/go-sdk/openfeature/hooks"
	"github.com/prometheus/client_golang/prometheus"

	kameleoon "github.com/kameleoon/openfeature-go-provider"
	"github.com/kameleoon/openfeature-go-provider/splitclient"
)

const (
	visitorCode = "integration-visitor"
	splitFile   = "./split.yaml"
)

func main() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("   Kameleoon OpenFeature Provider - Integration Test Suite")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var (
		cleanupSuccess = true
		exitCode       = 0
	)

	logLevel := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	}

	baseLogger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
	}))
	appLogger := baseLogger.With("source", "app")
	slog.SetDefault(baseLogger)

	section("LOGGING & HOOKS")
	openfeature.AddHooks(hooks.NewLoggingHook(false, baseLogger.With("source", "openfeature-sdk")))
	appLogger.Info("logging configured", "level", logLevel.String())

	section("EVENT HANDLERS")
	var eventsReceived sync.Map
	handleEvent := func(eventType openfeature.EventType) openfeature.EventCallback {
		callback := func(details openfeature.EventDetails) {
			val, _ := eventsReceived.LoadOrStore(eventType, new(atomic.Int64))
			count := val.(*atomic.Int64).Add(1)
			slog.Info("event received",
				"type", eventType,
				"provider", details.ProviderName,
				"message", details.Message,
				"count", count)
		}
		return &callback
	}
	openfeature.AddHandler(openfeature.ProviderReady, handleEvent(openfeature.ProviderReady))
	openfeature.AddHandler(openfeature.ProviderError, handleEvent(openfeature.ProviderError))

	section("PROVIDER CREATION")
	client, err := newClient(baseLogger)
	if err != nil {
		slog.Error("failed to create client", "error", err)
		os.Exit(2)
	}

	registry := prometheus.NewRegistry()
	provider, err := kameleoon.New(client,
		kameleoon.WithLogger(baseLogger),
		kameleoon.WithMetrics(registry),
	)
	if err != nil {
		slog.Error("failed to create provider", "error", err)
		os.Exit(2)
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			slog.Info("initiating graceful shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := openfeature.ShutdownWithContext(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
				cleanupSuccess = false
			}
		})
	}
	defer cleanup()

	shutdownChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-shutdownChan:
			slog.Warn("interrupt signal received", "signal", sig)
			cancel()
		case <-done:
		}
		signal.Stop(shutdownChan)
	}()

	section("PROVIDER INITIALIZATION")
	openfeature.SetEvaluationContext(openfeature.NewEvaluationContext(visitorCode, map[string]any{
		kameleoon.CustomDataKey: kameleoon.MakeCustomData(1, "integration"),
	}))

	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	defer initCancel()
	if err := openfeature.SetProviderWithContextAndWait(initCtx, provider); err != nil {
		slog.Error("failed to initialize provider", "error", err)
		cleanup()
		os.Exit(2)
	}
	appLogger.Info("provider initialized and ready", "visitor", client.VisitorCode())

	ofClient := openfeature.NewDefaultClient()

	section("RUNNING TESTS")
	runTests(ctx, ofClient, provider, client, registry, &eventsReceived, baseLogger)

	checks, failed := results.Report()

	close(done)
	cleanup()

	switch {
	case !cleanupSuccess, checks == 0:
		exitCode = 2
	case failed > 0:
		exitCode = 1
	}
	os.Exit(exitCode)
}

// newClient creates a Split-backed client over the suite's flag file.
func newClient(logger *slog.Logger) (*splitclient.Client, error) {
	return splitclient.New(splitclient.Config{
		SDKKey:      splitclient.LocalhostKey,
		SplitFile:   splitFile,
		VisitorCode: visitorCode,
		Logger:      logger,
		SplitConfig: splitclient.TestConfig(),
	})
}

func runTests(
	ctx context.Context,
	ofClient *openfeature.Client,
	provider *kameleoon.Provider,
	client *splitclient.Client,
	registry *prometheus.Registry,
	eventsReceived *sync.Map,
	logger *slog.Logger,
) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during test execution", "panic", r)
			results.Check("panic", false, "test execution panicked: %v", r)
		}
	}()

	section("TYPED EVALUATIONS")
	testTypedEvaluations(ctx, ofClient)

	section("OBJECT EVALUATIONS")
	testObjectEvaluations(ctx, ofClient)

	section("VARIABLE SELECTION")
	testVariableSelection(ctx, ofClient)

	section("EVALUATION DETAILS")
	testEvaluationDetails(ctx, ofClient)

	section("ERROR HANDLING")
	testErrorHandling(ctx, ofClient)

	section("CONCURRENT EVALUATIONS")
	testConcurrentEvaluations(ctx, ofClient)

	section("DATA FORWARDING")
	testDataForwarding(provider, registry)

	section("EVENTS")
	testEvents(eventsReceived)

	section("METADATA & STATUS")
	testMetadataAndStatus(provider, client)

	section("INIT AFTER SHUTDOWN")
	testInitAfterShutdown(logger)

	section("NAMED PROVIDER")
	testNamedProvider(ctx, logger)

	section("CONCURRENT INIT")
	testConcurrentInit(logger)

	section("INIT TIMEOUT")
	testInitTimeout(logger)

	section("DOUBLE SHUTDOWN")
	testDoubleShutdown(logger)
}
