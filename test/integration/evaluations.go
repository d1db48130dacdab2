// evaluations.go contains flag evaluation tests for all types, variable
// selection, evaluation details and error handling.
package main

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/open-feature/go-sdk/openfeature"

	kameleoon "github.com/kameleoon/openfeature-go-provider"
)

func variableContext(variableKey string) openfeature.EvaluationContext {
	attrs := map[string]any{}
	if variableKey != "" {
		attrs[kameleoon.VariableKey] = variableKey
	}
	return openfeature.NewEvaluationContext(visitorCode, attrs)
}

func testTypedEvaluations(ctx context.Context, client *openfeature.Client) {
	enabled, err := client.BooleanValue(ctx, "checkout_redesign", false, variableContext("enabled"))
	results.Check("Boolean(enabled)", err == nil && enabled, "got %v, err %v", enabled, err)

	title, err := client.StringValue(ctx, "checkout_redesign", "", variableContext("title"))
	results.Check("String(title)", err == nil && title == "New checkout", "got %q, err %v", title, err)

	maxItems, err := client.IntValue(ctx, "checkout_redesign", 0, variableContext("maxItems"))
	results.Check("Int(maxItems)", err == nil && maxItems == 12, "got %d, err %v", maxItems, err)

	discount, err := client.FloatValue(ctx, "checkout_redesign", 0, variableContext("discount"))
	results.Check("Float(discount)", err == nil && math.Abs(discount-0.15) < 1e-9, "got %v, err %v", discount, err)
}

func testObjectEvaluations(ctx context.Context, client *openfeature.Client) {
	value, err := client.ObjectValue(ctx, "checkout_redesign", nil, variableContext("layout"))
	expected := map[string]any{
		"columns": int64(2),
		"widgets": []any{"cart", "promo"},
	}
	results.Check("Object(layout)", err == nil && reflect.DeepEqual(value, expected), "got %#v, err %v", value, err)

	// Scalars are returned as they are.
	value, err = client.ObjectValue(ctx, "checkout_redesign", nil, variableContext("title"))
	results.Check("Object(title)", err == nil && value == "New checkout", "got %#v, err %v", value, err)
}

func testVariableSelection(ctx context.Context, client *openfeature.Client) {
	// "discount" sorts first among the variation's variable keys.
	value, err := client.FloatValue(ctx, "checkout_redesign", 0, variableContext(""))
	results.Check("FirstVariable", err == nil && math.Abs(value-0.15) < 1e-9, "got %v, err %v", value, err)

	color, err := client.StringValue(ctx, "pricing_banner", "", variableContext("color"))
	results.Check("Targeting(pricing_banner)", err == nil && color == "silver", "got %q, err %v", color, err)
}

func testEvaluationDetails(ctx context.Context, client *openfeature.Client) {
	details, err := client.IntValueDetails(ctx, "checkout_redesign", 0, variableContext("maxItems"))
	if !results.Require("Details(maxItems)", err) {
		return
	}

	results.Check("Details(variant)", details.Variant == "on", "got variant %q", details.Variant)
	results.Check("Details(reason)", details.Reason == openfeature.TargetingMatchReason, "got reason %q", details.Reason)
	results.Check("Details(metadata)",
		details.FlagMetadata["variableKey"] == "maxItems" && details.FlagMetadata["variableType"] == kameleoon.VariableTypeNumber,
		"got metadata %v", details.FlagMetadata)
}

func testErrorHandling(ctx context.Context, client *openfeature.Client) {
	tests := []struct {
		name        string
		flag        string
		variableKey string
		code        openfeature.ErrorCode
		message     string
	}{
		{
			name: "FlagNotFound", flag: "random-non-existent-feature", code: openfeature.FlagNotFoundCode,
		},
		{
			name: "NoVariables", flag: "plain_feature", code: openfeature.FlagNotFoundCode,
			message: "The variation 'off' has no variables",
		},
		{
			name: "MissingVariable", flag: "checkout_redesign", variableKey: "nope", code: openfeature.FlagNotFoundCode,
			message: "The value for provided variable key 'nope' isn't found in variation 'on'",
		},
		{
			name: "TypeMismatch", flag: "checkout_redesign", variableKey: "title", code: openfeature.TypeMismatchCode,
		},
		{
			name: "BrokenConfig", flag: "broken_config", code: openfeature.GeneralCode,
		},
	}

	for _, tt := range tests {
		details, _ := client.IntValueDetails(ctx, tt.flag, 42, variableContext(tt.variableKey))
		name := fmt.Sprintf("Error(%s)", tt.name)

		results.Check(name,
			details.Value == 42 && details.ErrorCode == tt.code && details.Reason == openfeature.ErrorReason &&
				(tt.message == "" || details.ErrorMessage == tt.message),
			"got value %d code %q reason %q message %q", details.Value, details.ErrorCode, details.Reason, details.ErrorMessage)
	}
}

func testConcurrentEvaluations(ctx context.Context, client *openfeature.Client) {
	const goroutines, evaluations = 50, 10

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < evaluations; j++ {
				value, err := client.IntValue(ctx, "checkout_redesign", 0, variableContext("maxItems"))
				if err != nil || value != 12 {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	results.Check("ConcurrentEvaluations", failed == 0, "%d of %d evaluations failed", failed, goroutines*evaluations)
}
