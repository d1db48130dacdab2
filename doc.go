// Package kameleoon provides an OpenFeature provider implementation for the
// Kameleoon feature flags and experimentation platform.
//
// # Basic Usage
//
//	provider, err := kameleoon.New(client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
//	defer cancel()
//	if err := openfeature.SetProviderWithContextAndWait(ctx, provider); err != nil {
//	    log.Fatal(err)
//	}
//
//	ofClient := openfeature.NewClient("my-app")
//	evalCtx := openfeature.NewEvaluationContext("visitor-123", map[string]any{
//	    kameleoon.VariableKey: "enabled",
//	})
//	enabled, _ := ofClient.BooleanValue(context.Background(), "new-checkout", false, evalCtx)
//
// The client is anything implementing Client. Package splitclient provides
// one backed by a Split SDK factory, handy for localhost development.
//
// # Variables
//
// A Kameleoon variation carries named variables. An evaluation reads the
// variable named by the "variableKey" attribute, or the variation's
// lexicographically smallest variable key when the attribute is absent.
// Typed evaluations match the variable's Go type exactly: no numeric or
// string coercion is attempted.
//
// # Conversions and Custom Data
//
// The "conversion" and "customData" attributes of the initial context, and
// of every context passed to OnContextChanged, are pushed to the client:
//
//	evalCtx := openfeature.NewEvaluationContext("visitor-123", map[string]any{
//	    kameleoon.ConversionKey: kameleoon.MakeConversion(42, 9.99),
//	    kameleoon.CustomDataKey: []any{
//	        kameleoon.MakeCustomData(1, "gold"),
//	        kameleoon.MakeCustomData(2, "fr", "de"),
//	    },
//	})
//	provider.OnContextChanged(openfeature.EvaluationContext{}, evalCtx)
//
// Malformed entries are skipped without error.
//
// # Concurrency
//
// The provider is safe for concurrent use. Evaluations share no state.
package kameleoon
