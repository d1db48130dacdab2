package kameleoon

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	of "github.com/open-feature/go-sdk/openfeature"
)

// resolver turns client variations into typed resolution results.
// It holds no per-call state and is safe for concurrent use.
type resolver struct {
	client Client
	logger *slog.Logger
}

// resolution is the typed outcome of one evaluation.
type resolution[T any] struct {
	Value  T
	Detail of.ProviderResolutionDetail
}

// resolve evaluates flag and reads the selected variable as T.
//
// The variable is the one named by the "variableKey" attribute of flatCtx,
// or the smallest variable key of the variation when that attribute is
// absent. Every failure yields def with the matching error code: client
// feature errors and missing variables give FLAG_NOT_FOUND, a value of
// another type gives TYPE_MISMATCH, any other client error gives GENERAL.
func resolve[T any](r *resolver, flag string, def T, flatCtx of.FlattenedContext) resolution[T] {
	variation, err := r.client.GetVariation(flag)
	if err != nil {
		if isFeatureError(err) {
			r.logger.Debug("feature not available", "flag", flag, "error", err)
			return failed(def, "", of.NewFlagNotFoundResolutionError(err.Error()))
		}
		r.logger.Warn("variation lookup failed", "flag", flag, "error", err, "returning_default", def)
		return failed(def, "", of.NewGeneralResolutionError(err.Error()))
	}

	variant := variation.Key
	variableKey := selectVariableKey(flatCtx, variation.Variables)
	r.logger.Debug("variation received", "flag", flag, "variant", variant, "variable_key", variableKey, "variables", len(variation.Variables))

	variable, ok := variation.Variables[variableKey]
	if !ok {
		msg := missingVariableMessage(variant, variableKey)
		r.logger.Debug("variable not found", "flag", flag, "variant", variant, "variable_key", variableKey)
		return failed(def, variant, of.NewFlagNotFoundResolutionError(msg))
	}

	value, ok := castValue[T](variable.Value)
	if !ok {
		r.logger.Debug("variable type mismatch",
			"flag", flag,
			"variable_key", variableKey,
			"variable_type", variable.Type,
			"value_type", fmt.Sprintf("%T", variable.Value),
			"requested_type", fmt.Sprintf("%T", def))
		return failed(def, variant, of.NewTypeMismatchResolutionError(typeMismatchMessage))
	}

	return resolution[T]{
		Value: value,
		Detail: of.ProviderResolutionDetail{
			Reason:  of.TargetingMatchReason,
			Variant: variant,
			FlagMetadata: of.FlagMetadata{
				"variableKey":  variableKey,
				"variableType": variable.Type,
			},
		},
	}
}

// isFeatureError reports whether err is a feature-level failure, either a
// *FeatureError or one of the feature sentinels.
func isFeatureError(err error) bool {
	var featureErr *FeatureError
	return errors.As(err, &featureErr) ||
		errors.Is(err, ErrFeatureNotFound) ||
		errors.Is(err, ErrFeatureEnvironmentDisabled) ||
		errors.Is(err, ErrFeatureNotApplicable)
}

// castValue matches v against T without conversion. A nil value only
// satisfies untyped (object) requests.
func castValue[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}
	var zero T
	if v == nil {
		if _, untyped := any(&zero).(*any); untyped {
			return zero, true
		}
	}
	return zero, false
}

// selectVariableKey returns the "variableKey" string attribute when present,
// otherwise the smallest key of variables, or "" when there are none.
func selectVariableKey(flatCtx of.FlattenedContext, variables map[string]Variable) string {
	if key, ok := flatCtx[VariableKey].(string); ok {
		return key
	}
	if len(variables) == 0 {
		return ""
	}
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

// missingVariableMessage names the variable key when one was requested.
// An empty key can only come from a variation without variables.
func missingVariableMessage(variant, variableKey string) string {
	if variableKey == "" {
		return fmt.Sprintf("The variation '%s' has no variables", variant)
	}
	return fmt.Sprintf("The value for provided variable key '%s' isn't found in variation '%s'", variableKey, variant)
}

func failed[T any](def T, variant string, resErr of.ResolutionError) resolution[T] {
	return resolution[T]{
		Value: def,
		Detail: of.ProviderResolutionDetail{
			ResolutionError: resErr,
			Reason:          of.ErrorReason,
			Variant:         variant,
		},
	}
}
