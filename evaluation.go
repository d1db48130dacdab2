package kameleoon

import (
	"context"

	of "github.com/open-feature/go-sdk/openfeature"
)

// BooleanEvaluation evaluates a feature flag and returns the selected
// variable as a bool.
//
// The variable is named by the "variableKey" attribute of ec, or is the
// variation's smallest variable key when the attribute is absent.
//
// Returns def if:
//   - The client reports the feature as missing, disabled or not applicable
//   - The client fails for any other reason
//   - The variation has no such variable
//   - The variable does not hold a bool
func (p *Provider) BooleanEvaluation(ctx context.Context, flag string, def bool, ec of.FlattenedContext) of.BoolResolutionDetail {
	p.logger.Debug("evaluating boolean flag", "flag", flag, "default", def)

	res := resolve(p.resolver, flag, def, ec)
	p.metrics.observeEvaluation("boolean", res.Detail)
	return of.BoolResolutionDetail{
		Value:                    res.Value,
		ProviderResolutionDetail: res.Detail,
	}
}

// StringEvaluation evaluates a feature flag and returns the selected
// variable as a string. See BooleanEvaluation for the failure cases.
func (p *Provider) StringEvaluation(ctx context.Context, flag, def string, ec of.FlattenedContext) of.StringResolutionDetail {
	p.logger.Debug("evaluating string flag", "flag", flag, "default", def)

	res := resolve(p.resolver, flag, def, ec)
	p.metrics.observeEvaluation("string", res.Detail)
	return of.StringResolutionDetail{
		Value:                    res.Value,
		ProviderResolutionDetail: res.Detail,
	}
}

// FloatEvaluation evaluates a feature flag and returns the selected
// variable as a float64.
//
// Integer variables do not satisfy a float request; they return def with
// TYPE_MISMATCH.
func (p *Provider) FloatEvaluation(ctx context.Context, flag string, def float64, ec of.FlattenedContext) of.FloatResolutionDetail {
	p.logger.Debug("evaluating float flag", "flag", flag, "default", def)

	res := resolve(p.resolver, flag, def, ec)
	p.metrics.observeEvaluation("float", res.Detail)
	return of.FloatResolutionDetail{
		Value:                    res.Value,
		ProviderResolutionDetail: res.Detail,
	}
}

// IntEvaluation evaluates a feature flag and returns the selected variable
// as an int64.
//
// Floating-point variables do not satisfy an integer request, even when
// integral; they return def with TYPE_MISMATCH.
func (p *Provider) IntEvaluation(ctx context.Context, flag string, def int64, ec of.FlattenedContext) of.IntResolutionDetail {
	p.logger.Debug("evaluating int flag", "flag", flag, "default", def)

	res := resolve(p.resolver, flag, def, ec)
	p.metrics.observeEvaluation("int", res.Detail)
	return of.IntResolutionDetail{
		Value:                    res.Value,
		ProviderResolutionDetail: res.Detail,
	}
}

// ObjectEvaluation evaluates a feature flag and returns the selected
// variable of any type, converted with ToValue.
//
// JSON variables come back as map[string]any or []any; scalars keep their
// type. Variant, error and metadata fields are those of the resolution.
//
// Example:
//
//	ctx := of.NewEvaluationContext("visitor-1", map[string]any{
//	    kameleoon.VariableKey: "layout",
//	})
//	layout, _ := client.ObjectValue(context.Background(), "home_page", nil, ctx)
func (p *Provider) ObjectEvaluation(ctx context.Context, flag string, def any, ec of.FlattenedContext) of.InterfaceResolutionDetail {
	p.logger.Debug("evaluating object flag", "flag", flag)

	res := resolve[any](p.resolver, flag, def, ec)
	p.metrics.observeEvaluation("object", res.Detail)

	value := res.Value
	if res.Detail.Error() == nil {
		value = ToValue(value)
	}
	return of.InterfaceResolutionDetail{
		Value:                    value,
		ProviderResolutionDetail: res.Detail,
	}
}
