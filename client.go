package kameleoon

import (
	"errors"
	"fmt"
)

// Client is the capability the provider needs from the underlying
// feature-flag SDK.
//
// Implementations own batching, network and retry behavior. AddData is
// fire-and-forget and RunWhenReady invokes its callback once, on a goroutine
// of the implementation's choosing.
type Client interface {
	GetVariation(featureKey string) (Variation, error)
	AddData(data ...Data)
	RunWhenReady(callback func(ready bool))
}

// Variable type tags.
const (
	VariableTypeBoolean = "BOOLEAN"
	VariableTypeNumber  = "NUMBER"
	VariableTypeString  = "STRING"
	VariableTypeJSON    = "JSON"
)

// Variation is the treatment a client chose for a feature.
type Variation struct {
	Key       string
	Variables map[string]Variable
}

// Variable is a named payload attached to a Variation.
//
// Value holds one of bool, int64, float64, string, nil, map[string]any or
// []any. Typed evaluations match the Go type exactly: an int64 never
// satisfies a float64 request and vice versa.
type Variable struct {
	Key   string
	Type  string
	Value any
}

var (
	// ErrFeatureNotFound means the client has no feature with the given key.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrFeatureEnvironmentDisabled means the feature exists but is turned off
	// for the configured environment.
	ErrFeatureEnvironmentDisabled = errors.New("feature disabled for environment")

	// ErrFeatureNotApplicable means the feature could not be evaluated for
	// the current visitor.
	ErrFeatureNotApplicable = errors.New("feature not applicable")
)

// FeatureError reports a feature-level failure from the client. Evaluations
// map it, and the feature sentinels above, to FLAG_NOT_FOUND; every other
// client error maps to GENERAL.
type FeatureError struct {
	FeatureKey string
	Err        error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %q: %v", e.FeatureKey, e.Err)
}

func (e *FeatureError) Unwrap() error {
	return e.Err
}

// Data is tracking or attribute information pushed into the client.
// The set of implementations is closed: Conversion and CustomData.
type Data interface {
	dataKind() string
}

// Conversion records that the visitor reached a goal.
type Conversion struct {
	GoalID  int
	Revenue float64
}

func (Conversion) dataKind() string { return ConversionKey }

// CustomData sets the values of a custom data slot, addressed by ID.
type CustomData struct {
	ID     int
	Values []string
}

func (CustomData) dataKind() string { return CustomDataKey }
