package kameleoon

import "time"

const (
	// ProviderName is reported by Metadata and stamped on every event.
	ProviderName = "Kameleoon Provider"

	// Evaluation Context Keys

	// VariableKey selects which variable of a variation an evaluation reads.
	// When absent, the lexicographically smallest variable key is used.
	VariableKey = "variableKey"

	// ConversionKey holds one conversion structure or a list of them.
	ConversionKey = "conversion"

	// CustomDataKey holds one custom data structure or a list of them.
	CustomDataKey = "customData"

	// Structure Field Keys

	// ConversionGoalID is the required integer goal identifier of a conversion.
	ConversionGoalID = "goalId"

	// ConversionRevenue is the optional revenue of a conversion, 0 when absent.
	ConversionRevenue = "revenue"

	// CustomDataIndex is the required integer slot of a custom data entry.
	CustomDataIndex = "index"

	// CustomDataValues is a string or list of strings, empty when absent.
	CustomDataValues = "values"

	// Messages

	typeMismatchMessage = "The type of value received is different from the requested value."

	// Timeouts

	// defaultInitTimeout bounds Init when the caller gives no deadline.
	defaultInitTimeout = 15 * time.Second

	// defaultShutdownTimeout bounds Shutdown when the caller gives no deadline.
	defaultShutdownTimeout = 30 * time.Second

	// Event Handling

	// eventChannelBuffer is the buffer size for the provider's event channel.
	// Overflow events are dropped (logged as warnings).
	eventChannelBuffer = 128

	// Atomic States

	shutdownStateActive   = 1
	shutdownStateInactive = 0
)
