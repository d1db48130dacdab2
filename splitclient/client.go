// Package splitclient implements kameleoon.Client on top of a Split SDK
// factory.
//
// A Split treatment becomes the variation key and the members of the
// treatment's JSON configuration become its variables. Conversions are
// tracked as Split events and custom data is kept as Split attributes sent
// with every evaluation. Localhost mode makes it a convenient backend for
// development and tests:
//
//	client, err := splitclient.New(splitclient.Config{
//	    SDKKey:    splitclient.LocalhostKey,
//	    SplitFile: "./split.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := kameleoon.New(client)
package splitclient

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/splitio/go-client/v6/splitio/client"

	kameleoon "github.com/kameleoon/openfeature-go-provider"
)

// controlTreatment is returned by the Split SDK when a flag cannot be evaluated.
const controlTreatment = "control"

// ErrMissingSDKKey is returned by New when Config.SDKKey is empty.
var ErrMissingSDKKey = errors.New("split SDK key is required")

var _ kameleoon.Client = (*Client)(nil)

// Client is a kameleoon.Client bound to one visitor.
// It is safe for concurrent use.
type Client struct {
	factory         *client.SplitFactory
	split           *client.SplitClient
	visitorCode     string
	trafficType     string
	blockUntilReady int
	logger          *slog.Logger

	mu         sync.RWMutex
	customData map[string]any

	closeOnce sync.Once
}

// New builds a Split factory from cfg and returns a client for
// cfg.VisitorCode.
func New(cfg Config) (*Client, error) {
	if cfg.SDKKey == "" {
		return nil, ErrMissingSDKKey
	}
	cfg = cfg.withDefaults()

	factory, err := client.NewSplitFactory(cfg.SDKKey, cfg.splitConfig())
	if err != nil {
		return nil, fmt.Errorf("creating Split factory: %w", err)
	}

	visitorCode := cfg.VisitorCode
	if visitorCode == "" {
		visitorCode = uuid.NewString()
	}

	return &Client{
		factory:         factory,
		split:           factory.Client(),
		visitorCode:     visitorCode,
		trafficType:     cfg.TrafficType,
		blockUntilReady: cfg.BlockUntilReady,
		logger:          cfg.Logger.With("visitor_code", visitorCode),
		customData:      make(map[string]any),
	}, nil
}

// VisitorCode returns the visitor this client evaluates for.
func (c *Client) VisitorCode() string {
	return c.visitorCode
}

// Factory returns the underlying Split factory. Do not destroy its client;
// use Close.
func (c *Client) Factory() *client.SplitFactory {
	return c.factory
}

// GetVariation evaluates featureKey for the visitor.
//
// A flag unknown to the Split manager fails with ErrFeatureNotFound and a
// control treatment with ErrFeatureNotApplicable, both wrapped in a
// *kameleoon.FeatureError. A configuration that is not a JSON object fails
// with a plain error.
func (c *Client) GetVariation(featureKey string) (kameleoon.Variation, error) {
	if view := c.factory.Manager().Split(featureKey); view == nil {
		return kameleoon.Variation{}, &kameleoon.FeatureError{FeatureKey: featureKey, Err: kameleoon.ErrFeatureNotFound}
	}

	result := c.split.TreatmentWithConfig(c.visitorCode, featureKey, c.attributes())
	if result.Treatment == "" || result.Treatment == controlTreatment {
		return kameleoon.Variation{}, &kameleoon.FeatureError{FeatureKey: featureKey, Err: kameleoon.ErrFeatureNotApplicable}
	}

	variables, err := parseVariables(result.Config)
	if err != nil {
		return kameleoon.Variation{}, fmt.Errorf("decoding configuration of %q treatment %q: %w", featureKey, result.Treatment, err)
	}

	c.logger.Debug("Split treatment received", "flag", featureKey, "treatment", result.Treatment, "variables", len(variables))
	return kameleoon.Variation{Key: result.Treatment, Variables: variables}, nil
}

// AddData tracks conversions as Split events named "conversion_<goalId>"
// valued at their revenue, and stores custom data as the attribute
// "customData_<id>" used by later evaluations. Tracking failures are logged.
func (c *Client) AddData(data ...kameleoon.Data) {
	for _, d := range data {
		switch d := d.(type) {
		case kameleoon.Conversion:
			eventType := conversionEventPrefix + strconv.Itoa(d.GoalID)
			if err := c.split.Track(c.visitorCode, c.trafficType, eventType, d.Revenue, nil); err != nil {
				c.logger.Warn("failed to track conversion", "goal_id", d.GoalID, "error", err)
			}
		case kameleoon.CustomData:
			c.mu.Lock()
			c.customData[customDataAttributePrefix+strconv.Itoa(d.ID)] = slices.Clone(d.Values)
			c.mu.Unlock()
		}
	}
}

// RunWhenReady waits for the Split SDK in a new goroutine and then calls
// callback once with the outcome.
func (c *Client) RunWhenReady(callback func(ready bool)) {
	go func() {
		err := c.split.BlockUntilReady(c.blockUntilReady)
		if err != nil {
			c.logger.Error("Split SDK failed to become ready", "timeout_seconds", c.blockUntilReady, "error", err)
		} else {
			c.logger.Info("Split SDK ready", "splits_loaded", len(c.factory.Manager().SplitNames()))
		}
		callback(err == nil)
	}()
}

// Close destroys the Split client. Calls after the first do nothing.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.split.Destroy()
	})
	return nil
}

// attributes returns a copy of the stored custom data.
func (c *Client) attributes() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.customData)
}
