package kameleoon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	of "github.com/open-feature/go-sdk/openfeature"
)

// ErrClientNotReady is returned by Init when the client reports it could
// not become ready.
var ErrClientNotReady = errors.New("kameleoon client failed to become ready")

// Initialize registers the client readiness callback and returns at once.
//
// When the client reports ready, the reserved attributes of ec are pushed
// to the client and the provider moves to Ready. Otherwise it moves to
// Error. Both states are final: build a new provider to retry. Calls after
// the first are no-ops.
func (p *Provider) Initialize(ec of.EvaluationContext) {
	p.initOnce.Do(func() {
		p.logger.Debug("waiting for Kameleoon client to be ready")
		p.client.RunWhenReady(func(ready bool) {
			p.onClientReady(ready, ec)
		})
	})
}

// onClientReady handles the readiness callback. Only its first invocation
// has an effect.
func (p *Provider) onClientReady(ready bool, ec of.EvaluationContext) {
	if !atomic.CompareAndSwapUint32(&p.fired, 0, 1) {
		p.logger.Warn("readiness callback invoked more than once, ignoring", "ready", ready)
		return
	}

	if !ready {
		p.logger.Error("Kameleoon client failed to become ready")
		p.setState(of.ErrorState, ErrClientNotReady.Error())
		return
	}

	p.pushData(ToClientData(ec))
	p.setState(of.ReadyState, "Kameleoon provider initialized successfully")
	p.logger.Info("Kameleoon provider ready")
}

// Init implements StateHandler.
// Delegates to InitWithContext bounded by the configured init timeout.
func (p *Provider) Init(evaluationContext of.EvaluationContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.initTimeout)
	defer cancel()

	return p.InitWithContext(ctx, evaluationContext)
}

// InitWithContext starts initialization and waits until the provider
// leaves NotReady or ctx is done.
//
// Returns nil once Ready, ErrClientNotReady once in Error, and a wrapped
// ctx.Err() when ctx ends first. Cancellation only stops the wait: the
// readiness callback stays registered and may still move the provider to
// Ready later. Concurrent callers share a single wait.
func (p *Provider) InitWithContext(ctx context.Context, evaluationContext of.EvaluationContext) error {
	if atomic.LoadUint32(&p.shutdown) == shutdownStateActive {
		return fmt.Errorf("cannot initialize provider after shutdown: create a new provider instance")
	}

	p.Initialize(evaluationContext)

	_, err, _ := p.initGroup.Do("init", func() (any, error) {
		states := p.readiness.subscribe()
		defer p.readiness.unsubscribe(states)
		for {
			select {
			case state := <-states:
				switch state {
				case of.ReadyState:
					return nil, nil
				case of.ErrorState:
					return nil, ErrClientNotReady
				}
			case <-ctx.Done():
				return nil, fmt.Errorf("initialization canceled: %w", ctx.Err())
			}
		}
	})
	return err
}

// OnContextChanged pushes the reserved attributes of newContext to the
// client. The full converted set is sent every time; oldContext is not
// consulted.
func (p *Provider) OnContextChanged(oldContext, newContext of.EvaluationContext) {
	_ = oldContext
	p.pushData(ToClientData(newContext))
}

func (p *Provider) pushData(data []Data) {
	p.logger.Debug("pushing data to Kameleoon client", "items", len(data))
	p.client.AddData(data...)
	p.metrics.observeData(data)
}

// Status returns the readiness state: NotReady, Ready or Error.
func (p *Provider) Status() of.State {
	return p.readiness.current()
}

// Shutdown implements StateHandler.
// Delegates to ShutdownWithContext with a 30 second timeout.
func (p *Provider) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	_ = p.ShutdownWithContext(ctx) //nolint:errcheck // Shutdown() has no return value per OpenFeature interface
}

// ShutdownWithContext marks the provider as shut down and closes the client
// when it implements io.Closer.
//
// Returns ctx.Err() if the client does not close before ctx is done; the
// close keeps running in the background. Calls after the first return nil.
func (p *Provider) ShutdownWithContext(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&p.shutdown, shutdownStateInactive, shutdownStateActive) {
		p.logger.Debug("provider already shut down")
		return nil
	}

	closer, ok := p.client.(io.Closer)
	if !ok {
		p.logger.Debug("Kameleoon provider shut down")
		return nil
	}

	start := time.Now()
	closeErr := make(chan error, 1)
	go func() {
		closeErr <- closer.Close()
	}()

	select {
	case err := <-closeErr:
		if err != nil {
			p.logger.Warn("closing Kameleoon client failed", "error", err)
			return fmt.Errorf("closing client: %w", err)
		}
		p.logger.Debug("Kameleoon client closed", "duration_ms", time.Since(start).Milliseconds())
		return nil
	case <-ctx.Done():
		p.logger.Warn("context deadline exceeded while closing Kameleoon client, forcing shutdown",
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", ctx.Err())
		return ctx.Err()
	}
}
