package kameleoon

import (
	"slices"
	"sync"
	"sync/atomic"

	of "github.com/open-feature/go-sdk/openfeature"
)

// readiness is the provider's state cell. It starts at NotReady and moves
// once to Ready or Error; both are terminal.
//
// Subscribers receive the current state on subscription and every later
// transition, so a late subscriber on a ready provider still sees Ready.
type readiness struct {
	mu          sync.Mutex
	state       of.State
	subscribers []chan of.State
}

func newReadiness() *readiness {
	return &readiness{state: of.NotReadyState}
}

func (r *readiness) current() of.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// subscribe returns a channel that replays the current state and then
// receives the terminal transition. The channel is never closed.
func (r *readiness) subscribe() <-chan of.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A subscriber sees at most NotReady followed by one terminal state, so
	// a buffer of two means sends never block.
	ch := make(chan of.State, 2)
	ch <- r.state
	if r.state == of.NotReadyState {
		r.subscribers = append(r.subscribers, ch)
	}
	return ch
}

// unsubscribe stops deliveries to ch. Channels already past the transition
// are not registered and are ignored.
func (r *readiness) unsubscribe(ch <-chan of.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers = slices.DeleteFunc(r.subscribers, func(c chan of.State) bool {
		return c == ch
	})
}

// transition moves the cell out of NotReady. It reports false, and changes
// nothing, when the cell already left NotReady.
func (r *readiness) transition(to of.State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != of.NotReadyState {
		return false
	}
	r.state = to
	for _, ch := range r.subscribers {
		ch <- to
	}
	r.subscribers = nil
	return true
}

// Observe returns a stream of readiness states.
//
// The stream starts with the state current at subscription time, followed
// by the Ready or Error transition if it has not happened yet. Every
// subscriber sees the same sequence. The channel is never closed.
//
// Example:
//
//	for state := range provider.Observe() {
//	    if state == openfeature.ReadyState {
//	        break
//	    }
//	}
func (p *Provider) Observe() <-chan of.State {
	return p.readiness.subscribe()
}

// EventChannel returns a channel for receiving provider lifecycle events.
//
// This method implements the EventHandler interface. The OpenFeature SDK
// uses this channel to receive events about provider state changes.
//
// Events Emitted:
//   - PROVIDER_READY: the client reported ready during initialization
//   - PROVIDER_ERROR: the client could not confirm readiness
//
// Each event is emitted at most once per provider instance.
func (p *Provider) EventChannel() <-chan of.Event {
	return p.eventStream
}

// setState applies a readiness transition and announces it on the event
// channel. Transitions after the first are ignored.
func (p *Provider) setState(to of.State, message string) {
	if !p.readiness.transition(to) {
		p.logger.Debug("ignoring repeated readiness transition", "state", to)
		return
	}

	eventType := of.ProviderReady
	if to == of.ErrorState {
		eventType = of.ProviderError
	}
	p.emitEvent(&of.Event{
		ProviderName: ProviderName,
		EventType:    eventType,
		ProviderEventDetails: of.ProviderEventDetails{
			Message: message,
		},
	})
}

// emitEvent sends an event to the event channel without blocking.
//
// If the channel buffer is full, the event is dropped and a warning is logged.
// Events are not emitted once the provider is shut down.
func (p *Provider) emitEvent(event *of.Event) {
	if atomic.LoadUint32(&p.shutdown) == shutdownStateActive {
		return
	}

	select {
	case p.eventStream <- *event:
	default:
		p.logger.Warn("event channel full, dropping event", "eventType", event.EventType)
	}
}
