package kameleoon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/open-feature/go-sdk/openfeature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, client Client) *Provider {
	t.Helper()
	provider, err := New(client, WithLogger(discardLogger()))
	require.NoError(t, err)
	return provider
}

func receive(t *testing.T, states <-chan openfeature.State) openfeature.State {
	t.Helper()
	select {
	case s := <-states:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
		return ""
	}
}

func TestInitializeDoesNotBlock(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	provider.Initialize(openfeature.EvaluationContext{})

	assert.Equal(t, openfeature.NotReadyState, provider.Status())
	assert.Equal(t, 1, client.pendingCallbacks())
}

func TestInitializeRegistersCallbackOnce(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	provider.Initialize(openfeature.EvaluationContext{})
	provider.Initialize(openfeature.EvaluationContext{})

	assert.Equal(t, 1, client.pendingCallbacks())
}

func TestReadyPushesInitialContext(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)
	states := provider.Observe()

	provider.Initialize(openfeature.NewEvaluationContext("visitor", map[string]any{
		ConversionKey: MakeConversion(42, 10),
		CustomDataKey: MakeCustomData(1, "gold"),
	}))
	assert.Empty(t, client.addedData(), "nothing is pushed before the client is ready")

	client.fireReady(true)

	assert.Equal(t, openfeature.NotReadyState, receive(t, states))
	assert.Equal(t, openfeature.ReadyState, receive(t, states))
	assert.Equal(t, openfeature.ReadyState, provider.Status())
	assert.Equal(t, []Data{
		Conversion{GoalID: 42, Revenue: 10},
		CustomData{ID: 1, Values: []string{"gold"}},
	}, client.addedData())

	event := <-provider.EventChannel()
	assert.Equal(t, openfeature.ProviderReady, event.EventType)
	assert.Equal(t, ProviderName, event.ProviderName)
}

func TestNotReadyMovesToError(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	provider.Initialize(openfeature.NewEvaluationContext("visitor", map[string]any{
		ConversionKey: MakeConversion(42, 10),
	}))
	client.fireReady(false)

	assert.Equal(t, openfeature.ErrorState, provider.Status())
	assert.Empty(t, client.addedData())

	event := <-provider.EventChannel()
	assert.Equal(t, openfeature.ProviderError, event.EventType)
	assert.Equal(t, ErrClientNotReady.Error(), event.Message)
}

func TestRepeatedReadinessCallbackIsIgnored(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	provider.Initialize(openfeature.NewEvaluationContext("visitor", map[string]any{
		ConversionKey: MakeConversion(1, 0),
	}))
	client.fireReady(true)
	client.fireReady(false)
	client.fireReady(true)

	assert.Equal(t, openfeature.ReadyState, provider.Status())
	assert.Len(t, client.addedData(), 1)
	assert.Len(t, provider.EventChannel(), 1)
}

func TestLateSubscriberSeesCurrentState(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	provider.Initialize(openfeature.EvaluationContext{})
	client.fireReady(true)

	first := provider.Observe()
	second := provider.Observe()

	assert.Equal(t, openfeature.ReadyState, receive(t, first))
	assert.Equal(t, openfeature.ReadyState, receive(t, second))
	select {
	case s := <-first:
		t.Fatalf("unexpected extra state %q", s)
	default:
	}
}

func TestSubscribersSeeSameSequence(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	subscribers := make([]<-chan openfeature.State, 5)
	for i := range subscribers {
		subscribers[i] = provider.Observe()
	}

	provider.Initialize(openfeature.EvaluationContext{})
	client.fireReady(false)

	for _, states := range subscribers {
		assert.Equal(t, openfeature.NotReadyState, receive(t, states))
		assert.Equal(t, openfeature.ErrorState, receive(t, states))
	}
}

func TestInitWithContext(t *testing.T) {
	t.Run("returns once ready", func(t *testing.T) {
		client := newFakeClient()
		client.autoReady, client.ready = true, true
		provider := newTestProvider(t, client)

		require.NoError(t, provider.InitWithContext(context.Background(), openfeature.EvaluationContext{}))
		assert.Equal(t, openfeature.ReadyState, provider.Status())
	})

	t.Run("reports client failure", func(t *testing.T) {
		client := newFakeClient()
		client.autoReady = true
		provider := newTestProvider(t, client)

		err := provider.InitWithContext(context.Background(), openfeature.EvaluationContext{})
		assert.True(t, errors.Is(err, ErrClientNotReady))
		assert.Equal(t, openfeature.ErrorState, provider.Status())
	})

	t.Run("respects context timeout", func(t *testing.T) {
		provider := newTestProvider(t, newFakeClient())

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := provider.InitWithContext(ctx, openfeature.EvaluationContext{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "initialization canceled")
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Equal(t, openfeature.NotReadyState, provider.Status())
	})

	t.Run("timed out waits release their subscription", func(t *testing.T) {
		provider := newTestProvider(t, newFakeClient())

		for i := 0; i < 5; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			err := provider.InitWithContext(ctx, openfeature.EvaluationContext{})
			cancel()
			require.Error(t, err)
		}

		provider.readiness.mu.Lock()
		defer provider.readiness.mu.Unlock()
		assert.Empty(t, provider.readiness.subscribers)
	})

	t.Run("concurrent callers share the outcome", func(t *testing.T) {
		client := newFakeClient()
		provider := newTestProvider(t, client)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- provider.InitWithContext(context.Background(), openfeature.EvaluationContext{})
			}()
		}

		require.Eventually(t, func() bool { return client.pendingCallbacks() == 1 }, time.Second, 5*time.Millisecond)
		client.fireReady(true)
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, client.pendingCallbacks())
	})

	t.Run("init uses configured timeout", func(t *testing.T) {
		provider, err := New(newFakeClient(), WithLogger(discardLogger()), WithInitTimeout(50*time.Millisecond))
		require.NoError(t, err)

		err = provider.Init(openfeature.EvaluationContext{})
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestOnContextChangedPushesFullSet(t *testing.T) {
	client := newFakeClient()
	provider := newTestProvider(t, client)

	ctx := openfeature.NewEvaluationContext("visitor", map[string]any{
		ConversionKey: []any{MakeConversion(1, 0), MakeConversion(2, 5)},
		"country":     "FR",
	})

	provider.OnContextChanged(openfeature.EvaluationContext{}, ctx)
	provider.OnContextChanged(ctx, ctx)

	assert.Equal(t, []Data{
		Conversion{GoalID: 1},
		Conversion{GoalID: 2, Revenue: 5},
		Conversion{GoalID: 1},
		Conversion{GoalID: 2, Revenue: 5},
	}, client.addedData())
}

func TestShutdown(t *testing.T) {
	t.Run("closes client", func(t *testing.T) {
		client := &closingClient{fakeClient: newFakeClient()}
		provider := newTestProvider(t, client)

		require.NoError(t, provider.ShutdownWithContext(context.Background()))
		require.NoError(t, provider.ShutdownWithContext(context.Background()))
		provider.Shutdown()

		assert.Equal(t, int32(1), client.closed.Load())
	})

	t.Run("reports close error", func(t *testing.T) {
		client := &closingClient{fakeClient: newFakeClient(), closeErr: errors.New("destroy failed")}
		provider := newTestProvider(t, client)

		err := provider.ShutdownWithContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "destroy failed")
	})

	t.Run("respects context deadline", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		client := &closingClient{fakeClient: newFakeClient(), block: block}
		provider := newTestProvider(t, client)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := provider.ShutdownWithContext(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("client without closer", func(t *testing.T) {
		provider := newTestProvider(t, newFakeClient())
		assert.NoError(t, provider.ShutdownWithContext(context.Background()))
	})

	t.Run("cannot initialize after shutdown", func(t *testing.T) {
		provider := newTestProvider(t, newFakeClient())
		provider.Shutdown()

		err := provider.InitWithContext(context.Background(), openfeature.EvaluationContext{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after shutdown")
	})

	t.Run("no events after shutdown", func(t *testing.T) {
		client := newFakeClient()
		provider := newTestProvider(t, client)
		provider.Initialize(openfeature.EvaluationContext{})
		provider.Shutdown()

		client.fireReady(true)

		assert.Len(t, provider.EventChannel(), 0)
		assert.Equal(t, openfeature.ReadyState, provider.Status())
	})
}
