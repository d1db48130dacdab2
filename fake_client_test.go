package kameleoon

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// fakeClient is an in-memory Client. Unknown features fail with
// ErrFeatureNotFound. With autoReady set, RunWhenReady answers at once on a
// new goroutine; otherwise callbacks wait for fireReady.
type fakeClient struct {
	mu         sync.Mutex
	variations map[string]Variation
	errs       map[string]error
	added      []Data
	callbacks  []func(bool)

	autoReady bool
	ready     bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		variations: make(map[string]Variation),
		errs:       make(map[string]error),
	}
}

func (f *fakeClient) withVariation(flag string, v Variation) *fakeClient {
	f.variations[flag] = v
	return f
}

func (f *fakeClient) withError(flag string, err error) *fakeClient {
	f.errs[flag] = err
	return f
}

func (f *fakeClient) GetVariation(featureKey string) (Variation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[featureKey]; ok {
		return Variation{}, err
	}
	v, ok := f.variations[featureKey]
	if !ok {
		return Variation{}, &FeatureError{FeatureKey: featureKey, Err: ErrFeatureNotFound}
	}
	return v, nil
}

func (f *fakeClient) AddData(data ...Data) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, data...)
}

func (f *fakeClient) RunWhenReady(callback func(ready bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.autoReady {
		go callback(f.ready)
		return
	}
	f.callbacks = append(f.callbacks, callback)
}

// fireReady invokes every pending readiness callback with ready.
func (f *fakeClient) fireReady(ready bool) {
	f.mu.Lock()
	callbacks := append([]func(bool){}, f.callbacks...)
	f.mu.Unlock()
	for _, cb := range callbacks {
		cb(ready)
	}
}

func (f *fakeClient) addedData() []Data {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Data{}, f.added...)
}

func (f *fakeClient) pendingCallbacks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.callbacks)
}

// closingClient is a fakeClient that also implements io.Closer.
type closingClient struct {
	*fakeClient
	closeErr error
	block    chan struct{}
	closed   atomic.Int32
}

var _ io.Closer = (*closingClient)(nil)

func (c *closingClient) Close() error {
	if c.block != nil {
		<-c.block
	}
	c.closed.Add(1)
	return c.closeErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
