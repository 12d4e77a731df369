package provider

import "context"

// FlowStore keeps values an adapter needs between AuthURL and Exchange, such
// as the OAuth1 request token secret. Callers serving several instances pass
// one backed by shared storage with WithFlowStore; adapters fall back to an
// in-process cache when the context carries none.
type FlowStore interface {
	Put(ctx context.Context, key, value string) error
	// Take returns and removes the value stored under key.
	Take(ctx context.Context, key string) (string, bool, error)
}

type flowStoreKey struct{}

// WithFlowStore attaches fs to ctx for the duration of one AuthURL or
// Exchange call.
func WithFlowStore(ctx context.Context, fs FlowStore) context.Context {
	return context.WithValue(ctx, flowStoreKey{}, fs)
}

// FlowStoreFromContext returns the FlowStore attached with WithFlowStore.
func FlowStoreFromContext(ctx context.Context) (FlowStore, bool) {
	fs, ok := ctx.Value(flowStoreKey{}).(FlowStore)
	return fs, ok && fs != nil
}
