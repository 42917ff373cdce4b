// Package store holds the client-side state containers for auth, posts and
// comments. Each store serializes its own state transitions and notifies
// subscribers after every change.
package store

import (
	"context"
	"sync"

	"feedsync/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation statuses recorded for every async store operation.
const (
	StatusPending   = "pending"
	StatusFulfilled = "fulfilled"
	StatusRejected  = "rejected"
)

// operation tracks one async store operation through pending, fulfilled and rejected.
type operation struct {
	ctx    context.Context
	store  string
	name   string
	span   trace.Span
	fields map[string]interface{}
}

func begin(ctx context.Context, store, name string, fields map[string]interface{}) *operation {
	ctx = observability.EnsureCorrelationID(ctx)
	ctx, span := observability.StartSpan(ctx, store+"."+name, attribute.String("store", store))
	op := &operation{ctx: ctx, store: store, name: name, span: span, fields: fields}
	observability.LogAsyncOperationStart(ctx, op.label(), fields)
	observability.RecordStoreOperation(store, name, StatusPending)
	return op
}

func (o *operation) label() string {
	return o.store + "/" + o.name
}

func (o *operation) fulfilled() {
	observability.LogAsyncOperationEnd(o.ctx, o.label(), o.fields)
	observability.RecordStoreOperation(o.store, o.name, StatusFulfilled)
	observability.EndSpan(o.span, nil)
}

func (o *operation) rejected(err error) {
	observability.LogAsyncOperationError(o.ctx, o.label(), err, o.fields)
	observability.RecordStoreOperation(o.store, o.name, StatusRejected)
	observability.EndSpan(o.span, err)
}

// notifier fans state changes out to subscribers.
type notifier struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func()
}

// Subscribe registers fn to run after every state transition. The returned
// function removes it.
func (n *notifier) Subscribe(fn func()) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]func())
	}
	id := n.next
	n.next++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// notify must be called without the owning store's lock held.
func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
