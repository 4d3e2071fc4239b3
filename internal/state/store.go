// Package state holds the client-side stores of server state. Each store
// is safe for concurrent use and hands out immutable snapshots.
package state

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
)

var logger = loggo.GetLogger("storefront.state")

// ErrStale is returned by a read whose response arrived after a newer read
// of the same kind had been issued. The response is discarded.
const ErrStale = errors.ConstError("response superseded by a newer request")

// core carries what every store shares: the lock, the in-flight counter,
// the last error, read sequencing and subscribers.
type core struct {
	name    string
	metrics *metrics.AppMetrics

	mu      sync.Mutex
	loading int
	err     string
	seqs    map[string]uint64

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

func (c *core) init(name string, m *metrics.AppMetrics) {
	c.name = name
	c.metrics = m
	c.seqs = make(map[string]uint64)
	c.subs = make(map[int]func())
}

// Subscribe registers fn to be called after every state change. The
// returned function unregisters it.
func (c *core) Subscribe(fn func()) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

// notify must be called without c.mu held.
func (c *core) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// ClearError forgets the last error.
func (c *core) ClearError() {
	c.mu.Lock()
	c.err = ""
	c.mu.Unlock()
	c.notify()
}

// supersede invalidates every in-flight read of kinds. Callers hold c.mu.
func (c *core) supersede(kinds ...string) {
	for _, kind := range kinds {
		c.seqs[kind]++
	}
}

// read performs one sequenced read. apply runs under the store lock, and
// only if no newer read of the same kind was issued meanwhile.
func read[T any](ctx context.Context, c *core, kind string, call func(context.Context) (T, error), apply func(T)) (T, error) {
	c.mu.Lock()
	c.seqs[kind]++
	seq := c.seqs[kind]
	c.loading++
	c.mu.Unlock()
	c.notify()

	result, err := call(ctx)

	c.mu.Lock()
	c.loading--
	if c.seqs[kind] != seq {
		c.mu.Unlock()
		c.notify()
		logger.Warningf("%s: discarding stale %s response", c.name, kind)
		c.metrics.RecordStale(ctx, c.name, kind)
		var zero T
		return zero, ErrStale
	}
	if err != nil {
		c.err = err.Error()
		c.mu.Unlock()
		c.notify()
		var zero T
		return zero, errors.Trace(err)
	}
	c.err = ""
	apply(result)
	c.mu.Unlock()
	c.notify()
	return result, nil
}

// mutate performs one write. Writes are never discarded; the store
// re-synchronises afterwards with a read.
func (c *core) mutate(ctx context.Context, call func(context.Context) error) error {
	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
	c.notify()

	err := call(ctx)

	c.mu.Lock()
	c.loading--
	if err != nil {
		c.err = err.Error()
	} else {
		c.err = ""
	}
	c.mu.Unlock()
	c.notify()
	return errors.Trace(err)
}

// resync treats a superseded follow-up read as success: a newer read of
// the same kind is already on its way.
func resync(err error) error {
	if errors.Is(err, ErrStale) {
		return nil
	}
	return err
}
