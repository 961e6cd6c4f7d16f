package query

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// request is the observation side of a call: which key it was issued for and
// its sequence number within the observation.
type request[T any] struct {
	seq  uint64
	key  string
	call *call[T]
	done chan struct{}
}

// Observation is a live list query bound to a ParameterSource.
// Results are published in order; a response is applied only while its key is
// still the active key and it is the latest request issued for it.
type Observation[T any] struct {
	c    *Coordinator[T]
	tags []string

	mu          sync.Mutex
	result      QueryResult[T]
	active      string
	params      ListParameters
	started     bool
	seq         uint64
	pending     *request[T]
	closed      bool
	done        chan struct{}
	unsubscribe func()

	version   uint64
	notified  uint64
	notifying bool
	listeners map[uint64]func(QueryResult[T])
	nextID    uint64
}

// Result returns the current state.
func (o *Observation[T]) Result() QueryResult[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Key returns the active cache key, which may differ from Result().Key while
// placeholder data is shown.
func (o *Observation[T]) Key() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Params returns the active parameters.
func (o *Observation[T]) Params() ListParameters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params
}

// Subscribe registers fn to receive every published state. Listeners run on
// the goroutine that caused the change and may call back into the observation.
func (o *Observation[T]) Subscribe(fn func(QueryResult[T])) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// loadMode says how load treats the active key and the cache.
type loadMode int

const (
	// follow loads params unless they map to the active key.
	follow loadMode = iota
	// revalidate reloads the active key, serving a fresh cached page if there is one.
	revalidate
	// force refetches even when the cached page is fresh.
	force
)

// Refresh refetches the active key even when its cached page is fresh.
func (o *Observation[T]) Refresh() {
	o.reload(force)
}

func (o *Observation[T]) reload(mode loadMode) {
	o.mu.Lock()
	params := o.params
	o.mu.Unlock()
	o.load(params, mode)
}

// Wait blocks until no request is pending for the observation, or ctx is done.
func (o *Observation[T]) Wait(ctx context.Context) error {
	for {
		o.mu.Lock()
		req := o.pending
		o.mu.Unlock()
		if req == nil {
			return nil
		}
		select {
		case <-req.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops following the source and releases any pending request.
func (o *Observation[T]) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.done)
	pending := o.pending
	o.pending = nil
	unsubscribe := o.unsubscribe
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if pending != nil {
		o.c.release(pending.key, pending.call)
	}
	o.c.forget(o)
}

func (o *Observation[T]) taggedWith(tags []string) bool {
	return sharesTag(o.tags, tags)
}

// load moves the observation to params. In follow mode loading the active key again is a no-op.
func (o *Observation[T]) load(params ListParameters, mode loadMode) {
	key := o.c.Key(params)

	o.mu.Lock()
	if o.closed || (mode == follow && o.started && key == o.active) {
		o.mu.Unlock()
		return
	}
	o.started = true
	prev := o.pending
	o.pending = nil
	o.seq++
	o.active, o.params = key, params

	res := o.c.resolve(key, params, o.tags, mode == force)
	cur := o.result
	var next QueryResult[T]

	switch {
	case res.call == nil:
		next = QueryResult[T]{
			Data:      res.page.Items,
			Total:     res.page.Total,
			Key:       key,
			Params:    params,
			UpdatedAt: res.fetchedAt,
		}
	case res.cached:
		next = QueryResult[T]{
			Data:       res.page.Items,
			Total:      res.page.Total,
			Key:        key,
			Params:     params,
			UpdatedAt:  res.fetchedAt,
			IsFetching: true,
		}
	case cur.Key == key && cur.Data != nil:
		// the data shown belongs to key again, even if it was a placeholder
		next = cur
		next.IsLoading = false
		next.IsFetching = true
		next.IsPlaceholderData = false
	case cur.Data != nil && o.c.opts.placeholder:
		next = cur
		next.Error = nil
		next.IsLoading = false
		next.IsFetching = true
		next.IsPlaceholderData = true
	default:
		next = QueryResult[T]{
			Key:        key,
			Params:     params,
			IsLoading:  true,
			IsFetching: true,
		}
	}

	if res.call != nil {
		req := &request[T]{seq: o.seq, key: key, call: res.call, done: make(chan struct{})}
		o.pending = req
		go o.await(req)
	}
	o.publishLocked(next)
	o.mu.Unlock()

	if prev != nil {
		o.c.release(prev.key, prev.call)
	}
	o.notify()
}

// await applies the outcome of req once its call completes.
func (o *Observation[T]) await(req *request[T]) {
	<-req.call.done
	defer close(req.done)

	o.mu.Lock()
	if o.closed || o.pending != req || req.seq != o.seq {
		o.mu.Unlock()
		o.c.opts.logger.Debug("discarding superseded list response", zap.String("key", req.key))
		return
	}
	o.pending = nil

	cl := req.call
	cur := o.result
	var next QueryResult[T]

	switch {
	case cl.err == nil:
		next = QueryResult[T]{
			Data:      cl.page.Items,
			Total:     cl.page.Total,
			Key:       req.key,
			Params:    o.params,
			UpdatedAt: cl.fetchedAt,
		}
	case cur.Key == req.key && cur.Data != nil && !cur.IsPlaceholderData:
		// a failed refetch keeps what is already shown for this key
		next = cur
		next.Error = cl.err
		next.IsLoading = false
		next.IsFetching = false
	default:
		next = QueryResult[T]{
			Key:    req.key,
			Params: o.params,
			Error:  cl.err,
		}
	}

	o.publishLocked(next)
	o.mu.Unlock()

	o.c.release(req.key, cl)
	o.notify()
}

func (o *Observation[T]) publishLocked(next QueryResult[T]) {
	o.result = next
	o.version++
}

// notify delivers the latest state to listeners. Only one goroutine delivers
// at a time; states published meanwhile are picked up by the running loop, so
// listeners see states in publication order and may skip intermediate ones.
func (o *Observation[T]) notify() {
	o.mu.Lock()
	if o.notifying {
		o.mu.Unlock()
		return
	}
	o.notifying = true
	for o.notified != o.version {
		o.notified = o.version
		state := o.result
		listeners := o.listenersLocked()
		o.mu.Unlock()

		for _, fn := range listeners {
			fn(state)
		}

		o.mu.Lock()
	}
	o.notifying = false
	o.mu.Unlock()
}

func (o *Observation[T]) listenersLocked() []func(QueryResult[T]) {
	ids := make([]uint64, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(QueryResult[T]), len(ids))
	for i, id := range ids {
		out[i] = o.listeners[id]
	}
	return out
}
