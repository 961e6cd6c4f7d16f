package query

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-listquery/cache"
	"go.uber.org/zap"
)

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	family      string
	staleTime   time.Duration
	serializer  cache.KeySerializer
	logger      *zap.Logger
	placeholder bool
	now         func() time.Time
}

// WithFamily sets the resource family. It prefixes every key and tags every
// cached page, so InvalidateTags(family) drops all of its pages.
func WithFamily(family string) Option {
	return func(o *options) { o.family = family }
}

// WithStaleTime sets how long a cached page is served without a refetch.
// Zero means every observation of a cached key refetches in the background.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithLogger sets the logger used for cache and fetch events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPlaceholder controls whether the previous key's data stays visible
// while a new key loads. Enabled by default.
func WithPlaceholder(keep bool) Option {
	return func(o *options) { o.placeholder = keep }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// call is a single in-flight ResourceAPI request shared by every observation
// waiting on the same key.
type call[T any] struct {
	done      chan struct{}
	page      Page[T]
	err       error
	fetchedAt time.Time
	refs      int
	cancel    context.CancelFunc
	tags      []string
	// dropped is set when an invalidation covers the call; its page is then
	// delivered to its waiters but not cached.
	dropped bool
}

// Coordinator turns list parameters into cached or in-flight page requests.
// A Coordinator is safe for concurrent use; observations created from it share
// its cache entries and in-flight requests.
type Coordinator[T any] struct {
	api   ResourceAPI[T]
	store cache.CacheService
	opts  options

	fetches atomic.Int64

	mu        sync.Mutex
	inflight  map[string]*call[T]
	observers map[*Observation[T]]struct{}
}

// resolution is what the coordinator knows about a key when an observation asks for it.
type resolution[T any] struct {
	page      Page[T]
	fetchedAt time.Time
	cached    bool
	call      *call[T]
}

// NewCoordinator creates a coordinator fetching from api and caching in store.
func NewCoordinator[T any](api ResourceAPI[T], store cache.CacheService, opts ...Option) (*Coordinator[T], error) {
	if api == nil {
		return nil, &cache.ConfigError{Field: "api", Message: "cannot be nil"}
	}
	if store == nil {
		return nil, &cache.ConfigError{Field: "store", Message: "cannot be nil"}
	}

	o := options{
		placeholder: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.family == "" {
		o.family = familyFor[T]()
	}
	if o.serializer == nil {
		o.serializer = cache.NewDefaultKeySerializer()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.staleTime < 0 {
		return nil, &cache.ConfigError{Field: "StaleTime", Message: "must be non-negative"}
	}

	return &Coordinator[T]{
		api:       api,
		store:     store,
		opts:      o,
		inflight:  make(map[string]*call[T]),
		observers: make(map[*Observation[T]]struct{}),
	}, nil
}

// Family returns the resource family tag.
func (c *Coordinator[T]) Family() string {
	return c.opts.family
}

// Key derives the cache key for params.
func (c *Coordinator[T]) Key(params ListParameters) string {
	return c.opts.serializer.SerializeKey(c.opts.family+cache.KeySeparator+"list", params.keyArgs()...)
}

// Fetches returns how many ResourceAPI requests were issued.
func (c *Coordinator[T]) Fetches() int64 {
	return c.fetches.Load()
}

// Observe starts observing source. The observation follows every change of the
// source until Close is called or ctx is done. Tags attached with WithCacheTags
// are added to the pages it stores.
func (c *Coordinator[T]) Observe(ctx context.Context, source ParameterSource) *Observation[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	o := &Observation[T]{
		c:         c,
		tags:      dedupeStrings(append([]string{c.opts.family}, cacheTagsFromContext(ctx)...)),
		listeners: make(map[uint64]func(QueryResult[T])),
		done:      make(chan struct{}),
	}

	c.mu.Lock()
	c.observers[o] = struct{}{}
	c.mu.Unlock()

	// notifications of concurrent setters may arrive out of order, so the
	// source is read again instead of trusting the notified value
	unsubscribe := source.Subscribe(func(ListParameters) {
		o.load(source.Snapshot(), follow)
	})
	o.mu.Lock()
	o.unsubscribe = unsubscribe
	o.mu.Unlock()

	o.load(source.Snapshot(), follow)

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				o.Close()
			case <-o.done:
			}
		}()
	}
	return o
}

// Invalidate drops every cached page carrying any of tags, or the coordinator
// family when no tag is given. Live observations affected by it refetch while
// keeping their current data visible.
func (c *Coordinator[T]) Invalidate(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		tags = []string{c.opts.family}
	}

	c.mu.Lock()
	var affected []*Observation[T]
	for o := range c.observers {
		if o.taggedWith(tags) {
			affected = append(affected, o)
		}
	}
	// responses already in flight for these tags must not repopulate the cache
	for key, cl := range c.inflight {
		if sharesTag(cl.tags, tags) {
			cl.dropped = true
			delete(c.inflight, key)
		}
	}
	n, err := c.store.InvalidateTags(ctx, tags...)
	c.mu.Unlock()

	if err != nil {
		return n, err
	}

	c.opts.logger.Debug("invalidated list cache",
		zap.Strings("tags", tags),
		zap.Int("entries", n),
		zap.Int("observations", len(affected)),
	)

	for _, o := range affected {
		o.reload(revalidate)
	}
	return n, nil
}

// Clear drops every entry of the underlying cache, including entries of other
// families sharing it, and refetches all live observations.
func (c *Coordinator[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	for _, cl := range c.inflight {
		cl.dropped = true
	}
	c.inflight = make(map[string]*call[T])
	obs := make([]*Observation[T], 0, len(c.observers))
	for o := range c.observers {
		obs = append(obs, o)
	}
	err := c.store.Clear(ctx)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	for _, o := range obs {
		o.reload(revalidate)
	}
	return nil
}

// Close closes every live observation.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	obs := make([]*Observation[T], 0, len(c.observers))
	for o := range c.observers {
		obs = append(obs, o)
	}
	c.mu.Unlock()

	for _, o := range obs {
		o.Close()
	}
}

// resolve returns a fresh cached page for key, or joins/starts the request for it.
// A stale cached page is returned alongside the request.
func (c *Coordinator[T]) resolve(key string, params ListParameters, tags []string, bypass bool) resolution[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res resolution[T]
	page, entry, ok, err := cache.Lookup[Page[T]](context.Background(), c.store, key)
	if err != nil {
		c.opts.logger.Warn("ignoring cached value of unexpected type", zap.String("key", key), zap.Error(err))
		ok = false
	}
	if ok {
		res.page, res.fetchedAt, res.cached = page, entry.FetchedAt, true
		if !bypass && c.fresh(entry) {
			c.opts.logger.Debug("list cache hit", zap.String("key", key))
			return res
		}
	}

	if cl, ok := c.inflight[key]; ok {
		// the shared page is stored under the tags of every waiter
		cl.tags = dedupeStrings(slices.Concat(cl.tags, tags))
		cl.refs++
		res.call = cl
		return res
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := &call[T]{
		done:   make(chan struct{}),
		refs:   1,
		cancel: cancel,
		tags:   tags,
	}
	c.inflight[key] = cl
	c.fetches.Add(1)
	res.call = cl

	go c.run(ctx, key, params, cl)
	return res
}

func (c *Coordinator[T]) fresh(entry cache.Entry) bool {
	return c.opts.staleTime > 0 && entry.Age(c.opts.now()) <= c.opts.staleTime
}

func (c *Coordinator[T]) run(ctx context.Context, key string, params ListParameters, cl *call[T]) {
	defer cl.cancel()

	c.opts.logger.Debug("fetching list page", zap.String("key", key))

	page, err := c.api.FetchPage(ctx, params)
	if err == nil {
		page, err = normalizePage(page)
	}
	err = classify(err)
	now := c.opts.now()

	c.mu.Lock()
	if c.inflight[key] == cl {
		delete(c.inflight, key)
	}
	if err == nil && !cl.dropped {
		entry := cache.Entry{Value: page, Tags: cl.tags, FetchedAt: now}
		if serr := c.store.Set(context.Background(), key, entry); serr != nil {
			c.opts.logger.Warn("failed to store list page", zap.String("key", key), zap.Error(serr))
		}
	}
	cl.page, cl.err, cl.fetchedAt = page, err, now
	c.mu.Unlock()

	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		c.opts.logger.Warn("list page fetch failed",
			zap.String("key", key),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
	}
	close(cl.done)
}

// release drops one reference to cl. The last reference cancels a request that
// is still running.
func (c *Coordinator[T]) release(key string, cl *call[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl.refs--
	if cl.refs > 0 {
		return
	}
	select {
	case <-cl.done:
		return
	default:
	}
	if c.inflight[key] == cl {
		delete(c.inflight, key)
	}
	cl.cancel()
	c.opts.logger.Debug("cancelled superseded list fetch", zap.String("key", key))
}

func (c *Coordinator[T]) forget(o *Observation[T]) {
	c.mu.Lock()
	delete(c.observers, o)
	c.mu.Unlock()
}
