package di

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/goliatone/go-listquery/cache"
	"github.com/goliatone/go-listquery/pkg/config"
	"github.com/goliatone/go-listquery/query"
	"github.com/goliatone/go-listquery/resource"
	"github.com/goliatone/go-listquery/students"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// family is the part of a query.Coordinator the container manages.
type family interface {
	Family() string
	Invalidate(ctx context.Context, tags ...string) (int, error)
	Clear(ctx context.Context) error
	Close()
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component built by the container.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// Container provides dependency injection for list query components.
// It owns the shared cache service and key serializer, and keeps track of the
// coordinators it created so invalidation can reach all of them.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	logger        *zap.Logger
	config        cache.Config

	mu       sync.Mutex
	families map[string]family
}

// NewContainer creates a new DI container with the provided cache configuration.
func NewContainer(cfg cache.Config, opts ...Option) (*Container, error) {
	cacheService, err := cache.NewCacheService(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        cfg,
		families:      make(map[string]family),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Families returns the families of the registered coordinators, sorted.
func (c *Container) Families() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.families))
	for name := range c.families {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invalidate invalidates tags on every registered coordinator, or each
// coordinator's own family when no tag is given. It returns the number of
// cache entries removed.
func (c *Container) Invalidate(ctx context.Context, tags ...string) (int, error) {
	total := 0
	for _, f := range c.registered() {
		n, err := f.Invalidate(ctx, tags...)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Clear empties the shared cache and refetches every live observation.
func (c *Container) Clear(ctx context.Context) error {
	fams := c.registered()
	if len(fams) == 0 {
		return c.cacheService.Clear(ctx)
	}
	for _, f := range fams {
		if err := f.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every observation of every registered coordinator.
func (c *Container) Close() {
	for _, f := range c.registered() {
		f.Close()
	}
}

func (c *Container) registered() []family {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]family, 0, len(c.families))
	for _, f := range c.families {
		out = append(out, f)
	}
	return out
}

func (c *Container) register(f family) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.families[f.Family()]; ok {
		return &cache.ConfigError{Field: "family", Message: f.Family() + " is already registered"}
	}
	c.families[f.Family()] = f
	return nil
}

// NewCoordinator creates a coordinator for api sharing the container cache,
// key serializer and logger, and registers it under its family.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCoordinator[Student](container, api, query.WithStaleTime(time.Minute))
func NewCoordinator[T any](c *Container, api query.ResourceAPI[T], opts ...query.Option) (*query.Coordinator[T], error) {
	base := []query.Option{
		query.WithKeySerializer(c.keySerializer),
		query.WithLogger(c.logger.Named("query")),
	}
	coord, err := query.NewCoordinator[T](api, c.cacheService, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := c.register(coord); err != nil {
		return nil, err
	}
	return coord, nil
}

// NewStudentService wires the student list and mutations against the REST API
// described by cfg.
func NewStudentService(c *Container, cfg config.Config) (*students.Service, error) {
	httpOpts := []resource.HTTPOption{
		resource.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		resource.WithHTTPLogger(c.logger.Named("http")),
	}
	if cfg.BreakerFailures > 0 {
		failures := cfg.BreakerFailures
		httpOpts = append(httpOpts, resource.WithCircuitBreaker(gobreaker.Settings{
			Name:    students.Family,
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
		}))
	}

	api, err := resource.NewHTTPClient[students.Student](cfg.BaseURL, cfg.StudentsPath, httpOpts...)
	if err != nil {
		return nil, err
	}

	list, err := NewCoordinator[students.Student](c, api,
		query.WithFamily(students.Family),
		query.WithStaleTime(cfg.StaleTime),
		query.WithPlaceholder(cfg.KeepPreviousData),
	)
	if err != nil {
		return nil, err
	}

	return students.NewService(list, api, students.WithServiceLogger(c.logger.Named("students")))
}
