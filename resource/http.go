package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goliatone/go-listquery/cache"
	"github.com/goliatone/go-listquery/query"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 8 << 20

// HTTPOption configures an HTTPClient.
type HTTPOption func(*httpOptions)

type httpOptions struct {
	client  *http.Client
	breaker *gobreaker.Settings
	logger  *zap.Logger
}

// WithHTTPClient sets the underlying client. Its Timeout is the request deadline.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(o *httpOptions) { o.client = client }
}

// WithCircuitBreaker guards every request with a circuit breaker. Only network
// failures and 5xx responses count as breaker failures unless
// Settings.IsSuccessful is set. While the breaker is open requests fail with a
// network error.
func WithCircuitBreaker(st gobreaker.Settings) HTTPOption {
	return func(o *httpOptions) { o.breaker = &st }
}

// WithHTTPLogger sets the request logger.
func WithHTTPLogger(l *zap.Logger) HTTPOption {
	return func(o *httpOptions) { o.logger = l }
}

// HTTPClient reads and writes a REST collection. List requests are
// GET {base}/{path}?search=&limit=&page=&field=&order=.
type HTTPClient[T any] struct {
	base    *url.URL
	path    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var (
	_ query.ResourceAPI[any] = (*HTTPClient[any])(nil)
	_ MutationAPI[any]       = (*HTTPClient[any])(nil)
)

// NewHTTPClient creates a client for the collection at baseURL/path.
func NewHTTPClient[T any](baseURL, path string, opts ...HTTPOption) (*HTTPClient[T], error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &cache.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &cache.ConfigError{Field: "BaseURL", Message: "must be an absolute URL"}
	}
	if path == "" {
		return nil, &cache.ConfigError{Field: "path", Message: "cannot be empty"}
	}

	o := httpOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: 10 * time.Second}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	c := &HTTPClient[T]{
		base:   base,
		path:   path,
		client: o.client,
		logger: o.logger,
	}
	if o.breaker != nil {
		st := *o.breaker
		if st.Name == "" {
			st.Name = path
		}
		if st.IsSuccessful == nil {
			st.IsSuccessful = breakerSuccess
		}
		if st.OnStateChange == nil {
			logger := o.logger
			st.OnStateChange = func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			}
		}
		c.breaker = gobreaker.NewCircuitBreaker(st)
	}
	return c, nil
}

// FetchPage implements query.ResourceAPI.
func (c *HTTPClient[T]) FetchPage(ctx context.Context, params query.ListParameters) (query.Page[T], error) {
	u := c.endpoint()
	u.RawQuery = listValues(params).Encode()

	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return query.Page[T]{}, err
	}
	return decodePage[T](resp.contentType, resp.body)
}

// Create implements MutationAPI with POST {path}.
func (c *HTTPClient[T]) Create(ctx context.Context, record T) (T, error) {
	return c.write(ctx, http.MethodPost, c.endpoint(), record)
}

// Update implements MutationAPI with PUT {path}/{id}.
func (c *HTTPClient[T]) Update(ctx context.Context, id string, record T) (T, error) {
	return c.write(ctx, http.MethodPut, c.endpoint(id), record)
}

// Delete implements MutationAPI with DELETE {path}/{id}.
func (c *HTTPClient[T]) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.endpoint(id), nil)
	return err
}

func (c *HTTPClient[T]) write(ctx context.Context, method string, u *url.URL, record T) (T, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return record, err
	}
	resp, err := c.do(ctx, method, u, body)
	if err != nil {
		return record, err
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return record, nil
	}
	return decodeRecord[T](resp.contentType, resp.body)
}

func (c *HTTPClient[T]) endpoint(id ...string) *url.URL {
	elems := []string{c.path}
	for _, v := range id {
		elems = append(elems, url.PathEscape(v))
	}
	return c.base.JoinPath(elems...)
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (c *HTTPClient[T]) do(ctx context.Context, method string, u *url.URL, body []byte) (*response, error) {
	if c.breaker == nil {
		return c.send(ctx, method, u, body)
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.send(ctx, method, u, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, query.NetworkError(err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*response), nil
}

func (c *HTTPClient[T]) send(ctx context.Context, method string, u *url.URL, body []byte) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", ContentTypeJSON+", "+ContentTypeMsgpack)
	if body != nil {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("url", u.String()), zap.Error(err))
		return nil, query.NetworkError(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, query.NetworkError(err)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("url", u.String()),
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, query.ServerError(res.StatusCode, string(data))
	}
	return &response{
		status:      res.StatusCode,
		contentType: res.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

// listValues encodes params using the names of the list endpoint. Values are
// sent as given, including page 0 and an empty search.
func listValues(p query.ListParameters) url.Values {
	v := url.Values{}
	v.Set("search", p.Search)
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("field", p.SortField)
	v.Set("order", string(p.SortOrder))
	return v
}

// breakerSuccess counts client side rejections as successes: the remote is up.
func breakerSuccess(err error) bool {
	switch query.KindOf(err) {
	case query.KindNone, query.KindMalformedResponse:
		return true
	case query.KindServer:
		return query.StatusCode(err) < 500
	default:
		return false
	}
}
