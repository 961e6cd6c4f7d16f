package query

import (
	"sort"
	"strings"
	"sync"
)

// SortOrder is the requested sort direction. The empty value means unsorted.
type SortOrder string

const (
	SortNone       SortOrder = ""
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Direction maps the order to its SQL keyword, accepting the long and short spellings.
// Unknown values return "".
func (o SortOrder) Direction() string {
	switch strings.ToLower(string(o)) {
	case "asc", "ascending":
		return "ASC"
	case "desc", "descending":
		return "DESC"
	default:
		return ""
	}
}

// ListParameters is an immutable snapshot of the list inputs.
// Values are passed through as given: page 0 or an empty search are literal values.
type ListParameters struct {
	Search    string
	Page      int
	Limit     int
	SortField string
	SortOrder SortOrder
}

// keyArgs returns the fields in the fixed order used for cache keys.
func (p ListParameters) keyArgs() []any {
	return []any{p.Search, p.Limit, p.Page, p.SortField, string(p.SortOrder)}
}

// Offset is the zero based index of the first item of the page, never negative.
func (p ListParameters) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// ParameterSource supplies the current list parameters and notifies on change.
type ParameterSource interface {
	Snapshot() ListParameters
	// Subscribe registers fn to be called with every new snapshot.
	// The returned function removes the subscription.
	Subscribe(fn func(ListParameters)) (unsubscribe func())
}

// ParamsOption configures a Params source.
type ParamsOption func(*Params)

// WithResetPageOnSearch makes SetSearch move back to page 1 when the search text changes.
func WithResetPageOnSearch() ParamsOption {
	return func(p *Params) {
		p.resetPageOnSearch = true
	}
}

// Params is a thread safe, in-memory ParameterSource.
// Subscribers are notified synchronously, in subscription order, and only when
// the snapshot actually changes.
type Params struct {
	mu                sync.Mutex
	current           ListParameters
	subs              map[uint64]func(ListParameters)
	nextID            uint64
	resetPageOnSearch bool
}

var _ ParameterSource = (*Params)(nil)

// NewParams creates a source holding initial.
func NewParams(initial ListParameters, opts ...ParamsOption) *Params {
	p := &Params{
		current: initial,
		subs:    make(map[uint64]func(ListParameters)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the current parameters.
func (p *Params) Snapshot() ListParameters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe implements ParameterSource.
func (p *Params) Subscribe(fn func(ListParameters)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Update applies fn to a copy of the current snapshot and publishes the result.
// Several fields can be changed with a single notification.
func (p *Params) Update(fn func(*ListParameters)) {
	p.mu.Lock()
	next := p.current
	fn(&next)
	if next == p.current {
		p.mu.Unlock()
		return
	}
	p.current = next
	subs := p.subscribersLocked()
	p.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
}

// SetSearch changes the search text.
func (p *Params) SetSearch(search string) {
	p.Update(func(lp *ListParameters) {
		if p.resetPageOnSearch && lp.Search != search {
			lp.Page = 1
		}
		lp.Search = search
	})
}

// SetPage changes the page number.
func (p *Params) SetPage(page int) {
	p.Update(func(lp *ListParameters) { lp.Page = page })
}

// SetLimit changes the page size.
func (p *Params) SetLimit(limit int) {
	p.Update(func(lp *ListParameters) { lp.Limit = limit })
}

// SetSort changes the sort field and direction together.
func (p *Params) SetSort(field string, order SortOrder) {
	p.Update(func(lp *ListParameters) {
		lp.SortField = field
		lp.SortOrder = order
	})
}

func (p *Params) subscribersLocked() []func(ListParameters) {
	ids := make([]uint64, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	subs := make([]func(ListParameters), len(ids))
	for i, id := range ids {
		subs[i] = p.subs[id]
	}
	return subs
}
