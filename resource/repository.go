package resource

import (
	"context"
	"net/http"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-listquery/query"
	"github.com/uptrace/bun"
)

// Store is the part of a go-repository-bun repository used by RepositoryResource.
// Any repository.Repository[T] satisfies it.
type Store[T any] interface {
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error)
	Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error)
	Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Delete(ctx context.Context, record T) error
}

// RepositoryOption configures a RepositoryResource.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	searchColumns []string
	sortColumns   map[string]string
	idColumn      string
}

// WithSearchColumns sets the columns matched against the search text.
func WithSearchColumns(columns ...string) RepositoryOption {
	return func(o *repositoryOptions) { o.searchColumns = columns }
}

// WithSortColumn allows sorting by field, mapped to column. Sort fields that
// were not allowed are ignored.
func WithSortColumn(field, column string) RepositoryOption {
	return func(o *repositoryOptions) { o.sortColumns[field] = column }
}

// WithIDColumn sets the primary key column used by Update. Defaults to "id".
func WithIDColumn(column string) RepositoryOption {
	return func(o *repositoryOptions) { o.idColumn = column }
}

// RepositoryResource serves list pages and mutations from an in-process repository.
type RepositoryResource[T any] struct {
	store Store[T]
	opts  repositoryOptions
}

var (
	_ query.ResourceAPI[any] = (*RepositoryResource[any])(nil)
	_ MutationAPI[any]       = (*RepositoryResource[any])(nil)
)

// NewRepositoryResource wraps store.
func NewRepositoryResource[T any](store Store[T], opts ...RepositoryOption) *RepositoryResource[T] {
	o := repositoryOptions{
		sortColumns: make(map[string]string),
		idColumn:    "id",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &RepositoryResource[T]{store: store, opts: o}
}

// FetchPage implements query.ResourceAPI.
func (r *RepositoryResource[T]) FetchPage(ctx context.Context, params query.ListParameters) (query.Page[T], error) {
	items, total, err := r.store.List(ctx, r.plan(params).criteria()...)
	if err != nil {
		if ctx.Err() != nil {
			return query.Page[T]{}, query.NetworkError(err)
		}
		return query.Page[T]{}, query.ServerError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []T{}
	}
	return query.Page[T]{Items: items, Total: total}, nil
}

// Create implements MutationAPI.
func (r *RepositoryResource[T]) Create(ctx context.Context, record T) (T, error) {
	return r.store.Create(ctx, record)
}

// Update implements MutationAPI. The row is addressed by id.
func (r *RepositoryResource[T]) Update(ctx context.Context, id string, record T) (T, error) {
	column := r.opts.idColumn
	return r.store.Update(ctx, record, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), id)
	})
}

// Delete implements MutationAPI.
func (r *RepositoryResource[T]) Delete(ctx context.Context, id string) error {
	record, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, record)
}

// listPlan is the SQL shape of a ListParameters value.
type listPlan struct {
	pattern   string
	columns   []string
	orderBy   string
	direction string
	limit     int
	offset    int
}

func (r *RepositoryResource[T]) plan(p query.ListParameters) listPlan {
	lp := listPlan{
		limit:  p.Limit,
		offset: p.Offset(),
	}
	if search := strings.TrimSpace(p.Search); search != "" && len(r.opts.searchColumns) > 0 {
		lp.pattern = "%" + escapeLike(search) + "%"
		lp.columns = r.opts.searchColumns
	}
	if column, ok := r.opts.sortColumns[p.SortField]; ok {
		if dir := p.SortOrder.Direction(); dir != "" {
			lp.orderBy, lp.direction = column, dir
		}
	}
	return lp
}

func (lp listPlan) criteria() []repository.SelectCriteria {
	var criteria []repository.SelectCriteria

	if lp.pattern != "" {
		columns, pattern := lp.columns, lp.pattern
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				for _, column := range columns {
					q = q.WhereOr("?TableAlias.? ILIKE ?", bun.Ident(column), pattern)
				}
				return q
			})
		})
	}

	if lp.orderBy != "" {
		column, direction := lp.orderBy, lp.direction
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.? "+direction, bun.Ident(column))
		})
	}

	if lp.limit > 0 {
		limit, offset := lp.limit, lp.offset
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Limit(limit).Offset(offset)
		})
	}

	return criteria
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
