package students

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-listquery/cache"
	"github.com/goliatone/go-listquery/query"
	"github.com/goliatone/go-listquery/resource"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service combines the student list with its mutations. Every successful
// mutation invalidates the cached student pages.
type Service struct {
	list   *query.Coordinator[Student]
	api    resource.MutationAPI[Student]
	logger *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. list must use the Family tag.
func NewService(list *query.Coordinator[Student], api resource.MutationAPI[Student], opts ...ServiceOption) (*Service, error) {
	if list == nil {
		return nil, &cache.ConfigError{Field: "list", Message: "cannot be nil"}
	}
	if api == nil {
		return nil, &cache.ConfigError{Field: "api", Message: "cannot be nil"}
	}
	if list.Family() != Family {
		return nil, &cache.ConfigError{Field: "list", Message: "coordinator family must be " + Family}
	}

	s := &Service{list: list, api: api}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// List observes the student list for params.
func (s *Service) List(ctx context.Context, params query.ParameterSource) *query.Observation[Student] {
	return s.list.Observe(ctx, params)
}

// Create validates and creates st. A zero ID is replaced by a new UUID.
func (s *Service) Create(ctx context.Context, st Student) (Student, error) {
	if err := st.Validate(); err != nil {
		return st, err
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}

	created, err := s.api.Create(ctx, st)
	if err != nil {
		return st, err
	}
	s.invalidate(ctx, "create", created.ID)
	return created, nil
}

// Update validates and stores st.
func (s *Service) Update(ctx context.Context, st Student) (Student, error) {
	if st.ID == uuid.Nil {
		return st, validation.Errors{"id": validation.NewError("validation_required", MsgRequired)}
	}
	if err := st.Validate(); err != nil {
		return st, err
	}

	updated, err := s.api.Update(ctx, st.ID.String(), st)
	if err != nil {
		return st, err
	}
	s.invalidate(ctx, "update", st.ID)
	return updated, nil
}

// Delete removes the student with id.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.api.Delete(ctx, id.String()); err != nil {
		return err
	}
	s.invalidate(ctx, "delete", id)
	return nil
}

// invalidate drops the cached pages. A failure here leaves stale pages behind
// but does not undo the mutation, so it is only logged.
func (s *Service) invalidate(ctx context.Context, op string, id uuid.UUID) {
	n, err := s.list.Invalidate(ctx, Family)
	if err != nil {
		s.logger.Error("failed to invalidate student pages",
			zap.String("op", op),
			zap.Stringer("id", id),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("student pages invalidated",
		zap.String("op", op),
		zap.Stringer("id", id),
		zap.Int("entries", n),
	)
}
