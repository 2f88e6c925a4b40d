package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"person-registry/internal/person/events"
	"person-registry/internal/person/metrics"
	"person-registry/internal/person/models"
	dErrors "person-registry/pkg/domain-errors"
	"person-registry/pkg/platform/sentinel"
	"person-registry/pkg/requestcontext"
)

const (
	msgPersonNotFound   = "Person not found"
	msgZeroPersonsFound = "Zero persons found"
	msgTimedOut         = "request timed out"
)

// PersonStore persists persons. Implementations return sentinel.ErrNotFound
// for lookup misses and *models.DuplicateError for unique violations.
type PersonStore interface {
	Create(ctx context.Context, p *models.Person) error
	List(ctx context.Context, filter models.Filter, offset, limit int) ([]*models.Person, error)
	Count(ctx context.Context, filter models.Filter) (int, error)
	FindBy(ctx context.Context, attr models.Attribute, value string) (*models.Person, error)
	UpdateBy(ctx context.Context, attr models.Attribute, value string, patch models.Patch) (int64, error)
	DeleteBy(ctx context.Context, attr models.Attribute, value string) (int64, error)
}

// EventPublisher emits person lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Service orchestrates person persistence and translates storage failures
// into domain errors.
type Service struct {
	store   PersonStore
	events  EventPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures optional Service dependencies.
type Option func(s *Service)

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEventPublisher enables lifecycle events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(store PersonStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("person-registry/internal/person/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePerson inserts p and fills in its generated fields.
func (s *Service) CreatePerson(ctx context.Context, p *models.Person) (_ *models.Person, err error) {
	ctx, finish := s.begin(ctx, "CreatePerson")
	defer func() { finish(err) }()

	if err := s.store.Create(ctx, p); err != nil {
		return nil, s.translateWriteError(ctx, err, "failed to create person")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.publish(ctx, events.Event{Type: events.TypePersonCreated, PersonID: p.ID})
	return p, nil
}

// GetPersons returns one page of persons matching filter and the total
// number of matches. An empty page is reported as not found.
func (s *Service) GetPersons(ctx context.Context, filter models.Filter, offset, limit int) (_ *models.Page, err error) {
	ctx, finish := s.begin(ctx, "GetPersons",
		attribute.Int("offset", offset),
		attribute.Int("limit", limit),
		attribute.Int("filters", len(filter)),
	)
	defer func() { finish(err) }()

	var (
		persons []*models.Person
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		persons, err = s.store.List(gctx, filter, offset, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(err, "failed to list persons")
	}

	if len(persons) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, msgZeroPersonsFound)
	}
	return &models.Page{Persons: persons, Total: total}, nil
}

// GetPersonByUniqueAttribute returns the first person, by id, whose attr
// equals value.
func (s *Service) GetPersonByUniqueAttribute(ctx context.Context, attr models.Attribute, value string) (_ *models.Person, err error) {
	ctx, finish := s.begin(ctx, "GetPersonByUniqueAttribute", attribute.String("attribute", attr.String()))
	defer func() { finish(err) }()

	if !attr.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown attribute")
	}

	p, err := s.store.FindBy(ctx, attr, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, msgPersonNotFound)
		}
		return nil, storeError(err, "failed to load person")
	}
	return p, nil
}

// UpdatePersons applies patch to every person whose attr equals value and
// returns the number of rows changed. Zero is not an error.
func (s *Service) UpdatePersons(ctx context.Context, attr models.Attribute, value string, patch models.Patch) (_ int64, err error) {
	ctx, finish := s.begin(ctx, "UpdatePersons", attribute.String("attribute", attr.String()))
	defer func() { finish(err) }()

	if !attr.Valid() {
		return 0, dErrors.New(dErrors.CodeValidation, "unknown attribute")
	}
	if patch.Empty() {
		return 0, dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}

	n, err := s.store.UpdateBy(ctx, attr, value, patch)
	if err != nil {
		return 0, s.translateWriteError(ctx, err, "failed to update persons")
	}

	if n > 0 {
		if s.metrics != nil {
			s.metrics.AddUpdated(n)
		}
		s.publish(ctx, events.Event{Type: events.TypePersonUpdated, Attribute: attr.String(), Affected: n})
	}
	return n, nil
}

// DeletePersons removes every person whose attr equals value and returns the
// number of rows removed. Zero is not an error.
func (s *Service) DeletePersons(ctx context.Context, attr models.Attribute, value string) (_ int64, err error) {
	ctx, finish := s.begin(ctx, "DeletePersons", attribute.String("attribute", attr.String()))
	defer func() { finish(err) }()

	if !attr.Valid() {
		return 0, dErrors.New(dErrors.CodeValidation, "unknown attribute")
	}

	n, err := s.store.DeleteBy(ctx, attr, value)
	if err != nil {
		return 0, storeError(err, "failed to delete persons")
	}

	if n > 0 {
		if s.metrics != nil {
			s.metrics.AddDeleted(n)
		}
		s.publish(ctx, events.Event{Type: events.TypePersonDeleted, Attribute: attr.String(), Affected: n})
	}
	return n, nil
}

func (s *Service) translateWriteError(ctx context.Context, err error, msg string) error {
	var dup *models.DuplicateError
	if !errors.As(err, &dup) {
		return storeError(err, msg)
	}

	names := make([]string, 0, len(dup.Attributes))
	details := make([]dErrors.Detail, 0, len(dup.Attributes))
	for _, a := range dup.Attributes {
		names = append(names, a.String())
		details = append(details, dErrors.Detail{
			Field:   a.String(),
			Message: a.String() + " must be unique",
		})
		if s.metrics != nil {
			s.metrics.IncrementConflict(a.String())
		}
	}
	s.logger.InfoContext(ctx, "unique constraint rejected write",
		"request_id", requestcontext.RequestID(ctx),
		"attributes", names,
	)

	message := "person with the same unique identifier already exists"
	if len(names) > 0 {
		message = "person with the same " + strings.Join(names, ", ") + " already exists"
	}
	return dErrors.Wrap(err, dErrors.CodeConflict, message).WithDetails(details...)
}

// storeError wraps an unexpected store failure. An expired request deadline
// is reported as a timeout.
func storeError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msgTimedOut)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// publish emits e best-effort; failures are logged and never returned.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	e.RequestID = requestcontext.RequestID(ctx)
	e.OccurredAt = requestcontext.Now(ctx)
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish person event",
			"request_id", e.RequestID,
			"type", string(e.Type),
			"error", err.Error(),
		)
	}
}

// begin opens a span and returns a func that closes it and records metrics.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "person."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = outcomeFor(err)
			if outcome == "error" {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(op, outcome, start)
		}
	}
}

func outcomeFor(err error) string {
	switch {
	case dErrors.Is(err, dErrors.CodeNotFound):
		return "not_found"
	case dErrors.Is(err, dErrors.CodeConflict):
		return "conflict"
	case dErrors.Is(err, dErrors.CodeValidation):
		return "invalid"
	case dErrors.Is(err, dErrors.CodeTimeout):
		return "timeout"
	default:
		return "error"
	}
}
