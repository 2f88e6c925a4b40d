package store

import (
	"context"
	"sort"
	"sync"

	"person-registry/internal/person/models"
	"person-registry/pkg/platform/sentinel"
	"person-registry/pkg/requestcontext"
)

// InMemory is a map-backed person store with the same uniqueness and
// ordering semantics as the PostgreSQL store.
type InMemory struct {
	mu      sync.RWMutex
	persons map[int64]*models.Person
	nextID  int64
}

// NewInMemory returns an empty store. IDs start at 1.
func NewInMemory() *InMemory {
	return &InMemory{persons: make(map[int64]*models.Person)}
}

func (s *InMemory) Create(ctx context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dup := s.duplicates(p, nil); len(dup) > 0 {
		return &models.DuplicateError{Attributes: dup}
	}

	now := requestcontext.Now(ctx)
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	s.persons[p.ID] = clonePerson(p)
	return nil
}

func (s *InMemory) List(_ context.Context, filter models.Filter, offset, limit int) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*models.Person{}, nil
	}
	end := len(matched)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	out := make([]*models.Person, 0, end-offset)
	for _, p := range matched[offset:end] {
		out = append(out, clonePerson(p))
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, filter models.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(filter)), nil
}

func (s *InMemory) FindBy(_ context.Context, attr models.Attribute, value string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(models.Filter{{Attribute: attr, Value: value}})
	if len(matched) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return clonePerson(matched[0]), nil
}

func (s *InMemory) UpdateBy(ctx context.Context, attr models.Attribute, value string, patch models.Patch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(models.Filter{{Attribute: attr, Value: value}})
	if len(matched) == 0 {
		return 0, nil
	}

	now := requestcontext.Now(ctx)
	updated := make([]*models.Person, len(matched))
	skip := make(map[int64]bool, len(matched))
	for i, p := range matched {
		cp := clonePerson(p)
		cp.Apply(patch)
		cp.UpdatedAt = now
		updated[i] = cp
		skip[p.ID] = true
	}

	// The statement is all or nothing: reject if any row would collide with
	// an untouched row or with another updated row.
	for i, cp := range updated {
		if dup := s.duplicates(cp, skip); len(dup) > 0 {
			return 0, &models.DuplicateError{Attributes: dup}
		}
		for _, other := range updated[i+1:] {
			if dup := collisions(cp, other); len(dup) > 0 {
				return 0, &models.DuplicateError{Attributes: dup}
			}
		}
	}

	for _, cp := range updated {
		s.persons[cp.ID] = cp
	}
	return int64(len(updated)), nil
}

func (s *InMemory) DeleteBy(_ context.Context, attr models.Attribute, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(models.Filter{{Attribute: attr, Value: value}})
	for _, p := range matched {
		delete(s.persons, p.ID)
	}
	return int64(len(matched)), nil
}

func (s *InMemory) Ping(context.Context) error {
	return nil
}

// match returns the persons satisfying filter ordered by ID. Callers hold the lock.
func (s *InMemory) match(filter models.Filter) []*models.Person {
	out := make([]*models.Person, 0)
	for _, p := range s.persons {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemory) duplicates(p *models.Person, skip map[int64]bool) []models.Attribute {
	var dup []models.Attribute
	for _, attr := range models.UniqueAttributes {
		v, _ := p.Value(attr)
		for _, existing := range s.persons {
			if skip[existing.ID] {
				continue
			}
			if ev, _ := existing.Value(attr); ev == v {
				dup = append(dup, attr)
				break
			}
		}
	}
	return dup
}

func collisions(a, b *models.Person) []models.Attribute {
	var out []models.Attribute
	for _, attr := range models.UniqueAttributes {
		av, _ := a.Value(attr)
		bv, _ := b.Value(attr)
		if av == bv {
			out = append(out, attr)
		}
	}
	return out
}

func clonePerson(p *models.Person) *models.Person {
	cp := *p
	if p.Patronym != nil {
		v := *p.Patronym
		cp.Patronym = &v
	}
	return &cp
}
