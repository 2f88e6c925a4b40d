package store

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"person-registry/internal/person/models"
	"person-registry/pkg/platform/sentinel"
	"person-registry/pkg/requestcontext"
)

type PersonStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestPersonStoreSuite(t *testing.T) {
	suite.Run(t, new(PersonStoreSuite))
}

func (s *PersonStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
}

func newTestPerson(n int) *models.Person {
	return &models.Person{
		Name:           "Ann",
		Surname:        "Lee",
		DateOfBirth:    "1990-01-01",
		RNOKPP:         fmt.Sprintf("%010d", n),
		UNZR:           fmt.Sprintf("19900101-%05d", n),
		PassportNumber: fmt.Sprintf("%09d", n),
		Gender:         models.GenderFemale,
	}
}

func (s *PersonStoreSuite) TestCreateAndFind() {
	s.Run("assigns sequential ids and timestamps", func() {
		p1 := newTestPerson(1)
		p2 := newTestPerson(2)
		s.Require().NoError(s.store.Create(s.ctx, p1))
		s.Require().NoError(s.store.Create(s.ctx, p2))

		s.Equal(int64(1), p1.ID)
		s.Equal(int64(2), p2.ID)
		s.Equal(requestcontext.Now(s.ctx), p1.CreatedAt)
		s.Equal(p1.CreatedAt, p1.UpdatedAt)
	})

	s.Run("finds by unique attribute", func() {
		found, err := s.store.FindBy(s.ctx, models.AttrRNOKPP, "0000000002")
		s.Require().NoError(err)
		s.Equal(int64(2), found.ID)
	})

	s.Run("non-unique attribute returns lowest id", func() {
		found, err := s.store.FindBy(s.ctx, models.AttrGender, models.GenderFemale)
		s.Require().NoError(err)
		s.Equal(int64(1), found.ID)
	})

	s.Run("finds by id", func() {
		found, err := s.store.FindBy(s.ctx, models.AttrID, "2")
		s.Require().NoError(err)
		s.Equal("0000000002", found.RNOKPP)
	})

	s.Run("returns ErrNotFound when nothing matches", func() {
		_, err := s.store.FindBy(s.ctx, models.AttrUNZR, "19900101-99999")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned records are copies", func() {
		found, err := s.store.FindBy(s.ctx, models.AttrID, "1")
		s.Require().NoError(err)
		found.Name = "Mutated"

		again, err := s.store.FindBy(s.ctx, models.AttrID, "1")
		s.Require().NoError(err)
		s.Equal("Ann", again.Name)
	})
}

func (s *PersonStoreSuite) TestUniqueness() {
	s.Require().NoError(s.store.Create(s.ctx, newTestPerson(1)))

	s.Run("rejects duplicate rnokpp", func() {
		p := newTestPerson(2)
		p.RNOKPP = "0000000001"

		err := s.store.Create(s.ctx, p)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		var dup *models.DuplicateError
		s.Require().ErrorAs(err, &dup)
		s.Equal([]models.Attribute{models.AttrRNOKPP}, dup.Attributes)
	})

	s.Run("reports every colliding attribute", func() {
		err := s.store.Create(s.ctx, newTestPerson(1))

		var dup *models.DuplicateError
		s.Require().ErrorAs(err, &dup)
		s.Equal(models.UniqueAttributes, dup.Attributes)
	})

	s.Run("update cannot steal another person's identifier", func() {
		s.Require().NoError(s.store.Create(s.ctx, newTestPerson(3)))
		taken := "0000000001"

		n, err := s.store.UpdateBy(s.ctx, models.AttrID, "2", models.Patch{RNOKPP: &taken})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
		s.Zero(n)
	})

	s.Run("update of many rows to one identifier conflicts", func() {
		shared := "5555555555"
		n, err := s.store.UpdateBy(s.ctx, models.AttrGender, models.GenderFemale, models.Patch{RNOKPP: &shared})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
		s.Zero(n)

		_, err = s.store.FindBy(s.ctx, models.AttrRNOKPP, shared)
		s.Require().ErrorIs(err, sentinel.ErrNotFound, "failed update leaves no partial writes")
	})
}

func (s *PersonStoreSuite) TestListAndCount() {
	for i := 1; i <= 25; i++ {
		p := newTestPerson(i)
		if i%5 == 0 {
			p.Gender = models.GenderMale
		}
		s.Require().NoError(s.store.Create(s.ctx, p))
	}

	s.Run("paginates in id order", func() {
		page, err := s.store.List(s.ctx, nil, 10, 10)
		s.Require().NoError(err)
		s.Require().Len(page, 10)
		s.Equal(int64(11), page[0].ID)
		s.Equal(int64(20), page[9].ID)
	})

	s.Run("last page is short", func() {
		page, err := s.store.List(s.ctx, nil, 20, 10)
		s.Require().NoError(err)
		s.Len(page, 5)
	})

	s.Run("offset past end is empty", func() {
		page, err := s.store.List(s.ctx, nil, 30, 10)
		s.Require().NoError(err)
		s.Empty(page)
	})

	s.Run("negative offset starts at the first record", func() {
		page, err := s.store.List(s.ctx, nil, -10, 3)
		s.Require().NoError(err)
		s.Require().Len(page, 3)
		s.Equal(int64(1), page[0].ID)
	})

	s.Run("limit near int range does not overflow", func() {
		page, err := s.store.List(s.ctx, nil, 20, math.MaxInt)
		s.Require().NoError(err)
		s.Len(page, 5)
	})

	s.Run("count ignores pagination", func() {
		total, err := s.store.Count(s.ctx, models.Filter{{Attribute: models.AttrGender, Value: models.GenderMale}})
		s.Require().NoError(err)
		s.Equal(5, total)

		page, err := s.store.List(s.ctx, models.Filter{{Attribute: models.AttrGender, Value: models.GenderMale}}, 0, 2)
		s.Require().NoError(err)
		s.Len(page, 2)
	})
}

func (s *PersonStoreSuite) TestUpdateAndDelete() {
	for i := 1; i <= 3; i++ {
		s.Require().NoError(s.store.Create(s.ctx, newTestPerson(i)))
	}
	later := requestcontext.WithTime(context.Background(), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	s.Run("updates every matching row", func() {
		name := "Olena"
		n, err := s.store.UpdateBy(later, models.AttrSurname, "Lee", models.Patch{Name: &name})
		s.Require().NoError(err)
		s.Equal(int64(3), n)

		p, err := s.store.FindBy(s.ctx, models.AttrID, "3")
		s.Require().NoError(err)
		s.Equal("Olena", p.Name)
		s.Equal(requestcontext.Now(later), p.UpdatedAt)
		s.True(p.UpdatedAt.After(p.CreatedAt))
	})

	s.Run("update with no match affects nothing", func() {
		name := "X"
		n, err := s.store.UpdateBy(s.ctx, models.AttrRNOKPP, "9999999999", models.Patch{Name: &name})
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("delete removes the row", func() {
		n, err := s.store.DeleteBy(s.ctx, models.AttrRNOKPP, "0000000001")
		s.Require().NoError(err)
		s.Equal(int64(1), n)

		_, err = s.store.FindBy(s.ctx, models.AttrRNOKPP, "0000000001")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete with no match returns zero", func() {
		n, err := s.store.DeleteBy(s.ctx, models.AttrRNOKPP, "0000000001")
		s.Require().NoError(err)
		s.Zero(n)
	})
}
