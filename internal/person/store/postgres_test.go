package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"person-registry/internal/person/models"
	"person-registry/pkg/platform/sentinel"
)

type PostgresQuerySuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresQuerySuite(t *testing.T) {
	suite.Run(t, new(PostgresQuerySuite))
}

func (s *PostgresQuerySuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })

	s.mock = mock
	s.store = NewPostgres(sqlx.NewDb(db, "pgx"))
	s.ctx = context.Background()
}

func (s *PostgresQuerySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

var personColumns = []string{
	"id", "name", "surname", "patronym", "date_of_birth", "rnokpp", "unzr",
	"passport_number", "gender", "created_at", "updated_at",
}

func (s *PostgresQuerySuite) TestCreate() {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := newTestPerson(1)

	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO persons")).
		WithArgs("Ann", "Lee", nil, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			"0000000001", "19900101-00001", "000000001", "female").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(41), created, created))

	s.Require().NoError(s.store.Create(s.ctx, p))
	s.Equal(int64(41), p.ID)
	s.Equal(created, p.CreatedAt)
}

func (s *PostgresQuerySuite) TestCreateUniqueViolation() {
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO persons")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "persons_passport_number_key"})

	err := s.store.Create(s.ctx, newTestPerson(1))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	var dup *models.DuplicateError
	s.Require().ErrorAs(err, &dup)
	s.Equal([]models.Attribute{models.AttrPassportNumber}, dup.Attributes)
}

func (s *PostgresQuerySuite) TestCreateOtherError() {
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO persons")).
		WillReturnError(errors.New("connection refused"))

	err := s.store.Create(s.ctx, newTestPerson(1))
	s.Require().Error(err)
	s.NotErrorIs(err, sentinel.ErrConflict)
	s.Contains(err.Error(), "create person")
}

func (s *PostgresQuerySuite) TestListBuildsFilteredQuery() {
	now := time.Now()
	s.mock.ExpectQuery(regexp.QuoteMeta(
		"FROM persons WHERE gender = $1 AND date_of_birth = $2 ORDER BY id LIMIT $3 OFFSET $4")).
		WithArgs("male", time.Date(1980, 5, 6, 0, 0, 0, 0, time.UTC), 10, 20).
		WillReturnRows(sqlmock.NewRows(personColumns).
			AddRow(int64(3), "Taras", "Shevchenko", nil, "1980-05-06", "1111111111", "19800506-00001", "111111111", "male", now, now).
			AddRow(int64(4), "Ivan", "Franko", "Yakovych", "1980-05-06", "2222222222", "19800506-00002", "222222222", "male", now, now))

	persons, err := s.store.List(s.ctx, models.Filter{
		{Attribute: models.AttrGender, Value: "male"},
		{Attribute: models.AttrDateOfBirth, Value: "1980-05-06"},
	}, 20, 10)
	s.Require().NoError(err)
	s.Require().Len(persons, 2)
	s.Nil(persons[0].Patronym)
	s.Require().NotNil(persons[1].Patronym)
	s.Equal("Yakovych", *persons[1].Patronym)
}

func (s *PostgresQuerySuite) TestCountWithoutFilter() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM persons")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(57))

	total, err := s.store.Count(s.ctx, nil)
	s.Require().NoError(err)
	s.Equal(57, total)
}

func (s *PostgresQuerySuite) TestFindBy() {
	s.Run("converts id to integer argument", func() {
		now := time.Now()
		s.mock.ExpectQuery(regexp.QuoteMeta("FROM persons WHERE id = $1 ORDER BY id LIMIT 1")).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(personColumns).
				AddRow(int64(9), "Ann", "Lee", nil, "1990-01-01", "1234567890", "01011990-1234X", "123456789", "female", now, now))

		p, err := s.store.FindBy(s.ctx, models.AttrID, "9")
		s.Require().NoError(err)
		s.Equal("01011990-1234X", p.UNZR)
	})

	s.Run("no rows maps to ErrNotFound", func() {
		s.mock.ExpectQuery(regexp.QuoteMeta("WHERE rnokpp = $1")).
			WithArgs("0000000000").
			WillReturnError(sql.ErrNoRows)

		_, err := s.store.FindBy(s.ctx, models.AttrRNOKPP, "0000000000")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresQuerySuite) TestUpdateBy() {
	s.Run("sets patched columns and touches updated_at", func() {
		name, patronym := "Olena", ""
		s.mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE persons SET name = $1, patronym = $2, updated_at = now() WHERE unzr = $3")).
			WithArgs("Olena", nil, "01011990-1234X").
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := s.store.UpdateBy(s.ctx, models.AttrUNZR, "01011990-1234X", models.Patch{Name: &name, Patronym: &patronym})
		s.Require().NoError(err)
		s.Equal(int64(1), n)
	})

	s.Run("unique violation becomes conflict", func() {
		rnokpp := "1234567890"
		s.mock.ExpectExec(regexp.QuoteMeta("UPDATE persons SET rnokpp = $1")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "persons_rnokpp_key"})

		_, err := s.store.UpdateBy(s.ctx, models.AttrID, "2", models.Patch{RNOKPP: &rnokpp})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("empty patch is rejected before querying", func() {
		_, err := s.store.UpdateBy(s.ctx, models.AttrID, "2", models.Patch{})
		s.Require().Error(err)
	})
}

func (s *PostgresQuerySuite) TestDeleteBy() {
	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM persons WHERE gender = $1")).
		WithArgs("male").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.store.DeleteBy(s.ctx, models.AttrGender, "male")
	s.Require().NoError(err)
	s.Equal(int64(4), n)
}
