package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"person-registry/internal/person/models"
	"person-registry/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

const selectColumns = `id, name, surname, patronym, to_char(date_of_birth, 'YYYY-MM-DD') AS date_of_birth, ` +
	`rnokpp, unzr, passport_number, gender, created_at, updated_at`

// constraintAttributes maps unique constraint names from the persons
// migration onto the attribute they guard.
var constraintAttributes = map[string]models.Attribute{
	"persons_rnokpp_key":          models.AttrRNOKPP,
	"persons_unzr_key":            models.AttrUNZR,
	"persons_passport_number_key": models.AttrPassportNumber,
}

// PostgresStore persists persons in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgres constructs a PostgreSQL-backed person store.
func NewPostgres(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type personRow struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Surname        string         `db:"surname"`
	Patronym       sql.NullString `db:"patronym"`
	DateOfBirth    string         `db:"date_of_birth"`
	RNOKPP         string         `db:"rnokpp"`
	UNZR           string         `db:"unzr"`
	PassportNumber string         `db:"passport_number"`
	Gender         string         `db:"gender"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r personRow) toModel() *models.Person {
	p := &models.Person{
		ID:             r.ID,
		Name:           r.Name,
		Surname:        r.Surname,
		DateOfBirth:    r.DateOfBirth,
		RNOKPP:         r.RNOKPP,
		UNZR:           r.UNZR,
		PassportNumber: r.PassportNumber,
		Gender:         r.Gender,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Patronym.Valid {
		v := r.Patronym.String
		p.Patronym = &v
	}
	return p
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Person) error {
	dob, err := models.AttrDateOfBirth.Arg(p.DateOfBirth)
	if err != nil {
		return err
	}
	var patronym any
	if p.Patronym != nil {
		patronym = *p.Patronym
	}

	query := `INSERT INTO persons (name, surname, patronym, date_of_birth, rnokpp, unzr, passport_number, gender)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err = s.db.QueryRowxContext(ctx, query,
		p.Name, p.Surname, patronym, dob, p.RNOKPP, p.UNZR, p.PassportNumber, p.Gender,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return translateWriteError(err, "create person")
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter, offset, limit int) ([]*models.Person, error) {
	where, args, err := whereClause(filter, 1)
	if err != nil {
		return nil, err
	}
	n := len(args)
	query := "SELECT " + selectColumns + " FROM persons" + where +
		" ORDER BY id LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	var rows []personRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	out := make([]*models.Person, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context, filter models.Filter) (int, error) {
	where, args, err := whereClause(filter, 1)
	if err != nil {
		return 0, err
	}
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM persons"+where, args...); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) FindBy(ctx context.Context, attr models.Attribute, value string) (*models.Person, error) {
	where, args, err := whereClause(models.Filter{{Attribute: attr, Value: value}}, 1)
	if err != nil {
		return nil, err
	}
	var row personRow
	err = s.db.GetContext(ctx, &row, "SELECT "+selectColumns+" FROM persons"+where+" ORDER BY id LIMIT 1", args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find person by %s: %w", attr, err)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) UpdateBy(ctx context.Context, attr models.Attribute, value string, patch models.Patch) (int64, error) {
	assignments := patch.Assignments()
	if len(assignments) == 0 {
		return 0, fmt.Errorf("update persons: empty patch")
	}

	sets := make([]string, 0, len(assignments)+1)
	args := make([]any, 0, len(assignments)+1)
	for _, a := range assignments {
		arg, err := assignmentArg(a)
		if err != nil {
			return 0, err
		}
		args = append(args, arg)
		sets = append(sets, a.Attribute.Column()+" = $"+strconv.Itoa(len(args)))
	}
	sets = append(sets, "updated_at = now()")

	where, whereArgs, err := whereClause(models.Filter{{Attribute: attr, Value: value}}, len(args)+1)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	res, err := s.db.ExecContext(ctx, "UPDATE persons SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return 0, translateWriteError(err, "update persons")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update persons rows affected: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteBy(ctx context.Context, attr models.Attribute, value string) (int64, error) {
	where, args, err := whereClause(models.Filter{{Attribute: attr, Value: value}}, 1)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM persons"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete persons: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete persons rows affected: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// whereClause renders filter as a WHERE clause with placeholders numbered
// from first. Column names come only from the Attribute set.
func whereClause(filter models.Filter, first int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	conds := make([]string, len(filter))
	args := make([]any, len(filter))
	for i, c := range filter {
		arg, err := c.Attribute.Arg(c.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", c.Attribute, err)
		}
		conds[i] = c.Attribute.Column() + " = $" + strconv.Itoa(first+i)
		args[i] = arg
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func assignmentArg(a models.Assignment) (any, error) {
	if a.Attribute == models.AttrPatronym && a.Value == "" {
		return nil, nil
	}
	return a.Attribute.Arg(a.Value)
}

func translateWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		dup := &models.DuplicateError{}
		if attr, ok := constraintAttributes[pgErr.ConstraintName]; ok {
			dup.Attributes = []models.Attribute{attr}
		}
		return dup
	}
	return fmt.Errorf("%s: %w", op, err)
}
