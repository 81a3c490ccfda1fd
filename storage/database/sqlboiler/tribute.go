package boiledrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
)

const tributeColumns = "id, name, message, email, phone, image_url, approved, created_at, approved_at, admin_notes"

// tributeRow mirrors the tributes table.
type tributeRow struct {
	ID         int64       `boil:"id"`
	Name       string      `boil:"name"`
	Message    string      `boil:"message"`
	Email      null.String `boil:"email"`
	Phone      null.String `boil:"phone"`
	ImageURL   null.String `boil:"image_url"`
	Approved   bool        `boil:"approved"`
	CreatedAt  time.Time   `boil:"created_at"`
	ApprovedAt null.Time   `boil:"approved_at"`
	AdminNotes null.String `boil:"admin_notes"`
}

type tributeRepository struct {
	exec core.DBExecutor
}

var _ tribute.Repository = (*tributeRepository)(nil) // interface compliance check

func NewTributeRepository(exec core.DBExecutor) *tributeRepository {
	return &tributeRepository{exec: exec}
}

func (repo tributeRepository) unboil(row tributeRow) tribute.Tribute {
	t := tribute.Tribute(row)
	t.CreatedAt = t.CreatedAt.UTC()
	if t.ApprovedAt.Valid {
		t.ApprovedAt.Time = t.ApprovedAt.Time.UTC()
	}
	return t
}

func (repo tributeRepository) unboilSlice(rows []tributeRow) []tribute.Tribute {
	tributes := make([]tribute.Tribute, 0, len(rows))
	for _, row := range rows {
		tributes = append(tributes, repo.unboil(row))
	}
	return tributes
}

// trapNoRowsErr maps psql "no rows" err to tribute.ErrNotFound
func (repo tributeRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return tribute.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo tributeRepository) CreateTribute(ctx context.Context, t tribute.Tribute) (tribute.Tribute, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	var row tributeRow
	err := queries.Raw(
		`INSERT INTO tributes (name, message, email, phone, image_url, approved, created_at, approved_at, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+tributeColumns,
		t.Name, t.Message, t.Email, t.Phone, t.ImageURL, t.Approved, t.CreatedAt.UTC(), t.ApprovedAt, t.AdminNotes,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return tribute.Tribute{}, errors.Wrap(err, "inserting tribute")
	}
	return repo.unboil(row), nil
}

func (repo tributeRepository) GetTribute(ctx context.Context, id int64) (tribute.Tribute, error) {
	var row tributeRow
	err := queries.Raw("SELECT "+tributeColumns+" FROM tributes WHERE id = $1", id).Bind(ctx, repo.exec, &row)
	if err != nil {
		return tribute.Tribute{}, repo.trapNoRowsErr(err, "finding tribute")
	}
	return repo.unboil(row), nil
}

func (repo tributeRepository) QueryTributes(
	ctx context.Context,
	filter tribute.QueryFilter,
	ordering []core.DBOrdering,
) ([]tribute.Tribute, error) {
	var (
		q    strings.Builder
		args []interface{}
	)
	q.WriteString("SELECT " + tributeColumns + " FROM tributes")
	if filter.Approved != nil {
		args = append(args, *filter.Approved)
		q.WriteString(" WHERE approved = $1")
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range core.FilterOrderings(ordering, tribute.OrderingFields...) {
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "id ASC")
	q.WriteString(" ORDER BY " + strings.Join(orderList, ", "))

	var rows []tributeRow
	if err := queries.Raw(q.String(), args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying tributes")
	}
	return repo.unboilSlice(rows), nil
}

// UpdateModeration writes the three moderation fields in a single statement.
func (repo tributeRepository) UpdateModeration(
	ctx context.Context,
	id int64,
	approved bool,
	approvedAt null.Time,
	notes null.String,
) (tribute.Tribute, error) {
	var row tributeRow
	err := queries.Raw(
		`UPDATE tributes SET approved = $2, approved_at = $3, admin_notes = $4
		WHERE id = $1
		RETURNING `+tributeColumns,
		id, approved, approvedAt, notes,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return tribute.Tribute{}, repo.trapNoRowsErr(err, "updating tribute moderation")
	}
	return repo.unboil(row), nil
}
