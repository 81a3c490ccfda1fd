package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
)

type tributeRepository struct {
	db *tributeTable
}

var _ tribute.Repository = (*tributeRepository)(nil) // interface compliance check

func NewTributeRepository(db *DB) tribute.Repository {
	return &tributeRepository{db: db.tribute}
}

func (repo *tributeRepository) CreateTribute(_ context.Context, t tribute.Tribute) (tribute.Tribute, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	t.ID = repo.db.pkCount
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *tributeRepository) GetTribute(_ context.Context, id int64) (tribute.Tribute, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return tribute.Tribute{}, tribute.ErrNotFound
}

func (repo *tributeRepository) QueryTributes(
	_ context.Context,
	filter tribute.QueryFilter,
	ordering []core.DBOrdering,
) ([]tribute.Tribute, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tributes := make([]tribute.Tribute, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		if filter.Approved != nil && t.Approved != *filter.Approved {
			continue
		}
		tributes = append(tributes, *t)
	}

	sort.SliceStable(tributes, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareTributes(tributes[i], tributes[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return tributes[i].ID < tributes[j].ID
	})
	return tributes, nil
}

func (repo *tributeRepository) UpdateModeration(
	_ context.Context,
	id int64,
	approved bool,
	approvedAt null.Time,
	notes null.String,
) (tribute.Tribute, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.table[id]
	if !ok {
		return tribute.Tribute{}, tribute.ErrNotFound
	}
	t.Approved = approved
	t.ApprovedAt = approvedAt
	t.AdminNotes = notes
	return *t, nil
}

func compareTributes(a, b tribute.Tribute, field string) int {
	switch field {
	case "id":
		return compareInt64(a.ID, b.ID)
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "approved":
		return compareBool(a.Approved, b.Approved)
	case "approved_at":
		// nulls compare greater than any time, like postgres
		if a.ApprovedAt.Valid != b.ApprovedAt.Valid {
			return compareBool(!a.ApprovedAt.Valid, !b.ApprovedAt.Valid)
		}
		return compareTime(a.ApprovedAt.Time, b.ApprovedAt.Time)
	default: // created_at
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
