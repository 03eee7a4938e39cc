package reference

import (
	"context"
	"fmt"

	"propertyhub/pkg/models"
)

// Categories is an in-memory category table.
type Categories map[int64]models.NameRecord

func (c Categories) Get(_ context.Context, id *int64) (models.NameRecord, error) {
	if id == nil {
		return models.NameRecord{}, nil
	}
	return c[*id], nil
}

// Locations is an in-memory location table.
type Locations map[int64]models.Location

func (l Locations) Get(_ context.Context, id int64) (*models.Location, error) {
	loc, ok := l[id]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (l Locations) Ancestry(ctx context.Context, leafID *int64) (models.Ancestry, error) {
	return walkAncestry(ctx, leafID, l.Get)
}

// Children lists the locations of a level under parentID; nil parentID
// matches top-level rows.
func (l Locations) Children(level models.Level, parentID *int64) []models.Location {
	var out []models.Location
	for _, loc := range l {
		if loc.Level != level {
			continue
		}
		switch {
		case parentID == nil && loc.ParentID == nil:
		case parentID != nil && loc.ParentID != nil && *parentID == *loc.ParentID:
		default:
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Snapshot is the reference data loaded once for a batch run and handed to
// the functions that need it.
type Snapshot struct {
	Types     Categories
	Statuses  Categories
	Locations Locations
}

func LoadSnapshot(ctx context.Context, r *Repo) (*Snapshot, error) {
	types, err := loadCategories(ctx, r.Types())
	if err != nil {
		return nil, err
	}
	statuses, err := loadCategories(ctx, r.Statuses())
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, level, name_en, name_th, name_zh, parent_id
		FROM locations
	`)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	defer rows.Close()

	locs := make(Locations)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locs[loc.ID] = *loc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	return &Snapshot{Types: types, Statuses: statuses, Locations: locs}, nil
}

func loadCategories(ctx context.Context, t CategoryTable) (Categories, error) {
	list, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(Categories, len(list))
	for _, c := range list {
		out[c.ID] = c.Name
	}
	return out, nil
}
