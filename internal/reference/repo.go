package reference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"propertyhub/pkg/models"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	typesTable    = "property_types"
	statusesTable = "property_statuses"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Types() CategoryTable {
	return CategoryTable{db: r.DB, table: typesTable}
}

func (r *Repo) Statuses() CategoryTable {
	return CategoryTable{db: r.DB, table: statusesTable}
}

func (r *Repo) Locations() LocationTable {
	return LocationTable{db: r.DB}
}

// CategoryTable reads one of the multilingual category tables.
type CategoryTable struct {
	db    dbtx
	table string
}

func (t CategoryTable) Get(ctx context.Context, id *int64) (models.NameRecord, error) {
	if id == nil {
		return models.NameRecord{}, nil
	}
	row := t.db.QueryRowContext(ctx, `
		SELECT name_en, name_th, name_zh
		FROM `+t.table+`
		WHERE id = ?
	`, *id)

	var n models.NameRecord
	if err := row.Scan(&n.EN, &n.TH, &n.ZH); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NameRecord{}, nil
		}
		return models.NameRecord{}, fmt.Errorf("get %s: %w", t.table, err)
	}
	return n, nil
}

func (t CategoryTable) List(ctx context.Context) ([]models.Category, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, name_en, name_th, name_zh
		FROM `+t.table+`
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	defer rows.Close()

	out := make([]models.Category, 0, 16)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name.EN, &c.Name.TH, &c.Name.ZH); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Upsert keys categories by English name.
func (t CategoryTable) Upsert(ctx context.Context, name models.NameRecord) (int64, error) {
	row := t.db.QueryRowContext(ctx, `
		INSERT INTO `+t.table+` (name_en, name_th, name_zh)
		VALUES (?, ?, ?)
		ON CONFLICT(name_en) DO UPDATE SET
			name_th = excluded.name_th,
			name_zh = excluded.name_zh
		RETURNING id
	`, name.EN, name.TH, name.ZH)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", t.table, err)
	}
	return id, nil
}

type LocationTable struct {
	db dbtx
}

func (t LocationTable) Get(ctx context.Context, id int64) (*models.Location, error) {
	row := t.db.QueryRowContext(ctx, `
		SELECT id, level, name_en, name_th, name_zh, parent_id
		FROM locations
		WHERE id = ?
	`, id)

	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

func (t LocationTable) Ancestry(ctx context.Context, leafID *int64) (models.Ancestry, error) {
	return walkAncestry(ctx, leafID, t.Get)
}

// List returns locations of one level, optionally restricted to one parent.
func (t LocationTable) List(ctx context.Context, level models.Level, parentID *int64) ([]models.Location, error) {
	q := `
		SELECT id, level, name_en, name_th, name_zh, parent_id
		FROM locations
		WHERE level = ?
	`
	args := []any{string(level)}
	if parentID != nil {
		q += " AND parent_id = ?"
		args = append(args, *parentID)
	}
	q += " ORDER BY name_en ASC"

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []models.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Upsert keys locations by level, parent and English name.
func (t LocationTable) Upsert(ctx context.Context, loc models.Location) (int64, error) {
	if !loc.Level.Valid() {
		return 0, fmt.Errorf("upsert location: invalid level %q", loc.Level)
	}

	var parent sql.NullInt64
	if loc.ParentID != nil {
		parent = sql.NullInt64{Int64: *loc.ParentID, Valid: true}
	}

	var id int64
	err := t.db.QueryRowContext(ctx, `
		SELECT id FROM locations
		WHERE level = ? AND IFNULL(parent_id, 0) = IFNULL(?, 0) AND name_en = ?
	`, string(loc.Level), parent, loc.Name.EN).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := t.db.ExecContext(ctx, `
			INSERT INTO locations (level, name_en, name_th, name_zh, parent_id)
			VALUES (?, ?, ?, ?, ?)
		`, string(loc.Level), loc.Name.EN, loc.Name.TH, loc.Name.ZH, parent)
		if err != nil {
			return 0, fmt.Errorf("insert location: %w", err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("find location: %w", err)
	}

	if _, err := t.db.ExecContext(ctx, `
		UPDATE locations SET name_th = ?, name_zh = ? WHERE id = ?
	`, loc.Name.TH, loc.Name.ZH, id); err != nil {
		return 0, fmt.Errorf("update location: %w", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(s scanner) (*models.Location, error) {
	var (
		loc    models.Location
		level  string
		parent sql.NullInt64
	)
	if err := s.Scan(&loc.ID, &level, &loc.Name.EN, &loc.Name.TH, &loc.Name.ZH, &parent); err != nil {
		return nil, err
	}
	loc.Level = models.Level(level)
	if parent.Valid {
		p := parent.Int64
		loc.ParentID = &p
	}
	return &loc, nil
}

// maxDepth bounds the parent walk; the tree has three levels.
const maxDepth = 3

// walkAncestry follows parent pointers from the leaf upward. Unknown ids end
// the walk quietly; a repeated id or level means a malformed tree and also
// ends it, keeping what was collected so far.
func walkAncestry(ctx context.Context, leafID *int64, get func(context.Context, int64) (*models.Location, error)) (models.Ancestry, error) {
	out := make(models.Ancestry, maxDepth)
	seen := make(map[int64]bool, maxDepth)

	next := leafID
	for depth := 0; next != nil && depth < maxDepth; depth++ {
		if seen[*next] {
			break
		}
		seen[*next] = true

		loc, err := get(ctx, *next)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			break
		}
		if _, dup := out[loc.Level]; dup || !loc.Level.Valid() {
			break
		}
		out[loc.Level] = loc.Name
		next = loc.ParentID
	}
	return out, nil
}
