package normalize

import (
	"context"
	"database/sql"
	"fmt"

	"propertyhub/internal/reference"
	"propertyhub/internal/titles"
	"propertyhub/pkg/models"
)

// listingRow carries the columns that feed title generation.
type listingRow struct {
	id              int64
	code            sql.NullString
	typeID          sql.NullInt64
	statusID        sql.NullInt64
	subdistrictID   sql.NullInt64
	typeText        string
	statusText      string
	provinceText    string
	districtText    string
	subdistrictText string
	size            sql.NullFloat64
	titles          models.Titles
}

func (l listingRow) input() titles.Input {
	in := titles.Input{
		TypeID:          nullID(l.typeID),
		StatusID:        nullID(l.statusID),
		SubdistrictID:   nullID(l.subdistrictID),
		PropertyID:      l.code.String,
		TypeText:        l.typeText,
		StatusText:      l.statusText,
		ProvinceText:    l.provinceText,
		DistrictText:    l.districtText,
		SubdistrictText: l.subdistrictText,
	}
	if l.size.Valid {
		s := l.size.Float64
		in.Size = &s
	}
	return in
}

func nullID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func loadListings(ctx context.Context, tx *sql.Tx) ([]listingRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, property_code, type_id, status_id, subdistrict_id,
		       type_text, status_text, province_text, district_text, subdistrict_text,
		       size, title_en, title_th, title_zh
		FROM properties
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	defer rows.Close()

	var out []listingRow
	for rows.Next() {
		var l listingRow
		if err := rows.Scan(
			&l.id, &l.code, &l.typeID, &l.statusID, &l.subdistrictID,
			&l.typeText, &l.statusText, &l.provinceText, &l.districtText, &l.subdistrictText,
			&l.size, &l.titles.EN, &l.titles.TH, &l.titles.ZH,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// backfill sets target to id when it differs, reporting whether it changed.
func backfill(target *sql.NullInt64, id int64) bool {
	if target.Valid && target.Int64 == id {
		return false
	}
	*target = sql.NullInt64{Int64: id, Valid: true}
	return true
}

// Reconcile matches the free text type, status and location columns against
// the reference snapshot and backfills the id columns. Rows whose ids already
// agree are left alone, and text that matches nothing never clears an id.
// Titles of changed rows are regenerated in the same transaction.
func (r *Runner) Reconcile(ctx context.Context, snap *reference.Snapshot, dryRun bool) (*Report, error) {
	rep := newReport("reconcile", dryRun)
	matcher := NewMatcher(snap)
	gen := titles.NewGenerator(snap.Types, snap.Statuses, snap.Locations)
	gen.Names = matcher

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	listings, err := loadListings(ctx, tx)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE properties
		SET type_id = ?, status_id = ?, subdistrict_id = ?,
		    title_en = ?, title_th = ?, title_zh = ?
		WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare reconcile update: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		rep.Scanned++
		changed := false

		if l.typeText != "" {
			if id, ok := matcher.MatchType(l.typeText); ok {
				if backfill(&l.typeID, id) {
					rep.ByStrategy["type"]++
					changed = true
				}
			} else {
				rep.Unrecognized = append(rep.Unrecognized, Entry{ID: l.id, Column: "type_text", Raw: l.typeText, Reason: "no matching type"})
			}
		}

		if l.statusText != "" {
			if id, ok := matcher.MatchStatus(l.statusText); ok {
				if backfill(&l.statusID, id) {
					rep.ByStrategy["status"]++
					changed = true
				}
			} else {
				rep.Unrecognized = append(rep.Unrecognized, Entry{ID: l.id, Column: "status_text", Raw: l.statusText, Reason: "no matching status"})
			}
		}

		if l.subdistrictText != "" {
			if id, ok := matcher.MatchSubdistrict(l.provinceText, l.districtText, l.subdistrictText); ok {
				if backfill(&l.subdistrictID, id) {
					rep.ByStrategy["location"]++
					changed = true
				}
			} else {
				raw := l.subdistrictText + ", " + l.districtText + ", " + l.provinceText
				rep.Unrecognized = append(rep.Unrecognized, Entry{ID: l.id, Column: "subdistrict_text", Raw: raw, Reason: "no matching location chain"})
			}
		}

		if !changed {
			continue
		}

		t, err := gen.Generate(ctx, l.input())
		if err != nil {
			return nil, fmt.Errorf("titles for property %d: %w", l.id, err)
		}
		if _, err := stmt.ExecContext(ctx, l.typeID, l.statusID, l.subdistrictID, t.EN, t.TH, t.ZH, l.id); err != nil {
			return nil, fmt.Errorf("reconcile property %d: %w", l.id, err)
		}
		rep.Changed++
	}

	for _, e := range rep.Unrecognized {
		r.Logger.Printf("[normalize] property %d: %s %q", e.ID, e.Reason, e.Raw)
	}

	if err := r.finish(tx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// RegenerateTitles rebuilds every cached title from the current ids and
// text. Rows whose titles are already current are not written.
func (r *Runner) RegenerateTitles(ctx context.Context, snap *reference.Snapshot, dryRun bool) (*Report, error) {
	rep := newReport("titles", dryRun)
	gen := titles.NewGenerator(snap.Types, snap.Statuses, snap.Locations)
	gen.Names = NewMatcher(snap)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin titles: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	listings, err := loadListings(ctx, tx)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE properties SET title_en = ?, title_th = ?, title_zh = ? WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare title update: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		rep.Scanned++
		t, err := gen.Generate(ctx, l.input())
		if err != nil {
			return nil, fmt.Errorf("titles for property %d: %w", l.id, err)
		}
		if t == l.titles {
			continue
		}
		if _, err := stmt.ExecContext(ctx, t.EN, t.TH, t.ZH, l.id); err != nil {
			return nil, fmt.Errorf("update titles for property %d: %w", l.id, err)
		}
		rep.Changed++
		rep.Changes = append(rep.Changes, Change{ID: l.id, Column: "title_en", Before: l.titles.EN, After: t.EN})
	}

	if err := r.finish(tx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
