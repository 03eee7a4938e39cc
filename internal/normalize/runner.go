package normalize

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// ArrayColumns are the listing columns that hold JSON tag lists.
var ArrayColumns = []string{"features", "labels"}

func isArrayColumn(col string) bool {
	for _, c := range ArrayColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Runner executes the maintenance passes against the listing table. Each pass
// runs in its own transaction; a dry run rolls it back after reporting.
type Runner struct {
	DB         *sql.DB
	Classifier *Classifier
	Logger     *log.Logger
}

func NewRunner(db *sql.DB, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{DB: db, Classifier: NewClassifier(), Logger: logger}
}

// finish commits the pass, or rolls it back for a dry run.
func (r *Runner) finish(tx *sql.Tx, rep *Report) error {
	if rep.DryRun {
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("rollback dry run: %w", err)
		}
		r.Logger.Printf("[normalize] %s", rep)
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", rep.Pass, err)
	}
	r.Logger.Printf("[normalize] %s", rep)
	return nil
}

type arrayRow struct {
	id  int64
	raw sql.NullString
}

// CleanArrays rewrites every value of column that is not already a clean
// JSON array of strings. NULL counts as empty. Values no strategy recognizes
// stay as they are and go into the report.
func (r *Runner) CleanArrays(ctx context.Context, column string, dryRun bool) (*Report, error) {
	if !isArrayColumn(column) {
		return nil, fmt.Errorf("clean arrays: unsupported column %q", column)
	}
	rep := newReport("clean:"+column, dryRun)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clean %s: %w", column, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id, `+column+` FROM properties ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", column, err)
	}
	var all []arrayRow
	for rows.Next() {
		var row arrayRow
		if err := rows.Scan(&row.id, &row.raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan %s row: %w", column, err)
		}
		all = append(all, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE properties SET `+column+` = ? WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare update %s: %w", column, err)
	}
	defer stmt.Close()

	for _, row := range all {
		rep.Scanned++

		out := r.Classifier.Classify(row.raw.String)
		if !out.Matched() {
			rep.Unrecognized = append(rep.Unrecognized, Entry{ID: row.id, Column: column, Raw: row.raw.String, Reason: "no strategy matched"})
			r.Logger.Printf("[normalize] unrecognized %s for property %d: %q", column, row.id, row.raw.String)
			continue
		}
		if !out.Changed {
			continue
		}

		rep.ByStrategy[out.Strategy]++
		if _, err := stmt.ExecContext(ctx, out.Canonical, row.id); err != nil {
			return nil, fmt.Errorf("update %s for property %d: %w", column, row.id, err)
		}
		rep.Changed++
		rep.Changes = append(rep.Changes, Change{ID: row.id, Column: column, Before: row.raw.String, After: out.Canonical})
	}

	if err := r.finish(tx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
