package faqs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"propertyhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func scanFAQ(row interface{ Scan(...any) error }) (*models.FAQ, error) {
	var f models.FAQ
	if err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.SortOrder, &f.Published, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) Create(ctx context.Context, f *models.FAQ) error {
	f.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO faqs (question, answer, sort_order, published, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, f.Question, f.Answer, f.SortOrder, f.Published, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert faq: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.FAQ, error) {
	f, err := scanFAQ(r.DB.QueryRowContext(ctx, `
		SELECT id, question, answer, sort_order, published, created_at
		FROM faqs WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get faq: %w", err)
	}
	return f, nil
}

func (r *Repo) Update(ctx context.Context, f *models.FAQ) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE faqs SET question = ?, answer = ?, sort_order = ?, published = ?
		WHERE id = ?
	`, f.Question, f.Answer, f.SortOrder, f.Published, f.ID)
	if err != nil {
		return false, fmt.Errorf("update faq: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM faqs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete faq: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns FAQs in display order. FAQs are few, so there is no paging.
func (r *Repo) List(ctx context.Context, includeDrafts bool) ([]models.FAQ, error) {
	q := `SELECT id, question, answer, sort_order, published, created_at FROM faqs`
	if !includeDrafts {
		q += ` WHERE published = 1`
	}
	q += ` ORDER BY sort_order ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()

	out := make([]models.FAQ, 0, 16)
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faq row: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
