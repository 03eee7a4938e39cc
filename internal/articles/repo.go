package articles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"propertyhub/pkg/models"
)

var ErrDuplicateSlug = errors.New("slug already in use")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const articleColumns = `id, slug, title, body_html, excerpt, published, created_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (*models.Article, error) {
	var a models.Article
	if err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.BodyHTML, &a.Excerpt, &a.Published, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func isUnique(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (r *Repo) Create(ctx context.Context, a *models.Article) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO articles (slug, title, body_html, excerpt, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.Slug, a.Title, a.BodyHTML, a.Excerpt, a.Published, now, now)
	if err != nil {
		if isUnique(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert article: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (r *Repo) Update(ctx context.Context, a *models.Article) (bool, error) {
	a.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE articles
		SET slug = ?, title = ?, body_html = ?, excerpt = ?, published = ?, updated_at = ?
		WHERE id = ?
	`, a.Slug, a.Title, a.BodyHTML, a.Excerpt, a.Published, a.UpdatedAt, a.ID)
	if err != nil {
		if isUnique(err) {
			return false, ErrDuplicateSlug
		}
		return false, fmt.Errorf("update article: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete article: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	a, err := scanArticle(r.DB.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// GetBySlug only returns published articles unless includeDrafts is set.
func (r *Repo) GetBySlug(ctx context.Context, slug string, includeDrafts bool) (*models.Article, error) {
	q := `SELECT ` + articleColumns + ` FROM articles WHERE slug = ?`
	if !includeDrafts {
		q += ` AND published = 1`
	}
	a, err := scanArticle(r.DB.QueryRowContext(ctx, q, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article by slug: %w", err)
	}
	return a, nil
}

func (r *Repo) List(ctx context.Context, includeDrafts bool, limit, offset int) ([]models.Article, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	where := ` WHERE published = 1`
	if includeDrafts {
		where = ``
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+articleColumns+` FROM articles`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan article row: %w", err)
		}
		a.BodyHTML = ""
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}
