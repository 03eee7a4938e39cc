package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"propertyhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Scope limits which messages a staff member can see. An agent sees the
// messages about listings of their team; an admin sees everything.
type Scope struct {
	Admin  bool
	TeamID string
}

func (s Scope) clause() (string, []any) {
	if s.Admin {
		return "", nil
	}
	return ` AND property_code IN (SELECT property_code FROM properties WHERE team_id = ? AND property_code IS NOT NULL)`, []any{s.TeamID}
}

func (r *Repo) Create(ctx context.Context, m *models.ContactMessage) error {
	m.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO contact_messages (name, email, phone, message, property_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.Name, m.Email, m.Phone, m.Message, m.PropertyCode, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// TeamForCode returns the team owning the listing with this code, or "".
func (r *Repo) TeamForCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	var team string
	err := r.DB.QueryRowContext(ctx, `SELECT team_id FROM properties WHERE property_code = ?`, code).Scan(&team)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("team for code: %w", err)
	}
	return team, nil
}

func (r *Repo) List(ctx context.Context, scope Scope, unreadOnly bool, limit, offset int) ([]models.ContactMessage, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where := ` WHERE 1 = 1`
	var args []any
	if unreadOnly {
		where += ` AND is_read = 0`
	}
	scopeSQL, scopeArgs := scope.clause()
	where += scopeSQL
	args = append(args, scopeArgs...)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_messages`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contact messages: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, email, phone, message, property_code, is_read, created_at
		FROM contact_messages`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.ContactMessage, 0, limit)
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Message, &m.PropertyCode, &m.Read, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan contact message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

func (r *Repo) MarkRead(ctx context.Context, scope Scope, id int64, read bool) (bool, error) {
	scopeSQL, scopeArgs := scope.clause()
	args := append([]any{read, id}, scopeArgs...)
	res, err := r.DB.ExecContext(ctx, `UPDATE contact_messages SET is_read = ? WHERE id = ?`+scopeSQL, args...)
	if err != nil {
		return false, fmt.Errorf("mark contact message: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, scope Scope, id int64) (bool, error) {
	scopeSQL, scopeArgs := scope.clause()
	args := append([]any{id}, scopeArgs...)
	res, err := r.DB.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`+scopeSQL, args...)
	if err != nil {
		return false, fmt.Errorf("delete contact message: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
