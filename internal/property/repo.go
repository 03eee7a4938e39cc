package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"propertyhub/internal/normalize"
	"propertyhub/pkg/models"
)

var (
	ErrNotFound         = errors.New("property not found")
	ErrDuplicateCode    = errors.New("property code already in use")
	ErrUnknownReference = errors.New("unknown type, status or location id")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Q        string // keyword search in titles, code and description
	TypeID   *int64
	StatusID *int64
	Province string
	MinSize  *float64
	MaxSize  *float64
	Feature  string
	TeamID   string // restricts to one team when set
	Limit    int
	Offset   int
}

const propertyColumns = `
	id, property_code, type_id, status_id, subdistrict_id,
	type_text, status_text, province_text, district_text, subdistrict_text,
	size, price, description, features, labels,
	title_en, title_th, title_zh, team_id, created_by, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(s scanner) (*models.Property, error) {
	var (
		p                        models.Property
		code                     sql.NullString
		typeID, statusID, subID  sql.NullInt64
		size, price              sql.NullFloat64
		featuresJSON, labelsJSON sql.NullString
	)
	if err := s.Scan(
		&p.ID, &code, &typeID, &statusID, &subID,
		&p.TypeText, &p.StatusText, &p.ProvinceText, &p.DistrictText, &p.SubdistrictText,
		&size, &price, &p.Description, &featuresJSON, &labelsJSON,
		&p.Titles.EN, &p.Titles.TH, &p.Titles.ZH, &p.TeamID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Code = code.String
	p.TypeID = nullInt(typeID)
	p.StatusID = nullInt(statusID)
	p.SubdistrictID = nullInt(subID)
	p.Size = nullFloat(size)
	p.Price = nullFloat(price)
	p.Features = normalize.DecodeTags(featuresJSON.String)
	p.Labels = normalize.DecodeTags(labelsJSON.String)
	return &p, nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullCode(code string) sql.NullString {
	code = strings.TrimSpace(code)
	if code == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: code, Valid: true}
}

// mapConstraint turns SQLite constraint failures into the package errors.
func mapConstraint(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return ErrDuplicateCode
		case sqlite3.ErrConstraintForeignKey:
			return ErrUnknownReference
		}
	}
	return err
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*models.Property, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE property_code = ?`, strings.TrimSpace(code))
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get property by code: %w", err)
	}
	return p, nil
}

// Create inserts p and then lets finalize fill in what depends on the new id
// (the property code and the titles) before the row is committed.
func (r *Repo) Create(ctx context.Context, p *models.Property, finalize func(*models.Property) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create property: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO properties (
			property_code, type_id, status_id, subdistrict_id,
			type_text, status_text, province_text, district_text, subdistrict_text,
			size, price, description, features, labels,
			team_id, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullCode(p.Code), p.TypeID, p.StatusID, p.SubdistrictID,
		p.TypeText, p.StatusText, p.ProvinceText, p.DistrictText, p.SubdistrictText,
		p.Size, p.Price, p.Description, normalize.EncodeTags(p.Features), normalize.EncodeTags(p.Labels),
		p.TeamID, p.CreatedBy, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", mapConstraint(err))
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now

	if finalize != nil {
		if err := finalize(p); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE properties
		SET property_code = ?, title_en = ?, title_th = ?, title_zh = ?
		WHERE id = ?
	`, nullCode(p.Code), p.Titles.EN, p.Titles.TH, p.Titles.ZH, p.ID); err != nil {
		return fmt.Errorf("finalize property: %w", mapConstraint(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create property: %w", err)
	}
	return nil
}

// Update writes every mutable column of p, titles included.
func (r *Repo) Update(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE properties SET
			property_code = ?, type_id = ?, status_id = ?, subdistrict_id = ?,
			type_text = ?, status_text = ?, province_text = ?, district_text = ?, subdistrict_text = ?,
			size = ?, price = ?, description = ?, features = ?, labels = ?,
			title_en = ?, title_th = ?, title_zh = ?, team_id = ?, updated_at = ?
		WHERE id = ?
	`,
		nullCode(p.Code), p.TypeID, p.StatusID, p.SubdistrictID,
		p.TypeText, p.StatusText, p.ProvinceText, p.DistrictText, p.SubdistrictText,
		p.Size, p.Price, p.Description, normalize.EncodeTags(p.Features), normalize.EncodeTags(p.Labels),
		p.Titles.EN, p.Titles.TH, p.Titles.ZH, p.TeamID, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update property: %w", mapConstraint(err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete property: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Property, int, error) {
	countSQL, countArgs := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	listSQL, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	out := make([]models.Property, 0, 20)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// buildListSQL builds either COUNT(*) or the page query for q.
// The feature filter relies on tags being stored as canonical JSON, so a
// quoted element match is exact.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	sqlStr := `SELECT ` + propertyColumns + ` FROM properties`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM properties`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(title_en) LIKE ? OR title_th LIKE ? OR title_zh LIKE ? OR LOWER(property_code) LIKE ? OR LOWER(description) LIKE ?)")
		lower := "%" + strings.ToLower(kw) + "%"
		raw := "%" + kw + "%"
		args = append(args, lower, raw, raw, lower, lower)
	}
	if q.TypeID != nil {
		where = append(where, "type_id = ?")
		args = append(args, *q.TypeID)
	}
	if q.StatusID != nil {
		where = append(where, "status_id = ?")
		args = append(args, *q.StatusID)
	}
	if p := strings.TrimSpace(q.Province); p != "" {
		where = append(where, `(LOWER(province_text) = ? OR subdistrict_id IN (
			SELECT s.id FROM locations s
			JOIN locations d ON d.id = s.parent_id
			JOIN locations p ON p.id = d.parent_id
			WHERE LOWER(p.name_en) = ? OR p.name_th = ?))`)
		args = append(args, strings.ToLower(p), strings.ToLower(p), p)
	}
	if q.MinSize != nil {
		where = append(where, "size >= ?")
		args = append(args, *q.MinSize)
	}
	if q.MaxSize != nil {
		where = append(where, "size <= ?")
		args = append(args, *q.MaxSize)
	}
	if f := strings.TrimSpace(q.Feature); f != "" {
		where = append(where, "features LIKE ?")
		args = append(args, "%"+featureToken(f)+"%")
	}
	if q.TeamID != "" {
		where = append(where, "team_id = ?")
		args = append(args, q.TeamID)
	}

	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY updated_at DESC, id DESC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

// featureToken is the quoted JSON element f would be stored as.
func featureToken(f string) string {
	enc := normalize.EncodeTags([]string{f})
	return strings.TrimSuffix(strings.TrimPrefix(enc, "["), "]")
}
