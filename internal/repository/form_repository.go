package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
)

type FormRepository interface {
	Create(ctx context.Context, form *models.Form) error
	GetByID(ctx context.Context, id string) (*models.Form, error)
	GetAllWithStats(ctx context.Context) ([]models.FormWithStats, error)
	GetOpen(ctx context.Context, now time.Time) ([]models.Form, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type formRepository struct {
	*PostgresRepository
}

func NewFormRepository(db *sql.DB, logger zerolog.Logger) FormRepository {
	return &formRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const formColumns = `id, title, description, is_active, opens_at, closes_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner, form *models.Form, extra ...any) error {
	var description sql.NullString
	var opensAt, closesAt sql.NullTime

	dest := []any{
		&form.ID,
		&form.Title,
		&description,
		&form.IsActive,
		&opensAt,
		&closesAt,
		&form.CreatedAt,
		&form.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	form.Description = description.String
	form.OpensAt = timePtr(opensAt)
	form.ClosesAt = timePtr(closesAt)
	return nil
}

func (r *formRepository) Create(ctx context.Context, form *models.Form) error {
	query := `
		INSERT INTO forms (` + formColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		form.ID,
		form.Title,
		nullString(form.Description),
		form.IsActive,
		nullTime(form.OpensAt),
		nullTime(form.ClosesAt),
		form.CreatedAt,
		form.UpdatedAt,
	)

	return err
}

func (r *formRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`

	form := &models.Form{}
	err := scanForm(r.db.QueryRowContext(ctx, query, id), form)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return form, nil
}

func (r *formRepository) GetAllWithStats(ctx context.Context) ([]models.FormWithStats, error) {
	query := `
		SELECT
			f.id, f.title, f.description, f.is_active, f.opens_at, f.closes_at, f.created_at, f.updated_at,
			(SELECT COUNT(*) FROM form_fields ff WHERE ff.form_id = f.id) AS fields_count,
			(SELECT COUNT(*) FROM form_submissions fs WHERE fs.form_id = f.id) AS submissions_count
		FROM forms f
		ORDER BY f.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := []models.FormWithStats{}
	for rows.Next() {
		var form models.FormWithStats
		if err := scanForm(rows, &form.Form, &form.FieldsCount, &form.SubmissionsCount); err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}

	return forms, rows.Err()
}

func (r *formRepository) GetOpen(ctx context.Context, now time.Time) ([]models.Form, error) {
	query := `
		SELECT ` + formColumns + `
		FROM forms
		WHERE is_active = TRUE
			AND (opens_at IS NULL OR opens_at <= $1)
			AND (closes_at IS NULL OR closes_at >= $1)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := []models.Form{}
	for rows.Next() {
		var form models.Form
		if err := scanForm(rows, &form); err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}

	return forms, rows.Err()
}

func (r *formRepository) Update(ctx context.Context, form *models.Form) error {
	query := `
		UPDATE forms
		SET title = $1, description = $2, is_active = $3, opens_at = $4, closes_at = $5, updated_at = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(ctx, query,
		form.Title,
		nullString(form.Description),
		form.IsActive,
		nullTime(form.OpensAt),
		nullTime(form.ClosesAt),
		form.UpdatedAt,
		form.ID,
	)

	return err
}

func (r *formRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM forms WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
