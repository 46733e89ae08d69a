package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
)

type FieldRepository interface {
	Create(ctx context.Context, field *models.Field) error
	GetByID(ctx context.Context, id string) (*models.Field, error)
	GetByFormID(ctx context.Context, formID string) ([]models.Field, error)
	Update(ctx context.Context, field *models.Field) error
	Delete(ctx context.Context, id string) error
	MaxOrder(ctx context.Context, formID string) (int, error)
	NameExists(ctx context.Context, formID, name, excludeID string) (bool, error)
	UpdateOrder(ctx context.Context, formID string, fieldIDs []string) error
}

type fieldRepository struct {
	*PostgresRepository
}

func NewFieldRepository(db *sql.DB, logger zerolog.Logger) FieldRepository {
	return &fieldRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const fieldColumns = `id, form_id, label, name, type, options, required, placeholder, help_text, "order", created_at, updated_at`

func scanField(row rowScanner, field *models.Field) error {
	var options pq.StringArray
	var placeholder, helpText sql.NullString
	var fieldType string

	err := row.Scan(
		&field.ID,
		&field.FormID,
		&field.Label,
		&field.Name,
		&fieldType,
		&options,
		&field.Required,
		&placeholder,
		&helpText,
		&field.Order,
		&field.CreatedAt,
		&field.UpdatedAt,
	)
	if err != nil {
		return err
	}

	field.Type = models.FieldType(fieldType)
	field.Options = []string(options)
	field.Placeholder = placeholder.String
	field.HelpText = helpText.String
	return nil
}

func (r *fieldRepository) Create(ctx context.Context, field *models.Field) error {
	query := `
		INSERT INTO form_fields (` + fieldColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		field.ID,
		field.FormID,
		field.Label,
		field.Name,
		field.Type.String(),
		pq.StringArray(field.Options),
		field.Required,
		nullString(field.Placeholder),
		nullString(field.HelpText),
		field.Order,
		field.CreatedAt,
		field.UpdatedAt,
	)

	return err
}

func (r *fieldRepository) GetByID(ctx context.Context, id string) (*models.Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM form_fields WHERE id = $1`

	field := &models.Field{}
	err := scanField(r.db.QueryRowContext(ctx, query, id), field)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return field, nil
}

func (r *fieldRepository) GetByFormID(ctx context.Context, formID string) ([]models.Field, error) {
	query := `
		SELECT ` + fieldColumns + `
		FROM form_fields
		WHERE form_id = $1
		ORDER BY "order", created_at
	`

	rows, err := r.db.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := []models.Field{}
	for rows.Next() {
		var field models.Field
		if err := scanField(rows, &field); err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return fields, rows.Err()
}

func (r *fieldRepository) Update(ctx context.Context, field *models.Field) error {
	query := `
		UPDATE form_fields
		SET label = $1, name = $2, type = $3, options = $4, required = $5,
			placeholder = $6, help_text = $7, updated_at = $8
		WHERE id = $9
	`

	_, err := r.db.ExecContext(ctx, query,
		field.Label,
		field.Name,
		field.Type.String(),
		pq.StringArray(field.Options),
		field.Required,
		nullString(field.Placeholder),
		nullString(field.HelpText),
		field.UpdatedAt,
		field.ID,
	)

	return err
}

func (r *fieldRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM form_fields WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *fieldRepository) MaxOrder(ctx context.Context, formID string) (int, error) {
	query := `SELECT COALESCE(MAX("order"), 0) FROM form_fields WHERE form_id = $1`
	var max int
	err := r.db.QueryRowContext(ctx, query, formID).Scan(&max)
	return max, err
}

func (r *fieldRepository) NameExists(ctx context.Context, formID, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM form_fields WHERE form_id = $1 AND name = $2 AND id::text <> $3)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, formID, name, excludeID).Scan(&exists)
	return exists, err
}

// UpdateOrder assigns order index+1 to each id, in one transaction. Ids that
// do not belong to formID are left untouched.
func (r *fieldRepository) UpdateOrder(ctx context.Context, formID string, fieldIDs []string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE form_fields
			SET "order" = $1, updated_at = $2
			WHERE id = $3 AND form_id = $4
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now()
		for i, id := range fieldIDs {
			if _, err := stmt.ExecContext(ctx, i+1, now, id, formID); err != nil {
				return fmt.Errorf("failed to update order of field %s: %w", id, err)
			}
		}
		return nil
	})
}
