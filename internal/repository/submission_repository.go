package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
)

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	CreateBatch(ctx context.Context, submissions []*models.Submission) error
	GetByID(ctx context.Context, formID, id string) (*models.Submission, error)
	GetByFormID(ctx context.Context, formID string, limit, offset int) ([]models.Submission, int, error)
	GetAllByFormID(ctx context.Context, formID string) ([]models.Submission, error)
}

// BatchError reports which element of a CreateBatch call failed. Nothing of
// the batch is stored when it is returned.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const submissionColumns = `id, form_id, student_email, student_name, data, submitted_at`

const insertSubmission = `
	INSERT INTO form_submissions (` + submissionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
`

func submissionArgs(s *models.Submission) ([]any, error) {
	data := s.Data
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission data: %w", err)
	}

	return []any{
		s.ID,
		s.FormID,
		s.StudentEmail,
		nullStringPtr(s.StudentName),
		encoded,
		s.SubmittedAt,
	}, nil
}

func scanSubmission(row rowScanner, s *models.Submission) error {
	var studentName sql.NullString
	var data []byte

	err := row.Scan(
		&s.ID,
		&s.FormID,
		&s.StudentEmail,
		&studentName,
		&data,
		&s.SubmittedAt,
	)
	if err != nil {
		return err
	}

	if studentName.Valid {
		s.StudentName = &studentName.String
	}

	s.Data = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.Data); err != nil {
			return fmt.Errorf("failed to decode submission %s data: %w", s.ID, err)
		}
	}
	return nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	args, err := submissionArgs(submission)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, insertSubmission, args...)
	return err
}

func (r *submissionRepository) CreateBatch(ctx context.Context, submissions []*models.Submission) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSubmission)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, s := range submissions {
			args, err := submissionArgs(s)
			if err != nil {
				return &BatchError{Index: i, Err: err}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return &BatchError{Index: i, Err: err}
			}
		}
		return nil
	})
}

func (r *submissionRepository) GetByID(ctx context.Context, formID, id string) (*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM form_submissions
		WHERE form_id = $1 AND id = $2
	`

	submission := &models.Submission{}
	err := scanSubmission(r.db.QueryRowContext(ctx, query, formID, id), submission)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return submission, nil
}

// submissionPageQuery breaks submitted_at ties on id; imported rows share a
// timestamp and LIMIT/OFFSET pages must not overlap.
const submissionPageQuery = `
		SELECT ` + submissionColumns + `
		FROM form_submissions
		WHERE form_id = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

func (r *submissionRepository) GetByFormID(ctx context.Context, formID string, limit, offset int) ([]models.Submission, int, error) {
	countQuery := `SELECT COUNT(*) FROM form_submissions WHERE form_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, formID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, submissionPageQuery, formID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	submissions := []models.Submission{}
	for rows.Next() {
		var s models.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, s)
	}

	return submissions, total, rows.Err()
}

func (r *submissionRepository) GetAllByFormID(ctx context.Context, formID string) ([]models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM form_submissions
		WHERE form_id = $1
		ORDER BY submitted_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := []models.Submission{}
	for rows.Next() {
		var s models.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}

	return submissions, rows.Err()
}
