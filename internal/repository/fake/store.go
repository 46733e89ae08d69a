// Package fake provides in-memory implementations of the repository, blob
// store, cache and publisher interfaces for tests.
package fake

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository"
)

// Store holds forms, fields and submissions in memory. Forms, Fields and
// Submissions return repository views sharing the same data, so deleting a
// form cascades as it does in Postgres.
type Store struct {
	mu          sync.Mutex
	forms       []models.Form
	fields      []models.Field
	submissions []models.Submission

	// CreateErr, when set, fails every single-submission insert.
	CreateErr error
	// FailBatchAt, when >= 0, fails CreateBatch at that index.
	FailBatchAt int
}

func NewStore() *Store {
	return &Store{FailBatchAt: -1}
}

func (s *Store) Forms() repository.FormRepository             { return &FormRepo{s} }
func (s *Store) Fields() repository.FieldRepository           { return &FieldRepo{s} }
func (s *Store) Submissions() repository.SubmissionRepository { return &SubmissionRepo{s} }

// SubmissionCount returns the number of stored submissions of a form.
func (s *Store) SubmissionCount(formID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.submissions {
		if sub.FormID == formID {
			n++
		}
	}
	return n
}

type FormRepo struct{ s *Store }

func (r *FormRepo) Create(_ context.Context, form *models.Form) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.forms = append(r.s.forms, *form)
	return nil
}

func (r *FormRepo) GetByID(_ context.Context, id string) (*models.Form, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.forms {
		if f.ID == id {
			form := f
			return &form, nil
		}
	}
	return nil, nil
}

func (r *FormRepo) GetAllWithStats(_ context.Context) ([]models.FormWithStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.FormWithStats{}
	for i := len(r.s.forms) - 1; i >= 0; i-- {
		f := r.s.forms[i]
		stats := models.FormWithStats{Form: f}
		for _, fld := range r.s.fields {
			if fld.FormID == f.ID {
				stats.FieldsCount++
			}
		}
		for _, sub := range r.s.submissions {
			if sub.FormID == f.ID {
				stats.SubmissionsCount++
			}
		}
		out = append(out, stats)
	}
	return out, nil
}

func (r *FormRepo) GetOpen(_ context.Context, now time.Time) ([]models.Form, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Form{}
	for i := len(r.s.forms) - 1; i >= 0; i-- {
		if r.s.forms[i].IsOpen(now) {
			out = append(out, r.s.forms[i])
		}
	}
	return out, nil
}

func (r *FormRepo) Update(_ context.Context, form *models.Form) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.forms {
		if r.s.forms[i].ID == form.ID {
			r.s.forms[i] = *form
		}
	}
	return nil
}

func (r *FormRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.forms = slices.DeleteFunc(r.s.forms, func(f models.Form) bool { return f.ID == id })
	r.s.fields = slices.DeleteFunc(r.s.fields, func(f models.Field) bool { return f.FormID == id })
	r.s.submissions = slices.DeleteFunc(r.s.submissions, func(sub models.Submission) bool { return sub.FormID == id })
	return nil
}

func (r *FormRepo) Ping(context.Context) error { return nil }

type FieldRepo struct{ s *Store }

func (r *FieldRepo) Create(_ context.Context, field *models.Field) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.fields {
		if f.FormID == field.FormID && f.Name == field.Name {
			return fmt.Errorf("duplicate field name %q", field.Name)
		}
	}
	stored := *field
	stored.Options = slices.Clone(field.Options)
	r.s.fields = append(r.s.fields, stored)
	return nil
}

func (r *FieldRepo) GetByID(_ context.Context, id string) (*models.Field, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.fields {
		if f.ID == id {
			field := f
			field.Options = slices.Clone(f.Options)
			return &field, nil
		}
	}
	return nil, nil
}

func (r *FieldRepo) GetByFormID(_ context.Context, formID string) ([]models.Field, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Field{}
	for _, f := range r.s.fields {
		if f.FormID == formID {
			field := f
			field.Options = slices.Clone(f.Options)
			out = append(out, field)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Field) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out, nil
}

func (r *FieldRepo) Update(_ context.Context, field *models.Field) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.fields {
		if r.s.fields[i].ID == field.ID {
			r.s.fields[i] = *field
			r.s.fields[i].Options = slices.Clone(field.Options)
		}
	}
	return nil
}

func (r *FieldRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.fields = slices.DeleteFunc(r.s.fields, func(f models.Field) bool { return f.ID == id })
	return nil
}

func (r *FieldRepo) MaxOrder(_ context.Context, formID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, f := range r.s.fields {
		if f.FormID == formID && f.Order > max {
			max = f.Order
		}
	}
	return max, nil
}

func (r *FieldRepo) NameExists(_ context.Context, formID, name, excludeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.fields {
		if f.FormID == formID && f.Name == name && f.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *FieldRepo) UpdateOrder(_ context.Context, formID string, fieldIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, id := range fieldIDs {
		for j := range r.s.fields {
			if r.s.fields[j].ID == id && r.s.fields[j].FormID == formID {
				r.s.fields[j].Order = i + 1
			}
		}
	}
	return nil
}

type SubmissionRepo struct{ s *Store }

// roundTrip gives stored data the shape it has after a JSONB round trip.
func roundTrip(sub models.Submission) (models.Submission, error) {
	encoded, err := json.Marshal(sub.Data)
	if err != nil {
		return sub, err
	}
	sub.Data = map[string]any{}
	if err := json.Unmarshal(encoded, &sub.Data); err != nil {
		return sub, err
	}
	return sub, nil
}

func (r *SubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CreateErr != nil {
		return r.s.CreateErr
	}
	stored, err := roundTrip(*submission)
	if err != nil {
		return err
	}
	r.s.submissions = append(r.s.submissions, stored)
	return nil
}

func (r *SubmissionRepo) CreateBatch(_ context.Context, submissions []*models.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	batch := make([]models.Submission, 0, len(submissions))
	for i, sub := range submissions {
		if i == r.s.FailBatchAt {
			return &repository.BatchError{Index: i, Err: fmt.Errorf("insert rejected")}
		}
		stored, err := roundTrip(*sub)
		if err != nil {
			return &repository.BatchError{Index: i, Err: err}
		}
		batch = append(batch, stored)
	}
	r.s.submissions = append(r.s.submissions, batch...)
	return nil
}

func (r *SubmissionRepo) GetByID(_ context.Context, formID, id string) (*models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.submissions {
		if sub.ID == id && sub.FormID == formID {
			found, err := roundTrip(sub)
			return &found, err
		}
	}
	return nil, nil
}

func (r *SubmissionRepo) GetByFormID(ctx context.Context, formID string, limit, offset int) ([]models.Submission, int, error) {
	all, err := r.GetAllByFormID(ctx, formID)
	if err != nil {
		return nil, 0, err
	}
	slices.Reverse(all)

	total := len(all)
	if offset >= total {
		return []models.Submission{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *SubmissionRepo) GetAllByFormID(_ context.Context, formID string) ([]models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Submission{}
	for _, sub := range r.s.submissions {
		if sub.FormID != formID {
			continue
		}
		copied, err := roundTrip(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	// Same order as the SQL: submitted_at, then id. Rows stored together
	// share a timestamp, so insertion order is not kept.
	slices.SortFunc(out, func(a, b models.Submission) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}
