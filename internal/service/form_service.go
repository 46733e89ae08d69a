package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository"
)

type FormService interface {
	ListForms(ctx context.Context) ([]models.FormWithStats, error)
	GetForm(ctx context.Context, id string) (*models.FormWithFields, error)
	CreateForm(ctx context.Context, req *models.CreateFormRequest) (*models.Form, error)
	UpdateForm(ctx context.Context, id string, req *models.UpdateFormRequest) (*models.Form, error)
	DeleteForm(ctx context.Context, id string) error
	ListOpenForms(ctx context.Context) ([]models.PublicForm, error)
	GetPublicForm(ctx context.Context, id string) (*models.PublicForm, error)
}

type formService struct {
	formRepo repository.FormRepository
	schemas  *schemaLoader
	now      func() time.Time
	logger   zerolog.Logger
}

func NewFormService(
	formRepo repository.FormRepository,
	fieldRepo repository.FieldRepository,
	cache repository.FormCache,
	logger zerolog.Logger,
) FormService {
	return &formService{
		formRepo: formRepo,
		schemas:  &schemaLoader{formRepo: formRepo, fieldRepo: fieldRepo, cache: cache},
		now:      time.Now,
		logger:   logger,
	}
}

func (s *formService) ListForms(ctx context.Context) ([]models.FormWithStats, error) {
	forms, err := s.formRepo.GetAllWithStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	now := s.now()
	for i := range forms {
		forms[i].IsOpen = forms[i].Form.IsOpen(now)
	}
	return forms, nil
}

func (s *formService) GetForm(ctx context.Context, id string) (*models.FormWithFields, error) {
	schema, err := s.schemas.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.FormWithFields{
		Form:   schema.Form,
		IsOpen: schema.Form.IsOpen(s.now()),
		Fields: schema.Fields,
	}, nil
}

func (s *formService) CreateForm(ctx context.Context, req *models.CreateFormRequest) (*models.Form, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateWindow(req.OpensAt, req.ClosesAt); err != nil {
		return nil, err
	}

	now := s.now()
	form := &models.Form{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(req.Title),
		IsActive:  true,
		OpensAt:   req.OpensAt,
		ClosesAt:  req.ClosesAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Description != nil {
		form.Description = *req.Description
	}
	if req.IsActive != nil {
		form.IsActive = *req.IsActive
	}

	if err := s.formRepo.Create(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	s.logger.Info().
		Str("form_id", form.ID).
		Str("title", form.Title).
		Msg("Form created")

	return form, nil
}

func (s *formService) UpdateForm(ctx context.Context, id string, req *models.UpdateFormRequest) (*models.Form, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	form, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	if form == nil {
		return nil, models.ErrFormNotFound
	}

	if req.Title != nil {
		form.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		form.Description = *req.Description
	}
	if req.IsActive != nil {
		form.IsActive = *req.IsActive
	}
	if req.OpensAt.Set {
		form.OpensAt = req.OpensAt.Value
	}
	if req.ClosesAt.Set {
		form.ClosesAt = req.ClosesAt.Value
	}

	if err := validateWindow(form.OpensAt, form.ClosesAt); err != nil {
		return nil, err
	}

	form.UpdatedAt = s.now()
	if err := s.formRepo.Update(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to update form: %w", err)
	}
	s.schemas.invalidate(ctx, id)

	s.logger.Info().Str("form_id", id).Msg("Form updated")
	return form, nil
}

func (s *formService) DeleteForm(ctx context.Context, id string) error {
	form, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get form: %w", err)
	}
	if form == nil {
		return models.ErrFormNotFound
	}

	if err := s.formRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	s.schemas.invalidate(ctx, id)

	s.logger.Info().Str("form_id", id).Msg("Form deleted")
	return nil
}

func (s *formService) ListOpenForms(ctx context.Context) ([]models.PublicForm, error) {
	now := s.now()
	forms, err := s.formRepo.GetOpen(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list open forms: %w", err)
	}

	result := make([]models.PublicForm, 0, len(forms))
	for i := range forms {
		// The query filters by the window already; IsOpen keeps the two in step.
		if !forms[i].IsOpen(now) {
			continue
		}
		result = append(result, toPublicForm(&forms[i], nil, true))
	}
	return result, nil
}

func (s *formService) GetPublicForm(ctx context.Context, id string) (*models.PublicForm, error) {
	schema, err := s.schemas.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !schema.Form.IsOpen(s.now()) {
		return nil, models.ErrFormClosed
	}

	pf := toPublicForm(&schema.Form, schema.Fields, true)
	return &pf, nil
}

func toPublicForm(form *models.Form, fields []models.Field, open bool) models.PublicForm {
	return models.PublicForm{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		OpensAt:     form.OpensAt,
		ClosesAt:    form.ClosesAt,
		IsOpen:      open,
		Fields:      fields,
	}
}

// validateWindow requires closes_at to be after opens_at when both are set.
func validateWindow(opensAt, closesAt *time.Time) error {
	if opensAt != nil && closesAt != nil && !closesAt.After(*opensAt) {
		verr := models.NewValidationError()
		verr.Add("closes_at", "must be after opens_at")
		return verr
	}
	return nil
}
