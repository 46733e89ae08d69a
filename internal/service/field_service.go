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

// maxDuplicateAttempts bounds the " (Copy N)" label search.
const maxDuplicateAttempts = 100

type FieldService interface {
	ListFields(ctx context.Context, formID string) ([]models.Field, error)
	CreateField(ctx context.Context, formID string, req *models.CreateFieldRequest) (*models.Field, error)
	GetField(ctx context.Context, id string) (*models.Field, error)
	UpdateField(ctx context.Context, id string, req *models.UpdateFieldRequest) (*models.Field, error)
	DeleteField(ctx context.Context, id string) error
	ReorderFields(ctx context.Context, formID string, req *models.ReorderFieldsRequest) ([]models.Field, error)
	DuplicateField(ctx context.Context, id string) (*models.Field, error)
}

type fieldService struct {
	formRepo  repository.FormRepository
	fieldRepo repository.FieldRepository
	schemas   *schemaLoader
	now       func() time.Time
	logger    zerolog.Logger
}

func NewFieldService(
	formRepo repository.FormRepository,
	fieldRepo repository.FieldRepository,
	cache repository.FormCache,
	logger zerolog.Logger,
) FieldService {
	return &fieldService{
		formRepo:  formRepo,
		fieldRepo: fieldRepo,
		schemas:   &schemaLoader{formRepo: formRepo, fieldRepo: fieldRepo, cache: cache},
		now:       time.Now,
		logger:    logger,
	}
}

func (s *fieldService) ListFields(ctx context.Context, formID string) ([]models.Field, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}
	return schema.Fields, nil
}

func (s *fieldService) CreateField(ctx context.Context, formID string, req *models.CreateFieldRequest) (*models.Field, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.ensureForm(ctx, formID); err != nil {
		return nil, err
	}

	name, err := s.uniqueName(ctx, formID, req.Label, "")
	if err != nil {
		return nil, err
	}

	maxOrder, err := s.fieldRepo.MaxOrder(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max field order: %w", err)
	}

	now := s.now()
	field := &models.Field{
		ID:        uuid.New().String(),
		FormID:    formID,
		Label:     strings.TrimSpace(req.Label),
		Name:      name,
		Type:      models.FieldType(req.Type),
		Options:   req.Options,
		Required:  req.Required != nil && *req.Required,
		Order:     maxOrder + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Placeholder != nil {
		field.Placeholder = *req.Placeholder
	}
	if req.HelpText != nil {
		field.HelpText = *req.HelpText
	}

	if err := s.fieldRepo.Create(ctx, field); err != nil {
		return nil, fmt.Errorf("failed to create field: %w", err)
	}
	s.schemas.invalidate(ctx, formID)

	s.logger.Info().
		Str("form_id", formID).
		Str("field_id", field.ID).
		Str("name", field.Name).
		Msg("Field created")

	return field, nil
}

func (s *fieldService) GetField(ctx context.Context, id string) (*models.Field, error) {
	field, err := s.fieldRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	if field == nil {
		return nil, models.ErrFieldNotFound
	}
	return field, nil
}

func (s *fieldService) UpdateField(ctx context.Context, id string, req *models.UpdateFieldRequest) (*models.Field, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	field, err := s.GetField(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := s.uniqueName(ctx, field.FormID, req.Label, field.ID)
	if err != nil {
		return nil, err
	}

	field.Label = strings.TrimSpace(req.Label)
	field.Name = name
	field.Type = models.FieldType(req.Type)
	if req.Required != nil {
		field.Required = *req.Required
	}
	if req.Placeholder != nil {
		field.Placeholder = *req.Placeholder
	}
	if req.HelpText != nil {
		field.HelpText = *req.HelpText
	}
	if req.Options != nil {
		field.Options = *req.Options
	}
	field.UpdatedAt = s.now()

	if err := s.fieldRepo.Update(ctx, field); err != nil {
		return nil, fmt.Errorf("failed to update field: %w", err)
	}
	s.schemas.invalidate(ctx, field.FormID)

	s.logger.Info().Str("field_id", id).Msg("Field updated")
	return field, nil
}

// DeleteField removes the definition only; stored submission data keeps the key.
func (s *fieldService) DeleteField(ctx context.Context, id string) error {
	field, err := s.GetField(ctx, id)
	if err != nil {
		return err
	}

	if err := s.fieldRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}
	s.schemas.invalidate(ctx, field.FormID)

	s.logger.Info().
		Str("form_id", field.FormID).
		Str("field_id", id).
		Msg("Field deleted")
	return nil
}

func (s *fieldService) ReorderFields(ctx context.Context, formID string, req *models.ReorderFieldsRequest) ([]models.Field, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.ensureForm(ctx, formID); err != nil {
		return nil, err
	}

	fields, err := s.fieldRepo.GetByFormID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form fields: %w", err)
	}
	owned := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		owned[f.ID] = struct{}{}
	}

	verr := models.NewValidationError()
	for i, id := range req.Fields {
		if _, ok := owned[id]; !ok {
			verr.Add(fmt.Sprintf("fields.%d", i), "The selected field does not belong to this form.")
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.fieldRepo.UpdateOrder(ctx, formID, req.Fields); err != nil {
		return nil, fmt.Errorf("failed to reorder fields: %w", err)
	}
	s.schemas.invalidate(ctx, formID)

	s.logger.Info().
		Str("form_id", formID).
		Int("count", len(req.Fields)).
		Msg("Fields reordered")

	return s.ListFields(ctx, formID)
}

func (s *fieldService) DuplicateField(ctx context.Context, id string) (*models.Field, error) {
	original, err := s.GetField(ctx, id)
	if err != nil {
		return nil, err
	}

	label, name, err := s.copyLabel(ctx, original)
	if err != nil {
		return nil, err
	}

	maxOrder, err := s.fieldRepo.MaxOrder(ctx, original.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to get max field order: %w", err)
	}

	now := s.now()
	dup := *original
	dup.ID = uuid.New().String()
	dup.Label = label
	dup.Name = name
	dup.Options = append([]string(nil), original.Options...)
	dup.Order = maxOrder + 1
	dup.CreatedAt = now
	dup.UpdatedAt = now

	if err := s.fieldRepo.Create(ctx, &dup); err != nil {
		return nil, fmt.Errorf("failed to duplicate field: %w", err)
	}
	s.schemas.invalidate(ctx, original.FormID)

	s.logger.Info().
		Str("field_id", id).
		Str("copy_id", dup.ID).
		Msg("Field duplicated")

	return &dup, nil
}

// copyLabel finds the first " (Copy)", " (Copy 2)", ... label whose derived
// name is still free in the form.
func (s *fieldService) copyLabel(ctx context.Context, original *models.Field) (string, string, error) {
	for n := 1; n <= maxDuplicateAttempts; n++ {
		label := original.Label + " (Copy)"
		if n > 1 {
			label = fmt.Sprintf("%s (Copy %d)", original.Label, n)
		}

		name := models.DeriveFieldName(label)
		exists, err := s.fieldRepo.NameExists(ctx, original.FormID, name, "")
		if err != nil {
			return "", "", fmt.Errorf("failed to check field name: %w", err)
		}
		if !exists {
			return label, name, nil
		}
	}

	verr := models.NewValidationError()
	verr.Add("label", "Too many copies of this field already exist.")
	return "", "", verr
}

// uniqueName derives the field name from label and checks it is free in the
// form, ignoring excludeID.
func (s *fieldService) uniqueName(ctx context.Context, formID, label, excludeID string) (string, error) {
	name := models.DeriveFieldName(label)
	if name == "" {
		verr := models.NewValidationError()
		verr.Add("label", "The label must contain at least one letter or digit.")
		return "", verr
	}

	exists, err := s.fieldRepo.NameExists(ctx, formID, name, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check field name: %w", err)
	}
	if exists {
		verr := models.NewValidationError()
		verr.Add("label", fmt.Sprintf("A field named %q already exists in this form.", name))
		return "", verr
	}
	return name, nil
}

func (s *fieldService) ensureForm(ctx context.Context, formID string) error {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return fmt.Errorf("failed to get form: %w", err)
	}
	if form == nil {
		return models.ErrFormNotFound
	}
	return nil
}
