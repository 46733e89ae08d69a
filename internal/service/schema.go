package service

import (
	"context"
	"fmt"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository"
)

// schemaLoader reads a form with its ordered fields, going through the cache
// first. Every form or field mutation must call invalidate.
type schemaLoader struct {
	formRepo  repository.FormRepository
	fieldRepo repository.FieldRepository
	cache     repository.FormCache
}

func (l *schemaLoader) load(ctx context.Context, formID string) (*models.FormSchema, error) {
	if schema, ok := l.cache.GetSchema(ctx, formID); ok {
		return schema, nil
	}

	form, err := l.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	if form == nil {
		return nil, models.ErrFormNotFound
	}

	fields, err := l.fieldRepo.GetByFormID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form fields: %w", err)
	}

	schema := &models.FormSchema{Form: *form, Fields: fields}
	l.cache.SetSchema(ctx, schema)
	return schema, nil
}

func (l *schemaLoader) invalidate(ctx context.Context, formID string) {
	l.cache.Invalidate(ctx, formID)
}
