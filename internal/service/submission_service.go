package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository"
	"github.com/aya15elsheikh/forms/internal/service/integration"
)

type SubmissionService interface {
	Submit(ctx context.Context, formID string, in *models.SubmissionInput) (*models.SubmitResponse, error)
	ListSubmissions(ctx context.Context, formID string, page, perPage int) (*models.SubmissionsResponse, error)
	GetPublicSubmission(ctx context.Context, formID, submissionID string) (*models.PublicSubmissionResponse, error)
}

type SubmissionConfig struct {
	UploadPrefix    string
	MaxFileSize     int64
	DefaultPageSize int
	MaxPageSize     int
}

type submissionService struct {
	submissionRepo repository.SubmissionRepository
	schemas        *schemaLoader
	blobs          repository.BlobStore
	publisher      integration.EventPublisher
	redactor       *Redactor
	cfg            SubmissionConfig
	now            func() time.Time
	logger         zerolog.Logger
}

func NewSubmissionService(
	formRepo repository.FormRepository,
	fieldRepo repository.FieldRepository,
	submissionRepo repository.SubmissionRepository,
	cache repository.FormCache,
	blobs repository.BlobStore,
	publisher integration.EventPublisher,
	cfg SubmissionConfig,
	logger zerolog.Logger,
) SubmissionService {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	return &submissionService{
		submissionRepo: submissionRepo,
		schemas:        &schemaLoader{formRepo: formRepo, fieldRepo: fieldRepo, cache: cache},
		blobs:          blobs,
		publisher:      publisher,
		redactor:       NewRedactor(blobs),
		cfg:            cfg,
		now:            time.Now,
		logger:         logger,
	}
}

func (s *submissionService) Submit(ctx context.Context, formID string, in *models.SubmissionInput) (*models.SubmitResponse, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !schema.Form.IsOpen(now) {
		return nil, models.ErrFormClosed
	}

	rules := BuildRules(schema.Fields, RuleLimits{MaxFileSize: s.cfg.MaxFileSize})
	if err := rules.Validate(in); err != nil {
		return nil, err
	}

	data, stored, err := s.extract(ctx, schema.Fields, in, now)
	if err != nil {
		s.removeBlobs(stored)
		return nil, err
	}

	submission := &models.Submission{
		ID:           uuid.New().String(),
		FormID:       formID,
		StudentEmail: strings.TrimSpace(stringValue(in.Values[StudentEmailKey])),
		StudentName:  optionalString(in.Values[StudentNameKey]),
		Data:         data,
		SubmittedAt:  now,
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		s.removeBlobs(stored)
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info().
		Str("form_id", formID).
		Str("submission_id", submission.ID).
		Int("files", len(stored)).
		Msg("Submission stored")

	event := &models.SubmissionCreatedEvent{
		SubmissionID: submission.ID,
		FormID:       formID,
		StudentEmail: submission.StudentEmail,
		Timestamp:    now.Unix(),
	}
	if err := s.publisher.PublishSubmissionCreated(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("submission_id", submission.ID).
			Msg("Failed to publish submission created event")
	}

	return &models.SubmitResponse{
		SubmissionID: submission.ID,
		SubmittedAt:  submission.SubmittedAt,
	}, nil
}

// extract builds the stored data map in a single pass over the fields,
// uploading files as it goes. It returns the blob keys written so far even on
// error so the caller can remove them.
func (s *submissionService) extract(ctx context.Context, fields []models.Field, in *models.SubmissionInput, now time.Time) (map[string]any, []string, error) {
	data := make(map[string]any, len(fields))
	var stored []string

	for _, field := range fields {
		if field.Type != models.FieldTypeFile {
			data[field.Name] = storedValue(field, in.Values[field.Name])
			continue
		}

		file := in.Files[field.Name]
		if file == nil {
			data[field.Name] = nil
			continue
		}

		desc, err := s.upload(ctx, file, now)
		if err != nil {
			return nil, stored, fmt.Errorf("failed to store %s upload: %w", field.Name, err)
		}
		stored = append(stored, desc.Path)
		data[field.Name] = desc.AsMap()
	}

	return data, stored, nil
}

func (s *submissionService) upload(ctx context.Context, file *models.UploadedFile, now time.Time) (*models.FileDescriptor, error) {
	original := path.Base(strings.ReplaceAll(file.FileName, "\\", "/"))
	// Several file fields of one submission may carry the same original name.
	key := fmt.Sprintf("%d_%s_%s", now.UnixNano(), uuid.NewString()[:8], original)
	if s.cfg.UploadPrefix != "" {
		key = strings.TrimSuffix(s.cfg.UploadPrefix, "/") + "/" + key
	}

	mimeType := file.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(file.Content).String()
	}

	if err := s.blobs.Put(ctx, key, bytes.NewReader(file.Content), int64(len(file.Content)), mimeType); err != nil {
		return nil, err
	}

	return &models.FileDescriptor{
		OriginalName: file.FileName,
		Path:         key,
		Size:         file.Size,
		MimeType:     mimeType,
	}, nil
}

// storedValue normalises a validated value before it is stored. Number fields
// hold a float64 whether the client sent a JSON number or a numeric string.
func storedValue(field models.Field, value any) any {
	if field.Type == models.FieldTypeNumber && !isEmpty(value) {
		if n, ok := toNumber(value); ok {
			return n
		}
	}
	return value
}

// removeBlobs is best effort; it runs after the request context may be gone.
func (s *submissionService) removeBlobs(keys []string) {
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("path", key).Msg("Failed to remove orphaned upload")
		}
	}
}

func (s *submissionService) ListSubmissions(ctx context.Context, formID string, page, perPage int) (*models.SubmissionsResponse, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = s.cfg.DefaultPageSize
	}
	if perPage > s.cfg.MaxPageSize {
		perPage = s.cfg.MaxPageSize
	}
	offset := (page - 1) * perPage

	submissions, total, err := s.submissionRepo.GetByFormID(ctx, formID, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	for i := range submissions {
		submissions[i] = s.redactor.Submission(submissions[i])
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	return &models.SubmissionsResponse{
		Form: models.FormSummary{
			ID:     schema.Form.ID,
			Title:  schema.Form.Title,
			Fields: schema.Fields,
		},
		Submissions: submissions,
		Total:       total,
		Page:        page,
		PerPage:     perPage,
		LastPage:    lastPage,
	}, nil
}

func (s *submissionService) GetPublicSubmission(ctx context.Context, formID, submissionID string) (*models.PublicSubmissionResponse, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	submission, err := s.submissionRepo.GetByID(ctx, formID, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, models.ErrSubmissionNotFound
	}

	return &models.PublicSubmissionResponse{
		ID:           submission.ID,
		StudentEmail: submission.StudentEmail,
		StudentName:  submission.StudentName,
		FormData:     s.redactor.Data(submission.Data),
		SubmittedAt:  submission.SubmittedAt,
		Form: models.FormSummary{
			ID:    schema.Form.ID,
			Title: schema.Form.Title,
		},
	}, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func optionalString(v any) *string {
	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		return nil
	}
	return &s
}
