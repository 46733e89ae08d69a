package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
	"github.com/aya15elsheikh/forms/internal/repository"
	"github.com/aya15elsheikh/forms/internal/service/integration"
	"github.com/aya15elsheikh/forms/pkg/spreadsheet"
)

const (
	exportSheetName = "Submissions"

	headerSubmissionID = "Submission ID"
	headerStudentName  = "Student Name"
	headerStudentEmail = "Student Email"

	importDefaultName  = "Imported"
	importDefaultEmail = "noemail@example.com"
)

type ExportService interface {
	ExportSubmissions(ctx context.Context, formID string) (*models.ExportResponse, error)
	ExportSubmissionsExcel(ctx context.Context, formID string) (*models.ExcelExport, error)
	ImportSubmissionsExcel(ctx context.Context, formID string, r io.Reader) (*models.ImportResponse, error)
}

type exportService struct {
	submissionRepo repository.SubmissionRepository
	schemas        *schemaLoader
	publisher      integration.EventPublisher
	redactor       *Redactor
	now            func() time.Time
	logger         zerolog.Logger
}

func NewExportService(
	formRepo repository.FormRepository,
	fieldRepo repository.FieldRepository,
	submissionRepo repository.SubmissionRepository,
	cache repository.FormCache,
	urls URLResolver,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) ExportService {
	return &exportService{
		submissionRepo: submissionRepo,
		schemas:        &schemaLoader{formRepo: formRepo, fieldRepo: fieldRepo, cache: cache},
		publisher:      publisher,
		redactor:       NewRedactor(urls),
		now:            time.Now,
		logger:         logger,
	}
}

func (s *exportService) ExportSubmissions(ctx context.Context, formID string) (*models.ExportResponse, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissionRepo.GetAllByFormID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}

	exported := make([]models.ExportedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		exported = append(exported, models.ExportedSubmission{
			ID:           sub.ID,
			StudentName:  sub.StudentName,
			StudentEmail: sub.StudentEmail,
			Data:         s.redactor.Data(sub.Data),
			SubmittedAt:  sub.SubmittedAt,
		})
	}

	return &models.ExportResponse{
		FormTitle:   schema.Form.Title,
		Submissions: exported,
	}, nil
}

func (s *exportService) ExportSubmissionsExcel(ctx context.Context, formID string) (*models.ExcelExport, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissionRepo.GetAllByFormID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}

	header := []string{headerSubmissionID, headerStudentName, headerStudentEmail}
	for _, f := range schema.Fields {
		header = append(header, f.Label)
	}

	rows := make([][]string, 0, len(submissions)+1)
	rows = append(rows, header)
	for _, sub := range submissions {
		data := s.redactor.Data(sub.Data)

		row := make([]string, 0, len(header))
		row = append(row, sub.ID, stringOrEmpty(sub.StudentName), sub.StudentEmail)
		for _, f := range schema.Fields {
			row = append(row, flattenValue(data[f.Name]))
		}
		rows = append(rows, row)
	}

	content, err := spreadsheet.Write(exportSheetName, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}

	s.logger.Info().
		Str("form_id", formID).
		Int("rows", len(submissions)).
		Msg("Submissions exported")

	return &models.ExcelExport{
		FileName: exportFileName(schema.Form.Title),
		Content:  content,
	}, nil
}

// ImportSubmissionsExcel stores one submission per non-blank data row. Either
// every row is stored or none is.
func (s *exportService) ImportSubmissionsExcel(ctx context.Context, formID string, r io.Reader) (*models.ImportResponse, error) {
	schema, err := s.schemas.load(ctx, formID)
	if err != nil {
		return nil, err
	}

	rows, err := spreadsheet.Read(r)
	if err != nil {
		return nil, &models.ImportError{Message: "the file could not be read as an xlsx workbook", Cause: err}
	}
	if len(rows) == 0 {
		return nil, &models.ImportError{Message: "the workbook has no header row"}
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if _, dup := columns[h]; !dup && h != "" {
			columns[h] = i
		}
	}

	cell := func(row []string, header string) string {
		i, ok := columns[header]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	now := s.now()
	submissions := make([]*models.Submission, 0, len(rows)-1)
	rowNumbers := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		name := cell(row, headerStudentName)
		if name == "" {
			name = importDefaultName
		}
		email := cell(row, headerStudentEmail)
		if email == "" {
			email = importDefaultEmail
		}

		data := make(map[string]any, len(schema.Fields))
		for _, f := range schema.Fields {
			data[f.Name] = importValue(f, cell(row, strings.TrimSpace(f.Label)))
		}

		submissions = append(submissions, &models.Submission{
			ID:           uuid.New().String(),
			FormID:       formID,
			StudentEmail: email,
			StudentName:  &name,
			Data:         data,
			SubmittedAt:  now,
		})
		// Spreadsheet rows are 1-based and row 1 is the header.
		rowNumbers = append(rowNumbers, i+2)
	}

	if len(submissions) > 0 {
		if err := s.submissionRepo.CreateBatch(ctx, submissions); err != nil {
			var batchErr *repository.BatchError
			if errors.As(err, &batchErr) && batchErr.Index < len(rowNumbers) {
				return nil, &models.ImportError{
					Row:     rowNumbers[batchErr.Index],
					Message: "the row could not be stored",
					Cause:   batchErr.Err,
				}
			}
			return nil, &models.ImportError{Message: "the submissions could not be stored", Cause: err}
		}
	}

	s.logger.Info().
		Str("form_id", formID).
		Int("imported", len(submissions)).
		Msg("Submissions imported")

	if len(submissions) > 0 {
		event := &models.SubmissionsImportedEvent{
			FormID:    formID,
			Count:     len(submissions),
			Timestamp: now.Unix(),
		}
		if err := s.publisher.PublishSubmissionsImported(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("form_id", formID).Msg("Failed to publish submissions imported event")
		}
	}

	return &models.ImportResponse{Imported: len(submissions)}, nil
}

// importValue maps a cell back to stored data. Checkbox cells are the
// ", "-joined export of a list.
func importValue(field models.Field, cell string) any {
	if cell == "" {
		return nil
	}
	switch field.Type {
	case models.FieldTypeCheckbox:
		return splitCheckboxCell(cell, field.TrimmedOptions())
	case models.FieldTypeNumber:
		return storedValue(field, cell)
	default:
		return cell
	}
}

// splitCheckboxCell rebuilds the selected items of a checkbox cell. Options
// may contain commas, so the cell is matched against them longest first and
// only unmatched text is split on ",".
func splitCheckboxCell(cell string, options []string) []any {
	sorted := slices.Clone(options)
	slices.SortStableFunc(sorted, func(a, b string) int { return cmp.Compare(len(b), len(a)) })

	items := []any{}
	rest := cell
	for {
		rest = strings.TrimLeft(rest, " ,")
		if rest == "" {
			return items
		}

		item := matchOption(rest, sorted)
		if item == "" {
			item = rest
			if i := strings.Index(rest, ","); i >= 0 {
				item = rest[:i]
			}
		}
		rest = rest[len(item):]

		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
}

// matchOption returns the first option that is a whole item at the start of s.
func matchOption(s string, options []string) string {
	for _, opt := range options {
		if opt == "" || !strings.HasPrefix(s, opt) {
			continue
		}
		after := strings.TrimLeft(s[len(opt):], " ")
		if after == "" || strings.HasPrefix(after, ",") {
			return opt
		}
	}
	return ""
}

// flattenValue renders a stored (already redacted) data value as one cell.
func flattenValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "[") {
			var items []any
			if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
				return joinValues(items)
			}
		}
		return val
	case []any:
		return joinValues(val)
	case []string:
		return strings.Join(val, ", ")
	case map[string]any:
		if url, ok := val[models.FileKeyURL].(string); ok {
			return url
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(encoded)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func joinValues(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, flattenValue(item))
	}
	return strings.Join(parts, ", ")
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exportFileName keeps the title readable while dropping characters that
// break a Content-Disposition header or a file system path.
func exportFileName(title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|', '\n', '\r':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if clean == "" {
		clean = "form"
	}
	return clean + "_submissions.xlsx"
}
