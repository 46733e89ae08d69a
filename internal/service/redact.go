package service

import (
	"github.com/aya15elsheikh/forms/internal/models"
)

// URLResolver turns a stored blob path into a public URL.
type URLResolver interface {
	PublicURL(path string) string
}

// Redactor replaces stored file descriptors with their public URL before
// submission data leaves the service.
type Redactor struct {
	urls URLResolver
}

func NewRedactor(urls URLResolver) *Redactor {
	return &Redactor{urls: urls}
}

// Data returns a redacted copy of data. The input map is never modified.
func (r *Redactor) Data(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		obj, ok := value.(map[string]any)
		if !ok {
			out[key] = value
			continue
		}

		path, ok := obj[models.FileKeyPath].(string)
		if !ok {
			out[key] = value
			continue
		}

		redacted := make(map[string]any, len(obj))
		for k, v := range obj {
			switch k {
			case models.FileKeyPath, models.FileKeyOriginalName, models.FileKeySize, models.FileKeyMimeType:
			default:
				redacted[k] = v
			}
		}
		redacted[models.FileKeyURL] = r.urls.PublicURL(path)
		out[key] = redacted
	}
	return out
}

// Submission returns a copy of s with redacted data.
func (r *Redactor) Submission(s models.Submission) models.Submission {
	s.Data = r.Data(s.Data)
	return s
}
