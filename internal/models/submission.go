package models

import (
	"time"
)

// Keys of a stored file descriptor inside submission data.
const (
	FileKeyPath         = "path"
	FileKeyOriginalName = "original_name"
	FileKeySize         = "size"
	FileKeyMimeType     = "mime_type"
	FileKeyURL          = "url"
)

type Submission struct {
	ID           string         `json:"id" db:"id"`
	FormID       string         `json:"form_id" db:"form_id"`
	StudentEmail string         `json:"student_email" db:"student_email"`
	StudentName  *string        `json:"student_name" db:"student_name"`
	Data         map[string]any `json:"data" db:"data"`
	SubmittedAt  time.Time      `json:"submitted_at" db:"submitted_at"`
}

// FileDescriptor is what a file field stores after its upload was written to
// the blob store.
type FileDescriptor struct {
	OriginalName string `json:"original_name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
}

// AsMap returns the descriptor in the same shape it has after a JSONB round trip.
func (d FileDescriptor) AsMap() map[string]any {
	return map[string]any{
		FileKeyOriginalName: d.OriginalName,
		FileKeyPath:         d.Path,
		FileKeySize:         d.Size,
		FileKeyMimeType:     d.MimeType,
	}
}

// UploadedFile is a file part of a public submission, already read into memory
// (uploads are bounded by storage.max_file_size).
type UploadedFile struct {
	FileName    string
	ContentType string
	Size        int64
	Content     []byte
}
