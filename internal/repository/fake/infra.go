package fake

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/aya15elsheikh/forms/internal/models"
)

// BlobStore keeps objects in a map.
type BlobStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	BaseURL string
	PutErr  error
}

func NewBlobStore() *BlobStore {
	return &BlobStore{
		Objects: map[string][]byte{},
		Types:   map[string]string{},
		BaseURL: "http://files.test",
	}
}

func (b *BlobStore) Put(_ context.Context, key string, data io.Reader, _ int64, contentType string) error {
	if b.PutErr != nil {
		return b.PutErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Objects[key] = content
	b.Types[key] = contentType
	return nil
}

func (b *BlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Objects, key)
	delete(b.Types, key)
	return nil
}

func (b *BlobStore) PublicURL(key string) string {
	return b.BaseURL + "/" + key
}

func (b *BlobStore) Ready(context.Context) error { return nil }

func (b *BlobStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Objects)
}

// FormCache is a map-backed schema cache that counts invalidations.
type FormCache struct {
	mu            sync.Mutex
	schemas       map[string]models.FormSchema
	Invalidations int
}

func NewFormCache() *FormCache {
	return &FormCache{schemas: map[string]models.FormSchema{}}
}

func (c *FormCache) GetSchema(_ context.Context, formID string) (*models.FormSchema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.schemas[formID]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (c *FormCache) SetSchema(_ context.Context, schema *models.FormSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[schema.Form.ID] = *schema
}

func (c *FormCache) Invalidate(_ context.Context, formID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.schemas, formID)
	c.Invalidations++
}

var ErrPublish = errors.New("publish failed")

// Publisher records published events.
type Publisher struct {
	mu       sync.Mutex
	Created  []models.SubmissionCreatedEvent
	Imported []models.SubmissionsImportedEvent
	Fail     bool
}

func (p *Publisher) PublishSubmissionCreated(_ context.Context, event *models.SubmissionCreatedEvent) error {
	if p.Fail {
		return ErrPublish
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Created = append(p.Created, *event)
	return nil
}

func (p *Publisher) PublishSubmissionsImported(_ context.Context, event *models.SubmissionsImportedEvent) error {
	if p.Fail {
		return ErrPublish
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Imported = append(p.Imported, *event)
	return nil
}

func (p *Publisher) Close() error { return nil }
