package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aya15elsheikh/forms/internal/models"
)

// FormCache holds form schemas for the public endpoints. Implementations
// swallow their own failures: a cache miss is always safe.
type FormCache interface {
	GetSchema(ctx context.Context, formID string) (*models.FormSchema, bool)
	SetSchema(ctx context.Context, schema *models.FormSchema)
	Invalidate(ctx context.Context, formID string)
}

type redisFormCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisFormCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) FormCache {
	return &redisFormCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func schemaKey(formID string) string {
	return "forms:schema:" + formID
}

func (c *redisFormCache) GetSchema(ctx context.Context, formID string) (*models.FormSchema, bool) {
	raw, err := c.client.Get(ctx, schemaKey(formID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("form_id", formID).Msg("Form cache read failed")
		}
		return nil, false
	}

	var schema models.FormSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		c.logger.Warn().Err(err).Str("form_id", formID).Msg("Dropping undecodable cached schema")
		c.Invalidate(ctx, formID)
		return nil, false
	}
	return &schema, true
}

func (c *redisFormCache) SetSchema(ctx context.Context, schema *models.FormSchema) {
	raw, err := json.Marshal(schema)
	if err != nil {
		c.logger.Warn().Err(err).Str("form_id", schema.Form.ID).Msg("Failed to encode schema for cache")
		return
	}
	if err := c.client.Set(ctx, schemaKey(schema.Form.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("form_id", schema.Form.ID).Msg("Form cache write failed")
	}
}

func (c *redisFormCache) Invalidate(ctx context.Context, formID string) {
	if err := c.client.Del(ctx, schemaKey(formID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("form_id", formID).Msg("Form cache invalidation failed")
	}
}

type nopFormCache struct{}

// NewNopFormCache is used when redis is disabled.
func NewNopFormCache() FormCache {
	return nopFormCache{}
}

func (nopFormCache) GetSchema(context.Context, string) (*models.FormSchema, bool) { return nil, false }
func (nopFormCache) SetSchema(context.Context, *models.FormSchema)                {}
func (nopFormCache) Invalidate(context.Context, string)                           {}
