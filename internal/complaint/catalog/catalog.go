// Package catalog derives the advisory action list for a case from the
// engine's transition table. The list is a UI convenience only; the engine
// re-validates every submission, so serving a stale list is harmless.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"disciplina/internal/complaint/engine"
	"disciplina/internal/complaint/models"
	"disciplina/internal/platform/redis"
	id "disciplina/pkg/domain"
)

// cacheTTL bounds staleness for callers that read the catalog through a
// different node than the one that last transitioned the case. Keys are
// version-scoped, so the TTL only limits garbage, not correctness.
const cacheTTL = 10 * time.Minute

// ActionDescriptor describes one action currently offered for a case.
type ActionDescriptor struct {
	Action         models.Action `json:"action"`
	NextStatus     models.Status `json:"next_status"`
	RequiredFields []string      `json:"required_fields,omitempty"`
	Variant        string        `json:"variant"`
}

// Catalog computes descriptor lists, optionally memoizing them in redis.
// A nil redis client disables caching entirely.
type Catalog struct {
	engine *engine.Engine
	cache  *redis.Client
	logger *slog.Logger
}

func New(e *engine.Engine, cache *redis.Client, logger *slog.Logger) *Catalog {
	return &Catalog{engine: e, cache: cache, logger: logger}
}

// For returns the actions offered for the case described by ec, in table
// declaration order. Guard-style offers (deadline elapsed, finding value,
// open appeal) are evaluated against the supplied context.
func (c *Catalog) For(ctx context.Context, ec *engine.Context) []ActionDescriptor {
	if cached, ok := c.fromCache(ctx, ec.Case); ok {
		return cached
	}

	descriptors := []ActionDescriptor{}
	for _, rule := range c.engine.Rules(ec.Case.Status) {
		if !rule.Offered(ec) {
			continue
		}
		descriptors = append(descriptors, ActionDescriptor{
			Action:         rule.Action,
			NextStatus:     rule.Next,
			RequiredFields: rule.RequiredFields,
			Variant:        rule.Variant,
		})
	}

	c.toCache(ctx, ec.Case, descriptors)
	return descriptors
}

// Invalidate drops the cached list for a case. The service calls it after
// every accepted transition; because keys are version-scoped this is an
// optimization, not a correctness requirement.
func (c *Catalog) Invalidate(ctx context.Context, caseID id.CaseID, version int) {
	if c.cache == nil {
		return
	}
	key := fmt.Sprintf("disciplina:actions:%s:v%d", caseID, version)
	if err := c.cache.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("action cache invalidation failed", "case_id", caseID, "error", err)
	}
}

func cacheKey(cs *models.Case) string {
	return fmt.Sprintf("disciplina:actions:%s:v%d", cs.ID, cs.Version)
}

func (c *Catalog) fromCache(ctx context.Context, cs *models.Case) ([]ActionDescriptor, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, cacheKey(cs)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("action cache read failed", "case_id", cs.ID, "error", err)
		}
		return nil, false
	}
	var descriptors []ActionDescriptor
	if err := json.Unmarshal(raw, &descriptors); err != nil {
		c.logger.Warn("action cache entry corrupt", "case_id", cs.ID, "error", err)
		return nil, false
	}
	return descriptors, true
}

func (c *Catalog) toCache(ctx context.Context, cs *models.Case, descriptors []ActionDescriptor) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(descriptors)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(cs), raw, cacheTTL).Err(); err != nil {
		c.logger.Warn("action cache write failed", "case_id", cs.ID, "error", err)
	}
}
