//go:build integration

package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"disciplina/internal/complaint/engine"
	"disciplina/internal/complaint/models"
	"disciplina/internal/platform/redis"
	"disciplina/pkg/testutil/containers"
)

type CatalogCacheSuite struct {
	suite.Suite
	client  *redis.Client
	catalog *Catalog
}

func TestCatalogCacheSuite(t *testing.T) {
	suite.Run(t, new(CatalogCacheSuite))
}

func (s *CatalogCacheSuite) SetupSuite() {
	rc := containers.GetManager().GetRedis(s.T())
	s.client = &redis.Client{Client: rc.Client}
	s.catalog = New(engine.New(), s.client, slog.Default())
}

func (s *CatalogCacheSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushDB(context.Background()).Err())
}

func (s *CatalogCacheSuite) TestForCachesPerVersion() {
	ctx := context.Background()
	c := caseInStatus(s.T(), models.Article30, models.StatusUnderHRReview)

	first := s.catalog.For(ctx, ctxFor(c))
	require.NotEmpty(s.T(), first)

	keys, err := s.client.Keys(ctx, "disciplina:actions:*").Result()
	require.NoError(s.T(), err)
	require.Len(s.T(), keys, 1)
	assert.Contains(s.T(), keys[0], c.ID.String())

	// A second read for the same version serves the cached list.
	assert.Equal(s.T(), first, s.catalog.For(ctx, ctxFor(c)))

	// Bumping the version misses the old key and writes a fresh one.
	c.Version++
	s.catalog.For(ctx, ctxFor(c))
	keys, err = s.client.Keys(ctx, "disciplina:actions:*").Result()
	require.NoError(s.T(), err)
	assert.Len(s.T(), keys, 2)
}

func (s *CatalogCacheSuite) TestInvalidateDropsKey() {
	ctx := context.Background()
	c := caseInStatus(s.T(), models.Article31, models.StatusUnderHRReview)

	s.catalog.For(ctx, ctxFor(c))
	s.catalog.Invalidate(ctx, c.ID, c.Version)

	keys, err := s.client.Keys(ctx, "disciplina:actions:*").Result()
	require.NoError(s.T(), err)
	assert.Empty(s.T(), keys)
}

func (s *CatalogCacheSuite) TestCorruptEntryFallsBack() {
	ctx := context.Background()
	c := caseInStatus(s.T(), models.Article31, models.StatusUnderHRReview)

	key := cacheKey(c)
	require.NoError(s.T(), s.client.Set(ctx, key, "{not json", 0).Err())

	got := s.catalog.For(ctx, ctxFor(c))
	assert.NotEmpty(s.T(), got)
}
