package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/pkg/repo"
)

type countingGetter struct {
	cs    *codesystem.CodeSystem
	err   error
	calls int
}

func (g *countingGetter) GetByURL(_ context.Context, _ repo.Tx, _ string) (*codesystem.CodeSystem, error) {
	g.calls++
	return g.cs, g.err
}

func newCachedRepo(t *testing.T, next CodeSystemGetter) (*CachedCodeSystemRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedCodeSystemRepository(next, client, time.Minute, nil), mr
}

func demoSystem() *codesystem.CodeSystem {
	id := uuid.New()
	return &codesystem.CodeSystem{
		ID:    id,
		URL:   "http://example.org/cs/demo",
		Name:  "demo",
		Title: "Demo",
		Properties: []property.Definition{
			{ID: uuid.New(), SystemID: id, Code: "parent", Type: property.TypeCode, URI: property.ParentURI},
		},
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

func TestCachedCodeSystemRepository_MissThenHit(t *testing.T) {
	ctx := context.Background()
	cs := demoSystem()
	next := &countingGetter{cs: cs}
	r, mr := newCachedRepo(t, next)

	got, err := r.GetByURL(ctx, nil, cs.URL)
	require.NoError(t, err)
	assert.Equal(t, cs.ID, got.ID)
	assert.True(t, mr.Exists(cacheKey(cs.URL)))
	assert.Equal(t, time.Minute, mr.TTL(cacheKey(cs.URL)))

	got, err = r.GetByURL(ctx, nil, cs.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, cs.URL, got.URL)
	require.Len(t, got.Properties, 1)
	assert.Equal(t, cs.ID, got.Properties[0].SystemID)
	assert.Equal(t, property.KindConceptReference, got.Properties[0].Kind())
}

func TestCachedCodeSystemRepository_CorruptEntry(t *testing.T) {
	cs := demoSystem()
	next := &countingGetter{cs: cs}
	r, mr := newCachedRepo(t, next)
	require.NoError(t, mr.Set(cacheKey(cs.URL), "{not json"))

	got, err := r.GetByURL(context.Background(), nil, cs.URL)
	require.NoError(t, err)
	assert.Equal(t, cs.ID, got.ID)
	assert.Equal(t, 1, next.calls)
}

func TestCachedCodeSystemRepository_RedisDown(t *testing.T) {
	cs := demoSystem()
	next := &countingGetter{cs: cs}
	r, mr := newCachedRepo(t, next)
	mr.Close()

	got, err := r.GetByURL(context.Background(), nil, cs.URL)
	require.NoError(t, err)
	assert.Equal(t, cs.ID, got.ID)
}

func TestCachedCodeSystemRepository_NotFoundIsNotCached(t *testing.T) {
	next := &countingGetter{err: codesystem.ErrNotFound}
	r, mr := newCachedRepo(t, next)

	_, err := r.GetByURL(context.Background(), nil, "http://example.org/missing")
	require.True(t, errors.Is(err, codesystem.ErrNotFound))
	assert.False(t, mr.Exists(cacheKey("http://example.org/missing")))
}

func TestCachedCodeSystemRepository_Invalidate(t *testing.T) {
	ctx := context.Background()
	cs := demoSystem()
	next := &countingGetter{cs: cs}
	r, mr := newCachedRepo(t, next)

	_, err := r.GetByURL(ctx, nil, cs.URL)
	require.NoError(t, err)
	require.NoError(t, r.Invalidate(ctx, cs.URL))
	assert.False(t, mr.Exists(cacheKey(cs.URL)))

	_, err = r.GetByURL(ctx, nil, cs.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
