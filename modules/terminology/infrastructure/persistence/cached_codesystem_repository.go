package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/infrastructure/persistence/models"
	"github.com/iota-uz/termstore/pkg/repo"
)

const codeSystemCachePrefix = "termstore:codesystem:"

// CodeSystemGetter is the lookup being cached.
type CodeSystemGetter interface {
	GetByURL(ctx context.Context, tx repo.Tx, url string) (*codesystem.CodeSystem, error)
}

// CachedCodeSystemRepository keeps code-system metadata in Redis for ttl.
// Redis failures degrade to the wrapped lookup.
type CachedCodeSystemRepository struct {
	next   CodeSystemGetter
	client redis.Cmdable
	ttl    time.Duration
	logger *logrus.Entry
}

func NewCachedCodeSystemRepository(next CodeSystemGetter, client redis.Cmdable, ttl time.Duration, logger *logrus.Entry) *CachedCodeSystemRepository {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CachedCodeSystemRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "codesystem-cache"),
	}
}

func cacheKey(url string) string {
	return codeSystemCachePrefix + url
}

func (r *CachedCodeSystemRepository) GetByURL(ctx context.Context, tx repo.Tx, url string) (*codesystem.CodeSystem, error) {
	data, err := r.client.Get(ctx, cacheKey(url)).Bytes()
	switch {
	case err == nil:
		var cached models.CachedCodeSystem
		uErr := json.Unmarshal(data, &cached)
		if uErr == nil {
			return FromCachedCodeSystem(cached), nil
		}
		r.logger.WithError(uErr).WithField("url", url).Warn("discarding corrupt cache entry")
	case !errors.Is(err, redis.Nil):
		r.logger.WithError(err).WithField("url", url).Warn("cache read failed")
	}

	cs, err := r.next.GetByURL(ctx, tx, url)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ToCachedCodeSystem(cs))
	if err != nil {
		return nil, errors.Wrap(err, "encode code system")
	}
	if err := r.client.Set(ctx, cacheKey(url), payload, r.ttl).Err(); err != nil {
		r.logger.WithError(err).WithField("url", url).Warn("cache write failed")
	}
	return cs, nil
}

// Invalidate drops the cached entry for url.
func (r *CachedCodeSystemRepository) Invalidate(ctx context.Context, url string) error {
	if err := r.client.Del(ctx, cacheKey(url)).Err(); err != nil {
		return errors.Wrap(err, "invalidate code system cache")
	}
	return nil
}
