package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/termstore/modules/terminology/domain/events"
	"github.com/iota-uz/termstore/modules/terminology/infrastructure/persistence"
	"github.com/iota-uz/termstore/modules/terminology/services"
	"github.com/iota-uz/termstore/pkg/authz"
	"github.com/iota-uz/termstore/pkg/composables"
	"github.com/iota-uz/termstore/pkg/configuration"
	"github.com/iota-uz/termstore/pkg/database"
	"github.com/iota-uz/termstore/pkg/eventbus"
)

// app wires the terminology services against Postgres and, when enabled, Redis.
type app struct {
	db       *database.DB
	redis    *redis.Client
	bus      eventbus.EventBusWithError
	importer *services.ImportService
	lookup   *services.LookupService
}

func newApp(ctx context.Context, conf *configuration.Configuration) (*app, error) {
	log := composables.UseLogger(ctx)

	db, err := database.Open(ctx, conf.Database)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	a := &app{db: db}

	concepts := persistence.NewConceptRepository()
	properties := persistence.NewPropertyRepository(concepts)
	var systems services.CodeSystemLookup = persistence.NewCodeSystemRepository(properties)
	if conf.Redis.CacheEnabled {
		redisOpts, err := redis.ParseURL(conf.Redis.URL)
		if err != nil {
			a.close()
			return nil, withCode(exitUsage, fmt.Errorf("parse REDIS_URL: %w", err))
		}
		a.redis = redis.NewClient(redisOpts)
		systems = persistence.NewCachedCodeSystemRepository(systems, a.redis, conf.Redis.CacheTTL, log)
	}

	authorizer, err := authz.NewService(authz.DefaultConfig(conf))
	if err != nil {
		a.close()
		return nil, withCode(exitUsage, err)
	}

	a.bus = eventbus.NewEventPublisher(log)
	a.bus.Subscribe(func(e *events.BatchImported) {
		log.WithFields(logrus.Fields{
			"system_url":          e.SystemURL,
			"subject":             e.Subject,
			"concepts_inserted":   e.ConceptsInserted,
			"concepts_updated":    e.ConceptsUpdated,
			"properties_assigned": e.PropertiesAssigned,
			"duration":            e.Duration,
		}).Info("terminology batch imported")
	})

	tx := composables.NewTransactor(db.SQL, conf.Import.StatementTimeout)
	a.importer = services.NewImportService(tx, systems, concepts, properties, authorizer, a.bus, services.ImportConfig{
		MaxBatchSize:     conf.Import.MaxBatchSize,
		DedupeProperties: conf.Import.DedupeProperties,
	})
	a.lookup = services.NewLookupService(tx, systems, concepts, properties)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}
