package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/termstore/modules/terminology/domain/codesystem"
	"github.com/iota-uz/termstore/modules/terminology/domain/concept"
	"github.com/iota-uz/termstore/modules/terminology/domain/events"
	"github.com/iota-uz/termstore/modules/terminology/domain/property"
	"github.com/iota-uz/termstore/pkg/authz"
	"github.com/iota-uz/termstore/pkg/composables"
	"github.com/iota-uz/termstore/pkg/constants"
	"github.com/iota-uz/termstore/pkg/eventbus"
	"github.com/iota-uz/termstore/pkg/repo"
)

type State string

const (
	StateValidating     State = "validating"
	StateAccessChecking State = "access_checking"
	StateApplying       State = "applying"
	StateCommitted      State = "committed"
	StateRejected       State = "rejected"
	// StateDryRun marks a batch that applied cleanly and was rolled back on request.
	StateDryRun State = "dry_run"
)

const DefaultMaxBatchSize = 10000

var errDryRun = errors.New("dry run rollback")

type CodeSystemLookup interface {
	GetByURL(ctx context.Context, tx repo.Tx, url string) (*codesystem.CodeSystem, error)
}

type ConceptStore interface {
	FindByCode(ctx context.Context, tx repo.Tx, systemID uuid.UUID, code string) (*concept.Concept, error)
	Upsert(ctx context.Context, tx repo.Tx, u concept.Upsert) (*concept.UpsertResult, error)
}

type PropertyStore interface {
	ResolveDefinition(ctx context.Context, tx repo.Tx, systemID uuid.UUID, code string) (*property.Definition, error)
	Assign(ctx context.Context, tx repo.Tx, subject *concept.Concept, def *property.Definition, rawValue string) (*property.Assignment, error)
	Exists(ctx context.Context, tx repo.Tx, a *property.Assignment) (bool, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, req authz.Request) error
}

type ConceptItem struct {
	Code      string `json:"code" yaml:"code" validate:"required"`
	Display   string `json:"display" yaml:"display"`
	IsSynonym bool   `json:"synonym,omitempty" yaml:"synonym"`
}

type PropertyItem struct {
	Subject  string `json:"subject" yaml:"subject" validate:"required"`
	Property string `json:"property" yaml:"property" validate:"required"`
	// Value is a literal or, for concept-reference properties, a code in the same system.
	Value string `json:"value" yaml:"value"`
}

type ImportRequest struct {
	SystemURL  string         `json:"system" yaml:"system"`
	Concepts   []ConceptItem  `json:"concepts" yaml:"concepts"`
	Properties []PropertyItem `json:"properties" yaml:"properties"`
	// DryRun applies the batch and rolls it back instead of committing.
	DryRun bool `json:"-" yaml:"-"`
}

func (r *ImportRequest) Normalize() {
	r.SystemURL = strings.TrimSpace(r.SystemURL)
	for i := range r.Concepts {
		r.Concepts[i].Code = strings.TrimSpace(r.Concepts[i].Code)
	}
	for i := range r.Properties {
		r.Properties[i].Subject = strings.TrimSpace(r.Properties[i].Subject)
		r.Properties[i].Property = strings.TrimSpace(r.Properties[i].Property)
	}
}

type ImportResult struct {
	State              State     `json:"state"`
	SystemID           uuid.UUID `json:"system_id"`
	ConceptsInserted   int       `json:"concepts_inserted"`
	ConceptsUpdated    int       `json:"concepts_updated"`
	ConceptsUnchanged  int       `json:"concepts_unchanged"`
	PropertiesAssigned int       `json:"properties_assigned"`
	PropertiesSkipped  int       `json:"properties_skipped"`
}

type ImportConfig struct {
	MaxBatchSize int
	// DedupeProperties skips property items identical to a stored assignment.
	DedupeProperties bool
}

type ImportService struct {
	tx         repo.Transactor
	systems    CodeSystemLookup
	concepts   ConceptStore
	properties PropertyStore
	authorizer Authorizer
	publisher  eventbus.EventBus
	cfg        ImportConfig
}

func NewImportService(
	tx repo.Transactor,
	systems CodeSystemLookup,
	concepts ConceptStore,
	properties PropertyStore,
	authorizer Authorizer,
	publisher eventbus.EventBus,
	cfg ImportConfig,
) *ImportService {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	return &ImportService{
		tx:         tx,
		systems:    systems,
		concepts:   concepts,
		properties: properties,
		authorizer: authorizer,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// Import validates and applies one batch in a single transaction. Any
// failure rolls back every write of the batch and is returned as *ImportError.
func (s *ImportService) Import(ctx context.Context, identity Identity, req ImportRequest) (*ImportResult, error) {
	start := time.Now()
	req.Normalize()
	log := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"component":  "terminology.import",
		"system_url": req.SystemURL,
		"subject":    identity.Subject(),
		"concepts":   len(req.Concepts),
		"properties": len(req.Properties),
		"dry_run":    req.DryRun,
	})

	b := &batch{
		svc:      s,
		identity: identity,
		req:      req,
		state:    StateValidating,
		result:   &ImportResult{},
		known:    make(map[string]*concept.Concept, len(req.Concepts)),
		defs:     make(map[string]*property.Definition),
		log:      log,
	}

	err := b.precheck()
	if err == nil {
		err = s.tx.InTx(ctx, b.run)
	}
	if req.DryRun && errors.Is(err, errDryRun) {
		b.result.State = StateDryRun
		recordBatch(string(StateDryRun), time.Since(start))
		log.WithFields(b.fields()).Info("terminology batch validated (dry run)")
		return b.result, nil
	}
	if err != nil {
		ie := classify(err, "")
		if ie.Stage == "" {
			ie.Stage = b.state
		}
		recordBatch(string(StateRejected), time.Since(start))
		entry := log.WithError(err).WithFields(logrus.Fields{"kind": ie.Kind, "stage": ie.Stage, "value": ie.Value})
		if ie.Kind == KindInternal {
			entry.Error("terminology batch failed")
		} else {
			entry.Warn("terminology batch rejected")
		}
		return nil, ie
	}

	b.result.State = StateCommitted
	elapsed := time.Since(start)
	recordBatch(string(StateCommitted), elapsed)
	log.WithFields(b.fields()).Info("terminology batch committed")
	s.publish(identity, b, elapsed)
	return b.result, nil
}

func (s *ImportService) publish(identity Identity, b *batch, elapsed time.Duration) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(&events.BatchImported{
		SystemID:           b.result.SystemID,
		SystemURL:          b.req.SystemURL,
		Subject:            identity.Subject(),
		ConceptsInserted:   b.result.ConceptsInserted,
		ConceptsUpdated:    b.result.ConceptsUpdated,
		ConceptsUnchanged:  b.result.ConceptsUnchanged,
		PropertiesAssigned: b.result.PropertiesAssigned,
		PropertiesSkipped:  b.result.PropertiesSkipped,
		Duration:           elapsed,
		OccurredAt:         time.Now().UTC(),
	})
}

// batch carries the per-call state of one Import.
type batch struct {
	svc      *ImportService
	identity Identity
	req      ImportRequest
	state    State
	result   *ImportResult
	system   *codesystem.CodeSystem
	// known holds the concepts upserted or looked up so far, by code.
	known map[string]*concept.Concept
	defs  map[string]*property.Definition
	log   *logrus.Entry
}

func (b *batch) fields() logrus.Fields {
	return logrus.Fields{
		"state":               b.result.State,
		"concepts_inserted":   b.result.ConceptsInserted,
		"concepts_updated":    b.result.ConceptsUpdated,
		"concepts_unchanged":  b.result.ConceptsUnchanged,
		"properties_assigned": b.result.PropertiesAssigned,
		"properties_skipped":  b.result.PropertiesSkipped,
	}
}

func (b *batch) precheck() error {
	if b.req.SystemURL == "" {
		return newImportError(KindInvalidSystem, "code system url is required", "", nil)
	}
	if n := len(b.req.Concepts) + len(b.req.Properties); n > b.svc.cfg.MaxBatchSize {
		return newImportError(KindInvalidBatch, "batch too large", fmt.Sprintf("%d > %d", n, b.svc.cfg.MaxBatchSize), nil)
	}
	return nil
}

func (b *batch) run(ctx context.Context, tx repo.Tx) error {
	cs, err := b.svc.systems.GetByURL(ctx, tx, b.req.SystemURL)
	if err != nil {
		return classify(err, b.req.SystemURL)
	}
	b.system = cs
	b.result.SystemID = cs.ID

	b.state = StateAccessChecking
	if err := b.checkAccess(ctx); err != nil {
		return err
	}

	b.state = StateApplying
	if err := b.validateItems(); err != nil {
		return err
	}
	if err := b.applyConcepts(ctx, tx); err != nil {
		return err
	}
	if err := b.applyProperties(ctx, tx); err != nil {
		return err
	}
	if b.req.DryRun {
		return errDryRun
	}
	return nil
}

// checkAccess lets super admins write anywhere and project admins write only
// to systems their project owns. The policy decision is consulted first so
// that shadow mode still records it.
func (b *batch) checkAccess(ctx context.Context) error {
	cs := b.system
	if b.svc.authorizer != nil {
		req := authz.NewRequest(roleFor(b.identity, cs.ProjectID), authz.DomainFor(cs.IsShared()), authz.ObjectCodeSystem, authz.ActionImport)
		if err := b.svc.authorizer.Authorize(ctx, req); err != nil {
			return classify(err, cs.URL)
		}
	}

	if b.identity.IsSuperAdmin() {
		return nil
	}
	if !cs.IsShared() && b.identity.IsProjectAdmin(*cs.ProjectID) {
		return nil
	}
	return newImportError(KindForbidden, "not allowed to import into this code system", cs.URL, authz.ErrForbidden)
}

func (b *batch) validateItems() error {
	for _, item := range b.req.Concepts {
		if err := constants.Validate.Struct(item); err != nil {
			return newImportError(KindInvalidCode, "concept code is required", item.Code, err)
		}
	}
	for _, item := range b.req.Properties {
		err := constants.Validate.Struct(item)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Property" {
			return newImportError(KindInvalidProperty, "property code is required", item.Property, err)
		}
		return newImportError(KindInvalidCode, "property subject code is required", item.Subject, err)
	}
	return nil
}

func (b *batch) applyConcepts(ctx context.Context, tx repo.Tx) error {
	for _, item := range b.req.Concepts {
		res, err := b.svc.concepts.Upsert(ctx, tx, concept.Upsert{
			SystemID:  b.system.ID,
			Code:      item.Code,
			Display:   item.Display,
			IsSynonym: item.IsSynonym,
		})
		if err != nil {
			return classify(err, item.Code)
		}
		recordUpsert(res)
		if res.Raced {
			b.log.WithField("code", item.Code).Debug("concept insert raced, using existing row")
		}
		switch res.Outcome {
		case concept.OutcomeInserted:
			b.result.ConceptsInserted++
		case concept.OutcomeUpdated:
			b.result.ConceptsUpdated++
		default:
			b.result.ConceptsUnchanged++
		}
		b.known[item.Code] = res.Concept
	}
	return nil
}

func (b *batch) applyProperties(ctx context.Context, tx repo.Tx) error {
	for _, item := range b.req.Properties {
		subject, err := b.concept(ctx, tx, item.Subject)
		if err != nil {
			return classify(err, item.Subject)
		}
		def, err := b.definition(ctx, tx, item.Property)
		if err != nil {
			return classify(err, item.Property)
		}
		kind := def.Kind().String()
		value := item.Value
		if def.Kind() == property.KindConceptReference {
			value = strings.TrimSpace(value)
		}

		if b.svc.cfg.DedupeProperties {
			dup, err := b.duplicate(ctx, tx, subject, def, value)
			if err != nil {
				return classify(err, value)
			}
			if dup {
				recordAssignment(kind, "skipped")
				b.result.PropertiesSkipped++
				continue
			}
		}

		if _, err := b.svc.properties.Assign(ctx, tx, subject, def, value); err != nil {
			recordAssignment(kind, "rejected")
			return classify(err, value)
		}
		recordAssignment(kind, "assigned")
		b.result.PropertiesAssigned++
	}
	return nil
}

// concept resolves code from the batch first, then from storage.
func (b *batch) concept(ctx context.Context, tx repo.Tx, code string) (*concept.Concept, error) {
	if c, ok := b.known[code]; ok {
		return c, nil
	}
	c, err := b.svc.concepts.FindByCode(ctx, tx, b.system.ID, code)
	if err != nil {
		return nil, err
	}
	b.known[code] = c
	return c, nil
}

func (b *batch) definition(ctx context.Context, tx repo.Tx, code string) (*property.Definition, error) {
	if def, ok := b.defs[code]; ok {
		return def, nil
	}
	def, err := b.svc.properties.ResolveDefinition(ctx, tx, b.system.ID, code)
	if err != nil {
		return nil, err
	}
	b.defs[code] = def
	return def, nil
}

func (b *batch) duplicate(ctx context.Context, tx repo.Tx, subject *concept.Concept, def *property.Definition, raw string) (bool, error) {
	a := &property.Assignment{SubjectID: subject.ID, PropertyID: def.ID, Value: raw}
	if def.Kind() == property.KindConceptReference {
		target, err := b.concept(ctx, tx, raw)
		if errors.Is(err, concept.ErrNotFound) {
			return false, fmt.Errorf("%w: %q", property.ErrInvalidTarget, raw)
		}
		if err != nil {
			return false, err
		}
		a.TargetID = &target.ID
	}
	return b.svc.properties.Exists(ctx, tx, a)
}
