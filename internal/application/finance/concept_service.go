package finance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Sweep names reported to metrics and logs
const (
	SweepFinalize = "finalize"
	SweepPurge    = "purge"
)

// ConceptService manages the payment concept lifecycle and targeting. Every
// mutation is saved in one repository transaction; domain events and cache
// invalidation follow the commit.
type ConceptService struct {
	concepts  finance.PaymentConceptRepository
	resolver  *finance.Resolver
	fanOut    *FanOut
	events    shared.EventPublisher
	metrics   *telemetry.FinanceMetrics
	retention time.Duration
	now       func() time.Time
}

// ConceptOption configures a ConceptService
type ConceptOption func(*ConceptService)

// WithEventPublisher publishes the concept's domain events after each save
func WithEventPublisher(p shared.EventPublisher) ConceptOption {
	return func(s *ConceptService) { s.events = p }
}

// WithConceptMetrics records sweep results
func WithConceptMetrics(m *telemetry.FinanceMetrics) ConceptOption {
	return func(s *ConceptService) { s.metrics = m }
}

// WithPurgeRetention sets how long soft-deleted concepts are kept
func WithPurgeRetention(d time.Duration) ConceptOption {
	return func(s *ConceptService) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithConceptClock replaces the service clock
func WithConceptClock(now func() time.Time) ConceptOption {
	return func(s *ConceptService) { s.now = now }
}

// NewConceptService creates a new ConceptService
func NewConceptService(
	concepts finance.PaymentConceptRepository,
	resolver *finance.Resolver,
	fanOut *FanOut,
	opts ...ConceptOption,
) *ConceptService {
	s := &ConceptService{
		concepts:  concepts,
		resolver:  resolver,
		fanOut:    fanOut,
		retention: finance.DefaultPurgeRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one concept
func (s *ConceptService) Get(ctx context.Context, id uuid.UUID) (ConceptResponse, error) {
	c, err := s.concepts.FindByID(ctx, id)
	if err != nil {
		return ConceptResponse{}, err
	}
	return ToConceptResponse(c), nil
}

// Create validates and stores a new concept. A concept whose targeting
// matches nobody is rejected.
func (s *ConceptService) Create(ctx context.Context, in CreateConceptInput) (CreateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concept", "create",
		telemetry.WithAttribute(telemetry.SpanAttrAppliesTo, string(in.AppliesTo)))
	defer span.End()

	c, err := finance.NewPaymentConcept(in.params(), s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return CreateResult{}, err
	}

	affected, err := s.resolver.RequireRecipients(ctx, c)
	if err != nil {
		telemetry.RecordError(span, err)
		return CreateResult{}, err
	}

	if err := s.save(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return CreateResult{}, err
	}

	audience := valueobject.NewIDSet()
	if c.Status.OwesBalance() {
		audience = affected
	}
	s.fanOut.Invalidate(ctx, c.ID, valueobject.NewIDSet(), audience)

	logger.FromContext(ctx).Info("payment concept created",
		zap.String("concept_id", c.ID.String()),
		zap.String("applies_to", c.Targeting.AppliesTo.String()),
		zap.Int("recipients", affected.Len()),
	)
	return CreateResult{Concept: ToConceptResponse(c), Recipients: affected.Len()}, nil
}

// Update changes the concept's fields. Amount and date changes invalidate
// the audience's summaries; name and description do not appear in them.
func (s *ConceptService) Update(ctx context.Context, id uuid.UUID, in UpdateConceptInput) (UpdateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concept", "update",
		telemetry.WithAttribute(telemetry.SpanAttrConceptID, id.String()))
	defer span.End()

	c, err := s.concepts.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return UpdateResult{}, err
	}

	changed, err := c.UpdateDetails(finance.ConceptDetailsUpdate(in), s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return UpdateResult{}, err
	}
	if len(changed) == 0 {
		return UpdateResult{Concept: ToConceptResponse(c), ChangedFields: []string{}, NoChanges: true}, nil
	}

	if err := s.save(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return UpdateResult{}, err
	}

	if affectsBalances(changed) {
		audience, err := s.resolver.Audience(ctx, c)
		if err != nil {
			logger.FromContext(ctx).Error("failed to resolve audience for invalidation",
				zap.String("concept_id", c.ID.String()), zap.Error(err))
		} else {
			s.fanOut.Invalidate(ctx, c.ID, audience, audience)
		}
	}
	return UpdateResult{Concept: ToConceptResponse(c), ChangedFields: changed}, nil
}

// Activate moves a disabled concept back to ACTIVO
func (s *ConceptService) Activate(ctx context.Context, id uuid.UUID) (LifecycleResult, error) {
	return s.transition(ctx, id, "activate", (*finance.PaymentConcept).Activate)
}

// Disable pauses an active concept
func (s *ConceptService) Disable(ctx context.Context, id uuid.UUID) (LifecycleResult, error) {
	return s.transition(ctx, id, "disable", (*finance.PaymentConcept).Disable)
}

// Finalize closes an active concept; its remaining balances become overdue
func (s *ConceptService) Finalize(ctx context.Context, id uuid.UUID) (LifecycleResult, error) {
	return s.transition(ctx, id, "finalize", (*finance.PaymentConcept).Finalize)
}

// SoftDelete moves the concept to ELIMINADO until the purge sweep removes it
func (s *ConceptService) SoftDelete(ctx context.Context, id uuid.UUID) (LifecycleResult, error) {
	return s.transition(ctx, id, "soft_delete", (*finance.PaymentConcept).SoftDelete)
}

// transition applies a status change and invalidates the union of the
// audience before and after it
func (s *ConceptService) transition(
	ctx context.Context,
	id uuid.UUID,
	op string,
	apply func(*finance.PaymentConcept, time.Time) error,
) (LifecycleResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concept", op,
		telemetry.WithAttribute(telemetry.SpanAttrConceptID, id.String()))
	defer span.End()

	c, err := s.concepts.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return LifecycleResult{}, err
	}

	oldStatus := c.Status
	if err := apply(c, s.now()); err != nil {
		telemetry.RecordError(span, err)
		return LifecycleResult{}, err
	}

	affected, err := s.resolver.AffectedUserIDs(ctx, c)
	if err != nil {
		telemetry.RecordError(span, err)
		return LifecycleResult{}, err
	}
	before := audienceFor(oldStatus, affected)
	after := audienceFor(c.Status, affected)

	if err := s.save(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return LifecycleResult{}, err
	}
	s.fanOut.Invalidate(ctx, c.ID, before, after)

	telemetry.SetAttributes(span, telemetry.SpanAttrStatus, c.Status.String())
	logger.FromContext(ctx).Info("payment concept status changed",
		zap.String("concept_id", c.ID.String()),
		zap.String("old_status", oldStatus.String()),
		zap.String("new_status", c.Status.String()),
	)
	return LifecycleResult{Concept: ToConceptResponse(c), AudienceDiff: NewAudienceDiff(before, after)}, nil
}

// UpdateRelations changes the targeting mode, target sets and exceptions.
// With replace the supplied sets overwrite the current ones, otherwise they
// are merged in. An update that leaves nobody in the audience is rejected.
func (s *ConceptService) UpdateRelations(ctx context.Context, id uuid.UUID, update finance.TargetingUpdate, replace bool) (RelationsResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concept", "update_relations",
		telemetry.WithAttribute(telemetry.SpanAttrConceptID, id.String()))
	defer span.End()

	c, err := s.concepts.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return RelationsResult{}, err
	}
	if !c.Status.IsUpdatable() {
		return RelationsResult{}, finance.ErrConceptCannotBeUpdated
	}

	before, err := s.resolver.AffectedUserIDs(ctx, c)
	if err != nil {
		telemetry.RecordError(span, err)
		return RelationsResult{}, err
	}

	changes, err := c.UpdateTargeting(update, replace, s.now())
	if err != nil {
		telemetry.RecordError(span, err)
		return RelationsResult{}, err
	}
	if len(changes) == 0 {
		return RelationsResult{
			Concept:      ToConceptResponse(c),
			Changes:      []finance.RelationChange{},
			NoChanges:    true,
			AudienceDiff: NewAudienceDiff(before, before),
		}, nil
	}

	after, err := s.resolver.RequireRecipients(ctx, c)
	if err != nil {
		telemetry.RecordError(span, err)
		return RelationsResult{}, err
	}

	if err := s.save(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return RelationsResult{}, err
	}
	s.fanOut.Invalidate(ctx, c.ID, before, after)

	diff := NewAudienceDiff(before, after)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAppliesTo, c.Targeting.AppliesTo.String(),
		telemetry.SpanAttrAudienceSize, after.Len(),
	)
	return RelationsResult{Concept: ToConceptResponse(c), Changes: changes, AudienceDiff: diff}, nil
}

// Audience lists every user the concept's targeting matches, whatever its
// status
func (s *ConceptService) Audience(ctx context.Context, id uuid.UUID) (AudienceResult, error) {
	c, err := s.concepts.FindByID(ctx, id)
	if err != nil {
		return AudienceResult{}, err
	}
	affected, err := s.resolver.AffectedUserIDs(ctx, c)
	if err != nil {
		return AudienceResult{}, err
	}
	return AudienceResult{
		ConceptID:   c.ID,
		Status:      c.Status,
		OwesBalance: c.Status.OwesBalance(),
		UserIDs:     valueobject.SortedIDs(affected),
		Count:       affected.Len(),
	}, nil
}

// AutoFinalizeSweep finalizes every active concept whose end date has
// passed. A failing concept is logged and skipped; the joined errors are
// returned with the transitions that succeeded.
func (s *ConceptService) AutoFinalizeSweep(ctx context.Context, now time.Time) ([]finance.StatusTransition, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concept", "auto_finalize_sweep",
		telemetry.WithAttribute(telemetry.SpanAttrSweep, SweepFinalize))
	defer span.End()

	expired, err := s.concepts.FindExpiredActive(ctx, now)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find expired concepts: %w", err)
	}

	log := logger.FromContext(ctx)
	transitions := make([]finance.StatusTransition, 0, len(expired))
	var errs []error
	for _, c := range expired {
		if !c.ShouldAutoFinalize(now) {
			continue
		}
		oldStatus := c.Status
		if err := s.finalizeExpired(ctx, c, now); err != nil {
			log.Error("auto finalize failed", zap.String("concept_id", c.ID.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("finalize %s: %w", c.ID, err))
			continue
		}
		transitions = append(transitions, finance.StatusTransition{
			ID:        c.ID,
			OldStatus: oldStatus,
			NewStatus: c.Status,
		})
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrSweepAffected, len(transitions))
	s.metrics.RecordSweep(ctx, SweepFinalize, len(transitions))
	return transitions, errors.Join(errs...)
}

func (s *ConceptService) finalizeExpired(ctx context.Context, c *finance.PaymentConcept, now time.Time) error {
	if err := c.Finalize(now); err != nil {
		return err
	}
	affected, err := s.resolver.AffectedUserIDs(ctx, c)
	if err != nil {
		return err
	}
	if err := s.save(ctx, c); err != nil {
		return err
	}
	// Pending moves to overdue for the same audience.
	s.fanOut.Invalidate(ctx, c.ID, affected, affected)
	return nil
}

// PurgeSweep hard-deletes concepts that have been soft-deleted for longer
// than the retention window and returns their ids
func (s *ConceptService) PurgeSweep(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concept", "purge_sweep",
		telemetry.WithAttribute(telemetry.SpanAttrSweep, SweepPurge))
	defer span.End()

	candidates, err := s.concepts.FindDeletedBefore(ctx, now.Add(-s.retention))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("find purgeable concepts: %w", err)
	}

	log := logger.FromContext(ctx)
	purged := make([]uuid.UUID, 0, len(candidates))
	var errs []error
	for _, c := range candidates {
		if !c.IsPurgeable(now, s.retention) {
			continue
		}
		if err := s.concepts.HardDelete(ctx, c.ID); err != nil {
			log.Error("purge failed", zap.String("concept_id", c.ID.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("purge %s: %w", c.ID, err))
			continue
		}
		purged = append(purged, c.ID)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrSweepAffected, len(purged))
	s.metrics.RecordSweep(ctx, SweepPurge, len(purged))
	return purged, errors.Join(errs...)
}

// save persists the concept and then publishes its pending domain events
func (s *ConceptService) save(ctx context.Context, c *finance.PaymentConcept) error {
	if err := s.concepts.Save(ctx, c); err != nil {
		return fmt.Errorf("save payment concept: %w", err)
	}
	events := c.PullDomainEvents()
	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			logger.FromContext(ctx).Warn("failed to publish concept events",
				zap.String("concept_id", c.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func audienceFor(status finance.ConceptStatus, affected valueobject.IDSet) valueobject.IDSet {
	if status.OwesBalance() {
		return affected
	}
	return valueobject.NewIDSet()
}

func affectsBalances(changed []string) bool {
	return slices.ContainsFunc(changed, func(f string) bool {
		return f == "amount" || f == "start_date" || f == "end_date"
	})
}
