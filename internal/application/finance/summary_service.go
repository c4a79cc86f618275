package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Summary kinds, also the first half of the cache field
const (
	SummaryKindPending  = "pending"
	SummaryKindOverdue  = "overdue"
	SummaryKindPayments = "payments"
)

// monthLayout renders payment months as YYYY-MM
const monthLayout = "2006-01"

// DebtSummary totals what a user still owes
type DebtSummary struct {
	TotalAmount valueobject.Money `json:"total_amount"`
	TotalCount  int               `json:"total_count"`
}

// PaymentsSummary totals what a user has paid, by creation month
type PaymentsSummary struct {
	TotalPayments   valueobject.Money            `json:"total_payments"`
	PaymentsByMonth map[string]valueobject.Money `json:"payments_by_month"`
	Months          []string                     `json:"months"`
}

// PaymentRecord is one row of a user's payment history
type PaymentRecord struct {
	ID               uuid.UUID             `json:"id"`
	PaymentConceptID uuid.UUID             `json:"payment_concept_id"`
	Amount           valueobject.Money     `json:"amount"`
	AmountReceived   *valueobject.Money    `json:"amount_received"`
	Status           finance.PaymentStatus `json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
}

// SummaryService answers per-user debt and payment summaries. Pending,
// Overdue and PaymentsMade are read through the summary cache when one is
// configured; cache failures fall back to computing the summary.
type SummaryService struct {
	concepts finance.PaymentConceptRepository
	payments finance.PaymentRepository
	users    identity.UserRepository
	cache    finance.SummaryCache
	metrics  *telemetry.FinanceMetrics
	now      func() time.Time
}

// SummaryOption configures a SummaryService
type SummaryOption func(*SummaryService)

// WithSummaryCache enables read-through caching
func WithSummaryCache(cache finance.SummaryCache) SummaryOption {
	return func(s *SummaryService) { s.cache = cache }
}

// WithSummaryMetrics records cache lookups and compute durations
func WithSummaryMetrics(m *telemetry.FinanceMetrics) SummaryOption {
	return func(s *SummaryService) { s.metrics = m }
}

// WithSummaryClock replaces the clock used for "now" and "this year"
func WithSummaryClock(now func() time.Time) SummaryOption {
	return func(s *SummaryService) { s.now = now }
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(
	concepts finance.PaymentConceptRepository,
	payments finance.PaymentRepository,
	users identity.UserRepository,
	opts ...SummaryOption,
) *SummaryService {
	s := &SummaryService{
		concepts: concepts,
		payments: payments,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending totals the remaining balance of every active, in-window concept
// that applies to the user
func (s *SummaryService) Pending(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (DebtSummary, error) {
	now := s.now()
	return readThrough(ctx, s, userID, SummaryKindPending, onlyThisYear, now, func(ctx context.Context) (DebtSummary, error) {
		return s.debt(ctx, userID, finance.ConceptFilter{
			Status:      finance.ConceptStatusActive,
			ActiveAt:    &now,
			CreatedYear: yearFilter(onlyThisYear, now),
		})
	})
}

// Overdue totals the remaining balance of every finalized concept that
// applies to the user. Finalization stamps the end date, so only the start
// date bounds the candidates.
func (s *SummaryService) Overdue(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (DebtSummary, error) {
	now := s.now()
	return readThrough(ctx, s, userID, SummaryKindOverdue, onlyThisYear, now, func(ctx context.Context) (DebtSummary, error) {
		return s.debt(ctx, userID, finance.ConceptFilter{
			Status:      finance.ConceptStatusFinalized,
			StartedBy:   &now,
			CreatedYear: yearFilter(onlyThisYear, now),
		})
	})
}

// PaymentsMade sums every received amount of the user by creation month
func (s *SummaryService) PaymentsMade(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (PaymentsSummary, error) {
	now := s.now()
	return readThrough(ctx, s, userID, SummaryKindPayments, onlyThisYear, now, func(ctx context.Context) (PaymentsSummary, error) {
		if _, err := s.users.FindByID(ctx, userID); err != nil {
			return PaymentsSummary{}, err
		}
		payments, err := s.payments.FindByFilter(ctx, finance.PaymentFilter{
			UserID:       userID,
			OnlyReceived: true,
			CreatedYear:  yearFilter(onlyThisYear, now),
		})
		if err != nil {
			return PaymentsSummary{}, fmt.Errorf("load payments: %w", err)
		}
		return summarizePayments(payments), nil
	})
}

// PaymentHistory returns one page of the user's payments, newest first.
// History is not cached.
func (s *SummaryService) PaymentHistory(ctx context.Context, userID uuid.UUID, page, perPage int, onlyThisYear bool) (shared.Page[PaymentRecord], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "summary", "payment_history")
	defer span.End()

	page, perPage = shared.NormalizePagination(page, perPage)
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return shared.Page[PaymentRecord]{}, err
	}

	payments, total, err := s.payments.FindPage(ctx, finance.PaymentFilter{
		UserID:      userID,
		CreatedYear: yearFilter(onlyThisYear, s.now()),
		Page:        page,
		PerPage:     perPage,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Page[PaymentRecord]{}, fmt.Errorf("load payment page: %w", err)
	}

	records := make([]PaymentRecord, len(payments))
	for i, p := range payments {
		records[i] = PaymentRecord{
			ID:               p.ID,
			PaymentConceptID: p.PaymentConceptID,
			Amount:           p.Amount,
			AmountReceived:   p.AmountReceived,
			Status:           p.Status,
			CreatedAt:        p.CreatedAt,
		}
	}
	return shared.NewPage(records, total, page, perPage), nil
}

// debt sums Remaining over the candidate concepts that apply to the user
func (s *SummaryService) debt(ctx context.Context, userID uuid.UUID, filter finance.ConceptFilter) (DebtSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return DebtSummary{}, err
	}

	candidates, err := s.concepts.FindByFilter(ctx, filter)
	if err != nil {
		return DebtSummary{}, fmt.Errorf("load concepts: %w", err)
	}

	applicable := make([]*finance.PaymentConcept, 0, len(candidates))
	for _, c := range candidates {
		if finance.Applies(user, c) {
			applicable = append(applicable, c)
		}
	}
	if len(applicable) == 0 {
		return DebtSummary{TotalAmount: valueobject.Zero()}, nil
	}

	ids := make([]uuid.UUID, len(applicable))
	for i, c := range applicable {
		ids[i] = c.ID
	}
	payments, err := s.payments.FindByFilter(ctx, finance.PaymentFilter{UserID: userID, ConceptIDs: ids})
	if err != nil {
		return DebtSummary{}, fmt.Errorf("load payments: %w", err)
	}

	byConcept := make(map[uuid.UUID][]*finance.Payment, len(applicable))
	for _, p := range payments {
		byConcept[p.PaymentConceptID] = append(byConcept[p.PaymentConceptID], p)
	}

	summary := DebtSummary{TotalAmount: valueobject.Zero()}
	for _, c := range applicable {
		if remaining, owes := finance.Outstanding(c, byConcept[c.ID]); owes {
			summary.TotalAmount = summary.TotalAmount.Add(remaining)
			summary.TotalCount++
		}
	}
	return summary, nil
}

func summarizePayments(payments []*finance.Payment) PaymentsSummary {
	summary := PaymentsSummary{
		TotalPayments:   valueobject.Zero(),
		PaymentsByMonth: make(map[string]valueobject.Money),
		Months:          []string{},
	}
	for _, p := range payments {
		received, ok := p.Received()
		if !ok {
			continue
		}
		month := p.CreatedAt.UTC().Format(monthLayout)
		if _, seen := summary.PaymentsByMonth[month]; !seen {
			summary.Months = append(summary.Months, month)
			summary.PaymentsByMonth[month] = valueobject.Zero()
		}
		summary.PaymentsByMonth[month] = summary.PaymentsByMonth[month].Add(received)
		summary.TotalPayments = summary.TotalPayments.Add(received)
	}
	slices.Sort(summary.Months)
	return summary
}

func yearFilter(onlyThisYear bool, now time.Time) int {
	if !onlyThisYear {
		return 0
	}
	return now.UTC().Year()
}

// cacheField names a cached summary: the kind plus "all" or the year
func cacheField(kind string, onlyThisYear bool, now time.Time) string {
	if !onlyThisYear {
		return kind + ":all"
	}
	return kind + ":" + strconv.Itoa(now.UTC().Year())
}

// readThrough serves a summary from the cache or computes and stores it
func readThrough[T any](
	ctx context.Context,
	s *SummaryService,
	userID uuid.UUID,
	kind string,
	onlyThisYear bool,
	now time.Time,
	compute func(context.Context) (T, error),
) (T, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "summary", kind,
		telemetry.WithAttribute(telemetry.SpanAttrUserID, userID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrSummaryKind, kind),
		telemetry.WithAttribute(telemetry.SpanAttrOnlyThisYear, onlyThisYear),
	)
	defer span.End()

	log := logger.FromContext(ctx)
	field := cacheField(kind, onlyThisYear, now)

	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, userID, field)
		switch {
		case err != nil:
			log.Warn("summary cache read failed", zap.String("field", field), zap.Error(err))
		case ok:
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, true)
				s.metrics.RecordSummaryLookup(ctx, kind, true)
				return cached, nil
			}
			log.Warn("discarding undecodable cached summary", zap.String("field", field))
		}
		s.metrics.RecordSummaryLookup(ctx, kind, false)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, false)

	started := time.Now()
	result, err := compute(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		var zero T
		return zero, err
	}
	s.metrics.RecordSummaryDuration(ctx, kind, time.Since(started))

	if s.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, userID, field, raw); err != nil {
				log.Warn("summary cache write failed", zap.String("field", field), zap.Error(err))
			}
		}
	}
	return result, nil
}
