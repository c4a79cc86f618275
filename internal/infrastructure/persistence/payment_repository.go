package persistence

import (
	"context"
	"fmt"

	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)

// FindByFilter returns every matching payment, newest first
func (r *GormPaymentRepository) FindByFilter(ctx context.Context, filter finance.PaymentFilter) ([]*finance.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.applyFilter(r.db.WithContext(ctx), filter).
		Order("created_at DESC, id DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindPage returns one page of matching payments, newest first, with the total count
func (r *GormPaymentRepository) FindPage(ctx context.Context, filter finance.PaymentFilter) ([]*finance.Payment, int64, error) {
	page, perPage := shared.NormalizePagination(filter.Page, filter.PerPage)

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var paymentModels []models.PaymentModel
	if err := r.applyFilter(r.db.WithContext(ctx), filter).
		Order("created_at DESC, id DESC").
		Offset(shared.Offset(page, perPage)).
		Limit(perPage).
		Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainPayments(paymentModels), total, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (r *GormPaymentRepository) applyFilter(db *gorm.DB, filter finance.PaymentFilter) *gorm.DB {
	query := db.Model(&models.PaymentModel{}).Where("user_id = ?", filter.UserID)
	if len(filter.ConceptIDs) > 0 {
		query = query.Where("payment_concept_id IN ?", filter.ConceptIDs)
	}
	if filter.OnlyReceived {
		query = query.Where("amount_received IS NOT NULL")
	}
	if filter.CreatedYear != 0 {
		from, to := yearBounds(filter.CreatedYear)
		query = query.Where("created_at >= ? AND created_at < ?", from, to)
	}
	return query
}

func toDomainPayments(paymentModels []models.PaymentModel) []*finance.Payment {
	payments := make([]*finance.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments
}
