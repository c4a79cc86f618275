package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentConceptRepository implements finance.PaymentConceptRepository using GORM.
// The concept row and its target/exception rows are always written together.
type GormPaymentConceptRepository struct {
	db *gorm.DB
}

// NewGormPaymentConceptRepository creates a new GormPaymentConceptRepository
func NewGormPaymentConceptRepository(db *gorm.DB) *GormPaymentConceptRepository {
	return &GormPaymentConceptRepository{db: db}
}

var _ finance.PaymentConceptRepository = (*GormPaymentConceptRepository)(nil)

// FindByID finds a concept by ID with all of its sets
func (r *GormPaymentConceptRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentConcept, error) {
	var model models.PaymentConceptModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, finance.ErrConceptNotFound
		}
		return nil, err
	}
	concepts, err := r.hydrate(ctx, []models.PaymentConceptModel{model})
	if err != nil {
		return nil, err
	}
	return concepts[0], nil
}

// FindByFilter returns concepts matching the filter, oldest first
func (r *GormPaymentConceptRepository) FindByFilter(ctx context.Context, filter finance.ConceptFilter) ([]*finance.PaymentConcept, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentConceptModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ActiveAt != nil {
		at := filter.ActiveAt.UTC()
		query = query.Where("start_date <= ?", at).
			Where("end_date IS NULL OR end_date >= ?", at)
	}
	if filter.StartedBy != nil {
		query = query.Where("start_date <= ?", filter.StartedBy.UTC())
	}
	if filter.CreatedYear != 0 {
		from, to := yearBounds(filter.CreatedYear)
		query = query.Where("created_at >= ? AND created_at < ?", from, to)
	}
	return r.find(ctx, query)
}

// FindExpiredActive returns ACTIVO concepts whose end date is before now
func (r *GormPaymentConceptRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]*finance.PaymentConcept, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentConceptModel{}).
		Where("status = ?", finance.ConceptStatusActive).
		Where("end_date IS NOT NULL AND end_date < ?", now.UTC())
	return r.find(ctx, query)
}

// FindDeletedBefore returns ELIMINADO concepts soft-deleted at or before cutoff
func (r *GormPaymentConceptRepository) FindDeletedBefore(ctx context.Context, cutoff time.Time) ([]*finance.PaymentConcept, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentConceptModel{}).
		Where("status = ?", finance.ConceptStatusDeleted).
		Where("deleted_at IS NOT NULL AND deleted_at <= ?", cutoff.UTC())
	return r.find(ctx, query)
}

// Save writes the concept row and replaces every set row in one transaction.
// A new concept is inserted at version 1. An existing one is updated only
// while the stored version still matches the one it was loaded at, and
// shared.ErrOptimisticLock is returned otherwise.
func (r *GormPaymentConceptRepository) Save(ctx context.Context, concept *finance.PaymentConcept) error {
	model, rows := models.PaymentConceptModelFromDomain(concept)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveConceptRow(tx, concept, model); err != nil {
			return err
		}
		if err := deleteConceptChildren(tx, concept.ID); err != nil {
			return err
		}
		if err := createRows(tx, rows.Users); err != nil {
			return fmt.Errorf("save target users: %w", err)
		}
		if err := createRows(tx, rows.Careers); err != nil {
			return fmt.Errorf("save target careers: %w", err)
		}
		if err := createRows(tx, rows.Semesters); err != nil {
			return fmt.Errorf("save target semesters: %w", err)
		}
		if err := createRows(tx, rows.Tags); err != nil {
			return fmt.Errorf("save target tags: %w", err)
		}
		if err := createRows(tx, rows.Exceptions); err != nil {
			return fmt.Errorf("save exceptions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	concept.Version = model.Version
	return nil
}

func saveConceptRow(tx *gorm.DB, concept *finance.PaymentConcept, model *models.PaymentConceptModel) error {
	if concept.IsNew() {
		model.Version = 1
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("create payment concept: %w", err)
		}
		return nil
	}

	model.Version = concept.Version + 1
	result := tx.Model(&models.PaymentConceptModel{}).
		Where("id = ? AND version = ?", concept.ID, concept.Version).
		Select(conceptUpdateColumns).
		UpdateColumns(model)
	if result.Error != nil {
		return fmt.Errorf("update payment concept: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}
	return nil
}

// conceptUpdateColumns are written on every update, zero values included
var conceptUpdateColumns = []string{
	"name", "description", "amount", "status", "applies_to",
	"start_date", "end_date", "deleted_at", "updated_at", "version",
}

// HardDelete physically removes a concept and its sets
func (r *GormPaymentConceptRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteConceptChildren(tx, id); err != nil {
			return err
		}
		result := tx.Delete(&models.PaymentConceptModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return finance.ErrConceptNotFound
		}
		return nil
	})
}

func (r *GormPaymentConceptRepository) find(ctx context.Context, query *gorm.DB) ([]*finance.PaymentConcept, error) {
	var conceptModels []models.PaymentConceptModel
	if err := query.Order("created_at, id").Find(&conceptModels).Error; err != nil {
		return nil, err
	}
	return r.hydrate(ctx, conceptModels)
}

// hydrate loads the set rows for every concept with one query per table
func (r *GormPaymentConceptRepository) hydrate(ctx context.Context, conceptModels []models.PaymentConceptModel) ([]*finance.PaymentConcept, error) {
	if len(conceptModels) == 0 {
		return []*finance.PaymentConcept{}, nil
	}

	ids := make([]uuid.UUID, len(conceptModels))
	for i := range conceptModels {
		ids[i] = conceptModels[i].ID
	}

	db := r.db.WithContext(ctx)
	rows := make(map[uuid.UUID]*models.ConceptRows, len(ids))
	for _, id := range ids {
		rows[id] = &models.ConceptRows{}
	}

	for _, chunk := range valueobject.Chunk(ids, inChunkSize) {
		var users []models.ConceptTargetUserModel
		if err := db.Where("concept_id IN ?", chunk).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			rows[u.ConceptID].Users = append(rows[u.ConceptID].Users, u)
		}

		var careers []models.ConceptTargetCareerModel
		if err := db.Where("concept_id IN ?", chunk).Find(&careers).Error; err != nil {
			return nil, err
		}
		for _, c := range careers {
			rows[c.ConceptID].Careers = append(rows[c.ConceptID].Careers, c)
		}

		var semesters []models.ConceptTargetSemesterModel
		if err := db.Where("concept_id IN ?", chunk).Find(&semesters).Error; err != nil {
			return nil, err
		}
		for _, s := range semesters {
			rows[s.ConceptID].Semesters = append(rows[s.ConceptID].Semesters, s)
		}

		var tags []models.ConceptTargetTagModel
		if err := db.Where("concept_id IN ?", chunk).Find(&tags).Error; err != nil {
			return nil, err
		}
		for _, t := range tags {
			rows[t.ConceptID].Tags = append(rows[t.ConceptID].Tags, t)
		}

		var exceptions []models.ConceptExceptionModel
		if err := db.Where("concept_id IN ?", chunk).Find(&exceptions).Error; err != nil {
			return nil, err
		}
		for _, e := range exceptions {
			rows[e.ConceptID].Exceptions = append(rows[e.ConceptID].Exceptions, e)
		}
	}

	concepts := make([]*finance.PaymentConcept, len(conceptModels))
	for i := range conceptModels {
		concepts[i] = conceptModels[i].ToDomain(*rows[conceptModels[i].ID])
	}
	return concepts, nil
}

func deleteConceptChildren(tx *gorm.DB, conceptID uuid.UUID) error {
	for _, m := range models.ConceptChildModels() {
		if err := tx.Where("concept_id = ?", conceptID).Delete(m).Error; err != nil {
			return fmt.Errorf("clear concept sets: %w", err)
		}
	}
	return nil
}

func createRows[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, inChunkSize).Error
}

// yearBounds returns [Jan 1 year, Jan 1 year+1) in UTC
func yearBounds(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}
