package models

import (
	"cmp"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentConceptModel is the persistence model for the PaymentConcept aggregate root.
// Target and exception sets live in their own tables.
type PaymentConceptModel struct {
	BaseModel
	Name        string                `gorm:"type:varchar(200);not null"`
	Description string                `gorm:"type:text"`
	Amount      decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Status      finance.ConceptStatus `gorm:"type:varchar(20);not null;index"`
	AppliesTo   finance.AppliesTo     `gorm:"type:varchar(30);not null"`
	StartDate   time.Time             `gorm:"not null;index"`
	EndDate     *time.Time            `gorm:"index"`
	DeletedAt   *time.Time            `gorm:"index"`
	Version     int                   `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (PaymentConceptModel) TableName() string {
	return "payment_concepts"
}

// ConceptTargetUserModel targets one user in ESTUDIANTES mode
type ConceptTargetUserModel struct {
	ConceptID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (ConceptTargetUserModel) TableName() string {
	return "concept_target_users"
}

// ConceptTargetCareerModel targets one career
type ConceptTargetCareerModel struct {
	ConceptID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CareerID  uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// TableName returns the table name for GORM
func (ConceptTargetCareerModel) TableName() string {
	return "concept_target_careers"
}

// ConceptTargetSemesterModel targets one semester number
type ConceptTargetSemesterModel struct {
	ConceptID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Semester  int       `gorm:"primaryKey;autoIncrement:false"`
}

// TableName returns the table name for GORM
func (ConceptTargetSemesterModel) TableName() string {
	return "concept_target_semesters"
}

// ConceptTargetTagModel targets one applicant tag
type ConceptTargetTagModel struct {
	ConceptID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tag       string    `gorm:"type:varchar(50);primaryKey"`
}

// TableName returns the table name for GORM
func (ConceptTargetTagModel) TableName() string {
	return "concept_target_tags"
}

// ConceptExceptionModel excludes one user from a concept
type ConceptExceptionModel struct {
	ConceptID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (ConceptExceptionModel) TableName() string {
	return "concept_exceptions"
}

// ConceptChildModels lists every table keyed by concept_id, in delete order
func ConceptChildModels() []any {
	return []any{
		&ConceptTargetUserModel{},
		&ConceptTargetCareerModel{},
		&ConceptTargetSemesterModel{},
		&ConceptTargetTagModel{},
		&ConceptExceptionModel{},
	}
}

// ConceptRows groups the set rows that belong to one concept
type ConceptRows struct {
	Users      []ConceptTargetUserModel
	Careers    []ConceptTargetCareerModel
	Semesters  []ConceptTargetSemesterModel
	Tags       []ConceptTargetTagModel
	Exceptions []ConceptExceptionModel
}

// PaymentConceptModelFromDomain flattens the aggregate into its row and set rows.
// Sets are written in sorted order so inserts are deterministic.
func PaymentConceptModelFromDomain(c *finance.PaymentConcept) (*PaymentConceptModel, ConceptRows) {
	m := &PaymentConceptModel{
		Name:        c.Name,
		Description: c.Description,
		Amount:      c.Amount.Amount(),
		Status:      c.Status,
		AppliesTo:   c.Targeting.AppliesTo,
		StartDate:   c.StartDate.UTC(),
		EndDate:     utcPtr(c.EndDate),
		DeletedAt:   utcPtr(c.DeletedAt),
		Version:     c.Version,
	}
	m.FromDomainBaseEntity(c.BaseEntity)

	var rows ConceptRows
	for _, id := range valueobject.SortedIDs(c.Targeting.UserIDs) {
		rows.Users = append(rows.Users, ConceptTargetUserModel{ConceptID: c.ID, UserID: id})
	}
	for _, id := range valueobject.SortedIDs(c.Targeting.CareerIDs) {
		rows.Careers = append(rows.Careers, ConceptTargetCareerModel{ConceptID: c.ID, CareerID: id})
	}
	for _, s := range c.Targeting.Semesters.Sorted(cmp.Compare[int]) {
		rows.Semesters = append(rows.Semesters, ConceptTargetSemesterModel{ConceptID: c.ID, Semester: s})
	}
	for _, tag := range c.Targeting.ApplicantTags.Sorted(cmp.Compare[string]) {
		rows.Tags = append(rows.Tags, ConceptTargetTagModel{ConceptID: c.ID, Tag: tag})
	}
	for _, id := range valueobject.SortedIDs(c.ExceptionUserIDs) {
		rows.Exceptions = append(rows.Exceptions, ConceptExceptionModel{ConceptID: c.ID, UserID: id})
	}
	return m, rows
}

// ToDomain rebuilds the aggregate from its row and set rows
func (m *PaymentConceptModel) ToDomain(rows ConceptRows) *finance.PaymentConcept {
	users := make([]uuid.UUID, 0, len(rows.Users))
	for _, r := range rows.Users {
		users = append(users, r.UserID)
	}
	careers := make([]uuid.UUID, 0, len(rows.Careers))
	for _, r := range rows.Careers {
		careers = append(careers, r.CareerID)
	}
	semesters := make([]int, 0, len(rows.Semesters))
	for _, r := range rows.Semesters {
		semesters = append(semesters, r.Semester)
	}
	tags := make([]string, 0, len(rows.Tags))
	for _, r := range rows.Tags {
		tags = append(tags, r.Tag)
	}
	exceptions := make([]uuid.UUID, 0, len(rows.Exceptions))
	for _, r := range rows.Exceptions {
		exceptions = append(exceptions, r.UserID)
	}

	return &finance.PaymentConcept{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.BaseModel.ToDomain(), Version: m.Version},
		Name:              m.Name,
		Description:       m.Description,
		Amount:            valueobject.NewMoney(m.Amount),
		Status:            m.Status,
		StartDate:         m.StartDate.UTC(),
		EndDate:           utcPtr(m.EndDate),
		DeletedAt:         utcPtr(m.DeletedAt),
		Targeting: finance.Targeting{
			AppliesTo:     m.AppliesTo,
			UserIDs:       valueobject.NewIDSet(users...),
			CareerIDs:     valueobject.NewIDSet(careers...),
			Semesters:     valueobject.NewSet(semesters...),
			ApplicantTags: valueobject.NewSet(tags...),
		},
		ExceptionUserIDs: valueobject.NewIDSet(exceptions...),
	}
}

// PaymentModel is the persistence model for gateway payments
type PaymentModel struct {
	BaseModel
	UserID           uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentConceptID uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	AmountReceived   decimal.NullDecimal   `gorm:"type:decimal(12,2)"`
	Status           finance.PaymentStatus `gorm:"type:varchar(30);not null;index"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentModelFromDomain converts a domain Payment to its row
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		UserID:           p.UserID,
		PaymentConceptID: p.PaymentConceptID,
		Amount:           p.Amount.Amount(),
		Status:           p.Status,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	if received, ok := p.Received(); ok {
		m.AmountReceived = decimal.NewNullDecimal(received.Amount())
	}
	return m
}

// ToDomain converts the row to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	p := &finance.Payment{
		BaseEntity:       m.BaseModel.ToDomain(),
		UserID:           m.UserID,
		PaymentConceptID: m.PaymentConceptID,
		Amount:           valueobject.NewMoney(m.Amount),
		Status:           m.Status,
	}
	if m.AmountReceived.Valid {
		received := valueobject.NewMoney(m.AmountReceived.Decimal)
		p.AmountReceived = &received
	}
	return p
}

// AllModels returns every model in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return append([]any{
		&UserModel{},
		&UserRoleModel{},
		&StudentProfileModel{},
		&PaymentConceptModel{},
	}, append(ConceptChildModels(), &PaymentModel{})...)
}
