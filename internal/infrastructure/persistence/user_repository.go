package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// inChunkSize bounds the number of bind parameters in one IN (...) clause
const inChunkSize = 500

// GormUserRepository implements identity.UserRepository and the
// finance.UserDirectory set queries using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var (
	_ identity.UserRepository = (*GormUserRepository)(nil)
	_ finance.UserDirectory   = (*GormUserRepository)(nil)
)

// FindByID finds a user by ID with roles and profile
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	db := r.db.WithContext(ctx)

	var model models.UserModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}

	var roles []string
	if err := db.Model(&models.UserRoleModel{}).
		Where("user_id = ?", id).
		Order("role").
		Pluck("role", &roles).Error; err != nil {
		return nil, err
	}

	var profiles []models.StudentProfileModel
	if err := db.Where("user_id = ?", id).Limit(1).Find(&profiles).Error; err != nil {
		return nil, err
	}
	var profile *models.StudentProfileModel
	if len(profiles) > 0 {
		profile = &profiles[0]
	}
	return model.ToDomain(roles, profile), nil
}

// FindAll returns every user with roles and profile loaded, ordered by creation
func (r *GormUserRepository) FindAll(ctx context.Context) ([]*identity.User, error) {
	db := r.db.WithContext(ctx)

	var userModels []models.UserModel
	if err := db.Order("created_at, id").Find(&userModels).Error; err != nil {
		return nil, err
	}

	var roleRows []models.UserRoleModel
	if err := db.Order("role").Find(&roleRows).Error; err != nil {
		return nil, err
	}
	roles := make(map[uuid.UUID][]string)
	for _, row := range roleRows {
		roles[row.UserID] = append(roles[row.UserID], row.Role)
	}

	var profileRows []models.StudentProfileModel
	if err := db.Find(&profileRows).Error; err != nil {
		return nil, err
	}
	profiles := make(map[uuid.UUID]*models.StudentProfileModel, len(profileRows))
	for i := range profileRows {
		profiles[profileRows[i].UserID] = &profileRows[i]
	}

	users := make([]*identity.User, len(userModels))
	for i := range userModels {
		users[i] = userModels[i].ToDomain(roles[userModels[i].ID], profiles[userModels[i].ID])
	}
	return users, nil
}

// Save upserts the user and replaces its roles and profile in one transaction
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	model, roles, profile := models.UserModelFromDomain(user)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		if len(roles) > 0 {
			if err := tx.Create(&roles).Error; err != nil {
				return fmt.Errorf("save user roles: %w", err)
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.StudentProfileModel{}).Error; err != nil {
			return err
		}
		if profile != nil {
			if err := tx.Create(profile).Error; err != nil {
				return fmt.Errorf("save student profile: %w", err)
			}
		}
		return nil
	})
}

// AllUserIDs returns every user id
func (r *GormUserRepository) AllUserIDs(ctx context.Context) (valueobject.IDSet, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.UserModel{}).Pluck("id", &ids).Error; err != nil {
		return valueobject.IDSet{}, err
	}
	return valueobject.NewIDSet(ids...), nil
}

// ExistingUserIDs returns the subset of ids that belong to stored users
func (r *GormUserRepository) ExistingUserIDs(ctx context.Context, ids valueobject.IDSet) (valueobject.IDSet, error) {
	var found []uuid.UUID
	for _, chunk := range valueobject.Chunk(valueobject.SortedIDs(ids), inChunkSize) {
		var part []uuid.UUID
		if err := r.db.WithContext(ctx).Model(&models.UserModel{}).
			Where("id IN ?", chunk).
			Pluck("id", &part).Error; err != nil {
			return valueobject.IDSet{}, err
		}
		found = append(found, part...)
	}
	return valueobject.NewIDSet(found...), nil
}

// StudentIDs returns users whose profile matches the filter. Empty filter
// sets do not restrict.
func (r *GormUserRepository) StudentIDs(ctx context.Context, filter finance.StudentFilter) (valueobject.IDSet, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentProfileModel{})
	if !filter.CareerIDs.IsEmpty() {
		query = query.Where("career_id IN ?", valueobject.SortedIDs(filter.CareerIDs))
	}
	if !filter.Semesters.IsEmpty() {
		query = query.Where("semester IN ?", filter.Semesters.Values())
	}

	var ids []uuid.UUID
	if err := query.Pluck("user_id", &ids).Error; err != nil {
		return valueobject.IDSet{}, err
	}
	return valueobject.NewIDSet(ids...), nil
}

// UserIDsWithAnyRole returns users carrying at least one of the roles
func (r *GormUserRepository) UserIDsWithAnyRole(ctx context.Context, roles valueobject.Set[string]) (valueobject.IDSet, error) {
	if roles.IsEmpty() {
		return valueobject.NewIDSet(), nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.UserRoleModel{}).
		Distinct("user_id").
		Where("role IN ?", roles.Values()).
		Pluck("user_id", &ids).Error; err != nil {
		return valueobject.IDSet{}, err
	}
	return valueobject.NewIDSet(ids...), nil
}

// CountStudentProfiles returns how many users have a student profile
func (r *GormUserRepository) CountStudentProfiles(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.StudentProfileModel{}).Count(&n).Error
	return n, err
}
