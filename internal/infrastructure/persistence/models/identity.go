package models

import (
	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null"`
	Email string `gorm:"type:varchar(200);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// UserRoleModel is one role (or applicant tag) carried by a user
type UserRoleModel struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role   string    `gorm:"type:varchar(50);primaryKey;index"`
}

// TableName returns the table name for GORM
func (UserRoleModel) TableName() string {
	return "user_roles"
}

// StudentProfileModel holds enrollment data; at most one per user
type StudentProfileModel struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	CareerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Semester int       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StudentProfileModel) TableName() string {
	return "student_profiles"
}

// UserModelFromDomain creates the user row plus its role and profile rows
func UserModelFromDomain(u *identity.User) (*UserModel, []UserRoleModel, *StudentProfileModel) {
	m := &UserModel{Name: u.Name, Email: u.Email}
	m.FromDomainBaseEntity(u.BaseEntity)

	roles := make([]UserRoleModel, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, UserRoleModel{UserID: u.ID, Role: r})
	}

	var profile *StudentProfileModel
	if u.StudentProfile != nil {
		profile = &StudentProfileModel{
			UserID:   u.ID,
			CareerID: u.StudentProfile.CareerID,
			Semester: u.StudentProfile.Semester,
		}
	}
	return m, roles, profile
}

// ToDomain converts the rows back to a domain User
func (m *UserModel) ToDomain(roles []string, profile *StudentProfileModel) *identity.User {
	u := &identity.User{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Email:      m.Email,
		Roles:      roles,
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	if profile != nil {
		u.StudentProfile = &identity.StudentProfile{
			CareerID: profile.CareerID,
			Semester: profile.Semester,
		}
	}
	return u
}
