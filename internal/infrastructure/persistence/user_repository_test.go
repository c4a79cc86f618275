package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUserRepository_SaveAndFind(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	career := uuid.New()

	u := seedUser(t, repo, "ana", []string{identity.RoleApplicant}, career, 3)

	t.Run("loads roles and profile", func(t *testing.T) {
		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "ana", got.Name)
		assert.Equal(t, "ana@school.test", got.Email)
		assert.Equal(t, []string{identity.RoleApplicant, identity.RoleStudent}, got.Roles)
		require.NotNil(t, got.StudentProfile)
		assert.Equal(t, career, got.StudentProfile.CareerID)
		assert.Equal(t, 3, got.StudentProfile.Semester)
	})

	t.Run("save replaces roles and profile", func(t *testing.T) {
		u.Roles = []string{identity.RoleFinancialStaff}
		u.StudentProfile = nil
		require.NoError(t, repo.Save(ctx, u))

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{identity.RoleFinancialStaff}, got.Roles)
		assert.Nil(t, got.StudentProfile)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}

func TestGormUserRepository_Directory(t *testing.T) {
	repo := NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()
	careerA, careerB := uuid.New(), uuid.New()

	a1 := seedUser(t, repo, "a1", nil, careerA, 1)
	a2 := seedUser(t, repo, "a2", nil, careerA, 2)
	b1 := seedUser(t, repo, "b1", nil, careerB, 1)
	app := seedUser(t, repo, "applicant", []string{identity.RoleApplicant}, uuid.Nil, 0)
	staff := seedUser(t, repo, "staff", []string{identity.RoleFinancialStaff}, uuid.Nil, 0)

	t.Run("all users", func(t *testing.T) {
		ids, err := repo.AllUserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, ids.Len())
	})

	t.Run("existing users drops unknown ids", func(t *testing.T) {
		ids, err := repo.ExistingUserIDs(ctx, valueobject.NewIDSet(a1.ID, staff.ID, uuid.New()))
		require.NoError(t, err)
		assert.True(t, ids.Equal(valueobject.NewIDSet(a1.ID, staff.ID)))
	})

	t.Run("students by career", func(t *testing.T) {
		ids, err := repo.StudentIDs(ctx, finance.StudentFilter{CareerIDs: valueobject.NewIDSet(careerA)})
		require.NoError(t, err)
		assert.True(t, ids.Equal(valueobject.NewIDSet(a1.ID, a2.ID)))
	})

	t.Run("students by semester", func(t *testing.T) {
		ids, err := repo.StudentIDs(ctx, finance.StudentFilter{Semesters: valueobject.NewSet(1)})
		require.NoError(t, err)
		assert.True(t, ids.Equal(valueobject.NewIDSet(a1.ID, b1.ID)))
	})

	t.Run("students by career and semester", func(t *testing.T) {
		ids, err := repo.StudentIDs(ctx, finance.StudentFilter{
			CareerIDs: valueobject.NewIDSet(careerB),
			Semesters: valueobject.NewSet(1, 2),
		})
		require.NoError(t, err)
		assert.True(t, ids.Equal(valueobject.NewIDSet(b1.ID)))
	})

	t.Run("any role", func(t *testing.T) {
		ids, err := repo.UserIDsWithAnyRole(ctx, valueobject.NewSet(identity.RoleApplicant, identity.RoleFinancialStaff))
		require.NoError(t, err)
		assert.True(t, ids.Equal(valueobject.NewIDSet(app.ID, staff.ID)))

		ids, err = repo.UserIDsWithAnyRole(ctx, valueobject.NewSet[string]())
		require.NoError(t, err)
		assert.True(t, ids.IsEmpty())
	})

	t.Run("student profile count", func(t *testing.T) {
		n, err := repo.CountStudentProfiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("find all", func(t *testing.T) {
		users, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 5)
	})
}

// The SQL set queries must select exactly the users Applies accepts.
func TestResolver_MatchesFilterAffected(t *testing.T) {
	db := setupTestDB(t)
	users := NewGormUserRepository(db)
	ctx := context.Background()
	careerA, careerB := uuid.New(), uuid.New()

	var students []*identity.User
	for i := 0; i < 12; i++ {
		career := careerA
		if i%3 == 0 {
			career = careerB
		}
		tags := []string(nil)
		if i%4 == 0 {
			tags = []string{identity.RoleApplicant}
		}
		students = append(students, seedUser(t, users, "student"+string(rune('a'+i)), tags, career, i%5+1))
	}
	seedUser(t, users, "applicant", []string{identity.RoleApplicant}, uuid.Nil, 0)
	seedUser(t, users, "noenroll", []string{identity.RoleApplicantNoEnrollment}, uuid.Nil, 0)
	seedUser(t, users, "staff", []string{identity.RoleFinancialStaff}, uuid.Nil, 0)

	all, err := users.FindAll(ctx)
	require.NoError(t, err)

	exception := students[1].ID
	targetings := map[string]finance.Targeting{
		"all": {AppliesTo: finance.AppliesToAll},
		"students": {
			AppliesTo: finance.AppliesToStudents,
			UserIDs:   valueobject.NewIDSet(students[0].ID, students[1].ID, uuid.New()),
		},
		"career": {
			AppliesTo: finance.AppliesToCareer,
			CareerIDs: valueobject.NewIDSet(careerA),
		},
		"semester": {
			AppliesTo: finance.AppliesToSemester,
			Semesters: valueobject.NewSet(2, 3),
		},
		"career and semester": {
			AppliesTo: finance.AppliesToCareerSemester,
			CareerIDs: valueobject.NewIDSet(careerA, careerB),
			Semesters: valueobject.NewSet(2),
		},
		"tag": {
			AppliesTo:     finance.AppliesToTag,
			ApplicantTags: valueobject.NewSet(identity.RoleApplicant, identity.RoleApplicantNoEnrollment),
		},
	}

	resolver := finance.NewResolver(users)
	for name, targeting := range targetings {
		t.Run(name, func(t *testing.T) {
			c, err := finance.NewPaymentConcept(finance.NewConceptParams{
				Name:             "Concept " + name,
				Amount:           valueobject.MustMoney("100.00"),
				StartDate:        testNow,
				Targeting:        targeting,
				ExceptionUserIDs: []uuid.UUID{exception},
			}, testNow)
			require.NoError(t, err)

			got, err := resolver.AffectedUserIDs(ctx, c)
			require.NoError(t, err)
			want := finance.FilterAffected(all, c)
			assert.Equal(t, valueobject.SortedIDs(want), valueobject.SortedIDs(got))
			assert.False(t, got.Contains(exception))
		})
	}
}
