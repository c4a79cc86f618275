package finance_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findChange(changes []finance.RelationChange, relation string) *finance.RelationChange {
	for i := range changes {
		if changes[i].Relation == relation {
			return &changes[i]
		}
	}
	return nil
}

func TestUpdateTargeting_ReplaceStudentList(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	concept := newConcept(t, finance.Targeting{
		AppliesTo: finance.AppliesToStudents,
		UserIDs:   valueobject.NewIDSet(a, b, c),
	})

	changes, err := concept.UpdateTargeting(finance.TargetingUpdate{UserIDs: []uuid.UUID{b, c, d}}, true, testNow)
	require.NoError(t, err)

	users := findChange(changes, finance.RelationUsers)
	require.NotNil(t, users)
	assert.Equal(t, []string{d.String()}, users.Added)
	assert.Equal(t, []string{a.String()}, users.Removed)
	assert.True(t, concept.Targeting.UserIDs.Equal(valueobject.NewIDSet(b, c, d)))
}

func TestUpdateTargeting_MergeAddsToExistingSet(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	concept := newConcept(t, finance.Targeting{
		AppliesTo: finance.AppliesToStudents,
		UserIDs:   valueobject.NewIDSet(a),
	})

	_, err := concept.UpdateTargeting(finance.TargetingUpdate{UserIDs: []uuid.UUID{b}}, false, testNow)
	require.NoError(t, err)
	assert.True(t, concept.Targeting.UserIDs.Equal(valueobject.NewIDSet(a, b)))
}

func TestUpdateTargeting_ModeSwitch(t *testing.T) {
	career := uuid.New()

	t.Run("clears sets the new mode does not use", func(t *testing.T) {
		concept := newConcept(t, finance.Targeting{
			AppliesTo: finance.AppliesToCareer,
			CareerIDs: valueobject.NewIDSet(career),
		})

		changes, err := concept.UpdateTargeting(finance.TargetingUpdate{
			AppliesTo: finance.AppliesToSemester,
			Semesters: []int{3},
		}, false, testNow)
		require.NoError(t, err)

		assert.True(t, concept.Targeting.CareerIDs.IsEmpty())
		mode := findChange(changes, finance.RelationAppliesTo)
		require.NotNil(t, mode)
		assert.Equal(t, "CARRERA", mode.From)
		assert.Equal(t, "SEMESTRE", mode.To)
		assert.NotNil(t, findChange(changes, finance.RelationCareers))
	})

	t.Run("keeps sets shared by both modes", func(t *testing.T) {
		concept := newConcept(t, finance.Targeting{
			AppliesTo: finance.AppliesToCareer,
			CareerIDs: valueobject.NewIDSet(career),
		})

		_, err := concept.UpdateTargeting(finance.TargetingUpdate{
			AppliesTo: finance.AppliesToCareerSemester,
			Semesters: []int{1, 2},
		}, false, testNow)
		require.NoError(t, err)
		assert.True(t, concept.Targeting.CareerIDs.Contains(career))
	})

	t.Run("missing required set is rejected", func(t *testing.T) {
		concept := newConcept(t, allUsers())
		_, err := concept.UpdateTargeting(finance.TargetingUpdate{AppliesTo: finance.AppliesToTag}, true, testNow)
		assert.ErrorIs(t, err, finance.ErrRequiredForAppliesTo)
		assert.Equal(t, finance.AppliesToAll, concept.Targeting.AppliesTo)
	})
}

func TestUpdateTargeting_NoChanges(t *testing.T) {
	a := uuid.New()
	concept := newConcept(t, finance.Targeting{
		AppliesTo: finance.AppliesToStudents,
		UserIDs:   valueobject.NewIDSet(a),
	})
	concept.ClearDomainEvents()
	updatedAt := concept.UpdatedAt

	changes, err := concept.UpdateTargeting(finance.TargetingUpdate{UserIDs: []uuid.UUID{a}}, false, testNow)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, concept.GetDomainEvents())
	assert.Equal(t, updatedAt, concept.UpdatedAt)
}

func TestUpdateTargeting_TagCaseIsNotAChange(t *testing.T) {
	concept := newConcept(t, finance.Targeting{
		AppliesTo:     finance.AppliesToTag,
		ApplicantTags: valueobject.NewSet("applicant"),
	})

	changes, err := concept.UpdateTargeting(finance.TargetingUpdate{ApplicantTags: []string{"Applicant"}}, true, testNow)
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = concept.UpdateTargeting(finance.TargetingUpdate{ApplicantTags: []string{"Financial_Staff"}}, false, testNow)
	require.NoError(t, err)
	tags := findChange(changes, finance.RelationApplicantTags)
	require.NotNil(t, tags)
	assert.Equal(t, []string{"financial_staff"}, tags.Added)
	assert.True(t, concept.Targeting.ApplicantTags.Equal(valueobject.NewSet("applicant", "financial_staff")))
}

func TestUpdateTargeting_Exceptions(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("merge", func(t *testing.T) {
		concept := newConcept(t, allUsers(), withExceptions(a))
		changes, err := concept.UpdateTargeting(finance.TargetingUpdate{ExceptionUserIDs: []uuid.UUID{b}}, false, testNow)
		require.NoError(t, err)
		assert.True(t, concept.ExceptionUserIDs.Equal(valueobject.NewIDSet(a, b)))

		ex := findChange(changes, finance.RelationExceptions)
		require.NotNil(t, ex)
		assert.Equal(t, []string{b.String()}, ex.Added)
		assert.Empty(t, ex.Removed)
	})

	t.Run("replace", func(t *testing.T) {
		concept := newConcept(t, allUsers(), withExceptions(a))
		_, err := concept.UpdateTargeting(finance.TargetingUpdate{ExceptionUserIDs: []uuid.UUID{b}}, true, testNow)
		require.NoError(t, err)
		assert.True(t, concept.ExceptionUserIDs.Equal(valueobject.NewIDSet(b)))
	})

	t.Run("remove all", func(t *testing.T) {
		concept := newConcept(t, allUsers(), withExceptions(a, b))
		_, err := concept.UpdateTargeting(finance.TargetingUpdate{RemoveAllExceptions: true}, false, testNow)
		require.NoError(t, err)
		assert.True(t, concept.ExceptionUserIDs.IsEmpty())
	})
}

func TestUpdateTargeting_EmitsEvent(t *testing.T) {
	concept := newConcept(t, allUsers())
	concept.ClearDomainEvents()

	_, err := concept.UpdateTargeting(finance.TargetingUpdate{
		AppliesTo:     finance.AppliesToTag,
		ApplicantTags: []string{"applicant"},
	}, true, testNow)
	require.NoError(t, err)

	events := concept.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, finance.EventTypeConceptTargetingChanged, events[0].EventType())
	assert.Empty(t, concept.GetDomainEvents())
}

func TestUpdateTargeting_RefusedWhenNotUpdatable(t *testing.T) {
	concept := newConcept(t, allUsers())
	require.NoError(t, concept.SoftDelete(testNow))

	_, err := concept.UpdateTargeting(finance.TargetingUpdate{AppliesTo: finance.AppliesToStudents, UserIDs: []uuid.UUID{uuid.New()}}, true, testNow)
	assert.ErrorIs(t, err, finance.ErrConceptCannotBeUpdated)
}
