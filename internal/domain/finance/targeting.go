package finance

import (
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Relation names reported in RelationChange
const (
	RelationAppliesTo     = "applies_to"
	RelationUsers         = "users"
	RelationCareers       = "careers"
	RelationSemesters     = "semesters"
	RelationApplicantTags = "applicant_tags"
	RelationExceptions    = "exceptions"
)

// TargetingUpdate describes a change to a concept's targeting. A nil slice
// leaves that set untouched; an empty AppliesTo keeps the current mode.
type TargetingUpdate struct {
	AppliesTo           AppliesTo
	UserIDs             []uuid.UUID
	CareerIDs           []uuid.UUID
	Semesters           []int
	ApplicantTags       []string
	ExceptionUserIDs    []uuid.UUID
	RemoveAllExceptions bool
}

// RelationChange is one changed relation, with members rendered as strings
type RelationChange struct {
	Relation string   `json:"relation"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
}

// UpdateTargeting applies update to the concept. With replace the supplied
// sets overwrite the current ones, otherwise they are merged in. Switching
// mode drops the sets the new mode does not use; sets shared by both modes
// are carried over. No error and no changes means the update was a no-op.
func (c *PaymentConcept) UpdateTargeting(update TargetingUpdate, replace bool, now time.Time) ([]RelationChange, error) {
	if !c.Status.IsUpdatable() {
		return nil, ErrConceptCannotBeUpdated
	}

	before := c.Targeting
	next := before
	if update.AppliesTo != "" {
		next.AppliesTo = update.AppliesTo
	}
	next.UserIDs = applySet(next.UserIDs, update.UserIDs, replace)
	next.CareerIDs = applySet(next.CareerIDs, update.CareerIDs, replace)
	next.Semesters = applySet(next.Semesters, update.Semesters, replace)
	next.ApplicantTags = applySet(next.ApplicantTags, update.ApplicantTags, replace)
	next = next.Normalized()

	if err := next.Validate(); err != nil {
		return nil, err
	}

	exceptions := c.ExceptionUserIDs
	switch {
	case update.RemoveAllExceptions:
		exceptions = valueobject.NewIDSet()
	case update.ExceptionUserIDs != nil && replace:
		exceptions = valueobject.NewIDSet(update.ExceptionUserIDs...)
	case update.ExceptionUserIDs != nil:
		exceptions = exceptions.Union(valueobject.NewIDSet(update.ExceptionUserIDs...))
	}

	changes := diffTargeting(before, next)
	if d := valueobject.Diff(c.ExceptionUserIDs, exceptions); d.Changed() {
		changes = append(changes, relationChange(RelationExceptions, d, uuid.UUID.String))
	}
	if len(changes) == 0 {
		return nil, nil
	}

	c.Targeting = next
	c.ReplaceExceptions(exceptions)
	c.Touch(now)
	c.AddDomainEvent(NewConceptTargetingChangedEvent(c, changes, now))
	return changes, nil
}

// applySet returns current when nothing was supplied, otherwise the
// supplied members either replacing or merged into current
func applySet[T comparable](current valueobject.Set[T], supplied []T, replace bool) valueobject.Set[T] {
	if supplied == nil {
		return current
	}
	if replace {
		return valueobject.NewSet(supplied...)
	}
	return current.Union(valueobject.NewSet(supplied...))
}

func diffTargeting(before, after Targeting) []RelationChange {
	var changes []RelationChange
	if before.AppliesTo != after.AppliesTo {
		changes = append(changes, RelationChange{
			Relation: RelationAppliesTo,
			From:     before.AppliesTo.String(),
			To:       after.AppliesTo.String(),
		})
	}
	if d := valueobject.Diff(before.UserIDs, after.UserIDs); d.Changed() {
		changes = append(changes, relationChange(RelationUsers, d, uuid.UUID.String))
	}
	if d := valueobject.Diff(before.CareerIDs, after.CareerIDs); d.Changed() {
		changes = append(changes, relationChange(RelationCareers, d, uuid.UUID.String))
	}
	if d := valueobject.Diff(before.Semesters, after.Semesters); d.Changed() {
		changes = append(changes, relationChange(RelationSemesters, d, strconv.Itoa))
	}
	if d := valueobject.Diff(before.ApplicantTags, after.ApplicantTags); d.Changed() {
		changes = append(changes, relationChange(RelationApplicantTags, d, func(s string) string { return s }))
	}
	return changes
}

func relationChange[T comparable](relation string, d valueobject.SetDiff[T], format func(T) string) RelationChange {
	return RelationChange{
		Relation: relation,
		Added:    formatSorted(d.Added, format),
		Removed:  formatSorted(d.Removed, format),
	}
}

func formatSorted[T comparable](s valueobject.Set[T], format func(T) string) []string {
	out := make([]string, 0, s.Len())
	for _, v := range s.Values() {
		out = append(out, format(v))
	}
	slices.Sort(out)
	return out
}
