package trips

import (
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type CreateTripInput struct {
	Name            string
	GroupSize       int
	BudgetPerPerson float64
	TripType        *string
	TripPreferences *string
	StartDate       *time.Time
	EndDate         *time.Time
	Destination     *string
	DestinationCode *string
	DestinationHint *string
}

type UpdateTripInput struct {
	// Name is optional and cannot be null.
	Name Optional[string]

	GroupSize       Optional[int]
	BudgetPerPerson Optional[float64]
	TripType        Optional[string]
	TripPreferences Optional[string]
	StartDate       Optional[time.Time]
	EndDate         Optional[time.Time]
	Destination     Optional[string]
	DestinationCode Optional[string]
	DestinationHint Optional[string]
	Status          Optional[string]
}

// InviteResult reports which addresses were recorded on the trip.
type InviteResult struct {
	Invited    []string
	InviteLink string
}

// AcceptResult reports the outcome of joining a trip.
type AcceptResult struct {
	TripName      string
	AlreadyMember bool
}

// LikeResult is the suggestion-like ledger's contract with the UI:
// the resulting flag plus everyone currently liking the code.
type LikeResult struct {
	Liked   bool
	LikedBy []domain.UserID
}
