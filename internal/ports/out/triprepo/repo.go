package triprepo

import (
	"context"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
type Trip struct {
	ID domain.TripID

	Name string

	GroupSize       int
	BudgetPerPerson float64
	TripType        *string
	TripPreferences *string

	StartDate *time.Time
	EndDate   *time.Time

	Destination     *string
	DestinationCode *string
	DestinationHint *string

	CreatedBy domain.UserID
	Members   []domain.UserID

	MemberOrigins map[domain.UserID]domain.MemberOrigin
	InvitedEmails []string

	SuggestionLikes map[string][]domain.UserID

	Status domain.TripStatus

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is the optimistic-concurrency token. Save only succeeds when the
	// stored version still matches; it is incremented on every successful Save.
	Version int64
}

// Repository provides access to persisted trips.
//
// Concurrency expectations:
//   - Save is a compare-and-swap on Version and returns ErrVersionConflict
//     when another writer got there first. Callers re-read and retry.
//   - ListByMember returns trips newest-first by CreatedAt (ties broken by ID).
type Repository interface {
	Create(ctx context.Context, t Trip) error
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)

	// ListByMember returns all trips that include uid in Members.
	ListByMember(ctx context.Context, uid domain.UserID) ([]Trip, error)
}
