package accommodationrepo

import (
	"context"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
)

// Accommodation is the persistence shape used by the accommodation repository.
type Accommodation struct {
	ID     domain.AccommodationID
	TripID domain.TripID

	Title   string
	Link    *string
	Address *string
	Notes   *string

	StartDate *time.Time
	EndDate   *time.Time

	PayerID      domain.UserID
	Participants []domain.UserID

	TotalAmount float64
	Currency    string
	SplitType   domain.SplitType

	Shares map[domain.UserID]domain.Share

	CreatedBy domain.UserID
	CreatedAt time.Time

	// Version is the optimistic-concurrency token (see triprepo.Trip).
	Version int64
}

// Repository provides access to persisted accommodations.
//
// A trip holds at most one accommodation; Create returns ErrAlreadyExists when
// the trip already has one.
type Repository interface {
	Create(ctx context.Context, a Accommodation) error
	Save(ctx context.Context, a Accommodation) error

	GetByID(ctx context.Context, tripID domain.TripID, id domain.AccommodationID) (Accommodation, error)

	// FirstByTrip returns the trip's accommodation or ErrNotFound.
	FirstByTrip(ctx context.Context, tripID domain.TripID) (Accommodation, error)
}
