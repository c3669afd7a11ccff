package domain

import "time"

type TripStatus string

const (
	TripStatusPlanning  TripStatus = "planning"
	TripStatusBooked    TripStatus = "booked"
	TripStatusCompleted TripStatus = "completed"
)

// MemberOrigin records where one member departs from.
// DepartureCity is a display string (e.g. "Los Angeles (LAX)"); DepartureCode
// is the bare IATA code.
type MemberOrigin struct {
	DepartureCity *string
	DepartureCode *string
}

// Trip is the domain representation of one planned group trip.
//
// Invariants:
//   - Members is non-empty and always contains CreatedBy.
//   - SuggestionLikes values are non-empty; a code with no likers is absent.
//   - DestinationCode, when present, is exactly 3 uppercase letters.
type Trip struct {
	ID   TripID
	Name string

	GroupSize       int
	BudgetPerPerson float64
	TripType        *string
	TripPreferences *string

	StartDate *time.Time // date-only semantics at the edges
	EndDate   *time.Time // date-only semantics at the edges

	Destination     *string
	DestinationCode *string
	DestinationHint *string

	CreatedBy UserID
	Members   []UserID

	MemberOrigins map[UserID]MemberOrigin
	InvitedEmails []string

	// SuggestionLikes maps a destination IATA code to the members who like it.
	SuggestionLikes map[string][]UserID

	Status TripStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsMember reports whether uid is a member of the trip.
func (t Trip) IsMember(uid UserID) bool {
	for _, m := range t.Members {
		if m == uid {
			return true
		}
	}
	return false
}
