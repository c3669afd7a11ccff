package domain

import "time"

type SplitType string

const (
	SplitTypeEven   SplitType = "even"
	SplitTypeCustom SplitType = "custom"
)

type ShareStatus string

const (
	ShareStatusPending ShareStatus = "pending"
	ShareStatusPaid    ShareStatus = "paid"
)

// Share is one participant's owed portion of a shared cost.
// Status only moves pending -> paid; there is no unpaid transition.
type Share struct {
	Amount float64
	Status ShareStatus
}

// Accommodation is the shared lodging booking attached to a trip.
// A trip has at most one.
type Accommodation struct {
	ID     AccommodationID
	TripID TripID

	Title   string
	Link    *string
	Address *string
	Notes   *string

	StartDate *time.Time
	EndDate   *time.Time

	PayerID      UserID
	Participants []UserID

	TotalAmount float64
	Currency    string
	SplitType   SplitType

	// Shares has exactly one entry per participant. The payer's own share is
	// created pre-marked paid.
	Shares map[UserID]Share

	CreatedBy UserID
	CreatedAt time.Time
}
