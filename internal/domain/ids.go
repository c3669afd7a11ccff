package domain

// UserID is the authenticated user extracted from JWT claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
type UserID string

// TripID is an internal identifier for a trip record.
type TripID string

// AccommodationID is an internal identifier for an accommodation record.
type AccommodationID string
