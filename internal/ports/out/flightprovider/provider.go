package flightprovider

import (
	"context"

	"github.com/letsrendez/rendez-api/internal/domain"
)

// Query is one flight search request against an upstream provider.
// Dates are date-only strings (YYYY-MM-DD); IATA codes are normalized upper-case.
type Query struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    *string
	Adults        int
}

// OfferProvider returns priced itineraries in the canonical FlightOffer shape.
//
// Implementations own all upstream schema knowledge: absent or alternate field
// names resolve to zero values, never an error for individual offers. AirlineName
// and SearchURL are left unset; the flight service fills them in.
type OfferProvider interface {
	SearchOffers(ctx context.Context, q Query) ([]domain.FlightOffer, error)
}

// LocationProvider searches airports and cities by keyword.
type LocationProvider interface {
	SearchLocations(ctx context.Context, keyword string) ([]domain.LocationResult, error)
}
