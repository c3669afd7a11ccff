package suggestprovider

import (
	"context"
	"errors"

	"github.com/letsrendez/rendez-api/internal/domain"
)

// Request describes the trip the external suggestion source should propose
// destinations for. Dates are date-only strings (YYYY-MM-DD).
type Request struct {
	TripType        string
	BudgetPerPerson float64
	GroupSize       int
	DepartureDate   string
	ReturnDate      string
	DepartureCities []string
	DestinationHint string
	Limit           int
}

// Provider produces destination suggestions. The suggestion text is opaque to
// this system; implementations sanitize shape (codes, tiers, lengths) but not
// content.
type Provider interface {
	Suggest(ctx context.Context, req Request) ([]domain.DestinationSuggestion, error)
}

var (
	ErrNotConfigured = errors.New("suggestion provider not configured")
	ErrUpstream      = errors.New("suggestion provider upstream failure")
)
