// Package suggestions asks an external source for destination ideas matching
// a trip's shape. Like the flight search, source outages degrade to an empty
// list with an envelope error message; access-control failures on a named
// trip are still hard errors.
package suggestions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/suggestprovider"
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

const (
	defaultLimit = 3
	maxLimit     = 10
)

// Input is the raw suggestion request from the client. TripID is optional;
// when present the caller must be a member of that trip.
type Input struct {
	TripID          domain.TripID
	TripType        string
	BudgetPerPerson float64
	GroupSize       int
	DepartureDate   string
	ReturnDate      string
	MemberOrigins   map[string]string // uid -> departure IATA code
	DestinationHint string
	Limit           int
}

// Result is the suggestion envelope. Suggestions is always non-nil.
type Result struct {
	Suggestions []domain.DestinationSuggestion
	Error       string
}

type Service struct {
	trips    triprepo.Repository
	provider suggestprovider.Provider
	log      *slog.Logger
}

func NewService(trips triprepo.Repository, provider suggestprovider.Provider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{trips: trips, provider: provider, log: log}
}

func (s *Service) Suggest(ctx context.Context, caller domain.UserID, in Input) (Result, error) {
	tripType := strings.TrimSpace(in.TripType)
	dep := truncateDate(in.DepartureDate)
	ret := truncateDate(in.ReturnDate)
	if tripType == "" || dep == "" || ret == "" {
		return Result{
			Suggestions: []domain.DestinationSuggestion{},
			Error:       "Missing trip type, departure date, or return date.",
		}, nil
	}

	if in.TripID != "" {
		t, err := s.trips.GetByID(ctx, in.TripID)
		if err != nil {
			if errors.Is(err, triprepo.ErrNotFound) {
				return Result{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
			}
			return Result{}, err
		}
		member := false
		for _, m := range t.Members {
			if m == caller {
				member = true
				break
			}
		}
		if !member {
			return Result{}, &Error{Status: 403, Code: "PERMISSION_DENIED", Message: "only trip members can get suggestions for this trip"}
		}
	}

	limit := in.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	group := in.GroupSize
	if group < 1 {
		group = 1
	}
	budget := in.BudgetPerPerson
	if budget < 0 {
		budget = 0
	}

	cities := make([]string, 0, len(in.MemberOrigins))
	for _, code := range in.MemberOrigins {
		if c := strings.TrimSpace(code); c != "" {
			cities = append(cities, c)
		}
	}

	req := suggestprovider.Request{
		TripType:        tripType,
		BudgetPerPerson: budget,
		GroupSize:       group,
		DepartureDate:   dep,
		ReturnDate:      ret,
		DepartureCities: cities,
		DestinationHint: strings.TrimSpace(in.DestinationHint),
		Limit:           limit,
	}

	suggested, err := s.provider.Suggest(ctx, req)
	if err != nil {
		if errors.Is(err, suggestprovider.ErrNotConfigured) {
			s.log.ErrorContext(ctx, "suggestion source not configured")
			return Result{
				Suggestions: []domain.DestinationSuggestion{},
				Error:       "Destination suggestions are not configured. Please try again later.",
			}, nil
		}
		s.log.ErrorContext(ctx, "suggestion request failed", "error", err)
		return Result{
			Suggestions: []domain.DestinationSuggestion{},
			Error:       "Could not load destination suggestions. Please try again.",
		}, nil
	}
	if len(suggested) == 0 {
		return Result{
			Suggestions: []domain.DestinationSuggestion{},
			Error:       "No suggestions returned.",
		}, nil
	}
	return Result{Suggestions: suggested}, nil
}

func truncateDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
