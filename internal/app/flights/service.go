// Package flights aggregates priced itineraries from external providers and
// presents them as a single, price-sorted list. Provider outages and missing
// credentials degrade to an empty list with an envelope error message rather
// than a failed request.
package flights

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/flightprovider"
)

const maxMergedOffers = 20

// SearchInput carries the raw search parameters from the client. Codes and
// dates are normalized by the service.
type SearchInput struct {
	OriginCode      string
	DestinationCode string
	DepartureDate   string
	ReturnDate      *string
	Adults          int
}

// SearchResult is the search envelope. Error is a human-readable message set
// on degraded responses; Flights is always non-nil.
type SearchResult struct {
	Flights   []domain.FlightOffer
	SearchURL string
	Error     string
}

// LocationsResult is the location-search envelope.
type LocationsResult struct {
	Results []domain.LocationResult
	Error   string
}

type Service struct {
	primary   flightprovider.OfferProvider
	secondary flightprovider.OfferProvider // optional, may be nil
	locations flightprovider.LocationProvider

	affiliateID string
	log         *slog.Logger
}

func NewService(primary flightprovider.OfferProvider, secondary flightprovider.OfferProvider, locations flightprovider.LocationProvider, affiliateID string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		primary:     primary,
		secondary:   secondary,
		locations:   locations,
		affiliateID: affiliateID,
		log:         log,
	}
}

// SearchLocations searches airports and cities by keyword. A blank keyword
// short-circuits to an empty result set.
func (s *Service) SearchLocations(ctx context.Context, keyword string) LocationsResult {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return LocationsResult{Results: []domain.LocationResult{}}
	}

	results, err := s.locations.SearchLocations(ctx, keyword)
	if err != nil {
		if errors.Is(err, flightprovider.ErrNotConfigured) {
			s.log.ErrorContext(ctx, "location search not configured")
			return LocationsResult{Results: []domain.LocationResult{}, Error: "Airport search is not configured. Please try again later."}
		}
		s.log.ErrorContext(ctx, "location search failed", "error", err)
		return LocationsResult{Results: []domain.LocationResult{}, Error: "Could not search airports. Please try again."}
	}
	if results == nil {
		results = []domain.LocationResult{}
	}
	return LocationsResult{Results: results}
}

// Search merges offers from the primary provider and, when configured, the
// secondary one, sorts them by ascending price, and caps the list. Every
// returned offer carries the same outbound search URL.
func (s *Service) Search(ctx context.Context, in SearchInput) SearchResult {
	origin := domain.NormalizeIATACode(in.OriginCode)
	destination := domain.NormalizeIATACode(in.DestinationCode)
	dep := truncateDate(in.DepartureDate)
	if origin == "" || destination == "" || dep == "" {
		return SearchResult{Flights: []domain.FlightOffer{}, Error: "Missing origin, destination, or departure date."}
	}
	var ret *string
	if in.ReturnDate != nil && strings.TrimSpace(*in.ReturnDate) != "" {
		r := truncateDate(*in.ReturnDate)
		ret = &r
	}
	adults := clampAdults(in.Adults)

	q := flightprovider.Query{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: dep,
		ReturnDate:    ret,
		Adults:        adults,
	}

	offers, err := s.primary.SearchOffers(ctx, q)
	if err != nil {
		if errors.Is(err, flightprovider.ErrNotConfigured) {
			s.log.ErrorContext(ctx, "flight search not configured")
			return SearchResult{Flights: []domain.FlightOffer{}, Error: "Flight search is not configured. Please try again later."}
		}
		s.log.ErrorContext(ctx, "flight search failed", "error", err, "origin", origin, "destination", destination)
		return SearchResult{Flights: []domain.FlightOffer{}, Error: "Could not load flights. Try different dates or airports."}
	}

	// Secondary offers are best-effort: a failure there never degrades the
	// primary results.
	if s.secondary != nil {
		extra, err := s.secondary.SearchOffers(ctx, q)
		switch {
		case errors.Is(err, flightprovider.ErrNotConfigured):
			// Not set up in this deployment; nothing to add.
		case err != nil:
			s.log.WarnContext(ctx, "secondary flight search failed", "error", err)
		default:
			offers = append(offers, extra...)
		}
	}

	searchURL := s.buildSearchURL(origin, destination, dep, ret, adults)
	for i := range offers {
		offers[i].SearchURL = searchURL
		if offers[i].AirlineName == nil && offers[i].CarrierCode != nil {
			if name, ok := AirlineName(*offers[i].CarrierCode); ok {
				offers[i].AirlineName = &name
			}
		}
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return priceValue(offers[i].Price) < priceValue(offers[j].Price)
	})
	if len(offers) > maxMergedOffers {
		offers = offers[:maxMergedOffers]
	}
	if offers == nil {
		offers = []domain.FlightOffer{}
	}
	return SearchResult{Flights: offers, SearchURL: searchURL}
}

// buildSearchURL produces the outbound kayak.com deep link, with the affiliate
// tag appended when one is configured.
func (s *Service) buildSearchURL(origin, destination, dep string, ret *string, adults int) string {
	u := "https://www.kayak.com/flights/" + origin + "-" + destination + "/" + dep
	if ret != nil {
		u += "-" + *ret
	}
	u += "/" + strconv.Itoa(adults) + "adults"
	if s.affiliateID != "" {
		u += "?a=" + url.QueryEscape(s.affiliateID)
	}
	return u
}

func clampAdults(n int) int {
	if n < 1 {
		return 1
	}
	if n > 9 {
		return 9
	}
	return n
}

// truncateDate keeps the YYYY-MM-DD prefix of a possibly full timestamp.
func truncateDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// priceValue parses an upstream price string for sorting; unparsable prices
// sort as 0.
func priceValue(price string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return 0
	}
	return v
}
