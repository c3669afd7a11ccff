package domain

// FlightOffer is one priced itinerary returned by a flight search.
// It is ephemeral and never persisted.
//
// Price is kept as the upstream string (e.g. "450.00"); sorting parses it and
// treats unparsable values as 0.
type FlightOffer struct {
	ID       string
	Price    string
	Currency string

	Departure string // IATA code of the first segment's origin
	Arrival   string // IATA code of the last segment's destination

	DepartureTime *string // ISO timestamp as returned upstream
	ArrivalTime   *string

	Duration              *string // e.g. "PT5H30M"
	NumberOfBookableSeats *int

	CarrierCode *string
	AirlineName *string // resolved from the static carrier table; nil when unknown

	SearchURL string
	Source    string // upstream provider tag, e.g. "amadeus" or "kayak"
}

type LocationType string

const (
	LocationTypeAirport LocationType = "airport"
	LocationTypeCity    LocationType = "city"
)

// LocationResult is one airport/city hit from a location keyword search.
type LocationResult struct {
	Code     string
	Name     string
	FullName string
	Type     LocationType
}
