package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/letsrendez/rendez-api/internal/app/trips"
	"github.com/letsrendez/rendez-api/internal/domain"
)

// --- trips ---

type memberOriginDTO struct {
	DepartureCity *string `json:"departureCity,omitempty"`
	DepartureCode *string `json:"departureCode,omitempty"`
}

type tripResponse struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	GroupSize       int                 `json:"groupSize"`
	BudgetPerPerson float64             `json:"budgetPerPerson"`
	TripType        *string             `json:"tripType,omitempty"`
	TripPreferences *string             `json:"tripPreferences,omitempty"`
	StartDate       *openapi_types.Date `json:"startDate,omitempty"`
	EndDate         *openapi_types.Date `json:"endDate,omitempty"`
	Destination     *string             `json:"destination,omitempty"`
	DestinationCode *string             `json:"destinationCode,omitempty"`
	DestinationHint *string             `json:"destinationHint,omitempty"`
	CreatedBy       string              `json:"createdBy"`
	Members         []string            `json:"members"`

	MemberOrigins   map[string]memberOriginDTO `json:"memberOrigins"`
	InvitedEmails   []string                   `json:"invitedEmails"`
	SuggestionLikes map[string][]string        `json:"suggestionLikes"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func tripFromDomain(t domain.Trip) tripResponse {
	out := tripResponse{
		ID:              string(t.ID),
		Name:            t.Name,
		GroupSize:       t.GroupSize,
		BudgetPerPerson: t.BudgetPerPerson,
		TripType:        t.TripType,
		TripPreferences: t.TripPreferences,
		StartDate:       dateFromTime(t.StartDate),
		EndDate:         dateFromTime(t.EndDate),
		Destination:     t.Destination,
		DestinationCode: t.DestinationCode,
		DestinationHint: t.DestinationHint,
		CreatedBy:       string(t.CreatedBy),
		Members:         userIDs(t.Members),
		InvitedEmails:   t.InvitedEmails,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if out.InvitedEmails == nil {
		out.InvitedEmails = []string{}
	}
	out.MemberOrigins = make(map[string]memberOriginDTO, len(t.MemberOrigins))
	for uid, o := range t.MemberOrigins {
		out.MemberOrigins[string(uid)] = memberOriginDTO{
			DepartureCity: o.DepartureCity,
			DepartureCode: o.DepartureCode,
		}
	}
	out.SuggestionLikes = make(map[string][]string, len(t.SuggestionLikes))
	for code, uids := range t.SuggestionLikes {
		out.SuggestionLikes[code] = userIDs(uids)
	}
	return out
}

type createTripRequest struct {
	Name            string              `json:"name"`
	GroupSize       int                 `json:"groupSize"`
	BudgetPerPerson float64             `json:"budgetPerPerson"`
	TripType        *string             `json:"tripType"`
	TripPreferences *string             `json:"tripPreferences"`
	StartDate       *openapi_types.Date `json:"startDate"`
	EndDate         *openapi_types.Date `json:"endDate"`
	Destination     *string             `json:"destination"`
	DestinationCode *string             `json:"destinationCode"`
	DestinationHint *string             `json:"destinationHint"`
}

func (req createTripRequest) toInput() trips.CreateTripInput {
	return trips.CreateTripInput{
		Name:            req.Name,
		GroupSize:       req.GroupSize,
		BudgetPerPerson: req.BudgetPerPerson,
		TripType:        req.TripType,
		TripPreferences: req.TripPreferences,
		StartDate:       timeFromDate(req.StartDate),
		EndDate:         timeFromDate(req.EndDate),
		Destination:     req.Destination,
		DestinationCode: req.DestinationCode,
		DestinationHint: req.DestinationHint,
	}
}

type updateTripRequest struct {
	Name            nullable.Nullable[string]             `json:"name,omitempty"`
	GroupSize       nullable.Nullable[int]                `json:"groupSize,omitempty"`
	BudgetPerPerson nullable.Nullable[float64]            `json:"budgetPerPerson,omitempty"`
	TripType        nullable.Nullable[string]             `json:"tripType,omitempty"`
	TripPreferences nullable.Nullable[string]             `json:"tripPreferences,omitempty"`
	StartDate       nullable.Nullable[openapi_types.Date] `json:"startDate,omitempty"`
	EndDate         nullable.Nullable[openapi_types.Date] `json:"endDate,omitempty"`
	Destination     nullable.Nullable[string]             `json:"destination,omitempty"`
	DestinationCode nullable.Nullable[string]             `json:"destinationCode,omitempty"`
	DestinationHint nullable.Nullable[string]             `json:"destinationHint,omitempty"`
	Status          nullable.Nullable[string]             `json:"status,omitempty"`
}

func (req updateTripRequest) toInput() trips.UpdateTripInput {
	return trips.UpdateTripInput{
		Name:            optionalOf(req.Name),
		GroupSize:       optionalOf(req.GroupSize),
		BudgetPerPerson: optionalOf(req.BudgetPerPerson),
		TripType:        optionalOf(req.TripType),
		TripPreferences: optionalOf(req.TripPreferences),
		StartDate:       optionalDate(req.StartDate),
		EndDate:         optionalDate(req.EndDate),
		Destination:     optionalOf(req.Destination),
		DestinationCode: optionalOf(req.DestinationCode),
		DestinationHint: optionalOf(req.DestinationHint),
		Status:          optionalOf(req.Status),
	}
}

type setOriginRequest struct {
	DepartureCity string `json:"departureCity"`
	DepartureCode string `json:"departureCode"`
}

// inviteRequest deliberately carries plain strings: invalid entries are
// filtered by the trips service, not rejected at decode time.
type inviteRequest struct {
	Emails []string `json:"emails"`
}

type inviteResponse struct {
	Success    bool     `json:"success"`
	Invited    []string `json:"invited"`
	InviteLink string   `json:"inviteLink"`
}

type acceptInviteResponse struct {
	Success       bool   `json:"success"`
	TripName      string `json:"tripName"`
	AlreadyMember bool   `json:"alreadyMember"`
}

type likeRequest struct {
	IataCode string `json:"iataCode"`
	Liked    bool   `json:"liked"`
}

type likeResponse struct {
	Success bool     `json:"success"`
	Liked   bool     `json:"liked"`
	LikedBy []string `json:"likedBy"`
}

type listTripsResponse struct {
	Trips []tripResponse `json:"trips"`
}

// --- accommodation ---

type shareDTO struct {
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

type accommodationResponse struct {
	ID           string              `json:"id"`
	TripID       string              `json:"tripId"`
	Title        string              `json:"title"`
	Link         *string             `json:"link,omitempty"`
	Address      *string             `json:"address,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
	StartDate    *openapi_types.Date `json:"startDate,omitempty"`
	EndDate      *openapi_types.Date `json:"endDate,omitempty"`
	PayerID      string              `json:"payerId"`
	Participants []string            `json:"participants"`
	TotalAmount  float64             `json:"totalAmount"`
	Currency     string              `json:"currency"`
	SplitType    string              `json:"splitType"`

	Shares map[string]shareDTO `json:"shares"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func accommodationFromDomain(a domain.Accommodation) accommodationResponse {
	out := accommodationResponse{
		ID:           string(a.ID),
		TripID:       string(a.TripID),
		Title:        a.Title,
		Link:         a.Link,
		Address:      a.Address,
		Notes:        a.Notes,
		StartDate:    dateFromTime(a.StartDate),
		EndDate:      dateFromTime(a.EndDate),
		PayerID:      string(a.PayerID),
		Participants: userIDs(a.Participants),
		TotalAmount:  a.TotalAmount,
		Currency:     a.Currency,
		SplitType:    string(a.SplitType),
		CreatedBy:    string(a.CreatedBy),
		CreatedAt:    a.CreatedAt,
	}
	out.Shares = make(map[string]shareDTO, len(a.Shares))
	for uid, sh := range a.Shares {
		out.Shares[string(uid)] = shareDTO{Amount: sh.Amount, Status: string(sh.Status)}
	}
	return out
}

type createAccommodationRequest struct {
	Title        string              `json:"title"`
	Link         *string             `json:"link"`
	Address      *string             `json:"address"`
	Notes        *string             `json:"notes"`
	StartDate    *openapi_types.Date `json:"startDate"`
	EndDate      *openapi_types.Date `json:"endDate"`
	PayerID      string              `json:"payerId"`
	Participants []string            `json:"participants"`
	TotalAmount  float64             `json:"totalAmount"`
	Currency     string              `json:"currency"`
	SplitType    string              `json:"splitType"`
	CustomShares map[string]float64  `json:"customShares"`
}

// --- flights & locations ---

type locationSearchRequest struct {
	Keyword string `json:"keyword"`
}

type locationDTO struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Type     string `json:"type"`
}

type locationSearchResponse struct {
	Results []locationDTO `json:"results"`
	Error   string        `json:"error,omitempty"`
}

type flightSearchRequest struct {
	OriginCode      string  `json:"originCode"`
	DestinationCode string  `json:"destinationCode"`
	DepartureDate   string  `json:"departureDate"`
	ReturnDate      *string `json:"returnDate"`
	Adults          int     `json:"adults"`
}

type flightDTO struct {
	ID                    string  `json:"id"`
	Price                 string  `json:"price"`
	Currency              string  `json:"currency"`
	Departure             string  `json:"departure"`
	Arrival               string  `json:"arrival"`
	DepartureTime         *string `json:"departureTime"`
	ArrivalTime           *string `json:"arrivalTime"`
	Duration              *string `json:"duration,omitempty"`
	NumberOfBookableSeats *int    `json:"numberOfBookableSeats,omitempty"`
	CarrierCode           *string `json:"carrierCode"`
	AirlineName           *string `json:"airlineName"`
	SearchURL             string  `json:"searchUrl"`
	Source                string  `json:"source"`
}

type flightSearchResponse struct {
	Flights   []flightDTO `json:"flights"`
	SearchURL string      `json:"searchUrl,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func flightFromDomain(o domain.FlightOffer) flightDTO {
	return flightDTO{
		ID:                    o.ID,
		Price:                 o.Price,
		Currency:              o.Currency,
		Departure:             o.Departure,
		Arrival:               o.Arrival,
		DepartureTime:         o.DepartureTime,
		ArrivalTime:           o.ArrivalTime,
		Duration:              o.Duration,
		NumberOfBookableSeats: o.NumberOfBookableSeats,
		CarrierCode:           o.CarrierCode,
		AirlineName:           o.AirlineName,
		SearchURL:             o.SearchURL,
		Source:                o.Source,
	}
}

// --- suggestions ---

type suggestionsRequest struct {
	TripID          string            `json:"tripId"`
	TripType        string            `json:"tripType"`
	BudgetPerPerson float64           `json:"budgetPerPerson"`
	GroupSize       int               `json:"groupSize"`
	DepartureDate   string            `json:"departureDate"`
	ReturnDate      string            `json:"returnDate"`
	MemberOrigins   map[string]string `json:"memberOrigins"`
	DestinationHint string            `json:"destinationHint"`
	Limit           int               `json:"limit"`
}

type suggestionDTO struct {
	Name     string `json:"name"`
	IataCode string `json:"iataCode"`
	Blurb    string `json:"blurb"`
	CostTier string `json:"costTier"`
}

type suggestionsResponse struct {
	Suggestions []suggestionDTO `json:"suggestions"`
	Error       string          `json:"error,omitempty"`
}

// --- conversion helpers ---

func userIDs(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func dateFromTime(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func timeFromDate(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func optionalOf[T any](n nullable.Nullable[T]) trips.Optional[T] {
	if !n.IsSpecified() {
		return trips.Unspecified[T]()
	}
	if n.IsNull() {
		return trips.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return trips.Unspecified[T]()
	}
	return trips.Some(v)
}

func optionalDate(n nullable.Nullable[openapi_types.Date]) trips.Optional[time.Time] {
	if !n.IsSpecified() {
		return trips.Unspecified[time.Time]()
	}
	if n.IsNull() {
		return trips.Null[time.Time]()
	}
	v, err := n.Get()
	if err != nil {
		return trips.Unspecified[time.Time]()
	}
	return trips.Some(v.Time)
}
