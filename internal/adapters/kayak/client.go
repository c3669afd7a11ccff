// Package kayak implements a secondary flight offer source against the KAYAK
// Flights Search API. The upstream schema varies between sandbox and
// production, so parsing is deliberately tolerant: an offer that cannot be
// read resolves to zero values instead of failing the batch.
package kayak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/flightprovider"
)

const DefaultFlightsPath = "/v1/flights/search"

type Client struct {
	baseURL     string
	flightsPath string
	apiKey      string
	httpClient  *http.Client
	now         func() time.Time
}

// NewClient builds a client against the given host. An empty API key is
// allowed; calls then fail with flightprovider.ErrNotConfigured.
func NewClient(baseURL, flightsPath, apiKey string, httpClient *http.Client) *Client {
	if flightsPath == "" {
		flightsPath = DefaultFlightsPath
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		flightsPath: flightsPath,
		apiKey:      apiKey,
		httpClient:  httpClient,
		now:         time.Now,
	}
}

var _ flightprovider.OfferProvider = (*Client)(nil)

func (c *Client) SearchOffers(ctx context.Context, q flightprovider.Query) ([]domain.FlightOffer, error) {
	if c.apiKey == "" {
		return nil, flightprovider.ErrNotConfigured
	}

	body := map[string]any{
		"originLocationCode":      q.Origin,
		"destinationLocationCode": q.Destination,
		"departureDate":           q.DepartureDate,
		"adults":                  q.Adults,
	}
	if q.ReturnDate != nil {
		body["returnDate"] = *q.ReturnDate
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.flightsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flightprovider.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %d %s", flightprovider.ErrUpstream, resp.StatusCode, text)
	}

	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", flightprovider.ErrUpstream, err)
	}

	rawOffers := firstArray(envelope, "data", "results", "flights", "offers")
	offers := make([]domain.FlightOffer, 0, len(rawOffers))
	for i, raw := range rawOffers {
		offers = append(offers, c.parseOffer(raw, i, q))
	}
	return offers, nil
}

// firstArray returns the first of the named keys that decodes as a JSON
// array. Different upstream deployments nest offers under different keys.
func firstArray(envelope map[string]json.RawMessage, keys ...string) []json.RawMessage {
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr
		}
	}
	return nil
}

type rawSegment struct {
	CarrierCode string `json:"carrierCode"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Departure   struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

type rawOffer struct {
	ID    string          `json:"id"`
	Price json.RawMessage `json:"price"`

	TotalPrice json.RawMessage `json:"totalPrice"`
	Amount     json.RawMessage `json:"amount"`
	Currency   string          `json:"currency"`

	Itineraries []struct {
		Duration string       `json:"duration"`
		Segments []rawSegment `json:"segments"`
	} `json:"itineraries"`
	Segments []rawSegment `json:"segments"`
	Outbound []rawSegment `json:"outbound"`

	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      string `json:"duration"`

	NumberOfBookableSeats *int `json:"numberOfBookableSeats"`

	Carrier string `json:"carrier"`
	Airline string `json:"airline"`
}

// priceObject covers the Amadeus-style nested price shape.
type priceObject struct {
	Total    json.RawMessage `json:"total"`
	Currency string          `json:"currency"`
}

func (c *Client) parseOffer(raw json.RawMessage, index int, q flightprovider.Query) domain.FlightOffer {
	var offer rawOffer
	// Malformed entries still yield a placeholder offer rather than an error.
	_ = json.Unmarshal(raw, &offer)

	price, priceCurrency := parsePrice(offer.Price)
	if price == "" {
		price, _ = scalarString(offer.TotalPrice)
	}
	if price == "" {
		price, _ = scalarString(offer.Amount)
	}
	if price == "" {
		price = "0"
	}
	currency := priceCurrency
	if currency == "" {
		currency = offer.Currency
	}
	if currency == "" {
		currency = "USD"
	}

	segments := offer.Segments
	duration := offer.Duration
	if len(offer.Itineraries) > 0 {
		if len(offer.Itineraries[0].Segments) > 0 {
			segments = offer.Itineraries[0].Segments
		}
		if offer.Itineraries[0].Duration != "" {
			duration = offer.Itineraries[0].Duration
		}
	}
	if len(segments) == 0 {
		segments = offer.Outbound
	}

	out := domain.FlightOffer{
		ID:                    offer.ID,
		Price:                 price,
		Currency:              currency,
		Departure:             q.Origin,
		Arrival:               q.Destination,
		NumberOfBookableSeats: offer.NumberOfBookableSeats,
		Source:                "kayak",
	}
	if out.ID == "" {
		out.ID = "kayak-" + strconv.Itoa(index) + "-" + strconv.FormatInt(c.now().UnixMilli(), 10)
	}
	if duration != "" {
		out.Duration = &duration
	}

	depAt := offer.DepartureTime
	arrAt := offer.ArrivalTime
	carrier := offer.Carrier
	if carrier == "" {
		carrier = offer.Airline
	}
	if len(segments) > 0 {
		first := segments[0]
		last := segments[len(segments)-1]
		if code := coalesce(first.Departure.IATACode, first.Origin, offer.Origin); code != "" {
			out.Departure = code
		}
		if code := coalesce(last.Arrival.IATACode, last.Destination, offer.Destination); code != "" {
			out.Arrival = code
		}
		depAt = coalesce(first.Departure.At, first.DepartureTime, offer.DepartureTime)
		arrAt = coalesce(last.Arrival.At, last.ArrivalTime, offer.ArrivalTime)
		if first.CarrierCode != "" {
			carrier = first.CarrierCode
		}
	}
	if depAt != "" {
		out.DepartureTime = &depAt
	}
	if arrAt != "" {
		out.ArrivalTime = &arrAt
	}
	if carrier != "" {
		out.CarrierCode = &carrier
	}
	return out
}

// parsePrice reads the price field as either the nested object shape or a
// bare scalar.
func parsePrice(raw json.RawMessage) (price, currency string) {
	if len(raw) == 0 {
		return "", ""
	}
	var obj priceObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		if total, ok := scalarString(obj.Total); ok {
			return total, obj.Currency
		}
	}
	price, _ = scalarString(raw)
	return price, ""
}

// scalarString renders a JSON string or number as its string form.
func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
