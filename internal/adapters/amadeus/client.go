// Package amadeus implements flight offer and location search against the
// Amadeus Self-Service APIs.
package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/flightprovider"
)

const (
	HostTest       = "https://test.api.amadeus.com"
	HostProduction = "https://api.amadeus.com"

	// maxOffers is the page size requested from the offer search.
	maxOffers = 10

	// locationPageLimit is the page size for keyword location search.
	locationPageLimit = 12

	maxKeywordLen = 64
)

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient builds a client against the given host. Empty credentials are
// allowed; calls then fail with flightprovider.ErrNotConfigured.
func NewClient(baseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

var _ flightprovider.OfferProvider = (*Client)(nil)
var _ flightprovider.LocationProvider = (*Client)(nil)

// token returns a cached OAuth2 access token, exchanging client credentials
// when the cache is empty or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", flightprovider.ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth request: %v", flightprovider.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: auth failed: %d %s", flightprovider.ErrUpstream, resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: auth response: %v", flightprovider.ErrUpstream, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: auth response missing token", flightprovider.ErrUpstream)
	}

	c.accessToken = tok.AccessToken
	// Refresh a minute early to avoid racing the expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", flightprovider.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s: %d %s", flightprovider.ErrUpstream, path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", flightprovider.ErrUpstream, path, err)
	}
	return nil
}

type offerSearchResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				CarrierCode string `json:"carrierCode"`
				Departure   struct {
					IATACode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					IATACode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"arrival"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
		NumberOfBookableSeats *int `json:"numberOfBookableSeats"`
	} `json:"data"`
}

func (c *Client) SearchOffers(ctx context.Context, q flightprovider.Query) ([]domain.FlightOffer, error) {
	params := url.Values{
		"originLocationCode":      {q.Origin},
		"destinationLocationCode": {q.Destination},
		"departureDate":           {q.DepartureDate},
		"adults":                  {strconv.Itoa(q.Adults)},
		"max":                     {strconv.Itoa(maxOffers)},
	}
	if q.ReturnDate != nil {
		params.Set("returnDate", *q.ReturnDate)
	}

	var resp offerSearchResponse
	if err := c.get(ctx, "/v2/shopping/flight-offers", params, &resp); err != nil {
		return nil, err
	}

	offers := make([]domain.FlightOffer, 0, len(resp.Data))
	for _, raw := range resp.Data {
		o := domain.FlightOffer{
			ID:                    raw.ID,
			Price:                 raw.Price.Total,
			Currency:              raw.Price.Currency,
			NumberOfBookableSeats: raw.NumberOfBookableSeats,
			Source:                "amadeus",
		}
		if o.Currency == "" {
			o.Currency = "USD"
		}
		if len(raw.Itineraries) > 0 {
			it := raw.Itineraries[0]
			if it.Duration != "" {
				d := it.Duration
				o.Duration = &d
			}
			if len(it.Segments) > 0 {
				first := it.Segments[0]
				last := it.Segments[len(it.Segments)-1]
				o.Departure = first.Departure.IATACode
				o.Arrival = last.Arrival.IATACode
				if first.Departure.At != "" {
					at := first.Departure.At
					o.DepartureTime = &at
				}
				if last.Arrival.At != "" {
					at := last.Arrival.At
					o.ArrivalTime = &at
				}
				if first.CarrierCode != "" {
					cc := first.CarrierCode
					o.CarrierCode = &cc
				}
			}
		}
		offers = append(offers, o)
	}
	return offers, nil
}

type locationSearchResponse struct {
	Data []struct {
		SubType  string `json:"subType"`
		Name     string `json:"name"`
		IATACode string `json:"iataCode"`
		Address  struct {
			CityName string `json:"cityName"`
		} `json:"address"`
	} `json:"data"`
}

func (c *Client) SearchLocations(ctx context.Context, keyword string) ([]domain.LocationResult, error) {
	if len(keyword) > maxKeywordLen {
		keyword = keyword[:maxKeywordLen]
	}
	params := url.Values{
		"subType":     {"AIRPORT,CITY"},
		"keyword":     {keyword},
		"page[limit]": {strconv.Itoa(locationPageLimit)},
		"view":        {"LIGHT"},
	}

	var resp locationSearchResponse
	if err := c.get(ctx, "/v1/reference-data/locations", params, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.LocationResult, 0, len(resp.Data))
	for _, loc := range resp.Data {
		if loc.IATACode == "" || loc.Name == "" {
			continue
		}
		code := domain.NormalizeIATACode(loc.IATACode)
		name := strings.TrimSpace(loc.Name)
		city := strings.TrimSpace(loc.Address.CityName)

		// Prefer "City (CODE)" when the city differs from the airport name.
		display := name + " (" + code + ")"
		if city != "" && city != name {
			display = city + " (" + code + ")"
		}

		typ := domain.LocationTypeAirport
		if strings.EqualFold(loc.SubType, "CITY") {
			typ = domain.LocationTypeCity
		}
		results = append(results, domain.LocationResult{
			Code:     code,
			Name:     name,
			FullName: display,
			Type:     typ,
		})
	}
	return results, nil
}
