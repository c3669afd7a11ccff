package kayak

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/letsrendez/rendez-api/internal/ports/out/flightprovider"
)

func testQuery() flightprovider.Query {
	ret := "2026-06-17"
	return flightprovider.Query{
		Origin:        "DEN",
		Destination:   "LIS",
		DepartureDate: "2026-06-10",
		ReturnDate:    &ret,
		Adults:        2,
	}
}

func newTestClient(t *testing.T, responseBody string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/flights/search" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "key-1" {
			t.Errorf("x-api-key = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["originLocationCode"] != "DEN" || body["returnDate"] != "2026-06-17" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(responseBody))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", "key-1", srv.Client()), srv
}

func TestSearchOffers_AmadeusStyleShape(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, `{"data":[{
		"id":"k-1",
		"price":{"total":"199.50","currency":"EUR"},
		"itineraries":[{"duration":"PT11H","segments":[
			{"carrierCode":"TP","departure":{"iataCode":"DEN","at":"2026-06-10T09:00:00"},"arrival":{"iataCode":"BOS","at":"2026-06-10T14:00:00"}},
			{"carrierCode":"TP","departure":{"iataCode":"BOS","at":"2026-06-10T16:00:00"},"arrival":{"iataCode":"LIS","at":"2026-06-11T04:00:00"}}
		]}]
	}]}`)

	offers, err := c.SearchOffers(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("SearchOffers: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("offers = %v", offers)
	}
	o := offers[0]
	if o.ID != "k-1" || o.Price != "199.50" || o.Currency != "EUR" || o.Source != "kayak" {
		t.Fatalf("offer = %+v", o)
	}
	if o.Departure != "DEN" || o.Arrival != "LIS" || o.Duration == nil || *o.Duration != "PT11H" {
		t.Fatalf("offer = %+v", o)
	}
	if o.CarrierCode == nil || *o.CarrierCode != "TP" {
		t.Fatalf("carrier = %v", o.CarrierCode)
	}
}

func TestSearchOffers_FlatShapes(t *testing.T) {
	t.Parallel()

	// results key, scalar price, flat segments with origin/destination naming.
	c, _ := newTestClient(t, `{"results":[
		{"totalPrice":149.9,"segments":[{"origin":"DEN","destination":"LIS","departureTime":"2026-06-10T07:00:00","arrivalTime":"2026-06-10T21:00:00","carrierCode":"UA"}]},
		{"price":"75","outbound":[{"origin":"DEN","destination":"LIS"}],"airline":"NK"}
	]}`)

	offers, err := c.SearchOffers(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("SearchOffers: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("offers = %v", offers)
	}
	if offers[0].Price != "149.9" || offers[0].Departure != "DEN" || offers[0].Arrival != "LIS" {
		t.Fatalf("offer 0 = %+v", offers[0])
	}
	if offers[0].DepartureTime == nil || *offers[0].DepartureTime != "2026-06-10T07:00:00" {
		t.Fatalf("offer 0 = %+v", offers[0])
	}
	if offers[1].Price != "75" || offers[1].CarrierCode == nil || *offers[1].CarrierCode != "NK" {
		t.Fatalf("offer 1 = %+v", offers[1])
	}
	// Missing ids get deterministic synthetic ones.
	if !strings.HasPrefix(offers[0].ID, "kayak-0-") || !strings.HasPrefix(offers[1].ID, "kayak-1-") {
		t.Fatalf("ids = %q, %q", offers[0].ID, offers[1].ID)
	}
}

func TestSearchOffers_MalformedEntriesDegrade(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, `{"flights":[{"price":{"weird":true}},"garbage"]}`)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	offers, err := c.SearchOffers(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("SearchOffers: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("offers = %v", offers)
	}
	for i, o := range offers {
		if o.Price != "0" || o.Currency != "USD" {
			t.Fatalf("offer %d = %+v", i, o)
		}
		// Query codes backfill the endpoints.
		if o.Departure != "DEN" || o.Arrival != "LIS" {
			t.Fatalf("offer %d = %+v", i, o)
		}
	}
	if offers[0].ID != "kayak-0-1700000000000" {
		t.Fatalf("id = %q", offers[0].ID)
	}
}

func TestSearchOffers_UnknownEnvelope(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, `{"something":{"else":1}}`)
	offers, err := c.SearchOffers(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("SearchOffers: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("offers = %v", offers)
	}
}

func TestSearchOffers_NotConfigured(t *testing.T) {
	t.Parallel()

	c := NewClient("https://api.kayak.com", "", "", nil)
	_, err := c.SearchOffers(context.Background(), testQuery())
	if !errors.Is(err, flightprovider.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSearchOffers_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "key-1", srv.Client())
	_, err := c.SearchOffers(context.Background(), testQuery())
	if !errors.Is(err, flightprovider.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}
