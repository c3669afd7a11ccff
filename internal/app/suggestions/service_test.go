package suggestions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	memtrips "github.com/letsrendez/rendez-api/internal/adapters/memory/triprepo"
	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/suggestprovider"
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

type stubProvider struct {
	suggestions []domain.DestinationSuggestion
	err         error
	gotReq      *suggestprovider.Request
}

func (s *stubProvider) Suggest(_ context.Context, req suggestprovider.Request) ([]domain.DestinationSuggestion, error) {
	s.gotReq = &req
	return s.suggestions, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validInput() Input {
	return Input{
		TripType:        "beach",
		BudgetPerPerson: 800,
		GroupSize:       4,
		DepartureDate:   "2026-06-10T00:00:00Z",
		ReturnDate:      "2026-06-17",
		MemberOrigins:   map[string]string{"u1": "DEN", "u2": "", "u3": "SFO"},
	}
}

func TestSuggest_RequestShaping(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{suggestions: []domain.DestinationSuggestion{
		{Name: "Cabo San Lucas", IATACode: "SJD", Blurb: "Beach and nightlife hub.", CostTier: domain.CostTierAt},
	}}
	svc := NewService(memtrips.NewRepo(), provider, discardLogger())

	in := validInput()
	in.Limit = 50 // clamped
	res, err := svc.Suggest(context.Background(), "u1", in)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Error != "" || len(res.Suggestions) != 1 {
		t.Fatalf("result = %+v", res)
	}

	if provider.gotReq.Limit != 10 {
		t.Fatalf("limit = %d, want 10", provider.gotReq.Limit)
	}
	if provider.gotReq.DepartureDate != "2026-06-10" {
		t.Fatalf("departureDate = %q", provider.gotReq.DepartureDate)
	}
	if len(provider.gotReq.DepartureCities) != 2 {
		t.Fatalf("departureCities = %v, want blank origins dropped", provider.gotReq.DepartureCities)
	}
}

func TestSuggest_DefaultLimit(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{suggestions: []domain.DestinationSuggestion{{Name: "Lisbon", IATACode: "LIS", CostTier: domain.CostTierAt}}}
	svc := NewService(memtrips.NewRepo(), provider, discardLogger())

	if _, err := svc.Suggest(context.Background(), "u1", validInput()); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if provider.gotReq.Limit != 3 {
		t.Fatalf("limit = %d, want default 3", provider.gotReq.Limit)
	}
}

func TestSuggest_MissingFields(t *testing.T) {
	t.Parallel()
	svc := NewService(memtrips.NewRepo(), &stubProvider{}, discardLogger())

	in := validInput()
	in.ReturnDate = " "
	res, err := svc.Suggest(context.Background(), "u1", in)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Error != "Missing trip type, departure date, or return date." || len(res.Suggestions) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestSuggest_Degradation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := NewService(memtrips.NewRepo(), &stubProvider{err: suggestprovider.ErrNotConfigured}, discardLogger())
	res, err := svc.Suggest(ctx, "u1", validInput())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Error != "Destination suggestions are not configured. Please try again later." {
		t.Fatalf("not-configured envelope = %+v", res)
	}

	svc = NewService(memtrips.NewRepo(), &stubProvider{err: errors.New("boom")}, discardLogger())
	res, err = svc.Suggest(ctx, "u1", validInput())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Error != "Could not load destination suggestions. Please try again." {
		t.Fatalf("failure envelope = %+v", res)
	}

	svc = NewService(memtrips.NewRepo(), &stubProvider{}, discardLogger())
	res, err = svc.Suggest(ctx, "u1", validInput())
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Error != "No suggestions returned." {
		t.Fatalf("empty envelope = %+v", res)
	}
}

func TestSuggest_TripAccessControl(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	trips := memtrips.NewRepo()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	err := trips.Create(ctx, triprepo.Trip{
		ID:        "trip-1",
		Name:      "Trip",
		GroupSize: 2,
		CreatedBy: "owner",
		Members:   []domain.UserID{"owner"},
		Status:    domain.TripStatusPlanning,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}

	provider := &stubProvider{suggestions: []domain.DestinationSuggestion{{Name: "Lisbon", IATACode: "LIS", CostTier: domain.CostTierAt}}}
	svc := NewService(trips, provider, discardLogger())

	in := validInput()
	in.TripID = "trip-1"
	if _, err := svc.Suggest(ctx, "owner", in); err != nil {
		t.Fatalf("member Suggest: %v", err)
	}

	_, err = svc.Suggest(ctx, "stranger", in)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}

	in.TripID = "no-such-trip"
	_, err = svc.Suggest(ctx, "owner", in)
	if !errors.As(err, &appErr) || appErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}

	// Field validation is answered before the trip is consulted, so an
	// incomplete request never turns into an access error.
	in.TripID = "trip-1"
	in.TripType = ""
	res, err := svc.Suggest(ctx, "stranger", in)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Error != "Missing trip type, departure date, or return date." {
		t.Fatalf("result = %+v", res)
	}
}
