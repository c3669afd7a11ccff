package accommodations

import (
	"context"
	"errors"
	"testing"
	"time"

	memaccommodations "github.com/letsrendez/rendez-api/internal/adapters/memory/accommodationrepo"
	memtrips "github.com/letsrendez/rendez-api/internal/adapters/memory/triprepo"
	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, triprepo.Repository) {
	t.Helper()
	trips := memtrips.NewRepo()
	clk := fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(trips, memaccommodations.NewRepo(), clk), trips
}

func seedTrip(t *testing.T, trips triprepo.Repository, id domain.TripID, members ...domain.UserID) {
	t.Helper()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	err := trips.Create(context.Background(), triprepo.Trip{
		ID:        id,
		Name:      "Seeded",
		GroupSize: len(members),
		CreatedBy: members[0],
		Members:   members,
		Status:    domain.TripStatusPlanning,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed trip: %v", err)
	}
}

func assertAppError(t *testing.T, err error, wantStatus int, wantCode string) {
	t.Helper()
	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *accommodations.Error, got %v (%T)", err, err)
	}
	if appErr.Status != wantStatus || appErr.Code != wantCode {
		t.Fatalf("got %d/%s, want %d/%s", appErr.Status, appErr.Code, wantStatus, wantCode)
	}
}

func TestCreate_EvenSplit(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "payer", "m2", "m3")

	a, err := svc.Create(ctx, "payer", "trip-1", CreateInput{
		Title:        "Beach House",
		Participants: []domain.UserID{"payer", "m2", "m3"},
		TotalAmount:  100,
		SplitType:    domain.SplitTypeEven,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(a.Shares) != 3 {
		t.Fatalf("shares = %v", a.Shares)
	}
	want := 100.0 / 3.0
	for uid, sh := range a.Shares {
		if sh.Amount != want {
			t.Fatalf("share[%s].Amount = %v, want %v", uid, sh.Amount, want)
		}
	}
	if a.Shares["payer"].Status != domain.ShareStatusPaid {
		t.Fatal("payer share should start paid")
	}
	if a.Shares["m2"].Status != domain.ShareStatusPending || a.Shares["m3"].Status != domain.ShareStatusPending {
		t.Fatal("non-payer shares should start pending")
	}
	if a.Currency != "USD" {
		t.Fatalf("currency default = %q", a.Currency)
	}
}

func TestCreate_CustomSplit(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "payer", "m2", "m3")

	a, err := svc.Create(ctx, "payer", "trip-1", CreateInput{
		Title:        "Cabin",
		Participants: []domain.UserID{"payer", "m2", "m3"},
		TotalAmount:  300,
		Currency:     "eur",
		SplitType:    domain.SplitTypeCustom,
		CustomShares: map[domain.UserID]float64{"payer": 200, "m2": 100},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Shares["payer"].Amount != 200 || a.Shares["m2"].Amount != 100 {
		t.Fatalf("shares = %v", a.Shares)
	}
	// Participants absent from the custom map owe nothing.
	if a.Shares["m3"].Amount != 0 {
		t.Fatalf("m3 share = %v, want 0", a.Shares["m3"].Amount)
	}
	if a.Currency != "EUR" {
		t.Fatalf("currency = %q", a.Currency)
	}
}

func TestCreate_Defaults(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "payer", "m2")

	a, err := svc.Create(ctx, "payer", "trip-1", CreateInput{Title: "Hotel", TotalAmount: 80})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.PayerID != "payer" {
		t.Fatalf("payer = %q", a.PayerID)
	}
	if len(a.Participants) != 1 || a.Participants[0] != "payer" {
		t.Fatalf("participants = %v", a.Participants)
	}
	if a.SplitType != domain.SplitTypeEven {
		t.Fatalf("splitType = %q", a.SplitType)
	}
	if a.Shares["payer"].Amount != 80 || a.Shares["payer"].Status != domain.ShareStatusPaid {
		t.Fatalf("payer share = %+v", a.Shares["payer"])
	}
}

func TestCreate_OnePerTrip(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "payer")

	if _, err := svc.Create(ctx, "payer", "trip-1", CreateInput{Title: "First", TotalAmount: 50}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(ctx, "payer", "trip-1", CreateInput{Title: "Second", TotalAmount: 60})
	assertAppError(t, err, 409, "ACCOMMODATION_EXISTS")
}

func TestCreate_AccessControl(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "owner")

	_, err := svc.Create(ctx, "stranger", "trip-1", CreateInput{Title: "Hotel", TotalAmount: 10})
	assertAppError(t, err, 403, "PERMISSION_DENIED")

	_, err = svc.Create(ctx, "owner", "no-such-trip", CreateInput{Title: "Hotel", TotalAmount: 10})
	assertAppError(t, err, 404, "TRIP_NOT_FOUND")

	_, err = svc.Create(ctx, "owner", "trip-1", CreateInput{Title: "  ", TotalAmount: 10})
	assertAppError(t, err, 422, "VALIDATION_ERROR")

	_, err = svc.Create(ctx, "owner", "trip-1", CreateInput{Title: "Hotel", TotalAmount: -1})
	assertAppError(t, err, 422, "VALIDATION_ERROR")
}

func TestGet(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "owner", "m2")

	_, err := svc.Get(ctx, "owner", "trip-1")
	assertAppError(t, err, 404, "ACCOMMODATION_NOT_FOUND")

	created, err := svc.Create(ctx, "owner", "trip-1", CreateInput{Title: "Hotel", TotalAmount: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(ctx, "m2", "trip-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != created.ID || got.Title != "Hotel" {
		t.Fatalf("got %+v", got)
	}

	_, err = svc.Get(ctx, "stranger", "trip-1")
	assertAppError(t, err, 403, "PERMISSION_DENIED")
}

func TestMarkSharePaid(t *testing.T) {
	t.Parallel()
	svc, trips := newTestService(t)
	ctx := context.Background()
	seedTrip(t, trips, "trip-1", "payer", "m2")

	a, err := svc.Create(ctx, "payer", "trip-1", CreateInput{
		Title:        "Hotel",
		Participants: []domain.UserID{"payer", "m2"},
		TotalAmount:  100,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.MarkSharePaid(ctx, "payer", "trip-1", a.ID, "m2")
	if err != nil {
		t.Fatalf("MarkSharePaid: %v", err)
	}
	if got.Shares["m2"].Status != domain.ShareStatusPaid {
		t.Fatalf("m2 share = %+v", got.Shares["m2"])
	}

	// Marking again, or marking a member with no share, is a no-op success.
	if _, err := svc.MarkSharePaid(ctx, "payer", "trip-1", a.ID, "m2"); err != nil {
		t.Fatalf("repeat MarkSharePaid: %v", err)
	}
	got, err = svc.MarkSharePaid(ctx, "payer", "trip-1", a.ID, "not-a-participant")
	if err != nil {
		t.Fatalf("absent-member MarkSharePaid: %v", err)
	}
	if len(got.Shares) != 2 {
		t.Fatalf("shares grew: %v", got.Shares)
	}

	_, err = svc.MarkSharePaid(ctx, "stranger", "trip-1", a.ID, "m2")
	assertAppError(t, err, 403, "PERMISSION_DENIED")

	_, err = svc.MarkSharePaid(ctx, "payer", "trip-1", "no-such-accommodation", "m2")
	assertAppError(t, err, 404, "ACCOMMODATION_NOT_FOUND")
}
