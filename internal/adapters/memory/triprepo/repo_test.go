package triprepo

import (
	"context"
	"testing"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
	triprepoport "github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

func seedTrip(t *testing.T, r *Repo, id domain.TripID) triprepoport.Trip {
	t.Helper()
	now := time.Unix(100, 0).UTC()
	trip := triprepoport.Trip{
		ID:              id,
		Name:            "Trip " + string(id),
		GroupSize:       2,
		CreatedBy:       "u1",
		Members:         []domain.UserID{"u1"},
		MemberOrigins:   map[domain.UserID]domain.MemberOrigin{},
		SuggestionLikes: map[string][]domain.UserID{},
		Status:          domain.TripStatusPlanning,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.Create(context.Background(), trip); err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	return trip
}

func TestRepo_CloneIsolation(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	seedTrip(t, r, "t1")

	got, err := r.GetByID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// Mutating the returned value must not affect the stored record.
	got.Members = append(got.Members, "intruder")
	got.SuggestionLikes["SJD"] = []domain.UserID{"intruder"}

	again, err := r.GetByID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetByID again: %v", err)
	}
	if len(again.Members) != 1 {
		t.Fatalf("members leaked: %v", again.Members)
	}
	if len(again.SuggestionLikes) != 0 {
		t.Fatalf("likes leaked: %v", again.SuggestionLikes)
	}
}

func TestRepo_SaveIncrementsVersion(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	seedTrip(t, r, "t1")

	got, _ := r.GetByID(context.Background(), "t1")
	v1 := got.Version
	if err := r.Save(context.Background(), got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = r.GetByID(context.Background(), "t1")
	if got.Version != v1+1 {
		t.Fatalf("version=%d, want %d", got.Version, v1+1)
	}
}
