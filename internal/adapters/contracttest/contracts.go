// Package contracttest holds behavior contracts shared by every adapter
// implementation of an outbound port. Memory and Postgres repos run the same
// contract so callers can swap backends without semantic drift.
package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/letsrendez/rendez-api/internal/domain"
	accommodationrepoport "github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
	idempotencyport "github.com/letsrendez/rendez-api/internal/ports/out/idempotency"
	triprepoport "github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type AccommodationRepoFactory func(t *testing.T) (accommodationrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	id := domain.TripID(uuid.NewString())
	trip := triprepoport.Trip{
		ID:              id,
		Name:            "Cabo 2026",
		GroupSize:       4,
		BudgetPerPerson: 800,
		CreatedBy:       "u1",
		Members:         []domain.UserID{"u1"},
		MemberOrigins:   map[domain.UserID]domain.MemberOrigin{},
		SuggestionLikes: map[string][]domain.UserID{},
		Status:          domain.TripStatusPlanning,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(ctx, trip); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, trip); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate Create err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Cabo 2026" || got.Version == 0 {
		t.Fatalf("unexpected trip: %+v", got)
	}

	// CAS save: stale version must conflict.
	stale := got
	got.Members = append(got.Members, "u2")
	got.SuggestionLikes["SJD"] = []domain.UserID{"u1"}
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, stale); !errors.Is(err, triprepoport.ErrVersionConflict) {
		t.Fatalf("stale Save err=%v, want ErrVersionConflict", err)
	}

	got, err = repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID after save: %v", err)
	}
	if len(got.Members) != 2 || len(got.SuggestionLikes["SJD"]) != 1 {
		t.Fatalf("save not applied: %+v", got)
	}

	// Membership listing, newest first.
	id2 := domain.TripID(uuid.NewString())
	trip2 := trip
	trip2.ID = id2
	trip2.Name = "Vegas"
	trip2.Members = []domain.UserID{"u1", "u2"}
	trip2.CreatedAt = now.Add(time.Hour)
	if err := repo.Create(ctx, trip2); err != nil {
		t.Fatalf("Create trip2: %v", err)
	}
	ts, err := repo.ListByMember(ctx, "u2")
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(ts) != 2 || ts[0].ID != id2 {
		t.Fatalf("unexpected member listing: %#v", ts)
	}
	ts, err = repo.ListByMember(ctx, "u9")
	if err != nil || len(ts) != 0 {
		t.Fatalf("non-member listing: %v %#v", err, ts)
	}

	if _, err := repo.GetByID(ctx, domain.TripID(uuid.NewString())); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("missing GetByID err=%v, want ErrNotFound", err)
	}
}

func RunAccommodationRepo(t *testing.T, newRepo AccommodationRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	tripID := domain.TripID(uuid.NewString())
	id := domain.AccommodationID(uuid.NewString())
	acc := accommodationrepoport.Accommodation{
		ID:           id,
		TripID:       tripID,
		Title:        "Casa Azul",
		PayerID:      "u1",
		Participants: []domain.UserID{"u1", "u2", "u3"},
		TotalAmount:  1200,
		Currency:     "USD",
		SplitType:    domain.SplitTypeEven,
		Shares: map[domain.UserID]domain.Share{
			"u1": {Amount: 400, Status: domain.ShareStatusPaid},
			"u2": {Amount: 400, Status: domain.ShareStatusPending},
			"u3": {Amount: 400, Status: domain.ShareStatusPending},
		},
		CreatedBy: "u1",
		CreatedAt: now,
	}
	if err := repo.Create(ctx, acc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// One accommodation per trip.
	dup := acc
	dup.ID = domain.AccommodationID(uuid.NewString())
	if err := repo.Create(ctx, dup); !errors.Is(err, accommodationrepoport.ErrAlreadyExists) {
		t.Fatalf("second Create err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.FirstByTrip(ctx, tripID)
	if err != nil {
		t.Fatalf("FirstByTrip: %v", err)
	}
	if got.ID != id || got.Version == 0 {
		t.Fatalf("unexpected accommodation: %+v", got)
	}

	stale := got
	s := got.Shares["u2"]
	s.Status = domain.ShareStatusPaid
	got.Shares["u2"] = s
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, stale); !errors.Is(err, accommodationrepoport.ErrVersionConflict) {
		t.Fatalf("stale Save err=%v, want ErrVersionConflict", err)
	}

	got, err = repo.GetByID(ctx, tripID, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Shares["u2"].Status != domain.ShareStatusPaid {
		t.Fatalf("share status not persisted: %+v", got.Shares)
	}

	if _, err := repo.FirstByTrip(ctx, domain.TripID(uuid.NewString())); !errors.Is(err, accommodationrepoport.ErrNotFound) {
		t.Fatalf("missing FirstByTrip err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, domain.TripID(uuid.NewString()), id); !errors.Is(err, accommodationrepoport.ErrNotFound) {
		t.Fatalf("wrong-trip GetByID err=%v, want ErrNotFound", err)
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.UserID("sub-1"),
		Method:   "POST",
		Route:    "/trips/{tripId}/invites",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}
