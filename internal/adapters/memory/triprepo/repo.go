package triprepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]triprepo.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]triprepo.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid for now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	t.Version = 1
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[t.ID]
	if !ok {
		return triprepo.ErrNotFound
	}
	if cur.Version != t.Version {
		return triprepo.ErrVersionConflict
	}
	t.Version++
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return cloneTrip(t), nil
}

func (r *Repo) ListByMember(ctx context.Context, uid domain.UserID) ([]triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]triprepo.Trip, 0)
	for _, t := range r.byID {
		for _, m := range t.Members {
			if m == uid {
				out = append(out, cloneTrip(t))
				break
			}
		}
	}
	sortTrips(out)
	return out, nil
}

func cloneTrip(t triprepo.Trip) triprepo.Trip {
	cp := t
	if t.Members != nil {
		cp.Members = append([]domain.UserID(nil), t.Members...)
	}
	if t.InvitedEmails != nil {
		cp.InvitedEmails = append([]string(nil), t.InvitedEmails...)
	}
	if t.MemberOrigins != nil {
		cp.MemberOrigins = make(map[domain.UserID]domain.MemberOrigin, len(t.MemberOrigins))
		for k, v := range t.MemberOrigins {
			o := v
			o.DepartureCity = cloneStringPtr(v.DepartureCity)
			o.DepartureCode = cloneStringPtr(v.DepartureCode)
			cp.MemberOrigins[k] = o
		}
	}
	if t.SuggestionLikes != nil {
		cp.SuggestionLikes = make(map[string][]domain.UserID, len(t.SuggestionLikes))
		for k, v := range t.SuggestionLikes {
			cp.SuggestionLikes[k] = append([]domain.UserID(nil), v...)
		}
	}
	cp.TripType = cloneStringPtr(t.TripType)
	cp.TripPreferences = cloneStringPtr(t.TripPreferences)
	cp.Destination = cloneStringPtr(t.Destination)
	cp.DestinationCode = cloneStringPtr(t.DestinationCode)
	cp.DestinationHint = cloneStringPtr(t.DestinationHint)
	cp.StartDate = cloneTimePtr(t.StartDate)
	cp.EndDate = cloneTimePtr(t.EndDate)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortTrips(ts []triprepo.Trip) {
	// Newest first by createdAt; tie-breaker ID for determinism.
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return string(a.ID) < string(b.ID)
	})
}
