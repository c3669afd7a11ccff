package accommodationrepo

import (
	"context"
	"sync"
	"time"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
)

// Repo is an in-memory implementation of accommodationrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	byID   map[domain.AccommodationID]accommodationrepo.Accommodation
	byTrip map[domain.TripID]domain.AccommodationID
}

func NewRepo() *Repo {
	return &Repo{
		byID:   make(map[domain.AccommodationID]accommodationrepo.Accommodation),
		byTrip: make(map[domain.TripID]domain.AccommodationID),
	}
}

func (r *Repo) Create(ctx context.Context, a accommodationrepo.Accommodation) error {
	_ = ctx
	if a.ID == "" || a.TripID == "" {
		return accommodationrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; ok {
		return accommodationrepo.ErrAlreadyExists
	}
	if _, ok := r.byTrip[a.TripID]; ok {
		return accommodationrepo.ErrAlreadyExists
	}
	a.Version = 1
	r.byID[a.ID] = cloneAccommodation(a)
	r.byTrip[a.TripID] = a.ID
	return nil
}

func (r *Repo) Save(ctx context.Context, a accommodationrepo.Accommodation) error {
	_ = ctx
	if a.ID == "" {
		return accommodationrepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[a.ID]
	if !ok {
		return accommodationrepo.ErrNotFound
	}
	if cur.Version != a.Version {
		return accommodationrepo.ErrVersionConflict
	}
	a.Version++
	r.byID[a.ID] = cloneAccommodation(a)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, tripID domain.TripID, id domain.AccommodationID) (accommodationrepo.Accommodation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok || a.TripID != tripID {
		return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
	}
	return cloneAccommodation(a), nil
}

func (r *Repo) FirstByTrip(ctx context.Context, tripID domain.TripID) (accommodationrepo.Accommodation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTrip[tripID]
	if !ok {
		return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
	}
	return cloneAccommodation(r.byID[id]), nil
}

func cloneAccommodation(a accommodationrepo.Accommodation) accommodationrepo.Accommodation {
	cp := a
	if a.Participants != nil {
		cp.Participants = append([]domain.UserID(nil), a.Participants...)
	}
	if a.Shares != nil {
		cp.Shares = make(map[domain.UserID]domain.Share, len(a.Shares))
		for k, v := range a.Shares {
			cp.Shares[k] = v
		}
	}
	cp.Link = cloneStringPtr(a.Link)
	cp.Address = cloneStringPtr(a.Address)
	cp.Notes = cloneStringPtr(a.Notes)
	cp.StartDate = cloneTimePtr(a.StartDate)
	cp.EndDate = cloneTimePtr(a.EndDate)
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
