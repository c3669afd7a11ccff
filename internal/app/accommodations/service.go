package accommodations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
	clockport "github.com/letsrendez/rendez-api/internal/ports/out/clock"
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

const casAttempts = 5

// errNoChange marks a mutation that turned out to be a no-op; the record is
// not saved and the call still succeeds.
var errNoChange = errors.New("no change")

type CreateInput struct {
	Title   string
	Link    *string
	Address *string
	Notes   *string

	StartDate *time.Time
	EndDate   *time.Time

	// PayerID defaults to the caller when empty.
	PayerID domain.UserID

	// Participants defaults to just the payer when empty.
	Participants []domain.UserID

	TotalAmount float64
	Currency    string
	SplitType   domain.SplitType

	// CustomShares is only consulted for SplitTypeCustom. Amounts are taken
	// as given: a participant missing from the map owes 0, and the amounts
	// are not required to sum to TotalAmount.
	CustomShares map[domain.UserID]float64
}

type Service struct {
	trips          triprepo.Repository
	accommodations accommodationrepo.Repository
	clk            clockport.Clock

	newAccommodationID func() domain.AccommodationID
}

func NewService(trips triprepo.Repository, accommodations accommodationrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		trips:          trips,
		accommodations: accommodations,
		clk:            clk,
		newAccommodationID: func() domain.AccommodationID {
			return domain.AccommodationID(uuid.NewString())
		},
	}
}

// SetNewAccommodationIDForTest overrides ID generation for deterministic tests.
func (s *Service) SetNewAccommodationIDForTest(fn func() domain.AccommodationID) {
	if fn != nil {
		s.newAccommodationID = fn
	}
}

func (s *Service) Create(ctx context.Context, caller domain.UserID, tripID domain.TripID, in CreateInput) (domain.Accommodation, error) {
	if _, err := s.memberTrip(ctx, caller, tripID); err != nil {
		return domain.Accommodation{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Accommodation{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid title", Details: map[string]any{"title": "must be non-empty"}}
	}
	if in.TotalAmount < 0 {
		return domain.Accommodation{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid totalAmount", Details: map[string]any{"totalAmount": "must be >= 0"}}
	}
	splitType := in.SplitType
	if splitType == "" {
		splitType = domain.SplitTypeEven
	}
	if splitType != domain.SplitTypeEven && splitType != domain.SplitTypeCustom {
		return domain.Accommodation{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid splitType", Details: map[string]any{"splitType": "must be even or custom"}}
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return domain.Accommodation{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid date range", Details: map[string]any{"endDate": "must be on or after startDate"}}
	}

	payer := in.PayerID
	if payer == "" {
		payer = caller
	}
	participants := dedupe(in.Participants)
	if len(participants) == 0 {
		participants = []domain.UserID{payer}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.clk.Now()
	a := accommodationrepo.Accommodation{
		ID:           s.newAccommodationID(),
		TripID:       tripID,
		Title:        title,
		Link:         in.Link,
		Address:      in.Address,
		Notes:        in.Notes,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		PayerID:      payer,
		Participants: participants,
		TotalAmount:  in.TotalAmount,
		Currency:     currency,
		SplitType:    splitType,
		Shares:       buildShares(splitType, in.TotalAmount, participants, in.CustomShares, payer),
		CreatedBy:    caller,
		CreatedAt:    now,
	}

	if err := s.accommodations.Create(ctx, a); err != nil {
		if errors.Is(err, accommodationrepo.ErrAlreadyExists) {
			return domain.Accommodation{}, &Error{Status: 409, Code: "ACCOMMODATION_EXISTS", Message: "trip already has an accommodation"}
		}
		return domain.Accommodation{}, err
	}
	return toDomain(a), nil
}

// buildShares computes one share per participant. Even splits divide the total
// by the participant count without rounding; custom splits read the caller's
// map and default to 0. The payer's own share starts out paid.
func buildShares(splitType domain.SplitType, total float64, participants []domain.UserID, custom map[domain.UserID]float64, payer domain.UserID) map[domain.UserID]domain.Share {
	shares := make(map[domain.UserID]domain.Share, len(participants))
	even := total / float64(len(participants))
	for _, uid := range participants {
		amount := even
		if splitType == domain.SplitTypeCustom {
			amount = custom[uid]
		}
		status := domain.ShareStatusPending
		if uid == payer {
			status = domain.ShareStatusPaid
		}
		shares[uid] = domain.Share{Amount: amount, Status: status}
	}
	return shares
}

func (s *Service) Get(ctx context.Context, caller domain.UserID, tripID domain.TripID) (domain.Accommodation, error) {
	if _, err := s.memberTrip(ctx, caller, tripID); err != nil {
		return domain.Accommodation{}, err
	}
	a, err := s.accommodations.FirstByTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, accommodationrepo.ErrNotFound) {
			return domain.Accommodation{}, &Error{Status: 404, Code: "ACCOMMODATION_NOT_FOUND", Message: "accommodation not found"}
		}
		return domain.Accommodation{}, err
	}
	return toDomain(a), nil
}

// MarkSharePaid records memberID's share as settled. Marking an already-paid
// share, or a member with no share on the record, succeeds without writing.
func (s *Service) MarkSharePaid(ctx context.Context, caller domain.UserID, tripID domain.TripID, accommodationID domain.AccommodationID, memberID domain.UserID) (domain.Accommodation, error) {
	if _, err := s.memberTrip(ctx, caller, tripID); err != nil {
		return domain.Accommodation{}, err
	}

	var out accommodationrepo.Accommodation
	backoff := retry.WithMaxRetries(casAttempts-1, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		a, err := s.accommodations.GetByID(ctx, tripID, accommodationID)
		if err != nil {
			if errors.Is(err, accommodationrepo.ErrNotFound) {
				return &Error{Status: 404, Code: "ACCOMMODATION_NOT_FOUND", Message: "accommodation not found"}
			}
			return err
		}
		out = a
		share, ok := a.Shares[memberID]
		if !ok || share.Status == domain.ShareStatusPaid {
			return errNoChange
		}
		share.Status = domain.ShareStatusPaid
		a.Shares[memberID] = share
		if err := s.accommodations.Save(ctx, a); err != nil {
			if errors.Is(err, accommodationrepo.ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = a
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		if errors.Is(err, accommodationrepo.ErrVersionConflict) {
			return domain.Accommodation{}, &Error{Status: 409, Code: "CONFLICT", Message: "accommodation was modified concurrently; retry"}
		}
		return domain.Accommodation{}, err
	}
	return toDomain(out), nil
}

// memberTrip loads the trip and enforces the caller's membership. Missing
// trips surface as 404; existing trips the caller does not belong to are a
// 403 because the caller proved knowledge of the id.
func (s *Service) memberTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID) (triprepo.Trip, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
		}
		return triprepo.Trip{}, err
	}
	for _, m := range t.Members {
		if m == caller {
			return t, nil
		}
	}
	return triprepo.Trip{}, &Error{Status: 403, Code: "PERMISSION_DENIED", Message: "only trip members can access accommodations"}
}

func dedupe(ids []domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(ids))
	seen := make(map[domain.UserID]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toDomain(a accommodationrepo.Accommodation) domain.Accommodation {
	out := domain.Accommodation{
		ID:           a.ID,
		TripID:       a.TripID,
		Title:        a.Title,
		Link:         clonePtr(a.Link),
		Address:      clonePtr(a.Address),
		Notes:        clonePtr(a.Notes),
		StartDate:    cloneTimePtr(a.StartDate),
		EndDate:      cloneTimePtr(a.EndDate),
		PayerID:      a.PayerID,
		Participants: append([]domain.UserID(nil), a.Participants...),
		TotalAmount:  a.TotalAmount,
		Currency:     a.Currency,
		SplitType:    a.SplitType,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
	}
	out.Shares = make(map[domain.UserID]domain.Share, len(a.Shares))
	for uid, sh := range a.Shares {
		out.Shares[uid] = sh
	}
	return out
}

func clonePtr(p *string) *string {
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
