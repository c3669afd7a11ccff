package trips

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/letsrendez/rendez-api/internal/domain"
	clockport "github.com/letsrendez/rendez-api/internal/ports/out/clock"
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

// casAttempts bounds the optimistic-concurrency retry loop for multi-step trip
// mutations. Two members acting on the same trip within the same instant is
// expected; more than a handful of consecutive conflicts is not.
const casAttempts = 5

var iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// errNoChange signals that a mutation turned out to be a no-op and the trip
// must not be saved (idempotent early exit, not a failure).
var errNoChange = errors.New("no change")

type Service struct {
	trips triprepo.Repository
	clk   clockport.Clock

	// inviteBaseURL is the public web origin for shareable invite links.
	inviteBaseURL string

	newTripID func() domain.TripID
}

func NewService(tripsRepo triprepo.Repository, clk clockport.Clock, inviteBaseURL string) *Service {
	return &Service{
		trips:         tripsRepo,
		clk:           clk,
		inviteBaseURL: inviteBaseURL,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

func (s *Service) CreateTrip(ctx context.Context, caller domain.UserID, in CreateTripInput) (domain.Trip, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid name", Details: map[string]any{"name": "must be non-empty"}}
	}
	groupSize := in.GroupSize
	if groupSize == 0 {
		groupSize = 1
	}
	if groupSize < 1 {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid groupSize", Details: map[string]any{"groupSize": "must be >= 1"}}
	}
	if in.BudgetPerPerson < 0 {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid budgetPerPerson", Details: map[string]any{"budgetPerPerson": "must be >= 0"}}
	}
	destCode, err := normalizeDestinationCode(in.DestinationCode)
	if err != nil {
		return domain.Trip{}, err
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid date range", Details: map[string]any{"endDate": "must be on or after startDate"}}
	}

	now := s.clk.Now()
	t := triprepo.Trip{
		ID:              s.newTripID(),
		Name:            name,
		GroupSize:       groupSize,
		BudgetPerPerson: in.BudgetPerPerson,
		TripType:        cloneStringPtr(in.TripType),
		TripPreferences: cloneStringPtr(in.TripPreferences),
		StartDate:       cloneTimePtr(in.StartDate),
		EndDate:         cloneTimePtr(in.EndDate),
		Destination:     cloneStringPtr(in.Destination),
		DestinationCode: destCode,
		DestinationHint: cloneStringPtr(in.DestinationHint),
		CreatedBy:       caller,
		Members:         []domain.UserID{caller},
		MemberOrigins:   map[domain.UserID]domain.MemberOrigin{},
		InvitedEmails:   []string{},
		SuggestionLikes: map[string][]domain.UserID{},
		Status:          domain.TripStatusPlanning,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return domain.Trip{}, &Error{Status: 409, Code: "TRIP_ID_CONFLICT", Message: "trip id conflict"}
		}
		return domain.Trip{}, err
	}
	return toDomain(t), nil
}

// GetTrip returns 404 for non-members even when the trip exists: membership is
// the read capability.
func (s *Service) GetTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID) (domain.Trip, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, notFound()
		}
		return domain.Trip{}, err
	}
	if !isMember(t, caller) {
		return domain.Trip{}, notFound()
	}
	return toDomain(t), nil
}

func (s *Service) ListMyTrips(ctx context.Context, caller domain.UserID) ([]domain.Trip, error) {
	ts, err := s.trips.ListByMember(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, toDomain(t))
	}
	return out, nil
}

func (s *Service) UpdateTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID, in UpdateTripInput) (domain.Trip, error) {
	t, err := s.mutateTrip(ctx, tripID, func(t *triprepo.Trip) error {
		if !isMember(*t, caller) {
			return &Error{Status: 403, Code: "PERMISSION_DENIED", Message: "only trip members can edit this trip"}
		}
		return applyUpdate(t, in)
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return toDomain(t), nil
}

func applyUpdate(t *triprepo.Trip, in UpdateTripInput) error {
	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid name", Details: map[string]any{"name": "cannot be null"}}
		}
		name := domain.NormalizeHumanName(in.Name.Value())
		if name == "" {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid name", Details: map[string]any{"name": "must be non-empty"}}
		}
		t.Name = name
	}

	if in.GroupSize.IsSpecified() && !in.GroupSize.IsNull() {
		v := in.GroupSize.Value()
		if v < 1 {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid groupSize", Details: map[string]any{"groupSize": "must be >= 1"}}
		}
		t.GroupSize = v
	}
	if in.BudgetPerPerson.IsSpecified() && !in.BudgetPerPerson.IsNull() {
		v := in.BudgetPerPerson.Value()
		if v < 0 {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid budgetPerPerson", Details: map[string]any{"budgetPerPerson": "must be >= 0"}}
		}
		t.BudgetPerPerson = v
	}

	applyNullableString := func(dst **string, o Optional[string]) {
		if !o.IsSpecified() {
			return
		}
		// An explicit null or empty string clears the field.
		if o.IsNull() || strings.TrimSpace(o.Value()) == "" {
			*dst = nil
			return
		}
		v := o.Value()
		*dst = &v
	}

	applyNullableString(&t.TripType, in.TripType)
	applyNullableString(&t.TripPreferences, in.TripPreferences)
	applyNullableString(&t.Destination, in.Destination)
	applyNullableString(&t.DestinationHint, in.DestinationHint)

	if in.DestinationCode.IsSpecified() {
		if in.DestinationCode.IsNull() || strings.TrimSpace(in.DestinationCode.Value()) == "" {
			t.DestinationCode = nil
		} else {
			v := in.DestinationCode.Value()
			code, err := normalizeDestinationCode(&v)
			if err != nil {
				return err
			}
			t.DestinationCode = code
		}
	}

	if in.StartDate.IsSpecified() {
		if in.StartDate.IsNull() {
			t.StartDate = nil
		} else {
			v := in.StartDate.Value().UTC()
			t.StartDate = &v
		}
	}
	if in.EndDate.IsSpecified() {
		if in.EndDate.IsNull() {
			t.EndDate = nil
		} else {
			v := in.EndDate.Value().UTC()
			t.EndDate = &v
		}
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid date range", Details: map[string]any{"endDate": "must be on or after startDate"}}
	}

	if in.Status.IsSpecified() && !in.Status.IsNull() {
		switch st := domain.TripStatus(in.Status.Value()); st {
		case domain.TripStatusPlanning, domain.TripStatusBooked, domain.TripStatusCompleted:
			t.Status = st
		default:
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid status", Details: map[string]any{"status": "must be planning, booked, or completed"}}
		}
	}
	return nil
}

// SetMyOrigin records the caller's departure city/code on the trip.
func (s *Service) SetMyOrigin(ctx context.Context, caller domain.UserID, tripID domain.TripID, departureCity, departureCode string) (domain.Trip, error) {
	city := strings.TrimSpace(departureCity)
	code := domain.NormalizeIATACode(departureCode)

	t, err := s.mutateTrip(ctx, tripID, func(t *triprepo.Trip) error {
		if !isMember(*t, caller) {
			return &Error{Status: 403, Code: "PERMISSION_DENIED", Message: "only trip members can set their departure"}
		}
		origin := domain.MemberOrigin{}
		if city != "" {
			origin.DepartureCity = &city
		}
		if code != "" {
			origin.DepartureCode = &code
		}
		if t.MemberOrigins == nil {
			t.MemberOrigins = map[domain.UserID]domain.MemberOrigin{}
		}
		t.MemberOrigins[caller] = origin
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return toDomain(t), nil
}

// InviteByEmail records normalized addresses on the trip. Only the creator may
// invite, and the creator must still be a member; both conditions are checked
// deliberately even though creation guarantees membership.
func (s *Service) InviteByEmail(ctx context.Context, caller domain.UserID, tripID domain.TripID, emails []string) (InviteResult, error) {
	normalized := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		n := domain.NormalizeEmail(e)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
	}
	_, err := s.mutateTrip(ctx, tripID, func(t *triprepo.Trip) error {
		if !isMember(*t, caller) || t.CreatedBy != caller {
			return &Error{Status: 403, Code: "PERMISSION_DENIED", Message: "only the trip creator can invite members"}
		}
		if len(normalized) == 0 {
			return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "no valid email addresses", Details: map[string]any{"emails": "must contain at least one valid address"}}
		}
		existing := make(map[string]bool, len(t.InvitedEmails))
		for _, e := range t.InvitedEmails {
			existing[e] = true
		}
		for _, e := range normalized {
			if !existing[e] {
				t.InvitedEmails = append(t.InvitedEmails, e)
			}
		}
		return nil
	})
	if err != nil {
		return InviteResult{}, err
	}
	return InviteResult{Invited: normalized, InviteLink: s.InviteLink(tripID)}, nil
}

// AcceptInvite adds the caller to the trip's members. Anyone holding the trip
// id may join (capability-URL model); repeating the call is a no-op.
func (s *Service) AcceptInvite(ctx context.Context, caller domain.UserID, tripID domain.TripID) (AcceptResult, error) {
	var res AcceptResult
	_, err := s.mutateTrip(ctx, tripID, func(t *triprepo.Trip) error {
		res.TripName = t.Name
		if isMember(*t, caller) {
			res.AlreadyMember = true
			return errNoChange
		}
		t.Members = append(t.Members, caller)
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return AcceptResult{}, err
	}
	return res, nil
}

// ToggleSuggestionLike flips the caller's like for a destination code.
// The whole read-modify-write runs under the CAS loop so two members liking
// concurrently both land; a code with no remaining likers is deleted from the
// map rather than stored empty.
func (s *Service) ToggleSuggestionLike(ctx context.Context, caller domain.UserID, tripID domain.TripID, iataCode string, liked bool) (LikeResult, error) {
	code := domain.NormalizeIATACode(iataCode)
	if code == "" {
		return LikeResult{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid iataCode", Details: map[string]any{"iataCode": "must be non-empty"}}
	}

	var res LikeResult
	_, err := s.mutateTrip(ctx, tripID, func(t *triprepo.Trip) error {
		if !isMember(*t, caller) {
			return &Error{Status: 403, Code: "PERMISSION_DENIED", Message: "only trip members can like suggestions"}
		}
		if t.SuggestionLikes == nil {
			t.SuggestionLikes = map[string][]domain.UserID{}
		}
		current := t.SuggestionLikes[code]
		next := make([]domain.UserID, 0, len(current)+1)
		for _, id := range current {
			if id != caller {
				next = append(next, id)
			}
		}
		if liked {
			next = append(next, caller)
		}
		if len(next) == 0 {
			delete(t.SuggestionLikes, code)
		} else {
			t.SuggestionLikes[code] = next
		}
		res = LikeResult{Liked: liked, LikedBy: next}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

// InviteLink builds the shareable invite URL for a trip.
func (s *Service) InviteLink(tripID domain.TripID) string {
	if tripID == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(s.inviteBaseURL, "?") {
		sep = "&"
	}
	return s.inviteBaseURL + sep + "invite=" + url.QueryEscape(string(tripID))
}

// mutateTrip runs fn inside a bounded optimistic-concurrency loop: read the
// current record, apply the transition, save only if the version is unchanged,
// re-read and retry on conflict.
func (s *Service) mutateTrip(ctx context.Context, tripID domain.TripID, fn func(t *triprepo.Trip) error) (triprepo.Trip, error) {
	var out triprepo.Trip
	backoff := retry.WithMaxRetries(casAttempts-1, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			if errors.Is(err, triprepo.ErrNotFound) {
				return notFound()
			}
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		t.UpdatedAt = s.clk.Now()
		if err := s.trips.Save(ctx, t); err != nil {
			if errors.Is(err, triprepo.ErrVersionConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrVersionConflict) {
			return triprepo.Trip{}, &Error{Status: 409, Code: "CONFLICT", Message: "trip was modified concurrently; retry"}
		}
		return triprepo.Trip{}, err
	}
	return out, nil
}

func isMember(t triprepo.Trip, uid domain.UserID) bool {
	for _, m := range t.Members {
		if m == uid {
			return true
		}
	}
	return false
}

func notFound() *Error {
	return &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
}

func normalizeDestinationCode(p *string) (*string, error) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil, nil
	}
	code := domain.NormalizeIATACode(*p)
	if !iataPattern.MatchString(code) {
		return nil, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid destinationCode", Details: map[string]any{"destinationCode": "must be a 3-letter IATA code"}}
	}
	return &code, nil
}

func toDomain(t triprepo.Trip) domain.Trip {
	out := domain.Trip{
		ID:              t.ID,
		Name:            t.Name,
		GroupSize:       t.GroupSize,
		BudgetPerPerson: t.BudgetPerPerson,
		TripType:        cloneStringPtr(t.TripType),
		TripPreferences: cloneStringPtr(t.TripPreferences),
		StartDate:       cloneTimePtr(t.StartDate),
		EndDate:         cloneTimePtr(t.EndDate),
		Destination:     cloneStringPtr(t.Destination),
		DestinationCode: cloneStringPtr(t.DestinationCode),
		DestinationHint: cloneStringPtr(t.DestinationHint),
		CreatedBy:       t.CreatedBy,
		Members:         append([]domain.UserID(nil), t.Members...),
		InvitedEmails:   append([]string(nil), t.InvitedEmails...),
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	out.MemberOrigins = make(map[domain.UserID]domain.MemberOrigin, len(t.MemberOrigins))
	for uid, o := range t.MemberOrigins {
		out.MemberOrigins[uid] = domain.MemberOrigin{
			DepartureCity: cloneStringPtr(o.DepartureCity),
			DepartureCode: cloneStringPtr(o.DepartureCode),
		}
	}
	out.SuggestionLikes = make(map[string][]domain.UserID, len(t.SuggestionLikes))
	for code, uids := range t.SuggestionLikes {
		out.SuggestionLikes[code] = append([]domain.UserID(nil), uids...)
	}
	return out
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
