package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/letsrendez/rendez-api/internal/app/accommodations"
	"github.com/letsrendez/rendez-api/internal/app/flights"
	"github.com/letsrendez/rendez-api/internal/app/suggestions"
	"github.com/letsrendez/rendez-api/internal/app/trips"
	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/idempotency"
)

// maxBodyBytes caps request bodies; nothing on this API legitimately needs more.
const maxBodyBytes = 1 << 20

// Server is the HTTP adapter: it decodes requests, delegates to the app
// services, and encodes the responses.
type Server struct {
	Trips          *trips.Service
	Accommodations *accommodations.Service
	Flights        *flights.Service
	Suggestions    *suggestions.Service
	Idem           idempotency.Store
}

func NewServer(tripsSvc *trips.Service, accommodationsSvc *accommodations.Service, flightsSvc *flights.Service, suggestionsSvc *suggestions.Service, idem idempotency.Store) *Server {
	return &Server{
		Trips:          tripsSvc,
		Accommodations: accommodationsSvc,
		Flights:        flightsSvc,
		Suggestions:    suggestionsSvc,
		Idem:           idem,
	}
}

func (s *Server) subject(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return domain.UserID(sub), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// --- trips ---

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var req createTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := s.Trips.CreateTrip(r.Context(), sub, req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripFromDomain(trip))
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	list, err := s.Trips.ListMyTrips(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := listTripsResponse{Trips: make([]tripResponse, 0, len(list))}
	for _, t := range list {
		resp.Trips = append(resp.Trips, tripFromDomain(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	trip, err := s.Trips.GetTrip(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripId")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromDomain(trip))
}

func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var req updateTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := s.Trips.UpdateTrip(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripId")), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromDomain(trip))
}

func (s *Server) handleSetOrigin(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var req setOriginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := s.Trips.SetMyOrigin(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripId")), req.DepartureCity, req.DepartureCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromDomain(trip))
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	var req inviteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}

	tripID := domain.TripID(chi.URLParam(r, "tripId"))
	s.runIdempotent(w, r, "/trips/{tripId}/invites", body, sub, func() (int, any, error) {
		res, err := s.Trips.InviteByEmail(r.Context(), sub, tripID, req.Emails)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, inviteResponse{Success: true, Invited: res.Invited, InviteLink: res.InviteLink}, nil
	})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	res, err := s.Trips.AcceptInvite(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripId")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acceptInviteResponse{Success: true, TripName: res.TripName, AlreadyMember: res.AlreadyMember})
}

func (s *Server) handleSuggestionLike(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var req likeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Trips.ToggleSuggestionLike(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripId")), req.IataCode, req.Liked)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likeResponse{Success: true, Liked: res.Liked, LikedBy: userIDs(res.LikedBy)})
}

// --- accommodation ---

func (s *Server) handleCreateAccommodation(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	var req createAccommodationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}

	tripID := domain.TripID(chi.URLParam(r, "tripId"))
	s.runIdempotent(w, r, "/trips/{tripId}/accommodation", body, sub, func() (int, any, error) {
		participants := make([]domain.UserID, 0, len(req.Participants))
		for _, p := range req.Participants {
			participants = append(participants, domain.UserID(p))
		}
		customShares := make(map[domain.UserID]float64, len(req.CustomShares))
		for uid, amount := range req.CustomShares {
			customShares[domain.UserID(uid)] = amount
		}
		a, err := s.Accommodations.Create(r.Context(), sub, tripID, accommodations.CreateInput{
			Title:        req.Title,
			Link:         req.Link,
			Address:      req.Address,
			Notes:        req.Notes,
			StartDate:    timeFromDate(req.StartDate),
			EndDate:      timeFromDate(req.EndDate),
			PayerID:      domain.UserID(req.PayerID),
			Participants: participants,
			TotalAmount:  req.TotalAmount,
			Currency:     req.Currency,
			SplitType:    domain.SplitType(req.SplitType),
			CustomShares: customShares,
		})
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, accommodationFromDomain(a), nil
	})
}

func (s *Server) handleGetAccommodation(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	a, err := s.Accommodations.Get(r.Context(), sub, domain.TripID(chi.URLParam(r, "tripId")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accommodationFromDomain(a))
}

func (s *Server) handleMarkSharePaid(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	a, err := s.Accommodations.MarkSharePaid(r.Context(), sub,
		domain.TripID(chi.URLParam(r, "tripId")),
		domain.AccommodationID(chi.URLParam(r, "accommodationId")),
		domain.UserID(chi.URLParam(r, "memberId")),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accommodationFromDomain(a))
}

// --- flights, locations, suggestions ---

func (s *Server) handleLocationSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	var req locationSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := s.Flights.SearchLocations(r.Context(), req.Keyword)
	resp := locationSearchResponse{Results: make([]locationDTO, 0, len(res.Results)), Error: res.Error}
	for _, loc := range res.Results {
		resp.Results = append(resp.Results, locationDTO{
			Code:     loc.Code,
			Name:     loc.Name,
			FullName: loc.FullName,
			Type:     string(loc.Type),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFlightSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	var req flightSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := s.Flights.Search(r.Context(), flights.SearchInput{
		OriginCode:      req.OriginCode,
		DestinationCode: req.DestinationCode,
		DepartureDate:   req.DepartureDate,
		ReturnDate:      req.ReturnDate,
		Adults:          req.Adults,
	})
	resp := flightSearchResponse{Flights: make([]flightDTO, 0, len(res.Flights)), SearchURL: res.SearchURL, Error: res.Error}
	for _, o := range res.Flights {
		resp.Flights = append(resp.Flights, flightFromDomain(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var req suggestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Suggestions.Suggest(r.Context(), sub, suggestions.Input{
		TripID:          domain.TripID(req.TripID),
		TripType:        req.TripType,
		BudgetPerPerson: req.BudgetPerPerson,
		GroupSize:       req.GroupSize,
		DepartureDate:   req.DepartureDate,
		ReturnDate:      req.ReturnDate,
		MemberOrigins:   req.MemberOrigins,
		DestinationHint: req.DestinationHint,
		Limit:           req.Limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := suggestionsResponse{Suggestions: make([]suggestionDTO, 0, len(res.Suggestions)), Error: res.Error}
	for _, sg := range res.Suggestions {
		resp.Suggestions = append(resp.Suggestions, suggestionDTO{
			Name:     sg.Name,
			IataCode: sg.IATACode,
			Blurb:    sg.Blurb,
			CostTier: string(sg.CostTier),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// runIdempotent executes op under the Idempotency-Key protocol:
//   - replay the stored response for the same actor+key+route+body
//   - reject reuse of the key with a different body (409)
//
// Requests without the header, or a Server without a store, run op directly.
func (s *Server) runIdempotent(w http.ResponseWriter, r *http.Request, route string, body []byte, sub domain.UserID, op func() (int, any, error)) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.Idem == nil {
		s.finish(w, r, op)
		return
	}

	sum := sha256.Sum256(body)
	bodyHash := hex.EncodeToString(sum[:])
	ctx := r.Context()

	metaFP := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: sub,
		Method:  r.Method,
		Route:   route,
	}
	if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
		writeServiceError(w, r, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   time.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		writeServiceError(w, r, err)
		return
	} else if ok && rec.StatusCode >= 200 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	status, payload, err := op()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if b, err := json.Marshal(payload); err == nil {
		_ = s.Idem.Put(ctx, respFP, idempotency.Record{
			StatusCode:  status,
			ContentType: "application/json",
			Body:        b,
			CreatedAt:   time.Now().UTC(),
		})
	}
	writeJSON(w, status, payload)
}

func (s *Server) finish(w http.ResponseWriter, r *http.Request, op func() (int, any, error)) {
	status, payload, err := op()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}
