package accommodationrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/letsrendez/rendez-api/internal/adapters/postgres"
	"github.com/letsrendez/rendez-api/internal/domain"
	"github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
)

// Repo is a Postgres implementation of accommodationrepo.Repository.
// The one-accommodation-per-trip invariant is backed by a unique constraint
// on trip_id.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, a accommodationrepo.Accommodation) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	accUUID, err := uuid.Parse(string(a.ID))
	if err != nil {
		return fmt.Errorf("invalid accommodation id: %w", err)
	}
	tripUUID, err := uuid.Parse(string(a.TripID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}

	participants, shares, err := marshalDocFields(a)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO accommodations (
			external_id,
			trip_id,
			title,
			link,
			address,
			notes,
			start_date,
			end_date,
			payer_id,
			participants,
			total_amount,
			currency,
			split_type,
			shares,
			created_by,
			created_at,
			version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,1)
	`,
		accUUID,
		tripUUID,
		a.Title,
		a.Link,
		a.Address,
		a.Notes,
		datePtr(a.StartDate),
		datePtr(a.EndDate),
		string(a.PayerID),
		participants,
		a.TotalAmount,
		a.Currency,
		string(a.SplitType),
		shares,
		string(a.CreatedBy),
		a.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return accommodationrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, a accommodationrepo.Accommodation) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	accUUID, err := uuid.Parse(string(a.ID))
	if err != nil {
		return fmt.Errorf("invalid accommodation id: %w", err)
	}

	participants, shares, err := marshalDocFields(a)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE accommodations
		SET title = $3,
		    link = $4,
		    address = $5,
		    notes = $6,
		    start_date = $7,
		    end_date = $8,
		    participants = $9,
		    total_amount = $10,
		    currency = $11,
		    split_type = $12,
		    shares = $13,
		    version = version + 1
		WHERE external_id = $1 AND version = $2
	`,
		accUUID,
		a.Version,
		a.Title,
		a.Link,
		a.Address,
		a.Notes,
		datePtr(a.StartDate),
		datePtr(a.EndDate),
		participants,
		a.TotalAmount,
		a.Currency,
		string(a.SplitType),
		shares,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accommodations WHERE external_id = $1)`, accUUID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return accommodationrepo.ErrNotFound
		}
		return accommodationrepo.ErrVersionConflict
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, tripID domain.TripID, id domain.AccommodationID) (accommodationrepo.Accommodation, error) {
	if r.pool == nil {
		return accommodationrepo.Accommodation{}, errors.New("nil postgres pool")
	}
	accUUID, err := uuid.Parse(string(id))
	if err != nil {
		return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, selectClause+` WHERE external_id = $1 AND trip_id = $2`, accUUID, tripUUID)
	a, err := scanAccommodation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
		}
		return accommodationrepo.Accommodation{}, err
	}
	return a, nil
}

func (r *Repo) FirstByTrip(ctx context.Context, tripID domain.TripID) (accommodationrepo.Accommodation, error) {
	if r.pool == nil {
		return accommodationrepo.Accommodation{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(tripID))
	if err != nil {
		return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, selectClause+` WHERE trip_id = $1 ORDER BY created_at ASC LIMIT 1`, tripUUID)
	a, err := scanAccommodation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accommodationrepo.Accommodation{}, accommodationrepo.ErrNotFound
		}
		return accommodationrepo.Accommodation{}, err
	}
	return a, nil
}

const selectClause = `
	SELECT
		external_id,
		trip_id,
		title,
		link,
		address,
		notes,
		start_date,
		end_date,
		payer_id,
		participants,
		total_amount,
		currency,
		split_type,
		shares,
		created_by,
		created_at,
		version
	FROM accommodations`

func scanAccommodation(row pgx.Row) (accommodationrepo.Accommodation, error) {
	var (
		extID           uuid.UUID
		tripUUID        uuid.UUID
		title           string
		link            *string
		address         *string
		notes           *string
		startDate       pgtype.Date
		endDate         pgtype.Date
		payerID         string
		participantsRaw []byte
		totalAmount     float64
		currency        string
		splitType       string
		sharesRaw       []byte
		createdBy       string
		createdAt       time.Time
		version         int64
	)
	if err := row.Scan(
		&extID,
		&tripUUID,
		&title,
		&link,
		&address,
		&notes,
		&startDate,
		&endDate,
		&payerID,
		&participantsRaw,
		&totalAmount,
		&currency,
		&splitType,
		&sharesRaw,
		&createdBy,
		&createdAt,
		&version,
	); err != nil {
		return accommodationrepo.Accommodation{}, err
	}

	var participantList []string
	if err := json.Unmarshal(participantsRaw, &participantList); err != nil {
		return accommodationrepo.Accommodation{}, fmt.Errorf("decode participants: %w", err)
	}
	participants := make([]domain.UserID, 0, len(participantList))
	for _, p := range participantList {
		participants = append(participants, domain.UserID(p))
	}

	var sharesByUID map[string]struct {
		Amount float64 `json:"amount"`
		Status string  `json:"status"`
	}
	if err := json.Unmarshal(sharesRaw, &sharesByUID); err != nil {
		return accommodationrepo.Accommodation{}, fmt.Errorf("decode shares: %w", err)
	}
	shares := make(map[domain.UserID]domain.Share, len(sharesByUID))
	for uid, s := range sharesByUID {
		shares[domain.UserID(uid)] = domain.Share{Amount: s.Amount, Status: domain.ShareStatus(s.Status)}
	}

	a := accommodationrepo.Accommodation{
		ID:           domain.AccommodationID(extID.String()),
		TripID:       domain.TripID(tripUUID.String()),
		Title:        title,
		Link:         link,
		Address:      address,
		Notes:        notes,
		PayerID:      domain.UserID(payerID),
		Participants: participants,
		TotalAmount:  totalAmount,
		Currency:     currency,
		SplitType:    domain.SplitType(splitType),
		Shares:       shares,
		CreatedBy:    domain.UserID(createdBy),
		CreatedAt:    createdAt.UTC(),
		Version:      version,
	}
	if startDate.Valid {
		sd := startDate.Time.UTC()
		a.StartDate = &sd
	}
	if endDate.Valid {
		ed := endDate.Time.UTC()
		a.EndDate = &ed
	}
	return a, nil
}

func marshalDocFields(a accommodationrepo.Accommodation) (participants, shares []byte, err error) {
	participantList := make([]string, 0, len(a.Participants))
	for _, p := range a.Participants {
		participantList = append(participantList, string(p))
	}
	if participants, err = json.Marshal(participantList); err != nil {
		return nil, nil, err
	}

	type shareDoc struct {
		Amount float64 `json:"amount"`
		Status string  `json:"status"`
	}
	sharesByUID := make(map[string]shareDoc, len(a.Shares))
	for uid, s := range a.Shares {
		sharesByUID[string(uid)] = shareDoc{Amount: s.Amount, Status: string(s.Status)}
	}
	if shares, err = json.Marshal(sharesByUID); err != nil {
		return nil, nil, err
	}
	return participants, shares, nil
}

func datePtr(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t.UTC(), Valid: true}
}
