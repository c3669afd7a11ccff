package triprepo

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
	"github.com/letsrendez/rendez-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
//
// Membership, origins, invited emails, and suggestion likes are stored as
// jsonb columns: the trip is a document whose multi-step mutations are guarded
// by the version column rather than row-level joins.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}

	members, origins, invited, likes, err := marshalDocFields(t)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO trips (
			external_id,
			name,
			group_size,
			budget_per_person,
			trip_type,
			trip_preferences,
			start_date,
			end_date,
			destination,
			destination_code,
			destination_hint,
			created_by,
			members,
			member_origins,
			invited_emails,
			suggestion_likes,
			status,
			created_at,
			updated_at,
			version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,1)
	`,
		tripUUID,
		t.Name,
		t.GroupSize,
		t.BudgetPerPerson,
		t.TripType,
		t.TripPreferences,
		datePtr(t.StartDate),
		datePtr(t.EndDate),
		t.Destination,
		t.DestinationCode,
		t.DestinationHint,
		string(t.CreatedBy),
		members,
		origins,
		invited,
		likes,
		string(t.Status),
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}

	members, origins, invited, likes, err := marshalDocFields(t)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET name = $3,
		    group_size = $4,
		    budget_per_person = $5,
		    trip_type = $6,
		    trip_preferences = $7,
		    start_date = $8,
		    end_date = $9,
		    destination = $10,
		    destination_code = $11,
		    destination_hint = $12,
		    members = $13,
		    member_origins = $14,
		    invited_emails = $15,
		    suggestion_likes = $16,
		    status = $17,
		    updated_at = $18,
		    version = version + 1
		WHERE external_id = $1 AND version = $2
	`,
		tripUUID,
		t.Version,
		t.Name,
		t.GroupSize,
		t.BudgetPerPerson,
		t.TripType,
		t.TripPreferences,
		datePtr(t.StartDate),
		datePtr(t.EndDate),
		t.Destination,
		t.DestinationCode,
		t.DestinationHint,
		members,
		origins,
		invited,
		likes,
		string(t.Status),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a lost CAS race.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM trips WHERE external_id = $1)`, tripUUID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return triprepo.ErrNotFound
		}
		return triprepo.ErrVersionConflict
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	tripUUID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, selectClause+` WHERE external_id = $1`, tripUUID)
	t, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	return t, nil
}

func (r *Repo) ListByMember(ctx context.Context, uid domain.UserID) ([]triprepo.Trip, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	member, err := json.Marshal([]string{string(uid)})
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		selectClause+` WHERE members @> $1::jsonb ORDER BY created_at DESC, external_id ASC`,
		member,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]triprepo.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const selectClause = `
	SELECT
		external_id,
		name,
		group_size,
		budget_per_person,
		trip_type,
		trip_preferences,
		start_date,
		end_date,
		destination,
		destination_code,
		destination_hint,
		created_by,
		members,
		member_origins,
		invited_emails,
		suggestion_likes,
		status,
		created_at,
		updated_at,
		version
	FROM trips`

func scanTrip(row pgx.Row) (triprepo.Trip, error) {
	var (
		extID      uuid.UUID
		name       string
		groupSize  int
		budget     float64
		tripType   *string
		prefs      *string
		startDate  pgtype.Date
		endDate    pgtype.Date
		dest       *string
		destCode   *string
		destHint   *string
		createdBy  string
		membersRaw []byte
		originsRaw []byte
		invitedRaw []byte
		likesRaw   []byte
		status     string
		createdAt  time.Time
		updatedAt  time.Time
		version    int64
	)
	if err := row.Scan(
		&extID,
		&name,
		&groupSize,
		&budget,
		&tripType,
		&prefs,
		&startDate,
		&endDate,
		&dest,
		&destCode,
		&destHint,
		&createdBy,
		&membersRaw,
		&originsRaw,
		&invitedRaw,
		&likesRaw,
		&status,
		&createdAt,
		&updatedAt,
		&version,
	); err != nil {
		return triprepo.Trip{}, err
	}

	var memberList []string
	if err := json.Unmarshal(membersRaw, &memberList); err != nil {
		return triprepo.Trip{}, fmt.Errorf("decode members: %w", err)
	}
	members := make([]domain.UserID, 0, len(memberList))
	for _, m := range memberList {
		members = append(members, domain.UserID(m))
	}

	var originsByUID map[string]struct {
		DepartureCity *string `json:"departureCity"`
		DepartureCode *string `json:"departureCode"`
	}
	if err := json.Unmarshal(originsRaw, &originsByUID); err != nil {
		return triprepo.Trip{}, fmt.Errorf("decode member origins: %w", err)
	}
	origins := make(map[domain.UserID]domain.MemberOrigin, len(originsByUID))
	for uid, o := range originsByUID {
		origins[domain.UserID(uid)] = domain.MemberOrigin{
			DepartureCity: o.DepartureCity,
			DepartureCode: o.DepartureCode,
		}
	}

	invited := make([]string, 0)
	if err := json.Unmarshal(invitedRaw, &invited); err != nil {
		return triprepo.Trip{}, fmt.Errorf("decode invited emails: %w", err)
	}

	var likesByCode map[string][]string
	if err := json.Unmarshal(likesRaw, &likesByCode); err != nil {
		return triprepo.Trip{}, fmt.Errorf("decode suggestion likes: %w", err)
	}
	likes := make(map[string][]domain.UserID, len(likesByCode))
	for code, uids := range likesByCode {
		ids := make([]domain.UserID, 0, len(uids))
		for _, u := range uids {
			ids = append(ids, domain.UserID(u))
		}
		likes[code] = ids
	}

	t := triprepo.Trip{
		ID:              domain.TripID(extID.String()),
		Name:            name,
		GroupSize:       groupSize,
		BudgetPerPerson: budget,
		TripType:        tripType,
		TripPreferences: prefs,
		Destination:     dest,
		DestinationCode: destCode,
		DestinationHint: destHint,
		CreatedBy:       domain.UserID(createdBy),
		Members:         members,
		MemberOrigins:   origins,
		InvitedEmails:   invited,
		SuggestionLikes: likes,
		Status:          domain.TripStatus(status),
		CreatedAt:       createdAt.UTC(),
		UpdatedAt:       updatedAt.UTC(),
		Version:         version,
	}
	if startDate.Valid {
		sd := startDate.Time.UTC()
		t.StartDate = &sd
	}
	if endDate.Valid {
		ed := endDate.Time.UTC()
		t.EndDate = &ed
	}
	return t, nil
}

func marshalDocFields(t triprepo.Trip) (members, origins, invited, likes []byte, err error) {
	memberList := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		memberList = append(memberList, string(m))
	}
	if members, err = json.Marshal(memberList); err != nil {
		return nil, nil, nil, nil, err
	}

	type originDoc struct {
		DepartureCity *string `json:"departureCity"`
		DepartureCode *string `json:"departureCode"`
	}
	originsByUID := make(map[string]originDoc, len(t.MemberOrigins))
	for uid, o := range t.MemberOrigins {
		originsByUID[string(uid)] = originDoc{DepartureCity: o.DepartureCity, DepartureCode: o.DepartureCode}
	}
	if origins, err = json.Marshal(originsByUID); err != nil {
		return nil, nil, nil, nil, err
	}

	invitedList := t.InvitedEmails
	if invitedList == nil {
		invitedList = []string{}
	}
	if invited, err = json.Marshal(invitedList); err != nil {
		return nil, nil, nil, nil, err
	}

	likesByCode := make(map[string][]string, len(t.SuggestionLikes))
	for code, uids := range t.SuggestionLikes {
		ids := make([]string, 0, len(uids))
		for _, u := range uids {
			ids = append(ids, string(u))
		}
		likesByCode[code] = ids
	}
	if likes, err = json.Marshal(likesByCode); err != nil {
		return nil, nil, nil, nil, err
	}
	return members, origins, invited, likes, nil
}

func datePtr(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t.UTC(), Valid: true}
}
