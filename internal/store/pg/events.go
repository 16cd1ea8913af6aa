package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"agora.events/internal/events"
	"agora.events/internal/ids"
)

// EventStore implements events.Service on PostgreSQL.
type EventStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ events.Service = (*EventStore)(nil)

// NewEventStore wraps an open database handle.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db, now: time.Now}
}

const eventColumns = `id, slug, name, description, type, status,
	application_starts, application_ends, starts, ends,
	fee, optional_fee, max_participants, budget, programme,
	accommodation_type, meals_per_day, optional_programme, link_info_travel_country,
	head_image, organizing_bodies, organizers, links, deleted, created_at, updated_at`

func (s *EventStore) Create(ctx context.Context, event *events.Event) (*events.Event, error) {
	ev := event.Clone()
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	ev.ID = ids.NewHex()
	ev.Status = events.StatusDraft
	ev.CreatedAt = s.now().UTC()
	ev.UpdatedAt = ev.CreatedAt
	events.AssignLinkIDs(ev)

	bodies, organizers, links, err := marshalCollections(ev)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		insert into events(
			id, slug, name, description, type, status,
			application_starts, application_ends, starts, ends,
			fee, optional_fee, max_participants, budget, programme,
			accommodation_type, meals_per_day, optional_programme, link_info_travel_country,
			head_image, organizing_bodies, organizers, links, deleted, created_at, updated_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
	`,
		ev.ID, nullable(ev.Slug), ev.Name, ev.Description, ev.Type, ev.Status,
		ev.ApplicationStarts, ev.ApplicationEnds, ev.Starts, ev.Ends,
		ev.Fee, ev.OptionalFee, ev.MaxParticipants, ev.Budget, ev.Programme,
		ev.AccommodationType, ev.MealsPerDay, ev.OptionalProgramme, ev.LinkInfoTravelCountry,
		ev.HeadImage, bodies, organizers, links, ev.Deleted, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, events.ErrSlugTaken
		}
		return nil, err
	}
	return ev, nil
}

func (s *EventStore) Find(ctx context.Context, idOrSlug string) (*events.Event, error) {
	where := `slug = $1`
	if events.IsHexID(idOrSlug) {
		where = `id = $1`
	}
	row := s.db.QueryRowContext(ctx,
		`select `+eventColumns+` from events where `+where+` and not deleted`, idOrSlug)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	return ev, err
}

func (s *EventStore) List(ctx context.Context, filter events.Filter) ([]*events.Event, error) {
	query := `select ` + eventColumns + ` from events`
	var (
		clauses []string
		args    []any
	)
	if !filter.IncludeDeleted {
		clauses = append(clauses, `not deleted`)
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, `status = $1`)
	}
	if len(clauses) > 0 {
		query += ` where ` + strings.Join(clauses, ` and `)
	}
	query += ` order by starts asc, id asc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*events.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *EventStore) Update(ctx context.Context, id string, changes events.Update) (*events.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`select `+eventColumns+` from events where id = $1 and not deleted for update`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	events.ApplyUpdate(ev, changes)
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	events.AssignLinkIDs(ev)
	ev.UpdatedAt = s.now().UTC()

	bodies, organizers, links, err := marshalCollections(ev)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		update events set
			slug=$2, name=$3, description=$4, type=$5,
			application_starts=$6, application_ends=$7, starts=$8, ends=$9,
			fee=$10, optional_fee=$11, max_participants=$12, budget=$13, programme=$14,
			accommodation_type=$15, meals_per_day=$16, optional_programme=$17,
			link_info_travel_country=$18, organizing_bodies=$19, organizers=$20,
			links=$21, updated_at=$22
		where id=$1
	`,
		ev.ID, nullable(ev.Slug), ev.Name, ev.Description, ev.Type,
		ev.ApplicationStarts, ev.ApplicationEnds, ev.Starts, ev.Ends,
		ev.Fee, ev.OptionalFee, ev.MaxParticipants, ev.Budget, ev.Programme,
		ev.AccommodationType, ev.MealsPerDay, ev.OptionalProgramme,
		ev.LinkInfoTravelCountry, bodies, organizers, links, ev.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, events.ErrSlugTaken
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *EventStore) SetStatus(ctx context.Context, id, status string) (*events.Event, error) {
	if !events.ValidStatus(status) {
		return nil, events.ErrInvalidStatus
	}
	res, err := s.db.ExecContext(ctx,
		`update events set status=$2, updated_at=$3 where id=$1 and not deleted`,
		id, status, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, events.ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *EventStore) SetHeadImage(ctx context.Context, id, filename string) error {
	res, err := s.db.ExecContext(ctx,
		`update events set head_image=$2, updated_at=$3 where id=$1 and not deleted`,
		id, filename, s.now().UTC())
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (s *EventStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update events set deleted=true, updated_at=$2 where id=$1 and not deleted`,
		id, s.now().UTC())
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return events.ErrNotFound
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*events.Event, error) {
	var (
		ev        events.Event
		slug      sql.NullString
		bodies    []byte
		orgs      []byte
		links     []byte
	)
	err := row.Scan(
		&ev.ID, &slug, &ev.Name, &ev.Description, &ev.Type, &ev.Status,
		&ev.ApplicationStarts, &ev.ApplicationEnds, &ev.Starts, &ev.Ends,
		&ev.Fee, &ev.OptionalFee, &ev.MaxParticipants, &ev.Budget, &ev.Programme,
		&ev.AccommodationType, &ev.MealsPerDay, &ev.OptionalProgramme, &ev.LinkInfoTravelCountry,
		&ev.HeadImage, &bodies, &orgs, &links, &ev.Deleted, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Slug = slug.String
	if err := json.Unmarshal(bodies, &ev.OrganizingBodies); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(orgs, &ev.Organizers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(links, &ev.Links); err != nil {
		return nil, err
	}
	ev.Normalize()
	return &ev, nil
}

func marshalCollections(ev *events.Event) (bodies, organizers, links []byte, err error) {
	if bodies, err = json.Marshal(ev.OrganizingBodies); err != nil {
		return nil, nil, nil, err
	}
	if organizers, err = json.Marshal(ev.Organizers); err != nil {
		return nil, nil, nil, err
	}
	if links, err = json.Marshal(ev.Links); err != nil {
		return nil, nil, nil, err
	}
	return bodies, organizers, links, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	// pgx surfaces SQLSTATE in the error text when used through database/sql.
	return err != nil && strings.Contains(err.Error(), "23505")
}
