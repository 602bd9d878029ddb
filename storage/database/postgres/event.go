package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/player"
)

const (
	eventColumns = `e.id, COALESCE(e.coach_id::text, '') AS coach_id, e.title, e.event_type, e.age_group, e.rink_name,
		e.location, e.start_at, e.end_at, e.website_link, e.social_media_link, e.description, e.image, e.is_private,
		e.created_at, e.updated_at`

	rsvpColumns = `r.id, r.event_id, r.parent_profile_id, r.player_id, r.status, r.created_at, r.updated_at`
)

type eventRepository struct {
	repo
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db core.DBExecutor) *eventRepository {
	return &eventRepository{repo{exec: db}}
}

func utcEvent(e event.Event) event.Event {
	e.StartAt = e.StartAt.UTC()
	if e.EndAt.Valid {
		e.EndAt.Time = e.EndAt.Time.UTC()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e
}

func (r eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO events (id, coach_id, title, event_type, age_group, rink_name, location, start_at, end_at,
			website_link, social_media_link, description, image, is_private, created_at, updated_at)
		VALUES (:id, CAST(NULLIF(:coach_id, '') AS uuid), :title, :event_type, :age_group, :rink_name, :location, :start_at,
			:end_at, :website_link, :social_media_link, :description, :image, :is_private, :created_at, :updated_at)`,
		e,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (r eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	if err := sqlx.GetContext(ctx, r.exec, &e, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, errNotFound, "selecting event")
	}
	return utcEvent(e), nil
}

func (r eventRepository) QueryEvents(ctx context.Context, filter event.QueryFilter) ([]event.Listing, error) {
	var w where
	parent := w.arg(filter.ParentID)
	if !filter.From.IsZero() {
		w.add("e.start_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("e.start_at <= ?", filter.To)
	}
	if filter.CoachID != "" {
		w.add("e.coach_id = ?", filter.CoachID)
	}
	if filter.ViewerCoachID != "" {
		w.add("(NOT e.is_private OR e.coach_id = ?)", filter.ViewerCoachID)
	} else {
		w.add("NOT e.is_private")
	}

	query := `SELECT ` + eventColumns + `, cu.name AS coach_name, c.team AS coach_team, c.level AS coach_level,
		NULLIF(c.birth_year, 0) AS coach_birth_year,
		(SELECT COUNT(*) FROM event_rsvps g WHERE g.event_id = e.id AND g.status = '` + event.Going + `') AS attending,
		r.status AS rsvp_status, r.player_id AS rsvp_player_id, pl.name AS rsvp_player_name
		FROM events e
		LEFT JOIN coach_profiles c ON c.id = e.coach_id
		LEFT JOIN users cu ON cu.id = c.user_id
		LEFT JOIN event_rsvps r ON r.event_id = e.id AND r.parent_profile_id::text = ` + parent + `
		LEFT JOIN players pl ON pl.id = r.player_id` +
		w.String() + ` ORDER BY e.start_at`

	listings := []event.Listing{}
	if err := sqlx.SelectContext(ctx, r.exec, &listings, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}
	for i := range listings {
		listings[i].Event = utcEvent(listings[i].Event)
	}
	return listings, nil
}

func (r eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec,
		`UPDATE events SET title = :title, event_type = :event_type, age_group = :age_group, rink_name = :rink_name,
			location = :location, start_at = :start_at, end_at = :end_at, website_link = :website_link,
			social_media_link = :social_media_link, description = :description, image = :image,
			is_private = :is_private, updated_at = :updated_at
		WHERE id = :id`,
		e,
	)
	if err = checkAffected(res, err, errNotFound, "updating event"); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (r eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.exec.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return checkAffected(res, err, errNotFound, "deleting event")
}

func (r eventRepository) UpsertRsvp(ctx context.Context, rsvp event.Rsvp) (event.Rsvp, error) {
	if rsvp.ID == "" {
		rsvp.ID = newID()
	}
	// a changed RSVP is reminded again
	query, args, err := sqlx.Named(
		`INSERT INTO event_rsvps (id, event_id, parent_profile_id, player_id, status, created_at, updated_at)
		VALUES (:id, :event_id, :parent_profile_id, :player_id, :status, :created_at, :updated_at)
		ON CONFLICT (event_id, parent_profile_id) DO UPDATE SET
			player_id = EXCLUDED.player_id, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at,
			reminder_sent_at = NULL
		RETURNING id, created_at`,
		rsvp,
	)
	if err != nil {
		return event.Rsvp{}, errors.Wrap(err, "binding rsvp")
	}
	row := r.exec.QueryRowxContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err = row.Scan(&rsvp.ID, &rsvp.CreatedAt); err != nil {
		return event.Rsvp{}, errors.Wrap(err, "upserting rsvp")
	}
	rsvp.CreatedAt = rsvp.CreatedAt.UTC()
	return rsvp, nil
}

func (r eventRepository) QueryParentRsvps(ctx context.Context, parentID string, from time.Time) ([]event.RsvpListing, error) {
	rsvps := []event.RsvpListing{}
	err := sqlx.SelectContext(ctx, r.exec, &rsvps,
		`SELECT `+rsvpColumns+`, e.title AS event_title, e.start_at AS event_start_at, pl.name AS player_name
		FROM event_rsvps r
		JOIN events e ON e.id = r.event_id
		LEFT JOIN players pl ON pl.id = r.player_id
		WHERE r.parent_profile_id = $1 AND r.status = $2 AND e.start_at >= $3
		ORDER BY e.start_at`,
		parentID, event.Going, from,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting parent rsvps")
	}
	for i := range rsvps {
		rsvps[i].EventStartAt = rsvps[i].EventStartAt.UTC()
		rsvps[i].CreatedAt = rsvps[i].CreatedAt.UTC()
		rsvps[i].UpdatedAt = rsvps[i].UpdatedAt.UTC()
	}
	return rsvps, nil
}

func (r eventRepository) QueryAttendees(ctx context.Context, eventID string) ([]player.Player, error) {
	players := []player.Player{}
	err := sqlx.SelectContext(ctx, r.exec, &players,
		`SELECT `+playerColumns+` FROM players p
		JOIN event_rsvps r ON r.player_id = p.id
		WHERE r.event_id = $1 AND r.status = $2
		ORDER BY p.name`,
		eventID, event.Going,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting attendees")
	}
	for i := range players {
		players[i] = utcPlayer(players[i])
	}
	return players, nil
}

func (r eventRepository) QueryReminders(ctx context.Context, from, to time.Time) ([]event.Reminder, error) {
	reminders := []event.Reminder{}
	err := sqlx.SelectContext(ctx, r.exec, &reminders,
		`SELECT r.id AS rsvp_id, e.title AS event_title, e.start_at, e.rink_name, e.location,
			pl.name AS player_name, u.phone
		FROM event_rsvps r
		JOIN events e ON e.id = r.event_id
		JOIN players pl ON pl.id = r.player_id
		JOIN parent_profiles pp ON pp.id = r.parent_profile_id
		JOIN users u ON u.id = pp.user_id
		WHERE r.status = $1 AND r.reminder_sent_at IS NULL AND e.start_at BETWEEN $2 AND $3
			AND pp.event_reminder_sms AND u.phone <> ''
		ORDER BY e.start_at`,
		event.Going, from, to,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting reminders")
	}
	for i := range reminders {
		reminders[i].StartAt = reminders[i].StartAt.UTC()
	}
	return reminders, nil
}

func (r eventRepository) MarkReminderSent(ctx context.Context, rsvpID string, at time.Time) error {
	res, err := r.exec.ExecContext(ctx, `UPDATE event_rsvps SET reminder_sent_at = $2 WHERE id = $1`, rsvpID, at)
	return checkAffected(res, err, errNotFound, "marking reminder sent")
}
