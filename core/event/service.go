package event

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("Event not found")
	ErrCoachesOnly      = core.NewPermissionError("Only coaches can create events")
	ErrCoachRequired    = core.NewPermissionError("Coach access required")
	ErrNotOwner         = core.NewPermissionError("You can only edit your own events")
	ErrNotOwnerDelete   = core.NewPermissionError("You can only delete your own events")
	ErrNotOwnerRsvps    = core.NewPermissionError("You can only view RSVPs for your own events")
	ErrForbidden        = core.NewPermissionError("Forbidden")
	ErrParentRequired   = core.NewBadRequestError("Parent profile required")
	ErrPlayerRequired   = core.NewBadRequestError("playerId required when going")
	ErrPlayerNotOwned   = core.NewNotFoundError("Player not found or not yours")
	ErrInvalidTimeRange = core.NewBadRequestError("End time must be after start time")
)

// Reminders go out for events starting between 23 and 25 hours from now.
const (
	reminderWindowStart = 23 * time.Hour
	reminderWindowEnd   = 25 * time.Hour
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		// QueryEvents lists events by start time, with the RSVP of filter.ParentID when set.
		QueryEvents(ctx context.Context, filter QueryFilter) ([]Listing, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error

		// UpsertRsvp creates or replaces the RSVP of a parent on an event.
		UpsertRsvp(ctx context.Context, r Rsvp) (Rsvp, error)
		// QueryParentRsvps lists the going RSVPs of a parent on events starting after from.
		QueryParentRsvps(ctx context.Context, parentID string, from time.Time) ([]RsvpListing, error)
		// QueryAttendees lists the players with a going RSVP on an event.
		QueryAttendees(ctx context.Context, eventID string) ([]player.Player, error)

		// QueryReminders lists the going RSVPs with a player on events starting in [from, to]
		// whose parent opted in to SMS reminders, has a phone, and was not reminded yet.
		QueryReminders(ctx context.Context, from, to time.Time) ([]Reminder, error)
		MarkReminderSent(ctx context.Context, rsvpID string, at time.Time) error
	}

	Service struct {
		repo    Repository
		players player.Repository
		smsSvc  core.SMSService
		logger  core.Logger
		nowFunc func() time.Time
	}
)

func NewService(repo Repository, players player.Repository, smsSvc core.SMSService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		players: players,
		smsSvc:  smsSvc,
		logger:  logger,
		nowFunc: time.Now,
	}
}

func (svc *Service) get(ctx context.Context, id string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Event{}, ErrNotFound
		}
		return Event{}, errors.Wrap(err, "getting event")
	}
	return e, nil
}

func (svc *Service) Create(ctx context.Context, viewer user.Viewer, ne NewEvent) (Event, error) {
	if viewer.Role != user.RoleCoach || viewer.CoachProfileID == "" {
		return Event{}, ErrCoachesOnly
	}
	now := svc.nowFunc().UTC()
	e := Event{
		CoachID:         viewer.CoachProfileID,
		Title:           ne.Title,
		EventType:       optString(ne.EventType),
		AgeGroup:        optString(ne.AgeGroup),
		RinkName:        optString(ne.RinkName),
		Location:        optString(ne.Location),
		StartAt:         ne.StartAt.UTC(),
		WebsiteLink:     optString(ne.WebsiteLink),
		SocialMediaLink: optString(ne.SocialMediaLink),
		Description:     optString(ne.Description),
		Image:           optString(ne.Image),
		IsPrivate:       ne.IsPrivate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ne.EndAt != nil {
		if !ne.EndAt.After(ne.StartAt) {
			return Event{}, ErrInvalidTimeRange
		}
		e.EndAt = null.TimeFrom(ne.EndAt.UTC())
	}
	return svc.repo.CreateEvent(ctx, e)
}

// Get returns an event to its coach. Events without a coach are readable by anyone.
func (svc *Service) Get(ctx context.Context, viewer user.Viewer, id string) (Event, error) {
	e, err := svc.get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e.CoachID != "" && e.CoachID != viewer.CoachProfileID && !viewer.IsAdmin() {
		return Event{}, ErrForbidden
	}
	return e, nil
}

func (svc *Service) Update(ctx context.Context, viewer user.Viewer, id string, ue UpdateEvent) (Event, error) {
	if viewer.CoachProfileID == "" {
		return Event{}, core.NewPermissionError("Only coaches can update events")
	}
	e, err := svc.get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e.CoachID != viewer.CoachProfileID {
		return Event{}, ErrNotOwner
	}

	if ue.Title != nil {
		e.Title = *ue.Title
	}
	set := func(dst *null.String, src *string) {
		if src != nil {
			*dst = optString(*src)
		}
	}
	set(&e.EventType, ue.EventType)
	set(&e.AgeGroup, ue.AgeGroup)
	set(&e.RinkName, ue.RinkName)
	set(&e.Location, ue.Location)
	set(&e.WebsiteLink, ue.WebsiteLink)
	set(&e.SocialMediaLink, ue.SocialMediaLink)
	set(&e.Description, ue.Description)
	set(&e.Image, ue.Image)
	if ue.StartAt != nil {
		e.StartAt = ue.StartAt.UTC()
	}
	if ue.EndAt != nil {
		e.EndAt = null.TimeFrom(ue.EndAt.UTC())
	}
	if ue.IsPrivate != nil {
		e.IsPrivate = *ue.IsPrivate
	}
	if e.EndAt.Valid && !e.EndAt.Time.After(e.StartAt) {
		return Event{}, ErrInvalidTimeRange
	}
	e.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *Service) Delete(ctx context.Context, viewer user.Viewer, id string) error {
	e, err := svc.get(ctx, id)
	if err != nil {
		return err
	}
	if viewer.CoachProfileID == "" || e.CoachID != viewer.CoachProfileID {
		return ErrNotOwnerDelete
	}
	return svc.repo.DeleteEvent(ctx, id)
}

// List returns the events started less than a day ago, with the RSVP of the viewing parent.
// With mine, coaches only get their own events. Private events are only listed to their coach.
func (svc *Service) List(ctx context.Context, viewer user.Viewer, mine bool) ([]View, error) {
	filter := QueryFilter{
		From:          svc.nowFunc().UTC().Add(-24 * time.Hour),
		ParentID:      viewer.ParentProfileID,
		ViewerCoachID: viewer.CoachProfileID,
	}
	if mine && viewer.CoachProfileID != "" {
		filter.CoachID = viewer.CoachProfileID
	}
	listings, err := svc.repo.QueryEvents(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	views := make([]View, 0, len(listings))
	for _, l := range listings {
		views = append(views, l.View())
	}
	return views, nil
}

// Upcoming lists the coming events of a coach, or the events a parent RSVP'd going to.
func (svc *Service) Upcoming(ctx context.Context, viewer user.Viewer) ([]Upcoming, error) {
	now := svc.nowFunc().UTC()
	out := []Upcoming{}

	if viewer.CoachProfileID != "" {
		listings, err := svc.repo.QueryEvents(ctx, QueryFilter{
			From:          now,
			CoachID:       viewer.CoachProfileID,
			ViewerCoachID: viewer.CoachProfileID,
		})
		if err != nil {
			return nil, errors.Wrap(err, "querying events")
		}
		for _, l := range listings {
			out = append(out, Upcoming{
				ID:        l.ID,
				Title:     l.Title,
				Date:      l.StartAt.Format(dateLayout),
				Time:      l.StartAt.Format(timeLayout),
				RinkName:  l.RinkName,
				Location:  l.Location.String,
				Attending: l.Attending,
				Person:    "—",
				Status:    "Upcoming",
			})
		}
		return out, nil
	}

	if viewer.ParentProfileID == "" {
		return out, nil
	}
	rsvps, err := svc.repo.QueryParentRsvps(ctx, viewer.ParentProfileID, now)
	if err != nil {
		return nil, errors.Wrap(err, "querying rsvps")
	}
	for _, r := range rsvps {
		person := "—"
		if r.PlayerName.Valid {
			person = r.PlayerName.String
		}
		out = append(out, Upcoming{
			ID:     r.EventID,
			Title:  r.EventTitle,
			Date:   r.EventStartAt.Format(dateLayout),
			Person: person,
			Status: "Confirmed",
		})
	}
	return out, nil
}

// RSVP records the answer of the viewing parent to an event, replacing any previous one.
func (svc *Service) RSVP(ctx context.Context, viewer user.Viewer, nr NewRsvp) (RsvpResult, error) {
	if viewer.ParentProfileID == "" {
		return RsvpResult{}, ErrParentRequired
	}

	var pl player.Player
	if nr.Status == Going {
		if nr.PlayerID == "" {
			return RsvpResult{}, ErrPlayerRequired
		}
		var err error
		pl, err = svc.players.GetPlayer(ctx, nr.PlayerID)
		if err != nil && !core.IsNotFound(err) {
			return RsvpResult{}, errors.Wrap(err, "getting player")
		}
		if err != nil || pl.ParentID != viewer.ParentProfileID {
			return RsvpResult{}, ErrPlayerNotOwned
		}
	}
	if _, err := svc.get(ctx, nr.EventID); err != nil {
		return RsvpResult{}, err
	}

	now := svc.nowFunc().UTC()
	r := Rsvp{
		EventID:   nr.EventID,
		ParentID:  viewer.ParentProfileID,
		Status:    nr.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nr.Status == Going {
		r.PlayerID = null.StringFrom(pl.ID)
	}
	if _, err := svc.repo.UpsertRsvp(ctx, r); err != nil {
		return RsvpResult{}, errors.Wrap(err, "saving rsvp")
	}

	if nr.Status == NotGoing {
		return RsvpResult{Status: NotGoing}, nil
	}
	return RsvpResult{EventID: nr.EventID, PlayerID: pl.ID, PlayerName: pl.Name, Status: Going}, nil
}

// Attendees lists the players going to an event of the viewing coach.
func (svc *Service) Attendees(ctx context.Context, viewer user.Viewer, id string) (Attendees, error) {
	if viewer.CoachProfileID == "" {
		return Attendees{}, ErrCoachRequired
	}
	e, err := svc.get(ctx, id)
	if err != nil {
		return Attendees{}, err
	}
	if e.CoachID != viewer.CoachProfileID {
		return Attendees{}, ErrNotOwnerRsvps
	}
	players, err := svc.repo.QueryAttendees(ctx, id)
	if err != nil {
		return Attendees{}, errors.Wrap(err, "querying attendees")
	}

	var a Attendees
	a.Event.ID = e.ID
	a.Event.Title = e.Title
	a.Event.Date = e.StartAt.Format(dateLayout)
	a.Event.EventType = e.EventType
	a.Event.RinkName = e.RinkName
	a.Event.Location = e.Location
	a.Players = players
	if a.Players == nil {
		a.Players = []player.Player{}
	}
	return a, nil
}

// SendReminders texts the parents going to an event starting in about a day.
// Messages are sent one at a time and only successful sends are recorded.
func (svc *Service) SendReminders(ctx context.Context, now time.Time) (ReminderResult, error) {
	now = now.UTC()
	reminders, err := svc.repo.QueryReminders(ctx, now.Add(reminderWindowStart), now.Add(reminderWindowEnd))
	if err != nil {
		return ReminderResult{}, errors.Wrap(err, "querying reminders")
	}

	res := ReminderResult{OK: true, Total: len(reminders)}
	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		phone := core.NormalizePhone(r.Phone)
		if phone == "" || r.PlayerName == "" {
			res.Failed++
			continue
		}
		if err := svc.smsSvc.SendSMS(ctx, phone, r.Message()); err != nil {
			svc.logger.Warn(fmt.Sprintf("sending event reminder %s: %v", r.RsvpID, err))
			res.Failed++
			continue
		}
		if err := svc.repo.MarkReminderSent(ctx, r.RsvpID, svc.nowFunc().UTC()); err != nil {
			return res, errors.Wrap(err, "recording reminder")
		}
		res.Sent++
	}
	return res, nil
}
