package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/player"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if e.ID == "" {
		e.ID = newID()
	}
	repo.db.events[e.ID] = e
	return e, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.events[id]; ok {
		return e, nil
	}
	return event.Event{}, errNotFound
}

// playerName returns a nullable player name. The caller holds the lock.
func (db *DB) playerName(id null.String) null.String {
	if p, ok := db.players[id.String]; ok && id.Valid {
		return null.StringFrom(p.Name)
	}
	return null.String{}
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.QueryFilter) ([]event.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := make([]event.Listing, 0)
	for _, e := range repo.db.events {
		switch {
		case !filter.From.IsZero() && e.StartAt.Before(filter.From):
			continue
		case !filter.To.IsZero() && e.StartAt.After(filter.To):
			continue
		case filter.CoachID != "" && e.CoachID != filter.CoachID:
			continue
		case e.IsPrivate && (filter.ViewerCoachID == "" || e.CoachID != filter.ViewerCoachID):
			continue
		}

		l := event.Listing{Event: e}
		if c, ok := repo.db.coaches[e.CoachID]; ok {
			l.CoachName = null.StringFrom(repo.db.users[c.UserID].Name)
			l.CoachTeam = null.StringFrom(c.Team)
			l.CoachLevel = null.StringFrom(c.Level)
			l.CoachBirthYear = null.NewInt(c.BirthYear, c.BirthYear != 0)
		}
		for _, r := range repo.db.rsvps {
			if r.EventID != e.ID {
				continue
			}
			if r.Status == event.Going {
				l.Attending++
			}
			if filter.ParentID != "" && r.ParentID == filter.ParentID {
				l.RSVPStatus = null.StringFrom(r.Status)
				l.RSVPPlayerID = r.PlayerID
				l.RSVPPlayerName = repo.db.playerName(r.PlayerID)
			}
		}
		listings = append(listings, l)
	}
	oldestFirst(listings, func(l event.Listing) time.Time { return l.StartAt })
	return listings, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.events[e.ID]
	if !ok {
		return event.Event{}, errNotFound
	}
	e.CoachID = stored.CoachID
	e.CreatedAt = stored.CreatedAt
	repo.db.events[e.ID] = e
	return e, nil
}

// DeleteEvent removes the RSVPs of the event too.
func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return errNotFound
	}
	delete(repo.db.events, id)
	for rid, r := range repo.db.rsvps {
		if r.EventID == id {
			delete(repo.db.rsvps, rid)
		}
	}
	return nil
}

func (repo *eventRepository) UpsertRsvp(_ context.Context, rsvp event.Rsvp) (event.Rsvp, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.rsvps {
		if r.EventID == rsvp.EventID && r.ParentID == rsvp.ParentID {
			rsvp.ID = r.ID
			rsvp.CreatedAt = r.CreatedAt
			r.Rsvp = rsvp
			r.reminderSentAt = time.Time{}
			return rsvp, nil
		}
	}
	if rsvp.ID == "" {
		rsvp.ID = newID()
	}
	repo.db.rsvps[rsvp.ID] = &rsvpRow{Rsvp: rsvp}
	return rsvp, nil
}

func (repo *eventRepository) QueryParentRsvps(_ context.Context, parentID string, from time.Time) ([]event.RsvpListing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rsvps := make([]event.RsvpListing, 0)
	for _, r := range repo.db.rsvps {
		e, ok := repo.db.events[r.EventID]
		if !ok || r.ParentID != parentID || r.Status != event.Going || e.StartAt.Before(from) {
			continue
		}
		rsvps = append(rsvps, event.RsvpListing{
			Rsvp:         r.Rsvp,
			EventTitle:   e.Title,
			EventStartAt: e.StartAt,
			PlayerName:   repo.db.playerName(r.PlayerID),
		})
	}
	oldestFirst(rsvps, func(r event.RsvpListing) time.Time { return r.EventStartAt })
	return rsvps, nil
}

func (repo *eventRepository) QueryAttendees(_ context.Context, eventID string) ([]player.Player, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	players := make([]player.Player, 0)
	for _, r := range repo.db.rsvps {
		if r.EventID != eventID || r.Status != event.Going {
			continue
		}
		if p, ok := repo.db.players[r.PlayerID.String]; ok && r.PlayerID.Valid {
			players = append(players, p)
		}
	}
	sort.SliceStable(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	return players, nil
}

func (repo *eventRepository) QueryReminders(_ context.Context, from, to time.Time) ([]event.Reminder, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reminders := make([]event.Reminder, 0)
	for _, r := range repo.db.rsvps {
		if r.Status != event.Going || !r.reminderSentAt.IsZero() || !r.PlayerID.Valid {
			continue
		}
		e, ok := repo.db.events[r.EventID]
		if !ok || e.StartAt.Before(from) || e.StartAt.After(to) {
			continue
		}
		p, ok := repo.db.players[r.PlayerID.String]
		if !ok {
			continue
		}
		parent, ok := repo.db.parents[r.ParentID]
		if !ok || !parent.EventReminderSMS {
			continue
		}
		usr := repo.db.users[parent.UserID]
		if usr.Phone == "" {
			continue
		}
		reminders = append(reminders, event.Reminder{
			RsvpID:     r.ID,
			EventTitle: e.Title,
			StartAt:    e.StartAt,
			RinkName:   e.RinkName,
			Location:   e.Location,
			PlayerName: p.Name,
			Phone:      usr.Phone,
		})
	}
	oldestFirst(reminders, func(r event.Reminder) time.Time { return r.StartAt })
	return reminders, nil
}

func (repo *eventRepository) MarkReminderSent(_ context.Context, rsvpID string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	r, ok := repo.db.rsvps[rsvpID]
	if !ok {
		return errNotFound
	}
	r.reminderSentAt = at
	return nil
}
