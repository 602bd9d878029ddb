package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

func Test_eventApi(t *testing.T) {
	app, env := setup(t)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	otherCoach := testutil.CreateCoach(t, env, "Coach Boone", "boone@example.com")
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	p := testutil.CreatePlayer(t, env, parent.Parent.ID, "Jack Smith", 2010)
	coachToken, parentToken := getToken(t, coach), getToken(t, parent)

	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	end := start.Add(2 * time.Hour)
	newEvent := event.NewEvent{Title: "Spring Tryouts", RinkName: "Ice Box", StartAt: start, EndAt: &end}
	badRange := start.Add(-time.Hour)

	tests := []httpTest{
		{
			name:     "parents cannot create events",
			method:   http.MethodPost,
			path:     "/api/events",
			body:     marshalObj(t, newEvent),
			token:    parentToken,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: event.ErrCoachesOnly.Error()}),
		},
		{
			name:     "end before start",
			method:   http.MethodPost,
			path:     "/api/events",
			body:     marshalObj(t, event.NewEvent{Title: "Tryouts", StartAt: start, EndAt: &badRange}),
			token:    coachToken,
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	rec := do(app, http.MethodPost, "/api/events", coachToken, marshalObj(t, newEvent))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e event.Event
	decode(t, rec, &e)
	assert.Equal(t, coach.Coach.ID, e.CoachID)
	assert.True(t, e.StartAt.Equal(start))

	private := newEvent
	private.Title = "Private Practice"
	private.IsPrivate = true
	rec = do(app, http.MethodPost, "/api/events", coachToken, marshalObj(t, private))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("private events are listed to their coach only", func(t *testing.T) {
		var views []event.View
		decode(t, do(app, http.MethodGet, "/api/events", parentToken), &views)
		require.Len(t, views, 1)
		assert.Equal(t, "Spring Tryouts", views[0].Title)
		assert.Equal(t, "Coach Carter", views[0].CoachName)

		views = nil
		decode(t, do(app, http.MethodGet, "/api/events?mine=true", coachToken), &views)
		assert.Len(t, views, 2)

		views = nil
		decode(t, do(app, http.MethodGet, "/api/events?mine=true", getToken(t, otherCoach)), &views)
		assert.Len(t, views, 0)
	})

	t.Run("ownership", func(t *testing.T) {
		title := "Hijacked"
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: event.ErrNotOwner.Error()}),
		}, do(app, http.MethodPut, "/api/events/"+e.ID, getToken(t, otherCoach), marshalObj(t, event.UpdateEvent{Title: &title})))

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: event.ErrNotOwnerRsvps.Error()}),
		}, do(app, http.MethodGet, "/api/events/"+e.ID+"/rsvps", getToken(t, otherCoach)))

		assert.Equal(t, http.StatusForbidden, do(app, http.MethodGet, "/api/events/"+e.ID, parentToken).Code)
		assert.Equal(t, http.StatusOK, do(app, http.MethodGet, "/api/events/"+e.ID, coachToken).Code)
	})

	t.Run("rsvp", func(t *testing.T) {
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: event.ErrPlayerRequired.Error()}),
		}, do(app, http.MethodPost, "/api/events/rsvp", parentToken, marshalObj(t, event.NewRsvp{EventID: e.ID, Status: event.Going})))

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: event.ErrParentRequired.Error()}),
		}, do(app, http.MethodPost, "/api/events/rsvp", coachToken, marshalObj(t, event.NewRsvp{EventID: e.ID, Status: event.NotGoing})))

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, event.RsvpResult{EventID: e.ID, PlayerID: p.ID, PlayerName: p.Name, Status: event.Going}),
		}, do(app, http.MethodPost, "/api/events/rsvp", parentToken, marshalObj(t, event.NewRsvp{EventID: e.ID, PlayerID: p.ID, Status: event.Going})))

		var views []event.View
		decode(t, do(app, http.MethodGet, "/api/events", parentToken), &views)
		require.Len(t, views, 1)
		assert.Equal(t, event.Going, views[0].RSVP.String)
		assert.Equal(t, "Jack", views[0].RSVPPlayerFirstName.String)

		var attendees event.Attendees
		rec := do(app, http.MethodGet, "/api/events/"+e.ID+"/rsvps", coachToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &attendees)
		require.Len(t, attendees.Players, 1)
		assert.Equal(t, p.ID, attendees.Players[0].ID)

		var upcoming []event.Upcoming
		decode(t, do(app, http.MethodGet, "/api/events/upcoming", parentToken), &upcoming)
		require.Len(t, upcoming, 1)
		assert.Equal(t, "Jack Smith", upcoming[0].Person)
		assert.Equal(t, "Confirmed", upcoming[0].Status)

		// changing the answer replaces the previous one
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: []byte(`{"status":"notGoing"}`),
		}, do(app, http.MethodPost, "/api/events/rsvp", parentToken, marshalObj(t, event.NewRsvp{EventID: e.ID, Status: event.NotGoing})))

		attendees = event.Attendees{}
		decode(t, do(app, http.MethodGet, "/api/events/"+e.ID+"/rsvps", coachToken), &attendees)
		assert.Empty(t, attendees.Players)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, do(app, http.MethodDelete, "/api/events/"+e.ID, getToken(t, otherCoach)).Code)
		assert.Equal(t, http.StatusNoContent, do(app, http.MethodDelete, "/api/events/"+e.ID, coachToken).Code)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: event.ErrNotFound.Error()}),
		}, do(app, http.MethodGet, "/api/events/"+e.ID, coachToken))
	})
}

func Test_cronApi_eventReminders(t *testing.T) {
	app, env := setup(t)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	p := testutil.CreatePlayer(t, env, parent.Parent.ID, "Jack Smith", 2010)

	e, err := env.EventSvc.Create(ctxBg, coach.Viewer(), event.NewEvent{
		Title:    "Tryouts",
		RinkName: "Ice Box",
		StartAt:  time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = env.EventSvc.RSVP(ctxBg, parent.Viewer(), event.NewRsvp{EventID: e.ID, PlayerID: p.ID, Status: event.Going})
	require.NoError(t, err)

	tests := []httpTest{
		{
			name:     "missing secret",
			method:   http.MethodPost,
			path:     "/api/cron/event-reminders",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid API key"}),
		},
		{
			name:     "admin key is not the cron secret",
			method:   http.MethodPost,
			path:     "/api/cron/event-reminders",
			token:    testutil.AdminAPIKey,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "sends due reminders",
			method:   http.MethodPost,
			path:     "/api/cron/event-reminders",
			token:    testutil.CronSecret,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, event.ReminderResult{OK: true, Sent: 1, Total: 1}),
		},
		{
			name:     "reminders are sent once",
			method:   http.MethodGet,
			path:     "/api/cron/event-reminders",
			token:    testutil.CronSecret,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, event.ReminderResult{OK: true}),
		},
	}
	runHTTPTests(t, app, tests)

	sent := env.SMS.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+15555550100", sent[0].To)
	assert.Contains(t, sent[0].Body, "Tryouts")
}
