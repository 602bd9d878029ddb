package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/event"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/user"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

var ctxBg = context.Background()

type reminderFixture struct {
	env    *testutil.Env
	coach  user.Account
	now    time.Time
	parent user.Account
}

func newReminderFixture(t *testing.T) reminderFixture {
	env := testutil.NewEnv(t)
	return reminderFixture{
		env:    env,
		coach:  testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com"),
		parent: testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free),
		now:    time.Now().UTC(),
	}
}

// going creates an event starting at start and RSVPs a new player of parent to it.
func (f reminderFixture) going(t *testing.T, parent user.Account, title string, start time.Time) event.Event {
	t.Helper()
	e, err := f.env.EventSvc.Create(ctxBg, f.coach.Viewer(), event.NewEvent{Title: title, RinkName: "Ice Den", StartAt: start})
	require.NoError(t, err)
	p := testutil.CreatePlayer(t, f.env, parent.Parent.ID, "Jack Smith", 2010)
	_, err = f.env.EventSvc.RSVP(ctxBg, parent.Viewer(), event.NewRsvp{EventID: e.ID, PlayerID: p.ID, Status: event.Going})
	require.NoError(t, err)
	return e
}

func TestService_SendReminders(t *testing.T) {
	f := newReminderFixture(t)

	f.going(t, f.parent, "Tryouts", f.now.Add(24*time.Hour))
	f.going(t, f.parent, "Showcase", f.now.Add(72*time.Hour)) // outside the window
	f.going(t, f.parent, "Yesterday Camp", f.now.Add(-24*time.Hour))

	res, err := f.env.EventSvc.SendReminders(ctxBg, f.now)
	require.NoError(t, err)
	assert.Equal(t, event.ReminderResult{OK: true, Sent: 1, Total: 1}, res)

	sent := f.env.SMS.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+15555550100", sent[0].To)
	assert.Contains(t, sent[0].Body, "You RSVP'd Jack Smith to Tryouts")
	assert.Contains(t, sent[0].Body, "at Ice Den.")

	// a reminder goes out once
	res, err = f.env.EventSvc.SendReminders(ctxBg, f.now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, event.ReminderResult{OK: true}, res)

	// the showcase enters the window two days later
	res, err = f.env.EventSvc.SendReminders(ctxBg, f.now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Len(t, f.env.SMS.Sent(), 2)
}

func TestService_SendReminders_skipped(t *testing.T) {
	f := newReminderFixture(t)
	start := f.now.Add(24 * time.Hour)

	// opted out of SMS reminders
	optedOut := testutil.CreateParent(t, f.env, "Opt Out", "optout@example.com", plan.Free)
	_, err := f.env.UserSvc.UpdateNotificationPreferences(ctxBg, optedOut.Viewer(), user.NotificationPreferences{EventReminderSMS: boolPtr(false)})
	require.NoError(t, err)
	f.going(t, optedOut, "Tryouts", start)

	// not going
	e := f.going(t, f.parent, "Camp", start)
	_, err = f.env.EventSvc.RSVP(ctxBg, f.parent.Viewer(), event.NewRsvp{EventID: e.ID, Status: event.NotGoing})
	require.NoError(t, err)

	res, err := f.env.EventSvc.SendReminders(ctxBg, f.now)
	require.NoError(t, err)
	assert.Equal(t, event.ReminderResult{OK: true}, res)
	assert.Empty(t, f.env.SMS.Sent())
}

func TestService_SendReminders_failures(t *testing.T) {
	f := newReminderFixture(t)
	start := f.now.Add(24 * time.Hour)

	badPhone := testutil.CreateParent(t, f.env, "Bad Phone", "bad@example.com", plan.Free)
	usr := badPhone.User
	usr.Phone = "12"
	_, err := f.env.Users.UpdateUser(ctxBg, usr)
	require.NoError(t, err)

	f.going(t, badPhone, "Tryouts", start)
	f.going(t, f.parent, "Tryouts", start)

	res, err := f.env.EventSvc.SendReminders(ctxBg, f.now)
	require.NoError(t, err)
	assert.Equal(t, event.ReminderResult{OK: true, Sent: 1, Failed: 1, Total: 2}, res)

	// failed sends are retried on the next run
	f.env.SMS.Fail = true
	res, err = f.env.EventSvc.SendReminders(ctxBg, f.now)
	require.NoError(t, err)
	assert.Equal(t, event.ReminderResult{OK: true, Failed: 1, Total: 1}, res)
}

func TestService_RSVP(t *testing.T) {
	f := newReminderFixture(t)
	other := testutil.CreateParent(t, f.env, "John Roe", "john@example.com", plan.Free)
	mine := testutil.CreatePlayer(t, f.env, f.parent.Parent.ID, "Jack Smith", 2010)
	theirs := testutil.CreatePlayer(t, f.env, other.Parent.ID, "Tim Roe", 2011)

	e, err := f.env.EventSvc.Create(ctxBg, f.coach.Viewer(), event.NewEvent{Title: "Tryouts", StartAt: f.now.Add(time.Hour)})
	require.NoError(t, err)

	_, err = f.env.EventSvc.RSVP(ctxBg, f.parent.Viewer(), event.NewRsvp{EventID: e.ID, PlayerID: theirs.ID, Status: event.Going})
	assert.Equal(t, event.ErrPlayerNotOwned, err)

	_, err = f.env.EventSvc.RSVP(ctxBg, f.parent.Viewer(), event.NewRsvp{EventID: "missing", PlayerID: mine.ID, Status: event.Going})
	assert.Equal(t, event.ErrNotFound, err)

	res, err := f.env.EventSvc.RSVP(ctxBg, f.parent.Viewer(), event.NewRsvp{EventID: e.ID, PlayerID: mine.ID, Status: event.Going})
	require.NoError(t, err)
	assert.Equal(t, event.RsvpResult{EventID: e.ID, PlayerID: mine.ID, PlayerName: "Jack Smith", Status: event.Going}, res)

	// answering again replaces the RSVP
	_, err = f.env.EventSvc.RSVP(ctxBg, f.parent.Viewer(), event.NewRsvp{EventID: e.ID, PlayerID: mine.ID, Status: event.Going})
	require.NoError(t, err)
	a, err := f.env.EventSvc.Attendees(ctxBg, f.coach.Viewer(), e.ID)
	require.NoError(t, err)
	require.Len(t, a.Players, 1)
	assert.Equal(t, mine.ID, a.Players[0].ID)

	up, err := f.env.EventSvc.Upcoming(ctxBg, f.parent.Viewer())
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.Equal(t, "Jack Smith", up[0].Person)
}

func TestService_Update(t *testing.T) {
	f := newReminderFixture(t)
	start := f.now.Add(48 * time.Hour)

	e, err := f.env.EventSvc.Create(ctxBg, f.coach.Viewer(), event.NewEvent{Title: "Tryouts", StartAt: start})
	require.NoError(t, err)
	assert.False(t, e.EndAt.Valid)

	end := start.Add(-time.Minute)
	_, err = f.env.EventSvc.Update(ctxBg, f.coach.Viewer(), e.ID, event.UpdateEvent{EndAt: &end})
	assert.Equal(t, event.ErrInvalidTimeRange, err)

	// moving the start past a stored end is rejected too
	end = start.Add(2 * time.Hour)
	e, err = f.env.EventSvc.Update(ctxBg, f.coach.Viewer(), e.ID, event.UpdateEvent{EndAt: &end})
	require.NoError(t, err)
	assert.True(t, e.EndAt.Time.Equal(end))
	later := start.Add(3 * time.Hour)
	_, err = f.env.EventSvc.Update(ctxBg, f.coach.Viewer(), e.ID, event.UpdateEvent{StartAt: &later})
	assert.Equal(t, event.ErrInvalidTimeRange, err)

	title := "Mine now"
	other := testutil.CreateCoach(t, f.env, "Coach Boone", "boone@example.com")
	_, err = f.env.EventSvc.Update(ctxBg, other.Viewer(), e.ID, event.UpdateEvent{Title: &title})
	assert.Equal(t, event.ErrNotOwner, err)
}

func boolPtr(b bool) *bool { return &b }
