package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestReminderMessage(t *testing.T) {
	start := time.Date(2026, time.March, 14, 18, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		r    Reminder
		want string
	}{
		{
			name: "rink and location",
			r: Reminder{
				EventTitle: "Spring Showcase",
				StartAt:    start,
				RinkName:   null.StringFrom("Ice Den"),
				Location:   null.StringFrom("Boston, MA"),
				PlayerName: "Jake Doe",
			},
			want: "Reminder: You RSVP'd Jake Doe to Spring Showcase (Saturday, Mar 14 at 6:30 PM) at Ice Den, Boston, MA.",
		},
		{
			name: "no place",
			r:    Reminder{EventTitle: "Tryouts", StartAt: start, PlayerName: "Jake"},
			want: "Reminder: You RSVP'd Jake to Tryouts (Saturday, Mar 14 at 6:30 PM) at See event details.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Message())
		})
	}
}

func TestListingView(t *testing.T) {
	start := time.Date(2026, time.March, 14, 18, 30, 0, 0, time.UTC)
	l := Listing{
		Event: Event{
			ID:      "e1",
			Title:   "Tryouts",
			StartAt: start,
			EndAt:   null.TimeFrom(start.Add(90 * time.Minute)),
		},
		CoachName:      null.StringFrom("Mike Coach"),
		CoachTeam:      null.StringFrom("Eagles"),
		CoachBirthYear: null.IntFrom(2012),
		RSVPStatus:     null.StringFrom(Going),
		RSVPPlayerID:   null.StringFrom("p1"),
		RSVPPlayerName: null.StringFrom("Jake Doe"),
	}

	v := l.View()
	assert.Equal(t, "Mar 14, 2026", v.Date)
	assert.Equal(t, "6:30 PM-8:00 PM", v.Time)
	assert.Equal(t, "Mike Coach", v.CoachName)
	assert.Equal(t, "Eagles · 2012", v.OrganizedBy)
	assert.Equal(t, "Jake", v.RSVPPlayerFirstName.String)

	l.CoachName = null.String{}
	l.RSVPStatus = null.StringFrom(NotGoing)
	v = l.View()
	assert.Equal(t, "Event Organizer", v.CoachName)
	assert.Equal(t, NotGoing, v.RSVP.String)
	assert.False(t, v.RSVPPlayerID.Valid)
}
