package event

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core/player"
)

// RSVP statuses
const (
	Going    = "going"
	NotGoing = "notGoing"
)

const (
	dateLayout     = "Jan 2, 2006"
	timeLayout     = "3:04 PM"
	reminderLayout = "Monday, Jan 2 at 3:04 PM"
)

type Event struct {
	ID              string      `json:"id" db:"id"`
	CoachID         string      `json:"coachId" db:"coach_id"`
	Title           string      `json:"title" db:"title"`
	EventType       null.String `json:"eventType" db:"event_type"`
	AgeGroup        null.String `json:"ageGroup" db:"age_group"`
	RinkName        null.String `json:"rinkName" db:"rink_name"`
	Location        null.String `json:"location" db:"location"`
	StartAt         time.Time   `json:"startAt" db:"start_at"`
	EndAt           null.Time   `json:"endAt" db:"end_at"`
	WebsiteLink     null.String `json:"websiteLink" db:"website_link"`
	SocialMediaLink null.String `json:"socialMediaLink" db:"social_media_link"`
	Description     null.String `json:"description" db:"description"`
	Image           null.String `json:"image" db:"image"`
	IsPrivate       bool        `json:"isPrivate" db:"is_private"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`
}

// Listing is an event with its organizer and the RSVP of the viewing parent, if any.
type Listing struct {
	Event
	CoachName      null.String `db:"coach_name"`
	CoachTeam      null.String `db:"coach_team"`
	CoachLevel     null.String `db:"coach_level"`
	CoachBirthYear null.Int    `db:"coach_birth_year"`
	Attending      int         `db:"attending"`
	RSVPStatus     null.String `db:"rsvp_status"`
	RSVPPlayerID   null.String `db:"rsvp_player_id"`
	RSVPPlayerName null.String `db:"rsvp_player_name"`
}

// View is the JSON shape of an event in listings.
type View struct {
	ID                  string      `json:"id"`
	CoachID             string      `json:"coachId"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	Image               null.String `json:"image"`
	WebsiteLink         null.String `json:"websiteLink"`
	SocialMediaLink     null.String `json:"socialMediaLink"`
	Date                string      `json:"date"`
	Time                string      `json:"time"`
	StartAt             time.Time   `json:"startAt"`
	EndAt               null.Time   `json:"endAt"`
	EventType           null.String `json:"eventType"`
	RinkName            null.String `json:"rinkName"`
	Location            string      `json:"location"`
	AgeGroup            string      `json:"ageGroup"`
	IsPrivate           bool        `json:"isPrivate"`
	CoachName           string      `json:"coachName"`
	OrganizedBy         string      `json:"organizedBy"`
	RSVP                null.String `json:"rsvp"`
	RSVPPlayerID        null.String `json:"rsvpPlayerId"`
	RSVPPlayerName      null.String `json:"rsvpPlayerName"`
	RSVPPlayerFirstName null.String `json:"rsvpPlayerFirstName"`
}

func (l Listing) View() View {
	v := View{
		ID:              l.ID,
		CoachID:         l.CoachID,
		Title:           l.Title,
		Description:     l.Description.String,
		Image:           l.Image,
		WebsiteLink:     l.WebsiteLink,
		SocialMediaLink: l.SocialMediaLink,
		Date:            l.StartAt.Format(dateLayout),
		Time:            l.StartAt.Format(timeLayout),
		StartAt:         l.StartAt,
		EndAt:           l.EndAt,
		EventType:       l.EventType,
		RinkName:        l.RinkName,
		Location:        l.Location.String,
		AgeGroup:        l.AgeGroup.String,
		IsPrivate:       l.IsPrivate,
		CoachName:       "Event Organizer",
	}
	if l.EndAt.Valid {
		v.Time += "-" + l.EndAt.Time.Format(timeLayout)
	}
	if l.CoachName.Valid {
		v.CoachName = l.CoachName.String
	}
	var org []string
	if l.CoachTeam.String != "" {
		org = append(org, l.CoachTeam.String)
	}
	if l.CoachLevel.String != "" {
		org = append(org, l.CoachLevel.String)
	}
	if l.CoachBirthYear.Valid {
		org = append(org, strconv.Itoa(l.CoachBirthYear.Int))
	}
	v.OrganizedBy = strings.Join(org, " · ")

	if l.RSVPStatus.Valid {
		v.RSVP = l.RSVPStatus
		if l.RSVPStatus.String == Going {
			v.RSVPPlayerID = l.RSVPPlayerID
			v.RSVPPlayerName = l.RSVPPlayerName
			if name := strings.Fields(l.RSVPPlayerName.String); len(name) > 0 {
				v.RSVPPlayerFirstName = null.StringFrom(name[0])
			}
		}
	}
	return v
}

type Rsvp struct {
	ID        string      `json:"id" db:"id"`
	EventID   string      `json:"eventId" db:"event_id"`
	ParentID  string      `json:"parentProfileId" db:"parent_profile_id"`
	PlayerID  null.String `json:"playerId" db:"player_id"`
	Status    string      `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// RsvpListing is an RSVP of a parent with its event and player.
type RsvpListing struct {
	Rsvp
	EventTitle   string      `db:"event_title"`
	EventStartAt time.Time   `db:"event_start_at"`
	PlayerName   null.String `db:"player_name"`
}

// Upcoming is an entry of the upcoming events widget.
type Upcoming struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Date      string      `json:"date"`
	Time      string      `json:"time,omitempty"`
	RinkName  null.String `json:"rinkName,omitempty"`
	Location  string      `json:"location,omitempty"`
	Attending int         `json:"attending"`
	Person    string      `json:"person"`
	Status    string      `json:"status"`
}

// Attendees lists the players going to an event.
type Attendees struct {
	Event struct {
		ID        string      `json:"id"`
		Title     string      `json:"title"`
		Date      string      `json:"date"`
		EventType null.String `json:"eventType"`
		RinkName  null.String `json:"rinkName"`
		Location  null.String `json:"location"`
	} `json:"event"`
	Players []player.Player `json:"players"`
}

// Reminder is a going RSVP due for an SMS reminder.
type Reminder struct {
	RsvpID     string      `db:"rsvp_id"`
	EventTitle string      `db:"event_title"`
	StartAt    time.Time   `db:"start_at"`
	RinkName   null.String `db:"rink_name"`
	Location   null.String `db:"location"`
	PlayerName string      `db:"player_name"`
	Phone      string      `db:"phone"`
}

func (r Reminder) Message() string {
	var where []string
	if r.RinkName.String != "" {
		where = append(where, r.RinkName.String)
	}
	if r.Location.String != "" {
		where = append(where, r.Location.String)
	}
	location := strings.Join(where, ", ")
	if location == "" {
		location = "See event details"
	}
	return "Reminder: You RSVP'd " + r.PlayerName + " to " + r.EventTitle +
		" (" + r.StartAt.Format(reminderLayout) + ") at " + location + "."
}

type ReminderResult struct {
	OK     bool `json:"ok"`
	Sent   int  `json:"sent"`
	Failed int  `json:"failed"`
	Total  int  `json:"total"`
}

type NewEvent struct {
	Title           string     `json:"title" validate:"required"`
	EventType       string     `json:"eventType"`
	AgeGroup        string     `json:"ageGroup"`
	RinkName        string     `json:"rinkName"`
	Location        string     `json:"location"`
	StartAt         time.Time  `json:"startAt" validate:"required"`
	EndAt           *time.Time `json:"endAt" validate:"omitempty,gtfield=StartAt"`
	WebsiteLink     string     `json:"websiteLink" validate:"omitempty,url"`
	SocialMediaLink string     `json:"socialMediaLink" validate:"omitempty,url"`
	Description     string     `json:"description"`
	Image           string     `json:"image"`
	IsPrivate       bool       `json:"isPrivate"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = strings.TrimSpace(ne.Title)
	ne.WebsiteLink = strings.TrimSpace(ne.WebsiteLink)
	ne.SocialMediaLink = strings.TrimSpace(ne.SocialMediaLink)
	ne.Description = strings.TrimSpace(ne.Description)
	ne.Image = strings.TrimSpace(ne.Image)
	return validate.Struct(ne)
}

type UpdateEvent struct {
	Title           *string    `json:"title" validate:"omitempty,min=1"`
	EventType       *string    `json:"eventType"`
	AgeGroup        *string    `json:"ageGroup"`
	RinkName        *string    `json:"rinkName"`
	Location        *string    `json:"location"`
	StartAt         *time.Time `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
	WebsiteLink     *string    `json:"websiteLink"`
	SocialMediaLink *string    `json:"socialMediaLink"`
	Description     *string    `json:"description"`
	Image           *string    `json:"image"`
	IsPrivate       *bool      `json:"isPrivate"`
}

func (ue UpdateEvent) Validate(validate *validator.Validate) error { return validate.Struct(ue) }

type NewRsvp struct {
	EventID  string `json:"eventId" validate:"required"`
	PlayerID string `json:"playerId"`
	Status   string `json:"status" validate:"required,oneof=going notGoing"`
}

func (nr NewRsvp) Validate(validate *validator.Validate) error { return validate.Struct(nr) }

// RsvpResult is the RSVP as confirmed to the parent.
type RsvpResult struct {
	EventID    string `json:"eventId,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Status     string `json:"status"`
}

type QueryFilter struct {
	From     time.Time
	To       time.Time
	CoachID  string
	ParentID string
	// Viewer sees private events of this coach.
	ViewerCoachID string
}

func optString(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}
