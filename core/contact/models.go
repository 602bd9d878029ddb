package contact

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
)

// Request statuses. StatusNone is reported when no request exists.
const (
	StatusNone     = "none"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Requesters
const (
	ByCoach  = "coach"
	ByParent = "parent"
)

// List filters
const (
	FilterIncoming = "incoming"
	FilterOutgoing = "outgoing"
	FilterAll      = "all"
)

// Request asks for the contact details between a coach and a parent.
type Request struct {
	ID              string      `json:"id" db:"id"`
	CoachProfileID  string      `json:"coachProfileId" db:"coach_profile_id"`
	ParentProfileID string      `json:"parentProfileId" db:"parent_profile_id"`
	PlayerID        null.String `json:"playerId" db:"player_id"`
	RequestedBy     string      `json:"requestedBy" db:"requested_by"`
	Status          string      `json:"status" db:"status"`
	CreatedAt       time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time   `json:"updatedAt" db:"updated_at"`

	CoachName  string      `json:"coachName" db:"coach_name"`
	ParentName string      `json:"parentName" db:"parent_name"`
	PlayerName null.String `json:"playerName" db:"player_name"`
}

// ParentRequest asks for the contact details of another parent about one of their players.
type ParentRequest struct {
	ID                 string    `json:"id" db:"id"`
	RequestingParentID string    `json:"requestingParentId" db:"requesting_parent_id"`
	TargetParentID     string    `json:"targetParentId" db:"target_parent_id"`
	PlayerID           string    `json:"playerId" db:"player_id"`
	Status             string    `json:"status" db:"status"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`

	RequestingParentName string `json:"requestingParentName" db:"requesting_parent_name"`
	PlayerName           string `json:"playerName" db:"player_name"`
}

type NewRequest struct {
	CoachProfileID  string `json:"coachProfileId" validate:"required"`
	ParentProfileID string `json:"parentProfileId" validate:"required"`
	PlayerID        string `json:"playerId"`
	RequestedBy     string `json:"requestedBy" validate:"required,oneof=coach parent"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.PlayerID = core.CleanString(nr.PlayerID)
	return validate.Struct(nr)
}

type NewParentRequest struct {
	TargetParentID string `json:"targetParentId" validate:"required"`
	PlayerID       string `json:"playerId" validate:"required"`
}

func (nr NewParentRequest) Validate(validate *validator.Validate) error { return validate.Struct(nr) }

type Decision struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (d Decision) Validate(validate *validator.Validate) error { return validate.Struct(d) }

// CheckResult tells whether the requester can see the other party's contact details.
type CheckResult struct {
	HasAccess bool   `json:"hasAccess"`
	Status    string `json:"status"`
}

type RequestFilter struct {
	CoachProfileID  string
	ParentProfileID string
	RequestedBy     string
}

type ParentRequestFilter struct {
	TargetParentID     string
	RequestingParentID string
	Status             string
}
