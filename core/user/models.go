package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
)

// Roles
const (
	RoleParent = "PARENT"
	RoleCoach  = "COACH"
	RoleAdmin  = "ADMIN"
)

// Coach roles
const (
	CoachRoleHead      = "HEAD_COACH"
	CoachRoleAssistant = "ASSISTANT_COACH"
)

var (
	AllRoles = []string{RoleParent, RoleCoach, RoleAdmin}

	Roles = []Role{
		{Name: "Parent", Value: RoleParent},
		{Name: "Coach", Value: RoleCoach},
		{Name: "Admin", Value: RoleAdmin},
	}

	coachTitles = map[string]string{
		CoachRoleHead:      "Head Coach",
		CoachRoleAssistant: "Assistant Coach",
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PhoneVerified bool      `json:"phoneVerified"`
	IsActive      bool      `json:"isActive"`
	Role          string    `json:"role"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
	LastLogin     time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsParent() bool { return u.Role == RoleParent }
func (u *User) IsCoach() bool  { return u.Role == RoleCoach }

// FirstName returns the first word of the user's name.
func (u *User) FirstName() string {
	if fields := strings.Fields(u.Name); len(fields) > 0 {
		return fields[0]
	}
	return u.Name
}

type ParentProfile struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	PlanID               plan.ID    `json:"planId"`
	StripeCustomerID     string     `json:"-"`
	StripeSubscriptionID string     `json:"-"`
	SubscriptionStatus   string     `json:"subscriptionStatus"`
	PeriodEndAt          *time.Time `json:"periodEndAt"`
	EventReminderSMS     bool       `json:"eventReminderSmsEnabled"`
	EmailNotifications   bool       `json:"emailNotificationsEnabled"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Billing returns the subscription state of the profile.
func (p ParentProfile) Billing() plan.ParentBilling {
	return plan.ParentBilling{
		PlanID:               p.PlanID,
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		Status:               p.SubscriptionStatus,
		PeriodEndAt:          p.PeriodEndAt,
	}
}

type CoachProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`  // from User
	Email     string    `json:"-"`     // from User
	Title     string    `json:"title"` // "Head Coach" | "Assistant Coach" | free text
	CoachRole string    `json:"coachRole"`
	League    string    `json:"league"`
	Level     string    `json:"level"`
	Team      string    `json:"team"`
	BirthYear int       `json:"birthYear"`
	Location  string    `json:"location"`
	About     string    `json:"about"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c CoachProfile) IsHeadCoach() bool { return c.CoachRole == CoachRoleHead }

// Account is a User with its role profile.
type Account struct {
	User
	Parent *ParentProfile `json:"parentProfile"`
	Coach  *CoachProfile  `json:"coachProfile"`
}

// Viewer is the authenticated actor of a request.
type Viewer struct {
	UserID          string
	Name            string
	Email           string
	Role            string
	ParentProfileID string
	CoachProfileID  string
}

func (v Viewer) IsAdmin() bool  { return v.Role == RoleAdmin }
func (v Viewer) IsParent() bool { return v.ParentProfileID != "" }
func (v Viewer) IsCoach() bool  { return v.CoachProfileID != "" }

// BlockedEmail prevents sign ups with an email address.
type BlockedEmail struct {
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	BlockedBy string    `json:"blockedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Block hides two users from each other.
type Block struct {
	ID            string    `json:"id"`
	BlockerUserID string    `json:"blockerUserId"`
	BlockedUserID string    `json:"blockedUserId"`
	BlockedName   string    `json:"name"`
	BlockedRole   string    `json:"role"`
	CreatedAt     time.Time `json:"blockedDate"`
}

// SignUp contains information needed to create a new account.
type SignUp struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	Password  string `json:"password" validate:"required"`
	UserType  string `json:"userType" validate:"required,oneof=coach parent"`
	League    string `json:"league" validate:"required_if=UserType coach"`
	Level     string `json:"level" validate:"required_if=UserType coach"`
	Team      string `json:"team" validate:"required_if=UserType coach"`
	BirthYear int    `json:"birthYear" validate:"required_if=UserType coach,omitempty,min=1990,max=2030"`
	CoachRole string `json:"coachRole" validate:"required_if=UserType coach,omitempty,oneof=HEAD_COACH ASSISTANT_COACH"`
}

func (su *SignUp) Validate(validate *validator.Validate) error {
	su.Name = core.CleanString(su.Name)
	su.Email = core.CleanString(su.Email, true /* lower */)
	su.Phone = core.CleanString(su.Phone)
	su.UserType = core.CleanString(su.UserType, true /* lower */)
	su.League = core.CleanString(su.League)
	su.Level = core.CleanString(su.Level)
	su.Team = core.CleanString(su.Team)
	return validate.Struct(su)
}

func (su *SignUp) Role() string {
	if su.UserType == "coach" {
		return RoleCoach
	}
	return RoleParent
}

// NewUser is used by admins (and the admin CLI) to create accounts directly.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	Role            string `json:"role" validate:"required,oneof=PARENT COACH ADMIN"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	return validate.Struct(nu)
}

// UpdateProfile defines what the account owner may change.
type UpdateProfile struct {
	Name      *string `json:"name" validate:"omitempty,min=1"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Title     *string `json:"title"`
	League    *string `json:"league"`
	Level     *string `json:"level"`
	Team      *string `json:"team"`
	BirthYear *int    `json:"birthYear" validate:"omitempty,min=1990,max=2030"`
	Location  *string `json:"location"`
	About     *string `json:"about"`
	Image     *string `json:"image"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	for _, s := range []*string{up.Name, up.Phone, up.Title, up.League, up.Level, up.Team, up.Location, up.About, up.Image} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(up)
}

type NotificationPreferences struct {
	EventReminderSMS   *bool `json:"eventReminderSmsEnabled"`
	EmailNotifications *bool `json:"emailNotificationsEnabled"`
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"newPassword" validate:"required"`
	PasswordConfirm string `json:"newPasswordConfirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = strings.ToUpper(core.CleanString(qf.Role))
}

// GetFilter selects a single User. Only the first non-empty field is used.
type GetFilter struct {
	ID    string
	Email string
}

// ProfileFilter selects a single profile. Only the first non-empty field is used.
type ProfileFilter struct {
	ID                   string
	UserID               string
	StripeCustomerID     string
	StripeSubscriptionID string
}

type CoachFilter struct {
	Search         string `query:"search"`
	League         string
	Team           string
	Level          string
	BirthYear      int
	HeadCoachOnly  bool
	ExcludeID      string
	ExcludeUserIDs []string
	ExcludeEmails  []string
	core.Pagination
}
