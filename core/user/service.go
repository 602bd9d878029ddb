package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("User not found")
	ErrParentNotFound      = core.NewNotFoundError("Parent profile not found")
	ErrCoachNotFound       = core.NewNotFoundError("Coach not found")
	ErrBlockNotFound       = core.NewNotFoundError("Block not found")
	ErrBlockedEmailMissing = core.NewNotFoundError("Blocked email not found")
	ErrEmailExists         = core.NewConflictError("An account with this email already exists")
	ErrHeadCoachTaken      = core.NewConflictError(
		"A head coach is already registered for this team, level, and birth year. " +
			"If you believe this is a mistake, please use the Contact Us form to submit a dispute.",
	)
	ErrEmailBlocked      = core.NewPermissionError("This email address cannot create an account.")
	ErrInvalidCredential = errors.New("Invalid email or password")
	ErrPhoneNotVerified  = core.NewPermissionError("Please verify your phone first. Check your text messages for the verification code.")
	ErrAlreadyVerified   = core.NewBadRequestError("Already verified. Please sign in.")
	ErrNoPhone           = core.NewBadRequestError("No phone number on file. Please sign up again.")
	ErrInvalidCode       = core.NewBadRequestError("Invalid verification code")
	ErrSelfBlock         = core.NewBadRequestError("You cannot block yourself")

	// HeadCoachTakenCode is sent along ErrHeadCoachTaken so clients can offer a dispute form.
	HeadCoachTakenCode = "HEAD_COACH_TAKEN"
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)

		CreateParentProfile(ctx context.Context, p ParentProfile, exec ...core.DBExecutor) (ParentProfile, error)
		GetParentProfile(ctx context.Context, filter ProfileFilter, exec ...core.DBExecutor) (ParentProfile, error)
		UpdateParentProfile(ctx context.Context, p ParentProfile, exec ...core.DBExecutor) (ParentProfile, error)

		CreateCoachProfile(ctx context.Context, c CoachProfile, exec ...core.DBExecutor) (CoachProfile, error)
		GetCoachProfile(ctx context.Context, filter ProfileFilter, exec ...core.DBExecutor) (CoachProfile, error)
		QueryCoachProfiles(ctx context.Context, filter CoachFilter, exec ...core.DBExecutor) ([]CoachProfile, error)
		UpdateCoachProfile(ctx context.Context, c CoachProfile, exec ...core.DBExecutor) (CoachProfile, error)

		GetBlockedEmail(ctx context.Context, email string) (BlockedEmail, error)
		QueryBlockedEmails(ctx context.Context) ([]BlockedEmail, error)
		CreateBlockedEmail(ctx context.Context, be BlockedEmail) (BlockedEmail, error)
		DeleteBlockedEmail(ctx context.Context, email string) error

		CreateBlock(ctx context.Context, b Block) (Block, error)
		// GetBlock finds the block created by blockerID on blockedID.
		GetBlock(ctx context.Context, blockerID, blockedID string) (Block, error)
		GetBlockByID(ctx context.Context, id string) (Block, error)
		// QueryBlocks lists the blocks created by userID, with the blocked user's name & role.
		QueryBlocks(ctx context.Context, userID string) ([]Block, error)
		// BlockedUserIDs lists the users blocked by userID or blocking userID.
		BlockedUserIDs(ctx context.Context, userID string) ([]string, error)
		DeleteBlock(ctx context.Context, id string) error
	}

	Service interface {
		SignUp(ctx context.Context, su SignUp) (SignUpResult, error)
		VerifyPhone(ctx context.Context, email, code string) (Account, error)
		ResendCode(ctx context.Context, email string) error
		Authenticate(ctx context.Context, email, pwd string) (Account, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) (User, error)
		ChangePassword(ctx context.Context, viewer Viewer, data ChangePassword) error
		CloseAccount(ctx context.Context, viewer Viewer) error

		Create(ctx context.Context, nu NewUser) (Account, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetAccount(ctx context.Context, userID string) (Account, error)
		Viewer(ctx context.Context, userID string) (Viewer, error)
		Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		UpdateProfile(ctx context.Context, viewer Viewer, data UpdateProfile) (Account, error)
		UpdateNotificationPreferences(ctx context.Context, viewer Viewer, prefs NotificationPreferences) (ParentProfile, error)

		GetParentProfile(ctx context.Context, filter ProfileFilter) (ParentProfile, error)
		UpdateParentProfile(ctx context.Context, p ParentProfile) (ParentProfile, error)
		GetCoach(ctx context.Context, viewer Viewer, coachID string) (CoachProfile, error)
		QueryCoaches(ctx context.Context, viewer Viewer, filter CoachFilter) ([]CoachProfile, error)

		Block(ctx context.Context, viewer Viewer, userID string) (Block, bool, error)
		Unblock(ctx context.Context, viewer Viewer, blockID string) error
		Blocks(ctx context.Context, viewer Viewer) ([]Block, error)
		IsBlockedEitherWay(ctx context.Context, userA, userB string) (bool, error)
		BlockedUserIDs(ctx context.Context, userID string) ([]string, error)

		// admin
		SetActive(ctx context.Context, userID string, active bool) (User, error)
		SetPhone(ctx context.Context, userID, phone string) (User, error)
		AdminVerifyPhone(ctx context.Context, userID string) (User, error)
		AdminResetPassword(ctx context.Context, userID, pwd string) (User, error)
		GrantPlan(ctx context.Context, email string, planID plan.ID) (ParentProfile, error)
		BlockEmail(ctx context.Context, email, reason, blockedBy string) (BlockedEmail, error)
		UnblockEmail(ctx context.Context, email string) error
		ListBlockedEmails(ctx context.Context) ([]BlockedEmail, error)
	}

	SignUpResult struct {
		Success             bool   `json:"success"`
		NeedVerification    bool   `json:"needVerification"`
		Email               string `json:"email"`
		Phone               string `json:"phone"`
		VerificationWarning string `json:"_verificationWarning,omitempty"`
		User                User   `json:"-"`
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		mailSvc  core.EmailService
		smsSvc   core.SMSService
		notifier core.EventNotifier
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	tx core.Transactor,
	mailSvc core.EmailService,
	smsSvc core.SMSService,
	notifier core.EventNotifier,
) Service {
	configureTokens(conf)
	return &service{
		repo:     repo,
		tx:       tx,
		mailSvc:  mailSvc,
		smsSvc:   smsSvc,
		notifier: notifier,
		conf:     conf,
	}
}

func (svc *service) checkNotBlocked(ctx context.Context, email string) error {
	_, err := svc.repo.GetBlockedEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailBlocked
	case core.IsNotFound(err):
		return nil
	default:
		return errors.Wrap(err, "checking blocked email")
	}
}

func (svc *service) checkEmailAvailable(ctx context.Context, email string) error {
	_, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	switch {
	case err == nil:
		return ErrEmailExists
	case core.IsNotFound(err):
		return nil
	default:
		return errors.Wrap(err, "checking email uniqueness")
	}
}

// checkHeadCoach ensures a team/level/birth year has a single head coach.
func (svc *service) checkHeadCoach(ctx context.Context, team, level string, birthYear int, excludeID string) error {
	coaches, err := svc.repo.QueryCoachProfiles(ctx, CoachFilter{
		Team:          team,
		Level:         level,
		BirthYear:     birthYear,
		HeadCoachOnly: true,
		ExcludeID:     excludeID,
	})
	if err != nil {
		return errors.Wrap(err, "querying head coaches")
	}
	if len(coaches) > 0 {
		return ErrHeadCoachTaken
	}
	return nil
}

func (svc *service) SignUp(ctx context.Context, su SignUp) (SignUpResult, error) {
	if err := svc.checkNotBlocked(ctx, su.Email); err != nil {
		return SignUpResult{}, err
	}
	if err := svc.checkEmailAvailable(ctx, su.Email); err != nil {
		return SignUpResult{}, err
	}
	role := su.Role()
	if role == RoleCoach && su.CoachRole == CoachRoleHead {
		if err := svc.checkHeadCoach(ctx, su.Team, su.Level, su.BirthYear, ""); err != nil {
			return SignUpResult{}, err
		}
	}

	now := time.Now().UTC()
	usr := User{
		Name:      su.Name,
		Email:     su.Email,
		Phone:     core.NormalizePhone(su.Phone),
		IsActive:  true,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(su.Password); err != nil {
		return SignUpResult{}, errors.Wrap(err, "setting password")
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.CreateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "creating user")
		}
		if role == RoleCoach {
			_, err = svc.repo.CreateCoachProfile(ctx, CoachProfile{
				UserID:    usr.ID,
				Title:     coachTitles[su.CoachRole],
				CoachRole: su.CoachRole,
				League:    su.League,
				Level:     su.Level,
				Team:      su.Team,
				BirthYear: su.BirthYear,
				CreatedAt: now,
				UpdatedAt: now,
			}, exec)
			return errors.Wrap(err, "creating coach profile")
		}
		_, err = svc.repo.CreateParentProfile(ctx, newParentProfile(usr.ID, now), exec)
		return errors.Wrap(err, "creating parent profile")
	})
	if err != nil {
		return SignUpResult{}, err
	}

	res := SignUpResult{
		Success:          true,
		NeedVerification: true,
		Email:            usr.Email,
		Phone:            usr.Phone,
		User:             usr,
	}
	if err := svc.smsSvc.SendVerification(ctx, usr.Phone); err != nil {
		res.VerificationWarning = "We could not send a verification code. Use resend to try again."
	}
	svc.notifier.Notify(core.EventUserSignedUp, map[string]interface{}{
		"userId": usr.ID,
		"email":  usr.Email,
		"name":   usr.Name,
		"role":   usr.Role,
	})
	return res, nil
}

func newParentProfile(userID string, now time.Time) ParentProfile {
	return ParentProfile{
		UserID:             userID,
		PlanID:             plan.Free,
		EventReminderSMS:   true,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (svc *service) VerifyPhone(ctx context.Context, email, code string) (Account, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		if core.IsNotFound(err) {
			return Account{}, core.NewNotFoundError("Account not found")
		}
		return Account{}, errors.Wrap(err, "getting user")
	}
	if usr.PhoneVerified {
		return svc.GetAccount(ctx, usr.ID)
	}
	if usr.Phone == "" {
		return Account{}, ErrNoPhone
	}

	ok, err := svc.smsSvc.CheckVerification(ctx, usr.Phone, code)
	if err != nil {
		return Account{}, errors.Wrap(err, "checking verification code")
	}
	if !ok {
		return Account{}, ErrInvalidCode
	}

	usr.PhoneVerified = true
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return Account{}, errors.Wrap(err, "updating user")
	}
	return svc.GetAccount(ctx, usr.ID)
}

func (svc *service) ResendCode(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewNotFoundError("Account not found")
		}
		return errors.Wrap(err, "getting user")
	}
	if usr.PhoneVerified {
		return ErrAlreadyVerified
	}
	if usr.Phone == "" {
		return ErrNoPhone
	}
	if err = svc.smsSvc.SendVerification(ctx, usr.Phone); err != nil {
		return core.NewExternalServiceError("twilio", "Failed to send verification code. Please try again later.", err)
	}
	return nil
}

// Authenticate checks the credentials of an active account.
// Parents must have verified their phone number.
func (svc *service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.checkNotBlocked(ctx, email); err != nil {
		return Account{}, ErrInvalidCredential
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	if err != nil {
		if core.IsNotFound(err) {
			return Account{}, ErrInvalidCredential
		}
		return Account{}, errors.Wrap(err, "getting user")
	}
	if !usr.IsActive || usr.CheckPassword(pwd) != nil {
		return Account{}, ErrInvalidCredential
	}
	if usr.IsParent() && !usr.PhoneVerified {
		return Account{}, ErrPhoneNotVerified
	}
	return svc.GetAccount(ctx, usr.ID)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	uid := EncodeUID(usr)
	token := makeToken(usr)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name": usr.FirstName(),
			"URL":  fmt.Sprintf("%s/reset-password?uid=%s&token=%s", svc.conf.FrontendBaseURL, uid, token),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	invalidErr := core.NewBadRequestError("Invalid or expired reset link. Please request a new one.")

	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, invalidErr
		}
		return User{}, err
	}
	if err = verifyToken(usr, data.Token); err != nil {
		return User{}, invalidErr
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ChangePassword(ctx context.Context, viewer Viewer, data ChangePassword) error {
	usr, err := svc.GetByID(ctx, viewer.UserID)
	if err != nil {
		return err
	}
	if usr.CheckPassword(data.CurrentPassword) != nil {
		return core.NewValidationError(
			errors.New("Current password is incorrect"),
			core.FieldError{Field: "currentPassword", Error: "current password is incorrect"},
		)
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) CloseAccount(ctx context.Context, viewer Viewer) error {
	_, err := svc.SetActive(ctx, viewer.UserID, false)
	return err
}

func (svc *service) Create(ctx context.Context, nu NewUser) (Account, error) {
	if err := svc.checkEmailAvailable(ctx, nu.Email); err != nil {
		return Account{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:          nu.Name,
		Email:         nu.Email,
		Phone:         core.NormalizePhone(nu.Phone),
		PhoneVerified: true,
		IsActive:      true,
		Role:          nu.Role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return Account{}, errors.Wrap(err, "setting password")
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.CreateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "creating user")
		}
		switch usr.Role {
		case RoleParent:
			_, err = svc.repo.CreateParentProfile(ctx, newParentProfile(usr.ID, now), exec)
		case RoleCoach:
			_, err = svc.repo.CreateCoachProfile(ctx, CoachProfile{UserID: usr.ID, CreatedAt: now, UpdatedAt: now}, exec)
		}
		return errors.Wrap(err, "creating profile")
	})
	if err != nil {
		return Account{}, err
	}
	return svc.GetAccount(ctx, usr.ID)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetAccount(ctx context.Context, userID string) (Account, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	acc := Account{User: usr}

	if p, err := svc.repo.GetParentProfile(ctx, ProfileFilter{UserID: usr.ID}); err == nil {
		acc.Parent = &p
	} else if !core.IsNotFound(err) {
		return Account{}, errors.Wrap(err, "getting parent profile")
	}
	if c, err := svc.repo.GetCoachProfile(ctx, ProfileFilter{UserID: usr.ID}); err == nil {
		acc.Coach = &c
	} else if !core.IsNotFound(err) {
		return Account{}, errors.Wrap(err, "getting coach profile")
	}
	return acc, nil
}

func (svc *service) Viewer(ctx context.Context, userID string) (Viewer, error) {
	acc, err := svc.GetAccount(ctx, userID)
	if err != nil {
		return Viewer{}, err
	}
	return acc.Viewer(), nil
}

// Viewer returns the request actor of the account.
func (acc Account) Viewer() Viewer {
	v := Viewer{UserID: acc.ID, Name: acc.Name, Email: acc.Email, Role: acc.Role}
	if acc.Parent != nil {
		v.ParentProfileID = acc.Parent.ID
	}
	if acc.Coach != nil {
		v.CoachProfileID = acc.Coach.ID
	}
	return v
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) UpdateProfile(ctx context.Context, viewer Viewer, data UpdateProfile) (Account, error) {
	acc, err := svc.GetAccount(ctx, viewer.UserID)
	if err != nil {
		return Account{}, err
	}
	now := time.Now().UTC()

	usr := acc.User
	if data.Name != nil {
		usr.Name = *data.Name
	}
	if data.Phone != nil {
		if phone := core.NormalizePhone(*data.Phone); phone != usr.Phone {
			usr.Phone = phone
			usr.PhoneVerified = false
		}
	}
	usr.UpdatedAt = now

	coach := acc.Coach
	if coach != nil {
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		set(&coach.Title, data.Title)
		set(&coach.League, data.League)
		set(&coach.Level, data.Level)
		set(&coach.Team, data.Team)
		set(&coach.Location, data.Location)
		set(&coach.About, data.About)
		set(&coach.Image, data.Image)
		if data.BirthYear != nil {
			coach.BirthYear = *data.BirthYear
		}
		if strings.EqualFold(coach.Title, coachTitles[CoachRoleHead]) {
			coach.CoachRole = CoachRoleHead
			if err = svc.checkHeadCoach(ctx, coach.Team, coach.Level, coach.BirthYear, coach.ID); err != nil {
				return Account{}, err
			}
		} else if data.Title != nil && coach.CoachRole == CoachRoleHead {
			coach.CoachRole = CoachRoleAssistant
		}
		coach.UpdatedAt = now
	}

	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpdateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "updating user")
		}
		if coach != nil {
			_, err := svc.repo.UpdateCoachProfile(ctx, *coach, exec)
			return errors.Wrap(err, "updating coach profile")
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return svc.GetAccount(ctx, viewer.UserID)
}

func (svc *service) UpdateNotificationPreferences(ctx context.Context, viewer Viewer, prefs NotificationPreferences) (ParentProfile, error) {
	p, err := svc.repo.GetParentProfile(ctx, ProfileFilter{UserID: viewer.UserID})
	if err != nil {
		if core.IsNotFound(err) {
			return ParentProfile{}, ErrParentNotFound
		}
		return ParentProfile{}, err
	}
	if prefs.EventReminderSMS != nil {
		p.EventReminderSMS = *prefs.EventReminderSMS
	}
	if prefs.EmailNotifications != nil {
		p.EmailNotifications = *prefs.EmailNotifications
	}
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateParentProfile(ctx, p)
}

func (svc *service) GetParentProfile(ctx context.Context, filter ProfileFilter) (ParentProfile, error) {
	p, err := svc.repo.GetParentProfile(ctx, filter)
	if core.IsNotFound(err) {
		return ParentProfile{}, ErrParentNotFound
	}
	return p, err
}

func (svc *service) UpdateParentProfile(ctx context.Context, p ParentProfile) (ParentProfile, error) {
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateParentProfile(ctx, p)
}

// GetCoach hides test accounts and coaches blocked either way from the viewer.
func (svc *service) GetCoach(ctx context.Context, viewer Viewer, coachID string) (CoachProfile, error) {
	c, err := svc.repo.GetCoachProfile(ctx, ProfileFilter{ID: coachID})
	if err != nil {
		if core.IsNotFound(err) {
			return CoachProfile{}, ErrCoachNotFound
		}
		return CoachProfile{}, err
	}
	if c.UserID == viewer.UserID || viewer.IsAdmin() {
		return c, nil
	}
	if svc.conf.IsTestAccount(c.Email) {
		return CoachProfile{}, ErrCoachNotFound
	}
	if viewer.UserID != "" {
		blocked, err := svc.IsBlockedEitherWay(ctx, viewer.UserID, c.UserID)
		if err != nil {
			return CoachProfile{}, err
		}
		if blocked {
			return CoachProfile{}, ErrCoachNotFound
		}
	}
	return c, nil
}

func (svc *service) QueryCoaches(ctx context.Context, viewer Viewer, filter CoachFilter) ([]CoachProfile, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Pagination.Clean(20, 50)
	filter.ExcludeEmails = svc.conf.TestAccountEmails
	if viewer.UserID != "" {
		ids, err := svc.repo.BlockedUserIDs(ctx, viewer.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "querying blocked users")
		}
		filter.ExcludeUserIDs = ids
	}
	return svc.repo.QueryCoachProfiles(ctx, filter)
}

// Block returns the created block, or the existing one with created == false.
func (svc *service) Block(ctx context.Context, viewer Viewer, userID string) (Block, bool, error) {
	if userID == viewer.UserID {
		return Block{}, false, ErrSelfBlock
	}
	target, err := svc.GetByID(ctx, userID)
	if err != nil {
		return Block{}, false, err
	}

	existing, err := svc.repo.GetBlock(ctx, viewer.UserID, target.ID)
	if err == nil {
		return existing, false, nil
	} else if !core.IsNotFound(err) {
		return Block{}, false, errors.Wrap(err, "getting block")
	}

	b, err := svc.repo.CreateBlock(ctx, Block{
		BlockerUserID: viewer.UserID,
		BlockedUserID: target.ID,
		BlockedName:   target.Name,
		BlockedRole:   target.Role,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Block{}, false, errors.Wrap(err, "creating block")
	}
	return b, true, nil
}

func (svc *service) Unblock(ctx context.Context, viewer Viewer, blockID string) error {
	b, err := svc.repo.GetBlockByID(ctx, blockID)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrBlockNotFound
		}
		return err
	}
	if b.BlockerUserID != viewer.UserID {
		return ErrBlockNotFound
	}
	return svc.repo.DeleteBlock(ctx, b.ID)
}

func (svc *service) Blocks(ctx context.Context, viewer Viewer) ([]Block, error) {
	return svc.repo.QueryBlocks(ctx, viewer.UserID)
}

func (svc *service) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	return svc.repo.BlockedUserIDs(ctx, userID)
}

func (svc *service) IsBlockedEitherWay(ctx context.Context, userA, userB string) (bool, error) {
	ids, err := svc.repo.BlockedUserIDs(ctx, userA)
	if err != nil {
		return false, errors.Wrap(err, "querying blocked users")
	}
	for _, id := range ids {
		if id == userB {
			return true, nil
		}
	}
	return false, nil
}

func (svc *service) SetActive(ctx context.Context, userID string, active bool) (User, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = active
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPhone(ctx context.Context, userID, phone string) (User, error) {
	normalized := core.NormalizePhone(phone)
	if normalized == "" {
		return User{}, core.NewValidationError(
			errors.New("Invalid phone number"),
			core.FieldError{Field: "phone", Error: "enter a valid phone number"},
		)
	}
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	usr.Phone = normalized
	usr.PhoneVerified = false
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) AdminVerifyPhone(ctx context.Context, userID string) (User, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	usr.PhoneVerified = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) AdminResetPassword(ctx context.Context, userID, pwd string) (User, error) {
	usr, err := svc.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// GrantPlan gives a parent account a plan without going through Stripe.
func (svc *service) GrantPlan(ctx context.Context, email string, planID plan.ID) (ParentProfile, error) {
	if !planID.IsValid() {
		return ParentProfile{}, core.NewBadRequestError("Invalid plan")
	}
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return ParentProfile{}, err
	}
	p, err := svc.GetParentProfile(ctx, ProfileFilter{UserID: usr.ID})
	if err != nil {
		return ParentProfile{}, err
	}
	p.PlanID = planID
	if planID.IsPaid() {
		p.SubscriptionStatus = plan.StatusActive
	} else {
		p.SubscriptionStatus = ""
	}
	return svc.UpdateParentProfile(ctx, p)
}

func (svc *service) BlockEmail(ctx context.Context, email, reason, blockedBy string) (BlockedEmail, error) {
	email = core.CleanString(email, true /* lower */)
	if _, err := mail.ParseAddress(email); err != nil {
		return BlockedEmail{}, core.NewValidationError(
			errors.New("Invalid email"),
			core.FieldError{Field: "email", Error: "email must be a valid email address"},
		)
	}
	if be, err := svc.repo.GetBlockedEmail(ctx, email); err == nil {
		return be, nil
	}
	return svc.repo.CreateBlockedEmail(ctx, BlockedEmail{
		Email:     email,
		Reason:    core.CleanString(reason),
		BlockedBy: blockedBy,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) UnblockEmail(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	if _, err := svc.repo.GetBlockedEmail(ctx, email); err != nil {
		if core.IsNotFound(err) {
			return ErrBlockedEmailMissing
		}
		return err
	}
	return svc.repo.DeleteBlockedEmail(ctx, email)
}

func (svc *service) ListBlockedEmails(ctx context.Context) ([]BlockedEmail, error) {
	return svc.repo.QueryBlockedEmails(ctx)
}
