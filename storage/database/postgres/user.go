package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

const (
	userColumns = `id, name, email, phone, phone_verified, is_active, role, password_hash, created_at, updated_at, last_login`

	parentColumns = `id, user_id, plan_id, stripe_customer_id, stripe_subscription_id, subscription_status,
		period_end_at, event_reminder_sms, email_notifications, created_at, updated_at`

	coachSelect = `SELECT c.id, c.user_id, u.name, u.email, c.title, c.coach_role, c.league, c.level, c.team,
		c.birth_year, c.location, c.about, c.image, c.created_at, c.updated_at
		FROM coach_profiles c JOIN users u ON u.id = c.user_id`
)

var (
	userOrderColumns = map[string]string{
		"name":       "name",
		"email":      "email",
		"role":       "role",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type userRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	PhoneVerified bool      `db:"phone_verified"`
	IsActive      bool      `db:"is_active"`
	Role          string    `db:"role"`
	PasswordHash  []byte    `db:"password_hash"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	LastLogin     null.Time `db:"last_login"`
}

func boilUser(usr user.User) userRow {
	return userRow{
		ID:            usr.ID,
		Name:          usr.Name,
		Email:         usr.Email,
		Phone:         usr.Phone,
		PhoneVerified: usr.PhoneVerified,
		IsActive:      usr.IsActive,
		Role:          usr.Role,
		PasswordHash:  usr.PasswordHash,
		CreatedAt:     usr.CreatedAt,
		UpdatedAt:     usr.UpdatedAt,
		LastLogin:     null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

func unboilUser(row userRow) user.User {
	return user.User{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		Phone:         row.Phone,
		PhoneVerified: row.PhoneVerified,
		IsActive:      row.IsActive,
		Role:          row.Role,
		PasswordHash:  row.PasswordHash,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
		LastLogin:     row.LastLogin.Time.UTC(),
	}
}

type parentRow struct {
	ID                   string      `db:"id"`
	UserID               string      `db:"user_id"`
	PlanID               string      `db:"plan_id"`
	StripeCustomerID     null.String `db:"stripe_customer_id"`
	StripeSubscriptionID null.String `db:"stripe_subscription_id"`
	SubscriptionStatus   string      `db:"subscription_status"`
	PeriodEndAt          null.Time   `db:"period_end_at"`
	EventReminderSMS     bool        `db:"event_reminder_sms"`
	EmailNotifications   bool        `db:"email_notifications"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func boilParent(p user.ParentProfile) parentRow {
	return parentRow{
		ID:                   p.ID,
		UserID:               p.UserID,
		PlanID:               string(p.PlanID),
		StripeCustomerID:     nullString(p.StripeCustomerID),
		StripeSubscriptionID: nullString(p.StripeSubscriptionID),
		SubscriptionStatus:   p.SubscriptionStatus,
		PeriodEndAt:          null.TimeFromPtr(p.PeriodEndAt),
		EventReminderSMS:     p.EventReminderSMS,
		EmailNotifications:   p.EmailNotifications,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func unboilParent(row parentRow) user.ParentProfile {
	return user.ParentProfile{
		ID:                   row.ID,
		UserID:               row.UserID,
		PlanID:               plan.ID(row.PlanID),
		StripeCustomerID:     row.StripeCustomerID.String,
		StripeSubscriptionID: row.StripeSubscriptionID.String,
		SubscriptionStatus:   row.SubscriptionStatus,
		PeriodEndAt:          utcPtr(row.PeriodEndAt),
		EventReminderSMS:     row.EventReminderSMS,
		EmailNotifications:   row.EmailNotifications,
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type coachRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Title     string    `db:"title"`
	CoachRole string    `db:"coach_role"`
	League    string    `db:"league"`
	Level     string    `db:"level"`
	Team      string    `db:"team"`
	BirthYear int       `db:"birth_year"`
	Location  string    `db:"location"`
	About     string    `db:"about"`
	Image     string    `db:"image"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func unboilCoach(row coachRow) user.CoachProfile {
	return user.CoachProfile{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Email:     row.Email,
		Title:     row.Title,
		CoachRole: row.CoachRole,
		League:    row.League,
		Level:     row.Level,
		Team:      row.Team,
		BirthYear: row.BirthYear,
		Location:  row.Location,
		About:     row.About,
		Image:     row.Image,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type blockRow struct {
	ID            string    `db:"id"`
	BlockerUserID string    `db:"blocker_user_id"`
	BlockedUserID string    `db:"blocked_user_id"`
	BlockedName   string    `db:"blocked_name"`
	BlockedRole   string    `db:"blocked_role"`
	CreatedAt     time.Time `db:"created_at"`
}

func unboilBlock(row blockRow) user.Block {
	return user.Block{
		ID:            row.ID,
		BlockerUserID: row.BlockerUserID,
		BlockedUserID: row.BlockedUserID,
		BlockedName:   row.BlockedName,
		BlockedRole:   row.BlockedRole,
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

type blockedEmailRow struct {
	Email     string    `db:"email"`
	Reason    string    `db:"reason"`
	BlockedBy string    `db:"blocked_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (row blockedEmailRow) unboil() user.BlockedEmail {
	return user.BlockedEmail{Email: row.Email, Reason: row.Reason, BlockedBy: row.BlockedBy, CreatedAt: row.CreatedAt.UTC()}
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{repo{exec: db}}
}

func (r userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = newID()
	}
	_, err := r.getExec(exec).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		boilUser(usr).args()...,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (row userRow) args() []interface{} {
	return []interface{}{
		row.ID, row.Name, row.Email, row.Phone, row.PhoneVerified, row.IsActive, row.Role,
		row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	}
}

func (r userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	default:
		return user.User{}, errNotFound
	}

	var row userRow
	err := sqlx.GetContext(ctx, r.getExec(exec), &row, `SELECT `+userColumns+` FROM users`+w.String(), w.args...)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, errNotFound, "selecting user")
	}
	return unboilUser(row), nil
}

func (r userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var w where
	if filter.Search != "" {
		w.add("(name ILIKE ? OR email ILIKE ?)", like(filter.Search), like(filter.Search))
	}
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	var rows []userRow
	query := `SELECT ` + userColumns + ` FROM users` + w.String() + orderBy(ordering, userOrderColumns, "created_at DESC")
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, unboilUser(row))
	}
	return users, nil
}

func (r userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := r.getExec(exec).ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, phone = $4, phone_verified = $5, is_active = $6, role = $7,
			password_hash = $8, created_at = $9, updated_at = $10, last_login = $11
		WHERE id = $1`,
		boilUser(usr).args()...,
	)
	if err = checkAffected(res, err, errNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (r userRepository) CreateParentProfile(ctx context.Context, p user.ParentProfile, exec ...core.DBExecutor) (user.ParentProfile, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`INSERT INTO parent_profiles (`+parentColumns+`)
		VALUES (:id, :user_id, :plan_id, :stripe_customer_id, :stripe_subscription_id, :subscription_status,
			:period_end_at, :event_reminder_sms, :email_notifications, :created_at, :updated_at)`,
		boilParent(p),
	)
	if err != nil {
		return user.ParentProfile{}, errors.Wrap(err, "inserting parent profile")
	}
	return p, nil
}

func (r userRepository) GetParentProfile(ctx context.Context, filter user.ProfileFilter, exec ...core.DBExecutor) (user.ParentProfile, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.UserID != "":
		w.add("user_id = ?", filter.UserID)
	case filter.StripeCustomerID != "":
		w.add("stripe_customer_id = ?", filter.StripeCustomerID)
	case filter.StripeSubscriptionID != "":
		w.add("stripe_subscription_id = ?", filter.StripeSubscriptionID)
	default:
		return user.ParentProfile{}, errNotFound
	}

	var row parentRow
	err := sqlx.GetContext(ctx, r.getExec(exec), &row, `SELECT `+parentColumns+` FROM parent_profiles`+w.String()+` LIMIT 1`, w.args...)
	if err != nil {
		return user.ParentProfile{}, trapNoRowsErr(err, errNotFound, "selecting parent profile")
	}
	return unboilParent(row), nil
}

func (r userRepository) UpdateParentProfile(ctx context.Context, p user.ParentProfile, exec ...core.DBExecutor) (user.ParentProfile, error) {
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`UPDATE parent_profiles SET plan_id = :plan_id, stripe_customer_id = :stripe_customer_id,
			stripe_subscription_id = :stripe_subscription_id, subscription_status = :subscription_status,
			period_end_at = :period_end_at, event_reminder_sms = :event_reminder_sms,
			email_notifications = :email_notifications, updated_at = :updated_at
		WHERE id = :id`,
		boilParent(p),
	)
	if err = checkAffected(res, err, errNotFound, "updating parent profile"); err != nil {
		return user.ParentProfile{}, err
	}
	return p, nil
}

func (r userRepository) CreateCoachProfile(ctx context.Context, c user.CoachProfile, exec ...core.DBExecutor) (user.CoachProfile, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`INSERT INTO coach_profiles (id, user_id, title, coach_role, league, level, team, birth_year, location,
			about, image, created_at, updated_at)
		VALUES (:id, :user_id, :title, :coach_role, :league, :level, :team, :birth_year, :location,
			:about, :image, :created_at, :updated_at)`,
		boilCoach(c),
	)
	if err != nil {
		return user.CoachProfile{}, errors.Wrap(err, "inserting coach profile")
	}
	return c, nil
}

func boilCoach(c user.CoachProfile) coachRow {
	return coachRow{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		Title:     c.Title,
		CoachRole: c.CoachRole,
		League:    c.League,
		Level:     c.Level,
		Team:      c.Team,
		BirthYear: c.BirthYear,
		Location:  c.Location,
		About:     c.About,
		Image:     c.Image,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r userRepository) GetCoachProfile(ctx context.Context, filter user.ProfileFilter, exec ...core.DBExecutor) (user.CoachProfile, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("c.id = ?", filter.ID)
	case filter.UserID != "":
		w.add("c.user_id = ?", filter.UserID)
	default:
		return user.CoachProfile{}, errNotFound
	}

	var row coachRow
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, coachSelect+w.String(), w.args...); err != nil {
		return user.CoachProfile{}, trapNoRowsErr(err, errNotFound, "selecting coach profile")
	}
	return unboilCoach(row), nil
}

func (r userRepository) QueryCoachProfiles(ctx context.Context, filter user.CoachFilter, exec ...core.DBExecutor) ([]user.CoachProfile, error) {
	w := where{conds: []string{"u.is_active"}}
	if filter.Search != "" {
		w.add("(u.name ILIKE ? OR c.team ILIKE ? OR c.league ILIKE ? OR c.location ILIKE ?)",
			like(filter.Search), like(filter.Search), like(filter.Search), like(filter.Search))
	}
	if filter.League != "" {
		w.add("c.league = ?", filter.League)
	}
	if filter.Team != "" {
		w.add("c.team = ?", filter.Team)
	}
	if filter.Level != "" {
		w.add("c.level = ?", filter.Level)
	}
	if filter.BirthYear != 0 {
		w.add("c.birth_year = ?", filter.BirthYear)
	}
	if filter.HeadCoachOnly {
		w.add("c.coach_role = ?", user.CoachRoleHead)
	}
	if filter.ExcludeID != "" {
		w.add("c.id <> ?", filter.ExcludeID)
	}
	if len(filter.ExcludeUserIDs) > 0 {
		w.add("NOT (c.user_id = ANY(?::uuid[]))", pqStrings(filter.ExcludeUserIDs))
	}
	if len(filter.ExcludeEmails) > 0 {
		w.add("NOT (u.email = ANY(?))", pqStrings(filter.ExcludeEmails))
	}

	query := coachSelect + w.String() + ` ORDER BY c.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit) + ` OFFSET ` + w.arg(filter.Offset)
	}

	var rows []coachRow
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting coach profiles")
	}
	coaches := make([]user.CoachProfile, 0, len(rows))
	for _, row := range rows {
		coaches = append(coaches, unboilCoach(row))
	}
	return coaches, nil
}

func (r userRepository) UpdateCoachProfile(ctx context.Context, c user.CoachProfile, exec ...core.DBExecutor) (user.CoachProfile, error) {
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`UPDATE coach_profiles SET title = :title, coach_role = :coach_role, league = :league, level = :level,
			team = :team, birth_year = :birth_year, location = :location, about = :about, image = :image,
			updated_at = :updated_at
		WHERE id = :id`,
		boilCoach(c),
	)
	if err = checkAffected(res, err, errNotFound, "updating coach profile"); err != nil {
		return user.CoachProfile{}, err
	}
	return c, nil
}

func (r userRepository) GetBlockedEmail(ctx context.Context, email string) (user.BlockedEmail, error) {
	var row blockedEmailRow
	err := sqlx.GetContext(ctx, r.exec, &row, `SELECT email, reason, blocked_by, created_at FROM blocked_emails WHERE email = $1`, email)
	if err != nil {
		return user.BlockedEmail{}, trapNoRowsErr(err, errNotFound, "selecting blocked email")
	}
	return row.unboil(), nil
}

func (r userRepository) QueryBlockedEmails(ctx context.Context) ([]user.BlockedEmail, error) {
	var rows []blockedEmailRow
	err := sqlx.SelectContext(ctx, r.exec, &rows, `SELECT email, reason, blocked_by, created_at FROM blocked_emails ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting blocked emails")
	}
	emails := make([]user.BlockedEmail, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.unboil())
	}
	return emails, nil
}

func (r userRepository) CreateBlockedEmail(ctx context.Context, be user.BlockedEmail) (user.BlockedEmail, error) {
	_, err := r.exec.ExecContext(ctx,
		`INSERT INTO blocked_emails (email, reason, blocked_by, created_at) VALUES ($1, $2, $3, $4)`,
		be.Email, be.Reason, be.BlockedBy, be.CreatedAt,
	)
	if err != nil {
		return user.BlockedEmail{}, errors.Wrap(err, "inserting blocked email")
	}
	return be, nil
}

func (r userRepository) DeleteBlockedEmail(ctx context.Context, email string) error {
	res, err := r.exec.ExecContext(ctx, `DELETE FROM blocked_emails WHERE email = $1`, email)
	return checkAffected(res, err, errNotFound, "deleting blocked email")
}

const blockSelect = `SELECT b.id, b.blocker_user_id, b.blocked_user_id, u.name AS blocked_name, u.role AS blocked_role, b.created_at
	FROM user_blocks b JOIN users u ON u.id = b.blocked_user_id`

func (r userRepository) CreateBlock(ctx context.Context, b user.Block) (user.Block, error) {
	if b.ID == "" {
		b.ID = newID()
	}
	_, err := r.exec.ExecContext(ctx,
		`INSERT INTO user_blocks (id, blocker_user_id, blocked_user_id, created_at) VALUES ($1, $2, $3, $4)`,
		b.ID, b.BlockerUserID, b.BlockedUserID, b.CreatedAt,
	)
	if err != nil {
		return user.Block{}, errors.Wrap(err, "inserting block")
	}
	return b, nil
}

func (r userRepository) getBlock(ctx context.Context, w where) (user.Block, error) {
	var row blockRow
	if err := sqlx.GetContext(ctx, r.exec, &row, blockSelect+w.String(), w.args...); err != nil {
		return user.Block{}, trapNoRowsErr(err, errNotFound, "selecting block")
	}
	return unboilBlock(row), nil
}

func (r userRepository) GetBlock(ctx context.Context, blockerID, blockedID string) (user.Block, error) {
	var w where
	w.add("b.blocker_user_id = ?", blockerID)
	w.add("b.blocked_user_id = ?", blockedID)
	return r.getBlock(ctx, w)
}

func (r userRepository) GetBlockByID(ctx context.Context, id string) (user.Block, error) {
	var w where
	w.add("b.id = ?", id)
	return r.getBlock(ctx, w)
}

func (r userRepository) QueryBlocks(ctx context.Context, userID string) ([]user.Block, error) {
	var rows []blockRow
	err := sqlx.SelectContext(ctx, r.exec, &rows, blockSelect+` WHERE b.blocker_user_id = $1 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting blocks")
	}
	blocks := make([]user.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, unboilBlock(row))
	}
	return blocks, nil
}

func (r userRepository) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := sqlx.SelectContext(ctx, r.exec, &ids,
		`SELECT blocked_user_id FROM user_blocks WHERE blocker_user_id = $1
		UNION
		SELECT blocker_user_id FROM user_blocks WHERE blocked_user_id = $1`,
		userID,
	)
	return ids, errors.Wrap(err, "selecting blocked user ids")
}

func (r userRepository) DeleteBlock(ctx context.Context, id string) error {
	res, err := r.exec.ExecContext(ctx, `DELETE FROM user_blocks WHERE id = $1`, id)
	return checkAffected(res, err, errNotFound, "deleting block")
}
