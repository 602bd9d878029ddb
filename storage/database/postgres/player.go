package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
)

const (
	playerColumns = `p.id, p.parent_id, p.name, p.birth_year, p.position, p.level, p.gender, p.location, p.team,
		p.league, p.bio, p.image, p.social_link, p.goals, p.assists, p.plus_minus, p.gaa, p.save_pct, p.status,
		p.plan_id, p.created_at, p.updated_at`

	listingSelect = `SELECT ` + playerColumns + `, u.id AS parent_user_id, u.name AS parent_name,
		u.email AS parent_email, u.phone AS parent_phone, pp.plan_id AS parent_plan_id,
		COALESCE((
			SELECT s.plan_id FROM player_subscriptions s
			WHERE s.player_id = p.id AND s.status IN ('` + plan.StatusActive + `', '` + plan.StatusTrialing + `')
			ORDER BY s.created_at DESC LIMIT 1
		), '') AS subscription_plan_id
		FROM players p
		JOIN parent_profiles pp ON pp.id = p.parent_id
		JOIN users u ON u.id = pp.user_id`

	subscriptionColumns = `id, parent_profile_id, player_id, plan_id, stripe_subscription_id, status, period_end_at,
		created_at, updated_at`
)

type subscriptionRow struct {
	ID                   string      `db:"id"`
	ParentID             string      `db:"parent_profile_id"`
	PlayerID             null.String `db:"player_id"`
	PlanID               string      `db:"plan_id"`
	StripeSubscriptionID string      `db:"stripe_subscription_id"`
	Status               string      `db:"status"`
	PeriodEndAt          null.Time   `db:"period_end_at"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func boilSubscription(s plan.PlayerSubscription) subscriptionRow {
	return subscriptionRow{
		ID:                   s.ID,
		ParentID:             s.ParentID,
		PlayerID:             nullString(s.PlayerID),
		PlanID:               string(s.PlanID),
		StripeSubscriptionID: s.StripeSubscriptionID,
		Status:               s.Status,
		PeriodEndAt:          null.TimeFromPtr(s.PeriodEndAt),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func unboilSubscription(row subscriptionRow) plan.PlayerSubscription {
	return plan.PlayerSubscription{
		ID:                   row.ID,
		ParentID:             row.ParentID,
		PlayerID:             row.PlayerID.String,
		PlanID:               plan.ID(row.PlanID),
		StripeSubscriptionID: row.StripeSubscriptionID,
		Status:               row.Status,
		PeriodEndAt:          utcPtr(row.PeriodEndAt),
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
}

func utcPlayer(p player.Player) player.Player {
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p
}

type playerRepository struct {
	repo
}

var _ player.Repository = (*playerRepository)(nil)

func NewPlayerRepository(db core.DBExecutor) *playerRepository {
	return &playerRepository{repo{exec: db}}
}

func (r playerRepository) CreatePlayer(ctx context.Context, p player.Player, exec ...core.DBExecutor) (player.Player, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`INSERT INTO players (id, parent_id, name, birth_year, position, level, gender, location, team, league,
			bio, image, social_link, goals, assists, plus_minus, gaa, save_pct, status, plan_id, created_at, updated_at)
		VALUES (:id, :parent_id, :name, :birth_year, :position, :level, :gender, :location, :team, :league,
			:bio, :image, :social_link, :goals, :assists, :plus_minus, :gaa, :save_pct, :status, :plan_id,
			:created_at, :updated_at)`,
		p,
	)
	if err != nil {
		return player.Player{}, errors.Wrap(err, "inserting player")
	}
	return p, nil
}

func (r playerRepository) GetPlayer(ctx context.Context, id string, exec ...core.DBExecutor) (player.Player, error) {
	var p player.Player
	err := sqlx.GetContext(ctx, r.getExec(exec), &p, `SELECT `+playerColumns+` FROM players p WHERE p.id = $1`, id)
	if err != nil {
		return player.Player{}, trapNoRowsErr(err, errNotFound, "selecting player")
	}
	return utcPlayer(p), nil
}

func (r playerRepository) GetListing(ctx context.Context, id string) (player.Listing, error) {
	var l player.Listing
	if err := sqlx.GetContext(ctx, r.exec, &l, listingSelect+` WHERE p.id = $1`, id); err != nil {
		return player.Listing{}, trapNoRowsErr(err, errNotFound, "selecting player listing")
	}
	l.Player = utcPlayer(l.Player)
	return l, nil
}

func (r playerRepository) QueryListings(ctx context.Context, filter player.QueryFilter) ([]player.Listing, error) {
	var w where
	if filter.Search != "" {
		w.add("(p.name ILIKE ? OR p.team ILIKE ? OR p.league ILIKE ? OR p.position ILIKE ? OR p.location ILIKE ?)",
			like(filter.Search), like(filter.Search), like(filter.Search), like(filter.Search), like(filter.Search))
	}
	if filter.ParentID != "" {
		w.add("p.parent_id = ?", filter.ParentID)
	}
	if len(filter.ExcludeEmails) > 0 {
		w.add("NOT (u.email = ANY(?))", pqStrings(filter.ExcludeEmails))
	}
	if filter.HiddenFrom != "" {
		w.add("NOT EXISTS (SELECT 1 FROM user_blocks b WHERE b.blocker_user_id = u.id AND b.blocked_user_id = ?)",
			filter.HiddenFrom)
	}

	query := listingSelect + w.String() + ` ORDER BY p.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.arg(filter.Limit) + ` OFFSET ` + w.arg(filter.Offset)
	}

	listings := []player.Listing{}
	if err := sqlx.SelectContext(ctx, r.exec, &listings, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting player listings")
	}
	for i := range listings {
		listings[i].Player = utcPlayer(listings[i].Player)
	}
	return listings, nil
}

func (r playerRepository) QueryPlayers(ctx context.Context, parentID string) ([]player.Player, error) {
	players := []player.Player{}
	err := sqlx.SelectContext(ctx, r.exec, &players,
		`SELECT `+playerColumns+` FROM players p WHERE p.parent_id = $1 ORDER BY p.created_at DESC`, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting players")
	}
	for i := range players {
		players[i] = utcPlayer(players[i])
	}
	return players, nil
}

func (r playerRepository) CountPlayers(ctx context.Context, parentID string, exec ...core.DBExecutor) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.getExec(exec), &n, `SELECT COUNT(*) FROM players WHERE parent_id = $1`, parentID)
	return n, errors.Wrap(err, "counting players")
}

func (r playerRepository) UpdatePlayer(ctx context.Context, p player.Player, exec ...core.DBExecutor) (player.Player, error) {
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`UPDATE players SET name = :name, birth_year = :birth_year, position = :position, level = :level,
			gender = :gender, location = :location, team = :team, league = :league, bio = :bio, image = :image,
			social_link = :social_link, goals = :goals, assists = :assists, plus_minus = :plus_minus, gaa = :gaa,
			save_pct = :save_pct, status = :status, plan_id = :plan_id, updated_at = :updated_at
		WHERE id = :id`,
		p,
	)
	if err = checkAffected(res, err, errNotFound, "updating player"); err != nil {
		return player.Player{}, err
	}
	return p, nil
}

func (r playerRepository) DeletePlayer(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := r.getExec(exec).ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	return checkAffected(res, err, errNotFound, "deleting player")
}

func (r playerRepository) CreateSubscription(ctx context.Context, s plan.PlayerSubscription, exec ...core.DBExecutor) (plan.PlayerSubscription, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`INSERT INTO player_subscriptions (`+subscriptionColumns+`)
		VALUES (:id, :parent_profile_id, :player_id, :plan_id, :stripe_subscription_id, :status, :period_end_at,
			:created_at, :updated_at)`,
		boilSubscription(s),
	)
	if err != nil {
		return plan.PlayerSubscription{}, errors.Wrap(err, "inserting player subscription")
	}
	return s, nil
}

func (r playerRepository) GetSubscription(ctx context.Context, filter player.SubscriptionFilter, exec ...core.DBExecutor) (plan.PlayerSubscription, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.StripeSubscriptionID != "":
		w.add("stripe_subscription_id = ?", filter.StripeSubscriptionID)
	case filter.PlayerID != "":
		w.add("player_id = ?", filter.PlayerID)
	default:
		return plan.PlayerSubscription{}, errNotFound
	}

	var row subscriptionRow
	query := `SELECT ` + subscriptionColumns + ` FROM player_subscriptions` + w.String() + ` ORDER BY created_at DESC LIMIT 1`
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, query, w.args...); err != nil {
		return plan.PlayerSubscription{}, trapNoRowsErr(err, errNotFound, "selecting player subscription")
	}
	return unboilSubscription(row), nil
}

func (r playerRepository) QuerySubscriptions(ctx context.Context, parentID string, exec ...core.DBExecutor) ([]plan.PlayerSubscription, error) {
	var rows []subscriptionRow
	err := sqlx.SelectContext(ctx, r.getExec(exec), &rows,
		`SELECT `+subscriptionColumns+` FROM player_subscriptions WHERE parent_profile_id = $1 ORDER BY created_at`,
		parentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting player subscriptions")
	}
	subs := make([]plan.PlayerSubscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, unboilSubscription(row))
	}
	return subs, nil
}

func (r playerRepository) UpdateSubscription(ctx context.Context, s plan.PlayerSubscription, exec ...core.DBExecutor) (plan.PlayerSubscription, error) {
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec),
		`UPDATE player_subscriptions SET player_id = :player_id, plan_id = :plan_id, status = :status,
			period_end_at = :period_end_at, updated_at = :updated_at
		WHERE id = :id`,
		boilSubscription(s),
	)
	if err = checkAffected(res, err, errNotFound, "updating player subscription"); err != nil {
		return plan.PlayerSubscription{}, err
	}
	return s, nil
}
