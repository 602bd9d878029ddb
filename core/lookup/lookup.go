package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
)

// Categories
const (
	CoachTitle       = "coach_title"
	BirthYear        = "birth_year"
	CoachSpecialty   = "coach_specialty"
	PlayerEvaluation = "player_evaluation"
	Area             = "area"
	League           = "league"
	Level            = "level"
	Team             = "team"
	Position         = "position"
	Gender           = "gender"
	EventType        = "event_type"
	Venue            = "venue"
)

// publicCategories are readable without authentication.
// Leagues, levels and teams are only managed by admins.
var publicCategories = []string{
	CoachTitle, BirthYear, CoachSpecialty, PlayerEvaluation, Area, Position, Gender, EventType, Venue,
}

// AdminCategories are the categories admins can manage.
var AdminCategories = []string{
	CoachTitle, BirthYear, CoachSpecialty, PlayerEvaluation, Area, League, Level, Team, Position, Gender, EventType, Venue,
}

// defaults are served for public categories with no stored value.
var defaults = map[string][]string{
	CoachTitle: {"Head Coach", "Assistant Coach"},
	BirthYear:  birthYears(2016, 20),
	CoachSpecialty: {
		"Skill Development", "Communication", "Player Development", "Tactical Strategy",
		"Leadership", "Game Strategy", "Skating", "Shooting", "Puck Handling",
		"Defensive Play", "Offensive Play", "Goaltending",
	},
	PlayerEvaluation: {"Skating", "Shooting", "Passing", "Game Sense", "Work Ethic"},
	Area:             {},
	Position:         {"Forward", "Defense", "Goalie"},
	Gender:           {"Male", "Female"},
	EventType:        {"Camp", "Tournament", "ID Skate", "Tryouts", "Clinic"},
	Venue:            {},
}

func birthYears(from, n int) []string {
	years := make([]string, 0, n)
	for i := 0; i < n; i++ {
		years = append(years, fmt.Sprint(from-i))
	}
	return years
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("Lookup not found")
	ErrInvalidCategory = core.NewBadRequestError(
		"Invalid category. Use: " + strings.Join(publicCategories[:len(publicCategories)-1], ", ") +
			", or " + publicCategories[len(publicCategories)-1],
	)
	ErrExists = core.NewConflictError("Lookup value already exists")
)

type (
	Value struct {
		ID        string    `json:"id" db:"id"`
		Category  string    `json:"category" db:"category"`
		Value     string    `json:"value" db:"value"`
		SortOrder int       `json:"sortOrder" db:"sort_order"`
		Active    bool      `json:"active" db:"active"`
		CreatedAt time.Time `json:"createdAt" db:"created_at"`
	}

	NewValue struct {
		Category  string `json:"category" validate:"required,lookupcategory"`
		Value     string `json:"value" validate:"required"`
		SortOrder int    `json:"sortOrder"`
	}

	UpdateValue struct {
		Value     *string `json:"value" validate:"omitempty,min=1"`
		SortOrder *int    `json:"sortOrder"`
		Active    *bool   `json:"active"`
	}

	// HierarchyRow is a league/level/team line of a teams import.
	HierarchyRow struct {
		League string
		Level  string
		Team   string
	}

	// Named is a league, level or team as served to typeaheads.
	Named struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	BulkResult struct {
		Success bool     `json:"success"`
		Created int      `json:"created"`
		Skipped int      `json:"skipped"`
		Errors  []string `json:"errors"`
		Total   int      `json:"total"`
	}

	Repository interface {
		CreateValue(ctx context.Context, v Value) (Value, error)
		GetValue(ctx context.Context, id string) (Value, error)
		FindValue(ctx context.Context, category, value string) (Value, error)
		// QueryValues lists values by category, sort order then value. An empty category matches all.
		QueryValues(ctx context.Context, category string, activeOnly bool) ([]Value, error)
		UpdateValue(ctx context.Context, v Value) (Value, error)
		DeleteValue(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func (nv *NewValue) Validate(validate *validator.Validate) error {
	nv.Category = strings.TrimSpace(nv.Category)
	nv.Value = strings.TrimSpace(nv.Value)
	return validate.Struct(nv)
}

func (uv *UpdateValue) Validate(validate *validator.Validate) error {
	if uv.Value != nil {
		v := strings.TrimSpace(*uv.Value)
		uv.Value = &v
	}
	return validate.Struct(uv)
}

// InitValidators registers the lookupcategory tag.
func InitValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("lookupcategory", func(fl validator.FieldLevel) bool {
		return contains(AdminCategories, fl.Field().String())
	})
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the active values of a public category, or its defaults when none is stored.
func (svc *Service) List(ctx context.Context, category string) ([]string, error) {
	if !contains(publicCategories, category) {
		return nil, ErrInvalidCategory
	}
	values, err := svc.repo.QueryValues(ctx, category, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying lookups")
	}
	if len(values) == 0 {
		return append([]string{}, defaults[category]...), nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Value)
	}
	return out, nil
}

// maxHierarchy caps the leagues, levels and teams returned at once.
var maxHierarchy = map[string]int{League: 200, Level: 200, Team: 100}

// Hierarchy lists the active leagues, levels or teams whose value contains q, ignoring case.
func (svc *Service) Hierarchy(ctx context.Context, category, q string, limit int) ([]Named, error) {
	ceiling, ok := maxHierarchy[category]
	if !ok {
		return nil, ErrInvalidCategory
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > ceiling {
		limit = ceiling
	}
	values, err := svc.repo.QueryValues(ctx, category, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying lookups")
	}

	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]Named, 0, limit)
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(v.Value), q) {
			out = append(out, Named{ID: v.ID, Name: v.Value})
		}
	}
	return out, nil
}

// AdminList returns every value of category, or of every category when it is unknown.
func (svc *Service) AdminList(ctx context.Context, category string) ([]Value, error) {
	if !contains(AdminCategories, category) {
		category = ""
	}
	return svc.repo.QueryValues(ctx, category, false)
}

func (svc *Service) Create(ctx context.Context, nv NewValue) (Value, error) {
	if _, err := svc.repo.FindValue(ctx, nv.Category, nv.Value); err == nil {
		return Value{}, ErrExists
	} else if !core.IsNotFound(err) {
		return Value{}, errors.Wrap(err, "finding lookup")
	}
	return svc.repo.CreateValue(ctx, Value{
		Category:  nv.Category,
		Value:     nv.Value,
		SortOrder: nv.SortOrder,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Update(ctx context.Context, id string, uv UpdateValue) (Value, error) {
	v, err := svc.repo.GetValue(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Value{}, ErrNotFound
		}
		return Value{}, errors.Wrap(err, "getting lookup")
	}
	if uv.Value != nil && *uv.Value != v.Value {
		if _, err := svc.repo.FindValue(ctx, v.Category, *uv.Value); err == nil {
			return Value{}, ErrExists
		} else if !core.IsNotFound(err) {
			return Value{}, errors.Wrap(err, "finding lookup")
		}
		v.Value = *uv.Value
	}
	if uv.SortOrder != nil {
		v.SortOrder = *uv.SortOrder
	}
	if uv.Active != nil {
		v.Active = *uv.Active
	}
	return svc.repo.UpdateValue(ctx, v)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	err := svc.repo.DeleteValue(ctx, id)
	if core.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// upsert stores a value, updating the sort order of an existing one. It reports whether the value is new.
func (svc *Service) upsert(ctx context.Context, category, value string, sortOrder int, keepOrder bool) (bool, error) {
	existing, err := svc.repo.FindValue(ctx, category, value)
	switch {
	case err == nil:
		if keepOrder || existing.SortOrder == sortOrder {
			return false, nil
		}
		existing.SortOrder = sortOrder
		_, err = svc.repo.UpdateValue(ctx, existing)
		return false, err
	case !core.IsNotFound(err):
		return false, err
	}
	_, err = svc.repo.CreateValue(ctx, Value{
		Category:  category,
		Value:     value,
		SortOrder: sortOrder,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	return err == nil, err
}

// BulkCreate upserts rows. Existing values keep their ID and get the row's sort order.
func (svc *Service) BulkCreate(ctx context.Context, validate *validator.Validate, rows []NewValue) BulkResult {
	res := BulkResult{Success: true, Errors: []string{}, Total: len(rows)}
	for i := range rows {
		row := rows[i]
		if err := row.Validate(validate); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		created, err := svc.upsert(ctx, row.Category, row.Value, row.SortOrder, false)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d (%s): %v", i+1, row.Value, err))
			continue
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}
	return res
}

// BulkCreateHierarchy stores the leagues, levels and teams of rows. Existing values are skipped.
func (svc *Service) BulkCreateHierarchy(ctx context.Context, rows []HierarchyRow) BulkResult {
	res := BulkResult{Success: true, Errors: []string{}, Total: len(rows)}
	sortOrder := 0
	for i, r := range rows {
		for _, cv := range [][2]string{{League, r.League}, {Level, r.Level}, {Team, r.Team}} {
			value := strings.TrimSpace(cv[1])
			if value == "" {
				continue
			}
			created, err := svc.upsert(ctx, cv[0], value, sortOrder, true)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Row %d (%s:%s): %v", i+1, cv[0], value, err))
				continue
			}
			if created {
				sortOrder++
				res.Created++
			} else {
				res.Skipped++
			}
		}
	}
	return res
}
