package echoapi

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
)

var orderingParam = "ordering"

type validatable interface {
	Validate(validate *validator.Validate) error
}

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads "?ordering=-created_at,name" (a leading "-" sorts descending).
// Fields outside allowed are ignored.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" || !contains(allowed, field) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryInt reads an integer query param, returning def when it is missing or invalid.
func queryInt(ctx echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(ctx.QueryParam(name)); err == nil {
		return n
	}
	return def
}

func queryBool(ctx echo.Context, name string) bool {
	switch strings.ToLower(ctx.QueryParam(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// bindAndValidate binds the request into data and runs its Validate method.
func bindAndValidate(ctx echo.Context, data validatable, deps Deps) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding request")
	}
	return errors.WithStack(data.Validate(deps.Validate))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
