// Package pgrepos implements the domain repositories on PostgreSQL with sqlx.
package pgrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core"
)

var errNotFound = core.NewNotFoundError("")

// repo holds the default executor of a repository.
// Services running a transaction pass their own executor to each call.
type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}

// Postgres error codes
const (
	invalidText     = "22P02"
	uniqueViolation = "23505"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// invalidID reports whether err rejects a malformed ID, such as one that is not a UUID. No row can match such an ID.
func invalidID(err error) bool { return pqCode(err) == invalidText }

func isUniqueViolation(err error) bool { return pqCode(err) == uniqueViolation }

// trapNoRowsErr maps "no rows" and malformed ID errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) || invalidID(err) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when a write touched no row.
func checkAffected(res sql.Result, err error, notFound error, msg string) error {
	if invalidID(err) {
		return notFound
	}
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func newID() string { return uuid.New().String() }

func nullString(s string) null.String { return null.NewString(s, s != "") }

// like builds a case-insensitive "contains" pattern, escaping LIKE wildcards.
func like(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func pqStrings(s []string) pq.StringArray { return pq.StringArray(s) }

// where builds the WHERE clause of a dynamic query with positional ($n) arguments.
type where struct {
	conds []string
	args  []interface{}
}

// add appends cond, in which "?" stands for the next argument.
func (w *where) add(cond string, arg ...interface{}) {
	for _, a := range arg {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// arg appends an argument that is not part of a condition and returns its placeholder.
func (w *where) arg(a interface{}) string {
	w.args = append(w.args, a)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// inQuery expands the slice arguments of an IN (?) query and rebinds it for postgres.
func inQuery(query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), a, nil
}

// orderBy translates orderings into an ORDER BY clause, keeping known fields only.
func orderBy(ordering []core.DBOrdering, columns map[string]string, def string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(parts) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
