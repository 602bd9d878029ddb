package pgrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
)

const lookupColumns = `id, category, value, sort_order, active, created_at`

type lookupRepository struct {
	repo
}

var _ lookup.Repository = (*lookupRepository)(nil)

func NewLookupRepository(db core.DBExecutor) *lookupRepository {
	return &lookupRepository{repo{exec: db}}
}

func (r lookupRepository) CreateValue(ctx context.Context, v lookup.Value) (lookup.Value, error) {
	if v.ID == "" {
		v.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, r.exec,
		`INSERT INTO lookup_values (`+lookupColumns+`) VALUES (:id, :category, :value, :sort_order, :active, :created_at)`,
		v,
	)
	if err != nil {
		return lookup.Value{}, errors.Wrap(err, "inserting lookup value")
	}
	return v, nil
}

func (r lookupRepository) getValue(ctx context.Context, w where) (lookup.Value, error) {
	var v lookup.Value
	if err := sqlx.GetContext(ctx, r.exec, &v, `SELECT `+lookupColumns+` FROM lookup_values`+w.String(), w.args...); err != nil {
		return lookup.Value{}, trapNoRowsErr(err, errNotFound, "selecting lookup value")
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

func (r lookupRepository) GetValue(ctx context.Context, id string) (lookup.Value, error) {
	var w where
	w.add("id = ?", id)
	return r.getValue(ctx, w)
}

func (r lookupRepository) FindValue(ctx context.Context, category, value string) (lookup.Value, error) {
	var w where
	w.add("category = ?", category)
	w.add("value = ?", value)
	return r.getValue(ctx, w)
}

func (r lookupRepository) QueryValues(ctx context.Context, category string, activeOnly bool) ([]lookup.Value, error) {
	var w where
	if category != "" {
		w.add("category = ?", category)
	}
	if activeOnly {
		w.add("active")
	}
	values := []lookup.Value{}
	err := sqlx.SelectContext(ctx, r.exec, &values,
		`SELECT `+lookupColumns+` FROM lookup_values`+w.String()+` ORDER BY category, sort_order, value`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting lookup values")
	}
	for i := range values {
		values[i].CreatedAt = values[i].CreatedAt.UTC()
	}
	return values, nil
}

func (r lookupRepository) UpdateValue(ctx context.Context, v lookup.Value) (lookup.Value, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec,
		`UPDATE lookup_values SET value = :value, sort_order = :sort_order, active = :active WHERE id = :id`,
		v,
	)
	if err = checkAffected(res, err, errNotFound, "updating lookup value"); err != nil {
		return lookup.Value{}, err
	}
	return v, nil
}

func (r lookupRepository) DeleteValue(ctx context.Context, id string) error {
	res, err := r.exec.ExecContext(ctx, `DELETE FROM lookup_values WHERE id = $1`, id)
	return checkAffected(res, err, errNotFound, "deleting lookup value")
}
