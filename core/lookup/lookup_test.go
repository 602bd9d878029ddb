package lookup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

var ctxBg = context.Background()

func values(vs []lookup.Value) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Value)
	}
	return out
}

func TestService_BulkCreateHierarchy(t *testing.T) {
	env := testutil.NewEnv(t)

	res := env.LookupSvc.BulkCreateHierarchy(ctxBg, []lookup.HierarchyRow{
		{League: "EHF", Level: "Elite", Team: "Boston Jr. Eagles"},
		{League: "EHF", Level: "Elite", Team: "Mid-Fairfield"},
		{League: " NCDC ", Level: "", Team: "Boston Jr. Eagles"},
	})
	assert.Equal(t, lookup.BulkResult{Success: true, Created: 5, Skipped: 3, Errors: []string{}, Total: 3}, res)

	leagues, err := env.LookupSvc.AdminList(ctxBg, lookup.League)
	require.NoError(t, err)
	assert.Equal(t, []string{"EHF", "NCDC"}, values(leagues))

	teams, err := env.LookupSvc.AdminList(ctxBg, lookup.Team)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boston Jr. Eagles", "Mid-Fairfield"}, values(teams))

	// a second import only skips
	res = env.LookupSvc.BulkCreateHierarchy(ctxBg, []lookup.HierarchyRow{{League: "EHF", Level: "Elite", Team: "Mid-Fairfield"}})
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 3, res.Skipped)
}

func TestService_List(t *testing.T) {
	env := testutil.NewEnv(t)

	_, err := env.LookupSvc.List(ctxBg, lookup.League)
	assert.Equal(t, lookup.ErrInvalidCategory, err)

	got, err := env.LookupSvc.List(ctxBg, lookup.Gender)
	require.NoError(t, err)
	assert.Equal(t, []string{"Male", "Female"}, got)

	v, err := env.LookupSvc.Create(ctxBg, lookup.NewValue{Category: lookup.Gender, Value: "Other"})
	require.NoError(t, err)
	_, err = env.LookupSvc.Create(ctxBg, lookup.NewValue{Category: lookup.Gender, Value: "Other"})
	assert.Equal(t, lookup.ErrExists, err)

	got, err = env.LookupSvc.List(ctxBg, lookup.Gender)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other"}, got)

	// defaults come back once nothing is active
	inactive := false
	_, err = env.LookupSvc.Update(ctxBg, v.ID, lookup.UpdateValue{Active: &inactive})
	require.NoError(t, err)
	got, err = env.LookupSvc.List(ctxBg, lookup.Gender)
	require.NoError(t, err)
	assert.Equal(t, []string{"Male", "Female"}, got)

	all, err := env.LookupSvc.AdminList(ctxBg, "unknown")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_Hierarchy(t *testing.T) {
	env := testutil.NewEnv(t)
	env.LookupSvc.BulkCreateHierarchy(ctxBg, []lookup.HierarchyRow{
		{League: "EHF", Level: "Elite", Team: "Boston Jr. Eagles"},
		{League: "NCDC", Level: "Junior", Team: "Mid-Fairfield"},
	})

	_, err := env.LookupSvc.Hierarchy(ctxBg, lookup.Position, "", 0)
	assert.Equal(t, lookup.ErrInvalidCategory, err)

	got, err := env.LookupSvc.Hierarchy(ctxBg, lookup.League, " nc ", 500)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "NCDC", got[0].Name)

	teams, err := env.LookupSvc.AdminList(ctxBg, lookup.Team)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	_, err = env.LookupSvc.Update(ctxBg, teams[0].ID, lookup.UpdateValue{Active: new(bool)})
	require.NoError(t, err)

	got, err = env.LookupSvc.Hierarchy(ctxBg, lookup.Team, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, teams[1].ID, got[0].ID)
}
