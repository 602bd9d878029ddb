package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

func Test_playerApi_create(t *testing.T) {
	app, env := setup(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	token := getToken(t, parent)

	newPlayer := marshalObj(t, player.NewPlayer{Name: "Jack Smith", BirthYear: 2010, Level: "AAA"})

	tests := []httpTest{
		{
			name:     "anonymous",
			method:   http.MethodPost,
			path:     "/api/players",
			body:     newPlayer,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "coach",
			method:   http.MethodPost,
			path:     "/api/players",
			body:     newPlayer,
			token:    getToken(t, coach),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: player.ErrParentsOnly.Error()}),
		},
		{
			name:     "invalid birth year",
			method:   http.MethodPost,
			path:     "/api/players",
			body:     marshalObj(t, player.NewPlayer{Name: "Jack Smith", BirthYear: 1980}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	rec := do(app, http.MethodPost, "/api/players", token, newPlayer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p player.Player
	decode(t, rec, &p)
	assert.Equal(t, parent.Parent.ID, p.ParentID)
	assert.Equal(t, player.StatusPending, p.Status)
	assert.Equal(t, plan.Free, p.PlanID)

	// the free plan allows a single child
	rec = do(app, http.MethodPost, "/api/players", token,
		marshalObj(t, player.NewPlayer{Name: "Jill Smith", BirthYear: 2012}))
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	var limit struct {
		Error string                 `json:"error"`
		Limit plan.AddPlayerDecision `json:"limit"`
	}
	decode(t, rec, &limit)
	assert.False(t, limit.Limit.Allowed)
	assert.Equal(t, 1, limit.Limit.Limit)
	assert.Equal(t, 1, limit.Limit.Current)
	assert.NotEmpty(t, limit.Error)
}

func Test_playerApi_retrieve(t *testing.T) {
	app, env := setup(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	other := testutil.CreateParent(t, env, "John Roe", "john@example.com", plan.Free)
	p := testutil.CreatePlayer(t, env, parent.Parent.ID, "Jack Smith", 2010)

	level := "AAA"
	rec := do(app, http.MethodPut, "/api/players/"+p.ID, getToken(t, parent), marshalObj(t, player.UpdatePlayer{Level: &level}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("anonymous sees a masked profile", func(t *testing.T) {
		rec := do(app, http.MethodGet, "/api/players/"+p.ID, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var v player.View
		decode(t, rec, &v)
		assert.Equal(t, "Jack S.", v.Name)
		assert.False(t, v.Level.Valid)
		assert.False(t, v.ParentEmail.Valid)
		assert.False(t, v.HasContactAccess)
		assert.Nil(t, v.HasPaidSubscription)
		assert.Equal(t, parent.ID, v.ParentUserID)
	})

	t.Run("owner sees everything", func(t *testing.T) {
		rec := do(app, http.MethodGet, "/api/players/"+p.ID, getToken(t, parent))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var v player.View
		decode(t, rec, &v)
		assert.Equal(t, "Jack Smith", v.Name)
		assert.Equal(t, "AAA", v.Level.String)
		assert.True(t, v.HasContactAccess)
		require.NotNil(t, v.HasPaidSubscription)
		assert.False(t, *v.HasPaidSubscription)
	})

	t.Run("blocked viewer", func(t *testing.T) {
		_, _, err := env.UserSvc.Block(ctxBg, parent.Viewer(), other.ID)
		require.NoError(t, err)

		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: player.ErrNotFound.Error()}),
		}, do(app, http.MethodGet, "/api/players/"+p.ID, getToken(t, other)))
	})

	t.Run("unknown player", func(t *testing.T) {
		rec := do(app, http.MethodGet, "/api/players/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_playerApi_list(t *testing.T) {
	app, env := setup(t)
	free := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	elite := testutil.CreateParent(t, env, "John Roe", "john@example.com", plan.Elite)
	testutil.CreatePlayer(t, env, free.Parent.ID, "Jack Smith", 2010)
	eli := testutil.CreatePlayer(t, env, elite.Parent.ID, "Eli Roe", 2011)
	eli.PlanID = plan.Elite
	_, err := env.Players.UpdatePlayer(ctxBg, eli)
	require.NoError(t, err)

	rec := do(app, http.MethodGet, "/api/players", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var views []player.View
	decode(t, rec, &views)
	require.Len(t, views, 2)
	// higher tiers are listed first
	assert.Equal(t, "Eli Roe", views[0].Name)
	assert.Equal(t, plan.Elite, views[0].EffectivePlanID)
	assert.Equal(t, "Jack S.", views[1].Name)

	rec = do(app, http.MethodGet, "/api/players?mine=true", getToken(t, free))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	views = nil
	decode(t, rec, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "Jack Smith", views[0].Name)

	rec = do(app, http.MethodGet, "/api/players?mine=true", "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
}

func Test_playerApi_updateAndDelete(t *testing.T) {
	app, env := setup(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	other := testutil.CreateParent(t, env, "John Roe", "john@example.com", plan.Free)
	p := testutil.CreatePlayer(t, env, parent.Parent.ID, "Jack Smith", 2010)

	name := "Jackson Smith"
	tests := []httpTest{
		{
			name:     "not the owner",
			method:   http.MethodPut,
			path:     "/api/players/" + p.ID,
			body:     marshalObj(t, player.UpdatePlayer{Name: &name}),
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: player.ErrNotOwnerEdit.Error()}),
		},
		{
			name:     "delete not the owner",
			method:   http.MethodDelete,
			path:     "/api/players/" + p.ID,
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: player.ErrNotOwnerDelete.Error()}),
		},
	}
	runHTTPTests(t, app, tests)

	token := getToken(t, parent)
	rec := do(app, http.MethodPut, "/api/players/"+p.ID, token, marshalObj(t, player.UpdatePlayer{Name: &name}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated player.Player
	decode(t, rec, &updated)
	assert.Equal(t, name, updated.Name)

	rec = do(app, http.MethodDelete, "/api/players/"+p.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(app, http.MethodGet, "/api/players/"+p.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
