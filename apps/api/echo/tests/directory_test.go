package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

func listFacility(t *testing.T, env *testutil.Env) directory.Facility {
	t.Helper()
	f, err := env.DirectorySvc.SubmitFacility(ctxBg, "", newFacility())
	require.NoError(t, err)
	f, err = env.DirectorySvc.SetFacilityStatus(ctxBg, "admin", f.ID, directory.SetStatus{Status: directory.StatusApproved})
	require.NoError(t, err)
	return f
}

func Test_directoryApi_facilities(t *testing.T) {
	app, env := setup(t)
	f := listFacility(t, env)
	require.Equal(t, "ice-box-arena", f.Slug.String)
	free := testutil.CreateParent(t, env, "Free Parent", "free@example.com", plan.Free)
	gold := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Gold)

	reviewsPath := "/api/facilities/ice-box-arena/reviews"
	nr := marshalObj(t, directory.NewReview{Rating: 5, Text: " Fast ice. "})

	tests := []httpTest{
		{
			name:     "unknown facility",
			method:   http.MethodGet,
			path:     "/api/facilities/nowhere",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "review without token",
			method:   http.MethodPost,
			path:     reviewsPath,
			body:     nr,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "rating out of range",
			method:   http.MethodPost,
			path:     reviewsPath,
			token:    getToken(t, gold),
			body:     marshalObj(t, directory.NewReview{Rating: 6}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "review unknown facility",
			method:   http.MethodPost,
			path:     "/api/facilities/nowhere/reviews",
			token:    getToken(t, gold),
			body:     nr,
			wantCode: http.StatusNotFound,
		},
	}
	runHTTPTests(t, app, tests)

	rec := do(app, http.MethodPost, reviewsPath, getToken(t, free), nr)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	var upgrade map[string]interface{}
	decode(t, rec, &upgrade)
	assert.Equal(t, true, upgrade["upgradeRequired"])
	assert.Equal(t, string(plan.FacilityReviews), upgrade["feature"])
	assert.Equal(t, string(plan.Gold), upgrade["minimumPlan"])

	rec = do(app, http.MethodPost, reviewsPath, getToken(t, gold), nr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Review directory.Review `json:"review"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "Jane D.", created.Review.Author)
	assert.Equal(t, "Fast ice.", created.Review.Text)

	rec = do(app, http.MethodGet, reviewsPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Reviews []directory.Review `json:"reviews"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Reviews, 1)
	assert.Equal(t, 5, listed.Reviews[0].Rating)

	rec = do(app, http.MethodGet, "/api/facilities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cards struct {
		Facilities []directory.Card `json:"facilities"`
	}
	decode(t, rec, &cards)
	require.Len(t, cards.Facilities, 1)
	assert.Equal(t, "ice-box-arena", cards.Facilities[0].Slug)
	assert.Equal(t, 1, cards.Facilities[0].ReviewCount)
	assert.Equal(t, 5.0, cards.Facilities[0].Rating)

	rec = do(app, http.MethodGet, "/api/facilities/ice-box-arena", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Facility directory.Detail `json:"facility"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, "Ice Box Arena", detail.Facility.Name)
	assert.Equal(t, "Contact for hours", detail.Facility.Hours)
}

func Test_directoryApi_schools(t *testing.T) {
	app, env := setup(t)
	s, err := env.DirectorySvc.SubmitSchool(ctxBg, "", directory.NewSchool{
		Name:        "Phillips Academy",
		Address:     "9 College Ave",
		City:        "Andover",
		ZipCode:     "01810",
		Description: "Prep school with a varsity program.",
	})
	require.NoError(t, err)
	_, err = env.DirectorySvc.SetSchoolStatus(ctxBg, "admin", s.ID, directory.SetStatus{Status: directory.StatusApproved})
	require.NoError(t, err)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")

	reviewsPath := "/api/teams-and-schools/phillips-academy/reviews"
	nr := directory.NewSchoolReview{
		NewReview:  directory.NewReview{Rating: 4},
		AgeBracket: []string{"U16"},
		Gender:     "Boys",
		League:     "NEPSAC",
	}
	noBracket := nr
	noBracket.AgeBracket = nil
	badBracket := nr
	badBracket.AgeBracket = []string{"U15"}

	tests := []httpTest{
		{
			name:     "missing age bracket",
			method:   http.MethodPost,
			path:     reviewsPath,
			token:    getToken(t, coach),
			body:     marshalObj(t, noBracket),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown age bracket",
			method:   http.MethodPost,
			path:     reviewsPath,
			token:    getToken(t, coach),
			body:     marshalObj(t, badBracket),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	rec := do(app, http.MethodPost, reviewsPath, getToken(t, coach), marshalObj(t, nr))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(app, http.MethodGet, reviewsPath+"?ageBracket=U16&gender=Boys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, max-age=0", rec.Header().Get("Cache-Control"))
	var listed struct {
		Reviews []directory.SchoolReview `json:"reviews"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Reviews, 1)
	assert.Equal(t, "Coach C.", listed.Reviews[0].Author)

	rec = do(app, http.MethodGet, reviewsPath+"?gender=Girls", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listed)
	assert.Empty(t, listed.Reviews)

	rec = do(app, http.MethodGet, "/api/teams-and-schools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cards struct {
		Schools []directory.Card `json:"schools"`
	}
	decode(t, rec, &cards)
	require.Len(t, cards.Schools, 1)
	assert.Equal(t, 4.0, cards.Schools[0].Rating)
}
