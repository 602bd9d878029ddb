package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

func Test_ratingApi_requests(t *testing.T) {
	app, env := setup(t)
	gold := testutil.CreateParent(t, env, "John Roe", "john@example.com", plan.Gold)
	elite := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Elite)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	p := testutil.CreatePlayer(t, env, elite.Parent.ID, "Jake Doe", 2010)
	eliteToken, coachToken := getToken(t, elite), getToken(t, coach)

	nr := marshalObj(t, review.NewRatingRequest{PlayerID: p.ID, CoachProfileID: coach.Coach.ID, Message: " Skating please "})

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/api/rating-requests",
			body:     nr,
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "coach requests",
			method:   http.MethodPost,
			path:     "/api/rating-requests",
			token:    coachToken,
			body:     nr,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: review.ErrParentsRequestOnly.Error()}),
		},
		{
			name:     "missing coach",
			method:   http.MethodPost,
			path:     "/api/rating-requests",
			token:    eliteToken,
			body:     marshalObj(t, review.NewRatingRequest{PlayerID: p.ID}),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	rec := do(app, http.MethodPost, "/api/rating-requests", getToken(t, gold), nr)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	var upgrade map[string]interface{}
	decode(t, rec, &upgrade)
	assert.Equal(t, true, upgrade["upgradeRequired"])
	assert.Equal(t, string(plan.CoachEvaluations), upgrade["feature"])
	assert.Equal(t, string(plan.Elite), upgrade["minimumPlan"])

	rec = do(app, http.MethodPost, "/api/rating-requests", eliteToken, nr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Request review.RatingRequest `json:"request"`
	}
	decode(t, rec, &created)
	assert.Equal(t, review.RequestPending, created.Request.Status)
	assert.Equal(t, "Skating please", created.Request.Message.String)

	rec = do(app, http.MethodPost, "/api/rating-requests", eliteToken, nr)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	var dup struct {
		Request review.RatingRequest `json:"request"`
		Message string               `json:"message"`
	}
	decode(t, rec, &dup)
	assert.Equal(t, created.Request.ID, dup.Request.ID)
	assert.Equal(t, review.ErrRatingRequestPending.Error(), dup.Message)

	rec = do(app, http.MethodGet, "/api/rating-requests", coachToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var incoming review.RatingRequests
	decode(t, rec, &incoming)
	require.Len(t, incoming.Requests, 1)
	assert.Equal(t, 1, incoming.PendingCount)
	assert.Equal(t, "Jake Doe", incoming.Requests[0].PlayerName)
	assert.Equal(t, "Jane Doe", incoming.Requests[0].RequesterName)

	rec = do(app, http.MethodGet, "/api/rating-requests?status=completed", eliteToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var sent review.RatingRequests
	decode(t, rec, &sent)
	assert.Empty(t, sent.Requests)
	assert.Equal(t, 1, sent.PendingCount)
}
