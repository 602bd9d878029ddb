package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/support"
	"github.com/myhockeyrecruiting/mhr/core/user"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

func Test_adminApi_access(t *testing.T) {
	app, env := setup(t)
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Elite)

	tests := []httpTest{
		{
			name:     "anonymous",
			method:   http.MethodGet,
			path:     "/api/admin/users",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "not an admin",
			method:   http.MethodGet,
			path:     "/api/admin/users",
			token:    getToken(t, parent),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_adminApi_users(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	token := getToken(t, admin)

	var res struct {
		Users []user.User `json:"users"`
		Total int         `json:"total"`
	}
	rec := do(app, http.MethodGet, "/api/admin/users?ordering=name&limit=2", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Users, 2)
	assert.Equal(t, "Admin Ann", res.Users[0].Name)
	assert.Equal(t, "Coach Carter", res.Users[1].Name)

	rec = do(app, http.MethodGet, "/api/admin/users?role=PARENT", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, parent.ID, res.Users[0].ID)

	// deactivate
	rec = do(app, http.MethodPatch, "/api/admin/users/"+coach.ID+"/active", token, marshalObj(t, map[string]bool{"isActive": false}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.False(t, usr.IsActive)

	rec = do(app, http.MethodGet, "/api/profile", getToken(t, coach))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(app, http.MethodGet, "/api/admin/users?isActive=false", token)
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Total)

	rec = do(app, http.MethodPatch, "/api/admin/users/"+coach.ID+"/active", token, marshalObj(t, map[string]bool{"isActive": true}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(app, http.MethodGet, "/api/profile", getToken(t, coach))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(app, http.MethodPatch, "/api/admin/users/missing/active", token, marshalObj(t, map[string]bool{"isActive": true}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_adminApi_blockedEmails(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	token := getToken(t, admin)

	tests := []httpTest{
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/api/admin/users/block",
			body:     marshalObj(t, map[string]string{"email": "nope"}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "block",
			method:   http.MethodPost,
			path:     "/api/admin/users/block",
			body:     marshalObj(t, map[string]string{"email": " Spam@Example.com ", "reason": "spam"}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok":true,"blocked":"spam@example.com"}`),
		},
		{
			name:     "block again",
			method:   http.MethodPost,
			path:     "/api/admin/users/block",
			body:     marshalObj(t, map[string]string{"email": "spam@example.com"}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok":true,"blocked":"spam@example.com"}`),
		},
	}
	runHTTPTests(t, app, tests)

	rec := do(app, http.MethodGet, "/api/admin/users/blocked", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Emails  []string            `json:"emails"`
		Blocked []user.BlockedEmail `json:"blocked"`
	}
	decode(t, rec, &res)
	assert.Equal(t, []string{"spam@example.com"}, res.Emails)
	require.Len(t, res.Blocked, 1)
	assert.Equal(t, "spam", res.Blocked[0].Reason)
	assert.Equal(t, admin.ID, res.Blocked[0].BlockedBy)

	tests = []httpTest{
		{
			name:     "unblock",
			method:   http.MethodPost,
			path:     "/api/admin/users/unblock",
			body:     marshalObj(t, map[string]string{"email": "spam@example.com"}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"ok":true,"unblocked":"spam@example.com"}`),
		},
		{
			name:     "unblock again",
			method:   http.MethodPost,
			path:     "/api/admin/users/unblock",
			body:     marshalObj(t, map[string]string{"email": "spam@example.com"}),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: user.ErrBlockedEmailMissing.Error()}),
		},
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/api/admin/users/blocked",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"emails":[],"blocked":[]}`),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_adminApi_accountSupport(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	token := getToken(t, admin)

	tests := []httpTest{
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/api/admin/users/set-phone",
			body:     marshalObj(t, map[string]string{"email": "ghost@example.com", "phone": "5555550199"}),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "User not found"}),
		},
		{
			name:     "invalid phone",
			method:   http.MethodPost,
			path:     "/api/admin/users/set-phone",
			body:     marshalObj(t, map[string]string{"email": "jane@example.com", "phone": "12"}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "set phone",
			method:   http.MethodPost,
			path:     "/api/admin/users/set-phone",
			body:     marshalObj(t, map[string]string{"email": "jane@example.com", "phone": "(555) 555-0199"}),
			token:    token,
			wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)

	usr, err := env.UserSvc.GetByEmail(ctxBg, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "+15555550199", usr.Phone)
	assert.False(t, usr.PhoneVerified)

	rec := do(app, http.MethodPost, "/api/admin/users/verify-phone", token, marshalObj(t, map[string]string{"email": "jane@example.com"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	usr, err = env.UserSvc.GetByEmail(ctxBg, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, usr.PhoneVerified)

	rec = do(app, http.MethodPost, "/api/admin/users/reset-password", token,
		marshalObj(t, map[string]string{"email": "jane@example.com", "password": "short"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(app, http.MethodPost, "/api/admin/users/reset-password", token,
		marshalObj(t, map[string]string{"email": "jane@example.com", "password": "N3w-Passw0rd"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(app, http.MethodPost, "/api/auth/login", "", marshalObj(t, map[string]string{"email": "jane@example.com", "password": testutil.Password}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(app, http.MethodPost, "/api/auth/login", "", marshalObj(t, map[string]string{"email": "jane@example.com", "password": "N3w-Passw0rd"}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_adminApi_grantPlan(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	parent := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Free)
	token := getToken(t, admin)

	rec := do(app, http.MethodPost, "/api/admin/grant-plan", token, marshalObj(t, map[string]string{"email": "jane@example.com", "planId": "platinum"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid plan"}`, rec.Body.String())

	rec = do(app, http.MethodPost, "/api/admin/grant-plan", token, marshalObj(t, map[string]string{"email": "jane@example.com", "planId": "elite"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p user.ParentProfile
	decode(t, rec, &p)
	assert.Equal(t, parent.Parent.ID, p.ID)
	assert.Equal(t, plan.Elite, p.PlanID)
	assert.Equal(t, plan.StatusActive, p.SubscriptionStatus)

	rec = do(app, http.MethodPost, "/api/admin/grant-plan", token, marshalObj(t, map[string]string{"email": "jane@example.com", "planId": "free"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &p)
	assert.Equal(t, plan.Free, p.PlanID)
	assert.Empty(t, p.SubscriptionStatus)
}

func Test_adminApi_facilities(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	token := getToken(t, admin)

	f1, err := env.DirectorySvc.SubmitFacility(ctxBg, "", newFacility())
	require.NoError(t, err)
	f2, err := env.DirectorySvc.SubmitFacility(ctxBg, "", newFacility())
	require.NoError(t, err)

	var fs []directory.Facility
	rec := do(app, http.MethodGet, "/api/admin/facility-submissions?status=pending", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &fs)
	assert.Len(t, fs, 2)

	tests := []httpTest{
		{
			name:     "invalid status",
			method:   http.MethodPatch,
			path:     "/api/admin/facility-submissions/" + f1.ID,
			body:     marshalObj(t, directory.SetStatus{Status: "pending"}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown facility",
			method:   http.MethodPatch,
			path:     "/api/admin/facility-submissions/missing",
			body:     marshalObj(t, directory.SetStatus{Status: directory.StatusApproved}),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: directory.ErrNotFound.Error()}),
		},
	}
	runHTTPTests(t, app, tests)

	approve := func(id string) directory.Facility {
		rec := do(app, http.MethodPatch, "/api/admin/facility-submissions/"+id, token, marshalObj(t, directory.SetStatus{Status: directory.StatusApproved}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var f directory.Facility
		decode(t, rec, &f)
		return f
	}
	got := approve(f1.ID)
	assert.Equal(t, "ice-box-arena", got.Slug.String)
	assert.Equal(t, admin.ID, got.ReviewedBy.String)
	assert.True(t, got.ReviewedAt.Valid)
	assert.Equal(t, "ice-box-arena-1", approve(f2.ID).Slug.String)
	assert.Equal(t, "ice-box-arena-1", approve(f2.ID).Slug.String, "approving again keeps the slug")

	rec = do(app, http.MethodPatch, "/api/admin/facility-submissions/"+f1.ID, token, marshalObj(t, directory.SetStatus{Status: directory.StatusRemoved}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &got)
	assert.Equal(t, directory.StatusRemoved, got.Status)
	assert.False(t, got.Slug.Valid)

	// bulk status
	rec = do(app, http.MethodPatch, "/api/admin/facility-submissions/bulk", token,
		marshalObj(t, BulkStatusBody{IDs: []string{f2.ID, "missing"}, Status: directory.StatusRejected}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res directory.BulkResult
	decode(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Errors, 1)

	rec = do(app, http.MethodPatch, "/api/admin/facility-submissions/bulk", token, marshalObj(t, BulkStatusBody{Status: directory.StatusRejected}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// bulk import
	rec = do(app, http.MethodPost, "/api/admin/facility-submissions/bulk", token, []byte(`{"rows":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No rows to import"}`, rec.Body.String())

	invalid := newFacility()
	invalid.Description = "short"
	rec = do(app, http.MethodPost, "/api/admin/facility-submissions/bulk", token,
		marshalObj(t, map[string][]directory.NewFacility{"rows": {newFacility(), invalid}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = directory.BulkResult{}
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 2")

	rec = do(app, http.MethodGet, "/api/admin/facility-submissions?status=pending", token)
	decode(t, rec, &fs)
	require.Len(t, fs, 1)
	assert.Equal(t, admin.ID, fs[0].SubmittedBy.String)
}

// BulkStatusBody is the body of a bulk status change.
type BulkStatusBody struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

func Test_adminApi_schools(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	token := getToken(t, admin)

	s, err := env.DirectorySvc.SubmitSchool(ctxBg, "", directory.NewSchool{
		Name:        "Northfield Prep",
		Address:     "1 Campus Drive",
		City:        "Northfield",
		ZipCode:     "01360",
		Description: "Boarding school with a varsity hockey program.",
	})
	require.NoError(t, err)

	rec := do(app, http.MethodPatch, "/api/admin/schools/"+s.ID, token, marshalObj(t, directory.SetStatus{Status: directory.StatusApproved}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got directory.School
	decode(t, rec, &got)
	assert.Equal(t, directory.StatusApproved, got.Status)
	assert.Equal(t, admin.ID, got.ReviewedBy.String)

	var schools []directory.School
	rec = do(app, http.MethodGet, "/api/admin/schools?status=approved", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &schools)
	assert.Len(t, schools, 1)

	rec = do(app, http.MethodGet, "/api/admin/schools?status=pending", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(app, http.MethodPatch, "/api/admin/schools/missing", token, marshalObj(t, directory.SetStatus{Status: directory.StatusRejected}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_adminApi_lookups(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	token := getToken(t, admin)

	rec := do(app, http.MethodPost, "/api/admin/lookups", token, marshalObj(t, lookup.NewValue{Category: lookup.Team, Value: "Boston Jr Bruins"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v lookup.Value
	decode(t, rec, &v)
	assert.Equal(t, lookup.Team, v.Category)
	assert.True(t, v.Active)

	tests := []httpTest{
		{
			name:     "duplicate",
			method:   http.MethodPost,
			path:     "/api/admin/lookups",
			body:     marshalObj(t, lookup.NewValue{Category: lookup.Team, Value: "Boston Jr Bruins"}),
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: lookup.ErrExists.Error()}),
		},
		{
			name:     "unknown category",
			method:   http.MethodPost,
			path:     "/api/admin/lookups",
			body:     marshalObj(t, lookup.NewValue{Category: "colour", Value: "Black"}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "update unknown",
			method:   http.MethodPut,
			path:     "/api/admin/lookups/missing",
			body:     []byte(`{"sortOrder":3}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: lookup.ErrNotFound.Error()}),
		},
	}
	runHTTPTests(t, app, tests)

	rec = do(app, http.MethodPut, "/api/admin/lookups/"+v.ID, token, []byte(`{"value":"Boston Junior Bruins","active":false}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &v)
	assert.Equal(t, "Boston Junior Bruins", v.Value)
	assert.False(t, v.Active)

	// inactive values stay listed for admins
	var list struct {
		Lookups []lookup.Value `json:"lookups"`
	}
	rec = do(app, http.MethodGet, "/api/admin/lookups?category=team", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &list)
	require.Len(t, list.Lookups, 1)

	// bulk
	rec = do(app, http.MethodPost, "/api/admin/lookups/bulk", token, []byte(`{"rows":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rows := []lookup.NewValue{
		{Category: lookup.Position, Value: "Center", SortOrder: 1},
		{Category: lookup.Position, Value: "Center", SortOrder: 2},
		{Category: "colour", Value: "Black"},
	}
	rec = do(app, http.MethodPost, "/api/admin/lookups/bulk", token, marshalObj(t, map[string][]lookup.NewValue{"rows": rows}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res lookup.BulkResult
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 3")

	rec = do(app, http.MethodGet, "/api/admin/lookups?category=position", token)
	decode(t, rec, &list)
	require.Len(t, list.Lookups, 1)
	assert.Equal(t, 2, list.Lookups[0].SortOrder)

	// delete
	rec = do(app, http.MethodDelete, "/api/admin/lookups/"+v.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(app, http.MethodDelete, "/api/admin/lookups/"+v.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_adminApi_contactMessages(t *testing.T) {
	app, env := setup(t)
	admin := testutil.CreateAdmin(t, env, "Admin Ann", "ann@example.com")
	token := getToken(t, admin)

	nm := support.NewMessage{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Topic: "Billing", Message: "How do I cancel my plan?"}
	m1, err := env.SupportSvc.Submit(ctxBg, "", nm)
	require.NoError(t, err)
	nm.Topic = "Events"
	_, err = env.SupportSvc.Submit(ctxBg, "", nm)
	require.NoError(t, err)

	var list struct {
		Messages []support.Message `json:"messages"`
		Total    int               `json:"total"`
	}
	rec := do(app, http.MethodGet, "/api/admin/contact-messages", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &list)
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Messages, 2)

	tests := []httpTest{
		{
			name:     "unknown message",
			method:   http.MethodGet,
			path:     "/api/admin/contact-messages/missing",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: support.ErrNotFound.Error()}),
		},
		{
			name:     "empty reply",
			method:   http.MethodPost,
			path:     "/api/admin/contact-messages/" + m1.ID + "/reply",
			body:     marshalObj(t, support.NewReply{}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid status",
			method:   http.MethodPatch,
			path:     "/api/admin/contact-messages/" + m1.ID,
			body:     marshalObj(t, support.SetStatus{Status: "closed"}),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, app, tests)

	rec = do(app, http.MethodPost, "/api/admin/contact-messages/"+m1.ID+"/reply", token, marshalObj(t, support.NewReply{Message: "Go to Billing and hit Cancel."}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r support.Reply
	decode(t, rec, &r)
	assert.Equal(t, m1.ID, r.MessageID)
	assert.Equal(t, admin.ID, r.AuthorID)

	rec = do(app, http.MethodGet, "/api/admin/contact-messages/"+m1.ID, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var m support.Message
	decode(t, rec, &m)
	require.Len(t, m.Replies, 1)
	assert.Equal(t, "Go to Billing and hit Cancel.", m.Replies[0].Message)

	rec = do(app, http.MethodPatch, "/api/admin/contact-messages/"+m1.ID, token, marshalObj(t, support.SetStatus{Status: support.StatusRead}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &m)
	assert.Equal(t, support.StatusRead, m.Status)

	rec = do(app, http.MethodGet, "/api/admin/contact-messages?status=new", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "Events", list.Messages[0].Topic)
	assert.Equal(t, []support.Reply{}, list.Messages[0].Replies)
}
