package contact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/contact"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/user"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

var ctxBg = context.Background()

type fixture struct {
	env    *testutil.Env
	coach  user.Account
	parent user.Account
	player player.Player
}

func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	parent := testutil.CreateParent(t, env, "Pat Smith", "pat@example.com", plan.Gold)
	return fixture{
		env:    env,
		coach:  testutil.CreateCoach(t, env, "Chris Coach", "chris@example.com"),
		parent: parent,
		player: testutil.CreatePlayer(t, env, parent.Parent.ID, "Jake Smith", 2010),
	}
}

// coachRequest creates a coach request about the fixture player and lets the parent decide it.
func (f fixture) coachRequest(t *testing.T, decision string) contact.Request {
	req, msg, err := f.env.ContactSvc.Create(ctxBg, f.coach.Viewer(), contact.NewRequest{
		CoachProfileID:  f.coach.Coach.ID,
		ParentProfileID: f.parent.Parent.ID,
		PlayerID:        f.player.ID,
		RequestedBy:     contact.ByCoach,
	})
	require.NoError(t, err)
	require.Empty(t, msg)
	if decision == "" {
		return req
	}
	req, err = f.env.ContactSvc.Decide(ctxBg, f.parent.Viewer(), req.ID, contact.Decision{Status: decision})
	require.NoError(t, err)
	return req
}

func TestService_CheckByStatus(t *testing.T) {
	tests := []struct {
		name       string
		decision   string
		wantStatus string
		wantAccess bool
	}{
		{name: "pending", wantStatus: contact.StatusPending},
		{name: "approved", decision: contact.StatusApproved, wantStatus: contact.StatusApproved, wantAccess: true},
		{name: "rejected", decision: contact.StatusRejected, wantStatus: contact.StatusRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.coachRequest(t, tc.decision)

			for _, viewer := range []user.Viewer{f.coach.Viewer(), f.parent.Viewer()} {
				got, err := f.env.ContactSvc.Check(ctxBg, viewer, f.coach.Coach.ID, f.parent.Parent.ID, f.player.ID)
				require.NoError(t, err)
				assert.Equal(t, contact.CheckResult{HasAccess: tc.wantAccess, Status: tc.wantStatus}, got)
			}

			access, err := f.env.ContactSvc.HasContactAccess(ctxBg, f.coach.Viewer(), f.player)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAccess, access)

			view, err := f.env.PlayerSvc.Get(ctxBg, f.coach.Viewer(), f.player.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAccess, view.HasContactAccess)
			if tc.wantAccess {
				assert.Equal(t, "Jake Smith", view.Name)
				assert.Equal(t, "pat@example.com", view.ParentEmail.String)
			} else {
				assert.Equal(t, "Jake S.", view.Name)
				assert.False(t, view.ParentEmail.Valid)
			}
		})
	}
}

func TestService_CheckOutsider(t *testing.T) {
	f := newFixture(t)
	f.coachRequest(t, contact.StatusApproved)

	other := testutil.CreateCoach(t, f.env, "Other Coach", "other@example.com")
	got, err := f.env.ContactSvc.Check(ctxBg, other.Viewer(), f.coach.Coach.ID, f.parent.Parent.ID, f.player.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.CheckResult{Status: contact.StatusNone}, got)

	access, err := f.env.ContactSvc.HasContactAccess(ctxBg, other.Viewer(), f.player)
	require.NoError(t, err)
	assert.False(t, access)
}

func TestService_CreateDuplicate(t *testing.T) {
	f := newFixture(t)
	first := f.coachRequest(t, "")

	again, msg, err := f.env.ContactSvc.Create(ctxBg, f.coach.Viewer(), contact.NewRequest{
		CoachProfileID:  f.coach.Coach.ID,
		ParentProfileID: f.parent.Parent.ID,
		PlayerID:        f.player.ID,
		RequestedBy:     contact.ByCoach,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Request already pending", msg)

	// a decided request is returned without a message
	_, err = f.env.ContactSvc.Decide(ctxBg, f.parent.Viewer(), first.ID, contact.Decision{Status: contact.StatusRejected})
	require.NoError(t, err)
	again, msg, err = f.env.ContactSvc.Create(ctxBg, f.coach.Viewer(), contact.NewRequest{
		CoachProfileID:  f.coach.Coach.ID,
		ParentProfileID: f.parent.Parent.ID,
		PlayerID:        f.player.ID,
		RequestedBy:     contact.ByCoach,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, contact.StatusRejected, again.Status)
	assert.Empty(t, msg)

	reqs, err := f.env.ContactSvc.List(ctxBg, f.parent.Viewer(), contact.FilterAll)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestService_Decide(t *testing.T) {
	f := newFixture(t)
	req := f.coachRequest(t, "")

	_, err := f.env.ContactSvc.Decide(ctxBg, f.coach.Viewer(), req.ID, contact.Decision{Status: contact.StatusApproved})
	assert.Equal(t, contact.ErrNotRecipient, err)

	_, err = f.env.ContactSvc.Decide(ctxBg, f.parent.Viewer(), "missing", contact.Decision{Status: contact.StatusApproved})
	assert.Equal(t, contact.ErrNotFound, err)

	_, err = f.env.ContactSvc.Decide(ctxBg, f.parent.Viewer(), req.ID, contact.Decision{Status: contact.StatusRejected})
	require.NoError(t, err)
	_, err = f.env.ContactSvc.Decide(ctxBg, f.parent.Viewer(), req.ID, contact.Decision{Status: contact.StatusApproved})
	assert.Equal(t, contact.ErrAlreadyProcessed, err)
}

func TestService_ParentRequestWithoutPlayer(t *testing.T) {
	f := newFixture(t)

	req, _, err := f.env.ContactSvc.Create(ctxBg, f.parent.Viewer(), contact.NewRequest{
		CoachProfileID:  f.coach.Coach.ID,
		ParentProfileID: f.parent.Parent.ID,
		PlayerID:        f.player.ID,
		RequestedBy:     contact.ByParent,
	})
	require.NoError(t, err)
	assert.False(t, req.PlayerID.Valid)

	_, err = f.env.ContactSvc.Decide(ctxBg, f.coach.Viewer(), req.ID, contact.Decision{Status: contact.StatusApproved})
	require.NoError(t, err)

	got, err := f.env.ContactSvc.Check(ctxBg, f.coach.Viewer(), f.coach.Coach.ID, f.parent.Parent.ID, "")
	require.NoError(t, err)
	assert.Equal(t, contact.CheckResult{HasAccess: true, Status: contact.StatusApproved}, got)

	// access to a player needs a request about that player
	access, err := f.env.ContactSvc.HasContactAccess(ctxBg, f.coach.Viewer(), f.player)
	require.NoError(t, err)
	assert.False(t, access)
}

func TestService_CreateUpgradeRequired(t *testing.T) {
	env := testutil.NewEnv(t)
	coach := testutil.CreateCoach(t, env, "Chris Coach", "chris@example.com")
	parent := testutil.CreateParent(t, env, "Pat Smith", "pat@example.com", plan.Free)

	_, _, err := env.ContactSvc.Create(ctxBg, parent.Viewer(), contact.NewRequest{
		CoachProfileID:  coach.Coach.ID,
		ParentProfileID: parent.Parent.ID,
		RequestedBy:     contact.ByParent,
	})
	assert.Equal(t, contact.ErrCoachUpgrade, err)

	// coaches are not gated
	pl := testutil.CreatePlayer(t, env, parent.Parent.ID, "Jake Smith", 2010)
	_, _, err = env.ContactSvc.Create(ctxBg, coach.Viewer(), contact.NewRequest{
		CoachProfileID:  coach.Coach.ID,
		ParentProfileID: parent.Parent.ID,
		PlayerID:        pl.ID,
		RequestedBy:     contact.ByCoach,
	})
	assert.NoError(t, err)
}

func TestService_ParentRequests(t *testing.T) {
	tests := []struct {
		name       string
		decision   string
		wantStatus string
		wantAccess bool
	}{
		{name: "pending", wantStatus: contact.StatusPending},
		{name: "approved", decision: contact.StatusApproved, wantStatus: contact.StatusApproved, wantAccess: true},
		{name: "rejected", decision: contact.StatusRejected, wantStatus: contact.StatusRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			requester := testutil.CreateParent(t, f.env, "Rita Jones", "rita@example.com", plan.Gold)

			req, msg, err := f.env.ContactSvc.CreateParent(ctxBg, requester.Viewer(), contact.NewParentRequest{
				TargetParentID: f.parent.Parent.ID,
				PlayerID:       f.player.ID,
			})
			require.NoError(t, err)
			require.Empty(t, msg)

			incoming, err := f.env.ContactSvc.ListIncomingParent(ctxBg, f.parent.Viewer())
			require.NoError(t, err)
			require.Len(t, incoming, 1)
			assert.Equal(t, req.ID, incoming[0].ID)

			if tc.decision != "" {
				_, err = f.env.ContactSvc.DecideParent(ctxBg, f.parent.Viewer(), req.ID, contact.Decision{Status: tc.decision})
				require.NoError(t, err)
			}

			got, err := f.env.ContactSvc.CheckParent(ctxBg, requester.Viewer(), f.parent.Parent.ID, f.player.ID)
			require.NoError(t, err)
			assert.Equal(t, contact.CheckResult{HasAccess: tc.wantAccess, Status: tc.wantStatus}, got)

			access, err := f.env.ContactSvc.HasContactAccess(ctxBg, requester.Viewer(), f.player)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAccess, access)

			again, msg, err := f.env.ContactSvc.CreateParent(ctxBg, requester.Viewer(), contact.NewParentRequest{
				TargetParentID: f.parent.Parent.ID,
				PlayerID:       f.player.ID,
			})
			require.NoError(t, err)
			assert.Equal(t, req.ID, again.ID)
			if tc.decision == "" {
				assert.Equal(t, "Request already pending", msg)
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestService_CheckParentOwnProfile(t *testing.T) {
	f := newFixture(t)

	got, err := f.env.ContactSvc.CheckParent(ctxBg, f.parent.Viewer(), f.parent.Parent.ID, f.player.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.CheckResult{HasAccess: true, Status: contact.StatusApproved}, got)

	_, _, err = f.env.ContactSvc.CreateParent(ctxBg, f.parent.Viewer(), contact.NewParentRequest{
		TargetParentID: f.parent.Parent.ID,
		PlayerID:       f.player.ID,
	})
	assert.Equal(t, contact.ErrOwnContact, err)

	// only the target decides
	requester := testutil.CreateParent(t, f.env, "Rita Jones", "rita@example.com", plan.Gold)
	req, _, err := f.env.ContactSvc.CreateParent(ctxBg, requester.Viewer(), contact.NewParentRequest{
		TargetParentID: f.parent.Parent.ID,
		PlayerID:       f.player.ID,
	})
	require.NoError(t, err)
	_, err = f.env.ContactSvc.DecideParent(ctxBg, requester.Viewer(), req.ID, contact.Decision{Status: contact.StatusApproved})
	assert.Equal(t, contact.ErrNotFound, err)
}

func TestService_ParentUpgradeRequired(t *testing.T) {
	f := newFixture(t)
	requester := testutil.CreateParent(t, f.env, "Rita Jones", "rita@example.com", plan.Free)

	_, _, err := f.env.ContactSvc.CreateParent(ctxBg, requester.Viewer(), contact.NewParentRequest{
		TargetParentID: f.parent.Parent.ID,
		PlayerID:       f.player.ID,
	})
	assert.Equal(t, contact.ErrParentUpgrade, err)
}
