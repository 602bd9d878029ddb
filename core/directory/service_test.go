package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/testutil"
)

var ctxBg = context.Background()

func approvedFacility(t *testing.T, env *testutil.Env, name string) directory.Facility {
	t.Helper()
	f, err := env.DirectorySvc.SubmitFacility(ctxBg, "", directory.NewFacility{
		FacilityName: name,
		Address:      "1 Rink Rd",
		City:         "Hackensack",
		ZipCode:      "07601",
		Description:  "Two sheets of real ice.",
		Amenities:    []string{"Real Ice"},
	})
	require.NoError(t, err)
	f, err = env.DirectorySvc.SetFacilityStatus(ctxBg, "admin", f.ID, directory.SetStatus{Status: directory.StatusApproved})
	require.NoError(t, err)
	return f
}

func approvedSchool(t *testing.T, env *testutil.Env, name string) directory.School {
	t.Helper()
	s, err := env.DirectorySvc.SubmitSchool(ctxBg, "", directory.NewSchool{
		Name:        name,
		Address:     "9 College Ave",
		City:        "Andover",
		ZipCode:     "01810",
		Description: "Prep school with a varsity program.",
	})
	require.NoError(t, err)
	s, err = env.DirectorySvc.SetSchoolStatus(ctxBg, "admin", s.ID, directory.SetStatus{Status: directory.StatusApproved})
	require.NoError(t, err)
	return s
}

func TestService_Facilities(t *testing.T) {
	env := testutil.NewEnv(t)
	ice := approvedFacility(t, env, "Ice Den")
	approvedFacility(t, env, "Arctic Arena")
	again := approvedFacility(t, env, "Ice Den")
	assert.Equal(t, "ice-den", ice.Slug.String)
	assert.Equal(t, "ice-den-1", again.Slug.String)

	// pending submissions are not listed
	_, err := env.DirectorySvc.SubmitFacility(ctxBg, "", directory.NewFacility{
		FacilityName: "Pending Rink", Address: "2 Rink Rd", City: "Boston", ZipCode: "02110",
		Description: "Not reviewed yet.", Amenities: []string{"Off Ice"},
	})
	require.NoError(t, err)

	cards, err := env.DirectorySvc.Facilities(ctxBg)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "Arctic Arena", cards[0].Name)
	assert.Equal(t, "1 Rink Rd, Hackensack 07601", cards[0].Location)
	assert.Equal(t, 0, cards[0].ReviewCount)

	detail, err := env.DirectorySvc.Facility(ctxBg, "ice-den")
	require.NoError(t, err)
	assert.Equal(t, "Ice Den", detail.Name)
	assert.Equal(t, "Contact for info", detail.Phone)
	assert.Equal(t, "Contact for hours", detail.Hours)
	assert.Equal(t, []string{"Real Ice"}, detail.Amenities)

	_, err = env.DirectorySvc.Facility(ctxBg, "pending-rink")
	assert.Equal(t, directory.ErrNotFound, err)

	// removal unlists the facility
	_, err = env.DirectorySvc.SetFacilityStatus(ctxBg, "admin", again.ID, directory.SetStatus{Status: directory.StatusRemoved})
	require.NoError(t, err)
	_, err = env.DirectorySvc.Facility(ctxBg, "ice-den-1")
	assert.Equal(t, directory.ErrNotFound, err)
}

func TestService_ReviewFacility(t *testing.T) {
	env := testutil.NewEnv(t)
	approvedFacility(t, env, "Ice Den")
	free := testutil.CreateParent(t, env, "Free Parent", "free@example.com", plan.Free)
	gold := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Gold)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	admin := testutil.CreateAdmin(t, env, "Admin", "admin@example.com")

	nr := directory.NewReview{Rating: 4, Text: "Good ice, cold lobby."}
	_, err := env.DirectorySvc.ReviewFacility(ctxBg, free.Viewer(), "ice-den", nr)
	assert.Equal(t, directory.ErrReviewsUpgrade, err)
	_, err = env.DirectorySvc.ReviewFacility(ctxBg, gold.Viewer(), "missing", nr)
	assert.Equal(t, directory.ErrNotFound, err)

	r, err := env.DirectorySvc.ReviewFacility(ctxBg, gold.Viewer(), "ice-den", nr)
	require.NoError(t, err)
	assert.Equal(t, "Jane D.", r.Author)
	_, err = env.DirectorySvc.ReviewFacility(ctxBg, coach.Viewer(), "ice-den", directory.NewReview{Rating: 2})
	require.NoError(t, err)
	_, err = env.DirectorySvc.ReviewFacility(ctxBg, admin.Viewer(), "ice-den", directory.NewReview{Rating: 3})
	require.NoError(t, err)

	reviews, err := env.DirectorySvc.FacilityReviews(ctxBg, "ice-den")
	require.NoError(t, err)
	authors := make([]string, 0, len(reviews))
	for _, r := range reviews {
		authors = append(authors, r.Author)
	}
	assert.ElementsMatch(t, []string{"Jane D.", "Coach C.", "Admin"}, authors)

	cards, err := env.DirectorySvc.Facilities(ctxBg)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 3, cards[0].ReviewCount)
	assert.Equal(t, 3.0, cards[0].Rating)
}

func TestService_Schools(t *testing.T) {
	env := testutil.NewEnv(t)
	s := approvedSchool(t, env, "Phillips Academy")
	assert.Equal(t, "phillips-academy", s.Slug.String)
	jane := testutil.CreateParent(t, env, "Jane Doe", "jane@example.com", plan.Elite)
	coach := testutil.CreateCoach(t, env, "Coach Carter", "carter@example.com")
	free := testutil.CreateParent(t, env, "Free Parent", "free@example.com", plan.Free)

	detail, err := env.DirectorySvc.School(ctxBg, "phillips-academy")
	require.NoError(t, err)
	assert.Equal(t, "9 College Ave, Andover 01810", detail.Address)

	boys := directory.NewSchoolReview{
		NewReview:  directory.NewReview{Rating: 5, Text: "Great coaching staff."},
		AgeBracket: []string{"U14", "U16"},
		Gender:     "Boys",
		League:     "NEPSAC",
	}
	_, err = env.DirectorySvc.ReviewSchool(ctxBg, free.Viewer(), "phillips-academy", boys)
	assert.Equal(t, directory.ErrReviewsUpgrade, err)
	_, err = env.DirectorySvc.ReviewSchool(ctxBg, jane.Viewer(), "phillips-academy", boys)
	require.NoError(t, err)

	girls := boys
	girls.Rating = 3
	girls.AgeBracket = []string{"U18"}
	girls.Gender = "Girls"
	_, err = env.DirectorySvc.ReviewSchool(ctxBg, coach.Viewer(), "phillips-academy", girls)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter directory.ReviewFilter
		want   int
	}{
		{"all", directory.ReviewFilter{}, 2},
		{"age bracket", directory.ReviewFilter{AgeBracket: "U16"}, 1},
		{"gender", directory.ReviewFilter{Gender: "Girls"}, 1},
		{"league", directory.ReviewFilter{League: " NEPSAC "}, 2},
		{"no match", directory.ReviewFilter{AgeBracket: "U8"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews, err := env.DirectorySvc.SchoolReviews(ctxBg, "phillips-academy", tt.filter)
			require.NoError(t, err)
			assert.Len(t, reviews, tt.want)
		})
	}

	cards, err := env.DirectorySvc.Schools(ctxBg)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 4.0, cards[0].Rating)
	assert.Equal(t, 2, cards[0].ReviewCount)

	_, err = env.DirectorySvc.SetSchoolStatus(ctxBg, "admin", s.ID, directory.SetStatus{Status: directory.StatusRemoved})
	require.NoError(t, err)
	_, err = env.DirectorySvc.SchoolReviews(ctxBg, "phillips-academy", directory.ReviewFilter{})
	assert.Equal(t, directory.ErrNotFound, err)
}
