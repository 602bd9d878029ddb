package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myhockeyrecruiting/mhr/core"
)

func newTestValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func TestPasswordPolicy(t *testing.T) {
	validate, translator := newTestValidator(t)

	commonPwdMu.Lock()
	commonPasswords = []string{"hockey#2024"}
	commonPwdMu.Unlock()

	tests := []struct {
		name    string
		pwd     string
		wantMsg string
	}{
		{name: "too short", pwd: "a1#b", wantMsg: "password must contain at least 8 characters"},
		{name: "whitespace", pwd: "abc 123#xyz", wantMsg: "password must not contain whitespace"},
		{name: "all numeric", pwd: "1234567890", wantMsg: "password cannot be entirely numeric"},
		{name: "no special", pwd: "abcd12345", wantMsg: "password must contain at least 1 letter, 1 digit and 1 special character"},
		{name: "similar to name", pwd: "Gretzky#99", wantMsg: "password cannot be similar to your name or email"},
		{name: "common", pwd: "Hockey#2024", wantMsg: "password is too common"},
		{name: "valid", pwd: "Slapsh0t!Rink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			su := SignUp{
				Name:     "Wayne Gretzky99",
				Email:    "wayne@test.test",
				Phone:    "(555) 123-4567",
				Password: tt.pwd,
				UserType: "parent",
			}
			err := su.Validate(validate)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, verrs, 1)
			assert.Equal(t, "password", verrs[0].Field())
			assert.Equal(t, tt.wantMsg, verrs[0].Translate(translator))
		})
	}
}

func TestSignUpCoachFields(t *testing.T) {
	validate, _ := newTestValidator(t)

	su := SignUp{
		Name:     "Coach Carter",
		Email:    "CARTER@Test.test ",
		Phone:    "5551234567",
		Password: "Slapsh0t!Rink",
		UserType: "Coach",
	}
	err := su.Validate(validate)
	require.Error(t, err)
	assert.Equal(t, "carter@test.test", su.Email)

	fields := make(map[string]bool)
	for _, fe := range err.(validator.ValidationErrors) {
		fields[fe.Field()] = true
	}
	assert.Equal(t, map[string]bool{"league": true, "level": true, "team": true, "birthYear": true, "coachRole": true}, fields)

	su.League, su.Level, su.Team, su.BirthYear, su.CoachRole = "USPHL", "U16", "Wolves", 2009, CoachRoleHead
	assert.NoError(t, su.Validate(validate))
	assert.Equal(t, RoleCoach, su.Role())
}
