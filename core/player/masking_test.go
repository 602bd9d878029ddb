package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core/plan"
)

func TestMaskName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "first and last", in: "John Smith", want: "John S."},
		{name: "middle name", in: "Mary Ann Lee", want: "Mary L."},
		{name: "lower case last", in: "jake  doe", want: "jake D."},
		{name: "single token", in: "Zamboni", want: "Zamboni"},
		{name: "empty", in: "", want: ""},
		{name: "unicode", in: "Zoë Élan", want: "Zoë É."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskName(tt.in))
		})
	}
}

func TestMask(t *testing.T) {
	full := View{
		Player: Player{
			Name:       "John Smith",
			Level:      null.StringFrom("AAA"),
			Location:   null.StringFrom("Boston, MA"),
			SocialLink: null.StringFrom("https://example.com/john"),
			Goals:      null.IntFrom(12),
			Assists:    null.IntFrom(20),
			PlusMinus:  null.IntFrom(7),
			GAA:        null.Float64From(2.1),
			SavePct:    null.StringFrom(".915"),
		},
		ParentEmail: null.StringFrom("parent@test.test"),
		ParentPhone: null.StringFrom("+15551234567"),
	}

	t.Run("contact access shows everything", func(t *testing.T) {
		assert.Equal(t, full, Mask(full, plan.Free, true))
	})

	t.Run("free", func(t *testing.T) {
		v := Mask(full, plan.Free, false)
		assert.Equal(t, "John S.", v.Name)
		assert.False(t, v.Level.Valid)
		assert.False(t, v.Location.Valid)
		assert.False(t, v.SocialLink.Valid)
		assert.False(t, v.Goals.Valid)
		assert.False(t, v.GAA.Valid)
		assert.False(t, v.SavePct.Valid)
		assert.False(t, v.ParentEmail.Valid)
		assert.False(t, v.ParentPhone.Valid)
	})

	t.Run("gold shows level", func(t *testing.T) {
		v := Mask(full, plan.FamilyGold, false)
		assert.Equal(t, "John S.", v.Name)
		assert.Equal(t, "AAA", v.Level.String)
		assert.False(t, v.Location.Valid)
		assert.False(t, v.Assists.Valid)
	})

	t.Run("elite shows the profile but not the parent contact", func(t *testing.T) {
		v := Mask(full, plan.Elite, false)
		assert.Equal(t, "John Smith", v.Name)
		assert.Equal(t, "Boston, MA", v.Location.String)
		assert.Equal(t, "https://example.com/john", v.SocialLink.String)
		assert.Equal(t, 7, v.PlusMinus.Int)
		assert.False(t, v.ParentEmail.Valid)
		assert.False(t, v.ParentPhone.Valid)
	})

	t.Run("unknown plan is free", func(t *testing.T) {
		assert.Equal(t, Mask(full, plan.Free, false), Mask(full, plan.ID("diamond"), false))
	})
}
