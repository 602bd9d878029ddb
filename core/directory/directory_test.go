package directory

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ice Den Arena", "ice-den-arena"},
		{"  Skate & Shoot -- Pro  ", "skate-shoot-pro"},
		{"O'Brien's Rink #2", "obriens-rink-2"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestCheckAmenities(t *testing.T) {
	assert.NoError(t, checkAmenities([]string{"Real Ice", "Off Ice"}))

	err := checkAmenities([]string{"Real Ice", "Sauna", "Pool"})
	require.Error(t, err)
	assert.Equal(t, "Invalid amenities: Sauna, Pool", err.Error())
}

func TestNewFacilityValidate(t *testing.T) {
	validate := validator.New()

	nf := NewFacility{
		FacilityName: "  Ice Den ",
		Address:      "123 Main St",
		City:         "Boston",
		ZipCode:      "02110",
		Website:      "",
		Description:  "Two sheets of real ice.",
		Amenities:    []string{" Real Ice ", ""},
	}
	require.NoError(t, nf.Validate(validate))
	assert.Equal(t, "Ice Den", nf.FacilityName)
	assert.Equal(t, []string{"Real Ice"}, nf.Amenities)

	nf.Amenities = nil
	assert.Error(t, nf.Validate(validate))
}
