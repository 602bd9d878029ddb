package player

import (
	"strings"
	"unicode"

	"github.com/volatiletech/null/v8"

	"github.com/myhockeyrecruiting/mhr/core/plan"
)

// MaskName shortens a full name to the first name and last initial: "John Smith" -> "John S.".
// Single word names are returned unchanged.
func MaskName(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) <= 1 {
		return fullName
	}
	last := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(unicode.ToUpper(last[0])) + "."
}

// Mask hides the fields of v that planID does not publish.
// Nothing is hidden when the viewer has contact access.
func Mask(v View, planID plan.ID, hasContactAccess bool) View {
	if hasContactAccess {
		return v
	}

	if !plan.HasFeature(planID, plan.FullLastName) {
		v.Name = MaskName(v.Name)
	}
	if !plan.HasFeature(planID, plan.LevelVisibility) {
		v.Level = null.String{}
	}
	if !plan.HasFeature(planID, plan.LocationVisibility) {
		v.Location = null.String{}
	}
	if !plan.HasFeature(planID, plan.SocialMediaLinks) {
		v.SocialLink = null.String{}
	}
	if !plan.HasFeature(planID, plan.HigherStats) {
		v.Goals = null.Int{}
		v.Assists = null.Int{}
		v.PlusMinus = null.Int{}
		v.GAA = null.Float64{}
		v.SavePct = null.String{}
	}
	v.ParentEmail = null.String{}
	v.ParentPhone = null.String{}
	return v
}
