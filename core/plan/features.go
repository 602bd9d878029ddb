package plan

type Feature string

const (
	// profile visibility (player shown to coaches and other parents)
	PublicSearchable   Feature = "public_searchable"
	FullLastName       Feature = "full_last_name"
	LevelVisibility    Feature = "level_visibility"
	LocationVisibility Feature = "location_visibility"
	SocialMediaLinks   Feature = "social_media_links"
	HigherStats        Feature = "higher_stats"

	// contact & connection
	ContactRequests       Feature = "contact_requests"
	ParentContactRequests Feature = "parent_contact_requests"
	CoachRatings          Feature = "coach_ratings"
	CoachEvaluations      Feature = "coach_evaluations"

	// facilities
	FacilityReviews  Feature = "facility_reviews"
	SubmitFacilities Feature = "submit_facilities"
)

// minimum tier required for each feature
var featureTiers = map[Feature]ID{
	PublicSearchable:   Gold,
	FullLastName:       Elite,
	LevelVisibility:    Gold,
	LocationVisibility: Elite,
	SocialMediaLinks:   Elite,
	HigherStats:        Elite,

	ContactRequests:       Gold,
	ParentContactRequests: Gold,
	CoachRatings:          Elite,
	CoachEvaluations:      Elite,

	FacilityReviews:  Gold,
	SubmitFacilities: Free,
}

// tier order: free < gold < elite
var tierRanks = map[ID]int{
	Free:  0,
	Gold:  1,
	Elite: 2,
}

// EffectiveTier maps family plans to their base tier. Unknown plans are free.
func EffectiveTier(id ID) ID {
	switch id {
	case Gold, FamilyGold:
		return Gold
	case Elite, FamilyElite:
		return Elite
	}
	return Free
}

// TierRank orders plans for listings: 0 for free up to 2 for elite (family plans rank as their base tier).
func TierRank(id ID) int {
	return tierRanks[EffectiveTier(id)]
}

// MinimumPlan returns the lowest plan granting feature.
func MinimumPlan(feature Feature) (ID, bool) {
	id, ok := featureTiers[feature]
	return id, ok
}

// HasFeature reports whether the plan's tier meets the minimum tier of feature.
// Unknown features are denied.
func HasFeature(id ID, feature Feature) bool {
	minPlan, ok := featureTiers[feature]
	if !ok {
		return false
	}
	return TierRank(id) >= tierRanks[minPlan]
}

// HasFeatureAs is HasFeature with an admin override.
func HasFeatureAs(id ID, feature Feature, isAdmin bool) bool {
	return isAdmin || HasFeature(id, feature)
}

// Features lists the features enabled for a plan.
func Features(id ID) map[Feature]bool {
	enabled := make(map[Feature]bool, len(featureTiers))
	for f := range featureTiers {
		enabled[f] = HasFeature(id, f)
	}
	return enabled
}
