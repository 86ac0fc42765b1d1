package directory

import "net/url"

// queryKeys are the URL parameters understood by FromQuery.
var queryKeys = []string{"search", "gender", "bloodGroup", "ageGroup", "hasConditions", "registrationPeriod"}

// HasQuery reports whether any directory parameter is present in v.
func HasQuery(v url.Values) bool {
	for _, k := range queryKeys {
		if v.Has(k) {
			return true
		}
	}
	return false
}

// FromQuery reads the search text and filter from URL parameters. Missing parameters
// default to no constraint.
func FromQuery(v url.Values) (string, Filter, error) {
	f := Filter{
		Gender:             orAll(v.Get("gender")),
		BloodGroup:         orAll(v.Get("bloodGroup")),
		AgeGroup:           orAll(v.Get("ageGroup")),
		HasConditions:      orAll(v.Get("hasConditions")),
		RegistrationPeriod: orAll(v.Get("registrationPeriod")),
	}
	if err := f.Validate(); err != nil {
		return "", Filter{}, err
	}
	return v.Get("search"), f, nil
}

func orAll(s string) string {
	if s == "" {
		return All
	}
	return s
}
