// Package directory narrows an in-memory list of patient profiles by free text and a
// composable set of filters, and computes the aggregates shown above the patient list.
//
// Every function takes the reference time explicitly; nothing here reads the clock.
package directory

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
)

// All disables a filter field.
const All = "all"

const (
	AgeChild  = "0-18"
	AgeYoung  = "19-30"
	AgeAdult  = "31-50"
	AgeSenior = "51+"
)

const (
	ConditionsYes = "yes"
	ConditionsNo  = "no"
)

const (
	PeriodWeek    = "last-week"
	PeriodMonth   = "last-month"
	PeriodQuarter = "last-3-months"
	PeriodYear    = "last-year"
)

var periodDays = map[string]int{
	PeriodWeek:    7,
	PeriodMonth:   30,
	PeriodQuarter: 90,
	PeriodYear:    365,
}

// Filter is the set of narrowing criteria selected in the patient directory. Each field is
// independently "all" (or empty) when it should not constrain the result.
type Filter struct {
	Gender             string `json:"gender"`
	BloodGroup         string `json:"bloodGroup"`
	AgeGroup           string `json:"ageGroup"`
	HasConditions      string `json:"hasConditions"`
	RegistrationPeriod string `json:"registrationPeriod"`
}

// NoFilter returns a Filter with every field set to All.
func NoFilter() Filter {
	return Filter{Gender: All, BloodGroup: All, AgeGroup: All, HasConditions: All, RegistrationPeriod: All}
}

func active(v string) bool {
	return v != "" && v != All
}

// IsZero reports whether no field constrains the result.
func (f Filter) IsZero() bool {
	return !active(f.Gender) && !active(f.BloodGroup) && !active(f.AgeGroup) &&
		!active(f.HasConditions) && !active(f.RegistrationPeriod)
}

// Validate rejects values the engine does not know how to apply.
func (f Filter) Validate() error {
	if active(f.AgeGroup) {
		switch f.AgeGroup {
		case AgeChild, AgeYoung, AgeAdult, AgeSenior:
		default:
			return fmt.Errorf("unknown age group %q", f.AgeGroup)
		}
	}
	if active(f.HasConditions) && f.HasConditions != ConditionsYes && f.HasConditions != ConditionsNo {
		return fmt.Errorf("unknown conditions filter %q", f.HasConditions)
	}
	if active(f.RegistrationPeriod) {
		if _, ok := periodDays[f.RegistrationPeriod]; !ok {
			return fmt.Errorf("unknown registration period %q", f.RegistrationPeriod)
		}
	}
	return nil
}

// Apply returns the patients that match the search text and every active filter field,
// keeping their original relative order.
func Apply(patients []*models.Customer, search string, f Filter, now time.Time) []*models.Customer {
	term := strings.ToLower(search)
	out := make([]*models.Customer, 0, len(patients))
	for _, p := range patients {
		if matches(p, search, term, f, now) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p *models.Customer, raw, term string, f Filter, now time.Time) bool {
	if !matchesText(p, raw, term) {
		return false
	}
	if active(f.Gender) && p.Gender != f.Gender {
		return false
	}
	if active(f.BloodGroup) && p.BloodGroup != f.BloodGroup {
		return false
	}
	if active(f.AgeGroup) && AgeGroup(p.DateOfBirth, now) != f.AgeGroup {
		return false
	}
	if active(f.HasConditions) && HasConditions(p) != (f.HasConditions == ConditionsYes) {
		return false
	}
	if active(f.RegistrationPeriod) && !RegisteredWithin(p.CreatedAt, f.RegistrationPeriod, now) {
		return false
	}
	return true
}

// matchesText compares name and email case-insensitively and the phone number verbatim.
func matchesText(p *models.Customer, raw, term string) bool {
	return strings.Contains(strings.ToLower(p.FullName), term) ||
		strings.Contains(strings.ToLower(p.Email), term) ||
		(p.Phone != "" && strings.Contains(p.Phone, raw))
}

// HasConditions reports whether the patient has any medical condition recorded.
func HasConditions(p *models.Customer) bool {
	return strings.TrimSpace(p.MedicalConditions) != ""
}

// Age is the calendar age in whole years at now. A missing date of birth counts as 0.
func Age(dob *time.Time, now time.Time) int {
	if dob == nil {
		return 0
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// AgeGroup places a date of birth in its bracket. Each bracket ends on the birthday that
// names its upper bound, so a patient is 0-18 up to and including their 18th birthday and
// 19-30 from the day after.
func AgeGroup(dob *time.Time, now time.Time) string {
	if dob == nil {
		return AgeChild
	}
	today := dateOf(now)
	born := dateOf(*dob)
	switch {
	case !today.After(born.AddDate(18, 0, 0)):
		return AgeChild
	case !today.After(born.AddDate(30, 0, 0)):
		return AgeYoung
	case !today.After(born.AddDate(50, 0, 0)):
		return AgeAdult
	default:
		return AgeSenior
	}
}

// DaysSince is the absolute distance between createdAt and now in days, rounded up.
func DaysSince(createdAt, now time.Time) int {
	d := now.Sub(createdAt)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(d.Hours() / 24))
}

// RegisteredWithin reports whether createdAt falls inside period. Periods only bound the
// distance from above, so a record created yesterday is also within "last-year".
func RegisteredWithin(createdAt time.Time, period string, now time.Time) bool {
	limit, ok := periodDays[period]
	if !ok {
		return true
	}
	return DaysSince(createdAt, now) <= limit
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
