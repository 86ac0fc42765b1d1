package directory

import (
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
)

// Stats are the directory aggregates. They describe the whole patient list, never a
// filtered view of it.
type Stats struct {
	Total        int            `json:"total"`
	ByGender     map[string]int `json:"byGender"`
	NewThisMonth int            `json:"newThisMonth"`
}

// Summarize counts patients overall, per gender and registered in now's calendar month.
// Patients without a recorded gender are counted under "unspecified".
func Summarize(patients []*models.Customer, now time.Time) Stats {
	st := Stats{Total: len(patients), ByGender: make(map[string]int)}
	for _, p := range patients {
		g := p.Gender
		if g == "" {
			g = "unspecified"
		}
		st.ByGender[g]++

		created := p.CreatedAt.In(now.Location())
		if created.Year() == now.Year() && created.Month() == now.Month() {
			st.NewThisMonth++
		}
	}
	return st
}
