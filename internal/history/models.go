package history

import (
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/location"
)

// MaxItems bounds the retained history; older entries are evicted first.
const MaxItems = 1000

type Entry struct {
	location.Sample
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
}

type Stats struct {
	Total      int        `json:"total"`
	Today      int        `json:"today"`
	ThisWeek   int        `json:"this_week"`
	LastUpdate *time.Time `json:"last_update"`
}
