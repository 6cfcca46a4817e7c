package domain

import (
	"sync"
	"time"
)

var (
	etOnce sync.Once
	etLoc  *time.Location
)

// ET returns the America/New_York location. Alert-policy day scoping and
// market-session arithmetic are all done in ET. Falls back to a fixed UTC-5
// zone if the tz database is unavailable.
func ET() *time.Location {
	etOnce.Do(func() {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.FixedZone("ET", -5*3600)
		}
		etLoc = loc
	})
	return etLoc
}

// ETDate formats t as the YYYY-MM-DD ET calendar date used to scope alert
// policy state.
func ETDate(t time.Time) string {
	return t.In(ET()).Format("2006-01-02")
}
