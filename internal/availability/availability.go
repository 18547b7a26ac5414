// Package availability decides whether the store can accept an order
// at a given moment, based on the configured weekly schedule. It is
// the single authority for store-hours logic; both order creation and
// the public availability endpoint go through Check.
package availability

import (
	"fmt"
	"strings"
	"time"
)

type DaySchedule struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Schedule maps lowercase English weekday names to opening hours.
type Schedule map[string]DaySchedule

type StoreConfig struct {
	Schedule      Schedule
	OrdersEnabled bool
	PrepMinutes   int
}

type Verdict struct {
	Open   bool   `json:"open"`
	Reason string `json:"reason,omitempty"`
}

func closed(reason string) Verdict { return Verdict{Open: false, Reason: reason} }

// Check returns whether an order with the given pickup time can be
// accepted at instant now. An empty pickup only checks that the store
// is currently open.
//
// Schedules may cross midnight (close numerically below open, e.g.
// 20:00-02:00). In that case a pickup before opening belongs to the
// next calendar day, which is only reachable once the current time is
// already past opening.
func Check(cfg StoreConfig, now time.Time, pickup string) Verdict {
	if !cfg.OrdersEnabled {
		return closed("online orders are disabled")
	}

	day := strings.ToLower(now.Weekday().String())
	ds, ok := cfg.Schedule[day]
	if !ok || ds.Closed {
		return closed("store is closed today")
	}

	openM, err := parseClock(ds.Open)
	if err != nil {
		return closed("store schedule is not configured")
	}
	closeM, err := parseClock(ds.Close)
	if err != nil {
		return closed("store schedule is not configured")
	}

	crossing := closeM < openM
	nowM := now.Hour()*60 + now.Minute()

	if pickup == "" {
		if !withinWindow(nowM, openM, closeM, crossing) {
			return closed("store is closed at this time")
		}
		return Verdict{Open: true}
	}

	pickupM, err := parseClock(pickup)
	if err != nil {
		return closed(fmt.Sprintf("invalid pickup time %q", pickup))
	}

	if !withinWindow(pickupM, openM, closeM, crossing) {
		return closed("pickup time is outside opening hours")
	}

	// A pre-open pickup on a crossing schedule is tomorrow's slot; it
	// only exists once today's window has started.
	nextDay := false
	if crossing && pickupM <= closeM && pickupM < openM {
		if nowM >= openM {
			nextDay = true
		} else if !withinWindow(nowM, openM, closeM, crossing) {
			return closed("pickup time is outside opening hours")
		}
	}

	delta := pickupM - nowM
	if nextDay {
		delta += 24 * 60
	}
	if delta < cfg.PrepMinutes {
		return closed(fmt.Sprintf("pickup time must be at least %d minutes from now", cfg.PrepMinutes))
	}

	return Verdict{Open: true}
}

func withinWindow(t, open, close int, crossing bool) bool {
	if crossing {
		return t >= open || t <= close
	}
	return t >= open && t <= close
}

// parseClock converts strict "HH:MM" to minutes since midnight. The
// raw value is persisted as the order's pickup time, so anything
// looser than the wire format is rejected here.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != len("15:04") {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
