package room

import "time"

// rateWindow enforces a sliding one-second cap on accepted messages.
// Messages over the cap are shed silently; the caller decides whether to
// log the shedding.
type rateWindow struct {
	limit   int
	stamps  []time.Time
	dropped int
}

func newRateWindow(limit int) *rateWindow {
	if limit <= 0 {
		limit = 1
	}
	return &rateWindow{limit: limit, stamps: make([]time.Time, 0, limit)}
}

// allow records an arrival and reports whether it fits the window.
func (w *rateWindow) allow(now time.Time) bool {
	cutoff := now.Add(-time.Second)
	kept := w.stamps[:0]
	for _, stamp := range w.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.limit {
		w.dropped++
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// takeDropped returns and resets the shed counter.
func (w *rateWindow) takeDropped() int {
	dropped := w.dropped
	w.dropped = 0
	return dropped
}
