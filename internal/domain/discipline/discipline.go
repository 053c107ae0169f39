// Package discipline implements the no-show ledger: accumulation, clearing
// on appearance, and threshold-triggered suspensions.
package discipline

import "sort"

type ClearedNoShow struct {
	Date      string `json:"date"`
	ClearedOn string `json:"clearedOn"`
}

type Suspension struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// Record is one player's ledger inside discipline.json.
type Record struct {
	ActiveNoShows    []string        `json:"activeNoShows"`
	ClearedNoShows   []ClearedNoShow `json:"clearedNoShows"`
	Suspensions      []Suspension    `json:"suspensions"`
	TotalSuspensions int             `json:"totalSuspensions"`
}

// RecordNoShow appends a date to the active list, once.
func (r *Record) RecordNoShow(date string) bool {
	for _, d := range r.ActiveNoShows {
		if d == date {
			return false
		}
	}
	r.ActiveNoShows = append(r.ActiveNoShows, date)
	sort.Strings(r.ActiveNoShows)
	return true
}

// ClearIfAppeared moves every active no-show to the cleared list when the
// player showed up on a later date. An appearance that predates the newest
// no-show is a no-op.
func (r *Record) ClearIfAppeared(appearanceDate string) bool {
	if len(r.ActiveNoShows) == 0 {
		return false
	}
	newest := r.ActiveNoShows[len(r.ActiveNoShows)-1]
	if appearanceDate <= newest {
		return false
	}
	r.clearActive(appearanceDate)
	return true
}

// ShouldSuspend reports whether the active count has reached the threshold.
func (r *Record) ShouldSuspend(enabled bool, threshold int) (bool, string) {
	if !enabled || threshold <= 0 {
		return false, ""
	}
	if len(r.ActiveNoShows) < threshold {
		return false, ""
	}
	return true, "no-show threshold reached"
}

// ApplySuspension records a suspension for the session date and clears the
// active no-shows into the cleared list in the same step.
func (r *Record) ApplySuspension(sessionDate, reason string) {
	if reason == "" {
		reason = "no-show threshold reached"
	}
	r.Suspensions = append(r.Suspensions, Suspension{Date: sessionDate, Reason: reason})
	r.TotalSuspensions++
	r.clearActive(sessionDate)
}

// SuspendedFor reports whether the player already has a suspension recorded
// for the given session date.
func (r *Record) SuspendedFor(sessionDate string) bool {
	for _, s := range r.Suspensions {
		if s.Date == sessionDate {
			return true
		}
	}
	return false
}

func (r *Record) clearActive(clearedOn string) {
	for _, d := range r.ActiveNoShows {
		r.ClearedNoShows = append(r.ClearedNoShows, ClearedNoShow{Date: d, ClearedOn: clearedOn})
	}
	r.ActiveNoShows = []string{}
}

// SignupResult is the outcome of the idempotent signup-time evaluation.
type SignupResult struct {
	Suspended     bool   `json:"suspended"`
	NewSuspension bool   `json:"newSuspension"`
	Reason        string `json:"reason,omitempty"`
}

// EvaluateOnSignup blocks a signup when the player is already suspended for
// the date, or applies a fresh suspension (and blocks) when the active
// no-show count has hit the threshold.
func (r *Record) EvaluateOnSignup(sessionDate string, enabled bool, threshold int) SignupResult {
	if !enabled {
		return SignupResult{}
	}
	if r.SuspendedFor(sessionDate) {
		return SignupResult{Suspended: true, Reason: "suspended for this session"}
	}
	if should, reason := r.ShouldSuspend(enabled, threshold); should {
		r.ApplySuspension(sessionDate, reason)
		return SignupResult{Suspended: true, NewSuspension: true, Reason: reason}
	}
	return SignupResult{}
}
