// Package session models the player and team state of a single session and
// the transitions allowed on it. Mutators are copy-on-write: they never
// modify the receiver and return the next state instead, so a failed commit
// leaves the caller's view untouched.
package session

import (
	"errors"
	"fmt"

	"github.com/leagr/leagr/internal/domain/settings"
)

var (
	ErrDuplicatePlayer  = errors.New("player already registered")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrCapacityExceeded = errors.New("available list is full")
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamFull         = errors.New("team has no open slot")
	ErrInvalidTarget    = errors.New("invalid target list")
	ErrStateInvalid     = errors.New("session state invalid")
)

// Target selects the list a registration lands on.
type Target string

const (
	TargetAvailable   Target = "available"
	TargetWaitingList Target = "waitingList"
	TargetAuto        Target = "auto"
)

type Players struct {
	Available   []string `json:"available"`
	WaitingList []string `json:"waitingList"`
}

// State is the session roster: the two registration lists plus the team
// assignment. Team slots are pointers; nil means an open slot.
type State struct {
	Players  Players              `json:"players"`
	Teams    map[string][]*string `json:"teams,omitempty"`
	Settings settings.Effective   `json:"-"`
}

func (s State) clone() State {
	next := State{
		Players: Players{
			Available:   append([]string(nil), s.Players.Available...),
			WaitingList: append([]string(nil), s.Players.WaitingList...),
		},
		Settings: s.Settings,
	}
	if s.Teams != nil {
		next.Teams = make(map[string][]*string, len(s.Teams))
		for name, slots := range s.Teams {
			copied := make([]*string, len(slots))
			for i, slot := range slots {
				if slot != nil {
					v := *slot
					copied[i] = &v
				}
			}
			next.Teams[name] = copied
		}
	}

	return next
}

func (s State) playerLimit() int {
	if s.Settings.PlayerLimit > 0 {
		return s.Settings.PlayerLimit
	}
	return settings.DefaultPlayerLimit
}

func (s State) holds(name string) bool {
	for _, n := range s.Players.Available {
		if n == name {
			return true
		}
	}
	for _, n := range s.Players.WaitingList {
		if n == name {
			return true
		}
	}
	return false
}

// AddPlayer registers a name on the requested list. TargetAuto and
// TargetAvailable route to the waiting list once the available list is at
// the player limit. Names are compared case-exact.
func (s State) AddPlayer(name string, target Target) (State, error) {
	if s.holds(name) {
		return s, fmt.Errorf("%w: %s", ErrDuplicatePlayer, name)
	}

	next := s.clone()
	switch target {
	case TargetWaitingList:
		next.Players.WaitingList = append(next.Players.WaitingList, name)
	case TargetAvailable, TargetAuto, "":
		if len(next.Players.Available) >= s.playerLimit() {
			next.Players.WaitingList = append(next.Players.WaitingList, name)
		} else {
			next.Players.Available = append(next.Players.Available, name)
		}
	default:
		return s, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	return next, nil
}

// RemovePlayer drops a name from whichever list holds it and opens any team
// slot the name occupied.
func (s State) RemovePlayer(name string) (State, error) {
	if !s.holds(name) {
		return s, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}

	next := s.clone()
	next.Players.Available = remove(next.Players.Available, name)
	next.Players.WaitingList = remove(next.Players.WaitingList, name)
	next.clearTeamSlot(name)

	return next, nil
}

// MovePlayer moves a name between the available and waiting lists. Promotion
// is capacity-checked; demotion clears any team assignment.
func (s State) MovePlayer(name string, from, to Target) (State, error) {
	if from == to {
		return s, fmt.Errorf("%w: from and to are both %q", ErrInvalidTarget, from)
	}

	next := s.clone()
	switch {
	case from == TargetWaitingList && to == TargetAvailable:
		if !contains(next.Players.WaitingList, name) {
			return s, fmt.Errorf("%w: %s is not on the waiting list", ErrPlayerNotFound, name)
		}
		if len(next.Players.Available) >= s.playerLimit() {
			return s, fmt.Errorf("%w: limit %d", ErrCapacityExceeded, s.playerLimit())
		}
		next.Players.WaitingList = remove(next.Players.WaitingList, name)
		next.Players.Available = append(next.Players.Available, name)
	case from == TargetAvailable && to == TargetWaitingList:
		if !contains(next.Players.Available, name) {
			return s, fmt.Errorf("%w: %s is not available", ErrPlayerNotFound, name)
		}
		next.Players.Available = remove(next.Players.Available, name)
		next.Players.WaitingList = append(next.Players.WaitingList, name)
		next.clearTeamSlot(name)
	default:
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTarget, from, to)
	}

	return next, nil
}

// MovePlayerToTeam places a name into the first open slot of a team. A name
// still on the waiting list is promoted first, which is capacity-checked.
func (s State) MovePlayerToTeam(name, teamName string) (State, error) {
	next := s.clone()

	if contains(next.Players.WaitingList, name) {
		promoted, err := next.MovePlayer(name, TargetWaitingList, TargetAvailable)
		if err != nil {
			return s, err
		}
		next = promoted
	}
	if !contains(next.Players.Available, name) {
		return s, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}

	slots, ok := next.Teams[teamName]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrTeamNotFound, teamName)
	}

	next.clearTeamSlot(name)
	for i, slot := range slots {
		if slot == nil {
			v := name
			slots[i] = &v
			return next, nil
		}
	}

	return s, fmt.Errorf("%w: %s", ErrTeamFull, teamName)
}

// MovePlayerToWaiting demotes a name to the waiting list, opening its team
// slot if any.
func (s State) MovePlayerToWaiting(name string) (State, error) {
	return s.MovePlayer(name, TargetAvailable, TargetWaitingList)
}

// RemoveFromTeam opens the slot a name occupies while keeping the name on
// the available list.
func (s State) RemoveFromTeam(name string) (State, error) {
	if _, ok := s.TeamOf(name); !ok {
		return s, fmt.Errorf("%w: %s has no team slot", ErrPlayerNotFound, name)
	}
	next := s.clone()
	next.clearTeamSlot(name)
	return next, nil
}

// RenamePlayer remaps a name across lists and team slots. The new name must
// not collide with any registered name.
func (s State) RenamePlayer(oldName, newName string) (State, error) {
	if !s.holds(oldName) {
		return s, fmt.Errorf("%w: %s", ErrPlayerNotFound, oldName)
	}
	if s.holds(newName) {
		return s, fmt.Errorf("%w: %s", ErrDuplicatePlayer, newName)
	}

	next := s.clone()
	next.Players.Available = replace(next.Players.Available, oldName, newName)
	next.Players.WaitingList = replace(next.Players.WaitingList, oldName, newName)
	for _, slots := range next.Teams {
		for i, slot := range slots {
			if slot != nil && *slot == oldName {
				v := newName
				slots[i] = &v
			}
		}
	}

	return next, nil
}

// Validate checks the structural invariants: disjoint lists, no duplicates,
// capacity, and every assigned slot naming an available player at most once.
func (s State) Validate() error {
	seen := make(map[string]struct{}, len(s.Players.Available)+len(s.Players.WaitingList))
	for _, name := range s.Players.Available {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate name %s", ErrStateInvalid, name)
		}
		seen[name] = struct{}{}
	}
	available := make(map[string]struct{}, len(s.Players.Available))
	for _, name := range s.Players.Available {
		available[name] = struct{}{}
	}
	for _, name := range s.Players.WaitingList {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %s appears in both lists", ErrStateInvalid, name)
		}
		seen[name] = struct{}{}
	}

	if len(s.Players.Available) > s.playerLimit() {
		return fmt.Errorf("%w: %d available players over limit %d", ErrStateInvalid, len(s.Players.Available), s.playerLimit())
	}

	assigned := make(map[string]string)
	for teamName, slots := range s.Teams {
		for _, slot := range slots {
			if slot == nil {
				continue
			}
			if _, ok := available[*slot]; !ok {
				return fmt.Errorf("%w: team %s holds %s who is not available", ErrStateInvalid, teamName, *slot)
			}
			if prev, dup := assigned[*slot]; dup {
				return fmt.Errorf("%w: %s assigned to both %s and %s", ErrStateInvalid, *slot, prev, teamName)
			}
			assigned[*slot] = teamName
		}
	}

	return nil
}

// TeamOf reports the team currently holding the name, if any.
func (s State) TeamOf(name string) (string, bool) {
	for teamName, slots := range s.Teams {
		for _, slot := range slots {
			if slot != nil && *slot == name {
				return teamName, true
			}
		}
	}
	return "", false
}

func (s *State) clearTeamSlot(name string) {
	for _, slots := range s.Teams {
		for i, slot := range slots {
			if slot != nil && *slot == name {
				slots[i] = nil
			}
		}
	}
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func remove(list []string, name string) []string {
	out := list[:0]
	for _, n := range list {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func replace(list []string, oldName, newName string) []string {
	for i, n := range list {
		if n == oldName {
			list[i] = newName
		}
	}
	return list
}
