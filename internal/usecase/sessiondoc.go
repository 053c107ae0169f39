package usecase

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/leagr/leagr/internal/domain/match"
	"github.com/leagr/leagr/internal/domain/session"
	"github.com/leagr/leagr/internal/domain/settings"
)

// knockoutState is the games.knockout subtree of a session document.
type knockoutState struct {
	Bracket []match.BracketMatch `json:"bracket"`
}

// gamesState is the games subtree of a session document.
type gamesState struct {
	Rounds   [][]match.Match `json:"rounds,omitempty"`
	Knockout *knockoutState  `json:"knockout,omitempty"`
}

func (g gamesState) bracket() []match.BracketMatch {
	if g.Knockout == nil {
		return nil
	}
	return g.Knockout.Bracket
}

// hasCompletedMatch reports whether any league or knockout match of the
// session has both scores entered. The first completed game marks the
// session as played.
func (g gamesState) hasCompletedMatch() bool {
	for _, round := range g.Rounds {
		for _, m := range round {
			if !m.IsBye() && m.Completed() {
				return true
			}
		}
	}
	for _, m := range g.bracket() {
		if m.Completed() {
			return true
		}
	}
	return false
}

// remap re-marshals a decoded JSON subtree (or any struct) into the target
// shape. Used both to type raw document sections and to deep-clone values
// crossing a cache boundary.
func remap[T any](raw any) (T, error) {
	var out T
	if raw == nil {
		return out, nil
	}
	buf, err := sonic.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("%w: encode section: %v", ErrStore, err)
	}
	if err := sonic.Unmarshal(buf, &out); err != nil {
		return out, fmt.Errorf("%w: decode section: %v", ErrStore, err)
	}
	return out, nil
}

// decodeSessionState types the players and teams sections of a session
// document and attaches the effective settings.
func decodeSessionState(tree map[string]any, eff settings.Effective) (session.State, error) {
	players, err := remap[session.Players](tree["players"])
	if err != nil {
		return session.State{}, err
	}
	teams, err := remap[map[string][]*string](tree["teams"])
	if err != nil {
		return session.State{}, err
	}
	return session.State{Players: players, Teams: teams, Settings: eff}, nil
}

func decodeGames(tree map[string]any) (gamesState, error) {
	return remap[gamesState](tree["games"])
}

// teamNamesOf returns the team names of a session in deterministic order.
func teamNamesOf(teams map[string][]*string) []string {
	names := make([]string, 0, len(teams))
	for name := range teams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rosterOf returns the filled slots of one team.
func rosterOf(teams map[string][]*string, team string) []string {
	var roster []string
	for _, slot := range teams[team] {
		if slot != nil {
			roster = append(roster, *slot)
		}
	}
	return roster
}
