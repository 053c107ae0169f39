// Package settings resolves the effective per-session settings from the
// league-wide document and the session override. Unknown keys round-trip
// verbatim through Raw.
package settings

// Defaults applied when neither the league document nor the session
// override carries a value.
const (
	DefaultPlayerLimit       = 24
	DefaultNoShowThreshold   = 2
	DefaultKLeague           = 24.0
	DefaultKCup              = 15.0
	DefaultDecayRatePerWeek  = 0.02
	DefaultBaseline          = 1000.0
	DefaultGamesThreshold    = 35
	DefaultMinTeams          = 2
	DefaultMaxTeams          = 6
	DefaultMinPlayersPerTeam = 4
	DefaultMaxPlayersPerTeam = 8
)

type Elo struct {
	KLeague          float64
	KCup             float64
	DecayRatePerWeek float64
	Baseline         float64
	GamesThreshold   int
}

type Discipline struct {
	Enabled         bool
	NoShowThreshold int
}

type RegistrationWindow struct {
	Enabled  bool
	OpensAt  string
	ClosesAt string
}

type TeamGeneration struct {
	MinTeams          int
	MaxTeams          int
	MinPlayersPerTeam int
	MaxPlayersPerTeam int
}

// Effective is the resolved settings view for one (league, date). Raw holds
// the merged document including keys this build does not understand, so a
// write-back never drops options added by newer deployments.
type Effective struct {
	PlayerLimit    int
	Elo            Elo
	Discipline     Discipline
	Registration   RegistrationWindow
	TeamGeneration TeamGeneration
	Raw            map[string]any
}

// Resolve shallow-merges the session override over the league-wide settings
// document and fills defaults for everything still absent. Both inputs may
// be nil.
func Resolve(leagueWide, sessionOverride map[string]any) Effective {
	raw := make(map[string]any, len(leagueWide)+len(sessionOverride))
	for k, v := range leagueWide {
		raw[k] = v
	}
	for k, v := range sessionOverride {
		raw[k] = v
	}

	eff := Effective{
		PlayerLimit: intOr(raw["playerLimit"], DefaultPlayerLimit),
		Elo: Elo{
			KLeague:          floatOr(dig(raw, "elo", "kLeague"), DefaultKLeague),
			KCup:             floatOr(dig(raw, "elo", "kCup"), DefaultKCup),
			DecayRatePerWeek: floatOr(dig(raw, "elo", "decayRatePerWeek"), DefaultDecayRatePerWeek),
			Baseline:         floatOr(dig(raw, "elo", "baseline"), DefaultBaseline),
			GamesThreshold:   intOr(dig(raw, "elo", "gamesThreshold"), DefaultGamesThreshold),
		},
		Discipline: Discipline{
			Enabled:         boolOr(dig(raw, "discipline", "enabled"), false),
			NoShowThreshold: intOr(dig(raw, "discipline", "noShowThreshold"), DefaultNoShowThreshold),
		},
		Registration: RegistrationWindow{
			Enabled:  boolOr(dig(raw, "registrationWindow", "enabled"), false),
			OpensAt:  stringOr(dig(raw, "registrationWindow", "opensAt"), ""),
			ClosesAt: stringOr(dig(raw, "registrationWindow", "closesAt"), ""),
		},
		TeamGeneration: TeamGeneration{
			MinTeams:          intOr(dig(raw, "teamGeneration", "minTeams"), DefaultMinTeams),
			MaxTeams:          intOr(dig(raw, "teamGeneration", "maxTeams"), DefaultMaxTeams),
			MinPlayersPerTeam: intOr(dig(raw, "teamGeneration", "minPlayersPerTeam"), DefaultMinPlayersPerTeam),
			MaxPlayersPerTeam: intOr(dig(raw, "teamGeneration", "maxPlayersPerTeam"), DefaultMaxPlayersPerTeam),
		},
		Raw: raw,
	}

	return eff
}

func dig(m map[string]any, keys ...string) any {
	current := any(m)
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[key]
		if !ok {
			return nil
		}
	}

	return current
}

func intOr(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return fallback
}

func floatOr(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}

func boolOr(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}
