package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("POST /api/leagues", handler.CreateLeague)
}

// registerLeagueRoutes wires the tenant-scoped surface. Every route runs
// behind host resolution; mutating routes additionally require the league
// access code. Player signup stays open, and removal/rename carry their own
// owner-token check inside the handler.
func registerLeagueRoutes(mux *http.ServeMux, handler *Handler, hosts *HostMap, auth LeagueAuthorizer) {
	open := func(h http.HandlerFunc) http.Handler {
		return ResolveLeague(hosts, h)
	}
	guarded := func(h http.HandlerFunc) http.Handler {
		return ResolveLeague(hosts, RequireAccessCode(auth, h))
	}

	mux.Handle("GET /api/leagues/current", open(handler.GetCurrentLeague))

	mux.Handle("GET /api/players", open(handler.ListPlayers))
	mux.Handle("POST /api/players", open(handler.AddPlayer))
	mux.Handle("DELETE /api/players", open(handler.RemovePlayer))
	mux.Handle("POST /api/players/move", guarded(handler.MovePlayer))
	mux.Handle("POST /api/players/rename", open(handler.RenamePlayer))

	mux.Handle("GET /api/teams", open(handler.GetTeams))
	mux.Handle("POST /api/teams", guarded(handler.GenerateTeams))
	mux.Handle("DELETE /api/teams", guarded(handler.DeleteTeams))
	mux.Handle("GET /api/teams/configurations", open(handler.ListTeamConfigurations))
	mux.Handle("POST /api/teams/players", guarded(handler.AssignTeamPlayer))
	mux.Handle("DELETE /api/teams/players", guarded(handler.UnassignTeamPlayer))

	mux.Handle("GET /api/games", open(handler.GetGames))
	mux.Handle("POST /api/games", guarded(handler.PostGames))
	mux.Handle("GET /api/games/knockout", open(handler.GetKnockout))
	mux.Handle("POST /api/games/knockout", guarded(handler.PostKnockout))

	mux.Handle("GET /api/rankings", open(handler.GetRankings))
	mux.Handle("GET /api/rankings/{player}", open(handler.GetPlayerRanking))
	mux.Handle("GET /api/champions/{player}", open(handler.GetChampions))
	mux.Handle("GET /api/golden-boot", open(handler.GetGoldenBoot))
	mux.Handle("GET /api/year-recap/{year}", open(handler.GetYearRecap))

	mux.Handle("GET /api/settings", open(handler.GetSettings))
	mux.Handle("PUT /api/settings", guarded(handler.UpdateSettings))
	mux.Handle("GET /api/discipline", open(handler.GetDiscipline))
	mux.Handle("POST /api/discipline/no-show", guarded(handler.RecordNoShow))
}
