package httpapi

import "context"

type contextKey string

const leagueContextKey contextKey = "league_id"

func withLeague(ctx context.Context, leagueID string) context.Context {
	return context.WithValue(ctx, leagueContextKey, leagueID)
}

func leagueFromContext(ctx context.Context) (string, bool) {
	leagueID, ok := ctx.Value(leagueContextKey).(string)
	return leagueID, ok && leagueID != ""
}
