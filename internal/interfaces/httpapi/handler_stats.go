package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leagr/leagr/internal/domain/rankings"
	"github.com/leagr/leagr/internal/usecase"
)

// yearParam reads the year query parameter, defaulting to the current
// year. "all" maps to zero for the all-time views.
func yearParam(r *http.Request, allowAll bool) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	switch {
	case raw == "":
		return time.Now().UTC().Year(), nil
	case allowAll && strings.EqualFold(raw, "all"):
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid year %q", usecase.ErrInvalidInput, raw)
	}
	return year, nil
}

func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRankings")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	year, err := yearParam(r, false)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	doc, err := h.rankingService.Year(ctx, leagueID, year)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, doc)
}

func (h *Handler) GetPlayerRanking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerRanking")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	year, err := yearParam(r, false)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	player := strings.TrimSpace(r.PathValue("player"))
	ranking, err := h.rankingService.Player(ctx, leagueID, player, year)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(ctx, w, fmt.Errorf("%w: invalid limit %q", usecase.ErrInvalidInput, raw))
			return
		}
		trimRankingDetail(ranking, limit)
	}

	writeSuccess(ctx, w, http.StatusOK, ranking)
}

// trimRankingDetail keeps only the most recent limit session entries.
func trimRankingDetail(ranking *rankings.PlayerRanking, limit int) {
	if ranking == nil || len(ranking.RankingDetail) <= limit {
		return
	}
	dates := make([]string, 0, len(ranking.RankingDetail))
	for date := range ranking.RankingDetail {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	trimmed := make(map[string]*rankings.SessionDetail, limit)
	for _, date := range dates[len(dates)-limit:] {
		trimmed[date] = ranking.RankingDetail[date]
	}
	ranking.RankingDetail = trimmed
}

func (h *Handler) GetChampions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetChampions")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	player := strings.TrimSpace(r.PathValue("player"))
	trophy := strings.TrimSpace(r.URL.Query().Get("trophyType"))
	summary, err := h.statsService.Champions(ctx, leagueID, player, trophy)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, summary)
}

func (h *Handler) GetGoldenBoot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGoldenBoot")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	year, err := yearParam(r, true)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.statsService.GoldenBoot(ctx, leagueID, year)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, entries)
}

func (h *Handler) GetYearRecap(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetYearRecap")
	defer span.End()

	leagueID, err := requestLeague(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	raw := strings.TrimSpace(r.PathValue("year"))
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid year %q", usecase.ErrInvalidInput, raw))
		return
	}

	recap, err := h.statsService.Recap(ctx, leagueID, year)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, recap)
}
