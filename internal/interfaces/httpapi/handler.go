package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/leagr/leagr/internal/platform/logging"
	"github.com/leagr/leagr/internal/usecase"
)

type Handler struct {
	leagueService     *usecase.LeagueService
	settingsService   *usecase.SettingsService
	playerService     *usecase.PlayerService
	teamService       *usecase.TeamService
	gameService       *usecase.GameService
	rankingService    *usecase.RankingService
	statsService      *usecase.StatsService
	disciplineService *usecase.DisciplineService
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	leagueService *usecase.LeagueService,
	settingsService *usecase.SettingsService,
	playerService *usecase.PlayerService,
	teamService *usecase.TeamService,
	gameService *usecase.GameService,
	rankingService *usecase.RankingService,
	statsService *usecase.StatsService,
	disciplineService *usecase.DisciplineService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		leagueService:     leagueService,
		settingsService:   settingsService,
		playerService:     playerService,
		teamService:       teamService,
		gameService:       gameService,
		rankingService:    rankingService,
		statsService:      statsService,
		disciplineService: disciplineService,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// requestLeague pulls the league the middleware resolved from the host.
func requestLeague(ctx context.Context) (string, error) {
	leagueID, ok := leagueFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: league is missing from request context", usecase.ErrNotFound)
	}
	return leagueID, nil
}

func dateParam(r *http.Request) string {
	return r.URL.Query().Get("date")
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
