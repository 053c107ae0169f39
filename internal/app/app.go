package app

import (
	"fmt"
	"net/http"

	"github.com/leagr/leagr/internal/config"
	"github.com/leagr/leagr/internal/domain/teamgen"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/interfaces/httpapi"
	idgen "github.com/leagr/leagr/internal/platform/id"
	"github.com/leagr/leagr/internal/platform/logging"
	"github.com/leagr/leagr/internal/usecase"
)

func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	st, err := store.New(cfg.DataDir, cfg.UsePolling, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	settingsSvc := usecase.NewSettingsService(st, cfg.SettingsCacheTTL, logger)
	st.SetWriteHook(settingsSvc.InvalidateOnWrite)

	disciplineSvc := usecase.NewDisciplineService(st, logger)
	playerSvc := usecase.NewPlayerService(st, settingsSvc, disciplineSvc, idgen.NewRandomGenerator(), logger)
	rankingSvc := usecase.NewRankingService(st, settingsSvc, disciplineSvc, logger)
	teamSvc := usecase.NewTeamService(st, settingsSvc, rankingSvc, teamgen.New(nil), logger)
	gameSvc := usecase.NewGameService(st, settingsSvc, rankingSvc, logger)
	statsSvc := usecase.NewStatsService(st, rankingSvc, logger)
	leagueSvc := usecase.NewLeagueService(st, logger)

	handler := httpapi.NewHandler(
		leagueSvc,
		settingsSvc,
		playerSvc,
		teamSvc,
		gameSvc,
		rankingSvc,
		statsSvc,
		disciplineSvc,
		logger,
	)
	hosts := httpapi.NewHostMap(cfg.BaseHost, cfg.ExtraHosts)
	router := httpapi.NewRouter(handler, hosts, leagueSvc, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}
