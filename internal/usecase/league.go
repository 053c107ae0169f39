package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/logging"
)

const minAccessCodeLength = 4

// LeagueService creates tenants and answers the metadata and access-code
// questions the HTTP layer asks per request.
type LeagueService struct {
	store DocumentStore
	log   *logging.Logger
}

func NewLeagueService(store DocumentStore, log *logging.Logger) *LeagueService {
	if log == nil {
		log = logging.NewNop()
	}
	return &LeagueService{store: store, log: log}
}

type CreateLeagueInput struct {
	ID          string
	DisplayName string
	Icon        string
	AccessCode  string
	OwnerEmail  string
}

// Create provisions a new league. The id doubles as the routing subdomain,
// so it must be a valid DNS label.
func (s *LeagueService) Create(ctx context.Context, in CreateLeagueInput) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "LeagueService.Create")
	defer span.End()

	id := strings.ToLower(strings.TrimSpace(in.ID))
	if err := validate.Subdomain(id); err != nil {
		return league.League{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(in.AccessCode) < minAccessCodeLength {
		return league.League{}, fmt.Errorf("%w: access code must be at least %d characters", ErrInvalidInput, minAccessCodeLength)
	}

	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = id
	}

	meta := league.League{
		ID:             id,
		DisplayName:    display,
		Icon:           strings.TrimSpace(in.Icon),
		AccessCodeHash: league.HashAccessCode(in.AccessCode),
		OwnerEmail:     strings.TrimSpace(in.OwnerEmail),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateLeague(ctx, meta); err != nil {
		return league.League{}, mapStoreErr(err)
	}

	s.log.InfoContext(ctx, "league created", "league", meta.ID)
	return meta, nil
}

// Get loads the metadata record of a league.
func (s *LeagueService) Get(ctx context.Context, leagueID string) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "LeagueService.Get")
	defer span.End()

	if !s.store.LeagueExists(ctx, leagueID) {
		return league.League{}, fmt.Errorf("%w: league %q", ErrNotFound, leagueID)
	}
	tree, err := s.store.ReadDoc(ctx, leagueID, store.DocLeague)
	if err != nil {
		return league.League{}, mapStoreErr(err)
	}
	return remap[league.League](tree)
}

// Authorize checks a plaintext access code against the league record.
func (s *LeagueService) Authorize(ctx context.Context, leagueID, code string) error {
	ctx, span := startUsecaseSpan(ctx, "LeagueService.Authorize")
	defer span.End()

	meta, err := s.Get(ctx, leagueID)
	if err != nil {
		return err
	}
	if !meta.CheckAccessCode(code) {
		return fmt.Errorf("%w: wrong access code for league %q", ErrAccessDenied, leagueID)
	}
	return nil
}
