package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/infrastructure/store"
)

// DocumentStore is the persistence port the services depend on. The
// file-backed implementation lives in internal/infrastructure/store; tests
// substitute stubs.
type DocumentStore interface {
	ReadDoc(ctx context.Context, leagueID, doc string) (map[string]any, error)
	Get(ctx context.Context, leagueID, doc, key string) (any, error)
	Set(ctx context.Context, leagueID, doc string, op store.Op) error
	SetMany(ctx context.Context, leagueID, doc string, ops []store.Op) error
	Update(ctx context.Context, leagueID, doc string, fn func(map[string]any) (map[string]any, error)) error
	ListSessionDates(ctx context.Context, leagueID string) ([]string, error)
	ListYears(ctx context.Context, leagueID string) ([]int, error)
	CreateLeague(ctx context.Context, meta league.League) error
	LeagueExists(ctx context.Context, leagueID string) bool
}

// mapStoreErr folds the store error family into the usecase sentinels so
// handlers only deal with one taxonomy.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrUnknownLeague):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrLeagueExists):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, store.ErrInvalidDocName):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
}
