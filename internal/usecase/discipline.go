package usecase

import (
	"context"
	"fmt"

	"github.com/leagr/leagr/internal/domain/discipline"
	"github.com/leagr/leagr/internal/domain/settings"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/logging"
)

// DisciplineService maintains the per-league no-show ledger. Player names
// are document keys, so every mutation goes through a full-tree Update
// rather than dotted-path ops.
type DisciplineService struct {
	store DocumentStore
	log   *logging.Logger
}

func NewDisciplineService(store DocumentStore, log *logging.Logger) *DisciplineService {
	if log == nil {
		log = logging.NewNop()
	}
	return &DisciplineService{store: store, log: log}
}

// List returns the full ledger of the league.
func (s *DisciplineService) List(ctx context.Context, leagueID string) (map[string]discipline.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "DisciplineService.List")
	defer span.End()

	tree, err := s.store.ReadDoc(ctx, leagueID, store.DocDiscipline)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	records, err := remap[map[string]discipline.Record](tree)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = map[string]discipline.Record{}
	}
	return records, nil
}

// RecordNoShow marks a player as absent for a session date.
func (s *DisciplineService) RecordNoShow(ctx context.Context, leagueID, name, date string) (discipline.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "DisciplineService.RecordNoShow")
	defer span.End()

	player, err := validate.PlayerName(name)
	if err != nil {
		return discipline.Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validate.SessionDate(date); err != nil {
		return discipline.Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var out discipline.Record
	err = s.store.Update(ctx, leagueID, store.DocDiscipline, func(tree map[string]any) (map[string]any, error) {
		rec, err := remap[discipline.Record](tree[player])
		if err != nil {
			return nil, err
		}
		rec.RecordNoShow(date)
		out = rec
		tree[player] = rec
		return tree, nil
	})
	if err != nil {
		return discipline.Record{}, mapStoreErr(err)
	}

	s.log.InfoContext(ctx, "no-show recorded", "league", leagueID, "player", player, "date", date)
	return out, nil
}

// EvaluateOnSignup runs the suspension check for a signup attempt. A fresh
// suspension is persisted; the caller blocks the signup when Suspended is
// set.
func (s *DisciplineService) EvaluateOnSignup(ctx context.Context, leagueID, name, date string, cfg settings.Discipline) (discipline.SignupResult, error) {
	ctx, span := startUsecaseSpan(ctx, "DisciplineService.EvaluateOnSignup")
	defer span.End()

	if !cfg.Enabled {
		return discipline.SignupResult{}, nil
	}

	tree, err := s.store.ReadDoc(ctx, leagueID, store.DocDiscipline)
	if err != nil {
		return discipline.SignupResult{}, mapStoreErr(err)
	}
	probe, err := remap[discipline.Record](tree[name])
	if err != nil {
		return discipline.SignupResult{}, err
	}

	result := probe.EvaluateOnSignup(date, true, cfg.NoShowThreshold)
	if !result.NewSuspension {
		return result, nil
	}

	// Persist the fresh suspension. The re-evaluation inside the write lock
	// keeps the operation idempotent under races.
	err = s.store.Update(ctx, leagueID, store.DocDiscipline, func(tree map[string]any) (map[string]any, error) {
		rec, err := remap[discipline.Record](tree[name])
		if err != nil {
			return nil, err
		}
		result = rec.EvaluateOnSignup(date, true, cfg.NoShowThreshold)
		tree[name] = rec
		return tree, nil
	})
	if err != nil {
		return discipline.SignupResult{}, mapStoreErr(err)
	}

	s.log.InfoContext(ctx, "signup suspended", "league", leagueID, "player", name, "date", date, "reason", result.Reason)
	return result, nil
}

// ClearForParticipants clears active no-shows for every player who appeared
// on the given date. No-op when nobody has anything to clear.
func (s *DisciplineService) ClearForParticipants(ctx context.Context, leagueID string, names []string, date string) error {
	ctx, span := startUsecaseSpan(ctx, "DisciplineService.ClearForParticipants")
	defer span.End()

	if len(names) == 0 {
		return nil
	}

	tree, err := s.store.ReadDoc(ctx, leagueID, store.DocDiscipline)
	if err != nil {
		return mapStoreErr(err)
	}
	dirty := false
	for _, name := range names {
		rec, err := remap[discipline.Record](tree[name])
		if err != nil {
			return err
		}
		if rec.ClearIfAppeared(date) {
			dirty = true
			break
		}
	}
	if !dirty {
		return nil
	}

	err = s.store.Update(ctx, leagueID, store.DocDiscipline, func(tree map[string]any) (map[string]any, error) {
		for _, name := range names {
			rec, err := remap[discipline.Record](tree[name])
			if err != nil {
				return nil, err
			}
			if rec.ClearIfAppeared(date) {
				tree[name] = rec
			}
		}
		return tree, nil
	})
	return mapStoreErr(err)
}
