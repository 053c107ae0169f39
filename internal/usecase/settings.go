package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leagr/leagr/internal/domain/settings"
	"github.com/leagr/leagr/internal/domain/validate"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/cache"
	"github.com/leagr/leagr/internal/platform/logging"
)

const settingsKeySep = "|"

// SettingsService resolves effective settings per (league, date) behind a
// TTL cache and applies league-wide and per-session updates. Installed as
// the store write hook, it drops cached entries touched by a write so a
// polling deployment converges without restarts.
type SettingsService struct {
	store DocumentStore
	cache *cache.Store
	log   *logging.Logger
}

func NewSettingsService(store DocumentStore, ttl time.Duration, log *logging.Logger) *SettingsService {
	if log == nil {
		log = logging.NewNop()
	}
	return &SettingsService{
		store: store,
		cache: cache.NewStore(ttl),
		log:   log,
	}
}

// Effective resolves the merged settings for a league and session date. An
// empty date resolves the league-wide view. The returned value is isolated
// from the cache; callers may mutate Raw freely.
func (s *SettingsService) Effective(ctx context.Context, leagueID, date string) (settings.Effective, error) {
	ctx, span := startUsecaseSpan(ctx, "SettingsService.Effective")
	defer span.End()

	if date != "" {
		if err := validate.SessionDate(date); err != nil {
			return settings.Effective{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	key := leagueID + settingsKeySep + date
	value, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		leagueWide, err := s.store.ReadDoc(ctx, leagueID, store.DocSettings)
		if err != nil {
			return nil, mapStoreErr(err)
		}
		var override map[string]any
		if date != "" {
			raw, err := s.store.Get(ctx, leagueID, date, "settings")
			if err != nil {
				return nil, mapStoreErr(err)
			}
			if m, ok := raw.(map[string]any); ok {
				override = m
			}
		}
		return settings.Resolve(leagueWide, override).Raw, nil
	})
	if err != nil {
		return settings.Effective{}, err
	}

	merged, err := remap[map[string]any](value)
	if err != nil {
		return settings.Effective{}, err
	}
	return settings.Resolve(merged, nil), nil
}

// League returns the raw league-wide settings document.
func (s *SettingsService) League(ctx context.Context, leagueID string) (map[string]any, error) {
	ctx, span := startUsecaseSpan(ctx, "SettingsService.League")
	defer span.End()

	tree, err := s.store.ReadDoc(ctx, leagueID, store.DocSettings)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return tree, nil
}

// UpdateLeague merges a patch into the league-wide settings document. A nil
// value deletes the key. Returns the updated document.
func (s *SettingsService) UpdateLeague(ctx context.Context, leagueID string, patch map[string]any) (map[string]any, error) {
	ctx, span := startUsecaseSpan(ctx, "SettingsService.UpdateLeague")
	defer span.End()

	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: empty settings patch", ErrInvalidInput)
	}

	err := s.store.Update(ctx, leagueID, store.DocSettings, func(tree map[string]any) (map[string]any, error) {
		for k, v := range patch {
			if v == nil {
				delete(tree, k)
				continue
			}
			tree[k] = v
		}
		return tree, nil
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return s.League(ctx, leagueID)
}

// UpdateSession writes per-session overrides onto a session document.
func (s *SettingsService) UpdateSession(ctx context.Context, leagueID, date string, patch map[string]any) error {
	ctx, span := startUsecaseSpan(ctx, "SettingsService.UpdateSession")
	defer span.End()

	if err := validate.SessionDate(date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty settings patch", ErrInvalidInput)
	}

	ops := make([]store.Op, 0, len(patch))
	for k, v := range patch {
		ops = append(ops, store.Op{Key: "settings." + k, Value: v, Overwrite: true})
	}
	return mapStoreErr(s.store.SetMany(ctx, leagueID, date, ops))
}

// InvalidateOnWrite is the store write hook. League-wide settings writes
// flush every cached date of the league; a session write only flushes its
// own date, and only when it touched the settings subtree.
func (s *SettingsService) InvalidateOnWrite(leagueID, doc string, keys []string) {
	ctx := context.Background()
	if doc == store.DocSettings {
		s.cache.DeletePrefix(ctx, leagueID+settingsKeySep)
		return
	}
	for _, key := range keys {
		if key == "settings" || strings.HasPrefix(key, "settings.") {
			s.cache.Delete(ctx, leagueID+settingsKeySep+doc)
			return
		}
	}
}
