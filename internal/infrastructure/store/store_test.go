package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/platform/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), false, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.CreateLeague(context.Background(), league.League{
		ID:          "monday",
		DisplayName: "Monday Crew",
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateLeague: %v", err)
	}
	return s
}

func TestCreateLeagueAndExists(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if !s.LeagueExists(ctx, "monday") {
		t.Fatalf("league must exist after create")
	}
	if s.LeagueExists(ctx, "nope") {
		t.Fatalf("unknown league must not exist")
	}

	err := s.CreateLeague(ctx, league.League{ID: "monday"})
	if !errors.Is(err, ErrLeagueExists) {
		t.Fatalf("expected ErrLeagueExists, got %v", err)
	}

	name, err := s.Get(ctx, "monday", DocLeague, "displayName")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if name != "Monday Crew" {
		t.Fatalf("displayName = %v", name)
	}
}

func TestSetManyDottedPaths(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	err := s.SetMany(ctx, "monday", "2025-01-13", []Op{
		{Key: "players.available", Value: "Alice", Default: []any{}},
		{Key: "players.waitingList", Default: []any{}},
		{Key: "settings.playerLimit", Value: 10, Overwrite: true},
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	// Append semantics without overwrite.
	if err := s.Set(ctx, "monday", "2025-01-13", Op{Key: "players.available", Value: "Bob"}); err != nil {
		t.Fatalf("Set append: %v", err)
	}

	value, err := s.Get(ctx, "monday", "2025-01-13", "players.available")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(value, []any{"Alice", "Bob"}) {
		t.Fatalf("available = %v", value)
	}

	// Shallow merge for objects without overwrite.
	if err := s.Set(ctx, "monday", "2025-01-13", Op{Key: "settings", Value: map[string]any{"noShowThreshold": 3}}); err != nil {
		t.Fatalf("Set merge: %v", err)
	}
	tree, err := s.ReadDoc(ctx, "monday", "2025-01-13")
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	got := tree["settings"].(map[string]any)
	if got["noShowThreshold"] != float64(3) {
		t.Fatalf("merged key missing: %v", got)
	}
	if _, ok := got["playerLimit"]; !ok {
		t.Fatalf("merge must keep existing keys: %v", got)
	}
}

func TestSetManyAtomicOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "monday", "2025-01-13", Op{Key: "meta.note", Value: "v1", Overwrite: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Second op walks through a scalar and must fail; the first op's change
	// must not be persisted.
	err := s.SetMany(ctx, "monday", "2025-01-13", []Op{
		{Key: "meta.note", Value: "v2", Overwrite: true},
		{Key: "meta.note.deeper", Value: 1, Overwrite: true},
	})
	if !errors.Is(err, ErrInvalidDocName) {
		t.Fatalf("expected ErrInvalidDocName, got %v", err)
	}

	value, err := s.Get(ctx, "monday", "2025-01-13", "meta.note")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "v1" {
		t.Fatalf("failed batch must leave document untouched, got %v", value)
	}
}

func TestUnknownKeysRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(s.dataDir, "monday", "2025-01-13.json")
	seed := []byte(`{"players":{"available":[]},"futureFeature":{"flag":true}}`)
	if err := os.WriteFile(path, seed, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := s.Set(ctx, "monday", "2025-01-13", Op{Key: "players.available", Value: "Alice"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tree, err := s.ReadDoc(ctx, "monday", "2025-01-13")
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	future, ok := tree["futureFeature"].(map[string]any)
	if !ok || future["flag"] != true {
		t.Fatalf("unknown keys must round-trip, got %v", tree)
	}
}

func TestReadDocReturnsIsolatedCopies(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "monday", "2025-01-13", Op{Key: "players.available", Value: []any{"Alice"}, Overwrite: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	first, err := s.ReadDoc(ctx, "monday", "2025-01-13")
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	first["players"].(map[string]any)["available"] = []any{"Mallory"}

	second, err := s.ReadDoc(ctx, "monday", "2025-01-13")
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	if got := second["players"].(map[string]any)["available"]; !reflect.DeepEqual(got, []any{"Alice"}) {
		t.Fatalf("cached reads must be isolated, got %v", got)
	}
}

func TestInvalidTargets(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "ghost", "2025-01-13", Op{Key: "a", Value: 1}); !errors.Is(err, ErrUnknownLeague) {
		t.Fatalf("expected ErrUnknownLeague, got %v", err)
	}
	if err := s.Set(ctx, "monday", "13-01-2025", Op{Key: "a", Value: 1}); !errors.Is(err, ErrInvalidDocName) {
		t.Fatalf("expected ErrInvalidDocName, got %v", err)
	}
	if err := s.Set(ctx, "monday", "../escape", Op{Key: "a", Value: 1}); !errors.Is(err, ErrInvalidDocName) {
		t.Fatalf("expected ErrInvalidDocName for traversal, got %v", err)
	}
}

func TestCorruptDocument(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(s.dataDir, "monday", "2025-01-13.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := s.ReadDoc(ctx, "monday", "2025-01-13"); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestListSessionDatesAndYears(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, doc := range []string{"2025-02-03", "2025-01-13", "rankings-2025", "rankings-2024"} {
		if err := s.Set(ctx, "monday", doc, Op{Key: "seeded", Value: true, Overwrite: true}); err != nil {
			t.Fatalf("seed %s: %v", doc, err)
		}
	}

	dates, err := s.ListSessionDates(ctx, "monday")
	if err != nil {
		t.Fatalf("ListSessionDates: %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2025-01-13", "2025-02-03"}) {
		t.Fatalf("dates = %v", dates)
	}

	years, err := s.ListYears(ctx, "monday")
	if err != nil {
		t.Fatalf("ListYears: %v", err)
	}
	if !reflect.DeepEqual(years, []int{2024, 2025}) {
		t.Fatalf("years = %v", years)
	}
}

func TestUpdateClosureFailureLeavesDocument(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "monday", DocDiscipline, Op{Key: "P.totalSuspensions", Value: 1, Overwrite: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := s.Update(ctx, "monday", DocDiscipline, func(tree map[string]any) (map[string]any, error) {
		tree["P"] = "clobbered"
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}

	value, err := s.Get(ctx, "monday", DocDiscipline, "P.totalSuspensions")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != float64(1) && value != 1 {
		t.Fatalf("failed update must not persist, got %v", value)
	}
}

func TestWriteHookFires(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var gotDoc string
	var gotKeys []string
	s.SetWriteHook(func(leagueID, doc string, keys []string) {
		mu.Lock()
		defer mu.Unlock()
		gotDoc = leagueID + "/" + doc
		gotKeys = keys
	})

	if err := s.Set(ctx, "monday", "2025-01-13", Op{Key: "settings.playerLimit", Value: 12, Overwrite: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotDoc != "monday/2025-01-13" {
		t.Fatalf("hook doc = %q", gotDoc)
	}
	if !reflect.DeepEqual(gotKeys, []string{"settings.playerLimit"}) {
		t.Fatalf("hook keys = %v", gotKeys)
	}
}

func TestConcurrentWritersDistinctDocs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	docs := []string{"2025-01-13", "2025-01-20", "2025-01-27"}
	for _, doc := range docs {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(doc string, i int) {
				defer wg.Done()
				err := s.Set(ctx, "monday", doc, Op{Key: "players.available", Value: i, Default: []any{}})
				if err != nil {
					t.Errorf("Set %s: %v", doc, err)
				}
			}(doc, i)
		}
	}
	wg.Wait()

	for _, doc := range docs {
		value, err := s.Get(ctx, "monday", doc, "players.available")
		if err != nil {
			t.Fatalf("Get %s: %v", doc, err)
		}
		items, ok := value.([]any)
		if !ok || len(items) != 10 {
			t.Fatalf("doc %s lost writes: %v", doc, value)
		}
	}
}
