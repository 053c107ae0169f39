// Package store persists per-league JSON documents under a data directory:
// one document per session date plus the stable documents (settings,
// discipline, player owners, rankings per year). Writes are atomic via
// temp-file + rename and serialized per document; reads go through a
// byte-level cache unless polling mode disables it.
package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/platform/logging"
)

// Stable document names.
const (
	DocLeague       = "leagues"
	DocSettings     = "settings"
	DocPlayerOwners = "playerOwners"
	DocDiscipline   = "discipline"
)

var (
	sessionDocPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	rankingsDocPattern = regexp.MustCompile(`^rankings-(\d{4})$`)

	storeTracer   = otel.Tracer("leagr/internal/infrastructure/store")
	storeNoopSpan = trace.SpanFromContext(context.Background())
)

func startStoreSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, storeNoopSpan
	}
	return storeTracer.Start(ctx, name)
}

// RankingsDoc names the yearly rankings document.
func RankingsDoc(year int) string {
	return "rankings-" + strconv.Itoa(year)
}

// WriteHook observes committed writes: which document changed and which
// top-level dotted keys were touched. Used for cache invalidation.
type WriteHook func(leagueID, doc string, keys []string)

// Store is the per-league document store.
type Store struct {
	dataDir   string
	polling   bool
	logger    *logging.Logger
	writeHook WriteHook

	locks sync.Map // "league/doc" -> *sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string][]byte // raw document bytes keyed "league/doc"
}

func New(dataDir string, polling bool, logger *logging.Logger) (*Store, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, crerr.Wrap(ErrIO, "data dir is empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, crerr.Wrapf(ErrIO, "create data dir: %v", err)
	}

	return &Store{
		dataDir: dataDir,
		polling: polling,
		logger:  logger,
		cache:   make(map[string][]byte),
	}, nil
}

// SetWriteHook installs the hook invoked after every committed write.
func (s *Store) SetWriteHook(hook WriteHook) {
	s.writeHook = hook
}

// CreateLeague provisions the league directory and its metadata document.
func (s *Store) CreateLeague(ctx context.Context, meta league.League) error {
	ctx, span := startStoreSpan(ctx, "store.CreateLeague")
	defer span.End()

	dir := filepath.Join(s.dataDir, meta.ID)
	if _, err := os.Stat(dir); err == nil {
		return crerr.Wrapf(ErrLeagueExists, "league %q", meta.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return crerr.Wrapf(ErrIO, "create league dir: %v", err)
	}

	raw, err := sonic.Marshal(meta)
	if err != nil {
		return crerr.Wrapf(ErrIO, "encode league metadata: %v", err)
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return crerr.Wrapf(ErrIO, "reshape league metadata: %v", err)
	}

	return s.writeDoc(ctx, meta.ID, DocLeague, doc, []string{"id"})
}

// LeagueExists reports whether a league directory is present.
func (s *Store) LeagueExists(ctx context.Context, leagueID string) bool {
	_, span := startStoreSpan(ctx, "store.LeagueExists")
	defer span.End()

	info, err := os.Stat(filepath.Join(s.dataDir, leagueID))
	return err == nil && info.IsDir()
}

// ReadDoc loads a full document as a raw tree. A missing document decodes
// to an empty tree so first writes do not need a create step.
func (s *Store) ReadDoc(ctx context.Context, leagueID, doc string) (map[string]any, error) {
	ctx, span := startStoreSpan(ctx, "store.ReadDoc")
	defer span.End()

	if err := s.checkTarget(leagueID, doc); err != nil {
		return nil, err
	}

	raw, err := s.readRaw(ctx, leagueID, doc)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]any{}, nil
	}

	var tree map[string]any
	if err := sonic.Unmarshal(raw, &tree); err != nil {
		return nil, crerr.Wrapf(ErrCorruptDocument, "%s/%s: %v", leagueID, doc, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// Get reads one dotted-path value from a document. Absent paths return nil.
func (s *Store) Get(ctx context.Context, leagueID, doc, key string) (any, error) {
	ctx, span := startStoreSpan(ctx, "store.Get")
	defer span.End()

	tree, err := s.ReadDoc(ctx, leagueID, doc)
	if err != nil {
		return nil, err
	}
	value, ok := getPath(tree, key)
	if !ok {
		return nil, nil
	}
	return value, nil
}

// Set applies a single op; a convenience wrapper over SetMany.
func (s *Store) Set(ctx context.Context, leagueID, doc string, op Op) error {
	return s.SetMany(ctx, leagueID, doc, []Op{op})
}

// SetMany is the atomic primitive: the document is loaded once, every op is
// applied in order against the in-memory copy, and the result is written
// through a temp file + rename. On any failure the stored document is
// untouched.
func (s *Store) SetMany(ctx context.Context, leagueID, doc string, ops []Op) error {
	ctx, span := startStoreSpan(ctx, "store.SetMany")
	defer span.End()

	if len(ops) == 0 {
		return nil
	}
	if err := s.checkTarget(leagueID, doc); err != nil {
		return err
	}

	lock := s.lockFor(leagueID, doc)
	lock.Lock()
	defer lock.Unlock()

	tree, err := s.readTreeLocked(ctx, leagueID, doc)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ops))
	for _, op := range ops {
		if err := applyOp(tree, op); err != nil {
			return err
		}
		keys = append(keys, op.Key)
	}

	return s.writeDoc(ctx, leagueID, doc, tree, keys)
}

// Update runs a read-modify-write closure under the document lock. The
// closure receives the current tree and returns the full replacement.
func (s *Store) Update(ctx context.Context, leagueID, doc string, fn func(map[string]any) (map[string]any, error)) error {
	ctx, span := startStoreSpan(ctx, "store.Update")
	defer span.End()

	if err := s.checkTarget(leagueID, doc); err != nil {
		return err
	}

	lock := s.lockFor(leagueID, doc)
	lock.Lock()
	defer lock.Unlock()

	tree, err := s.readTreeLocked(ctx, leagueID, doc)
	if err != nil {
		return err
	}

	next, err := fn(tree)
	if err != nil {
		return err
	}

	return s.writeDoc(ctx, leagueID, doc, next, nil)
}

// ListSessionDates returns the session document dates of a league in
// ascending order.
func (s *Store) ListSessionDates(ctx context.Context, leagueID string) ([]string, error) {
	ctx, span := startStoreSpan(ctx, "store.ListSessionDates")
	defer span.End()

	entries, err := s.listDocs(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(entries))
	for _, name := range entries {
		if sessionDocPattern.MatchString(name) {
			dates = append(dates, name)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// ListYears returns the years with a rankings document, ascending.
func (s *Store) ListYears(ctx context.Context, leagueID string) ([]int, error) {
	ctx, span := startStoreSpan(ctx, "store.ListYears")
	defer span.End()

	entries, err := s.listDocs(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	years := make([]int, 0, len(entries))
	for _, name := range entries {
		if m := rankingsDocPattern.FindStringSubmatch(name); m != nil {
			year, convErr := strconv.Atoi(m[1])
			if convErr != nil {
				continue
			}
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (s *Store) listDocs(_ context.Context, leagueID string) ([]string, error) {
	dir := filepath.Join(s.dataDir, leagueID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, crerr.Wrapf(ErrUnknownLeague, "%q", leagueID)
		}
		return nil, crerr.Wrapf(ErrIO, "list league dir: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

func (s *Store) checkTarget(leagueID, doc string) error {
	if !s.LeagueExists(context.Background(), leagueID) {
		return crerr.Wrapf(ErrUnknownLeague, "%q", leagueID)
	}
	if !validDocName(doc) {
		return crerr.Wrapf(ErrInvalidDocName, "%q", doc)
	}
	return nil
}

func validDocName(doc string) bool {
	switch doc {
	case DocLeague, DocSettings, DocPlayerOwners, DocDiscipline:
		return true
	}
	return sessionDocPattern.MatchString(doc) || rankingsDocPattern.MatchString(doc)
}

func (s *Store) lockFor(leagueID, doc string) *sync.Mutex {
	key := leagueID + "/" + doc
	if lock, ok := s.locks.Load(key); ok {
		return lock.(*sync.Mutex)
	}
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *Store) docPath(leagueID, doc string) string {
	return filepath.Join(s.dataDir, leagueID, doc+".json")
}

// readRaw returns document bytes, from cache when enabled. nil means the
// document does not exist yet. Decoding per read keeps callers isolated
// from each other even on cache hits.
func (s *Store) readRaw(_ context.Context, leagueID, doc string) ([]byte, error) {
	key := leagueID + "/" + doc

	if !s.polling {
		s.cacheMu.RLock()
		cached, ok := s.cache[key]
		s.cacheMu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	raw, err := os.ReadFile(s.docPath(leagueID, doc))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, crerr.Wrapf(ErrIO, "read %s/%s: %v", leagueID, doc, err)
	}

	if !s.polling {
		s.cacheMu.Lock()
		s.cache[key] = raw
		s.cacheMu.Unlock()
	}

	return raw, nil
}

func (s *Store) readTreeLocked(ctx context.Context, leagueID, doc string) (map[string]any, error) {
	raw, err := s.readRaw(ctx, leagueID, doc)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	var tree map[string]any
	if err := sonic.Unmarshal(raw, &tree); err != nil {
		return nil, crerr.Wrapf(ErrCorruptDocument, "%s/%s: %v", leagueID, doc, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// writeDoc encodes and commits a document atomically, refreshes the read
// cache, and fires the write hook.
func (s *Store) writeDoc(ctx context.Context, leagueID, doc string, tree map[string]any, keys []string) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	encoded, err := sonic.Marshal(tree)
	if err != nil {
		return crerr.Wrapf(ErrIO, "encode %s/%s: %v", leagueID, doc, err)
	}
	if _, err := buf.Write(encoded); err != nil {
		return crerr.Wrapf(ErrIO, "buffer %s/%s: %v", leagueID, doc, err)
	}

	target := s.docPath(leagueID, doc)
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+doc+".*.tmp")
	if err != nil {
		return crerr.Wrapf(ErrIO, "create temp for %s/%s: %v", leagueID, doc, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return crerr.Wrapf(ErrIO, "write temp for %s/%s: %v", leagueID, doc, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return crerr.Wrapf(ErrIO, "close temp for %s/%s: %v", leagueID, doc, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return crerr.Wrapf(ErrIO, "rename %s/%s: %v", leagueID, doc, err)
	}

	key := leagueID + "/" + doc
	s.cacheMu.Lock()
	if s.polling {
		delete(s.cache, key)
	} else {
		s.cache[key] = append([]byte(nil), buf.Bytes()...)
	}
	s.cacheMu.Unlock()

	s.logger.DebugContext(ctx, "document written", "league", leagueID, "doc", doc, "keys", keys)

	if s.writeHook != nil {
		s.writeHook(leagueID, doc, keys)
	}

	return nil
}
