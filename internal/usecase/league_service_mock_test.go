package usecase

import (
	"context"
	"errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/mock"

	"github.com/leagr/leagr/internal/domain/league"
	"github.com/leagr/leagr/internal/infrastructure/store"
	"github.com/leagr/leagr/internal/platform/logging"
)

// storeMock is a hand-written testify double for DocumentStore, used where
// a test needs to inject store failures the real store will not produce.
type storeMock struct {
	mock.Mock
}

func newStoreMock(t *testing.T) *storeMock {
	t.Helper()
	m := &storeMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *storeMock) ReadDoc(ctx context.Context, leagueID, doc string) (map[string]any, error) {
	args := m.Called(ctx, leagueID, doc)
	tree, _ := args.Get(0).(map[string]any)
	return tree, args.Error(1)
}

func (m *storeMock) Get(ctx context.Context, leagueID, doc, key string) (any, error) {
	args := m.Called(ctx, leagueID, doc, key)
	return args.Get(0), args.Error(1)
}

func (m *storeMock) Set(ctx context.Context, leagueID, doc string, op store.Op) error {
	return m.Called(ctx, leagueID, doc, op).Error(0)
}

func (m *storeMock) SetMany(ctx context.Context, leagueID, doc string, ops []store.Op) error {
	return m.Called(ctx, leagueID, doc, ops).Error(0)
}

func (m *storeMock) Update(ctx context.Context, leagueID, doc string, fn func(map[string]any) (map[string]any, error)) error {
	return m.Called(ctx, leagueID, doc, fn).Error(0)
}

func (m *storeMock) ListSessionDates(ctx context.Context, leagueID string) ([]string, error) {
	args := m.Called(ctx, leagueID)
	dates, _ := args.Get(0).([]string)
	return dates, args.Error(1)
}

func (m *storeMock) ListYears(ctx context.Context, leagueID string) ([]int, error) {
	args := m.Called(ctx, leagueID)
	years, _ := args.Get(0).([]int)
	return years, args.Error(1)
}

func (m *storeMock) CreateLeague(ctx context.Context, meta league.League) error {
	return m.Called(ctx, meta).Error(0)
}

func (m *storeMock) LeagueExists(ctx context.Context, leagueID string) bool {
	return m.Called(ctx, leagueID).Bool(0)
}

func TestLeagueService_Get_StoreFailureUsingMock(t *testing.T) {
	t.Parallel()

	st := newStoreMock(t)
	service := NewLeagueService(st, logging.NewNop())

	st.On("LeagueExists", mock.Anything, "monday").Return(true).Once()
	st.On("ReadDoc", mock.Anything, "monday", store.DocLeague).
		Return(nil, crerr.New("disk gone")).
		Once()

	_, err := service.Get(context.Background(), "monday")
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestLeagueService_Get_UnknownLeagueUsingMock(t *testing.T) {
	t.Parallel()

	st := newStoreMock(t)
	service := NewLeagueService(st, logging.NewNop())

	// The existence check fails first; the document is never read.
	st.On("LeagueExists", mock.Anything, "ghost").Return(false).Once()

	_, err := service.Get(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	st.AssertNotCalled(t, "ReadDoc", mock.Anything, "ghost", store.DocLeague)
}
