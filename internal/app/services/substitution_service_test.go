package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/substitutions/internal/app/repositories"
	"github.com/yigit/substitutions/internal/domain"
	"github.com/yigit/substitutions/internal/pkg/apperrors"
	"github.com/yigit/substitutions/internal/pkg/source"
)

type loadFunc func(ctx context.Context) (*repositories.LoadResult, error)

func (f loadFunc) Load(ctx context.Context) (*repositories.LoadResult, error) { return f(ctx) }

func staticLoader(rules ...domain.Substitution) loadFunc {
	return func(context.Context) (*repositories.LoadResult, error) {
		return &repositories.LoadResult{Rules: rules, Received: len(rules)}, nil
	}
}

func failingLoader(err error) loadFunc {
	return func(context.Context) (*repositories.LoadResult, error) { return nil, err }
}

func testRule(id, sub, orig int64) domain.Substitution {
	return domain.Substitution{
		ID:                id,
		SubstituteCourses: []domain.Course{{ID: sub, Code: fmt.Sprintf("C%d", sub)}},
		OriginalCourses:   []domain.Course{{ID: orig, Code: fmt.Sprintf("C%d", orig)}},
	}
}

func newTestService(loader RuleLoader) SubstitutionService {
	return NewSubstitutionService(loader, domain.KeyStyleCanonical, time.Second, zerolog.Nop())
}

func TestInitialSnapshotIsEmptyLoading(t *testing.T) {
	svc := newTestService(staticLoader())
	defer svc.Close()

	snap := svc.Snapshot()
	assert.Equal(t, StatusLoading, snap.Status)
	assert.NotNil(t, snap.Relations)
	assert.Empty(t, snap.Relations)
}

func TestRefreshMergesRules(t *testing.T) {
	svc := newTestService(staticLoader(testRule(1, 10, 20), testRule(2, 20, 10), testRule(3, 30, 40)))
	defer svc.Close()

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, snap.Status)
	require.Len(t, snap.Relations, 2)
	assert.True(t, snap.Relations[0].Interchangeable())
	assert.False(t, snap.Relations[1].Interchangeable())
	assert.Equal(t, 3, snap.Received)
	assert.False(t, snap.FetchedAt.IsZero())

	assert.Equal(t, snap.Relations, svc.Snapshot().Relations)
}

func TestRefreshEmptyData(t *testing.T) {
	svc := newTestService(staticLoader())
	defer svc.Close()

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, snap.Status)
	assert.Equal(t, MessageEmpty, snap.Message)
	assert.Empty(t, snap.Relations)
}

func TestRefreshFailureFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"network", fmt.Errorf("%w: connection refused", apperrors.ErrSourceUnavailable), MessageUnavailable},
		{"payload", fmt.Errorf("%w: not an array", apperrors.ErrInvalidPayload), MessageMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			loader := loadFunc(func(ctx context.Context) (*repositories.LoadResult, error) {
				calls++
				if calls == 1 {
					return staticLoader(testRule(1, 1, 2))(ctx)
				}
				return nil, tt.err
			})
			svc := newTestService(loader)
			defer svc.Close()

			_, err := svc.Refresh(context.Background())
			require.NoError(t, err)
			require.Len(t, svc.Snapshot().Relations, 1)

			snap, err := svc.Refresh(context.Background())
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, StatusError, snap.Status)
			assert.Equal(t, tt.message, snap.Message)
			assert.Empty(t, svc.Snapshot().Relations)
			assert.Equal(t, StatusError, svc.Snapshot().Status)
		})
	}
}

func TestRefreshTimeoutPublishesErrorState(t *testing.T) {
	loader := loadFunc(func(ctx context.Context) (*repositories.LoadResult, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, ctx.Err())
	})
	svc := NewSubstitutionService(loader, domain.KeyStyleCanonical, 50*time.Millisecond, zerolog.Nop())
	defer svc.Close()

	snap, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusError, snap.Status)

	current := svc.Snapshot()
	assert.Equal(t, StatusError, current.Status)
	assert.Equal(t, MessageUnavailable, current.Message)
	assert.Empty(t, current.Relations)
}

func TestUnresponsiveHTTPSourcePublishesErrorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	timeout := 100 * time.Millisecond
	repo := repositories.NewSubstitutionRepository(source.NewHTTPSource(srv.URL, timeout, 1<<20), zerolog.Nop())
	svc := NewSubstitutionService(repo, domain.KeyStyleCanonical, timeout, zerolog.Nop())
	defer svc.Close()

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)

	current := svc.Snapshot()
	assert.Equal(t, StatusError, current.Status)
	assert.Equal(t, MessageUnavailable, current.Message)
}

func TestRefreshAfterCloseIsRejected(t *testing.T) {
	svc := newTestService(staticLoader(testRule(1, 1, 2)))
	svc.Close()

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrServiceClosed)
	assert.Equal(t, StatusLoading, svc.Snapshot().Status)
}

func TestCloseDiscardsInFlightRefresh(t *testing.T) {
	entered := make(chan struct{})
	loader := loadFunc(func(ctx context.Context) (*repositories.LoadResult, error) {
		close(entered)
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, ctx.Err())
	})
	svc := newTestService(loader)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background())
		done <- err
	}()

	<-entered
	svc.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not canceled by Close")
	}
	assert.Equal(t, StatusLoading, svc.Snapshot().Status)
}

func TestCanceledCallerContextDiscardsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := loadFunc(func(context.Context) (*repositories.LoadResult, error) {
		cancel()
		return &repositories.LoadResult{Rules: []domain.Substitution{testRule(1, 1, 2)}, Received: 1}, nil
	})
	svc := newTestService(loader)
	defer svc.Close()

	_, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusLoading, svc.Snapshot().Status)
}

func TestStaleRefreshDoesNotOverwriteNewer(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	releaseSlow := make(chan struct{})
	slowEntered := make(chan struct{})

	loader := loadFunc(func(ctx context.Context) (*repositories.LoadResult, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			close(slowEntered)
			<-releaseSlow
			return &repositories.LoadResult{Rules: []domain.Substitution{testRule(1, 1, 2)}, Received: 1}, nil
		}
		return &repositories.LoadResult{Rules: []domain.Substitution{testRule(9, 8, 7)}, Received: 1}, nil
	})
	svc := NewSubstitutionService(loader, domain.KeyStyleCanonical, 0, zerolog.Nop())
	defer svc.Close()

	slowDone := make(chan error, 1)
	slowSnap := make(chan Snapshot, 1)
	go func() {
		snap, err := svc.Refresh(context.Background())
		slowSnap <- snap
		slowDone <- err
	}()
	<-slowEntered

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	close(releaseSlow)
	stale := <-slowSnap
	assert.NoError(t, <-slowDone)
	require.Len(t, stale.Relations, 1)
	assert.Equal(t, int64(9), stale.Relations[0].ID())

	snap := svc.Snapshot()
	require.Len(t, snap.Relations, 1)
	assert.Equal(t, int64(9), snap.Relations[0].ID())
}

func TestListFilter(t *testing.T) {
	svc := newTestService(staticLoader(testRule(1, 10, 20), testRule(2, 20, 10), testRule(3, 30, 40)))
	defer svc.Close()
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	yes, no := true, false
	assert.Len(t, svc.List(ListFilter{}), 2)

	both := svc.List(ListFilter{Interchangeable: &yes})
	require.Len(t, both, 1)
	assert.Equal(t, int64(1), both[0].ID())

	one := svc.List(ListFilter{Interchangeable: &no})
	require.Len(t, one, 1)
	assert.Equal(t, int64(3), one[0].ID())
}

func TestFindByID(t *testing.T) {
	svc := newTestService(staticLoader(testRule(1, 10, 20), testRule(2, 20, 10)))
	defer svc.Close()
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	rel, err := svc.FindByID(1)
	require.NoError(t, err)
	assert.True(t, rel.Interchangeable())

	_, err = svc.FindByID(2)
	assert.ErrorIs(t, err, apperrors.ErrRelationNotFound)

	_, err = svc.FindByID(0)
	assert.ErrorIs(t, err, apperrors.ErrRelationNotFound)
}

func TestFindByIDAcceptsNonPositiveIDs(t *testing.T) {
	svc := newTestService(staticLoader(testRule(0, 10, 20), testRule(-3, 30, 40)))
	defer svc.Close()
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	rel, err := svc.FindByID(0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rel.ID())

	rel, err = svc.FindByID(-3)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), rel.ID())
}

type manualNotifier struct {
	trigger chan struct{}
}

func (n *manualNotifier) Run(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.trigger:
			onChange()
		}
	}
}

func TestWatchRefreshesOnChange(t *testing.T) {
	var mu sync.Mutex
	rules := []domain.Substitution{testRule(1, 1, 2)}
	loader := loadFunc(func(context.Context) (*repositories.LoadResult, error) {
		mu.Lock()
		defer mu.Unlock()
		return &repositories.LoadResult{Rules: rules, Received: len(rules)}, nil
	})
	svc := newTestService(loader)

	notifier := &manualNotifier{trigger: make(chan struct{})}
	done := make(chan error, 1)
	go func() { done <- svc.Watch(context.Background(), notifier) }()

	mu.Lock()
	rules = append(rules, testRule(2, 2, 1))
	mu.Unlock()
	notifier.trigger <- struct{}{}

	assert.Eventually(t, func() bool {
		snap := svc.Snapshot()
		return len(snap.Relations) == 1 && snap.Relations[0].Interchangeable()
	}, time.Second, 5*time.Millisecond)

	svc.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after Close")
	}
}

func TestAutoRefresh(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	loader := loadFunc(func(context.Context) (*repositories.LoadResult, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &repositories.LoadResult{Rules: []domain.Substitution{testRule(1, 1, 2)}, Received: 1}, nil
	})
	svc := newTestService(loader)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		svc.AutoRefresh(ctx, 10*time.Millisecond)
		close(stopped)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
	svc.Close()
	assert.Equal(t, StatusOK, svc.Snapshot().Status)
}

func TestAutoRefreshDisabled(t *testing.T) {
	svc := newTestService(failingLoader(errors.New("must not be called")))
	defer svc.Close()

	done := make(chan struct{})
	go func() {
		svc.AutoRefresh(context.Background(), 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AutoRefresh with zero interval should return immediately")
	}
}
