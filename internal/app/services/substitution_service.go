package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/substitutions/internal/app/repositories"
	"github.com/yigit/substitutions/internal/domain"
	"github.com/yigit/substitutions/internal/pkg/apperrors"
)

// Status describes the state of the current snapshot
type Status string

const (
	StatusLoading Status = "loading"
	StatusOK      Status = "ok"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

var errSuperseded = errors.New("refresh superseded by a newer one")

// User-facing messages shown with the snapshot
const (
	MessageLoading     = "Loading substitution data..."
	MessageEmpty       = "No substitution data available."
	MessageUnavailable = "Substitution data could not be loaded. Please try again later."
	MessageMalformed   = "Substitution data is malformed and cannot be displayed."
)

// Snapshot is the merged state served to the view
type Snapshot struct {
	Relations []domain.Relation
	Status    Status
	Message   string
	Received  int
	Dropped   int
	FetchedAt time.Time
}

// RuleLoader loads raw rules; implemented by repositories.SubstitutionRepository
type RuleLoader interface {
	Load(ctx context.Context) (*repositories.LoadResult, error)
}

// ChangeNotifier calls onChange whenever the source changes; implemented by
// source.Watcher
type ChangeNotifier interface {
	Run(ctx context.Context, onChange func()) error
}

// ListFilter narrows List results. A nil Interchangeable returns everything.
type ListFilter struct {
	Interchangeable *bool
}

// SubstitutionService defines the interface for substitution operations
type SubstitutionService interface {
	Refresh(ctx context.Context) (Snapshot, error)
	Snapshot() Snapshot
	List(filter ListFilter) []domain.Relation
	FindByID(id int64) (domain.Relation, error)
	Watch(ctx context.Context, notifier ChangeNotifier) error
	AutoRefresh(ctx context.Context, interval time.Duration)
	Close()
}

// substitutionServiceImpl implements the SubstitutionService interface
type substitutionServiceImpl struct {
	loader   RuleLoader
	keyStyle domain.KeyStyle
	timeout  time.Duration
	logger   zerolog.Logger

	lifetime context.Context
	stop     context.CancelFunc

	mu      sync.RWMutex
	current Snapshot
	started uint64 // generation handed to the latest refresh
	applied uint64 // generation of the snapshot in current
	closed  bool
}

// NewSubstitutionService creates a new substitution service. A zero timeout
// leaves refreshes bound only by the caller's context.
func NewSubstitutionService(loader RuleLoader, keyStyle domain.KeyStyle, timeout time.Duration, logger zerolog.Logger) SubstitutionService {
	lifetime, stop := context.WithCancel(context.Background())
	return &substitutionServiceImpl{
		loader:   loader,
		keyStyle: keyStyle,
		timeout:  timeout,
		logger:   logger,
		lifetime: lifetime,
		stop:     stop,
		current: Snapshot{
			Relations: []domain.Relation{},
			Status:    StatusLoading,
			Message:   MessageLoading,
		},
	}
}

// Refresh loads and merges the rules and publishes the result. Failures publish
// an empty snapshot carrying a user-facing message and are also returned,
// including fetches cut off by the configured timeout.
// A result is dropped if the caller's context ended, the service was closed,
// or a newer refresh already published; in the last case the newer snapshot
// is returned without error.
func (s *substitutionServiceImpl) Refresh(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, apperrors.ErrServiceClosed
	}
	s.started++
	gen := s.started
	s.mu.Unlock()

	fetchCtx := ctx
	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		fetchCtx, cancelTimeout = context.WithTimeout(fetchCtx, s.timeout)
		defer cancelTimeout()
	}
	fetchCtx, cancel := context.WithCancel(fetchCtx)
	defer cancel()
	unhook := context.AfterFunc(s.lifetime, cancel)
	defer unhook()

	start := time.Now()
	result, err := s.loader.Load(fetchCtx)

	var snap Snapshot
	if err != nil {
		snap = failedSnapshot(err)
	} else {
		snap = s.buildSnapshot(result)
	}

	if discarded := s.publish(ctx, gen, snap); discarded != nil {
		s.logger.Debug().Err(discarded).Uint64("generation", gen).Msg("Discarding stale substitution refresh")
		if errors.Is(discarded, errSuperseded) {
			return s.Snapshot(), nil
		}
		if err == nil {
			err = discarded
		}
		return s.Snapshot(), err
	}

	if err != nil {
		s.logger.Error().Err(err).Dur("took", time.Since(start)).Msg("Failed to refresh substitutions")
		return snap, err
	}

	stats := domain.Stats(len(result.Rules), snap.Relations)
	s.logger.Info().
		Int("received", result.Received).
		Int("dropped", result.Dropped).
		Int("relations", stats.Output).
		Int("bidirectional", stats.Bidirectional).
		Str("keyStyle", string(s.keyStyle)).
		Dur("took", time.Since(start)).
		Msg("Substitutions refreshed")
	return snap, nil
}

func (s *substitutionServiceImpl) buildSnapshot(result *repositories.LoadResult) Snapshot {
	snap := Snapshot{
		Relations: domain.Merge(result.Rules, s.keyStyle),
		Status:    StatusOK,
		Received:  result.Received,
		Dropped:   result.Dropped,
		FetchedAt: time.Now(),
	}
	if len(snap.Relations) == 0 {
		snap.Status = StatusEmpty
		snap.Message = MessageEmpty
	}
	return snap
}

func failedSnapshot(err error) Snapshot {
	msg := MessageUnavailable
	if errors.Is(err, apperrors.ErrInvalidPayload) {
		msg = MessageMalformed
	}
	return Snapshot{
		Relations: []domain.Relation{},
		Status:    StatusError,
		Message:   msg,
		FetchedAt: time.Now(),
	}
}

// publish stores snap as the current snapshot. ctx is the caller's context,
// not the one bounded by the fetch timeout. A non-nil result names the reason
// the snapshot was discarded.
func (s *substitutionServiceImpl) publish(ctx context.Context, gen uint64, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return apperrors.ErrServiceClosed
	case ctx.Err() != nil:
		return ctx.Err()
	case gen < s.applied:
		return errSuperseded
	}
	s.current = snap
	s.applied = gen
	return nil
}

// Snapshot returns the current snapshot
func (s *substitutionServiceImpl) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// List returns the current relations matching filter
func (s *substitutionServiceImpl) List(filter ListFilter) []domain.Relation {
	snap := s.Snapshot()
	if filter.Interchangeable == nil {
		return snap.Relations
	}

	out := make([]domain.Relation, 0, len(snap.Relations))
	for _, r := range snap.Relations {
		if r.Interchangeable() == *filter.Interchangeable {
			out = append(out, r)
		}
	}
	return out
}

// FindByID returns the relation retained under the given rule id
func (s *substitutionServiceImpl) FindByID(id int64) (domain.Relation, error) {
	for _, r := range s.Snapshot().Relations {
		if r.ID() == id {
			return r, nil
		}
	}
	return domain.Relation{}, apperrors.ErrRelationNotFound
}

// Watch refreshes whenever notifier reports a change. It returns when ctx is
// done or the service is closed.
func (s *substitutionServiceImpl) Watch(ctx context.Context, notifier ChangeNotifier) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unhook := context.AfterFunc(s.lifetime, cancel)
	defer unhook()

	return notifier.Run(ctx, func() {
		_, _ = s.Refresh(ctx)
	})
}

// AutoRefresh refreshes every interval until ctx is done or the service is closed
func (s *substitutionServiceImpl) AutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.lifetime.Done():
			return
		case <-ticker.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

// Close cancels in-flight refreshes. Results arriving afterwards are discarded.
func (s *substitutionServiceImpl) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
}
