package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// SessionStatus represents the current state of a reconciliation session.
type SessionStatus string

const (
	StatusCreated   SessionStatus = "created"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// DefaultSessionMaxAge is how long an idle session is kept in memory.
const DefaultSessionMaxAge = 24 * time.Hour

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotReconciled   = errors.New("session has not been reconciled yet")
	ErrSessionBusy     = errors.New("session is already running")
)

// Session is one uploaded dataset and its reconciliation state. Sessions
// never share transactions or state with each other.
type Session struct {
	ID          string
	Name        string
	Status      SessionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Error       error

	set    *transaction.Set
	source *ingest.Table
	result *reconcile.Result

	// mu serializes everything that touches set or result
	mu sync.Mutex
}

// SessionInfo is a point-in-time copy of a session, safe to hand out.
type SessionInfo struct {
	ID           string
	Name         string
	Status       SessionStatus
	Transactions int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	Error        string
	Summary      *balance.Summary
}

func (s *Session) info() SessionInfo {
	info := SessionInfo{
		ID:          s.ID,
		Name:        s.Name,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CompletedAt: s.CompletedAt,
	}
	if s.set != nil {
		info.Transactions = s.set.Len()
	}
	if s.Error != nil {
		info.Error = s.Error.Error()
	}
	if s.result != nil {
		summary := s.result.Summary
		info.Summary = &summary
	}
	return info
}

// RunReport is a copy of what one run produced, taken before the session
// lock is released. Later confirmations do not change it.
type RunReport struct {
	Summary     balance.Summary
	Warnings    []string
	ReviewCount int
	Duration    time.Duration
}

// ReconcileService manages reconciliation sessions.
type ReconcileService struct {
	pipeline *reconcile.Pipeline
	logger   *slog.Logger

	sessions      map[string]*Session
	sessionsMutex sync.RWMutex

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewReconcileService creates a new reconcile service. A nil pipeline uses
// the default matcher and balance configuration.
func NewReconcileService(pipeline *reconcile.Pipeline, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = reconcile.NewPipeline(matcher.DefaultConfig(), balance.DefaultConfig(), logger)
	}
	return &ReconcileService{
		pipeline: pipeline,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// CreateSession stores a transaction set under a new session id. source is
// the uploaded table behind set, kept for the update export; it may be nil
// and is never modified.
func (s *ReconcileService) CreateSession(name string, set *transaction.Set, source *ingest.Table) (SessionInfo, error) {
	if set == nil {
		return SessionInfo{}, fmt.Errorf("session needs a transaction set")
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
		set:       set,
		source:    source,
	}

	s.sessionsMutex.Lock()
	s.sessions[session.ID] = session
	s.sessionsMutex.Unlock()

	s.logger.Info("session created",
		"session_id", session.ID,
		"name", name,
		"transactions", set.Len(),
	)

	return session.info(), nil
}

// Run reconciles a session from scratch, replacing any earlier result.
func (s *ReconcileService) Run(ctx context.Context, id string) (RunReport, error) {
	session, err := s.lookup(id)
	if err != nil {
		return RunReport{}, err
	}

	if !session.mu.TryLock() {
		return RunReport{}, fmt.Errorf("%w: %s", ErrSessionBusy, id)
	}
	defer session.mu.Unlock()

	session.Status = StatusRunning
	session.UpdatedAt = time.Now()

	result, err := s.pipeline.Run(ctx, session.set)

	now := time.Now()
	session.UpdatedAt = now
	session.CompletedAt = &now
	if err != nil {
		session.Status = StatusFailed
		session.Error = err
		s.logger.Error("session run failed", "session_id", id, "error", err)
		return RunReport{}, err
	}

	session.Status = StatusCompleted
	session.Error = nil
	session.result = result

	s.logger.Info("session run completed",
		"session_id", id,
		"groups", result.Summary.TotalGroups,
		"progress_percent", result.Summary.ProgressPercent,
		"warnings", len(result.Warnings),
	)

	return RunReport{
		Summary:     result.Summary,
		Warnings:    slices.Clone(result.Warnings),
		ReviewCount: len(result.ReviewItems),
		Duration:    result.Duration,
	}, nil
}

// Get returns a snapshot of one session.
func (s *ReconcileService) Get(id string) (SessionInfo, error) {
	session, err := s.lookup(id)
	if err != nil {
		return SessionInfo{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.info(), nil
}

// List returns snapshots of all sessions, oldest first.
func (s *ReconcileService) List() []SessionInfo {
	s.sessionsMutex.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessionsMutex.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		session.mu.Lock()
		infos = append(infos, session.info())
		session.mu.Unlock()
	}

	slices.SortFunc(infos, func(a, b SessionInfo) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// Groups returns the match groups of a reconciled session.
func (s *ReconcileService) Groups(id string) ([]*balance.MatchGroup, error) {
	var groups []*balance.MatchGroup
	err := s.withResult(id, func(_ *Session, result *reconcile.Result) error {
		groups = result.State.Groups()
		return nil
	})
	return groups, err
}

// Review returns the unresolved transactions with their suggestions.
func (s *ReconcileService) Review(id string) ([]reconcile.ReviewItem, error) {
	var items []reconcile.ReviewItem
	err := s.withResult(id, func(_ *Session, result *reconcile.Result) error {
		items = slices.Clone(result.ReviewItems)
		return nil
	})
	return items, err
}

// Summary returns the statistics of a reconciled session.
func (s *ReconcileService) Summary(id string) (balance.Summary, error) {
	var summary balance.Summary
	err := s.withResult(id, func(_ *Session, result *reconcile.Result) error {
		summary = result.Summary
		return nil
	})
	return summary, err
}

// Suggest ranks unclaimed partners for one transaction of a session.
func (s *ReconcileService) Suggest(id string, transactionID int) ([]reconcile.Suggestion, error) {
	var suggestions []reconcile.Suggestion
	err := s.withResult(id, func(_ *Session, result *reconcile.Result) error {
		var err error
		suggestions, err = s.pipeline.Suggest(result.State, transactionID)
		return err
	})
	return suggestions, err
}

// Confirm records a manual match in a reconciled session.
func (s *ReconcileService) Confirm(id string, anchorID int, partnerIDs []int, override bool) (*balance.MatchGroup, error) {
	var group *balance.MatchGroup
	err := s.withResult(id, func(session *Session, result *reconcile.Result) error {
		var err error
		group, err = s.pipeline.Confirm(result.State, anchorID, partnerIDs, override)
		if err != nil {
			return err
		}
		s.refresh(session, result)
		return nil
	})
	return group, err
}

// Dissolve removes a group from a reconciled session and frees its members.
func (s *ReconcileService) Dissolve(id, groupID string) error {
	return s.withResult(id, func(session *Session, result *reconcile.Result) error {
		if err := result.State.Dissolve(groupID); err != nil {
			return err
		}
		s.refresh(session, result)
		s.logger.Info("group dissolved", "session_id", id, "group_id", groupID)
		return nil
	})
}

// View calls fn with the transactions, state and summary of a reconciled
// session. fn must not keep references after it returns.
func (s *ReconcileService) View(id string, fn func(set *transaction.Set, state *balance.State, summary balance.Summary) error) error {
	return s.withResult(id, func(session *Session, result *reconcile.Result) error {
		return fn(session.set, result.State, result.Summary)
	})
}

// Source returns the uploaded table of a session, or nil when it was
// created without one. Callers must not modify it.
func (s *ReconcileService) Source(id string) (*ingest.Table, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return session.source, nil
}

// Delete discards a session and everything reconciled in it.
func (s *ReconcileService) Delete(id string) error {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)

	s.logger.Info("session deleted", "session_id", id)
	return nil
}

// CleanupStale removes sessions that have not been touched for maxAge.
// Running sessions are kept.
func (s *ReconcileService) CleanupStale(maxAge time.Duration) int {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range s.sessions {
		if !session.mu.TryLock() {
			continue // running
		}
		stale := session.UpdatedAt.Before(cutoff)
		session.mu.Unlock()

		if stale {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up stale sessions", "removed", removed)
	}

	return removed
}

// StartBackgroundCleanup starts a goroutine that drops sessions idle for
// longer than maxAge, checking every checkInterval. Call
// StopBackgroundCleanup to stop it.
func (s *ReconcileService) StartBackgroundCleanup(checkInterval, maxAge time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background session cleanup started",
			"check_interval", checkInterval,
			"max_age", maxAge,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background session cleanup stopped")
				return
			case <-ticker.C:
				if cleaned := s.CleanupStale(maxAge); cleaned > 0 {
					s.logger.Info("cleaned up stale sessions", "count", cleaned)
				}
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine.
// This method blocks until the cleanup goroutine has fully stopped.
func (s *ReconcileService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}

	close(s.cleanupStop)
	<-s.cleanupDone
	s.cleanupStop = nil
}

func (s *ReconcileService) lookup(id string) (*Session, error) {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// withResult runs fn while holding the session lock. Sessions without a
// completed run fail with ErrNotReconciled.
func (s *ReconcileService) withResult(id string, fn func(*Session, *reconcile.Result) error) error {
	session, err := s.lookup(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.result == nil {
		return fmt.Errorf("%w: %s", ErrNotReconciled, id)
	}
	return fn(session, session.result)
}

// refresh recomputes the derived parts of a result after a manual change.
func (s *ReconcileService) refresh(session *Session, result *reconcile.Result) {
	result.Summary = balance.ComputeStatistics(result.State)
	result.ReviewItems = s.pipeline.Review(result.State)
	session.UpdatedAt = time.Now()
}
