// Package session tracks study passes over a deck: the ordered queue, the
// cursor into it, the play counters and their persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/queue"
	"github.com/conorfennell/studyloop/internal/review"
)

// Direction is a cursor movement.
type Direction int

const (
	Next Direction = iota
	Previous
)

func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

// Config holds the collaborators of a Manager.
type Config struct {
	Decks    domain.DeckRepository
	Items    domain.ItemRepository
	Sessions domain.SessionRepository
	Recorder *review.Recorder // optional; required only by State.Rate
	Builder  *queue.Builder   // nil builds a time-seeded builder
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Manager prepares and resumes sessions.
type Manager struct {
	decks    domain.DeckRepository
	items    domain.ItemRepository
	sessions domain.SessionRepository
	recorder *review.Recorder
	builder  *queue.Builder
	clock    clock.Clock
	log      *slog.Logger
}

// NewManager creates a Manager from cfg.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		decks:    cfg.Decks,
		items:    cfg.Items,
		sessions: cfg.Sessions,
		recorder: cfg.Recorder,
		builder:  cfg.Builder,
		clock:    clock.Or(cfg.Clock),
		log:      cfg.Logger,
	}
	if m.builder == nil {
		m.builder = queue.NewBuilder(nil)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// Prepare returns the deck's active session, or creates and persists a new
// one ordered by strategy. An active session is resumed unchanged: the
// requested strategy is ignored so that progress is never discarded.
func (m *Manager) Prepare(ctx context.Context, deckID int64, strategy domain.Strategy) (*State, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}
	if _, err := m.decks.FindDeck(ctx, deckID); err != nil {
		return nil, err
	}

	items, err := m.items.FetchItems(ctx, deckID)
	if err != nil {
		return nil, &domain.PersistError{Op: "fetch items", Err: err}
	}

	active, err := m.sessions.FindActiveSession(ctx, deckID)
	if err != nil {
		return nil, &domain.PersistError{Op: "find active session", Err: err}
	}
	if active != nil {
		st := m.newState(active, items)
		if st.prune() {
			m.log.Info("resumed session referenced deleted items", "session_id", active.ID, "queue_len", len(active.Queue))
		}
		m.log.Info("session resumed", "session_id", active.ID, "deck_id", deckID, "strategy", active.Strategy, "cursor", active.Cursor)
		return st, nil
	}

	now := m.clock.Now()
	s := domain.NewSession(deckID, strategy, m.builder.Build(items, strategy, now), now)
	if err := m.sessions.InsertSession(ctx, s); err != nil {
		return nil, &domain.PersistError{Op: "insert session", Err: err}
	}
	m.log.Info("session created", "session_id", s.ID, "deck_id", deckID, "strategy", strategy, "queue_len", len(s.Queue))
	return m.newState(s, items), nil
}

// Active returns the deck's active session without creating one. It returns
// domain.ErrNoActiveSession when there is none.
func (m *Manager) Active(ctx context.Context, deckID int64) (*State, error) {
	active, err := m.sessions.FindActiveSession(ctx, deckID)
	if err != nil {
		return nil, &domain.PersistError{Op: "find active session", Err: err}
	}
	if active == nil {
		return nil, domain.ErrNoActiveSession
	}
	items, err := m.items.FetchItems(ctx, deckID)
	if err != nil {
		return nil, &domain.PersistError{Op: "fetch items", Err: err}
	}
	st := m.newState(active, items)
	st.prune()
	return st, nil
}

func (m *Manager) newState(s *domain.Session, items []domain.Item) *State {
	st := &State{m: m, session: s}
	st.setItems(items)
	return st
}

// State is a live study session. Its methods are safe for concurrent use;
// the in-memory state is authoritative and Save reconciles the store with it.
type State struct {
	m *Manager

	mu      sync.Mutex
	session *domain.Session
	items   map[int64]domain.Item
}

// Session returns a copy of the session record.
func (s *State) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.session.Clone()
}

// Current returns the item under the cursor.
func (s *State) Current() (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *State) currentLocked() (domain.Item, bool) {
	id, ok := s.session.CurrentItemID()
	if !ok {
		return domain.Item{}, false
	}
	it, ok := s.items[id]
	return it, ok
}

// Item returns a queued item by identifier.
func (s *State) Item(id int64) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	return it, ok
}

// Refresh replaces the cached copy of item, for instance after its faces were
// edited. Items that are not part of the session are ignored.
func (s *State) Refresh(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		s.items[item.ID] = item
	}
}

// Advance moves the cursor with wraparound. Next counts towards ItemsPlayed;
// Previous does not. Both are no-ops on an empty queue.
func (s *State) Advance(dir Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(dir)
}

func (s *State) advanceLocked(dir Direction) {
	n := len(s.session.Queue)
	if n == 0 {
		return
	}
	switch dir {
	case Previous:
		s.session.Cursor = (s.session.Cursor - 1 + n) % n
	default:
		s.session.Cursor = (s.session.Cursor + 1) % n
		s.session.ItemsPlayed++
	}
}

// Move advances the cursor and saves the session.
func (s *State) Move(ctx context.Context, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(dir)
	return s.saveLocked(ctx)
}

// ChangeStrategy rebuilds the queue with strategy and keeps the cursor on the
// item that was current, or resets it to 0 if that item is gone.
func (s *State) ChangeStrategy(ctx context.Context, strategy domain.Strategy) error {
	if !strategy.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.m.items.FetchItems(ctx, s.session.DeckID)
	if err != nil {
		return &domain.PersistError{Op: "fetch items", Err: err}
	}

	currentID, hadCurrent := s.session.CurrentItemID()
	q := s.m.builder.Build(items, strategy, s.m.clock.Now())

	cursor := 0
	if hadCurrent {
		for i, id := range q {
			if id == currentID {
				cursor = i
				break
			}
		}
	}

	s.session.Strategy = strategy
	s.session.Queue = q
	s.session.Cursor = cursor
	s.setItems(items)

	s.m.log.Info("session strategy changed", "session_id", s.session.ID, "strategy", strategy, "cursor", cursor)
	return s.saveLocked(ctx)
}

// Rate records rating for the current item through the review recorder.
// Counters on the item and the session change only if the review committed.
func (s *State) Rate(ctx context.Context, rating domain.Rating) (domain.ReviewEntry, error) {
	if s.m.recorder == nil {
		return domain.ReviewEntry{}, errors.New("session: no review recorder configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.currentLocked()
	if !ok {
		return domain.ReviewEntry{}, &domain.NotFoundError{Kind: "current item", ID: s.session.Cursor}
	}
	entry, err := s.m.recorder.Record(ctx, &item, rating, s.session)
	if err != nil {
		return domain.ReviewEntry{}, err
	}
	s.items[item.ID] = item
	return entry, nil
}

// Finish marks the session inactive and saves it. The session and its
// history are kept.
func (s *State) Finish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.IsActive = false
	if err := s.saveLocked(ctx); err != nil {
		return err
	}
	s.m.log.Info("session finished", "session_id", s.session.ID, "items_played", s.session.ItemsPlayed, "correct", s.session.CorrectCount)
	return nil
}

// Save persists the cursor, counters, strategy and queue, and refreshes the
// correct count from the session's review history. Calling it repeatedly
// without intervening changes writes identical state.
func (s *State) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *State) saveLocked(ctx context.Context) error {
	if err := s.m.sessions.SaveSession(ctx, s.session); err != nil {
		return &domain.PersistError{Op: "save session", Err: err}
	}
	return nil
}

func (s *State) setItems(items []domain.Item) {
	s.items = make(map[int64]domain.Item, len(items))
	for _, it := range items {
		s.items[it.ID] = it
	}
}

// prune drops queued identifiers whose items were deleted since the queue was
// built, keeping the cursor on the same item where possible. It reports
// whether anything was dropped.
func (s *State) prune() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentID, hadCurrent := s.session.CurrentItemID()
	kept := s.session.Queue[:0:0]
	for _, id := range s.session.Queue {
		if _, ok := s.items[id]; ok {
			kept = append(kept, id)
		}
	}
	changed := len(kept) != len(s.session.Queue)
	s.session.Queue = kept

	cursor := 0
	for i, id := range kept {
		if hadCurrent && id == currentID {
			cursor = i
			break
		}
	}
	if !hadCurrent || changed {
		s.session.Cursor = cursor
	}
	if s.session.Cursor >= len(kept) {
		s.session.Cursor = 0
	}
	return changed
}
