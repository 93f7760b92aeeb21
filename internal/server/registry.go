package server

import (
	"errors"
	"sync"
	"time"

	"github.com/abhisek/tutorly/internal/session"
)

var (
	// ErrSessionActive is returned when the learner already has this quiz
	// in progress.
	ErrSessionActive = errors.New("a session for this quiz is already in progress")

	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidConfig   = errors.New("timer_minutes must be positive when the timer is enabled")
)

type entry struct {
	s        *session.Session
	cfg      session.Config
	key      string
	lastSeen time.Time
}

// Registry holds live sessions. At most one session per (user, quiz) is in
// progress; a finished session stays addressable for its result and retry
// until it is replaced or swept.
type Registry struct {
	clock session.Clock

	mu    sync.Mutex
	byID  map[string]*entry
	byKey map[string]string
}

func NewRegistry(clock session.Clock) *Registry {
	if clock == nil {
		clock = session.WallClock
	}
	return &Registry{
		clock: clock,
		byID:  make(map[string]*entry),
		byKey: make(map[string]string),
	}
}

func registryKey(userID, quizID string) string {
	return userID + "\x00" + quizID
}

// Start creates and starts a session. A previous finished session for the
// same user and quiz is dropped.
func (r *Registry) Start(opts session.Options, cfg session.Config) (*session.Session, error) {
	key := registryKey(opts.UserID, opts.Quiz.ID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[key]; ok {
		if prev := r.byID[id]; prev != nil && prev.s.Active() {
			return nil, ErrSessionActive
		}
		delete(r.byID, id)
		delete(r.byKey, key)
	}

	s, err := session.New(opts)
	if err != nil {
		return nil, err
	}
	if err := s.Start(cfg); err != nil {
		return nil, err
	}
	r.byID[s.ID()] = &entry{s: s, cfg: cfg, key: key, lastSeen: r.clock.Now()}
	r.byKey[key] = s.ID()
	return s, nil
}

// Get returns the session if userID may access it.
func (r *Registry) Get(id, userID string, admin bool) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || (!admin && e.s.UserID() != userID) {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.clock.Now()
	return e.s, nil
}

// Retry restarts a submitted quiz with the configuration it was started
// with.
// Retry restarts a submitted quiz session in place. adjust, when non-nil,
// edits the previous configuration before the restart; the result is kept
// for the next retry.
func (r *Registry) Retry(id, userID string, admin bool, adjust func(*session.Config)) (*session.Session, error) {
	s, err := r.Get(id, userID, admin)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	cfg := r.byID[id].cfg
	r.mu.Unlock()
	if adjust != nil {
		adjust(&cfg)
	}
	if cfg.TimerEnabled && cfg.TimerMinutes <= 0 {
		return nil, ErrInvalidConfig
	}

	if err := s.Retry(); err != nil {
		return nil, err
	}
	if err := s.Start(cfg); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if e := r.byID[id]; e != nil {
		e.cfg = cfg
	}
	r.mu.Unlock()
	return s, nil
}

// Abandon abandons the session and forgets it.
func (r *Registry) Abandon(id, userID string, admin bool) error {
	r.mu.Lock()
	e, ok := r.byID[id]
	if !ok || (!admin && e.s.UserID() != userID) {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.byID, id)
	if r.byKey[e.key] == id {
		delete(r.byKey, e.key)
	}
	r.mu.Unlock()

	e.s.Abandon()
	return nil
}

// Sweep abandons sessions untouched since before idleCutoff and drops
// finished sessions untouched since before doneCutoff. It returns the
// number of sessions removed.
func (r *Registry) Sweep(idleCutoff, doneCutoff time.Time) int {
	var (
		stale   []*session.Session
		removed int
	)

	r.mu.Lock()
	for id, e := range r.byID {
		active := e.s.Active()
		if (active && e.lastSeen.Before(idleCutoff)) || (!active && e.lastSeen.Before(doneCutoff)) {
			if active {
				stale = append(stale, e.s)
			}
			delete(r.byID, id)
			if r.byKey[e.key] == id {
				delete(r.byKey, e.key)
			}
			removed++
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Abandon()
	}
	return removed
}

// Len is the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
