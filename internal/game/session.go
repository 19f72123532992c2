package game

import (
	"sync"
	"time"

	"league-games-service/internal/domain"
)

// Snapshot is the subscriber-facing view of a session after a round
// transition. Options carry display names only; the subject is revealed per
// answer, not in the snapshot.
type Snapshot struct {
	SessionID string      `json:"sessionId"`
	Mode      domain.Mode `json:"mode"`
	Round     int         `json:"round"` // 0-based
	Rounds    int         `json:"rounds"`
	Score     int         `json:"score"`
	Results   []bool      `json:"results"`
	Finished  bool        `json:"finished"`
	Image     string      `json:"image,omitempty"`
	Options   []string    `json:"choices,omitempty"`
}

// Session is one play-through of the quiz. Round transitions are strictly
// sequential: a pending auto-advance timer and a manual skip on the same
// round are mutually exclusive under the session mutex, and a stale timer
// fires as a no-op.
type Session struct {
	id        string
	mode      domain.Mode
	player    string
	engine    *Engine
	questions []domain.Question

	mu          sync.Mutex
	round       int
	score       int
	results     []bool
	resolved    bool // current round already answered
	finished    bool
	persisted   bool
	timer       *time.Timer
	subscribers map[chan Snapshot]struct{}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) Mode() domain.Mode { return s.mode }
func (s *Session) Player() string    { return s.player }

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Results returns a copy of the per-round correctness history.
func (s *Session) Results() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.results...)
}

func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Questions returns a copy of the generated question sequence.
func (s *Session) Questions() []domain.Question {
	return append([]domain.Question(nil), s.questions...)
}

// CurrentQuestion returns the active round's question, or false once finished.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.Question{}, false
	}
	return s.questions[s.round], true
}

// Submit records an answer for the current round. An empty choice is
// rejected; a resolved round cannot be answered twice. A correct answer
// schedules a short auto-advance, a wrong one a longer pause, so the player
// sees what the right answer was. Zero delays advance synchronously.
func (s *Session) Submit(choice string) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false, "", domain.ErrSessionFinished
	}
	if choice == "" {
		return false, "", domain.ErrNoSelection
	}
	if s.resolved {
		return false, "", domain.ErrRoundResolved
	}

	question := s.questions[s.round]
	correct := choice == question.Subject.Name
	s.results = append(s.results, correct)
	if correct {
		s.score++
	}
	s.resolved = true

	delay := s.engine.wrongDelay
	if correct {
		delay = s.engine.correctDelay
	}
	if delay <= 0 {
		s.advanceLocked()
		s.broadcastLocked()
	} else {
		round := s.round
		s.timer = time.AfterFunc(delay, func() { s.advanceFrom(round) })
	}
	return correct, question.Subject.Name, nil
}

// Skip cancels any pending auto-advance and moves on. An unresolved round is
// recorded as incorrect; a resolved one just advances (the manual "next").
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.ErrSessionFinished
	}
	s.stopTimerLocked()
	if !s.resolved {
		s.results = append(s.results, false)
		s.resolved = true
	}
	s.advanceLocked()
	s.broadcastLocked()
	return nil
}

// Close abandons the session: cancels any pending timer and suppresses
// persistence. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	if !s.finished {
		s.finished = true
		s.persisted = true
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// advanceFrom is the auto-advance timer callback. The round token makes a
// stale timer harmless after a manual skip already moved the session on.
func (s *Session) advanceFrom(round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.round != round || !s.resolved {
		return
	}
	s.advanceLocked()
	s.broadcastLocked()
}

func (s *Session) advanceLocked() {
	s.stopTimerLocked()
	if s.round+1 >= len(s.questions) {
		s.finishLocked()
		return
	}
	s.round++
	s.resolved = false
}

// finishLocked transitions to the terminal state and triggers persistence
// exactly once per session, only for signed-in players.
func (s *Session) finishLocked() {
	s.finished = true
	if s.persisted || s.player == "" {
		s.persisted = true
		return
	}
	s.persisted = true
	go s.engine.persistBest(s.player, s.mode, s.score)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Subscribe returns a channel receiving a snapshot per round transition,
// primed with the current state. The cancel function must be called to avoid
// leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the current state for one render.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow reader never blocks a
			// round transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Mode:      s.mode,
		Round:     s.round,
		Rounds:    len(s.questions),
		Score:     s.score,
		Results:   append([]bool(nil), s.results...),
		Finished:  s.finished,
	}
	if !s.finished {
		question := s.questions[s.round]
		snap.Image = question.Subject.ImageRef
		snap.Options = make([]string, 0, len(question.Options))
		for _, opt := range question.Options {
			snap.Options = append(snap.Options, opt.Name)
		}
	}
	return snap
}
