// Package game implements the "guess the player" quiz: non-repeating
// question generation with gender-matched distractors, per-session scoring,
// and best-score persistence.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"league-games-service/internal/domain"
)

const (
	defaultQuickRounds = 10
	optionsPerQuestion = 4
	distractorCount    = optionsPerQuestion - 1
	persistTimeout     = 5 * time.Second
)

// RosterRepository loads the participant roster (from cache/backing store).
type RosterRepository interface {
	GetRoster(ctx context.Context) (domain.Roster, error)
}

// ScoreStore abstracts the remote best-score document store.
// MergeWrite merges the given fields into the player's record, creating it if
// absent; fields not mentioned keep their stored values.
type ScoreStore interface {
	Get(ctx context.Context, player string) (domain.ScoreRecord, error)
	MergeWrite(ctx context.Context, player string, fields map[domain.Mode]int) error
	TopN(ctx context.Context, mode domain.Mode, n int) ([]domain.LeaderboardEntry, error)
}

// Config tunes the engine. Zero delays advance rounds immediately, which is
// what tests want; production values come from the service config.
type Config struct {
	QuickRounds  int           // rounds in quick mode, defaults to 10
	CorrectDelay time.Duration // auto-advance delay after a correct answer
	WrongDelay   time.Duration // auto-advance delay after a wrong answer
	Rand         *rand.Rand    // defaults to a time-seeded source
}

// Engine contains the quiz use cases.
type Engine struct {
	roster RosterRepository
	scores ScoreStore
	logger *zap.Logger

	quickRounds  int
	correctDelay time.Duration
	wrongDelay   time.Duration

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rnd *rand.Rand
}

func NewEngine(roster RosterRepository, scores ScoreStore, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QuickRounds <= 0 {
		cfg.QuickRounds = defaultQuickRounds
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		roster:       roster,
		scores:       scores,
		logger:       logger,
		quickRounds:  cfg.QuickRounds,
		correctDelay: cfg.CorrectDelay,
		wrongDelay:   cfg.WrongDelay,
		rnd:          cfg.Rand,
	}
}

// StartSession builds a fresh session for the given mode. The player name may
// be empty (anonymous play); anonymous sessions are never persisted.
func (e *Engine) StartSession(ctx context.Context, mode domain.Mode, player string) (*Session, error) {
	roster, err := e.roster.GetRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	var rounds int
	switch mode {
	case domain.ModeQuick:
		rounds = e.quickRounds
	case domain.ModeComplete:
		rounds = len(roster)
	default:
		return nil, domain.ErrUnknownMode
	}
	if rounds == 0 || rounds > len(roster) {
		return nil, domain.ErrInsufficientRoster
	}

	questions, err := e.buildQuestions(roster, rounds)
	if err != nil {
		return nil, err
	}

	session := &Session{
		id:          uuid.NewString(),
		mode:        mode,
		player:      player,
		engine:      e,
		questions:   questions,
		results:     make([]bool, 0, rounds),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	e.logger.Info("quiz session started",
		zap.String("session", session.id),
		zap.String("mode", string(mode)),
		zap.Int("rounds", rounds),
		zap.String("player", player))
	return session, nil
}

// buildQuestions generates independently and rejects subjects already used in
// this session. Attempts are bounded so a misconfigured roster surfaces as an
// error instead of a hang.
func (e *Engine) buildQuestions(roster domain.Roster, rounds int) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, rounds)
	used := make(map[string]struct{}, rounds)

	maxAttempts := 20 * rounds
	for attempts := 0; len(questions) < rounds; attempts++ {
		if attempts >= maxAttempts {
			return nil, domain.ErrInsufficientRoster
		}
		question, err := e.generateQuestion(roster)
		if err != nil {
			return nil, err
		}
		if _, seen := used[question.Subject.Name]; seen {
			continue
		}
		used[question.Subject.Name] = struct{}{}
		questions = append(questions, question)
	}
	return questions, nil
}

// generateQuestion picks a uniform random subject, then three distinct
// same-gender distractors, and shuffles the four options for display.
func (e *Engine) generateQuestion(roster domain.Roster) (domain.Question, error) {
	if len(roster) == 0 {
		return domain.Question{}, domain.ErrInsufficientRoster
	}
	subject := roster[e.intn(len(roster))]

	peers := roster.SameGender(subject.Gender, subject.Name)
	if len(peers) < distractorCount {
		return domain.Question{}, domain.ErrInsufficientRoster
	}
	e.shuffle(peers)

	options := make([]domain.RosterEntry, 0, optionsPerQuestion)
	options = append(options, subject)
	options = append(options, peers[:distractorCount]...)
	e.shuffle(options)

	return domain.Question{Subject: subject, Options: options}, nil
}

// FinalizeScore applies the merge rule: write the mode's field only when the
// new score strictly beats the stored best, leaving other modes untouched.
func (e *Engine) FinalizeScore(ctx context.Context, player string, mode domain.Mode, score int) error {
	record, err := e.scores.Get(ctx, player)
	if err != nil && !errors.Is(err, domain.ErrScoreNotFound) {
		return fmt.Errorf("read best score: %w", err)
	}
	if err == nil {
		if best, ok := record.Best[mode]; ok && score <= best {
			return nil
		}
	}
	if err := e.scores.MergeWrite(ctx, player, map[domain.Mode]int{mode: score}); err != nil {
		return fmt.Errorf("save best score: %w", err)
	}
	return nil
}

// Leaderboard returns the top n best scores for a mode, descending.
func (e *Engine) Leaderboard(ctx context.Context, mode domain.Mode, n int) ([]domain.LeaderboardEntry, error) {
	if !mode.Valid() {
		return nil, domain.ErrUnknownMode
	}
	return e.scores.TopN(ctx, mode, n)
}

// BestScores returns the player's stored record.
func (e *Engine) BestScores(ctx context.Context, player string) (domain.ScoreRecord, error) {
	return e.scores.Get(ctx, player)
}

// persistBest runs off the session goroutine when a session finishes.
// Persistence failures are operational: logged and swallowed, never surfaced
// to gameplay.
func (e *Engine) persistBest(player string, mode domain.Mode, score int) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.FinalizeScore(ctx, player, mode, score); err != nil {
		e.logger.Warn("best score not saved",
			zap.String("player", player),
			zap.String("mode", string(mode)),
			zap.Int("score", score),
			zap.Error(err))
		return
	}
	e.logger.Info("best score finalized",
		zap.String("player", player),
		zap.String("mode", string(mode)),
		zap.Int("score", score))
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Intn(n)
}

func (e *Engine) shuffle(entries []domain.RosterEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rnd.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}
