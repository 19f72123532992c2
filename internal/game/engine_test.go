package game_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"league-games-service/internal/domain"
	"league-games-service/internal/game"
	"league-games-service/internal/infra/memory"
)

func testRoster() domain.Roster {
	return domain.Roster{
		{Name: "Arjun", HouseID: 1, Gender: domain.GenderMale, ImageRef: "img/arjun.jpg"},
		{Name: "Bala", HouseID: 2, Gender: domain.GenderMale, ImageRef: "img/bala.jpg"},
		{Name: "Charan", HouseID: 3, Gender: domain.GenderMale, ImageRef: "img/charan.jpg"},
		{Name: "Dinesh", HouseID: 1, Gender: domain.GenderMale, ImageRef: "img/dinesh.jpg"},
		{Name: "Esha", HouseID: 2, Gender: domain.GenderFemale, ImageRef: "img/esha.jpg"},
		{Name: "Farah", HouseID: 3, Gender: domain.GenderFemale, ImageRef: "img/farah.jpg"},
		{Name: "Gita", HouseID: 1, Gender: domain.GenderFemale, ImageRef: "img/gita.jpg"},
		{Name: "Hema", HouseID: 2, Gender: domain.GenderFemale, ImageRef: "img/hema.jpg"},
	}
}

func newTestEngine(t *testing.T, roster domain.Roster, store game.ScoreStore, cfg game.Config) *game.Engine {
	t.Helper()
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(42))
	}
	if store == nil {
		store = memory.NewScoreStore()
	}
	repo := memory.NewRosterRepository(memory.NewStaticRosterLoader(roster), time.Minute)
	return game.NewEngine(repo, store, zap.NewNop(), cfg)
}

func TestStartSessionQuestionProperties(t *testing.T) {
	engine := newTestEngine(t, testRoster(), nil, game.Config{QuickRounds: 5})

	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	require.NoError(t, err)

	questions := session.Questions()
	require.Len(t, questions, 5)

	subjects := make(map[string]struct{})
	for _, q := range questions {
		require.Len(t, q.Options, 4)

		names := make(map[string]struct{})
		subjectSeen := false
		for _, opt := range q.Options {
			assert.Equal(t, q.Subject.Gender, opt.Gender, "options must share the subject's gender")
			names[opt.Name] = struct{}{}
			if opt.Name == q.Subject.Name {
				subjectSeen = true
			}
		}
		assert.Len(t, names, 4, "options must be pairwise distinct")
		assert.True(t, subjectSeen, "subject must be among the options")

		_, repeated := subjects[q.Subject.Name]
		assert.False(t, repeated, "subject %s repeated", q.Subject.Name)
		subjects[q.Subject.Name] = struct{}{}
	}
}

func TestCompleteModeCoversWholeRoster(t *testing.T) {
	roster := testRoster()
	engine := newTestEngine(t, roster, nil, game.Config{})

	session, err := engine.StartSession(context.Background(), domain.ModeComplete, "")
	require.NoError(t, err)

	questions := session.Questions()
	require.Len(t, questions, len(roster))
	subjects := make(map[string]struct{})
	for _, q := range questions {
		subjects[q.Subject.Name] = struct{}{}
	}
	assert.Len(t, subjects, len(roster))
}

func TestStartSessionInsufficientRoster(t *testing.T) {
	// Three entries of one gender cannot supply 3 distractors.
	tiny := domain.Roster{
		{Name: "A", Gender: domain.GenderMale},
		{Name: "B", Gender: domain.GenderMale},
		{Name: "C", Gender: domain.GenderMale},
	}
	engine := newTestEngine(t, tiny, nil, game.Config{QuickRounds: 2})
	_, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientRoster)

	// More rounds than roster entries can never avoid subject repeats.
	engine = newTestEngine(t, testRoster(), nil, game.Config{QuickRounds: 20})
	_, err = engine.StartSession(context.Background(), domain.ModeQuick, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientRoster)
}

func TestStartSessionUnknownMode(t *testing.T) {
	engine := newTestEngine(t, testRoster(), nil, game.Config{})
	_, err := engine.StartSession(context.Background(), domain.Mode("marathon"), "")
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
}

func TestPlayThroughScoring(t *testing.T) {
	engine := newTestEngine(t, testRoster(), nil, game.Config{QuickRounds: 5})
	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	require.NoError(t, err)

	// Answer rounds 0,1,3 correctly and 2,4 wrongly.
	answerRight := map[int]bool{0: true, 1: true, 2: false, 3: true, 4: false}
	for round := 0; round < 5; round++ {
		question, ok := session.CurrentQuestion()
		require.True(t, ok)
		choice := question.Subject.Name
		if !answerRight[round] {
			choice = wrongOption(t, question)
		}
		correct, subject, err := session.Submit(choice)
		require.NoError(t, err)
		assert.Equal(t, answerRight[round], correct)
		assert.Equal(t, question.Subject.Name, subject)
	}

	assert.True(t, session.IsFinished())
	assert.Equal(t, 3, session.Score())
	results := session.Results()
	require.Len(t, results, 5)
	assert.Equal(t, []bool{true, true, false, true, false}, results)
}

func TestSubmitRejectsEmptyAndDoubleAnswers(t *testing.T) {
	// A long delay keeps the round resolved-but-not-advanced.
	engine := newTestEngine(t, testRoster(), nil, game.Config{QuickRounds: 2, CorrectDelay: time.Hour, WrongDelay: time.Hour})
	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	require.NoError(t, err)
	defer session.Close()

	_, _, err = session.Submit("")
	assert.ErrorIs(t, err, domain.ErrNoSelection)

	question, _ := session.CurrentQuestion()
	_, _, err = session.Submit(question.Subject.Name)
	require.NoError(t, err)

	_, _, err = session.Submit(question.Subject.Name)
	assert.ErrorIs(t, err, domain.ErrRoundResolved)

	// Manual skip cancels the pending auto-advance and moves on exactly once.
	require.NoError(t, session.Skip())
	assert.Equal(t, 1, session.Round())
	assert.Len(t, session.Results(), 1)
	assert.False(t, session.IsFinished())
}

func TestSkipRecordsFalse(t *testing.T) {
	engine := newTestEngine(t, testRoster(), nil, game.Config{QuickRounds: 5})
	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, session.Skip())
	}
	assert.True(t, session.IsFinished())
	assert.Equal(t, 0, session.Score())
	assert.Equal(t, []bool{false, false, false, false, false}, session.Results())

	assert.ErrorIs(t, session.Skip(), domain.ErrSessionFinished)
	_, _, err = session.Submit("anyone")
	assert.ErrorIs(t, err, domain.ErrSessionFinished)
}

func TestFinalizeScoreMergeSemantics(t *testing.T) {
	ctx := context.Background()
	store := memory.NewScoreStore()
	engine := newTestEngine(t, testRoster(), store, game.Config{})

	require.NoError(t, store.MergeWrite(ctx, "priya", map[domain.Mode]int{
		domain.ModeQuick:    7,
		domain.ModeComplete: 12,
	}))

	// Lower score: no write, stored best unchanged.
	require.NoError(t, engine.FinalizeScore(ctx, "priya", domain.ModeQuick, 5))
	record, err := store.Get(ctx, "priya")
	require.NoError(t, err)
	assert.Equal(t, 7, record.Best[domain.ModeQuick])

	// Higher score: the quick field updates, complete stays untouched.
	require.NoError(t, engine.FinalizeScore(ctx, "priya", domain.ModeQuick, 9))
	record, err = store.Get(ctx, "priya")
	require.NoError(t, err)
	assert.Equal(t, 9, record.Best[domain.ModeQuick])
	assert.Equal(t, 12, record.Best[domain.ModeComplete])

	// Unknown player gets a fresh record.
	require.NoError(t, engine.FinalizeScore(ctx, "noor", domain.ModeQuick, 3))
	record, err = store.Get(ctx, "noor")
	require.NoError(t, err)
	assert.Equal(t, 3, record.Best[domain.ModeQuick])
}

func TestFinishPersistsExactlyOnceForSignedInPlayer(t *testing.T) {
	store := &recordingStore{ScoreStore: memory.NewScoreStore(), writes: make(chan string, 4)}
	engine := newTestEngine(t, testRoster(), store, game.Config{QuickRounds: 2})

	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "alice")
	require.NoError(t, err)
	require.NoError(t, session.Skip())
	require.NoError(t, session.Skip())
	require.True(t, session.IsFinished())

	select {
	case player := <-store.writes:
		assert.Equal(t, "alice", player)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a best-score write after finish")
	}
	select {
	case <-store.writes:
		t.Fatal("score persisted more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAnonymousSessionNeverPersists(t *testing.T) {
	store := &recordingStore{ScoreStore: memory.NewScoreStore(), writes: make(chan string, 4)}
	engine := newTestEngine(t, testRoster(), store, game.Config{QuickRounds: 2})

	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	require.NoError(t, err)
	require.NoError(t, session.Skip())
	require.NoError(t, session.Skip())
	require.True(t, session.IsFinished())

	select {
	case <-store.writes:
		t.Fatal("anonymous session must not persist")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPersistenceFailureDoesNotBlockResults(t *testing.T) {
	engine := newTestEngine(t, testRoster(), failingStore{}, game.Config{QuickRounds: 2})

	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "bob")
	require.NoError(t, err)
	require.NoError(t, session.Skip())
	require.NoError(t, session.Skip())

	// The session reaches its terminal state and results stay readable even
	// though every store call fails.
	assert.True(t, session.IsFinished())
	assert.Len(t, session.Results(), 2)

	err = engine.FinalizeScore(context.Background(), "bob", domain.ModeQuick, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestSessionSubscribeSeesTransitions(t *testing.T) {
	engine := newTestEngine(t, testRoster(), nil, game.Config{QuickRounds: 2})
	session, err := engine.StartSession(context.Background(), domain.ModeQuick, "")
	require.NoError(t, err)

	updates, cancel := session.Subscribe()
	defer cancel()

	initial := <-updates
	assert.Equal(t, 0, initial.Round)
	assert.Equal(t, 2, initial.Rounds)
	assert.Len(t, initial.Options, 4)
	assert.False(t, initial.Finished)

	require.NoError(t, session.Skip())
	next := <-updates
	assert.Equal(t, 1, next.Round)
	assert.False(t, next.Finished)

	require.NoError(t, session.Skip())
	final := <-updates
	assert.True(t, final.Finished)
	assert.Empty(t, final.Options)
	assert.Equal(t, []bool{false, false}, final.Results)
}

func wrongOption(t *testing.T, q domain.Question) string {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Name != q.Subject.Name {
			return opt.Name
		}
	}
	t.Fatal("question has no distractor")
	return ""
}

type recordingStore struct {
	game.ScoreStore
	writes chan string
}

func (s *recordingStore) MergeWrite(ctx context.Context, player string, fields map[domain.Mode]int) error {
	if err := s.ScoreStore.MergeWrite(ctx, player, fields); err != nil {
		return err
	}
	s.writes <- player
	return nil
}

var errStoreDown = errors.New("score store unavailable")

type failingStore struct{}

func (failingStore) Get(context.Context, string) (domain.ScoreRecord, error) {
	return domain.ScoreRecord{}, errStoreDown
}

func (failingStore) MergeWrite(context.Context, string, map[domain.Mode]int) error {
	return errStoreDown
}

func (failingStore) TopN(context.Context, domain.Mode, int) ([]domain.LeaderboardEntry, error) {
	return nil, errStoreDown
}
