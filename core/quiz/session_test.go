package quiz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []Submission
	err   error
}

func (f *fakeSubmitter) SubmitQuiz(_ context.Context, sub Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, sub)
	return nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const sessionQuizJSON = `{'questions': [` +
	`{'question_id': 1, 'type': 'single_choice', 'question': 'Which base coat?', 'answers': ['A', 'B']}, ` +
	`{'question_id': 2, 'type': 'multiple_choice', 'question': 'Pick the tools', 'answers': ['File', 'Buffer', 'Brush']}, ` +
	`{'question_id': 3, 'type': 'single_choice', 'question': 'Cure time?', 'answers': ['30s', '60s']}]}`

func newTestSession(t *testing.T, qz Quiz, sub Submitter) *Session {
	t.Helper()
	s, err := NewSession(qz, sub)
	require.NoError(t, err)
	return s
}

func openTestSession(t *testing.T, qz Quiz, sub Submitter) *Session {
	t.Helper()
	s := newTestSession(t, qz, sub)
	require.NoError(t, s.Open(context.Background()))
	return s
}

func TestSessionOpen(t *testing.T) {
	// a long ticker keeps the countdown goroutine quiet during tests
	tickInterval = time.Hour
	defer func() { tickInterval = time.Second }()

	qz := Quiz{ID: 7, Duration: 5, QuizJSON: sessionQuizJSON}
	s := openTestSession(t, qz, &fakeSubmitter{})
	defer s.Close()

	assert.Equal(t, InProgress, s.State())
	assert.Equal(t, 300, s.Remaining())
	assert.Len(t, s.Questions(), 3)

	assert.Equal(t, ErrSessionOpened, s.Open(context.Background()))
}

func TestSessionSelectSingleChoice(t *testing.T) {
	qz := Quiz{ID: 7, QuizJSON: sessionQuizJSON}
	s := openTestSession(t, qz, &fakeSubmitter{})
	defer s.Close()

	// last write wins
	require.NoError(t, s.SelectSingleChoice(1, 0))
	require.NoError(t, s.SelectSingleChoice(1, 1))
	assert.Equal(t, []int{2}, s.answers[1])

	assert.Equal(t, ErrUnknownQuestion, s.SelectSingleChoice(9, 0))
}

func TestSessionToggleMultipleChoice(t *testing.T) {
	qz := Quiz{ID: 7, QuizJSON: sessionQuizJSON}
	s := openTestSession(t, qz, &fakeSubmitter{})
	defer s.Close()

	// toggling on then off restores the pre-toggle state
	require.NoError(t, s.ToggleMultipleChoice(2, 0, true))
	require.NoError(t, s.ToggleMultipleChoice(2, 2, true))
	require.NoError(t, s.ToggleMultipleChoice(2, 2, false))
	assert.Equal(t, []int{1}, s.answers[2])

	// unchecking the last one leaves an empty recorded answer
	require.NoError(t, s.ToggleMultipleChoice(2, 0, false))
	vals, ok := s.answers[2]
	assert.True(t, ok)
	assert.Empty(t, vals)

	// unchecking with no prior answer records nothing
	require.NoError(t, s.ToggleMultipleChoice(3, 0, false))
	_, ok = s.answers[3]
	assert.False(t, ok)

	// checking twice keeps a single entry
	require.NoError(t, s.ToggleMultipleChoice(2, 1, true))
	require.NoError(t, s.ToggleMultipleChoice(2, 1, true))
	assert.Equal(t, []int{2}, s.answers[2])
}

func TestSessionValidate(t *testing.T) {
	qz := Quiz{ID: 7, QuizJSON: sessionQuizJSON}
	s := openTestSession(t, qz, &fakeSubmitter{})
	defer s.Close()

	fails := s.Validate()
	require.Len(t, fails, 3)
	assert.Contains(t, fails[0], "unanswered question 1")
	assert.Contains(t, fails[1], "unanswered question 2")
	assert.Contains(t, fails[2], "unanswered question 3")

	require.NoError(t, s.SelectSingleChoice(1, 0))
	require.NoError(t, s.ToggleMultipleChoice(2, 1, true))
	require.NoError(t, s.ToggleMultipleChoice(2, 1, false)) // left empty
	require.NoError(t, s.SelectSingleChoice(3, 5))          // out of range

	fails = s.Validate()
	require.Len(t, fails, 2)
	assert.Contains(t, fails[0], "question 2 has no options selected")
	assert.Contains(t, fails[1], "question 3 answer 6 is out of range")

	require.NoError(t, s.ToggleMultipleChoice(2, 1, true))
	require.NoError(t, s.SelectSingleChoice(3, 1))
	assert.Empty(t, s.Validate())
}

func TestSessionSubmit(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Minute)
	now := start
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = func() time.Time { return time.Now().UTC() } }()

	qz := Quiz{ID: 7, Duration: 1, QuizJSON: `{'questions': [{'question_id': 1, 'type': 'single_choice', 'question': 'Q', 'answers': ['A', 'B']}]}`}

	sub := &fakeSubmitter{}
	tickInterval = time.Hour
	defer func() { tickInterval = time.Second }()
	s := openTestSession(t, qz, sub)

	require.NoError(t, s.SelectSingleChoice(1, 0))
	now = end
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, Submitted, s.State())
	require.Len(t, sub.calls, 1)
	got := sub.calls[0]
	assert.Equal(t, 7, got.QuizID)
	assert.Equal(t, start, got.StartTime)
	assert.Equal(t, end, got.EndTime)
	require.Len(t, got.SubmittedAnswers.Answers, 1)
	assert.Equal(t, SubmittedAnswer{QuestionID: 1, Answer: []string{"A"}}, got.SubmittedAnswers.Answers[0])

	// answers are cleared after a successful hand-off
	assert.Empty(t, s.answers)

	assert.Equal(t, ErrSessionNotOpen, s.Submit(context.Background()))
}

func TestSessionSubmitUnanswered(t *testing.T) {
	qz := Quiz{ID: 7, QuizJSON: sessionQuizJSON}
	sub := &fakeSubmitter{}
	s := openTestSession(t, qz, sub)
	defer s.Close()

	require.NoError(t, s.SelectSingleChoice(1, 0))
	require.NoError(t, s.SelectSingleChoice(3, 0))

	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid answers")
	assert.Zero(t, sub.callCount(), "no network call on validation failure")
	assert.Equal(t, InProgress, s.State())
}

func TestSessionSubmitRollback(t *testing.T) {
	qz := Quiz{ID: 7, Duration: 5, QuizJSON: `{'questions': [{'question_id': 1, 'type': 'single_choice', 'question': 'Q', 'answers': ['A', 'B']}]}`}
	sub := &fakeSubmitter{err: errors.New("backend down")}

	tickInterval = time.Hour
	defer func() { tickInterval = time.Second }()
	s := openTestSession(t, qz, sub)
	defer s.Close()

	before := s.Remaining()
	require.NoError(t, s.SelectSingleChoice(1, 1))
	err := s.Submit(context.Background())
	require.Error(t, err)

	// session rolls back with answers intact and countdown untouched
	assert.Equal(t, InProgress, s.State())
	assert.Equal(t, []int{2}, s.answers[1])
	assert.Equal(t, before, s.Remaining())
	assert.Error(t, s.Err())

	sub.err = nil
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, Submitted, s.State())
}

func TestSessionCountdownExpiry(t *testing.T) {
	tickInterval = time.Hour
	defer func() { tickInterval = time.Second }()

	qz := Quiz{ID: 7, Duration: 5, QuizJSON: `{'questions': [{'question_id': 1, 'type': 'single_choice', 'question': 'Q', 'answers': ['A', 'B']}]}`}
	sub := &fakeSubmitter{}
	s := openTestSession(t, qz, sub)

	require.NoError(t, s.SelectSingleChoice(1, 0))
	require.Equal(t, 300, s.Remaining())

	ctx := context.Background()
	for i := 0; i < 299; i++ {
		require.True(t, s.tick(ctx))
	}
	assert.Equal(t, 1, s.Remaining())
	assert.Equal(t, InProgress, s.State())

	// the 300th tick submits, exactly once
	assert.False(t, s.tick(ctx))
	assert.Equal(t, 0, s.Remaining())
	assert.Equal(t, Submitted, s.State())
	assert.Equal(t, 1, sub.callCount())

	// further ticks do nothing
	assert.False(t, s.tick(ctx))
	assert.Equal(t, 1, sub.callCount())
}

func TestSessionCountdownExpiryInvalid(t *testing.T) {
	tickInterval = time.Hour
	defer func() { tickInterval = time.Second }()

	qz := Quiz{ID: 7, Duration: 1, QuizJSON: sessionQuizJSON}
	sub := &fakeSubmitter{}
	s := openTestSession(t, qz, sub)

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		s.tick(ctx)
	}

	// an invalid attempt is never sent; the session closes holding the failures
	assert.Equal(t, Closed, s.State())
	assert.Zero(t, sub.callCount())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "invalid answers")
}

func TestSessionCountdownTicker(t *testing.T) {
	tickInterval = time.Millisecond
	defer func() { tickInterval = time.Second }()

	// duration 1 = 60 ticks at 1ms
	qz := Quiz{ID: 7, Duration: 1, QuizJSON: `{'questions': [{'question_id': 1, 'type': 'single_choice', 'question': 'Q', 'answers': ['A', 'B']}]}`}
	sub := &fakeSubmitter{}
	s := openTestSession(t, qz, sub)

	require.NoError(t, s.SelectSingleChoice(1, 1))

	deadline := time.After(5 * time.Second)
	for s.State() != Submitted {
		select {
		case <-deadline:
			t.Fatal("countdown never submitted")
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.Equal(t, 1, sub.callCount())
}

func TestSessionClose(t *testing.T) {
	tickInterval = time.Hour
	defer func() { tickInterval = time.Second }()

	qz := Quiz{ID: 7, Duration: 5, QuizJSON: sessionQuizJSON}
	s := openTestSession(t, qz, &fakeSubmitter{})

	s.Close()
	assert.Equal(t, Closed, s.State())

	// a closed session accepts nothing
	assert.Equal(t, ErrSessionNotOpen, s.SelectSingleChoice(1, 0))
	assert.Equal(t, ErrSessionNotOpen, s.Submit(context.Background()))
	assert.False(t, s.tick(context.Background()))
}
